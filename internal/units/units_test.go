package units

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
)

func TestToWeiWholeAmount(t *testing.T) {
	wei, err := ToWei(decimal.NewFromInt(10))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want, _ := new(big.Int).SetString("10000000000000000000", 10)
	if wei.Cmp(want) != 0 {
		t.Fatalf("wei mismatch: %s != %s", wei, want)
	}
}

func TestRoundTrip(t *testing.T) {
	cases := []string{
		"0",
		"1",
		"0.5",
		"123.456789012345678",
		"0.000000000000000001",
		"99999999.999999999999999999",
	}

	for _, input := range cases {
		parsed, err := decimal.NewFromString(input)
		if err != nil {
			t.Fatalf("parse %s: %v", input, err)
		}
		wei, err := ToWei(parsed)
		if err != nil {
			t.Fatalf("to wei %s: %v", input, err)
		}
		back := FromWei(wei)
		if !back.Equal(parsed) {
			t.Fatalf("round-trip mismatch: %s -> %s", input, back)
		}
	}
}

func TestToWeiRejectsTooManyDigits(t *testing.T) {
	amount, err := decimal.NewFromString("0.0000000000000000001")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, err := ToWei(amount); err == nil {
		t.Fatalf("expected error for 19 fractional digits")
	}
}

func TestToWeiRejectsNegative(t *testing.T) {
	if _, err := ToWei(decimal.NewFromInt(-1)); err == nil {
		t.Fatalf("expected error for negative amount")
	}
}

func TestParseWei(t *testing.T) {
	wei, err := ParseWei("2.5")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want, _ := new(big.Int).SetString("2500000000000000000", 10)
	if wei.Cmp(want) != 0 {
		t.Fatalf("wei mismatch: %s != %s", wei, want)
	}

	if _, err := ParseWei("not-a-number"); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestFormatWei(t *testing.T) {
	wei, _ := new(big.Int).SetString("1500000000000000000", 10)
	if got := FormatWei(wei); got != "1.5" {
		t.Fatalf("format mismatch: %s", got)
	}
	if got := FormatWei(nil); got != "0" {
		t.Fatalf("nil format mismatch: %s", got)
	}
}
