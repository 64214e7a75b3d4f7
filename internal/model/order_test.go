package model

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestOrderRecordJSONRoundTrip(t *testing.T) {
	original := OrderRecord{
		ChainID:     31337,
		BlockNumber: 42,
		TxHash:      "0xdef456",
		LogIndex:    3,
		OrderID:     "7",
		User:        "0x1111111111111111111111111111111111111111",
		TokenGet:    "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		AmountGet:   "10000000000000000000",
		TokenGive:   "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb",
		AmountGive:  "20000000000000000000",
		Timestamp:   1700000000,
		Status:      OrderOpen,
		IngestedAt:  "2024-01-01T00:00:00Z",
	}

	b, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded OrderRecord
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if !reflect.DeepEqual(original, decoded) {
		t.Fatalf("round-trip mismatch: %+v != %+v", original, decoded)
	}
}

func TestOrderRecordAmountsStayStrings(t *testing.T) {
	record := OrderRecord{
		AmountGet:  "12345678901234567890",
		AmountGive: "98765432109876543210",
	}

	b, err := json.Marshal(record)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if _, ok := decoded["amount_get"].(string); !ok {
		t.Fatalf("amount_get should be string")
	}
	if _, ok := decoded["amount_give"].(string); !ok {
		t.Fatalf("amount_give should be string")
	}
}
