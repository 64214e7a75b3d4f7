package config

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestResolveNetworkBuiltin(t *testing.T) {
	cfg := Config{Networks: builtinNetworks()}

	for chainID := range cfg.Networks {
		network, err := cfg.ResolveNetwork(chainID)
		if err != nil {
			t.Fatalf("resolve %d: %v", chainID, err)
		}
		if network.BaseToken == (common.Address{}) {
			t.Fatalf("chain %d: missing base token address", chainID)
		}
		if network.QuoteToken == (common.Address{}) {
			t.Fatalf("chain %d: missing quote token address", chainID)
		}
		if network.Exchange == (common.Address{}) {
			t.Fatalf("chain %d: missing exchange address", chainID)
		}
		if network.BaseToken == network.QuoteToken {
			t.Fatalf("chain %d: base and quote tokens must differ", chainID)
		}
	}
}

func TestResolveNetworkUnsupported(t *testing.T) {
	cfg := Config{Networks: builtinNetworks()}

	if _, err := cfg.ResolveNetwork(99999); err == nil {
		t.Fatalf("expected error for unsupported chain")
	}
}

func TestParseNetwork(t *testing.T) {
	entry := map[string]interface{}{
		"name":        "sepolia",
		"base-token":  "0x1111111111111111111111111111111111111111",
		"quote-token": "0x2222222222222222222222222222222222222222",
		"exchange":    "0x3333333333333333333333333333333333333333",
		"explorer":    "https://sepolia.etherscan.io",
	}

	network, err := parseNetwork(entry)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if network.Name != "sepolia" {
		t.Fatalf("name mismatch: %s", network.Name)
	}
	if network.Exchange != common.HexToAddress("0x3333333333333333333333333333333333333333") {
		t.Fatalf("exchange mismatch: %s", network.Exchange)
	}
}

func TestParseNetworkRejectsBadAddress(t *testing.T) {
	entry := map[string]interface{}{
		"base-token":  "not-an-address",
		"quote-token": "0x2222222222222222222222222222222222222222",
		"exchange":    "0x3333333333333333333333333333333333333333",
	}

	if _, err := parseNetwork(entry); err == nil {
		t.Fatalf("expected error for invalid address")
	}

	delete(entry, "base-token")
	if _, err := parseNetwork(entry); err == nil {
		t.Fatalf("expected error for missing address")
	}
}
