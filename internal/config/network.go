package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/viper"
)

// Network holds the deployed contract addresses for one chain.
type Network struct {
	Name       string
	BaseToken  common.Address
	QuoteToken common.Address
	Exchange   common.Address
	Explorer   string
}

// builtinNetworks covers the hardhat localnet with its deterministic
// deployment addresses. Other chains come from the config file.
func builtinNetworks() map[uint64]Network {
	return map[uint64]Network{
		31337: {
			Name:       "localhost",
			BaseToken:  common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3"),
			QuoteToken: common.HexToAddress("0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512"),
			Exchange:   common.HexToAddress("0x9fE46736679d2D9a65F0992F2272dE9f3c7fA6e0"),
		},
	}
}

// ResolveNetwork returns the network entry for a chain ID.
func (c Config) ResolveNetwork(chainID uint64) (Network, error) {
	network, ok := c.Networks[chainID]
	if !ok {
		return Network{}, fmt.Errorf("unsupported chain id: %d", chainID)
	}
	return network, nil
}

func loadNetworks(v *viper.Viper) (map[uint64]Network, error) {
	networks := builtinNetworks()

	raw := v.GetStringMap("networks")
	for key, value := range raw {
		chainID, err := strconv.ParseUint(key, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid chain id %q in networks section", key)
		}

		entry, ok := value.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("network %s: expected a table of addresses", key)
		}

		network, err := parseNetwork(entry)
		if err != nil {
			return nil, fmt.Errorf("network %s: %w", key, err)
		}
		networks[chainID] = network
	}

	return networks, nil
}

func parseNetwork(entry map[string]interface{}) (Network, error) {
	network := Network{
		Name:     stringField(entry, "name"),
		Explorer: stringField(entry, "explorer"),
	}

	base, err := addressField(entry, "base-token")
	if err != nil {
		return Network{}, err
	}
	quote, err := addressField(entry, "quote-token")
	if err != nil {
		return Network{}, err
	}
	exchange, err := addressField(entry, "exchange")
	if err != nil {
		return Network{}, err
	}

	network.BaseToken = base
	network.QuoteToken = quote
	network.Exchange = exchange
	return network, nil
}

func stringField(entry map[string]interface{}, key string) string {
	value, ok := entry[key]
	if !ok {
		return ""
	}
	return strings.TrimSpace(fmt.Sprintf("%v", value))
}

func addressField(entry map[string]interface{}, key string) (common.Address, error) {
	raw := stringField(entry, key)
	if raw == "" {
		return common.Address{}, fmt.Errorf("missing %s address", key)
	}
	if !common.IsHexAddress(raw) {
		return common.Address{}, fmt.Errorf("invalid %s address: %s", key, raw)
	}
	return common.HexToAddress(raw), nil
}
