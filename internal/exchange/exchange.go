package exchange

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"dexDesk/internal/chain"
)

// Exchange is a callable handle for the deployed exchange contract.
type Exchange struct {
	Address common.Address

	client *chain.Client
	abi    abi.ABI
}

// NewExchange binds the exchange address to the connection.
func NewExchange(client *chain.Client, address common.Address) (*Exchange, error) {
	parsed, err := ExchangeABI()
	if err != nil {
		return nil, fmt.Errorf("parse exchange abi: %w", err)
	}
	return &Exchange{Address: address, client: client, abi: parsed}, nil
}

// ABI exposes the parsed contract ABI for event decoding.
func (e *Exchange) ABI() abi.ABI {
	return e.abi
}

// EventTopic returns the topic0 hash for a named contract event.
func (e *Exchange) EventTopic(name string) (common.Hash, error) {
	event, ok := e.abi.Events[name]
	if !ok {
		return common.Hash{}, fmt.Errorf("unknown event: %s", name)
	}
	return event.ID, nil
}

// BalanceOf returns the custodied balance the exchange holds for a user
// in the given token, in wei.
func (e *Exchange) BalanceOf(ctx context.Context, token, user common.Address) (*big.Int, error) {
	values, err := callMethod(ctx, e.client, e.Address, e.abi, "balanceOf", token, user)
	if err != nil {
		return nil, err
	}
	return asBigInt(values[0])
}

// FeeAccount returns the account the contract pays fees to.
func (e *Exchange) FeeAccount(ctx context.Context) (common.Address, error) {
	values, err := callMethod(ctx, e.client, e.Address, e.abi, "feeAccount")
	if err != nil {
		return common.Address{}, err
	}
	return asAddress(values[0])
}

// FeePercent returns the contract's taker fee percentage.
func (e *Exchange) FeePercent(ctx context.Context) (*big.Int, error) {
	values, err := callMethod(ctx, e.client, e.Address, e.abi, "feePercent")
	if err != nil {
		return nil, err
	}
	return asBigInt(values[0])
}

// DepositCalldata packs a depositToken(token, amount) call.
func (e *Exchange) DepositCalldata(token common.Address, amount *big.Int) ([]byte, error) {
	data, err := e.abi.Pack("depositToken", token, amount)
	if err != nil {
		return nil, fmt.Errorf("pack depositToken: %w", err)
	}
	return data, nil
}

// WithdrawCalldata packs a withdrawToken(token, amount) call.
func (e *Exchange) WithdrawCalldata(token common.Address, amount *big.Int) ([]byte, error) {
	data, err := e.abi.Pack("withdrawToken", token, amount)
	if err != nil {
		return nil, fmt.Errorf("pack withdrawToken: %w", err)
	}
	return data, nil
}

// MakeOrderCalldata packs a makeOrder call.
func (e *Exchange) MakeOrderCalldata(tokenGet common.Address, amountGet *big.Int, tokenGive common.Address, amountGive *big.Int) ([]byte, error) {
	data, err := e.abi.Pack("makeOrder", tokenGet, amountGet, tokenGive, amountGive)
	if err != nil {
		return nil, fmt.Errorf("pack makeOrder: %w", err)
	}
	return data, nil
}

// CancelOrderCalldata packs a cancelOrder(id) call.
func (e *Exchange) CancelOrderCalldata(id *big.Int) ([]byte, error) {
	data, err := e.abi.Pack("cancelOrder", id)
	if err != nil {
		return nil, fmt.Errorf("pack cancelOrder: %w", err)
	}
	return data, nil
}

// FillOrderCalldata packs a fillOrder(id) call.
func (e *Exchange) FillOrderCalldata(id *big.Int) ([]byte, error) {
	data, err := e.abi.Pack("fillOrder", id)
	if err != nil {
		return nil, fmt.Errorf("pack fillOrder: %w", err)
	}
	return data, nil
}
