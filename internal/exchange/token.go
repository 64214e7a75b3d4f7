package exchange

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"dexDesk/internal/chain"
)

// Token is a callable handle for a deployed ERC20 token. The symbol is
// resolved once at construction.
type Token struct {
	Address common.Address
	Symbol  string

	client *chain.Client
	abi    abi.ABI
}

// NewToken binds a token address to the connection and eagerly resolves
// its symbol. One call, no retry.
func NewToken(ctx context.Context, client *chain.Client, address common.Address) (*Token, error) {
	if client == nil {
		return nil, fmt.Errorf("chain client is nil")
	}

	tokenABI, err := ERC20ABI()
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}

	token := &Token{
		Address: address,
		client:  client,
		abi:     tokenABI,
	}

	values, err := callMethod(ctx, client, address, tokenABI, "symbol")
	if err != nil {
		return nil, fmt.Errorf("resolve symbol %s: %w", address.Hex(), err)
	}
	symbol, ok := values[0].(string)
	if !ok {
		return nil, fmt.Errorf("resolve symbol %s: unexpected type %T", address.Hex(), values[0])
	}
	token.Symbol = symbol

	return token, nil
}

// NewTokenHandle binds a token whose symbol is already known, without
// touching the chain.
func NewTokenHandle(client *chain.Client, address common.Address, symbol string) (*Token, error) {
	tokenABI, err := ERC20ABI()
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}
	return &Token{
		Address: address,
		Symbol:  symbol,
		client:  client,
		abi:     tokenABI,
	}, nil
}

// BalanceOf returns the wallet balance of an account, in wei.
func (t *Token) BalanceOf(ctx context.Context, account common.Address) (*big.Int, error) {
	values, err := callMethod(ctx, t.client, t.Address, t.abi, "balanceOf", account)
	if err != nil {
		return nil, err
	}
	return asBigInt(values[0])
}

// ApproveCalldata packs an approve(spender, amount) call.
func (t *Token) ApproveCalldata(spender common.Address, amount *big.Int) ([]byte, error) {
	data, err := t.abi.Pack("approve", spender, amount)
	if err != nil {
		return nil, fmt.Errorf("pack approve: %w", err)
	}
	return data, nil
}

// Pair is the fixed, ordered pair of traded tokens. Base is the asset
// priced by the order form; Quote is the asset it is priced in. Order
// construction depends on this ordering.
type Pair struct {
	Base  *Token
	Quote *Token
}

// LoadPair binds both traded tokens for the active network.
func LoadPair(ctx context.Context, client *chain.Client, base, quote common.Address) (Pair, error) {
	baseToken, err := NewToken(ctx, client, base)
	if err != nil {
		return Pair{}, fmt.Errorf("load base token: %w", err)
	}
	quoteToken, err := NewToken(ctx, client, quote)
	if err != nil {
		return Pair{}, fmt.Errorf("load quote token: %w", err)
	}
	return Pair{Base: baseToken, Quote: quoteToken}, nil
}

func callMethod(
	ctx context.Context,
	client *chain.Client,
	contract common.Address,
	parsed abi.ABI,
	method string,
	args ...interface{},
) ([]interface{}, error) {
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	msg := ethereum.CallMsg{To: &contract, Data: data}
	resp, err := client.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("call %s: empty result", method)
	}
	return values, nil
}

func asAddress(value interface{}) (common.Address, error) {
	switch v := value.(type) {
	case common.Address:
		return v, nil
	case *common.Address:
		return *v, nil
	default:
		return common.Address{}, fmt.Errorf("unsupported address type %T", value)
	}
}

func asBigInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		return new(big.Int).Set(v), nil
	case big.Int:
		return new(big.Int).Set(&v), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	default:
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
}
