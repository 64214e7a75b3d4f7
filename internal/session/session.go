package session

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"dexDesk/internal/chain"
	"dexDesk/internal/config"
	"dexDesk/internal/exchange"
	"dexDesk/internal/state"
	"dexDesk/internal/units"
)

// Session ties together the connection, the resolved network, the
// contract handles, and the signing key for one chain. It is rebuilt
// wholesale on network change.
type Session struct {
	logger   *zap.Logger
	client   *chain.Client
	store    *state.Store
	chainID  *big.Int
	network  config.Network
	pair     exchange.Pair
	exchange *exchange.Exchange
	key      *ecdsa.PrivateKey
	address  common.Address
}

// Bootstrap connects, identifies the network, binds the contract
// handles, and, when a key is configured, loads the account.
func Bootstrap(ctx context.Context, cfg config.Config, client *chain.Client, store *state.Store, logger *zap.Logger) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("get chain id: %w", err)
	}
	if !chainID.IsUint64() {
		return nil, fmt.Errorf("chain id does not fit in uint64: %s", chainID)
	}

	network, err := cfg.ResolveNetwork(chainID.Uint64())
	if err != nil {
		return nil, err
	}
	store.Apply(state.NetworkLoaded{
		ChainID:  chainID.Uint64(),
		Name:     network.Name,
		Explorer: network.Explorer,
	})

	pair, err := exchange.LoadPair(ctx, client, network.BaseToken, network.QuoteToken)
	if err != nil {
		return nil, err
	}
	store.Apply(state.PairLoaded{
		BaseAddress:  pair.Base.Address,
		BaseSymbol:   pair.Base.Symbol,
		QuoteAddress: pair.Quote.Address,
		QuoteSymbol:  pair.Quote.Symbol,
	})

	handle, err := exchange.NewExchange(client, network.Exchange)
	if err != nil {
		return nil, err
	}
	store.Apply(state.ExchangeLoaded{Address: handle.Address})

	session := &Session{
		logger:   logger,
		client:   client,
		store:    store,
		chainID:  chainID,
		network:  network,
		pair:     pair,
		exchange: handle,
	}

	if cfg.PrivateKey != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
		if err != nil {
			return nil, fmt.Errorf("parse private key: %w", err)
		}
		session.key = key
		session.address = crypto.PubkeyToAddress(key.PublicKey)

		if err := session.LoadAccount(ctx); err != nil {
			return nil, err
		}
	}

	return session, nil
}

// LoadAccount publishes the signing address and its native balance. A
// failed fetch is terminal for this attempt; the caller retries.
func (s *Session) LoadAccount(ctx context.Context) error {
	if s.key == nil {
		return fmt.Errorf("no signing key configured")
	}

	s.store.Apply(state.AccountLoaded{Address: s.address})

	balance, err := s.client.NativeBalance(ctx, s.address)
	if err != nil {
		return fmt.Errorf("native balance: %w", err)
	}
	s.store.Apply(state.NativeBalanceLoaded{
		Account: s.address,
		Balance: units.FormatWei(balance),
	})

	return nil
}

// LoadBalances fetches the four tracked balances and publishes one
// consistent snapshot. Any failed read aborts the whole fetch. The
// generation is registered for this account before the first read so a
// snapshot raced by an account change is recognized as stale and
// dropped by the store, while a fetch for the current account always
// lands.
func (s *Session) LoadBalances(ctx context.Context) error {
	account := s.address
	generation := s.store.BeginBalanceFetch(account)

	baseWallet, err := s.pair.Base.BalanceOf(ctx, account)
	if err != nil {
		return fmt.Errorf("base wallet balance: %w", err)
	}
	baseExchange, err := s.exchange.BalanceOf(ctx, s.pair.Base.Address, account)
	if err != nil {
		return fmt.Errorf("base exchange balance: %w", err)
	}
	quoteWallet, err := s.pair.Quote.BalanceOf(ctx, account)
	if err != nil {
		return fmt.Errorf("quote wallet balance: %w", err)
	}
	quoteExchange, err := s.exchange.BalanceOf(ctx, s.pair.Quote.Address, account)
	if err != nil {
		return fmt.Errorf("quote exchange balance: %w", err)
	}

	s.store.Apply(state.BalancesLoaded{Balances: state.Balances{
		Account:       account,
		Generation:    generation,
		BaseWallet:    units.FormatWei(baseWallet),
		BaseExchange:  units.FormatWei(baseExchange),
		QuoteWallet:   units.FormatWei(quoteWallet),
		QuoteExchange: units.FormatWei(quoteExchange),
	}})

	return nil
}

// SyncOnTransfers runs refresh after every transfer-succeeded signal on
// updates, until the context ends. Deposits and withdrawals change two
// balances at once, so consumers re-fetch instead of applying the
// reported delta. A failed refresh is logged and the loop keeps going.
func SyncOnTransfers(ctx context.Context, updates <-chan state.Update, refresh func(context.Context) error, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if _, ok := update.(state.TransferSucceeded); !ok {
				continue
			}
			if err := refresh(ctx); err != nil {
				logger.Warn("balance refresh failed", zap.Error(err))
			}
		}
	}
}

// Address returns the signing address, zero when running key-less.
func (s *Session) Address() common.Address {
	return s.address
}

// ChainID returns the connected chain's ID.
func (s *Session) ChainID() *big.Int {
	return new(big.Int).Set(s.chainID)
}

// Network returns the resolved network configuration.
func (s *Session) Network() config.Network {
	return s.network
}

// Pair returns the traded token pair.
func (s *Session) Pair() exchange.Pair {
	return s.pair
}

// Exchange returns the exchange contract handle.
func (s *Session) Exchange() *exchange.Exchange {
	return s.exchange
}

// CanSign reports whether a signing key is configured.
func (s *Session) CanSign() bool {
	return s.key != nil
}

// SignTx signs a transaction with the session key for this chain.
func (s *Session) SignTx(tx *types.Transaction) (*types.Transaction, error) {
	if s.key == nil {
		return nil, fmt.Errorf("no signing key configured")
	}
	return types.SignTx(tx, types.LatestSignerForChainID(s.chainID), s.key)
}
