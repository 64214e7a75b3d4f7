package state

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"dexDesk/internal/model"
)

// Operation is the tracked lifecycle of one operation kind.
type Operation struct {
	Status OpStatus
	TxHash string
	Err    error
}

// Snapshot is a copy of the store's state at one point in time.
type Snapshot struct {
	ChainID       uint64
	NetworkName   string
	Explorer      string
	Account       common.Address
	NativeBalance string
	BaseSymbol    string
	QuoteSymbol   string
	Exchange      common.Address
	Balances      Balances
	AllOrders     []model.OrderRecord
	Cancelled     []model.OrderRecord
	Filled        []model.TradeRecord
	Operations    map[OpKind]Operation
}

// OpenOrders returns the orders not yet cancelled or filled, in the
// order they were placed.
func (s Snapshot) OpenOrders() []model.OrderRecord {
	closed := make(map[string]struct{}, len(s.Cancelled)+len(s.Filled))
	for _, order := range s.Cancelled {
		closed[order.OrderID] = struct{}{}
	}
	for _, trade := range s.Filled {
		closed[trade.OrderID] = struct{}{}
	}

	open := make([]model.OrderRecord, 0, len(s.AllOrders))
	for _, order := range s.AllOrders {
		if _, ok := closed[order.OrderID]; ok {
			continue
		}
		open = append(open, order)
	}
	return open
}

// Store owns all session state. A single goroutine applies updates in
// arrival order; readers get copies via Snapshot.
type Store struct {
	logger  *zap.Logger
	updates chan Update

	mu         sync.RWMutex
	snapshot   Snapshot
	generation uint64
	orderIDs   map[string]struct{}
	subs       []chan Update
}

// NewStore builds an empty store.
func NewStore(logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		logger:  logger,
		updates: make(chan Update, 64),
		snapshot: Snapshot{
			Operations: map[OpKind]Operation{
				OpTransfer: {Status: StatusIdle},
				OpOrder:    {Status: StatusIdle},
				OpCancel:   {Status: StatusIdle},
				OpFill:     {Status: StatusIdle},
			},
		},
		orderIDs: make(map[string]struct{}),
	}
}

// Run consumes updates until the context is cancelled. It must be
// running for Apply to make progress.
func (s *Store) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case update := <-s.updates:
			s.apply(update)
			s.publish(update)
		}
	}
}

// Apply queues an update for the writer goroutine.
func (s *Store) Apply(update Update) {
	s.updates <- update
}

// Generation returns the current balance generation. Balance fetches
// capture it at call start so stale results can be recognized.
func (s *Store) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// BeginBalanceFetch registers account as the active account and returns
// the generation the resulting BalancesLoaded must carry. The bump a new
// account causes happens here, synchronously, so a fetch started right
// after an account change is never mistaken for a stale one.
func (s *Store) BeginBalanceFetch(account common.Address) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if account != s.snapshot.Account {
		s.generation++
		s.snapshot.Account = account
	}
	return s.generation
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	copied := s.snapshot
	copied.AllOrders = append([]model.OrderRecord(nil), s.snapshot.AllOrders...)
	copied.Cancelled = append([]model.OrderRecord(nil), s.snapshot.Cancelled...)
	copied.Filled = append([]model.TradeRecord(nil), s.snapshot.Filled...)
	copied.Operations = make(map[OpKind]Operation, len(s.snapshot.Operations))
	for kind, op := range s.snapshot.Operations {
		copied.Operations[kind] = op
	}
	return copied
}

// Subscribe returns a channel receiving every applied update. Slow
// subscribers miss updates rather than blocking the writer.
func (s *Store) Subscribe() <-chan Update {
	ch := make(chan Update, 64)
	s.mu.Lock()
	s.subs = append(s.subs, ch)
	s.mu.Unlock()
	return ch
}

func (s *Store) publish(update Update) {
	s.mu.RLock()
	subs := s.subs
	s.mu.RUnlock()

	for _, ch := range subs {
		select {
		case ch <- update:
		default:
			s.logger.Warn("subscriber lagging, update dropped")
		}
	}
}

func (s *Store) apply(update Update) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch u := update.(type) {
	case NetworkLoaded:
		s.snapshot.ChainID = u.ChainID
		s.snapshot.NetworkName = u.Name
		s.snapshot.Explorer = u.Explorer

	case AccountLoaded:
		if u.Address != s.snapshot.Account {
			s.generation++
		}
		s.snapshot.Account = u.Address

	case NativeBalanceLoaded:
		if u.Account != s.snapshot.Account {
			return
		}
		s.snapshot.NativeBalance = u.Balance

	case PairLoaded:
		s.snapshot.BaseSymbol = u.BaseSymbol
		s.snapshot.QuoteSymbol = u.QuoteSymbol

	case ExchangeLoaded:
		s.snapshot.Exchange = u.Address

	case BalancesLoaded:
		if u.Balances.Generation != s.generation {
			s.logger.Debug("stale balance snapshot dropped",
				zap.Uint64("snapshot_generation", u.Balances.Generation),
				zap.Uint64("current_generation", s.generation),
			)
			return
		}
		s.snapshot.Balances = u.Balances

	case OrdersLoaded:
		switch u.Status {
		case model.OrderOpen:
			for _, order := range u.Orders {
				s.appendOrder(order)
			}
		case model.OrderCancelled:
			s.snapshot.Cancelled = append(s.snapshot.Cancelled, u.Orders...)
		}

	case TradesLoaded:
		s.snapshot.Filled = append(s.snapshot.Filled, u.Trades...)

	case OrderOpened:
		s.appendOrder(u.Order)

	case OrderCancelled:
		s.snapshot.Cancelled = append(s.snapshot.Cancelled, u.Order)

	case OrderFilled:
		s.snapshot.Filled = append(s.snapshot.Filled, u.Trade)

	case TransferSucceeded:
		// Balances are refreshed by the consumer re-running the fetch;
		// no local arithmetic on the reported amounts.

	case OpStarted:
		s.snapshot.Operations[u.Kind] = Operation{Status: StatusRequested}

	case OpConfirmed:
		s.snapshot.Operations[u.Kind] = Operation{Status: StatusConfirmed, TxHash: u.TxHash}

	case OpFailed:
		s.snapshot.Operations[u.Kind] = Operation{Status: StatusFailed, Err: u.Err}
	}
}

// appendOrder keeps AllOrders append-only and deduplicated by order id.
func (s *Store) appendOrder(order model.OrderRecord) {
	if _, ok := s.orderIDs[order.OrderID]; ok {
		return
	}
	s.orderIDs[order.OrderID] = struct{}{}
	s.snapshot.AllOrders = append(s.snapshot.AllOrders, order)
}
