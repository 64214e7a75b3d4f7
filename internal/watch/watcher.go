package watch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"dexDesk/internal/exchange"
	"dexDesk/internal/model"
	"dexDesk/internal/state"
)

// LiveSource provides live log subscriptions. chain.Client satisfies it.
type LiveSource interface {
	SubscribeLogs(ctx context.Context, addresses []common.Address, topic0 []common.Hash, sink chan<- types.Log) (ethereum.Subscription, error)
}

// watchedEvents lists the event kinds followed live. Ordering across
// kinds is not guaranteed, only within a kind.
var watchedEvents = []string{
	exchange.EventOrder,
	exchange.EventCancel,
	exchange.EventTrade,
	exchange.EventDeposit,
	exchange.EventWithdrawal,
}

// Watcher holds one log subscription per event kind and maps arrivals
// into store updates. Subscriptions live until the context is
// cancelled; rebootstrapping on network change cancels the context, so
// listeners are never duplicated.
type Watcher struct {
	source       LiveSource
	exchange     *exchange.Exchange
	store        *state.Store
	logger       *zap.Logger
	chainID      uint64
	retryBackoff time.Duration
}

func NewWatcher(source LiveSource, handle *exchange.Exchange, store *state.Store, chainID uint64, retryBackoff time.Duration, logger *zap.Logger) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if retryBackoff <= 0 {
		retryBackoff = time.Second
	}
	return &Watcher{
		source:       source,
		exchange:     handle,
		store:        store,
		logger:       logger,
		chainID:      chainID,
		retryBackoff: retryBackoff,
	}
}

// Run subscribes to every event kind and blocks until the context is
// cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	if w.source == nil {
		return fmt.Errorf("live source is nil")
	}
	if w.exchange == nil {
		return fmt.Errorf("exchange handle is nil")
	}
	if w.store == nil {
		return fmt.Errorf("store is nil")
	}

	var wg sync.WaitGroup
	for _, name := range watchedEvents {
		topic, err := w.exchange.EventTopic(name)
		if err != nil {
			return err
		}

		wg.Add(1)
		go func(name string, topic common.Hash) {
			defer wg.Done()
			w.watchEvent(ctx, name, topic)
		}(name, topic)
	}

	wg.Wait()
	return ctx.Err()
}

// watchEvent maintains the subscription for one event kind,
// resubscribing with backoff after a dropped subscription.
func (w *Watcher) watchEvent(ctx context.Context, name string, topic common.Hash) {
	for {
		sink := make(chan types.Log, 16)
		sub, err := w.source.SubscribeLogs(ctx, []common.Address{w.exchange.Address}, []common.Hash{topic}, sink)
		if err != nil {
			w.logger.Warn("subscribe failed", zap.String("event", name), zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(w.retryBackoff):
				continue
			}
		}

		w.logger.Info("subscribed", zap.String("event", name))

		if !w.consume(ctx, name, sub, sink) {
			return
		}
	}
}

// consume drains one subscription. Returns false when the context ended.
func (w *Watcher) consume(ctx context.Context, name string, sub ethereum.Subscription, sink chan types.Log) bool {
	defer sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return false
		case err := <-sub.Err():
			if err != nil {
				w.logger.Warn("subscription dropped", zap.String("event", name), zap.Error(err))
			}
			select {
			case <-ctx.Done():
				return false
			case <-time.After(w.retryBackoff):
			}
			return true
		case log := <-sink:
			if log.Removed {
				continue
			}
			if err := w.dispatch(name, log); err != nil {
				w.logger.Warn("event dropped", zap.String("event", name), zap.Error(err))
			}
		}
	}
}

// dispatch maps one log to exactly one store update. Deposit and
// Withdrawal coalesce into the transfer-succeeded signal; consumers
// re-fetch balances instead of applying the delta.
func (w *Watcher) dispatch(name string, log types.Log) error {
	arrivedAt := time.Now().UTC()

	switch name {
	case exchange.EventOrder:
		event, err := w.exchange.DecodeOrderLog(name, log)
		if err != nil {
			return err
		}
		w.store.Apply(state.OrderOpened{Order: event.Record(w.chainID, log, model.OrderOpen, arrivedAt)})

	case exchange.EventCancel:
		event, err := w.exchange.DecodeOrderLog(name, log)
		if err != nil {
			return err
		}
		w.store.Apply(state.OrderCancelled{Order: event.Record(w.chainID, log, model.OrderCancelled, arrivedAt)})

	case exchange.EventTrade:
		event, err := w.exchange.DecodeTradeLog(log)
		if err != nil {
			return err
		}
		w.store.Apply(state.OrderFilled{Trade: event.Record(w.chainID, log, arrivedAt)})

	case exchange.EventDeposit, exchange.EventWithdrawal:
		event, err := w.exchange.DecodeTransferLog(name, log)
		if err != nil {
			return err
		}
		w.store.Apply(state.TransferSucceeded{Transfer: event.Record(w.chainID, log)})

	default:
		return fmt.Errorf("unknown event: %s", name)
	}

	return nil
}
