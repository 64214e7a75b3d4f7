package watch

import (
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"dexDesk/internal/exchange"
	"dexDesk/internal/model"
	"dexDesk/internal/state"
)

var (
	watchUser    = common.HexToAddress("0x1111111111111111111111111111111111111111")
	watchTokenA  = common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	watchTokenB  = common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	watchAddress = common.HexToAddress("0x9fE46736679d2D9a65F0992F2272dE9f3c7fA6e0")
)

type fakeSub struct {
	errs chan error
}

func (f *fakeSub) Unsubscribe() {}

func (f *fakeSub) Err() <-chan error { return f.errs }

type fakeLiveSource struct {
	mu    sync.Mutex
	sinks map[common.Hash]chan<- types.Log
}

func newFakeLiveSource() *fakeLiveSource {
	return &fakeLiveSource{sinks: make(map[common.Hash]chan<- types.Log)}
}

func (f *fakeLiveSource) SubscribeLogs(ctx context.Context, addresses []common.Address, topic0 []common.Hash, sink chan<- types.Log) (ethereum.Subscription, error) {
	f.mu.Lock()
	f.sinks[topic0[0]] = sink
	f.mu.Unlock()
	return &fakeSub{errs: make(chan error)}, nil
}

func (f *fakeLiveSource) deliver(t *testing.T, topic common.Hash, log types.Log) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		f.mu.Lock()
		sink, ok := f.sinks[topic]
		f.mu.Unlock()
		if ok {
			sink <- log
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("subscription for topic %s never registered", topic.Hex())
}

func packLog(t *testing.T, handle *exchange.Exchange, name string, args ...interface{}) types.Log {
	t.Helper()
	event := handle.ABI().Events[name]
	data, err := event.Inputs.Pack(args...)
	if err != nil {
		t.Fatalf("pack %s: %v", name, err)
	}
	return types.Log{
		Address:     watchAddress,
		Topics:      []common.Hash{event.ID},
		Data:        data,
		BlockNumber: 10,
		TxHash:      common.HexToHash("0x01"),
	}
}

func startWatcher(t *testing.T) (*fakeLiveSource, *exchange.Exchange, *state.Store, <-chan state.Update, context.CancelFunc) {
	t.Helper()

	handle, err := exchange.NewExchange(nil, watchAddress)
	if err != nil {
		t.Fatalf("exchange handle: %v", err)
	}

	store := state.NewStore(nil)
	updates := store.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	go store.Run(ctx)

	source := newFakeLiveSource()
	watcher := NewWatcher(source, handle, store, 31337, 10*time.Millisecond, nil)
	go watcher.Run(ctx)

	return source, handle, store, updates, cancel
}

func nextUpdate(t *testing.T, updates <-chan state.Update) state.Update {
	t.Helper()
	select {
	case update := <-updates:
		return update
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for update")
		return nil
	}
}

func TestWatcherDispatchesOrderEvents(t *testing.T) {
	source, handle, store, updates, cancel := startWatcher(t)
	defer cancel()

	orderTopic := handle.ABI().Events[exchange.EventOrder].ID
	source.deliver(t, orderTopic, packLog(t, handle, exchange.EventOrder,
		big.NewInt(1), watchUser, watchTokenA, big.NewInt(10), watchTokenB, big.NewInt(20), big.NewInt(1700000000),
	))

	update := nextUpdate(t, updates)
	opened, ok := update.(state.OrderOpened)
	if !ok {
		t.Fatalf("expected OrderOpened, got %T", update)
	}
	if opened.Order.OrderID != "1" || opened.Order.Status != model.OrderOpen {
		t.Fatalf("order mismatch: %+v", opened.Order)
	}

	if len(store.Snapshot().AllOrders) != 1 {
		t.Fatalf("store missed the order")
	}
}

func TestWatcherCoalescesTransfers(t *testing.T) {
	source, handle, _, updates, cancel := startWatcher(t)
	defer cancel()

	depositTopic := handle.ABI().Events[exchange.EventDeposit].ID
	withdrawalTopic := handle.ABI().Events[exchange.EventWithdrawal].ID

	source.deliver(t, depositTopic, packLog(t, handle, exchange.EventDeposit,
		watchTokenA, watchUser, big.NewInt(5), big.NewInt(5),
	))
	update := nextUpdate(t, updates)
	transfer, ok := update.(state.TransferSucceeded)
	if !ok {
		t.Fatalf("expected TransferSucceeded for deposit, got %T", update)
	}
	if transfer.Transfer.Direction != model.TransferDeposit {
		t.Fatalf("direction mismatch: %s", transfer.Transfer.Direction)
	}

	source.deliver(t, withdrawalTopic, packLog(t, handle, exchange.EventWithdrawal,
		watchTokenA, watchUser, big.NewInt(2), big.NewInt(3),
	))
	update = nextUpdate(t, updates)
	transfer, ok = update.(state.TransferSucceeded)
	if !ok {
		t.Fatalf("expected TransferSucceeded for withdrawal, got %T", update)
	}
	if transfer.Transfer.Direction != model.TransferWithdrawal {
		t.Fatalf("direction mismatch: %s", transfer.Transfer.Direction)
	}
}

func TestWatcherDispatchesCancelAndTrade(t *testing.T) {
	source, handle, _, updates, cancel := startWatcher(t)
	defer cancel()

	cancelTopic := handle.ABI().Events[exchange.EventCancel].ID
	source.deliver(t, cancelTopic, packLog(t, handle, exchange.EventCancel,
		big.NewInt(2), watchUser, watchTokenA, big.NewInt(10), watchTokenB, big.NewInt(20), big.NewInt(1700000001),
	))
	if _, ok := nextUpdate(t, updates).(state.OrderCancelled); !ok {
		t.Fatalf("expected OrderCancelled")
	}

	tradeTopic := handle.ABI().Events[exchange.EventTrade].ID
	source.deliver(t, tradeTopic, packLog(t, handle, exchange.EventTrade,
		big.NewInt(2), watchUser, watchTokenA, big.NewInt(10), watchTokenB, big.NewInt(20), watchUser, big.NewInt(1700000002),
	))
	filled, ok := nextUpdate(t, updates).(state.OrderFilled)
	if !ok {
		t.Fatalf("expected OrderFilled")
	}
	if filled.Trade.Creator != watchUser.Hex() {
		t.Fatalf("creator mismatch: %s", filled.Trade.Creator)
	}
}
