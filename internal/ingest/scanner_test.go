package ingest

import (
	"context"
	"fmt"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"dexDesk/internal/exchange"
	"dexDesk/internal/model"
	"dexDesk/internal/state"
)

var (
	scanUser     = common.HexToAddress("0x1111111111111111111111111111111111111111")
	scanTokenA   = common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	scanTokenB   = common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	exchangeAddr = common.HexToAddress("0x9fE46736679d2D9a65F0992F2272dE9f3c7fA6e0")
)

type fakeSource struct {
	latest uint64
	logs   []types.Log
}

func (f *fakeSource) LatestBlockNumber(ctx context.Context) (uint64, error) {
	return f.latest, nil
}

func (f *fakeSource) FilterLogs(ctx context.Context, fromBlock, toBlock uint64, addresses []common.Address, topic0 []common.Hash) ([]types.Log, error) {
	matched := make([]types.Log, 0)
	for _, log := range f.logs {
		if log.BlockNumber < fromBlock || log.BlockNumber > toBlock {
			continue
		}
		if len(topic0) > 0 && log.Topics[0] != topic0[0] {
			continue
		}
		matched = append(matched, log)
	}
	return matched, nil
}

type captureSink struct {
	orders []model.OrderRecord
	trades []model.TradeRecord
}

func (c *captureSink) PutOrderBatch(orders []model.OrderRecord) error {
	c.orders = append(c.orders, orders...)
	return nil
}

func (c *captureSink) PutTradeBatch(trades []model.TradeRecord) error {
	c.trades = append(c.trades, trades...)
	return nil
}

func orderLog(t *testing.T, handle *exchange.Exchange, name string, id int64, block uint64, index uint) types.Log {
	t.Helper()
	event := handle.ABI().Events[name]
	data, err := event.Inputs.Pack(
		big.NewInt(id),
		scanUser,
		scanTokenA,
		big.NewInt(1000),
		scanTokenB,
		big.NewInt(2000),
		big.NewInt(1700000000+id),
	)
	if err != nil {
		t.Fatalf("pack %s: %v", name, err)
	}
	return types.Log{
		Address:     exchangeAddr,
		Topics:      []common.Hash{event.ID},
		Data:        data,
		BlockNumber: block,
		TxHash:      common.HexToHash(fmt.Sprintf("0x%064x", uint64(id)+block)),
		Index:       index,
	}
}

func tradeLog(t *testing.T, handle *exchange.Exchange, id int64, block uint64, index uint) types.Log {
	t.Helper()
	event := handle.ABI().Events[exchange.EventTrade]
	data, err := event.Inputs.Pack(
		big.NewInt(id),
		scanUser,
		scanTokenA,
		big.NewInt(500),
		scanTokenB,
		big.NewInt(1500),
		scanUser,
		big.NewInt(1700000000+id),
	)
	if err != nil {
		t.Fatalf("pack trade: %v", err)
	}
	return types.Log{
		Address:     exchangeAddr,
		Topics:      []common.Hash{event.ID},
		Data:        data,
		BlockNumber: block,
		TxHash:      common.HexToHash(fmt.Sprintf("0x%064x", uint64(id)+block+500000)),
		Index:       index,
	}
}

func newTestScanner(t *testing.T, source *fakeSource, sink *captureSink) (*Scanner, *state.Store, context.CancelFunc) {
	t.Helper()
	handle, err := exchange.NewExchange(nil, exchangeAddr)
	if err != nil {
		t.Fatalf("exchange handle: %v", err)
	}

	store := state.NewStore(nil)
	ctx, cancel := context.WithCancel(context.Background())
	go store.Run(ctx)

	scanner := NewScanner(ScanConfig{
		ChainID:    31337,
		FromBlock:  0,
		WindowSize: 10,
		MaxRetries: 1,
	}, source, handle, store, sink, nil)

	return scanner, store, cancel
}

func TestScannerCountsAndOrder(t *testing.T) {
	handle, err := exchange.NewExchange(nil, exchangeAddr)
	if err != nil {
		t.Fatalf("exchange handle: %v", err)
	}

	source := &fakeSource{latest: 25}
	// Three placed orders, one cancel, two trades, spread over three
	// scan windows.
	source.logs = []types.Log{
		orderLog(t, handle, exchange.EventOrder, 1, 2, 0),
		orderLog(t, handle, exchange.EventOrder, 2, 5, 1),
		tradeLog(t, handle, 1, 12, 0),
		orderLog(t, handle, exchange.EventCancel, 2, 14, 0),
		orderLog(t, handle, exchange.EventOrder, 3, 21, 0),
		tradeLog(t, handle, 3, 24, 1),
	}

	sink := &captureSink{}
	scanner, store, cancel := newTestScanner(t, source, sink)
	defer cancel()

	if err := scanner.Run(context.Background()); err != nil {
		t.Fatalf("scan failed: %v", err)
	}

	var open, cancelled int
	for _, order := range sink.orders {
		switch order.Status {
		case model.OrderOpen:
			open++
		case model.OrderCancelled:
			cancelled++
		}
	}
	if open != 3 || cancelled != 1 || len(sink.trades) != 2 {
		t.Fatalf("counts mismatch: open=%d cancelled=%d trades=%d", open, cancelled, len(sink.trades))
	}

	// Emission order preserved per kind.
	if sink.trades[0].OrderID != "1" || sink.trades[1].OrderID != "3" {
		t.Fatalf("trade order mismatch: %+v", sink.trades)
	}

	waitForStore(t, store, 3, 1, 2)

	// Order 2 was cancelled and orders 1 and 3 filled, so nothing stays open.
	snapshot := store.Snapshot()
	if got := snapshot.OpenOrders(); len(got) != 0 {
		t.Fatalf("unexpected open orders: %+v", got)
	}
}

func TestScannerDeduplicatesLogs(t *testing.T) {
	handle, err := exchange.NewExchange(nil, exchangeAddr)
	if err != nil {
		t.Fatalf("exchange handle: %v", err)
	}

	duplicate := orderLog(t, handle, exchange.EventOrder, 1, 2, 0)
	source := &fakeSource{latest: 5, logs: []types.Log{duplicate, duplicate}}

	sink := &captureSink{}
	scanner, _, cancel := newTestScanner(t, source, sink)
	defer cancel()

	if err := scanner.Run(context.Background()); err != nil {
		t.Fatalf("scan failed: %v", err)
	}

	if len(sink.orders) != 1 {
		t.Fatalf("expected duplicate dropped, got %d records", len(sink.orders))
	}
}

func TestScannerEmptyRange(t *testing.T) {
	source := &fakeSource{latest: 0}
	sink := &captureSink{}
	scanner, _, cancel := newTestScanner(t, source, sink)
	defer cancel()

	scanner.cfg.FromBlock = 10
	if err := scanner.Run(context.Background()); err != nil {
		t.Fatalf("empty range should be a no-op: %v", err)
	}
	if len(sink.orders) != 0 {
		t.Fatalf("expected no records")
	}
}

func waitForStore(t *testing.T, store *state.Store, orders, cancelled, filled int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		snapshot := store.Snapshot()
		if len(snapshot.AllOrders) >= orders &&
			len(snapshot.Cancelled) >= cancelled &&
			len(snapshot.Filled) >= filled {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("store never reached orders=%d cancelled=%d filled=%d", orders, cancelled, filled)
}
