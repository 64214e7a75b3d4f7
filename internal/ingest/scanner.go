package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"dexDesk/internal/exchange"
	"dexDesk/internal/model"
	"dexDesk/internal/state"
	"dexDesk/internal/storage"
)

// LogSource provides ranged log queries. chain.Client satisfies it.
type LogSource interface {
	LatestBlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, fromBlock, toBlock uint64, addresses []common.Address, topic0 []common.Hash) ([]types.Log, error)
}

// StateMirror mirrors the scan checkpoint into external storage so a
// fresh host can resume without the checkpoint file.
type StateMirror interface {
	LoadScanState(ctx context.Context, name string) (uint64, bool, error)
	SaveScanState(ctx context.Context, name string, block uint64) error
}

// ScanConfig holds runtime settings for the historical scan.
type ScanConfig struct {
	ChainID           uint64
	FromBlock         uint64
	ToBlock           uint64
	WindowSize        uint64
	CheckpointPath    string
	CheckpointEnabled bool
	MaxRetries        int
	RetryBackoff      time.Duration
}

// Scanner replays Cancel, Trade and Order events over a block range,
// feeding the store and an optional storage sink. Per-kind emission
// order is preserved.
type Scanner struct {
	cfg        ScanConfig
	source     LogSource
	exchange   *exchange.Exchange
	store      *state.Store
	sink       storage.OrderStorage
	logger     *zap.Logger
	seen       map[string]struct{}
	checkpoint *CheckpointStore
	mirror     StateMirror
}

// SetStateMirror adds a secondary checkpoint target. Used when resumed
// from Postgres; the file checkpoint takes precedence when both exist.
func (s *Scanner) SetStateMirror(mirror StateMirror) {
	s.mirror = mirror
}

func (s *Scanner) stateName() string {
	return fmt.Sprintf("exchange-scan-%d", s.cfg.ChainID)
}

// NewScanner builds a Scanner with its dependencies. The sink may be nil.
func NewScanner(cfg ScanConfig, source LogSource, handle *exchange.Exchange, store *state.Store, sink storage.OrderStorage, logger *zap.Logger) *Scanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scanner{
		cfg:        cfg,
		source:     source,
		exchange:   handle,
		store:      store,
		sink:       sink,
		logger:     logger,
		seen:       make(map[string]struct{}),
		checkpoint: NewCheckpointStore(cfg.CheckpointPath, cfg.CheckpointEnabled),
	}
}

// Run executes the scan loop.
func (s *Scanner) Run(ctx context.Context) error {
	if s.source == nil {
		return fmt.Errorf("log source is nil")
	}
	if s.exchange == nil {
		return fmt.Errorf("exchange handle is nil")
	}
	if s.store == nil {
		return fmt.Errorf("store is nil")
	}
	if s.cfg.WindowSize == 0 {
		return fmt.Errorf("window size must be greater than zero")
	}

	from := s.cfg.FromBlock
	to := s.cfg.ToBlock
	if to == 0 {
		latest, err := s.source.LatestBlockNumber(ctx)
		if err != nil {
			return fmt.Errorf("get latest block: %w", err)
		}
		to = latest
	}

	if s.checkpoint != nil {
		cp, ok, err := s.checkpoint.Load()
		if err != nil {
			return err
		}
		if !ok && s.mirror != nil {
			var block uint64
			block, ok, err = s.mirror.LoadScanState(ctx, s.stateName())
			if err != nil {
				return fmt.Errorf("load scan state: %w", err)
			}
			cp.LastScannedBlock = block
		}
		if ok && cp.LastScannedBlock >= from {
			from = cp.LastScannedBlock + 1
			s.logger.Info("resume from checkpoint", zap.Uint64("last_scanned", cp.LastScannedBlock), zap.Uint64("from", from))
		}
	}

	if from > to {
		s.logger.Info("nothing to scan", zap.Uint64("from", from), zap.Uint64("to", to))
		return nil
	}

	windows, err := SplitRange(from, to, s.cfg.WindowSize)
	if err != nil {
		return err
	}

	for _, window := range windows {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		s.logger.Info("scan window", zap.Uint64("from", window.From), zap.Uint64("to", window.To))

		if err := s.scanWindow(ctx, window); err != nil {
			return err
		}

		if s.checkpoint != nil {
			if err := s.checkpoint.Save(window.To); err != nil {
				return err
			}
		}
		if s.mirror != nil {
			if err := s.mirror.SaveScanState(ctx, s.stateName(), window.To); err != nil {
				return fmt.Errorf("save scan state: %w", err)
			}
		}
	}

	return nil
}

// scanWindow queries each event kind independently: cancelled, then
// filled, then placed, matching order-book reconstruction order.
func (s *Scanner) scanWindow(ctx context.Context, window BlockRange) error {
	ingestedAt := time.Now().UTC()

	cancelLogs, err := s.filterLogsWithRetry(ctx, window, exchange.EventCancel)
	if err != nil {
		return fmt.Errorf("filter cancel logs: %w", err)
	}
	cancelled := make([]model.OrderRecord, 0, len(cancelLogs))
	for _, log := range cancelLogs {
		if s.isDuplicate(log) {
			continue
		}
		event, err := s.exchange.DecodeOrderLog(exchange.EventCancel, log)
		if err != nil {
			return fmt.Errorf("decode cancel log %s:%d: %w", log.TxHash.Hex(), log.Index, err)
		}
		cancelled = append(cancelled, event.Record(s.cfg.ChainID, log, model.OrderCancelled, ingestedAt))
	}
	if len(cancelled) > 0 {
		s.store.Apply(state.OrdersLoaded{Status: model.OrderCancelled, Orders: cancelled})
		if s.sink != nil {
			if err := s.sink.PutOrderBatch(cancelled); err != nil {
				return fmt.Errorf("store cancelled orders: %w", err)
			}
		}
	}

	tradeLogs, err := s.filterLogsWithRetry(ctx, window, exchange.EventTrade)
	if err != nil {
		return fmt.Errorf("filter trade logs: %w", err)
	}
	trades := make([]model.TradeRecord, 0, len(tradeLogs))
	for _, log := range tradeLogs {
		if s.isDuplicate(log) {
			continue
		}
		event, err := s.exchange.DecodeTradeLog(log)
		if err != nil {
			return fmt.Errorf("decode trade log %s:%d: %w", log.TxHash.Hex(), log.Index, err)
		}
		trades = append(trades, event.Record(s.cfg.ChainID, log, ingestedAt))
	}
	if len(trades) > 0 {
		s.store.Apply(state.TradesLoaded{Trades: trades})
		if s.sink != nil {
			if err := s.sink.PutTradeBatch(trades); err != nil {
				return fmt.Errorf("store trades: %w", err)
			}
		}
	}

	orderLogs, err := s.filterLogsWithRetry(ctx, window, exchange.EventOrder)
	if err != nil {
		return fmt.Errorf("filter order logs: %w", err)
	}
	orders := make([]model.OrderRecord, 0, len(orderLogs))
	for _, log := range orderLogs {
		if s.isDuplicate(log) {
			continue
		}
		event, err := s.exchange.DecodeOrderLog(exchange.EventOrder, log)
		if err != nil {
			return fmt.Errorf("decode order log %s:%d: %w", log.TxHash.Hex(), log.Index, err)
		}
		orders = append(orders, event.Record(s.cfg.ChainID, log, model.OrderOpen, ingestedAt))
	}
	if len(orders) > 0 {
		s.store.Apply(state.OrdersLoaded{Status: model.OrderOpen, Orders: orders})
		if s.sink != nil {
			if err := s.sink.PutOrderBatch(orders); err != nil {
				return fmt.Errorf("store orders: %w", err)
			}
		}
	}

	s.logger.Info("window complete",
		zap.Uint64("from", window.From),
		zap.Uint64("to", window.To),
		zap.Int("orders", len(orders)),
		zap.Int("cancelled", len(cancelled)),
		zap.Int("trades", len(trades)),
	)

	return nil
}

func (s *Scanner) filterLogsWithRetry(ctx context.Context, window BlockRange, eventName string) ([]types.Log, error) {
	topic, err := s.exchange.EventTopic(eventName)
	if err != nil {
		return nil, err
	}

	var logs []types.Log
	err = withRetry(ctx, s.cfg.MaxRetries, s.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		logs, err = s.source.FilterLogs(ctx, window.From, window.To,
			[]common.Address{s.exchange.Address}, []common.Hash{topic})
		if err != nil {
			s.logger.Warn("filter logs failed",
				zap.Error(err),
				zap.String("event", eventName),
				zap.Uint64("from", window.From),
				zap.Uint64("to", window.To),
			)
		}
		return err
	})
	return logs, err
}

func (s *Scanner) isDuplicate(log types.Log) bool {
	id := fmt.Sprintf("%d:%s:%d", log.BlockNumber, log.TxHash.Hex(), log.Index)
	if _, ok := s.seen[id]; ok {
		return true
	}
	s.seen[id] = struct{}{}
	return false
}

