package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"dexDesk/internal/model"
)

// Store provides Postgres persistence for order history.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// UpsertOrders inserts order records, updating status on conflict. A
// Cancel row arriving after its Order row reclassifies it.
func (s *Store) UpsertOrders(ctx context.Context, orders []model.OrderRecord) error {
	if len(orders) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, order := range orders {
		batch.Queue(`
			INSERT INTO orders (
				chain_id, order_id, block_number, tx_hash, log_index,
				user_address, token_get, amount_get, token_give, amount_give,
				order_ts, status, created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,now(),now())
			ON CONFLICT (chain_id, order_id)
			DO UPDATE SET
				status = EXCLUDED.status,
				updated_at = now()
		`,
			int64(order.ChainID),
			order.OrderID,
			int64(order.BlockNumber),
			order.TxHash,
			int64(order.LogIndex),
			order.User,
			order.TokenGet,
			order.AmountGet,
			order.TokenGive,
			order.AmountGive,
			int64(order.Timestamp),
			string(order.Status),
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range orders {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// InsertTrades inserts trade records, skipping duplicates.
func (s *Store) InsertTrades(ctx context.Context, trades []model.TradeRecord) error {
	if len(trades) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, trade := range trades {
		batch.Queue(`
			INSERT INTO trades (
				chain_id, order_id, block_number, tx_hash, log_index,
				user_address, token_get, amount_get, token_give, amount_give,
				creator, trade_ts, created_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,now())
			ON CONFLICT (chain_id, tx_hash, log_index) DO NOTHING
		`,
			int64(trade.ChainID),
			trade.OrderID,
			int64(trade.BlockNumber),
			trade.TxHash,
			int64(trade.LogIndex),
			trade.User,
			trade.TokenGet,
			trade.AmountGet,
			trade.TokenGive,
			trade.AmountGive,
			trade.Creator,
			int64(trade.Timestamp),
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range trades {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// LoadScanState returns last_scanned_block for a name.
func (s *Store) LoadScanState(ctx context.Context, name string) (uint64, bool, error) {
	if name == "" {
		return 0, false, fmt.Errorf("state name required")
	}
	var block uint64
	row := s.pool.QueryRow(ctx, `SELECT last_scanned_block FROM scan_state WHERE name=$1`, name)
	if err := row.Scan(&block); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return block, true, nil
}

// SaveScanState upserts last_scanned_block for a name.
func (s *Store) SaveScanState(ctx context.Context, name string, block uint64) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO scan_state (name, last_scanned_block, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name)
		DO UPDATE SET last_scanned_block = EXCLUDED.last_scanned_block, updated_at = now()
	`, name, int64(block))
	return err
}

// Sink adapts the store to the batch sink interface with a fixed context.
type Sink struct {
	Ctx   context.Context
	Store *Store
}

func (s *Sink) PutOrderBatch(orders []model.OrderRecord) error {
	return s.Store.UpsertOrders(s.Ctx, orders)
}

func (s *Sink) PutTradeBatch(trades []model.TradeRecord) error {
	return s.Store.InsertTrades(s.Ctx, trades)
}
