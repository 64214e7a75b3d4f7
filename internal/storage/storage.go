package storage

import "dexDesk/internal/model"

// OrderStorage defines a sink for ingested order history.
type OrderStorage interface {
	PutOrderBatch(orders []model.OrderRecord) error
	PutTradeBatch(trades []model.TradeRecord) error
}
