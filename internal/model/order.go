package model

// OrderStatus tags which event stream produced an order record.
type OrderStatus string

const (
	OrderOpen      OrderStatus = "open"
	OrderFilled    OrderStatus = "filled"
	OrderCancelled OrderStatus = "cancelled"
)

// OrderRecord is the normalized representation of an exchange Order or
// Cancel event for storage.
type OrderRecord struct {
	ChainID     uint64      `json:"chain_id"`
	BlockNumber uint64      `json:"block_number"`
	TxHash      string      `json:"tx_hash"`
	LogIndex    uint64      `json:"log_index"`
	OrderID     string      `json:"order_id"`
	User        string      `json:"user"`
	TokenGet    string      `json:"token_get"`
	AmountGet   string      `json:"amount_get"`
	TokenGive   string      `json:"token_give"`
	AmountGive  string      `json:"amount_give"`
	Timestamp   uint64      `json:"timestamp"`
	Status      OrderStatus `json:"status"`
	IngestedAt  string      `json:"ingested_at"`
}
