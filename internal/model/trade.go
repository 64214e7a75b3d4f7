package model

// TradeRecord is the normalized representation of an exchange Trade
// event. Creator is the maker whose order was filled; User is the taker.
type TradeRecord struct {
	ChainID     uint64 `json:"chain_id"`
	BlockNumber uint64 `json:"block_number"`
	TxHash      string `json:"tx_hash"`
	LogIndex    uint64 `json:"log_index"`
	OrderID     string `json:"order_id"`
	User        string `json:"user"`
	TokenGet    string `json:"token_get"`
	AmountGet   string `json:"amount_get"`
	TokenGive   string `json:"token_give"`
	AmountGive  string `json:"amount_give"`
	Creator     string `json:"creator"`
	Timestamp   uint64 `json:"timestamp"`
	IngestedAt  string `json:"ingested_at"`
}
