package model

// TransferDirection distinguishes Deposit and Withdrawal events.
type TransferDirection string

const (
	TransferDeposit    TransferDirection = "deposit"
	TransferWithdrawal TransferDirection = "withdrawal"
)

// TransferRecord is the normalized representation of a Deposit or
// Withdrawal event. Balance is the custodied balance after the transfer,
// as reported by the contract.
type TransferRecord struct {
	ChainID     uint64            `json:"chain_id"`
	BlockNumber uint64            `json:"block_number"`
	TxHash      string            `json:"tx_hash"`
	LogIndex    uint64            `json:"log_index"`
	Direction   TransferDirection `json:"direction"`
	Token       string            `json:"token"`
	User        string            `json:"user"`
	Amount      string            `json:"amount"`
	Balance     string            `json:"balance"`
}
