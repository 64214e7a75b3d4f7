package state

import (
	"github.com/ethereum/go-ethereum/common"

	"dexDesk/internal/model"
)

// Update is a closed set of state-change signals. Every mutation of the
// store goes through exactly one of these variants.
type Update interface {
	isUpdate()
}

// OpKind names a user-initiated operation tracked by the store.
type OpKind string

const (
	OpTransfer OpKind = "transfer"
	OpOrder    OpKind = "order"
	OpCancel   OpKind = "cancel"
	OpFill     OpKind = "fill"
)

// OpStatus is the lifecycle state of an operation.
type OpStatus string

const (
	StatusIdle      OpStatus = "idle"
	StatusRequested OpStatus = "requested"
	StatusConfirmed OpStatus = "confirmed"
	StatusFailed    OpStatus = "failed"
)

// NetworkLoaded reports the active chain and its resolved configuration.
type NetworkLoaded struct {
	ChainID  uint64
	Name     string
	Explorer string
}

// AccountLoaded reports the active wallet address. Applying it starts a
// new balance generation; balance snapshots from earlier generations are
// discarded.
type AccountLoaded struct {
	Address common.Address
}

// NativeBalanceLoaded reports the account's native-currency balance as a
// decimal string.
type NativeBalanceLoaded struct {
	Account common.Address
	Balance string
}

// PairLoaded reports both traded token handles.
type PairLoaded struct {
	BaseAddress  common.Address
	BaseSymbol   string
	QuoteAddress common.Address
	QuoteSymbol  string
}

// ExchangeLoaded reports the bound exchange contract.
type ExchangeLoaded struct {
	Address common.Address
}

// Balances is one consistent snapshot of the four tracked balances,
// decimal-formatted.
type Balances struct {
	Account       common.Address
	Generation    uint64
	BaseWallet    string
	BaseExchange  string
	QuoteWallet   string
	QuoteExchange string
}

// BalancesLoaded publishes a balance snapshot fetched for a generation.
type BalancesLoaded struct {
	Balances Balances
}

// OrdersLoaded publishes a batch of historical order records of one
// status, in emission order.
type OrdersLoaded struct {
	Status model.OrderStatus
	Orders []model.OrderRecord
}

// TradesLoaded publishes a batch of historical trade records in
// emission order.
type TradesLoaded struct {
	Trades []model.TradeRecord
}

// OrderOpened reports a live Order event.
type OrderOpened struct {
	Order model.OrderRecord
}

// OrderCancelled reports a live Cancel event.
type OrderCancelled struct {
	Order model.OrderRecord
}

// OrderFilled reports a live Trade event.
type OrderFilled struct {
	Trade model.TradeRecord
}

// TransferSucceeded coalesces Deposit and Withdrawal events. Consumers
// must re-fetch balances rather than apply the delta locally.
type TransferSucceeded struct {
	Transfer model.TransferRecord
}

// OpStarted marks an operation as requested.
type OpStarted struct {
	Kind OpKind
}

// OpConfirmed marks an operation as mined.
type OpConfirmed struct {
	Kind   OpKind
	TxHash string
}

// OpFailed marks an operation as failed, keeping the error.
type OpFailed struct {
	Kind OpKind
	Err  error
}

func (NetworkLoaded) isUpdate()       {}
func (AccountLoaded) isUpdate()       {}
func (NativeBalanceLoaded) isUpdate() {}
func (PairLoaded) isUpdate()          {}
func (ExchangeLoaded) isUpdate()      {}
func (BalancesLoaded) isUpdate()      {}
func (OrdersLoaded) isUpdate()        {}
func (TradesLoaded) isUpdate()        {}
func (OrderOpened) isUpdate()         {}
func (OrderCancelled) isUpdate()      {}
func (OrderFilled) isUpdate()         {}
func (TransferSucceeded) isUpdate()   {}
func (OpStarted) isUpdate()           {}
func (OpConfirmed) isUpdate()         {}
func (OpFailed) isUpdate()            {}
