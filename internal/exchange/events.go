package exchange

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"dexDesk/internal/model"
)

// Event names emitted by the exchange contract.
const (
	EventOrder      = "Order"
	EventCancel     = "Cancel"
	EventTrade      = "Trade"
	EventDeposit    = "Deposit"
	EventWithdrawal = "Withdrawal"
)

// OrderEvent is the decoded payload of an Order or Cancel log.
type OrderEvent struct {
	ID         *big.Int
	User       common.Address
	TokenGet   common.Address
	AmountGet  *big.Int
	TokenGive  common.Address
	AmountGive *big.Int
	Timestamp  *big.Int
}

// TradeEvent is the decoded payload of a Trade log. User is the taker,
// Creator the maker of the filled order.
type TradeEvent struct {
	OrderEvent
	Creator common.Address
}

// TransferEvent is the decoded payload of a Deposit or Withdrawal log.
type TransferEvent struct {
	Direction model.TransferDirection
	Token     common.Address
	User      common.Address
	Amount    *big.Int
	Balance   *big.Int
}

// DecodeOrderLog decodes an Order or Cancel log, which share a payload.
func (e *Exchange) DecodeOrderLog(name string, log types.Log) (OrderEvent, error) {
	if name != EventOrder && name != EventCancel {
		return OrderEvent{}, fmt.Errorf("not an order event: %s", name)
	}
	values, err := e.unpackEvent(name, log)
	if err != nil {
		return OrderEvent{}, err
	}
	return orderEventFromValues(values)
}

// DecodeTradeLog decodes a Trade log.
func (e *Exchange) DecodeTradeLog(log types.Log) (TradeEvent, error) {
	values, err := e.unpackEvent(EventTrade, log)
	if err != nil {
		return TradeEvent{}, err
	}
	if len(values) != 8 {
		return TradeEvent{}, fmt.Errorf("trade event: expected 8 values, got %d", len(values))
	}

	order, err := orderEventFromValues(values[:6])
	if err != nil {
		return TradeEvent{}, err
	}
	creator, err := asAddress(values[6])
	if err != nil {
		return TradeEvent{}, fmt.Errorf("creator: %w", err)
	}
	timestamp, err := asBigInt(values[7])
	if err != nil {
		return TradeEvent{}, fmt.Errorf("timestamp: %w", err)
	}

	order.Timestamp = timestamp
	return TradeEvent{OrderEvent: order, Creator: creator}, nil
}

// DecodeTransferLog decodes a Deposit or Withdrawal log.
func (e *Exchange) DecodeTransferLog(name string, log types.Log) (TransferEvent, error) {
	var direction model.TransferDirection
	switch name {
	case EventDeposit:
		direction = model.TransferDeposit
	case EventWithdrawal:
		direction = model.TransferWithdrawal
	default:
		return TransferEvent{}, fmt.Errorf("not a transfer event: %s", name)
	}

	values, err := e.unpackEvent(name, log)
	if err != nil {
		return TransferEvent{}, err
	}
	if len(values) != 4 {
		return TransferEvent{}, fmt.Errorf("%s event: expected 4 values, got %d", name, len(values))
	}

	token, err := asAddress(values[0])
	if err != nil {
		return TransferEvent{}, fmt.Errorf("token: %w", err)
	}
	user, err := asAddress(values[1])
	if err != nil {
		return TransferEvent{}, fmt.Errorf("user: %w", err)
	}
	amount, err := asBigInt(values[2])
	if err != nil {
		return TransferEvent{}, fmt.Errorf("amount: %w", err)
	}
	balance, err := asBigInt(values[3])
	if err != nil {
		return TransferEvent{}, fmt.Errorf("balance: %w", err)
	}

	return TransferEvent{
		Direction: direction,
		Token:     token,
		User:      user,
		Amount:    amount,
		Balance:   balance,
	}, nil
}

// Record normalizes a decoded order event for storage and the store.
func (ev OrderEvent) Record(chainID uint64, log types.Log, status model.OrderStatus, ingestedAt time.Time) model.OrderRecord {
	return model.OrderRecord{
		ChainID:     chainID,
		BlockNumber: log.BlockNumber,
		TxHash:      log.TxHash.Hex(),
		LogIndex:    uint64(log.Index),
		OrderID:     ev.ID.String(),
		User:        ev.User.Hex(),
		TokenGet:    ev.TokenGet.Hex(),
		AmountGet:   ev.AmountGet.String(),
		TokenGive:   ev.TokenGive.Hex(),
		AmountGive:  ev.AmountGive.String(),
		Timestamp:   ev.Timestamp.Uint64(),
		Status:      status,
		IngestedAt:  ingestedAt.Format(time.RFC3339Nano),
	}
}

// Record normalizes a decoded trade event.
func (ev TradeEvent) Record(chainID uint64, log types.Log, ingestedAt time.Time) model.TradeRecord {
	return model.TradeRecord{
		ChainID:     chainID,
		BlockNumber: log.BlockNumber,
		TxHash:      log.TxHash.Hex(),
		LogIndex:    uint64(log.Index),
		OrderID:     ev.ID.String(),
		User:        ev.User.Hex(),
		TokenGet:    ev.TokenGet.Hex(),
		AmountGet:   ev.AmountGet.String(),
		TokenGive:   ev.TokenGive.Hex(),
		AmountGive:  ev.AmountGive.String(),
		Creator:     ev.Creator.Hex(),
		Timestamp:   ev.Timestamp.Uint64(),
		IngestedAt:  ingestedAt.Format(time.RFC3339Nano),
	}
}

// Record normalizes a decoded transfer event.
func (ev TransferEvent) Record(chainID uint64, log types.Log) model.TransferRecord {
	return model.TransferRecord{
		ChainID:     chainID,
		BlockNumber: log.BlockNumber,
		TxHash:      log.TxHash.Hex(),
		LogIndex:    uint64(log.Index),
		Direction:   ev.Direction,
		Token:       ev.Token.Hex(),
		User:        ev.User.Hex(),
		Amount:      ev.Amount.String(),
		Balance:     ev.Balance.String(),
	}
}

func (e *Exchange) unpackEvent(name string, log types.Log) ([]interface{}, error) {
	event, ok := e.abi.Events[name]
	if !ok {
		return nil, fmt.Errorf("unknown event: %s", name)
	}
	if len(log.Topics) == 0 || log.Topics[0] != event.ID {
		return nil, fmt.Errorf("topic0 mismatch for %s event", name)
	}
	values, err := event.Inputs.Unpack(log.Data)
	if err != nil {
		return nil, fmt.Errorf("unpack %s event: %w", name, err)
	}
	return values, nil
}

func orderEventFromValues(values []interface{}) (OrderEvent, error) {
	if len(values) < 6 {
		return OrderEvent{}, fmt.Errorf("order event: expected at least 6 values, got %d", len(values))
	}

	id, err := asBigInt(values[0])
	if err != nil {
		return OrderEvent{}, fmt.Errorf("id: %w", err)
	}
	user, err := asAddress(values[1])
	if err != nil {
		return OrderEvent{}, fmt.Errorf("user: %w", err)
	}
	tokenGet, err := asAddress(values[2])
	if err != nil {
		return OrderEvent{}, fmt.Errorf("tokenGet: %w", err)
	}
	amountGet, err := asBigInt(values[3])
	if err != nil {
		return OrderEvent{}, fmt.Errorf("amountGet: %w", err)
	}
	tokenGive, err := asAddress(values[4])
	if err != nil {
		return OrderEvent{}, fmt.Errorf("tokenGive: %w", err)
	}
	amountGive, err := asBigInt(values[5])
	if err != nil {
		return OrderEvent{}, fmt.Errorf("amountGive: %w", err)
	}

	event := OrderEvent{
		ID:         id,
		User:       user,
		TokenGet:   tokenGet,
		AmountGet:  amountGet,
		TokenGive:  tokenGive,
		AmountGive: amountGive,
	}

	if len(values) >= 7 {
		timestamp, err := asBigInt(values[6])
		if err != nil {
			return OrderEvent{}, fmt.Errorf("timestamp: %w", err)
		}
		event.Timestamp = timestamp
	}

	return event, nil
}
