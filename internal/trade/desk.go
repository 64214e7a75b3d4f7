package trade

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"dexDesk/internal/exchange"
	"dexDesk/internal/state"
	"dexDesk/internal/units"
)

// TxSender signs, broadcasts and waits for one transaction to mine,
// returning its hash. Any error, from user-side rejection to an
// execution revert, surfaces the same way.
type TxSender interface {
	SendAndWait(ctx context.Context, to common.Address, calldata []byte) (common.Hash, error)
}

// Desk submits exchange operations. Each call runs one operation state
// machine to a terminal state; there is no retry and no reuse.
type Desk struct {
	logger   *zap.Logger
	store    *state.Store
	pair     exchange.Pair
	exchange *exchange.Exchange
	sender   TxSender
}

func NewDesk(pair exchange.Pair, handle *exchange.Exchange, sender TxSender, store *state.Store, logger *zap.Logger) *Desk {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Desk{
		logger:   logger,
		store:    store,
		pair:     pair,
		exchange: handle,
		sender:   sender,
	}
}

// Deposit approves the exchange for the amount and, only once the
// approval mined, deposits. An approve failure ends the operation with
// the deposit never submitted.
func (d *Desk) Deposit(ctx context.Context, token *exchange.Token, amount decimal.Decimal) error {
	op := newOperation(state.OpTransfer, d.store)
	op.start()

	wei, err := units.ToWei(amount)
	if err != nil {
		return op.fail(err)
	}

	approveData, err := token.ApproveCalldata(d.exchange.Address, wei)
	if err != nil {
		return op.fail(err)
	}
	if _, err := d.sender.SendAndWait(ctx, token.Address, approveData); err != nil {
		return op.fail(fmt.Errorf("approve: %w", err))
	}

	depositData, err := d.exchange.DepositCalldata(token.Address, wei)
	if err != nil {
		return op.fail(err)
	}
	txHash, err := d.sender.SendAndWait(ctx, d.exchange.Address, depositData)
	if err != nil {
		return op.fail(fmt.Errorf("deposit: %w", err))
	}

	d.logger.Info("deposit confirmed", zap.String("token", token.Symbol), zap.String("tx", txHash.Hex()))
	op.confirm(txHash)
	return nil
}

// Withdraw moves custodied tokens back to the wallet.
func (d *Desk) Withdraw(ctx context.Context, token *exchange.Token, amount decimal.Decimal) error {
	op := newOperation(state.OpTransfer, d.store)
	op.start()

	wei, err := units.ToWei(amount)
	if err != nil {
		return op.fail(err)
	}

	data, err := d.exchange.WithdrawCalldata(token.Address, wei)
	if err != nil {
		return op.fail(err)
	}
	txHash, err := d.sender.SendAndWait(ctx, d.exchange.Address, data)
	if err != nil {
		return op.fail(fmt.Errorf("withdraw: %w", err))
	}

	d.logger.Info("withdrawal confirmed", zap.String("token", token.Symbol), zap.String("tx", txHash.Hex()))
	op.confirm(txHash)
	return nil
}

// PlaceBuyOrder submits a makeOrder buying base with quote.
func (d *Desk) PlaceBuyOrder(ctx context.Context, amount, price decimal.Decimal) error {
	spec, err := BuildBuyOrder(d.pair, amount, price)
	return d.placeOrder(ctx, spec, err)
}

// PlaceSellOrder submits a makeOrder selling base for quote.
func (d *Desk) PlaceSellOrder(ctx context.Context, amount, price decimal.Decimal) error {
	spec, err := BuildSellOrder(d.pair, amount, price)
	return d.placeOrder(ctx, spec, err)
}

func (d *Desk) placeOrder(ctx context.Context, spec OrderSpec, buildErr error) error {
	op := newOperation(state.OpOrder, d.store)
	op.start()

	if buildErr != nil {
		return op.fail(buildErr)
	}

	data, err := d.exchange.MakeOrderCalldata(spec.TokenGet, spec.AmountGet, spec.TokenGive, spec.AmountGive)
	if err != nil {
		return op.fail(err)
	}
	txHash, err := d.sender.SendAndWait(ctx, d.exchange.Address, data)
	if err != nil {
		return op.fail(fmt.Errorf("make order: %w", err))
	}

	op.confirm(txHash)
	return nil
}

// CancelOrder cancels one of the session account's open orders.
func (d *Desk) CancelOrder(ctx context.Context, id *big.Int) error {
	op := newOperation(state.OpCancel, d.store)
	op.start()

	data, err := d.exchange.CancelOrderCalldata(id)
	if err != nil {
		return op.fail(err)
	}
	txHash, err := d.sender.SendAndWait(ctx, d.exchange.Address, data)
	if err != nil {
		return op.fail(fmt.Errorf("cancel order %s: %w", id, err))
	}

	op.confirm(txHash)
	return nil
}

// FillOrder takes the other side of an open order.
func (d *Desk) FillOrder(ctx context.Context, id *big.Int) error {
	op := newOperation(state.OpFill, d.store)
	op.start()

	data, err := d.exchange.FillOrderCalldata(id)
	if err != nil {
		return op.fail(err)
	}
	txHash, err := d.sender.SendAndWait(ctx, d.exchange.Address, data)
	if err != nil {
		return op.fail(fmt.Errorf("fill order %s: %w", id, err))
	}

	op.confirm(txHash)
	return nil
}
