package trade

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"dexDesk/internal/exchange"
	"dexDesk/internal/units"
)

// OrderSpec is a fully-constructed makeOrder argument set.
type OrderSpec struct {
	TokenGet   common.Address
	AmountGet  *big.Int
	TokenGive  common.Address
	AmountGive *big.Int
}

// BuildBuyOrder constructs a buy of `amount` base tokens at `price`
// quote tokens each: get the base amount, give amount times price in
// quote. Which side multiplies by price is a contract-level convention.
func BuildBuyOrder(pair exchange.Pair, amount, price decimal.Decimal) (OrderSpec, error) {
	if err := validateOrderInputs(amount, price); err != nil {
		return OrderSpec{}, err
	}

	amountGet, err := units.ToWei(amount)
	if err != nil {
		return OrderSpec{}, fmt.Errorf("amount: %w", err)
	}
	amountGive, err := units.ToWei(amount.Mul(price))
	if err != nil {
		return OrderSpec{}, fmt.Errorf("amount times price: %w", err)
	}

	return OrderSpec{
		TokenGet:   pair.Base.Address,
		AmountGet:  amountGet,
		TokenGive:  pair.Quote.Address,
		AmountGive: amountGive,
	}, nil
}

// BuildSellOrder constructs a sell of `amount` base tokens at `price`
// quote tokens each: get amount times price in quote, give the base
// amount.
func BuildSellOrder(pair exchange.Pair, amount, price decimal.Decimal) (OrderSpec, error) {
	if err := validateOrderInputs(amount, price); err != nil {
		return OrderSpec{}, err
	}

	amountGet, err := units.ToWei(amount.Mul(price))
	if err != nil {
		return OrderSpec{}, fmt.Errorf("amount times price: %w", err)
	}
	amountGive, err := units.ToWei(amount)
	if err != nil {
		return OrderSpec{}, fmt.Errorf("amount: %w", err)
	}

	return OrderSpec{
		TokenGet:   pair.Quote.Address,
		AmountGet:  amountGet,
		TokenGive:  pair.Base.Address,
		AmountGive: amountGive,
	}, nil
}

func validateOrderInputs(amount, price decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("amount must be positive: %s", amount)
	}
	if !price.IsPositive() {
		return fmt.Errorf("price must be positive: %s", price)
	}
	return nil
}
