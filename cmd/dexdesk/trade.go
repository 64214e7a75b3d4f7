package main

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"dexDesk/internal/exchange"
	"dexDesk/internal/session"
	"dexDesk/internal/state"
	"dexDesk/internal/trade"
)

func newBalancesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balances",
		Short: "Show wallet and exchange balances for the signing account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, ctx, cleanup, err := bootstrap(cmd, true)
			if err != nil {
				return err
			}
			defer cleanup()

			snapshot, err := refreshBalances(ctx, app)
			if err != nil {
				return err
			}

			fmt.Printf("account: %s\n", snapshot.Account.Hex())
			fmt.Printf("native:  %s\n", snapshot.NativeBalance)
			printBalances(snapshot)
			return nil
		},
	}
}

func newDepositCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deposit",
		Short: "Approve and deposit tokens into the exchange",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTransfer(cmd, true)
		},
	}
	addTransferFlags(cmd)
	return cmd
}

func newWithdrawCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "withdraw",
		Short: "Withdraw custodied tokens back to the wallet",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTransfer(cmd, false)
		},
	}
	addTransferFlags(cmd)
	return cmd
}

func addTransferFlags(cmd *cobra.Command) {
	cmd.Flags().String("token", "base", "which token (base, quote, or its symbol)")
	cmd.Flags().String("amount", "", "token amount (decimal)")
}

func runTransfer(cmd *cobra.Command, deposit bool) error {
	app, ctx, cleanup, err := bootstrap(cmd, true)
	if err != nil {
		return err
	}
	defer cleanup()

	tokenName, _ := cmd.Flags().GetString("token")
	token, err := pickToken(app.sess, tokenName)
	if err != nil {
		return err
	}

	amount, err := parseAmountFlag(cmd, "amount")
	if err != nil {
		return err
	}

	desk := newDesk(app)
	opCtx, cancel := context.WithTimeout(ctx, app.cfg.OpTimeout)
	defer cancel()

	if deposit {
		if err := desk.Deposit(opCtx, token, amount); err != nil {
			return err
		}
		fmt.Printf("deposited %s %s\n", amount, token.Symbol)
	} else {
		if err := desk.Withdraw(opCtx, token, amount); err != nil {
			return err
		}
		fmt.Printf("withdrew %s %s\n", amount, token.Symbol)
	}

	// The transfer moved funds between wallet and exchange custody;
	// re-fetch both sides rather than trusting local arithmetic.
	snapshot, err := refreshBalances(opCtx, app)
	if err != nil {
		return err
	}
	printBalances(snapshot)
	return nil
}

// refreshBalances runs a balance fetch and waits for the store to apply
// it, so the returned snapshot reflects the fetch.
func refreshBalances(ctx context.Context, application *app) (state.Snapshot, error) {
	sub := application.store.Subscribe()
	if err := application.sess.LoadBalances(ctx); err != nil {
		return state.Snapshot{}, err
	}
	for {
		select {
		case <-ctx.Done():
			return state.Snapshot{}, ctx.Err()
		case update := <-sub:
			if _, ok := update.(state.BalancesLoaded); ok {
				return application.store.Snapshot(), nil
			}
		}
	}
}

func printBalances(snapshot state.Snapshot) {
	fmt.Printf("%-6s wallet %s  exchange %s\n", snapshot.BaseSymbol, snapshot.Balances.BaseWallet, snapshot.Balances.BaseExchange)
	fmt.Printf("%-6s wallet %s  exchange %s\n", snapshot.QuoteSymbol, snapshot.Balances.QuoteWallet, snapshot.Balances.QuoteExchange)
}

func newOrderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "order",
		Short: "Place a buy or sell order",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, ctx, cleanup, err := bootstrap(cmd, true)
			if err != nil {
				return err
			}
			defer cleanup()

			side, _ := cmd.Flags().GetString("side")
			amount, err := parseAmountFlag(cmd, "amount")
			if err != nil {
				return err
			}
			price, err := parseAmountFlag(cmd, "price")
			if err != nil {
				return err
			}

			desk := newDesk(app)
			opCtx, cancel := context.WithTimeout(ctx, app.cfg.OpTimeout)
			defer cancel()

			switch strings.ToLower(side) {
			case "buy":
				err = desk.PlaceBuyOrder(opCtx, amount, price)
			case "sell":
				err = desk.PlaceSellOrder(opCtx, amount, price)
			default:
				return fmt.Errorf("side must be buy or sell: %s", side)
			}
			if err != nil {
				return err
			}

			fmt.Printf("%s order placed: %s @ %s\n", side, amount, price)
			return nil
		},
	}
	cmd.Flags().String("side", "", "buy or sell")
	cmd.Flags().String("amount", "", "base token amount (decimal)")
	cmd.Flags().String("price", "", "price in quote tokens per base token")
	return cmd
}

func newCancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <order-id>",
		Short: "Cancel one of your open orders",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOrderByID(cmd, args[0], func(desk *trade.Desk, ctx context.Context, id *big.Int) error {
				return desk.CancelOrder(ctx, id)
			})
		},
	}
}

func newFillCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fill <order-id>",
		Short: "Fill an open order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOrderByID(cmd, args[0], func(desk *trade.Desk, ctx context.Context, id *big.Int) error {
				return desk.FillOrder(ctx, id)
			})
		},
	}
}

func runOrderByID(cmd *cobra.Command, rawID string, action func(*trade.Desk, context.Context, *big.Int) error) error {
	id, ok := new(big.Int).SetString(rawID, 10)
	if !ok {
		return fmt.Errorf("invalid order id: %s", rawID)
	}

	app, ctx, cleanup, err := bootstrap(cmd, true)
	if err != nil {
		return err
	}
	defer cleanup()

	desk := newDesk(app)
	opCtx, cancel := context.WithTimeout(ctx, app.cfg.OpTimeout)
	defer cancel()

	if err := action(desk, opCtx, id); err != nil {
		return err
	}

	fmt.Printf("order %s: done\n", rawID)
	return nil
}

func newDesk(application *app) *trade.Desk {
	sender := trade.NewChainSender(application.client, application.sess)
	return trade.NewDesk(application.sess.Pair(), application.sess.Exchange(), sender, application.store, application.logger)
}

func pickToken(sess *session.Session, name string) (*exchange.Token, error) {
	pair := sess.Pair()
	switch {
	case strings.EqualFold(name, "base"), strings.EqualFold(name, pair.Base.Symbol):
		return pair.Base, nil
	case strings.EqualFold(name, "quote"), strings.EqualFold(name, pair.Quote.Symbol):
		return pair.Quote, nil
	default:
		return nil, fmt.Errorf("unknown token: %s", name)
	}
}

func parseAmountFlag(cmd *cobra.Command, flag string) (decimal.Decimal, error) {
	raw, _ := cmd.Flags().GetString(flag)
	if raw == "" {
		return decimal.Decimal{}, fmt.Errorf("%s is required", flag)
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse %s: %w", flag, err)
	}
	return amount, nil
}
