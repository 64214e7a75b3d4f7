package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"dexDesk/internal/chain"
	"dexDesk/internal/config"
	"dexDesk/internal/ingest"
	"dexDesk/internal/session"
	"dexDesk/internal/state"
	"dexDesk/internal/storage"
	"dexDesk/internal/storage/postgres"
	"dexDesk/internal/watch"
)

func main() {
	root := &cobra.Command{
		Use:          "dexdesk",
		Short:        "Order-book exchange client",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")
	root.PersistentFlags().String("rpc", "", "chain RPC URL")
	root.PersistentFlags().String("private-key", "", "hex signing key (prefer DEXDESK_PRIVATE_KEY)")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")

	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Replay historical order events into storage",
		RunE:  runSync,
	}
	addScanFlags(syncCmd)
	root.AddCommand(syncCmd)

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Sync order history, then follow live events",
		RunE:  runWatch,
	}
	addScanFlags(watchCmd)
	root.AddCommand(watchCmd)

	root.AddCommand(newBalancesCmd())
	root.AddCommand(newDepositCmd())
	root.AddCommand(newWithdrawCmd())
	root.AddCommand(newOrderCmd())
	root.AddCommand(newCancelCmd())
	root.AddCommand(newFillCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addScanFlags(cmd *cobra.Command) {
	cmd.Flags().Uint64("from", 0, "start block (inclusive)")
	cmd.Flags().Uint64("window-size", 5000, "blocks per scan window")
	cmd.Flags().String("checkpoint", "./data/checkpoint.json", "checkpoint file path")
	cmd.Flags().Bool("checkpoint-enabled", true, "enable checkpointing")
	cmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	cmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	cmd.Flags().String("out", "./data/orders.jsonl", "output JSONL path")
	cmd.Flags().String("pg-dsn", "", "optional Postgres DSN")
}

func runSync(cmd *cobra.Command, _ []string) error {
	app, ctx, cleanup, err := bootstrap(cmd, false)
	if err != nil {
		return err
	}
	defer cleanup()

	scanner, closeSink, err := newScanner(ctx, app)
	if err != nil {
		return err
	}
	defer closeSink()

	return scanner.Run(ctx)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	app, ctx, cleanup, err := bootstrap(cmd, false)
	if err != nil {
		return err
	}
	defer cleanup()

	scanner, closeSink, err := newScanner(ctx, app)
	if err != nil {
		return err
	}
	defer closeSink()

	if err := scanner.Run(ctx); err != nil {
		return err
	}

	watcher := watch.NewWatcher(
		app.client,
		app.sess.Exchange(),
		app.store,
		app.sess.ChainID().Uint64(),
		app.cfg.RetryBackoff,
		app.logger,
	)

	go printUpdates(ctx, app.store)

	if app.sess.CanSign() {
		go session.SyncOnTransfers(ctx, app.store.Subscribe(), app.sess.LoadBalances, app.logger)
	}

	app.logger.Info("following live events")
	if err := watcher.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// printUpdates renders live store updates for the terminal.
func printUpdates(ctx context.Context, store *state.Store) {
	updates := store.Subscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case update := <-updates:
			switch u := update.(type) {
			case state.OrderOpened:
				fmt.Printf("order %s placed by %s\n", u.Order.OrderID, u.Order.User)
			case state.OrderCancelled:
				fmt.Printf("order %s cancelled\n", u.Order.OrderID)
			case state.OrderFilled:
				fmt.Printf("order %s filled by %s\n", u.Trade.OrderID, u.Trade.User)
			case state.TransferSucceeded:
				fmt.Printf("%s of %s by %s\n", u.Transfer.Direction, u.Transfer.Amount, u.Transfer.User)
			}
		}
	}
}

// app holds the wiring shared by every command.
type app struct {
	cfg    config.Config
	logger *zap.Logger
	client *chain.Client
	store  *state.Store
	sess   *session.Session
}

// bootstrap loads config, connects, and builds the session. Commands
// that sign transactions set needKey.
func bootstrap(cmd *cobra.Command, needKey bool) (*app, context.Context, func(), error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, nil, nil, err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, nil, nil, err
	}

	if cfg.RPCURL == "" {
		return nil, nil, nil, fmt.Errorf("rpc url is required")
	}
	if needKey && cfg.PrivateKey == "" {
		return nil, nil, nil, fmt.Errorf("private key is required for this command")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	client, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		stop()
		return nil, nil, nil, fmt.Errorf("connect rpc: %w", err)
	}

	store := state.NewStore(logger)
	go store.Run(ctx)

	sess, err := session.Bootstrap(ctx, cfg, client, store, logger)
	if err != nil {
		client.Close()
		stop()
		return nil, nil, nil, err
	}

	cleanup := func() {
		client.Close()
		stop()
		logger.Sync()
	}

	application := &app{
		cfg:    cfg,
		logger: logger,
		client: client,
		store:  store,
		sess:   sess,
	}
	return application, ctx, cleanup, nil
}

func newScanner(ctx context.Context, application *app) (*ingest.Scanner, func(), error) {
	var sink storage.OrderStorage
	var mirror ingest.StateMirror
	closeSink := func() {}

	if application.cfg.PgDSN != "" {
		pgStore, err := postgres.NewStore(ctx, application.cfg.PgDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		sink = &postgres.Sink{Ctx: ctx, Store: pgStore}
		mirror = pgStore
		closeSink = pgStore.Close
	} else if application.cfg.Out != "" {
		sink = storage.NewJsonlStorage(application.cfg.Out)
	}

	scanner := ingest.NewScanner(ingest.ScanConfig{
		ChainID:           application.sess.ChainID().Uint64(),
		FromBlock:         application.cfg.FromBlock,
		WindowSize:        application.cfg.WindowSize,
		CheckpointPath:    application.cfg.Checkpoint,
		CheckpointEnabled: application.cfg.CheckpointEnabled,
		MaxRetries:        application.cfg.MaxRetries,
		RetryBackoff:      application.cfg.RetryBackoff,
	}, application.client, application.sess.Exchange(), application.store, sink, application.logger)

	if mirror != nil {
		scanner.SetStateMirror(mirror)
	}

	return scanner, closeSink, nil
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
