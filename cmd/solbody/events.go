package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/solbody-protocol/solbody-protocol/internal/chain"
	"github.com/solbody-protocol/solbody-protocol/internal/config"
	"github.com/solbody-protocol/solbody-protocol/internal/events"
	"github.com/solbody-protocol/solbody-protocol/internal/pool"
	"github.com/solbody-protocol/solbody-protocol/internal/storage"
	"github.com/solbody-protocol/solbody-protocol/internal/storage/postgres"
)

func newEventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Fetch and classify pool transaction history",
		Long: "Fetches swap, join and exit events for the given pools (or every " +
			"registered pool), decodes them into typed records, and writes them " +
			"to a JSONL file and optionally Postgres.",
		RunE: runEvents,
	}

	cmd.Flags().String("network", "development", "network profile (mainnet, ropsten, rinkeby, polygon, development)")
	cmd.Flags().String("node-uri", "", "JSON-RPC endpoint, overrides the network profile")
	cmd.Flags().StringSlice("pool", nil, "pool addresses (comma-separated); empty means all registered pools")
	cmd.Flags().String("account", "", "restrict to events by this caller address")
	cmd.Flags().Uint64("start-block", 0, "first block to scan, overrides the network profile")
	cmd.Flags().String("out", "./data/records.jsonl", "output JSONL path")
	cmd.Flags().String("pg-dsn", "", "Postgres DSN, enables database persistence")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	return cmd
}

func runEvents(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.NodeURI == "" {
		return fmt.Errorf("node uri is required")
	}
	if cfg.Factory == "" {
		return fmt.Errorf("factory address is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := chain.NewClient(ctx, cfg.NodeURI, chain.ClientOptions{
		GasFeeMultiplier: cfg.GasFeeMultiplier,
	})
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer client.Close()

	pools, err := pool.New(client, client, logger, pool.Config{
		BaseToken:  common.HexToAddress(cfg.BaseToken),
		Factory:    common.HexToAddress(cfg.Factory),
		StartBlock: cfg.StartBlock,
	})
	if err != nil {
		return err
	}

	fetcher, err := events.NewFetcher(client, logger, events.Config{
		Factory:    common.HexToAddress(cfg.Factory),
		StartBlock: cfg.StartBlock,
	})
	if err != nil {
		return err
	}

	targets, err := targetPools(ctx, cmd, pools)
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		logger.Info("no pools to scan")
		return nil
	}

	var account *common.Address
	if raw, _ := cmd.Flags().GetString("account"); raw != "" {
		addr := common.HexToAddress(raw)
		account = &addr
	}

	logger.Info("events start",
		zap.String("network", cfg.Network),
		zap.Int("pools", len(targets)),
		zap.Uint64("start_block", cfg.StartBlock))

	records, err := fetcher.PoolsLogs(ctx, targets, account)
	if err != nil {
		return err
	}

	// Resolve each pool's data token once and stamp it onto its records.
	dataTokens, err := chain.Gather(ctx, targets, func(ctx context.Context, p common.Address) (string, error) {
		token, err := pools.DataToken(ctx, p)
		if err != nil {
			return "", err
		}
		return token.Hex(), nil
	})
	if err != nil {
		return fmt.Errorf("resolve data tokens: %w", err)
	}
	tokenByPool := make(map[string]string, len(targets))
	for i, p := range targets {
		tokenByPool[p.Hex()] = dataTokens[i]
	}
	for i := range records {
		records[i].DataToken = tokenByPool[records[i].PoolAddress]
	}

	sinks := []storage.Sink{storage.NewJsonlSink(cfg.Out)}
	if cfg.PostgresDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PostgresDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		sinks = append(sinks, store)
	}
	for _, sink := range sinks {
		if err := sink.PutRecords(ctx, records); err != nil {
			return fmt.Errorf("store records: %w", err)
		}
	}

	logger.Info("events done",
		zap.Int("records", len(records)),
		zap.String("out", cfg.Out))
	return nil
}

func targetPools(ctx context.Context, cmd *cobra.Command, pools *pool.Service) ([]common.Address, error) {
	raw, _ := cmd.Flags().GetStringSlice("pool")
	if len(raw) == 0 {
		return pools.AllPools(ctx)
	}
	targets := make([]common.Address, 0, len(raw))
	for _, r := range raw {
		if !common.IsHexAddress(r) {
			return nil, fmt.Errorf("invalid pool address %q", r)
		}
		targets = append(targets, common.HexToAddress(r))
	}
	return targets, nil
}
