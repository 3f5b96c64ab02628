package events

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/solbody-protocol/solbody-protocol/internal/chain"
	"github.com/solbody-protocol/solbody-protocol/internal/model"
)

const (
	fetchRetries   = 3
	fetchBaseDelay = 200 * time.Millisecond
)

// Config holds the range and factory settings for log fetching.
type Config struct {
	Factory    common.Address
	StartBlock uint64
}

// Fetcher pulls pool logs off the chain and classifies them.
type Fetcher struct {
	querier    chain.Querier
	classifier *Classifier
	log        *zap.Logger
	cfg        Config
}

// NewFetcher builds a Fetcher with its own classifier.
func NewFetcher(querier chain.Querier, log *zap.Logger, cfg Config) (*Fetcher, error) {
	classifier, err := NewClassifier()
	if err != nil {
		return nil, err
	}
	return &Fetcher{
		querier:    querier,
		classifier: classifier,
		log:        log,
		cfg:        cfg,
	}, nil
}

// PoolLogs fetches and classifies all swap, join and exit events of one pool.
// A non-nil account narrows the result to that caller.
func (f *Fetcher) PoolLogs(ctx context.Context, pool common.Address, account *common.Address) ([]model.PoolTransactionRecord, error) {
	latest, err := f.querier.LatestBlockNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("latest block: %w", err)
	}

	topics := [][]common.Hash{f.classifier.Topics()}
	if account != nil {
		topics = append(topics, []common.Hash{common.BytesToHash(account.Bytes())})
	}

	var logs []types.Log
	err = chain.WithRetry(ctx, fetchRetries, fetchBaseDelay, func(ctx context.Context) error {
		var ferr error
		logs, ferr = f.querier.FilterLogs(ctx, f.cfg.StartBlock, latest, []common.Address{pool}, topics)
		return ferr
	})
	if err != nil {
		return nil, fmt.Errorf("filter pool logs: %w", err)
	}

	return f.classify(ctx, logs)
}

// PoolsLogs fetches the logs of many pools in capped parallel batches. The
// per-pool results come back concatenated in pool order.
func (f *Fetcher) PoolsLogs(ctx context.Context, pools []common.Address, account *common.Address) ([]model.PoolTransactionRecord, error) {
	perPool, err := chain.Gather(ctx, pools, func(ctx context.Context, pool common.Address) ([]model.PoolTransactionRecord, error) {
		return f.PoolLogs(ctx, pool, account)
	})
	if err != nil {
		return nil, err
	}

	var all []model.PoolTransactionRecord
	for _, records := range perPool {
		all = append(all, records...)
	}
	f.log.Info("fetched pool histories",
		zap.Int("pools", len(pools)),
		zap.Int("records", len(all)))
	return all, nil
}

// PoolLister enumerates registered pools. Satisfied by the pool service.
type PoolLister interface {
	AllPools(ctx context.Context) ([]common.Address, error)
}

// AllPoolLogs fetches the logs of every registered pool.
func (f *Fetcher) AllPoolLogs(ctx context.Context, lister PoolLister, account *common.Address) ([]model.PoolTransactionRecord, error) {
	pools, err := lister.AllPools(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pools: %w", err)
	}
	return f.PoolsLogs(ctx, pools, account)
}

// classify resolves block timestamps in capped parallel batches and decodes
// each log. Unknown topics are dropped.
func (f *Fetcher) classify(ctx context.Context, logs []types.Log) ([]model.PoolTransactionRecord, error) {
	timestamps, err := chain.Gather(ctx, logs, func(ctx context.Context, lg types.Log) (uint64, error) {
		return f.querier.BlockTimestamp(ctx, lg.BlockNumber)
	})
	if err != nil {
		return nil, fmt.Errorf("block timestamps: %w", err)
	}

	records := make([]model.PoolTransactionRecord, 0, len(logs))
	for i, lg := range logs {
		rec, ok, err := f.classifier.Classify(lg, timestamps[i])
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}
