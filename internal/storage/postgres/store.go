// Package postgres persists pool transaction records in Postgres.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/solbody-protocol/solbody-protocol/internal/model"
)

// Store provides Postgres persistence for pool transaction records.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// PutRecords inserts or updates decoded pool transactions, keyed by pool
// address, transaction hash and log index.
func (s *Store) PutRecords(ctx context.Context, records []model.PoolTransactionRecord) error {
	if len(records) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, r := range records {
		batch.Queue(`
			INSERT INTO pool_transactions (
				pool_address, data_token, caller, tx_hash, block_number, log_index,
				event_ts, tx_type, token_in, token_out, token_amount_in, token_amount_out,
				created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,now(),now())
			ON CONFLICT (pool_address, tx_hash, log_index)
			DO UPDATE SET
				data_token = EXCLUDED.data_token,
				caller = EXCLUDED.caller,
				block_number = EXCLUDED.block_number,
				event_ts = EXCLUDED.event_ts,
				tx_type = EXCLUDED.tx_type,
				token_in = EXCLUDED.token_in,
				token_out = EXCLUDED.token_out,
				token_amount_in = EXCLUDED.token_amount_in,
				token_amount_out = EXCLUDED.token_amount_out,
				updated_at = now()
		`,
			r.PoolAddress,
			r.DataToken,
			r.Caller,
			r.TxHash,
			int64(r.BlockNumber),
			int64(r.LogIndex),
			int64(r.Timestamp),
			string(r.Type),
			r.TokenIn,
			r.TokenOut,
			r.TokenAmountIn,
			r.TokenAmountOut,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range records {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}
