// Package storage persists decoded pool transaction records.
package storage

import (
	"context"

	"github.com/solbody-protocol/solbody-protocol/internal/model"
)

// Sink accepts batches of pool transaction records.
type Sink interface {
	PutRecords(ctx context.Context, records []model.PoolTransactionRecord) error
}
