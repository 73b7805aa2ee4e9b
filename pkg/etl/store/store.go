// SPDX-License-Identifier: Apache-2.0

// Package store defines the persistence operations the pipeline engine
// consumes: full-scan row fetches, single-row key lookups and idempotent
// batch upserts.
package store

import (
	"context"

	"github.com/starload/starload/pkg/etl"
)

type Store interface {
	// FetchRows returns all rows of the named table or pre-defined join.
	FetchRows(ctx context.Context, source string) ([]etl.Row, error)
	// LookupKey returns the key column of the single row matching the
	// equality predicate, or nil when no row matches.
	LookupKey(ctx context.Context, table string, match etl.Row, keyColumn string) (any, error)
	// Upsert merges the batch into the target table keyed by uniqueKeys:
	// new rows are inserted, existing ones get their non-key columns
	// overwritten. Re-applying the same batch yields the same final state.
	Upsert(ctx context.Context, table string, batch etl.Batch, uniqueKeys []string) error
	Close() error
}
