// SPDX-License-Identifier: Apache-2.0

package mocks

import (
	"context"
	"sync/atomic"

	"github.com/starload/starload/pkg/etl"
)

type Store struct {
	FetchRowsFn func(ctx context.Context, i uint, source string) ([]etl.Row, error)
	LookupKeyFn func(ctx context.Context, table string, match etl.Row, keyColumn string) (any, error)
	UpsertFn    func(ctx context.Context, i uint, table string, batch etl.Batch, uniqueKeys []string) error
	CloseFn     func() error
	fetchCalls  uint32
	upsertCalls uint32
	lookupCalls uint32
}

func (m *Store) FetchRows(ctx context.Context, source string) ([]etl.Row, error) {
	atomic.AddUint32(&m.fetchCalls, 1)
	return m.FetchRowsFn(ctx, uint(atomic.LoadUint32(&m.fetchCalls)), source)
}

func (m *Store) LookupKey(ctx context.Context, table string, match etl.Row, keyColumn string) (any, error) {
	atomic.AddUint32(&m.lookupCalls, 1)
	return m.LookupKeyFn(ctx, table, match, keyColumn)
}

func (m *Store) Upsert(ctx context.Context, table string, batch etl.Batch, uniqueKeys []string) error {
	atomic.AddUint32(&m.upsertCalls, 1)
	return m.UpsertFn(ctx, uint(atomic.LoadUint32(&m.upsertCalls)), table, batch, uniqueKeys)
}

func (m *Store) Close() error {
	if m.CloseFn != nil {
		return m.CloseFn()
	}
	return nil
}

func (m *Store) UpsertCalls() uint {
	return uint(atomic.LoadUint32(&m.upsertCalls))
}

func (m *Store) LookupCalls() uint {
	return uint(atomic.LoadUint32(&m.lookupCalls))
}
