// SPDX-License-Identifier: Apache-2.0

package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/starload/starload/pkg/etl"
)

func TestStore_FetchRows(t *testing.T) {
	t.Parallel()

	store := New()
	store.Seed("ops.customers", []etl.Row{
		{"id": int64(1), "email": "alice@example.com"},
	})

	rows, err := store.FetchRows(context.Background(), "ops.customers")
	require.NoError(t, err)
	require.Equal(t, []etl.Row{{"id": int64(1), "email": "alice@example.com"}}, rows)

	// fetched rows are copies, mutating them leaves the store untouched
	rows[0]["email"] = "mutated"
	rows, err = store.FetchRows(context.Background(), "ops.customers")
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", rows[0]["email"])

	_, err = store.FetchRows(context.Background(), "ops.unknown")
	require.Error(t, err)
}

func TestStore_Upsert(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("ok - insert assigns surrogate keys", func(t *testing.T) {
		t.Parallel()

		store := New().WithSurrogateKeys("anl.dim_customer", "customer_key")
		err := store.Upsert(ctx, "anl.dim_customer", etl.Batch{
			{"customer_id": int64(1)},
			{"customer_id": int64(2)},
		}, []string{"customer_id"})
		require.NoError(t, err)

		require.Equal(t, []etl.Row{
			{"customer_id": int64(1), "customer_key": int64(1)},
			{"customer_id": int64(2), "customer_key": int64(2)},
		}, store.Rows("anl.dim_customer"))
	})

	t.Run("ok - repeated upsert merges instead of duplicating", func(t *testing.T) {
		t.Parallel()

		store := New().WithSurrogateKeys("anl.dim_customer", "customer_key")
		batch := etl.Batch{{"customer_id": int64(1), "country": "PT"}}
		require.NoError(t, store.Upsert(ctx, "anl.dim_customer", batch, []string{"customer_id"}))

		updated := etl.Batch{{"customer_id": int64(1), "country": "ES"}}
		require.NoError(t, store.Upsert(ctx, "anl.dim_customer", updated, []string{"customer_id"}))

		// one row, updated in place, surrogate key preserved
		require.Equal(t, []etl.Row{
			{"customer_id": int64(1), "country": "ES", "customer_key": int64(1)},
		}, store.Rows("anl.dim_customer"))
	})

	t.Run("error - no unique keys", func(t *testing.T) {
		t.Parallel()

		store := New()
		err := store.Upsert(ctx, "anl.dim_customer", etl.Batch{{"customer_id": int64(1)}}, nil)
		require.Error(t, err)
	})
}

func TestStore_LookupKey(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := New().WithSurrogateKeys("anl.dim_customer", "customer_key")
	require.NoError(t, store.Upsert(ctx, "anl.dim_customer", etl.Batch{
		{"customer_id": int64(7)},
	}, []string{"customer_id"}))

	key, err := store.LookupKey(ctx, "anl.dim_customer", etl.Row{"customer_id": int64(7)}, "customer_key")
	require.NoError(t, err)
	require.Equal(t, int64(1), key)

	key, err = store.LookupKey(ctx, "anl.dim_customer", etl.Row{"customer_id": int64(8)}, "customer_key")
	require.NoError(t, err)
	require.Nil(t, key)
}
