// SPDX-License-Identifier: Apache-2.0

// Package etl holds the row-level types shared by the transform, resolve
// and store layers.
package etl

// Row maps column names to scalar values (string, number, date or nil).
// Insertion order is irrelevant.
type Row map[string]any

// Batch is the ordered sequence of output rows produced by one pipeline
// run. Batches merge into the target at the per-row-key level, not
// transactionally across the batch.
type Batch []Row

// Merge copies all entries of other into the row, overwriting on name
// collision.
func (r Row) Merge(other Row) {
	for k, v := range other {
		r[k] = v
	}
}

// Copy returns a shallow copy of the row.
func (r Row) Copy() Row {
	copied := make(Row, len(r))
	for k, v := range r {
		copied[k] = v
	}
	return copied
}
