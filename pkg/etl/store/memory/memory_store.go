// SPDX-License-Identifier: Apache-2.0

// Package memory implements the store against in-process tables. It backs
// tests and dry runs with real merge semantics.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/starload/starload/pkg/etl"
)

type Store struct {
	mu     sync.Mutex
	tables map[string][]etl.Row
	// surrogate key counters per table, assigned on insert
	sequences map[string]int64
	keyColumn map[string]string
}

func New() *Store {
	return &Store{
		tables:    map[string][]etl.Row{},
		sequences: map[string]int64{},
		keyColumn: map[string]string{},
	}
}

// Seed loads source rows for a table, replacing any previous contents.
func (s *Store) Seed(table string, rows []etl.Row) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := make([]etl.Row, len(rows))
	for i, row := range rows {
		copied[i] = row.Copy()
	}
	s.tables[table] = copied
}

// WithSurrogateKeys makes upserts into the table assign an incrementing
// value to keyColumn on insert, mimicking a store-assigned surrogate key.
func (s *Store) WithSurrogateKeys(table, keyColumn string) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keyColumn[table] = keyColumn
	return s
}

// Rows returns a copy of the table's current contents.
func (s *Store) Rows(table string) []etl.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := make([]etl.Row, len(s.tables[table]))
	for i, row := range s.tables[table] {
		rows[i] = row.Copy()
	}
	return rows
}

func (s *Store) FetchRows(_ context.Context, source string) ([]etl.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, found := s.tables[source]
	if !found {
		return nil, fmt.Errorf("unknown source %q", source)
	}
	fetched := make([]etl.Row, len(rows))
	for i, row := range rows {
		fetched[i] = row.Copy()
	}
	return fetched, nil
}

func (s *Store) LookupKey(_ context.Context, table string, match etl.Row, keyColumn string) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.tables[table] {
		if rowMatches(row, match) {
			return row[keyColumn], nil
		}
	}
	return nil, nil
}

func (s *Store) Upsert(_ context.Context, table string, batch etl.Batch, uniqueKeys []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, incoming := range batch {
		if err := s.mergeRow(table, incoming, uniqueKeys); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Close() error {
	return nil
}

func (s *Store) mergeRow(table string, incoming etl.Row, uniqueKeys []string) error {
	if len(uniqueKeys) == 0 {
		return fmt.Errorf("upsert into %q without unique keys", table)
	}

	key := make(etl.Row, len(uniqueKeys))
	for _, column := range uniqueKeys {
		key[column] = incoming[column]
	}

	for _, existing := range s.tables[table] {
		if rowMatches(existing, key) {
			// overwrite non-key columns, preserving store-assigned keys
			existing.Merge(incoming)
			return nil
		}
	}

	inserted := incoming.Copy()
	if keyColumn, found := s.keyColumn[table]; found {
		s.sequences[table]++
		inserted[keyColumn] = s.sequences[table]
	}
	s.tables[table] = append(s.tables[table], inserted)
	return nil
}

func rowMatches(row, match etl.Row) bool {
	for column, want := range match {
		if row[column] != want {
			return false
		}
	}
	return true
}
