// SPDX-License-Identifier: Apache-2.0

package postgres

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/lib/pq"

	pglib "github.com/starload/starload/internal/postgres"
	"github.com/starload/starload/pkg/etl"
)

// Store implements the engine's persistence operations against postgres.
type Store struct {
	conn pglib.Querier
}

// Upserts are chunked so one statement never exceeds the postgres bind
// parameter limit.
const maxBindParams = 65535

func New(ctx context.Context, url string) (*Store, error) {
	conn, err := pglib.NewConnPool(ctx, url)
	if err != nil {
		return nil, err
	}
	return NewWithQuerier(conn), nil
}

func NewWithQuerier(conn pglib.Querier) *Store {
	return &Store{conn: conn}
}

func (s *Store) Close() error {
	return s.conn.Close(context.Background())
}

func (s *Store) FetchRows(ctx context.Context, source string) ([]etl.Row, error) {
	query := fmt.Sprintf("SELECT * FROM %s", quoteQualified(source))
	rows, err := s.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("fetching rows from %s: %w", source, err)
	}
	defer rows.Close()

	fetched := []etl.Row{}
	fieldDescriptions := rows.FieldDescriptions()
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("reading row values from %s: %w", source, err)
		}
		row := make(etl.Row, len(fieldDescriptions))
		for i, fd := range fieldDescriptions {
			row[fd.Name] = values[i]
		}
		fetched = append(fetched, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("fetching rows from %s: %w", source, err)
	}

	return fetched, nil
}

func (s *Store) LookupKey(ctx context.Context, table string, match etl.Row, keyColumn string) (any, error) {
	columns := sortedColumns(match)
	predicates := make([]string, 0, len(columns))
	args := make([]any, 0, len(columns))
	for i, column := range columns {
		// IS NOT DISTINCT FROM keeps null match values from silently
		// matching nothing
		predicates = append(predicates, fmt.Sprintf("%s IS NOT DISTINCT FROM $%d", pq.QuoteIdentifier(column), i+1))
		args = append(args, match[column])
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s LIMIT 1",
		pq.QuoteIdentifier(keyColumn), quoteQualified(table), strings.Join(predicates, " AND "))

	var key any
	if err := s.conn.QueryRow(ctx, query, args...).Scan(&key); err != nil {
		if errors.Is(err, pglib.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("looking up key in %s: %w", table, err)
	}
	return key, nil
}

func (s *Store) Upsert(ctx context.Context, table string, batch etl.Batch, uniqueKeys []string) error {
	if len(batch) == 0 {
		return nil
	}

	columns := batchColumns(batch)
	chunkSize := maxBindParams / len(columns)
	for start := 0; start < len(batch); start += chunkSize {
		end := min(start+chunkSize, len(batch))
		if err := s.upsertChunk(ctx, table, batch[start:end], columns, uniqueKeys); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) upsertChunk(ctx context.Context, table string, batch etl.Batch, columns, uniqueKeys []string) error {
	quotedColumns := make([]string, len(columns))
	for i, column := range columns {
		quotedColumns[i] = pq.QuoteIdentifier(column)
	}

	args := make([]any, 0, len(batch)*len(columns))
	valueLists := make([]string, 0, len(batch))
	for _, row := range batch {
		placeholders := make([]string, len(columns))
		for i, column := range columns {
			args = append(args, row[column])
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		valueLists = append(valueLists, "("+strings.Join(placeholders, ", ")+")")
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s %s",
		quoteQualified(table),
		strings.Join(quotedColumns, ", "),
		strings.Join(valueLists, ", "),
		onConflictClause(columns, uniqueKeys))

	if _, err := s.conn.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("upserting %d rows into %s: %w", len(batch), table, err)
	}
	return nil
}

// onConflictClause makes the insert an idempotent merge: rows whose unique
// keys already exist get their non-key columns overwritten with the new
// values.
func onConflictClause(columns, uniqueKeys []string) string {
	quotedKeys := make([]string, len(uniqueKeys))
	for i, key := range uniqueKeys {
		quotedKeys[i] = pq.QuoteIdentifier(key)
	}

	assignments := make([]string, 0, len(columns))
	for _, column := range columns {
		if slices.Contains(uniqueKeys, column) {
			continue
		}
		quoted := pq.QuoteIdentifier(column)
		assignments = append(assignments, fmt.Sprintf("%s = EXCLUDED.%s", quoted, quoted))
	}

	if len(assignments) == 0 {
		return fmt.Sprintf("ON CONFLICT (%s) DO NOTHING", strings.Join(quotedKeys, ", "))
	}
	return fmt.Sprintf("ON CONFLICT (%s) DO UPDATE SET %s",
		strings.Join(quotedKeys, ", "), strings.Join(assignments, ", "))
}

// batchColumns returns the union of the batch's column names, sorted for
// deterministic statements.
func batchColumns(batch etl.Batch) []string {
	seen := map[string]struct{}{}
	for _, row := range batch {
		for column := range row {
			seen[column] = struct{}{}
		}
	}
	columns := make([]string, 0, len(seen))
	for column := range seen {
		columns = append(columns, column)
	}
	sort.Strings(columns)
	return columns
}

func sortedColumns(row etl.Row) []string {
	columns := make([]string, 0, len(row))
	for column := range row {
		columns = append(columns, column)
	}
	sort.Strings(columns)
	return columns
}

func quoteQualified(name string) string {
	parts := strings.Split(name, ".")
	for i, part := range parts {
		parts[i] = pq.QuoteIdentifier(part)
	}
	return strings.Join(parts, ".")
}
