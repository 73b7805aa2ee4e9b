// SPDX-License-Identifier: Apache-2.0

package mocks

import (
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type Rows struct {
	CloseFn             func()
	ErrFn               func() error
	FieldDescriptionsFn func() []pgconn.FieldDescription
	NextFn              func(i uint) bool
	ScanFn              func(dest ...any) error
	ValuesFn            func(i uint) ([]any, error)
	nextCalls           uint
	valuesCalls         uint
}

func (m *Rows) Close() {
	if m.CloseFn != nil {
		m.CloseFn()
	}
}

func (m *Rows) Err() error {
	if m.ErrFn != nil {
		return m.ErrFn()
	}
	return nil
}

func (m *Rows) CommandTag() pgconn.CommandTag {
	return pgconn.CommandTag{}
}

func (m *Rows) FieldDescriptions() []pgconn.FieldDescription {
	return m.FieldDescriptionsFn()
}

func (m *Rows) Next() bool {
	m.nextCalls++
	return m.NextFn(m.nextCalls)
}

func (m *Rows) Scan(dest ...any) error {
	return m.ScanFn(dest...)
}

func (m *Rows) Values() ([]any, error) {
	m.valuesCalls++
	return m.ValuesFn(m.valuesCalls)
}

func (m *Rows) RawValues() [][]byte {
	return nil
}

func (m *Rows) Conn() *pgx.Conn {
	return &pgx.Conn{}
}
