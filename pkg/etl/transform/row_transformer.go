// SPDX-License-Identifier: Apache-2.0

// Package transform turns source rows into output rows by applying a
// pipeline's column rules and computed-field expressions.
package transform

import (
	"fmt"

	"github.com/starload/starload/pkg/etl"
	"github.com/starload/starload/pkg/expr"
	"github.com/starload/starload/pkg/policy"
	"github.com/starload/starload/pkg/rules"
)

// RowTransformer applies one pipeline's column rules and computed fields to
// individual rows. It is pure given its inputs; all I/O stays with the
// caller. Rules and expressions are compiled up front so configuration
// errors surface before any row is processed.
type RowTransformer struct {
	columns  []compiledColumn
	computed []compiledField
}

type compiledColumn struct {
	source string
	rule   rules.Rule
}

type compiledField struct {
	name   string
	parsed expr.Expr
}

func New(p *policy.Pipeline, builder *rules.Builder) (*RowTransformer, error) {
	t := &RowTransformer{
		columns:  make([]compiledColumn, 0, len(p.Columns)),
		computed: make([]compiledField, 0, len(p.Computed)),
	}

	for i := range p.Columns {
		col := &p.Columns[i]
		rule, err := builder.New(col)
		if err != nil {
			return nil, err
		}
		t.columns = append(t.columns, compiledColumn{
			source: col.SourceColumn(),
			rule:   rule,
		})
	}

	for _, field := range p.Computed {
		parsed, err := expr.Parse(field.Expression)
		if err != nil {
			return nil, fmt.Errorf("computed field %q: %w", field.Name, err)
		}
		t.computed = append(t.computed, compiledField{name: field.Name, parsed: parsed})
	}

	return t, nil
}

// Transform produces the output row for one source row. Column rules run in
// declared order, later emissions overwriting earlier ones on name
// collision. Computed fields run afterwards over the raw fields overlaid by
// the emitted ones, each result becoming visible to subsequent computed
// fields.
func (t *RowTransformer) Transform(row etl.Row) (etl.Row, error) {
	out := make(etl.Row, len(t.columns)+len(t.computed))
	for _, col := range t.columns {
		emission, err := col.rule.Apply(row[col.source])
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", col.source, err)
		}
		if emission.Emitted {
			out[emission.Name] = emission.Value
		}
	}

	if len(t.computed) == 0 {
		return out, nil
	}

	namespace := row.Copy()
	namespace.Merge(out)
	for _, field := range t.computed {
		value, err := expr.Eval(field.parsed, namespace)
		if err != nil {
			return nil, fmt.Errorf("computed field %q: %w", field.name, err)
		}
		out[field.name] = value
		namespace[field.name] = value
	}

	return out, nil
}
