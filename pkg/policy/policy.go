// SPDX-License-Identifier: Apache-2.0

// Package policy defines the data model for transform-and-load policy
// documents: the ordered set of pipelines to run, the column rules and
// computed fields each pipeline applies, and the dimension lookups fact
// pipelines resolve against.
package policy

import (
	"strings"
)

// Document is the fully parsed policy for one run. It is loaded once and
// never mutated afterwards.
type Document struct {
	Pipelines []*Pipeline `mapstructure:"pipelines"`
}

type Kind string

const (
	KindDimension Kind = "dimension"
	KindFact      Kind = "fact"
)

// Pipeline describes how rows from one source table (or pre-defined join)
// are transformed and merged into one target table.
type Pipeline struct {
	Name        string          `mapstructure:"name"`
	Kind        Kind            `mapstructure:"kind"`
	Source      string          `mapstructure:"source"`
	EmitTo      string          `mapstructure:"emit_to"`
	Columns     []Column        `mapstructure:"columns"`
	Computed    []ComputedField `mapstructure:"computed"`
	Uniqueness  []string        `mapstructure:"uniqueness"`
	FactPK      []string        `mapstructure:"fact_pk"`
	DimMappings []DimMapping    `mapstructure:"dim_mappings"`
}

type Action string

const (
	ActionRemove    Action = "remove"
	ActionKeep      Action = "keep"
	ActionAlias     Action = "alias"
	ActionHash      Action = "hash"
	ActionTransform Action = "transform"
)

// Rule is one column-level transformation. alias, hash and transform must
// carry a non-empty EmitAs; hash and transform must carry a Using method.
type Rule struct {
	Action Action `mapstructure:"action"`
	EmitAs string `mapstructure:"emit_as"`
	Using  string `mapstructure:"using"`
}

// Column binds a source column name to the rule applied to it. Dotted
// source names ("table.column") are matched on the final segment.
type Column struct {
	Source string `mapstructure:"source"`
	Rule   `mapstructure:",squash"`
}

// SourceColumn returns the unqualified source column name.
func (c *Column) SourceColumn() string {
	if i := strings.LastIndex(c.Source, "."); i >= 0 {
		return c.Source[i+1:]
	}
	return c.Source
}

// ComputedField derives an output column from other already-available
// fields, evaluated after all column rules for the row have run.
type ComputedField struct {
	Name       string `mapstructure:"name"`
	Expression string `mapstructure:"expression"`
}

// DimMapping describes how to find the surrogate key of a referenced
// dimension row: equality-match the On fields of the transformed row
// against the Lookup table and read back its key column.
type DimMapping struct {
	Field     string            `mapstructure:"field"`
	Lookup    string            `mapstructure:"lookup"`
	On        map[string]string `mapstructure:"on"`
	KeyColumn string            `mapstructure:"key_column"`
}

// Key returns the dimension key column to read, defaulting to the
// destination field name.
func (m *DimMapping) Key() string {
	if m.KeyColumn != "" {
		return m.KeyColumn
	}
	return m.Field
}

// ResolveKind returns the pipeline kind, preferring the explicit kind field
// and falling back to the dim_/fact_ target naming convention for policies
// that predate it.
func (p *Pipeline) ResolveKind() (Kind, error) {
	switch p.Kind {
	case KindDimension, KindFact:
		return p.Kind, nil
	case "":
	default:
		return "", errUnknownKind(p.Name, string(p.Kind))
	}

	target := p.EmitTo
	if i := strings.LastIndex(target, "."); i >= 0 {
		target = target[i+1:]
	}
	switch {
	case strings.HasPrefix(target, "dim_"):
		return KindDimension, nil
	case strings.HasPrefix(target, "fact_"):
		return KindFact, nil
	}
	return "", errUnknownKind(p.Name, "")
}

// MergeKey returns the ordered column set the target merge is keyed by.
func (p *Pipeline) MergeKey() []string {
	kind, err := p.ResolveKind()
	if err != nil {
		return nil
	}
	if kind == KindFact {
		return p.FactPK
	}
	return p.Uniqueness
}

// OutputFields returns the names of all fields the pipeline emits, in
// emission order: column rule emissions, computed fields, then resolved
// dimension keys.
func (p *Pipeline) OutputFields() []string {
	fields := make([]string, 0, len(p.Columns)+len(p.Computed)+len(p.DimMappings))
	for i := range p.Columns {
		col := &p.Columns[i]
		switch col.Action {
		case ActionRemove:
		case ActionKeep:
			fields = append(fields, col.SourceColumn())
		default:
			fields = append(fields, col.EmitAs)
		}
	}
	for _, c := range p.Computed {
		fields = append(fields, c.Name)
	}
	for i := range p.DimMappings {
		fields = append(fields, p.DimMappings[i].Field)
	}
	return fields
}
