// SPDX-License-Identifier: Apache-2.0

package policy

import (
	"errors"
	"fmt"
	"slices"
)

var (
	ErrNoPipelines           = errors.New("policy document has no pipelines")
	ErrMissingSource         = errors.New("pipeline source is required")
	ErrMissingEmitTo         = errors.New("pipeline emit_to is required")
	ErrUnknownKind           = errors.New("pipeline kind is not dimension or fact and cannot be inferred from the target name")
	ErrUnknownAction         = errors.New("unknown column rule action")
	ErrMissingColumnSource   = errors.New("column rule requires a source column")
	ErrMissingEmitAs         = errors.New("column rule requires a non-empty emit_as")
	ErrMissingUsing          = errors.New("column rule requires a using method")
	ErrMissingMergeKey       = errors.New("pipeline merge key is empty")
	ErrMergeKeyNotEmitted    = errors.New("merge key column is not emitted by the pipeline")
	ErrInvalidComputed       = errors.New("computed field requires a name and an expression")
	ErrInvalidDimMapping     = errors.New("dim mapping requires a field, a lookup table and at least one match column")
	ErrDimMappingOnDimension = errors.New("dim_mappings are only valid on fact pipelines")
)

func errUnknownKind(pipeline, kind string) error {
	if kind == "" {
		return fmt.Errorf("%w: pipeline %q", ErrUnknownKind, pipeline)
	}
	return fmt.Errorf("%w: pipeline %q has kind %q", ErrUnknownKind, pipeline, kind)
}

// Validate checks the structural invariants of the policy document. Any
// violation is a configuration error and aborts the run before any data is
// touched.
func (d *Document) Validate() error {
	if len(d.Pipelines) == 0 {
		return ErrNoPipelines
	}
	for _, p := range d.Pipelines {
		if err := p.validate(); err != nil {
			return fmt.Errorf("pipeline %q: %w", p.Name, err)
		}
	}
	return nil
}

func (p *Pipeline) validate() error {
	if p.Source == "" {
		return ErrMissingSource
	}
	if p.EmitTo == "" {
		return ErrMissingEmitTo
	}
	kind, err := p.ResolveKind()
	if err != nil {
		return err
	}

	for i := range p.Columns {
		if err := p.Columns[i].validate(); err != nil {
			return err
		}
	}

	for _, c := range p.Computed {
		if c.Name == "" || c.Expression == "" {
			return fmt.Errorf("%w: %q", ErrInvalidComputed, c.Name)
		}
	}

	if kind == KindDimension && len(p.DimMappings) > 0 {
		return ErrDimMappingOnDimension
	}
	for i := range p.DimMappings {
		m := &p.DimMappings[i]
		if m.Field == "" || m.Lookup == "" || len(m.On) == 0 {
			return fmt.Errorf("%w: %q", ErrInvalidDimMapping, m.Field)
		}
	}

	mergeKey := p.MergeKey()
	if len(mergeKey) == 0 {
		return ErrMissingMergeKey
	}
	emitted := p.OutputFields()
	for _, key := range mergeKey {
		if !slices.Contains(emitted, key) {
			return fmt.Errorf("%w: %q", ErrMergeKeyNotEmitted, key)
		}
	}

	return nil
}

func (c *Column) validate() error {
	if c.Source == "" {
		return ErrMissingColumnSource
	}
	switch c.Action {
	case ActionRemove, ActionKeep:
		return nil
	case ActionAlias:
		if c.EmitAs == "" {
			return fmt.Errorf("%w: column %q", ErrMissingEmitAs, c.Source)
		}
		return nil
	case ActionHash, ActionTransform:
		if c.EmitAs == "" {
			return fmt.Errorf("%w: column %q", ErrMissingEmitAs, c.Source)
		}
		if c.Using == "" {
			return fmt.Errorf("%w: column %q", ErrMissingUsing, c.Source)
		}
		return nil
	default:
		return fmt.Errorf("%w: %q on column %q", ErrUnknownAction, c.Action, c.Source)
	}
}
