// SPDX-License-Identifier: Apache-2.0

// Package rules implements the per-column rule evaluators applied by
// transform pipelines: remove, keep, alias, hash and the named pure
// transforms. Rules are pure; all I/O stays with the caller.
package rules

import (
	"errors"
	"fmt"

	"github.com/jonboulle/clockwork"

	"github.com/starload/starload/pkg/policy"
)

// Rule applies one column-level transformation to one value. A rule either
// emits exactly one named output value or nothing at all.
type Rule interface {
	Apply(value any) (Emission, error)
}

// Emission is the output of a rule application. Emitted is false for rules
// that drop the column.
type Emission struct {
	Name    string
	Value   any
	Emitted bool
}

var (
	ErrUnknownAction        = errors.New("unknown rule action")
	ErrUnknownHashMethod    = errors.New("unknown hash method")
	ErrUnknownTransform     = errors.New("unknown transform method")
	ErrUnsupportedValueType = errors.New("unsupported value type for rule")
)

// Builder constructs rule evaluators from policy column rules. The hashing
// salt and the clock are injected here so rules stay free of process-wide
// state.
type Builder struct {
	salt  string
	clock clockwork.Clock
}

type Option func(b *Builder)

func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		clock: clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// WithSalt sets the secret used by salted hash rules. The salt is part of
// deployment configuration and must never be persisted or logged.
func WithSalt(salt string) Option {
	return func(b *Builder) {
		b.salt = salt
	}
}

func WithClock(clock clockwork.Clock) Option {
	return func(b *Builder) {
		b.clock = clock
	}
}

// New builds the evaluator for one policy column rule. Unknown actions and
// methods are configuration errors and fail the build.
func (b *Builder) New(col *policy.Column) (Rule, error) {
	switch col.Action {
	case policy.ActionRemove:
		return &RemoveRule{}, nil
	case policy.ActionKeep:
		return &KeepRule{name: col.SourceColumn()}, nil
	case policy.ActionAlias:
		return &AliasRule{name: col.EmitAs}, nil
	case policy.ActionHash:
		return NewHashRule(col.EmitAs, col.Using, b.salt)
	case policy.ActionTransform:
		return NewTransformRule(col.EmitAs, col.Using, b.clock)
	default:
		return nil, fmt.Errorf("%w: %q on column %q", ErrUnknownAction, col.Action, col.Source)
	}
}
