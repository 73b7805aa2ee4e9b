// SPDX-License-Identifier: Apache-2.0

// Package resolve looks up the surrogate keys of referenced dimension rows
// for transformed fact rows.
package resolve

import (
	"context"
	"errors"
	"fmt"

	"github.com/starload/starload/pkg/etl"
	loglib "github.com/starload/starload/pkg/log"
	"github.com/starload/starload/pkg/policy"
)

// KeyLookup is the single-row equality lookup the resolver needs from the
// store.
type KeyLookup interface {
	LookupKey(ctx context.Context, table string, match etl.Row, keyColumn string) (any, error)
}

var (
	ErrUnresolvedReference = errors.New("no dimension row matches the fact reference")
	ErrMissingMatchField   = errors.New("dim mapping references a field the row does not carry")
)

// KeyResolver resolves dim mappings against already-materialized dimension
// tables. By default an unmatched lookup yields a null foreign key with a
// warning; with fail-on-miss enabled it aborts the pipeline instead.
type KeyResolver struct {
	lookup     KeyLookup
	logger     loglib.Logger
	failOnMiss bool
}

type Option func(r *KeyResolver)

func New(lookup KeyLookup, opts ...Option) *KeyResolver {
	r := &KeyResolver{
		lookup: lookup,
		logger: loglib.NewNoopLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func WithLogger(logger loglib.Logger) Option {
	return func(r *KeyResolver) {
		r.logger = loglib.NewLogger(logger).WithFields(loglib.Fields{
			loglib.ModuleField: "key_resolver",
		})
	}
}

// WithFailOnMiss makes unresolved references fatal instead of null.
func WithFailOnMiss() Option {
	return func(r *KeyResolver) {
		r.failOnMiss = true
	}
}

// Resolve writes the surrogate key of every mapped dimension reference into
// the transformed row, mutating it in place.
func (r *KeyResolver) Resolve(ctx context.Context, row etl.Row, mappings []policy.DimMapping) error {
	for i := range mappings {
		mapping := &mappings[i]
		match := make(etl.Row, len(mapping.On))
		for matchColumn, localField := range mapping.On {
			value, found := row[localField]
			if !found {
				return fmt.Errorf("%w: %q", ErrMissingMatchField, localField)
			}
			match[matchColumn] = value
		}

		key, err := r.lookup.LookupKey(ctx, mapping.Lookup, match, mapping.Key())
		if err != nil {
			return fmt.Errorf("looking up %q in %q: %w", mapping.Field, mapping.Lookup, err)
		}
		if key == nil {
			if r.failOnMiss {
				return fmt.Errorf("%w: %q in %q", ErrUnresolvedReference, mapping.Field, mapping.Lookup)
			}
			r.logger.Warn(nil, "unresolved dimension reference, leaving foreign key null", loglib.Fields{
				"field":  mapping.Field,
				"lookup": mapping.Lookup,
			})
		}
		row[mapping.Field] = key
	}

	return nil
}
