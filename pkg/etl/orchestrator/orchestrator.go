// SPDX-License-Identifier: Apache-2.0

// Package orchestrator sequences policy pipelines into a run: every
// dimension pipeline completes and is durably merged before any fact
// pipeline starts, since fact rows resolve their dimension references by
// query rather than in-memory state.
package orchestrator

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/xid"
	"golang.org/x/sync/errgroup"

	"github.com/starload/starload/pkg/etl"
	"github.com/starload/starload/pkg/etl/resolve"
	"github.com/starload/starload/pkg/etl/store"
	"github.com/starload/starload/pkg/etl/transform"
	loglib "github.com/starload/starload/pkg/log"
	"github.com/starload/starload/pkg/policy"
	"github.com/starload/starload/pkg/rules"
)

type Orchestrator struct {
	store            store.Store
	rulesBuilder     *rules.Builder
	resolver         *resolve.KeyResolver
	logger           loglib.Logger
	dimensionWorkers uint
}

type Option func(o *Orchestrator)

func New(s store.Store, rulesBuilder *rules.Builder, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:            s,
		rulesBuilder:     rulesBuilder,
		logger:           loglib.NewNoopLogger(),
		dimensionWorkers: 1,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.resolver == nil {
		o.resolver = resolve.New(s)
	}
	return o
}

func WithLogger(logger loglib.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = loglib.NewLogger(logger).WithFields(loglib.Fields{
			loglib.ModuleField: "orchestrator",
		})
	}
}

// WithDimensionWorkers bounds how many dimension pipelines run
// concurrently. Dimension pipelines share no state, so they can run in
// parallel; fact pipelines always run sequentially behind them.
func WithDimensionWorkers(workers uint) Option {
	return func(o *Orchestrator) {
		if workers > 0 {
			o.dimensionWorkers = workers
		}
	}
}

func WithKeyResolver(resolver *resolve.KeyResolver) Option {
	return func(o *Orchestrator) {
		o.resolver = resolver
	}
}

// compiledPipeline pairs a pipeline spec with its compiled transformer.
// Compiling everything before the first fetch means configuration errors
// abort the run before any data is touched.
type compiledPipeline struct {
	spec        *policy.Pipeline
	transformer *transform.RowTransformer
}

// Run executes the policy document: all dimension pipelines, then all fact
// pipelines, each in declaration order. There is no cross-pipeline
// transaction; every merge is idempotent so a partially failed run is safe
// to repeat.
func (o *Orchestrator) Run(ctx context.Context, doc *policy.Document) error {
	if err := doc.Validate(); err != nil {
		return err
	}

	logger := o.logger.WithFields(loglib.Fields{"run_id": xid.New().String()})

	dimensions, facts, err := o.compile(doc)
	if err != nil {
		return err
	}

	if err := o.runDimensionPhase(ctx, logger, dimensions); err != nil {
		return err
	}
	return o.runFactPhase(ctx, logger, facts)
}

func (o *Orchestrator) compile(doc *policy.Document) (dimensions, facts []compiledPipeline, err error) {
	for _, spec := range doc.Pipelines {
		kind, err := spec.ResolveKind()
		if err != nil {
			return nil, nil, err
		}
		transformer, err := transform.New(spec, o.rulesBuilder)
		if err != nil {
			return nil, nil, fmt.Errorf("pipeline %q: %w", spec.Name, err)
		}

		compiled := compiledPipeline{spec: spec, transformer: transformer}
		if kind == policy.KindDimension {
			dimensions = append(dimensions, compiled)
		} else {
			facts = append(facts, compiled)
		}
	}
	return dimensions, facts, nil
}

func (o *Orchestrator) runDimensionPhase(ctx context.Context, logger loglib.Logger, dimensions []compiledPipeline) error {
	var (
		mu           sync.Mutex
		pipelineErrs []*etl.PipelineError
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(int(o.dimensionWorkers))
	for _, pipeline := range dimensions {
		group.Go(func() error {
			if err := o.runDimension(groupCtx, logger, pipeline); err != nil {
				mu.Lock()
				pipelineErrs = append(pipelineErrs, etl.NewPipelineError(pipeline.spec.Name, err))
				mu.Unlock()
				return err
			}
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return &etl.Errors{Pipelines: pipelineErrs}
	}
	return nil
}

func (o *Orchestrator) runFactPhase(ctx context.Context, logger loglib.Logger, facts []compiledPipeline) error {
	for _, pipeline := range facts {
		if err := o.runFact(ctx, logger, pipeline); err != nil {
			return etl.NewPipelineError(pipeline.spec.Name, err)
		}
	}
	return nil
}

func (o *Orchestrator) runDimension(ctx context.Context, logger loglib.Logger, pipeline compiledPipeline) error {
	spec := pipeline.spec
	logFields := loglib.Fields{"pipeline": spec.Name, "source": spec.Source, "target": spec.EmitTo}
	logger.Info("running dimension pipeline", logFields)

	rows, err := o.store.FetchRows(ctx, spec.Source)
	if err != nil {
		return err
	}

	batch := make(etl.Batch, 0, len(rows))
	for _, row := range rows {
		transformed, err := pipeline.transformer.Transform(row)
		if err != nil {
			return err
		}
		batch = append(batch, transformed)
	}

	if err := o.store.Upsert(ctx, spec.EmitTo, batch, spec.Uniqueness); err != nil {
		return err
	}

	logger.Info("dimension pipeline completed", loglib.MergeFields(logFields, loglib.Fields{"rows": len(batch)}))
	return nil
}

func (o *Orchestrator) runFact(ctx context.Context, logger loglib.Logger, pipeline compiledPipeline) error {
	spec := pipeline.spec
	logFields := loglib.Fields{"pipeline": spec.Name, "source": spec.Source, "target": spec.EmitTo}
	logger.Info("running fact pipeline", logFields)

	rows, err := o.store.FetchRows(ctx, spec.Source)
	if err != nil {
		return err
	}

	batch := make(etl.Batch, 0, len(rows))
	for _, row := range rows {
		transformed, err := pipeline.transformer.Transform(row)
		if err != nil {
			return err
		}
		if err := o.resolver.Resolve(ctx, transformed, spec.DimMappings); err != nil {
			return err
		}
		batch = append(batch, transformed)
	}

	if err := o.store.Upsert(ctx, spec.EmitTo, batch, spec.FactPK); err != nil {
		return err
	}

	logger.Info("fact pipeline completed", loglib.MergeFields(logFields, loglib.Fields{"rows": len(batch)}))
	return nil
}
