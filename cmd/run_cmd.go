// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/starload/starload/cmd/config"
	"github.com/starload/starload/internal/backoff"
	zerologlib "github.com/starload/starload/internal/log/zerolog"
	"github.com/starload/starload/pkg/etl/orchestrator"
	"github.com/starload/starload/pkg/etl/resolve"
	pgstore "github.com/starload/starload/pkg/etl/store/postgres"
	loglib "github.com/starload/starload/pkg/log"
	"github.com/starload/starload/pkg/policy"
	"github.com/starload/starload/pkg/rules"
)

var errMissingPostgresURL = errors.New("no postgres URL provided")

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run all pipelines in the policy document against the configured store",
	RunE:  withSignalWatcher(run),
}

func run(ctx context.Context) error {
	logger := zerologlib.NewLogger(&zerologlib.Config{
		LogLevel: config.LogLevel(),
	})
	zerologlib.SetGlobalLogger(logger)
	stdLogger := zerologlib.NewStdLogger(logger)

	policyFile, err := config.PolicyFile()
	if err != nil {
		return err
	}
	doc, err := policy.Load(policyFile)
	if err != nil {
		return fmt.Errorf("loading policy document: %w", err)
	}

	store, err := connectStore(ctx, stdLogger)
	if err != nil {
		return err
	}
	defer store.Close()

	rulesBuilder := rules.NewBuilder(rules.WithSalt(config.HashSalt()))

	resolver := resolve.New(store, resolverOpts(stdLogger)...)

	orch := orchestrator.New(store, rulesBuilder,
		orchestrator.WithLogger(stdLogger),
		orchestrator.WithDimensionWorkers(config.DimensionWorkers()),
		orchestrator.WithKeyResolver(resolver))

	start := time.Now()
	if err := orch.Run(ctx, doc); err != nil {
		return err
	}

	stdLogger.Info("run completed", loglib.Fields{
		"policy_file": policyFile,
		"pipelines":   len(doc.Pipelines),
		"elapsed":     time.Since(start),
	})
	return nil
}

func resolverOpts(logger loglib.Logger) []resolve.Option {
	opts := []resolve.Option{resolve.WithLogger(logger)}
	if config.FailOnUnresolved() {
		opts = append(opts, resolve.WithFailOnMiss())
	}
	return opts
}

// connectStore opens the postgres store, retrying with exponential backoff
// so a run scheduled alongside a database restart does not fail immediately.
func connectStore(ctx context.Context, logger loglib.Logger) (*pgstore.Store, error) {
	url := config.PostgresURL()
	if url == "" {
		return nil, errMissingPostgresURL
	}

	var store *pgstore.Store
	bo := backoff.NewProvider(config.ConnectBackoff())(ctx)
	err := bo.RetryNotify(func() error {
		var err error
		store, err = pgstore.New(ctx, url)
		return err
	}, func(err error, d time.Duration) {
		logger.Warn(err, "waiting for store connection", loglib.Fields{"backoff": d})
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres store: %w", err)
	}
	return store, nil
}
