// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/starload/starload/cmd/config"
	zerologlib "github.com/starload/starload/internal/log/zerolog"
	loglib "github.com/starload/starload/pkg/log"
	"github.com/starload/starload/pkg/policy"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Parse and validate the policy document without touching the store",
	RunE:  withSignalWatcher(validate),
}

func validate(ctx context.Context) error {
	logger := zerologlib.NewLogger(&zerologlib.Config{
		LogLevel: config.LogLevel(),
	})
	zerologlib.SetGlobalLogger(logger)
	stdLogger := zerologlib.NewStdLogger(logger)

	policyFile, err := config.PolicyFile()
	if err != nil {
		return err
	}

	// Load parses and validates in one pass.
	doc, err := policy.Load(policyFile)
	if err != nil {
		return fmt.Errorf("invalid policy document: %w", err)
	}

	for _, pipeline := range doc.Pipelines {
		kind, err := pipeline.ResolveKind()
		if err != nil {
			return err
		}
		stdLogger.Info("pipeline ok", loglib.Fields{
			"pipeline": pipeline.Name,
			"kind":     string(kind),
			"source":   pipeline.Source,
			"target":   pipeline.EmitTo,
		})
	}

	stdLogger.Info("policy document is valid", loglib.Fields{
		"policy_file": policyFile,
		"pipelines":   len(doc.Pipelines),
	})
	return nil
}
