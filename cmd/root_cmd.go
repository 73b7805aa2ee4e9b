// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/starload/starload/cmd/config"
)

// Version is the starload version
var Version = "development"

func Prepare() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "starload",
		SilenceUsage: true,
		Version:      Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Load(); err != nil {
				return fmt.Errorf("loading configuration: %w", err)
			}
			return nil
		},
	}

	viper.SetEnvPrefix("STARLOAD")
	viper.AutomaticEnv()

	// root cmd
	rootCmd.PersistentFlags().StringP("config", "c", "", ".yaml config file to use with starload if any")
	rootCmd.PersistentFlags().String("log-level", "info", "log level for the application. One of trace, debug, info, warn, error, fatal, panic")
	rootCmd.PersistentFlags().StringP("policy", "p", "", "Path to the policy document (yaml or json) describing the pipelines to run")

	// run cmd
	runCmd.Flags().String("postgres-url", "", "Postgres URL of the database holding the source and target tables")
	runCmd.Flags().Uint("dimension-workers", 1, "Number of dimension pipelines to run concurrently")
	runCmd.Flags().Bool("fail-on-unresolved", false, "Abort the run when a fact row references a dimension row that does not exist, instead of leaving the foreign key null")

	rootFlagBinding(rootCmd)
	runFlagBinding(runCmd)

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
	return rootCmd
}

// Execute executes the root command.
func Execute() error {
	cmd := Prepare()
	return cmd.Execute()
}

func rootFlagBinding(cmd *cobra.Command) {
	bindFlags(cmd.PersistentFlags(), map[string]string{
		"config":    "config",
		"log-level": "log-level",
		"policy":    "policy",
	})
}

func runFlagBinding(cmd *cobra.Command) {
	bindFlags(cmd.Flags(), map[string]string{
		"pgurl":              "postgres-url",
		"dimension-workers":  "dimension-workers",
		"fail-on-unresolved": "fail-on-unresolved",
	})
}

func bindFlags(flags *pflag.FlagSet, keyToFlag map[string]string) {
	for key, flag := range keyToFlag {
		viper.BindPFlag(key, flags.Lookup(flag))
	}
}

func withSignalWatcher(fn func(ctx context.Context) error) func(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc,
		syscall.SIGHUP,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT)
	go func() {
		<-sigc
		cancel()
	}()

	return func(cmd *cobra.Command, args []string) error {
		defer cancel()
		return fn(ctx)
	}
}
