// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package cmd provides the command-line interface for cortexq.
// It implements subcommands for sending prompts to a SQL-hosted completion function,
// running prompt batches and ad hoc queries, and managing the stored database connection,
// using the Cobra CLI framework.
package cmd

import (
	"errors"
	"fmt"
	"os"

	"cortexq/cli/internal/config"
	"cortexq/cli/internal/connerrors"
	cqerrors "cortexq/cli/internal/errors"
	"cortexq/cli/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	showVersion bool
	verbose     bool

	// cfg and logger are set up in PersistentPreRunE before any subcommand runs.
	cfg    = config.Defaults()
	logger = zap.NewNop()
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:           "cortexq",
	Short:         "Send prompts to a SQL-hosted completion function and get structured answers",
	Long:          `cortexq sends prompts to a language model exposed as a SQL function, retries when the backend is at capacity, and extracts JSON from the answer, asking the model to repair it once if needed.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		l, err := logging.NewLogger(cfg.LogLevel, verbose)
		if err != nil {
			return err
		}
		logger = l
		logger.Debug("configuration loaded",
			zap.String("model", cfg.Completion.Model),
			zap.String("function", cfg.Completion.Function),
			zap.Int("max_attempts", cfg.Retry.MaxAttempts),
			zap.Duration("retry_unit", cfg.Retry.Unit()))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if showVersion {
			fmt.Fprintf(cmd.OutOrStdout(), "cortexq %s\n", Version)
			return nil
		}
		// If no flag is set, show help
		return cmd.Help()
	},
}

// Execute runs the CLI application and exits non-zero on failure.
func Execute() {
	err := rootCmd.Execute()
	if err == nil {
		return
	}
	var exit *exitError
	if errors.As(err, &exit) {
		os.Exit(exit.code)
	}
	if cqerrors.IsKind(err, cqerrors.SessionFailed) {
		fmt.Fprint(os.Stderr, connerrors.Format(err, "", logging.Mask(err.Error())))
		os.Exit(1)
	}
	fmt.Fprintln(os.Stderr, logging.PresentError("", err))
	os.Exit(1)
}

func init() {
	rootCmd.Flags().BoolVar(&showVersion, "version", false, "Show CLI version information")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging on stderr")
}
