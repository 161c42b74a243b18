// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"

	"cortexq/cli/internal/completion"
	"cortexq/cli/internal/config"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var modelsUse string

// modelsCmd lists known model identifiers and optionally sets the default.
var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List known models or set the default one",
	Long: `The models command lists model identifiers known to work with the completion function.
Any identifier the backend accepts can be passed to --model; this list is not exhaustive.

Use --use to save a new default model to the config file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if modelsUse != "" {
			cfg.Completion.Model = modelsUse
			if err := config.Save(cfg); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
			pterm.Println("✅ Default model set to " + modelsUse)
			return nil
		}

		for _, m := range completion.KnownModels {
			if m == cfg.Completion.Model {
				pterm.Println(pterm.NewStyle(pterm.FgCyan, pterm.Bold).Sprint(m) + " (default)")
				continue
			}
			pterm.Println(m)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
	modelsCmd.Flags().StringVar(&modelsUse, "use", "", "Save this model as the default")
}
