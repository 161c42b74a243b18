// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"

	"cortexq/cli/internal/keychain"

	"github.com/spf13/cobra"
)

// disconnectCmd removes the stored DSN from the OS keychain.
var disconnectCmd = &cobra.Command{
	Use:   "disconnect",
	Short: "Remove the saved database connection",
	Long: `The disconnect command removes the DSN stored by 'cortexq connect' from the OS keychain.
CORTEXQ_DSN and DATABASE_URL are not affected.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		km, err := keychain.GetManager()
		if err != nil {
			fmt.Println("❌ Secure storage is not available on this system.")
			return err
		}
		if err := km.ClearDB(); err != nil {
			return err
		}
		fmt.Println("✅ Saved database connection has been removed")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(disconnectCmd)
}
