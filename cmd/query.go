// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"encoding/json"
	"fmt"

	cqerrors "cortexq/cli/internal/errors"
	"cortexq/cli/internal/logging"
	"cortexq/cli/internal/repair"

	"github.com/spf13/cobra"
)

// queryCmd runs one ad hoc statement with the same capacity retry policy as completions.
var queryCmd = &cobra.Command{
	Use:   "query <sql> [params...]",
	Short: "Run a SQL statement and print the rows as JSON",
	Long: `The query command runs one statement on the backend and prints
{"columns": [...], "rows": [[...]]}. Extra arguments are bound as $1, $2, ...

Capacity errors are retried like completion requests.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStack()
		if err != nil {
			return err
		}
		defer st.close()

		params := make([]any, 0, len(args)-1)
		for _, a := range args[1:] {
			params = append(params, a)
		}

		res, err := st.exec.Execute(cmd.Context(), args[0], params...)
		switch {
		case cqerrors.IsKind(err, cqerrors.BackendBusy):
			fmt.Fprint(cmd.ErrOrStderr(), logging.FormatOutcome(repair.StatusBackendBusy, ""))
			return outcomeError(repair.StatusBackendBusy)
		case err != nil:
			return err
		}

		b, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(b))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(queryCmd)
}
