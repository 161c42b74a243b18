// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	cqerrors "cortexq/cli/internal/errors"
	"cortexq/cli/internal/jsonextract"
	"cortexq/cli/internal/logging"
	"cortexq/cli/internal/repair"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	completeModel string
	completeFile  string
	completeJSON  bool
	completeQuiet bool
	completeRaw   bool
)

// completeCmd sends one prompt through the request pipeline.
var completeCmd = &cobra.Command{
	Use:   "complete [prompt]",
	Short: "Send a prompt to the model and print the answer",
	Long: `The complete command sends a prompt to the configured completion function.
The prompt is taken from the arguments, from --file, or from standard input.

With --json the answer is parsed as JSON; when that fails the model is asked once to
repair its own output. The exit code is non-zero for any outcome other than success.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		prompt, err := readPrompt(args, completeFile, cmd.InOrStdin())
		if err != nil {
			return err
		}
		model := modelOr(completeModel)

		st, err := openStack()
		if err != nil {
			return err
		}
		defer st.close()

		stop := func() {}
		if !completeQuiet {
			stop = startSpinner("Waiting for " + model)
		}
		res, err := st.pipeline.Request(cmd.Context(), repair.Request{
			Prompt:     prompt,
			Model:      model,
			ExpectJSON: completeJSON,
			Quiet:      completeQuiet,
		})
		stop()
		if err != nil {
			if cqerrors.IsKind(err, cqerrors.TokenLimit) {
				fmt.Fprint(cmd.ErrOrStderr(), logging.FormatTokenLimit(err.Error()))
				return &exitError{code: exitTokenLimit, msg: err.Error()}
			}
			return err
		}
		logger.Debug("request finished",
			zap.String("status", string(res.Status)),
			zap.Int("attempts", res.Attempts))

		return printResult(cmd.OutOrStdout(), cmd.ErrOrStderr(), res, completeRaw)
	},
}

// readPrompt takes the prompt from args, then file, then stdin.
func readPrompt(args []string, file string, stdin io.Reader) (string, error) {
	var prompt string
	switch {
	case len(args) > 0:
		prompt = strings.Join(args, " ")
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read prompt file: %w", err)
		}
		prompt = string(b)
	default:
		b, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read prompt from stdin: %w", err)
		}
		prompt = string(b)
	}
	if strings.TrimSpace(prompt) == "" {
		return "", errors.New("a prompt is required: pass it as an argument, with --file, or on stdin")
	}
	return prompt, nil
}

// printResult writes a successful answer to out, or the outcome message to errOut.
func printResult(out, errOut io.Writer, res *repair.Result, raw bool) error {
	if !res.OK() {
		fmt.Fprint(errOut, logging.FormatOutcome(res.Status, res.Text))
		return outcomeError(res.Status)
	}
	if res.Value == nil || raw {
		fmt.Fprintln(out, res.Text)
		return nil
	}
	s, err := jsonextract.Compact(res.Value)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, s)
	return nil
}

func init() {
	rootCmd.AddCommand(completeCmd)
	completeCmd.Flags().StringVarP(&completeModel, "model", "m", "", "Model identifier (defaults to the configured model)")
	completeCmd.Flags().StringVarP(&completeFile, "file", "f", "", "Read the prompt from a file")
	completeCmd.Flags().BoolVar(&completeJSON, "json", false, "Parse the answer as JSON, repairing it once if needed")
	completeCmd.Flags().BoolVarP(&completeQuiet, "quiet", "q", false, "Hide the spinner and repair warnings")
	completeCmd.Flags().BoolVar(&completeRaw, "raw", false, "Print the raw answer text even when JSON was parsed")
}
