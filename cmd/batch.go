// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	cqerrors "cortexq/cli/internal/errors"
	"cortexq/cli/internal/repair"
	"cortexq/cli/internal/xdg"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"
)

var (
	batchModel  string
	batchOutput string
	batchRate   float64
	batchQuiet  bool
)

// batchItem is one entry of a batch file.
type batchItem struct {
	Name   string `yaml:"name"`
	Prompt string `yaml:"prompt"`
	Model  string `yaml:"model"`
	JSON   bool   `yaml:"json"`
}

// batchRecord is one line of the batch report.
type batchRecord struct {
	Name     string `json:"name"`
	Status   string `json:"status"`
	Attempts int    `json:"attempts,omitempty"`
	Value    any    `json:"value,omitempty"`
	Text     string `json:"text,omitempty"`
	Error    string `json:"error,omitempty"`
}

const (
	batchStatusTokenLimit = "token_limit"
	batchStatusError      = "error"
)

// requester is the part of the pipeline a batch run needs.
type requester interface {
	Request(ctx context.Context, req repair.Request) (*repair.Result, error)
}

var batchCmd = &cobra.Command{
	Use:   "batch <file.yaml>",
	Short: "Run a YAML list of prompts and write a JSON-lines report",
	Long: `The batch command runs every prompt in a YAML file, one after another:

  - name: summary
    prompt: Summarise the release notes as {"highlights": [...]}
    json: true
  - name: haiku
    prompt: Write a haiku about databases
    model: mistral-large

Each request produces one JSON line {name, status, value|text}. The report goes to
--output ("-" for stdout); without it a file is written under the XDG state directory.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read batch file: %w", err)
		}
		items, err := loadBatch(data)
		if err != nil {
			return err
		}

		st, err := openStack()
		if err != nil {
			return err
		}
		defer st.close()

		out, path, err := openReport(batchOutput, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		defer out.Close()

		r := batchRate
		if !cmd.Flags().Changed("rate") {
			r = cfg.RequestsPerSecond
		}
		counts, err := runBatch(cmd.Context(), st.pipeline, items, newLimiter(r), out, modelOr(batchModel), batchQuiet)
		if err != nil {
			return err
		}

		summary := make([]string, 0, len(counts))
		for _, s := range []string{string(repair.StatusSuccess), string(repair.StatusEmptyResponse),
			string(repair.StatusParseFailure), string(repair.StatusBackendBusy), batchStatusTokenLimit, batchStatusError} {
			if counts[s] > 0 {
				summary = append(summary, fmt.Sprintf("%s=%d", s, counts[s]))
			}
		}
		pterm.Fprintln(cmd.ErrOrStderr(), fmt.Sprintf("Ran %d prompts: %s", len(items), strings.Join(summary, " ")))
		if path != "" {
			pterm.Fprintln(cmd.ErrOrStderr(), "Report written to "+path)
		}
		if counts[string(repair.StatusSuccess)] != len(items) {
			return &exitError{code: exitFailure, msg: "some batch requests did not succeed"}
		}
		return nil
	},
}

// loadBatch decodes and validates a batch file. Unnamed items are numbered.
func loadBatch(data []byte) ([]batchItem, error) {
	var items []batchItem
	if err := yaml.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("parse batch file: %w", err)
	}
	if len(items) == 0 {
		return nil, errors.New("batch file has no prompts")
	}
	for i := range items {
		if strings.TrimSpace(items[i].Prompt) == "" {
			return nil, fmt.Errorf("batch item %d has an empty prompt", i+1)
		}
		if items[i].Name == "" {
			items[i].Name = fmt.Sprintf("item-%d", i+1)
		}
	}
	return items, nil
}

// newLimiter paces requests at perSecond; zero or less means no pacing.
func newLimiter(perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Limit(perSecond), 1)
}

// openReport returns the report writer. "-" selects stdout; an empty path creates a
// timestamped file in the state directory and returns its path.
func openReport(output string, stdout io.Writer) (io.WriteCloser, string, error) {
	if output == "-" {
		return nopCloser{stdout}, "", nil
	}
	if output == "" {
		dir, err := xdg.StateDir()
		if err != nil {
			return nil, "", err
		}
		output = filepath.Join(dir, "batch-"+time.Now().UTC().Format("20060102T150405Z")+".jsonl")
	}
	f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, "", fmt.Errorf("open report: %w", err)
	}
	return f, output, nil
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// runBatch runs items in order and writes one record per item to w. Per-item failures are
// recorded and the run continues; only cancellation or a write failure stops it.
func runBatch(ctx context.Context, p requester, items []batchItem, limiter *rate.Limiter, w io.Writer, defaultModel string, quiet bool) (map[string]int, error) {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	counts := make(map[string]int)

	for _, item := range items {
		if err := limiter.Wait(ctx); err != nil {
			return counts, err
		}
		model := item.Model
		if model == "" {
			model = defaultModel
		}

		rec := batchRecord{Name: item.Name}
		res, err := p.Request(ctx, repair.Request{Prompt: item.Prompt, Model: model, ExpectJSON: item.JSON, Quiet: quiet})
		switch {
		case err != nil && ctx.Err() != nil:
			return counts, ctx.Err()
		case err != nil && cqerrors.IsKind(err, cqerrors.TokenLimit):
			rec.Status = batchStatusTokenLimit
			rec.Error = err.Error()
		case err != nil:
			rec.Status = batchStatusError
			rec.Error = err.Error()
		default:
			rec.Status = string(res.Status)
			rec.Attempts = res.Attempts
			if res.Value != nil {
				rec.Value = res.Value
			} else {
				rec.Text = res.Text
			}
		}
		logger.Debug("batch item finished", zap.String("name", rec.Name), zap.String("status", rec.Status))

		counts[rec.Status]++
		if err := enc.Encode(rec); err != nil {
			return counts, fmt.Errorf("write report: %w", err)
		}
	}
	return counts, nil
}

func init() {
	rootCmd.AddCommand(batchCmd)
	batchCmd.Flags().StringVarP(&batchModel, "model", "m", "", "Default model for items without one")
	batchCmd.Flags().StringVarP(&batchOutput, "output", "o", "", `Report path ("-" for stdout)`)
	batchCmd.Flags().Float64Var(&batchRate, "rate", 0, "Maximum requests per second (0 = unlimited)")
	batchCmd.Flags().BoolVarP(&batchQuiet, "quiet", "q", false, "Lower repair warnings to debug level")
}
