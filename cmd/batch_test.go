package cmd

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cortexq/cli/internal/dsn"
	cqerrors "cortexq/cli/internal/errors"
	"cortexq/cli/internal/repair"

	"github.com/google/go-cmp/cmp"
)

func TestLoadBatch(t *testing.T) {
	data := []byte(`
- name: summary
  prompt: Summarise as JSON
  json: true
- prompt: Write a haiku
  model: mistral-large
`)
	got, err := loadBatch(data)
	if err != nil {
		t.Fatalf("loadBatch() error: %v", err)
	}
	want := []batchItem{
		{Name: "summary", Prompt: "Summarise as JSON", JSON: true},
		{Name: "item-2", Prompt: "Write a haiku", Model: "mistral-large"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("loadBatch() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadBatchInvalid(t *testing.T) {
	tests := map[string]string{
		"empty list":   "[]",
		"blank prompt": "- name: x\n  prompt: '  '\n",
		"not a list":   "name: x\nprompt: y\n",
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := loadBatch([]byte(data)); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

// scriptedRequester answers batch requests by prompt.
type scriptedRequester struct {
	results map[string]*repair.Result
	errs    map[string]error
	seen    []repair.Request
}

func (s *scriptedRequester) Request(ctx context.Context, req repair.Request) (*repair.Result, error) {
	s.seen = append(s.seen, req)
	if err, ok := s.errs[req.Prompt]; ok {
		return nil, err
	}
	return s.results[req.Prompt], nil
}

func TestRunBatch(t *testing.T) {
	stub := &scriptedRequester{
		results: map[string]*repair.Result{
			"p1": {Status: repair.StatusSuccess, Value: map[string]any{"ok": true}, Text: `{"ok": true}`, Attempts: 1},
			"p2": {Status: repair.StatusParseFailure, Text: "garbage", Attempts: 2},
			"p3": {Status: repair.StatusSuccess, Text: "plain text", Attempts: 1},
		},
		errs: map[string]error{
			"p4": cqerrors.Wrap(cqerrors.TokenLimit, "prompt too long", errors.New("max tokens exceeded")),
		},
	}
	items := []batchItem{
		{Name: "a", Prompt: "p1", JSON: true},
		{Name: "b", Prompt: "p2", JSON: true, Model: "reka-flash"},
		{Name: "c", Prompt: "p3"},
		{Name: "d", Prompt: "p4"},
	}

	var buf bytes.Buffer
	counts, err := runBatch(context.Background(), stub, items, newLimiter(0), &buf, "llama3-70b", true)
	if err != nil {
		t.Fatalf("runBatch() error: %v", err)
	}

	wantCounts := map[string]int{"success": 2, "parse_failure": 1, "token_limit": 1}
	if diff := cmp.Diff(wantCounts, counts); diff != "" {
		t.Errorf("counts mismatch (-want +got):\n%s", diff)
	}

	var records []map[string]any
	sc := bufio.NewScanner(&buf)
	for sc.Scan() {
		var rec map[string]any
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			t.Fatalf("report line %q is not JSON: %v", sc.Text(), err)
		}
		records = append(records, rec)
	}
	if len(records) != 4 {
		t.Fatalf("report has %d lines, want 4", len(records))
	}
	if v, ok := records[0]["value"].(map[string]any); !ok || v["ok"] != true {
		t.Errorf("record a should carry the parsed value, got %v", records[0])
	}
	if records[1]["text"] != "garbage" || records[1]["status"] != "parse_failure" {
		t.Errorf("record b = %v", records[1])
	}
	if records[2]["text"] != "plain text" {
		t.Errorf("record c = %v", records[2])
	}
	if records[3]["status"] != "token_limit" || !strings.Contains(records[3]["error"].(string), "max tokens") {
		t.Errorf("record d = %v", records[3])
	}

	gotModels := []string{}
	for _, r := range stub.seen {
		gotModels = append(gotModels, r.Model)
	}
	if diff := cmp.Diff([]string{"llama3-70b", "reka-flash", "llama3-70b", "llama3-70b"}, gotModels); diff != "" {
		t.Errorf("models mismatch (-want +got):\n%s", diff)
	}
}

func TestRunBatchStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	stub := &scriptedRequester{}

	var buf bytes.Buffer
	_, err := runBatch(ctx, stub, []batchItem{{Name: "a", Prompt: "p"}}, newLimiter(1), &buf, "m", true)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if len(stub.seen) != 0 {
		t.Errorf("no request should start after cancellation, got %d", len(stub.seen))
	}
}

func TestOpenReportDefaultsToStateDir(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_STATE_HOME", dir)

	w, path, err := openReport("", &bytes.Buffer{})
	if err != nil {
		t.Fatalf("openReport() error: %v", err)
	}
	defer w.Close()

	if filepath.Dir(path) != filepath.Join(dir, "cortexq") || !strings.HasSuffix(path, ".jsonl") {
		t.Errorf("report path = %s", path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("report file not created: %v", err)
	}
}

func TestOpenReportStdout(t *testing.T) {
	var stdout bytes.Buffer
	w, path, err := openReport("-", &stdout)
	if err != nil {
		t.Fatalf("openReport() error: %v", err)
	}
	if path != "" {
		t.Errorf("path = %q, want empty for stdout", path)
	}
	_, _ = w.Write([]byte("x"))
	_ = w.Close()
	if stdout.String() != "x" {
		t.Errorf("stdout = %q", stdout.String())
	}
}

func TestBatchLeavesNoReportWhenConnectionIsInvalid(t *testing.T) {
	stateDir := t.TempDir()
	t.Setenv("XDG_STATE_HOME", stateDir)
	t.Setenv("CORTEXQ_DSN", "postgres://user:pw@localhost:notaport/db")

	prevStore := openStore
	openStore = func() (dsn.Store, error) { return nil, errors.New("no keychain in tests") }
	defer func() { openStore = prevStore }()

	prevOutput := batchOutput
	batchOutput = ""
	defer func() { batchOutput = prevOutput }()

	file := filepath.Join(t.TempDir(), "batch.yaml")
	if err := os.WriteFile(file, []byte("- prompt: hello\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	err := batchCmd.RunE(batchCmd, []string{file})
	var parseErr *dsn.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected a DSN parse error, got %v", err)
	}

	entries, err := os.ReadDir(filepath.Join(stateDir, "cortexq"))
	if err != nil && !os.IsNotExist(err) {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("state dir should stay empty, found %d entries", len(entries))
	}
}
