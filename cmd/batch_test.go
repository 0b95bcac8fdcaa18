package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/khanhnv2901/veribits-cli/cmd/testutil"
	"github.com/khanhnv2901/veribits-cli/internal/runner"
	sharedErrors "github.com/khanhnv2901/veribits-cli/internal/shared/errors"
)

const batchYAML = `jobs:
  - tool: dns-propagation
    values: {domain: example.com, record_type: MX}
  - name: broken
    tool: dnssec
    values: {domain: bad.example}
  - tool: url-encoder
    values: {text: "hello world"}
`

func runBatch(t *testing.T, appCtx *AppContext, path string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	batchCmd.SetOut(&out)
	batchCmd.SetErr(&out)
	batchCmd.SetContext(context.WithValue(context.Background(), appContextKey{}, appCtx))
	t.Cleanup(func() {
		batchCmd.SetOut(nil)
		batchCmd.SetErr(nil)
		batchCmd.SetContext(context.Background())
	})
	err := batchCmd.RunE(batchCmd, []string{path})
	return out.String(), err
}

func newBatchBackend(t *testing.T) *testutil.FakeBackend {
	t.Helper()
	backend := testutil.NewFakeBackend(t)
	backend.Handle("/api/v1/tools/dns-propagation", http.StatusOK, propagationBody)
	backend.Handle("/api/v1/tools/dnssec-validate", http.StatusBadGateway, `{"success":false,"error":"Upstream resolver unavailable"}`)
	backend.Handle("/api/v1/tools/url-encoder", http.StatusOK, `{"data":{"result":"hello%20world","details":{"operation":"encode","input_length":11,"output_length":13}}}`)
	return backend
}

func TestBatchCommandKeepsFileOrderAndFails(t *testing.T) {
	backend := newBatchBackend(t)
	appCtx, cleanup := setupTestAppContext(t, backend.URL)
	defer cleanup()
	appCtx.Config.Batch.RateLimit = 0

	env := testutil.NewTestEnv(t)
	path := env.CreateFile("jobs.yaml", []byte(batchYAML))

	out, err := runBatch(t, appCtx, path)

	var batchErr *BatchFailedError
	if !errors.As(err, &batchErr) {
		t.Fatalf("expected BatchFailedError, got %v", err)
	}
	if batchErr.Failed != 1 || batchErr.Total != 3 {
		t.Fatalf("unexpected failure counts: %+v", batchErr)
	}
	if !errors.Is(err, sharedErrors.ErrBatchFailed) {
		t.Fatalf("expected error to wrap ErrBatchFailed")
	}

	first := strings.Index(out, "#1 dns-propagation")
	second := strings.Index(out, "broken")
	third := strings.Index(out, "#3 url-encoder")
	if first < 0 || second < 0 || third < 0 || !(first < second && second < third) {
		t.Fatalf("expected results in file order, got:\n%s", out)
	}
	if !strings.Contains(out, "Upstream resolver unavailable") {
		t.Fatalf("expected backend error message, got:\n%s", out)
	}
	if !strings.Contains(out, "hello%20world") {
		t.Fatalf("expected rendered url-encoder result, got:\n%s", out)
	}
	if !strings.Contains(out, "2 succeeded, 1 failed") {
		t.Fatalf("expected summary line, got:\n%s", out)
	}
	if got := len(backend.Calls()); got != 3 {
		t.Fatalf("expected 3 backend calls, got %d", got)
	}
}

func TestBatchCommandJSONOutput(t *testing.T) {
	backend := newBatchBackend(t)
	appCtx, cleanup := setupTestAppContext(t, backend.URL)
	defer cleanup()
	appCtx.Config.Defaults.Output = outputJSON
	appCtx.Config.Batch.RateLimit = 0

	env := testutil.NewTestEnv(t)
	path := env.CreateFile("jobs.yaml", []byte(`- tool: url-encoder
  values: {text: "hello world"}
`))

	out, err := runBatch(t, appCtx, path)
	if err != nil {
		t.Fatalf("batch failed: %v", err)
	}

	var outcomes []runner.Outcome
	if err := json.Unmarshal([]byte(out), &outcomes); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if len(outcomes) != 1 || !outcomes[0].Result.OK() || outcomes[0].Job.Tool != "url-encoder" {
		t.Fatalf("unexpected outcomes: %+v", outcomes)
	}
}

func TestBatchCommandMissingFile(t *testing.T) {
	appCtx, cleanup := setupTestAppContext(t, "http://127.0.0.1:0")
	defer cleanup()

	if _, err := runBatch(t, appCtx, "does-not-exist.yaml"); err == nil {
		t.Fatal("expected error for missing batch file")
	}
}

func TestBatchCommandWritesPDFReport(t *testing.T) {
	backend := newBatchBackend(t)
	appCtx, cleanup := setupTestAppContext(t, backend.URL)
	defer cleanup()
	appCtx.Config.Batch.RateLimit = 0

	env := testutil.NewTestEnv(t)
	path := env.CreateFile("jobs.yaml", []byte(batchYAML))
	appCtx.Config.Batch.ReportPDF = filepath.Join(env.TmpDir, "report.pdf")

	out, err := runBatch(t, appCtx, path)
	if !errors.Is(err, sharedErrors.ErrBatchFailed) {
		t.Fatalf("expected batch failure to be reported after the PDF, got %v", err)
	}
	if !strings.Contains(out, "PDF report written to") {
		t.Fatalf("expected PDF confirmation, got:\n%s", out)
	}

	data, readErr := os.ReadFile(appCtx.Config.Batch.ReportPDF)
	if readErr != nil {
		t.Fatalf("expected PDF file: %v", readErr)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Fatalf("report does not look like a PDF: %q", data[:min(len(data), 16)])
	}
}
