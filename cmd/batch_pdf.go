package cmd

import (
	"bufio"
	"bytes"
	"fmt"
	"regexp"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/khanhnv2901/veribits-cli/internal/dispatch"
	"github.com/khanhnv2901/veribits-cli/internal/runner"
)

var ansiEscape = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// writeBatchPDF writes a printable summary of a batch run. Successful jobs
// carry the same rendering as the terminal, minus colour codes.
func writeBatchPDF(path string, appCtx *AppContext, outcomes []runner.Outcome, elapsed time.Duration) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, "VeriBits Batch Report", "", 1, "C", false, 0, "")
	pdf.Ln(5)

	results := make([]dispatch.Result, 0, len(outcomes))
	for _, o := range outcomes {
		results = append(results, o.Result)
	}
	okCount, errorCount := summarizeKinds(results)

	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Generated: %s", time.Now().UTC().Format(time.RFC3339)), "", 1, "", false, 0, "")
	if appCtx.Client != nil {
		pdf.CellFormat(0, 6, tr(fmt.Sprintf("Backend: %s", appCtx.Client.BaseURL())), "", 1, "", false, 0, "")
	}
	pdf.CellFormat(0, 6, fmt.Sprintf("Jobs: %d | Succeeded: %d | Failed: %d | Elapsed: %s",
		len(outcomes), okCount, errorCount, elapsed.Round(time.Millisecond)), "", 1, "", false, 0, "")
	pdf.Ln(5)

	for _, o := range outcomes {
		if pdf.GetY() > 250 {
			pdf.AddPage()
		}

		pdf.SetFont("Arial", "B", 11)
		pdf.SetFillColor(240, 240, 240)
		pdf.CellFormat(0, 7, tr(fmt.Sprintf("%s - %s", o.Job.Label(o.Index), o.Result.Kind)), "", 1, "", true, 0, "")
		pdf.Ln(1)

		pdf.SetFont("Courier", "", 8)
		if !o.Result.OK() {
			pdf.MultiCell(0, 4, tr("Error: "+o.Result.Message), "", "", false)
			pdf.Ln(3)
			continue
		}

		text, err := renderPlain(appCtx, o)
		if err != nil {
			pdf.MultiCell(0, 4, tr("Error: "+err.Error()), "", "", false)
			pdf.Ln(3)
			continue
		}
		scanner := bufio.NewScanner(bytes.NewReader(text))
		for scanner.Scan() {
			if pdf.GetY() > 275 {
				pdf.AddPage()
			}
			pdf.MultiCell(0, 4, tr(scanner.Text()), "", "", false)
		}
		pdf.Ln(3)
	}

	if err := pdf.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("write pdf report: %w", err)
	}
	return nil
}

func renderPlain(appCtx *AppContext, o runner.Outcome) ([]byte, error) {
	tool, err := appCtx.Tools.Get(o.Job.Tool)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := tool.Render(&buf, o.Result.Data); err != nil {
		return nil, err
	}
	return ansiEscape.ReplaceAll(buf.Bytes(), nil), nil
}
