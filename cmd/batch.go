package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/khanhnv2901/veribits-cli/internal/dispatch"
	"github.com/khanhnv2901/veribits-cli/internal/runner"
	sharedErrors "github.com/khanhnv2901/veribits-cli/internal/shared/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var batchCmd = &cobra.Command{
	Use:   "batch <jobs.yaml>",
	Short: "Run many tool invocations from a YAML file",
	Long: `Run the jobs listed in a YAML file concurrently and print their results in
file order. The file is either a list of jobs or a mapping with a "jobs" key:

  jobs:
    - tool: dns-propagation
      values: {domain: example.com, record_type: MX}
    - name: office range
      tool: reverse-dns
      values: {ip_addresses: "8.8.8.8\n1.1.1.1"}
      flags: {validate_forward: false}

The command exits non-zero when any job fails.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)
		cfg := appCtx.Config.Batch

		jobs, err := runner.LoadJobs(args[0])
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
		defer stop()

		r := &runner.Runner{
			Concurrency: cfg.Concurrency,
			RateLimit:   cfg.RateLimit,
			Timeout:     appCtx.Config.API.Timeout,
			Logger:      appCtx.Logger,
		}

		var progress *progressPrinter
		if cfg.ProgressEnabled {
			progress = newProgressPrinter(cmd.ErrOrStderr(), len(jobs), "batch")
			progress.Start()
		}

		start := time.Now()
		outcomes := r.Run(ctx, appCtx.Dispatcher, appCtx.Tools, jobs, func(o runner.Outcome) {
			if progress != nil {
				progress.Increment(o.Result.OK(), o.Result.Duration)
			}
			maybeRecordTelemetry(appCtx, cmd.Name(), o.Result)
		})
		if progress != nil {
			progress.Stop()
		}

		appCtx.Logger.Info("batch finished",
			zap.Int("jobs", len(jobs)),
			zap.Int("failed", runner.Failed(outcomes)),
			zap.Duration("elapsed", time.Since(start)),
		)

		out := cmd.OutOrStdout()
		if jsonOutput(appCtx) {
			if err := writeBatchJSON(out, outcomes); err != nil {
				return err
			}
		} else {
			writeBatchText(out, appCtx, outcomes, time.Since(start))
		}

		if cfg.ReportPDF != "" {
			if err := writeBatchPDF(cfg.ReportPDF, appCtx, outcomes, time.Since(start)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%s PDF report written to %s\n", colorSuccess("✓"), cfg.ReportPDF)
		}

		if failed := runner.Failed(outcomes); failed > 0 {
			return &BatchFailedError{Failed: failed, Total: len(outcomes), Err: sharedErrors.ErrBatchFailed}
		}
		return nil
	},
}

func init() {
	batchCmd.Flags().IntVar(&cliConfig.Batch.Concurrency, "concurrency", defaultBatchConcurrency, "maximum concurrent requests")
	batchCmd.Flags().IntVar(&cliConfig.Batch.RateLimit, "rate-limit", defaultBatchRateLimit, "requests per second across all workers (0 = unlimited)")
	batchCmd.Flags().BoolVar(&cliConfig.Batch.ProgressEnabled, "progress", false, "show a live progress line on stderr")
	batchCmd.Flags().StringVar(&cliConfig.Batch.ReportPDF, "pdf", "", "also write a PDF report to this path")
	rootCmd.AddCommand(batchCmd)
}

func writeBatchJSON(out io.Writer, outcomes []runner.Outcome) error {
	data, err := json.MarshalIndent(outcomes, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal batch results: %w", err)
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}

func writeBatchText(out io.Writer, appCtx *AppContext, outcomes []runner.Outcome, elapsed time.Duration) {
	results := make([]dispatch.Result, 0, len(outcomes))
	for _, o := range outcomes {
		results = append(results, o.Result)

		status := string(o.Result.Kind)
		fmt.Fprintf(out, "%s %s (%s)\n", colorInfo("→"), o.Job.Label(o.Index), formatStatusWithColor(status))

		if !o.Result.OK() {
			fmt.Fprintf(out, "%s %s\n\n", colorError("Error:"), o.Result.Message)
			continue
		}

		tool, err := appCtx.Tools.Get(o.Job.Tool)
		if err != nil {
			fmt.Fprintf(out, "%s %v\n\n", colorError("Error:"), err)
			continue
		}
		if err := tool.Render(out, o.Result.Data); err != nil {
			fmt.Fprintf(out, "%s %v\n", colorError("Error:"), err)
		}
		fmt.Fprintln(out)
	}

	okCount, errorCount := summarizeKinds(results)
	summary := fmt.Sprintf("%d succeeded, %d failed in %s", okCount, errorCount, elapsed.Round(time.Millisecond))
	if errorCount > 0 {
		fmt.Fprintf(out, "%s %s\n", colorWarn("Summary:"), summary)
		return
	}
	fmt.Fprintf(out, "%s %s\n", colorSuccess("Summary:"), summary)
}
