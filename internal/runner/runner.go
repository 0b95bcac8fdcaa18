// Package runner executes many tool invocations with bounded concurrency and
// a global rate limit.
package runner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/khanhnv2901/veribits-cli/internal/dispatch"
)

// Executor runs one tool invocation. *dispatch.Dispatcher implements it.
type Executor interface {
	Run(ctx context.Context, tool dispatch.Tool, in dispatch.Input) dispatch.Result
}

// Lookup resolves a tool by name. *dispatch.Registry implements it.
type Lookup interface {
	Get(name string) (dispatch.Tool, error)
}

// Outcome pairs a job with its result.
type Outcome struct {
	Index  int             `json:"index"`
	Job    Job             `json:"job"`
	Result dispatch.Result `json:"result"`
}

// OutcomeFunc is called once per finished job, from the worker goroutine.
type OutcomeFunc func(o Outcome)

// Runner orchestrates invocations with concurrency and rate limiting.
type Runner struct {
	Concurrency int           // Maximum number of in-flight requests
	RateLimit   int           // Requests per second (global); 0 means unlimited
	Timeout     time.Duration // Per-request timeout; 0 means none
	Logger      *zap.Logger
}

// Run executes jobs and returns their outcomes in input order.
func (r *Runner) Run(ctx context.Context, exec Executor, tools Lookup, jobs []Job, onDone OutcomeFunc) []Outcome {
	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	limit := rate.Inf
	burst := 1
	if r.RateLimit > 0 {
		limit = rate.Limit(r.RateLimit)
		burst = r.RateLimit
	}
	limiter := rate.NewLimiter(limit, burst)

	concurrency := r.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	outcomes := make([]Outcome, len(jobs))

	for i, job := range jobs {
		wg.Add(1)
		go func(i int, job Job) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			out := Outcome{Index: i, Job: job}
			tool, err := tools.Get(job.Tool)
			if err != nil {
				out.Result = dispatch.ValidationResult(job.Tool, err)
			} else if err := limiter.Wait(ctx); err != nil {
				out.Result = dispatch.TransportResult(job.Tool, fmt.Errorf("rate limiter: %w", err))
			} else {
				jobCtx := ctx
				if r.Timeout > 0 {
					var cancel context.CancelFunc
					jobCtx, cancel = context.WithTimeout(ctx, r.Timeout)
					defer cancel()
				}
				out.Result = exec.Run(jobCtx, tool, job.Input())
			}

			logger.Debug("batch_job_done",
				zap.Int("index", i),
				zap.String("job", job.Label(i)),
				zap.String("tool", job.Tool),
				zap.String("kind", string(out.Result.Kind)),
			)
			if onDone != nil {
				onDone(out)
			}
			outcomes[i] = out
		}(i, job)
	}

	wg.Wait()
	return outcomes
}

// Failed counts outcomes that did not succeed.
func Failed(outcomes []Outcome) int {
	n := 0
	for _, o := range outcomes {
		if !o.Result.OK() {
			n++
		}
	}
	return n
}
