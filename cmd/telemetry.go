package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/khanhnv2901/veribits-cli/internal/dispatch"
	consts "github.com/khanhnv2901/veribits-cli/internal/shared/constants"
)

type telemetryRecord struct {
	Timestamp  time.Time `json:"timestamp"`
	Command    string    `json:"command"`
	Tool       string    `json:"tool"`
	Kind       string    `json:"kind"`
	HTTPStatus int       `json:"http_status,omitempty"`
	DurationMS float64   `json:"duration_ms"`
	RequestID  string    `json:"request_id,omitempty"`
}

// telemetryMu serializes appends from concurrent batch workers.
var telemetryMu sync.Mutex

func recordTelemetry(appCtx *AppContext, command string, res dispatch.Result) error {
	record := telemetryRecord{
		Timestamp:  time.Now().UTC(),
		Command:    command,
		Tool:       res.Tool,
		Kind:       string(res.Kind),
		HTTPStatus: res.StatusCode,
		DurationMS: float64(res.Duration) / float64(time.Millisecond),
		RequestID:  res.RequestID,
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal telemetry: %w", err)
	}

	telemetryPath := filepath.Join(appCtx.DataDir, telemetryFileName)

	telemetryMu.Lock()
	defer telemetryMu.Unlock()

	f, err := os.OpenFile(telemetryPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, consts.DefaultFilePerm)
	if err != nil {
		return fmt.Errorf("open telemetry file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write telemetry: %w", err)
	}

	return nil
}

// maybeRecordTelemetry writes a record when telemetry is enabled and logs
// rather than fails on write errors.
func maybeRecordTelemetry(appCtx *AppContext, command string, res dispatch.Result) {
	if appCtx == nil || appCtx.Config == nil || !appCtx.Config.Defaults.TelemetryEnabled {
		return
	}
	if err := recordTelemetry(appCtx, command, res); err != nil && appCtx.Logger != nil {
		appCtx.Logger.Sugar().Warnf("telemetry: %v", err)
	}
}

func summarizeKinds(results []dispatch.Result) (okCount, errorCount int) {
	for _, r := range results {
		if r.OK() {
			okCount++
		} else {
			errorCount++
		}
	}
	return okCount, errorCount
}
