package cmd

import (
	"strings"
	"testing"
	"time"
)

func TestProgressPrinterLifecycle(t *testing.T) {
	var buf safeBuffer
	printer := newProgressPrinter(&buf, 0, "batch")
	if printer.total != 1 {
		t.Fatalf("expected total to be clamped to 1, got %d", printer.total)
	}

	printer.Start()
	printer.Increment(true, 500*time.Millisecond)
	printer.Increment(false, time.Second)
	time.Sleep(350 * time.Millisecond) // allow ticker to tick at least once
	printer.Stop()

	output := buf.String()
	if !strings.Contains(output, "Progress: 2/2") {
		t.Fatalf("expected summary progress, got %q", output)
	}
	if !strings.Contains(output, "OK:1") || !strings.Contains(output, "Fail:1") {
		t.Fatalf("expected OK/Fail counts in output, got %q", output)
	}
	if !strings.Contains(output, "Avg:0.75s") {
		t.Fatalf("expected average duration in output, got %q", output)
	}
}

func TestProgressPrinterStopIsIdempotent(t *testing.T) {
	var buf safeBuffer
	printer := newProgressPrinter(&buf, 3, "batch")
	printer.Start()
	printer.Stop()
	printer.Stop()

	if !strings.Contains(buf.String(), "Progress: 0/3") {
		t.Fatalf("expected empty progress line, got %q", buf.String())
	}
}
