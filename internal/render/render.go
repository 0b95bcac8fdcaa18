// Package render holds the terminal formatting shared by tool renderers.
package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"
)

var (
	Success = color.New(color.FgGreen).SprintFunc()
	Info    = color.New(color.FgCyan).SprintFunc()
	Warn    = color.New(color.FgYellow).SprintFunc()
	Danger  = color.New(color.FgRed).SprintFunc()
	Orange  = color.New(color.FgHiRed).SprintFunc()
	Bold    = color.New(color.Bold).SprintFunc()
	Faint   = color.New(color.Faint).SprintFunc()
)

// Placeholders for absent optional fields.
const (
	NotAvailable = "N/A"
	NoRecords    = "No records found"
	QueryFailed  = "Query failed"
	NoPTR        = "No PTR record found"
	DefaultFlag  = "🌐"
)

// DisableColor turns colour output off for every renderer.
func DisableColor(disabled bool) {
	color.NoColor = disabled
}

// Heading prints a bold title followed by an underline.
func Heading(w io.Writer, title string) {
	fmt.Fprintln(w, Bold(title))
	fmt.Fprintln(w, strings.Repeat("=", utf8.RuneCountInString(title)))
}

// Section prints a blank line and a sub-heading.
func Section(w io.Writer, title string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, Info(title))
}

// KV prints an indented "label: value" line.
func KV(w io.Writer, label string, value any) {
	fmt.Fprintf(w, "  %-18s %v\n", label+":", value)
}

// Line prints an indented line.
func Line(w io.Writer, indent int, format string, args ...any) {
	fmt.Fprintf(w, "%s%s\n", strings.Repeat("  ", indent), fmt.Sprintf(format, args...))
}

// Bullet prints "  • text".
func Bullet(w io.Writer, text string) {
	fmt.Fprintf(w, "  • %s\n", text)
}

// OrDefault returns def when s is blank.
func OrDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

// JoinOr joins items with ", " or returns def when there are none.
func JoinOr(items []string, def string) string {
	kept := make([]string, 0, len(items))
	for _, it := range items {
		if strings.TrimSpace(it) != "" {
			kept = append(kept, it)
		}
	}
	if len(kept) == 0 {
		return def
	}
	return strings.Join(kept, ", ")
}

// Truncate shortens s to n runes and appends "..." when it was cut.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "..."
}

// Percent returns round(part/total*100), or 0 when total is zero.
func Percent(part, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(total) * 100))
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// SeverityIcon maps a severity name to its marker.
func SeverityIcon(severity string) string {
	switch strings.ToLower(severity) {
	case "critical":
		return "🔴"
	case "high":
		return "🟠"
	case "medium":
		return "🟡"
	case "low":
		return "🟢"
	default:
		return "⚪"
	}
}

// Severity colours a severity label.
func Severity(severity string) string {
	label := strings.ToUpper(OrDefault(severity, "unknown"))
	switch strings.ToLower(severity) {
	case "critical":
		return Danger(label)
	case "high":
		return Orange(label)
	case "medium":
		return Warn(label)
	case "low":
		return Success(label)
	default:
		return label
	}
}

// Check returns a coloured tick or cross.
func Check(ok bool) string {
	if ok {
		return Success("✓")
	}
	return Danger("✗")
}

// JSON pretty-prints raw JSON.
func JSON(w io.Writer, data json.RawMessage) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return fmt.Errorf("format json: %w", err)
	}
	buf.WriteByte('\n')
	_, err := w.Write(buf.Bytes())
	return err
}

// Decode unmarshals a data payload into v. Absent fields keep zero values.
func Decode(data json.RawMessage, v any) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}
