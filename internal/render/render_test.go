package render

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func init() {
	DisableColor(true)
}

func TestPercent(t *testing.T) {
	tests := []struct {
		part, total, want int
	}{
		{2, 3, 67},
		{1, 3, 33},
		{0, 0, 0},
		{5, 5, 100},
		{1, 8, 13},
	}
	for _, tt := range tests {
		if got := Percent(tt.part, tt.total); got != tt.want {
			t.Errorf("Percent(%d,%d)=%d want %d", tt.part, tt.total, got, tt.want)
		}
	}
}

func TestPlaceholders(t *testing.T) {
	if OrDefault("  ", NotAvailable) != "N/A" {
		t.Fatal("expected N/A for blank")
	}
	if JoinOr(nil, NoRecords) != "No records found" {
		t.Fatal("expected placeholder for empty list")
	}
	if JoinOr([]string{"a", "", "b"}, NoRecords) != "a, b" {
		t.Fatal("expected joined values")
	}
}

func TestTruncate(t *testing.T) {
	long := strings.Repeat("A", 100)
	got := Truncate(long, 80)
	if len(got) != 83 || !strings.HasSuffix(got, "...") {
		t.Fatalf("unexpected truncation %q", got)
	}
	if Truncate("short", 80) != "short" {
		t.Fatal("short strings must be unchanged")
	}
}

func TestSeverity(t *testing.T) {
	cases := map[string]string{"critical": "🔴", "HIGH": "🟠", "medium": "🟡", "low": "🟢", "info": "⚪", "": "⚪"}
	for sev, icon := range cases {
		if SeverityIcon(sev) != icon {
			t.Errorf("icon for %q = %q", sev, SeverityIcon(sev))
		}
	}
	if Severity("high") != "HIGH" {
		t.Fatalf("expected upper-cased label without colour, got %q", Severity("high"))
	}
	if Severity("") != "UNKNOWN" {
		t.Fatalf("expected UNKNOWN, got %q", Severity(""))
	}
}

func TestClamp(t *testing.T) {
	if Clamp(150, 0, 100) != 100 || Clamp(-3, 0, 100) != 0 || Clamp(42, 0, 100) != 42 {
		t.Fatal("clamp out of bounds")
	}
}

func TestJSONAndDecode(t *testing.T) {
	var buf bytes.Buffer
	if err := JSON(&buf, json.RawMessage(`{"a":1}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if buf.String() != "{\n  \"a\": 1\n}\n" {
		t.Fatalf("unexpected output %q", buf.String())
	}

	var v struct{ A int }
	if err := Decode(nil, &v); err != nil || v.A != 0 {
		t.Fatalf("empty payload should decode to zero value")
	}
	if err := Decode(json.RawMessage(`[`), &v); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestHeading(t *testing.T) {
	var buf bytes.Buffer
	Heading(&buf, "DNS Propagation")
	if buf.String() != "DNS Propagation\n===============\n" {
		t.Fatalf("unexpected heading %q", buf.String())
	}
}

func TestFlexibleTypes(t *testing.T) {
	var payload struct {
		A Text `json:"a"`
		B Text `json:"b"`
		C Text `json:"c"`
		D List `json:"d"`
		E List `json:"e"`
		F List `json:"f"`
	}
	raw := `{"a":"45.2ms","b":257,"c":null,"d":["1.2.3.4",5],"e":"only","f":null}`
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payload.A != "45.2ms" || payload.B != "257" || payload.C != "" {
		t.Fatalf("unexpected text values %+v", payload)
	}
	if n, ok := payload.B.Int(); !ok || n != 257 {
		t.Fatalf("expected int 257")
	}
	if _, ok := payload.A.Int(); ok {
		t.Fatal("45.2ms is not an integer")
	}
	if strings.Join(payload.D, ",") != "1.2.3.4,5" || len(payload.E) != 1 || payload.F != nil {
		t.Fatalf("unexpected lists %+v", payload)
	}
}
