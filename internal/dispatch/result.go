package dispatch

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/khanhnv2901/veribits-cli/internal/client"
)

// Kind classifies the outcome of an invocation.
type Kind string

const (
	KindOK         Kind = "ok"
	KindValidation Kind = "validation"
	KindTransport  Kind = "transport"
	KindBackend    Kind = "backend"
	KindDecode     Kind = "decode"
)

// Message shown when a response that should carry data cannot be decoded.
const invalidJSONMessage = "Invalid JSON response from server"

// Result is the normalized outcome of one tool invocation: either Data (Kind
// ok) or a human-readable Message.
type Result struct {
	Tool       string          `json:"tool"`
	Kind       Kind            `json:"kind"`
	Data       json.RawMessage `json:"data,omitempty"`
	Message    string          `json:"message,omitempty"`
	StatusCode int             `json:"status_code,omitempty"`
	RequestID  string          `json:"request_id,omitempty"`
	Duration   time.Duration   `json:"duration"`

	cause error
}

// OK reports whether the invocation succeeded.
func (r Result) OK() bool {
	return r.Kind == KindOK
}

// Err returns nil for a successful result and a *ToolError otherwise.
func (r Result) Err() error {
	if r.OK() {
		return nil
	}
	return &ToolError{
		Tool:       r.Tool,
		Kind:       r.Kind,
		Message:    r.Message,
		StatusCode: r.StatusCode,
		Err:        r.cause,
	}
}

// ValidationResult builds the result for input rejected locally.
func ValidationResult(tool string, err error) Result {
	var inErr *InputError
	msg := err.Error()
	if errors.As(err, &inErr) {
		msg = inErr.Message
	}
	return Result{Tool: tool, Kind: KindValidation, Message: msg, cause: err}
}

// TransportResult builds the result for a request that never got a response.
func TransportResult(tool string, err error) Result {
	return Result{
		Tool:    tool,
		Kind:    KindTransport,
		Message: fmt.Sprintf("Network error: %s", err),
		cause:   err,
	}
}

// Normalize maps a raw backend response onto a Result using the tool's
// envelope shape.
func Normalize(spec Spec, resp *client.Response) Result {
	res := Result{
		Tool:       spec.Name,
		StatusCode: resp.StatusCode,
		RequestID:  resp.RequestID,
		Duration:   resp.Duration,
	}
	is2xx := resp.StatusCode >= 200 && resp.StatusCode < 300

	var env map[string]json.RawMessage
	if err := json.Unmarshal(resp.Body, &env); err != nil || env == nil {
		if is2xx {
			res.Kind = KindDecode
			res.Message = invalidJSONMessage
			return res
		}
		res.Kind = KindBackend
		res.Message = fallback(spec)
		return res
	}

	ok := is2xx
	if spec.Envelope == EnvelopeSuccess {
		ok = false
		if raw, found := env["success"]; found {
			_ = json.Unmarshal(raw, &ok)
		}
	}

	if !ok {
		res.Kind = KindBackend
		res.Message = ExtractErrorMessage(env, fallback(spec))
		return res
	}

	data, found := env["data"]
	if !found || isNull(data) {
		data = json.RawMessage(`{}`)
	}
	if !json.Valid(data) {
		res.Kind = KindDecode
		res.Message = invalidJSONMessage
		return res
	}
	res.Kind = KindOK
	res.Data = data
	return res
}

// ExtractErrorMessage finds a human-readable error in an envelope. It tries
// error.message, then error as a string, then message, then fallback.
func ExtractErrorMessage(env map[string]json.RawMessage, fallback string) string {
	if raw, ok := env["error"]; ok && !isNull(raw) {
		var nested struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(raw, &nested); err == nil && strings.TrimSpace(nested.Message) != "" {
			return nested.Message
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && strings.TrimSpace(s) != "" {
			return s
		}
	}
	if raw, ok := env["message"]; ok {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return fallback
}

func fallback(spec Spec) string {
	if spec.FallbackMessage != "" {
		return spec.FallbackMessage
	}
	return "Request failed"
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || strings.TrimSpace(string(raw)) == "null"
}
