package tools

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/khanhnv2901/veribits-cli/internal/client"
	"github.com/khanhnv2901/veribits-cli/internal/dispatch"
	"github.com/khanhnv2901/veribits-cli/internal/render"
	sharedErrors "github.com/khanhnv2901/veribits-cli/internal/shared/errors"
)

// URL encoder operations.
const (
	OperationEncode = "encode"
	OperationDecode = "decode"
)

// URLEncoder percent-encodes or decodes text on the server.
type URLEncoder struct{}

type urlRequest struct {
	Text      string `json:"text"`
	Operation string `json:"operation"`
}

type urlDetails struct {
	Operation    string      `json:"operation"`
	InputLength  render.Text `json:"input_length"`
	OutputLength render.Text `json:"output_length"`
}

type urlReport struct {
	Result  string      `json:"result"`
	Details *urlDetails `json:"details"`
}

func (URLEncoder) Spec() dispatch.Spec {
	return dispatch.Spec{
		Name:        "url-encoder",
		Title:       "URL Encoder/Decoder",
		Description: "Percent-encode or decode text",
		Endpoint:    "/api/v1/tools/url-encoder",
		Auth:        client.AuthShared,
		Envelope:    dispatch.EnvelopeStatus,
		Fields: []dispatch.Field{
			{Name: "text", Usage: "text to encode or decode", Kind: dispatch.FieldText, Required: true, Prompt: "Please enter text to encode"},
			{Name: "operation", Usage: "encode or decode", Kind: dispatch.FieldText, Default: OperationEncode, Choices: []string{OperationEncode, OperationDecode}},
		},
		BusyLabel:       "Processing...",
		FallbackMessage: "Request failed",
	}
}

// Validate words the empty-input prompt after the selected operation.
func (URLEncoder) Validate(in dispatch.Input) error {
	if in.Text("text") == "" {
		return &dispatch.InputError{
			Field:   "text",
			Message: "Please enter text to " + operation(in),
			Err:     sharedErrors.ErrMissingRequired,
		}
	}
	return nil
}

func operation(in dispatch.Input) string {
	return strings.ToLower(in.TextOr("operation", OperationEncode))
}

// BuildRequest sends the text untrimmed; whitespace is part of what gets encoded.
func (URLEncoder) BuildRequest(in dispatch.Input) (any, error) {
	return urlRequest{Text: in.Values["text"], Operation: operation(in)}, nil
}

func (URLEncoder) Render(w io.Writer, data json.RawMessage) error {
	var rep urlReport
	if err := render.Decode(data, &rep); err != nil {
		return err
	}

	render.Heading(w, "URL Encoder/Decoder")
	render.KV(w, "Result", render.Success(rep.Result))
	if d := rep.Details; d != nil {
		render.Section(w, "Details")
		render.KV(w, "Operation", render.OrDefault(d.Operation, render.NotAvailable))
		render.KV(w, "Input Length", lengthText(d.InputLength))
		render.KV(w, "Output Length", lengthText(d.OutputLength))
	}
	return nil
}

func lengthText(t render.Text) string {
	if t == "" {
		return render.NotAvailable
	}
	return fmt.Sprintf("%s characters", t)
}
