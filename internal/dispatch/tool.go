// Package dispatch drives VeriBits tools through one generic
// request/response cycle.
//
// A tool is declared as a Spec (endpoint, auth scheme, fields, envelope shape)
// plus two functions: BuildRequest turns user input into a JSON payload and
// Render turns the backend's data payload into terminal output. Everything
// else (presence checks, transport, envelope normalization) lives here.
package dispatch

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/khanhnv2901/veribits-cli/internal/client"
)

// EnvelopeKind describes how a backend endpoint reports success.
type EnvelopeKind string

const (
	// EnvelopeSuccess is {success, data, error}; success==true means ok.
	EnvelopeSuccess EnvelopeKind = "success"
	// EnvelopeStatus is {data, error|message}; a 2xx status means ok.
	EnvelopeStatus EnvelopeKind = "status"
)

// FieldKind is the shape of a single input field.
type FieldKind string

const (
	FieldText FieldKind = "text"
	FieldList FieldKind = "list"
	FieldBool FieldKind = "bool"
)

// Field describes one input the tool accepts.
type Field struct {
	Name     string    `json:"name"`
	Usage    string    `json:"usage"`
	Kind     FieldKind `json:"kind"`
	Required bool      `json:"required"`
	Default  string    `json:"default,omitempty"`
	// Choices restricts a text field to a fixed set of values.
	Choices []string `json:"choices,omitempty"`
	// Prompt is shown when a required field is empty.
	Prompt string `json:"prompt,omitempty"`
	// EmptyListPrompt is shown when a list field has text but no usable entries.
	EmptyListPrompt string `json:"-"`
}

// Spec is the static description of a tool.
type Spec struct {
	Name            string            `json:"name"`
	Title           string            `json:"title"`
	Description     string            `json:"description"`
	Endpoint        string            `json:"endpoint"`
	Method          string            `json:"method"`
	Auth            client.AuthScheme `json:"-"`
	Envelope        EnvelopeKind      `json:"envelope"`
	Fields          []Field           `json:"fields"`
	BusyLabel       string            `json:"-"`
	FallbackMessage string            `json:"-"`
}

// AuthName is the auth scheme as a string, for listings.
func (s Spec) AuthName() string {
	return s.Auth.String()
}

// HTTPMethod returns the request method, defaulting to POST.
func (s Spec) HTTPMethod() string {
	if s.Method == "" {
		return http.MethodPost
	}
	return s.Method
}

// Field returns the named field.
func (s Spec) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Primary returns the first required field, which the CLI fills from
// positional arguments.
func (s Spec) Primary() (Field, bool) {
	for _, f := range s.Fields {
		if f.Required {
			return f, true
		}
	}
	return Field{}, false
}

// MarshalJSON adds the auth scheme name to the listing form of a Spec.
func (s Spec) MarshalJSON() ([]byte, error) {
	type plain Spec
	return json.Marshal(struct {
		plain
		Method string `json:"method"`
		Auth   string `json:"auth"`
	}{plain: plain(s), Method: s.HTTPMethod(), Auth: s.AuthName()})
}

// Tool is one VeriBits diagnostic.
type Tool interface {
	Spec() Spec
	// BuildRequest returns the JSON payload for in. Required fields have
	// already been checked for presence.
	BuildRequest(in Input) (any, error)
	// Render writes a human-readable view of the data payload.
	Render(w io.Writer, data json.RawMessage) error
}
