package tools

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/khanhnv2901/veribits-cli/internal/client"
	"github.com/khanhnv2901/veribits-cli/internal/dispatch"
	"github.com/khanhnv2901/veribits-cli/internal/render"
)

// SecretsScan submits text for hard-coded credential detection.
type SecretsScan struct{}

type secretsRequest struct {
	Content string `json:"content"`
}

type secretFinding struct {
	Type     string      `json:"type"`
	Name     string      `json:"name"`
	Severity string      `json:"severity"`
	Value    string      `json:"value"`
	Line     render.Text `json:"line"`
	Context  string      `json:"context"`
	Entropy  render.Text `json:"entropy"`
}

type secretsReport struct {
	SecretsFound    render.Text     `json:"secrets_found"`
	Secrets         []secretFinding `json:"secrets"`
	RiskLevel       string          `json:"risk_level"`
	Recommendations []string        `json:"recommendations"`
}

func (SecretsScan) Spec() dispatch.Spec {
	return dispatch.Spec{
		Name:        "secrets-scan",
		Title:       "Secrets Scanner",
		Description: "Scan source or configuration text for leaked keys and passwords",
		Endpoint:    "/api/v1/security/secrets/scan",
		Auth:        client.AuthBearer,
		Envelope:    dispatch.EnvelopeSuccess,
		Fields: []dispatch.Field{
			{Name: "content", Usage: "text to scan", Kind: dispatch.FieldText, Required: true, Prompt: "Please enter content to scan"},
		},
		BusyLabel:       "Scanning...",
		FallbackMessage: "Scan failed",
	}
}

// BuildRequest keeps content verbatim so reported line numbers match the input.
func (SecretsScan) BuildRequest(in dispatch.Input) (any, error) {
	return secretsRequest{Content: in.Values["content"]}, nil
}

func (SecretsScan) Render(w io.Writer, data json.RawMessage) error {
	var rep secretsReport
	if err := render.Decode(data, &rep); err != nil {
		return err
	}

	render.Heading(w, "Secrets Scan")
	count, _ := rep.SecretsFound.Int()
	if count <= 0 && len(rep.Secrets) == 0 {
		fmt.Fprintln(w, render.Success("✓ No secrets detected!"))
	} else {
		if count <= 0 {
			count = len(rep.Secrets)
		}
		fmt.Fprintln(w, render.Danger(fmt.Sprintf("⚠️  Found %d secret(s)", count)))
		if rep.RiskLevel != "" {
			render.KV(w, "Risk Level", render.Severity(rep.RiskLevel))
		}
		for _, s := range rep.Secrets {
			fmt.Fprintln(w)
			render.Line(w, 1, "%s %s [%s]", render.SeverityIcon(s.Severity), render.Bold(render.OrDefault(s.Name, s.Type)), render.Severity(s.Severity))
			render.Line(w, 2, "Line %s | Type: %s", render.OrDefault(s.Line.String(), render.NotAvailable), render.OrDefault(s.Type, render.NotAvailable))
			if s.Value != "" {
				render.Line(w, 2, "%s", render.Faint(s.Value))
			}
		}
	}

	if len(rep.Recommendations) > 0 {
		render.Section(w, "Recommendations")
		for _, rec := range rep.Recommendations {
			render.Bullet(w, rec)
		}
	}
	return nil
}
