package tools

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/khanhnv2901/veribits-cli/internal/client"
	"github.com/khanhnv2901/veribits-cli/internal/dispatch"
	"github.com/khanhnv2901/veribits-cli/internal/render"
)

// DBAudit sends a database connection string for a security review.
type DBAudit struct{}

type dbAuditRequest struct {
	ConnectionString string `json:"connection_string"`
}

type dbAuditIssue struct {
	Issue          string `json:"issue"`
	Severity       string `json:"severity"`
	Recommendation string `json:"recommendation"`
}

type dbAuditReport struct {
	DBType               string         `json:"db_type"`
	RiskScore            render.Text    `json:"risk_score"`
	RiskLevel            string         `json:"risk_level"`
	Issues               []dbAuditIssue `json:"issues"`
	Recommendations      []string       `json:"recommendations"`
	SecureAlternative    string         `json:"secure_alternative"`
	HasPlaintextPassword *bool          `json:"has_plaintext_password"`
	SSLEnabled           *bool          `json:"ssl_enabled"`
	UsesDefaultPort      *bool          `json:"uses_default_port"`
	PublicIP             *bool          `json:"public_ip"`
}

func (DBAudit) Spec() dispatch.Spec {
	return dispatch.Spec{
		Name:        "db-audit",
		Title:       "Database Connection Audit",
		Description: "Audit a database connection string for credential and transport risks",
		Endpoint:    "/api/v1/security/db-connection/audit",
		Auth:        client.AuthBearer,
		Envelope:    dispatch.EnvelopeSuccess,
		Fields: []dispatch.Field{
			{Name: "connection_string", Usage: "connection string or URI to audit", Kind: dispatch.FieldText, Required: true, Prompt: "Please enter a connection string"},
		},
		BusyLabel:       "Auditing...",
		FallbackMessage: "Audit failed",
	}
}

func (DBAudit) BuildRequest(in dispatch.Input) (any, error) {
	return dbAuditRequest{ConnectionString: in.Text("connection_string")}, nil
}

// riskLevelFor mirrors the backend's score bands for payloads without a level.
func riskLevelFor(score int) string {
	switch {
	case score >= 75:
		return "critical"
	case score >= 50:
		return "high"
	case score >= 25:
		return "medium"
	default:
		return "low"
	}
}

func (DBAudit) Render(w io.Writer, data json.RawMessage) error {
	var rep dbAuditReport
	if err := render.Decode(data, &rep); err != nil {
		return err
	}

	scoreText := render.NotAvailable
	score, hasScore := rep.RiskScore.Int()
	if hasScore {
		score = render.Clamp(score, 0, 100)
		scoreText = fmt.Sprintf("%d/100", score)
		if score > 50 {
			scoreText = render.Danger(scoreText)
		} else {
			scoreText = render.Success(scoreText)
		}
	}
	levelText := render.NotAvailable
	switch {
	case strings.TrimSpace(rep.RiskLevel) != "":
		levelText = render.Severity(rep.RiskLevel)
	case hasScore:
		levelText = render.Severity(riskLevelFor(score))
	}

	render.Heading(w, "Database Connection Audit")
	render.KV(w, "Database Type", render.OrDefault(rep.DBType, render.NotAvailable))
	render.KV(w, "Risk Score", scoreText)
	render.KV(w, "Risk Level", levelText)

	if checks := connectionChecks(rep); len(checks) > 0 {
		render.Section(w, "Checks")
		for _, c := range checks {
			render.Line(w, 1, "%s %s", render.Check(c.ok), c.label)
		}
	}

	if len(rep.Issues) == 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, render.Success("✓ No security issues found!"))
	} else {
		render.Section(w, "Issues Found")
		for _, issue := range rep.Issues {
			render.Line(w, 1, "%s %s [%s]", render.SeverityIcon(issue.Severity), render.Bold(render.OrDefault(issue.Issue, render.NotAvailable)), render.Severity(issue.Severity))
			if issue.Recommendation != "" {
				render.Line(w, 2, "💡 %s", issue.Recommendation)
			}
		}
	}

	if len(rep.Recommendations) > 0 {
		render.Section(w, "Recommendations")
		for _, rec := range rep.Recommendations {
			render.Bullet(w, rec)
		}
	}

	if rep.SecureAlternative != "" {
		render.Section(w, "Secure Alternative")
		for _, line := range strings.Split(rep.SecureAlternative, "\n") {
			render.Line(w, 1, "%s", line)
		}
	}
	return nil
}

type connectionCheck struct {
	label string
	ok    bool
}

// connectionChecks lists the boolean findings the backend reported, phrased so
// that ok means "no risk".
func connectionChecks(rep dbAuditReport) []connectionCheck {
	var out []connectionCheck
	add := func(v *bool, good bool, label string) {
		if v != nil {
			out = append(out, connectionCheck{label: label, ok: *v == good})
		}
	}
	add(rep.HasPlaintextPassword, false, "No plaintext password")
	add(rep.SSLEnabled, true, "SSL/TLS enabled")
	add(rep.UsesDefaultPort, false, "Non-default port")
	add(rep.PublicIP, false, "Private host")
	return out
}
