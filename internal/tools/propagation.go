package tools

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/miekg/dns"

	"github.com/khanhnv2901/veribits-cli/internal/client"
	"github.com/khanhnv2901/veribits-cli/internal/dispatch"
	"github.com/khanhnv2901/veribits-cli/internal/render"
)

// PropagationRecordTypes are the record types the propagation endpoint accepts.
var PropagationRecordTypes = []string{"A", "AAAA", "CNAME", "MX", "TXT", "NS"}

// DNSPropagation checks how a record resolves across public resolvers.
type DNSPropagation struct{}

type propagationRequest struct {
	Domain     string `json:"domain"`
	RecordType string `json:"record_type"`
}

type propagationServer struct {
	Server    string      `json:"server"`
	Location  string      `json:"location"`
	Flag      string      `json:"flag"`
	Status    string      `json:"status"`
	Result    render.List `json:"result"`
	Error     string      `json:"error"`
	QueryTime render.Text `json:"query_time"`
}

type propagationReport struct {
	Domain       string              `json:"domain"`
	RecordType   string              `json:"record_type"`
	Servers      []propagationServer `json:"servers"`
	TotalServers render.Text         `json:"total_servers"`
}

// propagationSummary counts resolver outcomes.
type propagationSummary struct {
	Successful int
	Failed     int
	Total      int
	Percent    int
}

func (DNSPropagation) Spec() dispatch.Spec {
	return dispatch.Spec{
		Name:        "dns-propagation",
		Title:       "DNS Propagation Checker",
		Description: "Query a record across global resolvers and report how far it has propagated",
		Endpoint:    "/api/v1/tools/dns-propagation",
		Auth:        client.AuthAPIKey,
		Envelope:    dispatch.EnvelopeStatus,
		Fields: []dispatch.Field{
			{Name: "domain", Usage: "domain name to check", Kind: dispatch.FieldText, Required: true, Prompt: "Please enter a domain name"},
			{Name: "record_type", Usage: "record type (" + strings.Join(PropagationRecordTypes, ", ") + ")", Kind: dispatch.FieldText, Default: "A", Choices: PropagationRecordTypes},
		},
		BusyLabel:       "Checking...",
		FallbackMessage: "Check failed",
	}
}

func (DNSPropagation) BuildRequest(in dispatch.Input) (any, error) {
	rrtype, err := normalizeRecordType(in.TextOr("record_type", "A"))
	if err != nil {
		return nil, err
	}
	return propagationRequest{Domain: in.Text("domain"), RecordType: rrtype}, nil
}

// normalizeRecordType upper-cases a record type mnemonic and rejects names
// the DNS type registry does not know.
func normalizeRecordType(s string) (string, error) {
	upper := strings.ToUpper(strings.TrimSpace(s))
	t, ok := dns.StringToType[upper]
	if !ok {
		return "", dispatch.Invalid("record_type", fmt.Sprintf("Unknown record type %q", s))
	}
	return dns.TypeToString[t], nil
}

// summarizePropagation counts successful and failed resolvers. Servers with any other
// status are neither.
func summarizePropagation(servers []propagationServer) propagationSummary {
	s := propagationSummary{Total: len(servers)}
	for _, srv := range servers {
		switch srv.Status {
		case "success":
			s.Successful++
		case "error":
			s.Failed++
		}
	}
	s.Percent = render.Percent(s.Successful, s.Total)
	return s
}

func (DNSPropagation) Render(w io.Writer, data json.RawMessage) error {
	var rep propagationReport
	if err := render.Decode(data, &rep); err != nil {
		return err
	}
	sum := summarizePropagation(rep.Servers)

	title := "DNS Propagation"
	if rep.Domain != "" {
		title = fmt.Sprintf("DNS Propagation: %s", rep.Domain)
		if rep.RecordType != "" {
			title += fmt.Sprintf(" (%s)", rep.RecordType)
		}
	}
	render.Heading(w, title)
	render.KV(w, "Successful", render.Success(sum.Successful))
	render.KV(w, "Failed", render.Danger(sum.Failed))
	render.KV(w, "Propagation", render.Info(fmt.Sprintf("%d%%", sum.Percent)))

	if len(rep.Servers) == 0 {
		return nil
	}
	render.Section(w, "Resolvers")
	for _, srv := range rep.Servers {
		ok := srv.Status == "success"
		render.Line(w, 1, "%s %s %s  %s",
			render.OrDefault(srv.Flag, render.DefaultFlag),
			render.Check(ok),
			render.Bold(render.OrDefault(srv.Location, render.NotAvailable)),
			render.Faint(render.OrDefault(srv.QueryTime.String(), render.NotAvailable)),
		)
		render.Line(w, 2, "%s", render.OrDefault(srv.Server, render.NotAvailable))
		if ok {
			render.Line(w, 2, "%s", render.Success(render.JoinOr(srv.Result, render.NoRecords)))
		} else {
			render.Line(w, 2, "%s", render.Danger(render.OrDefault(srv.Error, render.QueryFailed)))
		}
	}
	return nil
}
