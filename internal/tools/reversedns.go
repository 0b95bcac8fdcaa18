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

// ReverseDNS looks up PTR records for a batch of addresses and optionally
// confirms them with a forward lookup.
type ReverseDNS struct{}

type reverseRequest struct {
	IPAddresses     []string `json:"ip_addresses"`
	ValidateForward bool     `json:"validate_forward"`
}

type forwardCheck struct {
	Hostname string      `json:"hostname"`
	Records  render.List `json:"records"`
	Matches  bool        `json:"matches"`
}

type reverseResult struct {
	IPAddress  string        `json:"ip_address"`
	PTRRecord  string        `json:"ptr_record"`
	ForwardDNS *forwardCheck `json:"forward_dns"`
	Error      string        `json:"error"`
}

type reverseReport struct {
	Results         []reverseResult `json:"results"`
	TotalLookups    render.Text     `json:"total_lookups"`
	ValidateForward *bool           `json:"validate_forward"`
}

func (ReverseDNS) Spec() dispatch.Spec {
	return dispatch.Spec{
		Name:        "reverse-dns",
		Title:       "Reverse DNS Lookup",
		Description: "Resolve PTR records for IP addresses and validate them against forward DNS",
		Endpoint:    "/api/v1/tools/reverse-dns",
		Auth:        client.AuthAPIKey,
		Envelope:    dispatch.EnvelopeStatus,
		Fields: []dispatch.Field{
			{Name: "ip_addresses", Usage: "IP addresses, one per line", Kind: dispatch.FieldList, Required: true, Prompt: "Please enter at least one IP address", EmptyListPrompt: "Please enter valid IP addresses"},
			{Name: "validate_forward", Usage: "confirm each PTR hostname resolves back to the address", Kind: dispatch.FieldBool, Default: "true"},
		},
		BusyLabel:       "Looking up...",
		FallbackMessage: "Lookup failed",
	}
}

func (ReverseDNS) BuildRequest(in dispatch.Input) (any, error) {
	ips := in.List("ip_addresses")
	if len(ips) == 0 {
		f, _ := ReverseDNS{}.Spec().Field("ip_addresses")
		return nil, dispatch.Invalid(f.Name, f.EmptyListPrompt)
	}
	return reverseRequest{IPAddresses: ips, ValidateForward: in.Flag("validate_forward", true)}, nil
}

// hasPTR treats the backend's placeholder string as a missing record.
func hasPTR(r reverseResult) bool {
	ptr := strings.TrimSpace(r.PTRRecord)
	return ptr != "" && ptr != render.NoPTR
}

// arpaName returns the in-addr.arpa or ip6.arpa name for ip, or "" if ip is
// not an address.
func arpaName(ip string) string {
	name, err := dns.ReverseAddr(strings.TrimSpace(ip))
	if err != nil {
		return ""
	}
	return name
}

func (ReverseDNS) Render(w io.Writer, data json.RawMessage) error {
	var rep reverseReport
	if err := render.Decode(data, &rep); err != nil {
		return err
	}

	total, _ := rep.TotalLookups.Int()
	if total < len(rep.Results) {
		total = len(rep.Results)
	}
	found := 0
	for _, r := range rep.Results {
		if hasPTR(r) {
			found++
		}
	}

	render.Heading(w, "Reverse DNS Lookup")
	render.KV(w, "Total Lookups", total)
	render.KV(w, "PTR Found", render.Success(found))
	render.KV(w, "No PTR", render.Danger(total-found))

	for _, r := range rep.Results {
		fmt.Fprintln(w)
		ok := hasPTR(r)
		render.Line(w, 1, "%s %s", render.Check(ok), render.Bold(render.OrDefault(r.IPAddress, render.NotAvailable)))
		if ok {
			render.Line(w, 2, "PTR Record: %s", render.Success(r.PTRRecord))
		} else {
			render.Line(w, 2, "PTR Record: %s", render.Danger(render.NoPTR))
		}
		if name := arpaName(r.IPAddress); name != "" {
			render.Line(w, 2, "Reverse Name: %s", render.Faint(name))
		}
		if fwd := r.ForwardDNS; fwd != nil {
			verdict := render.Danger("✗ Does not match")
			if fwd.Matches {
				verdict = render.Success("✓ Matches")
			}
			render.Line(w, 2, "Forward DNS Validation: %s", verdict)
			if fwd.Hostname != "" {
				render.Line(w, 3, "Hostname: %s", fwd.Hostname)
			}
			if len(fwd.Records) > 0 {
				render.Line(w, 3, "Records: %s", strings.Join(fwd.Records, ", "))
			}
		}
		if r.Error != "" {
			render.Line(w, 2, "%s", render.Danger("Error: "+r.Error))
		}
	}
	return nil
}
