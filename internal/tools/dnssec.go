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

const publicKeyDisplayLen = 80

// DNSSEC reports a domain's DNSSEC records and chain of trust.
type DNSSEC struct{}

type dnssecRequest struct {
	Domain string `json:"domain"`
}

type dnskeyRecord struct {
	Flags     render.Text `json:"flags"`
	Protocol  render.Text `json:"protocol"`
	Algorithm render.Text `json:"algorithm"`
	KeyTag    render.Text `json:"key_tag"`
	PublicKey string      `json:"public_key"`
}

type dsRecord struct {
	KeyTag     render.Text `json:"key_tag"`
	Algorithm  render.Text `json:"algorithm"`
	DigestType render.Text `json:"digest_type"`
	Digest     string      `json:"digest"`
}

type rrsigRecord struct {
	TypeCovered         string      `json:"type_covered"`
	Algorithm           render.Text `json:"algorithm"`
	SignerName          string      `json:"signer_name"`
	SignatureExpiration render.Text `json:"signature_expiration"`
	SignatureInception  render.Text `json:"signature_inception"`
}

type dnssecReport struct {
	Domain            string         `json:"domain"`
	DNSSECEnabled     bool           `json:"dnssec_enabled"`
	ValidationMessage string         `json:"validation_message"`
	DNSKEYRecords     []dnskeyRecord `json:"dnskey_records"`
	DSRecords         []dsRecord     `json:"ds_records"`
	RRSIGRecords      []rrsigRecord  `json:"rrsig_records"`
	ChainOfTrust      []string       `json:"chain_of_trust"`
}

func (DNSSEC) Spec() dispatch.Spec {
	return dispatch.Spec{
		Name:        "dnssec",
		Title:       "DNSSEC Validator",
		Description: "Inspect DNSKEY, DS and RRSIG records and the chain of trust for a domain",
		Endpoint:    "/api/v1/tools/dnssec-validate",
		Auth:        client.AuthAPIKey,
		Envelope:    dispatch.EnvelopeStatus,
		Fields: []dispatch.Field{
			{Name: "domain", Usage: "domain name to validate", Kind: dispatch.FieldText, Required: true, Prompt: "Please enter a domain name"},
		},
		BusyLabel:       "Validating...",
		FallbackMessage: "Validation failed",
	}
}

func (DNSSEC) BuildRequest(in dispatch.Input) (any, error) {
	return dnssecRequest{Domain: in.Text("domain")}, nil
}

// keyRole names the DNSKEY role encoded in its flags field.
func keyRole(flags int) string {
	switch flags {
	case dns.ZONE | dns.SEP:
		return "Key-Signing Key"
	case dns.ZONE:
		return "Zone-Signing Key"
	default:
		return ""
	}
}

// algorithmName appends the DNSSEC algorithm mnemonic when the number is known.
func algorithmName(t render.Text) string {
	raw := render.OrDefault(t.String(), render.NotAvailable)
	n, ok := t.Int()
	if !ok || n < 0 || n > 255 {
		return raw
	}
	if name, known := dns.AlgorithmToString[uint8(n)]; known {
		return fmt.Sprintf("%d (%s)", n, name)
	}
	return raw
}

// digestName appends the DS digest mnemonic when the number is known.
func digestName(t render.Text) string {
	raw := render.OrDefault(t.String(), render.NotAvailable)
	n, ok := t.Int()
	if !ok || n < 0 || n > 255 {
		return raw
	}
	if name, known := dns.HashToString[uint8(n)]; known {
		return fmt.Sprintf("%d (%s)", n, name)
	}
	return raw
}

func (DNSSEC) Render(w io.Writer, data json.RawMessage) error {
	var rep dnssecReport
	if err := render.Decode(data, &rep); err != nil {
		return err
	}

	render.Heading(w, "DNSSEC Validation")
	if rep.DNSSECEnabled {
		fmt.Fprintln(w, render.Success("✓ DNSSEC Enabled"))
	} else {
		fmt.Fprintln(w, render.Danger("✗ DNSSEC Not Enabled"))
	}
	if rep.ValidationMessage != "" {
		render.Line(w, 1, "%s", rep.ValidationMessage)
	}

	if len(rep.DNSKEYRecords) > 0 {
		render.Section(w, fmt.Sprintf("DNSKEY Records (%d)", len(rep.DNSKEYRecords)))
		for i, key := range rep.DNSKEYRecords {
			if i > 0 {
				fmt.Fprintln(w)
			}
			flags := render.OrDefault(key.Flags.String(), render.NotAvailable)
			if n, ok := key.Flags.Int(); ok {
				if role := keyRole(n); role != "" {
					flags = fmt.Sprintf("%s (%s)", flags, role)
				}
			}
			render.KV(w, "Flags", flags)
			render.KV(w, "Protocol", render.OrDefault(key.Protocol.String(), render.NotAvailable))
			render.KV(w, "Algorithm", algorithmName(key.Algorithm))
			render.KV(w, "Key Tag", render.OrDefault(key.KeyTag.String(), render.NotAvailable))
			render.KV(w, "Public Key", render.Truncate(render.OrDefault(key.PublicKey, render.NotAvailable), publicKeyDisplayLen))
		}
	}

	if len(rep.DSRecords) > 0 {
		render.Section(w, fmt.Sprintf("DS Records (%d)", len(rep.DSRecords)))
		for i, ds := range rep.DSRecords {
			if i > 0 {
				fmt.Fprintln(w)
			}
			render.KV(w, "Key Tag", render.OrDefault(ds.KeyTag.String(), render.NotAvailable))
			render.KV(w, "Algorithm", algorithmName(ds.Algorithm))
			render.KV(w, "Digest Type", digestName(ds.DigestType))
			render.KV(w, "Digest", render.OrDefault(ds.Digest, render.NotAvailable))
		}
	}

	if len(rep.RRSIGRecords) > 0 {
		render.Section(w, fmt.Sprintf("RRSIG Records (%d)", len(rep.RRSIGRecords)))
		for i, sig := range rep.RRSIGRecords {
			if i > 0 {
				fmt.Fprintln(w)
			}
			render.KV(w, "Type Covered", render.OrDefault(sig.TypeCovered, render.NotAvailable))
			render.KV(w, "Algorithm", algorithmName(sig.Algorithm))
			render.KV(w, "Signer", render.OrDefault(sig.SignerName, render.NotAvailable))
			render.KV(w, "Expires", render.OrDefault(sig.SignatureExpiration.String(), render.NotAvailable))
			render.KV(w, "Inception", render.OrDefault(sig.SignatureInception.String(), render.NotAvailable))
		}
	}

	if len(rep.ChainOfTrust) > 0 {
		render.Section(w, "Chain of Trust")
		render.Line(w, 1, "%s", strings.Join(rep.ChainOfTrust, " → "))
	}
	return nil
}
