// Package tools declares the VeriBits diagnostics as dispatch.Tool values.
package tools

import (
	"github.com/khanhnv2901/veribits-cli/internal/dispatch"
)

// All returns a fresh instance of every tool, in menu order.
func All() []dispatch.Tool {
	return []dispatch.Tool{
		DBAudit{},
		DNSPropagation{},
		DNSSEC{},
		ReverseDNS{},
		SecretsScan{},
		URLEncoder{},
	}
}

// NewRegistry returns a registry holding every tool.
func NewRegistry() *dispatch.Registry {
	reg, err := dispatch.NewRegistry(All()...)
	if err != nil {
		// names are static; a clash is a programming error
		panic(err)
	}
	return reg
}
