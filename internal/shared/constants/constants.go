package constants

import (
	"io/fs"
	"time"
)

const (
	// DefaultDirPerm is the default permission used when creating directories.
	DefaultDirPerm fs.FileMode = 0o755
	// DefaultFilePerm is the default permission used when creating files.
	DefaultFilePerm fs.FileMode = 0o644
	// SecretFilePerm is used for files holding credentials.
	SecretFilePerm fs.FileMode = 0o600
)

const (
	// DefaultBaseURL is the public VeriBits deployment.
	DefaultBaseURL = "https://www.veribits.com"
	// APIPrefix is prepended to every tool endpoint.
	APIPrefix = "/api/v1"
	// DefaultUserAgent identifies the client to the backend.
	DefaultUserAgent = "veribits-cli"
	// MaxGatewayBodyBytes caps request bodies accepted by the local gateway.
	MaxGatewayBodyBytes = 1 << 20
	// BusyLabelDelay is how long a request may run before the busy label is drawn.
	BusyLabelDelay = 150 * time.Millisecond
)

const (
	// HeaderAPIKey carries the API key for tools using key auth.
	HeaderAPIKey = "X-API-Key"
	// HeaderRequestID correlates client, gateway and backend logs.
	HeaderRequestID = "X-Request-ID"
)
