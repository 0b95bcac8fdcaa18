package client

import (
	"context"
	"strings"

	consts "github.com/khanhnv2901/veribits-cli/internal/shared/constants"
)

// AuthScheme selects which stored credential a tool endpoint expects.
type AuthScheme int

const (
	// AuthNone sends no credential.
	AuthNone AuthScheme = iota
	// AuthBearer sends "Authorization: Bearer <token>" when a token is present.
	AuthBearer
	// AuthAPIKey sends "X-API-Key: <key>" when a key is present.
	AuthAPIKey
	// AuthShared prefers the bearer token and falls back to the API key.
	AuthShared
)

func (a AuthScheme) String() string {
	switch a {
	case AuthBearer:
		return "bearer"
	case AuthAPIKey:
		return "api-key"
	case AuthShared:
		return "shared"
	default:
		return "none"
	}
}

// Credentials holds whatever the operator has stored. Either field may be empty;
// a missing credential never fails a request locally.
type Credentials struct {
	APIKey string `json:"api_key,omitempty"`
	Token  string `json:"token,omitempty"`
}

// Empty reports whether no credential is set.
func (c Credentials) Empty() bool {
	return strings.TrimSpace(c.APIKey) == "" && strings.TrimSpace(c.Token) == ""
}

// Merge fills blank fields of c from fallback.
func (c Credentials) Merge(fallback Credentials) Credentials {
	if strings.TrimSpace(c.APIKey) == "" {
		c.APIKey = fallback.APIKey
	}
	if strings.TrimSpace(c.Token) == "" {
		c.Token = fallback.Token
	}
	return c
}

// Headers returns the auth headers the scheme produces for creds.
func (a AuthScheme) Headers(creds Credentials) map[string]string {
	headers := map[string]string{}
	token := strings.TrimSpace(creds.Token)
	key := strings.TrimSpace(creds.APIKey)

	switch a {
	case AuthBearer:
		if token != "" {
			headers["Authorization"] = "Bearer " + token
		}
	case AuthAPIKey:
		if key != "" {
			headers[consts.HeaderAPIKey] = key
		}
	case AuthShared:
		if token != "" {
			headers["Authorization"] = "Bearer " + token
		} else if key != "" {
			headers[consts.HeaderAPIKey] = key
		}
	}
	return headers
}

type ctxKey int

const (
	credentialsKey ctxKey = iota
	requestIDKey
)

// WithCredentials overrides the client's default credentials for calls made with ctx.
// Blank fields fall back to the defaults.
func WithCredentials(ctx context.Context, creds Credentials) context.Context {
	return context.WithValue(ctx, credentialsKey, creds)
}

// CredentialsFromContext returns credentials stored by WithCredentials.
func CredentialsFromContext(ctx context.Context) (Credentials, bool) {
	creds, ok := ctx.Value(credentialsKey).(Credentials)
	return creds, ok
}

// WithRequestID makes outgoing calls reuse id instead of generating a new one.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext returns the id stored by WithRequestID.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}
