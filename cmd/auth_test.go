package cmd

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/khanhnv2901/veribits-cli/internal/client"
	sharedErrors "github.com/khanhnv2901/veribits-cli/internal/shared/errors"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return tok
}

func TestInspectToken(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	tok := signedToken(t, jwt.MapClaims{"sub": "user-42", "exp": exp.Unix()})

	info, err := inspectToken(tok)
	if err != nil {
		t.Fatalf("inspectToken returned error: %v", err)
	}
	if info.Subject != "user-42" {
		t.Fatalf("expected subject user-42, got %q", info.Subject)
	}
	if !info.ExpiresAt.Equal(exp.UTC()) {
		t.Fatalf("expected expiry %v, got %v", exp.UTC(), info.ExpiresAt)
	}
	if info.Expired(time.Now()) {
		t.Fatal("token should not be expired")
	}
	if !info.Expired(exp.Add(time.Minute)) {
		t.Fatal("token should be expired after its exp claim")
	}
}

func TestInspectTokenOpaque(t *testing.T) {
	_, err := inspectToken("not-a-jwt")
	if !errors.Is(err, sharedErrors.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestMaskSecret(t *testing.T) {
	tests := map[string]string{
		"":                 "(not set)",
		"short":            "*****",
		"abcd1234efgh5678": "abcd********5678",
	}
	for in, want := range tests {
		if got := maskSecret(in); got != want {
			t.Errorf("maskSecret(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFirstLine(t *testing.T) {
	if got := firstLine("\n  tok-123  \nsecond\n"); got != "tok-123" {
		t.Fatalf("expected tok-123, got %q", got)
	}
}

func TestAuthStatusWithoutCredentials(t *testing.T) {
	appCtx, cleanup := setupTestAppContext(t, "http://127.0.0.1:0")
	defer cleanup()

	var out bytes.Buffer
	authStatusCmd.SetOut(&out)
	authStatusCmd.SetContext(context.WithValue(context.Background(), appContextKey{}, appCtx))
	t.Cleanup(func() { authStatusCmd.SetOut(nil) })

	if err := authStatusCmd.RunE(authStatusCmd, nil); err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if !strings.Contains(out.String(), "No stored credentials") {
		t.Fatalf("unexpected output: %s", out.String())
	}
}

func TestAuthStatusShowsTokenClaims(t *testing.T) {
	appCtx, cleanup := setupTestAppContext(t, "http://127.0.0.1:0")
	defer cleanup()

	tok := signedToken(t, jwt.MapClaims{"sub": "ops@example.com", "exp": time.Now().Add(-time.Hour).Unix()})
	if err := appCtx.Credentials.Save(context.Background(), client.Credentials{APIKey: "vb_live_0123456789", Token: tok}); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	var out bytes.Buffer
	authStatusCmd.SetOut(&out)
	authStatusCmd.SetContext(context.WithValue(context.Background(), appContextKey{}, appCtx))
	t.Cleanup(func() { authStatusCmd.SetOut(nil) })

	if err := authStatusCmd.RunE(authStatusCmd, nil); err != nil {
		t.Fatalf("status failed: %v", err)
	}
	output := out.String()
	for _, want := range []string{"vb_l********6789", "ops@example.com", "(expired)"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output:\n%s", want, output)
		}
	}
	if strings.Contains(output, tok) {
		t.Error("status must not print the raw token")
	}
}

// TestAuthLoginStatusLogout drives the real command tree, including config
// bootstrap, against a temporary home and data directory.
func TestAuthLoginStatusLogout(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv(dataDirEnvVar, t.TempDir())
	t.Setenv("VERIBITS_API_KEY", "")
	t.Setenv("VERIBITS_TOKEN", "")
	stubTerminal(t, true)
	t.Cleanup(func() {
		resetCommandFlags(t, rootCmd)
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})

	run := func(args ...string) (string, error) {
		resetCommandFlags(t, rootCmd)
		var out bytes.Buffer
		rootCmd.SetOut(&out)
		rootCmd.SetErr(&out)
		rootCmd.SetArgs(append([]string{"--no-color"}, args...))
		err := rootCmd.ExecuteContext(context.Background())
		return out.String(), err
	}

	out, err := run("auth", "login", "--api-key", "vb_test_abcdefgh1234")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if !strings.Contains(out, "Credentials saved") {
		t.Fatalf("unexpected login output: %s", out)
	}

	out, err = run("auth", "status")
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if !strings.Contains(out, "vb_t********1234") {
		t.Fatalf("expected masked key in status, got: %s", out)
	}

	if _, err := run("auth", "logout"); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	out, err = run("auth", "status")
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if !strings.Contains(out, "No stored credentials") {
		t.Fatalf("expected credentials to be removed, got: %s", out)
	}

	if _, err := run("auth", "login"); !errors.Is(err, sharedErrors.ErrMissingRequired) {
		t.Fatalf("expected ErrMissingRequired for empty login, got %v", err)
	}
}
