package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/khanhnv2901/veribits-cli/internal/client"
	sharedErrors "github.com/khanhnv2901/veribits-cli/internal/shared/errors"
	"github.com/spf13/cobra"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage stored API credentials",
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store an API key and/or bearer token",
	Long: `Store the values given with --api-key and --token in the credential file
(mode 0600). When neither flag is given and stdin is piped, the first line of
stdin is stored as the bearer token. Values not given keep their stored value.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)

		creds := client.Credentials{}
		if cmd.Flags().Changed("api-key") {
			creds.APIKey = strings.TrimSpace(appCtx.Config.API.APIKey)
		}
		if cmd.Flags().Changed("token") {
			creds.Token = strings.TrimSpace(appCtx.Config.API.Token)
		}
		if creds.Empty() && !stdinIsTerminal() {
			text, err := readStdin(cmd)
			if err != nil {
				return err
			}
			creds.Token = firstLine(text)
		}
		if creds.Empty() {
			return fmt.Errorf("%w: provide --api-key and/or --token", sharedErrors.ErrMissingRequired)
		}

		if err := appCtx.Credentials.Save(commandContext(cmd), creds); err != nil {
			return fmt.Errorf("save credentials: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Credentials saved to %s\n", colorSuccess("✓"), appCtx.Credentials.Path())
		return nil
	},
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show stored credentials",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)
		out := cmd.OutOrStdout()

		rec, err := appCtx.Credentials.Load(commandContext(cmd))
		if errors.Is(err, sharedErrors.ErrCredentialsNotFound) {
			fmt.Fprintf(out, "%s No stored credentials (%s)\n", colorWarn("!"), appCtx.Credentials.Path())
			fmt.Fprintln(out, "Tools that need an API key or token will be sent unauthenticated.")
			return nil
		}
		if err != nil {
			return err
		}

		fmt.Fprintf(out, "Credential file:  %s\n", appCtx.Credentials.Path())
		if !rec.UpdatedAt.IsZero() {
			fmt.Fprintf(out, "Updated:          %s\n", rec.UpdatedAt.Format(time.RFC3339))
		}
		fmt.Fprintf(out, "API key:          %s\n", maskSecret(rec.APIKey))
		fmt.Fprintf(out, "Bearer token:     %s\n", maskSecret(rec.Token))

		if rec.Token == "" {
			return nil
		}
		info, err := inspectToken(rec.Token)
		if err != nil {
			fmt.Fprintf(out, "Token type:       opaque (%v)\n", err)
			return nil
		}
		fmt.Fprintf(out, "Token subject:    %s\n", orNone(info.Subject))
		switch {
		case info.ExpiresAt.IsZero():
			fmt.Fprintf(out, "Token expires:    %s\n", "never")
		case info.Expired(time.Now()):
			fmt.Fprintf(out, "Token expires:    %s %s\n", info.ExpiresAt.Format(time.RFC3339), colorError("(expired)"))
		default:
			fmt.Fprintf(out, "Token expires:    %s %s\n", info.ExpiresAt.Format(time.RFC3339), colorSuccess("(valid)"))
		}
		return nil
	},
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove stored credentials",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)
		if err := appCtx.Credentials.Clear(commandContext(cmd)); err != nil {
			return fmt.Errorf("clear credentials: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Credentials removed\n", colorSuccess("✓"))
		return nil
	},
}

func init() {
	authCmd.AddCommand(authLoginCmd, authStatusCmd, authLogoutCmd)
	rootCmd.AddCommand(authCmd)
}

// tokenInfo is what the CLI shows about a bearer token. The signature is not
// checked; the backend is the only party that can verify it.
type tokenInfo struct {
	Subject   string
	ExpiresAt time.Time
}

func (t tokenInfo) Expired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && now.After(t.ExpiresAt)
}

func inspectToken(token string) (tokenInfo, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return tokenInfo{}, fmt.Errorf("%w: %v", sharedErrors.ErrInvalidToken, err)
	}

	info := tokenInfo{}
	if sub, err := claims.GetSubject(); err == nil {
		info.Subject = sub
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		info.ExpiresAt = exp.Time.UTC()
	}
	return info, nil
}

func maskSecret(secret string) string {
	secret = strings.TrimSpace(secret)
	switch {
	case secret == "":
		return "(not set)"
	case len(secret) <= 8:
		return strings.Repeat("*", len(secret))
	}
	return secret[:4] + strings.Repeat("*", 8) + secret[len(secret)-4:]
}

func firstLine(text string) string {
	line, _, _ := strings.Cut(strings.TrimLeft(text, "\r\n"), "\n")
	return strings.TrimSpace(line)
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
