package cmd

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/khanhnv2901/veribits-cli/cmd/testutil"
	"github.com/khanhnv2901/veribits-cli/internal/client"
	"github.com/khanhnv2901/veribits-cli/internal/credentials"
	"github.com/khanhnv2901/veribits-cli/internal/dispatch"
	"github.com/khanhnv2901/veribits-cli/internal/tools"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap/zaptest"
)

// setupTestAppContext builds an AppContext whose client talks to baseURL and
// whose data directory is a fresh temp dir. The returned func restores the
// previous global context.
func setupTestAppContext(t *testing.T, baseURL string) (*AppContext, func()) {
	t.Helper()

	original := globalAppContext
	originalNoColor := color.NoColor
	color.NoColor = true

	env := testutil.NewTestEnv(t)
	t.Setenv(dataDirEnvVar, env.DataDir)

	store, err := credentials.NewStore(env.DataDir)
	if err != nil {
		t.Fatalf("failed to create credential store: %v", err)
	}

	logger := zaptest.NewLogger(t)
	cfg := newCLIConfig()
	cfg.API.BaseURL = baseURL

	c := client.New(client.Config{BaseURL: baseURL, Logger: logger})
	appCtx := &AppContext{
		Logger:      logger,
		Config:      cfg,
		DataDir:     env.DataDir,
		Client:      c,
		Tools:       tools.NewRegistry(),
		Dispatcher:  dispatch.NewDispatcher(c, logger),
		Credentials: store,
	}
	globalAppContext = appCtx

	return appCtx, func() {
		globalAppContext = original
		color.NoColor = originalNoColor
	}
}

// stubTerminal makes stdin (and stderr) look like a terminal or a pipe.
func stubTerminal(t *testing.T, stdinTTY bool) {
	t.Helper()
	origIn, origErr := stdinIsTerminal, stderrIsTerminal
	stdinIsTerminal = func() bool { return stdinTTY }
	stderrIsTerminal = func() bool { return false }
	t.Cleanup(func() {
		stdinIsTerminal, stderrIsTerminal = origIn, origErr
	})
}

// execute runs cmd with args and returns what it wrote to stdout and stderr.
func execute(t *testing.T, cmd *cobra.Command, appCtx *AppContext, stdin string, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	ctx := context.WithValue(context.Background(), appContextKey{}, appCtx)
	err := cmd.ExecuteContext(ctx)
	return stdout.String(), stderr.String(), err
}

// resetCommandFlags puts every flag in the tree back to its default so
// tests that execute rootCmd do not leak state into each other.
func resetCommandFlags(t *testing.T, root *cobra.Command) {
	t.Helper()

	reset := func(fs *pflag.FlagSet) {
		fs.VisitAll(func(f *pflag.Flag) {
			if sv, ok := f.Value.(pflag.SliceValue); ok {
				_ = sv.Replace(nil)
			} else {
				_ = f.Value.Set(f.DefValue)
			}
			f.Changed = false
		})
	}

	var walk func(c *cobra.Command)
	walk = func(c *cobra.Command) {
		reset(c.Flags())
		reset(c.PersistentFlags())
		for _, sub := range c.Commands() {
			walk(sub)
		}
	}
	walk(root)
	cfgFile = ""
	*cliConfig = *newCLIConfig()
	viper.Reset()
}
