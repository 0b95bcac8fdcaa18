package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/khanhnv2901/veribits-cli/internal/client"
	"github.com/khanhnv2901/veribits-cli/internal/credentials"
	"github.com/khanhnv2901/veribits-cli/internal/dispatch"
	"github.com/khanhnv2901/veribits-cli/internal/render"
	consts "github.com/khanhnv2901/veribits-cli/internal/shared/constants"
	"github.com/khanhnv2901/veribits-cli/internal/tools"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	envPrefix      = "VERIBITS"
	configFileName = ".veribits"
)

var cfgFile string

// AppContext carries everything a command needs once configuration is resolved.
type AppContext struct {
	Logger      *zap.Logger
	Config      *CLIConfig
	DataDir     string
	Client      *client.Client
	Tools       *dispatch.Registry
	Dispatcher  *dispatch.Dispatcher
	Credentials *credentials.Store
}

type appContextKey struct{}

var globalAppContext *AppContext

var rootCmd = &cobra.Command{
	Use:   "veribits",
	Short: "VeriBits diagnostics from the command line",
	Long: `veribits runs VeriBits tools (database connection audit, DNS propagation,
DNSSEC validation, reverse DNS, secrets scanning, URL encoding) against the
VeriBits API and renders the results in the terminal.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if appCtx := getAppContext(cmd); appCtx != nil && appCtx.Logger != nil {
			_ = appCtx.Logger.Sync()
		}
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %s\n", colorError("Error:"), err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentPreRunE = initApp

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.veribits.yaml)")
	flags.StringVar(&cliConfig.API.BaseURL, "api-url", consts.DefaultBaseURL, "VeriBits API base URL")
	flags.StringVar(&cliConfig.API.APIKey, "api-key", "", "API key (overrides env, config and stored credentials)")
	flags.StringVar(&cliConfig.API.Token, "token", "", "bearer token (overrides env, config and stored credentials)")
	flags.DurationVar(&cliConfig.API.Timeout, "timeout", 0, "per-request timeout, e.g. 30s (0 = none)")
	flags.StringVarP(&cliConfig.Defaults.Output, "output", "O", outputText, "output format: text or json")
	flags.BoolVar(&cliConfig.Defaults.NoColor, "no-color", false, "disable coloured output")
	flags.StringVar(&cliConfig.Defaults.LogLevel, "log-level", defaultLogLevel, "log level: debug, info, warn, error")
	flags.BoolVar(&cliConfig.Defaults.TelemetryEnabled, "telemetry", false, "append one JSON line per invocation to telemetry.jsonl in the data directory")

	rootCmd.AddCommand(versionCmd)
}

func initApp(cmd *cobra.Command, args []string) error {
	if err := initConfig(); err != nil {
		return err
	}
	applyConfigDefaults(cmd)

	if err := validateOutput(cliConfig.Defaults.Output); err != nil {
		return err
	}
	if cliConfig.Defaults.NoColor {
		render.DisableColor(true)
	}

	logger, err := newLogger(cliConfig.Defaults.LogLevel)
	if err != nil {
		return err
	}

	dataDir, err := getDataDir()
	if err != nil {
		return err
	}

	store, err := credentials.NewStore(dataDir)
	if err != nil {
		return fmt.Errorf("open credential store: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	creds := resolveCredentials(ctx, store, logger)

	c := client.New(client.Config{
		BaseURL:     cliConfig.API.BaseURL,
		Timeout:     cliConfig.API.Timeout,
		UserAgent:   userAgent(),
		Credentials: creds,
		Logger:      logger,
	})

	appCtx := &AppContext{
		Logger:      logger,
		Config:      cliConfig,
		DataDir:     dataDir,
		Client:      c,
		Tools:       tools.NewRegistry(),
		Dispatcher:  dispatch.NewDispatcher(c, logger),
		Credentials: store,
	}
	storeAppContext(cmd, appCtx)

	logger.Debug("configuration resolved",
		zap.String("api_url", c.BaseURL()),
		zap.String("data_dir", dataDir),
		zap.Bool("api_key", creds.APIKey != ""),
		zap.Bool("token", creds.Token != ""),
	)
	return nil
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath("$HOME")
		viper.SetConfigName(configFileName)
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	_ = viper.BindEnv("api.key", envPrefix+"_API_KEY")
	_ = viper.BindEnv("api.token", envPrefix+"_TOKEN", envPrefix+"_API_TOKEN")
	_ = viper.BindEnv("api.base_url", envPrefix+"_API_BASE_URL", envPrefix+"_API_URL")

	if err := viper.ReadInConfig(); err != nil {
		// An explicit --config must exist; the default file is optional.
		if cfgFile != "" {
			return fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	}
	return nil
}

// resolveCredentials fills credentials not given by flag, env or config from
// the credential file. A missing file is not an error.
func resolveCredentials(ctx context.Context, store *credentials.Store, logger *zap.Logger) client.Credentials {
	creds := client.Credentials{
		APIKey: strings.TrimSpace(cliConfig.API.APIKey),
		Token:  strings.TrimSpace(cliConfig.API.Token),
	}
	if creds.APIKey != "" && creds.Token != "" {
		return creds
	}
	stored, err := store.Credentials(ctx)
	if err != nil {
		logger.Debug("no stored credentials", zap.Error(err))
		return creds
	}
	return creds.Merge(stored)
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return nil, &ConfigError{Key: "log-level", Value: level, Err: err}
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}

func storeAppContext(cmd *cobra.Command, appCtx *AppContext) {
	globalAppContext = appCtx
	if cmd == nil {
		return
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(context.WithValue(ctx, appContextKey{}, appCtx))
}

func userAgent() string {
	return consts.DefaultUserAgent + "/" + Version
}

func getAppContext(cmd *cobra.Command) *AppContext {
	if cmd != nil {
		if ctx := cmd.Context(); ctx != nil {
			if appCtx, ok := ctx.Value(appContextKey{}).(*AppContext); ok {
				return appCtx
			}
		}
	}
	return globalAppContext
}
