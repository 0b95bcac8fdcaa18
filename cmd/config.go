package cmd

import (
	"strings"
	"time"

	consts "github.com/khanhnv2901/veribits-cli/internal/shared/constants"
	sharedErrors "github.com/khanhnv2901/veribits-cli/internal/shared/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	outputText = "text"
	outputJSON = "json"

	defaultLogLevel         = "warn"
	defaultBatchConcurrency = 4
	defaultBatchRateLimit   = 5
	defaultServeAddr        = "127.0.0.1:8089"
	defaultServeRateLimit   = 10
	defaultServeRateBurst   = 20
	defaultShutdownTimeout  = 30 * time.Second
)

// CLIConfig captures runtime configuration shared across commands.
type CLIConfig struct {
	API      APIConfig
	Defaults DefaultValues
	Batch    BatchConfig
	Serve    ServeConfig
}

// APIConfig locates the backend and holds credentials given by flag, env or config.
type APIConfig struct {
	BaseURL string
	APIKey  string
	Token   string
	Timeout time.Duration
}

// DefaultValues are presentation settings, typically derived from env/config.
type DefaultValues struct {
	Output           string
	NoColor          bool
	LogLevel         string
	TelemetryEnabled bool
}

// BatchConfig consolidates flag-driven settings for the batch command.
type BatchConfig struct {
	Concurrency     int
	RateLimit       int
	ProgressEnabled bool
	ReportPDF       string
}

// ServeConfig holds gateway settings.
type ServeConfig struct {
	Addr            string
	AuthToken       string
	CORSOrigins     []string
	TrustedProxies  []string
	RateLimit       int
	RateBurst       int
	ShutdownTimeout time.Duration
}

type defaultOverrides struct {
	BaseURL   string
	APIKey    string
	Token     string
	Timeout   *time.Duration
	Output    string
	NoColor   *bool
	LogLevel  string
	Telemetry *bool

	BatchConcurrency *int
	BatchRateLimit   *int
	BatchProgress    *bool

	ServeAddr      string
	ServeAuthToken string
	ServeCORS      []string
	ServeProxies   []string
	ServeRateLimit *int
	ServeRateBurst *int
}

var cliConfig = newCLIConfig()

func newCLIConfig() *CLIConfig {
	return &CLIConfig{
		API: APIConfig{
			BaseURL: consts.DefaultBaseURL,
		},
		Defaults: DefaultValues{
			Output:   outputText,
			LogLevel: defaultLogLevel,
		},
		Batch: BatchConfig{
			Concurrency:     defaultBatchConcurrency,
			RateLimit:       defaultBatchRateLimit,
			ProgressEnabled: false,
		},
		Serve: ServeConfig{
			Addr:            defaultServeAddr,
			CORSOrigins:     []string{},
			TrustedProxies:  []string{},
			RateLimit:       defaultServeRateLimit,
			RateBurst:       defaultServeRateBurst,
			ShutdownTimeout: defaultShutdownTimeout,
		},
	}
}

func loadDefaultOverrides() defaultOverrides {
	overrides := defaultOverrides{}

	overrides.BaseURL = strings.TrimSpace(viper.GetString("api.base_url"))
	overrides.APIKey = strings.TrimSpace(viper.GetString("api.key"))
	overrides.Token = strings.TrimSpace(viper.GetString("api.token"))

	if viper.IsSet("api.timeout") {
		val := viper.GetDuration("api.timeout")
		overrides.Timeout = &val
	}

	if viper.IsSet("defaults.output") {
		overrides.Output = viper.GetString("defaults.output")
	}

	if viper.IsSet("defaults.no_color") {
		val := viper.GetBool("defaults.no_color")
		overrides.NoColor = &val
	}

	if viper.IsSet("defaults.log_level") {
		overrides.LogLevel = viper.GetString("defaults.log_level")
	}

	if viper.IsSet("defaults.telemetry") {
		val := viper.GetBool("defaults.telemetry")
		overrides.Telemetry = &val
	}

	if viper.IsSet("batch.concurrency") {
		val := viper.GetInt("batch.concurrency")
		overrides.BatchConcurrency = &val
	}

	if viper.IsSet("batch.rate_limit") {
		val := viper.GetInt("batch.rate_limit")
		overrides.BatchRateLimit = &val
	}

	if viper.IsSet("batch.progress") {
		val := viper.GetBool("batch.progress")
		overrides.BatchProgress = &val
	}

	if viper.IsSet("serve.addr") {
		overrides.ServeAddr = viper.GetString("serve.addr")
	}

	if viper.IsSet("serve.auth_token") {
		overrides.ServeAuthToken = viper.GetString("serve.auth_token")
	}

	if viper.IsSet("serve.cors_origins") {
		overrides.ServeCORS = viper.GetStringSlice("serve.cors_origins")
	}

	if viper.IsSet("serve.trusted_proxies") {
		overrides.ServeProxies = viper.GetStringSlice("serve.trusted_proxies")
	}

	if viper.IsSet("serve.rate_limit") {
		val := viper.GetInt("serve.rate_limit")
		overrides.ServeRateLimit = &val
	}

	if viper.IsSet("serve.rate_burst") {
		val := viper.GetInt("serve.rate_burst")
		overrides.ServeRateBurst = &val
	}

	return overrides
}

// applyConfigDefaults merges config file and environment values into the
// runtime config when the user did not explicitly set the corresponding flag.
func applyConfigDefaults(cmd *cobra.Command) {
	overrides := loadDefaultOverrides()
	global := rootCmd.PersistentFlags()

	if overrides.BaseURL != "" {
		applyStringDefault(global, "api-url", overrides.BaseURL, func(v string) {
			cliConfig.API.BaseURL = v
		})
	}
	if overrides.APIKey != "" {
		applyStringDefault(global, "api-key", overrides.APIKey, func(v string) {
			cliConfig.API.APIKey = v
		})
	}
	if overrides.Token != "" {
		applyStringDefault(global, "token", overrides.Token, func(v string) {
			cliConfig.API.Token = v
		})
	}
	if overrides.Timeout != nil {
		applyDurationDefault(global, "timeout", *overrides.Timeout, func(v time.Duration) {
			cliConfig.API.Timeout = v
		})
	}

	if overrides.Output != "" {
		applyStringDefault(global, "output", overrides.Output, func(v string) {
			cliConfig.Defaults.Output = strings.ToLower(v)
		})
	}
	if overrides.NoColor != nil {
		applyBoolDefault(global, "no-color", *overrides.NoColor, func(v bool) {
			cliConfig.Defaults.NoColor = v
		})
	}
	if overrides.LogLevel != "" {
		applyStringDefault(global, "log-level", overrides.LogLevel, func(v string) {
			cliConfig.Defaults.LogLevel = v
		})
	}
	if overrides.Telemetry != nil {
		applyBoolDefault(global, "telemetry", *overrides.Telemetry, func(v bool) {
			cliConfig.Defaults.TelemetryEnabled = v
		})
	}

	if overrides.BatchConcurrency != nil {
		applyIntDefault(batchCmd.Flags(), "concurrency", *overrides.BatchConcurrency, func(v int) {
			cliConfig.Batch.Concurrency = v
		})
	}
	if overrides.BatchRateLimit != nil {
		applyIntDefault(batchCmd.Flags(), "rate-limit", *overrides.BatchRateLimit, func(v int) {
			cliConfig.Batch.RateLimit = v
		})
	}
	if overrides.BatchProgress != nil {
		applyBoolDefault(batchCmd.Flags(), "progress", *overrides.BatchProgress, func(v bool) {
			cliConfig.Batch.ProgressEnabled = v
		})
	}

	if overrides.ServeAddr != "" {
		setStringFlagIfUnset(serveCmd.Flags(), "addr", overrides.ServeAddr)
	}
	if overrides.ServeAuthToken != "" {
		setStringFlagIfUnset(serveCmd.Flags(), "auth-token", overrides.ServeAuthToken)
	}
	if len(overrides.ServeCORS) > 0 {
		if flag := serveCmd.Flags().Lookup("cors-origins"); flag == nil || !flag.Changed {
			cliConfig.Serve.CORSOrigins = append([]string(nil), overrides.ServeCORS...)
		}
	}
	if len(overrides.ServeProxies) > 0 {
		if flag := serveCmd.Flags().Lookup("trusted-proxies"); flag == nil || !flag.Changed {
			cliConfig.Serve.TrustedProxies = append([]string(nil), overrides.ServeProxies...)
		}
	}
	if overrides.ServeRateLimit != nil {
		applyIntDefault(serveCmd.Flags(), "rate-limit", *overrides.ServeRateLimit, func(v int) {
			cliConfig.Serve.RateLimit = v
		})
	}
	if overrides.ServeRateBurst != nil {
		applyIntDefault(serveCmd.Flags(), "rate-burst", *overrides.ServeRateBurst, func(v int) {
			cliConfig.Serve.RateBurst = v
		})
	}
}

func validateOutput(format string) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case outputText, outputJSON:
		return nil
	}
	return &ConfigError{Key: "output", Value: format, Err: sharedErrors.ErrInvalidOutput}
}

func applyIntDefault(flags *pflag.FlagSet, name string, value int, setter func(int)) {
	if flags == nil || setter == nil {
		return
	}
	flag := flags.Lookup(name)
	if flag != nil && flag.Changed {
		return
	}
	setter(value)
}

func applyBoolDefault(flags *pflag.FlagSet, name string, value bool, setter func(bool)) {
	if flags == nil || setter == nil {
		return
	}
	flag := flags.Lookup(name)
	if flag != nil && flag.Changed {
		return
	}
	setter(value)
}

func applyDurationDefault(flags *pflag.FlagSet, name string, value time.Duration, setter func(time.Duration)) {
	if flags == nil || setter == nil {
		return
	}
	flag := flags.Lookup(name)
	if flag != nil && flag.Changed {
		return
	}
	setter(value)
}

func applyStringDefault(flags *pflag.FlagSet, name, value string, setter func(string)) {
	if flags == nil || setter == nil {
		return
	}
	flag := flags.Lookup(name)
	if flag != nil && flag.Changed {
		return
	}
	setter(value)
}

func setStringFlagIfUnset(flags *pflag.FlagSet, name, value string) {
	if flags == nil {
		return
	}
	flag := flags.Lookup(name)
	if flag == nil || flag.Changed {
		return
	}
	_ = flag.Value.Set(value)
}
