package cmd

import (
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func TestApplyIntDefault(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("concurrency", 0, "")

	var applied int
	applyIntDefault(flags, "concurrency", 15, func(v int) {
		applied = v
	})
	if applied != 15 {
		t.Fatalf("expected setter to receive 15, got %d", applied)
	}

	// When flag already set, setter should not run.
	if err := flags.Set("concurrency", "7"); err != nil {
		t.Fatalf("failed to set flag: %v", err)
	}
	applied = 0
	applyIntDefault(flags, "concurrency", 20, func(v int) {
		applied = v
	})
	if applied != 0 {
		t.Fatalf("setter should not run when flag overridden, got %d", applied)
	}
}

func TestApplyBoolDefault(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Bool("telemetry", false, "")

	applied := false
	applyBoolDefault(flags, "telemetry", true, func(v bool) {
		applied = v
	})
	if !applied {
		t.Fatal("expected setter to run with true")
	}

	if err := flags.Set("telemetry", "false"); err != nil {
		t.Fatalf("failed to set bool flag: %v", err)
	}
	applied = true
	applyBoolDefault(flags, "telemetry", true, func(v bool) {
		applied = v
	})
	if !applied {
		t.Fatalf("setter should not change value when flag already set")
	}
}

func TestApplyDurationAndStringDefault(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Duration("timeout", 0, "")
	flags.String("api-url", "", "")

	var timeout time.Duration
	applyDurationDefault(flags, "timeout", 5*time.Second, func(v time.Duration) { timeout = v })
	if timeout != 5*time.Second {
		t.Fatalf("expected 5s, got %v", timeout)
	}

	if err := flags.Set("api-url", "https://flag.example"); err != nil {
		t.Fatalf("failed to set flag: %v", err)
	}
	url := "unchanged"
	applyStringDefault(flags, "api-url", "https://config.example", func(v string) { url = v })
	if url != "unchanged" {
		t.Fatalf("explicit flag should win over config, got %s", url)
	}
}

func TestSetStringFlagIfUnset(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("addr", "", "")

	setStringFlagIfUnset(flags, "addr", "127.0.0.1:9000")
	if got := flags.Lookup("addr").Value.String(); got != "127.0.0.1:9000" {
		t.Fatalf("expected addr to be default, got %s", got)
	}

	if err := flags.Set("addr", "0.0.0.0:8089"); err != nil {
		t.Fatalf("failed to set addr: %v", err)
	}
	setStringFlagIfUnset(flags, "addr", "127.0.0.1:9001")
	if got := flags.Lookup("addr").Value.String(); got != "0.0.0.0:8089" {
		t.Fatalf("expected addr to remain user-provided, got %s", got)
	}
}

func TestNewCLIConfigDefaults(t *testing.T) {
	cfg := newCLIConfig()
	if cfg.Defaults.Output != outputText {
		t.Fatalf("unexpected output default: %s", cfg.Defaults.Output)
	}
	if cfg.Defaults.LogLevel != defaultLogLevel {
		t.Fatalf("unexpected log level: %s", cfg.Defaults.LogLevel)
	}
	if cfg.API.Timeout != 0 {
		t.Fatalf("requests should not time out by default, got %v", cfg.API.Timeout)
	}
	if cfg.Batch.Concurrency != defaultBatchConcurrency || cfg.Batch.RateLimit != defaultBatchRateLimit {
		t.Fatalf("unexpected batch defaults: %+v", cfg.Batch)
	}
	if cfg.Serve.Addr != defaultServeAddr {
		t.Fatalf("unexpected serve addr: %s", cfg.Serve.Addr)
	}
	if cfg.Serve.RateLimit != defaultServeRateLimit || cfg.Serve.RateBurst != defaultServeRateBurst {
		t.Fatalf("unexpected serve rate defaults: %+v", cfg.Serve)
	}
}

func TestLoadDefaultOverrides(t *testing.T) {
	t.Cleanup(viper.Reset)

	viper.Set("api.base_url", "https://staging.example")
	viper.Set("api.key", "cfg-key")
	viper.Set("api.timeout", "45s")
	viper.Set("defaults.output", "json")
	viper.Set("defaults.no_color", true)
	viper.Set("batch.concurrency", 8)
	viper.Set("serve.cors_origins", []string{"https://a.example"})
	viper.Set("serve.trusted_proxies", []string{"10.0.0.0/8"})

	overrides := loadDefaultOverrides()

	if overrides.BaseURL != "https://staging.example" || overrides.APIKey != "cfg-key" {
		t.Fatalf("unexpected api overrides: %+v", overrides)
	}
	if overrides.Timeout == nil || *overrides.Timeout != 45*time.Second {
		t.Fatalf("expected timeout override 45s, got %+v", overrides.Timeout)
	}
	if overrides.Output != "json" {
		t.Fatalf("expected output override json, got %s", overrides.Output)
	}
	if overrides.NoColor == nil || !*overrides.NoColor {
		t.Fatalf("expected no_color override true")
	}
	if overrides.BatchConcurrency == nil || *overrides.BatchConcurrency != 8 {
		t.Fatalf("expected concurrency override 8, got %+v", overrides.BatchConcurrency)
	}
	if len(overrides.ServeCORS) != 1 || overrides.ServeCORS[0] != "https://a.example" {
		t.Fatalf("unexpected cors override: %v", overrides.ServeCORS)
	}
	if len(overrides.ServeProxies) != 1 || overrides.ServeProxies[0] != "10.0.0.0/8" {
		t.Fatalf("unexpected trusted proxy override: %v", overrides.ServeProxies)
	}
	if overrides.Token != "" || overrides.BatchRateLimit != nil {
		t.Fatalf("unset keys should stay empty: %+v", overrides)
	}
}

func TestApplyConfigDefaults(t *testing.T) {
	t.Cleanup(func() {
		resetCommandFlags(t, rootCmd)
	})
	resetCommandFlags(t, rootCmd)

	viper.Set("api.token", "cfg-token")
	viper.Set("api.key", "cfg-key")
	viper.Set("batch.rate_limit", 2)
	viper.Set("serve.rate_burst", 99)
	viper.Set("serve.addr", "0.0.0.0:9999")

	// An explicit flag must beat the config value.
	if err := rootCmd.PersistentFlags().Set("api-key", "flag-key"); err != nil {
		t.Fatalf("failed to set api-key: %v", err)
	}

	applyConfigDefaults(&cobra.Command{Use: "root"})

	if cliConfig.API.Token != "cfg-token" {
		t.Fatalf("expected token from config, got %q", cliConfig.API.Token)
	}
	if cliConfig.API.APIKey != "flag-key" {
		t.Fatalf("expected flag api key to win, got %q", cliConfig.API.APIKey)
	}
	if cliConfig.Batch.RateLimit != 2 {
		t.Fatalf("expected batch rate limit 2, got %d", cliConfig.Batch.RateLimit)
	}
	if cliConfig.Serve.RateBurst != 99 {
		t.Fatalf("expected serve burst 99, got %d", cliConfig.Serve.RateBurst)
	}
	if cliConfig.Serve.Addr != "0.0.0.0:9999" {
		t.Fatalf("expected serve addr from config, got %s", cliConfig.Serve.Addr)
	}
}

func TestValidateOutput(t *testing.T) {
	for _, ok := range []string{"text", "json", "JSON", " text "} {
		if err := validateOutput(ok); err != nil {
			t.Errorf("validateOutput(%q) returned %v", ok, err)
		}
	}
	if err := validateOutput("yaml"); err == nil {
		t.Error("expected yaml to be rejected")
	}
}
