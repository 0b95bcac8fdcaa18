package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show configuration, data directory paths and available tools",
	Long: `Display veribits configuration information including:
  - API endpoint and credential sources
  - Data directory locations
  - Configuration file paths
  - Platform information`,
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)

		dataDir, err := getDataDir()
		if err != nil {
			return fmt.Errorf("failed to get data directory: %w", err)
		}

		credentialsPath, err := getCredentialsFilePath()
		if err != nil {
			return fmt.Errorf("failed to get credentials file path: %w", err)
		}
		telemetryPath, err := getTelemetryFilePath()
		if err != nil {
			return fmt.Errorf("failed to get telemetry file path: %w", err)
		}

		configPath := viper.ConfigFileUsed()
		if configPath == "" {
			homeDir, _ := os.UserHomeDir()
			configPath = filepath.Join(homeDir, configFileName+".yaml")
		}

		out := cmd.OutOrStdout()

		fmt.Fprintln(out, "veribits System Information")
		fmt.Fprintln(out, "===========================")
		fmt.Fprintln(out)
		fmt.Fprintf(out, "Platform:          %s/%s\n", runtime.GOOS, runtime.GOARCH)
		fmt.Fprintf(out, "Version:           %s\n", Version)
		if appCtx != nil && appCtx.Client != nil {
			fmt.Fprintf(out, "API URL:           %s\n", appCtx.Client.BaseURL())
			creds := appCtx.Client.Credentials()
			fmt.Fprintf(out, "API key:           %s\n", presence(creds.APIKey != ""))
			fmt.Fprintf(out, "Bearer token:      %s\n", presence(creds.Token != ""))
		}
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Data Locations:")
		fmt.Fprintf(out, "  Data Directory:     %s\n", dataDir)
		fmt.Fprintf(out, "  Credentials File:   %s %s\n", credentialsPath, existence(credentialsPath, "(not created yet)"))
		fmt.Fprintf(out, "  Telemetry File:     %s %s\n", telemetryPath, existence(telemetryPath, "(not created yet)"))
		fmt.Fprintln(out)
		fmt.Fprintf(out, "Configuration File:   %s %s\n", configPath, existence(configPath, "(using defaults)"))
		fmt.Fprintln(out)
		fmt.Fprintf(out, "To override the data directory, set %s.\n", dataDirEnvVar)
		fmt.Fprintf(out, "Environment variables use the %s_ prefix, e.g. %s_API_KEY, %s_TOKEN, %s_API_BASE_URL.\n",
			envPrefix, envPrefix, envPrefix, envPrefix)

		if appCtx != nil && appCtx.Tools != nil {
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Tools:")
			for _, name := range appCtx.Tools.Names() {
				fmt.Fprintf(out, "  %s\n", name)
			}
		}

		return nil
	},
}

func existence(path, missing string) string {
	if _, err := os.Stat(path); err == nil {
		return "✓ (exists)"
	}
	return "✗ " + missing
}

func presence(set bool) string {
	if set {
		return colorSuccess("configured")
	}
	return colorWarn("not set")
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
