package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"
)

// Version information, set at build time with -ldflags "-X".
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

type buildInfo struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
	UserAgent string `json:"user_agent"`
}

func currentBuildInfo() buildInfo {
	return buildInfo{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		UserAgent: userAgent(),
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  "Print the veribits version, or the full build details with --verbose or --output json.",
	RunE: func(cmd *cobra.Command, args []string) error {
		verbose, _ := cmd.Flags().GetBool("verbose")
		out := cmd.OutOrStdout()
		info := currentBuildInfo()

		if appCtx := getAppContext(cmd); appCtx != nil && jsonOutput(appCtx) {
			data, err := json.MarshalIndent(info, "", "  ")
			if err != nil {
				return fmt.Errorf("marshal version: %w", err)
			}
			_, err = fmt.Fprintln(out, string(data))
			return err
		}

		if !verbose {
			fmt.Fprintf(out, "veribits version %s\n", info.Version)
			return nil
		}
		writeBuildInfo(out, info)
		return nil
	},
}

func writeBuildInfo(out io.Writer, info buildInfo) {
	fmt.Fprintln(out, "veribits build:")
	fmt.Fprintf(out, "  Version:    %s\n", info.Version)
	fmt.Fprintf(out, "  Git commit: %s\n", info.GitCommit)
	fmt.Fprintf(out, "  Built:      %s\n", info.BuildDate)
	fmt.Fprintf(out, "  Go:         %s\n", info.GoVersion)
	fmt.Fprintf(out, "  Platform:   %s\n", info.Platform)
	fmt.Fprintf(out, "  User agent: %s\n", info.UserAgent)
}

func init() {
	versionCmd.Flags().BoolP("verbose", "v", false, "Show build details")
}
