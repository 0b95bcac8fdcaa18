package cmd

import (
	"strings"

	"github.com/fatih/color"
	"github.com/khanhnv2901/veribits-cli/internal/dispatch"
)

var (
	colorSuccess = color.New(color.FgGreen).SprintFunc()
	colorInfo    = color.New(color.FgCyan).SprintFunc()
	colorWarn    = color.New(color.FgYellow).SprintFunc()
	colorError   = color.New(color.FgRed).SprintFunc()
)

func formatStatusWithColor(status string) string {
	switch strings.ToLower(status) {
	case "ok", "success", "pass":
		return colorSuccess(status)
	case "error", "fail", "failed", string(dispatch.KindTransport), string(dispatch.KindBackend), string(dispatch.KindDecode):
		return colorError(status)
	case string(dispatch.KindValidation):
		return colorWarn(status)
	default:
		return status
	}
}
