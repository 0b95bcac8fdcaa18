package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/khanhnv2901/veribits-cli/internal/dispatch"
	consts "github.com/khanhnv2901/veribits-cli/internal/shared/constants"
	"github.com/khanhnv2901/veribits-cli/internal/shared/security"
	"github.com/khanhnv2901/veribits-cli/internal/tools"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	stdinIsTerminal  = func() bool { return isTerminal(os.Stdin) }
	stderrIsTerminal = func() bool { return isTerminal(os.Stderr) }
)

func isTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// toolPreset pins field values for alias commands such as url-encode.
type toolPreset struct {
	use   string
	short string
	fixed map[string]string
}

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List available tools",
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)
		specs := appCtx.Tools.Specs()
		out := cmd.OutOrStdout()

		if jsonOutput(appCtx) {
			data, err := json.MarshalIndent(specs, "", "  ")
			if err != nil {
				return fmt.Errorf("marshal tool list: %w", err)
			}
			_, err = fmt.Fprintln(out, string(data))
			return err
		}

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "Tool\tEndpoint\tAuth\tEnvelope\tDescription")
		fmt.Fprintln(w, "----\t--------\t----\t--------\t-----------")
		for _, spec := range specs {
			fmt.Fprintf(w, "%s\t%s %s\t%s\t%s\t%s\n",
				colorInfo(spec.Name), spec.HTTPMethod(), spec.Endpoint, spec.AuthName(), spec.Envelope, spec.Description)
		}
		return w.Flush()
	},
}

func init() {
	for _, tool := range tools.All() {
		rootCmd.AddCommand(newToolCommand(tool, nil))
	}
	rootCmd.AddCommand(newToolCommand(tools.URLEncoder{}, &toolPreset{
		use:   "url-encode",
		short: "Percent-encode text",
		fixed: map[string]string{"operation": tools.OperationEncode},
	}))
	rootCmd.AddCommand(newToolCommand(tools.URLEncoder{}, &toolPreset{
		use:   "url-decode",
		short: "Decode percent-encoded text",
		fixed: map[string]string{"operation": tools.OperationDecode},
	}))
	rootCmd.AddCommand(toolsCmd)
}

// newToolCommand builds the cobra command for one tool. The first required
// field comes from positional arguments, --file or piped stdin. Every other
// field becomes a flag named after it.
func newToolCommand(tool dispatch.Tool, preset *toolPreset) *cobra.Command {
	spec := tool.Spec()
	primary, hasPrimary := spec.Primary()

	use := spec.Name
	short := spec.Title
	if preset != nil {
		use = preset.use
		short = preset.short
	}
	if hasPrimary {
		use = fmt.Sprintf("%s [%s...]", use, flagName(primary.Name))
	}

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Long:  spec.Description,
		RunE: func(cmd *cobra.Command, args []string) error {
			var fixed map[string]string
			if preset != nil {
				fixed = preset.fixed
			}
			return runToolCommand(cmd, spec.Name, fixed, args)
		},
	}

	if hasPrimary {
		cmd.Flags().StringP("file", "f", "", fmt.Sprintf("read %s from a file (- for stdin)", primary.Usage))
	}
	for _, f := range spec.Fields {
		if hasPrimary && f.Name == primary.Name {
			continue
		}
		if preset != nil {
			if _, pinned := preset.fixed[f.Name]; pinned {
				continue
			}
		}
		switch f.Kind {
		case dispatch.FieldBool:
			cmd.Flags().Bool(flagName(f.Name), f.Default == "true", f.Usage)
		default:
			cmd.Flags().String(flagName(f.Name), f.Default, f.Usage)
		}
	}
	return cmd
}

func runToolCommand(cmd *cobra.Command, name string, fixed map[string]string, args []string) error {
	appCtx := getAppContext(cmd)
	tool, err := appCtx.Tools.Get(name)
	if err != nil {
		return err
	}
	spec := tool.Spec()

	in, err := collectInput(cmd, spec, fixed, args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctrl := dispatch.NewController(tool, appCtx.Dispatcher)
	if appCtx.Logger != nil {
		logger := appCtx.Logger
		ctrl.Observe(func(state dispatch.State, spec dispatch.Spec, res dispatch.Result) {
			logger.Debug("tool state", zap.String("tool", spec.Name), zap.String("state", string(state)))
		})
	}
	if !jsonOutput(appCtx) && stderrIsTerminal() {
		busy := newBusyIndicator(cmd.ErrOrStderr(), consts.BusyLabelDelay)
		ctrl.Observe(busy.observe)
	}

	res, err := ctrl.Submit(ctx, in)
	if err != nil {
		return err
	}
	maybeRecordTelemetry(appCtx, cmd.Name(), res)

	return writeResult(cmd.OutOrStdout(), tool, res, jsonOutput(appCtx))
}

// collectInput gathers the invocation's values. Flags left at their
// defaults are omitted so the dispatcher's field defaults apply.
func collectInput(cmd *cobra.Command, spec dispatch.Spec, fixed map[string]string, args []string) (dispatch.Input, error) {
	in := dispatch.NewInput()

	primary, hasPrimary := spec.Primary()
	if hasPrimary {
		text, err := readPrimary(cmd, primary, args)
		if err != nil {
			return in, err
		}
		in.Set(primary.Name, text)
	} else if len(args) > 0 {
		return in, fmt.Errorf("%s takes no arguments", spec.Name)
	}

	for _, f := range spec.Fields {
		if hasPrimary && f.Name == primary.Name {
			continue
		}
		if v, ok := fixed[f.Name]; ok {
			in.Set(f.Name, v)
			continue
		}
		flag := cmd.Flags().Lookup(flagName(f.Name))
		if flag == nil || !flag.Changed {
			continue
		}
		if f.Kind == dispatch.FieldBool {
			v, err := cmd.Flags().GetBool(flag.Name)
			if err != nil {
				return in, err
			}
			in.SetFlag(f.Name, v)
			continue
		}
		in.Set(f.Name, flag.Value.String())
	}
	return in, nil
}

func readPrimary(cmd *cobra.Command, field dispatch.Field, args []string) (string, error) {
	file, _ := cmd.Flags().GetString("file")
	if len(args) > 0 && file != "" {
		return "", errors.New("give the input either as arguments or with --file, not both")
	}

	switch {
	case len(args) > 0:
		sep := " "
		if field.Kind == dispatch.FieldList {
			sep = "\n"
		}
		return strings.Join(args, sep), nil
	case file == "-":
		return readStdin(cmd)
	case file != "":
		data, err := security.ReadInputFile(file)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", file, err)
		}
		return string(data), nil
	case !stdinIsTerminal():
		return readStdin(cmd)
	}
	return "", nil
}

func readStdin(cmd *cobra.Command) (string, error) {
	data, err := security.ReadLimited(cmd.InOrStdin(), security.MaxInputBytes)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(data), nil
}

func writeResult(out io.Writer, tool dispatch.Tool, res dispatch.Result, asJSON bool) error {
	if asJSON {
		data, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal result: %w", err)
		}
		if _, err := fmt.Fprintln(out, string(data)); err != nil {
			return err
		}
		return res.Err()
	}

	if !res.OK() {
		return res.Err()
	}
	if err := tool.Render(out, res.Data); err != nil {
		return fmt.Errorf("render %s: %w", res.Tool, err)
	}
	return nil
}

func flagName(field string) string {
	return strings.ReplaceAll(field, "_", "-")
}

func jsonOutput(appCtx *AppContext) bool {
	return appCtx != nil && appCtx.Config != nil && strings.EqualFold(strings.TrimSpace(appCtx.Config.Defaults.Output), outputJSON)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// busyIndicator draws the tool's busy label on stderr when a request runs
// longer than delay, and clears it once the request finishes.
type busyIndicator struct {
	out   io.Writer
	delay time.Duration

	mu    sync.Mutex
	timer *time.Timer
	shown int
}

func newBusyIndicator(out io.Writer, delay time.Duration) *busyIndicator {
	return &busyIndicator{out: out, delay: delay}
}

func (b *busyIndicator) observe(state dispatch.State, spec dispatch.Spec, _ dispatch.Result) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if state == dispatch.StateAwaiting {
		label := spec.BusyLabel
		if label == "" {
			label = "Working..."
		}
		var t *time.Timer
		t = time.AfterFunc(b.delay, func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if b.timer != t {
				return
			}
			fmt.Fprint(b.out, colorInfo(label))
			b.shown = len(label)
		})
		b.timer = t
		return
	}

	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	if b.shown > 0 {
		fmt.Fprintf(b.out, "\r%s\r", strings.Repeat(" ", b.shown))
		b.shown = 0
	}
}
