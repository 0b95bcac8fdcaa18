package dispatch

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/khanhnv2901/veribits-cli/internal/client"
	sharedErrors "github.com/khanhnv2901/veribits-cli/internal/shared/errors"
)

// Transport sends one request and returns the raw response. *client.Client
// implements it.
type Transport interface {
	Do(ctx context.Context, req client.Request) (*client.Response, error)
}

// Validator is implemented by tools whose input checks depend on more than
// field presence. It runs before the generic required-field check.
type Validator interface {
	Validate(in Input) error
}

// Dispatcher runs tools against a transport.
type Dispatcher struct {
	transport Transport
	logger    *zap.Logger
}

// NewDispatcher returns a Dispatcher. A nil logger disables logging.
func NewDispatcher(t Transport, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{transport: t, logger: logger}
}

// Run performs one invocation of tool: presence check, request build, a single
// transport call and envelope normalization. It never returns a nil-valued
// Result; failures are carried in Result.Kind.
func (d *Dispatcher) Run(ctx context.Context, tool Tool, in Input) Result {
	if tool == nil {
		return Result{Kind: KindValidation, Message: sharedErrors.ErrNilTool.Error(), cause: sharedErrors.ErrNilTool}
	}
	spec := tool.Spec()
	in = in.withDefaults(spec)

	if err := CheckInput(tool, in); err != nil {
		d.logger.Debug("tool_input_rejected", zap.String("tool", spec.Name), zap.Error(err))
		return ValidationResult(spec.Name, err)
	}

	payload, err := tool.BuildRequest(in)
	if err != nil {
		return ValidationResult(spec.Name, err)
	}

	resp, err := d.transport.Do(ctx, client.Request{
		Method:   spec.HTTPMethod(),
		Endpoint: spec.Endpoint,
		Auth:     spec.Auth,
		Body:     payload,
	})
	if err != nil {
		d.logger.Warn("tool_transport_failed", zap.String("tool", spec.Name), zap.Error(err))
		return TransportResult(spec.Name, err)
	}

	res := Normalize(spec, resp)
	d.logger.Debug("tool_result",
		zap.String("tool", spec.Name),
		zap.String("endpoint", spec.Endpoint),
		zap.String("kind", string(res.Kind)),
		zap.Int("status", res.StatusCode),
		zap.Duration("duration", res.Duration),
		zap.String("request_id", res.RequestID),
	)
	return res
}

// CheckInput applies the tool's own validator, then the required-field and
// choice checks from its Spec. in should already carry defaults.
func CheckInput(tool Tool, in Input) error {
	if v, ok := tool.(Validator); ok {
		if err := v.Validate(in); err != nil {
			return err
		}
	}
	for _, f := range tool.Spec().Fields {
		if f.Kind == FieldBool {
			continue
		}
		value := in.Text(f.Name)
		if f.Required && value == "" {
			return missingField(f)
		}
		if f.Kind == FieldList && f.Required && len(SplitLines(value)) == 0 {
			return emptyList(f)
		}
		if value != "" && len(f.Choices) > 0 && !slices.ContainsFunc(f.Choices, func(c string) bool { return strings.EqualFold(c, value) }) {
			return Invalid(f.Name, fmt.Sprintf("Unsupported %s %q (expected one of %s)", f.Name, value, strings.Join(f.Choices, ", ")))
		}
	}
	return nil
}
