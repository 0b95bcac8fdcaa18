package dispatch

import (
	"context"
	"sync"

	sharedErrors "github.com/khanhnv2901/veribits-cli/internal/shared/errors"
)

// State is where a Controller is in its request cycle.
type State string

const (
	StateIdle     State = "idle"
	StateAwaiting State = "awaiting-response"
	StateSuccess  State = "success-rendered"
	StateError    State = "error-rendered"
)

// Observer is notified on every state transition. res is the zero Result
// until the controller leaves StateAwaiting.
type Observer func(state State, spec Spec, res Result)

// Controller binds one tool to a dispatcher and guards against duplicate
// submissions while a request is in flight. Separate controllers are
// independent.
type Controller struct {
	tool       Tool
	dispatcher *Dispatcher

	mu        sync.Mutex
	state     State
	last      Result
	observers []Observer
}

// NewController returns an idle controller for tool.
func NewController(tool Tool, d *Dispatcher) *Controller {
	return &Controller{tool: tool, dispatcher: d, state: StateIdle}
}

// Observe registers fn for state transitions.
func (c *Controller) Observe(fn Observer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, fn)
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Last returns the most recent completed result.
func (c *Controller) Last() Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// Submit runs one invocation. It returns ErrBusy without sending anything if
// a previous Submit on this controller has not finished.
func (c *Controller) Submit(ctx context.Context, in Input) (Result, error) {
	c.mu.Lock()
	if c.state == StateAwaiting {
		c.mu.Unlock()
		return Result{}, sharedErrors.ErrBusy
	}
	c.state = StateAwaiting
	c.mu.Unlock()

	spec := c.tool.Spec()
	c.notify(StateAwaiting, spec, Result{})

	res := c.dispatcher.Run(ctx, c.tool, in)

	done := StateSuccess
	if !res.OK() {
		done = StateError
	}
	c.mu.Lock()
	c.state = done
	c.last = res
	c.mu.Unlock()
	c.notify(done, spec, res)

	c.mu.Lock()
	c.state = StateIdle
	c.mu.Unlock()
	c.notify(StateIdle, spec, res)

	return res, nil
}

func (c *Controller) notify(state State, spec Spec, res Result) {
	c.mu.Lock()
	observers := append([]Observer(nil), c.observers...)
	c.mu.Unlock()
	for _, fn := range observers {
		fn(state, spec, res)
	}
}
