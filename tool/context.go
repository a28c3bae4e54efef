package tool

import (
	"context"

	"github.com/rivalscope/rivalscope/logging"
)

// Context carries per-invocation facilities into a tool call: the request
// context for cancellation, a logger, the function call ID for correlation
// and a scratchpad shared by all tool calls within one agent run.
type Context struct {
	ctx    context.Context
	logger logging.Logger
	callID string
	state  map[string]any
}

// NewContext constructs a tool Context. A nil state map gets a fresh one, so
// a standalone context is always usable.
func NewContext(ctx context.Context, logger logging.Logger, callID string, state map[string]any) *Context {
	if state == nil {
		state = make(map[string]any)
	}
	return &Context{
		ctx:    ctx,
		logger: logging.OrNoOp(logger),
		callID: callID,
		state:  state,
	}
}

// Context returns the request context for cancellation and deadlines.
func (c *Context) Context() context.Context { return c.ctx }

// Logger returns the invocation logger.
func (c *Context) Logger() logging.Logger { return c.logger }

// CallID returns the function call identifier correlating the model request
// with this execution.
func (c *Context) CallID() string { return c.callID }

// State returns the run-scoped scratchpad. Tool calls within one agent run
// share it; it is not synchronized, matching the sequential execution of
// tool calls in a turn.
func (c *Context) State() map[string]any { return c.state }
