package rivalscope

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rivalscope/rivalscope/agent"
	"github.com/rivalscope/rivalscope/config"
	"github.com/rivalscope/rivalscope/logging"
	"github.com/rivalscope/rivalscope/model"
	"github.com/rivalscope/rivalscope/tool/mcp"
)

// ErrAgentNotReady is returned when a request arrives while the agent cannot
// be initialized.
var ErrAgentNotReady = errors.New("agent is not initialized")

// RuntimeOptions configure a Runtime.
type RuntimeOptions struct {
	Logger logging.Logger

	// Keys overrides the credentials read from the environment. Zero value
	// means KeysFromEnv at initialization time.
	Keys *Keys

	// SelectModel overrides model selection. Nil uses SelectModel.
	SelectModel func(cfg *config.Config, keys Keys, logger logging.Logger) model.Model

	// StreamFunc receives text deltas during generation when the selected
	// model supports streaming.
	StreamFunc func(delta string)
}

// Runtime owns the agent lifecycle: it defers the expensive setup (MCP
// connections, toolkit construction, model selection) until the first
// request, performs it exactly once, and serves subsequent requests from the
// initialized agent. A failed initialization is retried on the next request.
type Runtime struct {
	cfg    *config.Config
	logger logging.Logger
	opts   RuntimeOptions

	mu          sync.Mutex
	initialized bool
	agent       *agent.Agent
	mcpServers  *mcp.MultiServer
}

// NewRuntime constructs an uninitialized Runtime over the given manifest.
func NewRuntime(cfg *config.Config, optFns ...func(o *RuntimeOptions)) *Runtime {
	opts := RuntimeOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Runtime{
		cfg:    cfg,
		logger: logging.OrNoOp(opts.Logger),
		opts:   opts,
	}
}

// Handle processes one conversation. The first call initializes the agent;
// concurrent first calls block until that single initialization completes.
func (r *Runtime) Handle(ctx context.Context, messages []model.Message) (*agent.Result, error) {
	a, err := r.ensureInitialized(ctx)
	if err != nil {
		return nil, err
	}
	return a.Run(ctx, messages)
}

// Ready reports whether the agent has been initialized.
func (r *Runtime) Ready() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.initialized
}

// Initialize performs the setup eagerly. Optional; Handle initializes on
// demand.
func (r *Runtime) Initialize(ctx context.Context) error {
	_, err := r.ensureInitialized(ctx)
	return err
}

func (r *Runtime) ensureInitialized(ctx context.Context) (*agent.Agent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.initialized {
		return r.agent, nil
	}

	r.logger.Info("runtime.init.start", "agent", r.cfg.Name)

	keys := KeysFromEnv()
	if r.opts.Keys != nil {
		keys = *r.opts.Keys
	}

	mcpServers := NewMCPServers(r.cfg, r.logger)
	if err := mcpServers.Connect(ctx); err != nil {
		return nil, fmt.Errorf("mcp connect: %w", err)
	}

	toolkits, err := BuildTools(keys, mcpServers, r.logger)
	if err != nil {
		mcpServers.Close()
		return nil, err
	}

	selectModel := r.opts.SelectModel
	if selectModel == nil {
		selectModel = SelectModel
	}
	llm := selectModel(r.cfg, keys, r.logger)

	a, err := BuildAgent(llm, toolkits, r.logger, r.opts.StreamFunc)
	if err != nil {
		mcpServers.Close()
		return nil, fmt.Errorf("%w: %v", ErrAgentNotReady, err)
	}

	r.mcpServers = mcpServers
	r.agent = a
	r.initialized = true

	r.logger.Info("runtime.init.complete", "agent", r.cfg.Name, "tools", len(a.ToolNames()))
	return a, nil
}

// Close releases the runtime's external connections. Safe to call on an
// uninitialized or already closed runtime.
func (r *Runtime) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.mcpServers != nil {
		r.mcpServers.Close()
		r.mcpServers = nil
	}
	r.initialized = false
	r.agent = nil
}
