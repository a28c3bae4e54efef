// Package mcp connects external Model Context Protocol servers over stdio and
// exposes their tools to the agent. Each configured command is spawned as a
// subprocess; connections are established concurrently and can be allowed to
// fail partially.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/sync/errgroup"

	"github.com/rivalscope/rivalscope/logging"
	"github.com/rivalscope/rivalscope/tool"
)

// Options configure the MCP multi-server connector.
type Options struct {
	// Timeout bounds each individual server connection attempt.
	Timeout time.Duration

	// AllowPartialFailure keeps going when some servers fail to connect, as
	// long as at least one succeeds (or none were configured).
	AllowPartialFailure bool

	// Env entries (KEY=VALUE) appended to each server subprocess environment.
	Env []string

	Logger logging.Logger
}

// MultiServer manages the lifecycle of several stdio MCP servers as one unit.
type MultiServer struct {
	commands []string
	opts     Options
	logger   logging.Logger

	mu       sync.Mutex
	sessions []*session
	tools    []tool.Tool
	closed   bool
}

type session struct {
	name string
	sess *sdk.ClientSession
}

// NewMultiServer constructs the connector for the given command lines. Each
// command line is split on whitespace into an executable and its arguments.
func NewMultiServer(commands []string, optFns ...func(o *Options)) *MultiServer {
	opts := Options{Timeout: 30 * time.Second}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &MultiServer{
		commands: commands,
		opts:     opts,
		logger:   logging.OrNoOp(opts.Logger),
	}
}

// Name implements tool.Toolkit.
func (m *MultiServer) Name() string { return "mcp" }

// Connect spawns and initializes all configured servers concurrently, then
// lists each server's tools once and caches the adapted set. With no commands
// configured it succeeds trivially. When partial failure is allowed, failed
// connections are logged and dropped; an error is returned only if every
// configured server failed.
func (m *MultiServer) Connect(ctx context.Context) error {
	if len(m.commands) == 0 {
		return nil
	}

	results := make([]*session, len(m.commands))
	errs := make([]error, len(m.commands))

	g, gctx := errgroup.WithContext(ctx)
	for i, command := range m.commands {
		g.Go(func() error {
			s, err := m.connectOne(gctx, command)
			if err != nil {
				errs[i] = err
				if m.opts.AllowPartialFailure {
					m.logger.Warn("mcp.connect.failed", "command", command, "error", err.Error())
					return nil
				}
				return fmt.Errorf("mcp server %q: %w", command, err)
			}
			results[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		for _, s := range results {
			if s != nil {
				_ = s.sess.Close()
			}
		}
		return err
	}

	var connected []*session
	for _, s := range results {
		if s != nil {
			connected = append(connected, s)
		}
	}
	if len(connected) == 0 {
		for _, err := range errs {
			if err != nil {
				return fmt.Errorf("all mcp servers failed to connect, first error: %w", err)
			}
		}
	}

	tools, err := listTools(ctx, connected)
	if err != nil {
		for _, s := range connected {
			_ = s.sess.Close()
		}
		return err
	}

	m.mu.Lock()
	m.sessions = connected
	m.tools = tools
	m.mu.Unlock()

	m.logger.Info("mcp.connected", "servers", len(connected), "tools", len(tools), "configured", len(m.commands))
	return nil
}

func (m *MultiServer) connectOne(ctx context.Context, command string) (*session, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty mcp command")
	}

	connectCtx, cancel := context.WithTimeout(ctx, m.opts.Timeout)
	defer cancel()

	// The transport owns the process lifetime; the timeout only bounds the
	// handshake, so the command is not tied to connectCtx.
	cmd := exec.Command(fields[0], fields[1:]...)
	if len(m.opts.Env) > 0 {
		cmd.Env = append(cmd.Environ(), m.opts.Env...)
	}

	client := sdk.NewClient(&sdk.Implementation{Name: "rivalscope"}, nil)
	sess, err := client.Connect(connectCtx, sdk.NewCommandTransport(cmd))
	if err != nil {
		return nil, err
	}

	m.logger.Info("mcp.server.connected", "command", fields[0])
	return &session{name: fields[0], sess: sess}, nil
}

// Tools implements tool.Toolkit. The set was resolved during Connect; before
// Connect (or after Close) it is empty.
func (m *MultiServer) Tools() []tool.Tool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tools
}

// listTools walks all connected servers, adapts their tools to the agent's
// tool interface and rejects name collisions across servers.
func listTools(ctx context.Context, sessions []*session) ([]tool.Tool, error) {
	var tools []tool.Tool
	seen := map[string]string{}

	for _, s := range sessions {
		listed, err := s.sess.ListTools(ctx, nil)
		if err != nil {
			return nil, fmt.Errorf("mcp list tools on %s: %w", s.name, err)
		}
		for _, t := range listed.Tools {
			if prev, ok := seen[t.Name]; ok {
				return nil, fmt.Errorf("duplicate mcp tool %q exposed by %s and %s", t.Name, prev, s.name)
			}
			seen[t.Name] = s.name

			adapted, err := newServerTool(s, t)
			if err != nil {
				return nil, err
			}
			tools = append(tools, adapted)
		}
	}
	return tools, nil
}

// Close shuts down all server sessions. Safe to call more than once; errors
// are logged, not returned, since shutdown is best effort.
func (m *MultiServer) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}
	m.closed = true

	for _, s := range m.sessions {
		if err := s.sess.Close(); err != nil {
			m.logger.Warn("mcp.close.failed", "server", s.name, "error", err.Error())
		}
	}
	m.sessions = nil
	m.tools = nil
}

// serverTool adapts one remote MCP tool to the tool.Tool interface.
type serverTool struct {
	session     *session
	name        string
	description string
	parameters  map[string]any
}

func newServerTool(s *session, t *sdk.Tool) (*serverTool, error) {
	schema, err := schemaToMap(t.InputSchema)
	if err != nil {
		return nil, fmt.Errorf("mcp tool %s: input schema: %w", t.Name, err)
	}
	if _, ok := schema["properties"]; !ok {
		schema["properties"] = map[string]any{}
	}

	return &serverTool{
		session:     s,
		name:        t.Name,
		description: t.Description,
		parameters:  schema,
	}, nil
}

func (t *serverTool) Name() string               { return t.name }
func (t *serverTool) Description() string        { return t.description }
func (t *serverTool) Parameters() map[string]any { return t.parameters }

func (t *serverTool) Call(toolCtx *tool.Context, args map[string]any) (any, error) {
	result, err := t.session.sess.CallTool(toolCtx.Context(), &sdk.CallToolParams{
		Name:      t.name,
		Arguments: args,
	})
	if err != nil {
		return nil, tool.NewToolError(t.name, err.Error(), "MCP_ERROR")
	}
	if result.IsError {
		return nil, tool.NewToolError(t.name, flattenContent(result), "MCP_TOOL_ERROR")
	}
	return flattenContent(result), nil
}

// flattenContent converts the MCP content list to a single string. Text
// blocks are concatenated; anything else is JSON-marshalled.
func flattenContent(result *sdk.CallToolResult) string {
	var parts []string
	for _, c := range result.Content {
		if tc, ok := c.(*sdk.TextContent); ok {
			parts = append(parts, tc.Text)
			continue
		}
		if b, err := json.Marshal(c); err == nil {
			parts = append(parts, string(b))
		}
	}
	return strings.Join(parts, "\n")
}

// schemaToMap round-trips the SDK schema type through JSON into the plain map
// form the model providers expect.
func schemaToMap(schema any) (map[string]any, error) {
	if schema == nil {
		return map[string]any{"type": "object"}, nil
	}
	b, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}
