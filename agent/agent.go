// Package agent implements the tool-calling run loop that connects a language
// model to its registered tools. The agent sends the conversation to the
// model, executes any requested tool calls, feeds results back and repeats
// until the model produces a final answer or the turn limit is reached.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rivalscope/rivalscope/logging"
	"github.com/rivalscope/rivalscope/model"
	"github.com/rivalscope/rivalscope/tool"
)

// ErrMaxTurns is returned when the model keeps requesting tool calls past the
// configured turn limit without producing a final answer.
var ErrMaxTurns = errors.New("agent: max turns reached without final response")

// Options configure an Agent.
type Options struct {
	// Description is a one-line identity statement placed at the top of the
	// system prompt.
	Description string

	// Instructions are appended to the system prompt in order.
	Instructions []string

	// ExpectedOutput describes the shape of the final answer, typically a
	// report template.
	ExpectedOutput string

	// Markdown asks the model to format its final answer as Markdown.
	Markdown bool

	// AddDatetime includes the current date and time in the system prompt.
	AddDatetime bool

	// MaxTurns bounds the number of model round-trips per run.
	MaxTurns int

	// StreamFunc receives text deltas as they arrive, when the model supports
	// streaming. Nil disables streaming.
	StreamFunc func(delta string)

	Logger logging.Logger

	// Now is the clock used for the datetime stamp. Overridable in tests.
	Now func() time.Time
}

// Agent drives one language model over a fixed tool set.
type Agent struct {
	name      string
	llm       model.Model
	tools     []tool.Tool          // registration order, exposed to the model as-is
	toolIndex map[string]tool.Tool // name lookup for execution
	guidance  []string             // toolkit-contributed prompt guidance
	opts      Options
	logger    logging.Logger
}

// Result is the outcome of one agent run.
type Result struct {
	// Content is the model's final answer.
	Content string

	// Messages is the full conversation including intermediate assistant and
	// tool turns.
	Messages []model.Message

	// Usage aggregates token usage across all model turns that reported it.
	Usage model.TokenUsage

	// Turns is the number of model round-trips taken.
	Turns int
}

// New constructs an Agent over the given model and toolkits. Toolkit tools
// are registered in toolkit order; a toolkit implementing tool.Instructor
// contributes guidance to the system prompt.
func New(name string, llm model.Model, toolkits []tool.Toolkit, optFns ...func(o *Options)) (*Agent, error) {
	opts := Options{
		MaxTurns: 20,
		Now:      time.Now,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	a := &Agent{
		name:      name,
		llm:       llm,
		toolIndex: make(map[string]tool.Tool),
		opts:      opts,
		logger:    logging.OrNoOp(opts.Logger),
	}

	for _, tk := range toolkits {
		for _, t := range tk.Tools() {
			if _, exists := a.toolIndex[t.Name()]; exists {
				return nil, fmt.Errorf("agent: duplicate tool name %q from toolkit %s", t.Name(), tk.Name())
			}
			a.toolIndex[t.Name()] = t
			a.tools = append(a.tools, t)
		}
		if instructor, ok := tk.(tool.Instructor); ok {
			if g := instructor.Instructions(); g != "" {
				a.guidance = append(a.guidance, g)
			}
		}
	}

	return a, nil
}

// Name returns the agent's display name.
func (a *Agent) Name() string { return a.name }

// ToolNames returns the registered tool names in registration order.
func (a *Agent) ToolNames() []string {
	names := make([]string, len(a.tools))
	for i, t := range a.tools {
		names[i] = t.Name()
	}
	return names
}

// Run executes the conversation until the model produces a final answer.
// Tool calls requested by the model are executed sequentially in the order
// the model emitted them; each result is appended as a tool message before
// the next model turn.
func (a *Agent) Run(ctx context.Context, messages []model.Message) (*Result, error) {
	runID := uuid.NewString()
	start := time.Now()

	a.logger.Info("agent.run.start", "agent", a.name, "run", runID, "messages", len(messages))

	conversation := make([]model.Message, len(messages))
	copy(conversation, messages)

	instructions := a.systemPrompt()
	defs := a.toolDefinitions()
	stream := a.opts.StreamFunc != nil && a.llm.Info().SupportsStreaming
	state := make(map[string]any)

	var usage model.TokenUsage

	for turn := 1; turn <= a.opts.MaxTurns; turn++ {
		resp, err := a.generate(ctx, model.Request{
			Instructions: instructions,
			Messages:     conversation,
			Tools:        defs,
			Stream:       stream,
		})
		if err != nil {
			a.logger.Error("agent.run.model_error", "agent", a.name, "run", runID, "turn", turn, "error", err.Error())
			return nil, fmt.Errorf("agent: model turn %d: %w", turn, err)
		}

		if resp.Usage != nil {
			usage.PromptTokens += resp.Usage.PromptTokens
			usage.CompletionTokens += resp.Usage.CompletionTokens
			usage.TotalTokens += resp.Usage.TotalTokens
		}

		if len(resp.ToolCalls) == 0 {
			conversation = append(conversation, model.Message{
				Role:    model.RoleAssistant,
				Content: resp.Text,
			})

			a.logger.Info("agent.run.complete",
				"agent", a.name,
				"run", runID,
				"turns", turn,
				"duration_ms", time.Since(start).Milliseconds(),
			)

			return &Result{
				Content:  resp.Text,
				Messages: conversation,
				Usage:    usage,
				Turns:    turn,
			}, nil
		}

		conversation = append(conversation, model.Message{
			Role:      model.RoleAssistant,
			Content:   resp.Text,
			ToolCalls: resp.ToolCalls,
		})

		for _, call := range resp.ToolCalls {
			output := a.executeToolCall(ctx, state, call)
			conversation = append(conversation, model.Message{
				Role:       model.RoleTool,
				Content:    output,
				ToolCallID: call.ID,
				Name:       call.Name,
			})
		}
	}

	a.logger.Warn("agent.run.max_turns", "agent", a.name, "run", runID, "max_turns", a.opts.MaxTurns)
	return nil, ErrMaxTurns
}

// generate drains one model turn, forwarding streaming deltas and returning
// the final response.
func (a *Agent) generate(ctx context.Context, req model.Request) (*model.Response, error) {
	respCh, errCh := a.llm.Generate(ctx, req)

	var final *model.Response
	for respCh != nil || errCh != nil {
		select {
		case resp, ok := <-respCh:
			if !ok {
				respCh = nil
				continue
			}
			if resp.Partial {
				if a.opts.StreamFunc != nil && resp.Delta != "" {
					a.opts.StreamFunc(resp.Delta)
				}
				continue
			}
			r := resp
			final = &r
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			if err != nil {
				return nil, err
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if final == nil {
		return nil, errors.New("model closed stream without a final response")
	}
	return final, nil
}

// executeToolCall runs one tool call and renders its outcome as the tool
// message content. Failures, including panics inside the tool, become error
// strings the model can react to rather than aborting the run.
func (a *Agent) executeToolCall(ctx context.Context, state map[string]any, call model.ToolCall) (output string) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("agent.tool.panic", "tool", call.Name, "panic", fmt.Sprintf("%v", r))
			output = fmt.Sprintf("Error: tool %s panicked: %v", call.Name, r)
		}
	}()

	t, ok := a.toolIndex[call.Name]
	if !ok {
		a.logger.Warn("agent.tool.unknown", "tool", call.Name)
		return fmt.Sprintf("Error: unknown tool %q", call.Name)
	}

	args, err := tool.ParseArguments(call.Arguments)
	if err != nil {
		a.logger.Warn("agent.tool.bad_arguments", "tool", call.Name, "error", err.Error())
		return fmt.Sprintf("Error: invalid arguments for %s: %v", call.Name, err)
	}

	toolCtx := tool.NewContext(ctx, a.logger, call.ID, state)
	result, err := t.Call(toolCtx, args)
	if err != nil {
		return fmt.Sprintf("Error: %v", err)
	}

	a.logger.Debug("agent.tool.done", "tool", call.Name, "duration_ms", time.Since(start).Milliseconds())
	return tool.RenderResult(result)
}

// toolDefinitions projects the registered tools into the model contract.
func (a *Agent) toolDefinitions() []model.ToolDefinition {
	defs := make([]model.ToolDefinition, len(a.tools))
	for i, t := range a.tools {
		defs[i] = model.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		}
	}
	return defs
}

// systemPrompt assembles the full system prompt from the agent identity,
// instructions, toolkit guidance, output expectations and formatting flags.
func (a *Agent) systemPrompt() string {
	var sections []string

	identity := fmt.Sprintf("You are %s.", a.name)
	if a.opts.Description != "" {
		identity = fmt.Sprintf("You are %s, %s", a.name, a.opts.Description)
	}
	sections = append(sections, identity)

	if len(a.opts.Instructions) > 0 {
		sections = append(sections, "<instructions>\n"+strings.Join(a.opts.Instructions, "\n")+"\n</instructions>")
	}

	for _, g := range a.guidance {
		sections = append(sections, g)
	}

	if a.opts.ExpectedOutput != "" {
		sections = append(sections, "<expected_output>\n"+a.opts.ExpectedOutput+"\n</expected_output>")
	}

	if a.opts.Markdown {
		sections = append(sections, "Format your final answer using Markdown.")
	}

	if a.opts.AddDatetime {
		sections = append(sections, "The current date and time is "+a.opts.Now().Format(time.RFC1123)+".")
	}

	return strings.Join(sections, "\n\n")
}
