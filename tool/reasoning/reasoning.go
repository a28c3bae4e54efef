// Package reasoning provides scratchpad tools that let the model structure
// its own thinking: recording intermediate thoughts and evaluating them
// before committing to an answer. Nothing here calls external services; the
// state lives in the tool context for the duration of one run.
package reasoning

import (
	"fmt"
	"strings"

	"github.com/rivalscope/rivalscope/tool"
)

const stateKey = "reasoning.steps"

// Options configure the reasoning toolkit.
type Options struct {
	// AddInstructions appends usage guidance to the agent's system prompt.
	AddInstructions bool
}

// Toolkit exposes the think and analyze tools.
type Toolkit struct {
	opts Options
}

// New constructs the reasoning toolkit.
func New(optFns ...func(o *Options)) *Toolkit {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Toolkit{opts: opts}
}

// Name implements tool.Toolkit.
func (t *Toolkit) Name() string { return "reasoning" }

// Tools implements tool.Toolkit.
func (t *Toolkit) Tools() []tool.Tool {
	return []tool.Tool{t.thinkTool(), t.analyzeTool()}
}

// Instructions implements tool.Instructor when enabled via options.
func (t *Toolkit) Instructions() string {
	if !t.opts.AddInstructions {
		return ""
	}
	return strings.TrimSpace(`
Use the think tool to break complex problems into steps before acting, and the
analyze tool to evaluate results before moving on. Think first, act second,
analyze third. Do not mention these tools or your internal notes in the final
answer.`)
}

type step struct {
	kind    string
	title   string
	content string
}

func appendStep(toolCtx *tool.Context, s step) int {
	state := toolCtx.State()
	steps, _ := state[stateKey].([]step)
	steps = append(steps, s)
	state[stateKey] = steps
	return len(steps)
}

func (t *Toolkit) thinkTool() tool.Tool {
	return tool.NewFunctionTool(
		"think",
		"Record a reasoning step in your scratchpad. Use this to plan an approach or work through a problem before calling other tools.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"title": map[string]any{
					"type":        "string",
					"description": "Short label for this reasoning step",
				},
				"thought": map[string]any{
					"type":        "string",
					"description": "The reasoning content",
				},
			},
			"required": []string{"title", "thought"},
		},
		func(toolCtx *tool.Context, args map[string]any) (any, error) {
			title, _ := args["title"].(string)
			thought, _ := args["thought"].(string)

			n := appendStep(toolCtx, step{kind: "think", title: title, content: thought})
			return fmt.Sprintf("Recorded reasoning step %d: %s", n, title), nil
		},
	)
}

func (t *Toolkit) analyzeTool() tool.Tool {
	return tool.NewFunctionTool(
		"analyze",
		"Evaluate the results gathered so far against your plan. State what you learned and whether to continue, adjust, or conclude.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"title": map[string]any{
					"type":        "string",
					"description": "Short label for this analysis",
				},
				"result": map[string]any{
					"type":        "string",
					"description": "What the gathered information shows",
				},
				"next_action": map[string]any{
					"type":        "string",
					"description": "One of: continue, adjust, conclude",
				},
			},
			"required": []string{"title", "result"},
		},
		func(toolCtx *tool.Context, args map[string]any) (any, error) {
			title, _ := args["title"].(string)
			result, _ := args["result"].(string)
			next, _ := args["next_action"].(string)
			if next == "" {
				next = "continue"
			}

			n := appendStep(toolCtx, step{kind: "analyze", title: title, content: result})
			return fmt.Sprintf("Recorded analysis step %d (%s), next action: %s", n, title, next), nil
		},
	)
}
