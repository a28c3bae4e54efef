// Package rivalscope bootstraps the competitor analysis agent: it selects a
// model from the available credentials, assembles the research toolkits and
// exposes a lazily initialized message handler suitable for serving.
package rivalscope

import (
	"errors"
	"os"
	"time"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"

	"github.com/rivalscope/rivalscope/agent"
	"github.com/rivalscope/rivalscope/config"
	"github.com/rivalscope/rivalscope/logging"
	"github.com/rivalscope/rivalscope/model"
	"github.com/rivalscope/rivalscope/model/anthropic"
	"github.com/rivalscope/rivalscope/model/openai"
	"github.com/rivalscope/rivalscope/model/openrouter"
	"github.com/rivalscope/rivalscope/tool"
	"github.com/rivalscope/rivalscope/tool/arxiv"
	"github.com/rivalscope/rivalscope/tool/firecrawl"
	"github.com/rivalscope/rivalscope/tool/mcp"
	"github.com/rivalscope/rivalscope/tool/mem0"
	"github.com/rivalscope/rivalscope/tool/reasoning"
)

// ErrMissingFirecrawlKey is returned when assembly starts without the one
// credential the agent cannot work without.
var ErrMissingFirecrawlKey = errors.New("FIRECRAWL_API_KEY is required, get one from https://firecrawl.dev")

// Keys holds the provider credentials used during assembly.
type Keys struct {
	OpenAI     string
	OpenRouter string
	Anthropic  string
	Firecrawl  string
	Mem0       string
}

// KeysFromEnv reads the provider credentials from the environment.
func KeysFromEnv() Keys {
	return Keys{
		OpenAI:     os.Getenv("OPENAI_API_KEY"),
		OpenRouter: os.Getenv("OPENROUTER_API_KEY"),
		Anthropic:  os.Getenv("ANTHROPIC_API_KEY"),
		Firecrawl:  os.Getenv("FIRECRAWL_API_KEY"),
		Mem0:       os.Getenv("MEM0_API_KEY"),
	}
}

// SelectModel picks the language model. A provider pinned in the manifest
// wins; otherwise the first available credential decides, OpenAI before
// OpenRouter. With no credential at all a keyless OpenAI model is returned so
// the process can boot and fail at request time instead.
func SelectModel(cfg *config.Config, keys Keys, logger logging.Logger) model.Model {
	logger = logging.OrNoOp(logger)

	switch cfg.Model.Provider {
	case "openai":
		return openai.NewModel(func(o *openai.Options) {
			o.APIKey = keys.OpenAI
			if cfg.Model.ID != "" {
				o.Model = cfg.Model.ID
			}
		})
	case "openrouter":
		return openrouter.NewModel(func(o *openrouter.Options) {
			o.APIKey = keys.OpenRouter
			if cfg.Model.ID != "" {
				o.Model = cfg.Model.ID
			}
		})
	case "anthropic":
		return anthropic.NewModel(func(o *anthropic.Options) {
			o.APIKey = keys.Anthropic
			if cfg.Model.ID != "" {
				o.Model = anthropicsdk.Model(cfg.Model.ID)
			}
		})
	}

	if keys.OpenAI != "" {
		logger.Info("model.selected", "provider", "openai", "model", "gpt-4o")
		return openai.NewModel(func(o *openai.Options) {
			o.APIKey = keys.OpenAI
			o.Model = "gpt-4o"
		})
	}
	if keys.OpenRouter != "" {
		logger.Info("model.selected", "provider", "openrouter", "model", "openai/gpt-4o")
		return openrouter.NewModel(func(o *openrouter.Options) {
			o.APIKey = keys.OpenRouter
			o.Model = "openai/gpt-4o"
		})
	}

	logger.Warn("model.selected.keyless", "provider", "openai",
		"note", "no LLM API key provided, requests will fail at runtime")
	return openai.NewModel(func(o *openai.Options) {
		o.Model = "gpt-4o"
	})
}

// BuildTools assembles the toolkits in their fixed registration order:
// Firecrawl, reasoning, optional Mem0, arXiv, then the MCP connector when
// provided. The Firecrawl key is checked before anything is constructed.
func BuildTools(keys Keys, mcpServers *mcp.MultiServer, logger logging.Logger) ([]tool.Toolkit, error) {
	if keys.Firecrawl == "" {
		return nil, ErrMissingFirecrawlKey
	}
	logger = logging.OrNoOp(logger)

	toolkits := []tool.Toolkit{
		firecrawl.New(keys.Firecrawl, func(o *firecrawl.Options) {
			o.EnableSearch = true
			o.EnableCrawl = true
			o.EnableMapping = true
			o.Formats = []string{"markdown", "links", "html"}
			o.SearchLimit = 2
			o.CrawlLimit = 5
		}),
		reasoning.New(func(o *reasoning.Options) {
			o.AddInstructions = true
		}),
	}

	if keys.Mem0 != "" {
		logger.Info("tools.mem0.enabled")
		toolkits = append(toolkits, mem0.New(keys.Mem0))
	}

	toolkits = append(toolkits, arxiv.New())

	if mcpServers != nil {
		toolkits = append(toolkits, mcpServers)
	}

	return toolkits, nil
}

// NewMCPServers builds the MCP connector from the manifest. The command list
// ships empty; operators add server launch commands to the manifest.
func NewMCPServers(cfg *config.Config, logger logging.Logger) *mcp.MultiServer {
	return mcp.NewMultiServer(cfg.MCP.Commands, func(o *mcp.Options) {
		o.Timeout = time.Duration(cfg.MCP.TimeoutSeconds) * time.Second
		o.AllowPartialFailure = cfg.MCP.AllowPartialFailure
		o.Env = os.Environ()
		o.Logger = logger
	})
}

// BuildAgent wires the selected model and toolkits into the competitor
// analysis agent with its research playbook and report template.
func BuildAgent(llm model.Model, toolkits []tool.Toolkit, logger logging.Logger, streamFn func(delta string)) (*agent.Agent, error) {
	return agent.New(AgentName, llm, toolkits, func(o *agent.Options) {
		o.Description = AgentDescription
		o.Instructions = Instructions
		o.ExpectedOutput = ExpectedOutput
		o.Markdown = true
		o.AddDatetime = true
		o.StreamFunc = streamFn
		o.Logger = logger
	})
}
