package rivalscope

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rivalscope/rivalscope/config"
	"github.com/rivalscope/rivalscope/tool/mcp"
)

func TestSelectModelPrefersOpenAI(t *testing.T) {
	cfg := config.Default()

	m := SelectModel(cfg, Keys{OpenAI: "sk-test", OpenRouter: "or-test"}, nil)
	info := m.Info()
	assert.Equal(t, "openai", info.Provider)
	assert.Equal(t, "gpt-4o", info.Name)
}

func TestSelectModelOpenAIOnly(t *testing.T) {
	cfg := config.Default()

	m := SelectModel(cfg, Keys{OpenAI: "sk-test"}, nil)
	assert.Equal(t, "openai", m.Info().Provider)
}

func TestSelectModelFallsBackToOpenRouter(t *testing.T) {
	cfg := config.Default()

	m := SelectModel(cfg, Keys{OpenRouter: "or-test"}, nil)
	info := m.Info()
	assert.Equal(t, "openrouter", info.Provider)
	assert.Equal(t, "openai/gpt-4o", info.Name)
}

func TestSelectModelKeylessBoots(t *testing.T) {
	cfg := config.Default()

	m := SelectModel(cfg, Keys{}, nil)
	assert.Equal(t, "openai", m.Info().Provider)
}

func TestSelectModelPinnedProvider(t *testing.T) {
	cfg := config.Default()
	cfg.Model.Provider = "anthropic"
	cfg.Model.ID = "claude-sonnet-4-20250514"

	m := SelectModel(cfg, Keys{Anthropic: "ak-test"}, nil)
	info := m.Info()
	assert.Equal(t, "anthropic", info.Provider)
	assert.False(t, info.SupportsStreaming)
}

func TestBuildToolsRequiresFirecrawlKey(t *testing.T) {
	_, err := BuildTools(Keys{OpenAI: "sk-test"}, nil, nil)
	assert.ErrorIs(t, err, ErrMissingFirecrawlKey)
}

func TestBuildToolsOrder(t *testing.T) {
	mcpServers := mcp.NewMultiServer(nil)

	toolkits, err := BuildTools(Keys{Firecrawl: "fc-test", Mem0: "m0-test"}, mcpServers, nil)
	require.NoError(t, err)

	names := make([]string, len(toolkits))
	for i, tk := range toolkits {
		names[i] = tk.Name()
	}
	assert.Equal(t, []string{"firecrawl", "reasoning", "mem0", "arxiv", "mcp"}, names)
}

func TestBuildToolsWithoutOptionalParts(t *testing.T) {
	toolkits, err := BuildTools(Keys{Firecrawl: "fc-test"}, nil, nil)
	require.NoError(t, err)

	names := make([]string, len(toolkits))
	for i, tk := range toolkits {
		names[i] = tk.Name()
	}
	assert.Equal(t, []string{"firecrawl", "reasoning", "arxiv"}, names)
}

func TestBuildToolsFirecrawlToolSet(t *testing.T) {
	toolkits, err := BuildTools(Keys{Firecrawl: "fc-test"}, nil, nil)
	require.NoError(t, err)

	names := []string{}
	for _, tl := range toolkits[0].Tools() {
		names = append(names, tl.Name())
	}
	assert.Equal(t, []string{"firecrawl_search", "firecrawl_scrape", "firecrawl_crawl", "firecrawl_map"}, names)
}
