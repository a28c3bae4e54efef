package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rivalscope/rivalscope/model"
)

func TestBuildMessagesInstructionsFirst(t *testing.T) {
	msgs := buildMessages(model.Request{
		Instructions: "You are a research analyst.",
		Messages: []model.Message{
			{Role: model.RoleUser, Content: "Analyze Acme"},
		},
	})

	require.Len(t, msgs, 2)
	assert.NotNil(t, msgs[0].OfSystem)
	assert.NotNil(t, msgs[1].OfUser)
}

func TestBuildMessagesToolRoundTrip(t *testing.T) {
	msgs := buildMessages(model.Request{
		Messages: []model.Message{
			{Role: model.RoleUser, Content: "go"},
			{Role: model.RoleAssistant, ToolCalls: []model.ToolCall{
				{ID: "fc_1", Name: "firecrawl_search", Arguments: `{"query":"acme"}`},
			}},
			{Role: model.RoleTool, Content: "results...", ToolCallID: "fc_1"},
		},
	})

	require.Len(t, msgs, 3)
	require.NotNil(t, msgs[1].OfAssistant)
	require.Len(t, msgs[1].OfAssistant.ToolCalls, 1)
	assert.Equal(t, "fc_1", msgs[1].OfAssistant.ToolCalls[0].ID)
	assert.NotNil(t, msgs[2].OfTool)
}

func TestBuildParamsIncludesTools(t *testing.T) {
	m := NewModel(func(o *Options) {
		o.Model = "gpt-4o"
		o.APIKey = "sk-test"
	})

	params := m.buildParams(model.Request{
		Messages: []model.Message{{Role: model.RoleUser, Content: "hi"}},
		Tools: []model.ToolDefinition{
			{Name: "think", Description: "Record a thought", Parameters: map[string]any{"type": "object"}},
		},
	})

	assert.Equal(t, "gpt-4o", params.Model)
	require.Len(t, params.Tools, 1)
	assert.Equal(t, "think", params.Tools[0].Function.Name)
}

func TestFinalChunkPreservesToolCallOrder(t *testing.T) {
	agg := map[int64]*aggCall{
		0: {id: "fc_a", name: "first", args: `{"a":1}`},
		1: {id: "fc_b", name: "second", args: `{"b":2}`},
	}

	resp := finalChunk("partial text", agg, []int64{0, 1}, "tool_calls", nil)
	require.Len(t, resp.ToolCalls, 2)
	assert.Equal(t, "fc_a", resp.ToolCalls[0].ID)
	assert.Equal(t, "second", resp.ToolCalls[1].Name)
	assert.Equal(t, "tool_calls", resp.FinishReason)
	assert.Equal(t, "partial text", resp.Text)
}

func TestFinalChunkCarriesUsage(t *testing.T) {
	usage := usageFromCompletion(openai.CompletionUsage{
		PromptTokens:     120,
		CompletionTokens: 30,
		TotalTokens:      150,
	})
	require.NotNil(t, usage)

	resp := finalChunk("done", nil, nil, "stop", usage)
	require.NotNil(t, resp.Usage)
	assert.Equal(t, 120, resp.Usage.PromptTokens)
	assert.Equal(t, 150, resp.Usage.TotalTokens)

	// Chunks before the trailing usage chunk carry zero totals.
	assert.Nil(t, usageFromCompletion(openai.CompletionUsage{}))
}

func TestGenerateStreamingAttachesUsage(t *testing.T) {
	var gotBody struct {
		StreamOptions struct {
			IncludeUsage bool `json:"include_usage"`
		} `json:"stream_options"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, `data: {"choices":[{"index":0,"delta":{"content":"hi"}}]}`+"\n\n")
		io.WriteString(w, `data: {"choices":[{"index":0,"delta":{},"finish_reason":"stop"}]}`+"\n\n")
		io.WriteString(w, `data: {"choices":[],"usage":{"prompt_tokens":12,"completion_tokens":3,"total_tokens":15}}`+"\n\n")
		io.WriteString(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	client := openai.NewClient(option.WithAPIKey("sk-test"), option.WithBaseURL(srv.URL+"/"))
	m := NewModelFromClient(&client)

	respCh, errCh := m.Generate(context.Background(), model.Request{
		Messages: []model.Message{{Role: model.RoleUser, Content: "hi"}},
		Stream:   true,
	})

	var deltas string
	var final *model.Response
	for resp := range respCh {
		if resp.Partial {
			deltas += resp.Delta
			continue
		}
		r := resp
		final = &r
	}
	require.NoError(t, <-errCh)

	assert.True(t, gotBody.StreamOptions.IncludeUsage)
	assert.Equal(t, "hi", deltas)
	require.NotNil(t, final)
	assert.Equal(t, "hi", final.Text)
	assert.Equal(t, "stop", final.FinishReason)
	require.NotNil(t, final.Usage)
	assert.Equal(t, 12, final.Usage.PromptTokens)
	assert.Equal(t, 15, final.Usage.TotalTokens)
}
