package model

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(t *testing.T, respCh <-chan Response, errCh <-chan error) []Response {
	t.Helper()
	var responses []Response
	for resp := range respCh {
		responses = append(responses, resp)
	}
	require.NoError(t, <-errCh)
	return responses
}

func TestMockModelCannedResponse(t *testing.T) {
	m := NewMockModel("test-model", "mock")
	m.AddResponse("hello", "world")

	respCh, errCh := m.Generate(context.Background(), Request{
		Messages: []Message{{Role: RoleUser, Content: "hello"}},
	})

	responses := drain(t, respCh, errCh)
	require.Len(t, responses, 1)
	assert.Equal(t, "world", responses[0].Text)
	assert.Equal(t, "stop", responses[0].FinishReason)
	assert.Equal(t, 1, m.Calls())
}

func TestMockModelStreamingEmitsDeltas(t *testing.T) {
	m := NewMockModel("test-model", "mock")
	m.AddResponse("hi", "abc")

	respCh, errCh := m.Generate(context.Background(), Request{
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
		Stream:   true,
	})

	responses := drain(t, respCh, errCh)
	require.Len(t, responses, 4) // three char deltas + final

	var text string
	for _, resp := range responses[:3] {
		assert.True(t, resp.Partial)
		text += resp.Delta
	}
	assert.Equal(t, "abc", text)
	assert.Equal(t, "abc", responses[3].Text)
}

func TestMockModelToolCallsThenResponse(t *testing.T) {
	m := NewMockModel("test-model", "mock")
	m.AddToolCalls("look it up", ToolCall{ID: "call_1", Name: "search", Arguments: `{"query":"x"}`})

	respCh, errCh := m.Generate(context.Background(), Request{
		Messages: []Message{{Role: RoleUser, Content: "look it up"}},
	})
	responses := drain(t, respCh, errCh)
	require.Len(t, responses, 1)
	require.Len(t, responses[0].ToolCalls, 1)
	assert.Equal(t, "search", responses[0].ToolCalls[0].Name)
	assert.Equal(t, "tool_calls", responses[0].FinishReason)

	// Tool calls are one-shot; the next turn falls through to text.
	respCh, errCh = m.Generate(context.Background(), Request{
		Messages: []Message{{Role: RoleUser, Content: "look it up"}},
	})
	responses = drain(t, respCh, errCh)
	require.Len(t, responses, 1)
	assert.Empty(t, responses[0].ToolCalls)
}

func TestMockModelConcurrentGenerate(t *testing.T) {
	m := NewMockModel("test-model", "mock")
	m.AddResponse("hello", "world")
	m.AddToolCalls("look it up", ToolCall{ID: "call_1", Name: "search", Arguments: `{}`})

	const workers = 16
	var wg sync.WaitGroup
	toolResponses := make([]int, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			respCh, errCh := m.Generate(context.Background(), Request{
				Messages: []Message{{Role: RoleUser, Content: "look it up"}},
			})
			for resp := range respCh {
				if len(resp.ToolCalls) > 0 {
					toolResponses[i] = 1
				}
			}
			assert.NoError(t, <-errCh)
		}()
	}
	wg.Wait()

	assert.Equal(t, workers, m.Calls())

	// The canned tool calls are one-shot, even under contention.
	got := 0
	for _, n := range toolResponses {
		got += n
	}
	assert.Equal(t, 1, got)
}

func TestMockModelNoMessages(t *testing.T) {
	m := NewMockModel("test-model", "mock")
	respCh, errCh := m.Generate(context.Background(), Request{})
	for range respCh {
	}
	assert.Error(t, <-errCh)
}
