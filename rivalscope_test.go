package rivalscope

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rivalscope/rivalscope/config"
	"github.com/rivalscope/rivalscope/logging"
	"github.com/rivalscope/rivalscope/model"
)

func mockSelector(counter *atomic.Int32) func(cfg *config.Config, keys Keys, logger logging.Logger) model.Model {
	return func(_ *config.Config, _ Keys, _ logging.Logger) model.Model {
		counter.Add(1)
		return model.NewMockModel("gpt-4o", "openai")
	}
}

func userMessage(content string) []model.Message {
	return []model.Message{{Role: model.RoleUser, Content: content}}
}

func TestHandleInitializesOnce(t *testing.T) {
	var selectCalls atomic.Int32

	rt := NewRuntime(config.Default(), func(o *RuntimeOptions) {
		o.Keys = &Keys{Firecrawl: "fc-test"}
		o.SelectModel = mockSelector(&selectCalls)
	})
	t.Cleanup(rt.Close)

	assert.False(t, rt.Ready())

	const concurrency = 8
	var wg sync.WaitGroup
	results := make([]*struct {
		content string
		err     error
	}, concurrency)

	for i := range concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := rt.Handle(context.Background(), userMessage("hello"))
			r := &struct {
				content string
				err     error
			}{err: err}
			if res != nil {
				r.content = res.Content
			}
			results[i] = r
		}()
	}
	wg.Wait()

	for _, r := range results {
		require.NoError(t, r.err)
		assert.Equal(t, "Mock response to: hello", r.content)
	}
	assert.Equal(t, int32(1), selectCalls.Load())
	assert.True(t, rt.Ready())
}

func TestHandleInitFailureRetried(t *testing.T) {
	var selectCalls atomic.Int32
	keys := &Keys{} // missing Firecrawl key

	rt := NewRuntime(config.Default(), func(o *RuntimeOptions) {
		o.Keys = keys
		o.SelectModel = mockSelector(&selectCalls)
	})
	t.Cleanup(rt.Close)

	_, err := rt.Handle(context.Background(), userMessage("hello"))
	require.ErrorIs(t, err, ErrMissingFirecrawlKey)
	assert.False(t, rt.Ready())

	// The credential appears; the next request initializes successfully.
	keys.Firecrawl = "fc-test"

	res, err := rt.Handle(context.Background(), userMessage("hello"))
	require.NoError(t, err)
	assert.Equal(t, "Mock response to: hello", res.Content)
	assert.True(t, rt.Ready())
}

func TestInitializeEager(t *testing.T) {
	var selectCalls atomic.Int32

	rt := NewRuntime(config.Default(), func(o *RuntimeOptions) {
		o.Keys = &Keys{Firecrawl: "fc-test"}
		o.SelectModel = mockSelector(&selectCalls)
	})
	t.Cleanup(rt.Close)

	require.NoError(t, rt.Initialize(context.Background()))
	assert.True(t, rt.Ready())

	// A subsequent Handle reuses the initialized agent.
	_, err := rt.Handle(context.Background(), userMessage("hi"))
	require.NoError(t, err)
	assert.Equal(t, int32(1), selectCalls.Load())
}

func TestCloseResets(t *testing.T) {
	var selectCalls atomic.Int32

	rt := NewRuntime(config.Default(), func(o *RuntimeOptions) {
		o.Keys = &Keys{Firecrawl: "fc-test"}
		o.SelectModel = mockSelector(&selectCalls)
	})

	require.NoError(t, rt.Initialize(context.Background()))
	rt.Close()
	assert.False(t, rt.Ready())
	rt.Close() // safe to call twice
}
