package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rivalscope/rivalscope/agent"
	"github.com/rivalscope/rivalscope/config"
	"github.com/rivalscope/rivalscope/model"
)

func newTestServer(run runnerFunc, ready func() bool, optFns ...func(o *Options)) *Server {
	return New(config.Default(), run, ready, optFns...)
}

func postChat(t *testing.T, s *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/chat", strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestChatEndpoint(t *testing.T) {
	var gotMessages []model.Message
	s := newTestServer(func(_ context.Context, messages []model.Message) (*agent.Result, error) {
		gotMessages = messages
		return &agent.Result{
			Content: "# Competitive Analysis Report: Acme",
			Usage:   model.TokenUsage{PromptTokens: 100, CompletionTokens: 50, TotalTokens: 150},
			Turns:   3,
		}, nil
	}, nil)

	rec := postChat(t, s, `{"messages":[{"role":"user","content":"Analyze Acme"}]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp chatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "# Competitive Analysis Report: Acme", resp.Content)
	require.NotNil(t, resp.Usage)
	assert.Equal(t, 150, resp.Usage.TotalTokens)

	require.Len(t, gotMessages, 1)
	assert.Equal(t, model.RoleUser, gotMessages[0].Role)
}

func TestChatEndpointRejectsEmptyMessages(t *testing.T) {
	s := newTestServer(func(context.Context, []model.Message) (*agent.Result, error) {
		t.Fatal("runner should not be called")
		return nil, nil
	}, nil)

	rec := postChat(t, s, `{"messages":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postChat(t, s, `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatEndpointSurfacesErrors(t *testing.T) {
	s := newTestServer(func(context.Context, []model.Message) (*agent.Result, error) {
		return nil, errors.New("model unavailable")
	}, nil)

	rec := postChat(t, s, `{"messages":[{"role":"user","content":"hi"}]}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Error, "model unavailable")
	assert.Empty(t, resp.Code)
}

func TestChatEndpointConfigErrorIs503(t *testing.T) {
	missingKey := errors.New("FIRECRAWL_API_KEY is required")

	s := newTestServer(func(context.Context, []model.Message) (*agent.Result, error) {
		return nil, missingKey
	}, nil, func(o *Options) {
		o.IsConfigError = func(err error) bool { return errors.Is(err, missingKey) }
	})

	rec := postChat(t, s, `{"messages":[{"role":"user","content":"hi"}]}`)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "configuration", resp.Code)
}

func TestAgentCard(t *testing.T) {
	s := newTestServer(nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/.well-known/agent.json", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var card agentCard
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &card))
	assert.Equal(t, "competitor-analysis-agent", card.Name)
	assert.Equal(t, "1.0.0", card.Version)
	assert.Equal(t, "http://0.0.0.0:3773", card.URL)
	assert.Contains(t, card.Capabilities, "competitive_analysis")

	require.Len(t, card.EnvironmentVariables, 4)
	assert.Equal(t, "FIRECRAWL_API_KEY", card.EnvironmentVariables[2].Key)
	assert.True(t, card.EnvironmentVariables[2].Required)
}

func TestHealthReflectsReadiness(t *testing.T) {
	ready := false
	s := newTestServer(nil, func() bool { return ready })

	check := func() healthResponse {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp healthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		return resp
	}

	assert.False(t, check().Ready)
	ready = true
	assert.True(t, check().Ready)
	assert.Equal(t, "ok", check().Status)
}

func TestMethodNotAllowed(t *testing.T) {
	s := newTestServer(nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/chat", bytes.NewReader(nil))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
