// Package mem0 exposes the Mem0 hosted memory service as a toolkit of agent
// tools: storing, searching, listing and deleting long-lived memories keyed
// by a user identifier.
package mem0

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rivalscope/rivalscope/tool"
)

// DefaultBaseURL is the hosted Mem0 API endpoint.
const DefaultBaseURL = "https://api.mem0.ai"

// Options configure the Mem0 toolkit.
type Options struct {
	BaseURL    string
	UserID     string // memory namespace, defaults to "default"
	HTTPClient *http.Client
}

// Toolkit bundles the Mem0 tools behind a shared client.
type Toolkit struct {
	client *client
	userID string
}

// New constructs the toolkit for the given API key.
func New(apiKey string, optFns ...func(o *Options)) *Toolkit {
	opts := Options{UserID: "default"}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &Toolkit{
		client: &client{apiKey: apiKey, baseURL: opts.BaseURL, httpClient: opts.HTTPClient},
		userID: opts.UserID,
	}
}

// Name implements tool.Toolkit.
func (t *Toolkit) Name() string { return "mem0" }

// Tools implements tool.Toolkit.
func (t *Toolkit) Tools() []tool.Tool {
	return []tool.Tool{t.addTool(), t.searchTool(), t.getAllTool(), t.deleteTool()}
}

func (t *Toolkit) addTool() tool.Tool {
	return tool.NewFunctionTool(
		"add_memory",
		"Store a fact or finding in long-term memory so it can be recalled in later sessions.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"content": map[string]any{
					"type":        "string",
					"description": "The fact to remember",
				},
			},
			"required": []string{"content"},
		},
		func(toolCtx *tool.Context, args map[string]any) (any, error) {
			content, _ := args["content"].(string)
			if err := t.client.add(toolCtx.Context(), t.userID, content); err != nil {
				return nil, err
			}
			return "Memory stored.", nil
		},
	)
}

func (t *Toolkit) searchTool() tool.Tool {
	return tool.NewFunctionTool(
		"search_memory",
		"Search long-term memory for facts relevant to a query.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "What to look for",
				},
			},
			"required": []string{"query"},
		},
		func(toolCtx *tool.Context, args map[string]any) (any, error) {
			query, _ := args["query"].(string)
			memories, err := t.client.search(toolCtx.Context(), t.userID, query)
			if err != nil {
				return nil, err
			}
			return renderMemories(memories), nil
		},
	)
}

func (t *Toolkit) getAllTool() tool.Tool {
	return tool.NewFunctionTool(
		"get_all_memories",
		"List everything currently stored in long-term memory.",
		map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
		func(toolCtx *tool.Context, _ map[string]any) (any, error) {
			memories, err := t.client.getAll(toolCtx.Context(), t.userID)
			if err != nil {
				return nil, err
			}
			return renderMemories(memories), nil
		},
	)
}

func (t *Toolkit) deleteTool() tool.Tool {
	return tool.NewFunctionTool(
		"delete_memory",
		"Delete a stored memory by its identifier.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"memory_id": map[string]any{
					"type":        "string",
					"description": "Identifier of the memory to delete",
				},
			},
			"required": []string{"memory_id"},
		},
		func(toolCtx *tool.Context, args map[string]any) (any, error) {
			id, _ := args["memory_id"].(string)
			if err := t.client.delete(toolCtx.Context(), id); err != nil {
				return nil, err
			}
			return "Memory " + id + " deleted.", nil
		},
	)
}

// Memory is one stored fact.
type Memory struct {
	ID     string  `json:"id"`
	Memory string  `json:"memory"`
	Score  float64 `json:"score,omitempty"`
}

func renderMemories(memories []Memory) string {
	if len(memories) == 0 {
		return "No memories found."
	}
	var sb strings.Builder
	for _, m := range memories {
		fmt.Fprintf(&sb, "- [%s] %s\n", m.ID, m.Memory)
	}
	return sb.String()
}

type client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func (c *client) add(ctx context.Context, userID, content string) error {
	body := map[string]any{
		"messages": []map[string]any{{"role": "user", "content": content}},
		"user_id":  userID,
	}
	return c.do(ctx, http.MethodPost, "/v1/memories/", body, nil)
}

func (c *client) search(ctx context.Context, userID, query string) ([]Memory, error) {
	body := map[string]any{"query": query, "user_id": userID}
	var out []Memory
	if err := c.do(ctx, http.MethodPost, "/v1/memories/search/", body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *client) getAll(ctx context.Context, userID string) ([]Memory, error) {
	var out []Memory
	if err := c.do(ctx, http.MethodGet, "/v1/memories/?user_id="+userID, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *client) delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/v1/memories/"+id+"/", nil, nil)
}

func (c *client) do(ctx context.Context, method, path string, body map[string]any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Token "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("mem0 request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("mem0 %s %s: status %d", method, path, resp.StatusCode)
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, out)
}
