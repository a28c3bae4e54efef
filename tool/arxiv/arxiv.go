// Package arxiv exposes the arXiv search API as an agent tool for academic
// background research. Results come back from the public Atom feed; no API
// key is required.
package arxiv

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rivalscope/rivalscope/tool"
)

// DefaultBaseURL is the public arXiv API endpoint.
const DefaultBaseURL = "http://export.arxiv.org/api/query"

// Options configure the arXiv toolkit.
type Options struct {
	BaseURL    string
	MaxResults int // papers per search, defaults to 5
	HTTPClient *http.Client
}

// Toolkit exposes arXiv paper search.
type Toolkit struct {
	opts Options
}

// New constructs the arXiv toolkit.
func New(optFns ...func(o *Options)) *Toolkit {
	opts := Options{MaxResults: 5}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Toolkit{opts: opts}
}

// Name implements tool.Toolkit.
func (t *Toolkit) Name() string { return "arxiv" }

// Tools implements tool.Toolkit.
func (t *Toolkit) Tools() []tool.Tool {
	return []tool.Tool{t.searchTool()}
}

func (t *Toolkit) searchTool() tool.Tool {
	return tool.NewFunctionTool(
		"search_arxiv",
		"Search arXiv for academic papers matching a query. Returns titles, authors, publication dates and abstracts.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "The search query, e.g. a topic or author name",
				},
			},
			"required": []string{"query"},
		},
		func(toolCtx *tool.Context, args map[string]any) (any, error) {
			query, _ := args["query"].(string)

			papers, err := t.search(toolCtx.Context(), query)
			if err != nil {
				return nil, err
			}
			if len(papers) == 0 {
				return "No papers found for query: " + query, nil
			}

			var sb strings.Builder
			for i, p := range papers {
				fmt.Fprintf(&sb, "%d. %s\n   Authors: %s\n   Published: %s\n   URL: %s\n   %s\n",
					i+1, p.Title, strings.Join(p.Authors, ", "), p.Published, p.URL, p.Summary)
			}
			return sb.String(), nil
		},
	)
}

// Paper is one arXiv search result.
type Paper struct {
	Title     string
	Authors   []string
	Published string
	Summary   string
	URL       string
}

type atomFeed struct {
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	ID        string       `xml:"id"`
	Title     string       `xml:"title"`
	Summary   string       `xml:"summary"`
	Published string       `xml:"published"`
	Authors   []atomAuthor `xml:"author"`
}

type atomAuthor struct {
	Name string `xml:"name"`
}

func (t *Toolkit) search(ctx context.Context, query string) ([]Paper, error) {
	params := url.Values{}
	params.Set("search_query", "all:"+query)
	params.Set("start", "0")
	params.Set("max_results", fmt.Sprintf("%d", t.opts.MaxResults))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.opts.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := t.opts.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("arxiv request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arxiv query: status %d", resp.StatusCode)
	}

	var feed atomFeed
	if err := xml.Unmarshal(data, &feed); err != nil {
		return nil, fmt.Errorf("arxiv feed parse failed: %w", err)
	}

	papers := make([]Paper, 0, len(feed.Entries))
	for _, e := range feed.Entries {
		p := Paper{
			Title:     collapseWhitespace(e.Title),
			Summary:   collapseWhitespace(e.Summary),
			Published: e.Published,
			URL:       e.ID,
		}
		for _, a := range e.Authors {
			p.Authors = append(p.Authors, a.Name)
		}
		papers = append(papers, p)
	}
	return papers, nil
}

// collapseWhitespace folds the hard-wrapped text the Atom feed returns into
// single lines.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
