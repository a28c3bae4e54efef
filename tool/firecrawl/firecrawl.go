// Package firecrawl exposes the Firecrawl web search / scraping service as a
// toolkit of agent tools. Search, crawl and site mapping can be toggled
// individually; result counts and output formats are bounded by options.
package firecrawl

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/rivalscope/rivalscope/tool"
)

// Options configure the Firecrawl toolkit.
type Options struct {
	BaseURL       string
	EnableSearch  bool
	EnableCrawl   bool
	EnableMapping bool
	Formats       []string // output formats for scrape/crawl, e.g. markdown, links, html
	SearchLimit   int      // max results per search
	CrawlLimit    int      // max pages per crawl / map
	HTTPClient    *http.Client
}

// Toolkit bundles the Firecrawl tools behind a shared client.
type Toolkit struct {
	client *Client
	opts   Options
}

// New constructs the toolkit. The API key is required by the caller; this
// package does not read the environment.
func New(apiKey string, optFns ...func(o *Options)) *Toolkit {
	opts := Options{
		Formats:     []string{"markdown"},
		SearchLimit: 5,
		CrawlLimit:  10,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Toolkit{
		client: NewClient(apiKey, opts.BaseURL, opts.HTTPClient),
		opts:   opts,
	}
}

// Name implements tool.Toolkit.
func (t *Toolkit) Name() string { return "firecrawl" }

// Tools returns the enabled Firecrawl tools. Scrape is always available;
// search, crawl and map depend on options.
func (t *Toolkit) Tools() []tool.Tool {
	var tools []tool.Tool

	if t.opts.EnableSearch {
		tools = append(tools, t.searchTool())
	}
	tools = append(tools, t.scrapeTool())
	if t.opts.EnableCrawl {
		tools = append(tools, t.crawlTool())
	}
	if t.opts.EnableMapping {
		tools = append(tools, t.mapTool())
	}

	return tools
}

func (t *Toolkit) searchTool() tool.Tool {
	return tool.NewFunctionTool(
		"firecrawl_search",
		"Search the web and return the most relevant results with titles, URLs and descriptions.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "The search query",
				},
			},
			"required": []string{"query"},
		},
		func(toolCtx *tool.Context, args map[string]any) (any, error) {
			query, _ := args["query"].(string)

			hits, err := t.client.Search(toolCtx.Context(), query, t.opts.SearchLimit)
			if err != nil {
				return nil, err
			}
			if len(hits) == 0 {
				return "No results found for query: " + query, nil
			}

			var sb strings.Builder
			for i, hit := range hits {
				fmt.Fprintf(&sb, "%d. %s\n   URL: %s\n   %s\n", i+1, hit.Title, hit.URL, hit.Description)
			}
			return sb.String(), nil
		},
	)
}

func (t *Toolkit) scrapeTool() tool.Tool {
	return tool.NewFunctionTool(
		"firecrawl_scrape",
		"Scrape a single web page and return its content as markdown, with links and raw HTML when configured.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"url": map[string]any{
					"type":        "string",
					"description": "The URL of the page to scrape",
				},
			},
			"required": []string{"url"},
		},
		func(toolCtx *tool.Context, args map[string]any) (any, error) {
			url, _ := args["url"].(string)

			doc, err := t.client.Scrape(toolCtx.Context(), url, t.opts.Formats)
			if err != nil {
				return nil, err
			}
			return renderDocument(doc), nil
		},
	)
}

func (t *Toolkit) crawlTool() tool.Tool {
	return tool.NewFunctionTool(
		"firecrawl_crawl",
		"Crawl a website starting from the given URL and return the content of the pages found. Use for deep research on a single site.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"url": map[string]any{
					"type":        "string",
					"description": "The URL to start crawling from",
				},
			},
			"required": []string{"url"},
		},
		func(toolCtx *tool.Context, args map[string]any) (any, error) {
			url, _ := args["url"].(string)

			docs, err := t.client.Crawl(toolCtx.Context(), url, t.opts.CrawlLimit, t.opts.Formats)
			if err != nil {
				return nil, err
			}
			if len(docs) == 0 {
				return "Crawl returned no pages for " + url, nil
			}

			var sb strings.Builder
			for i := range docs {
				if i > 0 {
					sb.WriteString("\n---\n")
				}
				sb.WriteString(renderDocument(&docs[i]))
			}
			return sb.String(), nil
		},
	)
}

func (t *Toolkit) mapTool() tool.Tool {
	return tool.NewFunctionTool(
		"firecrawl_map",
		"Map a website and return the list of URLs it links to. Useful for discovering pages before scraping.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"url": map[string]any{
					"type":        "string",
					"description": "The URL of the site to map",
				},
			},
			"required": []string{"url"},
		},
		func(toolCtx *tool.Context, args map[string]any) (any, error) {
			url, _ := args["url"].(string)

			links, err := t.client.MapURL(toolCtx.Context(), url, t.opts.CrawlLimit)
			if err != nil {
				return nil, err
			}
			if len(links) == 0 {
				return "No links discovered for " + url, nil
			}
			return strings.Join(links, "\n"), nil
		},
	)
}

// renderDocument flattens a scraped document to text the model can consume.
// Markdown wins when present; otherwise whatever formats came back.
func renderDocument(doc *Document) string {
	var sb strings.Builder

	if title, ok := doc.Metadata["title"].(string); ok && title != "" {
		fmt.Fprintf(&sb, "# %s\n\n", title)
	}
	if doc.Markdown != "" {
		sb.WriteString(doc.Markdown)
	} else if doc.HTML != "" {
		sb.WriteString(doc.HTML)
	}
	if len(doc.Links) > 0 {
		sb.WriteString("\n\nLinks:\n")
		sb.WriteString(strings.Join(doc.Links, "\n"))
	}
	if sb.Len() == 0 {
		raw, _ := json.Marshal(doc)
		return string(raw)
	}
	return sb.String()
}
