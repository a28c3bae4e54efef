package arxiv

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rivalscope/rivalscope/tool"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <id>http://arxiv.org/abs/2401.00001v1</id>
    <title>Competitive Dynamics in
  Platform Markets</title>
    <summary>We study how platform businesses
  respond to entrants.</summary>
    <published>2024-01-01T00:00:00Z</published>
    <author><name>A. Researcher</name></author>
    <author><name>B. Scholar</name></author>
  </entry>
</feed>`

func TestSearchArxiv(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "all:platform markets", r.URL.Query().Get("search_query"))
		assert.Equal(t, "3", r.URL.Query().Get("max_results"))
		w.Header().Set("Content-Type", "application/atom+xml")
		_, _ = w.Write([]byte(sampleFeed))
	}))
	t.Cleanup(srv.Close)

	tk := New(func(o *Options) {
		o.BaseURL = srv.URL
		o.MaxResults = 3
	})

	tools := tk.Tools()
	require.Len(t, tools, 1)

	tc := tool.NewContext(context.Background(), nil, "fc_1", nil)
	out, err := tools[0].Call(tc, map[string]any{"query": "platform markets"})
	require.NoError(t, err)

	text := out.(string)
	assert.Contains(t, text, "Competitive Dynamics in Platform Markets")
	assert.Contains(t, text, "A. Researcher, B. Scholar")
	assert.Contains(t, text, "http://arxiv.org/abs/2401.00001v1")
}

func TestSearchArxivNoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<?xml version="1.0"?><feed xmlns="http://www.w3.org/2005/Atom"></feed>`))
	}))
	t.Cleanup(srv.Close)

	tk := New(func(o *Options) { o.BaseURL = srv.URL })
	tc := tool.NewContext(context.Background(), nil, "fc_1", nil)

	out, err := tk.Tools()[0].Call(tc, map[string]any{"query": "nothing matches this"})
	require.NoError(t, err)
	assert.Contains(t, out.(string), "No papers found")
}

func TestCollapseWhitespace(t *testing.T) {
	assert.Equal(t, "a b c", collapseWhitespace("a\n  b\tc"))
}
