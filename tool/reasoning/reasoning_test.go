package reasoning

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rivalscope/rivalscope/tool"
)

func TestThinkAndAnalyzeShareState(t *testing.T) {
	tk := New()
	tools := tk.Tools()
	require.Len(t, tools, 2)

	state := map[string]any{}
	tc := tool.NewContext(context.Background(), nil, "fc_1", state)

	out, err := tools[0].Call(tc, map[string]any{
		"title":   "plan",
		"thought": "identify competitors first",
	})
	require.NoError(t, err)
	assert.Contains(t, out.(string), "step 1")

	tc2 := tool.NewContext(context.Background(), nil, "fc_2", state)
	out, err = tools[1].Call(tc2, map[string]any{
		"title":  "first pass",
		"result": "found three direct competitors",
	})
	require.NoError(t, err)
	assert.Contains(t, out.(string), "step 2")
	assert.Contains(t, out.(string), "continue")
}

func TestAnalyzeNextAction(t *testing.T) {
	tk := New()
	tc := tool.NewContext(context.Background(), nil, "fc_1", nil)

	out, err := tk.Tools()[1].Call(tc, map[string]any{
		"title":       "wrap up",
		"result":      "enough data gathered",
		"next_action": "conclude",
	})
	require.NoError(t, err)
	assert.Contains(t, out.(string), "conclude")
}

func TestInstructionsGated(t *testing.T) {
	assert.Empty(t, New().Instructions())

	withGuidance := New(func(o *Options) { o.AddInstructions = true })
	assert.Contains(t, withGuidance.Instructions(), "think tool")
}
