package llm_test

import (
	"context"
	"strings"
	"testing"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskpilot/taskpilot/internal/agent"
	"github.com/taskpilot/taskpilot/internal/llm"
	"github.com/taskpilot/taskpilot/internal/testutil"
)

func newMockGenerator(t *testing.T, mock *testutil.MockLLM) *llm.Generator {
	t.Helper()

	g := genkit.Init(context.Background())
	require.NotNil(t, g, "genkit init")
	mock.RegisterModel(g)

	return llm.NewWithModel(g, testutil.ModelName, nil, nil)
}

func TestGenerator_Text(t *testing.T) {
	mock := testutil.NewMockLLM("I can help with your tasks.")
	mock.AddReply("weather", "I cannot check the weather.")
	gen := newMockGenerator(t, mock)

	turn, err := gen.Generate(context.Background(), &agent.GenerateRequest{
		Messages: []*ai.Message{ai.NewUserMessage(ai.NewTextPart("what is the weather"))},
	})
	require.NoError(t, err)

	assert.Equal(t, "I cannot check the weather.", turn.Text)
	assert.Empty(t, turn.ToolRequests)
	require.NotNil(t, turn.Message)
	assert.Equal(t, ai.RoleModel, turn.Message.Role)

	calls := mock.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "what is the weather", calls[0].UserMessage)
}

func TestGenerator_Streaming(t *testing.T) {
	mock := testutil.NewMockLLM("streamed reply")
	gen := newMockGenerator(t, mock)

	var tokens []string
	turn, err := gen.Generate(context.Background(), &agent.GenerateRequest{
		Messages: []*ai.Message{ai.NewUserMessage(ai.NewTextPart("hello"))},
		Stream: func(text string) error {
			tokens = append(tokens, text)
			return nil
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "streamed reply", turn.Text)
	assert.NotEmpty(t, tokens)
	assert.Equal(t, "streamed reply", strings.Join(tokens, ""))
}

func TestGenerator_ReturnsToolRequestsUnexecuted(t *testing.T) {
	mock := testutil.NewMockLLM("done")
	mock.AddToolReply("remind me", []*ai.ToolRequest{
		{Name: "add_task", Input: map[string]any{"title": "buy milk"}},
	}, "Adding that task.")
	gen := newMockGenerator(t, mock)

	turn, err := gen.Generate(context.Background(), &agent.GenerateRequest{
		Messages: []*ai.Message{ai.NewUserMessage(ai.NewTextPart("remind me to buy milk"))},
	})
	require.NoError(t, err)

	require.Len(t, turn.ToolRequests, 1)
	assert.Equal(t, "add_task", turn.ToolRequests[0].Name)
	assert.Equal(t, map[string]any{"title": "buy milk"}, turn.ToolRequests[0].Input)
}
