package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cora/internal/llm"
	"cora/internal/tool"
)

// scriptedClient replays a fixed sequence of responses.
type scriptedClient struct {
	responses []*llm.ChatResponse
	calls     int
	lastReq   *llm.ChatRequest
}

func (c *scriptedClient) Chat(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	c.lastReq = req
	if c.calls >= len(c.responses) {
		return &llm.ChatResponse{
			Message:    llm.Message{Role: llm.RoleAssistant, Content: "done"},
			StopReason: llm.StopReasonStop,
		}, nil
	}
	resp := c.responses[c.calls]
	c.calls++
	return resp, nil
}

func (c *scriptedClient) Provider() string { return "scripted" }
func (c *scriptedClient) Model() string    { return "test" }

func TestAgent_PlainAnswer(t *testing.T) {
	client := &scriptedClient{responses: []*llm.ChatResponse{{
		Message:    llm.Message{Role: llm.RoleAssistant, Content: "hello back"},
		StopReason: llm.StopReasonStop,
	}}}

	registry := tool.NewRegistry(nil)
	executor := tool.NewExecutor(registry, nil)
	a := New("be brief", client, registry, executor, nil)

	out, err := a.Run(context.Background(), nil, "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello back", out.Reply)
	assert.Empty(t, out.ToolCalls)

	// System prompt and user input both reach the model
	assert.Equal(t, llm.RoleSystem, client.lastReq.Messages[0].Role)
	assert.Equal(t, "hello", client.lastReq.Messages[1].Content)
}

func TestAgent_ToolCallRoundTrip(t *testing.T) {
	client := &scriptedClient{responses: []*llm.ChatResponse{
		{
			Message: llm.Message{
				Role: llm.RoleAssistant,
				ToolCalls: []*llm.ToolCall{{
					ID:   "call-1",
					Type: "function",
					Function: &llm.FunctionCall{
						Name:      "echo",
						Arguments: `{"text":"ping"}`,
					},
				}},
			},
			StopReason: llm.StopReasonToolCalls,
		},
		{
			Message:    llm.Message{Role: llm.RoleAssistant, Content: "it said ping"},
			StopReason: llm.StopReasonStop,
		},
	}}

	registry := tool.NewRegistry(nil)
	registry.Register(&tool.Spec{
		Name: "echo",
		Handler: func(ctx context.Context, args tool.Args) (any, error) {
			return args.String("text", ""), nil
		},
	})
	executor := tool.NewExecutor(registry, nil)
	a := New("", client, registry, executor, nil)

	out, err := a.Run(context.Background(), nil, "please echo ping")
	require.NoError(t, err)

	assert.Equal(t, "it said ping", out.Reply)
	require.Len(t, out.ToolCalls, 1)
	assert.Equal(t, "echo", out.ToolCalls[0].ToolName)
	assert.False(t, out.ToolCalls[0].Result.Failed())

	// The tool result message went back to the model
	var sawToolMsg bool
	for _, m := range client.lastReq.Messages {
		if m.Role == llm.RoleTool && m.ToolCallID == "call-1" {
			sawToolMsg = true
			assert.Equal(t, "ping", m.Content)
		}
	}
	assert.True(t, sawToolMsg)
}

func TestAgent_MaxTurnsExceeded(t *testing.T) {
	// A model that asks for tools forever
	loop := &llm.ChatResponse{
		Message: llm.Message{
			Role: llm.RoleAssistant,
			ToolCalls: []*llm.ToolCall{{
				ID:       "call-x",
				Type:     "function",
				Function: &llm.FunctionCall{Name: "noop", Arguments: "{}"},
			}},
		},
		StopReason: llm.StopReasonToolCalls,
	}
	client := &scriptedClient{responses: []*llm.ChatResponse{loop, loop, loop}}

	registry := tool.NewRegistry(nil)
	registry.Register(&tool.Spec{
		Name: "noop",
		Handler: func(ctx context.Context, args tool.Args) (any, error) {
			return "ok", nil
		},
	})
	executor := tool.NewExecutor(registry, nil)
	a := New("", client, registry, executor, nil)
	a.SetMaxTurns(2)

	_, err := a.Run(context.Background(), nil, "loop forever")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max turns")
}
