package agent

import (
	"context"
	"fmt"
	"time"

	"cora/internal/llm"
	"cora/internal/logger"
	"cora/internal/tool"
)

const defaultMaxTurns = 10

// Agent runs a function-calling conversation loop: the model answers or
// requests tool calls, tool results feed back in, until the model stops
// or the turn budget runs out.
type Agent struct {
	systemPrompt string
	client       llm.Client
	registry     *tool.Registry
	executor     *tool.Executor
	log          *logger.Logger
	maxTurns     int
}

// Output is one completed run.
type Output struct {
	Reply     string
	Messages  []llm.Message
	ToolCalls []*tool.CallResult
}

func New(systemPrompt string, client llm.Client, registry *tool.Registry, executor *tool.Executor, log *logger.Logger) *Agent {
	if log == nil {
		log = logger.Nop()
	}
	return &Agent{
		systemPrompt: systemPrompt,
		client:       client,
		registry:     registry,
		executor:     executor,
		log:          log,
		maxTurns:     defaultMaxTurns,
	}
}

// SetMaxTurns overrides the turn budget.
func (a *Agent) SetMaxTurns(n int) {
	if n > 0 {
		a.maxTurns = n
	}
}

// Run answers one user input against the given conversation history.
// History should not include the system prompt; the agent prepends it.
func (a *Agent) Run(ctx context.Context, history []llm.Message, input string) (*Output, error) {
	messages := make([]llm.Message, 0, len(history)+2)
	if a.systemPrompt != "" {
		messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: a.systemPrompt})
	}
	messages = append(messages, history...)
	messages = append(messages, llm.Message{
		Role:      llm.RoleUser,
		Content:   input,
		Timestamp: time.Now(),
	})

	var allCalls []*tool.CallResult

	for turn := 0; turn < a.maxTurns; turn++ {
		a.log.Debug("agent turn %d", turn+1)

		resp, err := a.client.Chat(ctx, &llm.ChatRequest{
			Messages: messages,
			Tools:    a.registry.Definitions(),
		})
		if err != nil {
			return nil, fmt.Errorf("AI call failed: %w", err)
		}

		messages = append(messages, resp.Message)

		if resp.StopReason != llm.StopReasonToolCalls {
			reply := resp.Message.Content
			if resp.StopReason == llm.StopReasonLength {
				reply += "\n[response truncated]"
			}
			return &Output{Reply: reply, Messages: messages, ToolCalls: allCalls}, nil
		}

		for _, tc := range resp.Message.ToolCalls {
			call := a.executor.ExecuteCall(ctx, tc.Function.Name, tc.ID, tc.Function.Arguments)
			allCalls = append(allCalls, call)

			messages = append(messages, llm.Message{
				Role:       llm.RoleTool,
				ToolCallID: call.CallID,
				Content:    call.Result.Text(),
				Name:       call.ToolName,
				Timestamp:  call.EndTime,
			})
		}
	}

	return nil, fmt.Errorf("max turns (%d) exceeded", a.maxTurns)
}
