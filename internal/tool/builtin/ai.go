package builtin

import (
	"context"
	"fmt"
	"strings"

	"cora/internal/llm"
	"cora/internal/llm/ollama"
	"cora/internal/tool"
)

// RegisterAI adds the language-model tools. The primary client answers
// the ask tool; the ollama client backs ask_ollama and list_models and
// may be the same instance.
func RegisterAI(reg *tool.Registry, primary llm.Client, local *ollama.Client) {
	reg.Register(&tool.Spec{
		Name:        "ask",
		Description: "Ask the AI assistant a question and get a text answer",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"question": map[string]any{
					"type":        "string",
					"description": "The question to answer",
				},
			},
			"required": []string{"question"},
		},
		Handler: func(ctx context.Context, args tool.Args) (any, error) {
			return askOnce(ctx, primary, args.String("question", ""))
		},
	})

	if local != nil {
		reg.Register(&tool.Spec{
			Name:        "ask_ollama",
			Description: "Ask the local Ollama model directly",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"question": map[string]any{
						"type":        "string",
						"description": "The question to answer",
					},
				},
				"required": []string{"question"},
			},
			Handler: func(ctx context.Context, args tool.Args) (any, error) {
				return askOnce(ctx, local, args.String("question", ""))
			},
		})

		reg.Register(&tool.Spec{
			Name:        "list_models",
			Description: "List the models installed in the local Ollama daemon",
			Parameters: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
			Handler: func(ctx context.Context, args tool.Args) (any, error) {
				models, err := local.ListModels(ctx)
				if err != nil {
					return nil, err
				}
				return map[string]any{"models": models, "count": len(models)}, nil
			},
		})
	}
}

// askOnce runs a single-shot completion with no tool calling.
func askOnce(ctx context.Context, client llm.Client, question string) (any, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("question is required")
	}
	if client == nil {
		return nil, fmt.Errorf("no AI backend configured")
	}

	resp, err := client.Chat(ctx, &llm.ChatRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: "You are Cora, a concise desktop assistant. Answer in plain text."},
			{Role: llm.RoleUser, Content: question},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("AI request failed: %v", err)
	}

	return map[string]any{"answer": resp.Message.Content}, nil
}
