package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"cora/internal/llm"

	"github.com/ollama/ollama/api"
)

const defaultEndpoint = "http://localhost:11434"

// Client talks to a local Ollama daemon. It speaks the generate endpoint
// directly over HTTP using the official request/response types, since the
// daemon does not support function calling for every model.
type Client struct {
	endpoint string
	model    string
	http     *http.Client
}

// NewClient creates a client for the given endpoint and model. An empty
// endpoint means the default local daemon.
func NewClient(endpoint, model string) *Client {
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		model:    model,
		http:     &http.Client{Timeout: 120 * time.Second},
	}
}

func (c *Client) Chat(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	stream := false
	genReq := api.GenerateRequest{
		Model:  c.model,
		Prompt: flattenMessages(req.Messages),
		Stream: &stream,
		Options: map[string]any{
			"temperature": req.Temperature,
		},
	}

	body, err := json.Marshal(genReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal generate request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ollama request failed (is the daemon running?): %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read ollama response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var genResp api.GenerateResponse
	if err := json.Unmarshal(data, &genResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ollama response: %w", err)
	}

	return &llm.ChatResponse{
		Message: llm.Message{
			Role:    llm.RoleAssistant,
			Content: strings.TrimSpace(genResp.Response),
		},
		StopReason: llm.StopReasonStop,
	}, nil
}

func (c *Client) Provider() string {
	return "ollama"
}

func (c *Client) Model() string {
	return c.model
}

// ListModels returns the names of the models installed in the daemon.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama returned status %d", resp.StatusCode)
	}

	var list api.ListResponse
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("failed to unmarshal model list: %w", err)
	}

	names := make([]string, 0, len(list.Models))
	for _, m := range list.Models {
		names = append(names, m.Name)
	}
	return names, nil
}

// Available reports whether the daemon answers at all, for diagnostics.
func (c *Client) Available(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := c.ListModels(ctx)
	return err == nil
}

// flattenMessages renders a conversation into a single prompt for models
// served through the generate endpoint.
func flattenMessages(msgs []llm.Message) string {
	var sb strings.Builder
	for _, m := range msgs {
		switch m.Role {
		case llm.RoleSystem:
			sb.WriteString(m.Content)
			sb.WriteString("\n\n")
		case llm.RoleUser:
			sb.WriteString("User: ")
			sb.WriteString(m.Content)
			sb.WriteString("\n")
		case llm.RoleAssistant:
			sb.WriteString("Assistant: ")
			sb.WriteString(m.Content)
			sb.WriteString("\n")
		}
	}
	sb.WriteString("Assistant:")
	return sb.String()
}
