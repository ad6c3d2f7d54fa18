package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"cora/internal/tool"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// AdaptTool wraps an MCP tool as a registry spec. Names are namespaced
// "server_tool" to keep them unique across servers and builtins.
func AdaptTool(client *Client, mcpTool *mcp.Tool) *tool.Spec {
	name := fmt.Sprintf("%s_%s", client.Name(), mcpTool.Name)

	desc := mcpTool.Description
	if desc == "" {
		desc = fmt.Sprintf("MCP tool from %s server", client.Name())
	}

	return &tool.Spec{
		Name:        name,
		Description: fmt.Sprintf("%s [MCP server: %s]", desc, client.Name()),
		Parameters:  adaptSchema(mcpTool.InputSchema),
		Handler: func(ctx context.Context, args tool.Args) (any, error) {
			result, err := client.CallTool(ctx, mcpTool.Name, args)
			if err != nil {
				return nil, fmt.Errorf("MCP tool execution failed: %v", err)
			}

			if result.IsError {
				return nil, fmt.Errorf("%s", formatError(result))
			}
			return formatContent(result.Content), nil
		},
	}
}

// adaptSchema converts the SDK's untyped input schema to the registry's
// map shape, falling back to an empty object schema.
func adaptSchema(schema any) map[string]any {
	empty := map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	}
	if schema == nil {
		return empty
	}

	if m, ok := schema.(map[string]any); ok {
		return m
	}

	// Not a map, round-trip through JSON to convert
	data, err := json.Marshal(schema)
	if err != nil {
		return empty
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return empty
	}
	return m
}

// formatContent converts MCP content array to string
func formatContent(content []mcp.Content) string {
	var parts []string

	for _, item := range content {
		switch c := item.(type) {
		case *mcp.TextContent:
			parts = append(parts, c.Text)

		case *mcp.ImageContent:
			parts = append(parts, fmt.Sprintf("[Image: %s]", c.MIMEType))

		case *mcp.AudioContent:
			parts = append(parts, fmt.Sprintf("[Audio: %s]", c.MIMEType))

		default:
			// Unknown content type - try to marshal to JSON
			data, err := json.Marshal(item)
			if err != nil {
				parts = append(parts, fmt.Sprintf("[Unknown content type: %T]", item))
			} else {
				parts = append(parts, string(data))
			}
		}
	}

	return strings.Join(parts, "\n")
}

// formatError extracts an error message from an MCP result
func formatError(result *mcp.CallToolResult) string {
	if len(result.Content) > 0 {
		return formatContent(result.Content)
	}
	return "MCP tool returned an error"
}
