package router

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"cora/internal/tool"
)

func newTestRouter(toolNames ...string) *Router {
	registry := tool.NewRegistry(nil)
	for _, name := range toolNames {
		registry.Register(&tool.Spec{
			Name: name,
			Handler: func(ctx context.Context, args tool.Args) (any, error) {
				return nil, nil
			},
		})
	}
	return New(registry)
}

func TestResolve_KeywordWithTrailingArgument(t *testing.T) {
	router := newTestRouter("speak")

	route := router.Resolve("say hello there")
	assert.Equal(t, "speak", route.Tool)
	assert.Equal(t, "hello there", route.Args["text"])
}

func TestResolve_KeywordWithoutArgument(t *testing.T) {
	router := newTestRouter("list_notes")

	route := router.Resolve("show notes")
	assert.Equal(t, "list_notes", route.Tool)
	assert.Empty(t, route.Args)
}

func TestResolve_SlashCommandWins(t *testing.T) {
	router := newTestRouter("system_info", "speak")

	route := router.Resolve("/system_info")
	assert.Equal(t, "system_info", route.Tool)
	assert.Empty(t, route.Args)

	// Slash beats any keyword in the rest of the line
	route = router.Resolve("/speak say hello")
	assert.Equal(t, "speak", route.Tool)
	assert.Equal(t, "say hello", route.Args["text"])
}

func TestResolve_SlashUnknownToolFallsThrough(t *testing.T) {
	router := newTestRouter("speak")

	route := router.Resolve("/not_a_tool do things")
	assert.Equal(t, AskTool, route.Tool)
	assert.Equal(t, "/not_a_tool do things", route.Args["question"])
}

func TestResolve_UnmatchedGoesToAsk(t *testing.T) {
	router := newTestRouter("speak", "weather")

	route := router.Resolve("what is the meaning of life")
	assert.Equal(t, AskTool, route.Tool)
	assert.Equal(t, "what is the meaning of life", route.Args["question"])
}

func TestResolve_UnregisteredRuleIsSkipped(t *testing.T) {
	// "weather" rule exists but the tool is not registered, so the
	// input falls through to ask
	router := newTestRouter("speak")

	route := router.Resolve("weather in Lisbon")
	assert.Equal(t, AskTool, route.Tool)
}

func TestResolve_TableOrderIsDeterministic(t *testing.T) {
	router := newTestRouter("read_file", "run_shell")

	// "cat " appears before "bash " in the table, so an input holding
	// both always routes to read_file
	first := router.Resolve("cat notes.txt via bash please")
	second := router.Resolve("cat notes.txt via bash please")
	assert.Equal(t, "read_file", first.Tool)
	assert.Equal(t, first, second)
}

func TestResolve_MultiByteInputKeepsOffsetsAligned(t *testing.T) {
	router := newTestRouter("speak")

	// Case folding changes byte widths for these runes, so keyword
	// offsets must be taken on the original string, not a lowered copy.
	route := router.Resolve("ȺȺsay b") // Ⱥ grows when lowercased
	assert.Equal(t, "speak", route.Tool)
	assert.Equal(t, "b", route.Args["text"])

	route = router.Resolve("İİsay b") // İ shrinks when lowercased
	assert.Equal(t, "speak", route.Tool)
	assert.Equal(t, "b", route.Args["text"])
}

func TestResolve_SlashUsesRequiredKeyFromJSONSchema(t *testing.T) {
	// Schemas that round-trip through JSON carry "required" as []any,
	// not []string
	registry := tool.NewRegistry(nil)
	registry.Register(&tool.Spec{
		Name: "files_search",
		Parameters: map[string]any{
			"type":     "object",
			"required": []any{"query", "limit"},
		},
		Handler: func(ctx context.Context, args tool.Args) (any, error) {
			return nil, nil
		},
	})
	router := New(registry)

	route := router.Resolve("/files_search kernel docs")
	assert.Equal(t, "files_search", route.Tool)
	assert.Equal(t, "kernel docs", route.Args["query"])
}

func TestResolve_KeywordIsCaseInsensitive(t *testing.T) {
	router := newTestRouter("weather")

	route := router.Resolve("WEATHER IN tokyo")
	assert.Equal(t, "weather", route.Tool)
	assert.Equal(t, "tokyo", route.Args["location"])
}
