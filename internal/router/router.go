package router

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"cora/internal/tool"
)

// AskTool is the fallback tool that receives any input nothing else
// matched.
const AskTool = "ask"

// Rule maps a keyword substring to a tool. Trailing input after the
// keyword becomes the argument named by ArgKey.
type Rule struct {
	Tool     string
	Keywords []string
	ArgKey   string
}

// defaultRules is the shipped keyword table. Declaration order matters:
// the first matching keyword wins.
var defaultRules = []Rule{
	{Tool: "read_file", Keywords: []string{"read file", "show file", "open file", "cat "}, ArgKey: "path"},
	{Tool: "list_files", Keywords: []string{"list files", "show files", "ls ", "dir "}, ArgKey: "path"},
	{Tool: "search_files", Keywords: []string{"find files", "search files"}, ArgKey: "pattern"},
	{Tool: "run_shell", Keywords: []string{"run command", "shell ", "bash "}, ArgKey: "command"},
	{Tool: "web_search", Keywords: []string{"search for", "look up", "google", "find online"}, ArgKey: "query"},
	{Tool: "fetch_url", Keywords: []string{"fetch url", "get page", "download page"}, ArgKey: "url"},
	{Tool: "weather", Keywords: []string{"weather in", "weather for", "what's the weather"}, ArgKey: "location"},
	{Tool: "add_note", Keywords: []string{"save note", "remember", "add note"}, ArgKey: "text"},
	{Tool: "list_notes", Keywords: []string{"list notes", "show notes", "my notes"}},
	{Tool: "search_notes", Keywords: []string{"search notes", "find note"}, ArgKey: "query"},
	{Tool: "speak", Keywords: []string{"say ", "speak ", "tell me"}, ArgKey: "text"},
	{Tool: "list_models", Keywords: []string{"list models", "available models", "ollama models"}},
	{Tool: "system_info", Keywords: []string{"system info", "system status", "how's the system"}},
	{Tool: "get_clipboard", Keywords: []string{"clipboard", "what did i copy"}},
	{Tool: "get_time", Keywords: []string{"what time", "current time", "what's the date"}},
	{Tool: "list_processes", Keywords: []string{"list processes", "running processes", "top processes"}},
}

// Route is the resolved destination for one input line.
type Route struct {
	Tool string
	Args tool.Args
}

// Router maps free-text input to a tool invocation: slash commands win,
// then the keyword table in declaration order, then the ask fallback.
type Router struct {
	registry *tool.Registry
	rules    []Rule
}

func New(registry *tool.Registry) *Router {
	return &Router{
		registry: registry,
		rules:    defaultRules,
	}
}

// NewWithRules creates a router with a custom keyword table, for tests
// and configuration overrides.
func NewWithRules(registry *tool.Registry, rules []Rule) *Router {
	return &Router{registry: registry, rules: rules}
}

// Resolve maps one line of input to a tool and arguments. It always
// returns a route: unmatched input goes to the ask tool.
func (r *Router) Resolve(input string) Route {
	trimmed := strings.TrimSpace(input)

	if route, ok := r.resolveSlash(trimmed); ok {
		return route
	}

	for _, rule := range r.rules {
		if _, registered := r.registry.Get(rule.Tool); !registered {
			continue
		}
		for _, keyword := range rule.Keywords {
			end := keywordEnd(trimmed, keyword)
			if end < 0 {
				continue
			}

			args := tool.Args{}
			if rule.ArgKey != "" {
				if rest := strings.TrimSpace(trimmed[end:]); rest != "" {
					args[rule.ArgKey] = rest
				}
			}
			return Route{Tool: rule.Tool, Args: args}
		}
	}

	return Route{Tool: AskTool, Args: tool.Args{"question": trimmed}}
}

// keywordEnd reports the byte offset in input just past the first
// case-insensitive occurrence of keyword, or -1 when absent. Offsets
// into the lowercased copy cannot be used on input directly: case
// folding can change rune widths (İ shrinks, Ⱥ grows), so the match
// position is walked back to the original rune by rune.
func keywordEnd(input, keyword string) int {
	folded := strings.ToLower(keyword)
	idx := strings.Index(strings.ToLower(input), folded)
	if idx < 0 {
		return -1
	}

	target := idx + len(folded)
	li := 0
	for i, r := range input {
		if li == target {
			return i
		}
		li += utf8.RuneLen(unicode.ToLower(r))
	}
	if li == target {
		return len(input)
	}
	return -1
}

// resolveSlash handles the explicit "/tool_name rest" convention. It
// only claims the input when the named tool is actually registered.
func (r *Router) resolveSlash(input string) (Route, bool) {
	if !strings.HasPrefix(input, "/") {
		return Route{}, false
	}

	name, rest, _ := strings.Cut(input[1:], " ")
	if name == "" {
		return Route{}, false
	}
	if _, ok := r.registry.Get(name); !ok {
		return Route{}, false
	}

	args := tool.Args{}
	rest = strings.TrimSpace(rest)
	if rest != "" {
		if key := r.primaryArgKey(name); key != "" {
			args[key] = rest
		} else {
			args["input"] = rest
		}
	}
	return Route{Tool: name, Args: args}, true
}

// primaryArgKey picks the argument name for raw slash-command text:
// the rule table's key when the tool has one, otherwise the first
// required parameter from the tool's schema.
func (r *Router) primaryArgKey(toolName string) string {
	for _, rule := range r.rules {
		if rule.Tool == toolName && rule.ArgKey != "" {
			return rule.ArgKey
		}
	}

	spec, ok := r.registry.Get(toolName)
	if !ok || spec.Parameters == nil {
		return ""
	}
	// Hand-built schemas carry []string; schemas that round-tripped
	// through JSON (MCP servers) carry []any.
	switch required := spec.Parameters["required"].(type) {
	case []string:
		if len(required) > 0 {
			return required[0]
		}
	case []any:
		if len(required) > 0 {
			if name, ok := required[0].(string); ok {
				return name
			}
		}
	}
	return ""
}
