package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Args is the argument mapping passed to a tool handler. Keys follow the
// tool's parameter schema; values are whatever JSON decoding produced.
type Args map[string]any

// String returns the string value for key, or def when absent or not a string.
func (a Args) String(key, def string) string {
	if v, ok := a[key].(string); ok {
		return v
	}
	return def
}

// Int returns the integer value for key. JSON numbers decode as float64,
// so both shapes are accepted.
func (a Args) Int(key string, def int) int {
	switch v := a[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return def
}

// Bool returns the boolean value for key, or def when absent.
func (a Args) Bool(key string, def bool) bool {
	if v, ok := a[key].(bool); ok {
		return v
	}
	return def
}

// ParseArgs decodes a JSON argument string into an Args map. An empty
// string decodes to an empty map.
func ParseArgs(raw string) (Args, error) {
	if raw == "" {
		return Args{}, nil
	}

	var args Args
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, fmt.Errorf("invalid tool arguments: %w", err)
	}
	if args == nil {
		args = Args{}
	}
	return args, nil
}

// Spec describes one registered tool. Specs are created once when a
// tool-providing module registers itself and are never mutated after.
type Spec struct {
	Name        string
	Description string
	// Parameters is the JSON schema for the handler's named arguments.
	Parameters map[string]any
	Handler    Handler
}

// Handler runs the tool. A returned error becomes the error variant of
// the Result; the value is ignored in that case.
type Handler func(ctx context.Context, args Args) (any, error)

// Result is the outcome of one tool execution: either a success value or
// an error message, never both.
type Result struct {
	Value any
	Err   string
}

// Ok wraps a success value.
func Ok(value any) Result {
	return Result{Value: value}
}

// Errf builds an error result from a format string.
func Errf(format string, args ...any) Result {
	return Result{Err: fmt.Sprintf(format, args...)}
}

// Failed reports whether the result is the error variant.
func (r Result) Failed() bool {
	return r.Err != ""
}

// Payload renders the result in the wire shape consumed by the relay and
// the chat front end: the success value as-is, or {"error": message}.
func (r Result) Payload() any {
	if r.Failed() {
		return map[string]any{"error": r.Err}
	}
	return r.Value
}

// Text renders the result as a display string for the CLI and chat log.
func (r Result) Text() string {
	if r.Failed() {
		return "Error: " + r.Err
	}

	switch v := r.Value.(type) {
	case string:
		return v
	case nil:
		return "(no output)"
	default:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	}
}

// CallResult pairs a Result with its invocation metadata, for logging
// and for tool-call responses in the agent loop.
type CallResult struct {
	ToolName  string
	CallID    string
	Result    Result
	StartTime time.Time
	EndTime   time.Time
}

// Duration returns how long the call took.
func (c *CallResult) Duration() time.Duration {
	return c.EndTime.Sub(c.StartTime)
}
