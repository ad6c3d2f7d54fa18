package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cora/internal/hook"
	"cora/internal/logger"
)

// Executor looks up tools in the registry and runs them, normalizing
// every failure mode into the error variant of Result. A fault inside a
// handler never propagates to the caller.
type Executor struct {
	registry    *Registry
	hookManager *hook.Manager
	log         *logger.Logger
}

func NewExecutor(registry *Registry, log *logger.Logger) *Executor {
	if log == nil {
		log = logger.Nop()
	}
	return &Executor{
		registry: registry,
		log:      log,
	}
}

// SetHookManager sets the hook manager for tool execution hooks
func (e *Executor) SetHookManager(manager *hook.Manager) {
	e.hookManager = manager
}

// Execute runs a single tool by name. The returned Result is the error
// variant when the tool is unknown, a hook denies it, or the handler
// fails or panics.
func (e *Executor) Execute(ctx context.Context, name string, args Args) Result {
	start := time.Now()
	if args == nil {
		args = Args{}
	}

	argsJSON, _ := json.Marshal(args)
	e.log.ToolCall(name, string(argsJSON))

	result := e.run(ctx, name, args)

	e.log.ToolResult(name, !result.Failed(), result.Text(), time.Since(start))
	return result
}

// ExecuteCall runs a tool call from the chat backend, keeping the call
// ID and timing for the conversation history.
func (e *Executor) ExecuteCall(ctx context.Context, name, callID, rawArgs string) *CallResult {
	start := time.Now()

	args, err := ParseArgs(rawArgs)
	var result Result
	if err != nil {
		result = Errf("%v", err)
		e.log.ToolCall(name, rawArgs)
		e.log.ToolResult(name, false, result.Text(), time.Since(start))
	} else {
		result = e.Execute(ctx, name, args)
	}

	return &CallResult{
		ToolName:  name,
		CallID:    callID,
		Result:    result,
		StartTime: start,
		EndTime:   time.Now(),
	}
}

func (e *Executor) run(ctx context.Context, name string, args Args) (result Result) {
	// A panicking handler is reduced to an error result, same as a
	// returned error.
	defer func() {
		if r := recover(); r != nil {
			result = Errf("%v", r)
		}
	}()

	spec, ok := e.registry.Get(name)
	if !ok {
		return Errf("Unknown tool: %s", name)
	}

	if e.hookManager != nil {
		argsJSON, _ := json.Marshal(args)
		hookData := hook.NewHookData(hook.BeforeToolExecution, name).
			Set("params", string(argsJSON))

		feedback, err := e.hookManager.Trigger(ctx, hookData)
		if err != nil {
			return Errf("hook error: %v", err)
		}
		if !feedback.Allow {
			return Errf("Tool execution denied: %s", feedback.Message)
		}

		// Shell-style tools read the manager back out of the context
		// for their own command-level hooks.
		ctx = hook.WithManager(ctx, e.hookManager)
	}

	value, err := spec.Handler(ctx, args)
	if err != nil {
		result = Errf("%v", err)
	} else {
		result = Ok(value)
	}

	if e.hookManager != nil {
		hookData := hook.NewHookData(hook.AfterToolExecution, name).
			Set("result", result)
		// After hooks don't block, just trigger
		_, _ = e.hookManager.Trigger(ctx, hookData)
	}

	return result
}

// Describe returns a one-line summary of every registered tool, for the
// tool list command and the chat help text.
func (e *Executor) Describe() string {
	specs := e.registry.List()
	out := ""
	for _, s := range specs {
		out += fmt.Sprintf("  %-18s %s\n", s.Name, s.Description)
	}
	return out
}
