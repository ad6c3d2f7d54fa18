package builtin

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"cora/internal/hook"
	"cora/internal/tool"
)

// RegisterShell adds the run_shell tool. Commands pass through the
// BeforeShellCommand hooks (safety blocklist, confirmation) before they
// run.
func RegisterShell(reg *tool.Registry) {
	reg.Register(&tool.Spec{
		Name:        "run_shell",
		Description: "Execute a shell command and return its output",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"command": map[string]any{
					"type":        "string",
					"description": "The shell command to execute",
				},
				"timeout": map[string]any{
					"type":        "number",
					"description": "Timeout in seconds (default: 30)",
				},
			},
			"required": []string{"command"},
		},
		Handler: runShell,
	})
}

func runShell(ctx context.Context, args tool.Args) (any, error) {
	command := args.String("command", "")
	if strings.TrimSpace(command) == "" {
		return nil, fmt.Errorf("command is required")
	}

	if manager := hook.FromContext(ctx); manager != nil {
		data := hook.NewHookData(hook.BeforeShellCommand, "run_shell").
			Set("command", command)

		feedback, err := manager.Trigger(ctx, data)
		if err != nil {
			return nil, fmt.Errorf("hook error: %v", err)
		}
		if !feedback.Allow {
			return nil, fmt.Errorf("%s", feedback.Message)
		}
	}

	timeout := args.Int("timeout", 30)
	if timeout <= 0 {
		timeout = 30
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(timeout)*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	output, err := cmd.CombinedOutput()

	result := map[string]any{
		"output": string(output),
	}
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("command timed out after %ds", timeout)
		}
		result["exit_error"] = err.Error()
	}

	if manager := hook.FromContext(ctx); manager != nil {
		data := hook.NewHookData(hook.AfterShellCommand, "run_shell").
			Set("command", command).
			Set("output", string(output))
		_, _ = manager.Trigger(ctx, data)
	}

	return result, nil
}
