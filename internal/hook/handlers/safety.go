package handlers

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"cora/internal/hook"
)

// ShellSafetyHandler rejects shell commands that match the configured
// blocklist. It runs before any confirmation prompt.
type ShellSafetyHandler struct {
	blocked []string
}

// NewShellSafetyHandler creates a handler from the configured blocklist.
func NewShellSafetyHandler(blocked []string) *ShellSafetyHandler {
	return &ShellSafetyHandler{blocked: blocked}
}

func (h *ShellSafetyHandler) Name() string {
	return "shell_safety"
}

func (h *ShellSafetyHandler) Points() []hook.HookPoint {
	return []hook.HookPoint{hook.BeforeShellCommand}
}

func (h *ShellSafetyHandler) Priority() int {
	return 200 // Runs before confirmation
}

func (h *ShellSafetyHandler) Handle(ctx context.Context, data *hook.HookData) (*hook.Feedback, error) {
	command := data.GetString("command")
	if command == "" {
		return hook.AllowFeedback(), nil
	}

	lowered := strings.ToLower(command)
	for _, pattern := range h.blocked {
		if pattern != "" && strings.Contains(lowered, strings.ToLower(pattern)) {
			return hook.DenyFeedback(fmt.Sprintf("Command blocked by safety policy (matched %q)", pattern)), nil
		}
	}

	return hook.AllowFeedback(), nil
}

// ShellConfirmHandler prompts the user before running commands that match
// the configured confirm list. An empty list confirms everything.
type ShellConfirmHandler struct {
	reader   io.Reader
	writer   io.Writer
	patterns []string
}

// NewShellConfirmHandler creates a new shell confirmation handler
func NewShellConfirmHandler(patterns []string) *ShellConfirmHandler {
	return &ShellConfirmHandler{
		reader:   os.Stdin,
		writer:   os.Stdout,
		patterns: patterns,
	}
}

// NewShellConfirmHandlerWithIO creates a handler with custom IO (for testing)
func NewShellConfirmHandlerWithIO(reader io.Reader, writer io.Writer, patterns []string) *ShellConfirmHandler {
	return &ShellConfirmHandler{
		reader:   reader,
		writer:   writer,
		patterns: patterns,
	}
}

func (h *ShellConfirmHandler) Name() string {
	return "shell_confirm"
}

func (h *ShellConfirmHandler) Points() []hook.HookPoint {
	return []hook.HookPoint{hook.BeforeShellCommand}
}

func (h *ShellConfirmHandler) Priority() int {
	return 100
}

func (h *ShellConfirmHandler) Handle(ctx context.Context, data *hook.HookData) (*hook.Feedback, error) {
	command := data.GetString("command")
	if command == "" {
		return hook.AllowFeedback(), nil
	}

	if len(h.patterns) > 0 && !h.matches(command) {
		return hook.AllowFeedback(), nil
	}

	fmt.Fprintf(h.writer, "\n\033[33mShell command requires confirmation:\033[0m\n")
	fmt.Fprintf(h.writer, "    \033[1m%s\033[0m\n\n", command)
	fmt.Fprintf(h.writer, "Allow? [y/N]: ")

	scanner := bufio.NewScanner(h.reader)
	if !scanner.Scan() {
		return hook.DenyFeedback("No input received"), nil
	}

	input := strings.TrimSpace(strings.ToLower(scanner.Text()))

	switch input {
	case "y", "yes":
		fmt.Fprintf(h.writer, "\033[32mAllowed\033[0m\n\n")
		return hook.AllowFeedback(), nil
	default:
		fmt.Fprintf(h.writer, "\033[31mDenied\033[0m\n\n")
		return hook.DenyFeedback("User denied command execution"), nil
	}
}

func (h *ShellConfirmHandler) matches(command string) bool {
	lowered := strings.ToLower(command)
	for _, pattern := range h.patterns {
		if pattern != "" && strings.Contains(lowered, strings.ToLower(pattern)) {
			return true
		}
	}
	return false
}

// ToolConfirmHandler prompts user for confirmation before executing
// specific tools (remote commands arriving through the relay bypass it).
type ToolConfirmHandler struct {
	reader    io.Reader
	writer    io.Writer
	toolNames map[string]bool // Only confirm these tools (empty = all)
}

// NewToolConfirmHandler creates a new tool confirmation handler
func NewToolConfirmHandler(tools ...string) *ToolConfirmHandler {
	return NewToolConfirmHandlerWithIO(os.Stdin, os.Stdout, tools...)
}

// NewToolConfirmHandlerWithIO creates a handler with custom IO (for testing)
func NewToolConfirmHandlerWithIO(reader io.Reader, writer io.Writer, tools ...string) *ToolConfirmHandler {
	toolNames := make(map[string]bool)
	for _, t := range tools {
		toolNames[t] = true
	}
	return &ToolConfirmHandler{
		reader:    reader,
		writer:    writer,
		toolNames: toolNames,
	}
}

func (h *ToolConfirmHandler) Name() string {
	return "tool_confirm"
}

func (h *ToolConfirmHandler) Points() []hook.HookPoint {
	return []hook.HookPoint{hook.BeforeToolExecution}
}

func (h *ToolConfirmHandler) Priority() int {
	return 100
}

func (h *ToolConfirmHandler) Handle(ctx context.Context, data *hook.HookData) (*hook.Feedback, error) {
	if len(h.toolNames) > 0 && !h.toolNames[data.ToolName] {
		return hook.AllowFeedback(), nil
	}

	params := data.GetString("params")

	fmt.Fprintf(h.writer, "\n\033[33mTool '%s' requires confirmation:\033[0m\n", data.ToolName)
	if params != "" {
		fmt.Fprintf(h.writer, "    Parameters: %s\n", params)
	}
	fmt.Fprintf(h.writer, "\nAllow? [y/N]: ")

	scanner := bufio.NewScanner(h.reader)
	if !scanner.Scan() {
		return hook.DenyFeedback("No input received"), nil
	}

	input := strings.TrimSpace(strings.ToLower(scanner.Text()))

	switch input {
	case "y", "yes":
		fmt.Fprintf(h.writer, "\033[32mAllowed\033[0m\n\n")
		return hook.AllowFeedback(), nil
	default:
		fmt.Fprintf(h.writer, "\033[31mDenied\033[0m\n\n")
		return hook.DenyFeedback("User denied tool execution"), nil
	}
}
