package handlers

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"cora/internal/hook"
)

func shellData(command string) *hook.HookData {
	return hook.NewHookData(hook.BeforeShellCommand, "run_shell").
		Set("command", command)
}

func TestShellSafetyHandler_BlocksListedCommand(t *testing.T) {
	h := NewShellSafetyHandler([]string{"rm -rf /", "mkfs"})

	feedback, err := h.Handle(context.Background(), shellData("sudo rm -rf / --no-preserve-root"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if feedback.Allow {
		t.Error("expected blocked command to be denied")
	}
	if !strings.Contains(feedback.Message, "rm -rf /") {
		t.Errorf("expected message to name the matched pattern, got %q", feedback.Message)
	}
}

func TestShellSafetyHandler_AllowsOtherCommands(t *testing.T) {
	h := NewShellSafetyHandler([]string{"mkfs"})

	feedback, err := h.Handle(context.Background(), shellData("ls -la"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !feedback.Allow {
		t.Errorf("expected allow, got deny: %s", feedback.Message)
	}
}

func TestShellConfirmHandler_AnswerDecides(t *testing.T) {
	cases := []struct {
		answer string
		allow  bool
	}{
		{"y\n", true},
		{"yes\n", true},
		{"n\n", false},
		{"\n", false},
	}

	for _, tc := range cases {
		var out bytes.Buffer
		h := NewShellConfirmHandlerWithIO(strings.NewReader(tc.answer), &out, []string{"shutdown"})

		feedback, err := h.Handle(context.Background(), shellData("shutdown -h now"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if feedback.Allow != tc.allow {
			t.Errorf("answer %q: expected allow=%v, got %v", tc.answer, tc.allow, feedback.Allow)
		}
		if !strings.Contains(out.String(), "shutdown -h now") {
			t.Error("expected prompt to show the command")
		}
	}
}

func TestShellConfirmHandler_UnlistedCommandSkipsPrompt(t *testing.T) {
	// Reader would deny if consulted; a command outside the confirm list
	// must never reach it
	var out bytes.Buffer
	h := NewShellConfirmHandlerWithIO(strings.NewReader("n\n"), &out, []string{"shutdown"})

	feedback, err := h.Handle(context.Background(), shellData("echo hello"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !feedback.Allow {
		t.Error("expected unlisted command to pass without confirmation")
	}
	if out.Len() != 0 {
		t.Errorf("expected no prompt output, got %q", out.String())
	}
}

func TestToolConfirmHandler_GatesOnlyListedTools(t *testing.T) {
	var out bytes.Buffer
	h := NewToolConfirmHandlerWithIO(strings.NewReader("n\n"), &out, "kill_process")

	data := hook.NewHookData(hook.BeforeToolExecution, "get_time")
	feedback, err := h.Handle(context.Background(), data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !feedback.Allow {
		t.Error("expected unlisted tool to pass without confirmation")
	}

	data = hook.NewHookData(hook.BeforeToolExecution, "kill_process").
		Set("params", `{"pid": 4242}`)
	feedback, err = h.Handle(context.Background(), data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if feedback.Allow {
		t.Error("expected listed tool to be denied on 'n'")
	}
	if !strings.Contains(out.String(), "kill_process") {
		t.Error("expected prompt to name the tool")
	}
	if !strings.Contains(out.String(), "4242") {
		t.Error("expected prompt to show the parameters")
	}
}

func TestToolConfirmHandler_AllowsOnYes(t *testing.T) {
	var out bytes.Buffer
	h := NewToolConfirmHandlerWithIO(strings.NewReader("y\n"), &out, "kill_process")

	data := hook.NewHookData(hook.BeforeToolExecution, "kill_process")
	feedback, err := h.Handle(context.Background(), data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !feedback.Allow {
		t.Errorf("expected allow, got deny: %s", feedback.Message)
	}
}
