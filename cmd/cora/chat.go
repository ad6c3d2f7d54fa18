package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"cora/internal/agent"
	"cora/internal/llm"
	"cora/internal/router"

	"github.com/spf13/cobra"
)

const systemPrompt = `You are Cora, a personal desktop assistant.
You have access to tools for files, shell, system state, notes and the web.
Use tools when they help; otherwise answer directly. Be concise.`

const maxHistory = 50

func newChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Interactive chat with slash commands and natural language",
		RunE:  runChat,
	}
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	app, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer app.Close()
	app.EnableToolConfirm()

	if !quiet && app.Speaker.Available() {
		app.Speaker.Start()
	}

	ag := agent.New(systemPrompt, app.Primary, app.Registry, app.Executor, app.Log)

	fmt.Printf("Cora ready (%d tools). Type /tools for a list, 'exit' to quit.\n", app.Registry.Len())

	var history []llm.Message
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())

		switch input {
		case "":
			continue
		case "exit", "quit":
			return nil
		case "/tools":
			fmt.Print(app.Executor.Describe())
			continue
		}

		route := app.Router.Resolve(input)

		if route.Tool != router.AskTool {
			result := app.Executor.Execute(ctx, route.Tool, route.Args)
			fmt.Printf("\n%s\n\n", result.Text())
			if !result.Failed() {
				app.speakReply(result.Text())
			}
			continue
		}

		out, err := ag.Run(ctx, history, input)
		if err != nil {
			app.Log.Error("%v", err)
			continue
		}

		fmt.Printf("\nCora: %s\n\n", out.Reply)
		app.speakReply(out.Reply)

		history = append(history,
			llm.Message{Role: llm.RoleUser, Content: input},
			llm.Message{Role: llm.RoleAssistant, Content: out.Reply},
		)
		if len(history) > maxHistory {
			history = history[len(history)-maxHistory:]
		}
	}

	return scanner.Err()
}
