package main

import (
	"context"
	"fmt"
	"strings"

	"cora/internal/tool"

	"github.com/spf13/cobra"
)

func newToolCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tool [name] [json-args]",
		Short: "Invoke a tool directly, or list all tools when no name is given",
		Args:  cobra.MaximumNArgs(2),
		RunE:  runTool,
	}
}

func runTool(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	app, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer app.Close()
	app.EnableToolConfirm()

	if len(args) == 0 {
		fmt.Print(app.Executor.Describe())
		return nil
	}

	name := args[0]
	toolArgs := tool.Args{}
	if len(args) == 2 {
		raw := strings.TrimSpace(args[1])
		if strings.HasPrefix(raw, "{") {
			toolArgs, err = tool.ParseArgs(raw)
			if err != nil {
				return err
			}
		} else {
			// Bare text routes through the keyword table's argument name
			route := app.Router.Resolve("/" + name + " " + raw)
			if route.Tool == name {
				toolArgs = route.Args
			}
		}
	}

	result := app.Executor.Execute(ctx, name, toolArgs)
	fmt.Println(result.Text())
	if result.Failed() {
		return fmt.Errorf("tool failed")
	}
	return nil
}
