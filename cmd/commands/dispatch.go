package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/arbor-sdk/arbor/internal/subagent"
)

// NewDispatchCommand returns the dispatch subcommand.
func NewDispatchCommand() *cli.Command {
	return &cli.Command{
		Name:  "dispatch",
		Usage: "Dispatch a new subagent task",
		Flags: []cli.Flag{
			gatewayFlag,
			&cli.StringFlag{Name: "prompt", Required: true},
			&cli.StringFlag{Name: "instructions"},
			&cli.StringFlag{Name: "parent-id"},
			&cli.IntFlag{Name: "priority"},
			&cli.Int64Flag{Name: "timeout-ms"},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			in := subagent.DispatchInput{
				Prompt:       cmd.String("prompt"),
				Instructions: cmd.String("instructions"),
				ParentID:     cmd.String("parent-id"),
				TimeoutMs:    cmd.Int64("timeout-ms"),
			}
			if cmd.IsSet("priority") {
				p := subagent.Priority(cmd.Int("priority"))
				in.Priority = &p
			}

			var out subagent.DispatchOutput
			if err := postJSON(cmd.String("gateway")+"/api/subagents", in, &out); err != nil {
				return err
			}
			return printJSON(out)
		},
	}
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
