package commands

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/arbor-sdk/arbor/internal/subagent"
)

// NewAwaitCommand returns the await subcommand.
func NewAwaitCommand() *cli.Command {
	return &cli.Command{
		Name:  "await",
		Usage: "Block until one or more subagent tasks reach a terminal state",
		Flags: []cli.Flag{
			gatewayFlag,
			&cli.StringSliceFlag{Name: "id", Usage: "task id (repeatable)", Required: true},
			&cli.Int64Flag{Name: "timeout-ms", Value: 30_000},
			&cli.Int64Flag{Name: "poll-interval-ms"},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			in := subagent.AwaitInput{
				TaskIDs:        cmd.StringSlice("id"),
				TimeoutMs:      cmd.Int64("timeout-ms"),
				PollIntervalMs: cmd.Int64("poll-interval-ms"),
			}

			var out subagent.AwaitOutput
			if err := postJSON(cmd.String("gateway")+"/api/subagents/await", in, &out); err != nil {
				return err
			}
			return printJSON(out)
		},
	}
}
