package commands

import (
	"context"
	"net/url"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/arbor-sdk/arbor/internal/subagent"
)

// NewPollCommand returns the poll subcommand.
func NewPollCommand() *cli.Command {
	return &cli.Command{
		Name:  "poll",
		Usage: "Poll one or more subagent tasks by id",
		Flags: []cli.Flag{
			gatewayFlag,
			&cli.StringSliceFlag{Name: "id", Usage: "task id (repeatable)"},
			&cli.BoolFlag{Name: "partial-output"},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			q := url.Values{}
			ids := cmd.StringSlice("id")
			if len(ids) > 0 {
				q.Set("ids", strings.Join(ids, ","))
			}
			if cmd.Bool("partial-output") {
				q.Set("includePartialOutput", "true")
			}

			var out subagent.PollOutput
			u := cmd.String("gateway") + "/api/subagents"
			if encoded := q.Encode(); encoded != "" {
				u += "?" + encoded
			}
			if err := getJSON(u, &out); err != nil {
				return err
			}
			return printJSON(out)
		},
	}
}
