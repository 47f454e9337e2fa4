package commands

import (
	"github.com/urfave/cli/v3"

	"github.com/arbor-sdk/arbor/internal/config"
)

// NewRootCommand returns the top-level CLI command.
func NewRootCommand(version, commit string) *cli.Command {
	return &cli.Command{
		Name:    "arbor",
		Usage:   "Hierarchical subagent execution core",
		Version: version + " (" + commit + ")",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file",
				Value:   config.ConfigPath(),
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
		},
		Commands: []*cli.Command{
			NewServeCommand(),
			NewDispatchCommand(),
			NewPollCommand(),
			NewAwaitCommand(),
			NewStatusCommand(),
			NewScheduleCommand(),
		},
	}
}
