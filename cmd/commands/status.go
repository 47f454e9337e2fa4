package commands

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/arbor-sdk/arbor/internal/config"
	"github.com/arbor-sdk/arbor/internal/heartbeat"
)

// NewStatusCommand returns the status subcommand.
func NewStatusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show arbor gateway liveness and registry counters",
		Flags: []cli.Flag{gatewayFlag},
		Action: func(_ context.Context, cmd *cli.Command) error {
			hbPath := filepath.Join(config.HomePath(), "heartbeat.json")
			status, hb, err := heartbeat.Check(hbPath, 2*time.Minute)
			if err != nil {
				return fmt.Errorf("check heartbeat: %w", err)
			}

			switch status {
			case heartbeat.StatusAlive:
				fmt.Printf("Gateway: ALIVE (PID %d, uptime %s)\n", hb.PID, hb.Uptime)
			case heartbeat.StatusStale:
				fmt.Printf("Gateway: STALE (PID %d, last heartbeat %s ago)\n",
					hb.PID, time.Since(hb.Timestamp).Truncate(time.Second))
			case heartbeat.StatusDead:
				fmt.Println("Gateway: NOT RUNNING")
				return nil
			}

			var health map[string]any
			if err := getJSON(cmd.String("gateway")+"/api/health", &health); err != nil {
				fmt.Printf("Registry stats unavailable: %v\n", err)
				return nil
			}
			return printJSON(health)
		},
	}
}
