package commands

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/arbor-sdk/arbor/internal/config"
	"github.com/arbor-sdk/arbor/internal/events"
	"github.com/arbor-sdk/arbor/internal/schedule"
)

// NewScheduleCommand returns the schedule subcommand.
func NewScheduleCommand() *cli.Command {
	return &cli.Command{
		Name:  "schedule",
		Usage: "Load cron-triggered dispatch templates, or inspect trigger history",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List persisted schedule entries",
				Action: runScheduleList,
			},
			{
				Name:      "load",
				Usage:     "Persist a JSON array of schedule entries from a file",
				ArgsUsage: "<entries.json>",
				Action:    runScheduleLoad,
			},
			{
				Name:   "history",
				Usage:  "Show recent schedule trigger events",
				Action: runScheduleHistory,
			},
		},
		DefaultCommand: "list",
	}
}

func runScheduleList(_ context.Context, _ *cli.Command) error {
	store := schedule.NewStore(filepath.Join(config.HomePath(), "schedule"))
	entries, err := store.List()
	if err != nil {
		return fmt.Errorf("list schedule entries: %w", err)
	}
	if len(entries) == 0 {
		fmt.Println("No schedule entries found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tCRON\tINTERVAL\tEVENT\tRUNS\tENABLED")
	for _, e := range entries {
		cronStr, eventStr := "-", "-"
		if e.CronSpec != "" {
			cronStr = e.CronSpec
		}
		if e.OnEvent != nil {
			eventStr = e.OnEvent.Event
		}
		intervalStr := "-"
		if e.IntervalSec > 0 {
			intervalStr = fmt.Sprintf("%ds", e.IntervalSec)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%t\n",
			e.ID, e.Title, cronStr, intervalStr, eventStr, e.RunCount, e.Enabled)
	}
	return w.Flush()
}

func runScheduleLoad(_ context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		return fmt.Errorf("usage: arbor schedule load <entries.json>")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read entries file: %w", err)
	}

	var entries []*schedule.ScheduleEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("parse entries file: %w", err)
	}

	store := schedule.NewStore(filepath.Join(config.HomePath(), "schedule"))
	for _, e := range entries {
		if err := store.Create(e); err != nil {
			return fmt.Errorf("persist entry %q: %w", e.Title, err)
		}
	}
	fmt.Printf("Loaded %d schedule entries.\n", len(entries))
	return nil
}

func runScheduleHistory(_ context.Context, _ *cli.Command) error {
	logFile := filepath.Join(config.HomePath(), "logs", "_global.jsonl")

	f, err := os.Open(logFile)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Println("No trigger history found.")
			return nil
		}
		return fmt.Errorf("read history: %w", err)
	}
	defer f.Close()

	var triggers []events.Event
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e events.Event
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			continue
		}
		if e.Type != events.EventScheduleTrigger {
			continue
		}
		triggers = append(triggers, e)
		if len(triggers) > 20 {
			triggers = triggers[1:]
		}
	}

	if len(triggers) == 0 {
		fmt.Println("No trigger history found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tENTRY\tTASK")
	for _, e := range triggers {
		entryID, _ := e.Payload["schedule_id"].(string)
		taskID, _ := e.Payload["task_id"].(string)
		fmt.Fprintf(w, "%s\t%s\t%s\n",
			e.Timestamp.Format("2006-01-02 15:04:05"),
			entryID, taskID)
	}
	return w.Flush()
}
