package schedule

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/arbor-sdk/arbor/internal/subagent"
)

// EventTrigger describes an event-based trigger for a schedule entry:
// the entry fires a dispatch whenever a matching event crosses the
// bridge bus.
type EventTrigger struct {
	Event  string            `json:"event"`
	Filter map[string]string `json:"filter,omitempty"`
}

// DispatchTemplate is the DispatchInput template used on each trigger of
// a schedule entry. A nil Priority defers to DispatchTool's own default.
type DispatchTemplate struct {
	Prompt       string             `json:"prompt"`
	Instructions string             `json:"instructions,omitempty"`
	Priority     *subagent.Priority `json:"priority,omitempty"`
	Metadata     map[string]any     `json:"metadata,omitempty"`
	TimeoutMs    int64              `json:"timeoutMs,omitempty"`
}

// ScheduleEntry represents a persistent schedule entry: a cron
// expression, fixed interval, or event trigger that periodically calls
// DispatchTool with the configured template.
type ScheduleEntry struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Description string            `json:"description,omitempty"`
	CronSpec    string            `json:"cron_spec,omitempty"`
	IntervalSec int               `json:"interval_sec,omitempty"`
	OnEvent     *EventTrigger     `json:"on_event,omitempty"`
	Template    *DispatchTemplate `json:"template"`
	CooldownSec int               `json:"cooldown_sec"`
	MaxRuns     int               `json:"max_runs,omitempty"`
	RunCount    int               `json:"run_count"`
	Enabled     bool              `json:"enabled"`
	CreatedAt   time.Time         `json:"created_at"`
	LastRunAt   *time.Time        `json:"last_run_at,omitempty"`
}

// GenerateScheduleID creates a unique schedule identifier with a
// "sched_" prefix, mirroring subagent.NewTaskID's id shape.
func GenerateScheduleID() string {
	u := uuid.New().String()
	return "sched_" + strings.ReplaceAll(u[:8], "-", "")
}
