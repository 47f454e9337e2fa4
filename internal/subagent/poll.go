package subagent

import "strings"

// PollTool is the coordination primitive exposed as "poll_subagent": a
// non-blocking snapshot read of one or more handles plus an aggregate
// summary, used by a parent agent to check on delegated work without
// waiting on it.
type PollTool struct {
	registry *Registry
}

// NewPollTool binds a PollTool to registry.
func NewPollTool(registry *Registry) *PollTool {
	return &PollTool{registry: registry}
}

// PollInput is the wire payload for poll_subagent.
type PollInput struct {
	TaskIDs                []string `json:"taskIds"`
	IncludePartialOutput   bool     `json:"includePartialOutput,omitempty"`
	MaxPartialOutputLength int      `json:"maxPartialOutputLength,omitempty"`
}

// PollSummary aggregates status counts across the polled handles,
// including ids that resolved to not_found. Total counts every id
// requested, found or not.
type PollSummary struct {
	Total     int `json:"total"`
	Queued    int `json:"queued"`
	Running   int `json:"running"`
	Streaming int `json:"streaming"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Timeout   int `json:"timeout"`
	Cancelled int `json:"cancelled"`
	NotFound  int `json:"notFound"`
}

// PollOutput is the wire payload returned by poll_subagent.
type PollOutput struct {
	Tasks   []Snapshot  `json:"tasks"`
	Summary PollSummary `json:"summary"`
}

// Poll runs the poll_subagent tool: a pure read that never mutates
// registry state. An empty TaskIDs slice is a valid no-op that returns an
// empty task list and a zeroed summary. Unknown task ids (already GC'd,
// or never dispatched) report {status:"not_found"} rather than being
// dropped, so a parent polling a batch keeps one entry per requested id.
func (t *PollTool) Poll(in PollInput) PollOutput {
	out := PollOutput{Tasks: make([]Snapshot, 0, len(in.TaskIDs))}

	for _, id := range in.TaskIDs {
		snap, err := t.registry.Get(id)
		out.Summary.Total++
		if err != nil {
			out.Tasks = append(out.Tasks, Snapshot{TaskID: id, Status: StatusNotFound})
			out.Summary.NotFound++
			continue
		}

		if in.IncludePartialOutput {
			snap.PartialOutput = truncatePartialOutput(snap.PartialOutput, in.MaxPartialOutputLength)
		} else {
			snap.PartialOutput = nil
		}

		out.Tasks = append(out.Tasks, snap)
		switch snap.Status {
		case StatusQueued:
			out.Summary.Queued++
		case StatusRunning:
			out.Summary.Running++
		case StatusStreaming:
			out.Summary.Streaming++
		case StatusCompleted:
			out.Summary.Completed++
		case StatusFailed:
			out.Summary.Failed++
		case StatusTimeout:
			out.Summary.Timeout++
		case StatusCancelled:
			out.Summary.Cancelled++
		}
	}

	return out
}

// truncatePartialOutput joins the accumulated streaming chunks and, if
// maxLen is positive, truncates the joined text to maxLen runes, returned
// as a single-element slice so wire consumers see one opaque string.
func truncatePartialOutput(chunks []string, maxLen int) []string {
	if len(chunks) == 0 {
		return nil
	}
	joined := strings.Join(chunks, "")
	runes := []rune(joined)
	if maxLen <= 0 || len(runes) <= maxLen {
		return []string{joined}
	}
	return []string{string(runes[:maxLen])}
}
