package subagent

import (
	"context"
	"time"
)

// AwaitTool is the coordination primitive exposed as "await_subagent": it
// blocks until every requested handle reaches a terminal state, an
// optional early-completion oracle says a handle is done, or the overall
// timeout elapses.
type AwaitTool struct {
	registry *Registry
	hooks    Hooks
}

// NewAwaitTool binds an AwaitTool to registry and hooks (for the
// IsTaskComplete oracle).
func NewAwaitTool(registry *Registry, hooks Hooks) *AwaitTool {
	return &AwaitTool{registry: registry, hooks: hooks}
}

// AwaitInput is the wire payload for await_subagent.
type AwaitInput struct {
	TaskIDs        []string `json:"taskIds"`
	TimeoutMs      int64    `json:"timeoutMs"`
	PollIntervalMs int64    `json:"pollIntervalMs,omitempty"`
}

// AwaitTaskResult is one entry of await_subagent's result array.
type AwaitTaskResult struct {
	TaskID             string `json:"taskId"`
	Status             Status `json:"status"`
	Output             any    `json:"output,omitempty"`
	Error              string `json:"error,omitempty"`
	CompletionOverride bool   `json:"completionOverride,omitempty"`
	CompletionReason   string `json:"completionReason,omitempty"`
}

// AwaitOutput is the wire payload returned by await_subagent.
type AwaitOutput struct {
	Tasks    []AwaitTaskResult `json:"tasks"`
	TimedOut bool              `json:"timedOut"`
}

// Await runs the await_subagent tool. An empty TaskIDs slice returns
// immediately with an empty result, never blocking on TimeoutMs. Waits
// concurrently on every id with all-settled semantics: one id's failure
// or not_found status never cancels or masks the others. If an
// IsTaskComplete oracle is configured it is consulted every
// PollIntervalMs; an affirmative answer marks that id complete-by-override
// without ever transitioning the underlying handle.
func (t *AwaitTool) Await(ctx context.Context, in AwaitInput) AwaitOutput {
	if len(in.TaskIDs) == 0 {
		return AwaitOutput{Tasks: []AwaitTaskResult{}}
	}

	pollInterval := time.Duration(in.PollIntervalMs) * time.Millisecond
	if pollInterval <= 0 {
		pollInterval = 100 * time.Millisecond
	}

	var deadline <-chan time.Time
	if in.TimeoutMs > 0 {
		timer := time.NewTimer(time.Duration(in.TimeoutMs) * time.Millisecond)
		defer timer.Stop()
		deadline = timer.C
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	settled := make(map[string]string, len(in.TaskIDs)) // taskID -> override reason

	for {
		allDone := true
		results := make([]AwaitTaskResult, 0, len(in.TaskIDs))
		for _, id := range in.TaskIDs {
			snap, err := t.registry.Get(id)
			if err != nil {
				results = append(results, AwaitTaskResult{TaskID: id, Status: StatusNotFound})
				continue
			}

			if reason, overridden := settled[id]; overridden {
				results = append(results, AwaitTaskResult{
					TaskID:             id,
					Status:             snap.Status,
					CompletionOverride: true,
					CompletionReason:   reason,
				})
				continue
			}

			done := snap.Status.Terminal()
			if !done && t.hooks.IsTaskComplete != nil && t.hooks.IsTaskComplete(snap) {
				// The oracle's "complete" never overrides a handle that
				// is still actually in-flight: it only lets Await stop
				// waiting on this id early. The handle itself is left
				// running; only the reported result is marked overridden.
				settled[id] = "oracle reported complete"
				results = append(results, AwaitTaskResult{
					TaskID:             id,
					Status:             snap.Status,
					CompletionOverride: true,
					CompletionReason:   settled[id],
				})
				continue
			}
			if !done {
				allDone = false
			}
			results = append(results, toAwaitResult(snap))
		}

		if allDone {
			return AwaitOutput{Tasks: results}
		}

		select {
		case <-ctx.Done():
			return AwaitOutput{Tasks: results, TimedOut: true}
		case <-deadline:
			return AwaitOutput{Tasks: results, TimedOut: true}
		case <-ticker.C:
			// loop again
		}
	}
}

func toAwaitResult(snap Snapshot) AwaitTaskResult {
	r := AwaitTaskResult{TaskID: snap.TaskID, Status: snap.Status, Error: snap.Error}
	if snap.Status == StatusCompleted {
		r.Output = snap.Result
	}
	return r
}
