package subagent

import (
	"context"
	"time"
)

// DispatchTool is the coordination primitive a parent agent's tool
// catalog exposes as "dispatch_subagent". It validates the caller's
// context against depth/quota limits via the Registry, applies the
// pre-dispatch hook, and enqueues a new handle.
type DispatchTool struct {
	registry *Registry
	newFn    func(prompt, instructions string, metadata map[string]any) TaskFunc
}

// NewDispatchTool binds a DispatchTool to registry. newFn adapts a
// caller-agnostic prompt/instructions/metadata triple into the opaque
// TaskFunc the scheduler runs; callers that already have a TaskFunc in
// hand can pass it as Dispatch's fn argument instead and leave newFn nil.
func NewDispatchTool(registry *Registry, newFn func(prompt, instructions string, metadata map[string]any) TaskFunc) *DispatchTool {
	return &DispatchTool{registry: registry, newFn: newFn}
}

// DispatchInput is the wire payload for dispatch_subagent. Priority is a
// pointer so an absent field can be told apart from an explicit 0
// (PriorityHigh): a nil Priority defaults to DefaultPriority.
type DispatchInput struct {
	ParentID     string         `json:"parentId,omitempty"`
	Prompt       string         `json:"prompt"`
	Instructions string         `json:"instructions,omitempty"`
	Priority     *Priority      `json:"priority,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	TimeoutMs    int64          `json:"timeoutMs,omitempty"`
}

// DispatchOutput is the wire payload returned by dispatch_subagent. Error
// is empty on success; ErrorDetail is only ever populated alongside
// Error.
type DispatchOutput struct {
	TaskID      string `json:"taskId,omitempty"`
	Status      Status `json:"status,omitempty"`
	Error       string `json:"error,omitempty"`
	ErrorDetail string `json:"detail,omitempty"`
}

// Dispatch runs the dispatch_subagent tool. fn, when non-nil, overrides
// the tool's configured newFn for this one call — used by tests and by
// callers that already built their own TaskFunc closure.
func (t *DispatchTool) Dispatch(ctx context.Context, in DispatchInput, fn TaskFunc) DispatchOutput {
	if in.Prompt == "" {
		return DispatchOutput{Error: "InvalidInput", ErrorDetail: "prompt must not be empty"}
	}

	if fn == nil && t.newFn != nil {
		fn = t.newFn(in.Prompt, in.Instructions, in.Metadata)
	}

	priority := DefaultPriority
	if in.Priority != nil {
		priority = *in.Priority
	}

	req := DispatchRequest{
		ParentID:     in.ParentID,
		Prompt:       in.Prompt,
		Instructions: in.Instructions,
		Priority:     priority,
		Metadata:     in.Metadata,
		Fn:           fn,
	}
	if in.TimeoutMs > 0 {
		req.Timeout = time.Duration(in.TimeoutMs) * time.Millisecond
	}

	snap, err := t.registry.Dispatch(ctx, req)
	if err != nil {
		return toolError(err)
	}
	return DispatchOutput{TaskID: snap.TaskID, Status: snap.Status}
}

func toolError(err error) DispatchOutput {
	if ce, ok := err.(*CoreError); ok {
		return DispatchOutput{Error: string(ce.Kind), ErrorDetail: ce.Detail}
	}
	return DispatchOutput{Error: "Internal", ErrorDetail: err.Error()}
}
