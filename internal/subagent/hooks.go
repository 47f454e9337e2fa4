package subagent

import "context"

// DelegationStartEvent is passed to OnDelegationStart before a dispatch is
// committed to the registry.
type DelegationStartEvent struct {
	ParentID     string
	Prompt       string
	Instructions string
	Priority     Priority
	Metadata     map[string]any
	TimeoutMs    int64
}

// DelegationDecision is OnDelegationStart's return value. Deny blocks the
// dispatch (surfaced as BlockedByHook). Any Rewritten* field left at its
// zero value (nil pointer, or "" for RewrittenPrompt) leaves the
// caller-supplied value untouched; a non-zero field is merged over it
// before the handle is created.
type DelegationDecision struct {
	Deny   bool
	Reason string

	RewrittenPrompt       string
	RewrittenInstructions *string
	RewrittenPriority     *Priority
	RewrittenMetadata     map[string]any
	RewrittenTimeoutMs    *int64
}

// DelegationCompleteEvent is passed to OnDelegationComplete after a
// subagent reaches a terminal state. The hook is fire-and-forget: its
// return value, if any, is ignored and it must not block the caller.
type DelegationCompleteEvent struct {
	Snapshot Snapshot
}

// Hooks bundles the three extension points a host application can use to
// observe or gate subagent execution. Every field is optional; a nil hook
// is simply skipped.
type Hooks struct {
	// OnDelegationStart runs synchronously before a dispatch is
	// committed. It may deny the dispatch or rewrite any of
	// prompt/instructions/priority/metadata/timeoutMs.
	OnDelegationStart func(ctx context.Context, ev DelegationStartEvent) DelegationDecision

	// OnDelegationComplete runs after a subagent reaches a terminal
	// state. It is fire-and-forget: invoked in its own goroutine, its
	// errors (if it panics) are recovered and logged, never surfaced.
	OnDelegationComplete func(ctx context.Context, ev DelegationCompleteEvent)

	// IsTaskComplete is an early-completion oracle AwaitTool consults
	// between polls. It must not override a task that has already
	// failed: a hook returning true for an errored handle is ignored,
	// the handle's own terminal status is authoritative.
	IsTaskComplete func(snap Snapshot) bool
}
