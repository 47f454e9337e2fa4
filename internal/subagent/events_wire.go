package subagent

import "time"

// These types are the payload shapes carried by the five bus event names
// that are part of the core's external contract: subagent:spawn,
// subagent:status-change, subagent:complete, delegation:start, and
// delegation:complete. A Subscribe handler type-switches on payload to
// recover one of these (or a bubbleEnvelope wrapping one, if the handler
// sits on an ancestor bus).

// SpawnEvent is subagent:spawn's payload, emitted the instant a handle is
// created and enqueued.
type SpawnEvent struct {
	TaskID   string
	ParentID string
	Depth    int
	Prompt   string
	Priority Priority
}

// StatusChangeEvent is subagent:status-change's payload, emitted on every
// legal transition.
type StatusChangeEvent struct {
	TaskID string
	From   Status
	To     Status
	At     time.Time
}

// CompleteEvent is subagent:complete's payload, emitted once a handle
// reaches a terminal status.
type CompleteEvent struct {
	TaskID      string
	Status      Status
	FinalOutput any
	Error       string
}

// DelegationStartEventWire is delegation:start's payload, emitted at the
// same instant as subagent:spawn.
type DelegationStartEventWire struct {
	TaskID   string
	ParentID string
	Prompt   string
}

// DelegationCompleteEventWire is delegation:complete's payload, emitted
// at the same instant as subagent:complete.
type DelegationCompleteEventWire struct {
	TaskID      string
	ParentID    string
	Status      Status
	FinalOutput any
	Error       string
}
