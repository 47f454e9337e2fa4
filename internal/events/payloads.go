package events

import (
	"encoding/json"
	"time"
)

// EventPayload is the interface all typed payloads implement.
type EventPayload interface {
	EventType() EventType
}

// =============================================================================
// SUBAGENT LIFECYCLE
// =============================================================================

type SubagentSpawnPayload struct {
	TaskID   string `json:"task_id"`
	ParentID string `json:"parent_id,omitempty"`
	Depth    int    `json:"depth"`
	Priority int    `json:"priority"`
}

func (SubagentSpawnPayload) EventType() EventType { return EventSubagentSpawn }

type SubagentStatusChangePayload struct {
	TaskID string `json:"task_id"`
	From   string `json:"from"`
	To     string `json:"to"`
}

func (SubagentStatusChangePayload) EventType() EventType { return EventSubagentStatusChange }

type SubagentCompletePayload struct {
	TaskID   string `json:"task_id"`
	Status   string `json:"status"`
	Error    string `json:"error,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
}

func (SubagentCompletePayload) EventType() EventType { return EventSubagentComplete }

// =============================================================================
// DELEGATION HOOKS
// =============================================================================

type DelegationStartPayload struct {
	TaskID   string `json:"task_id"`
	ParentID string `json:"parent_id,omitempty"`
	Prompt   string `json:"prompt"`
	Denied   bool   `json:"denied"`
	Reason   string `json:"reason,omitempty"`
}

func (DelegationStartPayload) EventType() EventType { return EventDelegationStart }

type DelegationCompletePayload struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
}

func (DelegationCompletePayload) EventType() EventType { return EventDelegationComplete }

// =============================================================================
// GATEWAY/TRANSPORT EVENTS
// =============================================================================

type ClientConnectedPayload struct {
	ConnectionID string `json:"connection_id"`
	RemoteAddr   string `json:"remote_addr,omitempty"`
}

func (ClientConnectedPayload) EventType() EventType { return EventClientConnected }

type ClientDisconnectedPayload struct {
	ConnectionID string `json:"connection_id"`
	Reason       string `json:"reason,omitempty"`
}

func (ClientDisconnectedPayload) EventType() EventType { return EventClientDisconnected }

// =============================================================================
// SCHEDULE EVENTS
// =============================================================================

type ScheduleTriggerPayload struct {
	ScheduleID string `json:"schedule_id"`
	TaskID     string `json:"task_id,omitempty"`
}

func (ScheduleTriggerPayload) EventType() EventType { return EventScheduleTrigger }

// =============================================================================
// TYPED EVENT CONSTRUCTORS
// =============================================================================

func NewTypedEvent(source EventSource, payload EventPayload) Event {
	return Event{
		ID:        generateEventID(),
		Type:      payload.EventType(),
		Timestamp: time.Now(),
		Source:    source,
		Payload:   toMap(payload),
	}
}

func NewTypedEventWithTaskID(source EventSource, payload EventPayload, taskID string) Event {
	return Event{
		ID:        generateEventID(),
		TaskID:    taskID,
		Type:      payload.EventType(),
		Timestamp: time.Now(),
		Source:    source,
		Payload:   toMap(payload),
	}
}

func toMap(v any) map[string]any {
	var result map[string]any
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return nil
	}
	return result
}

// =============================================================================
// TYPED PAYLOAD EXTRACTORS
// =============================================================================

func ExtractPayload[T EventPayload](e Event) (T, bool) {
	var result T
	data, err := json.Marshal(e.Payload)
	if err != nil {
		return result, false
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return result, false
	}
	return result, true
}

func GetSubagentSpawnPayload(e Event) (SubagentSpawnPayload, bool) {
	return ExtractPayload[SubagentSpawnPayload](e)
}

func GetSubagentStatusChangePayload(e Event) (SubagentStatusChangePayload, bool) {
	return ExtractPayload[SubagentStatusChangePayload](e)
}

func GetSubagentCompletePayload(e Event) (SubagentCompletePayload, bool) {
	return ExtractPayload[SubagentCompletePayload](e)
}

func GetDelegationStartPayload(e Event) (DelegationStartPayload, bool) {
	return ExtractPayload[DelegationStartPayload](e)
}

func GetDelegationCompletePayload(e Event) (DelegationCompletePayload, bool) {
	return ExtractPayload[DelegationCompletePayload](e)
}

func GetScheduleTriggerPayload(e Event) (ScheduleTriggerPayload, bool) {
	return ExtractPayload[ScheduleTriggerPayload](e)
}
