package subagent

import (
	"github.com/arbor-sdk/arbor/internal/events"
)

// BridgeToEventsBus subscribes to every subagent-lifecycle and
// delegation-hook event on root and republishes it, typed, onto the
// ambient events.Bus. It subscribes on root to each of the five event
// names (three subagent:*, two delegation:*), so it fires for every
// task's spawn, status-change, and completion emitted on root, as well as
// for bubbled copies of those events arriving from deeper descendants.
//
// Grounded in this codebase's callback-to-bus bridging pattern (formerly
// used to fan LLM/tool callbacks out to the bus): a small adapter that
// knows only how to translate one event shape into another, run
// synchronously inline with Emit but publishing onto the bus's own
// non-blocking channel so a slow WebSocket subscriber can never stall a
// worker.
func BridgeToEventsBus(root *HierarchicalEventBus, bus *events.Bus) func() {
	onSubagent := func(eventType string, payload any) {
		switch v := unwrap(payload).(type) {
		case SpawnEvent:
			bus.Publish(events.NewTypedEventWithTaskID(events.SourceCore, events.SubagentSpawnPayload{
				TaskID:   v.TaskID,
				ParentID: v.ParentID,
				Depth:    v.Depth,
				Priority: int(v.Priority),
			}, v.TaskID))

		case StatusChangeEvent:
			bus.Publish(events.NewTypedEventWithTaskID(events.SourceCore, events.SubagentStatusChangePayload{
				TaskID: v.TaskID,
				From:   string(v.From),
				To:     string(v.To),
			}, v.TaskID))

		case CompleteEvent:
			bus.Publish(events.NewTypedEventWithTaskID(events.SourceCore, events.SubagentCompletePayload{
				TaskID: v.TaskID,
				Status: string(v.Status),
				Error:  v.Error,
			}, v.TaskID))
		}
	}

	onDelegation := func(eventType string, payload any) {
		switch v := unwrap(payload).(type) {
		case DelegationStartEventWire:
			bus.Publish(events.NewTypedEventWithTaskID(events.SourceCore, events.DelegationStartPayload{
				TaskID:   v.TaskID,
				ParentID: v.ParentID,
				Prompt:   v.Prompt,
			}, v.TaskID))

		case DelegationCompleteEventWire:
			bus.Publish(events.NewTypedEventWithTaskID(events.SourceCore, events.DelegationCompletePayload{
				TaskID: v.TaskID,
				Status: string(v.Status),
			}, v.TaskID))
		}
	}

	var unsubs []func()
	subscribe := func(handler HandlerFunc, names ...string) {
		for _, name := range names {
			if unsub, err := root.Subscribe(name, handler); err == nil {
				unsubs = append(unsubs, unsub)
			}
		}
	}
	subscribe(onSubagent, "subagent:spawn", "subagent:status-change", "subagent:complete")
	subscribe(onDelegation, "delegation:start", "delegation:complete")

	return func() {
		for _, unsub := range unsubs {
			unsub()
		}
	}
}

// unwrap recovers the inner payload of a bubbled emit (a bubbleEnvelope),
// or returns payload unchanged for a direct, local emit.
func unwrap(payload any) any {
	if env, ok := payload.(bubbleEnvelope); ok {
		return unwrap(env.Payload)
	}
	return payload
}
