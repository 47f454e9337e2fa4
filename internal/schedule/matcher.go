package schedule

import "github.com/arbor-sdk/arbor/internal/events"

// MatchEvent reports whether e satisfies trigger: the event type matches
// exactly and every filter key/value pair is present (as a string) in the
// event's payload. Events sourced from the schedule package itself are
// rejected so a dispatch-triggered event can never re-trigger its own
// schedule entry.
func MatchEvent(e events.Event, trigger *EventTrigger) bool {
	if trigger == nil {
		return false
	}
	if e.Source == events.SourceSchedule {
		return false
	}
	if string(e.Type) != trigger.Event {
		return false
	}
	for key, expected := range trigger.Filter {
		val, ok := e.Payload[key]
		if !ok {
			return false
		}
		strVal, ok := val.(string)
		if !ok || strVal != expected {
			return false
		}
	}
	return true
}
