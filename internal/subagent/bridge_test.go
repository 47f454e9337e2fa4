package subagent

import (
	"context"
	"testing"
	"time"

	"github.com/arbor-sdk/arbor/internal/events"
)

func TestBridgeToEventsBus(t *testing.T) {
	c := newTestCore(t, DefaultLimits(), Hooks{})

	bus := events.NewBus(64)
	defer bus.Close()
	c.AttachEventsBus(bus)

	ch, unsub := bus.SubscribeChan(16, events.EventSubagentSpawn, events.EventSubagentComplete)
	defer unsub()

	dispatch := NewDispatchTool(c.Registry, nil)
	out := dispatch.Dispatch(context.Background(), DispatchInput{Prompt: "hello"}, instantTask("world"))
	if out.Error != "" {
		t.Fatalf("Dispatch error: %s", out.Error)
	}

	seen := map[events.EventType]bool{}
	deadline := time.After(2 * time.Second)
	for len(seen) < 2 {
		select {
		case e := <-ch:
			if e.TaskID != out.TaskID {
				t.Fatalf("event task id = %q, want %q", e.TaskID, out.TaskID)
			}
			seen[e.Type] = true
		case <-deadline:
			t.Fatalf("timed out waiting for bridged events, saw %v", seen)
		}
	}
}
