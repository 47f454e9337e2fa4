package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/arbor-sdk/arbor/internal/events"
	"github.com/arbor-sdk/arbor/internal/subagent"
)

// fakeDispatcher records every DispatchInput it receives, counts calls in
// next, and always hands back task ID "sub_test", standing in for a real
// DispatchTool bound to a running Core.
type fakeDispatcher struct {
	calls []subagent.DispatchInput
	next  int
}

func (f *fakeDispatcher) Dispatch(_ context.Context, in subagent.DispatchInput, _ subagent.TaskFunc) subagent.DispatchOutput {
	f.calls = append(f.calls, in)
	f.next++
	return subagent.DispatchOutput{TaskID: "sub_test", Status: subagent.StatusQueued}
}

func newTestBus() *events.Bus {
	return events.NewBus(64)
}

func TestScheduler_IntervalTrigger(t *testing.T) {
	bus := newTestBus()
	defer bus.Close()

	disp := &fakeDispatcher{}
	s := New(Config{Dispatcher: disp, Bus: bus})
	s.Start()
	defer s.Stop()

	triggerCh, unsub := bus.SubscribeChan(4, events.EventScheduleTrigger)
	defer unsub()

	entry := &ScheduleEntry{
		Title:       "git check",
		Description: "check git status periodically",
		IntervalSec: 1,
		Enabled:     true,
		Template:    &DispatchTemplate{Prompt: "run git status and report changes"},
	}

	if err := s.AddEntry(entry); err == nil {
		t.Fatal("expected error for interval < 5s")
	}

	entry.IntervalSec = 5
	entry.CooldownSec = 1
	if err := s.AddEntry(entry); err != nil {
		t.Fatalf("add entry: %v", err)
	}
	if entry.ID == "" {
		t.Fatal("expected ID to be generated")
	}

	select {
	case e := <-triggerCh:
		payload, ok := events.GetScheduleTriggerPayload(e)
		if !ok {
			t.Fatal("failed to extract schedule trigger payload")
		}
		if payload.ScheduleID != entry.ID {
			t.Fatalf("expected schedule id %q, got %q", entry.ID, payload.ScheduleID)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("timeout waiting for interval trigger")
	}

	if len(disp.calls) == 0 {
		t.Fatal("expected dispatcher to be called")
	}
	if disp.calls[0].Prompt != "run git status and report changes" {
		t.Fatalf("unexpected dispatched prompt: %q", disp.calls[0].Prompt)
	}
}

func TestScheduler_EventTrigger(t *testing.T) {
	bus := newTestBus()
	defer bus.Close()

	disp := &fakeDispatcher{}
	s := New(Config{Dispatcher: disp, Bus: bus})
	s.Start()
	defer s.Stop()

	entry := &ScheduleEntry{
		Title:    "on-complete",
		OnEvent:  &EventTrigger{Event: "subagent.complete"},
		Enabled:  true,
		Template: &DispatchTemplate{Prompt: "follow up"},
	}
	if err := s.AddEntry(entry); err != nil {
		t.Fatalf("add entry: %v", err)
	}

	triggerCh, unsub := bus.SubscribeChan(4, events.EventScheduleTrigger)
	defer unsub()

	bus.Publish(events.NewTypedEvent(events.SourceCore, events.SubagentCompletePayload{
		TaskID: "sub_abc", Status: "completed",
	}))

	select {
	case <-triggerCh:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for event-triggered schedule fire")
	}
}

func TestScheduler_CooldownPreventsDoubleTrigger(t *testing.T) {
	bus := newTestBus()
	defer bus.Close()

	disp := &fakeDispatcher{}
	s := New(Config{Dispatcher: disp, Bus: bus})
	s.Start()
	defer s.Stop()

	entry := &ScheduleEntry{
		Title:       "cooldown-test",
		OnEvent:     &EventTrigger{Event: "subagent.complete"},
		CooldownSec: 60,
		Enabled:     true,
		Template:    &DispatchTemplate{Prompt: "x"},
	}
	if err := s.AddEntry(entry); err != nil {
		t.Fatalf("add entry: %v", err)
	}

	triggerCh, unsub := bus.SubscribeChan(8, events.EventScheduleTrigger)
	defer unsub()

	bus.Publish(events.NewTypedEvent(events.SourceCore, events.SubagentCompletePayload{TaskID: "sub_1"}))
	select {
	case <-triggerCh:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for first trigger")
	}

	bus.Publish(events.NewTypedEvent(events.SourceCore, events.SubagentCompletePayload{TaskID: "sub_2"}))
	select {
	case <-triggerCh:
		t.Fatal("expected cooldown to prevent second trigger")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestScheduler_MaxRuns(t *testing.T) {
	bus := newTestBus()
	defer bus.Close()

	disp := &fakeDispatcher{}
	store := NewStore(t.TempDir())
	s := New(Config{Dispatcher: disp, Bus: bus, Store: store})
	s.Start()
	defer s.Stop()

	triggerCh, unsub := bus.SubscribeChan(8, events.EventScheduleTrigger)
	defer unsub()

	entry := &ScheduleEntry{
		Title:       "max-2",
		IntervalSec: 5,
		CooldownSec: 1,
		MaxRuns:     2,
		Enabled:     true,
		Template:    &DispatchTemplate{Prompt: "limited"},
	}
	if err := s.AddEntry(entry); err != nil {
		t.Fatalf("add: %v", err)
	}

	for i := 0; i < 2; i++ {
		select {
		case <-triggerCh:
		case <-time.After(15 * time.Second):
			t.Fatalf("timeout waiting for trigger %d", i+1)
		}
	}

	select {
	case <-triggerCh:
		t.Fatal("expected entry to be disabled after max runs")
	case <-time.After(8 * time.Second):
	}

	se, ok := s.GetEntry(entry.ID)
	if !ok {
		t.Fatal("entry not found")
	}
	if se.Enabled {
		t.Fatal("expected entry to be disabled")
	}
	if se.RunCount != 2 {
		t.Fatalf("expected run count 2, got %d", se.RunCount)
	}
}

func TestScheduler_RemoveEntry(t *testing.T) {
	bus := newTestBus()
	defer bus.Close()

	disp := &fakeDispatcher{}
	store := NewStore(t.TempDir())
	s := New(Config{Dispatcher: disp, Bus: bus, Store: store})
	s.Start()
	defer s.Stop()

	entry := &ScheduleEntry{
		Title:       "to remove",
		IntervalSec: 60,
		Enabled:     true,
		Template:    &DispatchTemplate{Prompt: "x"},
	}
	if err := s.AddEntry(entry); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := s.RemoveEntry(entry.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if len(s.ListEntries()) != 0 {
		t.Fatal("expected 0 entries after remove")
	}
	if err := s.RemoveEntry("sched_nonexistent"); err == nil {
		t.Fatal("expected error for non-existent entry")
	}
}

func TestScheduler_LoadPersistedEntries(t *testing.T) {
	bus := newTestBus()
	defer bus.Close()

	disp := &fakeDispatcher{}
	storeDir := t.TempDir()
	store := NewStore(storeDir)

	entry := &ScheduleEntry{
		ID:          "sched_pre1",
		Title:       "pre-existing",
		IntervalSec: 60,
		CooldownSec: 60,
		Enabled:     true,
		Template:    &DispatchTemplate{Prompt: "x"},
	}
	if err := store.Create(entry); err != nil {
		t.Fatalf("pre-persist: %v", err)
	}

	s := New(Config{Dispatcher: disp, Bus: bus, Store: store})
	s.Start()
	defer s.Stop()

	entries := s.ListEntries()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry loaded from store, got %d", len(entries))
	}
	if entries[0].ID != "sched_pre1" {
		t.Fatalf("expected pre-existing entry, got %q", entries[0].ID)
	}
}

func TestScheduler_NoStore(t *testing.T) {
	bus := newTestBus()
	defer bus.Close()

	disp := &fakeDispatcher{}
	s := New(Config{Dispatcher: disp, Bus: bus})
	s.Start()
	defer s.Stop()

	if len(s.ListEntries()) != 0 {
		t.Fatal("expected 0 entries with no store")
	}
}
