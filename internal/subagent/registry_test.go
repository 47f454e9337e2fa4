package subagent

import (
	"context"
	"testing"
	"time"
)

func newTestRegistry(t *testing.T, limits Limits) *Registry {
	t.Helper()
	bus := NewHierarchicalEventBus("root")
	r := NewRegistry(limits, bus, Hooks{}, nil)
	t.Cleanup(r.Shutdown)
	return r
}

func blockingTask(started, release chan struct{}) TaskFunc {
	return func(ctx context.Context, emit Emitter) (any, error) {
		close(started)
		select {
		case <-release:
			return "done", nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func instantTask(result any) TaskFunc {
	return func(ctx context.Context, emit Emitter) (any, error) {
		return result, nil
	}
}

func TestRegistryDispatchHappyPath(t *testing.T) {
	limits := DefaultLimits()
	r := newTestRegistry(t, limits)

	sched := NewScheduler(r, r.bus, 1, nil)
	sched.Start()
	defer sched.Stop()

	snap, err := r.Dispatch(context.Background(), DispatchRequest{
		Prompt: "do the thing",
		Fn:     instantTask("ok"),
	})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if snap.Status != StatusQueued {
		t.Errorf("Status = %v, want queued", snap.Status)
	}

	final, terminal, err := r.WaitForCompletion(context.Background(), snap.TaskID, 2*time.Second)
	if err != nil {
		t.Fatalf("WaitForCompletion: %v", err)
	}
	if !terminal || final.Status != StatusCompleted || final.Result != "ok" {
		t.Errorf("final = %+v (terminal %v), want completed with result ok", final, terminal)
	}
}

func TestRegistryEmitsWireEvents(t *testing.T) {
	bus := NewHierarchicalEventBus("root")
	r := NewRegistry(DefaultLimits(), bus, Hooks{}, nil)
	t.Cleanup(r.Shutdown)

	var spawned SpawnEvent
	var delegated DelegationStartEventWire
	var changed []StatusChangeEvent
	var completed CompleteEvent
	var delegatedComplete DelegationCompleteEventWire

	bus.Subscribe("subagent:spawn", func(_ string, p any) { spawned = p.(SpawnEvent) })
	bus.Subscribe("delegation:start", func(_ string, p any) { delegated = p.(DelegationStartEventWire) })
	bus.Subscribe("subagent:status-change", func(_ string, p any) { changed = append(changed, p.(StatusChangeEvent)) })
	bus.Subscribe("subagent:complete", func(_ string, p any) { completed = p.(CompleteEvent) })
	bus.Subscribe("delegation:complete", func(_ string, p any) { delegatedComplete = p.(DelegationCompleteEventWire) })

	snap, err := r.Dispatch(context.Background(), DispatchRequest{Prompt: "do it", Fn: instantTask("done")})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if spawned.TaskID != snap.TaskID || spawned.Prompt != "do it" {
		t.Errorf("spawned = %+v", spawned)
	}
	if delegated.TaskID != snap.TaskID || delegated.Prompt != "do it" {
		t.Errorf("delegated = %+v", delegated)
	}

	if _, err := r.Transition(snap.TaskID, StatusRunning, nil, nil, ""); err != nil {
		t.Fatalf("Transition to running: %v", err)
	}
	if _, err := r.Transition(snap.TaskID, StatusCompleted, "done", nil, ""); err != nil {
		t.Fatalf("Transition to completed: %v", err)
	}

	if len(changed) != 2 {
		t.Fatalf("changed = %+v, want 2 status-change events", changed)
	}
	if changed[0].From != StatusQueued || changed[0].To != StatusRunning {
		t.Errorf("changed[0] = %+v, want queued->running", changed[0])
	}
	if changed[1].From != StatusRunning || changed[1].To != StatusCompleted {
		t.Errorf("changed[1] = %+v, want running->completed", changed[1])
	}
	if completed.Status != StatusCompleted || completed.FinalOutput != "done" {
		t.Errorf("completed = %+v", completed)
	}
	if delegatedComplete.Status != StatusCompleted || delegatedComplete.TaskID != snap.TaskID {
		t.Errorf("delegatedComplete = %+v", delegatedComplete)
	}
}

func TestRegistryRejectsIllegalTransition(t *testing.T) {
	r := newTestRegistry(t, DefaultLimits())

	snap, err := r.Dispatch(context.Background(), DispatchRequest{Prompt: "x", Fn: instantTask("ok")})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	// queued -> completed skips running and must be rejected as a no-op.
	applied, err := r.Transition(snap.TaskID, StatusCompleted, "skip", nil, "")
	if err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if applied {
		t.Errorf("expected illegal edge queued->completed to be rejected")
	}

	got, err := r.Get(snap.TaskID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != StatusQueued {
		t.Errorf("status = %v, want still queued", got.Status)
	}
}

func TestRegistryDepthExceeded(t *testing.T) {
	limits := DefaultLimits()
	limits.MaxDepth = 2
	r := newTestRegistry(t, limits)

	root, err := r.Dispatch(context.Background(), DispatchRequest{Prompt: "root", Fn: instantTask("ok")})
	if err != nil {
		t.Fatalf("Dispatch root: %v", err)
	}

	child, err := r.Dispatch(context.Background(), DispatchRequest{ParentID: root.TaskID, Prompt: "child", Fn: instantTask("ok")})
	if err != nil {
		t.Fatalf("Dispatch child: %v", err)
	}

	_, err = r.Dispatch(context.Background(), DispatchRequest{ParentID: child.TaskID, Prompt: "grandchild", Fn: instantTask("ok")})
	if err == nil {
		t.Fatalf("expected DepthExceeded, got nil")
	}
	ce, ok := err.(*CoreError)
	if !ok || ce.Kind != KindDepthExceeded {
		t.Errorf("err = %v, want DepthExceeded", err)
	}
}

func TestRegistryQuotaExceeded(t *testing.T) {
	limits := DefaultLimits()
	limits.MaxConcurrentPerParent = 1
	r := newTestRegistry(t, limits)

	started := make(chan struct{})
	release := make(chan struct{})
	defer close(release)

	root, err := r.Dispatch(context.Background(), DispatchRequest{Prompt: "root", Fn: instantTask("ok")})
	if err != nil {
		t.Fatalf("Dispatch root: %v", err)
	}

	sched := NewScheduler(r, r.bus, 2, nil)
	sched.Start()
	defer sched.Stop()

	if _, err := r.Dispatch(context.Background(), DispatchRequest{ParentID: root.TaskID, Prompt: "c1", Fn: blockingTask(started, release)}); err != nil {
		t.Fatalf("Dispatch c1: %v", err)
	}

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatalf("c1 never started")
	}

	_, err = r.Dispatch(context.Background(), DispatchRequest{ParentID: root.TaskID, Prompt: "c2", Fn: instantTask("ok")})
	if err == nil {
		t.Fatalf("expected QuotaExceeded, got nil")
	}
	ce, ok := err.(*CoreError)
	if !ok || ce.Kind != KindQuotaExceeded {
		t.Errorf("err = %v, want QuotaExceeded", err)
	}
}

func TestRegistryCascadeCancel(t *testing.T) {
	limits := DefaultLimits()
	r := newTestRegistry(t, limits)

	sched := NewScheduler(r, r.bus, 4, nil)
	sched.Start()
	defer sched.Stop()

	started := make(chan struct{})
	release := make(chan struct{})
	defer close(release)

	root, err := r.Dispatch(context.Background(), DispatchRequest{Prompt: "root", Fn: blockingTask(started, release)})
	if err != nil {
		t.Fatalf("Dispatch root: %v", err)
	}
	<-started

	childStarted := make(chan struct{})
	child, err := r.Dispatch(context.Background(), DispatchRequest{ParentID: root.TaskID, Prompt: "child", Fn: blockingTask(childStarted, release)})
	if err != nil {
		t.Fatalf("Dispatch child: %v", err)
	}
	<-childStarted

	if err := r.Cancel(root.TaskID, "user cancelled"); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	rootFinal, _, err := r.WaitForCompletion(context.Background(), root.TaskID, 2*time.Second)
	if err != nil {
		t.Fatalf("WaitForCompletion root: %v", err)
	}
	if rootFinal.Status != StatusCancelled {
		t.Errorf("root status = %v, want cancelled", rootFinal.Status)
	}

	childFinal, _, err := r.WaitForCompletion(context.Background(), child.TaskID, 2*time.Second)
	if err != nil {
		t.Fatalf("WaitForCompletion child: %v", err)
	}
	if childFinal.Status != StatusCancelled {
		t.Errorf("child status = %v, want cancelled", childFinal.Status)
	}
}

func TestRegistryTimeout(t *testing.T) {
	limits := DefaultLimits()
	r := newTestRegistry(t, limits)

	sched := NewScheduler(r, r.bus, 2, nil)
	sched.Start()
	defer sched.Stop()

	never := make(chan struct{})
	snap, err := r.Dispatch(context.Background(), DispatchRequest{
		Prompt:  "slow",
		Timeout: 50 * time.Millisecond,
		Fn:      blockingTask(make(chan struct{}), never),
	})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	final, terminal, err := r.WaitForCompletion(context.Background(), snap.TaskID, 2*time.Second)
	if err != nil {
		t.Fatalf("WaitForCompletion: %v", err)
	}
	if !terminal {
		t.Fatalf("expected terminal before test timeout")
	}
	if final.Status != StatusTimeout {
		t.Errorf("status = %v, want timeout", final.Status)
	}
}

func TestRegistryQueueFull(t *testing.T) {
	limits := DefaultLimits()
	limits.MaxQueueSize = 1
	r := newTestRegistry(t, limits)

	if _, err := r.Dispatch(context.Background(), DispatchRequest{Prompt: "a", Fn: instantTask("ok")}); err != nil {
		t.Fatalf("Dispatch a: %v", err)
	}
	_, err := r.Dispatch(context.Background(), DispatchRequest{Prompt: "b", Fn: instantTask("ok")})
	if err == nil {
		t.Fatalf("expected QueueFull")
	}
	ce, ok := err.(*CoreError)
	if !ok || ce.Kind != KindQueueFull {
		t.Errorf("err = %v, want QueueFull", err)
	}
}

func TestRegistryDispatchHookCanDeny(t *testing.T) {
	limits := DefaultLimits()
	bus := NewHierarchicalEventBus("root")
	hooks := Hooks{
		OnDelegationStart: func(ctx context.Context, ev DelegationStartEvent) DelegationDecision {
			return DelegationDecision{Deny: true, Reason: "nope"}
		},
	}
	r := NewRegistry(limits, bus, hooks, nil)
	t.Cleanup(r.Shutdown)

	_, err := r.Dispatch(context.Background(), DispatchRequest{Prompt: "x", Fn: instantTask("ok")})
	if err == nil {
		t.Fatalf("expected BlockedByHook")
	}
	ce, ok := err.(*CoreError)
	if !ok || ce.Kind != KindBlockedByHook {
		t.Errorf("err = %v, want BlockedByHook", err)
	}
}

func TestRegistryGCRemovesOldTerminalHandles(t *testing.T) {
	limits := DefaultLimits()
	limits.GCTTL = 10 * time.Millisecond
	limits.GCInterval = time.Hour // drive GC manually
	r := newTestRegistry(t, limits)

	sched := NewScheduler(r, r.bus, 2, nil)
	sched.Start()
	defer sched.Stop()

	snap, err := r.Dispatch(context.Background(), DispatchRequest{Prompt: "x", Fn: instantTask("ok")})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if _, _, err := r.WaitForCompletion(context.Background(), snap.TaskID, 2*time.Second); err != nil {
		t.Fatalf("WaitForCompletion: %v", err)
	}

	time.Sleep(20 * time.Millisecond)
	removed := r.GC()
	if removed != 1 {
		t.Errorf("GC() = %d, want 1", removed)
	}
	if _, err := r.Get(snap.TaskID); err == nil {
		t.Errorf("expected task to be gone after GC")
	}
}
