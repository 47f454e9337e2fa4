package subagent

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Scheduler is a bounded worker pool that pulls queued handles from the
// Registry's priority queue and executes their task bodies. Grounded in
// this codebase's actor-pool pattern: a fixed set of workers blocks on a
// wake channel, wakes on every dispatch or completion, and drains as many
// queued tasks as there are idle workers before going back to sleep.
type Scheduler struct {
	registry *Registry
	bus      *HierarchicalEventBus
	logger   *slog.Logger

	poolSize int
	sem      chan struct{} // one slot per idle worker

	wake chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler constructs a Scheduler with a fixed-size worker pool.
func NewScheduler(registry *Registry, bus *HierarchicalEventBus, poolSize int, logger *slog.Logger) *Scheduler {
	if poolSize <= 0 {
		poolSize = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		registry: registry,
		bus:      bus,
		logger:   logger,
		poolSize: poolSize,
		sem:      make(chan struct{}, poolSize),
		wake:     make(chan struct{}, 1),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start registers the scheduler as the registry's waker, launches the
// scheduling loop, and picks up anything queued before Start. Call Stop
// to drain and exit.
func (s *Scheduler) Start() {
	for i := 0; i < s.poolSize; i++ {
		s.sem <- struct{}{}
	}
	s.registry.SetWaker(s.Wake)
	s.wg.Add(1)
	go s.loop()
	s.Wake()
}

// Stop cancels every running task body and waits for the loop to exit.
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

// Wake signals the scheduling loop to check for newly queued work without
// waiting for the next tick. Non-blocking: a pending wake is coalesced.
func (s *Scheduler) Wake() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Scheduler) loop() {
	defer s.wg.Done()
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.wake:
			s.drain()
		case <-ticker.C:
			s.drain()
		}
	}
}

// drain assigns as many queued tasks to idle workers as it can.
func (s *Scheduler) drain() {
	for {
		select {
		case <-s.sem:
		default:
			return // no idle worker
		}

		h, ok := s.registry.claimNext()
		if !ok {
			s.sem <- struct{}{} // give the slot back, nothing to run
			return
		}
		s.startTask(h)
	}
}

// startTask runs h's task body on its own goroutine, returning the
// worker slot to the pool and re-waking the loop when it finishes.
func (s *Scheduler) startTask(h *Handle) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.sem <- struct{}{}
			s.Wake()
		}()
		s.executeTask(h)
	}()
}

func (s *Scheduler) executeTask(h *Handle) {
	h.mu.RLock()
	fn := h.fn
	taskID := h.TaskID
	timeoutAt := h.TimeoutAt
	h.mu.RUnlock()

	taskCtx, cancel := context.WithCancel(s.ctx)
	defer cancel()

	token := newCancelToken(cancel)
	s.registry.attachToken(taskID, token)

	var timer *time.Timer
	if !timeoutAt.IsZero() {
		remaining := time.Until(timeoutAt)
		if remaining <= 0 {
			// queued -> timeout is not a legal edge, so pass through running.
			if applied, _ := s.registry.Transition(taskID, StatusRunning, nil, nil, ""); applied {
				_, _ = s.registry.Transition(taskID, StatusTimeout, nil, fmt.Errorf("timed out before starting"), "")
			}
			return
		}
		timer = time.AfterFunc(remaining, func() {
			token.Cancel("timeout")
		})
		defer timer.Stop()
	}

	applied, err := s.registry.Transition(taskID, StatusRunning, nil, nil, "")
	if err != nil || !applied {
		// Already terminal (e.g. cancelled while still queued): nothing
		// to run.
		return
	}

	taskBus, err := s.bus.CreateChild(taskID)
	if err != nil {
		// Task ids are generated collision-resistant; a duplicate
		// namespace here means a caller reused one deliberately. Fall
		// back to emitting directly on the root bus rather than losing
		// the task's progress events.
		s.logger.Warn("subagent bus namespace collision, emitting on root", "taskId", taskID, "err", err)
		taskBus = s.bus
	}
	emitter := &busEmitter{bus: taskBus}

	resultCh := make(chan taskOutcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				resultCh <- taskOutcome{err: fmt.Errorf("task panicked: %v", r)}
			}
		}()
		result, err := fn(taskCtx, emitter)
		resultCh <- taskOutcome{result: result, err: err}
	}()

	select {
	case outcome := <-resultCh:
		s.finish(taskID, token, timeoutAt, outcome)
	case <-token.Done():
		// Cancelled or timed out; still wait (briefly, cooperatively)
		// for the body to return so its result/err can be recorded if
		// it happens to finish right away, but do not block forever.
		select {
		case outcome := <-resultCh:
			s.finish(taskID, token, timeoutAt, outcome)
		case <-time.After(50 * time.Millisecond):
			s.finishCancelled(taskID, token, timeoutAt)
		}
	}
}

type taskOutcome struct {
	result any
	err    error
}

func (s *Scheduler) finish(taskID string, token *cancelToken, timeoutAt time.Time, outcome taskOutcome) {
	if outcome.err != nil {
		if token.Cancelled() && token.Reason() == "timeout" {
			_, _ = s.registry.Transition(taskID, StatusTimeout, nil, outcome.err, "")
			return
		}
		if token.Cancelled() {
			_, _ = s.registry.Transition(taskID, StatusCancelled, nil, outcome.err, "")
			return
		}
		_, _ = s.registry.Transition(taskID, StatusFailed, nil, outcome.err, "")
		return
	}
	_, _ = s.registry.Transition(taskID, StatusCompleted, outcome.result, nil, "")
}

func (s *Scheduler) finishCancelled(taskID string, token *cancelToken, timeoutAt time.Time) {
	reason := token.Reason()
	if reason == "timeout" {
		_, _ = s.registry.Transition(taskID, StatusTimeout, nil, fmt.Errorf("timed out"), "")
		return
	}
	_, _ = s.registry.Transition(taskID, StatusCancelled, nil, fmt.Errorf("cancelled: %s", reason), "")
}
