package subagent

import (
	"log/slog"

	"github.com/arbor-sdk/arbor/internal/events"
)

// Core bundles a Registry and its Scheduler, wired together so dispatches
// wake the worker pool immediately. This is the entry point a host
// application (the gateway, the CLI, a test) constructs once per process.
type Core struct {
	Registry  *Registry
	Scheduler *Scheduler
	Bus       *HierarchicalEventBus

	unbridge func()
}

// NewCore builds a ready-to-run Core: a root HierarchicalEventBus sized
// per limits, a Registry bound to it, and a Scheduler wired to wake on
// every dispatch. Call Start before dispatching and Stop on shutdown.
func NewCore(limits Limits, hooks Hooks, logger *slog.Logger) *Core {
	if logger == nil {
		logger = slog.Default()
	}
	bus := NewHierarchicalEventBus("root",
		WithMaxBubblesPerSecond(limits.MaxBubblesPerSecond),
		WithMaxListenersPerEvent(limits.MaxListenersPerEvent),
		WithLogger(logger),
	)
	registry := NewRegistry(limits, bus, hooks, logger)
	scheduler := NewScheduler(registry, bus, limits.WorkerPoolSize, logger)
	registry.SetWaker(scheduler.Wake)

	return &Core{Registry: registry, Scheduler: scheduler, Bus: bus}
}

// Start launches the scheduler's worker pool.
func (c *Core) Start() { c.Scheduler.Start() }

// Stop stops the scheduler and the registry's GC loop, cancelling every
// outstanding subagent.
func (c *Core) Stop() {
	if c.unbridge != nil {
		c.unbridge()
	}
	c.Scheduler.Stop()
	c.Registry.Shutdown()
}

// AttachEventsBus bridges every subagent lifecycle event onto the ambient,
// non-blocking events.Bus, so external subscribers (the gateway's
// WebSocket hub) can observe core activity without ever being on the
// synchronous emit path. Call once per Core; a second call replaces the
// prior bridge.
func (c *Core) AttachEventsBus(bus *events.Bus) {
	if c.unbridge != nil {
		c.unbridge()
	}
	c.unbridge = BridgeToEventsBus(c.Bus, bus)
}
