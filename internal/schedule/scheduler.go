package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/arbor-sdk/arbor/internal/events"
	"github.com/arbor-sdk/arbor/internal/subagent"
)

// DefaultCooldown is the minimum interval between two triggers of the same entry.
const DefaultCooldown = 60 * time.Second

// Dispatcher is the subset of DispatchTool the scheduler needs; taking an
// interface keeps this package decoupled from how the caller builds the
// TaskFunc behind a dispatch template.
type Dispatcher interface {
	Dispatch(ctx context.Context, in subagent.DispatchInput, fn subagent.TaskFunc) subagent.DispatchOutput
}

// Config holds the scheduler's dependencies.
type Config struct {
	Dispatcher Dispatcher
	Bus        *events.Bus
	NewFn      func(tmpl *DispatchTemplate) subagent.TaskFunc
	Store      *Store // nil-safe: entries are not persisted without a store
	Logger     *slog.Logger
}

// runtimeEntry is the in-memory representation of a schedule entry.
type runtimeEntry struct {
	id          string
	title       string
	description string
	cron        *CronExpr
	intervalSec int
	onEvent     *EventTrigger
	tmpl        *DispatchTemplate
	cooldown    time.Duration
	maxRuns     int
	runCount    int
	enabled     bool
	lastRun     time.Time
}

// Scheduler manages cron-based, interval-based, and event-triggered
// dispatches into the subagent core.
type Scheduler struct {
	dispatcher Dispatcher
	bus        *events.Bus
	newFn      func(tmpl *DispatchTemplate) subagent.TaskFunc
	store      *Store
	logger     *slog.Logger

	mu      sync.Mutex
	entries map[string]*runtimeEntry

	done        chan struct{}
	unsubscribe func()
}

// New creates a new Scheduler.
func New(cfg Config) *Scheduler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		dispatcher: cfg.Dispatcher,
		bus:        cfg.Bus,
		newFn:      cfg.NewFn,
		store:      cfg.Store,
		logger:     logger,
		entries:    make(map[string]*runtimeEntry),
		done:       make(chan struct{}),
	}
}

// Start loads any persisted entries and begins the cron/interval tickers
// and event subscription. Entries can still be added dynamically after
// Start via AddEntry.
func (s *Scheduler) Start() {
	s.loadPersistedEntries()

	s.logger.Info("schedule: started", "entries", len(s.entries))

	s.unsubscribe = s.bus.Subscribe(s.handleEvent)
	go s.cronLoop()
	go s.intervalLoop()
}

// Stop halts the scheduler's tickers and event subscription.
func (s *Scheduler) Stop() {
	close(s.done)
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	s.logger.Info("schedule: stopped")
}

// AddEntry registers a schedule entry at runtime, persisting it if a
// store is configured.
func (s *Scheduler) AddEntry(se *ScheduleEntry) error {
	if se.CronSpec == "" && se.IntervalSec == 0 && se.OnEvent == nil {
		return fmt.Errorf("schedule entry must have cron, interval, or on_event trigger")
	}
	if se.IntervalSec > 0 && se.IntervalSec < 5 {
		return fmt.Errorf("interval must be at least 5 seconds")
	}
	if se.Template == nil {
		return fmt.Errorf("schedule entry must have a dispatch template")
	}

	if se.ID == "" {
		se.ID = GenerateScheduleID()
	}

	re := &runtimeEntry{
		id:          se.ID,
		title:       se.Title,
		description: se.Description,
		intervalSec: se.IntervalSec,
		onEvent:     se.OnEvent,
		tmpl:        se.Template,
		cooldown:    time.Duration(se.CooldownSec) * time.Second,
		maxRuns:     se.MaxRuns,
		runCount:    se.RunCount,
		enabled:     se.Enabled,
	}

	if se.CronSpec != "" {
		expr, err := ParseCron(se.CronSpec)
		if err != nil {
			return fmt.Errorf("parse cron: %w", err)
		}
		re.cron = expr
	}
	if re.cooldown == 0 {
		re.cooldown = DefaultCooldown
	}

	if s.store != nil {
		if err := s.store.Create(se); err != nil {
			return fmt.Errorf("persist schedule: %w", err)
		}
	}

	s.mu.Lock()
	s.entries[se.ID] = re
	s.mu.Unlock()

	s.logger.Info("schedule: added entry", "id", se.ID, "title", se.Title)
	return nil
}

// RemoveEntry removes a schedule entry by ID.
func (s *Scheduler) RemoveEntry(id string) error {
	s.mu.Lock()
	_, ok := s.entries[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("schedule entry not found: %s", id)
	}
	delete(s.entries, id)
	s.mu.Unlock()

	if s.store != nil {
		if err := s.store.Delete(id); err != nil {
			s.logger.Warn("schedule: failed to delete persisted entry", "id", id, "error", err)
		}
	}

	s.logger.Info("schedule: removed entry", "id", id)
	return nil
}

// GetEntry returns a schedule entry by ID.
func (s *Scheduler) GetEntry(id string) (*ScheduleEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	re, ok := s.entries[id]
	if !ok {
		return nil, false
	}
	return runtimeToScheduleEntry(re), true
}

// ListEntries returns all schedule entries.
func (s *Scheduler) ListEntries() []*ScheduleEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]*ScheduleEntry, 0, len(s.entries))
	for _, re := range s.entries {
		result = append(result, runtimeToScheduleEntry(re))
	}
	return result
}

func runtimeToScheduleEntry(re *runtimeEntry) *ScheduleEntry {
	se := &ScheduleEntry{
		ID:          re.id,
		Title:       re.title,
		Description: re.description,
		IntervalSec: re.intervalSec,
		OnEvent:     re.onEvent,
		Template:    re.tmpl,
		CooldownSec: int(re.cooldown / time.Second),
		MaxRuns:     re.maxRuns,
		RunCount:    re.runCount,
		Enabled:     re.enabled,
	}
	if re.cron != nil {
		se.CronSpec = re.cron.String()
	}
	if !re.lastRun.IsZero() {
		t := re.lastRun
		se.LastRunAt = &t
	}
	return se
}

func (s *Scheduler) loadPersistedEntries() {
	if s.store == nil {
		return
	}

	entries, err := s.store.List()
	if err != nil {
		s.logger.Warn("schedule: failed to load persisted entries", "error", err)
		return
	}

	for _, se := range entries {
		if !se.Enabled {
			continue
		}

		re := &runtimeEntry{
			id:          se.ID,
			title:       se.Title,
			description: se.Description,
			intervalSec: se.IntervalSec,
			onEvent:     se.OnEvent,
			tmpl:        se.Template,
			cooldown:    time.Duration(se.CooldownSec) * time.Second,
			maxRuns:     se.MaxRuns,
			runCount:    se.RunCount,
			enabled:     true,
		}

		if se.CronSpec != "" {
			expr, err := ParseCron(se.CronSpec)
			if err != nil {
				s.logger.Warn("schedule: invalid cron in persisted entry", "id", se.ID, "error", err)
				continue
			}
			re.cron = expr
		}
		if re.cooldown == 0 {
			re.cooldown = DefaultCooldown
		}

		s.entries[se.ID] = re
		s.logger.Info("schedule: loaded persisted entry", "id", se.ID, "title", se.Title)
	}
}

func (s *Scheduler) cronLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case now := <-ticker.C:
			s.checkCron(now)
		}
	}
}

func (s *Scheduler) intervalLoop() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case now := <-ticker.C:
			s.checkIntervals(now)
		}
	}
}

func (s *Scheduler) checkCron(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, entry := range s.entries {
		if entry.cron == nil || !entry.enabled {
			continue
		}
		if !entry.cron.Matches(now) {
			continue
		}
		if now.Sub(entry.lastRun) < entry.cooldown {
			continue
		}
		s.triggerEntry(entry, "cron")
	}
}

func (s *Scheduler) checkIntervals(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, entry := range s.entries {
		if entry.intervalSec <= 0 || !entry.enabled {
			continue
		}
		interval := time.Duration(entry.intervalSec) * time.Second
		if now.Sub(entry.lastRun) < interval {
			continue
		}
		s.triggerEntry(entry, "interval")
	}
}

func (s *Scheduler) handleEvent(e events.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for _, entry := range s.entries {
		if entry.onEvent == nil || !entry.enabled {
			continue
		}
		if !MatchEvent(e, entry.onEvent) {
			continue
		}
		if now.Sub(entry.lastRun) < entry.cooldown {
			continue
		}
		s.triggerEntry(entry, "event:"+string(e.Type))
	}
}

// triggerEntry calls DispatchTool for the given entry. Caller must hold s.mu.
func (s *Scheduler) triggerEntry(re *runtimeEntry, trigger string) {
	re.lastRun = time.Now()
	re.runCount++

	in := subagent.DispatchInput{
		Prompt:       re.tmpl.Prompt,
		Instructions: re.tmpl.Instructions,
		Priority:     re.tmpl.Priority,
		Metadata:     re.tmpl.Metadata,
		TimeoutMs:    re.tmpl.TimeoutMs,
	}

	var fn subagent.TaskFunc
	if s.newFn != nil {
		fn = s.newFn(re.tmpl)
	}

	out := s.dispatcher.Dispatch(context.Background(), in, fn)
	if out.Error != "" {
		s.logger.Error("schedule: dispatch failed", "id", re.id, "error", out.Error, "detail", out.ErrorDetail)
		return
	}

	if s.store != nil {
		s.updateStoredEntry(re)
	}

	if re.maxRuns > 0 && re.runCount >= re.maxRuns {
		re.enabled = false
		s.logger.Info("schedule: entry reached max runs, disabled", "id", re.id, "runs", re.runCount)
		if s.store != nil {
			s.updateStoredEntry(re)
		}
	}

	s.bus.Publish(events.NewTypedEvent(events.SourceSchedule, events.ScheduleTriggerPayload{
		ScheduleID: re.id,
		TaskID:     out.TaskID,
	}))

	s.logger.Info("schedule: triggered", "id", re.id, "trigger", trigger, "task_id", out.TaskID)
}

func (s *Scheduler) updateStoredEntry(re *runtimeEntry) {
	se := runtimeToScheduleEntry(re)
	if err := s.store.Update(se); err != nil {
		s.logger.Warn("schedule: failed to update persisted entry", "id", re.id, "error", err)
	}
}
