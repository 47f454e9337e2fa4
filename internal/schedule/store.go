package schedule

import (
	"fmt"
	"sort"
	"time"

	"github.com/arbor-sdk/arbor/internal/storage/dirstore"
)

// Store persists schedule entries as directories with meta.json, so
// cron/interval/event-triggered dispatch templates survive a process
// restart even though the subagents they spawn do not.
type Store struct {
	ds *dirstore.DirStore
}

// NewStore creates a Store rooted at baseDir.
func NewStore(baseDir string) *Store {
	return &Store{ds: dirstore.NewDirStore(baseDir, "schedule")}
}

// Create persists a new schedule entry to disk.
func (s *Store) Create(entry *ScheduleEntry) error {
	s.ds.Lock()
	defer s.ds.Unlock()

	if entry.ID == "" {
		entry.ID = GenerateScheduleID()
	}
	entry.CreatedAt = time.Now()

	if err := s.ds.EnsureDir(entry.ID); err != nil {
		return err
	}
	return s.ds.WriteMeta(entry.ID, entry)
}

// Get reads a schedule entry by ID.
func (s *Store) Get(id string) (*ScheduleEntry, error) {
	s.ds.RLock()
	defer s.ds.RUnlock()

	var entry ScheduleEntry
	if err := s.ds.ReadMeta(id, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// Update atomically rewrites a schedule entry's meta.json.
func (s *Store) Update(entry *ScheduleEntry) error {
	s.ds.Lock()
	defer s.ds.Unlock()
	return s.ds.WriteMeta(entry.ID, entry)
}

// Delete removes a schedule entry's directory.
func (s *Store) Delete(id string) error {
	s.ds.Lock()
	defer s.ds.Unlock()
	return s.ds.RemoveDir(id)
}

// List returns all schedule entries, sorted by CreatedAt descending.
func (s *Store) List() ([]*ScheduleEntry, error) {
	s.ds.RLock()
	defer s.ds.RUnlock()

	dirs, err := s.ds.ListDirs()
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}

	var entries []*ScheduleEntry
	for _, name := range dirs {
		var entry ScheduleEntry
		if err := s.ds.ReadMeta(name, &entry); err != nil {
			continue // skip corrupted entries
		}
		entries = append(entries, &entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
	return entries, nil
}
