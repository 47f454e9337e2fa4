// Package config loads Arbor's process configuration: a JSONC file (JSON
// with comments and trailing commas tolerated) with ${{ .Env.VAR }}
// template expansion, mirroring this codebase's existing config loader.
package config

import (
	"time"

	"github.com/arbor-sdk/arbor/internal/subagent"
)

// Config is the root configuration object.
type Config struct {
	Gateway  GatewayConfig  `json:"gateway"`
	Events   EventsConfig   `json:"events"`
	Subagent SubagentConfig `json:"subagent"`
	Schedule ScheduleConfig `json:"schedule"`
	Runtime  RuntimeConfig  `json:"runtime"`
}

// GatewayConfig holds the gateway server settings.
type GatewayConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// EventsConfig holds the ambient bridge-bus settings.
type EventsConfig struct {
	BufferSize int    `json:"buffer_size"`
	LogLevel   string `json:"log_level"` // "debug" | "info" | "warn" | "error" (default: "info")
}

// SubagentConfig mirrors the SubagentLimits configuration contract.
// Duration fields use the *Ms wire names from that contract and are
// converted to time.Duration by ToLimits().
type SubagentConfig struct {
	MaxDepth               int    `json:"max_depth"`
	MaxConcurrentPerParent int    `json:"max_concurrent_per_parent"`
	MaxQueueSize           int    `json:"max_queue_size"`
	GCTTLMs                int64  `json:"gc_ttl_ms"`
	GCIntervalMs           int64  `json:"gc_interval_ms"`
	DefaultTaskTimeoutMs   *int64 `json:"default_task_timeout_ms,omitempty"`
	WorkerPoolSize         int    `json:"worker_pool_size"`
	MaxBubblesPerSecond    int    `json:"max_bubbles_per_second"`
	MaxListenersPerEvent   int    `json:"max_listeners_per_event"`
}

// ToLimits converts the wire-format SubagentConfig into subagent.Limits,
// resolving the *Ms fields into time.Duration.
func (s SubagentConfig) ToLimits() subagent.Limits {
	l := subagent.Limits{
		MaxDepth:               s.MaxDepth,
		MaxConcurrentPerParent: s.MaxConcurrentPerParent,
		MaxQueueSize:           s.MaxQueueSize,
		GCTTL:                  time.Duration(s.GCTTLMs) * time.Millisecond,
		GCInterval:             time.Duration(s.GCIntervalMs) * time.Millisecond,
		WorkerPoolSize:         s.WorkerPoolSize,
		MaxBubblesPerSecond:    s.MaxBubblesPerSecond,
		MaxListenersPerEvent:   s.MaxListenersPerEvent,
	}
	if s.DefaultTaskTimeoutMs != nil {
		l.DefaultTaskTimeout = time.Duration(*s.DefaultTaskTimeoutMs) * time.Millisecond
	}
	return l
}

// ScheduleConfig points at the cron-triggered dispatch templates file.
type ScheduleConfig struct {
	EntriesFile string `json:"entries_file,omitempty"`
}

// RuntimeConfig configures runtime environment awareness.
type RuntimeConfig struct {
	Environment string `json:"environment,omitempty"` // "local" | "container"
}

// Duration wraps time.Duration for JSON unmarshaling of "30s"-style
// strings.
type Duration time.Duration

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Duration(d).String() + `"`), nil
}
