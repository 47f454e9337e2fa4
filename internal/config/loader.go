package config

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"

	"github.com/tailscale/hujson"
)

var envTemplateRe = regexp.MustCompile(`\$\{\{\s*\.Env\.(\w+)\s*\}\}`)

// Load reads a JSONC config file, strips comments/trailing commas via
// hujson, expands ${{ .Env.VAR }} templates, unmarshals it into Config,
// and applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variable templates before standardizing, since
	// the templates live inside JSON string values.
	expanded := expandEnvTemplates(string(data))

	standardized, err := hujson.Standardize([]byte(expanded))
	if err != nil {
		return nil, fmt.Errorf("standardize jsonc: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(standardized, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// expandEnvTemplates replaces ${{ .Env.VAR }} with the env var value.
func expandEnvTemplates(s string) string {
	return envTemplateRe.ReplaceAllStringFunc(s, func(match string) string {
		parts := envTemplateRe.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}
		return os.Getenv(parts[1])
	})
}

// applyDefaults fills in zero-value fields with the SubagentLimits
// contract's stated defaults plus sensible defaults for the ambient
// sections.
func applyDefaults(cfg *Config) {
	if cfg.Gateway.Host == "" {
		cfg.Gateway.Host = "127.0.0.1"
	}
	if cfg.Gateway.Port == 0 {
		cfg.Gateway.Port = 18420
	}
	if cfg.Events.BufferSize == 0 {
		cfg.Events.BufferSize = 1024
	}
	if cfg.Events.LogLevel == "" {
		cfg.Events.LogLevel = "info"
	}
	if cfg.Runtime.Environment == "" {
		if v := os.Getenv("ARBOR_RUNTIME"); v != "" {
			cfg.Runtime.Environment = v
		} else {
			cfg.Runtime.Environment = "local"
		}
	}

	s := &cfg.Subagent
	if s.MaxDepth == 0 {
		s.MaxDepth = 5
	}
	if s.MaxConcurrentPerParent == 0 {
		s.MaxConcurrentPerParent = 10
	}
	if s.MaxQueueSize == 0 {
		s.MaxQueueSize = 1000
	}
	if s.GCTTLMs == 0 {
		s.GCTTLMs = 60_000
	}
	if s.GCIntervalMs == 0 {
		s.GCIntervalMs = 30_000
	}
	if s.WorkerPoolSize == 0 {
		s.WorkerPoolSize = 8
	}
	if s.MaxBubblesPerSecond == 0 {
		s.MaxBubblesPerSecond = 100
	}
	if s.MaxListenersPerEvent == 0 {
		s.MaxListenersPerEvent = 100
	}
}
