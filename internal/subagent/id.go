package subagent

import (
	"strings"

	"github.com/google/uuid"
)

// NewTaskID generates a default task identifier, "sub_" followed by the
// first 8 hex characters (the first group) of a random UUID. Mirrors the
// "task_<id>" / "agent-<id8>-<seq>" conventions this codebase has used
// elsewhere for short, greppable identifiers.
func NewTaskID() string {
	u := uuid.New().String()
	return "sub_" + strings.ReplaceAll(u[:8], "-", "")
}
