package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyContext is returned when no identifier is present at all.
	ErrEmptyContext = errors.New("context must contain at least one identifier")
	// ErrEmptyContextField is returned when a supplied identifier is blank after trimming.
	ErrEmptyContextField = errors.New("context field must not be empty or whitespace")
)

// MemoryContext is the tenancy/ownership key of a memory. At least one of the
// three identifiers must be set. It doubles as the read-time context filter
// embedded in a Query.
type MemoryContext struct {
	UserID  string `json:"user_id,omitempty"`
	AgentID string `json:"agent_id,omitempty"`
	RunID   string `json:"run_id,omitempty"`
}

// NewContext trims and validates the given identifiers. An identifier passed
// as the empty string counts as absent; one that is non-empty but blank after
// trimming is an error.
func NewContext(userID, agentID, runID string) (MemoryContext, error) {
	fields := [3]struct {
		name  string
		value string
	}{
		{"user_id", userID},
		{"agent_id", agentID},
		{"run_id", runID},
	}

	var out [3]string
	for i, f := range fields {
		if f.value == "" {
			continue
		}
		trimmed := strings.TrimSpace(f.value)
		if trimmed == "" {
			return MemoryContext{}, fmt.Errorf("%w: %s", ErrEmptyContextField, f.name)
		}
		out[i] = trimmed
	}

	ctx := MemoryContext{UserID: out[0], AgentID: out[1], RunID: out[2]}
	if err := ctx.Validate(); err != nil {
		return MemoryContext{}, err
	}
	return ctx, nil
}

// ContextForUser builds a context scoped to a single user.
func ContextForUser(userID string) (MemoryContext, error) {
	return NewContext(userID, "", "")
}

// ContextForAgent builds a context scoped to a single agent.
func ContextForAgent(agentID string) (MemoryContext, error) {
	return NewContext("", agentID, "")
}

// ContextForRun builds a context scoped to a single run.
func ContextForRun(runID string) (MemoryContext, error) {
	return NewContext("", "", runID)
}

func (c MemoryContext) Validate() error {
	if c.UserID == "" && c.AgentID == "" && c.RunID == "" {
		return ErrEmptyContext
	}
	return nil
}

func (c MemoryContext) HasUser() bool  { return c.UserID != "" }
func (c MemoryContext) HasAgent() bool { return c.AgentID != "" }
func (c MemoryContext) HasRun() bool   { return c.RunID != "" }

// IsPartial reports whether fewer than all three identifiers are set.
func (c MemoryContext) IsPartial() bool {
	count := 0
	if c.HasUser() {
		count++
	}
	if c.HasAgent() {
		count++
	}
	if c.HasRun() {
		count++
	}
	return count < 3
}
