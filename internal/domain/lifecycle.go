package domain

import (
	"fmt"
	"strings"
)

// LifecycleState is the coarse state of a memory: live or retired.
type LifecycleState string

const (
	LifecycleActive   LifecycleState = "Active"
	LifecycleArchived LifecycleState = "Archived"
)

// ParseLifecycle accepts a case-insensitive state name.
func ParseLifecycle(s string) (LifecycleState, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "active":
		return LifecycleActive, nil
	case "archived":
		return LifecycleArchived, nil
	default:
		return "", fmt.Errorf("invalid lifecycle state: %q", s)
	}
}

func (l LifecycleState) IsActive() bool   { return l == LifecycleActive }
func (l LifecycleState) IsArchived() bool { return l == LifecycleArchived }
