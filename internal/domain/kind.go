package domain

import (
	"fmt"
	"strings"
)

// MemoryKind classifies what sort of knowledge a memory records.
type MemoryKind string

const (
	KindSemantic    MemoryKind = "Semantic"    // general knowledge, facts, concepts
	KindEpisodic    MemoryKind = "Episodic"    // events with temporal or spatial context
	KindProcedural  MemoryKind = "Procedural"  // how-to knowledge, workflows, habits
	KindInstruction MemoryKind = "Instruction" // explicit directives and constraints
	KindRelational  MemoryKind = "Relational"  // people, entities, relationships
	KindWorking     MemoryKind = "Working"     // temporary task-scoped context
	KindProspective MemoryKind = "Prospective" // future plans, reminders, goals
)

// AllKinds lists every memory kind.
func AllKinds() []MemoryKind {
	return []MemoryKind{
		KindSemantic, KindEpisodic, KindProcedural, KindInstruction,
		KindRelational, KindWorking, KindProspective,
	}
}

// ParseKind accepts a case-insensitive kind name plus a few aliases.
func ParseKind(s string) (MemoryKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "semantic":
		return KindSemantic, nil
	case "episodic":
		return KindEpisodic, nil
	case "procedural":
		return KindProcedural, nil
	case "instruction", "directive":
		return KindInstruction, nil
	case "relational", "relation":
		return KindRelational, nil
	case "working":
		return KindWorking, nil
	case "prospective", "future":
		return KindProspective, nil
	default:
		return "", fmt.Errorf("invalid memory kind: %q", s)
	}
}

func ValidKind(k MemoryKind) bool {
	switch k {
	case KindSemantic, KindEpisodic, KindProcedural, KindInstruction,
		KindRelational, KindWorking, KindProspective:
		return true
	}
	return false
}

// IsTransient reports whether the kind only matters for an ongoing session.
func (k MemoryKind) IsTransient() bool {
	return k == KindWorking
}
