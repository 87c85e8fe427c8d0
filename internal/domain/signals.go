package domain

import "errors"

// ErrDeadMemory is returned for signals with zero certainty and zero salience:
// a memory with no confidence and no relevance has nothing to contribute.
var ErrDeadMemory = errors.New("certainty and salience cannot both be zero")

// MemorySignals carries the confidence signals attached to a memory.
type MemorySignals struct {
	Certainty Credence `json:"certainty"`
	Salience  Credence `json:"salience"`
}

// NewSignals rejects the dead-memory combination (0, 0).
func NewSignals(certainty, salience Credence) (MemorySignals, error) {
	if certainty == 0 && salience == 0 {
		return MemorySignals{}, ErrDeadMemory
	}
	return MemorySignals{Certainty: certainty, Salience: salience}, nil
}

// IsWeak reports whether both signals sit below the 0.3 floor.
func (s MemorySignals) IsWeak() bool {
	return s.Certainty.Value() < 0.3 && s.Salience.Value() < 0.3
}
