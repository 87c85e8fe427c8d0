package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrArchivedWithoutTimestamp flags an Archived memory with no archived_at.
	ErrArchivedWithoutTimestamp = errors.New("lifecycle state is Archived but archived_at timestamp is not set")
	// ErrActiveWithArchivedTimestamp flags an Active memory that carries archived_at.
	ErrActiveWithArchivedTimestamp = errors.New("lifecycle state is Active but archived_at timestamp is set")
)

// Memory is the unit of persisted knowledge: a summarized, tagged record
// scoped to a context. It is created by the ingestion path, mutated only
// through MarkUpdated and Archive, and deleted only by id at the storage
// layer.
type Memory struct {
	ID         uuid.UUID        `json:"id"`
	Context    MemoryContext    `json:"context"`
	Lifecycle  LifecycleState   `json:"lifecycle"`
	Kind       MemoryKind       `json:"kind"`
	Content    MemoryContent    `json:"content"`
	Signals    MemorySignals    `json:"signals"`
	Temporal   TemporalMetadata `json:"temporal"`
	Provenance Provenance       `json:"provenance"`
}

// NewMemory assembles and validates a memory. The id is assigned here and
// never reassigned.
func NewMemory(ctx MemoryContext, kind MemoryKind, content MemoryContent, signals MemorySignals, prov Provenance, createdAt time.Time) (*Memory, error) {
	m := &Memory{
		ID:         uuid.New(),
		Context:    ctx,
		Lifecycle:  LifecycleActive,
		Kind:       kind,
		Content:    content,
		Signals:    signals,
		Temporal:   NewTemporal(createdAt),
		Provenance: prov,
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Validate re-checks every cross-field invariant. Lifecycle and archived_at
// must agree in both directions.
func (m *Memory) Validate() error {
	if err := m.Context.Validate(); err != nil {
		return err
	}
	if err := m.Temporal.Validate(); err != nil {
		return err
	}
	if err := m.Provenance.Validate(); err != nil {
		return err
	}

	switch {
	case m.Lifecycle.IsArchived() && m.Temporal.ArchivedAt == nil:
		return ErrArchivedWithoutTimestamp
	case m.Lifecycle.IsActive() && m.Temporal.ArchivedAt != nil:
		return ErrActiveWithArchivedTimestamp
	}
	return nil
}

// MarkUpdated records an update instant, failing if it would reorder history.
func (m *Memory) MarkUpdated(at time.Time) error {
	return m.Temporal.MarkUpdated(at)
}

// Archive retires the memory, stamping archived_at and flipping lifecycle
// together so the biconditional invariant holds.
func (m *Memory) Archive(at time.Time) error {
	if err := m.Temporal.MarkArchived(at); err != nil {
		return err
	}
	m.Lifecycle = LifecycleArchived
	return nil
}

func (m *Memory) IsActive() bool   { return m.Lifecycle.IsActive() }
func (m *Memory) IsArchived() bool { return m.Lifecycle.IsArchived() }

// Score is a cheap combined signal strength, certainty scaled by salience.
func (m *Memory) Score() float32 {
	return m.Signals.Certainty.Value() * m.Signals.Salience.Value()
}

// Summary returns the searchable summary text.
func (m *Memory) Summary() string {
	return m.Content.Summary
}
