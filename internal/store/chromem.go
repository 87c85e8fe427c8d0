package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	chromem "github.com/philippgille/chromem-go"

	"github.com/mnemo-ai/mnemo/internal/domain"
)

// ChromemStore keeps memories in an embedded chromem-go collection. The
// engine only supports string-equality metadata filters, so context and
// lifecycle go into metadata while the remaining predicates run in-process
// over decoded payloads. A sidecar id registry covers point listing, which
// the engine lacks.
type ChromemStore struct {
	db   *chromem.DB
	name string

	mu  sync.RWMutex
	col *chromem.Collection
	ids map[uuid.UUID]struct{}
}

func NewChromemStore(name string) *ChromemStore {
	return &ChromemStore{
		db:   chromem.NewDB(),
		name: name,
		ids:  make(map[uuid.UUID]struct{}),
	}
}

func (s *ChromemStore) CreateCollection(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.col != nil {
		return nil
	}
	col, err := s.db.GetOrCreateCollection(s.name, nil, nil)
	if err != nil {
		return fmt.Errorf("create collection: %w", err)
	}
	s.col = col
	return nil
}

func (s *ChromemStore) collection() (*chromem.Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.col == nil {
		return nil, fmt.Errorf("collection %q not created", s.name)
	}
	return s.col, nil
}

func (s *ChromemStore) Insert(ctx context.Context, records []Record) error {
	col, err := s.collection()
	if err != nil {
		return err
	}

	for _, r := range records {
		if len(r.Vector) == 0 {
			return fmt.Errorf("insert %s: %w", r.Memory.ID, ErrVectorRequired)
		}
		payload, err := json.Marshal(r.Memory)
		if err != nil {
			return fmt.Errorf("marshal memory %s: %w", r.Memory.ID, err)
		}

		// Upsert: drop any previous point under the same id first.
		s.mu.Lock()
		if _, exists := s.ids[r.Memory.ID]; exists {
			if err := col.Delete(ctx, nil, nil, r.Memory.ID.String()); err != nil {
				s.mu.Unlock()
				return fmt.Errorf("replace memory %s: %w", r.Memory.ID, err)
			}
		}
		err = col.AddDocument(ctx, chromem.Document{
			ID:        r.Memory.ID.String(),
			Content:   string(payload),
			Embedding: r.Vector,
			Metadata:  pointMetadata(r.Memory),
		})
		if err != nil {
			s.mu.Unlock()
			return fmt.Errorf("add memory %s: %w", r.Memory.ID, err)
		}
		s.ids[r.Memory.ID] = struct{}{}
		s.mu.Unlock()
	}
	return nil
}

func (s *ChromemStore) Get(ctx context.Context, id uuid.UUID) (*domain.Memory, error) {
	col, err := s.collection()
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	_, exists := s.ids[id]
	s.mu.RUnlock()
	if !exists {
		return nil, ErrNotFound
	}

	doc, err := col.GetByID(ctx, id.String())
	if err != nil {
		return nil, ErrNotFound
	}
	return decodePayload([]byte(doc.Content))
}

func (s *ChromemStore) Update(ctx context.Context, memory *domain.Memory, vector []float32) error {
	col, err := s.collection()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.ids[memory.ID]; !exists {
		return ErrNotFound
	}

	if len(vector) == 0 {
		doc, err := col.GetByID(ctx, memory.ID.String())
		if err != nil {
			return ErrNotFound
		}
		vector = doc.Embedding
	}

	payload, err := json.Marshal(memory)
	if err != nil {
		return fmt.Errorf("marshal memory %s: %w", memory.ID, err)
	}
	if err := col.Delete(ctx, nil, nil, memory.ID.String()); err != nil {
		return fmt.Errorf("replace memory %s: %w", memory.ID, err)
	}
	err = col.AddDocument(ctx, chromem.Document{
		ID:        memory.ID.String(),
		Content:   string(payload),
		Embedding: vector,
		Metadata:  pointMetadata(memory),
	})
	if err != nil {
		return fmt.Errorf("add memory %s: %w", memory.ID, err)
	}
	return nil
}

func (s *ChromemStore) Delete(ctx context.Context, id uuid.UUID) error {
	col, err := s.collection()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.ids[id]; !exists {
		return ErrNotFound
	}
	if err := col.Delete(ctx, nil, nil, id.String()); err != nil {
		return fmt.Errorf("delete memory %s: %w", id, err)
	}
	delete(s.ids, id)
	return nil
}

func (s *ChromemStore) List(ctx context.Context, query domain.Query) ([]*domain.Memory, error) {
	col, err := s.collection()
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	ids := make([]uuid.UUID, 0, len(s.ids))
	for id := range s.ids {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	var memories []*domain.Memory
	for _, id := range ids {
		doc, err := col.GetByID(ctx, id.String())
		if err != nil {
			continue
		}
		m, err := decodePayload([]byte(doc.Content))
		if err != nil {
			return nil, err
		}
		if MatchesQuery(m, query) {
			memories = append(memories, m)
		}
	}

	sort.Slice(memories, func(i, j int) bool {
		return memories[i].Temporal.CreatedAt.After(memories[j].Temporal.CreatedAt)
	})
	if uint32(len(memories)) > query.Limit {
		memories = memories[:query.Limit]
	}
	return memories, nil
}

func (s *ChromemStore) Search(ctx context.Context, query domain.Query) ([]SearchResult, error) {
	if len(query.Vector) == 0 {
		return nil, ErrVectorRequired
	}
	col, err := s.collection()
	if err != nil {
		return nil, err
	}

	count := col.Count()
	if count == 0 {
		return nil, nil
	}

	// The where clause only narrows by equality. Anything further is
	// post-filtered, so the candidate window widens to the whole
	// collection to keep top-K identical to server-side filtering.
	nResults := int(query.Limit)
	if postFilterNeeded(query) || nResults > count {
		nResults = count
	}

	results, err := col.QueryEmbedding(ctx, query.Vector, nResults, contextWhere(query), nil)
	if err != nil {
		return nil, fmt.Errorf("search collection: %w", err)
	}

	out := make([]SearchResult, 0, query.Limit)
	for _, r := range results {
		m, err := decodePayload([]byte(r.Content))
		if err != nil {
			return nil, err
		}
		if !MatchesQuery(m, query) {
			continue
		}
		out = append(out, SearchResult{Memory: m, Score: r.Similarity})
		if uint32(len(out)) == query.Limit {
			break
		}
	}
	return out, nil
}

func (s *ChromemStore) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.db.DeleteCollection(s.name); err != nil {
		return fmt.Errorf("reset collection: %w", err)
	}
	col, err := s.db.GetOrCreateCollection(s.name, nil, nil)
	if err != nil {
		return fmt.Errorf("recreate collection: %w", err)
	}
	s.col = col
	s.ids = make(map[uuid.UUID]struct{})
	return nil
}

func (s *ChromemStore) DeleteCollection(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.db.DeleteCollection(s.name); err != nil {
		return fmt.Errorf("delete collection: %w", err)
	}
	s.col = nil
	s.ids = make(map[uuid.UUID]struct{})
	return nil
}

// pointMetadata is the equality-filterable projection of a memory.
func pointMetadata(m *domain.Memory) map[string]string {
	md := map[string]string{
		"lifecycle": string(m.Lifecycle),
		"kind":      string(m.Kind),
	}
	if m.Context.HasUser() {
		md["user_id"] = m.Context.UserID
	}
	if m.Context.HasAgent() {
		md["agent_id"] = m.Context.AgentID
	}
	if m.Context.HasRun() {
		md["run_id"] = m.Context.RunID
	}
	return md
}

func contextWhere(q domain.Query) map[string]string {
	where := make(map[string]string)
	if q.Context.HasUser() {
		where["user_id"] = q.Context.UserID
	}
	if q.Context.HasAgent() {
		where["agent_id"] = q.Context.AgentID
	}
	if q.Context.HasRun() {
		where["run_id"] = q.Context.RunID
	}
	if len(where) == 0 {
		return nil
	}
	return where
}

func postFilterNeeded(q domain.Query) bool {
	return !q.IncludeArchived || len(q.Kinds) > 0 || len(q.Tags) > 0 || q.Temporal != nil || q.Signals != nil
}
