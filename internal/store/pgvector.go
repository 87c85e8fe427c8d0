package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/mnemo-ai/mnemo/internal/domain"
)

// PgVectorStore keeps memories in a single table: point id, embedding, and
// the full memory document as JSONB. Filters run server-side as JSONB
// predicates so only matching rows travel back.
type PgVectorStore struct {
	db         *pgxpool.Pool
	table      string
	dimensions int
}

func NewPgVectorStore(db *pgxpool.Pool, table string, dimensions int) *PgVectorStore {
	return &PgVectorStore{db: db, table: table, dimensions: dimensions}
}

func (s *PgVectorStore) CreateCollection(ctx context.Context) error {
	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(
			`CREATE TABLE IF NOT EXISTS %s (
				id UUID PRIMARY KEY,
				embedding vector(%d) NOT NULL,
				payload JSONB NOT NULL
			)`, s.table, s.dimensions),
		fmt.Sprintf(
			`CREATE INDEX IF NOT EXISTS %s_embedding_idx ON %s USING hnsw (embedding vector_cosine_ops)`,
			s.table, s.table),
		fmt.Sprintf(
			`CREATE INDEX IF NOT EXISTS %s_user_idx ON %s ((payload->'context'->>'user_id'))`,
			s.table, s.table),
		fmt.Sprintf(
			`CREATE INDEX IF NOT EXISTS %s_lifecycle_idx ON %s ((payload->>'lifecycle'))`,
			s.table, s.table),
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("create collection: %w", err)
		}
	}
	return nil
}

func (s *PgVectorStore) Insert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, r := range records {
		if len(r.Vector) == 0 {
			return fmt.Errorf("insert %s: %w", r.Memory.ID, ErrVectorRequired)
		}
		payload, err := json.Marshal(r.Memory)
		if err != nil {
			return fmt.Errorf("marshal memory %s: %w", r.Memory.ID, err)
		}
		batch.Queue(fmt.Sprintf(
			`INSERT INTO %s (id, embedding, payload) VALUES ($1, $2, $3)
			 ON CONFLICT (id) DO UPDATE SET embedding = EXCLUDED.embedding, payload = EXCLUDED.payload`,
			s.table),
			r.Memory.ID, pgvector.NewVector(r.Vector), payload,
		)
	}

	results := s.db.SendBatch(ctx, batch)
	defer func() { _ = results.Close() }()
	for range records {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert batch: %w", err)
		}
	}
	return nil
}

func (s *PgVectorStore) Get(ctx context.Context, id uuid.UUID) (*domain.Memory, error) {
	var payload []byte
	err := s.db.QueryRow(ctx,
		fmt.Sprintf(`SELECT payload FROM %s WHERE id = $1`, s.table), id,
	).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get memory: %w", err)
	}
	return decodePayload(payload)
}

func (s *PgVectorStore) Update(ctx context.Context, memory *domain.Memory, vector []float32) error {
	payload, err := json.Marshal(memory)
	if err != nil {
		return fmt.Errorf("marshal memory %s: %w", memory.ID, err)
	}

	var tag pgconn.CommandTag
	if len(vector) > 0 {
		tag, err = s.db.Exec(ctx,
			fmt.Sprintf(`UPDATE %s SET embedding = $2, payload = $3 WHERE id = $1`, s.table),
			memory.ID, pgvector.NewVector(vector), payload,
		)
	} else {
		tag, err = s.db.Exec(ctx,
			fmt.Sprintf(`UPDATE %s SET payload = $2 WHERE id = $1`, s.table),
			memory.ID, payload,
		)
	}
	if err != nil {
		return fmt.Errorf("update memory: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PgVectorStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, s.table), id,
	)
	if err != nil {
		return fmt.Errorf("delete memory: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PgVectorStore) List(ctx context.Context, query domain.Query) ([]*domain.Memory, error) {
	where, args := translateQuery(query, 0)

	sql := fmt.Sprintf(
		`SELECT payload FROM %s
		 WHERE %s
		 ORDER BY (payload->'temporal'->>'created_at')::timestamptz DESC
		 LIMIT $%d`,
		s.table, where, len(args)+1,
	)
	args = append(args, query.Limit)

	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list query: %w", err)
	}
	defer rows.Close()

	var memories []*domain.Memory
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan list row: %w", err)
		}
		m, err := decodePayload(payload)
		if err != nil {
			return nil, err
		}
		memories = append(memories, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list rows: %w", err)
	}
	return memories, nil
}

func (s *PgVectorStore) Search(ctx context.Context, query domain.Query) ([]SearchResult, error) {
	if len(query.Vector) == 0 {
		return nil, ErrVectorRequired
	}

	where, args := translateQuery(query, 0)

	vectorParam := len(args) + 1
	args = append(args, pgvector.NewVector(query.Vector))
	limitParam := len(args) + 1
	args = append(args, query.Limit)

	sql := fmt.Sprintf(
		`SELECT payload, 1 - (embedding <=> $%d) AS score
		 FROM %s
		 WHERE %s
		 ORDER BY embedding <=> $%d
		 LIMIT $%d`,
		vectorParam, s.table, where, vectorParam, limitParam,
	)

	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var payload []byte
		var score float32
		if err := rows.Scan(&payload, &score); err != nil {
			return nil, fmt.Errorf("scan search row: %w", err)
		}
		m, err := decodePayload(payload)
		if err != nil {
			return nil, err
		}
		results = append(results, SearchResult{Memory: m, Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("search rows: %w", err)
	}
	return results, nil
}

func (s *PgVectorStore) Reset(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, fmt.Sprintf(`TRUNCATE %s`, s.table)); err != nil {
		return fmt.Errorf("reset collection: %w", err)
	}
	return nil
}

func (s *PgVectorStore) DeleteCollection(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s`, s.table)); err != nil {
		return fmt.Errorf("delete collection: %w", err)
	}
	return nil
}

// translateQuery renders a query's filters as SQL predicates over the
// payload column. startArg is the number of placeholders already consumed.
func translateQuery(q domain.Query, startArg int) (string, []any) {
	var conditions []string
	var args []any

	next := func() int { return startArg + len(args) + 1 }

	if q.Context.HasUser() {
		conditions = append(conditions, fmt.Sprintf(`payload->'context'->>'user_id' = $%d`, next()))
		args = append(args, q.Context.UserID)
	}
	if q.Context.HasAgent() {
		conditions = append(conditions, fmt.Sprintf(`payload->'context'->>'agent_id' = $%d`, next()))
		args = append(args, q.Context.AgentID)
	}
	if q.Context.HasRun() {
		conditions = append(conditions, fmt.Sprintf(`payload->'context'->>'run_id' = $%d`, next()))
		args = append(args, q.Context.RunID)
	}

	if !q.IncludeArchived {
		conditions = append(conditions, fmt.Sprintf(`payload->>'lifecycle' = $%d`, next()))
		args = append(args, string(domain.LifecycleActive))
	}

	if len(q.Kinds) > 0 {
		kinds := make([]string, len(q.Kinds))
		for i, k := range q.Kinds {
			kinds[i] = string(k)
		}
		conditions = append(conditions, fmt.Sprintf(`payload->>'kind' = ANY($%d::text[])`, next()))
		args = append(args, kinds)
	}

	if len(q.Tags) > 0 {
		conditions = append(conditions, fmt.Sprintf(`payload->'content'->'tags' ?| $%d::text[]`, next()))
		args = append(args, q.Tags)
	}

	if q.Temporal != nil {
		t := q.Temporal
		if t.CreatedAfter != nil {
			conditions = append(conditions, fmt.Sprintf(`(payload->'temporal'->>'created_at')::timestamptz > $%d`, next()))
			args = append(args, t.CreatedAfter.UTC().Format(time.RFC3339Nano))
		}
		if t.CreatedBefore != nil {
			conditions = append(conditions, fmt.Sprintf(`(payload->'temporal'->>'created_at')::timestamptz < $%d`, next()))
			args = append(args, t.CreatedBefore.UTC().Format(time.RFC3339Nano))
		}
		if t.UpdatedAfter != nil {
			conditions = append(conditions, fmt.Sprintf(`(payload->'temporal'->>'updated_at')::timestamptz > $%d`, next()))
			args = append(args, t.UpdatedAfter.UTC().Format(time.RFC3339Nano))
		}
		if t.UpdatedBefore != nil {
			conditions = append(conditions, fmt.Sprintf(`(payload->'temporal'->>'updated_at')::timestamptz < $%d`, next()))
			args = append(args, t.UpdatedBefore.UTC().Format(time.RFC3339Nano))
		}
	}

	if q.Signals != nil {
		if q.Signals.MinCertainty != nil {
			conditions = append(conditions, fmt.Sprintf(`(payload->'signals'->>'certainty')::float8 > $%d`, next()))
			args = append(args, *q.Signals.MinCertainty)
		}
		if q.Signals.MinSalience != nil {
			conditions = append(conditions, fmt.Sprintf(`(payload->'signals'->>'salience')::float8 > $%d`, next()))
			args = append(args, *q.Signals.MinSalience)
		}
	}

	if len(conditions) == 0 {
		return "TRUE", args
	}
	return strings.Join(conditions, " AND "), args
}

func decodePayload(payload []byte) (*domain.Memory, error) {
	var m domain.Memory
	if err := json.Unmarshal(payload, &m); err != nil {
		return nil, fmt.Errorf("decode memory payload: %w", err)
	}
	return &m, nil
}
