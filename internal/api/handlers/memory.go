package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mnemo-ai/mnemo/internal/domain"
	"github.com/mnemo-ai/mnemo/internal/service"
)

const defaultListLimit = 20

var (
	errSignalsPair        = errors.New("certainty and salience must be provided together")
	errInvalidLimitParam  = errors.New("limit must be an unsigned integer")
	errInvalidTimeParam   = errors.New("time parameters must be RFC 3339 timestamps")
	errInvalidSignalParam = errors.New("signal minimums must be numbers")
)

type MemoryHandler struct {
	svc *service.MemoryService
}

func NewMemoryHandler(svc *service.MemoryService) *MemoryHandler {
	return &MemoryHandler{svc: svc}
}

type createMemoryRequest struct {
	UserID    string   `json:"user_id,omitempty"`
	AgentID   string   `json:"agent_id,omitempty"`
	RunID     string   `json:"run_id,omitempty"`
	Content   string   `json:"content"`
	Certainty *float32 `json:"certainty,omitempty"`
	Salience  *float32 `json:"salience,omitempty"`
}

func buildSignals(certainty, salience *float32) (*domain.MemorySignals, error) {
	if certainty == nil && salience == nil {
		return nil, nil
	}
	if certainty == nil || salience == nil {
		return nil, errSignalsPair
	}
	c, err := domain.NewCredence(*certainty)
	if err != nil {
		return nil, err
	}
	s, err := domain.NewCredence(*salience)
	if err != nil {
		return nil, err
	}
	signals, err := domain.NewSignals(c, s)
	if err != nil {
		return nil, err
	}
	return &signals, nil
}

func (h *MemoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createMemoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	signals, err := buildSignals(req.Certainty, req.Salience)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	memory, err := h.svc.Create(r.Context(), service.CreateRequest{
		Context: domain.MemoryContext{
			UserID:  req.UserID,
			AgentID: req.AgentID,
			RunID:   req.RunID,
		},
		RawContent: req.Content,
		Signals:    signals,
	})
	if err != nil {
		writeServiceError(w, err, "failed to create memory")
		return
	}

	writeJSON(w, http.StatusCreated, memory)
}

func (h *MemoryHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid memory id")
		return
	}

	memory, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, "failed to get memory")
		return
	}

	writeJSON(w, http.StatusOK, memory)
}

type updateMemoryRequest struct {
	Summary   *string  `json:"summary,omitempty"`
	Tags      []string `json:"tags,omitempty"`
	Certainty *float32 `json:"certainty,omitempty"`
	Salience  *float32 `json:"salience,omitempty"`
	Archive   bool     `json:"archive,omitempty"`
}

func (h *MemoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid memory id")
		return
	}

	var req updateMemoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	signals, err := buildSignals(req.Certainty, req.Salience)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	memory, err := h.svc.Update(r.Context(), id, service.UpdatePatch{
		Summary: req.Summary,
		Tags:    req.Tags,
		Signals: signals,
		Archive: req.Archive,
	})
	if err != nil {
		writeServiceError(w, err, "failed to update memory")
		return
	}

	writeJSON(w, http.StatusOK, memory)
}

func (h *MemoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid memory id")
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		writeServiceError(w, err, "failed to delete memory")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type listMemoriesResponse struct {
	Memories []*domain.Memory `json:"memories"`
	Count    int              `json:"count"`
}

func (h *MemoryHandler) List(w http.ResponseWriter, r *http.Request) {
	query, err := queryFromParams(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	memories, err := h.svc.List(r.Context(), query)
	if err != nil {
		writeServiceError(w, err, "failed to list memories")
		return
	}

	writeJSON(w, http.StatusOK, listMemoriesResponse{
		Memories: memories,
		Count:    len(memories),
	})
}

type searchMemoriesRequest struct {
	UserID  string `json:"user_id,omitempty"`
	AgentID string `json:"agent_id,omitempty"`
	RunID   string `json:"run_id,omitempty"`
	Query   string `json:"query"`
	Refine  bool   `json:"refine,omitempty"`
}

type searchMemoriesResponse struct {
	Memories []*domain.Memory `json:"memories"`
	Query    string           `json:"query"`
	Count    int              `json:"count"`
}

func (h *MemoryHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req searchMemoriesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	memCtx := domain.MemoryContext{
		UserID:  req.UserID,
		AgentID: req.AgentID,
		RunID:   req.RunID,
	}

	search := h.svc.Search
	if req.Refine {
		search = h.svc.MultiSearch
	}

	memories, err := search(r.Context(), memCtx, req.Query)
	if err != nil {
		writeServiceError(w, err, "failed to search memories")
		return
	}

	writeJSON(w, http.StatusOK, searchMemoriesResponse{
		Memories: memories,
		Query:    req.Query,
		Count:    len(memories),
	})
}

// queryFromParams builds a metadata scan query from list query parameters.
// Kinds and tags are comma separated, timestamps are RFC 3339.
func queryFromParams(params map[string][]string) (domain.Query, error) {
	get := func(key string) string {
		if vs := params[key]; len(vs) > 0 {
			return vs[0]
		}
		return ""
	}

	query := domain.Query{
		Context: domain.MemoryContext{
			UserID:  get("user_id"),
			AgentID: get("agent_id"),
			RunID:   get("run_id"),
		},
		Limit: defaultListLimit,
	}

	if limitStr := get("limit"); limitStr != "" {
		limit, err := strconv.ParseUint(limitStr, 10, 32)
		if err != nil {
			return domain.Query{}, errInvalidLimitParam
		}
		query.Limit = uint32(limit)
	}

	if get("include_archived") == "true" {
		query.IncludeArchived = true
	}

	for _, raw := range splitParam(get("kinds")) {
		kind, err := domain.ParseKind(raw)
		if err != nil {
			return domain.Query{}, err
		}
		query.Kinds = append(query.Kinds, kind)
	}
	query.Tags = splitParam(get("tags"))

	temporal, err := temporalFromParams(get)
	if err != nil {
		return domain.Query{}, err
	}
	query.Temporal = temporal

	signals, err := signalsFromParams(get)
	if err != nil {
		return domain.Query{}, err
	}
	query.Signals = signals

	return query, nil
}

func splitParam(raw string) []string {
	if raw == "" {
		return nil
	}
	var parts []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

func temporalFromParams(get func(string) string) (*domain.TemporalFilter, error) {
	parse := func(key string) (*time.Time, error) {
		raw := get(key)
		if raw == "" {
			return nil, nil
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, errInvalidTimeParam
		}
		return &t, nil
	}

	createdAfter, err := parse("created_after")
	if err != nil {
		return nil, err
	}
	createdBefore, err := parse("created_before")
	if err != nil {
		return nil, err
	}
	updatedAfter, err := parse("updated_after")
	if err != nil {
		return nil, err
	}
	updatedBefore, err := parse("updated_before")
	if err != nil {
		return nil, err
	}

	if createdAfter == nil && createdBefore == nil && updatedAfter == nil && updatedBefore == nil {
		return nil, nil
	}
	return domain.NewTemporalFilter(createdAfter, createdBefore, updatedAfter, updatedBefore)
}

func signalsFromParams(get func(string) string) (*domain.SignalFilter, error) {
	parse := func(key string) (*float32, error) {
		raw := get(key)
		if raw == "" {
			return nil, nil
		}
		v, err := strconv.ParseFloat(raw, 32)
		if err != nil {
			return nil, errInvalidSignalParam
		}
		f := float32(v)
		return &f, nil
	}

	minCertainty, err := parse("min_certainty")
	if err != nil {
		return nil, err
	}
	minSalience, err := parse("min_salience")
	if err != nil {
		return nil, err
	}

	if minCertainty == nil && minSalience == nil {
		return nil, nil
	}
	return domain.NewSignalFilter(minCertainty, minSalience)
}
