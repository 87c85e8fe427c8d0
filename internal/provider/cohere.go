package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const cohereRerankURL = "https://api.cohere.com/v2/rerank"

// CohereBackend implements reranking against the v2 rerank endpoint.
type CohereBackend struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewCohereBackend(apiKey string) *CohereBackend {
	return &CohereBackend{
		apiKey:     apiKey,
		baseURL:    cohereRerankURL,
		httpClient: &http.Client{},
	}
}

func (b *CohereBackend) Name() string { return "cohere" }

type cohereRerankRequest struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	TopN      int      `json:"top_n,omitempty"`
}

type cohereRerankResponse struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"results"`
	Message string `json:"message,omitempty"`
}

func (b *CohereBackend) RerankDocuments(ctx context.Context, model, query string, documents []string, topN int) ([]RankedIndex, error) {
	body, err := json.Marshal(cohereRerankRequest{
		Model:     model,
		Query:     query,
		Documents: documents,
		TopN:      topN,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal rerank request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+b.apiKey)

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Provider: b.Name(), Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Provider: b.Name(), Cause: fmt.Errorf("read rerank response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &TransportError{
			Provider: b.Name(),
			Status:   resp.StatusCode,
			Cause:    fmt.Errorf("rerank API: %s", string(respBody)),
		}
	}

	var result cohereRerankResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, &InvalidResponseError{Provider: b.Name(), Reason: fmt.Sprintf("unmarshal rerank response: %v", err)}
	}
	if result.Message != "" {
		return nil, &InvalidResponseError{Provider: b.Name(), Reason: result.Message}
	}
	if len(result.Results) == 0 {
		return nil, ErrEmptyResponse
	}

	ranked := make([]RankedIndex, len(result.Results))
	for i, r := range result.Results {
		ranked[i] = RankedIndex{Index: r.Index, Score: r.RelevanceScore}
	}
	return ranked, nil
}
