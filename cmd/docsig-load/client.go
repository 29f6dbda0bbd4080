package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	domdoc "github.com/kailas-cloud/docsig/internal/domain/document"
	api "github.com/kailas-cloud/docsig/internal/transport/chi"
)

// apiClient posts document batches to a docsig server.
type apiClient struct {
	base   string
	apiKey string
	http   *http.Client
}

func newAPIClient(base, apiKey string, hc *http.Client) *apiClient {
	return &apiClient{base: strings.TrimRight(base, "/"), apiKey: apiKey, http: hc}
}

// Health checks that the server answers GET /health with 200.
func (c *apiClient) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/health", http.NoBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("health: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health: status %d", resp.StatusCode)
	}
	return nil
}

// IngestBatch sends documents to POST /documents/batch.
func (c *apiClient) IngestBatch(ctx context.Context, docs []*domdoc.Document) (api.BatchResponse, error) {
	body := api.BatchRequest{Documents: make([]json.RawMessage, len(docs))}
	for i, doc := range docs {
		raw, err := json.Marshal(doc)
		if err != nil {
			return api.BatchResponse{}, fmt.Errorf("encode document %d: %w", i, err)
		}
		body.Documents[i] = raw
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return api.BatchResponse{}, fmt.Errorf("encode batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/documents/batch", bytes.NewReader(payload))
	if err != nil {
		return api.BatchResponse{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return api.BatchResponse{}, fmt.Errorf("post batch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return api.BatchResponse{}, decodeAPIError(resp)
	}

	var out api.BatchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return api.BatchResponse{}, fmt.Errorf("decode batch response: %w", err)
	}
	return out, nil
}

func decodeAPIError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var e api.ErrorResponse
	if err := json.Unmarshal(data, &e); err == nil && e.Code != "" {
		return fmt.Errorf("api error %d (%s): %s", resp.StatusCode, e.Code, e.Message)
	}
	return fmt.Errorf("api error %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
}
