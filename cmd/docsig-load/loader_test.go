package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/parquet-go/parquet-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	domdoc "github.com/kailas-cloud/docsig/internal/domain/document"
	api "github.com/kailas-cloud/docsig/internal/transport/chi"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

type seen struct {
	id        string
	fileIndex int
	row       int
}

func collect(t *testing.T, r *fileReader, fileIndex, rowOffset, maxRows int) []seen {
	t.Helper()
	var out []seen
	_, err := r.Read(fileIndex, rowOffset, maxRows, func(doc *domdoc.Document, fi, row int) bool {
		out = append(out, seen{id: doc.Identity(), fileIndex: fi, row: row})
		return true
	})
	require.NoError(t, err)
	return out
}

func TestFileReader_JSONLAcrossFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.jsonl", "{\"id\":\"a1\"}\n\n{\"id\":\"a2\"}\n")
	writeFile(t, dir, "b.jsonl", "{\"id\":\"b1\"}\n")
	writeFile(t, dir, "ignored.txt", "{\"id\":\"x\"}\n")

	r, err := newFileReader(dir, zap.NewNop())
	require.NoError(t, err)

	got := collect(t, r, 0, 0, 0)
	assert.Equal(t, []seen{
		{"a1", 0, 0},
		{"a2", 0, 2},
		{"b1", 1, 0},
	}, got)
}

func TestFileReader_ResumeAndLimit(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.jsonl", "{\"id\":\"a1\"}\n{\"id\":\"a2\"}\n{\"id\":\"a3\"}\n")
	writeFile(t, dir, "b.jsonl", "{\"id\":\"b1\"}\n{\"id\":\"b2\"}\n")

	r, err := newFileReader(dir, zap.NewNop())
	require.NoError(t, err)

	got := collect(t, r, 0, 2, 2)
	assert.Equal(t, []seen{{"a3", 0, 2}, {"b1", 1, 0}}, got)
}

func TestFileReader_KeepsFieldOrder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.jsonl", "{\"zeta\":1,\"alpha\":\"x\"}\n")

	r, err := newFileReader(dir, zap.NewNop())
	require.NoError(t, err)

	var names []string
	_, err = r.Read(0, 0, 0, func(doc *domdoc.Document, _, _ int) bool {
		names = doc.FieldNames()
		return true
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"zeta", "alpha"}, names)
}

func TestFileReader_BadLine(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.jsonl", "[1,2]\n")

	r, err := newFileReader(dir, zap.NewNop())
	require.NoError(t, err)

	_, err = r.Read(0, 0, 0, func(*domdoc.Document, int, int) bool { return true })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 1")
}

func TestFileReader_NoFiles(t *testing.T) {
	_, err := newFileReader(t.TempDir(), zap.NewNop())
	require.Error(t, err)
}

type parquetRow struct {
	ID    string   `parquet:"id"`
	Title string   `parquet:"title"`
	Views int64    `parquet:"views"`
	Tags  []string `parquet:"tags"`
}

func TestFileReader_Parquet(t *testing.T) {
	dir := t.TempDir()
	rows := []parquetRow{
		{ID: "p1", Title: "first", Views: 3, Tags: []string{"a", "b"}},
		{ID: "p2", Title: "second", Views: 5},
	}
	require.NoError(t, parquet.WriteFile(filepath.Join(dir, "docs.parquet"), rows))

	r, err := newFileReader(dir, zap.NewNop())
	require.NoError(t, err)

	var docs []*domdoc.Document
	_, err = r.Read(0, 0, 0, func(doc *domdoc.Document, _, _ int) bool {
		docs = append(docs, doc)
		return true
	})
	require.NoError(t, err)
	require.Len(t, docs, 2)

	first := docs[0]
	assert.ElementsMatch(t, []string{"id", "title", "views", "tags"}, first.FieldNames())
	assert.Equal(t, "p1", first.Value("id"))
	assert.Equal(t, int64(3), first.Value("views"))
	assert.Equal(t, []any{"a", "b"}, first.Value("tags"))

	assert.Equal(t, []any{}, docs[1].Value("tags"))

	// Resume inside the file.
	got := collect(t, r, 0, 1, 0)
	assert.Equal(t, []seen{{"p2", 0, 1}}, got)
}

func TestCursorTracker_PersistsAndResumes(t *testing.T) {
	dir := t.TempDir()

	ct, err := newCursorTracker(dir, 2, zap.NewNop())
	require.NoError(t, err)
	ct.SetStage(stageDocuments)
	ct.Advance(0, 5, 2, 0)
	// Out-of-order completion never moves the cursor backwards.
	ct.Advance(0, 3, 1, 1)

	reloaded, err := newCursorTracker(dir, 2, zap.NewNop())
	require.NoError(t, err)
	cur := reloaded.Get()
	assert.Equal(t, stageDocuments, cur.Stage)
	assert.Equal(t, 0, cur.FileIndex)
	assert.Equal(t, 5, cur.RowOffset)
	assert.Equal(t, 3, cur.TotalProcessed)
	assert.Equal(t, 1, cur.TotalFailed)

	reloaded.Reset()
	again, err := newCursorTracker(dir, 2, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, Cursor{}, again.Get())
}

func TestCursorTracker_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "cursor.json", "{")
	_, err := newCursorTracker(dir, 1, zap.NewNop())
	require.Error(t, err)
}

// fakeAPI answers POST /documents/batch; documents without an id are rejected.
type fakeAPI struct {
	mu      sync.Mutex
	batches [][]string
	auth    []string
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/health":
		w.WriteHeader(http.StatusOK)
		return
	case "/documents/batch":
	default:
		http.NotFound(w, r)
		return
	}

	var req api.BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(api.ErrorResponse{Code: api.ErrorResponseCodeBadRequest, Message: err.Error()})
		return
	}

	resp := api.BatchResponse{Items: make([]api.BatchResultItem, len(req.Documents))}
	ids := make([]string, len(req.Documents))
	for i, raw := range req.Documents {
		var doc domdoc.Document
		_ = json.Unmarshal(raw, &doc)
		ids[i] = doc.Identity()
		if ids[i] == "" {
			resp.Items[i] = api.BatchResultItem{
				Status: "error",
				Error:  &api.ErrorResponse{Code: api.ErrorResponseCodeValidationFailed, Message: "no id"},
			}
			resp.Failed++
			continue
		}
		resp.Items[i] = api.BatchResultItem{
			ID:        ids[i],
			Status:    "ok",
			Signature: api.SignatureInfo{Signed: doc.Has("title")},
		}
		resp.Succeeded++
	}

	f.mu.Lock()
	f.batches = append(f.batches, ids)
	f.auth = append(f.auth, r.Header.Get("Authorization"))
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func TestIngester_Run(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.jsonl", strings.Join([]string{
		`{"id":"1","title":"t"}`,
		`{"id":"2","title":"t"}`,
		`{"id":"3"}`,
	}, "\n"))
	writeFile(t, dir, "b.jsonl", `{"title":"anonymous"}`+"\n"+`{"id":"5","title":"t"}`)

	fake := &fakeAPI{}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	reader, err := newFileReader(dir, zap.NewNop())
	require.NoError(t, err)
	cursor, err := newCursorTracker(dir, 100, zap.NewNop())
	require.NoError(t, err)
	metrics := newLoaderMetrics(prometheus.NewRegistry())

	client := newAPIClient(srv.URL+"/", "secret", srv.Client())
	require.NoError(t, client.Health(context.Background()))

	ing := &ingester{
		client:    client,
		workers:   2,
		batchSize: 2,
		metrics:   metrics,
		cursor:    cursor,
		logger:    zap.NewNop(),
	}
	res, err := ing.Run(context.Background(), reader, 0)
	require.NoError(t, err)

	assert.Equal(t, int64(4), res.Processed)
	assert.Equal(t, int64(1), res.Failed)
	assert.Equal(t, int64(1), res.Unsigned)

	// Batches never span files: [1 2] [3] from a, [_ 5] from b.
	assert.Len(t, fake.batches, 3)
	for _, h := range fake.auth {
		assert.Equal(t, "Bearer secret", h)
	}

	cur := cursor.Get()
	assert.Equal(t, 1, cur.FileIndex)
	assert.Equal(t, 2, cur.RowOffset)
	assert.Equal(t, 4, cur.TotalProcessed)
	assert.Equal(t, 1, cur.TotalFailed)

	assert.InDelta(t, 4, testutil.ToFloat64(metrics.docsProcessed), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.docsFailed.WithLabelValues("item_error")), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(metrics.batchesTotal), 0)
}

func TestAPIClient_ErrorResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(api.ErrorResponse{
			Code:    api.ErrorResponseCodeUnauthorized,
			Message: "invalid api key",
		})
	}))
	defer srv.Close()

	client := newAPIClient(srv.URL, "", srv.Client())
	_, err := client.IngestBatch(context.Background(), []*domdoc.Document{domdoc.New()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unauthorized")
	assert.Contains(t, err.Error(), "401")

	require.Error(t, client.Health(context.Background()))
}
