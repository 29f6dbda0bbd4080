package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	gochi "github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docsig/internal/domain"
	dombatch "github.com/kailas-cloud/docsig/internal/domain/batch"
	domdoc "github.com/kailas-cloud/docsig/internal/domain/document"
	"github.com/kailas-cloud/docsig/internal/logger"
	healthuc "github.com/kailas-cloud/docsig/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/docsig/internal/usecase/ingest"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 16 << 20

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server serves the document signing API.
type Server struct {
	ingest        *ingestuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(ingest *ingestuc.Service, health *healthuc.Service, logger *zap.Logger) *Server {
	s := &Server{ingest: ingest, health: health, logger: logger}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrDocumentNotFound, http.StatusNotFound, ErrorResponseCodeDocumentNotFound),
		sentinelHandler(domain.ErrInvalidDocument, http.StatusBadRequest, ErrorResponseCodeValidationFailed),
	}
	return s
}

// Routes mounts the API on r.
func (s *Server) Routes(r gochi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/documents", s.IngestDocument)
	r.Post("/documents/batch", s.IngestBatch)
	r.Get("/documents/{id}", s.GetDocument)
	r.Delete("/documents/{id}", s.DeleteDocument)

	r.Post("/signatures/preview", s.PreviewSignature)
	r.Get("/signatures/{signature}/documents", s.DocumentsBySignature)
}

// IngestDocument handles POST /documents.
func (s *Server) IngestDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := decodeDocument(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, err.Error())
		return
	}

	res := s.ingest.Ingest(r.Context(), doc)
	if res.Status() == dombatch.StatusError {
		s.handleDomainError(w, r, res.Err())
		return
	}

	writeJSON(w, http.StatusCreated, IngestResponse{ID: res.ID(), Signature: signingToInfo(res.Signing())})
}

// IngestBatch handles POST /documents/batch. Every item gets its own result.
func (s *Server) IngestBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if len(req.Documents) == 0 {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeValidationFailed, "documents must not be empty")
		return
	}
	if n, limit := len(req.Documents), s.ingest.MaxBatchSize(); n > limit {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeValidationFailed,
			fmt.Sprintf("batch size %d exceeds %d", n, limit))
		return
	}

	items := make([]BatchResultItem, len(req.Documents))
	docs := make([]*domdoc.Document, 0, len(req.Documents))
	pos := make([]int, 0, len(req.Documents))
	for i, raw := range req.Documents {
		doc, err := decodeDocument(bytesReader(raw))
		if err != nil {
			items[i] = BatchResultItem{
				Status: string(dombatch.StatusError),
				Error:  &ErrorResponse{Code: ErrorResponseCodeValidationFailed, Message: err.Error()},
			}
			continue
		}
		docs = append(docs, doc)
		pos = append(pos, i)
	}

	results, err := s.ingest.IngestBatch(r.Context(), docs)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	for j, res := range results {
		items[pos[j]] = s.batchResultToItem(r, res)
	}

	resp := BatchResponse{Items: items}
	for _, it := range items {
		if it.Status == string(dombatch.StatusOK) {
			resp.Succeeded++
		} else {
			resp.Failed++
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetDocument handles GET /documents/{id}.
func (s *Server) GetDocument(w http.ResponseWriter, r *http.Request) {
	doc, meta, err := s.ingest.Get(r.Context(), gochi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, metaToResponse(doc, meta))
}

// DeleteDocument handles DELETE /documents/{id}.
func (s *Server) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := s.ingest.Delete(r.Context(), gochi.URLParam(r, "id")); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PreviewSignature handles POST /signatures/preview. Nothing is stored.
func (s *Server) PreviewSignature(w http.ResponseWriter, r *http.Request) {
	doc, err := decodeDocument(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, err.Error())
		return
	}

	out := s.ingest.Preview(doc)
	writeJSON(w, http.StatusOK, PreviewResponse{Signature: outcomeToInfo(out), Document: doc})
}

// DocumentsBySignature handles GET /signatures/{signature}/documents.
func (s *Server) DocumentsBySignature(w http.ResponseWriter, r *http.Request) {
	sig := gochi.URLParam(r, "signature")
	ids, err := s.ingest.BySignature(r.Context(), sig)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, SignatureDocumentsResponse{Signature: sig, IDs: ids})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, HealthResponse{Status: string(report.Status), Checks: checks})
}

func (s *Server) batchResultToItem(r *http.Request, res dombatch.Result) BatchResultItem {
	item := BatchResultItem{
		ID:        res.ID(),
		Status:    string(res.Status()),
		Signature: signingToInfo(res.Signing()),
	}
	if err := res.Err(); err != nil {
		item.Error = &ErrorResponse{Code: errorCode(err), Message: safeDomainMessage(err)}
		s.log(r).Warn("Batch item failed", zap.String("id", res.ID()), zap.Error(err))
	}
	return item
}

func decodeDocument(body io.Reader) (*domdoc.Document, error) {
	doc := domdoc.New()
	if err := json.NewDecoder(body).Decode(doc); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidDocument, err)
	}
	return doc, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorResponseCode, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	for _, s := range []error{domain.ErrDocumentNotFound, domain.ErrInvalidDocument} {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

func errorCode(err error) ErrorResponseCode {
	switch {
	case errors.Is(err, domain.ErrDocumentNotFound):
		return ErrorResponseCodeDocumentNotFound
	case errors.Is(err, domain.ErrInvalidDocument):
		return ErrorResponseCodeValidationFailed
	default:
		return ErrorResponseCodeInternalError
	}
}

func sentinelHandler(sentinel error, status int, code ErrorResponseCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			s.log(r).Debug("domain error", zap.Error(err))
			return
		}
	}
	s.log(r).Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorResponseCodeInternalError, "internal error")
}

// log prefers the request scoped logger.
func (s *Server) log(r *http.Request) *zap.Logger {
	if l := logger.FromContext(r.Context()); l.Core().Enabled(zap.FatalLevel) {
		return l
	}
	return s.logger
}
