package chi

import (
	"bytes"
	"encoding/json"
	"io"
	"time"

	dombatch "github.com/kailas-cloud/docsig/internal/domain/batch"
	domdoc "github.com/kailas-cloud/docsig/internal/domain/document"
	"github.com/kailas-cloud/docsig/internal/usecase/signature"
)

// ErrorResponseCode is a machine readable error code.
type ErrorResponseCode string

// Error codes returned by the API.
const (
	ErrorResponseCodeBadRequest       ErrorResponseCode = "bad_request"
	ErrorResponseCodeValidationFailed ErrorResponseCode = "validation_failed"
	ErrorResponseCodeDocumentNotFound ErrorResponseCode = "document_not_found"
	ErrorResponseCodeUnauthorized     ErrorResponseCode = "unauthorized"
	ErrorResponseCodeInternalError    ErrorResponseCode = "internal_error"
)

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Code    ErrorResponseCode `json:"code"`
	Message string            `json:"message"`
}

// SignatureInfo describes how a document was signed.
type SignatureInfo struct {
	Category  string `json:"category,omitempty"`
	Algorithm string `json:"algorithm,omitempty"`
	Value     string `json:"value,omitempty"`
	Signed    bool   `json:"signed"`
	Result    string `json:"result,omitempty"`
	Error     string `json:"error,omitempty"`
}

// IngestResponse is returned for a stored document.
type IngestResponse struct {
	ID        string        `json:"id"`
	Signature SignatureInfo `json:"signature"`
}

// BatchRequest is the body of POST /documents/batch.
type BatchRequest struct {
	Documents []json.RawMessage `json:"documents"`
}

// BatchResultItem is the per-document outcome of a batch.
type BatchResultItem struct {
	ID        string         `json:"id,omitempty"`
	Status    string         `json:"status"`
	Signature SignatureInfo  `json:"signature"`
	Error     *ErrorResponse `json:"error,omitempty"`
}

// BatchResponse is the body returned by POST /documents/batch.
type BatchResponse struct {
	Items     []BatchResultItem `json:"items"`
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
}

// PreviewResponse is the body returned by POST /signatures/preview.
type PreviewResponse struct {
	Signature SignatureInfo    `json:"signature"`
	Document  *domdoc.Document `json:"document"`
}

// DocumentResponse is the body returned by GET /documents/{id}.
type DocumentResponse struct {
	ID        string           `json:"id"`
	Signature string           `json:"signature,omitempty"`
	StoredAt  *time.Time       `json:"stored_at,omitempty"`
	Document  *domdoc.Document `json:"document"`
}

// SignatureDocumentsResponse is the body returned by GET /signatures/{signature}/documents.
type SignatureDocumentsResponse struct {
	Signature string   `json:"signature"`
	IDs       []string `json:"ids"`
}

// HealthResponse is the body returned by GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func outcomeToInfo(o signature.Outcome) SignatureInfo {
	info := SignatureInfo{
		Category:  o.Category.String(),
		Algorithm: o.Algorithm,
		Value:     o.Signature,
		Signed:    o.Signed(),
		Result:    string(o.Result),
	}
	if o.Err != nil {
		info.Error = o.Err.Error()
	}
	return info
}

func signingToInfo(s dombatch.Signing) SignatureInfo {
	info := SignatureInfo{
		Category: s.Category.String(),
		Value:    s.Signature,
		Signed:   s.Signed(),
	}
	if s.Err != nil {
		info.Error = s.Err.Error()
	}
	return info
}

func metaToResponse(doc *domdoc.Document, meta domdoc.Meta) DocumentResponse {
	resp := DocumentResponse{ID: meta.ID, Signature: meta.Signature, Document: doc}
	if !meta.StoredAt.IsZero() {
		ts := meta.StoredAt
		resp.StoredAt = &ts
	}
	return resp
}

func bytesReader(raw json.RawMessage) io.Reader { return bytes.NewReader(raw) }
