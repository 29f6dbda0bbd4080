package document

import (
	"time"

	domdoc "github.com/kailas-cloud/docsig/internal/domain/document"
)

// Metadata hash fields.
const (
	fieldSignature = "signature"
	fieldStoredAt  = "stored_at"
)

func metaToHash(m domdoc.Meta) map[string]string {
	return map[string]string{
		fieldSignature: m.Signature,
		fieldStoredAt:  m.StoredAt.UTC().Format(time.RFC3339Nano),
	}
}

// metaFromHash tolerates a missing or malformed timestamp.
func metaFromHash(id string, h map[string]string) domdoc.Meta {
	m := domdoc.Meta{ID: id, Signature: h[fieldSignature]}
	if ts, err := time.Parse(time.RFC3339Nano, h[fieldStoredAt]); err == nil {
		m.StoredAt = ts
	}
	return m
}

// signatureOf returns the signature field as written by the router, "" if unsigned.
func signatureOf(doc *domdoc.Document, field string) string {
	if s, ok := doc.Value(field).(string); ok {
		return s
	}
	return ""
}
