package signature

import (
	"github.com/kailas-cloud/docsig/internal/domain"
	"github.com/kailas-cloud/docsig/internal/domain/document"
)

// RequiredSingleValue returns the string form of a field that must hold exactly one value.
// Absent or null fields fail with domain.ErrMissingField; sequences, even of length one,
// fail with domain.ErrMultiValuedField.
func RequiredSingleValue(doc *document.Document, field string) (string, error) {
	v, ok := doc.Get(field)
	if !ok || v == nil {
		return "", domain.NewMissingField(field)
	}
	if _, multi := document.Values(v); multi {
		return "", domain.NewMultiValuedField(field)
	}
	return document.Stringify(v), nil
}
