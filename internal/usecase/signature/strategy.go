package signature

import (
	"sort"

	"github.com/kailas-cloud/docsig/internal/domain/category"
	"github.com/kailas-cloud/docsig/internal/domain/document"
)

// PassthroughAlgorithm names strategies that return a stored field value as is.
const PassthroughAlgorithm = "passthrough"

// Strategy produces the signature for documents of one category.
// Compute never mutates the document.
type Strategy interface {
	Category() category.Category
	Algorithm() string
	// Fields lists the input fields; nil means every document field.
	Fields() []string
	Compute(doc *document.Document) (string, error)
}

// fieldStrategy uses a single stored field as the signature (unique id, content hash).
type fieldStrategy struct {
	category category.Category
	field    string
}

func newFieldStrategy(c category.Category, field string) *fieldStrategy {
	return &fieldStrategy{category: c, field: field}
}

func (s *fieldStrategy) Category() category.Category { return s.category }
func (s *fieldStrategy) Algorithm() string           { return PassthroughAlgorithm }
func (s *fieldStrategy) Fields() []string            { return []string{s.field} }

func (s *fieldStrategy) Compute(doc *document.Document) (string, error) {
	return RequiredSingleValue(doc, s.field)
}

// fingerprintStrategy delegates to a Fingerprinter over a field list.
// With no configured fields it hashes every field except the signature output.
type fingerprintStrategy struct {
	category category.Category
	fields   []string
	exclude  string
	fp       Fingerprinter
}

func newFingerprintStrategy(
	c category.Category, fields []string, exclude string, fp Fingerprinter,
) *fingerprintStrategy {
	var own []string
	if len(fields) > 0 {
		own = append([]string(nil), fields...)
	}
	return &fingerprintStrategy{category: c, fields: own, exclude: exclude, fp: fp}
}

func (s *fingerprintStrategy) Category() category.Category { return s.category }
func (s *fingerprintStrategy) Algorithm() string           { return s.fp.ID() }

func (s *fingerprintStrategy) Fields() []string {
	if s.fields == nil {
		return nil
	}
	return append([]string(nil), s.fields...)
}

func (s *fingerprintStrategy) Compute(doc *document.Document) (string, error) {
	fields := s.fields
	if fields == nil {
		fields = s.allFields(doc)
	}
	return s.fp.Fingerprint(fields, doc), nil
}

func (s *fingerprintStrategy) allFields(doc *document.Document) []string {
	names := doc.FieldNames()
	out := names[:0]
	for _, n := range names {
		if n != s.exclude {
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out
}
