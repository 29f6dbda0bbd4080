package signature

import (
	"strings"

	"github.com/kailas-cloud/docsig/internal/domain/category"
	"github.com/kailas-cloud/docsig/internal/domain/document"
)

// Classifier assigns a document to exactly one category.
type Classifier struct {
	UniqueIDField    string
	TextField        string
	ContentHashField string
}

// NewClassifier creates a Classifier from settings.
func NewClassifier(s Settings) Classifier {
	return Classifier{
		UniqueIDField:    s.UniqueIDField,
		TextField:        s.TextField,
		ContentHashField: s.ContentHashField,
	}
}

// Classify checks, in order: unique id, usable text, content hash. First match wins.
// The document is not modified.
func (c Classifier) Classify(doc *document.Document) category.Category {
	if doc.Has(c.UniqueIDField) {
		return category.UniqueKeyed
	}
	if c.HasUsableText(doc) {
		return category.TextBearing
	}
	if doc.Has(c.ContentHashField) {
		return category.ContentHashed
	}
	return category.Generic
}

// HasUsableText reports whether the text field holds at least one non-blank value.
// Empty and all-blank sequences do not count.
func (c Classifier) HasUsableText(doc *document.Document) bool {
	v := doc.Value(c.TextField)
	if v == nil {
		return false
	}
	if vs, multi := document.Values(v); multi {
		for _, e := range vs {
			if e != nil && !isBlank(document.Stringify(e)) {
				return true
			}
		}
		return false
	}
	return !isBlank(document.Stringify(v))
}

func isBlank(s string) bool { return strings.TrimSpace(s) == "" }
