// Package fingerprint holds the signature algorithms a strategy can be configured with.
// Each algorithm turns a list of field names and a document into a hex string.
package fingerprint

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kailas-cloud/docsig/internal/domain"
	"github.com/kailas-cloud/docsig/internal/domain/document"
)

// Algorithm identifiers accepted in configuration.
const (
	TextProfileID = "text_profile"
	XXHash64ID    = "xxhash64"
	MD5ID         = "md5"
)

// Algorithm computes a signature over the named fields of a document.
// Implementations are stateless and safe for concurrent use.
type Algorithm interface {
	ID() string
	Fingerprint(fields []string, doc *document.Document) string
}

// Options tunes algorithms that take parameters. Zero values mean defaults.
type Options struct {
	// QuantRate is the text profile frequency quantization rate (default 0.01).
	QuantRate float64
	// MinTokenLen is the text profile token length a token must exceed (default 2).
	MinTokenLen int
}

// DefaultOptions returns the text profile defaults.
func DefaultOptions() Options {
	return Options{QuantRate: 0.01, MinTokenLen: 2}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.QuantRate == 0 {
		o.QuantRate = d.QuantRate
	}
	if o.MinTokenLen == 0 {
		o.MinTokenLen = d.MinTokenLen
	}
	return o
}

type factory func(Options) (Algorithm, error)

// factories is the explicit algorithm table. No reflection, no init registration.
var factories = map[string]factory{
	TextProfileID: func(o Options) (Algorithm, error) { return NewTextProfile(o) },
	XXHash64ID:    func(Options) (Algorithm, error) { return NewXXHash64(), nil },
	MD5ID:         func(Options) (Algorithm, error) { return NewMD5(), nil },
}

// New resolves an algorithm by identifier.
// Unknown identifiers and invalid options wrap domain.ErrConfiguration.
func New(id string, opts Options) (Algorithm, error) {
	f, ok := factories[strings.TrimSpace(id)]
	if !ok {
		return nil, fmt.Errorf(
			"%w: unknown signature algorithm %q (known: %s)",
			domain.ErrConfiguration, id, strings.Join(IDs(), ", "),
		)
	}
	alg, err := f(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: algorithm %s: %w", domain.ErrConfiguration, id, err)
	}
	return alg, nil
}

// IDs returns the known algorithm identifiers, sorted.
func IDs() []string {
	ids := make([]string, 0, len(factories))
	for id := range factories {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// fieldParts calls emit with each present field name followed by its values.
// Sequence elements are emitted one by one; null values and elements are skipped.
func fieldParts(fields []string, doc *document.Document, emit func(string)) {
	for _, name := range fields {
		v, ok := doc.Get(name)
		if !ok {
			continue
		}
		emit(name)
		if vs, multi := document.Values(v); multi {
			for _, e := range vs {
				if e != nil {
					emit(document.Stringify(e))
				}
			}
			continue
		}
		if v != nil {
			emit(document.Stringify(v))
		}
	}
}
