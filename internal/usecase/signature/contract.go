package signature

import (
	"context"
	"time"

	"github.com/kailas-cloud/docsig/internal/domain/category"
	"github.com/kailas-cloud/docsig/internal/domain/document"
)

// Fingerprinter computes a signature over a list of fields (text profile, generic hash).
type Fingerprinter interface {
	ID() string
	Fingerprint(fields []string, doc *document.Document) string
}

// AlgorithmResolver maps a configured algorithm identifier to a Fingerprinter.
type AlgorithmResolver func(id string) (Fingerprinter, error)

// Stage is the next step of the ingestion chain. It receives every document
// exactly once, signed or not.
type Stage interface {
	Handle(ctx context.Context, doc *document.Document) error
}

// StageFunc adapts a function to Stage.
type StageFunc func(ctx context.Context, doc *document.Document) error

// Handle calls f.
func (f StageFunc) Handle(ctx context.Context, doc *document.Document) error { return f(ctx, doc) }

// Recorder observes signing outcomes (metrics).
type Recorder interface {
	ObserveSignature(c category.Category, result Result, elapsed time.Duration)
}
