package ingest

import (
	"context"

	domdoc "github.com/kailas-cloud/docsig/internal/domain/document"
	"github.com/kailas-cloud/docsig/internal/usecase/signature"
)

// Router signs documents before handing them on.
type Router interface {
	Process(ctx context.Context, doc *domdoc.Document, next signature.Stage) (signature.Outcome, error)
	Sign(doc *domdoc.Document) signature.Outcome
}

// Repository persists signed documents.
type Repository interface {
	Save(ctx context.Context, doc *domdoc.Document) (string, error)
	Get(ctx context.Context, id string) (*domdoc.Document, error)
	Meta(ctx context.Context, id string) (domdoc.Meta, error)
	Delete(ctx context.Context, id string) error
	BySignature(ctx context.Context, signature string) ([]string, error)
}
