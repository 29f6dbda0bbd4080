package ingest

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/docsig/internal/domain"
	dombatch "github.com/kailas-cloud/docsig/internal/domain/batch"
	domdoc "github.com/kailas-cloud/docsig/internal/domain/document"
	"github.com/kailas-cloud/docsig/internal/logger"
	"github.com/kailas-cloud/docsig/internal/usecase/signature"
)

// Defaults for batch ingestion.
const (
	DefaultConcurrency  = 8
	DefaultMaxBatchSize = 100
)

// Service runs documents through the signature router into the repository.
type Service struct {
	router       Router
	repo         Repository
	concurrency  int
	maxBatchSize int
}

// New creates an ingest service.
func New(router Router, repo Repository) *Service {
	return &Service{
		router:       router,
		repo:         repo,
		concurrency:  DefaultConcurrency,
		maxBatchSize: DefaultMaxBatchSize,
	}
}

// WithConcurrency bounds how many batch items are processed at once.
func (s *Service) WithConcurrency(n int) *Service {
	if n > 0 {
		s.concurrency = n
	}
	return s
}

// WithMaxBatchSize configures the maximum batch size.
func (s *Service) WithMaxBatchSize(size int) *Service {
	if size > 0 {
		s.maxBatchSize = size
	}
	return s
}

// MaxBatchSize returns the configured batch limit.
func (s *Service) MaxBatchSize() int { return s.maxBatchSize }

// Ingest signs and stores one document. A signing failure leaves the document
// unsigned but stored; only a storage failure produces an error result.
func (s *Service) Ingest(ctx context.Context, doc *domdoc.Document) dombatch.Result {
	var id string
	save := signature.StageFunc(func(ctx context.Context, d *domdoc.Document) error {
		var err error
		id, err = s.repo.Save(ctx, d)
		return err
	})

	out, err := s.router.Process(ctx, doc, save)
	signing := signingOf(out)
	if err != nil {
		logger.FromContext(ctx).Warn("Failed to store document",
			zap.String("doc", doc.DebugID()),
			zap.Error(err),
		)
		return dombatch.NewError(doc.Identity(), signing, fmt.Errorf("store: %w", err))
	}
	return dombatch.NewOK(id, signing)
}

// IngestBatch ingests documents concurrently. Results keep input order and
// one item's failure never affects another.
func (s *Service) IngestBatch(ctx context.Context, docs []*domdoc.Document) ([]dombatch.Result, error) {
	if len(docs) > s.maxBatchSize {
		return nil, fmt.Errorf("batch size %d exceeds %d: %w", len(docs), s.maxBatchSize, domain.ErrInvalidDocument)
	}

	results := make([]dombatch.Result, len(docs))
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, doc := range docs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = dombatch.NewError(doc.Identity(), dombatch.Signing{}, err)
				return nil
			}
			results[i] = s.Ingest(ctx, doc)
			return nil
		})
	}
	_ = g.Wait() // items report their own errors

	return results, nil
}

// Preview signs the document without storing it.
func (s *Service) Preview(doc *domdoc.Document) signature.Outcome {
	return s.router.Sign(doc)
}

// Get returns a stored document with its metadata.
func (s *Service) Get(ctx context.Context, id string) (*domdoc.Document, domdoc.Meta, error) {
	doc, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, domdoc.Meta{}, fmt.Errorf("get document %s: %w", id, err)
	}
	meta, err := s.repo.Meta(ctx, id)
	if err != nil {
		return nil, domdoc.Meta{}, fmt.Errorf("get meta %s: %w", id, err)
	}
	return doc, meta, nil
}

// Delete removes a stored document.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	return nil
}

// BySignature lists the ids of stored documents sharing a signature.
func (s *Service) BySignature(ctx context.Context, sig string) ([]string, error) {
	ids, err := s.repo.BySignature(ctx, sig)
	if err != nil {
		return nil, fmt.Errorf("lookup signature: %w", err)
	}
	return ids, nil
}

func signingOf(out signature.Outcome) dombatch.Signing {
	return dombatch.Signing{Category: out.Category, Signature: out.Signature, Err: out.Err}
}
