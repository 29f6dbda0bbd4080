package signature

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kailas-cloud/docsig/internal/domain/category"
	"github.com/kailas-cloud/docsig/internal/domain/document"
)

// Result is the signing outcome label.
type Result string

// Signing outcomes.
const (
	ResultSigned  Result = "signed"
	ResultFailed  Result = "failed"
	ResultSkipped Result = "skipped"
)

var (
	errNoStrategy     = errors.New("no signature strategy for category")
	errStrategyPanic  = errors.New("signature strategy panicked")
	errEmptySignature = errors.New("signature strategy returned an empty signature")
)

// Outcome describes what happened to one document.
type Outcome struct {
	Category  category.Category
	Algorithm string
	Signature string
	Result    Result
	// Err is the absorbed strategy failure when Result is ResultFailed.
	Err error
}

// Signed reports whether the signature field was written.
func (o Outcome) Signed() bool { return o.Result == ResultSigned }

// Router is the per-document entry point: classify, look up, compute, write.
// It holds no mutable state and is safe for concurrent use.
type Router struct {
	enabled    bool
	field      string
	classifier Classifier
	registry   *Registry
	recorder   Recorder
	logger     *zap.Logger
}

// NewRouter creates a router over an initialized registry.
func NewRouter(s Settings, registry *Registry, logger *zap.Logger) *Router {
	return &Router{
		enabled:    s.Enabled,
		field:      s.SignatureField,
		classifier: NewClassifier(s),
		registry:   registry,
		logger:     logger,
	}
}

// WithRecorder attaches a metrics recorder.
func (r *Router) WithRecorder(rec Recorder) *Router {
	r.recorder = rec
	return r
}

// Enabled reports whether signing is switched on.
func (r *Router) Enabled() bool { return r.enabled }

// SignatureField returns the output field name.
func (r *Router) SignatureField() string { return r.field }

// Process signs the document and hands it to next exactly once.
// Signing failures are logged and absorbed; only next's error is returned.
func (r *Router) Process(ctx context.Context, doc *document.Document, next Stage) (Outcome, error) {
	out := r.Sign(doc)
	if err := next.Handle(ctx, doc); err != nil {
		return out, fmt.Errorf("next stage: %w", err)
	}
	return out, nil
}

// Sign classifies the document and writes its signature into the signature field.
// On failure the document is left untouched and the error is reported in the Outcome.
// An empty signature, such as a blank unique id, is a failure and is never written.
func (r *Router) Sign(doc *document.Document) Outcome {
	if !r.enabled {
		r.observe("", ResultSkipped, 0)
		return Outcome{Result: ResultSkipped}
	}

	start := time.Now()
	c := r.classifier.Classify(doc)
	out := Outcome{Category: c}

	st := r.registry.Lookup(c)
	if st == nil {
		return r.fail(doc, out, fmt.Errorf("%w %q", errNoStrategy, c), start)
	}
	out.Algorithm = st.Algorithm()

	if ce := r.logger.Check(zapcore.DebugLevel, "Using signature strategy"); ce != nil {
		ce.Write(
			zap.String("category", c.String()),
			zap.String("algorithm", out.Algorithm),
			zap.String("doc", doc.DebugID()),
		)
	}

	sig, err := compute(st, doc)
	if err == nil && sig == "" {
		err = errEmptySignature
	}
	if err != nil {
		return r.fail(doc, out, err, start)
	}

	doc.SetField(r.field, sig)
	out.Signature = sig
	out.Result = ResultSigned
	r.observe(c, ResultSigned, time.Since(start))

	if ce := r.logger.Check(zapcore.DebugLevel, "Set document signature"); ce != nil {
		ce.Write(
			zap.String("category", c.String()),
			zap.String("field", r.field),
			zap.String("signature", sig),
		)
	}
	return out
}

func (r *Router) fail(doc *document.Document, out Outcome, err error, start time.Time) Outcome {
	out.Result = ResultFailed
	out.Err = err
	r.observe(out.Category, ResultFailed, time.Since(start))
	r.logger.Error("Failed to set document signature",
		zap.String("doc", doc.DebugID()),
		zap.String("category", out.Category.String()),
		zap.String("algorithm", out.Algorithm),
		zap.Error(err),
	)
	return out
}

func (r *Router) observe(c category.Category, res Result, elapsed time.Duration) {
	if r.recorder != nil {
		r.recorder.ObserveSignature(c, res, elapsed)
	}
}

// compute runs a strategy, turning a panic from a pluggable algorithm into an error.
func compute(st Strategy, doc *document.Document) (sig string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: %v", errStrategyPanic, rec)
		}
	}()
	return st.Compute(doc)
}
