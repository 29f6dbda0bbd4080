package signature

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kailas-cloud/docsig/internal/domain"
	"github.com/kailas-cloud/docsig/internal/domain/category"
	"github.com/kailas-cloud/docsig/internal/domain/document"
)

// captureStage records every document it receives.
type captureStage struct {
	mu   sync.Mutex
	docs []*document.Document
	err  error
}

func (s *captureStage) Handle(_ context.Context, doc *document.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = append(s.docs, doc)
	return s.err
}

func (s *captureStage) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.docs)
}

func TestProcess_UniqueKeyed(t *testing.T) {
	r := newTestRouter(t, DefaultSettings(), fingerprintResolver)
	d := doc(map[string]any{"id_unique": "abc-123", "text": "hello world"})
	next := &captureStage{}

	out, err := r.Process(context.Background(), d, next)
	require.NoError(t, err)

	assert.Equal(t, category.UniqueKeyed, out.Category)
	assert.True(t, out.Signed())
	assert.Equal(t, "abc-123", d.Value("__signature"))
	require.Equal(t, 1, next.count())
	assert.Same(t, d, next.docs[0])
}

func TestProcess_TextBearing(t *testing.T) {
	fp := &mockFingerprinter{id: "text_profile", sig: "T1"}
	r := newTestRouter(t, DefaultSettings(), staticResolver(fp))
	d := doc(map[string]any{"text": []any{"", "hello world"}, "title": "Greeting"})

	out, err := r.Process(context.Background(), d, &captureStage{})
	require.NoError(t, err)

	assert.Equal(t, category.TextBearing, out.Category)
	assert.Equal(t, "text_profile", out.Algorithm)
	assert.Equal(t, "T1", d.Value("__signature"))
	assert.Equal(t, []string{"title", "text"}, fp.lastCall())
}

func TestProcess_ContentHashedWhenTextBlank(t *testing.T) {
	r := newTestRouter(t, DefaultSettings(), fingerprintResolver)
	d := doc(map[string]any{"text": "   ", "content_hash": "deadbeef"})

	out, err := r.Process(context.Background(), d, &captureStage{})
	require.NoError(t, err)

	assert.Equal(t, category.ContentHashed, out.Category)
	assert.Equal(t, "deadbeef", d.Value("__signature"))
}

func TestProcess_GenericHashesAllFields(t *testing.T) {
	fp := &mockFingerprinter{id: "xxhash64", sig: "G1"}
	r := newTestRouter(t, DefaultSettings(), staticResolver(fp))
	d := doc(map[string]any{"title": "x", "text": "", "author": "y"})

	out, err := r.Process(context.Background(), d, &captureStage{})
	require.NoError(t, err)

	assert.Equal(t, category.Generic, out.Category)
	assert.Equal(t, "G1", d.Value("__signature"))
	assert.Equal(t, []string{"author", "text", "title"}, fp.lastCall())
}

func TestProcess_GenericExcludesSignatureField(t *testing.T) {
	fp := &mockFingerprinter{id: "xxhash64", sig: "G2"}
	r := newTestRouter(t, DefaultSettings(), staticResolver(fp))
	d := doc(map[string]any{"b": "1", "__signature": "stale", "a": "2"})

	_, err := r.Process(context.Background(), d, &captureStage{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, fp.lastCall())
	assert.Equal(t, "G2", d.Value("__signature"))
}

func TestProcess_MultiValuedUniqueIDIsAbsorbed(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	reg, err := NewRegistry(DefaultSettings(), fingerprintResolver, zap.NewNop())
	require.NoError(t, err)
	rec := &mockRecorder{}
	r := NewRouter(DefaultSettings(), reg, zap.New(core)).WithRecorder(rec)

	d := doc(map[string]any{"id": "doc-7", "id_unique": []any{"a", "b"}})
	next := &captureStage{}

	out, err := r.Process(context.Background(), d, next)
	require.NoError(t, err, "strategy failures never reach the caller")

	assert.Equal(t, category.UniqueKeyed, out.Category)
	assert.Equal(t, ResultFailed, out.Result)
	assert.False(t, out.Signed())
	require.ErrorIs(t, out.Err, domain.ErrMultiValuedField)
	assert.False(t, d.Has("__signature"))
	assert.Equal(t, 1, next.count())

	entries := logs.FilterMessage("Failed to set document signature").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "doc-7", fields["doc"])
	assert.Equal(t, "unique", fields["category"])
	assert.Contains(t, fields["error"], "single-valued id_unique")

	assert.Equal(t, []observation{{category.UniqueKeyed, ResultFailed}}, rec.obs)
}

func TestProcess_TypedSliceUniqueIDIsNotSigned(t *testing.T) {
	r := newTestRouter(t, DefaultSettings(), fingerprintResolver)
	for _, v := range []any{[]int{1, 2}, []float64{1.5}, []int64{7}} {
		d := doc(map[string]any{"id_unique": v})

		out, err := r.Process(context.Background(), d, &captureStage{})
		require.NoError(t, err)
		assert.Equal(t, ResultFailed, out.Result, "%T", v)
		require.ErrorIs(t, out.Err, domain.ErrMultiValuedField)
		assert.False(t, d.Has("__signature"), "%T", v)
	}
}

func TestProcess_AlgorithmPanicIsAbsorbed(t *testing.T) {
	fp := &mockFingerprinter{id: "text_profile", panic: "index out of range"}
	r := newTestRouter(t, DefaultSettings(), staticResolver(fp))
	d := doc(map[string]any{"text": "hello"})
	next := &captureStage{}

	out, err := r.Process(context.Background(), d, next)
	require.NoError(t, err)
	assert.Equal(t, ResultFailed, out.Result)
	require.ErrorIs(t, out.Err, errStrategyPanic)
	assert.False(t, d.Has("__signature"))
	assert.Equal(t, 1, next.count())
}

func TestProcess_EmptySignatureIsFailure(t *testing.T) {
	r := newTestRouter(t, DefaultSettings(), fingerprintResolver)
	d := doc(map[string]any{"id_unique": ""})

	out, err := r.Process(context.Background(), d, &captureStage{})
	require.NoError(t, err)
	assert.Equal(t, ResultFailed, out.Result)
	require.ErrorIs(t, out.Err, errEmptySignature)
	_, present := d.Get("__signature")
	assert.False(t, present)
}

func TestProcess_Disabled(t *testing.T) {
	s := DefaultSettings()
	s.Enabled = false
	fp := &mockFingerprinter{id: "xxhash64", sig: "never"}
	rec := &mockRecorder{}
	r := newTestRouter(t, s, staticResolver(fp)).WithRecorder(rec)

	d := doc(map[string]any{"id_unique": "abc"})
	next := &captureStage{}
	out, err := r.Process(context.Background(), d, next)
	require.NoError(t, err)

	assert.False(t, r.Enabled())
	assert.Equal(t, ResultSkipped, out.Result)
	assert.Equal(t, []string{"id_unique"}, d.FieldNames())
	assert.Equal(t, 1, next.count())
	assert.Empty(t, fp.calls)
	assert.Equal(t, []observation{{"", ResultSkipped}}, rec.obs)
}

func TestProcess_NextErrorIsReturned(t *testing.T) {
	r := newTestRouter(t, DefaultSettings(), fingerprintResolver)
	sinkErr := errors.New("sink down")
	next := &captureStage{err: sinkErr}
	d := doc(map[string]any{"id_unique": "u1"})

	out, err := r.Process(context.Background(), d, next)
	require.ErrorIs(t, err, sinkErr)
	assert.True(t, out.Signed(), "signing happens before the next stage")
	assert.Equal(t, 1, next.count())
}

func TestProcess_CustomSignatureField(t *testing.T) {
	s := DefaultSettings()
	s.SignatureField = "sig"
	r := newTestRouter(t, s, fingerprintResolver)
	d := doc(map[string]any{"content_hash": "ff00"})

	_, err := r.Process(context.Background(), d, StageFunc(func(context.Context, *document.Document) error { return nil }))
	require.NoError(t, err)
	assert.Equal(t, "sig", r.SignatureField())
	assert.Equal(t, "ff00", d.Value("sig"))
	assert.False(t, d.Has("__signature"))
}

func TestProcess_OverwritesExistingSignature(t *testing.T) {
	r := newTestRouter(t, DefaultSettings(), fingerprintResolver)
	d := document.New()
	d.SetField("__signature", "old")
	d.SetField("id_unique", "new")

	_, err := r.Process(context.Background(), d, &captureStage{})
	require.NoError(t, err)
	assert.Equal(t, "new", d.Value("__signature"))
	assert.Equal(t, []string{"__signature", "id_unique"}, d.FieldNames())
}

func TestProcess_RealAlgorithmsAreDeterministic(t *testing.T) {
	r := newTestRouter(t, DefaultSettings(), fingerprintResolver)
	a := doc(map[string]any{"title": "Report", "text": "The quick brown fox jumps over the lazy dog"})
	b := doc(map[string]any{"title": "Report", "text": "The quick brown fox jumps over the lazy dog"})

	outA := r.Sign(a)
	outB := r.Sign(b)
	require.True(t, outA.Signed())
	assert.Equal(t, outA.Signature, outB.Signature)
	assert.Len(t, outA.Signature, 32)
}

func TestProcess_ConcurrentFailuresStayIsolated(t *testing.T) {
	r := newTestRouter(t, DefaultSettings(), fingerprintResolver)
	next := &captureStage{}

	const n = 64
	docs := make([]*document.Document, n)
	for i := range docs {
		if i%2 == 0 {
			docs[i] = doc(map[string]any{"id_unique": fmt.Sprintf("u-%d", i)})
		} else {
			docs[i] = doc(map[string]any{"id_unique": []any{"a", "b"}})
		}
	}

	var wg sync.WaitGroup
	for _, d := range docs {
		wg.Add(1)
		go func(d *document.Document) {
			defer wg.Done()
			_, err := r.Process(context.Background(), d, next)
			assert.NoError(t, err)
		}(d)
	}
	wg.Wait()

	assert.Equal(t, n, next.count())
	for i, d := range docs {
		if i%2 == 0 {
			assert.Equal(t, fmt.Sprintf("u-%d", i), d.Value("__signature"))
		} else {
			assert.False(t, d.Has("__signature"))
		}
	}
}

func TestSign_DebugLogging(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	reg, err := NewRegistry(DefaultSettings(), fingerprintResolver, zap.NewNop())
	require.NoError(t, err)
	r := NewRouter(DefaultSettings(), reg, zap.New(core))

	r.Sign(doc(map[string]any{"docid": "d-1", "content_hash": "abc"}))

	using := logs.FilterMessage("Using signature strategy").All()
	require.Len(t, using, 1)
	assert.Equal(t, "d-1", using[0].ContextMap()["doc"])
	assert.Equal(t, "passthrough", using[0].ContextMap()["algorithm"])

	set := logs.FilterMessage("Set document signature").All()
	require.Len(t, set, 1)
	assert.Equal(t, "abc", set[0].ContextMap()["signature"])
}
