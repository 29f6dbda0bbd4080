package signature

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docsig/internal/domain/category"
	"github.com/kailas-cloud/docsig/internal/domain/document"
	"github.com/kailas-cloud/docsig/internal/fingerprint"
)

func doc(fields map[string]any) *document.Document { return document.FromMap(fields) }

// fingerprintResolver resolves through the real algorithm table.
func fingerprintResolver(id string) (Fingerprinter, error) {
	return fingerprint.New(id, fingerprint.Options{})
}

// mockFingerprinter records the fields it was asked to hash.
type mockFingerprinter struct {
	id    string
	sig   string
	panic any

	mu    sync.Mutex
	calls [][]string
}

func (m *mockFingerprinter) ID() string { return m.id }

func (m *mockFingerprinter) Fingerprint(fields []string, _ *document.Document) string {
	if m.panic != nil {
		panic(m.panic)
	}
	m.mu.Lock()
	m.calls = append(m.calls, append([]string(nil), fields...))
	m.mu.Unlock()
	return m.sig
}

func (m *mockFingerprinter) lastCall() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return nil
	}
	return m.calls[len(m.calls)-1]
}

func staticResolver(fps ...*mockFingerprinter) AlgorithmResolver {
	byID := make(map[string]*mockFingerprinter, len(fps))
	for _, fp := range fps {
		byID[fp.id] = fp
	}
	return func(id string) (Fingerprinter, error) {
		if fp, ok := byID[id]; ok {
			return fp, nil
		}
		return fingerprintResolver(id)
	}
}

type observation struct {
	category category.Category
	result   Result
}

type mockRecorder struct {
	mu  sync.Mutex
	obs []observation
}

func (m *mockRecorder) ObserveSignature(c category.Category, res Result, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.obs = append(m.obs, observation{category: c, result: res})
}

func newTestRouter(t *testing.T, s Settings, resolve AlgorithmResolver) *Router {
	t.Helper()
	reg, err := NewRegistry(s, resolve, zap.NewNop())
	require.NoError(t, err)
	return NewRouter(s, reg, zap.NewNop())
}
