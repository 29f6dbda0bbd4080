package main

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kailas-cloud/docsig/internal/config"
	"github.com/kailas-cloud/docsig/internal/domain"
	"github.com/kailas-cloud/docsig/internal/usecase/signature"
)

func defaultSignatureConfig() config.SignatureConfig {
	cfg := config.Config{}
	cfg.ApplyDefaults()
	return cfg.Signature
}

func TestSignatureSettings_Defaults(t *testing.T) {
	s := signatureSettings(defaultSignatureConfig())

	want := signature.DefaultSettings()
	if s.Enabled != want.Enabled || s.SignatureField != want.SignatureField ||
		s.UniqueIDField != want.UniqueIDField || s.ContentHashField != want.ContentHashField ||
		s.TextField != want.TextField || s.TextAlgorithm != want.TextAlgorithm ||
		s.OtherAlgorithm != want.OtherAlgorithm {
		t.Errorf("settings = %+v, want %+v", s, want)
	}
	if len(s.TextFields) != 2 || s.TextFields[0] != "title" || s.TextFields[1] != "text" {
		t.Errorf("TextFields = %v", s.TextFields)
	}
	if s.OtherFields != nil {
		t.Errorf("OtherFields = %v, want nil (all fields)", s.OtherFields)
	}
}

func TestSignatureSettings_Disabled(t *testing.T) {
	c := defaultSignatureConfig()
	off := false
	c.Enabled = &off

	if signatureSettings(c).Enabled {
		t.Error("enabled: false was lost")
	}
}

func TestAlgorithmResolver_BuildsRegistry(t *testing.T) {
	c := defaultSignatureConfig()
	if _, err := signature.NewRegistry(signatureSettings(c), algorithmResolver(c.TextProfile), zap.NewNop()); err != nil {
		t.Fatalf("default config should build a registry: %v", err)
	}

	c.OtherSignatureAlgorithm = "lookup3"
	_, err := signature.NewRegistry(signatureSettings(c), algorithmResolver(c.TextProfile), zap.NewNop())
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Errorf("unknown algorithm error = %v, want ErrConfiguration", err)
	}
}

func TestJSONRecoverer(t *testing.T) {
	h := jsonRecoverer(zap.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", http.NoBody))

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestWideEventMiddleware(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(zap.New(core)))
	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ping", http.NoBody))

	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID not propagated")
	}
	entries := logs.FilterMessage("http_request").All()
	if len(entries) != 1 {
		t.Fatalf("got %d request log lines, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["status"] != int64(http.StatusTeapot) || fields["path"] != "/ping" {
		t.Errorf("fields = %v", fields)
	}
}
