package document

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kailas-cloud/docsig/internal/db"
	domdoc "github.com/kailas-cloud/docsig/internal/domain/document"
)

// memStore is an in-memory implementation of the consumer interface.
// Every call holds the lock, so SaveIndexed and DeleteIndexed are atomic like the
// scripts they stand in for. errOn makes the named operation fail.
type memStore struct {
	mu     sync.Mutex
	kv     map[string][]byte
	hashes map[string]map[string]string
	sets   map[string]map[string]struct{}
	errOn  map[string]error
}

func newMemStore() *memStore {
	return &memStore{
		kv:     map[string][]byte{},
		hashes: map[string]map[string]string{},
		sets:   map[string]map[string]struct{}{},
		errOn:  map[string]error{},
	}
}

func (m *memStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.errOn[db.OpGet]; err != nil {
		return nil, err
	}
	v, ok := m.kv[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *memStore) HGetAll(_ context.Context, key string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.errOn[db.OpHGetAll]; err != nil {
		return nil, err
	}
	out := map[string]string{}
	for k, v := range m.hashes[key] {
		out[k] = v
	}
	return out, nil
}

func (m *memStore) SMembers(_ context.Context, key string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.errOn[db.OpSMembers]; err != nil {
		return nil, err
	}
	out := make([]string, 0, len(m.sets[key]))
	for mem := range m.sets[key] {
		out = append(out, mem)
	}
	return out, nil
}

func (m *memStore) SaveIndexed(_ context.Context, rec db.IndexedRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.errOn[db.OpSaveIndexed]; err != nil {
		return err
	}
	next := rec.Meta[rec.IndexField]
	if old := m.hashes[rec.MetaKey][rec.IndexField]; old != "" && old != next {
		delete(m.sets[rec.IndexPrefix+old], rec.Member)
	}
	m.kv[rec.Key] = append([]byte(nil), rec.Value...)
	h, ok := m.hashes[rec.MetaKey]
	if !ok {
		h = map[string]string{}
		m.hashes[rec.MetaKey] = h
	}
	for k, v := range rec.Meta {
		h[k] = v
	}
	if next != "" {
		set, ok := m.sets[rec.IndexPrefix+next]
		if !ok {
			set = map[string]struct{}{}
			m.sets[rec.IndexPrefix+next] = set
		}
		set[rec.Member] = struct{}{}
	}
	return nil
}

func (m *memStore) DeleteIndexed(_ context.Context, rec db.IndexedRecord) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.errOn[db.OpDeleteIndexed]; err != nil {
		return false, err
	}
	if old := m.hashes[rec.MetaKey][rec.IndexField]; old != "" {
		delete(m.sets[rec.IndexPrefix+old], rec.Member)
	}
	_, hadDoc := m.kv[rec.Key]
	_, hadMeta := m.hashes[rec.MetaKey]
	delete(m.kv, rec.Key)
	delete(m.hashes, rec.MetaKey)
	return hadDoc || hadMeta, nil
}

// indexedIn returns the signature sets that hold id.
func (m *memStore) indexedIn(prefix, id string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for key, members := range m.sets {
		if _, ok := members[id]; ok {
			out = append(out, strings.TrimPrefix(key, prefix))
		}
	}
	return out
}

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestRepo(t *testing.T) (*Repo, *memStore) {
	t.Helper()
	s := newMemStore()
	r := New(s, "t:", "__signature")
	r.now = func() time.Time { return fixedNow }
	r.newID = func() string { return "generated-id" }
	return r, s
}

func signedDoc(id, sig string) *domdoc.Document {
	d := domdoc.New()
	if id != "" {
		d.SetField("id", id)
	}
	d.SetField("title", "hello")
	if sig != "" {
		d.SetField("__signature", sig)
	}
	return d
}
