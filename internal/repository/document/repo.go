package document

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/kailas-cloud/docsig/internal/db"
	"github.com/kailas-cloud/docsig/internal/domain"
	domdoc "github.com/kailas-cloud/docsig/internal/domain/document"
)

// store is the consumer interface for documents (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	SMembers(ctx context.Context, key string) ([]string, error)
	SaveIndexed(ctx context.Context, rec db.IndexedRecord) error
	DeleteIndexed(ctx context.Context, rec db.IndexedRecord) (bool, error)
}

// Repo persists signed documents. It never compares signatures:
// the signature index only lets downstream consumers find matching documents.
type Repo struct {
	store          store
	prefix         string
	signatureField string
	newID          func() string
	now            func() time.Time
}

// New creates a document repository.
func New(s store, keyPrefix, signatureField string) *Repo {
	return &Repo{
		store:          s,
		prefix:         keyPrefix,
		signatureField: signatureField,
		newID:          uuid.NewString,
		now:            time.Now,
	}
}

// Save stores the document as JSON, updates its metadata and the signature index
// in one atomic store call, so concurrent saves of one id leave it in exactly one index set.
// Documents without an id or docid get a generated UUID. Returns the id.
func (r *Repo) Save(ctx context.Context, doc *domdoc.Document) (string, error) {
	id := doc.Identity()
	if id == "" {
		id = r.newID()
	}
	sig := signatureOf(doc, r.signatureField)

	data, err := doc.MarshalJSON()
	if err != nil {
		return "", fmt.Errorf("marshal document %s: %w", id, err)
	}

	meta := domdoc.Meta{ID: id, Signature: sig, StoredAt: r.now()}
	rec := r.record(id)
	rec.Value = data
	rec.Meta = metaToHash(meta)
	if err := r.store.SaveIndexed(ctx, rec); err != nil {
		return "", fmt.Errorf("save %s: %w", id, err)
	}
	return id, nil
}

// Get returns a stored document by id.
func (r *Repo) Get(ctx context.Context, id string) (*domdoc.Document, error) {
	raw, err := r.store.Get(ctx, r.docKey(id))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, fmt.Errorf("get %s: %w", id, err)
	}
	doc := domdoc.New()
	if err := doc.UnmarshalJSON(raw); err != nil {
		return nil, fmt.Errorf("decode %s: %w", id, err)
	}
	return doc, nil
}

// Meta returns the metadata of a stored document.
func (r *Repo) Meta(ctx context.Context, id string) (domdoc.Meta, error) {
	m, err := r.store.HGetAll(ctx, r.metaKey(id))
	if err != nil {
		return domdoc.Meta{}, fmt.Errorf("read meta %s: %w", id, err)
	}
	if len(m) == 0 {
		return domdoc.Meta{}, domain.ErrDocumentNotFound
	}
	return metaFromHash(id, m), nil
}

// Delete removes a document, its metadata and its signature index entry.
func (r *Repo) Delete(ctx context.Context, id string) error {
	existed, err := r.store.DeleteIndexed(ctx, r.record(id))
	if err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	if !existed {
		return domain.ErrDocumentNotFound
	}
	return nil
}

// BySignature returns the sorted ids of stored documents carrying the signature.
func (r *Repo) BySignature(ctx context.Context, signature string) ([]string, error) {
	ids, err := r.store.SMembers(ctx, r.sigKey(signature))
	if err != nil {
		return nil, fmt.Errorf("members %s: %w", signature, err)
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *Repo) record(id string) db.IndexedRecord {
	return db.IndexedRecord{
		Key:         r.docKey(id),
		MetaKey:     r.metaKey(id),
		IndexField:  fieldSignature,
		IndexPrefix: r.prefix + "sig:",
		Member:      id,
	}
}

func (r *Repo) docKey(id string) string  { return r.prefix + "doc:" + id }
func (r *Repo) metaKey(id string) string { return r.prefix + "meta:" + id }
func (r *Repo) sigKey(sig string) string { return r.prefix + "sig:" + sig }
