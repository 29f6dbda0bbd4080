package db

import (
	"context"
	"time"
)

// Store is the database facade used by the composition root.
// Consumers depend on the narrow sub-interfaces.
type Store interface {
	Pinger
	KVStore
	HashStore
	SetStore
	IndexStore
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// KVStore provides plain key-value operations.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Del(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// HashStore provides hash operations.
type HashStore interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	// HGetAll returns an empty map for a missing key.
	HGetAll(ctx context.Context, key string) (map[string]string, error)
}

// SetStore provides unordered set operations.
type SetStore interface {
	SAdd(ctx context.Context, key string, members ...string) error
	SRem(ctx context.Context, key string, members ...string) error
	SMembers(ctx context.Context, key string) ([]string, error)
}

// IndexStore writes a record together with its reverse index entry in one atomic step.
type IndexStore interface {
	SaveIndexed(ctx context.Context, rec IndexedRecord) error
	// DeleteIndexed reports whether the record existed.
	DeleteIndexed(ctx context.Context, rec IndexedRecord) (bool, error)
}

// IndexedRecord is a value key plus a meta hash. The meta field IndexField names
// the index set IndexPrefix+value that holds Member. An empty value is not indexed.
type IndexedRecord struct {
	Key         string
	Value       []byte
	MetaKey     string
	Meta        map[string]string
	IndexField  string
	IndexPrefix string
	Member      string
}
