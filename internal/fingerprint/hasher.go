package fingerprint

import (
	"crypto/md5" //nolint:gosec // signature key, not a security boundary
	"encoding/hex"
	"hash"

	"github.com/cespare/xxhash/v2"

	"github.com/kailas-cloud/docsig/internal/domain/document"
)

var separator = []byte{0}

// Hasher is an exact field hash: any change to a name or value changes the digest.
type Hasher struct {
	id      string
	newHash func() hash.Hash
}

// NewXXHash64 creates the default generic hasher (64-bit xxHash, 16 hex chars).
func NewXXHash64() *Hasher {
	return &Hasher{id: XXHash64ID, newHash: func() hash.Hash { return xxhash.New() }}
}

// NewMD5 creates an MD5 hasher (32 hex chars).
func NewMD5() *Hasher {
	return &Hasher{id: MD5ID, newHash: md5.New}
}

// ID returns the algorithm identifier.
func (h *Hasher) ID() string { return h.id }

// Fingerprint hashes field names and values in the given field order, NUL separated.
func (h *Hasher) Fingerprint(fields []string, doc *document.Document) string {
	d := h.newHash()
	fieldParts(fields, doc, func(part string) {
		_, _ = d.Write([]byte(part))
		_, _ = d.Write(separator)
	})
	return hex.EncodeToString(d.Sum(nil))
}
