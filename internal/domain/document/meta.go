package document

import "time"

// Meta is the bookkeeping stored next to a persisted document.
type Meta struct {
	ID string
	// Signature is empty when the document was stored unsigned.
	Signature string
	StoredAt  time.Time
}
