package batch

import "github.com/kailas-cloud/docsig/internal/domain/category"

// ItemStatus is the processing outcome of a single batch item.
type ItemStatus string

// Batch item status values.
const (
	StatusOK    ItemStatus = "ok"
	StatusError ItemStatus = "error"
)

// Signing summarizes what the signature router did with an item.
// A failed signature does not fail the item: the document is still stored unsigned.
type Signing struct {
	Category  category.Category
	Signature string
	Err       error
}

// Signed reports whether a signature was attached.
func (s Signing) Signed() bool { return s.Signature != "" && s.Err == nil }

// Result is the outcome of processing one item in a batch operation.
type Result struct {
	id      string
	status  ItemStatus
	signing Signing
	err     error
}

// NewOK creates a successful batch result.
func NewOK(id string, s Signing) Result { return Result{id: id, status: StatusOK, signing: s} }

// NewError creates a failed batch result.
func NewError(id string, s Signing, err error) Result {
	return Result{id: id, status: StatusError, signing: s, err: err}
}

// ID returns the item identifier. Empty when the item failed before an id was assigned.
func (r Result) ID() string { return r.id }

// Status returns the processing outcome.
func (r Result) Status() ItemStatus { return r.status }

// Signing returns the signing summary.
func (r Result) Signing() Signing { return r.signing }

// Err returns the error, if any.
func (r Result) Err() error { return r.err }
