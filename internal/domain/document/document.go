package document

import (
	"sort"

	"github.com/davecgh/go-spew/spew"
)

// identityFields are checked in order when a document needs a short name in logs.
var identityFields = []string{"id", "docid"}

var dumpConfig = spew.ConfigState{
	SortKeys:                true,
	DisablePointerAddresses: true,
	DisableCapacities:       true,
}

// Document is an ordered set of named fields (mutable, owned by the caller).
// A value is nil (null), a scalar, or a sequence of scalars ([]any / []string).
type Document struct {
	names  []string
	fields map[string]any
}

// New creates an empty Document.
func New() *Document {
	return &Document{fields: make(map[string]any)}
}

// FromMap creates a Document from a plain map. Field order is the sorted key order.
func FromMap(m map[string]any) *Document {
	d := &Document{
		names:  make([]string, 0, len(m)),
		fields: make(map[string]any, len(m)),
	}
	for k := range m {
		d.names = append(d.names, k)
	}
	sort.Strings(d.names)
	for _, k := range d.names {
		d.fields[k] = m[k]
	}
	return d
}

// Get returns the raw value of a field and whether the field is present.
// A present field may still hold nil.
func (d *Document) Get(name string) (any, bool) {
	v, ok := d.fields[name]
	return v, ok
}

// Value returns the raw value of a field, nil when absent.
func (d *Document) Value(name string) any { return d.fields[name] }

// Has reports whether the field is present with a non-null value.
func (d *Document) Has(name string) bool {
	v, ok := d.fields[name]
	return ok && v != nil
}

// FieldNames returns field names in insertion order.
func (d *Document) FieldNames() []string {
	out := make([]string, len(d.names))
	copy(out, d.names)
	return out
}

// Len returns the number of fields.
func (d *Document) Len() int { return len(d.names) }

// SetField writes a field. An existing field keeps its position.
func (d *Document) SetField(name string, value any) {
	if d.fields == nil {
		d.fields = make(map[string]any)
	}
	if _, ok := d.fields[name]; !ok {
		d.names = append(d.names, name)
	}
	d.fields[name] = value
}

// DebugID names the document for logs: the first non-null identity field,
// otherwise a dump of every field.
func (d *Document) DebugID() string {
	for _, name := range identityFields {
		if v := d.fields[name]; v != nil {
			return Stringify(v)
		}
	}
	return dumpConfig.Sprintf("%v", d.fields)
}

// Identity returns the first non-null identity field as a string, or "" if none.
func (d *Document) Identity() string {
	for _, name := range identityFields {
		if v := d.fields[name]; v != nil {
			if _, multi := Values(v); multi {
				continue
			}
			return Stringify(v)
		}
	}
	return ""
}
