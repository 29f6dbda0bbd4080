package category

// Category is the signature strategy class a document falls into.
type Category string

// Category constants, listed in classification precedence.
const (
	// UniqueKeyed documents carry an already-unique identifier.
	UniqueKeyed Category = "unique"
	// TextBearing documents carry extracted text and get a fuzzy fingerprint.
	TextBearing Category = "text"
	// ContentHashed documents carry a hash computed upstream.
	ContentHashed Category = "hashed"
	// Generic is everything else.
	Generic Category = "other"
)

var precedence = [...]Category{UniqueKeyed, TextBearing, ContentHashed, Generic}

// All returns every category in precedence order.
func All() []Category {
	out := make([]Category, len(precedence))
	copy(out, precedence[:])
	return out
}

// Index returns the position of c in precedence order, or -1 if c is unknown.
func (c Category) Index() int {
	for i, p := range precedence {
		if p == c {
			return i
		}
	}
	return -1
}

// IsValid checks if the category is one of the four supported values.
func (c Category) IsValid() bool {
	return c.Index() >= 0
}

func (c Category) String() string { return string(c) }
