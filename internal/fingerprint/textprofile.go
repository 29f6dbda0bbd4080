package fingerprint

import (
	"crypto/md5" //nolint:gosec // signature key, not a security boundary
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"

	"github.com/kailas-cloud/docsig/internal/domain/document"
)

// TextProfile is a near-duplicate tolerant signature. It keeps only the
// frequent words of the text, with counts rounded down to a quantum, so small
// extraction noise (a stray word, different punctuation or case) maps to the
// same profile.
type TextProfile struct {
	quantRate   float64
	minTokenLen int
	tokenizer   analysis.Tokenizer
	lower       analysis.TokenFilter
}

// NewTextProfile creates a text profile algorithm.
func NewTextProfile(opts Options) (*TextProfile, error) {
	opts = opts.withDefaults()
	if opts.QuantRate < 0 || opts.QuantRate > 1 {
		return nil, fmt.Errorf("quant rate must be in (0, 1], got %v", opts.QuantRate)
	}
	if opts.MinTokenLen < 0 {
		return nil, fmt.Errorf("min token length must be >= 0, got %d", opts.MinTokenLen)
	}
	return &TextProfile{
		quantRate:   opts.QuantRate,
		minTokenLen: opts.MinTokenLen,
		tokenizer:   unicode.NewUnicodeTokenizer(),
		lower:       lowercase.NewLowerCaseFilter(),
	}, nil
}

// ID returns the algorithm identifier.
func (p *TextProfile) ID() string { return TextProfileID }

type profileToken struct {
	term  string
	count int
}

// Fingerprint builds the quantized word profile of the named fields and hashes it.
func (p *TextProfile) Fingerprint(fields []string, doc *document.Document) string {
	counts := make(map[string]int)
	maxFreq := 0
	fieldParts(fields, doc, func(part string) {
		for _, tok := range p.lower.Filter(p.tokenizer.Tokenize([]byte(part))) {
			if utf8.RuneCount(tok.Term) <= p.minTokenLen {
				continue
			}
			term := string(tok.Term)
			counts[term]++
			if counts[term] > maxFreq {
				maxFreq = counts[term]
			}
		}
	})

	quant := int(math.Round(float64(maxFreq) * p.quantRate))
	if quant < 2 {
		if maxFreq > 1 {
			quant = 2
		} else {
			quant = 1
		}
	}

	profile := make([]profileToken, 0, len(counts))
	for term, n := range counts {
		n = (n / quant) * quant
		if n < quant {
			continue
		}
		profile = append(profile, profileToken{term: term, count: n})
	}
	sort.Slice(profile, func(i, j int) bool {
		if profile[i].count != profile[j].count {
			return profile[i].count > profile[j].count
		}
		return profile[i].term < profile[j].term
	})

	var b strings.Builder
	for _, t := range profile {
		b.WriteString(t.term)
		b.WriteByte(' ')
		b.WriteString(strconv.Itoa(t.count))
		b.WriteByte('\n')
	}
	sum := md5.Sum([]byte(b.String())) //nolint:gosec // see import
	return hex.EncodeToString(sum[:])
}
