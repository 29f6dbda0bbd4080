package signature

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/docsig/internal/domain"
)

// Default field names and algorithms.
const (
	DefaultSignatureField   = "__signature"
	DefaultUniqueIDField    = "id_unique"
	DefaultContentHashField = "content_hash"
	DefaultTextField        = "text"
	DefaultTextAlgorithm    = "text_profile"
	DefaultOtherAlgorithm   = "xxhash64"
)

// Settings is the immutable signature configuration shared by the registry and router.
// Duplicates are only tagged, never overwritten, so there is no overwrite switch.
type Settings struct {
	Enabled          bool
	SignatureField   string
	UniqueIDField    string
	ContentHashField string
	TextField        string
	TextFields       []string
	TextAlgorithm    string
	// OtherFields lists the generic hash inputs. Empty means every field.
	OtherFields    []string
	OtherAlgorithm string
}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() Settings {
	return Settings{
		Enabled:          true,
		SignatureField:   DefaultSignatureField,
		UniqueIDField:    DefaultUniqueIDField,
		ContentHashField: DefaultContentHashField,
		TextField:        DefaultTextField,
		TextFields:       []string{"title", "text"},
		TextAlgorithm:    DefaultTextAlgorithm,
		OtherAlgorithm:   DefaultOtherAlgorithm,
	}
}

// Validate checks that every field name is usable.
func (s Settings) Validate() error {
	named := map[string]string{
		"signature field":    s.SignatureField,
		"unique id field":    s.UniqueIDField,
		"content hash field": s.ContentHashField,
		"text field":         s.TextField,
	}
	for what, name := range named {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("%w: %s is empty", domain.ErrConfiguration, what)
		}
	}
	if len(s.TextFields) == 0 {
		return fmt.Errorf("%w: text signature fields are empty", domain.ErrConfiguration)
	}
	for _, list := range [][]string{s.TextFields, s.OtherFields} {
		for _, f := range list {
			if strings.TrimSpace(f) == "" {
				return fmt.Errorf("%w: blank signature input field", domain.ErrConfiguration)
			}
			if f == s.SignatureField {
				return fmt.Errorf(
					"%w: signature field %q cannot be a signature input", domain.ErrConfiguration, f,
				)
			}
		}
	}
	return nil
}

// ParseFieldList splits a comma separated field list, dropping blanks.
func ParseFieldList(s string) []string {
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
