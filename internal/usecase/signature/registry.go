package signature

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docsig/internal/domain"
	"github.com/kailas-cloud/docsig/internal/domain/category"
)

// Registry holds one strategy per category. It is built once and never
// modified, so concurrent lookups need no locking.
type Registry struct {
	strategies [4]Strategy
}

// NewRegistry builds and configures all four strategies eagerly.
// Any problem wraps domain.ErrConfiguration and must abort startup.
func NewRegistry(s Settings, resolve AlgorithmResolver, logger *zap.Logger) (*Registry, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if resolve == nil {
		return nil, fmt.Errorf("%w: no algorithm resolver", domain.ErrConfiguration)
	}

	textFP, err := resolveAlgorithm(resolve, category.TextBearing, s.TextAlgorithm)
	if err != nil {
		return nil, err
	}
	otherFP, err := resolveAlgorithm(resolve, category.Generic, s.OtherAlgorithm)
	if err != nil {
		return nil, err
	}

	r := &Registry{}
	r.set(newFieldStrategy(category.UniqueKeyed, s.UniqueIDField))
	r.set(newFingerprintStrategy(category.TextBearing, s.TextFields, s.SignatureField, textFP))
	r.set(newFieldStrategy(category.ContentHashed, s.ContentHashField))
	r.set(newFingerprintStrategy(category.Generic, s.OtherFields, s.SignatureField, otherFP))

	for _, st := range r.strategies {
		logger.Info("Set up document signature",
			zap.String("category", st.Category().String()),
			zap.String("algorithm", st.Algorithm()),
			zap.String("fields", fieldList(st.Fields())),
		)
	}
	return r, nil
}

func resolveAlgorithm(resolve AlgorithmResolver, c category.Category, id string) (Fingerprinter, error) {
	fp, err := resolve(id)
	if err != nil {
		return nil, fmt.Errorf("%s signature algorithm: %w", c, err)
	}
	if fp == nil {
		return nil, fmt.Errorf("%w: %s signature algorithm %q resolved to nothing", domain.ErrConfiguration, c, id)
	}
	return fp, nil
}

func (r *Registry) set(s Strategy) {
	r.strategies[s.Category().Index()] = s
}

// Lookup returns the strategy for a category, nil for an unknown category.
func (r *Registry) Lookup(c category.Category) Strategy {
	i := c.Index()
	if i < 0 {
		return nil
	}
	return r.strategies[i]
}

// Strategies returns all strategies in precedence order.
func (r *Registry) Strategies() []Strategy {
	out := make([]Strategy, len(r.strategies))
	copy(out, r.strategies[:])
	return out
}

func fieldList(fields []string) string {
	if len(fields) == 0 {
		return "[all]"
	}
	return strings.Join(fields, ",")
}
