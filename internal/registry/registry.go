// Package registry holds the declarative set of registered quality checks.
package registry

import (
	"sync"

	"trackdq/internal/domain"
)

// Registry stores check definitions in registration order. Registration
// happens at configuration load time; evaluation only reads.
type Registry struct {
	mu     sync.RWMutex
	checks []domain.CheckDefinition
	index  map[string]struct{}
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{index: make(map[string]struct{})}
}

// Register adds a check definition. It returns DuplicateCheckError when the
// (dimension, table, metric) identity is already registered and
// IncompatibleMetricError when the metric kind is not valid under the
// check's dimension. Both are registration-time fatal.
func (r *Registry) Register(check domain.CheckDefinition) error {
	if err := check.Validate(); err != nil {
		return err
	}
	if !domain.KindCompatibleWith(check.Kind, check.Dimension) {
		return domain.ErrIncompatibleMetric(
			"metric kind %q is not valid under dimension %q (check %q)",
			check.Kind, check.Dimension, check.MetricName)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	id := check.Identity()
	if _, exists := r.index[id]; exists {
		return domain.ErrDuplicateCheck("check %s already registered", id)
	}
	r.index[id] = struct{}{}
	r.checks = append(r.checks, check)
	return nil
}

// List returns all registered checks in registration order.
func (r *Registry) List() []domain.CheckDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.CheckDefinition, len(r.checks))
	copy(out, r.checks)
	return out
}

// ListByDimension returns the checks of one dimension in registration order.
func (r *Registry) ListByDimension(dim domain.Dimension) []domain.CheckDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.CheckDefinition
	for _, c := range r.checks {
		if c.Dimension == dim {
			out = append(out, c)
		}
	}
	return out
}

// Len returns the number of registered checks.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.checks)
}
