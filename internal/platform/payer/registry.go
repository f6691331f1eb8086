package payer

import (
	"sort"
	"strings"
	"sync"
)

// Registry maps payer names to adapters. Lookups never fail: when no
// adapter is registered for a payer, the fallback adapter is returned so
// every request can at least enter the manual workflow.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
	fallback Adapter
}

// NewRegistry creates a registry with the given fallback adapter. The
// fallback must not be nil.
func NewRegistry(fallback Adapter) *Registry {
	return &Registry{
		adapters: make(map[string]Adapter),
		fallback: fallback,
	}
}

// normalizeName folds payer names so "Blue Cross", "blue cross" and
// "Blue  Cross" resolve to the same adapter. Payer names are free text
// entered by staff, so case, surrounding space and inner runs of
// whitespace all vary.
func normalizeName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

// Register binds an adapter to a payer name, replacing any previous binding.
func (r *Registry) Register(payerName string, adapter Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[normalizeName(payerName)] = adapter
}

// Resolve returns the adapter for the named payer, or the fallback when the
// payer has no electronic integration.
func (r *Registry) Resolve(payerName string) Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if adapter, ok := r.adapters[normalizeName(payerName)]; ok {
		return adapter
	}
	return r.fallback
}

// Electronic reports whether the named payer has a registered adapter
// other than the fallback.
func (r *Registry) Electronic(payerName string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.adapters[normalizeName(payerName)]
	return ok
}

// Payers returns the sorted list of payer names with registered adapters.
func (r *Registry) Payers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
