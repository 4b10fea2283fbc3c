package table

import "fmt"

// Registry holds the loaded source tables in registration order, keyed by
// provenance label. The pipeline receives a Registry explicitly; there is no
// ambient global table namespace.
type Registry struct {
	labels  []string
	byLabel map[string]*Table
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byLabel: make(map[string]*Table)}
}

// Add registers a table under a label.
//
// Edge cases:
//   - label must be non-empty and unused; duplicate labels are an error so a
//     misconfigured source list fails fast instead of silently shadowing data.
func (r *Registry) Add(label string, t *Table) error {
	if label == "" {
		return fmt.Errorf("registry: empty label")
	}
	if t == nil {
		return fmt.Errorf("registry: nil table for label %q", label)
	}
	if _, exists := r.byLabel[label]; exists {
		return fmt.Errorf("registry: label %q already registered", label)
	}
	r.labels = append(r.labels, label)
	r.byLabel[label] = t
	return nil
}

// Get looks up a table by label.
func (r *Registry) Get(label string) (*Table, bool) {
	t, ok := r.byLabel[label]
	return t, ok
}

// Replace swaps the table stored under an existing label. Used by pipeline
// stages that transform tables functionally (reshape output replaces the long
// input).
func (r *Registry) Replace(label string, t *Table) error {
	if _, exists := r.byLabel[label]; !exists {
		return fmt.Errorf("registry: label %q not registered", label)
	}
	r.byLabel[label] = t
	return nil
}

// Labels returns the labels in registration order.
func (r *Registry) Labels() []string {
	return append([]string(nil), r.labels...)
}

// Tables returns the tables in registration order.
func (r *Registry) Tables() []*Table {
	out := make([]*Table, 0, len(r.labels))
	for _, l := range r.labels {
		out = append(out, r.byLabel[l])
	}
	return out
}

// Len returns the number of registered tables.
func (r *Registry) Len() int { return len(r.labels) }
