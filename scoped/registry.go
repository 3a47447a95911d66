package scoped

import (
	"strings"
)

// Registry is the shared stylesheet receiving rewritten rules. It is append
// only: rules are never updated or removed once inserted, so insertion
// order is the cascade order.
type Registry interface {
	Insert(rule string) error
}

// MemoryRegistry keeps inserted rules in memory. Not to be used
// concurrently.
type MemoryRegistry struct {
	rules []string
}

// NewMemoryRegistry creates empty in-memory registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{}
}

// Insert implements Registry.
func (r *MemoryRegistry) Insert(rule string) error {
	r.rules = append(r.rules, rule)
	return nil
}

// Rules returns copy of inserted rules in insertion order.
func (r *MemoryRegistry) Rules() []string {
	return append([]string(nil), r.rules...)
}

// Len returns number of inserted rules.
func (r *MemoryRegistry) Len() int {
	return len(r.rules)
}

// String returns all rules, one per line.
func (r *MemoryRegistry) String() string {
	if len(r.rules) == 0 {
		return ""
	}
	return strings.Join(r.rules, "\n") + "\n"
}
