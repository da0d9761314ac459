// Package subscription tracks which topics a single connection is interested in.
//
// A Registry holds exact topics and prefix topics. A topic registered with a
// leading "*" is stored without the marker and matches any topic starting with
// the remainder:
//
//	var r subscription.Registry
//	r.Listen("*sys")
//	r.Listen("chat")
//
//	r.IsListening("sys.alert") // true
//	r.IsListening("chat")      // true
//	r.IsListening("chatter")   // false
//
// A Registry is owned by one connection handler and is not safe for concurrent use.
package subscription

import (
	"maps"
	"slices"
	"strings"
)

// Wildcard marks a prefix subscription when it leads the topic.
const Wildcard = "*"

// Registry is a set of exact and prefix topic matchers.
// The zero value is ready to use.
type Registry struct {
	exact    map[string]struct{}
	prefixes map[string]struct{}
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{}
}

// Listen adds topic to the registry. Adding a present entry is a no-op.
func (r *Registry) Listen(topic string) {
	if prefix, ok := strings.CutPrefix(topic, Wildcard); ok {
		if r.prefixes == nil {
			r.prefixes = make(map[string]struct{})
		}
		r.prefixes[prefix] = struct{}{}
		return
	}
	if r.exact == nil {
		r.exact = make(map[string]struct{})
	}
	r.exact[topic] = struct{}{}
}

// Unlisten removes topic from the registry. Removing an absent entry is a no-op.
func (r *Registry) Unlisten(topic string) {
	if prefix, ok := strings.CutPrefix(topic, Wildcard); ok {
		delete(r.prefixes, prefix)
		return
	}
	delete(r.exact, topic)
}

// IsListening reports whether topic matches an exact entry or starts with any prefix entry.
func (r *Registry) IsListening(topic string) bool {
	if _, ok := r.exact[topic]; ok {
		return true
	}
	for prefix := range r.prefixes {
		if strings.HasPrefix(topic, prefix) {
			return true
		}
	}
	return false
}

// Len returns the number of registered entries.
func (r *Registry) Len() int {
	return len(r.exact) + len(r.prefixes)
}

// Topics returns the registered entries in listen syntax, sorted.
func (r *Registry) Topics() []string {
	out := slices.Collect(maps.Keys(r.exact))
	for prefix := range r.prefixes {
		out = append(out, Wildcard+prefix)
	}
	slices.Sort(out)
	return out
}
