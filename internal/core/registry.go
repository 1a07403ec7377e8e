package core

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps conversion options to converters.
// It is populated at startup and read concurrently while serving.
type Registry struct {
	mu         sync.RWMutex
	converters map[ConversionOptions]Converter
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{converters: make(map[ConversionOptions]Converter)}
}

// Register adds a converter for opts.
// Panics if opts is unresolved or a converter is already registered for it.
func (r *Registry) Register(opts ConversionOptions, c Converter) {
	if err := opts.Validate(); err != nil {
		panic(fmt.Sprintf("register converter: %v", err))
	}
	if c == nil {
		panic(fmt.Sprintf("register converter: nil converter for %s", opts))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.converters[opts]; exists {
		panic(fmt.Sprintf("converter already registered: %s", opts))
	}
	r.converters[opts] = c
}

// Lookup returns the converter for opts.
// Returns false if none is registered.
func (r *Registry) Lookup(opts ConversionOptions) (Converter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.converters[opts]
	return c, ok
}

// Pairs returns all registered options.
// Sorted by source kind then by target name.
func (r *Registry) Pairs() []ConversionOptions {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]ConversionOptions, 0, len(r.converters))
	for opts := range r.converters {
		result = append(result, opts)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].From != result[j].From {
			return result[i].From < result[j].From
		}
		return result[i].To.Name < result[j].To.Name
	})

	return result
}

// TargetsFor returns the formats a kind can be converted to, sorted by name.
func (r *Registry) TargetsFor(kind DocumentKind) []TargetFormat {
	var result []TargetFormat
	for _, opts := range r.Pairs() {
		if opts.From == kind {
			result = append(result, opts.To)
		}
	}
	return result
}

// Len returns the number of registered converters.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.converters)
}
