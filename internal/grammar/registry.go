// Package grammar maps source file extensions to the parsers that understand
// them.
package grammar

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/jward/embroider/internal/doctree"
	"github.com/jward/embroider/internal/fortran"
)

// Grammar is the capability a language parser provides to the engine.
type Grammar interface {
	// Name is the human-readable grammar name.
	Name() string
	// Extensions lists the file extensions handled, including the dot.
	Extensions() []string
	// Headings overrides section labels. Empty fields keep the defaults.
	Headings() doctree.Headings
	// Parse builds the declaration tree of one source file. It never fails.
	Parse(src string) (*doctree.File, []doctree.Diagnostic)
}

// Registry is a set of grammars keyed by lower-cased extension. It is safe
// for concurrent lookups.
type Registry struct {
	mu       sync.RWMutex
	byExt    map[string]int
	grammars []Grammar
}

// Entry pairs a registered grammar with the extensions that still resolve
// to it.
type Entry struct {
	Grammar    Grammar
	Extensions []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byExt: make(map[string]int)}
}

// Default returns a registry holding every built-in grammar.
func Default() *Registry {
	r := NewRegistry()
	r.Register(fortran.Grammar{})
	return r
}

// Register adds g for each of its extensions. A later registration for the
// same extension replaces the earlier one.
func (r *Registry) Register(g Grammar) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.grammars = append(r.grammars, g)
	for _, ext := range g.Extensions() {
		r.byExt[strings.ToLower(ext)] = len(r.grammars) - 1
	}
}

// Lookup returns the grammar for path based on its extension. Returns
// (nil, false) if no grammar handles it.
func (r *Registry) Lookup(path string) (Grammar, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.byExt[ext]
	if !ok {
		return nil, false
	}
	return r.grammars[i], true
}

// Entries returns the registered grammars in registration order. A grammar
// whose extensions were all taken over by later registrations is listed with
// no extensions.
func (r *Registry) Entries() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entry, len(r.grammars))
	for i, g := range r.grammars {
		out[i].Grammar = g
	}
	for ext, i := range r.byExt {
		out[i].Extensions = append(out[i].Extensions, ext)
	}
	for i := range out {
		sort.Strings(out[i].Extensions)
	}
	return out
}

// HeadingsFor returns the section labels for g with defaults filled in.
func HeadingsFor(g Grammar) doctree.Headings {
	return g.Headings().Merge(doctree.DefaultHeadings())
}
