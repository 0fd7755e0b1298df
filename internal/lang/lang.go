// Package lang selects a source front-end for a chapter file.
package lang

import (
	"context"
	"path/filepath"
	"sort"
	"strings"

	"github.com/agentflare-ai/mdbook-lit/internal/lang/golang"
	"github.com/agentflare-ai/mdbook-lit/internal/lang/rust"
	"github.com/agentflare-ai/mdbook-lit/internal/syntax"
)

// Frontend parses one source language.
type Frontend interface {
	Name() string
	Extensions() []string
	// FenceLang is the default info string of code fences.
	FenceLang() string
	Parse(ctx context.Context, name string, src []byte) (*syntax.Module, error)
}

// Registry maps file extensions to front-ends.
type Registry struct {
	byExt  map[string]Frontend
	byName map[string]Frontend
}

// NewRegistry returns a registry serving the given front-ends. Later
// front-ends win on conflicting extensions.
func NewRegistry(frontends ...Frontend) *Registry {
	r := &Registry{byExt: make(map[string]Frontend), byName: make(map[string]Frontend)}
	for _, f := range frontends {
		r.byName[f.Name()] = f
		for _, ext := range f.Extensions() {
			r.byExt[strings.ToLower(ext)] = f
		}
	}
	return r
}

// Default returns a registry with the Rust and Go front-ends.
func Default() *Registry {
	return NewRegistry(rust.New(), golang.New())
}

// ForPath returns the front-end for path's extension.
func (r *Registry) ForPath(path string) (Frontend, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return nil, false
	}
	f, ok := r.byExt[ext]
	return f, ok
}

// ByName returns the front-end called name ("rust", "go").
func (r *Registry) ByName(name string) (Frontend, bool) {
	f, ok := r.byName[name]
	return f, ok
}

// Extensions lists every recognised extension in sorted order.
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}
