// Package runtime embeds a Risor VM that decides which declarations are
// kept in generated documents.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/risor-io/risor"
	"github.com/risor-io/risor/importer"
	"github.com/rs/zerolog"

	"github.com/jward/embroider/internal/doctree"
)

// Filter evaluates a Risor expression or script against each declaration.
// The result's truthiness decides whether the node is kept. A Filter holds
// no per-evaluation state and may be shared by concurrent workers.
type Filter struct {
	source     string
	label      string
	scriptsDir string
	logger     zerolog.Logger
}

// FilterOption configures a Filter.
type FilterOption func(*Filter)

// WithLogger routes the script-visible log object to l.
func WithLogger(l zerolog.Logger) FilterOption {
	return func(f *Filter) {
		f.logger = l
	}
}

// WithScriptsDir resolves Risor import statements against dir.
func WithScriptsDir(dir string) FilterOption {
	return func(f *Filter) {
		f.scriptsDir = dir
	}
}

// NewFilter builds a filter from an inline expression. The expression is
// evaluated once against an empty variable node to surface syntax errors.
func NewFilter(expr string, opts ...FilterOption) (*Filter, error) {
	return newFilter(expr, "<inline>", opts)
}

// LoadFilter reads a .risor script from disk. Imports resolve relative to the
// script's directory unless WithScriptsDir is given.
func LoadFilter(path string, opts ...FilterOption) (*Filter, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("runtime: loading script %s: %w", path, err)
	}
	opts = append([]FilterOption{WithScriptsDir(filepath.Dir(path))}, opts...)
	return newFilter(string(data), path, opts)
}

func newFilter(src, label string, opts []FilterOption) (*Filter, error) {
	if strings.TrimSpace(src) == "" {
		return nil, errors.New("runtime: empty filter")
	}
	f := &Filter{source: src, label: label, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(f)
	}
	if _, err := f.Keep(context.Background(), &doctree.Variable{}); err != nil {
		return nil, err
	}
	return f, nil
}

// Keep reports whether n passes the filter.
func (f *Filter) Keep(ctx context.Context, n doctree.Node) (bool, error) {
	globals := map[string]any{
		"node": nodeObject(n),
		"log":  mustProxy(&logObject{logger: f.logger}),
	}

	var opts []risor.Option
	for name, val := range globals {
		opts = append(opts, risor.WithGlobal(name, val))
	}
	if imp := f.buildImporter(globals); imp != nil {
		opts = append(opts, risor.WithImporter(imp))
	}

	result, err := risor.Eval(ctx, f.source, opts...)
	if err != nil {
		return false, fmt.Errorf("runtime: script %s: %w", f.label, err)
	}
	return result.IsTruthy(), nil
}

func (f *Filter) buildImporter(globals map[string]any) importer.Importer {
	if f.scriptsDir == "" {
		return nil
	}
	globalNames := make([]string, 0, len(globals))
	for name := range globals {
		globalNames = append(globalNames, name)
	}
	return importer.NewLocalImporter(importer.LocalImporterOptions{
		GlobalNames: globalNames,
		SourceDir:   f.scriptsDir,
		Extensions:  []string{".risor"},
	})
}

// Prune returns a copy of tree without the nodes that fail the filter. A
// rejected node takes its whole subtree with it. Sections are recomputed on
// the copy; tree itself is not modified.
func (f *Filter) Prune(ctx context.Context, tree *doctree.File) (*doctree.File, error) {
	children, err := f.pruneChildren(ctx, tree.Children)
	if err != nil {
		return nil, err
	}
	out := &doctree.File{Children: children}
	out.Sections = doctree.Classify(children)
	return out, nil
}

func (f *Filter) pruneChildren(ctx context.Context, children []doctree.Node) ([]doctree.Node, error) {
	var kept []doctree.Node
	for _, c := range children {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ok, err := f.Keep(ctx, c)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		c, err = f.pruneNode(ctx, c)
		if err != nil {
			return nil, err
		}
		kept = append(kept, c)
	}
	return kept, nil
}

// pruneNode copies n with filtered children. Variables are leaves and are
// shared with the source tree.
func (f *Filter) pruneNode(ctx context.Context, n doctree.Node) (doctree.Node, error) {
	switch v := n.(type) {
	case *doctree.Module:
		cp := *v
		children, err := f.pruneChildren(ctx, v.Children)
		if err != nil {
			return nil, err
		}
		cp.Children = children
		cp.Sections = doctree.Classify(children)
		return &cp, nil
	case *doctree.Procedure:
		cp := *v
		children, err := f.pruneChildren(ctx, v.Children)
		if err != nil {
			return nil, err
		}
		cp.Children = children
		return &cp, nil
	case *doctree.Interface:
		cp := *v
		children, err := f.pruneChildren(ctx, v.Children)
		if err != nil {
			return nil, err
		}
		cp.Children = children
		return &cp, nil
	case *doctree.Struct:
		cp := *v
		children, err := f.pruneChildren(ctx, v.Children)
		if err != nil {
			return nil, err
		}
		cp.Children = children
		return &cp, nil
	}
	return n, nil
}
