package embroider

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jward/embroider/internal/doctree"
	"github.com/jward/embroider/internal/grammar"
	"github.com/jward/embroider/internal/render"
	"github.com/jward/embroider/internal/runtime"
	"github.com/jward/embroider/internal/store"
)

// ErrNoGrammar reports a file whose extension no registered grammar handles.
var ErrNoGrammar = errors.New("no grammar registered")

// ErrDuplicateOutput reports two sources in one run that map to the same
// output document, such as a.f90 and a.f03 in one directory.
var ErrDuplicateOutput = errors.New("output already claimed")

// Engine orchestrates the embroider pipeline: file discovery, grammar
// dispatch, change detection, parsing, filtering, rendering and indexing.
// An Engine is not safe for concurrent Process calls.
type Engine struct {
	logger   zerolog.Logger
	registry *grammar.Registry
	renderer render.Renderer
	format   string
	headings doctree.Headings

	outputDir string
	baseDir   string
	ignore    map[string]bool

	dbPath string
	store  *store.Store

	filterExpr string
	filter     *runtime.Filter

	useParallel bool
	force       bool
	strict      bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger for progress and diagnostics. The default
// discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithOutputDir writes documents below dir instead of next to their sources.
func WithOutputDir(dir string) Option {
	return func(e *Engine) {
		e.outputDir = dir
	}
}

// WithBaseDir sets the directory that ProcessFile and ProcessFiles make
// output paths relative to. ProcessDirectory always uses its root.
func WithBaseDir(dir string) Option {
	return func(e *Engine) {
		e.baseDir = dir
	}
}

// WithFormat selects the output markup: "textile" (default) or "markdown".
func WithFormat(name string) Option {
	return func(e *Engine) {
		e.format = name
	}
}

// WithRegistry replaces the built-in grammar registry.
func WithRegistry(r *grammar.Registry) Option {
	return func(e *Engine) {
		e.registry = r
	}
}

// WithStore records processed files in a SQLite index at path and skips
// files whose content is unchanged since they were last recorded.
func WithStore(path string) Option {
	return func(e *Engine) {
		e.dbPath = path
	}
}

// WithFilter prunes declarations with a Risor expression, or with the
// script at that path when the value names a .risor file.
func WithFilter(expr string) Option {
	return func(e *Engine) {
		e.filterExpr = expr
	}
}

// WithParallel controls the worker pool. When true (default), parsing and
// rendering run concurrently with a single goroutine writing the index. Set
// to false for serial mode.
func WithParallel(parallel bool) Option {
	return func(e *Engine) {
		e.useParallel = parallel
	}
}

// WithForce reprocesses files even when the index says they are unchanged.
func WithForce(force bool) Option {
	return func(e *Engine) {
		e.force = force
	}
}

// WithStrict logs parse diagnostics as warnings instead of debug messages.
// The generated documents are the same in both modes.
func WithStrict(strict bool) Option {
	return func(e *Engine) {
		e.strict = strict
	}
}

// WithIgnore adds directory names skipped during discovery.
func WithIgnore(dirs ...string) Option {
	return func(e *Engine) {
		for _, d := range dirs {
			e.ignore[d] = true
		}
	}
}

// WithHeadings overrides section labels. Empty fields keep the grammar's
// labels.
func WithHeadings(h Headings) Option {
	return func(e *Engine) {
		e.headings = h
	}
}

// New creates an Engine.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		logger:      zerolog.Nop(),
		useParallel: true,
		ignore:      make(map[string]bool),
	}
	for name := range skipDirs {
		e.ignore[name] = true
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.registry == nil {
		e.registry = grammar.Default()
	}

	r, err := render.ForFormat(e.format)
	if err != nil {
		return nil, fmt.Errorf("embroider: %w", err)
	}
	e.renderer = r

	if e.filterExpr != "" {
		f, err := e.loadFilter()
		if err != nil {
			return nil, fmt.Errorf("embroider: filter: %w", err)
		}
		e.filter = f
	}

	if e.dbPath != "" {
		s, err := store.NewStore(e.dbPath)
		if err != nil {
			return nil, fmt.Errorf("embroider: create store: %w", err)
		}
		if err := s.Migrate(); err != nil {
			s.Close()
			return nil, fmt.Errorf("embroider: migrate: %w", err)
		}
		e.store = s
	}
	return e, nil
}

func (e *Engine) loadFilter() (*runtime.Filter, error) {
	opts := []runtime.FilterOption{runtime.WithLogger(e.logger)}
	if strings.HasSuffix(e.filterExpr, ".risor") {
		if _, err := os.Stat(e.filterExpr); err == nil {
			return runtime.LoadFilter(e.filterExpr, opts...)
		}
	}
	return runtime.NewFilter(e.filterExpr, opts...)
}

// Close releases the Engine's database resources.
func (e *Engine) Close() error {
	if e.store == nil {
		return nil
	}
	return e.store.Close()
}

// Store returns the index, or nil when none is configured.
func (e *Engine) Store() *Store {
	return e.store
}

// Grammars lists the registered grammars and their extensions.
func (e *Engine) Grammars() []GrammarEntry {
	return e.registry.Entries()
}

// Supports reports whether a grammar handles path.
func (e *Engine) Supports(path string) bool {
	_, ok := e.registry.Lookup(path)
	return ok
}

// IgnoredDirs returns the directory names skipped during discovery, sorted.
func (e *Engine) IgnoredDirs() []string {
	dirs := make([]string, 0, len(e.ignore))
	for d := range e.ignore {
		dirs = append(dirs, d)
	}
	slices.Sort(dirs)
	return dirs
}

// Document is a parsed and filtered source file.
type Document struct {
	Path        string
	Grammar     Grammar
	Tree        *Tree
	Diagnostics []Diagnostic
	// Headings are the resolved section labels for rendering.
	Headings Headings
}

// Parse reads and parses one file without rendering or indexing it. It
// returns an error wrapping ErrNoGrammar for unsupported files.
func (e *Engine) Parse(ctx context.Context, path string) (*Document, error) {
	g, ok := e.registry.Lookup(path)
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, ErrNoGrammar)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return e.parse(ctx, path, g, content)
}

func (e *Engine) parse(ctx context.Context, path string, g Grammar, content []byte) (*Document, error) {
	tree, diags := g.Parse(string(content))
	e.logDiagnostics(path, diags)

	if e.filter != nil {
		pruned, err := e.filter.Prune(ctx, tree)
		if err != nil {
			return nil, fmt.Errorf("filter: %w", err)
		}
		tree = pruned
	}

	return &Document{
		Path:        path,
		Grammar:     g,
		Tree:        tree,
		Diagnostics: diags,
		Headings:    e.headings.Merge(grammar.HeadingsFor(g)),
	}, nil
}

func (e *Engine) logDiagnostics(path string, diags []Diagnostic) {
	for _, d := range diags {
		ev := e.logger.Debug()
		if e.strict {
			ev = e.logger.Warn()
		}
		ev.Str("file", path).Int("line", d.Line).Msg(d.Message)
	}
}

// Summary counts the outcome of a batch.
type Summary struct {
	Processed int
	Unchanged int
	Skipped   int
	Failed    int
}

func (s *Summary) add(o Summary) {
	s.Processed += o.Processed
	s.Unchanged += o.Unchanged
	s.Skipped += o.Skipped
	s.Failed += o.Failed
}

// ProcessFile processes a single file.
func (e *Engine) ProcessFile(ctx context.Context, path string) (Summary, error) {
	return e.ProcessFiles(ctx, []string{path})
}

// ProcessFiles processes the given files. When WithParallel is enabled it
// uses a worker pool; otherwise files are handled one at a time.
//
// Unsupported files are logged and counted as skipped. Failures on
// individual files are collected and processing continues; the returned
// error summarizes them. Cancelling ctx stops the batch between files.
func (e *Engine) ProcessFiles(ctx context.Context, paths []string) (Summary, error) {
	return e.processFiles(ctx, e.baseDir, paths)
}

func (e *Engine) processFiles(ctx context.Context, root string, paths []string) (Summary, error) {
	if e.useParallel {
		return e.processFilesParallel(ctx, root, paths)
	}
	return e.processFilesSerial(ctx, root, paths)
}

func (e *Engine) processFilesSerial(ctx context.Context, root string, paths []string) (Summary, error) {
	var (
		sum  Summary
		errs []error
	)
	claims := make(map[string]string)
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		item, outcome, err := e.prepareFile(root, path, claims)
		if err != nil {
			sum.Failed++
			errs = append(errs, fmt.Errorf("prepare %s: %w", path, err))
			continue
		}
		if outcome != nil {
			sum.add(*outcome)
			continue
		}
		if err := e.processItem(ctx, &item); err != nil {
			sum.Failed++
			errs = append(errs, fmt.Errorf("process %s: %w", path, err))
			continue
		}
		if err := e.commitItem(item); err != nil {
			sum.Failed++
			errs = append(errs, fmt.Errorf("commit %s: %w", path, err))
			continue
		}
		sum.Processed++
	}
	return sum, joinErrors(errs)
}

// Forget drops sources that no longer exist: their index entries are
// deleted and their documents removed. It returns how many sources had a
// document or an index entry. Unsupported paths are ignored.
func (e *Engine) Forget(ctx context.Context, paths []string) (int, error) {
	var (
		n    int
		errs []error
	)
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		if !e.Supports(path) {
			continue
		}
		found, err := e.forget(path)
		if err != nil {
			errs = append(errs, fmt.Errorf("forget %s: %w", path, err))
			continue
		}
		if found {
			n++
		}
	}
	return n, joinErrors(errs)
}

func (e *Engine) forget(path string) (bool, error) {
	output := e.outputPath(e.baseDir, path)
	var found bool
	if e.store != nil {
		f, err := e.store.FileByPath(path)
		if err != nil {
			return false, fmt.Errorf("lookup file: %w", err)
		}
		if f != nil {
			found = true
			if f.Output != "" {
				output = f.Output
			}
			if err := e.store.DeleteFile(path); err != nil {
				return false, err
			}
		}
	}

	err := os.Remove(output)
	switch {
	case err == nil:
		found = true
	case !errors.Is(err, fs.ErrNotExist):
		return found, fmt.Errorf("remove document: %w", err)
	}
	if found {
		e.logger.Info().Str("file", path).Str("output", output).Msg("forgotten")
	}
	return found, nil
}

func joinErrors(errs []error) error {
	if len(errs) > 0 {
		return fmt.Errorf("processing had %d error(s): %w", len(errs), errs[0])
	}
	return nil
}

// skipDirs holds directory names never descended into during discovery.
var skipDirs = map[string]bool{
	"CVS":         true,
	"__pycache__": true,
	"build":       true,
	"modules":     true,
}

// ProcessDirectory discovers and processes every supported file under root.
// Output paths are made relative to root. If root is inside a git
// repository, uses git ls-files to respect .gitignore; otherwise walks the
// tree. Both skip hidden directories and ignored directory names.
func (e *Engine) ProcessDirectory(ctx context.Context, root string) (Summary, error) {
	paths, err := e.Discover(root)
	if err != nil {
		return Summary{}, err
	}
	e.logger.Debug().Str("root", root).Int("files", len(paths)).Msg("discovered")
	return e.processFiles(ctx, root, paths)
}

// Discover lists the supported files under root.
func (e *Engine) Discover(root string) ([]string, error) {
	paths, err := e.gitListFiles(root)
	if err != nil {
		// Not a git repo or git not available, fall back to walk.
		paths, err = e.walkListFiles(root)
		if err != nil {
			return nil, err
		}
	}
	return paths, nil
}

// gitListFiles uses git ls-files to discover tracked and untracked (but not
// ignored) files under root.
func (e *Engine) gitListFiles(root string) ([]string, error) {
	// --cached: tracked files, --others: untracked files,
	// --exclude-standard: respect .gitignore, .git/info/exclude, global excludes.
	cmd := exec.Command("git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git ls-files: %w", err)
	}

	var paths []string
	for _, line := range strings.Split(stdout.String(), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || e.ignoredPath(line) {
			continue
		}
		path := filepath.Join(root, line)
		if e.Supports(path) {
			paths = append(paths, path)
		}
	}
	return paths, nil
}

// ignoredPath reports whether any directory in the slash-separated
// relative path is hidden or ignored.
func (e *Engine) ignoredPath(rel string) bool {
	dirs := strings.Split(filepath.ToSlash(rel), "/")
	for _, d := range dirs[:len(dirs)-1] {
		if strings.HasPrefix(d, ".") || e.ignore[d] {
			return true
		}
	}
	return false
}

// walkListFiles discovers files by walking the filesystem, used as a
// fallback when git is not available.
func (e *Engine) walkListFiles(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (strings.HasPrefix(name, ".") || e.ignore[name]) {
				return filepath.SkipDir
			}
			return nil
		}
		if e.Supports(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}
	return paths, nil
}
