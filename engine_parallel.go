package embroider

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/jward/embroider/internal/render"
	"github.com/jward/embroider/internal/store"
)

// workItem holds everything a worker needs for one file.
type workItem struct {
	path    string
	grammar Grammar
	content []byte
	hash    string
	output  string

	// batch is filled by the worker when an index is configured.
	batch *store.Batch
}

// processFilesParallel processes files using a three-phase pipeline:
//
//	Phase A (serial):   Grammar lookup, read, output claim, hash check.
//	Phase B (parallel): Parse, filter, render and write via worker pool.
//	Phase C (serial):   Commit index batches to SQLite.
func (e *Engine) processFilesParallel(ctx context.Context, root string, paths []string) (Summary, error) {
	var (
		sum  Summary
		errs []error
	)

	// ---- Phase A: Serial file preparation ----
	var items []workItem
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
		items = append(items, item)
	}

	if len(items) == 0 {
		return sum, joinErrors(errs)
	}

	// ---- Phase B: Parallel processing ----
	numWorkers := min(runtime.NumCPU(), len(items))
	if numWorkers < 1 {
		numWorkers = 1
	}

	workCh := make(chan workItem, len(items))
	for _, item := range items {
		workCh <- item
	}
	close(workCh)

	type result struct {
		item workItem
		err  error
	}
	resultCh := make(chan result, len(items))

	var wg sync.WaitGroup
	for range numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range workCh {
				if err := ctx.Err(); err != nil {
					resultCh <- result{item: item, err: err}
					continue
				}
				err := e.processItem(ctx, &item)
				resultCh <- result{item: item, err: err}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	// ---- Phase C: Serial commit ----
	cancelled := false
	for res := range resultCh {
		if res.err != nil {
			if ctx.Err() != nil && errors.Is(res.err, ctx.Err()) {
				cancelled = true
				continue
			}
			sum.Failed++
			errs = append(errs, fmt.Errorf("process %s: %w", res.item.path, res.err))
			continue
		}
		if err := e.commitItem(res.item); err != nil {
			sum.Failed++
			errs = append(errs, fmt.Errorf("commit %s: %w", res.item.path, err))
			continue
		}
		sum.Processed++
	}

	if cancelled {
		return sum, ctx.Err()
	}
	return sum, joinErrors(errs)
}

// prepareFile does the serial work for a single file. A non-nil outcome
// means the file needs no further work. claims maps each output document
// of the run to the source that owns it; the first source wins.
func (e *Engine) prepareFile(root, path string, claims map[string]string) (workItem, *Summary, error) {
	log := e.logger.With().Str("file", path).Logger()

	g, ok := e.registry.Lookup(path)
	if !ok {
		log.Warn().Err(ErrNoGrammar).Msg("skipping")
		return workItem{}, &Summary{Skipped: 1}, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return workItem{}, nil, fmt.Errorf("read file: %w", err)
	}
	hash := store.ContentHash(content)
	output := e.outputPath(root, path)
	if owner, ok := claims[output]; ok && owner != path {
		return workItem{}, nil, fmt.Errorf("%w: %s is written by %s", ErrDuplicateOutput, output, owner)
	}
	claims[output] = path

	if e.store != nil && !e.force {
		existing, err := e.store.FileByPath(path)
		if err != nil {
			return workItem{}, nil, fmt.Errorf("lookup file: %w", err)
		}
		if existing != nil && existing.Hash == hash && existing.Output == output {
			if _, err := os.Stat(output); err == nil {
				log.Debug().Msg("unchanged")
				return workItem{}, &Summary{Unchanged: 1}, nil
			}
		}
	}

	log.Info().Str("grammar", g.Name()).Msg("processing")
	return workItem{
		path:    path,
		grammar: g,
		content: content,
		hash:    hash,
		output:  output,
	}, nil, nil
}

func (e *Engine) outputPath(root, path string) string {
	return render.OutputPath(path, root, e.outputDir, e.renderer.Ext())
}

// processItem parses, filters, renders and writes one file. It touches no
// shared state except the logger.
func (e *Engine) processItem(ctx context.Context, item *workItem) error {
	doc, err := e.parse(ctx, item.path, item.grammar, item.content)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := e.renderer.Render(&buf, doc.Tree, doc.Headings); err != nil {
		return fmt.Errorf("render: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(item.output), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := os.WriteFile(item.output, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	e.logger.Info().Str("file", item.path).Str("output", item.output).Msg("wrote")

	if e.store != nil {
		item.batch = store.NewBatch(store.File{
			Path:          item.path,
			Grammar:       item.grammar.Name(),
			Hash:          item.hash,
			Output:        item.output,
			LastProcessed: time.Now(),
		}, doc.Tree)
	}
	return nil
}

func (e *Engine) commitItem(item workItem) error {
	if e.store == nil || item.batch == nil {
		return nil
	}
	return e.store.CommitBatch(item.batch)
}
