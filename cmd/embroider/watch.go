package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jward/embroider"
	"github.com/jward/embroider/internal/watch"
)

var flagDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Regenerate documents as sources change",
	Long:  "Generates documents for every supported file below dir, then watches the tree and regenerates each changed file. Documents and index entries of removed files are deleted. Stops on interrupt.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&flagDebounce, "debounce", 300*time.Millisecond, "quiet period before a batch of changes is processed")
}

func runWatch(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return fmt.Errorf("not a directory: %s", dir)
	}

	e, logger, err := newEngine(cmd, embroider.WithBaseDir(dir))
	if err != nil {
		return err
	}
	defer e.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	sum, err := e.ProcessDirectory(ctx, dir)
	printSummary(cmd.ErrOrStderr(), sum, time.Since(start))
	if err != nil {
		logger.Error().Err(err).Msg("initial generation")
	}

	// The engine handles one batch at a time.
	var mu sync.Mutex
	onChange := func(paths []string) {
		mu.Lock()
		defer mu.Unlock()
		start := time.Now()
		sum, err := e.ProcessFiles(ctx, paths)
		if err != nil {
			logger.Error().Err(err).Msg("regenerate")
		}
		printSummary(cmd.ErrOrStderr(), sum, time.Since(start))
	}

	onRemove := func(paths []string) {
		mu.Lock()
		defer mu.Unlock()
		n, err := e.Forget(ctx, paths)
		if err != nil {
			logger.Error().Err(err).Msg("forget")
		}
		if n > 0 {
			fmt.Fprintf(cmd.ErrOrStderr(), "Removed %d document(s)\n", n)
		}
	}

	w, err := watch.New(dir, onChange,
		watch.WithDebounceDelay(flagDebounce),
		watch.WithOnRemove(onRemove),
		watch.WithMatch(e.Supports),
		watch.WithSkipDirs(e.IgnoredDirs()...),
		watch.WithOnError(func(err error) {
			logger.Warn().Err(err).Msg("watcher")
		}),
	)
	if err != nil {
		return err
	}
	w.Start()
	logger.Info().Str("dir", dir).Msg("watching")

	<-ctx.Done()
	if err := w.Stop(); err != nil {
		return fmt.Errorf("stop watcher: %w", err)
	}
	// Wait for a batch that is still running.
	mu.Lock()
	defer mu.Unlock()
	return nil
}
