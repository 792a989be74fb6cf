package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jward/embroider"
)

var generateCmd = &cobra.Command{
	Use:   "generate [paths...]",
	Short: "Write documents for source files and directories",
	Long:  "Parses every supported file named on the command line, or found below a named directory, and writes one document per file. Defaults to the current directory.",
	RunE:  runGenerate,
}

func runGenerate(cmd *cobra.Command, args []string) error {
	start := time.Now()

	e, _, err := newEngine(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sum, err := generate(ctx, e, args)
	printSummary(cmd.ErrOrStderr(), sum, time.Since(start))
	return err
}

// generate processes directories one at a time and all plain file arguments
// as a single batch.
func generate(ctx context.Context, e *embroider.Engine, args []string) (embroider.Summary, error) {
	if len(args) == 0 {
		args = []string{"."}
	}

	var (
		total embroider.Summary
		files []string
		errs  []error
	)
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return total, fmt.Errorf("path not found: %s", arg)
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		sum, err := e.ProcessDirectory(ctx, arg)
		total = addSummary(total, sum)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", arg, err))
		}
	}
	if len(files) > 0 {
		sum, err := e.ProcessFiles(ctx, files)
		total = addSummary(total, sum)
		if err != nil {
			errs = append(errs, err)
		}
	}
	return total, errors.Join(errs...)
}

func addSummary(a, b embroider.Summary) embroider.Summary {
	return embroider.Summary{
		Processed: a.Processed + b.Processed,
		Unchanged: a.Unchanged + b.Unchanged,
		Skipped:   a.Skipped + b.Skipped,
		Failed:    a.Failed + b.Failed,
	}
}

func printSummary(w io.Writer, sum embroider.Summary, elapsed time.Duration) {
	fmt.Fprintf(w, "Generated %d document(s) in %s (unchanged: %d, skipped: %d, failed: %d)\n",
		sum.Processed, elapsed.Round(time.Millisecond), sum.Unchanged, sum.Skipped, sum.Failed)
}
