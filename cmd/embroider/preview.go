package main

import (
	"bytes"
	"context"
	"fmt"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/jward/embroider/internal/render"
)

var (
	flagWidth int
	flagRaw   bool
)

var previewCmd = &cobra.Command{
	Use:   "preview <file>",
	Short: "Show the document for one file in the terminal",
	Long:  "Parses one source file and prints its document as styled Markdown. Nothing is written to disk or to the index.",
	Args:  cobra.ExactArgs(1),
	RunE:  runPreview,
}

func init() {
	previewCmd.Flags().IntVar(&flagWidth, "width", 100, "word-wrap width")
	previewCmd.Flags().BoolVar(&flagRaw, "raw", false, "print the Markdown source without styling")
}

func runPreview(cmd *cobra.Command, args []string) error {
	e, _, err := newEngine(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	doc, err := e.Parse(context.Background(), args[0])
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := (render.Markdown{}).Render(&buf, doc.Tree, doc.Headings); err != nil {
		return fmt.Errorf("render: %w", err)
	}
	if flagRaw {
		_, err := cmd.OutOrStdout().Write(buf.Bytes())
		return err
	}

	out, err := styleMarkdown(buf.String(), flagWidth)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), out)
	return err
}

// styleMarkdown renders Markdown for a terminal of the given width.
func styleMarkdown(md string, width int) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("create terminal renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return "", fmt.Errorf("style markdown: %w", err)
	}
	return out, nil
}
