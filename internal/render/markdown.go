package render

import (
	"io"
	"strings"

	"github.com/jward/embroider/internal/doctree"
)

// Markdown renders CommonMark with GitHub-style tables.
type Markdown struct{}

func (Markdown) Name() string { return "markdown" }
func (Markdown) Ext() string  { return ".md" }

func (Markdown) Render(w io.Writer, f *doctree.File, h doctree.Headings) error {
	return render(w, markdown{}, f, h)
}

type markdown struct{}

func (markdown) heading(level int, text string) string {
	return strings.Repeat("#", level) + " " + text
}

func (markdown) strong(text string) string { return "**" + text + "**" }

func (markdown) code(text string) string {
	if strings.Contains(text, "`") {
		return "`` " + text + " ``"
	}
	return "`" + text + "`"
}

func (markdown) table(header []string, rows [][]string) string {
	var b strings.Builder
	b.WriteString("| " + strings.Join(header, " | ") + " |\n")
	b.WriteString("|" + strings.Repeat(" --- |", len(header)) + "\n")
	for _, r := range rows {
		b.WriteString("| " + strings.Join(r, " | ") + " |\n")
	}
	return b.String()
}

func (markdown) bullet(depth int, text string) string {
	return strings.Repeat("  ", depth-1) + "- " + text
}
