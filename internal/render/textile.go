package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/jward/embroider/internal/doctree"
)

// Textile renders Textile markup.
type Textile struct{}

func (Textile) Name() string { return "textile" }
func (Textile) Ext() string  { return ".textile" }

func (Textile) Render(w io.Writer, f *doctree.File, h doctree.Headings) error {
	return render(w, textile{}, f, h)
}

type textile struct{}

func (textile) heading(level int, text string) string {
	return fmt.Sprintf("h%d. %s", level, text)
}

func (textile) strong(text string) string { return "**" + text + "**" }
func (textile) code(text string) string   { return text }

func (textile) table(header []string, rows [][]string) string {
	var b strings.Builder
	b.WriteString("|" + strings.Join(header, "|") + "|\n")
	for _, r := range rows {
		b.WriteString("|" + strings.Join(r, "|") + "|\n")
	}
	return b.String()
}

func (textile) bullet(depth int, text string) string {
	return strings.Repeat("*", depth) + " " + text
}
