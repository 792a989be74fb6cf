// Package render serializes a doctree into lightweight markup.
//
// Layout follows the tree: the modules of a file each open a level-1
// heading, and every container emits its non-empty groups (constants,
// structs, nested containers, procedures, in that order) one level below
// itself with the group's items one level further down. Absent groups emit
// nothing.
package render

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/jward/embroider/internal/doctree"
)

// Renderer writes one document per parsed file.
type Renderer interface {
	// Name is the format name accepted by ForFormat.
	Name() string
	// Ext is the output file extension, including the dot.
	Ext() string
	Render(w io.Writer, f *doctree.File, h doctree.Headings) error
}

// Formats lists the accepted format names.
var Formats = []string{"textile", "markdown"}

// ForFormat returns the renderer for a format name.
func ForFormat(name string) (Renderer, error) {
	switch strings.ToLower(name) {
	case "", "textile":
		return Textile{}, nil
	case "markdown", "md":
		return Markdown{}, nil
	}
	return nil, fmt.Errorf("unknown format %q (valid: %s)", name, strings.Join(Formats, ", "))
}

// OutputPath derives the document path for a source file: the source
// extension is replaced by ext. With an output directory the path is made
// relative to root (or kept as given when root is empty) and placed under
// outDir. Sources that cannot be expressed below outDir keep only their base
// name.
func OutputPath(input, root, outDir, ext string) string {
	out := strings.TrimSuffix(input, filepath.Ext(input)) + ext
	if outDir == "" {
		return out
	}
	rel := out
	if root != "" {
		var err error
		if rel, err = filepath.Rel(root, out); err != nil {
			rel = ""
		}
	}
	if rel == "" || filepath.IsAbs(rel) || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.Join(outDir, filepath.Base(out))
	}
	return filepath.Join(outDir, rel)
}

// dialect is the markup vocabulary a document is written in.
type dialect interface {
	heading(level int, text string) string
	strong(text string) string
	code(text string) string
	table(header []string, rows [][]string) string
	bullet(depth int, text string) string
}

const (
	notAvailable = "Not available"
	// placeholder fills a table cell whose value is unknown.
	placeholder = " "
	maxHeading  = 6
)

// printer accumulates the first write error so rendering code can stay
// linear.
type printer struct {
	w   io.Writer
	d   dialect
	h   doctree.Headings
	err error
}

func (p *printer) print(s string) {
	if p.err != nil {
		return
	}
	_, p.err = io.WriteString(p.w, s)
}

func (p *printer) heading(level int, text string) {
	p.print(p.d.heading(min(level, maxHeading), text) + "\n\n")
}

func (p *printer) para(text string) {
	p.print(text + "\n\n")
}

func render(w io.Writer, d dialect, f *doctree.File, h doctree.Headings) error {
	p := &printer{w: w, d: d, h: h.Merge(doctree.DefaultHeadings())}
	p.sections(f.Sections, 1, true)
	return p.err
}

// sections writes the groups of one container. At the file root the
// container group has no heading of its own and its modules start at level.
func (p *printer) sections(s doctree.Sections, level int, root bool) {
	if s.Constants != nil {
		p.heading(level, p.h.Constants)
		p.constants(s.Constants)
	}
	if s.Structs != nil {
		p.heading(level, p.h.Structs)
		for _, st := range s.Structs {
			p.structure(st, level+1)
		}
	}
	if s.Containers != nil {
		at := level
		if !root {
			p.heading(level, p.h.Containers)
			at = level + 1
		}
		for _, m := range s.Containers {
			p.module(m, at)
		}
	}
	if s.Procedures != nil {
		p.heading(level, p.h.Procedures)
		for _, n := range s.Procedures {
			p.procedureLike(n, level+1)
		}
	}
}

func (p *printer) module(m *doctree.Module, level int) {
	p.heading(level, m.Name)
	if m.Description != "" {
		p.para(m.Description)
	}
	p.sections(m.Sections, level+1, false)
}

func (p *printer) procedureLike(n doctree.Node, level int) {
	switch v := n.(type) {
	case *doctree.Procedure:
		p.procedure(v, level)
	case *doctree.Interface:
		p.iface(v, level)
	}
}

func (p *printer) declaration(text string) {
	if text != "" {
		p.para(p.d.strong(p.d.code(text)))
	}
}

func (p *printer) description(level int, text string) {
	p.heading(level, "Description")
	if text == "" {
		text = notAvailable
	}
	p.para(text)
}

func (p *printer) procedure(pr *doctree.Procedure, level int) {
	p.heading(level, pr.Name)
	p.declaration(pr.Declaration)
	p.description(level+1, pr.Description)

	if len(pr.Arguments) > 0 {
		p.heading(level+1, "Arguments")
		rows := make([][]string, 0, len(pr.Arguments))
		for _, a := range pr.Arguments {
			rows = append(rows, []string{a.Name, cell(a.Type), cell(a.Description)})
		}
		p.print(p.d.table([]string{"Argument", "Type", "Description"}, rows) + "\n")
	}

	if pr.Return != nil {
		p.heading(level+1, "Return")
		if pr.Return.Type != "" {
			p.para(p.d.strong(pr.Return.Type))
		}
		desc := pr.Return.Description
		if desc == "" {
			desc = notAvailable
		}
		p.para(desc)
	}

	if pr.Notes != "" {
		p.heading(level+1, "Notes")
		p.para(pr.Notes)
	}
}

// iface writes a named interface block and the procedure bodies it declares.
func (p *printer) iface(in *doctree.Interface, level int) {
	p.heading(level, in.Name)
	p.declaration(in.Declaration)
	p.description(level+1, in.Description)
	for _, c := range in.Children {
		p.procedureLike(c, level+1)
	}
}

func (p *printer) constants(vars []*doctree.Variable) {
	rows := make([][]string, 0, len(vars))
	for _, v := range vars {
		rows = append(rows, []string{v.Name, cell(v.Type), cell(v.Value), cell(v.Description)})
	}
	p.print(p.d.table([]string{"Id", "Type", "Value", "Description"}, rows) + "\n")
}

func (p *printer) structure(st *doctree.Struct, level int) {
	p.heading(level, st.Name)
	if st.Description != "" {
		p.para(st.Description)
	}
	if len(st.Children) > 0 {
		p.fields(st.Children, 1)
		p.print("\n")
	}
}

// fields writes one bullet per component, nesting derived-type components.
func (p *printer) fields(children []doctree.Node, depth int) {
	for _, c := range children {
		h := doctree.HeaderOf(c)
		parts := []string{h.Name}
		if v, ok := c.(*doctree.Variable); ok && v.Type != "" {
			parts = append(parts, p.d.strong(v.Type))
		}
		if h.Description != "" {
			parts = append(parts, oneLine(h.Description))
		}
		p.print(p.d.bullet(depth, strings.Join(parts, " - ")) + "\n")
		if nested := doctree.ChildrenOf(c); len(nested) > 0 {
			p.fields(nested, depth+1)
		}
	}
}

// cell prepares a value for a table cell.
func cell(s string) string {
	if s == "" {
		return placeholder
	}
	return strings.ReplaceAll(oneLine(s), "|", `\|`)
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(strings.ReplaceAll(s, "\n", " ")), " ")
}
