package fortran

import (
	"fmt"
	"strings"

	"github.com/jward/embroider/internal/doctree"
)

// frame is one open scope. children points at the scope node's Children
// field so declarations can be appended without a type switch.
type frame struct {
	node     doctree.Node
	children *[]doctree.Node
	line     int
}

// builder is the scope state machine. The stack always holds the File root
// at index 0.
type builder struct {
	root     *doctree.File
	stack    []frame
	comments commentAccumulator
	diags    []doctree.Diagnostic
}

func newBuilder() *builder {
	root := &doctree.File{}
	return &builder{
		root:  root,
		stack: []frame{{node: root, children: &root.Children}},
	}
}

// Parse builds the declaration tree for one free-format source file. It never
// fails: unrecognized lines are inert and malformed nesting is repaired by
// closing scopes outward. The returned diagnostics describe those repairs.
func Parse(src string) (*doctree.File, []doctree.Diagnostic) {
	b := newBuilder()
	for _, l := range joinContinuations(splitLines(src)) {
		b.line(l.number, l.text)
	}
	return b.finish()
}

func (b *builder) top() frame {
	return b.stack[len(b.stack)-1]
}

// line applies one logical line to the tree.
func (b *builder) line(number int, text string) {
	desc, comment := b.comments.feed(text)
	if comment {
		return
	}

	if d, ok := classifyOpen(text); ok {
		b.open(number, d, desc)
		return
	}
	if kind, ok := classifyClose(text); ok {
		b.close(number, kind)
		return
	}
	for _, v := range classifyVariables(text) {
		if v.Description == "" {
			v.Description = desc
		}
		b.declare(v)
	}
}

// open creates a node for d under the current scope and makes it current.
func (b *builder) open(number int, d declaration, desc string) {
	h := doctree.Header{Name: d.name, Declaration: d.text, Description: desc}

	var f frame
	switch d.kind {
	case doctree.KindModule:
		n := &doctree.Module{Header: h}
		f = frame{node: n, children: &n.Children}
	case doctree.KindSubroutine, doctree.KindFunction:
		n := &doctree.Procedure{
			Header:     h,
			IsFunction: d.kind == doctree.KindFunction,
			ResultName: d.result,
			Notes:      d.notes,
		}
		for _, a := range d.args {
			n.Arguments = append(n.Arguments, &doctree.Argument{Name: a})
		}
		f = frame{node: n, children: &n.Children}
	case doctree.KindInterface:
		n := &doctree.Interface{Header: h}
		f = frame{node: n, children: &n.Children}
	case doctree.KindStruct:
		n := &doctree.Struct{Header: h}
		f = frame{node: n, children: &n.Children}
	default:
		return
	}
	f.line = number

	parent := b.top()
	*parent.children = append(*parent.children, f.node)
	b.stack = append(b.stack, f)
}

// close pops scopes until one of the given kind has been popped. When no
// such scope is open, every scope above the File root is closed.
func (b *builder) close(number int, kind doctree.Kind) {
	for len(b.stack) > 1 {
		f := b.pop()
		if f.node.Kind() == kind {
			return
		}
	}
	b.diags = append(b.diags, doctree.Diagnostic{
		Line:    number,
		Message: fmt.Sprintf("end %s has no open %s scope", kind, kind),
	})
}

func (b *builder) pop() frame {
	f := b.top()
	b.stack = b.stack[:len(b.stack)-1]
	classify(f.node)
	return f
}

// declare routes a variable record to the current scope.
func (b *builder) declare(v *doctree.Variable) {
	switch n := b.top().node.(type) {
	case *doctree.Procedure:
		bindArgument(n, v)
		bindReturn(n, v)
	case *doctree.Module:
		n.Children = append(n.Children, v)
	case *doctree.Struct:
		n.Children = append(n.Children, v)
	}
}

// bindArgument fills the first unresolved argument named by v.
func bindArgument(p *doctree.Procedure, v *doctree.Variable) {
	for _, a := range p.Arguments {
		if a.Resolved || !strings.EqualFold(a.Name, v.Name) {
			continue
		}
		a.Resolved = true
		a.Type = v.Type
		a.Optional = v.Optional
		a.Description = v.Description
		if v.Optional {
			a.Description = strings.TrimSpace(optionalMarker + " " + v.Description)
		}
		return
	}
}

// optionalMarker prefixes the description of optional arguments.
const optionalMarker = "(optional)"

func bindReturn(p *doctree.Procedure, v *doctree.Variable) {
	if !p.IsFunction || p.Return != nil || !strings.EqualFold(p.ResultName, v.Name) {
		return
	}
	p.Return = &doctree.Return{Type: v.Type, Description: v.Description}
}

// finish classifies every scope still open and the root. Unterminated
// scopes are reported but kept in place.
func (b *builder) finish() (*doctree.File, []doctree.Diagnostic) {
	for i := len(b.stack) - 1; i > 0; i-- {
		f := b.stack[i]
		classify(f.node)
		b.diags = append(b.diags, doctree.Diagnostic{
			Line:    f.line,
			Message: fmt.Sprintf("%s %s is never closed", f.node.Kind(), doctree.NameOf(f.node)),
		})
	}
	b.stack = b.stack[:1]
	classify(b.root)
	return b.root, b.diags
}

// classify computes the derived sections of container nodes.
func classify(n doctree.Node) {
	switch c := n.(type) {
	case *doctree.File:
		c.Sections = doctree.Classify(c.Children)
	case *doctree.Module:
		c.Sections = doctree.Classify(c.Children)
	}
}
