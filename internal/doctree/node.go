// Package doctree defines the declaration tree produced by grammar parsers
// and consumed by renderers.
//
// The node set is closed: File, Module, Procedure, Interface, Struct and
// Variable are the only implementations of Node. A nil Children slice means
// the node has no children; parsers never store an empty non-nil slice.
package doctree

// Kind identifies the concrete type of a Node.
type Kind int

const (
	KindFile Kind = iota
	KindModule
	KindSubroutine
	KindFunction
	KindInterface
	KindStruct
	KindVariable
)

var kindNames = [...]string{
	KindFile:       "file",
	KindModule:     "module",
	KindSubroutine: "subroutine",
	KindFunction:   "function",
	KindInterface:  "interface",
	KindStruct:     "type",
	KindVariable:   "variable",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, bool) {
	for i, name := range kindNames {
		if name == s {
			return Kind(i), true
		}
	}
	return 0, false
}

// Node is implemented by every element of the tree.
type Node interface {
	Kind() Kind
	node()
}

// Header carries the fields shared by all declared (non-synthesized) nodes.
type Header struct {
	Name string
	// Declaration is the trimmed source line that opened the scope.
	Declaration string
	// Description is the comment run immediately preceding the declaration.
	Description string
}

// File is the synthetic root of one parsed source file.
type File struct {
	Children []Node
	Sections Sections
}

// Module is a named container scope.
type Module struct {
	Header
	Children []Node
	Sections Sections
}

// Procedure is a subroutine or function.
type Procedure struct {
	Header
	IsFunction bool
	Arguments  []*Argument
	// ResultName is the resolved return-variable name. Functions only.
	ResultName string
	// Return is set only when a declaration matched ResultName.
	Return *Return
	// Notes holds a trailing comment on the declaration line.
	Notes    string
	Children []Node
}

// Argument is one dummy argument of a procedure, in declaration order.
type Argument struct {
	Name        string
	Type        string
	Description string
	Optional    bool
	// Resolved reports whether a declaration has already filled Type.
	Resolved bool
}

// Return describes a function's result variable.
type Return struct {
	Type        string
	Description string
}

// Interface is a generic or abstract interface block. Name is empty for
// unnamed blocks.
type Interface struct {
	Header
	Children []Node
}

// Struct is a derived type. Its children are fields.
type Struct struct {
	Header
	Children []Node
}

// Variable is a declared variable, field or named constant.
type Variable struct {
	Name        string
	Type        string
	Value       string
	Description string
	Parameter   bool
	Optional    bool
}

func (*File) Kind() Kind      { return KindFile }
func (*Module) Kind() Kind    { return KindModule }
func (*Interface) Kind() Kind { return KindInterface }
func (*Struct) Kind() Kind    { return KindStruct }
func (*Variable) Kind() Kind  { return KindVariable }

func (p *Procedure) Kind() Kind {
	if p.IsFunction {
		return KindFunction
	}
	return KindSubroutine
}

func (*File) node()      {}
func (*Module) node()    {}
func (*Procedure) node() {}
func (*Interface) node() {}
func (*Struct) node()    {}
func (*Variable) node()  {}

// NameOf returns the identifier of n, or "" for the File root.
func NameOf(n Node) string {
	switch v := n.(type) {
	case *Module:
		return v.Name
	case *Procedure:
		return v.Name
	case *Interface:
		return v.Name
	case *Struct:
		return v.Name
	case *Variable:
		return v.Name
	}
	return ""
}

// HeaderOf returns the declaration header of n. Variables and the File root
// have no declaration line, so only Name and Description are populated.
func HeaderOf(n Node) Header {
	switch v := n.(type) {
	case *Module:
		return v.Header
	case *Procedure:
		return v.Header
	case *Interface:
		return v.Header
	case *Struct:
		return v.Header
	case *Variable:
		return Header{Name: v.Name, Description: v.Description}
	}
	return Header{}
}

// ChildrenOf returns the ordered children of n. Variables have none.
func ChildrenOf(n Node) []Node {
	switch v := n.(type) {
	case *File:
		return v.Children
	case *Module:
		return v.Children
	case *Procedure:
		return v.Children
	case *Interface:
		return v.Children
	case *Struct:
		return v.Children
	}
	return nil
}

// Walk visits n and its descendants depth-first in source order. The
// callback receives the depth (0 for n) and may return false to skip the
// node's subtree. Walk uses an explicit stack, so nesting depth is bounded
// only by memory.
func Walk(n Node, fn func(n Node, depth int) bool) {
	type item struct {
		n     Node
		depth int
	}
	stack := []item{{n, 0}}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(it.n, it.depth) {
			continue
		}
		children := ChildrenOf(it.n)
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, item{children[i], it.depth + 1})
		}
	}
}

// Diagnostic reports a recoverable irregularity found while parsing.
type Diagnostic struct {
	// Line is 1-based.
	Line    int
	Message string
}
