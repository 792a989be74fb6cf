package doctree

// Sections is the derived view of a container's children, grouped for
// rendering. Each slice is nil when the group is empty so renderers can skip
// the heading. The slices alias nodes owned by Children.
type Sections struct {
	// Procedures holds subroutines, functions and named interfaces.
	Procedures []Node
	Constants  []*Variable
	Structs    []*Struct
	Containers []*Module
}

// Empty reports whether every group is absent.
func (s Sections) Empty() bool {
	return s.Procedures == nil && s.Constants == nil && s.Structs == nil && s.Containers == nil
}

// Classify partitions children into Sections. It is a pure function of its
// input. Plain (non-parameter) variables and unnamed interfaces belong to no
// group.
func Classify(children []Node) Sections {
	var s Sections
	for _, c := range children {
		switch v := c.(type) {
		case *Module:
			s.Containers = append(s.Containers, v)
		case *Procedure:
			s.Procedures = append(s.Procedures, v)
		case *Interface:
			if v.Name != "" {
				s.Procedures = append(s.Procedures, v)
			}
		case *Variable:
			if v.Parameter {
				s.Constants = append(s.Constants, v)
			}
		case *Struct:
			s.Structs = append(s.Structs, v)
		}
	}
	return s
}

// Headings are the section labels a renderer uses for container groups.
type Headings struct {
	Constants  string
	Structs    string
	Containers string
	Procedures string
}

// DefaultHeadings returns the labels used when a grammar sets none.
func DefaultHeadings() Headings {
	return Headings{
		Constants:  "Constants",
		Structs:    "Structs/Unions",
		Containers: "Modules",
		Procedures: "Procedures",
	}
}

// Merge returns h with every empty label taken from fallback.
func (h Headings) Merge(fallback Headings) Headings {
	if h.Constants == "" {
		h.Constants = fallback.Constants
	}
	if h.Structs == "" {
		h.Structs = fallback.Structs
	}
	if h.Containers == "" {
		h.Containers = fallback.Containers
	}
	if h.Procedures == "" {
		h.Procedures = fallback.Procedures
	}
	return h
}
