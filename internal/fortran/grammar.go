// Package fortran recognizes the declarations of well-formed free-format
// Fortran and assembles them into a doctree.
//
// Recognition is line based. Modules, subroutines, functions, interfaces
// and derived types need at least partially explicit end statements
// ("end module" rather than a bare "end"), and argument declarations must
// use the "::" form. Fixed-format source is not supported.
package fortran

import "github.com/jward/embroider/internal/doctree"

// Grammar plugs the Fortran free-format parser into a grammar registry.
type Grammar struct{}

func (Grammar) Name() string { return "Fortran Free-Format" }

func (Grammar) Extensions() []string { return []string{".f90", ".f03", ".f08"} }

func (Grammar) Headings() doctree.Headings {
	return doctree.Headings{
		Constants:  "Parameters",
		Structs:    "Derived Types",
		Procedures: "Procedures",
	}
}

func (Grammar) Parse(src string) (*doctree.File, []doctree.Diagnostic) {
	return Parse(src)
}
