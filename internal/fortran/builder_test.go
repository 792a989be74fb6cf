package fortran

import (
	"fmt"
	"strings"
	"testing"

	"github.com/jward/embroider/internal/doctree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func depth(n doctree.Node) int {
	deepest := 0
	doctree.Walk(n, func(_ doctree.Node, d int) bool {
		if d > deepest {
			deepest = d
		}
		return true
	})
	return deepest
}

func TestParse_BalancedNesting(t *testing.T) {
	t.Parallel()

	src := strings.Join([]string{
		"module outer",
		"  interface api",
		"    subroutine step(x)",
		"      function inner(y)",
		"      end function inner",
		"    end subroutine step",
		"  end interface api",
		"end module outer",
	}, "\n")

	file, diags := Parse(src)
	assert.Empty(t, diags)
	assert.Equal(t, 4, depth(file))

	require.Len(t, file.Children, 1)
	mod := file.Children[0].(*doctree.Module)
	assert.Equal(t, "outer", mod.Name)
	iface := mod.Children[0].(*doctree.Interface)
	assert.Equal(t, "api", iface.Name)
	sub := iface.Children[0].(*doctree.Procedure)
	assert.Equal(t, doctree.KindSubroutine, sub.Kind())
	fn := sub.Children[0].(*doctree.Procedure)
	assert.Equal(t, doctree.KindFunction, fn.Kind())
	assert.Equal(t, "inner", fn.Name)
}

func TestParse_DeepNestingDepth(t *testing.T) {
	t.Parallel()

	const n = 500
	var b strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "subroutine s%d()\n", i)
	}
	for i := n - 1; i >= 0; i-- {
		fmt.Fprintf(&b, "end subroutine s%d\n", i)
	}

	file, diags := Parse(b.String())
	assert.Empty(t, diags)
	assert.Equal(t, n, depth(file))
}

func TestParse_GracefulMismatch(t *testing.T) {
	t.Parallel()

	src := strings.Join([]string{
		"module m",
		"  subroutine a()",
		"  end function a",
		"  subroutine after()",
		"  end subroutine after",
	}, "\n")

	file, diags := Parse(src)

	// The unmatched closer force-closes both a and m, so "after" lands at
	// file level.
	require.Len(t, file.Children, 2)
	mod := file.Children[0].(*doctree.Module)
	require.Len(t, mod.Children, 1)
	assert.Equal(t, "a", mod.Children[0].(*doctree.Procedure).Name)
	assert.Len(t, mod.Sections.Procedures, 1, "force-closed module is classified")

	after := file.Children[1].(*doctree.Procedure)
	assert.Equal(t, "after", after.Name)
	assert.Len(t, file.Sections.Procedures, 1)
	assert.Len(t, file.Sections.Containers, 1)

	require.Len(t, diags, 1)
	assert.Equal(t, 3, diags[0].Line)
	assert.Contains(t, diags[0].Message, "end function")
}

func TestParse_MismatchClosesToNearestAncestor(t *testing.T) {
	t.Parallel()

	src := strings.Join([]string{
		"module m",
		"  interface i",
		"    subroutine a()",
		"  end interface i",
		"  subroutine b()",
		"  end subroutine b",
		"end module m",
	}, "\n")

	file, diags := Parse(src)
	assert.Empty(t, diags)

	mod := file.Children[0].(*doctree.Module)
	require.Len(t, mod.Children, 2)
	assert.Equal(t, "i", mod.Children[0].(*doctree.Interface).Name)
	assert.Equal(t, "b", mod.Children[1].(*doctree.Procedure).Name)
}

func TestParse_CloserWithNothingOpen(t *testing.T) {
	t.Parallel()

	file, diags := Parse("end module nothing\nsubroutine s()\nend subroutine s")
	require.Len(t, file.Children, 1)
	require.Len(t, diags, 1)
	assert.Equal(t, 1, diags[0].Line)
}

func TestParse_BareEndIsNotACloser(t *testing.T) {
	t.Parallel()

	file, diags := Parse("subroutine s()\nend\nsubroutine t()\nend subroutine t\nend subroutine s")
	assert.Empty(t, diags)
	require.Len(t, file.Children, 1)
	s := file.Children[0].(*doctree.Procedure)
	require.Len(t, s.Children, 1)
	assert.Equal(t, "t", s.Children[0].(*doctree.Procedure).Name)
}

func TestParse_AssignmentToEndNamedVariable(t *testing.T) {
	t.Parallel()

	src := strings.Join([]string{
		"type point",
		"  real :: x",
		"  endtype = 1",
		"  real :: y",
		"end type point",
		"subroutine s(endfunction)",
		"  integer :: endfunction",
		"  endfunction = 2",
		"end subroutine s",
	}, "\n")

	file, diags := Parse(src)
	assert.Empty(t, diags)
	require.Len(t, file.Children, 2)

	pt := file.Children[0].(*doctree.Struct)
	require.Len(t, pt.Children, 2)
	assert.Equal(t, "x", pt.Children[0].(*doctree.Variable).Name)
	assert.Equal(t, "y", pt.Children[1].(*doctree.Variable).Name)

	s := file.Children[1].(*doctree.Procedure)
	assert.Equal(t, "s", s.Name)
	require.Len(t, s.Arguments, 1)
	assert.Equal(t, "integer", s.Arguments[0].Type)
}

func TestParse_CommentAttachment(t *testing.T) {
	t.Parallel()

	src := strings.Join([]string{
		"! Integrates f",
		"!   over [a, b]",
		"!! using Simpson's rule",
		"subroutine integrate(f, a, b)",
		"end subroutine integrate",
	}, "\n")

	file, _ := Parse(src)
	p := file.Children[0].(*doctree.Procedure)
	assert.Equal(t, "Integrates f\nover [a, b]\nusing Simpson's rule", p.Description)
}

func TestParse_IndentedCommentRun(t *testing.T) {
	t.Parallel()

	src := strings.Join([]string{
		"module m",
		"contains",
		"  ! Adds two numbers",
		"\t!   carefully  ",
		"  subroutine add(a, b)",
		"    ! left operand",
		"    integer :: a",
		"    integer :: b",
		"  end subroutine add",
		"end module m",
	}, "\n")

	file, _ := Parse(src)
	p := file.Children[0].(*doctree.Module).Children[0].(*doctree.Procedure)
	assert.Equal(t, "Adds two numbers\ncarefully", p.Description)
	require.Len(t, p.Arguments, 2)
	assert.Equal(t, "left operand", p.Arguments[0].Description)
	assert.Empty(t, p.Arguments[1].Description)
}

func TestParse_CommentRunBeforePlainLineIsDiscarded(t *testing.T) {
	t.Parallel()

	src := strings.Join([]string{
		"! stray remark",
		"implicit none",
		"subroutine s()",
		"end subroutine s",
		"! another",
		"",
		"function f()",
		"end function f",
	}, "\n")

	file, _ := Parse(src)
	require.Len(t, file.Children, 2)
	assert.Empty(t, file.Children[0].(*doctree.Procedure).Description)
	assert.Empty(t, file.Children[1].(*doctree.Procedure).Description)
}

func TestParse_ArgumentBackfill(t *testing.T) {
	t.Parallel()

	src := strings.Join([]string{
		"subroutine foo(x, y)",
		"  integer :: x",
		"  real, optional :: y ! note",
		"  integer :: x ! conflicting redeclaration",
		"end subroutine foo",
	}, "\n")

	file, _ := Parse(src)
	p := file.Children[0].(*doctree.Procedure)
	require.Len(t, p.Arguments, 2)

	x, y := p.Arguments[0], p.Arguments[1]
	assert.Equal(t, "x", x.Name)
	assert.Equal(t, "integer", x.Type)
	assert.Empty(t, x.Description, "first match wins")
	assert.False(t, x.Optional)

	assert.Equal(t, "y", y.Name)
	assert.Equal(t, "real", y.Type)
	assert.True(t, y.Optional)
	assert.True(t, strings.HasPrefix(y.Description, optionalMarker))
	assert.Equal(t, "(optional) note", y.Description)

	assert.Nil(t, p.Children, "argument declarations are not children")
}

func TestParse_ArgumentsUnresolvedStayEmpty(t *testing.T) {
	t.Parallel()

	file, _ := Parse("subroutine s(a, b)\n  integer :: a\nend subroutine s")
	p := file.Children[0].(*doctree.Procedure)
	assert.Equal(t, "integer", p.Arguments[0].Type)
	assert.Empty(t, p.Arguments[1].Type)
	assert.False(t, p.Arguments[1].Resolved)
}

func TestParse_ArgumentDescriptionFromPrecedingComment(t *testing.T) {
	t.Parallel()

	src := strings.Join([]string{
		"subroutine s(n, tol)",
		"  ! number of points",
		"  integer, intent(in) :: n",
		"  real, optional :: tol ! tolerance",
		"end subroutine s",
	}, "\n")

	file, _ := Parse(src)
	p := file.Children[0].(*doctree.Procedure)
	assert.Equal(t, "number of points", p.Arguments[0].Description)
	assert.Equal(t, "integer, intent(in)", p.Arguments[0].Type)
	assert.Equal(t, "(optional) tolerance", p.Arguments[1].Description)
}

func TestParse_ReturnResolution(t *testing.T) {
	t.Parallel()

	src := strings.Join([]string{
		"function bar(z) result(w)",
		"  real :: z",
		"  real :: w ! the answer",
		"end function bar",
		"function baz(q)",
		"  integer :: baz",
		"  integer :: q",
		"end function baz",
		"function none(q)",
		"  integer :: q",
		"end function none",
	}, "\n")

	file, _ := Parse(src)
	require.Len(t, file.Children, 3)

	bar := file.Children[0].(*doctree.Procedure)
	require.NotNil(t, bar.Return)
	assert.Equal(t, "real", bar.Return.Type)
	assert.Equal(t, "the answer", bar.Return.Description)

	baz := file.Children[1].(*doctree.Procedure)
	require.NotNil(t, baz.Return)
	assert.Equal(t, "integer", baz.Return.Type)

	assert.Nil(t, file.Children[2].(*doctree.Procedure).Return)
}

func TestParse_SubroutineHasNoReturn(t *testing.T) {
	t.Parallel()

	file, _ := Parse("subroutine s(x)\n  real :: s\nend subroutine s")
	assert.Nil(t, file.Children[0].(*doctree.Procedure).Return)
}

func TestParse_CaseInsensitiveBinding(t *testing.T) {
	t.Parallel()

	file, _ := Parse("FUNCTION Norm(V)\n  REAL :: v(3)\n  REAL :: NORM\nEND FUNCTION")
	p := file.Children[0].(*doctree.Procedure)
	assert.Equal(t, "REAL", p.Arguments[0].Type)
	require.NotNil(t, p.Return)
	assert.Equal(t, "REAL", p.Return.Type)
}

func TestParse_ModuleSections(t *testing.T) {
	t.Parallel()

	src := strings.Join([]string{
		"! Physical constants",
		"module physics",
		"  ! speed of light",
		"  real, parameter :: c = 2.998e8",
		"  integer :: counter",
		"  ! A point in space",
		"  type :: point",
		"    real :: x, y ! coordinates",
		"  end type point",
		"  interface norm",
		"    module procedure norm2",
		"  end interface norm",
		"  interface",
		"    subroutine callback(x)",
		"    end subroutine callback",
		"  end interface",
		"contains",
		"  subroutine reset()",
		"  end subroutine reset",
		"end module physics",
	}, "\n")

	file, diags := Parse(src)
	assert.Empty(t, diags)
	require.Len(t, file.Sections.Containers, 1)
	assert.Nil(t, file.Sections.Procedures)

	mod := file.Sections.Containers[0]
	assert.Equal(t, "Physical constants", mod.Description)
	assert.Equal(t, "module physics", mod.Declaration)

	require.Len(t, mod.Sections.Constants, 1)
	c := mod.Sections.Constants[0]
	assert.Equal(t, "c", c.Name)
	assert.Equal(t, "real", c.Type)
	assert.Equal(t, "2.998e8", c.Value)
	assert.Equal(t, "speed of light", c.Description)

	require.Len(t, mod.Sections.Structs, 1)
	pt := mod.Sections.Structs[0]
	assert.Equal(t, "A point in space", pt.Description)
	require.Len(t, pt.Children, 2)
	assert.Equal(t, "x", pt.Children[0].(*doctree.Variable).Name)
	assert.Equal(t, "coordinates", pt.Children[1].(*doctree.Variable).Description)

	require.Len(t, mod.Sections.Procedures, 2, "named interface and reset")
	assert.Equal(t, "norm", mod.Sections.Procedures[0].(*doctree.Interface).Name)
	assert.Equal(t, "reset", mod.Sections.Procedures[1].(*doctree.Procedure).Name)
	assert.Nil(t, mod.Sections.Containers)

	// The plain variable is a child but belongs to no section.
	var plain int
	for _, ch := range mod.Children {
		if v, ok := ch.(*doctree.Variable); ok && !v.Parameter {
			plain++
		}
	}
	assert.Equal(t, 1, plain)
}

func TestParse_EmptySectionsAreAbsent(t *testing.T) {
	t.Parallel()

	file, _ := Parse("module m\ncontains\n  subroutine s()\n  end subroutine s\nend module m")
	mod := file.Sections.Containers[0]
	assert.Nil(t, mod.Sections.Constants)
	assert.Nil(t, mod.Sections.Structs)
	assert.Nil(t, mod.Sections.Containers)
	assert.Len(t, mod.Sections.Procedures, 1)
}

func TestParse_UnterminatedInputIsClassified(t *testing.T) {
	t.Parallel()

	file, diags := Parse("module m\n  integer, parameter :: n = 3\n  subroutine s()")
	mod := file.Children[0].(*doctree.Module)
	assert.Len(t, mod.Sections.Constants, 1)
	assert.Len(t, mod.Sections.Procedures, 1)
	require.Len(t, diags, 2)
	assert.Equal(t, 3, diags[0].Line)
	assert.Equal(t, 1, diags[1].Line)
}

func TestParse_ClassificationIsIdempotent(t *testing.T) {
	t.Parallel()

	file, _ := Parse("module m\n  real, parameter :: a = 1\n  type t\n  end type t\nend module m")
	mod := file.Children[0].(*doctree.Module)
	before := mod.Sections
	classify(mod)
	assert.Equal(t, before, mod.Sections)
}

func TestParse_ContinuationLines(t *testing.T) {
	t.Parallel()

	src := strings.Join([]string{
		"subroutine solve(a, b, &",
		"                 ! inline remark between pieces",
		"                 & c)",
		"  real, intent(in) :: a, &",
		"                      b, c ! inputs",
		"end subroutine solve",
	}, "\n")

	file, _ := Parse(src)
	p := file.Children[0].(*doctree.Procedure)
	assert.Equal(t, "subroutine solve(a, b, c)", p.Declaration)
	require.Len(t, p.Arguments, 3)
	for _, a := range p.Arguments {
		assert.Equal(t, "real, intent(in)", a.Type, a.Name)
		assert.Equal(t, "inputs", a.Description, a.Name)
	}
}

func TestParse_NotesFromTrailingComment(t *testing.T) {
	t.Parallel()

	file, _ := Parse("subroutine s() ! deprecated, use t\nend subroutine s")
	assert.Equal(t, "deprecated, use t", file.Children[0].(*doctree.Procedure).Notes)
}

func TestParse_MalformedInputNeverPanics(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"",
		"\n\n\n",
		"end interface\nend type\nend module\nend function\nend subroutine",
		"subroutine (\nfunction\nmodule\ntype ::\ninterface",
		"integer :: \n:: ::\nreal, parameter :: = 3",
		"!\n!\n!",
		"subroutine s(a, &",
		"\r\nmodule m\r\nend module m\r\n",
	}
	for _, src := range inputs {
		assert.NotPanics(t, func() {
			file, _ := Parse(src)
			require.NotNil(t, file)
		}, "input %q", src)
	}
}

func TestParse_IndependentParsesDoNotShareState(t *testing.T) {
	t.Parallel()

	// A dangling comment run at the end of one file must not leak into
	// the next parse.
	Parse("! leaked?")
	file, _ := Parse("subroutine s()\nend subroutine s")
	assert.Empty(t, file.Children[0].(*doctree.Procedure).Description)
}

func TestGrammar(t *testing.T) {
	t.Parallel()

	var g Grammar
	assert.Equal(t, "Fortran Free-Format", g.Name())
	assert.Equal(t, []string{".f90", ".f03", ".f08"}, g.Extensions())
	h := g.Headings()
	assert.Equal(t, "Parameters", h.Constants)
	assert.Equal(t, "Derived Types", h.Structs)
	assert.Equal(t, "Procedures", h.Procedures)
	assert.Empty(t, h.Containers)

	file, _ := g.Parse("module m\nend module m")
	assert.Len(t, file.Children, 1)
}
