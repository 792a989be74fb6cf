package doctree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind Kind
		want string
	}{
		{KindFile, "file"},
		{KindModule, "module"},
		{KindSubroutine, "subroutine"},
		{KindFunction, "function"},
		{KindInterface, "interface"},
		{KindStruct, "type"},
		{KindVariable, "variable"},
		{Kind(42), "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.kind.String())
	}
}

func TestParseKind_RoundTrip(t *testing.T) {
	t.Parallel()
	for k := KindFile; k <= KindVariable; k++ {
		got, ok := ParseKind(k.String())
		require.True(t, ok, k.String())
		assert.Equal(t, k, got)
	}
	_, ok := ParseKind("program")
	assert.False(t, ok)
}

func TestProcedureKind(t *testing.T) {
	t.Parallel()
	assert.Equal(t, KindSubroutine, (&Procedure{}).Kind())
	assert.Equal(t, KindFunction, (&Procedure{IsFunction: true}).Kind())
}

func TestClassify_Partitions(t *testing.T) {
	t.Parallel()

	sub := &Procedure{Header: Header{Name: "s"}}
	fn := &Procedure{Header: Header{Name: "f"}, IsFunction: true}
	named := &Interface{Header: Header{Name: "swap"}}
	unnamed := &Interface{}
	pi := &Variable{Name: "pi", Parameter: true}
	counter := &Variable{Name: "counter"}
	point := &Struct{Header: Header{Name: "point"}}
	inner := &Module{Header: Header{Name: "inner"}}

	s := Classify([]Node{sub, pi, counter, point, fn, named, unnamed, inner})

	assert.Equal(t, []Node{sub, fn, named}, s.Procedures)
	assert.Equal(t, []*Variable{pi}, s.Constants)
	assert.Equal(t, []*Struct{point}, s.Structs)
	assert.Equal(t, []*Module{inner}, s.Containers)
}

func TestClassify_EmptyGroupsAreNil(t *testing.T) {
	t.Parallel()

	s := Classify([]Node{&Variable{Name: "x"}})
	assert.Nil(t, s.Procedures)
	assert.Nil(t, s.Constants)
	assert.Nil(t, s.Structs)
	assert.Nil(t, s.Containers)
	assert.True(t, s.Empty())

	assert.True(t, Classify(nil).Empty())
}

func TestClassify_Idempotent(t *testing.T) {
	t.Parallel()

	children := []Node{
		&Procedure{Header: Header{Name: "a"}},
		&Variable{Name: "k", Parameter: true},
		&Struct{Header: Header{Name: "t"}},
	}
	first := Classify(children)
	second := Classify(children)
	assert.Equal(t, first, second)
}

func TestHeadingsMerge(t *testing.T) {
	t.Parallel()

	h := Headings{Constants: "Parameters"}.Merge(DefaultHeadings())
	assert.Equal(t, "Parameters", h.Constants)
	assert.Equal(t, "Structs/Unions", h.Structs)
	assert.Equal(t, "Modules", h.Containers)
	assert.Equal(t, "Procedures", h.Procedures)
}

func TestWalk_DepthFirstSourceOrder(t *testing.T) {
	t.Parallel()

	leaf := &Variable{Name: "x"}
	proc := &Procedure{Header: Header{Name: "p"}}
	mod := &Module{Header: Header{Name: "m"}, Children: []Node{proc, leaf}}
	root := &File{Children: []Node{mod, &Struct{Header: Header{Name: "t"}}}}

	var names []string
	var depths []int
	Walk(root, func(n Node, depth int) bool {
		names = append(names, n.Kind().String()+":"+NameOf(n))
		depths = append(depths, depth)
		return true
	})
	assert.Equal(t, []string{"file:", "module:m", "subroutine:p", "variable:x", "type:t"}, names)
	assert.Equal(t, []int{0, 1, 2, 2, 1}, depths)
}

func TestWalk_SkipSubtree(t *testing.T) {
	t.Parallel()

	mod := &Module{Header: Header{Name: "m"}, Children: []Node{&Procedure{Header: Header{Name: "p"}}}}
	root := &File{Children: []Node{mod}}

	var count int
	Walk(root, func(n Node, depth int) bool {
		count++
		return n.Kind() != KindModule
	})
	assert.Equal(t, 2, count)
}

func TestHeaderOf(t *testing.T) {
	t.Parallel()

	v := &Variable{Name: "x", Description: "d"}
	assert.Equal(t, Header{Name: "x", Description: "d"}, HeaderOf(v))
	assert.Equal(t, Header{}, HeaderOf(&File{}))

	m := &Module{Header: Header{Name: "m", Declaration: "module m"}}
	assert.Equal(t, "module m", HeaderOf(m).Declaration)
	assert.Nil(t, ChildrenOf(v))
}
