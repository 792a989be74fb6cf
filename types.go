package embroider

import (
	"github.com/jward/embroider/internal/doctree"
	"github.com/jward/embroider/internal/grammar"
	"github.com/jward/embroider/internal/store"
)

// Public aliases for the internal types that appear in the Engine API.

type Grammar = grammar.Grammar
type GrammarEntry = grammar.Entry
type Headings = doctree.Headings
type Diagnostic = doctree.Diagnostic
type Tree = doctree.File
type Store = store.Store
type IndexedFile = store.File
type IndexedNode = store.NodeResult
type NodeQuery = store.NodeQuery
