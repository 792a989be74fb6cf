package store

import "time"

// File is one processed source file.
type File struct {
	ID            int64
	Path          string
	Grammar       string
	Hash          string
	Output        string
	LastProcessed time.Time
}

// KindArgument tags the rows recorded for procedure arguments, which are not
// tree nodes in their own right.
const KindArgument = "argument"

// Node is one flattened declaration. Kind holds a doctree kind name or
// KindArgument.
type Node struct {
	ID          int64
	FileID      int64
	ParentID    *int64
	Kind        string
	Name        string
	Declaration string
	Description string
	Type        string
	Value       string
	// Ordinal is the position among the node's siblings.
	Ordinal int
}

// NodeResult is a node joined with the path of its file.
type NodeResult struct {
	Node
	Path string
}

// NodeQuery narrows SearchNodes. Empty fields match everything. Name is a
// glob pattern (`*`, `?`) matched case-insensitively.
type NodeQuery struct {
	Kind  string
	Name  string
	Path  string
	Limit int
}
