package store

import (
	"strings"

	"github.com/jward/embroider/internal/doctree"
)

// Batch buffers the index rows for one file so a worker can build them
// without touching the database. Node IDs are fake (negative) until
// CommitBatch assigns real ones.
type Batch struct {
	File  File
	Nodes []Node

	nextFakeID int64 // starts at -1, decrements
}

// NewBatch flattens tree into rows for f, in source order. Each procedure's
// arguments are recorded as KindArgument children.
func NewBatch(f File, tree *doctree.File) *Batch {
	b := &Batch{File: f, nextFakeID: -1}
	b.addChildren(nil, doctree.ChildrenOf(tree))
	return b
}

func (b *Batch) allocFakeID() int64 {
	id := b.nextFakeID
	b.nextFakeID--
	return id
}

func (b *Batch) addChildren(parent *int64, children []doctree.Node) {
	for i, c := range children {
		id := b.add(parent, i, c)
		if p, ok := c.(*doctree.Procedure); ok {
			for j, a := range p.Arguments {
				b.Nodes = append(b.Nodes, Node{
					ID:          b.allocFakeID(),
					ParentID:    &id,
					Kind:        KindArgument,
					Name:        a.Name,
					Description: a.Description,
					Type:        a.Type,
					Ordinal:     j,
				})
			}
		}
		b.addChildren(&id, doctree.ChildrenOf(c))
	}
}

func (b *Batch) add(parent *int64, ordinal int, n doctree.Node) int64 {
	h := doctree.HeaderOf(n)
	row := Node{
		ID:          b.allocFakeID(),
		ParentID:    parent,
		Kind:        n.Kind().String(),
		Name:        h.Name,
		Declaration: h.Declaration,
		Description: h.Description,
		Ordinal:     ordinal,
	}
	switch v := n.(type) {
	case *doctree.Variable:
		row.Type = v.Type
		row.Value = v.Value
	case *doctree.Procedure:
		if v.Return != nil {
			row.Type = v.Return.Type
		}
		if v.Notes != "" {
			row.Description = strings.TrimSpace(row.Description + "\n" + v.Notes)
		}
	}
	b.Nodes = append(b.Nodes, row)
	return row.ID
}
