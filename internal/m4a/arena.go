package m4a

import (
	"fmt"

	"github.com/simonhull/metanote/internal/binary"
	"github.com/simonhull/metanote/internal/types"
)

// noNode marks an absent arena index (no parent, no child, no sibling).
const noNode = -1

// Node is an atom inside a Tree. Children are reached through
// FirstChild and then the NextSibling chain, so rebuilding sizes after
// an edit is a plain bottom-up walk over a flat slice instead of
// scattered byte patching.
type Node struct {
	Atom
	Parent      int
	FirstChild  int
	NextSibling int
}

// Tree is the atom hierarchy of a whole file, parsed strictly: every
// container's children must tile its payload exactly, sizes must stay
// inside the parent, and a zero (to end of file) size is only legal for
// the last top-level atom. The write path refuses to touch a file whose
// tree does not hold together, so any violation is an AtomTreeError.
type Tree struct {
	Nodes []Node
	Size  int64
	path  string
	first int // first top-level node, noNode when the file is empty
}

// parseTree reads the complete atom hierarchy of a file.
func parseTree(sr *binary.SafeReader, size int64, path string) (*Tree, error) {
	t := &Tree{
		Size:  size,
		path:  path,
		first: noNode,
	}

	if err := t.walk(sr, noNode, 0, size, true); err != nil {
		return nil, err
	}

	return t, nil
}

// walk parses the atoms in [start, end) as children of parent,
// recursing into containers.
func (t *Tree) walk(sr *binary.SafeReader, parent int, start, end int64, topLevel bool) error {
	offset := start
	prev := noNode

	for offset < end {
		if end-offset < 8 {
			// QuickTime allows udta to end with a 32-bit zero terminator
			if end-offset == 4 && parent != noNode && t.Nodes[parent].Type == "udta" {
				term, err := binary.Read[uint32](sr, offset, "udta terminator")
				if err == nil && term == 0 {
					return nil
				}
			}
			return t.invalid(parentType(t, parent), fmt.Sprintf("%d trailing bytes at offset %d cannot hold an atom header", end-offset, offset))
		}

		atom, err := readAtomHeader(sr, offset)
		if err != nil {
			return &types.AtomTreeError{Path: t.path, Reason: err.Error()}
		}

		if atom.Size == 0 {
			// Only the last top-level atom may run to the end of the file
			if !topLevel {
				return t.invalid(atom.Type, fmt.Sprintf("zero-size atom at offset %d inside a container", offset))
			}
			atom.Size = uint64(end - atom.Offset)
		}

		if atom.End() > end {
			return t.invalid(atom.Type, fmt.Sprintf("atom at offset %d claims %d bytes but its container ends %d bytes earlier", offset, atom.Size, atom.End()-end))
		}

		idx := len(t.Nodes)
		t.Nodes = append(t.Nodes, Node{
			Atom:        *atom,
			Parent:      parent,
			FirstChild:  noNode,
			NextSibling: noNode,
		})

		switch {
		case prev != noNode:
			t.Nodes[prev].NextSibling = idx
		case parent != noNode:
			t.Nodes[parent].FirstChild = idx
		default:
			t.first = idx
		}
		prev = idx

		if atom.IsContainer() {
			childStart := atom.DataOffset()
			childEnd := atom.End()

			// meta carries four version/flags bytes before its children
			if atom.Type == "meta" {
				if atom.DataSize() < 4 {
					return t.invalid(atom.Type, fmt.Sprintf("meta atom at offset %d is too small for its version and flags", offset))
				}
				childStart += 4
			}

			if err := t.walk(sr, idx, childStart, childEnd, false); err != nil {
				return err
			}
		}

		offset = atom.End()
	}

	return nil
}

// invalid builds an AtomTreeError for this tree's file.
func (t *Tree) invalid(atom, reason string) error {
	return &types.AtomTreeError{Path: t.path, Atom: atom, Reason: reason}
}

// parentType names a node's type for error messages, or the whole file.
func parentType(t *Tree, parent int) string {
	if parent == noNode {
		return ""
	}
	return t.Nodes[parent].Type
}

// Find returns the first child of parent with the given type, walking
// the sibling chain. Pass noNode to search the top level.
func (t *Tree) Find(parent int, atomType string) int {
	idx := t.first
	if parent != noNode {
		idx = t.Nodes[parent].FirstChild
	}

	for idx != noNode {
		if t.Nodes[idx].Type == atomType {
			return idx
		}
		idx = t.Nodes[idx].NextSibling
	}

	return noNode
}

// FindPath descends from the top level through the named atom types,
// returning the final node or noNode when any link is missing.
func (t *Tree) FindPath(atomTypes ...string) int {
	idx := noNode
	for _, atomType := range atomTypes {
		idx = t.Find(idx, atomType)
		if idx == noNode {
			return noNode
		}
	}
	return idx
}

// Children collects a node's direct children in file order.
func (t *Tree) Children(parent int) []int {
	var children []int
	idx := t.first
	if parent != noNode {
		idx = t.Nodes[parent].FirstChild
	}
	for idx != noNode {
		children = append(children, idx)
		idx = t.Nodes[idx].NextSibling
	}
	return children
}
