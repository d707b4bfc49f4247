/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2024 Markus Stenberg
 *
 * Created:       Mon Feb 12 10:31:02 2024 mstenber
 * Last modified: Fri Mar 15 10:18:44 2024 mstenber
 * Edit time:     342 min
 *
 */

// bptree package provides a B+ tree that maps unique, ordered keys to
// opaque data pointers, with node persistence delegated to a
// location-addressed storage manager.
//
// Each tree lives in one logical storage file; the file's anchor
// location holds the location of the current root. The engine walks
// root to leaf through the manager, one call per node touched, and
// repairs ancestors bottom-up after leaf edits. It caches nothing and
// keeps no node in memory past the operation that loaded it.
//
// The engine is single-operation: concurrent writers must be
// serialized by the caller. A storage failure mid-operation is
// propagated as-is and may leave the tree structurally inconsistent;
// there is no rollback at this layer.
package bptree

import (
	"errors"
	"fmt"
	"log"

	"golang.org/x/exp/constraints"

	"github.com/fingon/go-bptree/mlog"
	"github.com/fingon/go-bptree/storage"
)

// ErrDuplicateKey is returned when inserting a key the tree already
// contains. The tree is left unchanged.
var ErrDuplicateKey = errors.New("duplicate key")

// ErrMissingKey is returned when deleting a key the tree does not
// contain. The tree is left unchanged.
var ErrMissingKey = errors.New("missing key")

// BPlusTree maps unique keys of type K to opaque data pointers of
// type P. P doubles as the storage manager's location type, as both
// data pointers and node locations live in the same pointer slots.
type BPlusTree[K constraints.Ordered, P comparable] struct {
	degree int
	sm     storage.Manager[P]
	fileID int
}

// NewBPlusTree creates a tree of the given degree (maximum pointer
// fan-out per node, at least 3) on top of sm, namespaced from other
// trees sharing the manager by fileName.
func NewBPlusTree[K constraints.Ordered, P comparable](degree int, sm storage.Manager[P], fileName string) *BPlusTree[K, P] {
	if degree < 3 {
		log.Panic("bptree: degree must be at least 3")
	}
	return &BPlusTree[K, P]{degree: degree, sm: sm, fileID: sm.FileID(fileName)}
}

func (self *BPlusTree[K, P]) Degree() int {
	return self.degree
}

// Root returns the pair referencing the current root, or nil if the
// tree is empty.
func (self *BPlusTree[K, P]) Root() (*NodePair[K, P], error) {
	o, err := self.sm.Get(self.fileID, self.sm.First())
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, nil
	}
	return self.pair(o.(P))
}

// Child returns the i'th child of a non-leaf node, or nil.
func (self *BPlusTree[K, P]) Child(n *NonLeafNode[K, P], i int) (Node[K, P], error) {
	p := n.Pointer(i)
	if p == nil {
		return nil, nil
	}
	o, err := self.sm.Get(self.fileID, *p)
	if err != nil || o == nil {
		return nil, err
	}
	return o.(Node[K, P]), nil
}

// pair loads the node at loc and couples it with loc.
func (self *BPlusTree[K, P]) pair(loc P) (*NodePair[K, P], error) {
	o, err := self.sm.Get(self.fileID, loc)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, nil
	}
	return &NodePair[K, P]{node: o.(Node[K, P]), loc: loc}, nil
}

// find descends from n to the leaf responsible for k, recording in
// parents the parent of every node visited on the way.
func (self *BPlusTree[K, P]) find(k K, n *NodePair[K, P], parents map[P]*NodePair[K, P]) (*NodePair[K, P], error) {
	nl, ok := n.node.(*NonLeafNode[K, P])
	if !ok {
		return n, nil
	}
	c, err := self.pair(*nl.Child(k))
	if err != nil {
		return nil, err
	}
	parents[c.loc] = n
	return self.find(k, c, parents)
}

// Insert adds k and its data pointer p to the tree. Duplicate keys
// are rejected before any mutation.
func (self *BPlusTree[K, P]) Insert(k K, p P) error {
	mlog.Printf2("bptree/bptree", "bt.Insert %v", k)
	root, err := self.Root()
	if err != nil {
		return err
	}
	if root == nil {
		l := NewLeafNode[K, P](self.degree)
		if err := l.Insert(k, p); err != nil {
			return err
		}
		return self.saveAsRoot(l)
	}
	parents := map[P]*NodePair[K, P]{}
	lp, err := self.find(k, root, parents)
	if err != nil {
		return err
	}
	leaf := lp.node.(*LeafNode[K, P])
	if leaf.Contains(k) {
		// no duplicate keys are allowed in the tree
		return fmt.Errorf("%w: %v", ErrDuplicateKey, k)
	}
	if !leaf.IsFull() {
		if err := leaf.Insert(k, p); err != nil {
			return err
		}
		return self.save(lp)
	}
	// The leaf is full and needs to be split. Build an oversized
	// scratch leaf holding everything plus the new pair, then deal
	// the halves back out.
	t := NewLeafNode[K, P](self.degree + 1)
	t.append(leaf.core(), 0, leaf.KeyCount())
	if err := t.Insert(k, p); err != nil {
		return err
	}
	right := NewLeafNode[K, P](self.degree)
	right.SetSuccessor(leaf.Successor())
	leaf.Clear()
	m := (self.degree + 1) / 2 // ceil(degree/2)
	leaf.append(t.core(), 0, m)
	right.append(t.core(), m, self.degree)
	rp, err := self.add(right)
	if err != nil {
		return err
	}
	loc := rp.loc
	leaf.SetSuccessor(&loc)
	if err := self.save(lp); err != nil {
		return err
	}
	// The right leaf keeps its first key; a copy of it separates
	// the two leaves in the parent.
	return self.insertInParent(lp, right.Key(0), rp, root, parents)
}

// insertInParent inserts separator k between the existing child n and
// its fresh right sibling np, splitting and recursing upward as
// needed.
func (self *BPlusTree[K, P]) insertInParent(n *NodePair[K, P], k K, np *NodePair[K, P], root *NodePair[K, P], parents map[P]*NodePair[K, P]) error {
	if n.loc == root.loc {
		// the tree grows a level
		mlog.Printf2("bptree/bptree", "bt.insertInParent new root, separator %v", k)
		r := NewNonLeafRoot(self.degree, n.loc, k, np.loc)
		return self.saveAsRoot(r)
	}
	pp := parents[n.loc]
	parent := pp.node.(*NonLeafNode[K, P])
	if !parent.IsFull() {
		parent.InsertAfter(k, np.loc, n.loc)
		return self.save(pp)
	}
	t := NewNonLeafNode[K, P](self.degree + 1)
	t.Copy(parent, 0, parent.KeyCount())
	t.InsertAfter(k, np.loc, n.loc)
	parent.Clear()
	sibling := NewNonLeafNode[K, P](self.degree)
	m := (self.degree + 1) / 2
	parent.Copy(t, 0, m-1)
	sibling.Copy(t, m, self.degree)
	sp, err := self.add(sibling)
	if err != nil {
		return err
	}
	if err := self.save(pp); err != nil {
		return err
	}
	// Unlike a leaf split, the middle key moves up rather than
	// staying duplicated in the right half.
	return self.insertInParent(pp, t.Key(m-1), sp, root, parents)
}

// Search returns the data pointer stored for k, or nil.
func (self *BPlusTree[K, P]) Search(k K) (*P, error) {
	root, err := self.Root()
	if err != nil || root == nil {
		return nil, err
	}
	parents := map[P]*NodePair[K, P]{}
	lp, err := self.find(k, root, parents)
	if err != nil {
		return nil, err
	}
	leaf := lp.node.(*LeafNode[K, P])
	i := leaf.indexOf(k)
	if i < 0 {
		return nil, nil
	}
	p := *leaf.Pointer(i)
	return &p, nil
}

// Scan calls fn for every key and data pointer in ascending key
// order, walking the leaf chain. fn returning false stops the scan.
func (self *BPlusTree[K, P]) Scan(fn func(k K, p P) bool) error {
	np, err := self.Root()
	if err != nil || np == nil {
		return err
	}
	for {
		nl, ok := np.node.(*NonLeafNode[K, P])
		if !ok {
			break
		}
		np, err = self.pair(*nl.Pointer(0))
		if err != nil {
			return err
		}
	}
	for {
		leaf := np.node.(*LeafNode[K, P])
		for i := 0; i < leaf.KeyCount(); i++ {
			if !fn(leaf.Key(i), *leaf.Pointer(i)) {
				return nil
			}
		}
		s := leaf.Successor()
		if s == nil {
			return nil
		}
		np, err = self.pair(*s)
		if err != nil {
			return err
		}
	}
}

// save persists the pair's node at its existing location.
func (self *BPlusTree[K, P]) save(n *NodePair[K, P]) error {
	_, err := self.sm.Put(self.fileID, n.loc, n.node)
	return err
}

// add persists n at a fresh location.
func (self *BPlusTree[K, P]) add(n Node[K, P]) (*NodePair[K, P], error) {
	loc, err := self.sm.Add(self.fileID, n)
	if err != nil {
		return nil, err
	}
	return &NodePair[K, P]{node: n, loc: loc}, nil
}

// saveAsRoot persists n at a fresh location and points the anchor at
// it.
func (self *BPlusTree[K, P]) saveAsRoot(n Node[K, P]) error {
	loc, err := self.sm.Add(self.fileID, n)
	if err != nil {
		return err
	}
	_, err = self.sm.Put(self.fileID, self.sm.First(), loc)
	return err
}
