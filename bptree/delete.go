/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2024 Markus Stenberg
 *
 * Created:       Wed Feb 14 09:21:17 2024 mstenber
 * Last modified: Fri Mar 15 10:22:31 2024 mstenber
 * Edit time:     187 min
 *
 */

package bptree

import (
	"fmt"
	"log"

	"github.com/fingon/go-bptree/mlog"
)

// Delete removes k and its data pointer from the tree. A key not
// present is rejected before any mutation. Under-utilized nodes are
// repaired bottom-up by redistribution or merging; merged-away node
// locations are reported to the storage manager for reclamation.
func (self *BPlusTree[K, P]) Delete(k K) error {
	mlog.Printf2("bptree/delete", "bt.Delete %v", k)
	root, err := self.Root()
	if err != nil {
		return err
	}
	if root == nil {
		return fmt.Errorf("%w: %v", ErrMissingKey, k)
	}
	parents := map[P]*NodePair[K, P]{}
	lp, err := self.find(k, root, parents)
	if err != nil {
		return err
	}
	leaf := lp.node.(*LeafNode[K, P])
	if err := leaf.Remove(k); err != nil {
		return err
	}
	if err := self.save(lp); err != nil {
		return err
	}
	return self.repair(lp, root, parents)
}

// repair restores the minimum-occupancy invariant at np, recursing
// upward when a merge shrinks the parent.
func (self *BPlusTree[K, P]) repair(np, root *NodePair[K, P], parents map[P]*NodePair[K, P]) error {
	if np.loc == root.loc {
		return self.shrinkRoot(np)
	}
	if !np.node.IsUnderUtilized() {
		return nil
	}
	pp := parents[np.loc]
	parent := pp.node.(*NonLeafNode[K, P])
	i := parent.ChildIndex(np.loc)
	if i < 0 {
		log.Panic("bptree: node not found among parent's children")
	}
	// Prefer the left sibling, so a merge always absorbs rightward
	// and the leaf chain stays intact.
	var left, right *NodePair[K, P]
	var sep int
	if i > 0 {
		sp, err := self.pair(*parent.Pointer(i - 1))
		if err != nil {
			return err
		}
		left, right, sep = sp, np, i-1
	} else {
		sp, err := self.pair(*parent.Pointer(i + 1))
		if err != nil {
			return err
		}
		left, right, sep = np, sp, i
	}
	if left.node.Mergeable(right.node) {
		return self.merge(left, right, pp, sep, root, parents)
	}
	return self.redistribute(left, right, pp, sep, np)
}

// merge folds right into left, splices right out of the parent and
// frees its location. The parent lost a separator, so the repair
// continues there.
func (self *BPlusTree[K, P]) merge(left, right, pp *NodePair[K, P], sep int, root *NodePair[K, P], parents map[P]*NodePair[K, P]) error {
	mlog.Printf2("bptree/delete", "bt.merge %v <- %v", left.loc, right.loc)
	parent := pp.node.(*NonLeafNode[K, P])
	switch ln := left.node.(type) {
	case *LeafNode[K, P]:
		rn := right.node.(*LeafNode[K, P])
		ln.append(rn.core(), 0, rn.KeyCount())
		ln.SetSuccessor(rn.Successor())
	case *NonLeafNode[K, P]:
		rn := right.node.(*NonLeafNode[K, P])
		// the separator comes back down between the two halves
		ln.AppendEntry(parent.Key(sep), *rn.Pointer(0))
		for i := 0; i < rn.KeyCount(); i++ {
			ln.AppendEntry(rn.Key(i), *rn.Pointer(i+1))
		}
	}
	if err := self.save(left); err != nil {
		return err
	}
	if _, err := self.sm.Remove(self.fileID, right.loc); err != nil {
		return err
	}
	parent.RemoveAt(sep)
	if err := self.save(pp); err != nil {
		return err
	}
	return self.repair(pp, root, parents)
}

// redistribute borrows one entry across the left/right boundary and
// fixes up the separator in the parent. deficient is whichever of the
// two triggered the repair; the sibling is above minimum occupancy
// whenever the two are not mergeable, so the borrow always succeeds.
func (self *BPlusTree[K, P]) redistribute(left, right, pp *NodePair[K, P], sep int, deficient *NodePair[K, P]) error {
	mlog.Printf2("bptree/delete", "bt.redistribute %v <-> %v", left.loc, right.loc)
	parent := pp.node.(*NonLeafNode[K, P])
	switch ln := left.node.(type) {
	case *LeafNode[K, P]:
		rn := right.node.(*LeafNode[K, P])
		if deficient == right {
			i := ln.KeyCount() - 1
			k, p := ln.Key(i), *ln.Pointer(i)
			if err := ln.Remove(k); err != nil {
				return err
			}
			if err := rn.Insert(k, p); err != nil {
				return err
			}
		} else {
			k, p := rn.Key(0), *rn.Pointer(0)
			if err := rn.Remove(k); err != nil {
				return err
			}
			if err := ln.Insert(k, p); err != nil {
				return err
			}
		}
		parent.SetKey(sep, rn.Key(0))
	case *NonLeafNode[K, P]:
		rn := right.node.(*NonLeafNode[K, P])
		if deficient == right {
			rn.InsertFront(parent.Key(sep), *ln.Pointer(ln.KeyCount()))
			parent.SetKey(sep, ln.Key(ln.KeyCount()-1))
			ln.RemoveLast()
		} else {
			ln.AppendEntry(parent.Key(sep), *rn.Pointer(0))
			parent.SetKey(sep, rn.Key(0))
			rn.RemoveFirst()
		}
	}
	if err := self.save(left); err != nil {
		return err
	}
	if err := self.save(right); err != nil {
		return err
	}
	return self.save(pp)
}

// shrinkRoot collapses the root when deletion has emptied it: a
// keyless non-leaf root hands its sole child the crown, an empty leaf
// root leaves the tree empty.
func (self *BPlusTree[K, P]) shrinkRoot(np *NodePair[K, P]) error {
	switch n := np.node.(type) {
	case *LeafNode[K, P]:
		if n.KeyCount() > 0 {
			return nil
		}
		mlog.Printf2("bptree/delete", "bt.shrinkRoot: tree is now empty")
		if _, err := self.sm.Remove(self.fileID, np.loc); err != nil {
			return err
		}
		_, err := self.sm.Put(self.fileID, self.sm.First(), nil)
		return err
	case *NonLeafNode[K, P]:
		if n.KeyCount() > 0 {
			return nil
		}
		mlog.Printf2("bptree/delete", "bt.shrinkRoot: tree loses a level")
		child := *n.Pointer(0)
		if _, err := self.sm.Remove(self.fileID, np.loc); err != nil {
			return err
		}
		_, err := self.sm.Put(self.fileID, self.sm.First(), child)
		return err
	}
	return nil
}
