/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2024 Markus Stenberg
 *
 * Created:       Mon Feb 12 09:02:18 2024 mstenber
 * Last modified: Thu Mar 14 16:48:09 2024 mstenber
 * Edit time:     204 min
 *
 */

package bptree

import (
	"fmt"
	"log"
	"sort"

	"golang.org/x/exp/constraints"
)

// Node is the interface fulfilled by both node kinds of a tree page,
// LeafNode and NonLeafNode. The structural operations shared by the
// two live in the embedded node core; only routing vs. data storage
// and the occupancy rules differ per kind.
type Node[K constraints.Ordered, P comparable] interface {
	KeyCount() int
	Key(i int) K
	Pointer(i int) *P

	// IsFull is true when the node cannot take another key.
	IsFull() bool

	// IsUnderUtilized is true when occupancy has fallen below the
	// minimum of ceil(degree/2)-1 keys. The root is exempt from
	// the minimum; that is the engine's business, not the node's.
	IsUnderUtilized() bool

	// Mergeable is true when this node's content plus other's
	// content (plus, for non-leaves, one separator key) fits
	// within a single node and both are of the same kind.
	Mergeable(other Node[K, P]) bool

	Clear()

	core() *node[K, P]
}

// node is the structural core both kinds compose: up to degree-1 keys
// in ascending order, and up to degree pointer slots. A nil pointer
// slot is an absent value. pointers[i] belongs to keys[i]; what the
// slot past the last key means depends on the kind.
type node[K constraints.Ordered, P comparable] struct {
	keyCount int
	keys     []K
	pointers []*P
}

func (self *node[K, P]) init(degree int) {
	self.keys = make([]K, degree-1)
	self.pointers = make([]*P, degree)
}

func (self *node[K, P]) core() *node[K, P] {
	return self
}

func (self *node[K, P]) KeyCount() int {
	return self.keyCount
}

func (self *node[K, P]) Key(i int) K {
	return self.keys[i]
}

func (self *node[K, P]) Pointer(i int) *P {
	return self.pointers[i]
}

func (self *node[K, P]) IsFull() bool {
	return self.keyCount >= len(self.keys)
}

func (self *node[K, P]) degree() int {
	return len(self.keys) + 1
}

func (self *node[K, P]) minKeyCount() int {
	return (self.degree()+1)/2 - 1
}

// append copies the key/pointer range [beginIndex, endIndex) from
// source into this node's tail.
func (self *node[K, P]) append(source *node[K, P], beginIndex, endIndex int) {
	for i := beginIndex; i < endIndex; i++ {
		self.keys[self.keyCount] = source.keys[i]
		self.pointers[self.keyCount] = source.pointers[i]
		self.keyCount++
	}
}

func (self *node[K, P]) Clear() {
	var zero K
	for i := range self.keys {
		self.keys[i] = zero
	}
	for i := range self.pointers {
		self.pointers[i] = nil
	}
	self.keyCount = 0
}

// LeafNode stores data pointers: pointers[i] is the (opaque) record
// reference for keys[i]. The slot past the key-aligned ones chains to
// the next leaf in key order.
type LeafNode[K constraints.Ordered, P comparable] struct {
	node[K, P]
}

var _ Node[int, uint64] = &LeafNode[int, uint64]{}

func NewLeafNode[K constraints.Ordered, P comparable](degree int) *LeafNode[K, P] {
	self := &LeafNode[K, P]{}
	self.init(degree)
	return self
}

func (self *LeafNode[K, P]) Successor() *P {
	return self.pointers[len(self.pointers)-1]
}

func (self *LeafNode[K, P]) SetSuccessor(loc *P) {
	self.pointers[len(self.pointers)-1] = loc
}

// indexOf returns the index of k, or -1.
func (self *LeafNode[K, P]) indexOf(k K) int {
	i := sort.Search(self.keyCount, func(i int) bool {
		return self.keys[i] >= k
	})
	if i < self.keyCount && self.keys[i] == k {
		return i
	}
	return -1
}

func (self *LeafNode[K, P]) Contains(k K) bool {
	return self.indexOf(k) >= 0
}

// Insert places k and its data pointer in sorted position. A key
// already present is an invalid insertion.
func (self *LeafNode[K, P]) Insert(k K, p P) error {
	if self.Contains(k) {
		return fmt.Errorf("%w: %v", ErrDuplicateKey, k)
	}
	if self.IsFull() {
		log.Panic("LeafNode.Insert on full node")
	}
	i := sort.Search(self.keyCount, func(i int) bool {
		return self.keys[i] > k
	})
	for j := self.keyCount; j > i; j-- {
		self.keys[j] = self.keys[j-1]
		self.pointers[j] = self.pointers[j-1]
	}
	self.keys[i] = k
	self.pointers[i] = &p
	self.keyCount++
	return nil
}

// Remove drops k and its data pointer. A key not present is an
// invalid deletion.
func (self *LeafNode[K, P]) Remove(k K) error {
	i := self.indexOf(k)
	if i < 0 {
		return fmt.Errorf("%w: %v", ErrMissingKey, k)
	}
	for j := i; j < self.keyCount-1; j++ {
		self.keys[j] = self.keys[j+1]
		self.pointers[j] = self.pointers[j+1]
	}
	var zero K
	self.keys[self.keyCount-1] = zero
	self.pointers[self.keyCount-1] = nil
	self.keyCount--
	return nil
}

func (self *LeafNode[K, P]) IsUnderUtilized() bool {
	return self.keyCount < self.minKeyCount()
}

func (self *LeafNode[K, P]) Mergeable(other Node[K, P]) bool {
	o, ok := other.(*LeafNode[K, P])
	return ok && self.keyCount+o.keyCount <= len(self.keys)
}

// NonLeafNode stores routing information: pointers[i] for i <=
// keyCount is the location of the subtree holding keys below keys[i]
// (the last slot holds the subtree at or above the last key).
type NonLeafNode[K constraints.Ordered, P comparable] struct {
	node[K, P]
}

var _ Node[int, uint64] = &NonLeafNode[int, uint64]{}

func NewNonLeafNode[K constraints.Ordered, P comparable](degree int) *NonLeafNode[K, P] {
	self := &NonLeafNode[K, P]{}
	self.init(degree)
	return self
}

// NewNonLeafRoot creates a non-leaf node with exactly one separator
// key and its two children, as installed when the tree grows a level.
func NewNonLeafRoot[K constraints.Ordered, P comparable](degree int, left P, k K, right P) *NonLeafNode[K, P] {
	self := NewNonLeafNode[K, P](degree)
	self.keys[0] = k
	self.pointers[0] = &left
	self.pointers[1] = &right
	self.keyCount = 1
	return self
}

// Child returns the location of the child responsible for k.
func (self *NonLeafNode[K, P]) Child(k K) *P {
	i := sort.Search(self.keyCount, func(i int) bool {
		return k < self.keys[i]
	})
	return self.pointers[i]
}

// ChildIndex returns the pointer index holding loc, or -1.
func (self *NonLeafNode[K, P]) ChildIndex(loc P) int {
	for i := 0; i <= self.keyCount; i++ {
		if self.pointers[i] != nil && *self.pointers[i] == loc {
			return i
		}
	}
	return -1
}

// InsertAfter inserts separator k and child rightLocation immediately
// after the known existing child leftLocation.
func (self *NonLeafNode[K, P]) InsertAfter(k K, rightLocation, leftLocation P) {
	i := self.ChildIndex(leftLocation)
	if i < 0 {
		log.Panic("NonLeafNode.InsertAfter: unknown left child")
	}
	for j := self.keyCount; j > i; j-- {
		self.keys[j] = self.keys[j-1]
		self.pointers[j+1] = self.pointers[j]
	}
	self.keys[i] = k
	self.pointers[i+1] = &rightLocation
	self.keyCount++
}

// Copy replaces this node's content with source's keys [beginIndex,
// endIndex) and the associated pointers, including the one past the
// last copied key.
func (self *NonLeafNode[K, P]) Copy(source *NonLeafNode[K, P], beginIndex, endIndex int) {
	self.keyCount = 0
	for i := beginIndex; i < endIndex; i++ {
		self.keys[self.keyCount] = source.keys[i]
		self.pointers[self.keyCount] = source.pointers[i]
		self.keyCount++
	}
	self.pointers[self.keyCount] = source.pointers[endIndex]
}

func (self *NonLeafNode[K, P]) SetKey(i int, k K) {
	self.keys[i] = k
}

// RemoveAt drops separator keys[i] and the child to its right
// (pointers[i+1]).
func (self *NonLeafNode[K, P]) RemoveAt(i int) {
	for j := i; j < self.keyCount-1; j++ {
		self.keys[j] = self.keys[j+1]
		self.pointers[j+1] = self.pointers[j+2]
	}
	var zero K
	self.keys[self.keyCount-1] = zero
	self.pointers[self.keyCount] = nil
	self.keyCount--
}

// InsertFront places k and loc as the first key and first child,
// shifting the rest right. Used when borrowing from a left sibling.
func (self *NonLeafNode[K, P]) InsertFront(k K, loc P) {
	for j := self.keyCount; j > 0; j-- {
		self.keys[j] = self.keys[j-1]
		self.pointers[j+1] = self.pointers[j]
	}
	self.pointers[1] = self.pointers[0]
	self.keys[0] = k
	self.pointers[0] = &loc
	self.keyCount++
}

// AppendEntry pushes k and loc past the current last key and child.
// Used when borrowing from a right sibling and when merging.
func (self *NonLeafNode[K, P]) AppendEntry(k K, loc P) {
	self.keys[self.keyCount] = k
	self.pointers[self.keyCount+1] = &loc
	self.keyCount++
}

// RemoveLast drops the last key and the last child.
func (self *NonLeafNode[K, P]) RemoveLast() {
	var zero K
	self.pointers[self.keyCount] = nil
	self.keys[self.keyCount-1] = zero
	self.keyCount--
}

// RemoveFirst drops the first key and the first child.
func (self *NonLeafNode[K, P]) RemoveFirst() {
	for j := 0; j < self.keyCount-1; j++ {
		self.keys[j] = self.keys[j+1]
		self.pointers[j] = self.pointers[j+1]
	}
	self.pointers[self.keyCount-1] = self.pointers[self.keyCount]
	var zero K
	self.keys[self.keyCount-1] = zero
	self.pointers[self.keyCount] = nil
	self.keyCount--
}

func (self *NonLeafNode[K, P]) IsUnderUtilized() bool {
	return self.keyCount < self.minKeyCount()
}

func (self *NonLeafNode[K, P]) Mergeable(other Node[K, P]) bool {
	o, ok := other.(*NonLeafNode[K, P])
	return ok && self.keyCount+o.keyCount+1 <= len(self.keys)
}
