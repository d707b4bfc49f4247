/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2024 Markus Stenberg
 *
 * Created:       Thu Feb 15 09:08:31 2024 mstenber
 * Last modified: Fri Mar 15 11:40:19 2024 mstenber
 * Edit time:     176 min
 *
 */

package bptree

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stvp/assert"

	"github.com/fingon/go-bptree/storage"
	"github.com/fingon/go-bptree/storage/inmemory"
)

func newTestTree(t *testing.T, degree int) *BPlusTree[int, storage.Location] {
	return NewBPlusTree[int, storage.Location](degree, inmemory.NewInMemoryManager(), "test")
}

func scanPairs(t *testing.T, tr *BPlusTree[int, storage.Location]) (keys []int, ptrs []storage.Location) {
	err := tr.Scan(func(k int, p storage.Location) bool {
		keys = append(keys, k)
		ptrs = append(ptrs, p)
		return true
	})
	assert.Nil(t, err)
	return
}

func scanKeys(t *testing.T, tr *BPlusTree[int, storage.Location]) []int {
	keys, _ := scanPairs(t, tr)
	return keys
}

// checkNode verifies per-node invariants below (and including) n and
// returns the height of the subtree.
func checkNode(t *testing.T, tr *BPlusTree[int, storage.Location], n Node[int, storage.Location], isRoot bool) int {
	assert.True(t, n.KeyCount() < tr.Degree())
	if !isRoot {
		assert.True(t, !n.IsUnderUtilized())
	}
	for i := 1; i < n.KeyCount(); i++ {
		assert.True(t, n.Key(i-1) < n.Key(i))
	}
	nl, ok := n.(*NonLeafNode[int, storage.Location])
	if !ok {
		return 1
	}
	depth := 0
	for i := 0; i <= nl.KeyCount(); i++ {
		c, err := tr.Child(nl, i)
		assert.Nil(t, err)
		assert.True(t, c != nil)
		d := checkNode(t, tr, c, false)
		if depth == 0 {
			depth = d
		} else {
			assert.Equal(t, depth, d)
		}
	}
	return depth + 1
}

// checkTree verifies the structural invariants of the whole tree and
// returns its height (0 = empty).
func checkTree(t *testing.T, tr *BPlusTree[int, storage.Location]) int {
	root, err := tr.Root()
	assert.Nil(t, err)
	if root == nil {
		return 0
	}
	return checkNode(t, tr, root.Node(), true)
}

func TestEmptyTreeSingleInsert(t *testing.T) {
	t.Parallel()
	tr := newTestTree(t, 3)
	root, err := tr.Root()
	assert.Nil(t, err)
	assert.Nil(t, root)

	assert.Nil(t, tr.Insert(42, 4242))
	root, err = tr.Root()
	assert.Nil(t, err)
	assert.True(t, root != nil)
	l, ok := root.Node().(*LeafNode[int, storage.Location])
	assert.True(t, ok)
	assert.Equal(t, l.KeyCount(), 1)
	assert.Equal(t, l.Key(0), 42)
	assert.Equal(t, *l.Pointer(0), storage.Location(4242))
}

func TestInsertScenario(t *testing.T) {
	t.Parallel()
	tr := newTestTree(t, 4)
	for _, k := range []int{10, 20, 5, 6, 12, 30, 7, 17} {
		assert.Nil(t, tr.Insert(k, storage.Location(k*10)))
		checkTree(t, tr)
	}
	keys, ptrs := scanPairs(t, tr)
	assert.Equal(t, keys, []int{5, 6, 7, 10, 12, 17, 20, 30})
	for i, k := range keys {
		assert.Equal(t, ptrs[i], storage.Location(k*10))
	}
	root, err := tr.Root()
	assert.Nil(t, err)
	_, ok := root.Node().(*NonLeafNode[int, storage.Location])
	assert.True(t, ok)
}

func TestDeleteScenario(t *testing.T) {
	t.Parallel()
	tr := newTestTree(t, 4)
	for _, k := range []int{10, 20, 5, 6, 12, 30, 7, 17} {
		assert.Nil(t, tr.Insert(k, storage.Location(k*10)))
	}
	height := checkTree(t, tr)
	assert.Nil(t, tr.Delete(20))
	assert.Nil(t, tr.Delete(30))
	assert.Equal(t, scanKeys(t, tr), []int{5, 6, 7, 10, 12, 17})
	assert.True(t, checkTree(t, tr) <= height)
}

func TestDuplicateKey(t *testing.T) {
	t.Parallel()
	tr := newTestTree(t, 4)
	for _, k := range []int{1, 2, 3, 4, 5} {
		assert.Nil(t, tr.Insert(k, storage.Location(k)))
	}
	before := scanKeys(t, tr)
	err := tr.Insert(3, 333)
	assert.True(t, errors.Is(err, ErrDuplicateKey))
	assert.Equal(t, scanKeys(t, tr), before)
	p, err := tr.Search(3)
	assert.Nil(t, err)
	assert.Equal(t, *p, storage.Location(3))
}

func TestMissingKey(t *testing.T) {
	t.Parallel()
	tr := newTestTree(t, 4)
	err := tr.Delete(1)
	assert.True(t, errors.Is(err, ErrMissingKey))

	for _, k := range []int{1, 2, 3, 4, 5} {
		assert.Nil(t, tr.Insert(k, storage.Location(k)))
	}
	before := scanKeys(t, tr)
	err = tr.Delete(42)
	assert.True(t, errors.Is(err, ErrMissingKey))
	assert.Equal(t, scanKeys(t, tr), before)
}

func TestSearch(t *testing.T) {
	t.Parallel()
	tr := newTestTree(t, 4)
	p, err := tr.Search(7)
	assert.Nil(t, err)
	assert.Nil(t, p)
	for k := 0; k < 50; k++ {
		assert.Nil(t, tr.Insert(k, storage.Location(k*2)))
	}
	for k := 0; k < 50; k++ {
		p, err = tr.Search(k)
		assert.Nil(t, err)
		assert.True(t, p != nil)
		assert.Equal(t, *p, storage.Location(k*2))
	}
	p, err = tr.Search(50)
	assert.Nil(t, err)
	assert.Nil(t, p)
}

func TestInsertDeleteRestores(t *testing.T) {
	t.Parallel()
	tr := newTestTree(t, 4)
	for _, k := range []int{10, 20, 5, 6, 12, 30, 7, 17} {
		assert.Nil(t, tr.Insert(k, storage.Location(k*10)))
	}
	keys, ptrs := scanPairs(t, tr)
	assert.Nil(t, tr.Insert(15, 150))
	assert.Nil(t, tr.Delete(15))
	keys2, ptrs2 := scanPairs(t, tr)
	assert.Equal(t, keys, keys2)
	assert.Equal(t, ptrs, ptrs2)
	checkTree(t, tr)
}

func TestDeleteToEmpty(t *testing.T) {
	t.Parallel()
	tr := newTestTree(t, 3)
	for k := 0; k < 20; k++ {
		assert.Nil(t, tr.Insert(k, storage.Location(k)))
	}
	for k := 0; k < 20; k++ {
		assert.Nil(t, tr.Delete(k))
		checkTree(t, tr)
	}
	root, err := tr.Root()
	assert.Nil(t, err)
	assert.Nil(t, root)
	assert.Equal(t, len(scanKeys(t, tr)), 0)

	// The emptied tree must remain usable
	assert.Nil(t, tr.Insert(7, 70))
	assert.Equal(t, scanKeys(t, tr), []int{7})
}

func testSoak(t *testing.T, degree, n int) {
	tr := newTestTree(t, degree)
	rng := rand.New(rand.NewSource(42))
	keys := rng.Perm(n)
	for _, k := range keys {
		assert.Nil(t, tr.Insert(k, storage.Location(k+1000)))
		checkTree(t, tr)
	}
	got, ptrs := scanPairs(t, tr)
	assert.Equal(t, len(got), n)
	for i, k := range got {
		assert.Equal(t, k, i)
		assert.Equal(t, ptrs[i], storage.Location(k+1000))
	}
	// Delete a pseudo-random half, verifying invariants throughout
	deleted := map[int]bool{}
	for _, k := range keys[:n/2] {
		assert.Nil(t, tr.Delete(k))
		deleted[k] = true
		checkTree(t, tr)
	}
	got = scanKeys(t, tr)
	assert.Equal(t, len(got), n-n/2)
	for _, k := range got {
		assert.True(t, !deleted[k])
	}
}

func TestSoakDegree3(t *testing.T) {
	t.Parallel()
	testSoak(t, 3, 200)
}

func TestSoakDegree4(t *testing.T) {
	t.Parallel()
	testSoak(t, 4, 300)
}

func TestSoakDegree7(t *testing.T) {
	t.Parallel()
	testSoak(t, 7, 500)
}

func TestSeparateFiles(t *testing.T) {
	t.Parallel()
	sm := inmemory.NewInMemoryManager()
	tr1 := NewBPlusTree[int, storage.Location](4, sm, "one")
	tr2 := NewBPlusTree[int, storage.Location](4, sm, "two")
	assert.Nil(t, tr1.Insert(1, 10))
	assert.Nil(t, tr2.Insert(2, 20))
	assert.Equal(t, scanKeys(t, tr1), []int{1})
	assert.Equal(t, scanKeys(t, tr2), []int{2})
}
