/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2024 Markus Stenberg
 *
 * Created:       Tue Mar 12 15:50:02 2024 mstenber
 * Last modified: Fri Mar 15 11:33:27 2024 mstenber
 * Edit time:     47 min
 *
 */

package bolt

import (
	"testing"

	"github.com/stvp/assert"

	"github.com/fingon/go-bptree/bptree"
	"github.com/fingon/go-bptree/codec"
	"github.com/fingon/go-bptree/storage"
)

func testConfig(dir string) storage.Config {
	return storage.Config{
		Directory: dir,
		Objects:   bptree.NodeCodec[int64, storage.Location](),
	}
}

func TestBoltManager(t *testing.T) {
	t.Parallel()
	m := NewBoltManager(testConfig(t.TempDir()))
	defer m.Close()

	fid := m.FileID("foo")
	assert.Equal(t, m.FileID("foo"), fid)
	assert.True(t, m.FileID("bar") != fid)

	o, err := m.Get(fid, m.First())
	assert.Nil(t, err)
	assert.Nil(t, o)

	loc, err := m.Add(fid, storage.Location(123))
	assert.Nil(t, err)
	assert.True(t, loc != m.First())
	o, err = m.Get(fid, loc)
	assert.Nil(t, err)
	assert.Equal(t, o.(storage.Location), storage.Location(123))

	prev, err := m.Put(fid, loc, storage.Location(456))
	assert.Nil(t, err)
	assert.Equal(t, prev.(storage.Location), storage.Location(123))

	prev, err = m.Remove(fid, loc)
	assert.Nil(t, err)
	assert.Equal(t, prev.(storage.Location), storage.Location(456))
	o, err = m.Get(fid, loc)
	assert.Nil(t, err)
	assert.Nil(t, o)
}

func TestBoltManagerReopen(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	m := NewBoltManager(testConfig(dir))
	fid := m.FileID("foo")
	loc, err := m.Add(fid, storage.Location(7))
	assert.Nil(t, err)
	_, err = m.Put(fid, m.First(), loc)
	assert.Nil(t, err)
	assert.Nil(t, m.Close())

	m = NewBoltManager(testConfig(dir))
	defer m.Close()
	assert.Equal(t, m.FileID("foo"), fid)
	o, err := m.Get(fid, m.First())
	assert.Nil(t, err)
	assert.Equal(t, o.(storage.Location), loc)
	o, err = m.Get(fid, loc)
	assert.Nil(t, err)
	assert.Equal(t, o.(storage.Location), storage.Location(7))

	// fresh locations keep counting past the reopened ones
	loc2, err := m.Add(fid, storage.Location(8))
	assert.Nil(t, err)
	assert.True(t, loc2 != loc)
}

func TestBoltTree(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	config := testConfig(dir)
	config.Bytes = codec.CodecChain{}.Init(
		codec.EncryptingCodec{}.Init([]byte("secret"), []byte("salt"), 123),
		&codec.CompressingCodec{})

	m := NewBoltManager(config)
	tr := bptree.NewBPlusTree[int64, storage.Location](4, m, "index")
	for k := int64(0); k < 100; k++ {
		assert.Nil(t, tr.Insert(k, storage.Location(k*2)))
	}
	for k := int64(0); k < 100; k += 2 {
		assert.Nil(t, tr.Delete(k))
	}
	assert.Nil(t, m.Close())

	// the tree must come back intact from disk
	m = NewBoltManager(config)
	defer m.Close()
	tr = bptree.NewBPlusTree[int64, storage.Location](4, m, "index")
	var keys []int64
	err := tr.Scan(func(k int64, p storage.Location) bool {
		keys = append(keys, k)
		assert.Equal(t, p, storage.Location(k*2))
		return true
	})
	assert.Nil(t, err)
	assert.Equal(t, len(keys), 50)
	for i, k := range keys {
		assert.Equal(t, k, int64(i*2+1))
	}
	p, err := tr.Search(51)
	assert.Nil(t, err)
	assert.Equal(t, *p, storage.Location(102))
}
