/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2024 Markus Stenberg
 *
 * Created:       Thu Feb  8 10:22:30 2024 mstenber
 * Last modified: Tue Mar 12 14:05:12 2024 mstenber
 * Edit time:     33 min
 *
 */

package inmemory

import (
	"github.com/fingon/go-bptree/mlog"
	"github.com/fingon/go-bptree/storage"
	"github.com/fingon/go-bptree/util"
)

type objectKey struct {
	fileID int
	loc    storage.Location
}

// inMemoryManager provides in-memory storage; objects are simply kept
// in a map as-is, with no serialization and no durability. It is the
// reference implementation of the Manager contract.
type inMemoryManager struct {
	lock     util.MutexLocked
	files    map[string]int
	objects  map[objectKey]any
	nextFile int
	nextLoc  storage.Location
}

var _ storage.Manager[storage.Location] = &inMemoryManager{}

func NewInMemoryManager() storage.Manager[storage.Location] {
	self := &inMemoryManager{}
	self.files = make(map[string]int)
	self.objects = make(map[objectKey]any)
	self.nextLoc = storage.AnchorLocation + 1
	return self
}

func (self *inMemoryManager) FileID(name string) int {
	defer self.lock.Locked()()
	id, ok := self.files[name]
	if !ok {
		id = self.nextFile
		self.nextFile++
		self.files[name] = id
	}
	return id
}

func (self *inMemoryManager) First() storage.Location {
	return storage.AnchorLocation
}

func (self *inMemoryManager) Get(fileID int, loc storage.Location) (any, error) {
	defer self.lock.Locked()()
	return self.objects[objectKey{fileID, loc}], nil
}

func (self *inMemoryManager) Put(fileID int, loc storage.Location, o any) (any, error) {
	mlog.Printf2("storage/inmemory/inmemory", "im.Put %v %v", fileID, loc)
	defer self.lock.Locked()()
	k := objectKey{fileID, loc}
	prev := self.objects[k]
	if o == nil {
		delete(self.objects, k)
	} else {
		self.objects[k] = o
	}
	return prev, nil
}

func (self *inMemoryManager) Add(fileID int, o any) (storage.Location, error) {
	defer self.lock.Locked()()
	loc := self.nextLoc
	self.nextLoc++
	mlog.Printf2("storage/inmemory/inmemory", "im.Add %v -> %v", fileID, loc)
	self.objects[objectKey{fileID, loc}] = o
	return loc, nil
}

func (self *inMemoryManager) Remove(fileID int, loc storage.Location) (any, error) {
	mlog.Printf2("storage/inmemory/inmemory", "im.Remove %v %v", fileID, loc)
	defer self.lock.Locked()()
	k := objectKey{fileID, loc}
	prev := self.objects[k]
	delete(self.objects, k)
	return prev, nil
}

func (self *inMemoryManager) Close() error {
	return nil
}
