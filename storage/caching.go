/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2024 Markus Stenberg
 *
 * Created:       Mon Feb 12 11:05:44 2024 mstenber
 * Last modified: Tue Mar 12 14:09:02 2024 mstenber
 * Edit time:     49 min
 *
 */

package storage

import (
	"container/list"

	"github.com/fingon/go-bptree/mlog"
	"github.com/fingon/go-bptree/util"
)

type cacheKey[L comparable] struct {
	fileID int
	loc    L
}

type cacheEntry[L comparable] struct {
	key cacheKey[L]
	o   any
}

// cachingManager keeps a bounded most-recently-used set of decoded
// objects in front of another Manager. Reads hit the cache first;
// writes go through and refresh the cache so subsequent reads of hot
// nodes avoid the backend entirely.
type cachingManager[L comparable] struct {
	backend Manager[L]
	size    int
	lock    util.MutexLocked
	lru     *list.List
	entries map[cacheKey[L]]*list.Element
}

var _ Manager[Location] = &cachingManager[Location]{}

func NewCachingManager[L comparable](backend Manager[L], size int) Manager[L] {
	self := &cachingManager[L]{backend: backend, size: size}
	self.lru = list.New()
	self.entries = make(map[cacheKey[L]]*list.Element)
	return self
}

func (self *cachingManager[L]) FileID(name string) int {
	return self.backend.FileID(name)
}

func (self *cachingManager[L]) First() L {
	return self.backend.First()
}

func (self *cachingManager[L]) Get(fileID int, loc L) (any, error) {
	k := cacheKey[L]{fileID, loc}
	defer self.lock.Locked()()
	if e, ok := self.entries[k]; ok {
		mlog.Printf2("storage/caching", "cm.Get %v hit", loc)
		self.lru.MoveToFront(e)
		return e.Value.(*cacheEntry[L]).o, nil
	}
	o, err := self.backend.Get(fileID, loc)
	if err != nil {
		return nil, err
	}
	if o != nil {
		self.store(k, o)
	}
	return o, nil
}

func (self *cachingManager[L]) Put(fileID int, loc L, o any) (any, error) {
	prev, err := self.backend.Put(fileID, loc, o)
	if err != nil {
		return nil, err
	}
	k := cacheKey[L]{fileID, loc}
	defer self.lock.Locked()()
	self.forget(k)
	if o != nil {
		self.store(k, o)
	}
	return prev, nil
}

func (self *cachingManager[L]) Add(fileID int, o any) (L, error) {
	loc, err := self.backend.Add(fileID, o)
	if err != nil {
		return loc, err
	}
	defer self.lock.Locked()()
	self.store(cacheKey[L]{fileID, loc}, o)
	return loc, nil
}

func (self *cachingManager[L]) Remove(fileID int, loc L) (any, error) {
	prev, err := self.backend.Remove(fileID, loc)
	if err != nil {
		return nil, err
	}
	defer self.lock.Locked()()
	self.forget(cacheKey[L]{fileID, loc})
	return prev, nil
}

func (self *cachingManager[L]) Close() error {
	return self.backend.Close()
}

// store adds an entry, evicting from the cold end as needed. Caller
// must hold the lock.
func (self *cachingManager[L]) store(k cacheKey[L], o any) {
	if e, ok := self.entries[k]; ok {
		self.lru.MoveToFront(e)
		e.Value.(*cacheEntry[L]).o = o
		return
	}
	self.entries[k] = self.lru.PushFront(&cacheEntry[L]{key: k, o: o})
	for self.lru.Len() > self.size {
		e := self.lru.Back()
		self.lru.Remove(e)
		delete(self.entries, e.Value.(*cacheEntry[L]).key)
	}
}

func (self *cachingManager[L]) forget(k cacheKey[L]) {
	if e, ok := self.entries[k]; ok {
		self.lru.Remove(e)
		delete(self.entries, k)
	}
}
