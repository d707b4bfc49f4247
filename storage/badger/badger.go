/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2024 Markus Stenberg
 *
 * Created:       Fri Feb  9 11:03:51 2024 mstenber
 * Last modified: Tue Mar 12 15:40:14 2024 mstenber
 * Edit time:     84 min
 *
 */

package badger

import (
	"errors"
	"fmt"
	"log"

	"github.com/dgraph-io/badger"

	"github.com/fingon/go-bptree/mlog"
	"github.com/fingon/go-bptree/storage"
	"github.com/fingon/go-bptree/util"
)

var objectPrefix = []byte("1")
var filePrefix = []byte("2")
var metaPrefix = []byte("3")

// badgerManager provides on-disk storage.
//
// - key prefix 1 + file id + location -> encoded object
// - key prefix 2 + file name -> file id
// - key prefix 3 -> file id counter, location sequence
type badgerManager struct {
	storage.DirectoryBase
	db   *badger.DB
	seq  *badger.Sequence
	lock util.MutexLocked
}

var _ storage.Manager[storage.Location] = &badgerManager{}

func NewBadgerManager(config storage.Config) storage.Manager[storage.Location] {
	self := &badgerManager{}
	(&self.DirectoryBase).Init(config)
	opts := badger.DefaultOptions(config.Directory).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		log.Panic("badger.Open", err)
	}
	self.db = db
	seq, err := db.GetSequence(util.ConcatBytes(metaPrefix, []byte("loc")), 64)
	if err != nil {
		log.Panic("badger.GetSequence", err)
	}
	self.seq = seq
	return self
}

func (self *badgerManager) Close() error {
	if err := self.seq.Release(); err != nil {
		return fmt.Errorf("badger: close: %w", err)
	}
	return self.db.Close()
}

func (self *badgerManager) get(k []byte) (v []byte, err error) {
	err = self.db.View(func(txn *badger.Txn) error {
		i, err := txn.Get(k)
		if err != nil {
			return err
		}
		v, err = i.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	return v, err
}

func (self *badgerManager) set(k, v []byte) error {
	return self.db.Update(func(txn *badger.Txn) error {
		return txn.Set(k, v)
	})
}

func (self *badgerManager) FileID(name string) (id int) {
	defer self.lock.Locked()()
	k := util.ConcatBytes(filePrefix, []byte(name))
	v, err := self.get(k)
	if err != nil {
		log.Panic("badger.FileID", err)
	}
	if v != nil {
		return int(util.Uint64FromBytes(v))
	}
	ck := util.ConcatBytes(metaPrefix, []byte("file"))
	cv, err := self.get(ck)
	if err != nil {
		log.Panic("badger.FileID", err)
	}
	id = int(util.Uint64FromBytes(cv))
	if err = self.set(ck, util.Uint64Bytes(uint64(id)+1)); err != nil {
		log.Panic("badger.FileID", err)
	}
	if err = self.set(k, util.Uint64Bytes(uint64(id))); err != nil {
		log.Panic("badger.FileID", err)
	}
	mlog.Printf2("storage/badger/badger", "bad.FileID %s = %d", name, id)
	return id
}

func (self *badgerManager) First() storage.Location {
	return storage.AnchorLocation
}

func objectKey(fileID int, loc storage.Location) []byte {
	return util.ConcatBytes(objectPrefix,
		util.Uint32Bytes(uint32(fileID)),
		util.Uint64Bytes(uint64(loc)))
}

func (self *badgerManager) Get(fileID int, loc storage.Location) (any, error) {
	k := objectKey(fileID, loc)
	v, err := self.get(k)
	if err != nil {
		return nil, fmt.Errorf("badger: get %v/%v: %w", fileID, loc, err)
	}
	o, err := self.DecodeObject(v, k)
	if err != nil {
		return nil, fmt.Errorf("badger: get %v/%v: %w", fileID, loc, err)
	}
	return o, nil
}

func (self *badgerManager) Put(fileID int, loc storage.Location, o any) (prev any, err error) {
	mlog.Printf2("storage/badger/badger", "bad.Put %v/%v", fileID, loc)
	prev, err = self.Get(fileID, loc)
	if err != nil {
		return nil, err
	}
	k := objectKey(fileID, loc)
	if o == nil {
		err = self.db.Update(func(txn *badger.Txn) error {
			return txn.Delete(k)
		})
	} else {
		var data []byte
		data, err = self.EncodeObject(o, k)
		if err == nil {
			err = self.set(k, data)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("badger: put %v/%v: %w", fileID, loc, err)
	}
	return prev, nil
}

func (self *badgerManager) Add(fileID int, o any) (storage.Location, error) {
	n, err := self.seq.Next()
	if err != nil {
		return 0, fmt.Errorf("badger: add %v: %w", fileID, err)
	}
	// The sequence starts at 0; the anchor location stays reserved.
	loc := storage.AnchorLocation + storage.Location(n) + 1
	k := objectKey(fileID, loc)
	data, err := self.EncodeObject(o, k)
	if err == nil {
		err = self.set(k, data)
	}
	if err != nil {
		return 0, fmt.Errorf("badger: add %v: %w", fileID, err)
	}
	mlog.Printf2("storage/badger/badger", "bad.Add %v -> %v", fileID, loc)
	return loc, nil
}

func (self *badgerManager) Remove(fileID int, loc storage.Location) (prev any, err error) {
	mlog.Printf2("storage/badger/badger", "bad.Remove %v/%v", fileID, loc)
	prev, err = self.Get(fileID, loc)
	if err != nil {
		return nil, err
	}
	err = self.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(objectKey(fileID, loc))
	})
	if err != nil {
		return nil, fmt.Errorf("badger: remove %v/%v: %w", fileID, loc, err)
	}
	return prev, nil
}
