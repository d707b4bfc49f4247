/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2024 Markus Stenberg
 *
 * Created:       Fri Feb  9 09:12:08 2024 mstenber
 * Last modified: Tue Mar 12 15:32:26 2024 mstenber
 * Edit time:     96 min
 *
 */

package bolt

import (
	"fmt"
	"log"

	bbolt "go.etcd.io/bbolt"

	"github.com/fingon/go-bptree/mlog"
	"github.com/fingon/go-bptree/storage"
	"github.com/fingon/go-bptree/util"
)

var objectsBucket = []byte("objects")
var filesBucket = []byte("files")
var metaBucket = []byte("meta")

var nextLocKey = []byte("nextloc")
var nextFileKey = []byte("nextfile")

// boltManager provides on-disk storage in a single bbolt database.
//
// - objects bucket: file id + location -> encoded object
// - files bucket: file name -> file id
// - meta bucket: location and file id counters
type boltManager struct {
	storage.DirectoryBase

	db *bbolt.DB
}

var _ storage.Manager[storage.Location] = &boltManager{}

func NewBoltManager(config storage.Config) storage.Manager[storage.Location] {
	self := &boltManager{}
	(&self.DirectoryBase).Init(config)
	db, err := bbolt.Open(fmt.Sprintf("%s/bbolt.db", config.Directory), 0600, nil)
	if err != nil {
		log.Fatal("bbolt.Open", err)
	}
	self.db = db
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{objectsBucket, filesBucket, metaBucket} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Panic(err)
	}
	return self
}

func (self *boltManager) Close() error {
	return self.db.Close()
}

func (self *boltManager) FileID(name string) (id int) {
	err := self.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(filesBucket)
		if v := b.Get([]byte(name)); v != nil {
			id = int(util.Uint64FromBytes(v))
			return nil
		}
		m := tx.Bucket(metaBucket)
		id = int(util.Uint64FromBytes(m.Get(nextFileKey)))
		if err := m.Put(nextFileKey, util.Uint64Bytes(uint64(id)+1)); err != nil {
			return err
		}
		return b.Put([]byte(name), util.Uint64Bytes(uint64(id)))
	})
	if err != nil {
		log.Panic("bbolt.FileID", err)
	}
	mlog.Printf2("storage/bolt/bolt", "bbolt.FileID %s = %d", name, id)
	return id
}

func (self *boltManager) First() storage.Location {
	return storage.AnchorLocation
}

func objectKey(fileID int, loc storage.Location) []byte {
	return util.ConcatBytes(util.Uint32Bytes(uint32(fileID)),
		util.Uint64Bytes(uint64(loc)))
}

// getObject reads and decodes the object at loc within tx. The value
// bytes are copied out, as bbolt-owned memory is transaction-scoped.
func (self *boltManager) getObject(tx *bbolt.Tx, k []byte) (any, error) {
	v := tx.Bucket(objectsBucket).Get(k)
	if v == nil {
		return nil, nil
	}
	return self.DecodeObject(append([]byte(nil), v...), k)
}

func (self *boltManager) Get(fileID int, loc storage.Location) (o any, err error) {
	k := objectKey(fileID, loc)
	err = self.db.View(func(tx *bbolt.Tx) error {
		var err error
		o, err = self.getObject(tx, k)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("bolt: get %v/%v: %w", fileID, loc, err)
	}
	return o, nil
}

func (self *boltManager) Put(fileID int, loc storage.Location, o any) (prev any, err error) {
	mlog.Printf2("storage/bolt/bolt", "bbolt.Put %v/%v", fileID, loc)
	k := objectKey(fileID, loc)
	err = self.db.Update(func(tx *bbolt.Tx) error {
		var err error
		prev, err = self.getObject(tx, k)
		if err != nil {
			return err
		}
		b := tx.Bucket(objectsBucket)
		if o == nil {
			return b.Delete(k)
		}
		data, err := self.EncodeObject(o, k)
		if err != nil {
			return err
		}
		return b.Put(k, data)
	})
	if err != nil {
		return nil, fmt.Errorf("bolt: put %v/%v: %w", fileID, loc, err)
	}
	return prev, nil
}

func (self *boltManager) Add(fileID int, o any) (loc storage.Location, err error) {
	err = self.db.Update(func(tx *bbolt.Tx) error {
		m := tx.Bucket(metaBucket)
		next := util.Uint64FromBytes(m.Get(nextLocKey))
		if next == 0 {
			next = uint64(storage.AnchorLocation) + 1
		}
		loc = storage.Location(next)
		if err := m.Put(nextLocKey, util.Uint64Bytes(next+1)); err != nil {
			return err
		}
		k := objectKey(fileID, loc)
		data, err := self.EncodeObject(o, k)
		if err != nil {
			return err
		}
		return tx.Bucket(objectsBucket).Put(k, data)
	})
	if err != nil {
		return 0, fmt.Errorf("bolt: add %v: %w", fileID, err)
	}
	mlog.Printf2("storage/bolt/bolt", "bbolt.Add %v -> %v", fileID, loc)
	return loc, nil
}

func (self *boltManager) Remove(fileID int, loc storage.Location) (prev any, err error) {
	mlog.Printf2("storage/bolt/bolt", "bbolt.Remove %v/%v", fileID, loc)
	k := objectKey(fileID, loc)
	err = self.db.Update(func(tx *bbolt.Tx) error {
		var err error
		prev, err = self.getObject(tx, k)
		if err != nil {
			return err
		}
		return tx.Bucket(objectsBucket).Delete(k)
	})
	if err != nil {
		return nil, fmt.Errorf("bolt: remove %v/%v: %w", fileID, loc, err)
	}
	return prev, nil
}
