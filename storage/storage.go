/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2024 Markus Stenberg
 *
 * Created:       Thu Feb  8 09:40:18 2024 mstenber
 * Last modified: Tue Mar 12 14:11:35 2024 mstenber
 * Edit time:     118 min
 *
 */

// storage package defines the location-addressed object store the
// B+ tree engine persists its nodes in, and the plumbing shared by
// the concrete manager implementations.
//
// A Manager is really just a key-value store keyed by opaque
// locations, grouped into logical files identified by name. The
// engine issues one call per node touched and performs no caching of
// its own; a production backend is expected to provide
// batching/caching/durability as it sees fit (see CachingManager for
// the caching part).
package storage

import (
	"github.com/fingon/go-bptree/codec"
)

// Location is the location type of the managers bundled with this
// module. The zero location is reserved as the per-file root anchor
// and is never handed out by Add.
type Location uint64

// AnchorLocation is the reserved first location in any file,
// returned by First of all bundled managers.
const AnchorLocation Location = 0

// Manager manages a storage space of objects addressed by opaque
// locations, namespaced by logical files.
//
// Get returns nil for a location that holds nothing. Put overwrites
// a location and returns what was there before; putting nil clears
// the location. Add allocates a fresh location. Remove deletes and
// returns the prior value.
type Manager[L comparable] interface {
	// FileID returns the (stable) id of the named file.
	FileID(name string) int

	// First returns the reserved anchor location of any file.
	First() L

	Get(fileID int, loc L) (o any, err error)
	Put(fileID int, loc L, o any) (prev any, err error)
	Add(fileID int, o any) (loc L, err error)
	Remove(fileID int, loc L) (prev any, err error)

	// Close the manager.
	Close() error
}

// ObjectCodec converts the objects a Manager is given to bytes and
// back. Durable managers need one; it is how they can persist the
// engine's nodes without knowing their concrete types.
type ObjectCodec interface {
	EncodeObject(o any) (data []byte, err error)
	DecodeObject(data []byte) (o any, err error)
}

// Config contains the configuration shared by the directory-backed
// managers.
type Config struct {
	// Directory the manager keeps its state in.
	Directory string

	// Objects is the mandatory object <> bytes codec.
	Objects ObjectCodec

	// Bytes is an optional byte-level codec (compression,
	// encryption) applied under Objects, with the storage key as
	// additional data.
	Bytes codec.Codec
}

// DirectoryBase is the embeddable shared base of directory-backed
// managers. It owns the codec handling so the managers themselves
// only deal in raw bytes.
type DirectoryBase struct {
	Config
}

func (self *DirectoryBase) Init(config Config) {
	self.Config = config
}

// EncodeObject runs an object through the object codec and the
// optional byte codec.
func (self *DirectoryBase) EncodeObject(o any, additionalData []byte) ([]byte, error) {
	data, err := self.Objects.EncodeObject(o)
	if err != nil {
		return nil, err
	}
	if self.Bytes == nil {
		return data, nil
	}
	return self.Bytes.EncodeBytes(data, additionalData)
}

// DecodeObject undoes EncodeObject. nil data decodes to nil object.
func (self *DirectoryBase) DecodeObject(data, additionalData []byte) (any, error) {
	if data == nil {
		return nil, nil
	}
	if self.Bytes != nil {
		b, err := self.Bytes.DecodeBytes(data, additionalData)
		if err != nil {
			return nil, err
		}
		data = b
	}
	return self.Objects.DecodeObject(data)
}
