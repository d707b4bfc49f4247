/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2024 Markus Stenberg
 *
 * Created:       Mon Feb 19 12:10:28 2024 mstenber
 * Last modified: Wed Mar 13 10:02:17 2024 mstenber
 * Edit time:     42 min
 *
 */

package factory

import (
	"github.com/fingon/go-bptree/codec"
	"github.com/fingon/go-bptree/mlog"
	"github.com/fingon/go-bptree/storage"
	"github.com/fingon/go-bptree/storage/badger"
	"github.com/fingon/go-bptree/storage/bolt"
	"github.com/fingon/go-bptree/storage/inmemory"
)

type factoryCallback func(config storage.Config) storage.Manager[storage.Location]

var managerFactories = map[string]factoryCallback{
	"inmemory": func(config storage.Config) storage.Manager[storage.Location] {
		return inmemory.NewInMemoryManager()
	},
	"bolt": func(config storage.Config) storage.Manager[storage.Location] {
		return bolt.NewBoltManager(config)
	},
	"badger": func(config storage.Config) storage.Manager[storage.Location] {
		return badger.NewBadgerManager(config)
	}}

func List() []string {
	keys := make([]string, 0, len(managerFactories))
	for k := range managerFactories {
		keys = append(keys, k)
	}
	return keys
}

func New(name, dir string, objects storage.ObjectCodec) storage.Manager[storage.Location] {
	var config storage.Config
	config.Directory = dir
	config.Objects = objects
	return NewWithConfig(name, config)
}

func NewWithConfig(name string, config storage.Config) storage.Manager[storage.Location] {
	mlog.Printf2("storage/factory/factory", "f.NewWithConfig %v %v", name, config.Directory)
	return managerFactories[name](config)
}

type CryptoConfig struct {
	storage.Config
	Backend        string
	Password, Salt string
	Iterations     int
	CacheSize      int
}

// NewCrypto assembles a manager whose at-rest bytes are compressed
// and, if a password is given, encrypted, optionally fronted by a
// node cache.
func NewCrypto(config CryptoConfig) storage.Manager[storage.Location] {
	mlog.Printf2("storage/factory/factory", "f.NewCrypto")
	iterations := config.Iterations
	if iterations == 0 {
		iterations = 12345
	}
	salt := config.Salt
	if salt == "" {
		salt = "asdf"
	}
	c := &codec.CodecChain{}
	if config.Password != "" {
		mlog.Printf2("storage/factory/factory", " with encryption + compression")
		c1 := codec.EncryptingCodec{}.Init([]byte(config.Password), []byte(salt), iterations)
		c2 := &codec.CompressingCodec{}
		c = c.Init(c1, c2)
	} else {
		mlog.Printf2("storage/factory/factory", " only compression")
		c2 := &codec.CompressingCodec{}
		c = c.Init(c2)
	}
	beconfig := config.Config
	beconfig.Bytes = c
	m := NewWithConfig(config.Backend, beconfig)
	if config.CacheSize > 0 {
		m = storage.NewCachingManager(m, config.CacheSize)
	}
	return m
}
