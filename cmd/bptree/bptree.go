/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2024 Markus Stenberg
 *
 * Created:       Thu Feb 22 09:02:44 2024 mstenber
 * Last modified: Wed Mar 13 10:29:40 2024 mstenber
 * Edit time:     49 min
 *
 */

package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/fingon/go-bptree/bptree"
	"github.com/fingon/go-bptree/storage"
	"github.com/fingon/go-bptree/storage/factory"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage:\n\n%s [options] set KEY PTR | get KEY | del KEY | scan\n\n", os.Args[0])
		flag.PrintDefaults()
	}
	backend := flag.String("backend", "bolt",
		fmt.Sprintf("Backend to use (possible: %v)", factory.List()))
	dir := flag.String("dir", ".", "Storage directory")
	degree := flag.Int("degree", 16, "Tree degree (maximum pointer fan-out)")
	name := flag.String("name", "index", "Name of the tree within the storage")
	password := flag.String("password", "", "Password (empty = no encryption)")
	salt := flag.String("salt", "salt", "Salt")
	cachesize := flag.Int("cachesize", 1000, "Number of nodes to cache (0 = no cache)")

	flag.Parse()
	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	m := factory.NewCrypto(factory.CryptoConfig{
		Config: storage.Config{
			Directory: *dir,
			Objects:   bptree.NodeCodec[int64, storage.Location](),
		},
		Backend:   *backend,
		Password:  *password,
		Salt:      *salt,
		CacheSize: *cachesize,
	})
	defer func() {
		if err := m.Close(); err != nil {
			log.Fatal(err)
		}
	}()
	t := bptree.NewBPlusTree[int64, storage.Location](*degree, m, *name)

	arg := func(i int) int64 {
		if flag.NArg() <= i {
			flag.Usage()
			os.Exit(1)
		}
		v, err := strconv.ParseInt(flag.Arg(i), 10, 64)
		if err != nil {
			log.Fatal(err)
		}
		return v
	}

	var err error
	switch flag.Arg(0) {
	case "set":
		err = t.Insert(arg(1), storage.Location(arg(2)))
	case "get":
		var p *storage.Location
		p, err = t.Search(arg(1))
		if err == nil {
			if p == nil {
				fmt.Println("<not found>")
			} else {
				fmt.Println(*p)
			}
		}
	case "del":
		err = t.Delete(arg(1))
	case "scan":
		err = t.Scan(func(k int64, p storage.Location) bool {
			fmt.Printf("%v %v\n", k, p)
			return true
		})
	default:
		flag.Usage()
		os.Exit(1)
	}
	if err != nil {
		log.Fatal(err)
	}
}
