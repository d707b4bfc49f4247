/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2024 Markus Stenberg
 *
 * Created:       Tue Feb 13 14:44:09 2024 mstenber
 * Last modified: Wed Mar 13 09:31:56 2024 mstenber
 * Edit time:     58 min
 *
 */

package bptree

import (
	"fmt"

	ucodec "github.com/ugorji/go/codec"
	"golang.org/x/exp/constraints"

	"github.com/fingon/go-bptree/storage"
)

const (
	envelopeLeaf uint8 = iota
	envelopeNonLeaf
	envelopeLocation
)

// nodeEnvelope is the wire form of everything a tree stores: its two
// node kinds, and the bare location held at the root anchor.
type nodeEnvelope[K constraints.Ordered, P comparable] struct {
	Kind      uint8
	Degree    int
	Keys      []K
	Pointers  []*P
	Successor *P
	Location  *P
}

var cborHandle ucodec.CborHandle

type nodeCodec[K constraints.Ordered, P comparable] struct{}

var _ storage.ObjectCodec = nodeCodec[int, uint64]{}

// NodeCodec returns the object codec a durable storage manager needs
// to persist the nodes of a BPlusTree[K, P].
func NodeCodec[K constraints.Ordered, P comparable]() storage.ObjectCodec {
	return nodeCodec[K, P]{}
}

func (self nodeCodec[K, P]) EncodeObject(o any) ([]byte, error) {
	var env nodeEnvelope[K, P]
	switch n := o.(type) {
	case *LeafNode[K, P]:
		env.Kind = envelopeLeaf
		env.Degree = n.degree()
		env.Keys = append([]K(nil), n.keys[:n.keyCount]...)
		env.Pointers = append([]*P(nil), n.pointers[:n.keyCount]...)
		env.Successor = n.Successor()
	case *NonLeafNode[K, P]:
		env.Kind = envelopeNonLeaf
		env.Degree = n.degree()
		env.Keys = append([]K(nil), n.keys[:n.keyCount]...)
		env.Pointers = append([]*P(nil), n.pointers[:n.keyCount+1]...)
	case P:
		env.Kind = envelopeLocation
		env.Location = &n
	default:
		return nil, fmt.Errorf("bptree: cannot encode %T", o)
	}
	var buf []byte
	if err := ucodec.NewEncoderBytes(&buf, &cborHandle).Encode(&env); err != nil {
		return nil, err
	}
	return buf, nil
}

func (self nodeCodec[K, P]) DecodeObject(data []byte) (any, error) {
	var env nodeEnvelope[K, P]
	if err := ucodec.NewDecoderBytes(data, &cborHandle).Decode(&env); err != nil {
		return nil, err
	}
	switch env.Kind {
	case envelopeLeaf, envelopeNonLeaf:
		if env.Degree < 3 || len(env.Keys) > env.Degree-1 {
			return nil, fmt.Errorf("bptree: corrupt node envelope")
		}
	}
	switch env.Kind {
	case envelopeLeaf:
		if len(env.Pointers) != len(env.Keys) {
			return nil, fmt.Errorf("bptree: corrupt node envelope")
		}
		n := NewLeafNode[K, P](env.Degree)
		copy(n.keys, env.Keys)
		copy(n.pointers, env.Pointers)
		n.keyCount = len(env.Keys)
		n.SetSuccessor(env.Successor)
		return n, nil
	case envelopeNonLeaf:
		if len(env.Pointers) != len(env.Keys)+1 {
			return nil, fmt.Errorf("bptree: corrupt node envelope")
		}
		n := NewNonLeafNode[K, P](env.Degree)
		copy(n.keys, env.Keys)
		copy(n.pointers, env.Pointers)
		n.keyCount = len(env.Keys)
		return n, nil
	case envelopeLocation:
		if env.Location == nil {
			return nil, fmt.Errorf("bptree: corrupt location envelope")
		}
		return *env.Location, nil
	}
	return nil, fmt.Errorf("bptree: unknown envelope kind %d", env.Kind)
}
