/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2024 Markus Stenberg
 *
 * Created:       Mon Feb 12 10:11:40 2024 mstenber
 * Last modified: Wed Feb 28 09:55:21 2024 mstenber
 * Edit time:     14 min
 *
 */

package bptree

import "golang.org/x/exp/constraints"

// NodePair couples a materialized node with the location it is (or
// will be) persisted at. It is the traversal/bookkeeping unit of a
// single operation and is never persisted itself; two pairs are the
// same pair iff their locations are, which is what lets the engine
// track parents in a map keyed by location instead of keeping mutable
// back-links in the nodes.
type NodePair[K constraints.Ordered, P comparable] struct {
	node Node[K, P]
	loc  P
}

func (self *NodePair[K, P]) Node() Node[K, P] {
	return self.node
}

func (self *NodePair[K, P]) Location() P {
	return self.loc
}
