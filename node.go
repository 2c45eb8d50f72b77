// Copyright 2014-2022 Google Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cbtree

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
)

// entry is a single key/value pair stored in a node.
type entry[K, V any] struct {
	key   K
	value V
}

// node is a node of a tree.
//
// It must at all times maintain the invariant that either
//   - len(children) == 0 (a leaf), or
//   - len(children) == len(entries) + 1
//
// children[i] holds keys strictly between entries[i-1] and entries[i].
// Capacities are fixed at allocation: cap(entries) is the arity of the tree,
// cap(children) is arity+1.
//
// mu protects every other field. All methods below assume the caller holds
// it (or, for a Map, that the node is not shared).
type node[K, V any] struct {
	mu       sync.Mutex
	entries  items[entry[K, V]]
	children items[*node[K, V]]
}

func newNode[K, V any](arity int) *node[K, V] {
	return &node[K, V]{
		entries:  make(items[entry[K, V]], 0, arity),
		children: make(items[*node[K, V]], 0, arity+1),
	}
}

func (n *node[K, V]) leaf() bool {
	return len(n.children) == 0
}

func (n *node[K, V]) full() bool {
	return len(n.entries) == cap(n.entries)
}

// reset drops all references held by n so it can be recycled.
func (n *node[K, V]) reset() {
	n.entries.truncate(0)
	n.children.truncate(0)
}

// find returns the position of key in n. If found is true, position is the
// index of the matching entry; otherwise it is the index of the child whose
// subtree would hold key.
func (n *node[K, V]) find(key K, compare CompareFunc[K]) (position int, found bool) {
	i := sort.Search(len(n.entries), func(i int) bool {
		return compare(key, n.entries[i].key) <= 0
	})
	return i, i < len(n.entries) && compare(key, n.entries[i].key) == 0
}

// attach inserts child at index i of the child list. A nil child is only
// valid for leaves.
func (n *node[K, V]) attach(i int, child *node[K, V]) {
	if child == nil {
		if !n.leaf() {
			panic(errors.AssertionFailedf("cbtree: nil child attached to internal node"))
		}
		return
	}
	n.children.insertAt(i, child)
}

// insertLeft stores e at index i and attaches child to the left of it.
func (n *node[K, V]) insertLeft(i int, e entry[K, V], child *node[K, V]) {
	n.entries.insertAt(i, e)
	n.attach(i, child)
}

// insertRight stores e at index i and attaches child to the right of it.
func (n *node[K, V]) insertRight(i int, e entry[K, V], child *node[K, V]) {
	n.entries.insertAt(i, e)
	n.attach(i+1, child)
}

// removeLeft is the inverse of insertLeft. The detached child is nil for
// leaves.
func (n *node[K, V]) removeLeft(i int) (entry[K, V], *node[K, V]) {
	e := n.entries.removeAt(i)
	if n.leaf() {
		return e, nil
	}
	return e, n.children.removeAt(i)
}

// removeRight is the inverse of insertRight.
func (n *node[K, V]) removeRight(i int) (entry[K, V], *node[K, V]) {
	e := n.entries.removeAt(i)
	if n.leaf() {
		return e, nil
	}
	return e, n.children.removeAt(i + 1)
}

// split moves the upper half of a full node into right, which must be empty,
// and returns the median entry to be promoted into the parent.
func (n *node[K, V]) split(right *node[K, V]) entry[K, V] {
	if !n.full() {
		panic(errors.AssertionFailedf("cbtree: split of non-full node (%d/%d)", len(n.entries), cap(n.entries)))
	}
	if len(right.entries) != 0 || len(right.children) != 0 {
		panic(errors.AssertionFailedf("cbtree: split target is not empty"))
	}
	mid := len(n.entries) / 2
	pivot := n.entries[mid]
	right.entries.appendAll(n.entries[mid+1:]...)
	if !n.leaf() {
		right.children.appendAll(n.children[mid+1:]...)
		n.children.truncate(mid + 1)
	}
	n.entries.truncate(mid)
	return pivot
}

// merge appends pivot and all of right's entries and children to n. The
// caller disposes of right afterwards.
func (n *node[K, V]) merge(pivot entry[K, V], right *node[K, V]) {
	if n.leaf() != right.leaf() {
		panic(errors.AssertionFailedf("cbtree: merge of nodes on different levels"))
	}
	n.entries.appendAll(pivot)
	n.entries.appendAll(right.entries...)
	n.children.appendAll(right.children...)
}

// borrowFromLeft rotates the last entry of left, the child at i-1, through
// pivot i-1 into child, the child at i.
func (n *node[K, V]) borrowFromLeft(i int, left, child *node[K, V]) {
	e, grandchild := left.removeRight(len(left.entries) - 1)
	child.insertLeft(0, n.entries[i-1], grandchild)
	n.entries[i-1] = e
}

// borrowFromRight rotates the first entry of right, the child at i+1, through
// pivot i into child, the child at i.
func (n *node[K, V]) borrowFromRight(i int, child, right *node[K, V]) {
	e, grandchild := right.removeLeft(0)
	child.insertRight(len(child.entries), n.entries[i], grandchild)
	n.entries[i] = e
}

// mergeChildren folds pivot i and child i+1 into child i and returns the
// absorbed right node, which is no longer referenced by n.
func (n *node[K, V]) mergeChildren(i int) *node[K, V] {
	pivot, right := n.removeRight(i)
	n.children[i].merge(pivot, right)
	return right
}

// print is used for testing/debugging purposes. With locking set, every node
// is locked while it and its subtree are printed.
func (n *node[K, V]) print(w io.Writer, level int, locking bool) {
	if locking {
		n.mu.Lock()
		defer n.mu.Unlock()
	}
	keys := make([]K, len(n.entries))
	for i, e := range n.entries {
		keys[i] = e.key
	}
	fmt.Fprintf(w, "%sNODE:%v\n", strings.Repeat("  ", level), keys)
	for _, c := range n.children {
		c.print(w, level+1, locking)
	}
}
