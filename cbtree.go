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

// Package cbtree implements in-memory B-trees with bounded worst-case
// behavior, including one that is safe for concurrent use.
//
// Tree is an ordered key/value container that many goroutines may read and
// write at the same time. Every node carries its own mutex, and every
// operation is a single top-down walk using lock coupling (hand-over-hand
// locking): the lock of the next node is acquired before the lock of the
// current node is released. There is no global lock held for the duration of
// an operation; a tree-wide mutex guards only the root reference and is
// released as soon as the walk has entered the root.
//
// A walk never returns to an ancestor. Insert splits a full child before
// stepping into it, and Remove tops up a child at minimum occupancy (by
// borrowing from a sibling or merging with one) before stepping into it, so
// whatever happens below can always be absorbed by the node the walk is in.
//
// Within this tree, each node holds at most Arity entries and Arity+1
// children. Every node but the root holds at least (Arity-1)/2 entries and
// all leaves are at the same depth.
//
// Map is the single-goroutine counterpart built from the same nodes, with
// recursive insertion and deletion and ordered iteration.
//
// There is no reader/writer distinction: concurrent Gets on the same node
// serialize. Range scans under concurrency, multi-key transactions and
// persistence are not supported.
package cbtree

import (
	"cmp"
	"io"
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'cbtree'.
func tracer() tracing.Trace {
	return tracing.Select("cbtree")
}

// Tree is a B-tree safe for concurrent Get, Insert and Remove by multiple
// goroutines.
//
// A Tree must be created with New or NewOrdered and should be torn down
// with Destroy once it is empty.
type Tree[K, V any] struct {
	mu       sync.Mutex // guards root, never the contents of the root node
	root     *node[K, V]
	arity    int
	compare  CompareFunc[K]
	freelist *FreeList[K, V]
	length   atomic.Int64
}

// New creates a new tree from cfg.
func New[K, V any](cfg Config[K, V]) (*Tree[K, V], error) {
	cfg = cfg.normalized()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Tree[K, V]{
		arity:    cfg.Arity,
		compare:  cfg.Compare,
		freelist: cfg.FreeList,
	}, nil
}

// NewOrdered creates a new tree for ordered key types with the given arity.
// It panics if arity is below MinArity.
func NewOrdered[K cmp.Ordered, V any](arity int) *Tree[K, V] {
	t, err := New(Config[K, V]{Arity: arity, Compare: Ordered[K]()})
	if err != nil {
		panic(err)
	}
	return t
}

// Arity returns the maximum number of entries per node.
func (t *Tree[K, V]) Arity() int {
	return t.arity
}

func (t *Tree[K, V]) minItems() int {
	return minItems(t.arity)
}

func (t *Tree[K, V]) newNode() *node[K, V] {
	return t.freelist.newNode()
}

func (t *Tree[K, V]) freeNode(n *node[K, V]) {
	t.freelist.freeNode(n)
}

// Get looks for key in the tree and returns a copy of its value. It returns
// (zeroValue, false) if key is not present.
func (t *Tree[K, V]) Get(key K) (_ V, _ bool) {
	t.mu.Lock()
	n := t.root
	if n == nil {
		t.mu.Unlock()
		return
	}
	n.mu.Lock()
	t.mu.Unlock()
	for {
		i, found := n.find(key, t.compare)
		if found {
			value := n.entries[i].value
			n.mu.Unlock()
			return value, true
		}
		if n.leaf() {
			n.mu.Unlock()
			return
		}
		child := n.children[i]
		child.mu.Lock()
		n.mu.Unlock()
		n = child
	}
}

// Has returns true if key is in the tree.
func (t *Tree[K, V]) Has(key K) bool {
	_, ok := t.Get(key)
	return ok
}

// Insert adds key with value to the tree. It returns false, leaving the tree
// unchanged, if key is already present.
func (t *Tree[K, V]) Insert(key K, value V) bool {
	t.mu.Lock()
	if t.root == nil {
		root := t.newNode()
		root.entries.appendAll(entry[K, V]{key: key, value: value})
		t.root = root
		t.mu.Unlock()
		t.length.Add(1)
		return true
	}
	n := t.root
	n.mu.Lock()
	if n.full() {
		// The only place where the tree grows in height.
		right := t.newNode()
		pivot := n.split(right)
		root := t.newNode()
		root.entries.appendAll(pivot)
		root.children.appendAll(n, right)
		root.mu.Lock()
		t.root = root
		n.mu.Unlock()
		n = root
		tracer().Debugf("cbtree: root split, tree grows one level")
	}
	t.mu.Unlock()
	for {
		i, found := n.find(key, t.compare)
		if found {
			n.mu.Unlock()
			return false
		}
		if n.leaf() {
			n.insertLeft(i, entry[K, V]{key: key, value: value}, nil)
			n.mu.Unlock()
			t.length.Add(1)
			return true
		}
		child := n.children[i]
		child.mu.Lock()
		if child.full() {
			right := t.newNode()
			pivot := child.split(right)
			n.insertRight(i, pivot, right)
			if c := t.compare(key, pivot.key); c == 0 {
				child.mu.Unlock()
				n.mu.Unlock()
				return false
			} else if c > 0 {
				// right is only reachable through n, so this cannot block.
				right.mu.Lock()
				child.mu.Unlock()
				child = right
			}
		}
		n.mu.Unlock()
		n = child
	}
}

// Remove removes key from the tree and returns its value. It returns
// (zeroValue, false) if key is not present.
func (t *Tree[K, V]) Remove(key K) (_ V, _ bool) {
	t.mu.Lock()
	n := t.root
	if n == nil {
		t.mu.Unlock()
		return
	}
	n.mu.Lock()
	for len(n.entries) == 0 && !n.leaf() {
		child := n.children[0]
		child.mu.Lock()
		t.shrink(n, child)
		n = child
	}
	// While n is the root, the tree lock is kept so that a root emptied by
	// this walk can be replaced before anyone else reaches it.
	rooted := true
	for {
		i, found := n.find(key, t.compare)
		if n.leaf() {
			var e entry[K, V]
			if found {
				e = n.entries.removeAt(i)
				t.length.Add(-1)
			}
			drop := rooted && len(n.entries) == 0
			if drop {
				t.root = nil
			}
			n.mu.Unlock()
			if rooted {
				t.mu.Unlock()
			}
			if drop {
				t.freeNode(n)
			}
			return e.value, found
		}
		child := t.growChild(n, i)
		if rooted {
			if len(n.entries) == 0 {
				t.shrink(n, child)
				n = child
				continue
			}
			t.mu.Unlock()
			rooted = false
		}
		i, found = n.find(key, t.compare)
		if n.children[i] != child {
			panic(errors.AssertionFailedf("cbtree: child %d is not the rebalanced child", i))
		}
		if found {
			// Replace the entry by its in-order predecessor, the maximum of
			// the left subtree. n stays locked until the predecessor arrives.
			out := n.entries[i]
			n.entries[i] = t.popMax(child)
			n.mu.Unlock()
			t.length.Add(-1)
			return out.value, true
		}
		n.mu.Unlock()
		n = child
	}
}

// shrink replaces the entry-less root by its only child. The caller holds the
// tree lock and the locks of both nodes; the lock on root is released.
func (t *Tree[K, V]) shrink(root, child *node[K, V]) {
	t.root = child
	root.mu.Unlock()
	t.freeNode(root)
	tracer().Debugf("cbtree: root collapsed, tree shrinks one level")
}

// growChild makes sure child i of n can give up an entry, and returns that
// child locked. If the child is at minimum occupancy it takes an entry from a
// sibling with surplus, rotating through the separating pivot, or else it is
// merged with a sibling. After a merge with the left sibling the returned
// node is that sibling, now at index i-1.
//
// n must be locked and hold at least one entry. Siblings are only locked
// while n is held, so no one else can be waiting on a node merged away here.
func (t *Tree[K, V]) growChild(n *node[K, V], i int) *node[K, V] {
	child := n.children[i]
	child.mu.Lock()
	if len(child.entries) > t.minItems() {
		return child
	}
	if i > 0 {
		left := n.children[i-1]
		left.mu.Lock()
		if len(left.entries) > t.minItems() {
			n.borrowFromLeft(i, left, child)
			left.mu.Unlock()
			return child
		}
		if i == len(n.entries) {
			dead := n.mergeChildren(i - 1)
			dead.mu.Unlock()
			t.freeNode(dead)
			return left
		}
		left.mu.Unlock()
	}
	right := n.children[i+1]
	right.mu.Lock()
	if len(right.entries) > t.minItems() {
		n.borrowFromRight(i, child, right)
		right.mu.Unlock()
		return child
	}
	dead := n.mergeChildren(i)
	dead.mu.Unlock()
	t.freeNode(dead)
	return child
}

// popMax removes and returns the largest entry of the subtree rooted at n,
// walking down its right spine. n must be locked and able to give up an
// entry; it is unlocked on return.
func (t *Tree[K, V]) popMax(n *node[K, V]) entry[K, V] {
	for !n.leaf() {
		child := t.growChild(n, len(n.entries))
		n.mu.Unlock()
		n = child
	}
	e := n.entries.pop()
	n.mu.Unlock()
	return e
}

// Len returns the number of entries currently in the tree. While other
// goroutines are mutating the tree the result is only a snapshot.
func (t *Tree[K, V]) Len() int {
	return int(t.length.Load())
}

// IsEmpty returns true if the tree holds no entries.
func (t *Tree[K, V]) IsEmpty() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.root == nil {
		return true
	}
	t.root.mu.Lock()
	defer t.root.mu.Unlock()
	return len(t.root.entries) == 0 && t.root.leaf()
}

// Height returns the number of levels of the tree, 0 for an empty tree.
func (t *Tree[K, V]) Height() int {
	t.mu.Lock()
	n := t.root
	if n == nil {
		t.mu.Unlock()
		return 0
	}
	n.mu.Lock()
	t.mu.Unlock()
	height := 1
	for !n.leaf() {
		child := n.children[0]
		child.mu.Lock()
		n.mu.Unlock()
		n = child
		height++
	}
	n.mu.Unlock()
	return height
}

// Destroy tears down an empty tree and hands its nodes back to the free
// list. Destroying a tree that still holds entries is a programming error
// and panics.
func (t *Tree[K, V]) Destroy() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.root == nil {
		return
	}
	t.root.mu.Lock()
	if len(t.root.entries) != 0 || !t.root.leaf() {
		t.root.mu.Unlock()
		panic(errors.AssertionFailedf("cbtree: destroying non-empty tree with %d entries", t.length.Load()))
	}
	root := t.root
	t.root = nil
	root.mu.Unlock()
	t.freeNode(root)
	tracer().Debugf("cbtree: tree destroyed")
}

// Print writes the node structure of the tree to w, one node per line. It is
// meant for debugging and holds node locks along the way.
func (t *Tree[K, V]) Print(w io.Writer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.root == nil {
		return
	}
	t.root.print(w, 0, true)
}
