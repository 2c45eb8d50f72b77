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
	"cmp"
	"io"
)

// Map is an ordered key/value B-tree for use by a single goroutine.
//
// Map shares the node layout and balancing rules of Tree but takes no locks,
// and in exchange supports ordered iteration. Write operations are not safe
// for concurrent mutation by multiple goroutines, but Read operations are.
type Map[K, V any] struct {
	arity    int
	length   int
	root     *node[K, V]
	compare  CompareFunc[K]
	freelist *FreeList[K, V]
}

// NewMap creates a new map from cfg.
func NewMap[K, V any](cfg Config[K, V]) (*Map[K, V], error) {
	cfg = cfg.normalized()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Map[K, V]{
		arity:    cfg.Arity,
		compare:  cfg.Compare,
		freelist: cfg.FreeList,
	}, nil
}

// NewOrderedMap creates a new map for ordered key types with the given arity.
// It panics if arity is below MinArity.
func NewOrderedMap[K cmp.Ordered, V any](arity int) *Map[K, V] {
	m, err := NewMap(Config[K, V]{Arity: arity, Compare: Ordered[K]()})
	if err != nil {
		panic(err)
	}
	return m
}

// maxItems returns the max number of entries to allow per node.
func (m *Map[K, V]) maxItems() int {
	return m.arity
}

// minItems returns the min number of entries to allow per node (ignored for
// the root node).
func (m *Map[K, V]) minItems() int {
	return minItems(m.arity)
}

// maybeSplitChild checks if a child should be split, and if so splits it.
// Returns whether or not a split occurred.
func (m *Map[K, V]) maybeSplitChild(n *node[K, V], i int) bool {
	if len(n.children[i].entries) < m.maxItems() {
		return false
	}
	right := m.freelist.newNode()
	pivot := n.children[i].split(right)
	n.insertRight(i, pivot, right)
	return true
}

// insert inserts e into the subtree rooted at n, making sure no nodes in the
// subtree exceed maxItems entries. It refuses to replace an existing key.
func (m *Map[K, V]) insert(n *node[K, V], e entry[K, V]) bool {
	i, found := n.find(e.key, m.compare)
	if found {
		return false
	}
	if n.leaf() {
		n.insertLeft(i, e, nil)
		return true
	}
	if m.maybeSplitChild(n, i) {
		switch c := m.compare(e.key, n.entries[i].key); {
		case c == 0:
			return false
		case c > 0:
			i++ // we want second split node
		}
	}
	return m.insert(n.children[i], e)
}

// toRemove details what entry to remove in a remove call.
type toRemove int

const (
	removeItem toRemove = iota // removes the given key
	removeMax                  // removes largest entry in the subtree
)

// remove removes an entry from the subtree rooted at n.
func (m *Map[K, V]) remove(n *node[K, V], key K, typ toRemove) (_ entry[K, V], _ bool) {
	var i int
	var found bool
	switch typ {
	case removeMax:
		if n.leaf() {
			return n.entries.pop(), true
		}
		i = len(n.entries)
	case removeItem:
		i, found = n.find(key, m.compare)
		if n.leaf() {
			if found {
				return n.entries.removeAt(i), true
			}
			return
		}
	}
	// If we get to here, we have children.
	if len(n.children[i].entries) <= m.minItems() {
		return m.growChildAndRemove(n, i, key, typ)
	}
	child := n.children[i]
	if found {
		// The entry exists at index i, and the child we've selected can give
		// us a predecessor, since it has more than minItems entries.
		out := n.entries[i]
		n.entries[i], _ = m.remove(child, key, removeMax)
		return out, true
	}
	return m.remove(child, key, typ)
}

// growChildAndRemove grows child i to make sure it's possible to remove an
// entry from it while keeping it at minItems, then calls remove to actually
// remove it.
//
// Whether the key sits in n or below child i, the child is first brought above
// minimum occupancy (steal from the left sibling, steal from the right
// sibling, or merge), and then the remove call is simply redone on n.
func (m *Map[K, V]) growChildAndRemove(n *node[K, V], i int, key K, typ toRemove) (entry[K, V], bool) {
	switch {
	case i > 0 && len(n.children[i-1].entries) > m.minItems():
		n.borrowFromLeft(i, n.children[i-1], n.children[i])
	case i < len(n.entries) && len(n.children[i+1].entries) > m.minItems():
		n.borrowFromRight(i, n.children[i], n.children[i+1])
	default:
		if i >= len(n.entries) {
			i--
		}
		m.freelist.freeNode(n.mergeChildren(i))
	}
	return m.remove(n, key, typ)
}

// Get looks for key in the map, returning its value. It returns
// (zeroValue, false) if unable to find that key.
func (m *Map[K, V]) Get(key K) (_ V, _ bool) {
	for n := m.root; n != nil; {
		i, found := n.find(key, m.compare)
		if found {
			return n.entries[i].value, true
		}
		if n.leaf() {
			break
		}
		n = n.children[i]
	}
	return
}

// Insert adds key with value to the map. It returns false, leaving the map
// unchanged, if key is already present.
func (m *Map[K, V]) Insert(key K, value V) bool {
	e := entry[K, V]{key: key, value: value}
	if m.root == nil {
		m.root = m.freelist.newNode()
		m.root.entries.appendAll(e)
		m.length++
		return true
	}
	if m.root.full() {
		right := m.freelist.newNode()
		pivot := m.root.split(right)
		oldroot := m.root
		m.root = m.freelist.newNode()
		m.root.entries.appendAll(pivot)
		m.root.children.appendAll(oldroot, right)
	}
	if !m.insert(m.root, e) {
		return false
	}
	m.length++
	return true
}

// Remove removes key from the map, returning its value. If no such key
// exists, returns (zeroValue, false).
func (m *Map[K, V]) Remove(key K) (_ V, _ bool) {
	if m.root == nil {
		return
	}
	out, ok := m.remove(m.root, key, removeItem)
	if len(m.root.entries) == 0 {
		oldroot := m.root
		if m.root.leaf() {
			m.root = nil
		} else {
			m.root = m.root.children[0]
		}
		m.freelist.freeNode(oldroot)
	}
	if ok {
		m.length--
	}
	return out.value, ok
}

// Min returns the smallest key in the map and its value, or
// (zeroKey, zeroValue, false) if the map is empty.
func (m *Map[K, V]) Min() (_ K, _ V, _ bool) {
	n := m.root
	if n == nil {
		return
	}
	for !n.leaf() {
		n = n.children[0]
	}
	e := n.entries[0]
	return e.key, e.value, true
}

// Max returns the largest key in the map and its value, or
// (zeroKey, zeroValue, false) if the map is empty.
func (m *Map[K, V]) Max() (_ K, _ V, _ bool) {
	n := m.root
	if n == nil {
		return
	}
	for !n.leaf() {
		n = n.children[len(n.children)-1]
	}
	e := n.entries[len(n.entries)-1]
	return e.key, e.value, true
}

// Len returns the number of entries currently in the map.
func (m *Map[K, V]) Len() int {
	return m.length
}

// Iterator allows callers of Ascend to iterate in-order over the map. When
// this function returns false, iteration will stop and Ascend will
// immediately return.
type Iterator[K, V any] func(key K, value V) bool

// Ascend calls the iterator for every entry in the map in ascending key
// order, until iterator returns false.
func (m *Map[K, V]) Ascend(iterator Iterator[K, V]) {
	if m.root == nil {
		return
	}
	ascend(m.root, iterator)
}

func ascend[K, V any](n *node[K, V], iter Iterator[K, V]) bool {
	for i, e := range n.entries {
		if !n.leaf() && !ascend(n.children[i], iter) {
			return false
		}
		if !iter(e.key, e.value) {
			return false
		}
	}
	if !n.leaf() {
		return ascend(n.children[len(n.children)-1], iter)
	}
	return true
}

// Clear removes all entries from the map. Nodes are left to the garbage
// collector.
func (m *Map[K, V]) Clear() {
	m.root, m.length = nil, 0
}

// Print writes the node structure of the map to w, one node per line.
func (m *Map[K, V]) Print(w io.Writer) {
	if m.root != nil {
		m.root.print(w, 0, false)
	}
}
