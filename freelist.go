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

import "sync"

const (
	DefaultFreeListSize = 32
)

// FreeList represents a free list of tree nodes. By default each tree has its
// own FreeList, but multiple trees of the same arity can share one. A FreeList
// is safe for concurrent use.
type FreeList[K, V any] struct {
	mu       sync.Mutex
	arity    int
	freelist []*node[K, V]
}

// NewFreeList creates a new free list for nodes of the given arity.
// size is the maximum size of the returned free list.
func NewFreeList[K, V any](arity, size int) *FreeList[K, V] {
	return &FreeList[K, V]{
		arity:    arity,
		freelist: make([]*node[K, V], 0, size),
	}
}

// Arity returns the node arity this free list hands out.
func (f *FreeList[K, V]) Arity() int {
	return f.arity
}

func (f *FreeList[K, V]) newNode() (n *node[K, V]) {
	f.mu.Lock()
	index := len(f.freelist) - 1
	if index < 0 {
		f.mu.Unlock()
		return newNode[K, V](f.arity)
	}
	n = f.freelist[index]
	f.freelist[index] = nil
	f.freelist = f.freelist[:index]
	f.mu.Unlock()
	return
}

// freeNode recycles n, which must be unlocked and unreachable from any tree.
// It reports whether n was kept.
func (f *FreeList[K, V]) freeNode(n *node[K, V]) (out bool) {
	n.reset()
	f.mu.Lock()
	if len(f.freelist) < cap(f.freelist) {
		f.freelist = append(f.freelist, n)
		out = true
	}
	f.mu.Unlock()
	return
}

// Len returns the number of nodes currently held for reuse.
func (f *FreeList[K, V]) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.freelist)
}
