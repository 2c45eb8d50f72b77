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

// Index is a concurrent set of values that carry their own keys. Ordering and
// key extraction are delegated to a Comparator; the index never synthesizes
// keys itself.
type Index[K, V any] struct {
	tree *Tree[K, V]
	cmp  Comparator[K, V]
}

// NewIndex creates an index with the given arity over values ordered by c.
func NewIndex[K, V any](arity int, c Comparator[K, V]) (*Index[K, V], error) {
	tree, err := New(Config[K, V]{Arity: arity, Compare: c.Compare})
	if err != nil {
		return nil, err
	}
	return &Index[K, V]{tree: tree, cmp: c}, nil
}

// Put adds value under its key. It returns false if a value with an equal key
// is already present.
func (x *Index[K, V]) Put(value V) bool {
	return x.tree.Insert(x.cmp.Key(value), value)
}

// Get returns the value stored under key.
func (x *Index[K, V]) Get(key K) (V, bool) {
	return x.tree.Get(key)
}

// Delete removes and returns the value stored under key.
func (x *Index[K, V]) Delete(key K) (V, bool) {
	return x.tree.Remove(key)
}

// Len returns the number of values in the index.
func (x *Index[K, V]) Len() int { return x.tree.Len() }

// IsEmpty returns true if the index holds no values.
func (x *Index[K, V]) IsEmpty() bool { return x.tree.IsEmpty() }

// Check validates the underlying tree, see Tree.Check.
func (x *Index[K, V]) Check() error { return x.tree.Check() }

// Destroy tears down an empty index, see Tree.Destroy.
func (x *Index[K, V]) Destroy() { x.tree.Destroy() }
