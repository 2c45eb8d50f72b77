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

import "cmp"

// CompareFunc determines how to order keys of type K. It returns a negative
// number if a < b, zero if a == b and a positive number if a > b, and must
// implement a strict total order. Keys comparing equal are duplicates; a tree
// holds at most one of them.
type CompareFunc[K any] func(a, b K) int

// Ordered returns a CompareFunc that uses the '<' operator for types that
// support it.
func Ordered[K cmp.Ordered]() CompareFunc[K] {
	return cmp.Compare[K]
}

// Comparator orders keys and extracts the key of a stored value. It is the
// contract consumed by Index, for values that carry their own key.
type Comparator[K, V any] interface {
	// Compare orders two keys, see CompareFunc.
	Compare(a, b K) int
	// Key returns the key of a stored value.
	Key(value V) K
}
