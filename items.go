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

import "github.com/cockroachdb/errors"

// items is a fixed-capacity slice. Its capacity is set once when the owning
// node is allocated and never grows: an insert into a full slice is a
// programmer error, since callers must split before inserting.
type items[T any] []T

// insertAt inserts a value into the given index, pushing all subsequent values
// forward.
func (s *items[T]) insertAt(index int, item T) {
	if len(*s) == cap(*s) {
		panic(errors.AssertionFailedf("cbtree: insert into full node (capacity %d)", cap(*s)))
	}
	if index < 0 || index > len(*s) {
		panic(errors.AssertionFailedf("cbtree: insert index %d out of range [0,%d]", index, len(*s)))
	}
	var zero T
	*s = append(*s, zero)
	copy((*s)[index+1:], (*s)[index:])
	(*s)[index] = item
}

// removeAt removes a value at a given index, pulling all subsequent values
// back.
func (s *items[T]) removeAt(index int) T {
	if index < 0 || index >= len(*s) {
		panic(errors.AssertionFailedf("cbtree: remove index %d out of range [0,%d)", index, len(*s)))
	}
	item := (*s)[index]
	copy((*s)[index:], (*s)[index+1:])
	var zero T
	(*s)[len(*s)-1] = zero
	*s = (*s)[:len(*s)-1]
	return item
}

// pop removes and returns the last element in the list.
func (s *items[T]) pop() T {
	return s.removeAt(len(*s) - 1)
}

// appendAll appends values, refusing to grow past the fixed capacity.
func (s *items[T]) appendAll(values ...T) {
	if len(*s)+len(values) > cap(*s) {
		panic(errors.AssertionFailedf("cbtree: append of %d values overflows node (%d/%d)",
			len(values), len(*s), cap(*s)))
	}
	*s = append(*s, values...)
}

// truncate truncates this instance at index so that it contains only the
// first index items. index must be less than or equal to length.
func (s *items[T]) truncate(index int) {
	var toClear items[T]
	*s, toClear = (*s)[:index], (*s)[index:]
	var zero T
	for i := range toClear {
		toClear[i] = zero
	}
}
