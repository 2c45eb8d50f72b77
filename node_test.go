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
	"reflect"
	"testing"
)

func leafOf(arity int, keys ...int) *node[int, int] {
	n := newNode[int, int](arity)
	for _, k := range keys {
		n.entries.appendAll(entry[int, int]{key: k, value: testValue(k)})
	}
	return n
}

func keysOf(n *node[int, int]) []int {
	keys := make([]int, len(n.entries))
	for i, e := range n.entries {
		keys[i] = e.key
	}
	return keys
}

func expectPanic(t *testing.T, what string, f func()) {
	t.Helper()
	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("expected %s to panic", what)
		}
	}()
	f()
}

func TestNodeFind(t *testing.T) {
	n := leafOf(5, 10, 20, 30)
	cmp := Ordered[int]()
	for _, tc := range []struct {
		key   int
		pos   int
		found bool
	}{
		{5, 0, false}, {10, 0, true}, {15, 1, false}, {20, 1, true},
		{30, 2, true}, {35, 3, false},
	} {
		if pos, found := n.find(tc.key, cmp); pos != tc.pos || found != tc.found {
			t.Errorf("find(%d) = %d, %v; want %d, %v", tc.key, pos, found, tc.pos, tc.found)
		}
	}
}

func TestNodeInsertRemoveLeftRight(t *testing.T) {
	a, b, c := leafOf(5, 1), leafOf(5, 11), leafOf(5, 21)
	n := newNode[int, int](5)
	n.entries.appendAll(entry[int, int]{key: 10})
	n.children.appendAll(a, b)
	n.insertRight(1, entry[int, int]{key: 20}, c)
	if !reflect.DeepEqual(keysOf(n), []int{10, 20}) || n.children[2] != c {
		t.Fatalf("insertRight: keys %v", keysOf(n))
	}
	e, detached := n.removeLeft(1)
	if e.key != 20 || detached != b {
		t.Fatalf("removeLeft(1) = %d, %p", e.key, detached)
	}
	n.insertLeft(1, entry[int, int]{key: 20}, b)
	if n.children[0] != a || n.children[1] != b || n.children[2] != c {
		t.Fatalf("children out of place after insertLeft")
	}
	e, detached = n.removeRight(0)
	if e.key != 10 || detached != b {
		t.Fatalf("removeRight(0) = %d, %p", e.key, detached)
	}
	if len(n.children) != 2 || n.children[0] != a || n.children[1] != c {
		t.Fatalf("children out of place after removeRight")
	}
}

func TestNodeInsertIntoFullPanics(t *testing.T) {
	n := leafOf(5, 1, 2, 3, 4, 5)
	expectPanic(t, "insert into full node", func() {
		n.insertLeft(0, entry[int, int]{key: 0}, nil)
	})
	expectPanic(t, "remove past occupancy", func() {
		n.removeLeft(5)
	})
	internal := newNode[int, int](5)
	internal.entries.appendAll(entry[int, int]{key: 10})
	internal.children.appendAll(leafOf(5, 1), leafOf(5, 11))
	expectPanic(t, "nil child on internal node", func() {
		internal.insertLeft(0, entry[int, int]{key: 5}, nil)
	})
}

func TestNodeSplit(t *testing.T) {
	for _, arity := range []int{5, 6, 7, 8} {
		keys := make([]int, arity)
		for i := range keys {
			keys[i] = i
		}
		n := leafOf(arity, keys...)
		right := newNode[int, int](arity)
		pivot := n.split(right)
		mid := arity / 2
		if pivot.key != mid {
			t.Errorf("arity %d: pivot %d, want %d", arity, pivot.key, mid)
		}
		if !reflect.DeepEqual(keysOf(n), keys[:mid]) || !reflect.DeepEqual(keysOf(right), keys[mid+1:]) {
			t.Errorf("arity %d: halves %v / %v", arity, keysOf(n), keysOf(right))
		}
		if len(n.entries) < minItems(arity) || len(right.entries) < minItems(arity) {
			t.Errorf("arity %d: split produced underfull half", arity)
		}
	}
	expectPanic(t, "split of non-full node", func() {
		leafOf(5, 1, 2).split(newNode[int, int](5))
	})
}

func TestNodeSplitInternalAndMerge(t *testing.T) {
	children := make([]*node[int, int], 6)
	n := newNode[int, int](5)
	for i := 0; i < 5; i++ {
		n.entries.appendAll(entry[int, int]{key: (i + 1) * 10})
	}
	for i := range children {
		children[i] = leafOf(5, i*10+1)
	}
	n.children.appendAll(children...)
	right := newNode[int, int](5)
	pivot := n.split(right)
	if pivot.key != 30 {
		t.Fatalf("pivot %d, want 30", pivot.key)
	}
	if len(n.children) != 3 || len(right.children) != 3 || right.children[0] != children[3] {
		t.Fatalf("children not split at the pivot")
	}
	n.merge(pivot, right)
	if !reflect.DeepEqual(keysOf(n), []int{10, 20, 30, 40, 50}) {
		t.Fatalf("merge produced %v", keysOf(n))
	}
	for i, c := range n.children {
		if c != children[i] {
			t.Fatalf("child %d out of place after merge", i)
		}
	}
}

func TestNodeBorrow(t *testing.T) {
	left, child, right := leafOf(5, 1, 2, 3), leafOf(5, 11, 12), leafOf(5, 21, 22, 23)
	parent := newNode[int, int](5)
	parent.entries.appendAll(entry[int, int]{key: 10}, entry[int, int]{key: 20})
	parent.children.appendAll(left, child, right)

	parent.borrowFromLeft(1, left, child)
	if !reflect.DeepEqual(keysOf(parent), []int{3, 20}) || !reflect.DeepEqual(keysOf(child), []int{10, 11, 12}) {
		t.Fatalf("borrowFromLeft: parent %v child %v", keysOf(parent), keysOf(child))
	}
	parent.borrowFromRight(1, child, right)
	if !reflect.DeepEqual(keysOf(parent), []int{3, 21}) || !reflect.DeepEqual(keysOf(child), []int{10, 11, 12, 20}) {
		t.Fatalf("borrowFromRight: parent %v child %v", keysOf(parent), keysOf(child))
	}

	parent = newNode[int, int](5)
	left, child = leafOf(5, 1, 2), leafOf(5, 11, 12)
	parent.entries.appendAll(entry[int, int]{key: 10})
	parent.children.appendAll(left, child)
	if dead := parent.mergeChildren(0); dead != child {
		t.Fatalf("mergeChildren returned the wrong node")
	}
	if !reflect.DeepEqual(keysOf(left), []int{1, 2, 10, 11, 12}) || len(parent.entries) != 0 {
		t.Fatalf("mergeChildren: left %v parent %v", keysOf(left), keysOf(parent))
	}
	expectPanic(t, "merge beyond capacity", func() {
		left.merge(entry[int, int]{key: 20}, leafOf(5, 21))
	})
}
