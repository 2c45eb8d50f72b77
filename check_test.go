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
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
)

// twoLevelTree returns a tree with root [3] over leaves [1 2] and [4 5 6].
func twoLevelTree() *Tree[int, int] {
	tr := NewOrdered[int, int](5)
	for k := 1; k <= 6; k++ {
		tr.Insert(k, testValue(k))
	}
	return tr
}

func expectCorrupted(t *testing.T, err error, fragment string) {
	t.Helper()
	if err == nil {
		t.Fatalf("corruption not detected, expected %q", fragment)
	}
	if !errors.Is(err, ErrCorrupted) {
		t.Fatalf("error does not wrap ErrCorrupted: %v", err)
	}
	if !strings.Contains(err.Error(), fragment) {
		t.Fatalf("error %q does not mention %q", err, fragment)
	}
}

func TestCheckDetectsCorruption(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "cbtree")
	defer teardown()
	//
	tr := twoLevelTree()
	if err := tr.Check(); err != nil {
		t.Fatalf("healthy tree reported: %v", err)
	}
	leaf := tr.root.children[0]
	leaf.entries[0], leaf.entries[1] = leaf.entries[1], leaf.entries[0]
	expectCorrupted(t, tr.Check(), "out of order")

	tr = twoLevelTree()
	tr.root.children[1].entries[0].key = 2
	expectCorrupted(t, tr.Check(), "not above parent pivot")

	tr = twoLevelTree()
	tr.root.children[0].removeLeft(0)
	expectCorrupted(t, tr.Check(), "below minimum")

	tr = twoLevelTree()
	tr.length.Add(1)
	expectCorrupted(t, tr.Check(), "length is 7")
}

func TestCheckDetectsUnevenDepth(t *testing.T) {
	inner := newNode[int, int](5)
	inner.entries.appendAll(entry[int, int]{key: 20}, entry[int, int]{key: 30})
	inner.children.appendAll(leafOf(5, 15, 16), leafOf(5, 25, 26), leafOf(5, 35, 36))
	root := newNode[int, int](5)
	root.entries.appendAll(entry[int, int]{key: 10})
	root.children.appendAll(leafOf(5, 1, 2), inner)

	tr := NewOrdered[int, int](5)
	tr.root = root
	tr.length.Store(9)
	expectCorrupted(t, tr.Check(), "leaves at depths 2 and 3")
	expectPanic(t, "Verify on corrupted tree", tr.Verify)
}

func TestMapCheckDetectsCorruption(t *testing.T) {
	m := NewOrderedMap[int, int](5)
	for k := 1; k <= 6; k++ {
		m.Insert(k, k)
	}
	if err := m.Check(); err != nil {
		t.Fatal(err)
	}
	m.root.children[0].entries.pop()
	expectCorrupted(t, m.Check(), "below minimum")
}
