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

// checker walks a tree and validates its structural invariants:
// strictly increasing keys, occupancy bounds, child counts and uniform leaf
// depth. With locking set, each node is locked before it is inspected and
// stays locked until its subtree is done, so locks are taken top-down only.
type checker[K, V any] struct {
	arity   int
	compare CompareFunc[K]
	locking bool
}

type bound[K any] struct {
	key   K
	valid bool
}

// check returns the number of entries below root. An empty tree must be
// represented by a nil root or an empty leaf root.
func (c checker[K, V]) check(root *node[K, V]) (int, error) {
	if root == nil {
		return 0, nil
	}
	count, _, err := c.checkNode(root, true, bound[K]{}, bound[K]{}, 1)
	return count, err
}

func (c checker[K, V]) checkNode(n *node[K, V], isRoot bool, lo, hi bound[K], depth int) (count int, leafDepth int, err error) {
	if n == nil {
		return 0, 0, errors.Wrapf(ErrCorrupted, "nil node at depth %d", depth)
	}
	if c.locking {
		n.mu.Lock()
		defer n.mu.Unlock()
	}
	used := len(n.entries)
	if cap(n.entries) != c.arity || cap(n.children) != c.arity+1 {
		return 0, 0, errors.Wrapf(ErrCorrupted, "node capacity %d/%d does not match arity %d",
			cap(n.entries), cap(n.children), c.arity)
	}
	if used > c.arity {
		return 0, 0, errors.Wrapf(ErrCorrupted, "occupancy %d exceeds arity %d", used, c.arity)
	}
	if !isRoot && used < minItems(c.arity) {
		return 0, 0, errors.Wrapf(ErrCorrupted, "occupancy %d below minimum %d at depth %d",
			used, minItems(c.arity), depth)
	}
	if !n.leaf() && len(n.children) != used+1 {
		return 0, 0, errors.Wrapf(ErrCorrupted, "node with %d entries has %d children",
			used, len(n.children))
	}
	for i, e := range n.entries {
		if i > 0 && c.compare(n.entries[i-1].key, e.key) >= 0 {
			return 0, 0, errors.Wrapf(ErrCorrupted, "keys out of order at index %d, depth %d", i, depth)
		}
		if lo.valid && c.compare(lo.key, e.key) >= 0 {
			return 0, 0, errors.Wrapf(ErrCorrupted, "key at index %d, depth %d not above parent pivot", i, depth)
		}
		if hi.valid && c.compare(e.key, hi.key) >= 0 {
			return 0, 0, errors.Wrapf(ErrCorrupted, "key at index %d, depth %d not below parent pivot", i, depth)
		}
	}
	if n.leaf() {
		return used, depth, nil
	}
	count = used
	for i, child := range n.children {
		clo, chi := lo, hi
		if i > 0 {
			clo = bound[K]{key: n.entries[i-1].key, valid: true}
		}
		if i < used {
			chi = bound[K]{key: n.entries[i].key, valid: true}
		}
		cCount, cDepth, cErr := c.checkNode(child, false, clo, chi, depth+1)
		if cErr != nil {
			return 0, 0, cErr
		}
		if i == 0 {
			leafDepth = cDepth
		} else if cDepth != leafDepth {
			return 0, 0, errors.Wrapf(ErrCorrupted, "leaves at depths %d and %d", leafDepth, cDepth)
		}
		count += cCount
	}
	return count, leafDepth, nil
}

// Check validates the structural invariants of the tree: keys strictly
// increasing in order, occupancy within bounds for every node, all leaves at
// the same depth, and an entry count matching Len. Errors wrap ErrCorrupted.
//
// Check locks every node of the tree; it is meant for tests and should be
// run while the tree is otherwise idle, since concurrent writers make the
// entry count racy.
func (t *Tree[K, V]) Check() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	c := checker[K, V]{arity: t.arity, compare: t.compare, locking: true}
	count, err := c.check(t.root)
	if err != nil {
		return err
	}
	if length := t.Len(); count != length {
		return errors.Wrapf(ErrCorrupted, "tree holds %d entries, length is %d", count, length)
	}
	return nil
}

// Verify runs Check and panics if the tree is corrupted. It is meant for
// test harnesses; a failed check cannot be recovered from.
func (t *Tree[K, V]) Verify() {
	if err := t.Check(); err != nil {
		tracer().Errorf("cbtree: consistency check failed: %v", err)
		panic(errors.NewAssertionErrorWithWrappedErrf(err, "cbtree: consistency check failed"))
	}
}

// Check validates the structural invariants of the map, see Tree.Check.
func (m *Map[K, V]) Check() error {
	c := checker[K, V]{arity: m.arity, compare: m.compare}
	count, err := c.check(m.root)
	if err != nil {
		return err
	}
	if count != m.length {
		return errors.Wrapf(ErrCorrupted, "map holds %d entries, length is %d", count, m.length)
	}
	return nil
}
