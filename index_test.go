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
	"strings"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
)

type account struct {
	name    string
	balance int
}

// byName orders accounts by name, ignoring case.
type byName struct{}

func (byName) Compare(a, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}

func (byName) Key(a *account) string { return a.name }

func TestIndex(t *testing.T) {
	x, err := NewIndex[string, *account](5, byName{})
	if err != nil {
		t.Fatal(err)
	}
	names := []string{"mallory", "alice", "bob", "carol", "dave", "eve", "trent", "peggy"}
	for i, name := range names {
		if !x.Put(&account{name: name, balance: i}) {
			t.Fatalf("put %q refused", name)
		}
	}
	if x.Put(&account{name: "Alice", balance: 99}) {
		t.Fatalf("put accepted a key equal to an existing one")
	}
	if a, ok := x.Get("ALICE"); !ok || a.name != "alice" || a.balance != 1 {
		t.Fatalf("get ALICE = %v, %v", a, ok)
	}
	if x.Len() != len(names) {
		t.Fatalf("len %d, want %d", x.Len(), len(names))
	}
	if err := x.Check(); err != nil {
		t.Fatal(err)
	}
	for _, name := range names {
		if a, ok := x.Delete(strings.ToUpper(name)); !ok || a.name != name {
			t.Fatalf("delete %q = %v, %v", name, a, ok)
		}
		if _, ok := x.Get(name); ok {
			t.Fatalf("%q still present after delete", name)
		}
	}
	if !x.IsEmpty() {
		t.Fatalf("index not empty, len=%d", x.Len())
	}
	x.Destroy()
}

func TestIndexConcurrentPut(t *testing.T) {
	x, err := NewIndex[string, *account](7, byName{})
	if err != nil {
		t.Fatal(err)
	}
	const workers, perWorker = 4, 250
	var accepted [workers]int
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				// every worker tries the same names; exactly one wins each
				if x.Put(&account{name: fmt.Sprintf("user-%04d", i), balance: w}) {
					accepted[w]++
				}
			}
		}(w)
	}
	wg.Wait()
	total := 0
	for _, n := range accepted {
		total += n
	}
	if total != perWorker || x.Len() != perWorker {
		t.Fatalf("accepted %d puts, len %d, want %d", total, x.Len(), perWorker)
	}
	if err := x.Check(); err != nil {
		t.Fatal(err)
	}
}

func TestNewIndexRejectsSmallArity(t *testing.T) {
	if _, err := NewIndex[string, *account](3, byName{}); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}
