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

// Command cbstress hammers a cbtree.Tree from many goroutines and checks the
// result against per-worker shadow maps.
//
// Every worker owns the keys k with k % workers == id, so it can predict the
// outcome of each of its own operations while other workers reshape the tree
// around it. Readers probe the whole key space concurrently. When all workers
// are done the tree is checked, drained in parallel and destroyed.
//
// Usage:
//
//	cbstress [-arity 31] [-workers 8] [-readers 2] [-ops 100000] [-keys 65536] [-seed 1] [-trace Error]
package main

import (
	"flag"
	"fmt"
	"io"
	"math/rand"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fatih/color"
	"github.com/google/cbtree"
	"github.com/npillmayer/schuko/tracing"
	"github.com/npillmayer/schuko/tracing/gologadapter"
	"golang.org/x/term"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

type options struct {
	arity, workers, readers int
	ops, keys               int
	seed                    int64
}

// stats is shared by all workers.
type stats struct {
	inserts, removes, gets, probes atomic.Int64
	mu                             sync.Mutex
	failures                       []error
}

func (s *stats) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, err)
}

func run(args []string, out io.Writer) int {
	fs := flag.NewFlagSet("cbstress", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	var opts options
	fs.IntVar(&opts.arity, "arity", cbtree.DefaultArity, "Maximum entries per node")
	fs.IntVar(&opts.workers, "workers", 8, "Number of writing goroutines")
	fs.IntVar(&opts.readers, "readers", 2, "Number of read-only goroutines")
	fs.IntVar(&opts.ops, "ops", 100000, "Operations per worker")
	fs.IntVar(&opts.keys, "keys", 1<<16, "Size of the key space")
	fs.Int64Var(&opts.seed, "seed", 1, "Random seed")
	level := fs.String("trace", "Error", "Trace level for the tree: Error, Info or Debug")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if opts.workers < 1 || opts.keys < opts.workers {
		fmt.Fprintln(os.Stderr, "Error: need at least one worker and one key per worker")
		return 1
	}

	tracing.SetTraceSelector(tracing.SelectorForAdapter(gologadapter.GetAdapter()))
	tracing.Select("cbtree").SetTraceLevel(tracing.TraceLevelFromString(*level))
	color.NoColor = !term.IsTerminal(int(os.Stdout.Fd()))

	fmt.Fprintf(out, "cbstress: arity=%d workers=%d readers=%d ops=%d keys=%d seed=%d\n",
		opts.arity, opts.workers, opts.readers, opts.ops, opts.keys, opts.seed)
	start := time.Now()
	st, err := stress(opts)
	elapsed := time.Since(start)
	total := st.inserts.Load() + st.removes.Load() + st.gets.Load()
	fmt.Fprintf(out, "  inserts %d, removes %d, gets %d, reader probes %d\n",
		st.inserts.Load(), st.removes.Load(), st.gets.Load(), st.probes.Load())
	fmt.Fprintf(out, "  %d operations in %v (%.0f ops/s)\n",
		total, elapsed.Round(time.Millisecond), float64(total)/elapsed.Seconds())
	for _, f := range st.failures {
		color.New(color.FgRed).Fprintf(out, "  %v\n", f)
	}
	if err != nil || len(st.failures) > 0 {
		if err != nil {
			color.New(color.FgRed).Fprintf(out, "  %+v\n", err)
		}
		color.New(color.FgRed, color.Bold).Fprintln(out, "FAIL")
		return 1
	}
	color.New(color.FgGreen, color.Bold).Fprintln(out, "PASS")
	return 0
}

// stress runs the workload and returns the collected statistics. Mismatches
// seen by individual workers are recorded in stats; structural damage to the
// tree is returned as an error.
func stress(opts options) (*stats, error) {
	tree, err := cbtree.New(cbtree.Config[int, int64]{
		Arity:    opts.arity,
		Compare:  cbtree.Ordered[int](),
		FreeList: cbtree.NewFreeList[int, int64](opts.arity, cbtree.DefaultFreeListSize*opts.workers),
	})
	if err != nil {
		return &stats{}, err
	}
	st := &stats{}
	shadows := make([]*cbtree.Map[int, int64], opts.workers)
	stripe := opts.keys / opts.workers
	value := func(k int) int64 { return int64(k)*7 + 3 }

	var wg, rg sync.WaitGroup
	done := make(chan struct{})
	for r := 0; r < opts.readers; r++ {
		rg.Add(1)
		go func(r int) {
			defer rg.Done()
			rnd := rand.New(rand.NewSource(opts.seed + int64(1000+r)))
			for {
				select {
				case <-done:
					return
				default:
				}
				k := rnd.Intn(opts.keys + opts.workers)
				st.probes.Add(1)
				if v, ok := tree.Get(k); ok && v != value(k) {
					st.fail(errors.Newf("reader %d: key %d holds %d, never stored", r, k, v))
					return
				}
			}
		}(r)
	}
	for w := 0; w < opts.workers; w++ {
		shadows[w] = cbtree.NewOrderedMap[int, int64](opts.arity)
		wg.Add(1)
		go func(w int, shadow *cbtree.Map[int, int64]) {
			defer wg.Done()
			rnd := rand.New(rand.NewSource(opts.seed + int64(w)))
			for i := 0; i < opts.ops; i++ {
				k := rnd.Intn(stripe)*opts.workers + w
				switch rnd.Intn(3) {
				case 0:
					st.inserts.Add(1)
					if got, want := tree.Insert(k, value(k)), shadow.Insert(k, value(k)); got != want {
						st.fail(errors.Newf("worker %d: insert %d returned %v, expected %v", w, k, got, want))
						return
					}
				case 1:
					st.removes.Add(1)
					_, want := shadow.Remove(k)
					if v, ok := tree.Remove(k); ok != want || (ok && v != value(k)) {
						st.fail(errors.Newf("worker %d: remove %d returned %d, %v, expected %v", w, k, v, ok, want))
						return
					}
				default:
					st.gets.Add(1)
					_, want := shadow.Get(k)
					if v, ok := tree.Get(k); ok != want || (ok && v != value(k)) {
						st.fail(errors.Newf("worker %d: get %d returned %d, %v, expected %v", w, k, v, ok, want))
						return
					}
				}
			}
		}(w, shadows[w])
	}
	wg.Wait()
	close(done)
	rg.Wait()
	if len(st.failures) > 0 {
		return st, nil
	}

	if err := tree.Check(); err != nil {
		return st, errors.Wrap(err, "after workload")
	}
	expected := 0
	for _, shadow := range shadows {
		expected += shadow.Len()
	}
	if tree.Len() != expected {
		return st, errors.Newf("tree holds %d entries, shadow maps hold %d", tree.Len(), expected)
	}
	tracing.Select("cbtree").Infof("cbstress: %d entries, height %d, draining", tree.Len(), tree.Height())

	for w, shadow := range shadows {
		wg.Add(1)
		go func(w int, shadow *cbtree.Map[int, int64]) {
			defer wg.Done()
			shadow.Ascend(func(k int, v int64) bool {
				st.removes.Add(1)
				if got, ok := tree.Remove(k); !ok || got != v {
					st.fail(errors.Newf("worker %d: drain of key %d returned %d, %v", w, k, got, ok))
					return false
				}
				return true
			})
		}(w, shadow)
	}
	wg.Wait()
	if len(st.failures) > 0 {
		return st, nil
	}
	if err := tree.Check(); err != nil {
		return st, errors.Wrap(err, "after drain")
	}
	if !tree.IsEmpty() {
		return st, errors.Newf("tree not empty after drain, %d entries left", tree.Len())
	}
	tree.Destroy()
	return st, nil
}
