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

const (
	// MinArity is the smallest supported fan-out. Below it a split could
	// produce an empty node.
	MinArity = 5
	// DefaultArity is used when Config.Arity is zero.
	DefaultArity = 31
)

// Config configures a Tree or a Map. The arity is fixed for the lifetime of
// the container.
type Config[K, V any] struct {
	// Arity is the maximum number of entries per node. Nodes have up to
	// Arity+1 children.
	Arity int
	// Compare orders keys. Required.
	Compare CompareFunc[K]
	// FreeList recycles nodes. If nil, a private free list of
	// DefaultFreeListSize nodes is used.
	FreeList *FreeList[K, V]
}

func (cfg Config[K, V]) normalized() Config[K, V] {
	if cfg.Arity == 0 {
		cfg.Arity = DefaultArity
	}
	if cfg.FreeList == nil && cfg.Arity >= MinArity {
		cfg.FreeList = NewFreeList[K, V](cfg.Arity, DefaultFreeListSize)
	}
	return cfg
}

func (cfg Config[K, V]) validate() error {
	if cfg.Arity < MinArity {
		return errors.Wrapf(ErrInvalidConfig, "arity %d is below minimum %d", cfg.Arity, MinArity)
	}
	if cfg.Compare == nil {
		return errors.Wrap(ErrInvalidConfig, "compare function is required")
	}
	if cfg.FreeList != nil && cfg.FreeList.arity != cfg.Arity {
		return errors.Wrapf(ErrInvalidConfig, "free list arity %d does not match tree arity %d",
			cfg.FreeList.arity, cfg.Arity)
	}
	return nil
}

// minItems returns the min number of entries to allow per node (ignored for
// the root node).
func minItems(arity int) int {
	return (arity - 1) / 2
}
