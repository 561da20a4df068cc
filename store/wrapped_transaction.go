// Copyright 2026 The ZenFS Authors.
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

package store

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/zenfs-go/core/internal/telemetry"
	"github.com/zenfs-go/core/zerrors"
)

// WrappedTransaction layers best-effort rollback on top of a raw
// Transaction. For every key it mutates, it stashes the first value it
// observed for that key (or records that the key didn't exist) so Abort
// can restore the store to its pre-transaction state for every key it
// touched.
type WrappedTransaction struct {
	raw Transaction

	mu       sync.Mutex
	original map[uint32][]byte // stashed pre-image, valid iff existed[id]
	existed  map[uint32]bool
	modified map[uint32]struct{}
	done     bool
}

// Wrap returns a rollback-capable Transaction over raw.
func Wrap(raw Transaction) *WrappedTransaction {
	return &WrappedTransaction{
		raw:      raw,
		original: make(map[uint32][]byte),
		existed:  make(map[uint32]bool),
		modified: make(map[uint32]struct{}),
	}
}

func (w *WrappedTransaction) Keys(ctx context.Context) ([]uint32, error) {
	return w.raw.Keys(ctx)
}

func (w *WrappedTransaction) Get(ctx context.Context, id uint32, rng Range) ([]byte, error) {
	data, err := w.raw.Get(ctx, id, rng)
	if rng == FullRange {
		w.mu.Lock()
		w.stashLocked(id, data, err)
		w.mu.Unlock()
	}
	return data, err
}

func (w *WrappedTransaction) Set(ctx context.Context, id uint32, data []byte, offset int64) (int64, error) {
	if err := w.stashBeforeMutation(ctx, id); err != nil {
		return 0, err
	}
	newSize, err := w.raw.Set(ctx, id, data, offset)
	if err == nil {
		w.mu.Lock()
		w.modified[id] = struct{}{}
		w.mu.Unlock()
	}
	return newSize, err
}

func (w *WrappedTransaction) Remove(ctx context.Context, id uint32) error {
	if err := w.stashBeforeMutation(ctx, id); err != nil {
		return err
	}
	err := w.raw.Remove(ctx, id)
	if err == nil {
		w.mu.Lock()
		w.modified[id] = struct{}{}
		w.mu.Unlock()
	}
	return err
}

// stashBeforeMutation captures id's pre-image via a fresh full read, unless
// one is already stashed.
func (w *WrappedTransaction) stashBeforeMutation(ctx context.Context, id uint32) error {
	w.mu.Lock()
	_, already := w.existed[id]
	w.mu.Unlock()
	if already {
		return nil
	}

	data, err := w.raw.Get(ctx, id, FullRange)
	w.mu.Lock()
	w.stashLocked(id, data, err)
	w.mu.Unlock()

	if err != nil && !zerrors.Is(err, zerrors.ENOENT) && !zerrors.Is(err, zerrors.ENODATA) {
		return err
	}
	return nil
}

func (w *WrappedTransaction) stashLocked(id uint32, data []byte, err error) {
	if _, already := w.existed[id]; already {
		return
	}
	if err != nil {
		w.existed[id] = false
		return
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	w.original[id] = cp
	w.existed[id] = true
}

// Commit makes writes visible. A second call (e.g. via a deferred Abort
// after a successful explicit Commit) is a no-op.
func (w *WrappedTransaction) Commit(ctx context.Context) error {
	w.mu.Lock()
	if w.done {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	err := w.raw.Commit(ctx)
	if err != nil {
		return err
	}

	w.mu.Lock()
	w.done = true
	w.mu.Unlock()
	telemetry.Get().CountCommit(ctx)
	return nil
}

// Abort restores every key this transaction modified to its pre-transaction
// state, best-effort. It is a no-op after Commit or a prior Abort.
func (w *WrappedTransaction) Abort(ctx context.Context) error {
	w.mu.Lock()
	if w.done {
		w.mu.Unlock()
		return nil
	}
	w.done = true
	modified := make([]uint32, 0, len(w.modified))
	for id := range w.modified {
		modified = append(modified, id)
	}
	w.mu.Unlock()

	var restored int64
	var firstErr error
	for _, id := range modified {
		w.mu.Lock()
		existed := w.existed[id]
		original := w.original[id]
		w.mu.Unlock()

		var err error
		if existed {
			_, err = w.raw.Set(ctx, id, original, 0)
		} else {
			err = w.raw.Remove(ctx, id)
			if zerrors.Is(err, zerrors.ENOENT) {
				err = nil
			}
		}
		if err != nil {
			log.Printf("zenfs: store: abort restore of key %d failed: %v", id, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		restored++
	}

	telemetry.Get().CountAbort(ctx)
	telemetry.Get().CountRollbackRestore(ctx, restored)

	if rawErr := w.raw.Abort(ctx); rawErr != nil {
		log.Printf("zenfs: store: underlying abort failed: %v", rawErr)
	}

	if firstErr != nil {
		return fmt.Errorf("wrapped transaction abort: %w", firstErr)
	}
	return nil
}

var _ Transaction = (*WrappedTransaction)(nil)
