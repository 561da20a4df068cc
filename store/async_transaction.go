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
	"sync"

	"github.com/zenfs-go/core/zerrors"
)

// AsyncTransaction wraps a Transaction whose backend is slow/remote. Writes
// land in an in-memory cache immediately and are replayed against the
// backend on a serial chain so backend calls never race each other; reads
// that miss the cache via GetSync don't block the caller — they fail fast
// with EAGAIN while a prefetch runs in the background.
type AsyncTransaction struct {
	base Transaction

	mu      sync.Mutex
	cache   map[uint32][]byte
	removed map[uint32]bool

	chainMu sync.Mutex
	chain   chan struct{} // closed placeholder swapped to serialize chain links
	errs    []error
	errMu   sync.Mutex
}

// NewAsyncTransaction wraps base.
func NewAsyncTransaction(base Transaction) *AsyncTransaction {
	done := make(chan struct{})
	close(done)
	return &AsyncTransaction{
		base:    base,
		cache:   make(map[uint32][]byte),
		removed: make(map[uint32]bool),
		chain:   done,
	}
}

// enqueue appends fn to the serial chain, returning a channel closed once fn
// (and everything queued before it) has run.
func (a *AsyncTransaction) enqueue(fn func()) <-chan struct{} {
	a.chainMu.Lock()
	defer a.chainMu.Unlock()

	prev := a.chain
	next := make(chan struct{})
	a.chain = next
	go func() {
		<-prev
		defer close(next)
		fn()
	}()
	return next
}

func (a *AsyncTransaction) recordErr(err error) {
	if err == nil {
		return
	}
	a.errMu.Lock()
	a.errs = append(a.errs, err)
	a.errMu.Unlock()
}

// GetSync returns id's cached value without blocking on the backend. On a
// cache miss it starts a background prefetch and returns EAGAIN.
func (a *AsyncTransaction) GetSync(ctx context.Context, id uint32, rng Range) ([]byte, error) {
	a.mu.Lock()
	if a.removed[id] {
		a.mu.Unlock()
		return nil, zerrors.New(zerrors.ENODATA, "AsyncTransaction.GetSync", "")
	}
	if data, ok := a.cache[id]; ok {
		a.mu.Unlock()
		return sliceRange(data, rng), nil
	}
	a.mu.Unlock()

	a.enqueue(func() {
		data, err := a.base.Get(ctx, id, FullRange)
		a.recordErr(err)
		if err == nil {
			a.mu.Lock()
			a.cache[id] = data
			a.mu.Unlock()
		}
	})
	return nil, zerrors.New(zerrors.EAGAIN, "AsyncTransaction.GetSync", "")
}

// SetSync writes id's cache entry immediately and enqueues the backend
// write onto the serial chain.
func (a *AsyncTransaction) SetSync(ctx context.Context, id uint32, data []byte, offset int64) int64 {
	a.mu.Lock()
	cur := a.cache[id]
	newSize := applyOffset(cur, data, offset)
	a.cache[id] = newSize.data
	delete(a.removed, id)
	a.mu.Unlock()

	a.enqueue(func() {
		_, err := a.base.Set(ctx, id, data, offset)
		a.recordErr(err)
	})
	return int64(len(newSize.data))
}

type sizedData struct{ data []byte }

func applyOffset(cur, data []byte, offset int64) sizedData {
	end := offset + int64(len(data))
	if end < int64(len(cur)) {
		end = int64(len(cur))
	}
	out := make([]byte, end)
	copy(out, cur)
	copy(out[offset:], data)
	return sizedData{data: out}
}

func sliceRange(data []byte, rng Range) []byte {
	end := rng.End
	if end < 0 || end > int64(len(data)) {
		end = int64(len(data))
	}
	start := rng.Offset
	if start > end {
		start = end
	}
	return data[start:end]
}

// Await blocks until every enqueued backend operation has completed,
// returning the first error recorded, if any. Commit MUST call this before
// committing the underlying transaction.
func (a *AsyncTransaction) Await(ctx context.Context) error {
	a.chainMu.Lock()
	tail := a.chain
	a.chainMu.Unlock()

	select {
	case <-tail:
	case <-ctx.Done():
		return ctx.Err()
	}

	a.errMu.Lock()
	defer a.errMu.Unlock()
	if len(a.errs) > 0 {
		return a.errs[0]
	}
	return nil
}

// Keys implements Transaction by delegating directly (key enumeration isn't
// cached).
func (a *AsyncTransaction) Keys(ctx context.Context) ([]uint32, error) {
	return a.base.Keys(ctx)
}

// Get implements Transaction synchronously: it waits for any in-flight
// prefetch/write for id before returning, unlike GetSync.
func (a *AsyncTransaction) Get(ctx context.Context, id uint32, rng Range) ([]byte, error) {
	if err := a.Await(ctx); err != nil {
		return nil, err
	}
	a.mu.Lock()
	if a.removed[id] {
		a.mu.Unlock()
		return nil, zerrors.New(zerrors.ENODATA, "AsyncTransaction.Get", "")
	}
	if data, ok := a.cache[id]; ok {
		a.mu.Unlock()
		return sliceRange(data, rng), nil
	}
	a.mu.Unlock()

	data, err := a.base.Get(ctx, id, rng)
	if err == nil {
		a.mu.Lock()
		a.cache[id] = data
		a.mu.Unlock()
	}
	return data, err
}

// Set implements Transaction synchronously.
func (a *AsyncTransaction) Set(ctx context.Context, id uint32, data []byte, offset int64) (int64, error) {
	newSize := a.SetSync(ctx, id, data, offset)
	if err := a.Await(ctx); err != nil {
		return 0, err
	}
	return newSize, nil
}

// Remove implements Transaction.
func (a *AsyncTransaction) Remove(ctx context.Context, id uint32) error {
	a.mu.Lock()
	delete(a.cache, id)
	a.removed[id] = true
	a.mu.Unlock()

	a.enqueue(func() {
		err := a.base.Remove(ctx, id)
		a.recordErr(err)
	})
	return a.Await(ctx)
}

// Commit awaits the serial chain, then commits the underlying transaction.
func (a *AsyncTransaction) Commit(ctx context.Context) error {
	if err := a.Await(ctx); err != nil {
		return err
	}
	return a.base.Commit(ctx)
}

// Abort awaits the serial chain (so it doesn't race in-flight writes), then
// aborts the underlying transaction.
func (a *AsyncTransaction) Abort(ctx context.Context) error {
	_ = a.Await(ctx)
	return a.base.Abort(ctx)
}

var _ Transaction = (*AsyncTransaction)(nil)
