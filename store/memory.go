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

// MemStore is an in-memory Store that does not advertise FlagPartial, so
// StoreFS rewrites whole blobs through it; its Get and Set still honor a
// range or offset when one is passed. It's the reference Store implementation used by storefs and
// overlay tests, and a reasonable default for callers who don't need
// SingleBuffer's single-file-on-disk layout.
type MemStore struct {
	mu   sync.Mutex
	data map[uint32][]byte
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{data: make(map[uint32][]byte)}
}

func (m *MemStore) Name() string { return "mem" }

func (m *MemStore) Transaction(ctx context.Context) (Transaction, error) {
	return &memTxn{store: m}, nil
}

func (m *MemStore) Sync(ctx context.Context) error { return nil }

func (m *MemStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = make(map[uint32][]byte)
	return nil
}

func (m *MemStore) ClearSync(ctx context.Context) error { return m.Clear(ctx) }

func (m *MemStore) Flags() Flags { return 0 }

// memTxn is a raw (unwrapped) Transaction over a MemStore. MemStore applies
// writes immediately (there's no staging), which is exactly the shape
// WrappedTransaction is designed to add rollback on top of.
type memTxn struct {
	store *MemStore
}

func (t *memTxn) Keys(ctx context.Context) ([]uint32, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	keys := make([]uint32, 0, len(t.store.data))
	for k := range t.store.data {
		keys = append(keys, k)
	}
	return keys, nil
}

func (t *memTxn) Get(ctx context.Context, id uint32, rng Range) ([]byte, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	data, ok := t.store.data[id]
	if !ok {
		return nil, zerrors.New(zerrors.ENODATA, "memTxn.Get", "")
	}
	end := rng.End
	if end < 0 || end > int64(len(data)) {
		end = int64(len(data))
	}
	start := rng.Offset
	if start > end {
		start = end
	}
	out := make([]byte, end-start)
	copy(out, data[start:end])
	return out, nil
}

func (t *memTxn) Set(ctx context.Context, id uint32, data []byte, offset int64) (int64, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	if offset == 0 {
		cp := make([]byte, len(data))
		copy(cp, data)
		t.store.data[id] = cp
		return int64(len(cp)), nil
	}
	cur := t.store.data[id]
	end := offset + int64(len(data))
	if end < int64(len(cur)) {
		end = int64(len(cur))
	}
	out := make([]byte, end)
	copy(out, cur)
	copy(out[offset:], data)
	t.store.data[id] = out
	return int64(len(out)), nil
}

func (t *memTxn) Remove(ctx context.Context, id uint32) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	if _, ok := t.store.data[id]; !ok {
		return zerrors.New(zerrors.ENOENT, "memTxn.Remove", "")
	}
	delete(t.store.data, id)
	return nil
}

func (t *memTxn) Commit(ctx context.Context) error { return nil }

func (t *memTxn) Abort(ctx context.Context) error { return nil }

var _ Store = (*MemStore)(nil)
var _ Transaction = (*memTxn)(nil)
