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

// Package store defines the key->bytes Store abstraction StoreFS sits on
// top of, plus the WrappedTransaction rollback layer every Store
// implementation gets for free.
package store

import "context"

// Flags advertise optional Store capabilities.
type Flags uint32

const (
	// FlagPartial tells StoreFS it may splice a write into a blob by
	// calling Set at a non-zero offset instead of rewriting the whole blob.
	FlagPartial Flags = 1 << iota
	// FlagAsync means Transaction returns an AsyncTransaction rather than a
	// plain sync Transaction.
	FlagAsync
)

// Has reports whether f is set in flags.
func (flags Flags) Has(f Flags) bool { return flags&f != 0 }

// Store is a key (uint32) -> bytes backend exposing transactions.
type Store interface {
	// Name identifies the store for diagnostics.
	Name() string

	// Transaction begins a new Transaction. Callers MUST Commit or Abort it;
	// see WithTransaction for a helper that guarantees this on early return.
	Transaction(ctx context.Context) (Transaction, error)

	// Sync flushes any buffered state to the backing medium.
	Sync(ctx context.Context) error

	// Clear removes all keys.
	Clear(ctx context.Context) error

	// ClearSync is Clear followed by Sync as a single step, for stores where
	// that can be done more efficiently together.
	ClearSync(ctx context.Context) error

	// Flags reports this store's optional capabilities.
	Flags() Flags
}

// Range scopes a Get/Set to a byte range within a key's blob. End == -1
// means "through the current end of the blob".
type Range struct {
	Offset int64
	End    int64
}

// FullRange is the sentinel (End == -1) requesting the entire blob.
var FullRange = Range{Offset: 0, End: -1}

// Transaction is a scoped handle over a Store carrying an ordered set of
// observations and modifications.
type Transaction interface {
	// Keys lists every key currently present.
	Keys(ctx context.Context) ([]uint32, error)

	// Get reads rng of id's blob; the returned slice starts at rng.Offset.
	Get(ctx context.Context, id uint32, rng Range) ([]byte, error)

	// Set writes data at offset and returns the blob's new size. StoreFS
	// passes a non-zero offset only to stores with FlagPartial; for others
	// it writes the whole blob at offset 0.
	Set(ctx context.Context, id uint32, data []byte, offset int64) (newSize int64, err error)

	// Remove deletes id's blob entirely.
	Remove(ctx context.Context, id uint32) error

	// Commit makes this transaction's writes visible. Idempotent no-op on
	// re-entry after the first call.
	Commit(ctx context.Context) error

	// Abort discards this transaction's writes (best-effort for stores that
	// cannot reconstruct the exact pre-image; see WrappedTransaction).
	Abort(ctx context.Context) error
}
