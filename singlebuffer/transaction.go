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

package singlebuffer

import (
	"context"

	"github.com/zenfs-go/core/store"
)

// sbTxn is a raw (unwrapped) Transaction over a SingleBuffer. Like MemStore,
// SingleBuffer applies writes immediately via its locked metadata chain;
// store.WithTransaction layers rollback on top via store.Wrap.
type sbTxn struct {
	sb *SingleBuffer
}

var _ store.Transaction = (*sbTxn)(nil)

func (t *sbTxn) Keys(ctx context.Context) ([]uint32, error) {
	return t.sb.keys(ctx), nil
}

func (t *sbTxn) Get(ctx context.Context, id uint32, rng store.Range) ([]byte, error) {
	return t.sb.get(id, rng)
}

func (t *sbTxn) Set(ctx context.Context, id uint32, data []byte, offset int64) (int64, error) {
	return t.sb.set(id, data, offset)
}

func (t *sbTxn) Remove(ctx context.Context, id uint32) error {
	return t.sb.remove(id)
}

func (t *sbTxn) Commit(ctx context.Context) error { return nil }

func (t *sbTxn) Abort(ctx context.Context) error { return nil }

// Transaction begins a new Transaction over this buffer.
func (sb *SingleBuffer) Transaction(ctx context.Context) (store.Transaction, error) {
	return &sbTxn{sb: sb}, nil
}

// Sync is a no-op: every write already lands directly in buf.
func (sb *SingleBuffer) Sync(ctx context.Context) error { return nil }

// Clear removes every entry from every metadata block in the chain,
// without resetting the superblock or reclaiming data-region space.
func (sb *SingleBuffer) Clear(ctx context.Context) error {
	for _, blockOffset := range sb.chain() {
		release, err := lockBlock(sb.buf, blockOffset)
		if err != nil {
			return err
		}
		for i := 0; i < MetadataItemCount; i++ {
			writeItem(sb.buf, blockOffset, i, item{})
		}
		sb.touchBlock(blockOffset)
		release()
	}
	return nil
}

// ClearSync is Clear followed by Sync; SingleBuffer has no separate sync
// step so this is equivalent to Clear alone.
func (sb *SingleBuffer) ClearSync(ctx context.Context) error {
	return sb.Clear(ctx)
}
