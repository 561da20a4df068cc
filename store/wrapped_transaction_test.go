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

package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zenfs-go/core/store"
)

func TestWrappedTransactionAbortRestoresExistingKey(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemStore()

	require.NoError(t, store.WithTransaction(ctx, s, func(ctx context.Context, txn store.Transaction) error {
		_, err := txn.Set(ctx, 1, []byte("original"), 0)
		return err
	}))

	err := store.WithTransaction(ctx, s, func(ctx context.Context, txn store.Transaction) error {
		_, err := txn.Set(ctx, 1, []byte("mutated"), 0)
		require.NoError(t, err)
		return assert.AnError
	})
	assert.Error(t, err)

	raw, err := s.Transaction(ctx)
	require.NoError(t, err)
	data, err := raw.Get(ctx, 1, store.FullRange)
	require.NoError(t, err)
	assert.Equal(t, "original", string(data))
}

func TestWrappedTransactionAbortRemovesNewKey(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemStore()

	err := store.WithTransaction(ctx, s, func(ctx context.Context, txn store.Transaction) error {
		_, err := txn.Set(ctx, 5, []byte("new"), 0)
		require.NoError(t, err)
		return assert.AnError
	})
	assert.Error(t, err)

	raw, err := s.Transaction(ctx)
	require.NoError(t, err)
	_, err = raw.Get(ctx, 5, store.FullRange)
	assert.Error(t, err)
}

func TestWrappedTransactionCommitMakesAbortNoOp(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemStore()
	raw, err := s.Transaction(ctx)
	require.NoError(t, err)
	txn := store.Wrap(raw)

	_, err = txn.Set(ctx, 2, []byte("value"), 0)
	require.NoError(t, err)
	require.NoError(t, txn.Commit(ctx))
	require.NoError(t, txn.Abort(ctx))

	raw2, err := s.Transaction(ctx)
	require.NoError(t, err)
	data, err := raw2.Get(ctx, 2, store.FullRange)
	require.NoError(t, err)
	assert.Equal(t, "value", string(data))
}

func TestWithTransactionCommitsOnSuccess(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemStore()

	err := store.WithTransaction(ctx, s, func(ctx context.Context, txn store.Transaction) error {
		_, err := txn.Set(ctx, 9, []byte("committed"), 0)
		return err
	})
	require.NoError(t, err)

	raw, err := s.Transaction(ctx)
	require.NoError(t, err)
	data, err := raw.Get(ctx, 9, store.FullRange)
	require.NoError(t, err)
	assert.Equal(t, "committed", string(data))
}

func TestWithTransactionAbortsOnPanic(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemStore()

	assert.Panics(t, func() {
		_ = store.WithTransaction(ctx, s, func(ctx context.Context, txn store.Transaction) error {
			_, _ = txn.Set(ctx, 3, []byte("x"), 0)
			panic("boom")
		})
	})

	raw, err := s.Transaction(ctx)
	require.NoError(t, err)
	_, err = raw.Get(ctx, 3, store.FullRange)
	assert.Error(t, err)
}
