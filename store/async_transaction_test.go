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
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zenfs-go/core/store"
	"github.com/zenfs-go/core/zerrors"
)

func TestAsyncTransactionGetSyncMissThenHit(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemStore()
	raw, err := s.Transaction(ctx)
	require.NoError(t, err)
	_, err = raw.Set(ctx, 1, []byte("backend value"), 0)
	require.NoError(t, err)

	a := store.NewAsyncTransaction(raw)

	_, err = a.GetSync(ctx, 1, store.FullRange)
	require.Error(t, err)
	assert.True(t, zerrors.Is(err, zerrors.EAGAIN))

	require.NoError(t, a.Await(ctx))

	data, err := a.GetSync(ctx, 1, store.FullRange)
	require.NoError(t, err)
	assert.Equal(t, "backend value", string(data))
}

func TestAsyncTransactionSetSyncIsImmediatelyReadable(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemStore()
	raw, err := s.Transaction(ctx)
	require.NoError(t, err)
	a := store.NewAsyncTransaction(raw)

	a.SetSync(ctx, 2, []byte("cached"), 0)
	data, err := a.GetSync(ctx, 2, store.FullRange)
	require.NoError(t, err)
	assert.Equal(t, "cached", string(data))

	require.NoError(t, a.Await(ctx))
	raw2, err := s.Transaction(ctx)
	require.NoError(t, err)
	persisted, err := raw2.Get(ctx, 2, store.FullRange)
	require.NoError(t, err)
	assert.Equal(t, "cached", string(persisted))
}

func TestAsyncTransactionCommitAwaitsChain(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	s := store.NewMemStore()
	raw, err := s.Transaction(ctx)
	require.NoError(t, err)
	a := store.NewAsyncTransaction(raw)

	a.SetSync(ctx, 3, []byte("x"), 0)
	require.NoError(t, a.Commit(ctx))

	raw2, err := s.Transaction(ctx)
	require.NoError(t, err)
	data, err := raw2.Get(ctx, 3, store.FullRange)
	require.NoError(t, err)
	assert.Equal(t, "x", string(data))
}
