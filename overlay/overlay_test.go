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

package overlay_test

import (
	"context"
	"testing"
	"time"

	"github.com/jacobsa/timeutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zenfs-go/core/fsapi"
	"github.com/zenfs-go/core/overlay"
	"github.com/zenfs-go/core/store"
	"github.com/zenfs-go/core/storefs"
	"github.com/zenfs-go/core/zerrors"
)

var creds = fsapi.Credentials{UID: 0, GID: 0}

func newBackend() *storefs.StoreFS {
	clock := &timeutil.SimulatedClock{}
	clock.SetTime(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	return storefs.New("backend", store.NewMemStore(), clock)
}

// TestCoWDeleteThenReaddir exercises scenario S4.
func TestCoWDeleteThenReaddir(t *testing.T) {
	ctx := context.Background()
	lower := newBackend()
	upper := newBackend()

	require.NoError(t, lower.Mkdir(ctx, "/ro", 0o755, creds))
	_, err := lower.CreateFile(ctx, "/ro/file", fsapi.WriteOnly|fsapi.Create, 0o644, creds)
	require.NoError(t, err)

	cow, err := overlay.New(lower, upper)
	require.NoError(t, err)

	require.NoError(t, cow.Unlink(ctx, "/ro/file", creds))

	names, err := cow.Readdir(ctx, "/ro")
	require.NoError(t, err)
	assert.Empty(t, names)

	journalText := cow.Journal.Serialize()

	restored := overlay.NewJournal()
	require.NoError(t, restored.Restore(journalText))
	cow2, err := overlay.New(lower, upper)
	require.NoError(t, err)
	cow2.Journal = restored

	names, err = cow2.Readdir(ctx, "/ro")
	require.NoError(t, err)
	assert.Empty(t, names)
}

// TestExistsInvariant checks exists against upper presence, lower presence,
// and journal deletion in combination.
func TestExistsInvariant(t *testing.T) {
	ctx := context.Background()
	lower := newBackend()
	upper := newBackend()

	_, err := lower.CreateFile(ctx, "/a", fsapi.WriteOnly|fsapi.Create, 0o644, creds)
	require.NoError(t, err)

	cow, err := overlay.New(lower, upper)
	require.NoError(t, err)

	_, err = cow.Stat(ctx, "/a")
	require.NoError(t, err)

	require.NoError(t, cow.Unlink(ctx, "/a", creds))
	_, err = cow.Stat(ctx, "/a")
	assert.True(t, zerrors.Is(err, zerrors.ENOENT))

	_, err = cow.CreateFile(ctx, "/a", fsapi.WriteOnly|fsapi.Create, 0o644, creds)
	require.NoError(t, err)
	_, err = cow.Stat(ctx, "/a")
	require.NoError(t, err)
}

func TestWriteCopiesUpOnFirstTouch(t *testing.T) {
	ctx := context.Background()
	lower := newBackend()
	upper := newBackend()

	_, err := lower.CreateFile(ctx, "/a", fsapi.WriteOnly|fsapi.Create, 0o644, creds)
	require.NoError(t, err)
	_, err = lower.Write(ctx, "/a", []byte("original"), 0)
	require.NoError(t, err)

	cow, err := overlay.New(lower, upper)
	require.NoError(t, err)

	n, err := cow.Write(ctx, "/a", []byte("patched"), 0)
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	buf := make([]byte, 7)
	n, err = upper.Read(ctx, "/a", buf, 0)
	require.NoError(t, err)
	assert.Equal(t, "patched", string(buf[:n]))

	lowerBuf := make([]byte, 8)
	n, err = lower.Read(ctx, "/a", lowerBuf, 0)
	require.NoError(t, err)
	assert.Equal(t, "original", string(lowerBuf[:n]))
}

func TestWriteToJournalDeletedPathFailsENOENT(t *testing.T) {
	ctx := context.Background()
	lower := newBackend()
	upper := newBackend()

	_, err := lower.CreateFile(ctx, "/a", fsapi.WriteOnly|fsapi.Create, 0o644, creds)
	require.NoError(t, err)

	cow, err := overlay.New(lower, upper)
	require.NoError(t, err)
	require.NoError(t, cow.Unlink(ctx, "/a", creds))

	_, err = cow.Write(ctx, "/a", []byte("x"), 0)
	assert.True(t, zerrors.Is(err, zerrors.ENOENT))
}

func TestRmdirRequiresEmptyMergedListing(t *testing.T) {
	ctx := context.Background()
	lower := newBackend()
	upper := newBackend()

	require.NoError(t, lower.Mkdir(ctx, "/a", 0o755, creds))
	_, err := lower.CreateFile(ctx, "/a/f", fsapi.WriteOnly|fsapi.Create, 0o644, creds)
	require.NoError(t, err)

	cow, err := overlay.New(lower, upper)
	require.NoError(t, err)

	err = cow.Rmdir(ctx, "/a", creds)
	assert.True(t, zerrors.Is(err, zerrors.ENOTEMPTY))
}

func TestJournalRoundTrip(t *testing.T) {
	j := overlay.NewJournal()
	j.Record(overlay.OpDelete, "/ro/file")
	text := j.Serialize()

	parsed, err := overlay.ParseJournal(text)
	require.NoError(t, err)
	assert.True(t, parsed.IsDeleted("/ro/file"))
	assert.False(t, parsed.IsDeleted("/ro/other"))
}
