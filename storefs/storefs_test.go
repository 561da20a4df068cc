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

package storefs_test

import (
	"context"
	"testing"
	"time"

	"github.com/jacobsa/timeutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zenfs-go/core/fsapi"
	"github.com/zenfs-go/core/store"
	"github.com/zenfs-go/core/storefs"
	"github.com/zenfs-go/core/zerrors"
)

func newFS() *storefs.StoreFS {
	clock := &timeutil.SimulatedClock{}
	clock.SetTime(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	return storefs.New("test", store.NewMemStore(), clock)
}

var creds = fsapi.Credentials{UID: 0, GID: 0}

// TestCreateReadCycle exercises scenario S1 from the component specification.
func TestCreateReadCycle(t *testing.T) {
	ctx := context.Background()
	fs := newFS()

	require.NoError(t, fs.Mkdir(ctx, "/a", 0o755, creds))
	_, err := fs.CreateFile(ctx, "/a/f", fsapi.WriteOnly|fsapi.Create, 0o644, creds)
	require.NoError(t, err)

	n, err := fs.Write(ctx, "/a/f", []byte("hello"), 0)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	buf := make([]byte, 5)
	n, err = fs.Read(ctx, "/a/f", buf, 0)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, "hello", string(buf))

	stats, err := fs.Stat(ctx, "/a/f")
	require.NoError(t, err)
	assert.Equal(t, uint64(5), stats.Size)
}

// TestRenameOverFile exercises scenario S2.
func TestRenameOverFile(t *testing.T) {
	ctx := context.Background()
	fs := newFS()

	_, err := fs.CreateFile(ctx, "/x", fsapi.WriteOnly|fsapi.Create, 0o644, creds)
	require.NoError(t, err)
	_, err = fs.Write(ctx, "/x", []byte("xcontent"), 0)
	require.NoError(t, err)

	_, err = fs.CreateFile(ctx, "/y", fsapi.WriteOnly|fsapi.Create, 0o644, creds)
	require.NoError(t, err)

	require.NoError(t, fs.Rename(ctx, "/x", "/y", creds))

	_, err = fs.Stat(ctx, "/x")
	assert.True(t, zerrors.Is(err, zerrors.ENOENT))

	buf := make([]byte, 8)
	n, err := fs.Read(ctx, "/y", buf, 0)
	require.NoError(t, err)
	assert.Equal(t, "xcontent", string(buf[:n]))

	names, err := fs.Readdir(ctx, "/")
	require.NoError(t, err)
	assert.Equal(t, []string{"y"}, names)
}

// TestRenameIntoSubdirFailsEBusy exercises scenario S3.
func TestRenameIntoSubdirFailsEBusy(t *testing.T) {
	ctx := context.Background()
	fs := newFS()

	require.NoError(t, fs.Mkdir(ctx, "/a", 0o755, creds))
	err := fs.Rename(ctx, "/a", "/a/b", creds)
	assert.True(t, zerrors.Is(err, zerrors.EBUSY))
}

func TestMkdirRejectsDuplicateName(t *testing.T) {
	ctx := context.Background()
	fs := newFS()

	require.NoError(t, fs.Mkdir(ctx, "/a", 0o755, creds))
	err := fs.Mkdir(ctx, "/a", 0o755, creds)
	assert.True(t, zerrors.Is(err, zerrors.EEXIST))
}

func TestRmdirRequiresEmpty(t *testing.T) {
	ctx := context.Background()
	fs := newFS()

	require.NoError(t, fs.Mkdir(ctx, "/a", 0o755, creds))
	_, err := fs.CreateFile(ctx, "/a/f", fsapi.WriteOnly|fsapi.Create, 0o644, creds)
	require.NoError(t, err)

	err = fs.Rmdir(ctx, "/a", creds)
	assert.True(t, zerrors.Is(err, zerrors.ENOTEMPTY))

	require.NoError(t, fs.Unlink(ctx, "/a/f", creds))
	require.NoError(t, fs.Rmdir(ctx, "/a", creds))
}

func TestUnlinkRejectsDirectory(t *testing.T) {
	ctx := context.Background()
	fs := newFS()
	require.NoError(t, fs.Mkdir(ctx, "/a", 0o755, creds))
	err := fs.Unlink(ctx, "/a", creds)
	assert.True(t, zerrors.Is(err, zerrors.EISDIR))
}

func TestLinkIncrementsNLink(t *testing.T) {
	ctx := context.Background()
	fs := newFS()
	_, err := fs.CreateFile(ctx, "/a", fsapi.WriteOnly|fsapi.Create, 0o644, creds)
	require.NoError(t, err)

	require.NoError(t, fs.Link(ctx, "/a", "/b", creds))

	statA, err := fs.Stat(ctx, "/a")
	require.NoError(t, err)
	assert.Equal(t, uint32(2), statA.NLink)

	require.NoError(t, fs.Unlink(ctx, "/a", creds))
	statB, err := fs.Stat(ctx, "/b")
	require.NoError(t, err)
	assert.Equal(t, uint32(1), statB.NLink)
}

func TestAttributesRoundTrip(t *testing.T) {
	ctx := context.Background()
	fs := newFS()
	_, err := fs.CreateFile(ctx, "/a", fsapi.WriteOnly|fsapi.Create, 0o644, creds)
	require.NoError(t, err)

	require.NoError(t, fs.SetAttribute(ctx, "/a", "user.tag", []byte("v1")))
	value, err := fs.GetAttribute(ctx, "/a", "user.tag")
	require.NoError(t, err)
	assert.Equal(t, "v1", string(value))

	names, err := fs.ListAttributes(ctx, "/a")
	require.NoError(t, err)
	assert.Equal(t, []string{"user.tag"}, names)

	require.NoError(t, fs.RemoveAttribute(ctx, "/a", "user.tag"))
	_, err = fs.GetAttribute(ctx, "/a", "user.tag")
	assert.True(t, zerrors.Is(err, zerrors.ENODATA))
}
