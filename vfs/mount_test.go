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

package vfs_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zenfs-go/core/fsapi"
	"github.com/zenfs-go/core/vfs"
	"github.com/zenfs-go/core/zerrors"
)

type stubFS struct{ fsapi.FileSystem }

func TestMountAndResolveMountPicksLongestPrefix(t *testing.T) {
	table := vfs.NewMountTable()
	root := &stubFS{}
	data := &stubFS{}

	require.NoError(t, table.Mount("/", root))
	require.NoError(t, table.Mount("/data", data))

	resolved, err := table.ResolveMount("/", "/data/file.txt")
	require.NoError(t, err)
	assert.Same(t, data, resolved.FS)
	assert.Equal(t, "/file.txt", resolved.Relative)
	assert.Equal(t, "/data", resolved.MountPoint)

	resolved, err = table.ResolveMount("/", "/other/file.txt")
	require.NoError(t, err)
	assert.Same(t, root, resolved.FS)
	assert.Equal(t, "/other/file.txt", resolved.Relative)
}

func TestMountRejectsDuplicateAndRelative(t *testing.T) {
	table := vfs.NewMountTable()
	require.NoError(t, table.Mount("/a", &stubFS{}))
	assert.Error(t, table.Mount("/a", &stubFS{}))
	assert.True(t, zerrors.Is(table.Mount("/a", &stubFS{}), zerrors.EINVAL))
	assert.Error(t, table.Mount("rel", &stubFS{}))
}

func TestResolveMountWithNoMountsFails(t *testing.T) {
	table := vfs.NewMountTable()
	_, err := table.ResolveMount("/", "/x")
	assert.True(t, zerrors.Is(err, zerrors.EIO))
}

func TestUmountOfUnmountedPathIsNoOp(t *testing.T) {
	table := vfs.NewMountTable()
	table.Umount("/never/mounted")
	_, err := table.ResolveMount("/", "/never/mounted")
	assert.Error(t, err)
}
