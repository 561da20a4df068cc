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

type fakeHandle struct{ closed bool }

func (h *fakeHandle) Path() string { return "" }
func (h *fakeHandle) Close() error { h.closed = true; return nil }

func TestBindContextCopiesParentFieldsAndIsolatesDescriptors(t *testing.T) {
	parent := vfs.NewDefaultContext("root")
	fd := parent.AddDescriptor("/a", &fakeHandle{})

	child := vfs.BindContext(parent, vfs.ContextInit{ID: "child"})
	assert.Equal(t, parent.Root, child.Root)
	assert.Equal(t, parent.Pwd, child.Pwd)
	assert.Same(t, parent.Mounts, child.Mounts)
	assert.Len(t, parent.Children, 1)

	_, ok := child.Descriptor(fd)
	assert.False(t, ok, "child must not inherit parent descriptors")

	_, ok = parent.Descriptor(fd)
	assert.True(t, ok)
}

func TestBindContextOverridesRootPwdCredentials(t *testing.T) {
	parent := vfs.NewDefaultContext("root")
	newRoot := "/srv"
	newPwd := "/srv/x"
	creds := fsapi.Credentials{UID: 7, GID: 7}

	child := vfs.BindContext(parent, vfs.ContextInit{Root: &newRoot, Pwd: &newPwd, Credentials: &creds})
	assert.Equal(t, "/srv", child.Root)
	assert.Equal(t, "/srv/x", child.Pwd)
	assert.Equal(t, uint32(7), child.Credentials.UID)
}

func TestChrootRequiresRootCredentials(t *testing.T) {
	ctx := vfs.NewDefaultContext("root")
	ctx.Credentials = fsapi.Credentials{UID: 1000}
	err := vfs.Chroot(ctx, "/srv")
	assert.True(t, zerrors.Is(err, zerrors.EPERM))
}

func TestChrootRewritesDescriptorPaths(t *testing.T) {
	ctx := vfs.NewDefaultContext("root")
	fd := ctx.AddDescriptor("/srv/data/file.txt", &fakeHandle{})

	require.NoError(t, vfs.Chroot(ctx, "/srv"))
	assert.Equal(t, "/srv", ctx.Root)

	d, ok := ctx.Descriptor(fd)
	require.True(t, ok)
	assert.Equal(t, "/data/file.txt", d.Path())
}

func TestChrootFailsWhenDescriptorEscapesNewRoot(t *testing.T) {
	ctx := vfs.NewDefaultContext("root")
	ctx.AddDescriptor("/other/file.txt", &fakeHandle{})

	err := vfs.Chroot(ctx, "/srv")
	assert.True(t, zerrors.Is(err, zerrors.EPERM))
	assert.Equal(t, "/", ctx.Root)
}

func TestCloseDescriptorRemovesEntryAndClosesHandle(t *testing.T) {
	ctx := vfs.NewDefaultContext("root")
	h := &fakeHandle{}
	fd := ctx.AddDescriptor("/a", h)

	require.NoError(t, ctx.CloseDescriptor(fd))
	assert.True(t, h.closed)
	_, ok := ctx.Descriptor(fd)
	assert.False(t, ok)

	err := ctx.CloseDescriptor(fd)
	assert.True(t, zerrors.Is(err, zerrors.EBADE))
}
