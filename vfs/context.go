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

package vfs

import (
	"strings"
	"sync"

	"github.com/zenfs-go/core/fsapi"
	"github.com/zenfs-go/core/zerrors"
)

// Descriptor is an open-file-table entry: the underlying backend Handle
// plus the mount-absolute path the context opened it at, which Chroot
// rewrites.
type Descriptor struct {
	fsapi.Handle
	path string
}

// Path returns the descriptor's current context-relative path, shadowing
// the embedded Handle's own Path().
func (d *Descriptor) Path() string { return d.path }

// Context is a bound FS view: a root (chroot boundary), a pwd, credentials,
// and an open-descriptor table.
type Context struct {
	ID          string
	Root        string
	Pwd         string
	Credentials fsapi.Credentials
	Mounts      *MountTable

	Parent   *Context
	Children []*Context

	mu          sync.Mutex
	descriptors map[int]*Descriptor
	nextFD      int
}

// NewDefaultContext returns the root context: root "/", pwd "/", uid/gid 0,
// a fresh mount table.
func NewDefaultContext(id string) *Context {
	return &Context{
		ID:          id,
		Root:        sep,
		Pwd:         sep,
		Credentials: fsapi.Credentials{UID: 0, GID: 0},
		Mounts:      NewMountTable(),
		descriptors: make(map[int]*Descriptor),
	}
}

// ContextInit supplies the fields BindContext should override; nil/zero
// fields are copied from the parent.
type ContextInit struct {
	ID          string
	Root        *string
	Pwd         *string
	Mounts      *MountTable
	Credentials *fsapi.Credentials
}

// BindContext creates a child of parent (or a fresh default context when
// parent is nil) with a fresh descriptor table and an empty children list.
func BindContext(parent *Context, init ContextInit) *Context {
	if parent == nil {
		parent = NewDefaultContext("root")
	}

	child := &Context{
		ID:          init.ID,
		Root:        parent.Root,
		Pwd:         parent.Pwd,
		Credentials: parent.Credentials,
		Mounts:      parent.Mounts,
		Parent:      parent,
		descriptors: make(map[int]*Descriptor),
	}
	if init.Root != nil {
		child.Root = *init.Root
	}
	if init.Pwd != nil {
		child.Pwd = *init.Pwd
	}
	if init.Mounts != nil {
		child.Mounts = init.Mounts
	}
	if init.Credentials != nil {
		child.Credentials = *init.Credentials
	}

	parent.mu.Lock()
	parent.Children = append(parent.Children, child)
	parent.mu.Unlock()

	return child
}

// Resolve joins and normalizes path against ctx's pwd.
func (c *Context) Resolve(path string) string {
	return Resolve(c.Pwd, path)
}

// AddDescriptor installs handle at a freshly allocated fd and returns it.
func (c *Context) AddDescriptor(path string, handle fsapi.Handle) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	fd := c.nextFD
	c.nextFD++
	c.descriptors[fd] = &Descriptor{Handle: handle, path: path}
	return fd
}

// Descriptor returns the descriptor at fd, if any.
func (c *Context) Descriptor(fd int) (*Descriptor, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.descriptors[fd]
	return d, ok
}

// CloseDescriptor closes and removes fd.
func (c *Context) CloseDescriptor(fd int) error {
	c.mu.Lock()
	d, ok := c.descriptors[fd]
	if ok {
		delete(c.descriptors, fd)
	}
	c.mu.Unlock()
	if !ok {
		return zerrors.New(zerrors.EBADE, "CloseDescriptor", "")
	}
	return d.Handle.Close()
}

// Chroot restricts ctx's root to path, which must resolve to a subpath of
// the current root, and requires root credentials. Every currently open
// descriptor must remain reachable under the new root; each descriptor's
// stored path is rewritten relative to it.
func Chroot(ctx *Context, path string) error {
	if ctx.Credentials.UID != 0 {
		return zerrors.New(zerrors.EPERM, "Chroot", path)
	}

	newRoot := Normalize(Join(ctx.Root, path))
	if !isAncestor(ctx.Root, newRoot) {
		return zerrors.New(zerrors.EINVAL, "Chroot", path)
	}

	ctx.mu.Lock()
	defer ctx.mu.Unlock()

	for _, d := range ctx.descriptors {
		if !isAncestor(newRoot, d.path) {
			return zerrors.New(zerrors.EPERM, "Chroot", d.path)
		}
	}
	for _, d := range ctx.descriptors {
		rel := strings.TrimPrefix(d.path, newRoot)
		rel = strings.TrimPrefix(rel, sep)
		if rel == "" {
			rel = sep
		} else {
			rel = sep + rel
		}
		d.path = rel
	}

	ctx.Root = newRoot
	if !isAncestor(newRoot, ctx.Pwd) {
		ctx.Pwd = newRoot
	}
	return nil
}
