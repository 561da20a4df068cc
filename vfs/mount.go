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
	"log"
	"strings"

	"github.com/jacobsa/syncutil"

	"github.com/zenfs-go/core/fsapi"
	"github.com/zenfs-go/core/zerrors"
)

// MountTable is a single-writer map from absolute normalized mount-point
// path to a FileSystem. Concurrent mount/umount isn't supported; the
// invariant mutex still guards readers against a concurrent Mount/Umount
// call racing a ResolveMount.
type MountTable struct {
	mu      syncutil.InvariantMutex
	entries map[string]fsapi.FileSystem // GUARDED_BY(mu)
}

// NewMountTable returns an empty mount table.
func NewMountTable() *MountTable {
	t := &MountTable{entries: make(map[string]fsapi.FileSystem)}
	t.mu = syncutil.NewInvariantMutex(t.checkInvariants)
	return t
}

func (t *MountTable) checkInvariants() {
	// No two entries may have equal keys; a Go map already enforces this at
	// the type level, so there's nothing further to assert here.
}

// Mount records fs at path, which must already be absolute-normalized.
func (t *MountTable) Mount(path string, fs fsapi.FileSystem) error {
	if path != Normalize(path) || !strings.HasPrefix(path, sep) {
		return zerrors.New(zerrors.EINVAL, "Mount", path)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.entries[path]; ok {
		return zerrors.New(zerrors.EINVAL, "Mount", path)
	}
	t.entries[path] = fs
	return nil
}

// Umount removes the mount at path. Absent mounts are a warned no-op.
func (t *MountTable) Umount(path string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.entries[path]; !ok {
		log.Printf("zenfs: vfs: umount of unmounted path %q ignored", path)
		return
	}
	delete(t.entries, path)
}

// ResolvedMount is the result of resolving a path against the mount table.
type ResolvedMount struct {
	FS         fsapi.FileSystem
	Relative   string // path relative to MountPoint; "/" when they're equal
	MountPoint string
	Root       string
}

// isAncestor reports whether mount is path itself or a proper path ancestor
// of it (i.e. mount == "/" or path == mount or path starts with mount+"/").
func isAncestor(mount, path string) bool {
	if mount == sep {
		return true
	}
	if path == mount {
		return true
	}
	return strings.HasPrefix(path, mount+sep)
}

// ResolveMount picks the longest-prefix mount that is an ancestor of
// Normalize(Join(root, path)).
func (t *MountTable) ResolveMount(root, path string) (ResolvedMount, error) {
	target := Normalize(Join(root, path))

	t.mu.Lock()
	defer t.mu.Unlock()

	var best string
	var bestFS fsapi.FileSystem
	found := false
	for mount, fs := range t.entries {
		if !isAncestor(mount, target) {
			continue
		}
		if !found || len(mount) > len(best) {
			best, bestFS, found = mount, fs, true
		}
	}
	if !found {
		return ResolvedMount{}, zerrors.New(zerrors.EIO, "ResolveMount", path)
	}

	relative := strings.TrimPrefix(target, best)
	relative = strings.TrimPrefix(relative, sep)
	if relative == "" {
		relative = sep
	} else {
		relative = sep + relative
	}

	return ResolvedMount{FS: bestFS, Relative: relative, MountPoint: best, Root: root}, nil
}
