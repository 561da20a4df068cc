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

// Package storefs implements file-system semantics over a transactional
// key-value Store: directory listings, inode allocation, rename, link, and
// read/write.
package storefs

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/zenfs-go/core/fsapi"
	"github.com/zenfs-go/core/inode"
	"github.com/zenfs-go/core/internal/clockutil"
	"github.com/zenfs-go/core/store"
	"github.com/zenfs-go/core/vfs"
	"github.com/zenfs-go/core/zerrors"
)

// StoreFS is a fsapi.FileSystem backed by a store.Store holding serialized
// inodes at key ino and data blobs at arbitrary keys referenced by
// Inode.Data.
type StoreFS struct {
	name  string
	store store.Store
	clock clockutil.Clock

	rootOnce sync.Once
	rootErr  error
}

var _ fsapi.FileSystem = (*StoreFS)(nil)
var _ fsapi.AttributeStore = (*StoreFS)(nil)

// New wraps s as a StoreFS. clock stamps inode timestamps; pass
// timeutil.RealClock() in production and a SimulatedClock in tests.
func New(name string, s store.Store, clock clockutil.Clock) *StoreFS {
	return &StoreFS{name: name, store: s, clock: clock}
}

// Name returns the identifying name passed to New.
func (fs *StoreFS) Name() string { return fs.name }

// checkRoot creates the root inode (mode 0o777|S_IFDIR, empty listing) the
// first time this StoreFS is used, idempotently.
func (fs *StoreFS) checkRoot(ctx context.Context) error {
	fs.rootOnce.Do(func() {
		fs.rootErr = store.WithTransaction(ctx, fs.store, func(ctx context.Context, txn store.Transaction) error {
			_, err := txn.Get(ctx, inode.RootIno, store.FullRange)
			if err == nil {
				return nil
			}
			if !zerrors.Is(err, zerrors.ENOENT) && !zerrors.Is(err, zerrors.ENODATA) {
				return err
			}

			const rootDataKey = 1
			root := inode.New(inode.RootIno, rootDataKey, 0o777|inode.S_IFDIR, fs.clock)
			root.NLink = 1
			if err := putInode(ctx, txn, root); err != nil {
				return err
			}
			return putListing(ctx, txn, rootDataKey, map[string]uint32{})
		})
	})
	return fs.rootErr
}

func getInode(ctx context.Context, txn store.Transaction, ino_ uint32) (*inode.Inode, error) {
	buf, err := txn.Get(ctx, ino_, store.FullRange)
	if err != nil {
		return nil, err
	}
	return inode.Decode(buf)
}

func putInode(ctx context.Context, txn store.Transaction, n *inode.Inode) error {
	buf, err := n.Encode()
	if err != nil {
		return err
	}
	_, err = txn.Set(ctx, n.Ino, buf, 0)
	return err
}

func getListing(ctx context.Context, txn store.Transaction, dataKey uint32) (map[string]uint32, error) {
	buf, err := txn.Get(ctx, dataKey, store.FullRange)
	if err != nil {
		if zerrors.Is(err, zerrors.ENOENT) || zerrors.Is(err, zerrors.ENODATA) {
			return map[string]uint32{}, nil
		}
		return nil, err
	}
	if len(buf) == 0 {
		return map[string]uint32{}, nil
	}
	listing := map[string]uint32{}
	if err := json.Unmarshal(buf, &listing); err != nil {
		return nil, zerrors.Wrap(zerrors.EIO, "getListing", "", err)
	}
	return listing, nil
}

func putListing(ctx context.Context, txn store.Transaction, dataKey uint32, listing map[string]uint32) error {
	buf, err := json.Marshal(listing)
	if err != nil {
		return zerrors.Wrap(zerrors.EIO, "putListing", "", err)
	}
	_, err = txn.Set(ctx, dataKey, buf, 0)
	return err
}

// allocateKey picks max(existing keys)+1 as the next free key.
func allocateKey(ctx context.Context, txn store.Transaction) (uint32, error) {
	keys, err := txn.Keys(ctx)
	if err != nil {
		return 0, err
	}
	var max uint32
	for _, k := range keys {
		if k > max {
			max = k
		}
	}
	if max == ^uint32(0) {
		return 0, zerrors.New(zerrors.ENOSPC, "allocateKey", "")
	}
	return max + 1, nil
}

// findInode walks path from the root, component by component, through
// directory listings, returning the leaf's ino and decoded Inode. A visited
// set guards against cycles.
func findInode(ctx context.Context, txn store.Transaction, path string) (uint32, *inode.Inode, error) {
	components := splitPath(path)

	ino := inode.RootIno
	node, err := getInode(ctx, txn, ino)
	if err != nil {
		return 0, nil, zerrors.Wrap(zerrors.ENOENT, "findInode", path, err)
	}

	visited := map[uint32]bool{ino: true}
	for _, name := range components {
		if !node.IsDir() {
			return 0, nil, zerrors.New(zerrors.ENOTDIR, "findInode", path)
		}
		listing, err := getListing(ctx, txn, node.Data)
		if err != nil {
			return 0, nil, err
		}
		childIno, ok := listing[name]
		if !ok {
			return 0, nil, zerrors.New(zerrors.ENOENT, "findInode", path)
		}
		if visited[childIno] {
			return 0, nil, zerrors.New(zerrors.EIO, "findInode", "Infinite loop detected")
		}
		visited[childIno] = true

		node, err = getInode(ctx, txn, childIno)
		if err != nil {
			return 0, nil, zerrors.Wrap(zerrors.EIO, "findInode", path, err)
		}
		ino = childIno
	}

	return ino, node, nil
}

func splitPath(path string) []string {
	norm := vfs.Normalize(path)
	if norm == "/" || norm == "." || norm == "" {
		return nil
	}
	parts := make([]string, 0, 8)
	start := 0
	if norm[0] == '/' {
		start = 1
	}
	seg := ""
	for i := start; i < len(norm); i++ {
		if norm[i] == '/' {
			if seg != "" {
				parts = append(parts, seg)
			}
			seg = ""
			continue
		}
		seg += string(norm[i])
	}
	if seg != "" {
		parts = append(parts, seg)
	}
	return parts
}

func callerFromCreds(creds fsapi.Credentials) inode.Caller {
	return inode.Caller{UID: creds.EUID, GID: creds.EGID, Groups: creds.Groups}
}

// checkAccess returns EACCES for op/path if creds lacks requested permission
// on n.
func checkAccess(n *inode.Inode, requested uint8, creds fsapi.Credentials, op, path string) error {
	if !inode.HasAccess(n, requested, callerFromCreds(creds)) {
		return zerrors.New(zerrors.EACCES, op, path)
	}
	return nil
}

func sortedNames(listing map[string]uint32) []string {
	names := make([]string, 0, len(listing))
	for name := range listing {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
