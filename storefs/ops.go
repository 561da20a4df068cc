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

package storefs

import (
	"context"
	"strings"

	"github.com/zenfs-go/core/fsapi"
	"github.com/zenfs-go/core/inode"
	"github.com/zenfs-go/core/internal/clockutil"
	"github.com/zenfs-go/core/store"
	"github.com/zenfs-go/core/vfs"
	"github.com/zenfs-go/core/zerrors"
)

func toStats(n *inode.Inode) fsapi.Stats {
	return fsapi.Stats{
		Ino:       n.Ino,
		Size:      n.Size,
		Mode:      n.Mode,
		NLink:     n.NLink,
		UID:       n.UID,
		GID:       n.GID,
		ATimeMs:   n.ATimeMs,
		MTimeMs:   n.MTimeMs,
		CTimeMs:   n.CTimeMs,
		BirthMs:   n.BirthMs,
		Flags:     n.Flags,
		IsDir:     n.IsDir(),
		IsSymlink: n.IsSymlink(),
	}
}

// Stat returns the inode metadata at path.
func (fs *StoreFS) Stat(ctx context.Context, path string) (fsapi.Stats, error) {
	if err := fs.checkRoot(ctx); err != nil {
		return fsapi.Stats{}, err
	}
	var stats fsapi.Stats
	err := store.WithTransaction(ctx, fs.store, func(ctx context.Context, txn store.Transaction) error {
		_, n, err := findInode(ctx, txn, path)
		if err != nil {
			return err
		}
		stats = toStats(n)
		return nil
	})
	return stats, err
}

// OpenFile returns a lazy Handle for an existing path.
func (fs *StoreFS) OpenFile(ctx context.Context, path string, flag fsapi.OpenFlag, creds fsapi.Credentials) (fsapi.Handle, error) {
	if err := fs.checkRoot(ctx); err != nil {
		return nil, err
	}
	err := store.WithTransaction(ctx, fs.store, func(ctx context.Context, txn store.Transaction) error {
		_, n, err := findInode(ctx, txn, path)
		if err != nil {
			return err
		}
		return checkAccess(n, accessFor(flag), creds, "OpenFile", path)
	})
	if err != nil {
		return nil, err
	}
	return &handle{path: path}, nil
}

// accessFor maps an OpenFlag to the access bits OpenFile must find on the
// target inode.
func accessFor(flag fsapi.OpenFlag) uint8 {
	if flag&fsapi.ReadWrite != 0 || flag&fsapi.WriteOnly != 0 {
		return inode.AccessWrite
	}
	return inode.AccessRead
}

// CreateFile allocates an inode and data blob for path and writes it into
// the parent listing.
func (fs *StoreFS) CreateFile(ctx context.Context, path string, flag fsapi.OpenFlag, mode uint16, creds fsapi.Credentials) (fsapi.Handle, error) {
	if err := fs.checkRoot(ctx); err != nil {
		return nil, err
	}

	err := store.WithTransaction(ctx, fs.store, func(ctx context.Context, txn store.Transaction) error {
		parentPath := vfs.Dirname(path)
		name := vfs.Basename(path)
		if name == "" {
			return zerrors.New(zerrors.EINVAL, "CreateFile", path)
		}

		_, parent, err := findInode(ctx, txn, parentPath)
		if err != nil {
			return err
		}
		if !parent.IsDir() {
			return zerrors.New(zerrors.ENOTDIR, "CreateFile", path)
		}
		if err := checkAccess(parent, inode.AccessWrite, creds, "CreateFile", path); err != nil {
			return err
		}

		listing, err := getListing(ctx, txn, parent.Data)
		if err != nil {
			return err
		}
		if _, exists := listing[name]; exists {
			return zerrors.New(zerrors.EEXIST, "CreateFile", path)
		}

		newIno, err := allocateKey(ctx, txn)
		if err != nil {
			return err
		}
		dataKey, err := allocateKeyAbove(ctx, txn, newIno)
		if err != nil {
			return err
		}

		uid, gid := creds.UID, creds.GID
		if parent.Mode&inode.S_ISUID != 0 {
			uid = parent.UID
		}
		if parent.Mode&inode.S_ISGID != 0 {
			gid = parent.GID
		}

		n := inode.New(newIno, dataKey, mode|inode.S_IFREG, fs.clock)
		n.NLink = 1
		n.UID, n.GID = uid, gid

		if err := putInode(ctx, txn, n); err != nil {
			return err
		}
		if _, err := txn.Set(ctx, dataKey, nil, 0); err != nil {
			return err
		}

		listing[name] = newIno
		return putListing(ctx, txn, parent.Data, listing)
	})
	if err != nil {
		return nil, err
	}
	return &handle{path: path}, nil
}

// allocateKeyAbove allocates the next free key strictly after reserved,
// used so a file's inode and data key never collide.
func allocateKeyAbove(ctx context.Context, txn store.Transaction, reserved uint32) (uint32, error) {
	keys, err := txn.Keys(ctx)
	if err != nil {
		return 0, err
	}
	max := reserved
	for _, k := range keys {
		if k > max {
			max = k
		}
	}
	if max == ^uint32(0) {
		return 0, zerrors.New(zerrors.ENOSPC, "allocateKeyAbove", "")
	}
	return max + 1, nil
}

// Mkdir is CreateFile's directory counterpart: mode|S_IFDIR, empty listing.
func (fs *StoreFS) Mkdir(ctx context.Context, path string, mode uint16, creds fsapi.Credentials) error {
	if err := fs.checkRoot(ctx); err != nil {
		return err
	}

	return store.WithTransaction(ctx, fs.store, func(ctx context.Context, txn store.Transaction) error {
		parentPath := vfs.Dirname(path)
		name := vfs.Basename(path)
		if name == "" {
			return zerrors.New(zerrors.EINVAL, "Mkdir", path)
		}

		_, parent, err := findInode(ctx, txn, parentPath)
		if err != nil {
			return err
		}
		if !parent.IsDir() {
			return zerrors.New(zerrors.ENOTDIR, "Mkdir", path)
		}
		if err := checkAccess(parent, inode.AccessWrite, creds, "Mkdir", path); err != nil {
			return err
		}

		listing, err := getListing(ctx, txn, parent.Data)
		if err != nil {
			return err
		}
		if _, exists := listing[name]; exists {
			return zerrors.New(zerrors.EEXIST, "Mkdir", path)
		}

		newIno, err := allocateKey(ctx, txn)
		if err != nil {
			return err
		}
		dataKey, err := allocateKeyAbove(ctx, txn, newIno)
		if err != nil {
			return err
		}

		uid, gid := creds.UID, creds.GID
		if parent.Mode&inode.S_ISGID != 0 {
			gid = parent.GID
		}

		n := inode.New(newIno, dataKey, mode|inode.S_IFDIR, fs.clock)
		n.NLink = 1
		n.UID, n.GID = uid, gid

		if err := putInode(ctx, txn, n); err != nil {
			return err
		}
		if err := putListing(ctx, txn, dataKey, map[string]uint32{}); err != nil {
			return err
		}

		listing[name] = newIno
		return putListing(ctx, txn, parent.Data, listing)
	})
}

// Unlink removes a regular-file entry from its parent listing, freeing the
// inode and data key once nlink reaches zero.
func (fs *StoreFS) Unlink(ctx context.Context, path string, creds fsapi.Credentials) error {
	return fs.removeEntry(ctx, path, false, creds)
}

// Rmdir removes an empty-directory entry.
func (fs *StoreFS) Rmdir(ctx context.Context, path string, creds fsapi.Credentials) error {
	return fs.removeEntry(ctx, path, true, creds)
}

func (fs *StoreFS) removeEntry(ctx context.Context, path string, wantDir bool, creds fsapi.Credentials) error {
	if err := fs.checkRoot(ctx); err != nil {
		return err
	}
	op := "Unlink"
	if wantDir {
		op = "Rmdir"
	}

	return store.WithTransaction(ctx, fs.store, func(ctx context.Context, txn store.Transaction) error {
		parentPath := vfs.Dirname(path)
		name := vfs.Basename(path)

		_, parent, err := findInode(ctx, txn, parentPath)
		if err != nil {
			return err
		}
		if err := checkAccess(parent, inode.AccessWrite, creds, op, path); err != nil {
			return err
		}
		listing, err := getListing(ctx, txn, parent.Data)
		if err != nil {
			return err
		}
		childIno, ok := listing[name]
		if !ok {
			return zerrors.New(zerrors.ENOENT, op, path)
		}
		child, err := getInode(ctx, txn, childIno)
		if err != nil {
			return err
		}

		if wantDir {
			if !child.IsDir() {
				return zerrors.New(zerrors.ENOTDIR, op, path)
			}
			childListing, err := getListing(ctx, txn, child.Data)
			if err != nil {
				return err
			}
			if len(childListing) > 0 {
				return zerrors.New(zerrors.ENOTEMPTY, op, path)
			}
		} else if child.IsDir() {
			return zerrors.New(zerrors.EISDIR, op, path)
		}

		delete(listing, name)
		if err := putListing(ctx, txn, parent.Data, listing); err != nil {
			return err
		}

		child.NLink--
		if child.NLink == 0 {
			if err := txn.Remove(ctx, childIno); err != nil && !zerrors.Is(err, zerrors.ENOENT) {
				return err
			}
			if err := txn.Remove(ctx, child.Data); err != nil && !zerrors.Is(err, zerrors.ENOENT) {
				return err
			}
			return nil
		}
		return putInode(ctx, txn, child)
	})
}

// Readdir lists a directory's entry names.
func (fs *StoreFS) Readdir(ctx context.Context, path string) ([]string, error) {
	if err := fs.checkRoot(ctx); err != nil {
		return nil, err
	}
	var names []string
	err := store.WithTransaction(ctx, fs.store, func(ctx context.Context, txn store.Transaction) error {
		_, n, err := findInode(ctx, txn, path)
		if err != nil {
			return err
		}
		if !n.IsDir() {
			return zerrors.New(zerrors.ENOTDIR, "Readdir", path)
		}
		listing, err := getListing(ctx, txn, n.Data)
		if err != nil {
			return err
		}
		names = sortedNames(listing)
		return nil
	})
	return names, err
}

// Link adds a new listing entry referring to target's existing ino,
// incrementing its nlink.
func (fs *StoreFS) Link(ctx context.Context, target, link string, creds fsapi.Credentials) error {
	if err := fs.checkRoot(ctx); err != nil {
		return err
	}

	return store.WithTransaction(ctx, fs.store, func(ctx context.Context, txn store.Transaction) error {
		targetIno, targetNode, err := findInode(ctx, txn, target)
		if err != nil {
			return err
		}
		if targetNode.IsDir() {
			return zerrors.New(zerrors.EPERM, "Link", target)
		}

		parentPath := vfs.Dirname(link)
		name := vfs.Basename(link)
		_, parent, err := findInode(ctx, txn, parentPath)
		if err != nil {
			return err
		}
		if err := checkAccess(parent, inode.AccessWrite, creds, "Link", link); err != nil {
			return err
		}
		listing, err := getListing(ctx, txn, parent.Data)
		if err != nil {
			return err
		}
		if _, exists := listing[name]; exists {
			return zerrors.New(zerrors.EEXIST, "Link", link)
		}

		targetNode.NLink++
		if err := putInode(ctx, txn, targetNode); err != nil {
			return err
		}

		listing[name] = targetIno
		return putListing(ctx, txn, parent.Data, listing)
	})
}

// Rename moves oldPath's listing entry to newPath, replacing any existing
// non-directory entry there.
func (fs *StoreFS) Rename(ctx context.Context, oldPath, newPath string, creds fsapi.Credentials) error {
	if err := fs.checkRoot(ctx); err != nil {
		return err
	}

	oldNorm := vfs.Normalize(oldPath)
	newNorm := vfs.Normalize(newPath)
	if newNorm == oldNorm+"/" || strings.HasPrefix(newNorm, oldNorm+"/") {
		return zerrors.New(zerrors.EBUSY, "Rename", newPath)
	}

	return store.WithTransaction(ctx, fs.store, func(ctx context.Context, txn store.Transaction) error {
		oldParentPath := vfs.Dirname(oldPath)
		oldName := vfs.Basename(oldPath)
		newParentPath := vfs.Dirname(newPath)
		newName := vfs.Basename(newPath)

		oldParentIno, oldParent, err := findInode(ctx, txn, oldParentPath)
		if err != nil {
			return err
		}
		if err := checkAccess(oldParent, inode.AccessWrite, creds, "Rename", oldPath); err != nil {
			return err
		}
		oldListing, err := getListing(ctx, txn, oldParent.Data)
		if err != nil {
			return err
		}
		movedIno, ok := oldListing[oldName]
		if !ok {
			return zerrors.New(zerrors.ENOENT, "Rename", oldPath)
		}

		newParentIno, newParent, err := findInode(ctx, txn, newParentPath)
		if err != nil {
			return err
		}
		if err := checkAccess(newParent, inode.AccessWrite, creds, "Rename", newPath); err != nil {
			return err
		}

		sameParent := oldParentIno == newParentIno
		newListing := oldListing
		if !sameParent {
			newListing, err = getListing(ctx, txn, newParent.Data)
			if err != nil {
				return err
			}
		}

		if existingIno, exists := newListing[newName]; exists {
			existing, err := getInode(ctx, txn, existingIno)
			if err != nil {
				return err
			}
			if existing.IsDir() {
				return zerrors.New(zerrors.EPERM, "Rename", newPath)
			}
			existing.NLink--
			if existing.NLink == 0 {
				if err := txn.Remove(ctx, existingIno); err != nil && !zerrors.Is(err, zerrors.ENOENT) {
					return err
				}
				if err := txn.Remove(ctx, existing.Data); err != nil && !zerrors.Is(err, zerrors.ENOENT) {
					return err
				}
			} else if err := putInode(ctx, txn, existing); err != nil {
				return err
			}
		}

		delete(oldListing, oldName)
		newListing[newName] = movedIno

		if sameParent {
			return putListing(ctx, txn, oldParent.Data, oldListing)
		}
		if err := putListing(ctx, txn, oldParent.Data, oldListing); err != nil {
			return err
		}
		return putListing(ctx, txn, newParent.Data, newListing)
	})
}

// Sync optionally overwrites path's data blob and applies a metadata patch.
func (fs *StoreFS) Sync(ctx context.Context, path string, data []byte, metadata map[string]any) error {
	if err := fs.checkRoot(ctx); err != nil {
		return err
	}

	return store.WithTransaction(ctx, fs.store, func(ctx context.Context, txn store.Transaction) error {
		_, n, err := findInode(ctx, txn, path)
		if err != nil {
			return err
		}
		if data != nil {
			if _, err := txn.Set(ctx, n.Data, data, 0); err != nil {
				return err
			}
			n.Size = uint64(len(data))
		}
		n.Update(patchFromMetadata(metadata), fs.clock)
		return putInode(ctx, txn, n)
	})
}

func patchFromMetadata(metadata map[string]any) inode.Patch {
	var patch inode.Patch
	if v, ok := metadata["mode"].(uint16); ok {
		patch.Mode = &v
	}
	if v, ok := metadata["uid"].(uint32); ok {
		patch.UID = &v
	}
	if v, ok := metadata["gid"].(uint32); ok {
		patch.GID = &v
	}
	return patch
}

// Read loads path's data blob and copies [offset, offset+len(buf)) into buf.
func (fs *StoreFS) Read(ctx context.Context, path string, buf []byte, offset int64) (int, error) {
	if err := fs.checkRoot(ctx); err != nil {
		return 0, err
	}

	n := 0
	err := store.WithTransaction(ctx, fs.store, func(ctx context.Context, txn store.Transaction) error {
		_, node, err := findInode(ctx, txn, path)
		if err != nil {
			return err
		}
		if node.IsDir() {
			return zerrors.New(zerrors.EISDIR, "Read", path)
		}

		data, err := txn.Get(ctx, node.Data, store.Range{Offset: offset, End: offset + int64(len(buf))})
		if err != nil {
			if zerrors.Is(err, zerrors.ENODATA) {
				return zerrors.New(zerrors.ENODATA, "Read", path)
			}
			return err
		}

		// Get returns the requested range already positioned at index 0.
		n = copy(buf, data)

		if node.Flags&inode.FlagNoAtime == 0 {
			node.ATimeMs = msNow(fs.clock)
			_ = putInode(ctx, txn, node)
		}
		return nil
	})
	return n, err
}

// Write overlays buf onto path's data blob at offset, extending it with
// zeros as needed when the store is non-partial.
func (fs *StoreFS) Write(ctx context.Context, path string, buf []byte, offset int64) (int, error) {
	if err := fs.checkRoot(ctx); err != nil {
		return 0, err
	}

	written := 0
	err := store.WithTransaction(ctx, fs.store, func(ctx context.Context, txn store.Transaction) error {
		_, node, err := findInode(ctx, txn, path)
		if err != nil {
			return err
		}
		if node.IsDir() {
			return zerrors.New(zerrors.EISDIR, "Write", path)
		}

		partial := fs.store.Flags().Has(store.FlagPartial)
		var newSize int64
		if partial {
			newSize, err = txn.Set(ctx, node.Data, buf, offset)
			if err != nil {
				return err
			}
		} else {
			current, err := txn.Get(ctx, node.Data, store.FullRange)
			if err != nil && !zerrors.Is(err, zerrors.ENODATA) {
				return err
			}
			required := offset + int64(len(buf))
			if required < int64(len(current)) {
				required = int64(len(current))
			}
			out := make([]byte, required)
			copy(out, current)
			copy(out[offset:], buf)
			if newSize, err = txn.Set(ctx, node.Data, out, 0); err != nil {
				return err
			}
		}

		node.Size = uint64(newSize)
		node.Touch(fs.clock)
		if err := putInode(ctx, txn, node); err != nil {
			return err
		}
		written = len(buf)
		return nil
	})
	return written, err
}

func msNow(clock clockutil.Clock) float64 {
	return float64(clock.Now().UnixNano()) / 1e6
}
