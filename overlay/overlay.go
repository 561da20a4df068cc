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

// Package overlay implements the copy-on-write FileSystem composing a
// read-only lower layer with a writable upper layer, plus the deletion
// journal that lets the lower layer's files be "removed" without being
// mutated.
package overlay

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/zenfs-go/core/fsapi"
	"github.com/zenfs-go/core/internal/zenfslog"
	"github.com/zenfs-go/core/vfs"
	"github.com/zenfs-go/core/zerrors"
)

// CopyOnWrite composes a readable lower FileSystem with a writable upper
// one. Writes copy the target up to upper on first touch; deletions of a
// lower-only path are recorded in a Journal instead of mutating lower.
type CopyOnWrite struct {
	lower   fsapi.FileSystem
	upper   fsapi.FileSystem
	Journal *Journal
}

var _ fsapi.FileSystem = (*CopyOnWrite)(nil)

// New composes lower (read-only) and upper (writable). upper must be
// non-nil; there is no generic way to probe a fsapi.FileSystem for write
// support short of attempting a write, so New rejects only the
// unambiguous EINVAL case of a missing upper.
func New(lower, upper fsapi.FileSystem) (*CopyOnWrite, error) {
	if upper == nil {
		return nil, zerrors.New(zerrors.EINVAL, "overlay.New", "")
	}
	return &CopyOnWrite{lower: lower, upper: upper, Journal: NewJournal()}, nil
}

func (o *CopyOnWrite) existsOnUpper(ctx context.Context, path string) bool {
	_, err := o.upper.Stat(ctx, path)
	return err == nil
}

func (o *CopyOnWrite) existsOnLower(ctx context.Context, path string) bool {
	_, err := o.lower.Stat(ctx, path)
	return err == nil
}

// exists reports whether path is visible through the overlay: present on
// upper, or present on lower and not journal-deleted.
func (o *CopyOnWrite) exists(ctx context.Context, path string) bool {
	if o.existsOnUpper(ctx, path) {
		return true
	}
	return o.existsOnLower(ctx, path) && !o.Journal.IsDeleted(path)
}

// Stat prefers the upper layer.
func (o *CopyOnWrite) Stat(ctx context.Context, path string) (fsapi.Stats, error) {
	if stats, err := o.upper.Stat(ctx, path); err == nil {
		return stats, nil
	} else if !zerrors.Is(err, zerrors.ENOENT) {
		return fsapi.Stats{}, err
	}
	if o.Journal.IsDeleted(path) {
		return fsapi.Stats{}, zerrors.New(zerrors.ENOENT, "Stat", path)
	}
	return o.lower.Stat(ctx, path)
}

// Read prefers the upper layer.
func (o *CopyOnWrite) Read(ctx context.Context, path string, buf []byte, offset int64) (int, error) {
	if o.existsOnUpper(ctx, path) {
		return o.upper.Read(ctx, path, buf, offset)
	}
	if !o.existsOnLower(ctx, path) || o.Journal.IsDeleted(path) {
		return 0, zerrors.New(zerrors.ENOENT, "Read", path)
	}
	return o.lower.Read(ctx, path, buf, offset)
}

// OpenFile requires the path to exist in the merged view.
func (o *CopyOnWrite) OpenFile(ctx context.Context, path string, flag fsapi.OpenFlag, creds fsapi.Credentials) (fsapi.Handle, error) {
	if !o.exists(ctx, path) {
		return nil, zerrors.New(zerrors.ENOENT, "OpenFile", path)
	}
	return &handle{path: path}, nil
}

// Readdir merges upper and lower listings, de-duplicates, and filters out
// children marked deleted in the journal.
func (o *CopyOnWrite) Readdir(ctx context.Context, path string) ([]string, error) {
	upperNames, upperErr := o.upper.Readdir(ctx, path)
	lowerNames, lowerErr := o.lower.Readdir(ctx, path)

	if upperErr != nil && lowerErr != nil {
		return nil, upperErr
	}

	seen := map[string]bool{}
	merged := make([]string, 0, len(upperNames)+len(lowerNames))
	for _, name := range upperNames {
		if !seen[name] {
			seen[name] = true
			merged = append(merged, name)
		}
	}
	for _, name := range lowerNames {
		if !seen[name] {
			seen[name] = true
			merged = append(merged, name)
		}
	}

	out := merged[:0]
	for _, name := range merged {
		if !o.Journal.IsDeleted(vfs.Join(path, name)) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out, nil
}

// copyUpDirs ensures every ancestor directory of path exists on upper,
// creating missing ones with the mode observed on lower, root-down.
func (o *CopyOnWrite) copyUpDirs(ctx context.Context, dir string) error {
	if dir == "/" || dir == "." {
		return nil
	}
	parent := vfs.Dirname(dir)
	if err := o.copyUpDirs(ctx, parent); err != nil {
		return err
	}
	if o.existsOnUpper(ctx, dir) {
		return nil
	}
	stats, err := o.lower.Stat(ctx, dir)
	if err != nil {
		return zerrors.New(zerrors.ENOENT, "copyUpDirs", dir)
	}
	creds := fsapi.Credentials{UID: stats.UID, GID: stats.GID}
	if err := o.upper.Mkdir(ctx, dir, stats.Mode&0o777, creds); err != nil && !zerrors.Is(err, zerrors.EEXIST) {
		return err
	}
	return nil
}

// copyUp ensures path itself, and every ancestor directory, exists on
// upper, copying bytes (or recursing into directories) from lower as
// needed. A copy-up of a path absent from both layers, or journal-deleted
// on lower, fails ENOENT.
func (o *CopyOnWrite) copyUp(ctx context.Context, path string) error {
	if o.existsOnUpper(ctx, path) {
		return nil
	}
	lowerStats, err := o.lower.Stat(ctx, path)
	if err != nil {
		return zerrors.New(zerrors.ENOENT, "copyUp", path)
	}
	if o.Journal.IsDeleted(path) {
		return zerrors.New(zerrors.ENOENT, "copyUp", path)
	}

	if err := o.copyUpDirs(ctx, vfs.Dirname(path)); err != nil {
		return err
	}

	creds := fsapi.Credentials{UID: lowerStats.UID, GID: lowerStats.GID}

	if lowerStats.IsDir {
		if err := o.upper.Mkdir(ctx, path, lowerStats.Mode&0o777, creds); err != nil && !zerrors.Is(err, zerrors.EEXIST) {
			return err
		}
		names, err := o.lower.Readdir(ctx, path)
		if err != nil {
			return err
		}
		g, gctx := errgroup.WithContext(ctx)
		for _, name := range names {
			child := vfs.Join(path, name)
			g.Go(func() error { return o.copyUp(gctx, child) })
		}
		return g.Wait()
	}

	data := make([]byte, lowerStats.Size)
	n, err := o.lower.Read(ctx, path, data, 0)
	if err != nil && !zerrors.Is(err, zerrors.ENODATA) {
		return err
	}
	data = data[:n]

	h, err := o.upper.CreateFile(ctx, path, fsapi.WriteOnly|fsapi.Create, lowerStats.Mode&0o777, creds)
	if err != nil {
		return err
	}
	defer h.Close()
	if len(data) > 0 {
		if _, err := o.upper.Write(ctx, path, data, 0); err != nil {
			return err
		}
	}
	return nil
}

// CreateFile ensures the parent is copied up, then creates directly on
// upper.
func (o *CopyOnWrite) CreateFile(ctx context.Context, path string, flag fsapi.OpenFlag, mode uint16, creds fsapi.Credentials) (fsapi.Handle, error) {
	if err := o.copyUpDirs(ctx, vfs.Dirname(path)); err != nil {
		return nil, err
	}
	return o.upper.CreateFile(ctx, path, flag, mode, creds)
}

// Mkdir ensures the parent is copied up, then creates directly on upper.
func (o *CopyOnWrite) Mkdir(ctx context.Context, path string, mode uint16, creds fsapi.Credentials) error {
	if err := o.copyUpDirs(ctx, vfs.Dirname(path)); err != nil {
		return err
	}
	return o.upper.Mkdir(ctx, path, mode, creds)
}

// Write copies path up to upper on first touch, then delegates.
func (o *CopyOnWrite) Write(ctx context.Context, path string, buf []byte, offset int64) (int, error) {
	if !o.exists(ctx, path) {
		return 0, zerrors.New(zerrors.ENOENT, "Write", path)
	}
	if err := o.copyUp(ctx, path); err != nil {
		return 0, err
	}
	return o.upper.Write(ctx, path, buf, offset)
}

// Sync copies path up to upper, then delegates.
func (o *CopyOnWrite) Sync(ctx context.Context, path string, data []byte, metadata map[string]any) error {
	if !o.exists(ctx, path) {
		return zerrors.New(zerrors.ENOENT, "Sync", path)
	}
	if err := o.copyUp(ctx, path); err != nil {
		return err
	}
	return o.upper.Sync(ctx, path, data, metadata)
}

// Link copies the target up, then adds the link entry directly on upper.
func (o *CopyOnWrite) Link(ctx context.Context, target, link string, creds fsapi.Credentials) error {
	if err := o.copyUp(ctx, target); err != nil {
		return err
	}
	if err := o.copyUpDirs(ctx, vfs.Dirname(link)); err != nil {
		return err
	}
	return o.upper.Link(ctx, target, link, creds)
}

// Rename copies both the source and the destination's parent up, then
// delegates to upper.
func (o *CopyOnWrite) Rename(ctx context.Context, oldPath, newPath string, creds fsapi.Credentials) error {
	if err := o.copyUp(ctx, oldPath); err != nil {
		return err
	}
	if err := o.copyUpDirs(ctx, vfs.Dirname(newPath)); err != nil {
		return err
	}
	return o.upper.Rename(ctx, oldPath, newPath, creds)
}

// Unlink removes path from upper when present there, then journals a
// delete if the path is still reachable via lower.
func (o *CopyOnWrite) Unlink(ctx context.Context, path string, creds fsapi.Credentials) error {
	return o.remove(ctx, path, creds, false)
}

// Rmdir requires the merged listing to be empty, then behaves like Unlink.
func (o *CopyOnWrite) Rmdir(ctx context.Context, path string, creds fsapi.Credentials) error {
	names, err := o.Readdir(ctx, path)
	if err == nil && len(names) > 0 {
		return zerrors.New(zerrors.ENOTEMPTY, "Rmdir", path)
	}
	return o.remove(ctx, path, creds, true)
}

// remove deletes path from the upper layer if it's there, and journals
// the deletion whenever the target would otherwise still be visible
// through the lower layer. If the upper delete itself fails, the
// failure degrades into a journal entry instead of propagating, as long
// as the target still exists somewhere in the merged view, making the
// delete idempotent from the caller's perspective.
func (o *CopyOnWrite) remove(ctx context.Context, path string, creds fsapi.Credentials, isDir bool) error {
	if !o.exists(ctx, path) {
		return zerrors.New(zerrors.ENOENT, "remove", path)
	}

	if o.existsOnUpper(ctx, path) {
		var err error
		if isDir {
			err = o.upper.Rmdir(ctx, path, creds)
		} else {
			err = o.upper.Unlink(ctx, path, creds)
		}
		if err != nil {
			if !o.exists(ctx, path) {
				return err
			}
			zenfslog.Default().Warnf("overlay: upper delete of %q failed (%v), degrading to journal entry", path, err)
		}
	}

	if o.exists(ctx, path) && !o.Journal.IsDeleted(path) {
		o.Journal.Record(OpDelete, path)
	}
	return nil
}

type handle struct{ path string }

func (h *handle) Path() string { return h.path }
func (h *handle) Close() error { return nil }
