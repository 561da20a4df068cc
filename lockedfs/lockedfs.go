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

// Package lockedfs wraps a fsapi.FileSystem with a per-path FIFO mutex,
// serializing mutating operations against the same path.
package lockedfs

import (
	"context"
	"sync"
	"time"

	"github.com/zenfs-go/core/fsapi"
	"github.com/zenfs-go/core/internal/telemetry"
	"github.com/zenfs-go/core/internal/zenfsconfig"
	"github.com/zenfs-go/core/internal/zenfslog"
	"github.com/zenfs-go/core/zerrors"
)

// LockedFS serializes every mutating fsapi.FileSystem call against a
// per-path FIFO queue: callers waiting on the same path run in arrival
// order, one at a time, for exactly the duration of the wrapped call.
// Reads (Stat, Read, Readdir) pass straight through, ungated.
type LockedFS struct {
	fs fsapi.FileSystem

	mu      sync.Mutex
	waiters map[string]chan struct{}
}

var _ fsapi.FileSystem = (*LockedFS)(nil)

// New wraps fs.
func New(fs fsapi.FileSystem) *LockedFS {
	return &LockedFS{fs: fs, waiters: make(map[string]chan struct{})}
}

// lock enqueues the caller behind whoever currently holds (or is queued
// for) path, installing itself as the new tail of the queue, then blocks
// until it's their turn. The returned release func MUST be called
// exactly once; it hands the lock to the next waiter, if any.
func (l *LockedFS) lock(path string) func() {
	l.mu.Lock()
	ahead := l.waiters[path]
	mine := make(chan struct{})
	l.waiters[path] = mine
	l.mu.Unlock()

	if ahead != nil {
		start := time.Now()
		<-ahead
		wait := time.Since(start)
		telemetry.Get().RecordLockWait(context.Background(), float64(wait.Microseconds())/1000)
		if wait > zenfsconfig.DefaultSlowWaitWarning {
			zenfslog.Default().Warnf("lockedfs: %q waited %s for its turn in the path queue", path, wait)
		}
	}

	return func() {
		l.mu.Lock()
		if l.waiters[path] == mine {
			delete(l.waiters, path)
		}
		l.mu.Unlock()
		close(mine)
	}
}

// tryLock is lockSync's non-blocking counterpart: it fails EBUSY instead
// of queuing if path is already locked or has waiters.
func (l *LockedFS) tryLock(path string) (func(), error) {
	l.mu.Lock()
	if _, busy := l.waiters[path]; busy {
		l.mu.Unlock()
		return nil, zerrors.New(zerrors.EBUSY, "lockedfs", path)
	}
	mine := make(chan struct{})
	l.waiters[path] = mine
	l.mu.Unlock()

	return func() {
		l.mu.Lock()
		if l.waiters[path] == mine {
			delete(l.waiters, path)
		}
		l.mu.Unlock()
		close(mine)
	}, nil
}

// TryLock exposes lockSync for callers that want to fail fast rather
// than queue behind an in-flight mutation of the same path.
func (l *LockedFS) TryLock(path string) (func(), error) {
	return l.tryLock(path)
}

func (l *LockedFS) Stat(ctx context.Context, path string) (fsapi.Stats, error) {
	return l.fs.Stat(ctx, path)
}

func (l *LockedFS) OpenFile(ctx context.Context, path string, flag fsapi.OpenFlag, creds fsapi.Credentials) (fsapi.Handle, error) {
	return l.fs.OpenFile(ctx, path, flag, creds)
}

func (l *LockedFS) CreateFile(ctx context.Context, path string, flag fsapi.OpenFlag, mode uint16, creds fsapi.Credentials) (fsapi.Handle, error) {
	release := l.lock(path)
	defer release()
	return l.fs.CreateFile(ctx, path, flag, mode, creds)
}

func (l *LockedFS) Unlink(ctx context.Context, path string, creds fsapi.Credentials) error {
	release := l.lock(path)
	defer release()
	return l.fs.Unlink(ctx, path, creds)
}

func (l *LockedFS) Rmdir(ctx context.Context, path string, creds fsapi.Credentials) error {
	release := l.lock(path)
	defer release()
	return l.fs.Rmdir(ctx, path, creds)
}

func (l *LockedFS) Mkdir(ctx context.Context, path string, mode uint16, creds fsapi.Credentials) error {
	release := l.lock(path)
	defer release()
	return l.fs.Mkdir(ctx, path, mode, creds)
}

func (l *LockedFS) Readdir(ctx context.Context, path string) ([]string, error) {
	return l.fs.Readdir(ctx, path)
}

// Link locks both target and link, always in lexical order, to avoid
// deadlocking against a concurrent Link/Rename that touches the same
// pair of paths in the opposite order.
func (l *LockedFS) Link(ctx context.Context, target, link string, creds fsapi.Credentials) error {
	for _, release := range l.lockPair(target, link) {
		defer release()
	}
	return l.fs.Link(ctx, target, link, creds)
}

func (l *LockedFS) Rename(ctx context.Context, oldPath, newPath string, creds fsapi.Credentials) error {
	for _, release := range l.lockPair(oldPath, newPath) {
		defer release()
	}
	return l.fs.Rename(ctx, oldPath, newPath, creds)
}

// lockPair locks one or two distinct paths in lexical order, so any two
// callers touching the same pair always acquire them in the same order
// and can't deadlock against each other.
func (l *LockedFS) lockPair(a, b string) []func() {
	if a == b {
		return []func(){l.lock(a)}
	}
	first, second := a, b
	if second < first {
		first, second = second, first
	}
	return []func(){l.lock(first), l.lock(second)}
}

func (l *LockedFS) Sync(ctx context.Context, path string, data []byte, metadata map[string]any) error {
	release := l.lock(path)
	defer release()
	return l.fs.Sync(ctx, path, data, metadata)
}

func (l *LockedFS) Read(ctx context.Context, path string, buf []byte, offset int64) (int, error) {
	return l.fs.Read(ctx, path, buf, offset)
}

func (l *LockedFS) Write(ctx context.Context, path string, buf []byte, offset int64) (int, error) {
	release := l.lock(path)
	defer release()
	return l.fs.Write(ctx, path, buf, offset)
}
