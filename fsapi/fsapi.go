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

// Package fsapi defines the capability-set interface every ZenFS backend
// implements: StoreFS, the CopyOnWrite overlay, PortFS, and LockedFS all
// satisfy FileSystem so they can be composed and nested freely.
package fsapi

import "context"

// OpenFlag mirrors POSIX open(2) flags as used by CreateFile/OpenFile.
type OpenFlag int

const (
	// ReadOnly opens a file for reading only.
	ReadOnly OpenFlag = 0
	// WriteOnly opens a file for writing only.
	WriteOnly OpenFlag = 1 << iota
	// ReadWrite opens a file for both reading and writing.
	ReadWrite
	// Create creates the file if it does not exist.
	Create
	// Exclusive, combined with Create, fails if the file already exists.
	Exclusive
	// Truncate truncates an existing file to zero length on open.
	Truncate
	// Append seeks to the end before every write.
	Append
)

// Credentials identifies the caller of a FileSystem operation.
type Credentials struct {
	UID    uint32
	GID    uint32
	EUID   uint32
	EGID   uint32
	Groups []uint32
}

// Stats is the subset of Inode fields a caller of Stat observes.
type Stats struct {
	Ino       uint32
	Size      uint64
	Mode      uint16
	NLink     uint32
	UID       uint32
	GID       uint32
	ATimeMs   float64
	MTimeMs   float64
	CTimeMs   float64
	BirthMs   float64
	Flags     uint32
	IsDir     bool
	IsSymlink bool
}

// Handle is a lazily-materialized open file. Backends that have nothing to
// hold open (e.g. StoreFS, which re-reads the store on every call) may
// return a Handle whose Close is a no-op.
type Handle interface {
	Path() string
	Close() error
}

// FileSystem is the capability set a ZenFS backend exposes. Every method
// takes the caller's Credentials explicitly rather than threading a Context
// object through, so the interface stays composable across backends that do
// and don't have a notion of a bound Context.
type FileSystem interface {
	Stat(ctx context.Context, path string) (Stats, error)
	OpenFile(ctx context.Context, path string, flag OpenFlag, creds Credentials) (Handle, error)
	CreateFile(ctx context.Context, path string, flag OpenFlag, mode uint16, creds Credentials) (Handle, error)
	Unlink(ctx context.Context, path string, creds Credentials) error
	Rmdir(ctx context.Context, path string, creds Credentials) error
	Mkdir(ctx context.Context, path string, mode uint16, creds Credentials) error
	Readdir(ctx context.Context, path string) ([]string, error)
	Link(ctx context.Context, target, link string, creds Credentials) error
	Rename(ctx context.Context, oldPath, newPath string, creds Credentials) error
	Sync(ctx context.Context, path string, data []byte, metadata map[string]any) error
	Read(ctx context.Context, path string, buf []byte, offset int64) (int, error)
	Write(ctx context.Context, path string, buf []byte, offset int64) (int, error)
}

// AttributeStore is an optional capability for backends that support
// extended attributes directly (StoreFS does, via the Inode Attributes
// region; a pure network FileSystem may not).
type AttributeStore interface {
	GetAttribute(ctx context.Context, path, name string) ([]byte, error)
	SetAttribute(ctx context.Context, path, name string, value []byte) error
	RemoveAttribute(ctx context.Context, path, name string) error
	ListAttributes(ctx context.Context, path string) ([]string, error)
}
