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

// Package inode implements the fixed 4 KiB on-disk inode record and its
// packed extended-attributes region.
package inode

import (
	"encoding/binary"

	"github.com/zenfs-go/core/internal/clockutil"
)

// Record layout constants. The scalar header occupies HeaderSize bytes;
// everything from HeaderSize to Size is the packed Attributes region.
const (
	Size                 = 4096
	HeaderSize           = 128
	AttributesRegionSize = Size - HeaderSize

	offData        = 0
	offSize        = 8
	offMode        = 12
	offNLink       = 14
	offUID         = 18
	offGID         = 22
	offATimeMs     = 26
	offBirthtimeMs = 34
	offMTimeMs     = 42
	offCTimeMs     = 50
	offIno         = 58
	offVersion     = 62
	offFlags       = 66
)

// Mode bits, the POSIX subset this package supports.
const (
	S_IFMT  uint16 = 0xF000
	S_IFDIR uint16 = 0x4000
	S_IFREG uint16 = 0x8000
	S_IFLNK uint16 = 0xA000

	S_ISUID uint16 = 0x0800
	S_ISGID uint16 = 0x0400

	S_IRUSR uint16 = 0x0100
	S_IWUSR uint16 = 0x0080
	S_IXUSR uint16 = 0x0040
	S_IRGRP uint16 = 0x0020
	S_IWGRP uint16 = 0x0010
	S_IXGRP uint16 = 0x0008
	S_IROTH uint16 = 0x0004
	S_IWOTH uint16 = 0x0002
	S_IXOTH uint16 = 0x0001
)

// Flag bits carried in the Flags field.
const (
	FlagNoAtime   uint32 = 1 << 0
	FlagAppend    uint32 = 1 << 1
	FlagImmutable uint32 = 1 << 2
	FlagSync      uint32 = 1 << 3
)

// RootIno is the inode number of the filesystem root.
const RootIno uint32 = 0

// Inode is the decoded form of the fixed-layout record. ino and data are
// store-local identity and are not settable through Update.
type Inode struct {
	Data       uint32
	Size       uint64
	Mode       uint16
	NLink      uint32
	UID        uint32
	GID        uint32
	ATimeMs    float64
	BirthMs    float64
	MTimeMs    float64
	CTimeMs    float64
	Ino        uint32
	Version    uint32
	Flags      uint32
	Attributes Attributes
}

// New constructs a fresh inode for ino/data, stamping all four timestamps
// to now() from clock.
func New(ino, data uint32, mode uint16, clock clockutil.Clock) *Inode {
	now := msSince(clock)
	return &Inode{
		Data:    data,
		Mode:    mode,
		NLink:   0,
		Ino:     ino,
		ATimeMs: now,
		BirthMs: now,
		MTimeMs: now,
		CTimeMs: now,
	}
}

func msSince(clock clockutil.Clock) float64 {
	return float64(clock.Now().UnixNano()) / 1e6
}

// IsDir reports whether the inode describes a directory.
func (n *Inode) IsDir() bool { return n.Mode&S_IFMT == S_IFDIR }

// IsRegular reports whether the inode describes a regular file.
func (n *Inode) IsRegular() bool { return n.Mode&S_IFMT == S_IFREG }

// IsSymlink reports whether the inode describes a symbolic link.
func (n *Inode) IsSymlink() bool { return n.Mode&S_IFMT == S_IFLNK }

// Patch carries the subset of fields Update may change. A nil pointer field
// means "leave unchanged".
type Patch struct {
	Size    *uint64
	Mode    *uint16
	NLink   *uint32
	UID     *uint32
	GID     *uint32
	ATimeMs *float64
	MTimeMs *float64
	Flags   *uint32
}

// Update applies patch, skipping Ino and Data (store-local identity,
// immutable after creation) and skipping ATimeMs when FlagNoAtime is set. It
// returns whether any field actually changed value, and bumps CTimeMs (via
// clock) iff it did.
func (n *Inode) Update(patch Patch, clock clockutil.Clock) bool {
	changed := false

	apply := func(ok bool) {
		if ok {
			changed = true
		}
	}

	if patch.Size != nil && *patch.Size != n.Size {
		n.Size = *patch.Size
		apply(true)
	}
	if patch.Mode != nil && *patch.Mode != n.Mode {
		n.Mode = *patch.Mode
		apply(true)
	}
	if patch.NLink != nil && *patch.NLink != n.NLink {
		n.NLink = *patch.NLink
		apply(true)
	}
	if patch.UID != nil && *patch.UID != n.UID {
		n.UID = *patch.UID
		apply(true)
	}
	if patch.GID != nil && *patch.GID != n.GID {
		n.GID = *patch.GID
		apply(true)
	}
	if patch.ATimeMs != nil && n.Flags&FlagNoAtime == 0 && *patch.ATimeMs != n.ATimeMs {
		n.ATimeMs = *patch.ATimeMs
		apply(true)
	}
	if patch.MTimeMs != nil && *patch.MTimeMs != n.MTimeMs {
		n.MTimeMs = *patch.MTimeMs
		apply(true)
	}
	if patch.Flags != nil && *patch.Flags != n.Flags {
		n.Flags = *patch.Flags
		apply(true)
	}

	if changed {
		n.CTimeMs = msSince(clock)
		n.Version++
	}
	return changed
}

// Touch stamps MTimeMs (and, unless suppressed, ATimeMs) to now, bumping
// CTimeMs. Used by write paths that don't go through a Patch.
func (n *Inode) Touch(clock clockutil.Clock) {
	now := msSince(clock)
	n.MTimeMs = now
	if n.Flags&FlagNoAtime == 0 {
		n.ATimeMs = now
	}
	n.CTimeMs = now
	n.Version++
}

// Encode serializes the inode into its fixed 4 KiB on-disk form.
func (n *Inode) Encode() ([]byte, error) {
	buf := make([]byte, Size)
	le := binary.LittleEndian
	le.PutUint32(buf[offData:], n.Data)
	le.PutUint32(buf[offSize:], uint32(n.Size))
	le.PutUint16(buf[offMode:], n.Mode)
	le.PutUint32(buf[offNLink:], n.NLink)
	le.PutUint32(buf[offUID:], n.UID)
	le.PutUint32(buf[offGID:], n.GID)
	putFloat64(buf[offATimeMs:], n.ATimeMs)
	putFloat64(buf[offBirthtimeMs:], n.BirthMs)
	putFloat64(buf[offMTimeMs:], n.MTimeMs)
	putFloat64(buf[offCTimeMs:], n.CTimeMs)
	le.PutUint32(buf[offIno:], n.Ino)
	le.PutUint32(buf[offVersion:], n.Version)
	le.PutUint32(buf[offFlags:], n.Flags)

	region, err := n.Attributes.Encode()
	if err != nil {
		return nil, err
	}
	copy(buf[HeaderSize:], region)
	return buf, nil
}

// Decode parses a fixed 4 KiB on-disk record.
func Decode(buf []byte) (*Inode, error) {
	if len(buf) < Size {
		return nil, errShortRecord
	}
	le := binary.LittleEndian
	n := &Inode{
		Data:    le.Uint32(buf[offData:]),
		Size:    uint64(le.Uint32(buf[offSize:])),
		Mode:    le.Uint16(buf[offMode:]),
		NLink:   le.Uint32(buf[offNLink:]),
		UID:     le.Uint32(buf[offUID:]),
		GID:     le.Uint32(buf[offGID:]),
		ATimeMs: getFloat64(buf[offATimeMs:]),
		BirthMs: getFloat64(buf[offBirthtimeMs:]),
		MTimeMs: getFloat64(buf[offMTimeMs:]),
		CTimeMs: getFloat64(buf[offCTimeMs:]),
		Ino:     le.Uint32(buf[offIno:]),
		Version: le.Uint32(buf[offVersion:]),
		Flags:   le.Uint32(buf[offFlags:]),
	}
	attrs, err := DecodeAttributes(buf[HeaderSize:Size])
	if err != nil {
		return nil, err
	}
	n.Attributes = attrs
	return n, nil
}
