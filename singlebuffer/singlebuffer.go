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

package singlebuffer

import (
	"encoding/binary"

	"github.com/google/uuid"

	"github.com/zenfs-go/core/internal/clockutil"
	"github.com/zenfs-go/core/store"
	"github.com/zenfs-go/core/zerrors"
)

// SingleBuffer is a Store implemented directly over one contiguous []byte,
// optionally shared across threads.
type SingleBuffer struct {
	buf   []byte
	clock clockutil.Clock
}

var _ store.Store = (*SingleBuffer)(nil)

// New constructs a SingleBuffer over buf. If buf has no valid superblock
// magic, it's treated as fresh: a new superblock and first metadata block
// are written and used_bytes is set to cover both. Otherwise the existing
// superblock and current metadata block are verified; any mismatch aborts
// construction with EIO.
func New(buf []byte, clock clockutil.Clock) (*SingleBuffer, error) {
	if len(buf) < SuperblockSize+MetadataBlockSize {
		return nil, zerrors.New(zerrors.EINVAL, "singlebuffer.New", "")
	}

	sb := &SingleBuffer{buf: buf, clock: clock}

	magic := binary.LittleEndian.Uint32(buf[offSBMagic:])
	if magic != Magic {
		if err := sb.initFresh(); err != nil {
			return nil, err
		}
		return sb, nil
	}

	if err := sb.verifyExisting(); err != nil {
		return nil, err
	}
	return sb, nil
}

func (sb *SingleBuffer) initFresh() error {
	buf := sb.buf
	le := binary.LittleEndian

	for i := range buf[:SuperblockSize+MetadataBlockSize] {
		buf[i] = 0
	}

	le.PutUint32(buf[offSBMagic:], Magic)
	le.PutUint16(buf[offSBVersion:], 1)
	le.PutUint16(buf[offSBInodeFormat:], InodeFormat)
	le.PutUint32(buf[offSBMetaBlkSize:], MetadataBlockSize)
	le.PutUint32(buf[offSBMetaOffset:], SuperblockSize)
	id := uuid.New()
	copy(buf[offSBUUID:offSBUUID+16], id[:])
	storeU64(buf, offSBTotalBytes, uint64(len(buf)))
	storeU64(buf, offSBUsedBytes, uint64(SuperblockSize+MetadataBlockSize))

	le.PutUint32(buf[SuperblockSize+offMBPrevOff:], 0)
	sb.writeBlockChecksum(SuperblockSize)
	sb.writeSuperblockChecksum()
	return nil
}

func (sb *SingleBuffer) verifyExisting() error {
	buf := sb.buf
	le := binary.LittleEndian

	wantChecksum := le.Uint32(buf[offSBChecksum:])
	if checksum(buf[:SuperblockSize]) != wantChecksum {
		return zerrors.New(zerrors.EIO, "singlebuffer.New", "superblock checksum mismatch")
	}
	if le.Uint16(buf[offSBInodeFormat:]) != InodeFormat {
		return zerrors.New(zerrors.EIO, "singlebuffer.New", "inode-format mismatch")
	}
	if le.Uint32(buf[offSBMetaBlkSize:]) != MetadataBlockSize {
		return zerrors.New(zerrors.EIO, "singlebuffer.New", "metadata-block size mismatch")
	}

	metaOffset := le.Uint32(buf[offSBMetaOffset:])
	blockChecksum := le.Uint32(buf[metaOffset+offMBChecksum:])
	if checksum(buf[metaOffset:metaOffset+offMBLocked]) != blockChecksum {
		return zerrors.New(zerrors.EIO, "singlebuffer.New", "metadata-block checksum mismatch")
	}
	return nil
}

func (sb *SingleBuffer) writeSuperblockChecksum() {
	binary.LittleEndian.PutUint32(sb.buf[offSBChecksum:], checksum(sb.buf[:SuperblockSize]))
}

// writeBlockChecksum leaves the trailing lock word out of the checksum,
// since releasing the lock changes it after the checksum is written.
func (sb *SingleBuffer) writeBlockChecksum(blockOffset uint32) {
	region := sb.buf[blockOffset : blockOffset+MetadataBlockSize]
	binary.LittleEndian.PutUint32(region[offMBChecksum:], checksum(region[:offMBLocked]))
}

func (sb *SingleBuffer) touchBlock(blockOffset uint32) {
	storeU64(sb.buf, blockOffset+offMBTime, uint64(sb.clock.Now().UnixNano()/1e6))
	sb.writeBlockChecksum(blockOffset)
}

func (sb *SingleBuffer) metadataOffset() uint32 {
	return binary.LittleEndian.Uint32(sb.buf[offSBMetaOffset:])
}

// Name identifies this store for diagnostics.
func (sb *SingleBuffer) Name() string { return "singlebuffer" }

// Flags reports FlagPartial: Get/Set address an exact byte range within a
// blob's allocated region.
func (sb *SingleBuffer) Flags() store.Flags { return store.FlagPartial }
