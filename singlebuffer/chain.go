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
	"context"
	"encoding/binary"

	"github.com/zenfs-go/core/internal/telemetry"
	"github.com/zenfs-go/core/store"
	"github.com/zenfs-go/core/zerrors"
)

// chain returns every metadata-block offset, newest first, by following
// previous_offset links to the sentinel (previous_offset == 0).
func (sb *SingleBuffer) chain() []uint32 {
	var offsets []uint32
	offset := sb.metadataOffset()
	for {
		offsets = append(offsets, offset)
		prev := binary.LittleEndian.Uint32(sb.buf[offset+offMBPrevOff:])
		if prev == 0 {
			return offsets
		}
		offset = prev
	}
}

func (sb *SingleBuffer) findItem(ctx context.Context, id uint32) (blockOffset uint32, idx int, it item, found bool) {
	for _, offset := range sb.chain() {
		_ = waitUnlocked(sb.buf, offset)
		for i := 0; i < MetadataItemCount; i++ {
			candidate := readItem(sb.buf, offset, i)
			if candidate.Offset != 0 && candidate.ID == id {
				return offset, i, candidate, true
			}
		}
	}
	return 0, 0, item{}, false
}

// Keys walks the chain newest-first, emitting each id the first time it's
// seen.
func (sb *SingleBuffer) keys(ctx context.Context) []uint32 {
	seen := map[uint32]bool{}
	var out []uint32
	for _, offset := range sb.chain() {
		_ = waitUnlocked(sb.buf, offset)
		for i := 0; i < MetadataItemCount; i++ {
			it := readItem(sb.buf, offset, i)
			if it.Offset == 0 || seen[it.ID] {
				continue
			}
			seen[it.ID] = true
			out = append(out, it.ID)
		}
	}
	return out
}

// get returns rng of id's stored blob, positioned at index 0 of the
// result, searching the chain newest-first.
func (sb *SingleBuffer) get(id uint32, rng store.Range) ([]byte, error) {
	_, _, it, found := sb.findItem(context.Background(), id)
	if !found {
		return nil, zerrors.New(zerrors.ENODATA, "singlebuffer.Get", "")
	}
	full := sb.buf[it.Offset : it.Offset+it.Size]

	end := rng.End
	if end < 0 || end > int64(len(full)) {
		end = int64(len(full))
	}
	start := rng.Offset
	if start > end {
		start = end
	}
	out := make([]byte, end-start)
	copy(out, full[start:end])
	return out, nil
}

// isUnused reports whether [offset, offset+length) overlaps no superblock,
// metadata block, or other live item region.
func (sb *SingleBuffer) isUnused(offset, length uint32, skipBlock uint32, skipIdx int) bool {
	end := offset + length
	if offset < SuperblockSize {
		return false
	}
	for _, blk := range sb.chain() {
		if overlaps(offset, end, blk, blk+MetadataBlockSize) {
			return false
		}
	}
	for _, blk := range sb.chain() {
		for i := 0; i < MetadataItemCount; i++ {
			if blk == skipBlock && i == skipIdx {
				continue
			}
			it := readItem(sb.buf, blk, i)
			if it.Offset == 0 {
				continue
			}
			if overlaps(offset, end, it.Offset, it.Offset+it.Size) {
				return false
			}
		}
	}
	return true
}

func overlaps(aStart, aEnd, bStart, bEnd uint32) bool {
	return aStart < bEnd && bStart < aEnd
}

// appendData grows used_bytes atomically and copies data into the newly
// claimed region, failing ENOSPC if the buffer is exhausted.
func (sb *SingleBuffer) appendData(data []byte) (uint32, error) {
	total := loadU64(sb.buf, offSBTotalBytes)
	offset := addU64(sb.buf, offSBUsedBytes, uint64(len(data))) - uint64(len(data))
	if offset+uint64(len(data)) > total {
		// Overshoot: restore the watermark and fail. Best-effort since a
		// concurrent writer may have advanced it further in the interim;
		// this store does not claim to reclaim the wasted tail.
		addU64(sb.buf, offSBUsedBytes, -uint64(len(data)))
		return 0, zerrors.New(zerrors.ENOSPC, "singlebuffer.appendData", "")
	}
	copy(sb.buf[offset:offset+uint64(len(data))], data)
	sb.writeSuperblockChecksum()
	return uint32(offset), nil
}

// rotateMetadata aligns used_bytes to 4, allocates a fresh metadata block
// there, chains it to the current newest block, and updates the
// superblock.
func (sb *SingleBuffer) rotateMetadata() (uint32, error) {
	used := loadU64(sb.buf, offSBUsedBytes)
	aligned := (used + 3) &^ 3
	if aligned != used {
		storeU64(sb.buf, offSBUsedBytes, aligned)
	}

	total := loadU64(sb.buf, offSBTotalBytes)
	newOffset := addU64(sb.buf, offSBUsedBytes, uint64(MetadataBlockSize)) - uint64(MetadataBlockSize)
	if newOffset+uint64(MetadataBlockSize) > total {
		return 0, zerrors.New(zerrors.ENOSPC, "rotateMetadata", "")
	}

	for i := uint64(0); i < uint64(MetadataBlockSize); i++ {
		sb.buf[newOffset+i] = 0
	}
	binary.LittleEndian.PutUint32(sb.buf[uint32(newOffset)+offMBPrevOff:], sb.metadataOffset())
	sb.touchBlock(uint32(newOffset))

	binary.LittleEndian.PutUint32(sb.buf[offSBMetaOffset:], uint32(newOffset))
	sb.writeSuperblockChecksum()
	telemetry.Get().CountSingleBufferRotation(context.Background())
	return uint32(newOffset), nil
}

func (sb *SingleBuffer) firstFreeSlot(blockOffset uint32) (int, bool) {
	for i := 0; i < MetadataItemCount; i++ {
		if readItem(sb.buf, blockOffset, i).Offset == 0 {
			return i, true
		}
	}
	return 0, false
}
