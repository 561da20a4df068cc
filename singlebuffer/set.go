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
	"github.com/zenfs-go/core/store"
	"github.com/zenfs-go/core/zerrors"
)

// set splices data into id's blob at offset, extending it with zeros as
// needed, and stores the resulting full blob. It returns the blob's new
// total size.
func (sb *SingleBuffer) set(id uint32, data []byte, offset int64) (int64, error) {
	current, err := sb.get(id, store.FullRange)
	if err != nil && !zerrors.Is(err, zerrors.ENODATA) {
		return 0, err
	}
	required := offset + int64(len(data))
	if required < int64(len(current)) {
		required = int64(len(current))
	}
	out := make([]byte, required)
	copy(out, current)
	copy(out[offset:], data)

	if err := sb.placeBlob(id, out); err != nil {
		return 0, err
	}
	return int64(len(out)), nil
}

// placeBlob reuses an existing entry's region in place when the new blob
// fits without colliding with anything else, otherwise frees the old slot
// and appends fresh data at used_bytes, rotating the metadata chain if
// the newest block has no free item slot.
func (sb *SingleBuffer) placeBlob(id uint32, blob []byte) error {
	for _, blockOffset := range sb.chain() {
		release, err := lockBlock(sb.buf, blockOffset)
		if err != nil {
			return err
		}

		idx, it, found := findItemInBlock(sb.buf, blockOffset, id)
		if !found {
			release()
			continue
		}

		switch {
		case it.Size == uint32(len(blob)):
			copy(sb.buf[it.Offset:it.Offset+it.Size], blob)
			sb.touchBlock(blockOffset)
			release()
			return nil

		case uint32(len(blob)) < it.Size || sb.isUnused(it.Offset, uint32(len(blob)), blockOffset, idx):
			copy(sb.buf[it.Offset:it.Offset+uint32(len(blob))], blob)
			writeItem(sb.buf, blockOffset, idx, item{ID: id, Offset: it.Offset, Size: uint32(len(blob))})
			sb.touchBlock(blockOffset)
			release()
			return nil

		default:
			writeItem(sb.buf, blockOffset, idx, item{})
			newOffset, err := sb.appendData(blob)
			if err != nil {
				release()
				return err
			}
			writeItem(sb.buf, blockOffset, idx, item{ID: id, Offset: newOffset, Size: uint32(len(blob))})
			sb.touchBlock(blockOffset)
			release()
			return nil
		}
	}

	return sb.appendNewEntry(id, blob)
}

func findItemInBlock(buf []byte, blockOffset uint32, id uint32) (int, item, bool) {
	for i := 0; i < MetadataItemCount; i++ {
		it := readItem(buf, blockOffset, i)
		if it.Offset != 0 && it.ID == id {
			return i, it, true
		}
	}
	return 0, item{}, false
}

// appendNewEntry places a never-before-seen id's data into the first free
// slot of the newest metadata block, rotating the chain first if that
// block is full.
func (sb *SingleBuffer) appendNewEntry(id uint32, data []byte) error {
	newest := sb.metadataOffset()
	release, err := lockBlock(sb.buf, newest)
	if err != nil {
		return err
	}

	idx, ok := sb.firstFreeSlot(newest)
	if !ok {
		release()
		newest, err = sb.rotateMetadata()
		if err != nil {
			return err
		}
		release, err = lockBlock(sb.buf, newest)
		if err != nil {
			return err
		}
		idx = 0
	}

	offset, err := sb.appendData(data)
	if err != nil {
		release()
		return err
	}
	writeItem(sb.buf, newest, idx, item{ID: id, Offset: offset, Size: uint32(len(data))})
	sb.touchBlock(newest)
	release()
	return nil
}

// remove clears id's entry, wherever it lives in the chain. ENOENT if
// absent.
func (sb *SingleBuffer) remove(id uint32) error {
	for _, blockOffset := range sb.chain() {
		release, err := lockBlock(sb.buf, blockOffset)
		if err != nil {
			return err
		}
		idx, _, found := findItemInBlock(sb.buf, blockOffset, id)
		if !found {
			release()
			continue
		}
		writeItem(sb.buf, blockOffset, idx, item{})
		sb.touchBlock(blockOffset)
		release()
		return nil
	}
	return zerrors.New(zerrors.ENOENT, "singlebuffer.Remove", "")
}
