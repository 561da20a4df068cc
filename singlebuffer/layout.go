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

// Package singlebuffer implements the Store interface directly against one
// contiguous []byte: a superblock, a singly-linked chain of rotating
// metadata blocks, and a freely allocated data region.
package singlebuffer

import (
	"encoding/binary"
	"hash/crc32"
)

// Magic is 'z.sb' little-endian.
const Magic uint32 = 0x62732e7a

// InodeFormat is the inode-layout version this package expects to find
// recorded in the superblock.
const InodeFormat uint16 = 5

// Superblock layout: 256 bytes at offset 0.
const (
	SuperblockSize = 256

	offSBChecksum    = 0
	offSBMagic       = 4
	offSBVersion     = 8
	offSBInodeFormat = 10
	offSBFlags       = 12
	offSBUsedBytes   = 16
	offSBTotalBytes  = 24
	offSBUUID        = 32
	offSBMetaBlkSize = 48
	offSBMetaOffset  = 52
	offSBLabel       = 56
	labelSize        = 64
)

// Metadata block layout: a 16-byte header, 255 12-byte items, and a
// trailing 4-byte atomic lock word.
const (
	MetadataItemCount = 255
	itemSize          = 12 // id u32, offset u32, size u32

	offMBChecksum = 0
	offMBTime     = 4
	offMBPrevOff  = 12
	offMBItems    = 16
	offMBLocked   = offMBItems + MetadataItemCount*itemSize

	MetadataBlockSize = offMBLocked + 4
)

var crc32cTable = crc32.MakeTable(crc32.Castagnoli)

// checksum computes CRC32C over region, excluding its leading 4-byte
// checksum field.
func checksum(region []byte) uint32 {
	return crc32.Checksum(region[4:], crc32cTable)
}

// item is one {id, offset, size} metadata-block entry. An unused entry has
// offset == 0.
type item struct {
	ID     uint32
	Offset uint32
	Size   uint32
}

func readItem(buf []byte, blockOffset uint32, idx int) item {
	base := blockOffset + offMBItems + uint32(idx*itemSize)
	le := binary.LittleEndian
	return item{
		ID:     le.Uint32(buf[base:]),
		Offset: le.Uint32(buf[base+4:]),
		Size:   le.Uint32(buf[base+8:]),
	}
}

func writeItem(buf []byte, blockOffset uint32, idx int, it item) {
	base := blockOffset + offMBItems + uint32(idx*itemSize)
	le := binary.LittleEndian
	le.PutUint32(buf[base:], it.ID)
	le.PutUint32(buf[base+4:], it.Offset)
	le.PutUint32(buf[base+8:], it.Size)
}
