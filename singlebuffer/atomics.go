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
	"sync/atomic"
	"unsafe"
)

// A SingleBuffer may be backed by memory shared across goroutines or OS
// threads, so used_bytes and each block's lock word are accessed
// exclusively through these helpers rather than plain slice indexing. The
// caller guarantees 4- and 8-byte alignment by placing the superblock at
// the buffer's start.

func atomicU64(buf []byte, offset uint32) *uint64 {
	return (*uint64)(unsafe.Pointer(&buf[offset]))
}

func atomicI32(buf []byte, offset uint32) *int32 {
	return (*int32)(unsafe.Pointer(&buf[offset]))
}

func loadU64(buf []byte, offset uint32) uint64 {
	return atomic.LoadUint64(atomicU64(buf, offset))
}

func storeU64(buf []byte, offset uint32, v uint64) {
	atomic.StoreUint64(atomicU64(buf, offset), v)
}

func addU64(buf []byte, offset uint32, delta uint64) uint64 {
	return atomic.AddUint64(atomicU64(buf, offset), delta)
}

func loadI32(buf []byte, offset uint32) int32 {
	return atomic.LoadInt32(atomicI32(buf, offset))
}

func casI32(buf []byte, offset uint32, old, new int32) bool {
	return atomic.CompareAndSwapInt32(atomicI32(buf, offset), old, new)
}

func storeI32(buf []byte, offset uint32, v int32) {
	atomic.StoreInt32(atomicI32(buf, offset), v)
}
