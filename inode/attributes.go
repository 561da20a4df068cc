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

package inode

import (
	"encoding/binary"

	"github.com/zenfs-go/core/zerrors"
)

// Attribute is one extended-attribute entry.
type Attribute struct {
	Name  string
	Value []byte
}

// Attributes is the packed extended-attribute region of an inode: a count
// followed by {keySize, valueSize, key, value} entries. Lookups are a
// linear scan; the region is small (bounded by AttributesRegionSize) so
// simplicity wins over an index.
type Attributes []Attribute

// Get returns the value for name, if present.
func (a Attributes) Get(name string) ([]byte, bool) {
	for _, attr := range a {
		if attr.Name == name {
			return attr.Value, true
		}
	}
	return nil, false
}

// Names returns the attribute names, in storage order.
func (a Attributes) Names() []string {
	names := make([]string, len(a))
	for i, attr := range a {
		names[i] = attr.Name
	}
	return names
}

// Set removes any existing entry for name then appends the new value,
// failing EOVERFLOW if the resulting region would not fit.
func (a *Attributes) Set(name string, value []byte) error {
	a.Remove(name)
	candidate := append(*a, Attribute{Name: name, Value: value})
	if encodedSize(candidate) > AttributesRegionSize {
		return zerrors.New(zerrors.EOVERFLOW, "Attributes.Set", name)
	}
	*a = candidate
	return nil
}

// Remove deletes the entry for name, compacting the slice. A no-op if name
// is absent.
func (a *Attributes) Remove(name string) {
	out := (*a)[:0]
	for _, attr := range *a {
		if attr.Name != name {
			out = append(out, attr)
		}
	}
	*a = out
}

func encodedSize(attrs Attributes) int {
	n := 2 // count
	for _, attr := range attrs {
		n += 4 + len(attr.Name) + len(attr.Value)
	}
	return n
}

// Encode packs the attributes into a AttributesRegionSize-byte region,
// zero-padded.
func (a Attributes) Encode() ([]byte, error) {
	size := encodedSize(a)
	if size > AttributesRegionSize {
		return nil, zerrors.New(zerrors.EOVERFLOW, "Attributes.Encode", "")
	}
	buf := make([]byte, AttributesRegionSize)
	binary.LittleEndian.PutUint16(buf, uint16(len(a)))
	off := 2
	for _, attr := range a {
		binary.LittleEndian.PutUint16(buf[off:], uint16(len(attr.Name)))
		binary.LittleEndian.PutUint16(buf[off+2:], uint16(len(attr.Value)))
		off += 4
		off += copy(buf[off:], attr.Name)
		off += copy(buf[off:], attr.Value)
	}
	return buf, nil
}

// DecodeAttributes parses a packed attributes region.
func DecodeAttributes(buf []byte) (Attributes, error) {
	if len(buf) < 2 {
		return nil, zerrors.New(zerrors.EIO, "DecodeAttributes", "")
	}
	count := binary.LittleEndian.Uint16(buf)
	attrs := make(Attributes, 0, count)
	off := 2
	for i := uint16(0); i < count; i++ {
		if off+4 > len(buf) {
			return nil, zerrors.New(zerrors.EIO, "DecodeAttributes", "")
		}
		keySize := int(binary.LittleEndian.Uint16(buf[off:]))
		valSize := int(binary.LittleEndian.Uint16(buf[off+2:]))
		off += 4
		if off+keySize+valSize > len(buf) {
			return nil, zerrors.New(zerrors.EIO, "DecodeAttributes", "")
		}
		name := string(buf[off : off+keySize])
		off += keySize
		value := make([]byte, valSize)
		copy(value, buf[off:off+valSize])
		off += valSize
		attrs = append(attrs, Attribute{Name: name, Value: value})
	}
	return attrs, nil
}
