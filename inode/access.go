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

// Access bits for HasAccess's requested parameter, POSIX rwx order.
const (
	AccessRead    uint8 = 0x4
	AccessWrite   uint8 = 0x2
	AccessExecute uint8 = 0x1
)

// Caller identifies the credentials checking access, independent of any
// particular Context type.
type Caller struct {
	UID    uint32
	GID    uint32
	Groups []uint32
}

func (c Caller) inGroup(gid uint32) bool {
	if c.GID == gid {
		return true
	}
	for _, g := range c.Groups {
		if g == gid {
			return true
		}
	}
	return false
}

// HasAccess reports whether caller may access n for the requested bits
// (AccessRead/AccessWrite/AccessExecute, OR'd together). A symlink target
// or a root caller (uid or gid 0) is always allowed; otherwise the
// owner/group/other permission triad on n.Mode is consulted and
// (perm & requested) == requested is required.
func HasAccess(n *Inode, requested uint8, caller Caller) bool {
	if n.IsSymlink() {
		return true
	}
	if caller.UID == 0 || caller.GID == 0 {
		return true
	}

	var perm uint8
	switch {
	case caller.UID == n.UID:
		perm = uint8(n.Mode>>6) & 0x7
	case caller.inGroup(n.GID):
		perm = uint8(n.Mode>>3) & 0x7
	default:
		perm = uint8(n.Mode) & 0x7
	}

	return perm&requested == requested
}
