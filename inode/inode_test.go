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

package inode_test

import (
	"testing"
	"time"

	"github.com/jacobsa/timeutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zenfs-go/core/inode"
)

func newClock() *timeutil.SimulatedClock {
	clock := &timeutil.SimulatedClock{}
	clock.SetTime(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	return clock
}

func TestNewStampsAllTimestamps(t *testing.T) {
	clock := newClock()
	n := inode.New(7, 8, inode.S_IFREG|0644, clock)

	assert.Equal(t, uint32(7), n.Ino)
	assert.Equal(t, uint32(8), n.Data)
	assert.Equal(t, n.ATimeMs, n.MTimeMs)
	assert.Equal(t, n.ATimeMs, n.CTimeMs)
	assert.Equal(t, n.ATimeMs, n.BirthMs)
}

func TestUpdateReturnsFalseWhenNothingChanges(t *testing.T) {
	clock := newClock()
	n := inode.New(1, 2, inode.S_IFREG|0644, clock)
	before := n.CTimeMs

	same := n.Mode
	changed := n.Update(inode.Patch{Mode: &same}, clock)

	assert.False(t, changed)
	assert.Equal(t, before, n.CTimeMs)
}

func TestUpdateBumpsCTimeOnlyWhenSomethingChanges(t *testing.T) {
	clock := newClock()
	n := inode.New(1, 2, inode.S_IFREG|0644, clock)
	before := n.CTimeMs

	clock.AdvanceTime(time.Minute)
	newMode := inode.S_IFREG | 0600
	changed := n.Update(inode.Patch{Mode: &newMode}, clock)

	require.True(t, changed)
	assert.GreaterOrEqual(t, n.CTimeMs, before)
	assert.Equal(t, newMode, n.Mode)
}

func TestUpdateSkipsATimeWhenNoAtimeSet(t *testing.T) {
	clock := newClock()
	n := inode.New(1, 2, inode.S_IFREG|0644, clock)
	n.Flags = inode.FlagNoAtime
	originalATime := n.ATimeMs

	clock.AdvanceTime(time.Hour)
	newATime := originalATime + 1000
	n.Update(inode.Patch{ATimeMs: &newATime}, clock)

	assert.Equal(t, originalATime, n.ATimeMs)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	clock := newClock()
	n := inode.New(42, 43, inode.S_IFDIR|0755, clock)
	n.NLink = 2
	n.UID = 1000
	n.GID = 1000
	require.NoError(t, n.Attributes.Set("user.comment", []byte("hello")))

	buf, err := n.Encode()
	require.NoError(t, err)
	require.Len(t, buf, inode.Size)

	decoded, err := inode.Decode(buf)
	require.NoError(t, err)

	assert.Equal(t, n.Ino, decoded.Ino)
	assert.Equal(t, n.Data, decoded.Data)
	assert.Equal(t, n.Mode, decoded.Mode)
	assert.Equal(t, n.NLink, decoded.NLink)
	assert.Equal(t, n.UID, decoded.UID)
	assert.Equal(t, n.GID, decoded.GID)
	value, ok := decoded.Attributes.Get("user.comment")
	require.True(t, ok)
	assert.Equal(t, []byte("hello"), value)
}

func TestDecodeRejectsShortBuffer(t *testing.T) {
	_, err := inode.Decode(make([]byte, 10))
	assert.Error(t, err)
}

func TestHasAccessRootBypassesChecks(t *testing.T) {
	n := &inode.Inode{Mode: inode.S_IFREG, UID: 500, GID: 500}
	assert.True(t, inode.HasAccess(n, inode.AccessWrite, inode.Caller{UID: 0, GID: 1000}))
}

func TestHasAccessOwnerGroupOther(t *testing.T) {
	n := &inode.Inode{Mode: inode.S_IFREG | 0640, UID: 10, GID: 20}

	assert.True(t, inode.HasAccess(n, inode.AccessRead|inode.AccessWrite, inode.Caller{UID: 10, GID: 999}))
	assert.True(t, inode.HasAccess(n, inode.AccessRead, inode.Caller{UID: 11, GID: 20}))
	assert.False(t, inode.HasAccess(n, inode.AccessWrite, inode.Caller{UID: 11, GID: 20}))
	assert.False(t, inode.HasAccess(n, inode.AccessRead, inode.Caller{UID: 11, GID: 21}))
}

func TestHasAccessSymlinkAlwaysAllowed(t *testing.T) {
	n := &inode.Inode{Mode: inode.S_IFLNK, UID: 10, GID: 20}
	assert.True(t, inode.HasAccess(n, inode.AccessWrite, inode.Caller{UID: 999, GID: 999}))
}
