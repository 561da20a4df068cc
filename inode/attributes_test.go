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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zenfs-go/core/inode"
	"github.com/zenfs-go/core/zerrors"
)

func TestAttributesSetReplacesExisting(t *testing.T) {
	var attrs inode.Attributes
	require.NoError(t, attrs.Set("a", []byte("1")))
	require.NoError(t, attrs.Set("a", []byte("2")))

	require.Len(t, attrs, 1)
	v, ok := attrs.Get("a")
	require.True(t, ok)
	assert.Equal(t, []byte("2"), v)
}

func TestAttributesRemoveCompacts(t *testing.T) {
	var attrs inode.Attributes
	require.NoError(t, attrs.Set("a", []byte("1")))
	require.NoError(t, attrs.Set("b", []byte("2")))
	attrs.Remove("a")

	require.Len(t, attrs, 1)
	_, ok := attrs.Get("a")
	assert.False(t, ok)
	v, ok := attrs.Get("b")
	require.True(t, ok)
	assert.Equal(t, []byte("2"), v)
}

func TestAttributesSetOverflow(t *testing.T) {
	var attrs inode.Attributes
	big := make([]byte, inode.AttributesRegionSize)
	err := attrs.Set("big", big)
	require.Error(t, err)
	assert.True(t, zerrors.Is(err, zerrors.EOVERFLOW))
}

func TestAttributesEncodeDecodeEmpty(t *testing.T) {
	var attrs inode.Attributes
	buf, err := attrs.Encode()
	require.NoError(t, err)
	require.Len(t, buf, inode.AttributesRegionSize)

	decoded, err := inode.DecodeAttributes(buf)
	require.NoError(t, err)
	assert.Empty(t, decoded)
}
