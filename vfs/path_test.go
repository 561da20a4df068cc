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

package vfs_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zenfs-go/core/vfs"
)

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"/a/b/../c":  "/a/c",
		"/a/./b":     "/a/b",
		"/../a":      "/a",
		"a/b/":       "a/b/",
		"":           ".",
		"/":          "/",
		"a/../../b":  "../b",
		"/a/b/../..": "/",
	}
	for in, want := range cases {
		assert.Equal(t, want, vfs.Normalize(in), "Normalize(%q)", in)
	}
}

func TestJoin(t *testing.T) {
	assert.Equal(t, "/a/b/c", vfs.Join("/a", "b", "c"))
	assert.Equal(t, ".", vfs.Join())
}

func TestResolve(t *testing.T) {
	assert.Equal(t, "/a/b/c", vfs.Resolve("/a", "b", "c"))
	assert.Equal(t, "/x/y", vfs.Resolve("/a", "/x", "y"))
	assert.Equal(t, "/a", vfs.Resolve("/a"))
}

func TestDirnameBasenameExtname(t *testing.T) {
	assert.Equal(t, "/a/b", vfs.Dirname("/a/b/c.txt"))
	assert.Equal(t, "/", vfs.Dirname("/c.txt"))
	assert.Equal(t, "c.txt", vfs.Basename("/a/b/c.txt"))
	assert.Equal(t, "c", vfs.Basename("/a/b/c.txt", ".txt"))
	assert.Equal(t, ".txt", vfs.Extname("/a/b/c.txt"))
	assert.Equal(t, "", vfs.Extname("/a/b/c"))
}

func TestParseFormatRoundTrip(t *testing.T) {
	p := vfs.Parse("/a/b/c.txt")
	assert.Equal(t, vfs.Parsed{Dir: "/a/b", Base: "c.txt", Ext: ".txt", Name: "c"}, p)
	assert.Equal(t, "/a/b/c.txt", vfs.Format(p))
}

func TestMatchesGlob(t *testing.T) {
	assert.True(t, vfs.MatchesGlob("*.txt", "a.txt"))
	assert.False(t, vfs.MatchesGlob("*.txt", "a/b.txt"))
	assert.True(t, vfs.MatchesGlob("**/b.txt", "a/x/b.txt"))
	assert.True(t, vfs.MatchesGlob("a?c", "abc"))
	assert.False(t, vfs.MatchesGlob("a?c", "ac"))
}
