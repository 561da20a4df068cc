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

// Package vfs implements the path/mount router and the bound
// Context/credentials model every ZenFS entry point resolves through.
package vfs

import (
	"regexp"
	"strings"
)

const sep = "/"

// Normalize collapses "." and ".." segments, preserves absoluteness, and
// preserves a single trailing separator if the input had one.
func Normalize(path string) string {
	if path == "" {
		return "."
	}

	absolute := strings.HasPrefix(path, sep)
	trailingSlash := len(path) > 1 && strings.HasSuffix(path, sep)

	segments := strings.Split(path, sep)
	out := make([]string, 0, len(segments))
	for _, seg := range segments {
		switch seg {
		case "", ".":
			continue
		case "..":
			if len(out) > 0 && out[len(out)-1] != ".." {
				out = out[:len(out)-1]
			} else if !absolute {
				out = append(out, "..")
			}
		default:
			out = append(out, seg)
		}
	}

	joined := strings.Join(out, sep)
	switch {
	case absolute:
		joined = sep + joined
	case joined == "":
		joined = "."
	}
	if trailingSlash && joined != sep && !strings.HasSuffix(joined, sep) {
		joined += sep
	}
	return joined
}

// Join joins path segments with the separator and normalizes the result.
func Join(parts ...string) string {
	nonEmpty := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	if len(nonEmpty) == 0 {
		return "."
	}
	return Normalize(strings.Join(nonEmpty, sep))
}

// Resolve processes parts right-to-left until an absolute segment is found
// or pwd is reached, then normalizes.
func Resolve(pwd string, parts ...string) string {
	resolved := ""
	absoluteFound := false

	for i := len(parts) - 1; i >= 0 && !absoluteFound; i-- {
		p := parts[i]
		if p == "" {
			continue
		}
		if resolved == "" {
			resolved = p
		} else {
			resolved = p + sep + resolved
		}
		absoluteFound = strings.HasPrefix(p, sep)
	}

	if !absoluteFound {
		if resolved == "" {
			resolved = pwd
		} else {
			resolved = pwd + sep + resolved
		}
	}

	norm := Normalize(resolved)
	if !strings.HasPrefix(norm, sep) {
		norm = sep + norm
	}
	return norm
}

// Dirname returns the directory portion of path, POSIX dirname(3) semantics.
func Dirname(path string) string {
	norm := Normalize(path)
	idx := strings.LastIndex(strings.TrimSuffix(norm, sep), sep)
	switch {
	case norm == sep:
		return sep
	case idx < 0:
		return "."
	case idx == 0:
		return sep
	default:
		return norm[:idx]
	}
}

// Basename returns the final path segment, optionally stripping a trailing
// suffix (mirroring POSIX basename(3)'s optional second argument).
func Basename(path string, suffix ...string) string {
	trimmed := strings.TrimSuffix(path, sep)
	idx := strings.LastIndex(trimmed, sep)
	base := trimmed
	if idx >= 0 {
		base = trimmed[idx+1:]
	}
	if len(suffix) > 0 && suffix[0] != "" && base != suffix[0] {
		base = strings.TrimSuffix(base, suffix[0])
	}
	return base
}

// Extname returns the extension of the final path segment, including the
// leading dot, or "" if none.
func Extname(path string) string {
	base := Basename(path)
	idx := strings.LastIndex(base, ".")
	if idx <= 0 {
		return ""
	}
	return base[idx:]
}

// Parsed is the decomposed form Parse returns and Format accepts.
type Parsed struct {
	Dir  string
	Base string
	Ext  string
	Name string
}

// Parse decomposes path into directory, base, extension, and name (base
// without extension).
func Parse(path string) Parsed {
	dir := Dirname(path)
	base := Basename(path)
	ext := Extname(path)
	name := strings.TrimSuffix(base, ext)
	return Parsed{Dir: dir, Base: base, Ext: ext, Name: name}
}

// Format is the inverse of Parse.
func Format(p Parsed) string {
	base := p.Base
	if base == "" {
		base = p.Name + p.Ext
	}
	if p.Dir == "" {
		return base
	}
	if p.Dir == sep {
		return sep + base
	}
	return p.Dir + sep + base
}

// MatchesGlob reports whether name matches the glob pattern, supporting
// "**" (any number of path segments), "*" (anything but a separator), "?"
// (a single non-separator character), and literal escaping of regex
// metacharacters.
func MatchesGlob(pattern, name string) bool {
	re := globToRegexp(pattern)
	return re.MatchString(name)
}

func globToRegexp(pattern string) *regexp.Regexp {
	var b strings.Builder
	b.WriteString("^")
	runes := []rune(pattern)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		switch {
		case c == '*' && i+1 < len(runes) && runes[i+1] == '*':
			b.WriteString(".*")
			i++
		case c == '*':
			b.WriteString("[^/]*")
		case c == '?':
			b.WriteString("[^/]")
		case strings.ContainsRune(`\.+^$()[]{}|`, c):
			b.WriteString(regexp.QuoteMeta(string(c)))
		default:
			b.WriteString(string(c))
		}
	}
	b.WriteString("$")
	return regexp.MustCompile(b.String())
}
