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

package overlay

import (
	"fmt"
	"strings"
	"sync"

	"github.com/zenfs-go/core/zerrors"
)

// journalMagic is the mandatory first line of a serialized Journal.
const journalMagic = "#journal@v0"

// OpDelete is the only operation a Journal entry currently carries.
const OpDelete = "delete"

const opColumnWidth = 10

// Entry is one journal line.
type Entry struct {
	Op   string
	Path string
}

// Journal is an ordered, append-mostly log of deletions recorded against an
// overlay's lower layer. A path is "deleted" iff the most recent matching
// entry is a delete.
type Journal struct {
	mu      sync.Mutex
	entries []Entry
}

// NewJournal returns an empty journal.
func NewJournal() *Journal {
	return &Journal{}
}

// Record appends an entry.
func (j *Journal) Record(op, path string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, Entry{Op: op, Path: path})
}

// IsDeleted reports whether path's most recent matching entry is a delete.
func (j *Journal) IsDeleted(path string) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	for i := len(j.entries) - 1; i >= 0; i-- {
		if j.entries[i].Path == path {
			return j.entries[i].Op == OpDelete
		}
	}
	return false
}

// Entries returns a snapshot of the recorded entries, in order.
func (j *Journal) Entries() []Entry {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]Entry, len(j.entries))
	copy(out, j.entries)
	return out
}

// Serialize renders the journal as its text form: a "#journal@v0" header
// line followed by one "<op><padding><path>" line per entry.
func (j *Journal) Serialize() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	var b strings.Builder
	b.WriteString(journalMagic)
	b.WriteString("\n")
	for _, e := range j.entries {
		fmt.Fprintf(&b, "%-*s%s\n", opColumnWidth, e.Op, e.Path)
	}
	return b.String()
}

// ParseJournal parses text previously produced by Serialize.
func ParseJournal(text string) (*Journal, error) {
	lines := strings.Split(text, "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != journalMagic {
		return nil, zerrors.New(zerrors.EIO, "ParseJournal", "")
	}

	j := NewJournal()
	for _, line := range lines[1:] {
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if len(line) <= opColumnWidth {
			return nil, zerrors.New(zerrors.EIO, "ParseJournal", line)
		}
		op := strings.TrimSpace(line[:opColumnWidth])
		path := line[opColumnWidth:]
		j.entries = append(j.entries, Entry{Op: op, Path: path})
	}
	return j, nil
}

// Restore atomically replaces j's entries with the result of parsing text,
// rather than mixing an in-memory log replace with a separate on-disk
// update.
func (j *Journal) Restore(text string) error {
	parsed, err := ParseJournal(text)
	if err != nil {
		return err
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = parsed.entries
	return nil
}
