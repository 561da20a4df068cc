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

package zenfsconfig

import (
	"fmt"
	"slices"
	"strings"
)

// LogSeverity is the datatype for logging.severity.
type LogSeverity string

const (
	TraceSeverity   LogSeverity = "TRACE"
	DebugSeverity   LogSeverity = "DEBUG"
	InfoSeverity    LogSeverity = "INFO"
	WarningSeverity LogSeverity = "WARNING"
	ErrorSeverity   LogSeverity = "ERROR"
	OffSeverity     LogSeverity = "OFF"
)

var severityRank = map[LogSeverity]int{
	TraceSeverity:   0,
	DebugSeverity:   1,
	InfoSeverity:    2,
	WarningSeverity: 3,
	ErrorSeverity:   4,
	OffSeverity:     5,
}

func (s *LogSeverity) UnmarshalText(text []byte) error {
	v := LogSeverity(strings.ToUpper(string(text)))
	if _, ok := severityRank[v]; !ok {
		return fmt.Errorf("invalid log severity %q: must be one of %v", text, severityNames())
	}
	*s = v
	return nil
}

func severityNames() []string {
	names := make([]string, 0, len(severityRank))
	for k := range severityRank {
		names = append(names, string(k))
	}
	slices.Sort(names)
	return names
}

// Rank orders severities for filtering; lower ranks are more verbose.
func (s LogSeverity) Rank() int {
	if r, ok := severityRank[s]; ok {
		return r
	}
	return -1
}
