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

// Rationalize updates c's fields based on the values of other fields.
func Rationalize(c *Config) {
	// TRACE severity with no rotation size set falls back to the default
	// maximum log file size.
	if c.Logging.Severity == TraceSeverity && c.Logging.MaxFileSizeMB == 0 {
		c.Logging.MaxFileSizeMB = DefaultMaxFileSizeMB
	}

	if c.LockedFS.SlowWaitWarning <= 0 {
		c.LockedFS.SlowWaitWarning = DefaultSlowWaitWarning
	}
}
