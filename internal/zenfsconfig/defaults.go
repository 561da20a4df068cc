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

import "time"

const (
	// DefaultSingleBufferSizeBytes is used when a caller doesn't specify a
	// size for a freshly formatted SingleBuffer store.
	DefaultSingleBufferSizeBytes = 64 << 20 // 64 MiB

	DefaultLockRetries = 5

	DefaultLockWaitTimeout = 50 * time.Millisecond

	// DefaultRequestTimeout matches portfs.DefaultTimeout.
	DefaultRequestTimeout = 1000 * time.Millisecond

	DefaultSlowWaitWarning = 200 * time.Millisecond

	DefaultMaxFileSizeMB = 100

	DefaultBackupFileCount = 5

	DefaultMaxAgeDays = 28
)
