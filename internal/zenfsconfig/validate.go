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

import "fmt"

const (
	SingleBufferSizeTooSmallError = "single-buffer.size-bytes must be large enough for a superblock and one metadata block"
	LockRetriesInvalidError       = "single-buffer.lock-retries must be at least 1"
	RequestTimeoutInvalidError    = "portfs.request-timeout must be positive"
)

// minSingleBufferSize mirrors singlebuffer's SuperblockSize + MetadataBlockSize
// without importing that package, to keep zenfsconfig dependency-free of the
// components it configures.
const minSingleBufferSize = 256 + 3080

func isValidLogRotateConfig(c *LoggingConfig) error {
	if c.Filename == "" {
		return nil
	}
	if c.MaxFileSizeMB <= 0 {
		return fmt.Errorf("logging.max-file-size-mb should be at least 1")
	}
	if c.BackupFileCount < 0 {
		return fmt.Errorf("logging.backup-file-count should be 0 (retain all) or positive")
	}
	return nil
}

// Validate returns a non-nil error if c is invalid.
func Validate(c *Config) error {
	if c.SingleBuffer.SizeBytes < minSingleBufferSize {
		return fmt.Errorf(SingleBufferSizeTooSmallError)
	}
	if c.SingleBuffer.LockRetries < 1 {
		return fmt.Errorf(LockRetriesInvalidError)
	}
	if c.PortFS.RequestTimeout <= 0 {
		return fmt.Errorf(RequestTimeoutInvalidError)
	}
	if err := isValidLogRotateConfig(&c.Logging); err != nil {
		return fmt.Errorf("error parsing logging config: %w", err)
	}
	return nil
}
