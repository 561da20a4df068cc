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

package singlebuffer

import (
	"context"
	"time"

	"github.com/zenfs-go/core/internal/telemetry"
	"github.com/zenfs-go/core/internal/zenfsconfig"
	"github.com/zenfs-go/core/zerrors"
)

const (
	unlockedState = 0
	lockedState   = 1

	lockRetryDelay = time.Millisecond
)

var (
	lockRetries = zenfsconfig.DefaultLockRetries
	waitTimeout = zenfsconfig.DefaultLockWaitTimeout
)

// waitUnlocked busy-waits for blockOffset's lock word to read unlocked,
// retrying up to lockRetries times before failing EBUSY, and also bounding
// total wait by waitTimeout.
func waitUnlocked(buf []byte, blockOffset uint32) error {
	deadline := time.Now().Add(waitTimeout)
	for attempt := 0; attempt < lockRetries; attempt++ {
		if loadI32(buf, blockOffset+offMBLocked) == unlockedState {
			if attempt > 0 {
				telemetry.Get().CountSingleBufferWait(context.Background())
			}
			return nil
		}
		if time.Now().After(deadline) {
			return zerrors.New(zerrors.EBUSY, "waitUnlocked", "")
		}
		time.Sleep(lockRetryDelay)
	}
	return zerrors.New(zerrors.EBUSY, "waitUnlocked", "")
}

// lockBlock acquires blockOffset's lock word and returns a release func
// that MUST be called exactly once, on every exit path, to guarantee
// release even on error.
func lockBlock(buf []byte, blockOffset uint32) (func(), error) {
	deadline := time.Now().Add(waitTimeout)
	for attempt := 0; attempt < lockRetries; attempt++ {
		if casI32(buf, blockOffset+offMBLocked, unlockedState, lockedState) {
			if attempt > 0 {
				telemetry.Get().CountSingleBufferWait(context.Background())
			}
			return func() { storeI32(buf, blockOffset+offMBLocked, unlockedState) }, nil
		}
		if time.Now().After(deadline) {
			return nil, zerrors.New(zerrors.EBUSY, "lockBlock", "")
		}
		time.Sleep(lockRetryDelay)
	}
	return nil, zerrors.New(zerrors.EBUSY, "lockBlock", "")
}
