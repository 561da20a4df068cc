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

// Package clockutil re-exports jacobsa/timeutil's Clock so every package
// that needs an injectable time source (inode, storefs, singlebuffer)
// names it the same way without importing the third-party path directly,
// and so tests construct fakes through one place.
package clockutil

import "github.com/jacobsa/timeutil"

// Clock is the seam every ZenFS package takes instead of calling time.Now
// directly, so tests can control MTime/CTime progression deterministically.
type Clock = timeutil.Clock

// RealClock returns a Clock backed by the real wall clock.
func RealClock() Clock {
	return timeutil.RealClock()
}

// NewSimulatedClock returns a Clock a test can advance manually, starting
// stopped at the zero time until SetTime is called.
func NewSimulatedClock() *timeutil.SimulatedClock {
	return &timeutil.SimulatedClock{}
}
