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

package storefs

// handle is a lazy file handle: StoreFS re-reads the store on every Read,
// Write, or Stat call, so there's nothing to hold open besides the path.
type handle struct {
	path string
}

func (h *handle) Path() string { return h.path }

func (h *handle) Close() error { return nil }
