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

package store

import "context"

// WithTransaction opens a rollback-capable transaction on s, runs fn, and
// guarantees the transaction is committed on success or aborted on error or
// panic.
func WithTransaction(ctx context.Context, s Store, fn func(ctx context.Context, txn Transaction) error) (err error) {
	raw, err := s.Transaction(ctx)
	if err != nil {
		return err
	}
	txn := Wrap(raw)

	committed := false
	defer func() {
		if r := recover(); r != nil {
			_ = txn.Abort(ctx)
			panic(r)
		}
		if !committed {
			_ = txn.Abort(ctx)
		}
	}()

	if err = fn(ctx, txn); err != nil {
		return err
	}
	if err = txn.Commit(ctx); err != nil {
		return err
	}
	committed = true
	return nil
}
