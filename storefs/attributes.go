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

import (
	"context"

	"github.com/zenfs-go/core/store"
	"github.com/zenfs-go/core/zerrors"
)

// GetAttribute returns the value of an extended attribute on path's inode.
func (fs *StoreFS) GetAttribute(ctx context.Context, path, name string) ([]byte, error) {
	if err := fs.checkRoot(ctx); err != nil {
		return nil, err
	}
	var value []byte
	err := store.WithTransaction(ctx, fs.store, func(ctx context.Context, txn store.Transaction) error {
		_, n, err := findInode(ctx, txn, path)
		if err != nil {
			return err
		}
		v, ok := n.Attributes.Get(name)
		if !ok {
			return zerrors.New(zerrors.ENODATA, "GetAttribute", path)
		}
		value = v
		return nil
	})
	return value, err
}

// SetAttribute stores an extended attribute on path's inode.
func (fs *StoreFS) SetAttribute(ctx context.Context, path, name string, value []byte) error {
	if err := fs.checkRoot(ctx); err != nil {
		return err
	}
	return store.WithTransaction(ctx, fs.store, func(ctx context.Context, txn store.Transaction) error {
		_, n, err := findInode(ctx, txn, path)
		if err != nil {
			return err
		}
		if err := n.Attributes.Set(name, value); err != nil {
			return err
		}
		n.Touch(fs.clock)
		return putInode(ctx, txn, n)
	})
}

// RemoveAttribute removes an extended attribute from path's inode, a no-op
// if absent.
func (fs *StoreFS) RemoveAttribute(ctx context.Context, path, name string) error {
	if err := fs.checkRoot(ctx); err != nil {
		return err
	}
	return store.WithTransaction(ctx, fs.store, func(ctx context.Context, txn store.Transaction) error {
		_, n, err := findInode(ctx, txn, path)
		if err != nil {
			return err
		}
		n.Attributes.Remove(name)
		n.Touch(fs.clock)
		return putInode(ctx, txn, n)
	})
}

// ListAttributes returns the names of path's extended attributes.
func (fs *StoreFS) ListAttributes(ctx context.Context, path string) ([]string, error) {
	if err := fs.checkRoot(ctx); err != nil {
		return nil, err
	}
	var names []string
	err := store.WithTransaction(ctx, fs.store, func(ctx context.Context, txn store.Transaction) error {
		_, n, err := findInode(ctx, txn, path)
		if err != nil {
			return err
		}
		names = n.Attributes.Names()
		return nil
	})
	return names, err
}
