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

// Package zerrors defines the POSIX-style error codes ZenFS surfaces at its
// boundary, along with the tagged error type every component returns them
// through.
package zerrors

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// The error codes observable at the ZenFS boundary.
const (
	EACCES          = unix.EACCES
	EAGAIN          = unix.EAGAIN
	EBADE           = unix.EBADE
	EBUSY           = unix.EBUSY
	EDEADLK         = unix.EDEADLK
	EEXIST          = unix.EEXIST
	EINVAL          = unix.EINVAL
	EIO             = unix.EIO
	EISDIR          = unix.EISDIR
	ENODATA         = unix.ENODATA
	ENOENT          = unix.ENOENT
	ENOSPC          = unix.ENOSPC
	ENOTDIR         = unix.ENOTDIR
	ENOTEMPTY       = unix.ENOTEMPTY
	ENOTSUP         = unix.ENOTSUP
	EOVERFLOW       = unix.EOVERFLOW
	EPERM           = unix.EPERM
	EPROTONOSUPPORT = unix.EPROTONOSUPPORT
	EREMOTEIO       = unix.EREMOTEIO
	EROFS           = unix.EROFS
	ETIMEDOUT       = unix.ETIMEDOUT
)

// Error is a tagged error carrying a stable POSIX code plus diagnostic
// context. Path is the path as the reporting FileSystem saw it; it is not
// rewritten to a mount-absolute form when the error crosses a mount.
type Error struct {
	Code    unix.Errno
	Op      string
	Path    string
	Syscall string
	Err     error
}

// New builds an Error for the given code and operation.
func New(code unix.Errno, op string, path string) *Error {
	return &Error{Code: code, Op: op, Path: path}
}

// Wrap builds an Error that carries an underlying cause.
func Wrap(code unix.Errno, op string, path string, err error) *Error {
	return &Error{Code: code, Op: op, Path: path, Err: err}
}

func (e *Error) Error() string {
	msg := e.Code.Error()
	if e.Op != "" {
		msg = fmt.Sprintf("%s: %s", e.Op, msg)
	}
	if e.Path != "" {
		msg = fmt.Sprintf("%s, path %q", msg, e.Path)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports code equality, so callers can write errors.Is(err, zerrors.ENOENT)
// by comparing against a bare *Error{Code: ...}, or against another *Error.
func (e *Error) Is(target error) bool {
	switch t := target.(type) {
	case *Error:
		return e.Code == t.Code
	case unix.Errno:
		return e.Code == t
	default:
		return false
	}
}

// Code extracts the POSIX code carried by err, if any.
func Code(err error) (unix.Errno, bool) {
	var ze *Error
	if err == nil {
		return 0, false
	}
	if e, ok := err.(*Error); ok {
		ze = e
	} else {
		return 0, false
	}
	return ze.Code, true
}

// Is reports whether err is a ZenFS Error carrying the given code.
func Is(err error, code unix.Errno) bool {
	c, ok := Code(err)
	return ok && c == code
}

// RemoteError wraps a failure observed across a PortFS RPC boundary. It
// carries the remote stack trace string for diagnostics, separate from the
// local *Error it may wrap.
type RemoteError struct {
	Code    unix.Errno
	Message string
	Stack   string
	Cause   error
}

func (e *RemoteError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("remote: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("remote: %s", e.Message)
}

func (e *RemoteError) Unwrap() error {
	return e.Cause
}

func (e *RemoteError) Is(target error) bool {
	switch t := target.(type) {
	case *Error:
		return e.Code == t.Code
	case unix.Errno:
		return e.Code == t
	default:
		return false
	}
}
