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

package portfs

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/zenfs-go/core/fsapi"
	"github.com/zenfs-go/core/zerrors"
)

// Server dispatches RPCs received over a Port into a local
// fsapi.FileSystem. Requests arriving before the backing FileSystem is
// attached are buffered and replayed in order once it is.
type Server struct {
	port Port

	mu      sync.Mutex
	fs      fsapi.FileSystem
	ready   bool
	waiting []request
}

// NewServer wires a Server onto port, fronting fs. fs may be nil, in
// which case incoming requests are buffered until Attach is called.
func NewServer(port Port, fs fsapi.FileSystem) *Server {
	s := &Server{port: port, fs: fs, ready: fs != nil}
	go s.listen()
	return s
}

// Attach sets the server's backing FileSystem and replays any requests
// listen buffered while no FileSystem was attached, in arrival order.
func (s *Server) Attach(fs fsapi.FileSystem) {
	s.mu.Lock()
	s.fs = fs
	s.ready = true
	buffered := s.waiting
	s.waiting = nil
	s.mu.Unlock()

	for _, req := range buffered {
		s.handleRequest(context.Background(), req)
	}
}

func (s *Server) listen() {
	for frame := range s.port.Messages() {
		body, err := decodeFrame(frame)
		if err != nil {
			continue
		}
		var req request
		if err := json.Unmarshal(body, &req); err != nil {
			continue
		}

		s.mu.Lock()
		ready := s.ready
		if !ready {
			s.waiting = append(s.waiting, req)
		}
		s.mu.Unlock()

		if ready {
			s.handleRequest(context.Background(), req)
		}
	}
}

func (s *Server) reply(resp response) {
	frame, err := encodeFrame(resp)
	if err != nil {
		return
	}
	_ = s.port.Send(context.Background(), frame)
}

// handleRequest dispatches req into the local FileSystem and sends back
// a value or error response. Panics recovered from fs are captured into
// the response's error field rather than crashing the server.
func (s *Server) handleRequest(ctx context.Context, req request) {
	resp := response{ZenFS: true, ID: req.ID}

	func() {
		defer func() {
			if r := recover(); r != nil {
				resp.Error = &rpcError{Code: uint32(zerrors.EIO), Message: "panic in handler"}
			}
		}()
		value, err := s.dispatch(ctx, req)
		if err != nil {
			code, ok := zerrors.Code(err)
			if !ok {
				code = zerrors.EIO
			}
			resp.Error = &rpcError{Code: uint32(code), Message: err.Error()}
			return
		}
		resp.Value = value
	}()

	s.reply(resp)
}

func (s *Server) fileSystem() fsapi.FileSystem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fs
}

func arg[T any](req request, i int) (T, error) {
	var v T
	if i >= len(req.Args) {
		return v, zerrors.New(zerrors.EINVAL, req.Method, "missing argument")
	}
	if err := json.Unmarshal(req.Args[i], &v); err != nil {
		return v, zerrors.Wrap(zerrors.EINVAL, req.Method, "", err)
	}
	return v, nil
}

func (s *Server) dispatch(ctx context.Context, req request) (json.RawMessage, error) {
	fs := s.fileSystem()
	if fs == nil {
		return nil, zerrors.New(zerrors.EIO, req.Method, "no backing file system attached")
	}

	switch req.Method {
	case "stat":
		path, err := arg[string](req, 0)
		if err != nil {
			return nil, err
		}
		stats, err := fs.Stat(ctx, path)
		if err != nil {
			return nil, err
		}
		return json.Marshal(stats)

	case "openFile":
		path, err := arg[string](req, 0)
		if err != nil {
			return nil, err
		}
		flag, err := arg[int](req, 1)
		if err != nil {
			return nil, err
		}
		creds, err := arg[fsapi.Credentials](req, 2)
		if err != nil {
			return nil, err
		}
		if _, err := fs.OpenFile(ctx, path, fsapi.OpenFlag(flag), creds); err != nil {
			return nil, err
		}
		stats, err := fs.Stat(ctx, path)
		if err != nil {
			return nil, err
		}
		return json.Marshal(stats)

	case "createFile":
		path, err := arg[string](req, 0)
		if err != nil {
			return nil, err
		}
		flag, err := arg[int](req, 1)
		if err != nil {
			return nil, err
		}
		mode, err := arg[uint16](req, 2)
		if err != nil {
			return nil, err
		}
		creds, err := arg[fsapi.Credentials](req, 3)
		if err != nil {
			return nil, err
		}
		if _, err := fs.CreateFile(ctx, path, fsapi.OpenFlag(flag), mode, creds); err != nil {
			return nil, err
		}
		stats, err := fs.Stat(ctx, path)
		if err != nil {
			return nil, err
		}
		return json.Marshal(stats)

	case "unlink":
		path, err := arg[string](req, 0)
		if err != nil {
			return nil, err
		}
		creds, err := arg[fsapi.Credentials](req, 1)
		if err != nil {
			return nil, err
		}
		return nil, fs.Unlink(ctx, path, creds)

	case "rmdir":
		path, err := arg[string](req, 0)
		if err != nil {
			return nil, err
		}
		creds, err := arg[fsapi.Credentials](req, 1)
		if err != nil {
			return nil, err
		}
		return nil, fs.Rmdir(ctx, path, creds)

	case "mkdir":
		path, err := arg[string](req, 0)
		if err != nil {
			return nil, err
		}
		mode, err := arg[uint16](req, 1)
		if err != nil {
			return nil, err
		}
		creds, err := arg[fsapi.Credentials](req, 2)
		if err != nil {
			return nil, err
		}
		if err := fs.Mkdir(ctx, path, mode, creds); err != nil {
			return nil, err
		}
		stats, err := fs.Stat(ctx, path)
		if err != nil {
			return nil, err
		}
		return json.Marshal(stats)

	case "readdir":
		path, err := arg[string](req, 0)
		if err != nil {
			return nil, err
		}
		names, err := fs.Readdir(ctx, path)
		if err != nil {
			return nil, err
		}
		return json.Marshal(names)

	case "link":
		target, err := arg[string](req, 0)
		if err != nil {
			return nil, err
		}
		link, err := arg[string](req, 1)
		if err != nil {
			return nil, err
		}
		creds, err := arg[fsapi.Credentials](req, 2)
		if err != nil {
			return nil, err
		}
		return nil, fs.Link(ctx, target, link, creds)

	case "rename":
		oldPath, err := arg[string](req, 0)
		if err != nil {
			return nil, err
		}
		newPath, err := arg[string](req, 1)
		if err != nil {
			return nil, err
		}
		creds, err := arg[fsapi.Credentials](req, 2)
		if err != nil {
			return nil, err
		}
		return nil, fs.Rename(ctx, oldPath, newPath, creds)

	case "sync":
		path, err := arg[string](req, 0)
		if err != nil {
			return nil, err
		}
		var data byteArg
		if err := json.Unmarshal(req.Args[1], &data); err != nil {
			return nil, zerrors.Wrap(zerrors.EINVAL, req.Method, "", err)
		}
		metadata, err := arg[map[string]any](req, 2)
		if err != nil {
			return nil, err
		}
		return nil, fs.Sync(ctx, path, data, metadata)

	case "read":
		path, err := arg[string](req, 0)
		if err != nil {
			return nil, err
		}
		length, err := arg[int](req, 1)
		if err != nil {
			return nil, err
		}
		offset, err := arg[int64](req, 2)
		if err != nil {
			return nil, err
		}
		buf := make([]byte, length)
		n, err := fs.Read(ctx, path, buf, offset)
		if err != nil {
			return nil, err
		}
		return json.Marshal(byteArg(buf[:n]))

	case "write":
		path, err := arg[string](req, 0)
		if err != nil {
			return nil, err
		}
		var data byteArg
		if err := json.Unmarshal(req.Args[1], &data); err != nil {
			return nil, zerrors.Wrap(zerrors.EINVAL, req.Method, "", err)
		}
		offset, err := arg[int64](req, 2)
		if err != nil {
			return nil, err
		}
		n, err := fs.Write(ctx, path, data, offset)
		if err != nil {
			return nil, err
		}
		return json.Marshal(n)

	case "getAttribute", "setAttribute", "removeAttribute", "listAttributes":
		return s.dispatchAttribute(ctx, req, fs)

	default:
		return nil, zerrors.New(zerrors.ENOTSUP, req.Method, "unknown RPC method")
	}
}

func (s *Server) dispatchAttribute(ctx context.Context, req request, fs fsapi.FileSystem) (json.RawMessage, error) {
	attrs, ok := fs.(fsapi.AttributeStore)
	if !ok {
		return nil, zerrors.New(zerrors.ENOTSUP, req.Method, "backing file system has no attribute store")
	}

	switch req.Method {
	case "getAttribute":
		path, err := arg[string](req, 0)
		if err != nil {
			return nil, err
		}
		name, err := arg[string](req, 1)
		if err != nil {
			return nil, err
		}
		value, err := attrs.GetAttribute(ctx, path, name)
		if err != nil {
			return nil, err
		}
		return json.Marshal(byteArg(value))

	case "setAttribute":
		path, err := arg[string](req, 0)
		if err != nil {
			return nil, err
		}
		name, err := arg[string](req, 1)
		if err != nil {
			return nil, err
		}
		var value byteArg
		if err := json.Unmarshal(req.Args[2], &value); err != nil {
			return nil, zerrors.Wrap(zerrors.EINVAL, req.Method, "", err)
		}
		return nil, attrs.SetAttribute(ctx, path, name, value)

	case "removeAttribute":
		path, err := arg[string](req, 0)
		if err != nil {
			return nil, err
		}
		name, err := arg[string](req, 1)
		if err != nil {
			return nil, err
		}
		return nil, attrs.RemoveAttribute(ctx, path, name)

	default: // listAttributes
		path, err := arg[string](req, 0)
		if err != nil {
			return nil, err
		}
		names, err := attrs.ListAttributes(ctx, path)
		if err != nil {
			return nil, err
		}
		return json.Marshal(names)
	}
}
