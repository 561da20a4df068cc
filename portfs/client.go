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
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/zenfs-go/core/fsapi"
	"github.com/zenfs-go/core/internal/telemetry"
	"github.com/zenfs-go/core/internal/zenfsconfig"
	"github.com/zenfs-go/core/internal/zenfslog"
	"github.com/zenfs-go/core/zerrors"
)

// DefaultTimeout is the per-request RPC timeout used when PortFS isn't
// given an explicit one.
const DefaultTimeout = zenfsconfig.DefaultRequestTimeout

type pendingCall struct {
	respCh chan response
	timer  *time.Timer
}

// PortFS proxies a fsapi.FileSystem across a Port: every call is an RPC
// to whatever Server is listening on the other end. It never executes
// anything locally; synchronous calls are not supported.
type PortFS struct {
	port    Port
	timeout time.Duration

	mu      sync.Mutex
	pending map[string]*pendingCall
}

var _ fsapi.FileSystem = (*PortFS)(nil)
var _ fsapi.AttributeStore = (*PortFS)(nil)

// New wires a PortFS client onto port, using timeout for every RPC (0
// means DefaultTimeout).
func New(port Port, timeout time.Duration) *PortFS {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &PortFS{port: port, timeout: timeout, pending: map[string]*pendingCall{}}
	go c.listen()
	return c
}

func (c *PortFS) listen() {
	for frame := range c.port.Messages() {
		body, err := decodeFrame(frame)
		if err != nil {
			continue
		}
		var resp response
		if err := json.Unmarshal(body, &resp); err != nil {
			continue
		}
		c.deliver(resp)
	}
	c.failAllPending(zerrors.New(zerrors.EIO, "portfs", "port closed while request outstanding"))
}

// deliver hands resp to its executor. Exactly one of deliver (via a real
// response) and the request's timeout fires per id: both paths
// delete-then-check the same map entry under c.mu, so whichever runs
// first wins and the other finds nothing to do.
func (c *PortFS) deliver(resp response) {
	c.mu.Lock()
	call, ok := c.pending[resp.ID]
	if ok {
		delete(c.pending, resp.ID)
	}
	c.mu.Unlock()
	if !ok {
		// No executor for this id: an EIO "invalid RPC id" condition.
		// There's no caller left to report it to, so it's logged and
		// dropped.
		zenfslog.Default().Warnf("portfs: response for unknown RPC id %q (already timed out or duplicate)", resp.ID)
		return
	}
	call.timer.Stop()
	call.respCh <- resp
}

func (c *PortFS) failAllPending(cause error) {
	c.mu.Lock()
	pending := c.pending
	c.pending = map[string]*pendingCall{}
	c.mu.Unlock()

	code, _ := zerrors.Code(cause)
	for _, call := range pending {
		call.timer.Stop()
		call.respCh <- response{Error: &rpcError{Code: uint32(code), Message: cause.Error()}}
	}
}

func randomID() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// rpc sends method(args...) to the peer and blocks for its response, the
// request's ctx cancellation, or the configured timeout, whichever comes
// first.
func (c *PortFS) rpc(ctx context.Context, method string, args ...any) (json.RawMessage, error) {
	id, err := randomID()
	if err != nil {
		return nil, zerrors.Wrap(zerrors.EIO, method, "", err)
	}

	rawArgs := make([]json.RawMessage, len(args))
	for i, a := range args {
		if b, ok := a.([]byte); ok {
			a = byteArg(b)
		}
		encoded, err := json.Marshal(a)
		if err != nil {
			return nil, zerrors.Wrap(zerrors.EIO, method, "", err)
		}
		rawArgs[i] = encoded
	}

	frame, err := encodeFrame(request{ZenFS: true, ID: id, Method: method, Args: rawArgs})
	if err != nil {
		return nil, zerrors.Wrap(zerrors.EIO, method, "", err)
	}

	respCh := make(chan response, 1)
	call := &pendingCall{respCh: respCh}
	c.mu.Lock()
	c.pending[id] = call
	c.mu.Unlock()

	call.timer = time.AfterFunc(c.timeout, func() {
		c.mu.Lock()
		_, ok := c.pending[id]
		if ok {
			delete(c.pending, id)
		}
		c.mu.Unlock()
		if ok {
			telemetry.Get().CountRPCTimeout(context.Background())
			respCh <- response{ID: id, Error: &rpcError{Code: uint32(zerrors.ETIMEDOUT), Message: "RPC timed out"}}
		}
	})

	start := time.Now()
	if err := c.port.Send(ctx, frame); err != nil {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		call.timer.Stop()
		return nil, zerrors.Wrap(zerrors.EIO, method, "", err)
	}
	telemetry.Get().CountRPCRequest(ctx)

	select {
	case resp := <-respCh:
		telemetry.Get().RecordRPCLatency(ctx, float64(time.Since(start).Microseconds())/1000)
		if resp.Error != nil {
			return nil, zerrors.New(unix.Errno(resp.Error.Code), method, "")
		}
		return resp.Value, nil
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		call.timer.Stop()
		if ctx.Err() == context.DeadlineExceeded {
			return nil, zerrors.Wrap(zerrors.ETIMEDOUT, method, "", ctx.Err())
		}
		return nil, zerrors.Wrap(zerrors.EIO, method, "", ctx.Err())
	}
}

func (c *PortFS) Stat(ctx context.Context, path string) (fsapi.Stats, error) {
	raw, err := c.rpc(ctx, "stat", path)
	if err != nil {
		return fsapi.Stats{}, err
	}
	var stats fsapi.Stats
	if err := json.Unmarshal(raw, &stats); err != nil {
		return fsapi.Stats{}, zerrors.Wrap(zerrors.EIO, "Stat", path, err)
	}
	return stats, nil
}

func (c *PortFS) OpenFile(ctx context.Context, path string, flag fsapi.OpenFlag, creds fsapi.Credentials) (fsapi.Handle, error) {
	if _, err := c.rpc(ctx, "openFile", path, int(flag), creds); err != nil {
		return nil, err
	}
	return &handle{path: path}, nil
}

func (c *PortFS) CreateFile(ctx context.Context, path string, flag fsapi.OpenFlag, mode uint16, creds fsapi.Credentials) (fsapi.Handle, error) {
	if _, err := c.rpc(ctx, "createFile", path, int(flag), mode, creds); err != nil {
		return nil, err
	}
	return &handle{path: path}, nil
}

func (c *PortFS) Unlink(ctx context.Context, path string, creds fsapi.Credentials) error {
	_, err := c.rpc(ctx, "unlink", path, creds)
	return err
}

func (c *PortFS) Rmdir(ctx context.Context, path string, creds fsapi.Credentials) error {
	_, err := c.rpc(ctx, "rmdir", path, creds)
	return err
}

func (c *PortFS) Mkdir(ctx context.Context, path string, mode uint16, creds fsapi.Credentials) error {
	_, err := c.rpc(ctx, "mkdir", path, mode, creds)
	return err
}

func (c *PortFS) Readdir(ctx context.Context, path string) ([]string, error) {
	raw, err := c.rpc(ctx, "readdir", path)
	if err != nil {
		return nil, err
	}
	var names []string
	if err := json.Unmarshal(raw, &names); err != nil {
		return nil, zerrors.Wrap(zerrors.EIO, "Readdir", path, err)
	}
	return names, nil
}

func (c *PortFS) Link(ctx context.Context, target, link string, creds fsapi.Credentials) error {
	_, err := c.rpc(ctx, "link", target, link, creds)
	return err
}

func (c *PortFS) Rename(ctx context.Context, oldPath, newPath string, creds fsapi.Credentials) error {
	_, err := c.rpc(ctx, "rename", oldPath, newPath, creds)
	return err
}

func (c *PortFS) Sync(ctx context.Context, path string, data []byte, metadata map[string]any) error {
	_, err := c.rpc(ctx, "sync", path, data, metadata)
	return err
}

func (c *PortFS) Read(ctx context.Context, path string, buf []byte, offset int64) (int, error) {
	raw, err := c.rpc(ctx, "read", path, len(buf), offset)
	if err != nil {
		return 0, err
	}
	var data byteArg
	if err := json.Unmarshal(raw, &data); err != nil {
		return 0, zerrors.Wrap(zerrors.EIO, "Read", path, err)
	}
	return copy(buf, data), nil
}

func (c *PortFS) Write(ctx context.Context, path string, buf []byte, offset int64) (int, error) {
	raw, err := c.rpc(ctx, "write", path, buf, offset)
	if err != nil {
		return 0, err
	}
	var n int
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, zerrors.Wrap(zerrors.EIO, "Write", path, err)
	}
	return n, nil
}

func (c *PortFS) GetAttribute(ctx context.Context, path, name string) ([]byte, error) {
	raw, err := c.rpc(ctx, "getAttribute", path, name)
	if err != nil {
		return nil, err
	}
	var data byteArg
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, zerrors.Wrap(zerrors.EIO, "GetAttribute", path, err)
	}
	return data, nil
}

func (c *PortFS) SetAttribute(ctx context.Context, path, name string, value []byte) error {
	_, err := c.rpc(ctx, "setAttribute", path, name, value)
	return err
}

func (c *PortFS) RemoveAttribute(ctx context.Context, path, name string) error {
	_, err := c.rpc(ctx, "removeAttribute", path, name)
	return err
}

func (c *PortFS) ListAttributes(ctx context.Context, path string) ([]string, error) {
	raw, err := c.rpc(ctx, "listAttributes", path)
	if err != nil {
		return nil, err
	}
	var names []string
	if err := json.Unmarshal(raw, &names); err != nil {
		return nil, zerrors.Wrap(zerrors.EIO, "ListAttributes", path, err)
	}
	return names, nil
}

// Close releases the underlying port and fails every still-outstanding
// request.
func (c *PortFS) Close() error {
	err := c.port.Close()
	c.failAllPending(zerrors.New(zerrors.EIO, "portfs", "client closed"))
	return err
}

// Pending reports the number of RPCs currently awaiting a response or
// timeout, for tests asserting the executor map drains.
func (c *PortFS) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}
