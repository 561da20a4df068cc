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

package portfs_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jacobsa/timeutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zenfs-go/core/fsapi"
	"github.com/zenfs-go/core/portfs"
	"github.com/zenfs-go/core/store"
	"github.com/zenfs-go/core/storefs"
	"github.com/zenfs-go/core/zerrors"
)

func newClock() *timeutil.SimulatedClock {
	clock := &timeutil.SimulatedClock{}
	clock.SetTime(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	return clock
}

func newWiredClientServer(t *testing.T) *portfs.PortFS {
	t.Helper()
	clientPort, serverPort := portfs.NewPipe()
	backend := storefs.New("rpc-backend", store.NewMemStore(), newClock())
	portfs.NewServer(serverPort, backend)
	return portfs.New(clientPort, time.Second)
}

func TestCreateWriteReadRoundTripsOverRPC(t *testing.T) {
	client := newWiredClientServer(t)
	ctx := context.Background()

	_, err := client.CreateFile(ctx, "/greeting.txt", fsapi.Create, 0o644, fsapi.Credentials{})
	require.NoError(t, err)

	n, err := client.Write(ctx, "/greeting.txt", []byte("hello rpc"), 0)
	require.NoError(t, err)
	assert.Equal(t, 9, n)

	buf := make([]byte, 9)
	n, err = client.Read(ctx, "/greeting.txt", buf, 0)
	require.NoError(t, err)
	assert.Equal(t, "hello rpc", string(buf[:n]))

	stats, err := client.Stat(ctx, "/greeting.txt")
	require.NoError(t, err)
	assert.Equal(t, uint64(9), stats.Size)

	assert.Equal(t, 0, client.Pending())
}

func TestMkdirReaddirOverRPC(t *testing.T) {
	client := newWiredClientServer(t)
	ctx := context.Background()

	require.NoError(t, client.Mkdir(ctx, "/dir", 0o755, fsapi.Credentials{}))
	_, err := client.CreateFile(ctx, "/dir/a", fsapi.Create, 0o644, fsapi.Credentials{})
	require.NoError(t, err)

	names, err := client.Readdir(ctx, "/dir")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, names)
}

func TestUnknownPathPropagatesENOENT(t *testing.T) {
	client := newWiredClientServer(t)
	_, err := client.Stat(context.Background(), "/missing")
	require.Error(t, err)
	assert.True(t, zerrors.Is(err, zerrors.ENOENT))
}

// TestRPCTimeoutNoListener covers scenario S6: a PortFS pointed at a port
// with nothing consuming its requests times out within the configured
// window and leaves no residue in the executor map.
func TestRPCTimeoutNoListener(t *testing.T) {
	clientPort, _ := portfs.NewPipe()
	client := portfs.New(clientPort, 100*time.Millisecond)

	start := time.Now()
	_, err := client.Stat(context.Background(), "/anything")
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.True(t, zerrors.Is(err, zerrors.ETIMEDOUT))
	assert.Less(t, elapsed, 500*time.Millisecond)
	assert.Equal(t, 0, client.Pending())
}

// TestExecutorMapEmptiesAfterConcurrentRequests checks that every request
// added to the executor map is disposed of by exactly one of
// {response, timeout}, and the map is empty once all quiesce.
func TestExecutorMapEmptiesAfterConcurrentRequests(t *testing.T) {
	client := newWiredClientServer(t)
	ctx := context.Background()

	require.NoError(t, client.Mkdir(ctx, "/concurrent", 0o755, fsapi.Credentials{}))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = client.Stat(ctx, "/concurrent")
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, client.Pending())
}

func TestCatchMessagesBuffersUntilAttach(t *testing.T) {
	clientPort, serverPort := portfs.NewPipe()
	server := portfs.NewServer(serverPort, nil)
	client := portfs.New(clientPort, time.Second)

	done := make(chan struct{})
	go func() {
		_ = client.Mkdir(context.Background(), "/late", 0o755, fsapi.Credentials{})
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	server.Attach(storefs.New("late-backend", store.NewMemStore(), newClock()))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("request never completed after Attach")
	}
}
