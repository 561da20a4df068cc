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

// Package telemetry holds the OpenTelemetry meter and instruments shared by
// store, singlebuffer, and portfs.
package telemetry

import (
	"context"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/zenfs-go/core/internal/zenfsconfig"
)

const meterName = "github.com/zenfs-go/core"

var (
	once     sync.Once
	meter    metric.Meter
	instSet  *Instruments
	initErr  error
	noopOnce sync.Once

	enabled atomic.Bool
)

func init() {
	enabled.Store(zenfsconfig.Default().Telemetry.Enabled)
}

// SetEnabled toggles whether Get's Instruments record anything. Disabling
// doesn't tear down already-built instruments; the Count*/Record* wrappers
// simply stop calling into them.
func SetEnabled(v bool) { enabled.Store(v) }

// Instruments groups the counters/histograms this module's core packages
// emit. They're created lazily against the globally configured
// OpenTelemetry MeterProvider (otel.GetMeterProvider()), so a host
// application can wire a real exporter (e.g. the Prometheus one in this
// module's go.mod) before ZenFS ever records anything; if it never does,
// OpenTelemetry's default no-op provider absorbs the calls for free.
type Instruments struct {
	TransactionCommits    metric.Int64Counter
	TransactionAborts     metric.Int64Counter
	RollbackRestores      metric.Int64Counter
	SingleBufferWaits     metric.Int64Counter
	SingleBufferRotations metric.Int64Counter
	RPCRequests           metric.Int64Counter
	RPCTimeouts           metric.Int64Counter
	RPCLatencyMs          metric.Float64Histogram
	LockWaitMs            metric.Float64Histogram
}

// Get returns the process-wide Instruments, creating them on first use.
func Get() *Instruments {
	once.Do(func() {
		meter = otel.Meter(meterName)
		instSet, initErr = build(meter)
		if initErr != nil {
			// Retry once with a fresh meter from the same global provider
			// under a separate name; if that fails too, instSet stays nil
			// and every Count*/Record* wrapper does nothing.
			meter = otel.GetMeterProvider().Meter(meterName + ".fallback")
			instSet, _ = build(meter)
		}
	})
	return instSet
}

func build(m metric.Meter) (*Instruments, error) {
	commits, err := m.Int64Counter("zenfs.transaction.commits")
	if err != nil {
		return nil, err
	}
	aborts, err := m.Int64Counter("zenfs.transaction.aborts")
	if err != nil {
		return nil, err
	}
	rollbacks, err := m.Int64Counter("zenfs.transaction.rollback_restores")
	if err != nil {
		return nil, err
	}
	waits, err := m.Int64Counter("zenfs.singlebuffer.lock_waits")
	if err != nil {
		return nil, err
	}
	rotations, err := m.Int64Counter("zenfs.singlebuffer.metadata_rotations")
	if err != nil {
		return nil, err
	}
	rpcReqs, err := m.Int64Counter("zenfs.portfs.requests")
	if err != nil {
		return nil, err
	}
	rpcTimeouts, err := m.Int64Counter("zenfs.portfs.timeouts")
	if err != nil {
		return nil, err
	}
	rpcLatency, err := m.Float64Histogram("zenfs.portfs.latency_ms")
	if err != nil {
		return nil, err
	}
	lockWait, err := m.Float64Histogram("zenfs.lockedfs.wait_ms")
	if err != nil {
		return nil, err
	}

	return &Instruments{
		TransactionCommits:    commits,
		TransactionAborts:     aborts,
		RollbackRestores:      rollbacks,
		SingleBufferWaits:     waits,
		SingleBufferRotations: rotations,
		RPCRequests:           rpcReqs,
		RPCTimeouts:           rpcTimeouts,
		RPCLatencyMs:          rpcLatency,
		LockWaitMs:            lockWait,
	}, nil
}

// on reports whether i is usable and telemetry hasn't been disabled via
// SetEnabled (wired from zenfsconfig's telemetry.enabled toggle).
func (i *Instruments) on() bool {
	return i != nil && enabled.Load()
}

// CountCommit is a nil-safe convenience wrapper so callers don't need to
// guard every call site against Get() racing initialization failures.
func (i *Instruments) CountCommit(ctx context.Context) {
	if !i.on() || i.TransactionCommits == nil {
		return
	}
	i.TransactionCommits.Add(ctx, 1)
}

// CountAbort mirrors CountCommit for aborts.
func (i *Instruments) CountAbort(ctx context.Context) {
	if !i.on() || i.TransactionAborts == nil {
		return
	}
	i.TransactionAborts.Add(ctx, 1)
}

// CountRollbackRestore mirrors CountCommit for individual key restores
// during abort.
func (i *Instruments) CountRollbackRestore(ctx context.Context, n int64) {
	if !i.on() || i.RollbackRestores == nil || n == 0 {
		return
	}
	i.RollbackRestores.Add(ctx, n)
}

// CountSingleBufferWait records a lockBlock/waitUnlocked call that didn't
// acquire its block on the first attempt.
func (i *Instruments) CountSingleBufferWait(ctx context.Context) {
	if !i.on() || i.SingleBufferWaits == nil {
		return
	}
	i.SingleBufferWaits.Add(ctx, 1)
}

// CountSingleBufferRotation records a successful metadata block rotation.
func (i *Instruments) CountSingleBufferRotation(ctx context.Context) {
	if !i.on() || i.SingleBufferRotations == nil {
		return
	}
	i.SingleBufferRotations.Add(ctx, 1)
}

// CountRPCRequest records an RPC sent by a PortFS client.
func (i *Instruments) CountRPCRequest(ctx context.Context) {
	if !i.on() || i.RPCRequests == nil {
		return
	}
	i.RPCRequests.Add(ctx, 1)
}

// CountRPCTimeout records an RPC that was disposed of by its timeout path
// rather than a real response.
func (i *Instruments) CountRPCTimeout(ctx context.Context) {
	if !i.on() || i.RPCTimeouts == nil {
		return
	}
	i.RPCTimeouts.Add(ctx, 1)
}

// RecordRPCLatency records the wall-clock duration of a completed RPC, in
// milliseconds.
func (i *Instruments) RecordRPCLatency(ctx context.Context, ms float64) {
	if !i.on() || i.RPCLatencyMs == nil {
		return
	}
	i.RPCLatencyMs.Record(ctx, ms)
}

// RecordLockWait records how long a LockedFS caller waited in its
// per-path FIFO queue before acquiring the lock, in milliseconds.
func (i *Instruments) RecordLockWait(ctx context.Context, ms float64) {
	if !i.on() || i.LockWaitMs == nil {
		return
	}
	i.LockWaitMs.Record(ctx, ms)
}
