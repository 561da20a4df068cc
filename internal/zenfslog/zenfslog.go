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

// Package zenfslog is the leveled logger every ZenFS package logs
// through: a thin wrapper over the standard library's log.Logger, with
// optional file rotation via lumberjack for long-running hosts (the
// PortFS server, a mounted SingleBuffer daemon).
package zenfslog

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync/atomic"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Level orders log severities; messages below a Logger's configured
// Level are dropped before formatting.
type Level int32

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Logger is a leveled wrapper around log.Logger. The zero value is not
// usable; construct one with New or NewRotating.
type Logger struct {
	out   *log.Logger
	level atomic.Int32
}

// New builds a Logger named name, writing to w, suppressing messages
// below level.
func New(name string, level Level, w io.Writer) *Logger {
	l := &Logger{out: log.New(w, name+": ", log.LstdFlags|log.Lmicroseconds)}
	l.level.Store(int32(level))
	return l
}

// NewRotating builds a Logger writing to a lumberjack-rotated file.
func NewRotating(name string, level Level, filename string, maxSizeMB, maxBackups, maxAgeDays int) *Logger {
	return New(name, level, &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
	})
}

// SetLevel adjusts the minimum severity logged, safe for concurrent use.
func (l *Logger) SetLevel(level Level) { l.level.Store(int32(level)) }

func (l *Logger) logf(level Level, format string, args ...any) {
	if level < Level(l.level.Load()) {
		return
	}
	l.out.Printf("[%s] %s", level, fmt.Sprintf(format, args...))
}

func (l *Logger) Debugf(format string, args ...any) { l.logf(LevelDebug, format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.logf(LevelInfo, format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.logf(LevelWarn, format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.logf(LevelError, format, args...) }

var defaultLogger = New("zenfs", LevelInfo, os.Stderr)

// Default returns the package-wide logger every ZenFS component logs
// through unless given its own. SetDefault replaces it, e.g. to point at
// a rotating file in production or io.Discard in tests.
func Default() *Logger { return defaultLogger }

// SetDefault replaces the package-wide default logger.
func SetDefault(l *Logger) { defaultLogger = l }
