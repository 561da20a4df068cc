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

// Package zenfsconfig holds the module-owned defaults every component reads
// at construction time: SingleBuffer sizing, PortFS RPC timeout, LockedFS's
// slow-wait warning threshold, and the telemetry toggle. It binds pflag
// flags to viper keys so a host binary can layer flags, a YAML file, and
// env vars over the same struct.
package zenfsconfig

import (
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the root configuration struct, decoded from viper via
// mapstructure after flags are bound (see BindFlags and Decode).
type Config struct {
	SingleBuffer SingleBufferConfig `yaml:"single-buffer" mapstructure:"single-buffer"`

	PortFS PortFSConfig `yaml:"portfs" mapstructure:"portfs"`

	LockedFS LockedFSConfig `yaml:"locked-fs" mapstructure:"locked-fs"`

	Telemetry TelemetryConfig `yaml:"telemetry" mapstructure:"telemetry"`

	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`
}

// SingleBufferConfig sizes and tunes the SingleBuffer store.
type SingleBufferConfig struct {
	// SizeBytes is the total backing buffer size for a freshly formatted
	// SingleBuffer (New rejects smaller reopen-only sizes outright).
	SizeBytes uint64 `yaml:"size-bytes" mapstructure:"size-bytes"`

	// LockRetries bounds how many times lockBlock/waitUnlocked busy-wait
	// on a contended metadata block before failing EBUSY.
	LockRetries int `yaml:"lock-retries" mapstructure:"lock-retries"`

	// LockWaitTimeout bounds the total time lockBlock/waitUnlocked spend
	// retrying before failing EBUSY, independent of LockRetries.
	LockWaitTimeout time.Duration `yaml:"lock-wait-timeout" mapstructure:"lock-wait-timeout"`
}

// PortFSConfig tunes the PortFS RPC client.
type PortFSConfig struct {
	// RequestTimeout is the per-call RPC deadline used when a caller's
	// context carries none of its own.
	RequestTimeout time.Duration `yaml:"request-timeout" mapstructure:"request-timeout"`
}

// LockedFSConfig tunes LockedFS's per-path FIFO queue.
type LockedFSConfig struct {
	// SlowWaitWarning is the queue-wait duration past which LockedFS logs
	// a warning via zenfslog about a caller stuck behind a slow holder.
	SlowWaitWarning time.Duration `yaml:"slow-wait-warning" mapstructure:"slow-wait-warning"`
}

// TelemetryConfig toggles the internal/telemetry instrument set.
type TelemetryConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
}

// LoggingConfig holds severity and rotation settings for an
// internal/zenfslog logger. This package only decodes and validates them;
// it does not install them on zenfslog's default logger.
type LoggingConfig struct {
	Severity LogSeverity `yaml:"severity" mapstructure:"severity"`

	// Filename is the path of a lumberjack-rotated log file; empty stands
	// for stderr, and Validate then skips the rotation checks.
	Filename string `yaml:"filename" mapstructure:"filename"`

	MaxFileSizeMB int `yaml:"max-file-size-mb" mapstructure:"max-file-size-mb"`

	BackupFileCount int `yaml:"backup-file-count" mapstructure:"backup-file-count"`

	MaxAgeDays int `yaml:"max-age-days" mapstructure:"max-age-days"`
}

// Default returns a Config populated with the same values BindFlags
// registers as flag defaults, for callers that construct components
// directly without going through viper at all (e.g. unit tests).
func Default() Config {
	return Config{
		SingleBuffer: SingleBufferConfig{
			SizeBytes:       DefaultSingleBufferSizeBytes,
			LockRetries:     DefaultLockRetries,
			LockWaitTimeout: DefaultLockWaitTimeout,
		},
		PortFS: PortFSConfig{
			RequestTimeout: DefaultRequestTimeout,
		},
		LockedFS: LockedFSConfig{
			SlowWaitWarning: DefaultSlowWaitWarning,
		},
		Telemetry: TelemetryConfig{Enabled: true},
		Logging: LoggingConfig{
			Severity:        InfoSeverity,
			MaxFileSizeMB:   DefaultMaxFileSizeMB,
			BackupFileCount: DefaultBackupFileCount,
			MaxAgeDays:      DefaultMaxAgeDays,
		},
	}
}

// BindFlags registers every zenfsconfig flag on flagSet and binds it to the
// matching viper key on viper's global singleton.
func BindFlags(flagSet *pflag.FlagSet) error {
	d := Default()

	flagSet.Uint64P("single-buffer-size-bytes", "", d.SingleBuffer.SizeBytes, "Backing buffer size for a freshly formatted SingleBuffer store.")
	if err := viper.BindPFlag("single-buffer.size-bytes", flagSet.Lookup("single-buffer-size-bytes")); err != nil {
		return err
	}

	flagSet.IntP("single-buffer-lock-retries", "", d.SingleBuffer.LockRetries, "Retry attempts before a contended SingleBuffer block fails EBUSY.")
	if err := viper.BindPFlag("single-buffer.lock-retries", flagSet.Lookup("single-buffer-lock-retries")); err != nil {
		return err
	}

	flagSet.DurationP("single-buffer-lock-wait-timeout", "", d.SingleBuffer.LockWaitTimeout, "Total time budget for SingleBuffer block lock acquisition.")
	if err := viper.BindPFlag("single-buffer.lock-wait-timeout", flagSet.Lookup("single-buffer-lock-wait-timeout")); err != nil {
		return err
	}

	flagSet.DurationP("portfs-request-timeout", "", d.PortFS.RequestTimeout, "Per-RPC timeout for PortFS clients.")
	if err := viper.BindPFlag("portfs.request-timeout", flagSet.Lookup("portfs-request-timeout")); err != nil {
		return err
	}

	flagSet.DurationP("locked-fs-slow-wait-warning", "", d.LockedFS.SlowWaitWarning, "Queue-wait duration past which LockedFS logs a warning.")
	if err := viper.BindPFlag("locked-fs.slow-wait-warning", flagSet.Lookup("locked-fs-slow-wait-warning")); err != nil {
		return err
	}

	flagSet.BoolP("telemetry-enabled", "", d.Telemetry.Enabled, "Record OpenTelemetry instruments for store, singlebuffer, portfs and lockedfs.")
	if err := viper.BindPFlag("telemetry.enabled", flagSet.Lookup("telemetry-enabled")); err != nil {
		return err
	}

	flagSet.StringP("log-severity", "", string(d.Logging.Severity), "Logging severity: TRACE, DEBUG, INFO, WARNING, ERROR, or OFF.")
	if err := viper.BindPFlag("logging.severity", flagSet.Lookup("log-severity")); err != nil {
		return err
	}

	flagSet.StringP("log-filename", "", d.Logging.Filename, "Log file path; empty logs to stderr.")
	if err := viper.BindPFlag("logging.filename", flagSet.Lookup("log-filename")); err != nil {
		return err
	}

	flagSet.IntP("log-max-file-size-mb", "", d.Logging.MaxFileSizeMB, "Maximum size in MB of a log file before rotation.")
	if err := viper.BindPFlag("logging.max-file-size-mb", flagSet.Lookup("log-max-file-size-mb")); err != nil {
		return err
	}

	flagSet.IntP("log-backup-file-count", "", d.Logging.BackupFileCount, "Number of rotated log files to retain (0 retains all).")
	if err := viper.BindPFlag("logging.backup-file-count", flagSet.Lookup("log-backup-file-count")); err != nil {
		return err
	}

	flagSet.IntP("log-max-age-days", "", d.Logging.MaxAgeDays, "Maximum age in days of a rotated log file before deletion.")
	return viper.BindPFlag("logging.max-age-days", flagSet.Lookup("log-max-age-days"))
}

// Decode builds a Config from v's current state (flags bound by BindFlags,
// any config file viper was pointed at, and env vars), applying DecodeHook
// for the Duration and LogSeverity fields and Rationalize for cross-field
// defaults, then Validate for range checks.
func Decode(v *viper.Viper) (Config, error) {
	c := Default()
	if err := v.Unmarshal(&c, viper.DecodeHook(DecodeHook())); err != nil {
		return Config{}, err
	}
	Rationalize(&c)
	if err := Validate(&c); err != nil {
		return Config{}, err
	}
	return c, nil
}

// BindFlagsTo is BindFlags generalized to an explicit viper instance, for
// callers (including tests) that don't want to touch viper's global
// singleton.
func BindFlagsTo(v *viper.Viper, flagSet *pflag.FlagSet) error {
	d := Default()

	bind := func(flag, key string) error {
		return v.BindPFlag(key, flagSet.Lookup(flag))
	}

	flagSet.Uint64P("single-buffer-size-bytes", "", d.SingleBuffer.SizeBytes, "Backing buffer size for a freshly formatted SingleBuffer store.")
	flagSet.IntP("single-buffer-lock-retries", "", d.SingleBuffer.LockRetries, "Retry attempts before a contended SingleBuffer block fails EBUSY.")
	flagSet.DurationP("single-buffer-lock-wait-timeout", "", d.SingleBuffer.LockWaitTimeout, "Total time budget for SingleBuffer block lock acquisition.")
	flagSet.DurationP("portfs-request-timeout", "", d.PortFS.RequestTimeout, "Per-RPC timeout for PortFS clients.")
	flagSet.DurationP("locked-fs-slow-wait-warning", "", d.LockedFS.SlowWaitWarning, "Queue-wait duration past which LockedFS logs a warning.")
	flagSet.BoolP("telemetry-enabled", "", d.Telemetry.Enabled, "Record OpenTelemetry instruments for store, singlebuffer, portfs and lockedfs.")
	flagSet.StringP("log-severity", "", string(d.Logging.Severity), "Logging severity: TRACE, DEBUG, INFO, WARNING, ERROR, or OFF.")
	flagSet.StringP("log-filename", "", d.Logging.Filename, "Log file path; empty logs to stderr.")
	flagSet.IntP("log-max-file-size-mb", "", d.Logging.MaxFileSizeMB, "Maximum size in MB of a log file before rotation.")
	flagSet.IntP("log-backup-file-count", "", d.Logging.BackupFileCount, "Number of rotated log files to retain (0 retains all).")
	flagSet.IntP("log-max-age-days", "", d.Logging.MaxAgeDays, "Maximum age in days of a rotated log file before deletion.")

	for flag, key := range map[string]string{
		"single-buffer-size-bytes":        "single-buffer.size-bytes",
		"single-buffer-lock-retries":      "single-buffer.lock-retries",
		"single-buffer-lock-wait-timeout": "single-buffer.lock-wait-timeout",
		"portfs-request-timeout":          "portfs.request-timeout",
		"locked-fs-slow-wait-warning":     "locked-fs.slow-wait-warning",
		"telemetry-enabled":               "telemetry.enabled",
		"log-severity":                    "logging.severity",
		"log-filename":                    "logging.filename",
		"log-max-file-size-mb":            "logging.max-file-size-mb",
		"log-backup-file-count":           "logging.backup-file-count",
		"log-max-age-days":                "logging.max-age-days",
	} {
		if err := bind(flag, key); err != nil {
			return err
		}
	}
	return nil
}
