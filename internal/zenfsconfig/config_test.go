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

package zenfsconfig_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zenfs-go/core/internal/zenfsconfig"
)

func TestDefaultPassesValidate(t *testing.T) {
	c := zenfsconfig.Default()
	assert.NoError(t, zenfsconfig.Validate(&c))
}

func TestBindFlagsToAndDecodeRoundTrips(t *testing.T) {
	v := viper.New()
	flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
	require.NoError(t, zenfsconfig.BindFlagsTo(v, flagSet))
	require.NoError(t, flagSet.Parse([]string{
		"--single-buffer-size-bytes=1048576",
		"--portfs-request-timeout=2s",
		"--log-severity=debug",
	}))

	c, err := zenfsconfig.Decode(v)
	require.NoError(t, err)
	assert.Equal(t, uint64(1048576), c.SingleBuffer.SizeBytes)
	assert.Equal(t, 2*time.Second, c.PortFS.RequestTimeout)
	assert.Equal(t, zenfsconfig.DebugSeverity, c.Logging.Severity)
}

func TestBindFlagsBindsGlobalViper(t *testing.T) {
	defer viper.Reset()
	viper.Reset()
	flagSet := pflag.NewFlagSet("test-global", pflag.ContinueOnError)
	require.NoError(t, zenfsconfig.BindFlags(flagSet))
	require.NoError(t, flagSet.Parse([]string{"--single-buffer-lock-retries=9"}))

	c, err := zenfsconfig.Decode(viper.GetViper())
	require.NoError(t, err)
	assert.Equal(t, 9, c.SingleBuffer.LockRetries)
}

func TestDecodeRejectsInvalidSeverity(t *testing.T) {
	v := viper.New()
	v.Set("logging.severity", "LOUD")
	_, err := zenfsconfig.Decode(v)
	assert.Error(t, err)
}

func TestValidateRejectsTooSmallSingleBuffer(t *testing.T) {
	c := zenfsconfig.Default()
	c.SingleBuffer.SizeBytes = 8
	assert.EqualError(t, zenfsconfig.Validate(&c), zenfsconfig.SingleBufferSizeTooSmallError)
}

func TestValidateRejectsNonPositiveRequestTimeout(t *testing.T) {
	c := zenfsconfig.Default()
	c.PortFS.RequestTimeout = 0
	assert.EqualError(t, zenfsconfig.Validate(&c), zenfsconfig.RequestTimeoutInvalidError)
}

func TestRationalizeFillsInSlowWaitWarning(t *testing.T) {
	c := zenfsconfig.Default()
	c.LockedFS.SlowWaitWarning = 0
	zenfsconfig.Rationalize(&c)
	assert.Equal(t, zenfsconfig.DefaultSlowWaitWarning, c.LockedFS.SlowWaitWarning)
}

func TestLoadFileAndStringifyRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "zenfs.yaml")
	yamlText, err := zenfsconfig.Stringify(zenfsconfig.Default())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte(yamlText), 0o644))

	loaded, err := zenfsconfig.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, zenfsconfig.Default(), loaded)
}

func TestLoadFileMissingFile(t *testing.T) {
	_, err := zenfsconfig.LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
