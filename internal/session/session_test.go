/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"escapedash/internal/cache"
	"escapedash/internal/config"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(config.EnvConfigDir, dir)
	t.Setenv("ESD_TELEMETRY_OPT_IN", "")
	t.Setenv("ESD_TELEMETRY_URL", "")
	return dir
}

func TestLogOptions(t *testing.T) {
	o := LogOptions(config.LoggingConfig{Level: "debug", Format: "json", Source: true, File: "/tmp/x.log"})
	assert.Equal(t, "debug", o.Level)
	assert.Equal(t, "json", o.Format)
	assert.True(t, o.AddSource)
	assert.Equal(t, "/tmp/x.log", o.File)
}

func TestOpenWithCache(t *testing.T) {
	dir := isolate(t)
	cfg := config.Defaults()
	cfg.Cache.Dir = filepath.Join(dir, "cache")

	s, err := Open(cfg, "tok")
	require.NoError(t, err)
	t.Cleanup(s.Close)

	require.NotNil(t, s.Client)
	require.NotNil(t, s.Cache)
	assert.Equal(t, cache.Path(cfg.Cache.Dir), s.Cache.FilePath())
	assert.Equal(t, filepath.Join(dir, "data"), s.DataDir)
	assert.False(t, s.Telemetry.Enabled())
	_, err = os.Stat(s.Cache.FilePath())
	assert.NoError(t, err)
}

func TestOpenCacheDisabled(t *testing.T) {
	isolate(t)
	cfg := config.Defaults()
	cfg.Cache.Enabled = false

	s, err := Open(cfg, "")
	require.NoError(t, err)
	t.Cleanup(s.Close)
	assert.Nil(t, s.Cache)
	assert.Nil(t, s.ViewOptions().Cache)
}

func TestOpenUnusableCacheDirRunsRemoteOnly(t *testing.T) {
	dir := isolate(t)
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
	cfg := config.Defaults()
	cfg.Cache.Dir = filepath.Join(blocker, "cache")

	s, err := Open(cfg, "")
	require.NoError(t, err)
	t.Cleanup(s.Close)
	assert.Nil(t, s.Cache)
}

func TestViewOptionsFromConfig(t *testing.T) {
	dir := isolate(t)
	cfg := config.Defaults()
	cfg.Cache.Dir = dir
	cfg.Dashboard.AutosaveMs = 1500
	cfg.Dashboard.BreakpointPx = 900
	cfg.Dashboard.DefaultName = "Sala 1"
	cfg.Cache.KeepSnapshots = 5

	s, err := Open(cfg, "")
	require.NoError(t, err)
	t.Cleanup(s.Close)

	o := s.ViewOptions()
	assert.Equal(t, 1500*time.Millisecond, o.Debounce)
	assert.Equal(t, float32(900), o.Breakpoint)
	assert.Equal(t, float32(10), o.RowUnit)
	assert.Equal(t, float32(8), o.DragThreshold)
	assert.Equal(t, 300*time.Millisecond, o.LimitPulse)
	assert.Equal(t, "Sala 1", o.DefaultName)
	assert.Equal(t, 5, o.KeepSnapshots)
	assert.Same(t, s.Cache, o.Cache)
	assert.Same(t, s.Telemetry, o.Telemetry)
}

func TestCloseNil(t *testing.T) {
	var s *Session
	s.Close()
}
