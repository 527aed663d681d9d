/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables are treated as read-only overrides at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.

type BackendConfig struct {
	BaseURL     string `yaml:"base_url"`
	TimeoutMs   int    `yaml:"timeout_ms"`
	TLSInsecure bool   `yaml:"tls_insecure"`
	// Token is not stored on disk; it lives in the OS keychain.
}

// DashboardConfig tunes the layout engine. Zero values fall back to Defaults.
type DashboardConfig struct {
	AutosaveMs      int    `yaml:"autosave_ms"`
	BreakpointPx    int    `yaml:"breakpoint_px"`
	RowHeightPx     int    `yaml:"row_height_px"`
	DragThresholdPx int    `yaml:"drag_threshold_px"`
	LimitPulseMs    int    `yaml:"limit_pulse_ms"`
	DefaultName     string `yaml:"default_name"`
}

type CacheConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"` // empty: DataDir()
	// Snapshots kept per scope after pruning.
	KeepSnapshots int `yaml:"keep_snapshots"`
}

type GeneralConfig struct {
	TelemetryOptIn bool   `yaml:"telemetry_opt_in"`
	Theme          string `yaml:"theme"` // "system" | "light" | "dark"
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type AppConfig struct {
	ConfigVersion int             `yaml:"config_version"`
	General       GeneralConfig   `yaml:"general"`
	Backend       BackendConfig   `yaml:"backend"`
	Dashboard     DashboardConfig `yaml:"dashboard"`
	Cache         CacheConfig     `yaml:"cache"`
	Logging       LoggingConfig   `yaml:"logging"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{TelemetryOptIn: false, Theme: "system"},
		Backend:       BackendConfig{BaseURL: "http://localhost:3000/api", TimeoutMs: 15000},
		Dashboard: DashboardConfig{
			AutosaveMs:      2000,
			BreakpointPx:    768,
			RowHeightPx:     10,
			DragThresholdPx: 8,
			LimitPulseMs:    300,
			DefaultName:     "Mi Dashboard",
		},
		Cache:   CacheConfig{Enabled: true, KeepSnapshots: 20},
		Logging: LoggingConfig{Level: "info", Format: "console"},
	}
}

// Env var names used as overrides.
const (
	EnvConfigDir        = "ESD_CONFIG_DIR"
	EnvBackendURL       = "ESD_BACKEND_URL"
	EnvBackendTimeoutMs = "ESD_BACKEND_TIMEOUT_MS"
	EnvBackendTLSInsec  = "ESD_TLS_INSECURE"
	EnvBackendToken     = "ESD_BACKEND_TOKEN"
	EnvAutosaveMs       = "ESD_AUTOSAVE_MS"
	EnvBreakpointPx     = "ESD_BREAKPOINT_PX"
	EnvCacheEnabled     = "ESD_CACHE_ENABLED"
	EnvCacheDir         = "ESD_CACHE_DIR"
	EnvTelemetryOptIn   = "ESD_TELEMETRY_OPT_IN"
	// EnvLogLevel Logging envs
	EnvLogLevel  = "ESD_LOG_LEVEL"
	EnvLogFormat = "ESD_LOG_FORMAT"
	EnvLogSource = "ESD_LOG_SOURCE"
	EnvLogFile   = "ESD_LOG_FILE"
)

// Service/keys for OS keyring.
const (
	keyringService = "EscapeDash"
	keyringToken   = "backend_token"
)

// TokenStore abstracts the keyring, so tests can swap in memory storage.
type TokenStore interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

var tokenStore TokenStore = osKeyring{}

// SetTokenStore replaces the token store and returns a func restoring the previous one.
func SetTokenStore(ts TokenStore) (restore func()) {
	prev := tokenStore
	tokenStore = ts
	return func() { tokenStore = prev }
}

// osKeyring implements TokenStore using the OS keyring via github.com/zalando/go-keyring.
type osKeyring struct{}

func (osKeyring) Get(service, key string) (string, error) { return keyring.Get(service, key) }
func (osKeyring) Set(service, key, value string) error    { return keyring.Set(service, key, value) }
func (osKeyring) Delete(service, key string) error        { return keyring.Delete(service, key) }

// ConfigDir returns the per-user configuration directory.
func ConfigDir() (string, error) {
	if v := strings.TrimSpace(os.Getenv(EnvConfigDir)); v != "" {
		return v, nil
	}
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "EscapeDash")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "EscapeDash")
	default:
		base = filepath.Join(os.Getenv("HOME"), ".config", "escapedash")
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return base, nil
}

// ConfigPath returns the per-user config file path.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// DataDir is where the local layout cache and crash reports live.
func DataDir() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "data"), nil
}

// Load reads user config file (if present), applies defaults, and merges environment overrides.
// The backend token comes from ESD_BACKEND_TOKEN or the keyring and is returned separately.
func Load() (AppConfig, string, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, "", err
	}
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return cfg, "", fmt.Errorf("parse %s: %w", path, err)
		}
		mergeInto(&cfg, &fileCfg)
	}
	applyEnvOverrides(&cfg)
	if tok := strings.TrimSpace(os.Getenv(EnvBackendToken)); tok != "" {
		return cfg, tok, nil
	}
	tok, _ := tokenStore.Get(keyringService, keyringToken)
	return cfg, tok, nil
}

// Save writes the user config YAML and persists the token into OS keyring (if non-empty).
func Save(cfg AppConfig, token string) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	if token != "" {
		if err := tokenStore.Set(keyringService, keyringToken, token); err != nil {
			return fmt.Errorf("store token: %w", err)
		}
	}
	return nil
}

// SaveToken stores the backend token without touching the config file.
func SaveToken(token string) error {
	if err := tokenStore.Set(keyringService, keyringToken, token); err != nil {
		return fmt.Errorf("store token: %w", err)
	}
	return nil
}

// ClearToken removes the stored backend token.
func ClearToken() error {
	err := tokenStore.Delete(keyringService, keyringToken)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if src.General.Theme != "" {
		dst.General.Theme = src.General.Theme
	}
	dst.General.TelemetryOptIn = src.General.TelemetryOptIn
	if src.Backend.BaseURL != "" {
		dst.Backend.BaseURL = src.Backend.BaseURL
	}
	if src.Backend.TimeoutMs != 0 {
		dst.Backend.TimeoutMs = src.Backend.TimeoutMs
	}
	dst.Backend.TLSInsecure = src.Backend.TLSInsecure
	// dashboard
	d, s := &dst.Dashboard, src.Dashboard
	if s.AutosaveMs > 0 {
		d.AutosaveMs = s.AutosaveMs
	}
	if s.BreakpointPx > 0 {
		d.BreakpointPx = s.BreakpointPx
	}
	if s.RowHeightPx > 0 {
		d.RowHeightPx = s.RowHeightPx
	}
	if s.DragThresholdPx > 0 {
		d.DragThresholdPx = s.DragThresholdPx
	}
	if s.LimitPulseMs > 0 {
		d.LimitPulseMs = s.LimitPulseMs
	}
	if strings.TrimSpace(s.DefaultName) != "" {
		d.DefaultName = strings.TrimSpace(s.DefaultName)
	}
	// cache: an absent section keeps the cache enabled
	if src.Cache != (CacheConfig{}) {
		dst.Cache.Enabled = src.Cache.Enabled
	}
	if strings.TrimSpace(src.Cache.Dir) != "" {
		dst.Cache.Dir = strings.TrimSpace(src.Cache.Dir)
	}
	if src.Cache.KeepSnapshots > 0 {
		dst.Cache.KeepSnapshots = src.Cache.KeepSnapshots
	}
	// logging
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
}

func truthy(v string) bool {
	lv := strings.ToLower(v)
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvBackendURL)); v != "" {
		cfg.Backend.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvBackendTimeoutMs)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Backend.TimeoutMs = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvBackendTLSInsec)); v != "" {
		cfg.Backend.TLSInsecure = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvAutosaveMs)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Dashboard.AutosaveMs = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvBreakpointPx)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Dashboard.BreakpointPx = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvCacheEnabled)); v != "" {
		cfg.Cache.Enabled = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvCacheDir)); v != "" {
		cfg.Cache.Dir = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvTelemetryOptIn)); v != "" {
		cfg.General.TelemetryOptIn = truthy(v)
	}
	// logging overrides
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	env := map[string]string{
		"backend.base_url":         EnvBackendURL,
		"backend.timeout_ms":       EnvBackendTimeoutMs,
		"backend.tls_insecure":     EnvBackendTLSInsec,
		"backend.token":            EnvBackendToken,
		"dashboard.autosave_ms":    EnvAutosaveMs,
		"dashboard.breakpoint_px":  EnvBreakpointPx,
		"cache.enabled":            EnvCacheEnabled,
		"cache.dir":                EnvCacheDir,
		"general.telemetry_opt_in": EnvTelemetryOptIn,
		"logging.level":            EnvLogLevel,
		"logging.format":           EnvLogFormat,
		"logging.source":           EnvLogSource,
		"logging.file":             EnvLogFile,
	}[key]
	if env != "" && os.Getenv(env) != "" {
		return env, true
	}
	return "", false
}

// Timeout returns the backend request timeout.
func (b BackendConfig) Timeout() time.Duration {
	if b.TimeoutMs <= 0 {
		return time.Duration(Defaults().Backend.TimeoutMs) * time.Millisecond
	}
	return time.Duration(b.TimeoutMs) * time.Millisecond
}

// Autosave returns the debounce interval for background writes.
func (d DashboardConfig) Autosave() time.Duration {
	if d.AutosaveMs <= 0 {
		return time.Duration(Defaults().Dashboard.AutosaveMs) * time.Millisecond
	}
	return time.Duration(d.AutosaveMs) * time.Millisecond
}

// LimitPulse returns how long the rejected-resize feedback stays on.
func (d DashboardConfig) LimitPulse() time.Duration {
	if d.LimitPulseMs <= 0 {
		return time.Duration(Defaults().Dashboard.LimitPulseMs) * time.Millisecond
	}
	return time.Duration(d.LimitPulseMs) * time.Millisecond
}

// CacheDir resolves the directory holding the local layout cache.
func (c AppConfig) CacheDir() (string, error) {
	if c.Cache.Dir != "" {
		return c.Cache.Dir, nil
	}
	return DataDir()
}
