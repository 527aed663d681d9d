/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package session turns the user configuration into the running pieces a host
// needs: logging, the collections client, the local cache and telemetry.
package session

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"escapedash/internal/cache"
	"escapedash/internal/collections"
	"escapedash/internal/config"
	"escapedash/internal/dashboard"
	applog "escapedash/internal/log"
	"escapedash/internal/telemetry"
)

// Session holds the process-wide services shared by the CLI and the desktop host.
type Session struct {
	Config    config.AppConfig
	Client    *collections.Client
	Cache     *cache.Cache // nil when disabled or unavailable
	Telemetry *telemetry.Client
	DataDir   string

	log *slog.Logger
}

// LogOptions maps the logging section of the configuration onto log.Options.
func LogOptions(c config.LoggingConfig) applog.Options {
	return applog.Options{Level: c.Level, Format: c.Format, AddSource: c.Source, File: c.File}
}

// Load reads the configuration and token, initializes logging and opens the session.
func Load() (*Session, error) {
	cfg, token, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	applog.Init(LogOptions(cfg.Logging))
	return Open(cfg, token)
}

// Open builds a session from an already loaded configuration. A cache that
// cannot be opened is logged and skipped; the dashboard then runs remote-only.
func Open(cfg config.AppConfig, token string) (*Session, error) {
	l := applog.WithComponent("session")
	s := &Session{Config: cfg, log: l}

	hc := &http.Client{Timeout: cfg.Backend.Timeout()}
	if cfg.Backend.TLSInsecure {
		l.Warn("TLS verification disabled for the collections service")
		hc.Transport = &http.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: true}} //nolint:gosec
	}
	s.Client = collections.NewClient(cfg.Backend.BaseURL, token,
		collections.WithHTTPClient(hc),
		collections.WithLogger(applog.WithComponent("collections")),
	)

	if dir, err := config.DataDir(); err == nil {
		s.DataDir = dir
	} else {
		l.Warn("no data dir", slog.Any("err", err))
	}

	if cfg.Cache.Enabled {
		dir, err := cfg.CacheDir()
		if err == nil {
			s.Cache, err = cache.Open(dir)
		}
		if err != nil {
			l.Warn("local cache unavailable", slog.Any("err", err))
			s.Cache = nil
		}
	}

	s.Telemetry = telemetry.New(telemetry.FromSettings(cfg.General.TelemetryOptIn))
	telemetry.SetDefault(s.Telemetry)
	return s, nil
}

// ViewOptions returns dashboard options filled from the configuration. Hosts
// add their surface, prompter and notifier.
func (s *Session) ViewOptions() dashboard.Options {
	d := s.Config.Dashboard
	return dashboard.Options{
		Cache:         s.Cache,
		DataDir:       s.DataDir,
		Logger:        applog.WithComponent("dashboard"),
		Telemetry:     s.Telemetry,
		Debounce:      d.Autosave(),
		DefaultName:   d.DefaultName,
		Breakpoint:    float32(d.BreakpointPx),
		RowUnit:       float32(d.RowHeightPx),
		DragThreshold: float32(d.DragThresholdPx),
		LimitPulse:    d.LimitPulse(),
		KeepSnapshots: s.Config.Cache.KeepSnapshots,
	}
}

// Close flushes telemetry and closes the cache.
func (s *Session) Close() {
	if s == nil {
		return
	}
	if s.Telemetry != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		s.Telemetry.Flush(ctx)
		cancel()
		s.Telemetry.Close()
	}
	if s.Cache != nil {
		if err := s.Cache.Close(); err != nil {
			s.log.Warn("close cache", slog.Any("err", err))
		}
	}
}
