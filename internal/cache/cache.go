/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */
package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"escapedash/internal/domain"
	applog "escapedash/internal/log"
	"escapedash/internal/version"

	jsoniter "github.com/json-iterator/go"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	FileName = "dashboard.sqlite"

	// schemaVersion tracks the local cache schema. Bump it together with a
	// new step in runMigrations.
	schemaVersion = 2
)

// State is the persisted slice of the layout store.
type State struct {
	Layout           domain.Layout
	ActiveCollection string
	SavedAt          time.Time
}

// Snapshot is one historical layout kept for recovery.
type Snapshot struct {
	Scope  string
	Layout domain.Layout
	TS     time.Time
}

// Cache is the local SQLite database that keeps the dashboard state across
// sessions. It is safe for concurrent use.
type Cache struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// Path returns the database file inside dir.
func Path(dir string) string { return filepath.Join(dir, FileName) }

// Open creates dir if needed, opens the database in WAL mode and brings the
// schema up to date.
func Open(dir string) (*Cache, error) {
	l := applog.WithOperation(applog.WithComponent("cache"), "open").With(slog.String("dir", dir))
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("cache dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		l.Error("create cache dir failed", slog.Any("err", err))
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	path := Path(dir)
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		l.Error("sqlite open failed", slog.Any("err", err))
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		l.Error("enable WAL failed", slog.Any("err", err))
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	for _, step := range []func(context.Context, *sql.DB) error{ensureMetaAndVersion, ensureSchema, runMigrations} {
		if err := step(ctx, db); err != nil {
			_ = db.Close()
			l.Error("prepare schema failed", slog.Any("err", err))
			return nil, err
		}
	}
	l.Debug("cache ready", slog.String("path", path))
	return &Cache{db: db, path: path, logger: applog.WithComponent("cache")}, nil
}

// Close releases the database handle.
func (c *Cache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// FilePath is the location of the database file.
func (c *Cache) FilePath() string { return c.path }

func ensureMetaAndVersion(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS version (
			id          INTEGER PRIMARY KEY CHECK(id=1),
			schema      INTEGER NOT NULL,
			app         TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	appv := version.String()
	var cur int
	err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// A fresh database starts at schema 1 and migrates forward.
		if _, err := db.ExecContext(ctx, `INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, 1, ?, ?, ?)`, appv, now, now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	default:
		if _, err := db.ExecContext(ctx, `UPDATE version SET app=?, updated_at=? WHERE id=1`, appv, now); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
	}
	return nil
}

func ensureSchema(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS layout_state (
			id          INTEGER PRIMARY KEY CHECK(id=1),
			layout      TEXT NOT NULL,
			active_id   TEXT NOT NULL DEFAULT '',
			saved_at    TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS layout_snapshots (
			id      INTEGER PRIMARY KEY AUTOINCREMENT,
			scope   TEXT NOT NULL,
			ts      TEXT NOT NULL,
			layout  TEXT NOT NULL
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	return nil
}

func runMigrations(ctx context.Context, db *sql.DB) error {
	var cur int
	if err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	for cur < schemaVersion {
		next := cur + 1
		var stmts []string
		switch next {
		case 2:
			stmts = []string{`CREATE INDEX IF NOT EXISTS idx_layout_snapshots_scope_ts ON layout_snapshots(scope, ts);`}
		}
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", next, err)
		}
		for _, q := range stmts {
			if _, err := tx.ExecContext(ctx, q); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d stmt failed: %w", next, err)
			}
		}
		if _, err := tx.ExecContext(ctx, `UPDATE version SET schema=?, updated_at=? WHERE id=1`, next, time.Now().UTC().Format(time.RFC3339)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d update version: %w", next, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d commit: %w", next, err)
		}
		cur = next
	}
	return nil
}

// SchemaVersion reports the schema recorded in the version table.
func (c *Cache) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	err := c.db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&v)
	return v, err
}

// MetaLastTemplate holds the id of the template applied most recently.
const MetaLastTemplate = "last_template"

// SetMeta stores a free-form key/value pair.
func (c *Cache) SetMeta(ctx context.Context, key, value string) error {
	_, err := c.db.ExecContext(ctx, `INSERT INTO meta(key, value) VALUES(?, ?)
		ON CONFLICT(key) DO UPDATE SET value=excluded.value`, key, value)
	return err
}

// Meta returns the value for key and whether it exists.
func (c *Cache) Meta(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := c.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key=?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// SaveState replaces the persisted store state.
func (c *Cache) SaveState(ctx context.Context, st State) error {
	raw, err := json.Marshal(layoutOrEmpty(st.Layout))
	if err != nil {
		return fmt.Errorf("encode layout: %w", err)
	}
	ts := st.SavedAt
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err = c.db.ExecContext(ctx, `INSERT INTO layout_state(id, layout, active_id, saved_at) VALUES(1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET layout=excluded.layout, active_id=excluded.active_id, saved_at=excluded.saved_at`,
		string(raw), st.ActiveCollection, ts.UTC().Format(time.RFC3339Nano))
	if err != nil {
		c.logger.Warn("save state failed", slog.Any("err", err))
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

// LoadState returns the persisted state. ok is false when nothing was saved
// yet or the stored layout can no longer be decoded.
func (c *Cache) LoadState(ctx context.Context) (st State, ok bool, err error) {
	var raw, active, tsStr string
	err = c.db.QueryRowContext(ctx, `SELECT layout, active_id, saved_at FROM layout_state WHERE id=1`).Scan(&raw, &active, &tsStr)
	if errors.Is(err, sql.ErrNoRows) {
		return State{}, false, nil
	}
	if err != nil {
		return State{}, false, fmt.Errorf("load state: %w", err)
	}
	var l domain.Layout
	if err := json.Unmarshal([]byte(raw), &l); err != nil {
		c.logger.Warn("discarding unreadable cached layout", slog.Any("err", err))
		return State{}, false, nil
	}
	ts, _ := time.Parse(time.RFC3339Nano, tsStr)
	return State{Layout: layoutOrEmpty(l), ActiveCollection: active, SavedAt: ts}, true, nil
}

// ClearState forgets the persisted store state.
func (c *Cache) ClearState(ctx context.Context) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM layout_state WHERE id=1`)
	return err
}

func layoutOrEmpty(l domain.Layout) domain.Layout {
	if l == nil {
		return domain.Layout{}
	}
	return l
}
