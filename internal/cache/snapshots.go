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
	"time"

	"escapedash/internal/domain"
)

const (
	insertSnapshotSQL       = `INSERT INTO layout_snapshots(scope, ts, layout) VALUES(?, ?, ?)`
	selectLatestSnapshotSQL = `SELECT ts, layout FROM layout_snapshots WHERE scope = ? ORDER BY ts DESC, id DESC LIMIT 1`
	listSnapshotsSQL        = `SELECT ts, layout FROM layout_snapshots WHERE scope = ? ORDER BY ts DESC, id DESC LIMIT ?`
	pruneSnapshotsSQL       = `DELETE FROM layout_snapshots WHERE scope = ? AND id NOT IN (
	SELECT id FROM layout_snapshots WHERE scope = ? ORDER BY ts DESC, id DESC LIMIT ?
)`
)

// ErrNoSnapshot is returned by LatestSnapshot when the scope has none.
var ErrNoSnapshot = errors.New("cache: no snapshot")

// SaveSnapshot appends a layout to the history of scope (a collection id, or
// "" for the unsaved dashboard).
func (c *Cache) SaveSnapshot(ctx context.Context, scope string, l domain.Layout, ts time.Time) error {
	raw, err := json.Marshal(layoutOrEmpty(l))
	if err != nil {
		return fmt.Errorf("encode layout: %w", err)
	}
	// Fixed-width UTC timestamps keep the text column sortable.
	_, err = c.db.ExecContext(ctx, insertSnapshotSQL, scope, ts.UTC().Format(tsLayout), string(raw))
	return err
}

const tsLayout = "2006-01-02T15:04:05.000000000Z"

// LatestSnapshot returns the newest snapshot of scope.
func (c *Cache) LatestSnapshot(ctx context.Context, scope string) (Snapshot, error) {
	var tsStr, raw string
	err := c.db.QueryRowContext(ctx, selectLatestSnapshotSQL, scope).Scan(&tsStr, &raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Snapshot{}, ErrNoSnapshot
		}
		return Snapshot{}, err
	}
	return decodeSnapshot(scope, tsStr, raw)
}

// ListSnapshots returns up to limit snapshots of scope, newest first.
func (c *Cache) ListSnapshots(ctx context.Context, scope string, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := c.db.QueryContext(ctx, listSnapshotsSQL, scope, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []Snapshot
	for rows.Next() {
		var tsStr, raw string
		if err := rows.Scan(&tsStr, &raw); err != nil {
			return nil, err
		}
		s, err := decodeSnapshot(scope, tsStr, raw)
		if err != nil {
			continue
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// PruneSnapshots keeps the newest keep snapshots of scope and deletes the rest.
func (c *Cache) PruneSnapshots(ctx context.Context, scope string, keep int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}
	res, err := c.db.ExecContext(ctx, pruneSnapshotsSQL, scope, scope, keep)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func decodeSnapshot(scope, tsStr, raw string) (Snapshot, error) {
	var l domain.Layout
	if err := json.Unmarshal([]byte(raw), &l); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	ts, _ := time.Parse(tsLayout, tsStr)
	return Snapshot{Scope: scope, Layout: layoutOrEmpty(l), TS: ts}, nil
}
