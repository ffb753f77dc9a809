/*
 * Copyright 2025 The Segue Authors. All rights reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package snapshot

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // pure-Go sqlite driver

	"github.com/segue-live/segue/pkg/document"
)

// SQLiteStore is a snapshot store persisted to a local sqlite database. It
// is the durable backend: saved snapshots survive a server restart even
// though the live room state does not.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the snapshot database at the given
// path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot database: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS snapshots (
		id         TEXT NOT NULL PRIMARY KEY,
		event_name TEXT NOT NULL,
		start_date TEXT NOT NULL,
		items      TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create snapshot table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Put writes the snapshot, replacing any previous one for the same id.
func (s *SQLiteStore) Put(ctx context.Context, snapshot *Snapshot) error {
	items, err := json.Marshal(snapshot.Items)
	if err != nil {
		return fmt.Errorf("marshal snapshot items: %w", err)
	}

	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO snapshots (id, event_name, start_date, items, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   event_name = excluded.event_name,
		   start_date = excluded.start_date,
		   items      = excluded.items,
		   created_at = excluded.created_at`,
		snapshot.ID,
		snapshot.EventName,
		snapshot.StartDate,
		string(items),
		snapshot.CreatedAt.UTC().Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("persist snapshot: %w", err)
	}
	return nil
}

// Get returns the snapshot of the given document id.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Snapshot, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, event_name, start_date, items, created_at FROM snapshots WHERE id = ?`, id,
	)

	snapshot, err := scanSnapshot(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return snapshot, err
}

// List returns every saved snapshot ordered by id.
func (s *SQLiteStore) List(ctx context.Context) ([]*Snapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, event_name, start_date, items, created_at FROM snapshots ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var snapshots []*Snapshot
	for rows.Next() {
		snapshot, err := scanSnapshot(rows.Scan)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snapshot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	return snapshots, nil
}

// Close closes the store.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close snapshot database: %w", err)
	}
	return nil
}

func scanSnapshot(scan func(dest ...any) error) (*Snapshot, error) {
	var snapshot Snapshot
	var rawItems, rawCreatedAt string
	if err := scan(
		&snapshot.ID,
		&snapshot.EventName,
		&snapshot.StartDate,
		&rawItems,
		&rawCreatedAt,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(rawItems), &snapshot.Items); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot items: %w", err)
	}
	if snapshot.Items == nil {
		snapshot.Items = []document.Item{}
	}

	createdAt, err := time.Parse(time.RFC3339Nano, rawCreatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse snapshot created_at: %w", err)
	}
	snapshot.CreatedAt = createdAt
	return &snapshot, nil
}
