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
	"fmt"
	"sort"

	"github.com/hashicorp/go-memdb"
)

const tblSnapshots = "snapshots"

var memorySchema = &memdb.DBSchema{
	Tables: map[string]*memdb.TableSchema{
		tblSnapshots: {
			Name: tblSnapshots,
			Indexes: map[string]*memdb.IndexSchema{
				"id": {
					Name:    "id",
					Unique:  true,
					Indexer: &memdb.StringFieldIndex{Field: "ID"},
				},
			},
		},
	},
}

// MemoryStore is an in-memory snapshot store for tests or ephemeral
// deployments. Snapshots do not survive a restart.
type MemoryStore struct {
	db *memdb.MemDB
}

// NewMemoryStore returns a new in-memory snapshot store.
func NewMemoryStore() (*MemoryStore, error) {
	db, err := memdb.NewMemDB(memorySchema)
	if err != nil {
		return nil, fmt.Errorf("new memdb: %w", err)
	}
	return &MemoryStore{db: db}, nil
}

// Put writes the snapshot, replacing any previous one for the same id.
func (s *MemoryStore) Put(_ context.Context, snapshot *Snapshot) error {
	txn := s.db.Txn(true)
	defer txn.Abort()

	if err := txn.Insert(tblSnapshots, snapshot); err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}

	txn.Commit()
	return nil
}

// Get returns the snapshot of the given document id.
func (s *MemoryStore) Get(_ context.Context, id string) (*Snapshot, error) {
	txn := s.db.Txn(false)
	defer txn.Abort()

	raw, err := txn.First(tblSnapshots, "id", id)
	if err != nil {
		return nil, fmt.Errorf("find snapshot: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	return raw.(*Snapshot), nil
}

// List returns every saved snapshot ordered by id.
func (s *MemoryStore) List(_ context.Context) ([]*Snapshot, error) {
	txn := s.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get(tblSnapshots, "id")
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}

	var snapshots []*Snapshot
	for raw := it.Next(); raw != nil; raw = it.Next() {
		snapshots = append(snapshots, raw.(*Snapshot))
	}
	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].ID < snapshots[j].ID
	})
	return snapshots, nil
}

// Close closes the store.
func (s *MemoryStore) Close() error {
	return nil
}
