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

// Package backend bundles the shared server-side state: the room registry,
// the broadcast channel and the snapshot store.
package backend

import (
	"fmt"

	"github.com/segue-live/segue/server/backend/pubsub"
	"github.com/segue-live/segue/server/backend/snapshot"
	"github.com/segue-live/segue/server/profiling/prometheus"
	"github.com/segue-live/segue/server/rooms"
)

// Snapshot store backends selectable in the configuration.
const (
	SnapshotStoreMemory = "memory"
	SnapshotStoreSQLite = "sqlite"
)

// Config is the configuration for creating a Backend instance.
type Config struct {
	// SnapshotStore selects the snapshot store backend, "memory" or
	// "sqlite".
	SnapshotStore string `yaml:"SnapshotStore" validate:"oneof=memory sqlite"`

	// SnapshotPath is the sqlite database path for the sqlite backend.
	SnapshotPath string `yaml:"SnapshotPath"`
}

// Validate validates this config.
func (c *Config) Validate() error {
	switch c.SnapshotStore {
	case SnapshotStoreMemory:
	case SnapshotStoreSQLite:
		if c.SnapshotPath == "" {
			return fmt.Errorf("sqlite snapshot store requires a snapshot path")
		}
	default:
		return fmt.Errorf("unknown snapshot store: %q", c.SnapshotStore)
	}
	return nil
}

// Backend is the shared state of the server. Every room connection works
// against the same backend.
type Backend struct {
	Rooms     *rooms.Registry
	PubSub    *pubsub.PubSub
	Snapshots snapshot.Store
	Metrics   *prometheus.Metrics
}

// New creates a new instance of Backend.
func New(conf *Config, metrics *prometheus.Metrics) (*Backend, error) {
	var store snapshot.Store
	var err error
	switch conf.SnapshotStore {
	case SnapshotStoreSQLite:
		store, err = snapshot.NewSQLiteStore(conf.SnapshotPath)
	default:
		store, err = snapshot.NewMemoryStore()
	}
	if err != nil {
		return nil, fmt.Errorf("create snapshot store: %w", err)
	}

	return &Backend{
		Rooms:     rooms.NewRegistry(),
		PubSub:    pubsub.New(),
		Snapshots: store,
		Metrics:   metrics,
	}, nil
}

// Shutdown closes the backend.
func (b *Backend) Shutdown() error {
	if err := b.Snapshots.Close(); err != nil {
		return fmt.Errorf("close snapshot store: %w", err)
	}
	return nil
}
