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

package snapshot_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/segue-live/segue/pkg/document"
	"github.com/segue-live/segue/server/backend/snapshot"
)

func TestFromDocument(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	t.Run("complete document becomes a snapshot with createdAt", func(t *testing.T) {
		doc := document.New("doc-1")
		doc.SetEventName("Launch Party")
		doc.SetStartDate("2024-01-01T10:00:00Z")
		doc.AddItem(document.Item{ID: "x", Name: "Opening", DurationInMinutes: 30})

		snap, err := snapshot.FromDocument(doc, now)
		assert.NoError(t, err)
		assert.Equal(t, "doc-1", snap.ID)
		assert.Equal(t, "Launch Party", snap.EventName)
		assert.Equal(t, now, snap.CreatedAt)

		// The snapshot does not alias the live items.
		snap.Items[0].Name = "changed"
		assert.Equal(t, "Opening", doc.Items[0].Name)
	})

	t.Run("incomplete documents are rejected", func(t *testing.T) {
		complete := func() *document.Document {
			doc := document.New("doc-1")
			doc.SetEventName("Launch Party")
			doc.SetStartDate("2024-01-01T10:00:00Z")
			doc.AddItem(document.Item{ID: "x", DurationInMinutes: 30})
			return doc
		}

		doc := complete()
		doc.SetEventName("")
		_, err := snapshot.FromDocument(doc, now)
		assert.ErrorIs(t, err, snapshot.ErrIncompleteDocument)

		doc = complete()
		doc.SetStartDate("")
		_, err = snapshot.FromDocument(doc, now)
		assert.ErrorIs(t, err, snapshot.ErrIncompleteDocument)

		doc = complete()
		doc.RemoveItem("x")
		_, err = snapshot.FromDocument(doc, now)
		assert.ErrorIs(t, err, snapshot.ErrIncompleteDocument)
	})
}

func TestStores(t *testing.T) {
	ctx := context.Background()

	stores := map[string]func(t *testing.T) snapshot.Store{
		"memory": func(t *testing.T) snapshot.Store {
			store, err := snapshot.NewMemoryStore()
			assert.NoError(t, err)
			return store
		},
		"sqlite": func(t *testing.T) snapshot.Store {
			store, err := snapshot.NewSQLiteStore(filepath.Join(t.TempDir(), "snapshots.db"))
			assert.NoError(t, err)
			return store
		},
	}

	newSnapshot := func(id string) *snapshot.Snapshot {
		return &snapshot.Snapshot{
			ID:        id,
			EventName: "Launch Party",
			StartDate: "2024-01-01T10:00:00Z",
			Items: []document.Item{
				{ID: "x", Name: "Opening", DurationInMinutes: 30},
				{ID: "y", Name: "Keynote", DurationInMinutes: 60},
			},
			CreatedAt: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		}
	}

	for name, newStore := range stores {
		t.Run(name, func(t *testing.T) {
			t.Run("put and get round-trips", func(t *testing.T) {
				store := newStore(t)
				defer func() {
					assert.NoError(t, store.Close())
				}()

				assert.NoError(t, store.Put(ctx, newSnapshot("doc-1")))

				got, err := store.Get(ctx, "doc-1")
				assert.NoError(t, err)
				assert.Equal(t, "Launch Party", got.EventName)
				assert.Len(t, got.Items, 2)
				assert.Equal(t, "Keynote", got.Items[1].Name)
			})

			t.Run("get of an unsaved id fails", func(t *testing.T) {
				store := newStore(t)
				defer func() {
					assert.NoError(t, store.Close())
				}()

				_, err := store.Get(ctx, "missing")
				assert.ErrorIs(t, err, snapshot.ErrNotFound)
			})

			t.Run("saving again overwrites", func(t *testing.T) {
				store := newStore(t)
				defer func() {
					assert.NoError(t, store.Close())
				}()

				assert.NoError(t, store.Put(ctx, newSnapshot("doc-1")))

				updated := newSnapshot("doc-1")
				updated.EventName = "Rescheduled Party"
				updated.CreatedAt = updated.CreatedAt.Add(time.Hour)
				assert.NoError(t, store.Put(ctx, updated))

				got, err := store.Get(ctx, "doc-1")
				assert.NoError(t, err)
				assert.Equal(t, "Rescheduled Party", got.EventName)

				all, err := store.List(ctx)
				assert.NoError(t, err)
				assert.Len(t, all, 1)
			})

			t.Run("list is ordered by id", func(t *testing.T) {
				store := newStore(t)
				defer func() {
					assert.NoError(t, store.Close())
				}()

				assert.NoError(t, store.Put(ctx, newSnapshot("doc-b")))
				assert.NoError(t, store.Put(ctx, newSnapshot("doc-a")))

				all, err := store.List(ctx)
				assert.NoError(t, err)
				assert.Len(t, all, 2)
				assert.Equal(t, "doc-a", all[0].ID)
				assert.Equal(t, "doc-b", all[1].ID)
			})
		})
	}
}
