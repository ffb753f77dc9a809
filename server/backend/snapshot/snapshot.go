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

// Package snapshot provides the explicitly-saved copies of documents. The
// snapshot store is separate from the live room state: it is written only
// on an explicit save action, so the live document and the last saved
// snapshot can diverge until the user saves again.
package snapshot

import (
	"context"
	"errors"
	"time"

	"github.com/segue-live/segue/pkg/document"
)

var (
	// ErrNotFound is returned when no snapshot exists for the document id.
	ErrNotFound = errors.New("snapshot not found")

	// ErrIncompleteDocument is returned when saving a document that is
	// missing its name, its start date or has no items. No partial save is
	// written.
	ErrIncompleteDocument = errors.New("document is incomplete")
)

// Snapshot is one saved copy of a document, keyed by the document id.
// CreatedAt is set at save time and does not exist on the live document.
type Snapshot struct {
	ID        string          `json:"id"`
	EventName string          `json:"name"`
	StartDate string          `json:"startDate"`
	Items     []document.Item `json:"items"`
	CreatedAt time.Time       `json:"createdAt"`
}

// FromDocument builds a snapshot of the given document, rejecting
// incomplete documents before anything is written.
func FromDocument(doc *document.Document, now time.Time) (*Snapshot, error) {
	if doc.ID == "" || doc.EventName == "" || doc.StartDate == "" || len(doc.Items) == 0 {
		return nil, ErrIncompleteDocument
	}

	items := make([]document.Item, len(doc.Items))
	copy(items, doc.Items)

	return &Snapshot{
		ID:        doc.ID,
		EventName: doc.EventName,
		StartDate: doc.StartDate,
		Items:     items,
		CreatedAt: now,
	}, nil
}

// Store is a key-value store of saved snapshots, keyed by document id.
// Saving the same document again overwrites the previous snapshot.
type Store interface {
	// Put writes the snapshot, replacing any previous one for the same id.
	Put(ctx context.Context, snapshot *Snapshot) error

	// Get returns the snapshot of the given document id.
	Get(ctx context.Context, id string) (*Snapshot, error)

	// List returns every saved snapshot ordered by id.
	List(ctx context.Context) ([]*Snapshot, error)

	// Close closes the store.
	Close() error
}
