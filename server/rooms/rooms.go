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

// Package rooms provides the registry of active rooms and the single
// serialization point per room. Mutations from any number of connections
// are applied one at a time under the room's named lock, producing a total
// order; different rooms never contend.
package rooms

import (
	"context"
	"errors"
	"fmt"

	"github.com/segue-live/segue/api/types"
	"github.com/segue-live/segue/pkg/cmap"
	"github.com/segue-live/segue/pkg/document"
	"github.com/segue-live/segue/pkg/locker"
	"github.com/segue-live/segue/pkg/presence"
	"github.com/segue-live/segue/server/logging"
)

// ErrRoomNotFound is returned when addressing a room that was never joined.
var ErrRoomNotFound = errors.New("room not found")

// Registry holds every active room of this server. Rooms are created on
// first join and live for the lifetime of the process; this subsystem never
// deletes a document.
type Registry struct {
	rooms   *cmap.Map[string, *Room]
	lockers *locker.Locker
}

// NewRegistry creates a new room registry.
func NewRegistry() *Registry {
	return &Registry{
		rooms:   cmap.New[string, *Room](),
		lockers: locker.New(),
	}
}

func lockKey(roomID string) string {
	return fmt.Sprintf("room-%s", roomID)
}

// GetOrCreate returns the room with the given id, creating and seeding it
// on first join. The seed payload only applies to the creating join;
// malformed seed data falls back to the default document and is never
// surfaced to the joining client. The returned bool reports whether this
// call created the room.
func (r *Registry) GetOrCreate(ctx context.Context, roomID string, seed string) (*Room, bool) {
	created := false
	room := r.rooms.Upsert(roomID, func(room *Room, exists bool) *Room {
		if exists {
			return room
		}

		created = true
		doc := SeedDocument(ctx, seed)
		logging.From(ctx).Infof("room %s created with document %s", roomID, doc.ID)
		return newRoom(roomID, doc)
	})
	return room, created
}

// Get returns the room with the given id.
func (r *Registry) Get(roomID string) (*Room, error) {
	room, ok := r.rooms.Get(roomID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRoomNotFound, roomID)
	}
	return room, nil
}

// Len returns the number of active rooms.
func (r *Registry) Len() int {
	return r.rooms.Len()
}

// Apply runs one mutation against the room's authoritative document under
// the room's lock and returns a deep copy of the post-mutation document
// together with its sequence number. The returned bool reports whether the
// document actually changed; no-op mutations still consume a sequence
// number so the originator receives its confirmation broadcast.
//
// A non-nil notify runs before the lock is released, so notifications for
// one room are emitted in sequence order. Publishing outside the lock would
// let two goroutines race between apply and publish and deliver documents
// out of order.
func (r *Registry) Apply(
	ctx context.Context,
	roomID string,
	m *types.Mutation,
	notify func(doc *document.Document, seq int64),
) (*document.Document, int64, bool, error) {
	if err := m.Validate(); err != nil {
		return nil, 0, false, err
	}

	room, err := r.Get(roomID)
	if err != nil {
		return nil, 0, false, err
	}

	key := lockKey(roomID)
	r.lockers.Lock(key)
	defer func() {
		if err := r.lockers.Unlock(key); err != nil {
			logging.From(ctx).Errorf("unlock %s: %v", key, err)
		}
	}()

	applied := room.apply(m)
	room.seq++
	doc := room.doc.DeepCopy()
	if notify != nil {
		notify(doc, room.seq)
	}
	return doc, room.seq, applied, nil
}

// Snapshot returns a deep copy of the room's current document and its
// sequence number.
func (r *Registry) Snapshot(ctx context.Context, roomID string) (*document.Document, int64, error) {
	room, err := r.Get(roomID)
	if err != nil {
		return nil, 0, err
	}

	key := lockKey(roomID)
	r.lockers.Lock(key)
	defer func() {
		if err := r.lockers.Unlock(key); err != nil {
			logging.From(ctx).Errorf("unlock %s: %v", key, err)
		}
	}()

	return room.doc.DeepCopy(), room.seq, nil
}

// SetPresence stores the presence record of the given session. Presence is
// advisory and unordered, so it bypasses the room's mutation lock.
func (r *Registry) SetPresence(roomID, sessionID string, p *presence.Presence) error {
	room, err := r.Get(roomID)
	if err != nil {
		return err
	}
	room.peers.Set(sessionID, p.Clone())
	return nil
}

// RemovePresence drops the presence record of the given session. Removal is
// unconditional: there is no grace period and no reconnect replay.
func (r *Registry) RemovePresence(roomID, sessionID string) {
	room, ok := r.rooms.Get(roomID)
	if !ok {
		return
	}
	room.peers.Delete(sessionID, func(_ *presence.Presence, exists bool) bool {
		return exists
	})
}

// Peers returns a copy of the presence records currently in the room.
func (r *Registry) Peers(roomID string) map[string]*presence.Presence {
	room, ok := r.rooms.Get(roomID)
	if !ok {
		return nil
	}

	peers := make(map[string]*presence.Presence)
	for _, sessionID := range room.peers.Keys() {
		if p, ok := room.peers.Get(sessionID); ok {
			peers[sessionID] = p.Clone()
		}
	}
	return peers
}
