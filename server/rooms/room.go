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

package rooms

import (
	"time"

	"github.com/segue-live/segue/api/types"
	"github.com/segue-live/segue/pkg/cmap"
	"github.com/segue-live/segue/pkg/document"
	"github.com/segue-live/segue/pkg/presence"
)

// Room is one isolated collaboration session: the authoritative document
// plus the presence records of the currently connected sessions. The
// document is mutated only through the registry, which holds the room's
// named lock while applying; presence carries no ordering guarantee and
// lives in its own concurrent map.
type Room struct {
	id        string
	createdAt time.Time

	// doc and seq are guarded by the registry's named lock for this room.
	doc *document.Document
	seq int64

	peers *cmap.Map[string, *presence.Presence]
}

func newRoom(id string, doc *document.Document) *Room {
	return &Room{
		id:        id,
		createdAt: time.Now(),
		doc:       doc,
		peers:     cmap.New[string, *presence.Presence](),
	}
}

// ID returns the opaque room identifier.
func (r *Room) ID() string {
	return r.id
}

// apply runs one mutation against the authoritative document. The caller
// holds the room lock. It reports whether the document changed; a silent
// no-op (duplicate add, absent id, stale reorder index) reports false.
func (r *Room) apply(m *types.Mutation) bool {
	switch m.Op {
	case types.OpSetEventName:
		r.doc.SetEventName(m.EventName)
		return true
	case types.OpSetStartDate:
		r.doc.SetStartDate(m.StartDate)
		return true
	case types.OpAddItem:
		return r.doc.AddItem(*m.Item)
	case types.OpRemoveItem:
		return r.doc.RemoveItem(m.ItemID)
	case types.OpUpdateItem:
		return r.doc.UpdateItem(m.ItemID, m.Name, m.DurationInMinutes)
	case types.OpReorderItems:
		return r.doc.ReorderItems(m.OldIndex, m.NewIndex)
	}
	return false
}
