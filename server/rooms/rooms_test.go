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

package rooms_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/segue-live/segue/api/types"
	"github.com/segue-live/segue/pkg/document"
	"github.com/segue-live/segue/pkg/presence"
	"github.com/segue-live/segue/server/rooms"
)

func TestRegistry(t *testing.T) {
	ctx := context.Background()

	t.Run("first join creates the room, later joins reuse it", func(t *testing.T) {
		registry := rooms.NewRegistry()

		roomA, created := registry.GetOrCreate(ctx, "room-1", "")
		assert.True(t, created)
		roomB, created := registry.GetOrCreate(ctx, "room-1", `{"name":"ignored on second join"}`)
		assert.False(t, created)
		assert.Same(t, roomA, roomB)
		assert.Equal(t, 1, registry.Len())

		doc, seq, err := registry.Snapshot(ctx, "room-1")
		assert.NoError(t, err)
		assert.Equal(t, int64(0), seq)
		assert.Equal(t, document.DefaultEventName, doc.EventName)
	})

	t.Run("mutations against an unknown room fail", func(t *testing.T) {
		registry := rooms.NewRegistry()
		_, _, _, err := registry.Apply(ctx, "missing", &types.Mutation{Op: types.OpSetEventName}, nil)
		assert.ErrorIs(t, err, rooms.ErrRoomNotFound)
	})

	t.Run("invalid mutations are rejected before application", func(t *testing.T) {
		registry := rooms.NewRegistry()
		registry.GetOrCreate(ctx, "room-1", "")

		_, _, _, err := registry.Apply(ctx, "room-1", &types.Mutation{Op: "explode"}, nil)
		assert.ErrorIs(t, err, types.ErrInvalidMutation)

		_, _, _, err = registry.Apply(ctx, "room-1", &types.Mutation{Op: types.OpAddItem}, nil)
		assert.ErrorIs(t, err, types.ErrInvalidMutation)
	})

	t.Run("last writer wins on scalar fields", func(t *testing.T) {
		registry := rooms.NewRegistry()
		registry.GetOrCreate(ctx, "room-1", "")

		// Client A and client B race; B's mutation arrives second and
		// overwrites the field in full.
		_, _, _, err := registry.Apply(ctx, "room-1", &types.Mutation{
			Op: types.OpSetEventName, EventName: "Kickoff",
		}, nil)
		assert.NoError(t, err)
		doc, seq, _, err := registry.Apply(ctx, "room-1", &types.Mutation{
			Op: types.OpSetEventName, EventName: "Launch",
		}, nil)
		assert.NoError(t, err)

		assert.Equal(t, "Launch", doc.EventName)
		assert.Equal(t, int64(2), seq)
	})

	t.Run("no-op mutations still consume a sequence number", func(t *testing.T) {
		registry := rooms.NewRegistry()
		registry.GetOrCreate(ctx, "room-1", "")

		_, seq, applied, err := registry.Apply(ctx, "room-1", &types.Mutation{
			Op: types.OpRemoveItem, ItemID: "missing",
		}, nil)
		assert.NoError(t, err)
		assert.False(t, applied)
		assert.Equal(t, int64(1), seq)
	})

	t.Run("concurrent item mutations apply in some total order", func(t *testing.T) {
		registry := rooms.NewRegistry()
		registry.GetOrCreate(ctx, "room-1", "")

		const clients = 8
		const perClient = 25

		var wg sync.WaitGroup
		for c := 0; c < clients; c++ {
			wg.Add(1)
			go func(c int) {
				defer wg.Done()
				for i := 0; i < perClient; i++ {
					id := fmt.Sprintf("item-%d-%d", c, i)
					_, _, applied, err := registry.Apply(ctx, "room-1", &types.Mutation{
						Op:   types.OpAddItem,
						Item: &document.Item{ID: id, DurationInMinutes: 5},
					}, nil)
					assert.NoError(t, err)
					assert.True(t, applied)
				}
			}(c)
		}
		wg.Wait()

		// Every add is visible exactly once and the sequence counted
		// every arrival: the mutations were serialized, not interleaved.
		doc, seq, err := registry.Snapshot(ctx, "room-1")
		assert.NoError(t, err)
		assert.Len(t, doc.Items, clients*perClient)
		assert.Equal(t, int64(clients*perClient), seq)

		seen := map[string]bool{}
		for _, item := range doc.Items {
			assert.False(t, seen[item.ID])
			seen[item.ID] = true
		}
	})

	t.Run("interleaved add and remove converge to the arrival-order result", func(t *testing.T) {
		registry := rooms.NewRegistry()
		registry.GetOrCreate(ctx, "room-1", "")

		ops := []*types.Mutation{
			{Op: types.OpAddItem, Item: &document.Item{ID: "x", DurationInMinutes: 30}},
			{Op: types.OpAddItem, Item: &document.Item{ID: "y", DurationInMinutes: 60}},
			{Op: types.OpRemoveItem, ItemID: "x"},
			{Op: types.OpAddItem, Item: &document.Item{ID: "z", DurationInMinutes: 10}},
			{Op: types.OpUpdateItem, ItemID: "y", Name: "Keynote", DurationInMinutes: 45},
		}
		for _, op := range ops {
			_, _, _, err := registry.Apply(ctx, "room-1", op, nil)
			assert.NoError(t, err)
		}

		// The same ops applied sequentially to a fresh document give the
		// same final state.
		expected := document.New("expected")
		expected.AddItem(document.Item{ID: "x", DurationInMinutes: 30})
		expected.AddItem(document.Item{ID: "y", DurationInMinutes: 60})
		expected.RemoveItem("x")
		expected.AddItem(document.Item{ID: "z", DurationInMinutes: 10})
		expected.UpdateItem("y", "Keynote", 45)

		doc, _, err := registry.Snapshot(ctx, "room-1")
		assert.NoError(t, err)
		assert.Equal(t, expected.Items, doc.Items)
	})

	t.Run("notifications leave in sequence order under contention", func(t *testing.T) {
		registry := rooms.NewRegistry()
		registry.GetOrCreate(ctx, "room-1", "")

		const clients = 8
		const perClient = 25

		var mu sync.Mutex
		var emitted []int64

		var wg sync.WaitGroup
		for c := 0; c < clients; c++ {
			wg.Add(1)
			go func(c int) {
				defer wg.Done()
				for i := 0; i < perClient; i++ {
					_, _, _, err := registry.Apply(ctx, "room-1", &types.Mutation{
						Op:        types.OpSetEventName,
						EventName: fmt.Sprintf("name-%d-%d", c, i),
					}, func(_ *document.Document, seq int64) {
						mu.Lock()
						emitted = append(emitted, seq)
						mu.Unlock()
					})
					assert.NoError(t, err)
				}
			}(c)
		}
		wg.Wait()

		// The callback runs before the room lock is released, so the emit
		// order is exactly the sequence order. A notification after unlock
		// could be overtaken by a later mutation's and reach subscribers
		// with an older document last.
		assert.Len(t, emitted, clients*perClient)
		for i, seq := range emitted {
			assert.Equal(t, int64(i+1), seq)
		}
	})
}

func TestPresenceRegistry(t *testing.T) {
	ctx := context.Background()

	t.Run("presence set, listed and removed per session", func(t *testing.T) {
		registry := rooms.NewRegistry()
		registry.GetOrCreate(ctx, "room-1", "")

		field := "eventName"
		assert.NoError(t, registry.SetPresence("room-1", "session-a", &presence.Presence{
			UserName:     "User1",
			FocusedField: &field,
		}))
		assert.NoError(t, registry.SetPresence("room-1", "session-b", &presence.Presence{
			UserName: "User2",
		}))

		peers := registry.Peers("room-1")
		assert.Len(t, peers, 2)
		assert.Equal(t, "eventName", *peers["session-a"].FocusedField)

		registry.RemovePresence("room-1", "session-a")
		peers = registry.Peers("room-1")
		assert.Len(t, peers, 1)
		assert.NotContains(t, peers, "session-a")
	})

	t.Run("peers returns copies", func(t *testing.T) {
		registry := rooms.NewRegistry()
		registry.GetOrCreate(ctx, "room-1", "")
		assert.NoError(t, registry.SetPresence("room-1", "session-a", &presence.Presence{UserName: "User1"}))

		peers := registry.Peers("room-1")
		peers["session-a"].UserName = "changed"

		again := registry.Peers("room-1")
		assert.Equal(t, "User1", again["session-a"].UserName)
	})

	t.Run("presence for an unknown room is rejected", func(t *testing.T) {
		registry := rooms.NewRegistry()
		err := registry.SetPresence("missing", "session-a", &presence.Presence{})
		assert.ErrorIs(t, err, rooms.ErrRoomNotFound)
		registry.RemovePresence("missing", "session-a")
		assert.Nil(t, registry.Peers("missing"))
	})
}
