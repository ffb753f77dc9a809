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

package pubsub_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/segue-live/segue/api/types"
	"github.com/segue-live/segue/server/backend/pubsub"
)

func receiveOne(t *testing.T, sub *pubsub.Subscription) types.Message {
	t.Helper()
	select {
	case event := <-sub.Events():
		return event
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return types.Message{}
	}
}

func TestPubSub(t *testing.T) {
	ctx := context.Background()

	t.Run("publish reaches every subscriber of the room", func(t *testing.T) {
		ps := pubsub.New()
		subA := ps.Subscribe(ctx, "room-1", "session-a")
		subB := ps.Subscribe(ctx, "room-1", "session-b")
		defer ps.Unsubscribe(ctx, "room-1", subA)
		defer ps.Unsubscribe(ctx, "room-1", subB)

		ps.Publish(ctx, "room-1", types.Message{Type: types.MessageDocument, Seq: 1}, "")

		assert.Equal(t, int64(1), receiveOne(t, subA).Seq)
		assert.Equal(t, int64(1), receiveOne(t, subB).Seq)
	})

	t.Run("excluded session does not receive the event", func(t *testing.T) {
		ps := pubsub.New()
		subA := ps.Subscribe(ctx, "room-1", "session-a")
		subB := ps.Subscribe(ctx, "room-1", "session-b")
		defer ps.Unsubscribe(ctx, "room-1", subA)
		defer ps.Unsubscribe(ctx, "room-1", subB)

		ps.Publish(ctx, "room-1", types.Message{Type: types.MessagePresence}, "session-a")

		assert.Equal(t, types.MessagePresence, receiveOne(t, subB).Type)
		select {
		case event := <-subA.Events():
			t.Fatalf("unexpected event for excluded session: %v", event)
		case <-time.After(50 * time.Millisecond):
		}
	})

	t.Run("rooms are isolated", func(t *testing.T) {
		ps := pubsub.New()
		subA := ps.Subscribe(ctx, "room-1", "session-a")
		subB := ps.Subscribe(ctx, "room-2", "session-b")
		defer ps.Unsubscribe(ctx, "room-1", subA)
		defer ps.Unsubscribe(ctx, "room-2", subB)

		ps.Publish(ctx, "room-1", types.Message{Type: types.MessageDocument}, "")

		assert.Equal(t, types.MessageDocument, receiveOne(t, subA).Type)
		select {
		case event := <-subB.Events():
			t.Fatalf("event leaked across rooms: %v", event)
		case <-time.After(50 * time.Millisecond):
		}
	})

	t.Run("unsubscribe closes the event channel", func(t *testing.T) {
		ps := pubsub.New()
		sub := ps.Subscribe(ctx, "room-1", "session-a")
		ps.Unsubscribe(ctx, "room-1", sub)

		_, open := <-sub.Events()
		assert.False(t, open)
		assert.Empty(t, ps.SessionIDs("room-1"))
	})

	t.Run("publishing to a closed subscription does not panic", func(t *testing.T) {
		ps := pubsub.New()
		subA := ps.Subscribe(ctx, "room-1", "session-a")
		subB := ps.Subscribe(ctx, "room-1", "session-b")
		subA.Close()

		ps.Publish(ctx, "room-1", types.Message{Type: types.MessageDocument}, "")
		assert.Equal(t, types.MessageDocument, receiveOne(t, subB).Type)

		ps.Unsubscribe(ctx, "room-1", subA)
		ps.Unsubscribe(ctx, "room-1", subB)
	})

	t.Run("session ids reflect current subscribers", func(t *testing.T) {
		ps := pubsub.New()
		subA := ps.Subscribe(ctx, "room-1", "session-a")
		subB := ps.Subscribe(ctx, "room-1", "session-b")

		assert.ElementsMatch(t, []string{"session-a", "session-b"}, ps.SessionIDs("room-1"))

		ps.Unsubscribe(ctx, "room-1", subA)
		assert.ElementsMatch(t, []string{"session-b"}, ps.SessionIDs("room-1"))

		ps.Unsubscribe(ctx, "room-1", subB)
		assert.Empty(t, ps.SessionIDs("room-1"))
	})
}
