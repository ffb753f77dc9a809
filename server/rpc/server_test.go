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

package rpc_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/segue-live/segue/api/types"
	"github.com/segue-live/segue/pkg/document"
	"github.com/segue-live/segue/pkg/presence"
	"github.com/segue-live/segue/server/backend"
	"github.com/segue-live/segue/server/profiling/prometheus"
	"github.com/segue-live/segue/server/rpc"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	metrics, err := prometheus.NewMetrics()
	require.NoError(t, err)

	be, err := backend.New(&backend.Config{
		SnapshotStore: backend.SnapshotStoreMemory,
	}, metrics)
	require.NoError(t, err)

	svr := rpc.NewServer(&rpc.Config{Port: 0}, be)
	ts := httptest.NewServer(svr.Handler())
	t.Cleanup(func() {
		ts.Close()
		assert.NoError(t, be.Shutdown())
	})
	return ts
}

// dial opens a room connection and consumes the init frame.
func dial(t *testing.T, ts *httptest.Server, room, seed string) (*websocket.Conn, types.Message) {
	t.Helper()

	u := "ws" + strings.TrimPrefix(ts.URL, "http") + "/rooms/" + room + "/sync"
	if seed != "" {
		u += "?data=" + url.QueryEscape(seed)
	}
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	init := readFrame(t, conn, types.MessageInit)
	require.NotEmpty(t, init.SessionID)
	require.NotNil(t, init.Document)
	return conn, init
}

// readFrame reads frames until one of the wanted type arrives.
func readFrame(t *testing.T, conn *websocket.Conn, want types.MessageType) types.Message {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		var msg types.Message
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type == want {
			return msg
		}
	}
}

func sendMutation(t *testing.T, conn *websocket.Conn, m *types.Mutation) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(types.Message{
		Type:     types.MessageMutation,
		Mutation: m,
	}))
}

func TestSync(t *testing.T) {
	t.Run("init carries the current document test", func(t *testing.T) {
		ts := newTestServer(t)

		connA, _ := dial(t, ts, "r1", "")
		sendMutation(t, connA, &types.Mutation{
			Op:        types.OpSetEventName,
			EventName: "Launch Day",
		})
		readFrame(t, connA, types.MessageDocument)

		_, init := dial(t, ts, "r1", "")
		assert.Equal(t, "Launch Day", init.Document.EventName)
		assert.Equal(t, int64(1), init.Seq)
	})

	t.Run("seed parameter populates a fresh room test", func(t *testing.T) {
		ts := newTestServer(t)

		seed := `{"id":"evt1","name":"Conference","startDate":"2025-06-01T09:00:00Z",` +
			`"items":[{"id":"a","name":"Keynote","durationInMinutes":45}]}`
		_, init := dial(t, ts, "seeded", seed)
		assert.Equal(t, "evt1", init.Document.ID)
		assert.Equal(t, "Conference", init.Document.EventName)
		require.Len(t, init.Document.Items, 1)
		assert.Equal(t, "Keynote", init.Document.Items[0].Name)
	})

	t.Run("mutation broadcast reaches every session test", func(t *testing.T) {
		ts := newTestServer(t)

		connA, _ := dial(t, ts, "r2", "")
		connB, _ := dial(t, ts, "r2", "")

		sendMutation(t, connA, &types.Mutation{
			Op:   types.OpAddItem,
			Item: &document.Item{ID: "i1", Name: "Soundcheck", DurationInMinutes: 30},
		})

		for _, conn := range []*websocket.Conn{connA, connB} {
			msg := readFrame(t, conn, types.MessageDocument)
			assert.Equal(t, int64(1), msg.Seq)
			require.Len(t, msg.Document.Items, 1)
			assert.Equal(t, "Soundcheck", msg.Document.Items[0].Name)
		}
	})

	t.Run("invalid mutation returns an error frame test", func(t *testing.T) {
		ts := newTestServer(t)

		connA, _ := dial(t, ts, "r3", "")
		sendMutation(t, connA, &types.Mutation{Op: "explode"})

		msg := readFrame(t, connA, types.MessageError)
		assert.NotEmpty(t, msg.Error)
	})

	t.Run("presence reaches other sessions only test", func(t *testing.T) {
		ts := newTestServer(t)

		connA, initA := dial(t, ts, "r4", "")
		connB, _ := dial(t, ts, "r4", "")

		field := "eventName"
		require.NoError(t, connA.WriteJSON(types.Message{
			Type: types.MessagePresence,
			Presence: &presence.Presence{
				UserName:     "User42",
				Color:        "hsl(120, 70%, 60%)",
				FocusedField: &field,
			},
		}))

		msg := readFrame(t, connB, types.MessagePresence)
		assert.Equal(t, initA.SessionID, msg.SessionID)
		assert.Equal(t, "User42", msg.Presence.UserName)
		require.NotNil(t, msg.Presence.FocusedField)
		assert.Equal(t, "eventName", *msg.Presence.FocusedField)

		// The originator gets no echo back; a follow-up mutation is the
		// next frame it sees.
		sendMutation(t, connA, &types.Mutation{Op: types.OpSetEventName, EventName: "x"})
		next := readFrame(t, connA, types.MessageDocument)
		assert.Equal(t, types.MessageDocument, next.Type)
	})

	t.Run("peers appear in init and leave notifications test", func(t *testing.T) {
		ts := newTestServer(t)

		connA, initA := dial(t, ts, "r5", "")
		require.NoError(t, connA.WriteJSON(types.Message{
			Type:     types.MessagePresence,
			Presence: &presence.Presence{UserName: "User7", Color: "hsl(1, 70%, 60%)"},
		}))

		var connB *websocket.Conn
		require.Eventually(t, func() bool {
			conn, init := dial(t, ts, "r5", "")
			if _, ok := init.Peers[initA.SessionID]; ok {
				connB = conn
				return true
			}
			_ = conn.Close()
			return false
		}, 3*time.Second, 50*time.Millisecond)

		require.NoError(t, connA.Close())
		msg := readFrame(t, connB, types.MessagePeerLeft)
		assert.Equal(t, initA.SessionID, msg.SessionID)
	})

	t.Run("save rejects an incomplete document test", func(t *testing.T) {
		ts := newTestServer(t)

		// A fresh room has no items, so the snapshot is incomplete.
		connA, _ := dial(t, ts, "r6", "")
		require.NoError(t, connA.WriteJSON(types.Message{Type: types.MessageSave}))

		msg := readFrame(t, connA, types.MessageError)
		assert.Contains(t, msg.Error, "incomplete")
	})

	t.Run("save persists a complete document test", func(t *testing.T) {
		ts := newTestServer(t)

		seed := `{"id":"evt9","name":"Festival","startDate":"2025-08-01T12:00:00Z",` +
			`"items":[{"id":"a","name":"Opener","durationInMinutes":20}]}`
		connA, _ := dial(t, ts, "r7", seed)
		require.NoError(t, connA.WriteJSON(types.Message{Type: types.MessageSave}))

		msg := readFrame(t, connA, types.MessageSaved)
		assert.Equal(t, "evt9", msg.Document.ID)
	})

	t.Run("failed upgrade does not create or seed a room test", func(t *testing.T) {
		ts := newTestServer(t)

		// A plain GET fails the websocket handshake; its seed payload must
		// not leave a room behind.
		seed := `{"id":"evt8","name":"Injected","startDate":"2025-06-01T09:00:00Z",` +
			`"items":[{"id":"a","name":"Planted","durationInMinutes":5}]}`
		resp, err := http.Get(ts.URL + "/rooms/r8/sync?data=" + url.QueryEscape(seed))
		require.NoError(t, err)
		assert.NoError(t, resp.Body.Close())
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		_, init := dial(t, ts, "r8", "")
		assert.Equal(t, document.DefaultEventName, init.Document.EventName)
		assert.Empty(t, init.Document.Items)
	})

	t.Run("rooms do not share state test", func(t *testing.T) {
		ts := newTestServer(t)

		connA, _ := dial(t, ts, "left", "")
		connB, _ := dial(t, ts, "right", "")

		sendMutation(t, connA, &types.Mutation{Op: types.OpSetEventName, EventName: "Left"})
		readFrame(t, connA, types.MessageDocument)

		sendMutation(t, connB, &types.Mutation{Op: types.OpSetEventName, EventName: "Right"})
		msg := readFrame(t, connB, types.MessageDocument)
		assert.Equal(t, "Right", msg.Document.EventName)
		assert.Equal(t, int64(1), msg.Seq)
	})
}
