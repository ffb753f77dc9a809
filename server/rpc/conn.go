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

package rpc

import (
	"context"
	"errors"
	"time"

	"github.com/gorilla/websocket"

	"github.com/segue-live/segue/api/types"
	"github.com/segue-live/segue/pkg/document"
	"github.com/segue-live/segue/pkg/presence"
	"github.com/segue-live/segue/server/backend"
	"github.com/segue-live/segue/server/backend/snapshot"
	"github.com/segue-live/segue/server/logging"
)

const (
	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// pongWait is the time allowed to read the next pong from the peer.
	pongWait = 60 * time.Second

	// pingPeriod is the period of pings to the peer. It must be less than
	// pongWait.
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize is the maximum frame size accepted from a peer.
	maxMessageSize = 256 << 10

	// replyBufferSize is the size of the direct reply channel.
	replyBufferSize = 16
)

// connection is the server side of one client's room connection. The
// handler goroutine runs the read loop; a single writer goroutine owns the
// socket for writes, fed by room broadcasts and direct replies.
type connection struct {
	sessionID string
	roomID    string
	ws        *websocket.Conn
	backend   *backend.Backend
	logger    logging.Logger

	// replies carries frames addressed to this client only (init, saved,
	// error). Broadcasts arrive through the subscription.
	replies chan types.Message
}

func newConnection(
	sessionID, roomID string,
	ws *websocket.Conn,
	be *backend.Backend,
	logger logging.Logger,
) *connection {
	return &connection{
		sessionID: sessionID,
		roomID:    roomID,
		ws:        ws,
		backend:   be,
		logger:    logger,
		replies:   make(chan types.Message, replyBufferSize),
	}
}

// run subscribes this connection to its room, sends the init snapshot and
// pumps frames until the client disconnects. On return the presence record
// is removed unconditionally and the remaining peers are notified.
func (c *connection) run(ctx context.Context) {
	sub := c.backend.PubSub.Subscribe(ctx, c.roomID, c.sessionID)
	c.backend.Metrics.SessionConnected()

	// The init frame goes out before the writer starts so a concurrent
	// broadcast can never precede it.
	doc, seq, err := c.backend.Rooms.Snapshot(ctx, c.roomID)
	if err != nil {
		c.logger.Errorf("initial snapshot: %v", err)
		c.backend.PubSub.Unsubscribe(ctx, c.roomID, sub)
		c.backend.Metrics.SessionDisconnected()
		_ = c.ws.Close()
		return
	}
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.ws.WriteJSON(types.Message{
		Type:      types.MessageInit,
		SessionID: c.sessionID,
		Seq:       seq,
		Document:  doc,
		Peers:     c.backend.Rooms.Peers(c.roomID),
	}); err != nil {
		c.logger.Warnf("write init: %v", err)
		c.backend.PubSub.Unsubscribe(ctx, c.roomID, sub)
		c.backend.Metrics.SessionDisconnected()
		_ = c.ws.Close()
		return
	}

	writerDone := make(chan struct{})
	go c.writeLoop(sub.Events(), writerDone)

	defer func() {
		c.backend.PubSub.Unsubscribe(ctx, c.roomID, sub)
		c.backend.Rooms.RemovePresence(c.roomID, c.sessionID)
		c.backend.PubSub.Publish(ctx, c.roomID, types.Message{
			Type:      types.MessagePeerLeft,
			SessionID: c.sessionID,
		}, c.sessionID)
		c.backend.Metrics.SessionDisconnected()

		close(c.replies)
		<-writerDone
		if err := c.ws.Close(); err != nil {
			c.logger.Debugf("close connection: %v", err)
		}
		c.logger.Infof("session left")
	}()

	c.logger.Infof("session joined")
	c.readLoop(ctx)
}

// readLoop consumes frames from the client until the connection drops.
func (c *connection) readLoop(ctx context.Context) {
	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg types.Message
		if err := c.ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Warnf("read: %v", err)
			}
			return
		}

		switch msg.Type {
		case types.MessageMutation:
			c.handleMutation(ctx, msg.Mutation)
		case types.MessagePresence:
			c.handlePresence(ctx, msg.Presence)
		case types.MessageSave:
			c.handleSave(ctx)
		default:
			c.reply(types.Message{
				Type:  types.MessageError,
				Error: "unknown message type: " + string(msg.Type),
			})
		}
	}
}

// handleMutation applies one mutation under the room's lock and broadcasts
// the post-mutation document to every subscriber, this session included,
// so the originator gets its confirmation.
func (c *connection) handleMutation(ctx context.Context, m *types.Mutation) {
	if m == nil {
		c.reply(types.Message{Type: types.MessageError, Error: "mutation frame without mutation"})
		return
	}

	// Publishing happens inside the room lock so broadcasts leave in
	// sequence order; a publish after unlock could overtake a later one.
	_, _, applied, err := c.backend.Rooms.Apply(ctx, c.roomID, m,
		func(doc *document.Document, seq int64) {
			c.backend.Metrics.Broadcast()
			c.backend.PubSub.Publish(ctx, c.roomID, types.Message{
				Type:     types.MessageDocument,
				Seq:      seq,
				Document: doc,
			}, "")
		})
	if err != nil {
		c.logger.Warnf("apply %s: %v", m.Op, err)
		c.reply(types.Message{Type: types.MessageError, Error: err.Error()})
		return
	}
	if applied {
		c.backend.Metrics.MutationApplied(string(m.Op))
	}
}

// handlePresence stores this session's presence and relays it to all other
// subscribers. Presence is advisory: failures are logged, never fatal.
func (c *connection) handlePresence(ctx context.Context, p *presence.Presence) {
	if p == nil {
		return
	}

	if err := c.backend.Rooms.SetPresence(c.roomID, c.sessionID, p); err != nil {
		c.logger.Warnf("set presence: %v", err)
		return
	}
	c.backend.Metrics.PresenceUpdated()

	c.backend.PubSub.Publish(ctx, c.roomID, types.Message{
		Type:      types.MessagePresence,
		SessionID: c.sessionID,
		Presence:  p,
	}, c.sessionID)
}

func (c *connection) handleSave(ctx context.Context) {
	doc, _, err := c.backend.Rooms.Snapshot(ctx, c.roomID)
	if err != nil {
		c.reply(types.Message{Type: types.MessageError, Error: err.Error()})
		return
	}

	snap, err := snapshot.FromDocument(doc, time.Now())
	if err != nil {
		if errors.Is(err, snapshot.ErrIncompleteDocument) {
			c.backend.Metrics.SnapshotSaved("rejected")
		}
		c.reply(types.Message{Type: types.MessageError, Error: err.Error()})
		return
	}

	if err := c.backend.Snapshots.Put(ctx, snap); err != nil {
		c.backend.Metrics.SnapshotSaved("error")
		c.logger.Errorf("persist snapshot: %v", err)
		c.reply(types.Message{Type: types.MessageError, Error: "failed to save snapshot"})
		return
	}

	c.backend.Metrics.SnapshotSaved("saved")
	c.reply(types.Message{Type: types.MessageSaved, Document: doc})
}

// reply queues a frame addressed to this client only. A reply is dropped
// when the writer cannot keep up; the client state converges again on the
// next broadcast.
func (c *connection) reply(msg types.Message) {
	select {
	case c.replies <- msg:
	default:
		c.logger.Warnf("reply %s dropped", msg.Type)
	}
}

// writeLoop is the single writer of the socket. It drains room broadcasts
// and direct replies and keeps the connection alive with pings.
func (c *connection) writeLoop(events <-chan types.Message, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	write := func(msg types.Message) bool {
		_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.ws.WriteJSON(msg); err != nil {
			c.logger.Debugf("write %s: %v", msg.Type, err)
			return false
		}
		return true
	}

	for {
		select {
		case msg, ok := <-c.replies:
			if !ok {
				_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
				_ = c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if !write(msg) {
				return
			}
		case event, ok := <-events:
			if !ok {
				// Unsubscribed; the reply channel closes right after.
				for msg := range c.replies {
					_ = msg
				}
				return
			}
			if !write(event) {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
