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

// Package client provides the room client. A client holds a live mirror of
// the room's shared document, applies its own edits through the server and
// folds broadcasts from other sessions back into the mirror.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/segue-live/segue/api/types"
	"github.com/segue-live/segue/pkg/document"
	"github.com/segue-live/segue/pkg/presence"
	"github.com/segue-live/segue/server/backend/snapshot"
)

type status int

const (
	connected status = iota
	closed
)

// DefaultDebounce is the quiet period before a text edit is shared.
const DefaultDebounce = 500 * time.Millisecond

// initTimeout bounds the wait for the server's init frame when the dial
// context carries no deadline of its own.
const initTimeout = 10 * time.Second

var (
	// ErrClientClosed occurs when the client is used after Close.
	ErrClientClosed = errors.New("client is closed")

	// ErrInvalidRoom occurs when dialing with an empty room id.
	ErrInvalidRoom = errors.New("room id must not be empty")

	// ErrUnexpectedFrame occurs when the server does not open the
	// connection with an init frame.
	ErrUnexpectedFrame = errors.New("unexpected frame from server")
)

// Client is a client of a single room.
type Client struct {
	conn      *websocket.Conn
	roomID    string
	sessionID string
	logger    *zap.Logger

	writeMu sync.Mutex

	mu       sync.RWMutex
	status   status
	doc      *document.Document
	seq      int64
	peers    map[string]*presence.Presence
	presence *presence.Presence

	nameMirror *fieldMirror

	events chan types.Message
	done   chan struct{}
}

// Dial joins the given room on the given server and returns a client whose
// mirror is already initialized from the room's current document. The seed
// option only takes effect when this client is the first to join the room.
func Dial(ctx context.Context, rpcAddr, roomID string, opts ...Option) (*Client, error) {
	if roomID == "" {
		return nil, ErrInvalidRoom
	}

	var options Options
	for _, opt := range opts {
		opt(&options)
	}
	if options.UserName == "" {
		options.UserName = presence.RandomUserName()
	}
	if options.Color == "" {
		options.Color = presence.RandomColor()
	}
	if options.Debounce == 0 {
		options.Debounce = DefaultDebounce
	}
	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, syncURL(rpcAddr, roomID, options.Seed), nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", rpcAddr, err)
	}

	initDeadline := time.Now().Add(initTimeout)
	if d, ok := ctx.Deadline(); ok {
		initDeadline = d
	}
	_ = conn.SetReadDeadline(initDeadline)

	var init types.Message
	if err := conn.ReadJSON(&init); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("read init frame: %w", err)
	}
	_ = conn.SetReadDeadline(time.Time{})
	if init.Type != types.MessageInit || init.Document == nil {
		_ = conn.Close()
		return nil, ErrUnexpectedFrame
	}

	peers := init.Peers
	if peers == nil {
		peers = map[string]*presence.Presence{}
	}

	c := &Client{
		conn:      conn,
		roomID:    roomID,
		sessionID: init.SessionID,
		logger:    logger.With(zap.String("room", roomID), zap.String("session", init.SessionID)),
		doc:       init.Document,
		seq:       init.Seq,
		peers:     peers,
		presence: &presence.Presence{
			UserName: options.UserName,
			Color:    options.Color,
		},
		events: make(chan types.Message, 64),
		done:   make(chan struct{}),
	}
	c.nameMirror = newFieldMirror(init.Document.EventName, options.Debounce, func(value string) {
		if err := c.sendMutation(&types.Mutation{
			Op:        types.OpSetEventName,
			EventName: value,
		}); err != nil {
			c.logger.Warn("share event name", zap.Error(err))
		}
	})

	if err := c.write(types.Message{
		Type:     types.MessagePresence,
		Presence: c.presence,
	}); err != nil {
		_ = conn.Close()
		return nil, err
	}

	go c.readLoop()
	return c, nil
}

func syncURL(rpcAddr, roomID, seed string) string {
	base := rpcAddr
	switch {
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case !strings.HasPrefix(base, "ws://") && !strings.HasPrefix(base, "wss://"):
		base = "ws://" + base
	}

	u := fmt.Sprintf("%s/rooms/%s/sync", base, url.PathEscape(roomID))
	if seed != "" {
		u += "?data=" + url.QueryEscape(seed)
	}
	return u
}

// Close flushes any pending edit and closes the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.status == closed {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	c.nameMirror.Flush()

	c.mu.Lock()
	c.status = closed
	c.mu.Unlock()

	c.writeMu.Lock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(time.Second))
	_ = c.conn.WriteMessage(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
	)
	c.writeMu.Unlock()

	err := c.conn.Close()
	<-c.done
	return err
}

// SessionID returns the id the server assigned to this session.
func (c *Client) SessionID() string {
	return c.sessionID
}

// RoomID returns the id of the joined room.
func (c *Client) RoomID() string {
	return c.roomID
}

// Document returns a copy of the shared document as last confirmed by the
// server.
func (c *Client) Document() *document.Document {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.doc.DeepCopy()
}

// Seq returns the sequence number of the last confirmed document.
func (c *Client) Seq() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.seq
}

// Peers returns the presence of the other sessions in the room.
func (c *Client) Peers() map[string]*presence.Presence {
	c.mu.RLock()
	defer c.mu.RUnlock()

	peers := make(map[string]*presence.Presence, len(c.peers))
	for id, p := range c.peers {
		peers[id] = p.Clone()
	}
	return peers
}

// Events returns the stream of frames received from the server. Frames are
// dropped when the consumer falls behind; the mirror itself never misses
// one.
func (c *Client) Events() <-chan types.Message {
	return c.events
}

// EventName returns the event name as currently edited, including a local
// edit that has not been shared yet.
func (c *Client) EventName() string {
	return c.nameMirror.Value()
}

// SetEventName records a local edit of the event name. The edit is shared
// once the debounce window passes without another edit.
func (c *Client) SetEventName(name string) {
	c.nameMirror.Edit(name)
}

// SetStartDate shares a new start date immediately.
func (c *Client) SetStartDate(t time.Time) error {
	return c.sendMutation(&types.Mutation{
		Op:        types.OpSetStartDate,
		StartDate: t.UTC().Format(time.RFC3339),
	})
}

// AddItem appends a new item and returns its generated id.
func (c *Client) AddItem(name string, durationInMinutes int) (string, error) {
	id := document.NewID()
	return id, c.sendMutation(&types.Mutation{
		Op: types.OpAddItem,
		Item: &document.Item{
			ID:                id,
			Name:              name,
			DurationInMinutes: durationInMinutes,
		},
	})
}

// RemoveItem removes the item with the given id.
func (c *Client) RemoveItem(id string) error {
	return c.sendMutation(&types.Mutation{
		Op:     types.OpRemoveItem,
		ItemID: id,
	})
}

// UpdateItem replaces the name and duration of the item with the given id.
func (c *Client) UpdateItem(id, name string, durationInMinutes int) error {
	return c.sendMutation(&types.Mutation{
		Op:                types.OpUpdateItem,
		ItemID:            id,
		Name:              name,
		DurationInMinutes: durationInMinutes,
	})
}

// Save asks the server to persist a snapshot of the current document. The
// document is checked locally first so an incomplete one fails fast; the
// SnapshotSaved confirmation arrives on the event stream.
func (c *Client) Save() error {
	c.mu.RLock()
	doc := c.doc
	_, err := snapshot.FromDocument(doc, time.Now())
	c.mu.RUnlock()
	if err != nil {
		return err
	}

	return c.write(types.Message{Type: types.MessageSave})
}

// Focus announces that this session is editing the given form field.
func (c *Client) Focus(field string) error {
	return c.updatePresence(func(p *presence.Presence) {
		p.FocusedField = &field
	})
}

// EditItem announces that this session is editing the given item.
func (c *Client) EditItem(itemID string) error {
	return c.updatePresence(func(p *presence.Presence) {
		p.EditingItem = &itemID
	})
}

// Blur clears the editing announcements of this session.
func (c *Client) Blur() error {
	return c.updatePresence(func(p *presence.Presence) {
		p.FocusedField = nil
		p.EditingItem = nil
	})
}

// MoveCursor announces a new pointer position.
func (c *Client) MoveCursor(x, y int) error {
	return c.updatePresence(func(p *presence.Presence) {
		p.Cursor = &presence.Cursor{X: x, Y: y}
	})
}

func (c *Client) updatePresence(apply func(p *presence.Presence)) error {
	c.mu.Lock()
	apply(c.presence)
	p := c.presence.Clone()
	c.mu.Unlock()

	return c.write(types.Message{
		Type:     types.MessagePresence,
		Presence: p,
	})
}

func (c *Client) sendMutation(m *types.Mutation) error {
	if err := m.Validate(); err != nil {
		return err
	}
	return c.write(types.Message{
		Type:     types.MessageMutation,
		Mutation: m,
	})
}

func (c *Client) write(msg types.Message) error {
	c.mu.RLock()
	if c.status == closed {
		c.mu.RUnlock()
		return ErrClientClosed
	}
	c.mu.RUnlock()

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := c.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("write %s: %w", msg.Type, err)
	}
	return nil
}

// readLoop folds server frames into the mirror until the connection drops.
func (c *Client) readLoop() {
	defer func() {
		c.mu.Lock()
		c.status = closed
		c.mu.Unlock()
		c.nameMirror.Stop()
		close(c.events)
		close(c.done)
	}()

	for {
		var msg types.Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			c.mu.RLock()
			wasClosed := c.status == closed
			c.mu.RUnlock()
			if !wasClosed {
				c.logger.Warn("connection lost", zap.Error(err))
			}
			return
		}

		switch msg.Type {
		case types.MessageDocument:
			if msg.Document == nil {
				continue
			}
			c.mu.Lock()
			if msg.Seq <= c.seq {
				// A frame that raced the init snapshot or a reordered
				// delivery; the mirror already holds newer state.
				c.mu.Unlock()
				continue
			}
			c.doc = msg.Document
			c.seq = msg.Seq
			c.mu.Unlock()
			c.nameMirror.SyncRemote(msg.Document.EventName)
		case types.MessagePresence:
			if msg.Presence == nil || msg.SessionID == "" {
				continue
			}
			c.mu.Lock()
			c.peers[msg.SessionID] = msg.Presence
			c.mu.Unlock()
		case types.MessagePeerLeft:
			c.mu.Lock()
			delete(c.peers, msg.SessionID)
			c.mu.Unlock()
		case types.MessageError:
			c.logger.Warn("server error", zap.String("error", msg.Error))
		}

		select {
		case c.events <- msg:
		default:
		}
	}
}
