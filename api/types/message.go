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

// Package types provides the wire types exchanged between the Segue server
// and its clients over the room sync connection. Every frame is one JSON
// encoded Message; the populated fields depend on Type.
package types

import (
	"github.com/segue-live/segue/pkg/document"
	"github.com/segue-live/segue/pkg/presence"
)

// MessageType names the kind of frame on the sync connection.
type MessageType string

const (
	// MessageInit is sent by the server once after subscribing: the current
	// document, the session id assigned to this connection and the presence
	// of every peer already in the room.
	MessageInit MessageType = "init"

	// MessageMutation carries one document mutation from a client.
	MessageMutation MessageType = "mutation"

	// MessageDocument carries the full post-mutation document from the
	// server to every subscriber of the room, the originator included.
	MessageDocument MessageType = "document"

	// MessagePresence carries one participant's full presence record. Sent
	// by clients on any field change and relayed to all other subscribers.
	MessagePresence MessageType = "presence"

	// MessagePeerLeft tells remaining subscribers that a session
	// disconnected and its presence is gone.
	MessagePeerLeft MessageType = "peer_left"

	// MessageSave asks the server to write the current document to the
	// snapshot store.
	MessageSave MessageType = "save"

	// MessageSaved confirms a completed save to the requesting client.
	MessageSaved MessageType = "saved"

	// MessageError reports a rejected request to the requesting client
	// only. It never tears down the connection.
	MessageError MessageType = "error"
)

// Message is the envelope for every frame on the sync connection.
type Message struct {
	Type MessageType `json:"type"`

	// Seq is the per-room mutation sequence number of a document broadcast.
	Seq int64 `json:"seq,omitempty"`

	// SessionID identifies the subject of init, presence and peer_left
	// frames.
	SessionID string `json:"sessionId,omitempty"`

	Document *Document                     `json:"document,omitempty"`
	Mutation *Mutation                     `json:"mutation,omitempty"`
	Presence *presence.Presence            `json:"presence,omitempty"`
	Peers    map[string]*presence.Presence `json:"peers,omitempty"`

	Error string `json:"error,omitempty"`
}

// Document is an alias so wire frames read naturally at call sites.
type Document = document.Document
