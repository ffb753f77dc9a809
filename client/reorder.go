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

package client

import (
	"errors"

	"github.com/segue-live/segue/api/types"
	"github.com/segue-live/segue/pkg/presence"
)

var (
	// ErrNoActiveDrag occurs when a drop arrives without a preceding
	// Start.
	ErrNoActiveDrag = errors.New("no active drag")

	// ErrUnknownItem occurs when a drag references an item that is not in
	// the document.
	ErrUnknownItem = errors.New("unknown item")
)

// DragController turns a drag gesture into a single reorder mutation. While
// the drag is in flight only presence changes; the document is untouched
// until the drop resolves both positions and emits one reorder.
type DragController struct {
	client   *Client
	dragging string
}

// NewDragController returns a DragController for the given client. A client
// runs at most one drag at a time.
func NewDragController(c *Client) *DragController {
	return &DragController{client: c}
}

// Start begins dragging the given item and announces it to the room.
func (d *DragController) Start(itemID string) error {
	doc := d.client.Document()
	if doc.IndexOf(itemID) < 0 {
		return ErrUnknownItem
	}

	d.dragging = itemID
	return d.client.updatePresence(func(p *presence.Presence) {
		p.DraggingItemID = &itemID
	})
}

// Drop ends the drag over the given item. Positions are resolved against
// the document as this client currently sees it; the server re-checks them
// against the room's document, so a stale drop degrades to a no-op instead
// of corrupting the list.
func (d *DragController) Drop(overItemID string) error {
	if d.dragging == "" {
		return ErrNoActiveDrag
	}
	dragging := d.dragging
	d.dragging = ""

	if err := d.client.updatePresence(func(p *presence.Presence) {
		p.DraggingItemID = nil
	}); err != nil {
		return err
	}

	doc := d.client.Document()
	oldIndex := doc.IndexOf(dragging)
	newIndex := doc.IndexOf(overItemID)
	if oldIndex < 0 || newIndex < 0 || oldIndex == newIndex {
		return nil
	}

	return d.client.sendMutation(&types.Mutation{
		Op:       types.OpReorderItems,
		OldIndex: oldIndex,
		NewIndex: newIndex,
	})
}

// Cancel abandons the drag without reordering.
func (d *DragController) Cancel() error {
	if d.dragging == "" {
		return nil
	}
	d.dragging = ""
	return d.client.updatePresence(func(p *presence.Presence) {
		p.DraggingItemID = nil
	})
}
