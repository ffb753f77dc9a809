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

// Package presence provides the ephemeral per-participant awareness state.
// A Presence record lives exactly as long as its connection: it is created
// when a client joins a room and dropped unconditionally on disconnect. It
// is advisory state, never persisted, and updates carry no ordering
// guarantee relative to document mutations.
package presence

import (
	"fmt"
	"math/rand"
)

// Cursor is an optional pointer position. It is not required by the
// timetable use case and is carried for compatibility with the wire shape.
type Cursor struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Presence is the awareness state of one connected participant.
type Presence struct {
	Cursor         *Cursor `json:"cursor"`
	EditingItem    *string `json:"editingItem"`
	UserName       string  `json:"userName"`
	FocusedField   *string `json:"focusedField"`
	Color          string  `json:"color"`
	DraggingItemID *string `json:"draggingItemId"`
}

// Clone returns a copy sharing no memory with the original.
func (p *Presence) Clone() *Presence {
	clone := &Presence{
		UserName: p.UserName,
		Color:    p.Color,
	}
	if p.Cursor != nil {
		cursor := *p.Cursor
		clone.Cursor = &cursor
	}
	if p.EditingItem != nil {
		editing := *p.EditingItem
		clone.EditingItem = &editing
	}
	if p.FocusedField != nil {
		focused := *p.FocusedField
		clone.FocusedField = &focused
	}
	if p.DraggingItemID != nil {
		dragging := *p.DraggingItemID
		clone.DraggingItemID = &dragging
	}
	return clone
}

// RandomColor returns a visually distinct display color. The color is
// assigned once per session and stays stable for its lifetime.
func RandomColor() string {
	return fmt.Sprintf("hsl(%d, 70%%, 60%%)", rand.Intn(360))
}

// RandomUserName returns a throwaway display name for participants who did
// not pick one.
func RandomUserName() string {
	return fmt.Sprintf("User%d", rand.Intn(1000))
}
