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

package types

import (
	"errors"
	"fmt"

	"github.com/segue-live/segue/pkg/document"
)

// MutationOp names one atomic operation of the mutation protocol.
type MutationOp string

// The mutation operations accepted by the document store.
const (
	OpSetEventName MutationOp = "setEventName"
	OpSetStartDate MutationOp = "setStartDate"
	OpAddItem      MutationOp = "addItem"
	OpRemoveItem   MutationOp = "removeItem"
	OpUpdateItem   MutationOp = "updateItem"
	OpReorderItems MutationOp = "reorderItems"
)

// ErrInvalidMutation is returned when a mutation fails validation before it
// reaches the document store.
var ErrInvalidMutation = errors.New("invalid mutation")

// Mutation is one atomic, named change to the shared document. Exactly one
// operation is carried per message; the fields used depend on Op.
type Mutation struct {
	Op MutationOp `json:"op"`

	// EventName is the replacement value for setEventName.
	EventName string `json:"eventName,omitempty"`

	// StartDate is the replacement ISO-8601 timestamp for setStartDate.
	StartDate string `json:"startDate,omitempty"`

	// Item is the new item for addItem.
	Item *document.Item `json:"item,omitempty"`

	// ItemID addresses the target of removeItem and updateItem.
	ItemID string `json:"itemId,omitempty"`

	// Name and DurationInMinutes are the replacement fields for updateItem.
	Name              string `json:"name,omitempty"`
	DurationInMinutes int    `json:"durationInMinutes,omitempty"`

	// OldIndex and NewIndex address the splice move of reorderItems. The
	// indices are resolved against the list state at the time of
	// application.
	OldIndex int `json:"oldIndex"`
	NewIndex int `json:"newIndex"`
}

// Validate checks that the mutation names a known operation and carries the
// fields that operation needs.
func (m *Mutation) Validate() error {
	switch m.Op {
	case OpSetEventName, OpSetStartDate:
		return nil
	case OpAddItem:
		if m.Item == nil || m.Item.ID == "" {
			return fmt.Errorf("%w: addItem requires an item with an id", ErrInvalidMutation)
		}
		return nil
	case OpRemoveItem, OpUpdateItem:
		if m.ItemID == "" {
			return fmt.Errorf("%w: %s requires an item id", ErrInvalidMutation, m.Op)
		}
		return nil
	case OpReorderItems:
		if m.OldIndex < 0 || m.NewIndex < 0 {
			return fmt.Errorf("%w: reorderItems requires non-negative indices", ErrInvalidMutation)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown op %q", ErrInvalidMutation, m.Op)
	}
}
