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
	"context"
	"encoding/json"
	"time"

	"github.com/segue-live/segue/internal/validation"
	"github.com/segue-live/segue/pkg/document"
	"github.com/segue-live/segue/server/logging"
)

// seedPayload is the handoff shape produced by the single-user editor when
// it opens a collaboration room: the in-progress document serialized to
// JSON and passed percent-encoded in the entry URL.
type seedPayload struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	StartDate string          `json:"startDate"`
	Items     []document.Item `json:"items" validate:"dive"`
}

// SeedDocument builds the initial document of a room from the given seed
// payload. A missing or unparsable payload falls back to the default empty
// document; individual missing fields fall back per field. Seed errors are
// logged and swallowed, never surfaced to the joining client.
func SeedDocument(ctx context.Context, seed string) *document.Document {
	doc := document.New(document.NewID())
	if seed == "" {
		return doc
	}

	var payload seedPayload
	if err := json.Unmarshal([]byte(seed), &payload); err != nil {
		logging.From(ctx).Warnf("ignoring malformed seed payload: %v", err)
		return doc
	}
	if err := validation.ValidateStruct(&payload); err != nil {
		logging.From(ctx).Warnf("ignoring invalid seed payload: %v", err)
		return doc
	}

	if payload.ID != "" {
		doc.ID = payload.ID
	}
	if payload.Name != "" {
		doc.EventName = payload.Name
	}
	if payload.StartDate != "" {
		if _, err := time.Parse(time.RFC3339, payload.StartDate); err == nil {
			doc.StartDate = payload.StartDate
		} else {
			logging.From(ctx).Warnf("ignoring seed start date %q: %v", payload.StartDate, err)
		}
	}
	if payload.Items != nil {
		doc.Items = []document.Item{}
		for _, item := range payload.Items {
			doc.AddItem(item)
		}
	}
	return doc
}
