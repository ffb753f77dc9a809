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

// Package document provides the shared event timetable document and the
// mutations that change it. A Document is a plain value: it carries no locks
// and is safe for concurrent use only behind the per-room serialization of
// the server.
package document

import (
	"fmt"
	"time"

	"github.com/rs/xid"
)

// DefaultEventName is the placeholder name of a freshly created event.
const DefaultEventName = "New Event"

// Item is a single entry of the event timetable. Its start time is never
// stored; it is derived from the document start date and the durations of
// the items before it.
type Item struct {
	ID                string `json:"id" validate:"required"`
	Name              string `json:"name"`
	DurationInMinutes int    `json:"durationInMinutes" validate:"gte=0"`
}

// Document is the authoritative shared state of one room: an event name, a
// start date and an ordered timetable. The order of Items is the schedule
// order and is preserved across all replicas.
type Document struct {
	ID        string `json:"id" validate:"required"`
	EventName string `json:"eventName"`
	StartDate string `json:"startDate"`
	Items     []Item `json:"items" validate:"dive"`
}

// New creates an empty default document with the given ID. The start date
// defaults to the current time so a derived timetable is renderable before
// anyone touched the date field.
func New(id string) *Document {
	return &Document{
		ID:        id,
		EventName: DefaultEventName,
		StartDate: time.Now().UTC().Format(time.RFC3339),
		Items:     []Item{},
	}
}

// NewID returns a collision-resistant random token for client-generated
// document and item IDs.
func NewID() string {
	return xid.New().String()
}

// SetEventName replaces the event name. Last writer wins.
func (d *Document) SetEventName(name string) {
	d.EventName = name
}

// SetStartDate replaces the start date with the given ISO-8601 timestamp
// string. The caller is responsible for combining a date and a time-of-day
// into a single timestamp; partial input is not interpreted here.
func (d *Document) SetStartDate(isoString string) {
	d.StartDate = isoString
}

// AddItem appends the item to the end of the timetable. It is a silent no-op
// when an item with the same ID already exists; IDs are client-generated and
// never reused.
func (d *Document) AddItem(item Item) bool {
	if d.indexOf(item.ID) >= 0 {
		return false
	}
	if item.DurationInMinutes < 0 {
		item.DurationInMinutes = 0
	}
	d.Items = append(d.Items, item)
	return true
}

// RemoveItem deletes the item with the given ID. No-op when absent.
func (d *Document) RemoveItem(id string) bool {
	idx := d.indexOf(id)
	if idx < 0 {
		return false
	}
	d.Items = append(d.Items[:idx], d.Items[idx+1:]...)
	return true
}

// UpdateItem replaces both fields of the matching item. Partial updates are
// not supported: callers supply the unchanged field's current value. No-op
// when the ID is absent.
func (d *Document) UpdateItem(id, name string, durationInMinutes int) bool {
	idx := d.indexOf(id)
	if idx < 0 {
		return false
	}
	if durationInMinutes < 0 {
		durationInMinutes = 0
	}
	d.Items[idx].Name = name
	d.Items[idx].DurationInMinutes = durationInMinutes
	return true
}

// ReorderItems removes the item at oldIndex and reinserts it at newIndex in
// one step, preserving the relative order of all other items. Both indices
// are interpreted against the list state at the time of application; an
// out-of-range index makes the whole call a no-op.
func (d *Document) ReorderItems(oldIndex, newIndex int) bool {
	if oldIndex < 0 || oldIndex >= len(d.Items) {
		return false
	}
	if newIndex < 0 || newIndex >= len(d.Items) {
		return false
	}
	if oldIndex == newIndex {
		return true
	}

	moved := d.Items[oldIndex]
	rest := append(d.Items[:oldIndex], d.Items[oldIndex+1:]...)
	rest = append(rest, Item{})
	copy(rest[newIndex+1:], rest[newIndex:])
	rest[newIndex] = moved
	d.Items = rest
	return true
}

// IndexOf returns the current position of the item with the given ID, or -1
// when absent.
func (d *Document) IndexOf(id string) int {
	return d.indexOf(id)
}

func (d *Document) indexOf(id string) int {
	for i, item := range d.Items {
		if item.ID == id {
			return i
		}
	}
	return -1
}

// StartAt returns the derived start time of Items[i]: the document start
// date plus the cumulative durations of all preceding items. The value is
// always recomputed, never stored.
func (d *Document) StartAt(i int) (time.Time, error) {
	if i < 0 || i >= len(d.Items) {
		return time.Time{}, fmt.Errorf("item index out of range: %d", i)
	}

	start, err := time.Parse(time.RFC3339, d.StartDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse start date %q: %w", d.StartDate, err)
	}

	for _, item := range d.Items[:i] {
		start = start.Add(time.Duration(item.DurationInMinutes) * time.Minute)
	}
	return start, nil
}

// StartTimes returns the derived start time of every item in schedule order.
func (d *Document) StartTimes() ([]time.Time, error) {
	start, err := time.Parse(time.RFC3339, d.StartDate)
	if err != nil {
		return nil, fmt.Errorf("parse start date %q: %w", d.StartDate, err)
	}

	times := make([]time.Time, len(d.Items))
	for i, item := range d.Items {
		times[i] = start
		start = start.Add(time.Duration(item.DurationInMinutes) * time.Minute)
	}
	return times, nil
}

// DeepCopy returns a copy of this document that shares no memory with the
// original. Broadcast snapshots and client-side caches are always deep
// copies so readers never observe a mutation in progress.
func (d *Document) DeepCopy() *Document {
	items := make([]Item, len(d.Items))
	copy(items, d.Items)

	return &Document{
		ID:        d.ID,
		EventName: d.EventName,
		StartDate: d.StartDate,
		Items:     items,
	}
}
