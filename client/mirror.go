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
	"sync"
	"time"
)

// fieldMirror debounces edits of a free-text field. Keystrokes land in the
// local value immediately; the value is flushed to the room only after the
// debounce window passes without another edit, and only when it actually
// differs from the last shared value. A remote update overwrites the local
// value unconditionally, pending edit or not: the room's state always wins
// on receipt.
type fieldMirror struct {
	mu      sync.Mutex
	local   string
	shared  string
	pending bool
	stopped bool

	delay time.Duration
	timer *time.Timer
	flush func(value string)
}

func newFieldMirror(initial string, delay time.Duration, flush func(value string)) *fieldMirror {
	return &fieldMirror{
		local:  initial,
		shared: initial,
		delay:  delay,
		flush:  flush,
	}
}

// Value returns the field as currently edited.
func (m *fieldMirror) Value() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.local
}

// Edit records a local edit and restarts the debounce window.
func (m *fieldMirror) Edit(value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return
	}

	m.local = value
	m.pending = true
	if m.timer != nil {
		m.timer.Stop()
	}
	m.timer = time.AfterFunc(m.delay, m.fire)
}

// SyncRemote folds in the field value confirmed by the server. A pending
// edit that now matches the shared value is dropped when its window fires.
func (m *fieldMirror) SyncRemote(value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shared = value
	m.local = value
}

// Flush shares a pending edit immediately instead of waiting out the
// debounce window.
func (m *fieldMirror) Flush() {
	m.mu.Lock()
	if m.timer != nil {
		m.timer.Stop()
	}
	m.mu.Unlock()
	m.fire()
}

// Stop drops any pending edit without sharing it.
func (m *fieldMirror) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped = true
	m.pending = false
	if m.timer != nil {
		m.timer.Stop()
	}
}

func (m *fieldMirror) fire() {
	m.mu.Lock()
	if m.stopped || !m.pending {
		m.mu.Unlock()
		return
	}
	m.pending = false
	if m.local == m.shared {
		m.mu.Unlock()
		return
	}
	value := m.local
	m.shared = value
	m.mu.Unlock()

	m.flush(value)
}
