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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flushRecorder struct {
	mu     sync.Mutex
	values []string
}

func (r *flushRecorder) flush(value string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = append(r.values, value)
}

func (r *flushRecorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.values...)
}

func TestFieldMirror(t *testing.T) {
	t.Run("burst of edits flushes once with the last value test", func(t *testing.T) {
		rec := &flushRecorder{}
		m := newFieldMirror("New Event", 100*time.Millisecond, rec.flush)

		m.Edit("L")
		time.Sleep(20 * time.Millisecond)
		m.Edit("La")
		time.Sleep(20 * time.Millisecond)
		m.Edit("Launch")

		// Window restarted on each edit, so nothing is shared yet.
		time.Sleep(60 * time.Millisecond)
		assert.Empty(t, rec.snapshot())

		require.Eventually(t, func() bool {
			return len(rec.snapshot()) == 1
		}, time.Second, 10*time.Millisecond)
		assert.Equal(t, []string{"Launch"}, rec.snapshot())
		assert.Equal(t, "Launch", m.Value())
	})

	t.Run("edit back to the shared value flushes nothing test", func(t *testing.T) {
		rec := &flushRecorder{}
		m := newFieldMirror("Kickoff", 20*time.Millisecond, rec.flush)

		m.Edit("Kickof")
		m.Edit("Kickoff")

		time.Sleep(100 * time.Millisecond)
		assert.Empty(t, rec.snapshot())
	})

	t.Run("remote update folds in when idle test", func(t *testing.T) {
		rec := &flushRecorder{}
		m := newFieldMirror("Kickoff", 20*time.Millisecond, rec.flush)

		m.SyncRemote("Launch")
		assert.Equal(t, "Launch", m.Value())

		// A remote echo of the same value must not trigger an edit.
		time.Sleep(60 * time.Millisecond)
		assert.Empty(t, rec.snapshot())
	})

	t.Run("remote update overwrites a pending edit test", func(t *testing.T) {
		rec := &flushRecorder{}
		m := newFieldMirror("Kickoff", 50*time.Millisecond, rec.flush)

		m.Edit("Launch Day")
		m.SyncRemote("Someone Else")
		assert.Equal(t, "Someone Else", m.Value())

		// The pending edit was superseded, so nothing is shared.
		time.Sleep(150 * time.Millisecond)
		assert.Empty(t, rec.snapshot())
	})

	t.Run("flush shares immediately test", func(t *testing.T) {
		rec := &flushRecorder{}
		m := newFieldMirror("Kickoff", time.Hour, rec.flush)

		m.Edit("Launch")
		m.Flush()
		assert.Equal(t, []string{"Launch"}, rec.snapshot())

		// The timer was cancelled; no second flush follows.
		time.Sleep(50 * time.Millisecond)
		assert.Equal(t, []string{"Launch"}, rec.snapshot())
	})

	t.Run("stop drops a pending edit test", func(t *testing.T) {
		rec := &flushRecorder{}
		m := newFieldMirror("Kickoff", 20*time.Millisecond, rec.flush)

		m.Edit("Launch")
		m.Stop()

		time.Sleep(100 * time.Millisecond)
		assert.Empty(t, rec.snapshot())
	})
}
