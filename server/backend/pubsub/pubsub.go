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

// Package pubsub provides the broadcast channel of a room: one subscription
// per connected session, fed by the synchronization service after each
// applied mutation or presence change. Delivery is at-least-once per
// connected subscriber; a slow subscriber that cannot drain its channel
// within the publish timeout loses that event.
package pubsub

import (
	"context"
	"sync"
	gotime "time"

	"go.uber.org/zap"

	"github.com/rs/xid"

	"github.com/segue-live/segue/api/types"
	"github.com/segue-live/segue/pkg/cmap"
	"github.com/segue-live/segue/server/logging"
)

const (
	// publishTimeout is the timeout for publishing an event to one
	// subscriber.
	publishTimeout = 100 * gotime.Millisecond

	// eventBufferSize is the size of each subscription's event channel.
	eventBufferSize = 64
)

// Subscription is the event feed of one session subscribed to one room.
type Subscription struct {
	id        string
	sessionID string
	mu        sync.Mutex
	closed    bool
	events    chan types.Message
}

// NewSubscription creates a new instance of Subscription.
func NewSubscription(sessionID string) *Subscription {
	return &Subscription{
		id:        xid.New().String(),
		sessionID: sessionID,
		events:    make(chan types.Message, eventBufferSize),
	}
}

// ID returns the id of this subscription.
func (s *Subscription) ID() string {
	return s.id
}

// SessionID returns the session this subscription belongs to.
func (s *Subscription) SessionID() string {
	return s.sessionID
}

// Events returns the event channel of this subscription.
func (s *Subscription) Events() <-chan types.Message {
	return s.events
}

// Close closes all resources of this Subscription.
func (s *Subscription) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		close(s.events)
	}
}

// publish sends the event to the subscriber. It reports false when the
// subscription is closed or the subscriber did not drain in time.
func (s *Subscription) publish(event types.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}

	select {
	case s.events <- event:
		return true
	case <-gotime.After(publishTimeout):
		return false
	}
}

// subscriptions is the set of subscriptions of a single room.
type subscriptions struct {
	roomID      string
	internalMap *cmap.Map[string, *Subscription]
}

func newSubscriptions(roomID string) *subscriptions {
	return &subscriptions{
		roomID:      roomID,
		internalMap: cmap.New[string, *Subscription](),
	}
}

// PubSub routes room events to the subscriptions of each room.
type PubSub struct {
	subscriptionsMap *cmap.Map[string, *subscriptions]
}

// New creates an instance of PubSub.
func New() *PubSub {
	return &PubSub{
		subscriptionsMap: cmap.New[string, *subscriptions](),
	}
}

// Subscribe subscribes the given session to the given room.
func (m *PubSub) Subscribe(ctx context.Context, roomID, sessionID string) *Subscription {
	if logging.Enabled(zap.DebugLevel) {
		logging.From(ctx).Debugf("Subscribe(%s,%s) Start", roomID, sessionID)
	}

	subs := m.subscriptionsMap.Upsert(roomID, func(subs *subscriptions, exists bool) *subscriptions {
		if !exists {
			return newSubscriptions(roomID)
		}
		return subs
	})

	sub := NewSubscription(sessionID)
	subs.internalMap.Set(sub.ID(), sub)

	if logging.Enabled(zap.DebugLevel) {
		logging.From(ctx).Debugf("Subscribe(%s,%s) End", roomID, sessionID)
	}
	return sub
}

// Unsubscribe unsubscribes the given subscription from the room and drops
// the room's subscription set once it is empty.
func (m *PubSub) Unsubscribe(ctx context.Context, roomID string, sub *Subscription) {
	sub.Close()

	if subs, ok := m.subscriptionsMap.Get(roomID); ok {
		subs.internalMap.Delete(sub.ID(), func(_ *Subscription, exists bool) bool {
			return exists
		})

		m.subscriptionsMap.Delete(roomID, func(subs *subscriptions, exists bool) bool {
			return exists && subs.internalMap.Len() == 0
		})
	}

	if logging.Enabled(zap.DebugLevel) {
		logging.From(ctx).Debugf("Unsubscribe(%s,%s)", roomID, sub.SessionID())
	}
}

// Publish publishes the given event to the subscribers of the room. When
// excludeSessionID is non-empty, the subscription of that session is
// skipped; document broadcasts pass an empty string so the originator
// receives its own confirmation.
func (m *PubSub) Publish(ctx context.Context, roomID string, event types.Message, excludeSessionID string) {
	subs, ok := m.subscriptionsMap.Get(roomID)
	if !ok {
		return
	}

	for _, sub := range subs.internalMap.Values() {
		if excludeSessionID != "" && sub.SessionID() == excludeSessionID {
			continue
		}
		if !sub.publish(event) {
			logging.From(ctx).Warnf(
				"Publish(%s,%s) to %s dropped", roomID, event.Type, sub.SessionID(),
			)
		}
	}
}

// SessionIDs returns the sessions currently subscribed to the room.
func (m *PubSub) SessionIDs(roomID string) []string {
	subs, ok := m.subscriptionsMap.Get(roomID)
	if !ok {
		return nil
	}

	var ids []string
	for _, sub := range subs.internalMap.Values() {
		ids = append(ids, sub.SessionID())
	}
	return ids
}
