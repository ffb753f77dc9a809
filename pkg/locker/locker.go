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
 *
 * This file was written with reference to moby/locker.
 *   https://github.com/moby/locker
 */

// Package locker provides named locks. Each room uses one named lock as its
// single serialization point: mutations for a room are applied one at a
// time, while different rooms proceed independently. Lock entries are
// cleaned up on Unlock when nobody else is waiting.
package locker

import (
	"errors"
	"sync"
	"sync/atomic"
)

// ErrNoSuchLock is returned when unlocking a name that was never locked.
var ErrNoSuchLock = errors.New("no such lock")

// Locker provides a locking mechanism based on the passed in reference name.
type Locker struct {
	mu    sync.Mutex
	locks map[string]*lockCtr
}

// lockCtr is a named lock together with the number of waiters, so the entry
// can be dropped from the map once the last holder releases it.
type lockCtr struct {
	mu      sync.Mutex
	waiters int32
}

func (l *lockCtr) inc() {
	atomic.AddInt32(&l.waiters, 1)
}

func (l *lockCtr) dec() {
	atomic.AddInt32(&l.waiters, -1)
}

func (l *lockCtr) count() int32 {
	return atomic.LoadInt32(&l.waiters)
}

// New creates a new Locker.
func New() *Locker {
	return &Locker{
		locks: make(map[string]*lockCtr),
	}
}

// Lock locks the mutex with the given name. If it doesn't exist, one is
// created.
func (l *Locker) Lock(name string) {
	l.mu.Lock()
	ctr, exists := l.locks[name]
	if !exists {
		ctr = &lockCtr{}
		l.locks[name] = ctr
	}
	// Count the waiter inside the registry lock so a concurrent Unlock
	// cannot drop the entry out from under us.
	ctr.inc()
	l.mu.Unlock()

	ctr.mu.Lock()
	ctr.dec()
}

// Unlock unlocks the mutex with the given name. The entry is removed when
// no other caller is waiting on it.
func (l *Locker) Unlock(name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	ctr, exists := l.locks[name]
	if !exists {
		return ErrNoSuchLock
	}

	if ctr.count() == 0 {
		delete(l.locks, name)
	}
	ctr.mu.Unlock()
	return nil
}
