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

// Package cmap provides a concurrent map. Room and subscription registries
// stay small, so a single lock is enough; the functional Upsert/Delete
// forms exist so check-then-act sequences stay atomic at the call site.
package cmap

import "sync"

// Map is a map that is safe for concurrent use by multiple goroutines.
type Map[K comparable, V any] struct {
	mu    sync.RWMutex
	items map[K]V
}

// New creates a new Map.
func New[K comparable, V any]() *Map[K, V] {
	return &Map[K, V]{
		items: make(map[K]V),
	}
}

// Set sets a key-value pair.
func (m *Map[K, V]) Set(key K, value V) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items[key] = value
}

// Get retrieves the value for the given key.
func (m *Map[K, V]) Get(key K) (V, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, exists := m.items[key]
	return value, exists
}

// UpsertFunc is a function to insert or update a key-value pair.
type UpsertFunc[V any] func(value V, exists bool) V

// Upsert atomically inserts or updates the value for the given key and
// returns the stored result.
func (m *Map[K, V]) Upsert(key K, upsertFunc UpsertFunc[V]) V {
	m.mu.Lock()
	defer m.mu.Unlock()

	value, exists := m.items[key]
	result := upsertFunc(value, exists)
	m.items[key] = result
	return result
}

// DeleteFunc is a function that decides whether to delete a value.
type DeleteFunc[V any] func(value V, exists bool) bool

// Delete removes the value for the given key when deleteFunc approves it.
func (m *Map[K, V]) Delete(key K, deleteFunc DeleteFunc[V]) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	value, exists := m.items[key]
	del := deleteFunc(value, exists)
	if del && exists {
		delete(m.items, key)
	}
	return del
}

// Has checks if the given key exists.
func (m *Map[K, V]) Has(key K) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, exists := m.items[key]
	return exists
}

// Len returns the number of items in the map.
func (m *Map[K, V]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.items)
}

// Keys returns a slice of all keys in the map.
func (m *Map[K, V]) Keys() []K {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]K, 0, len(m.items))
	for key := range m.items {
		keys = append(keys, key)
	}
	return keys
}

// Values returns a slice of all values in the map.
func (m *Map[K, V]) Values() []V {
	m.mu.RLock()
	defer m.mu.RUnlock()

	values := make([]V, 0, len(m.items))
	for _, value := range m.items {
		values = append(values, value)
	}
	return values
}
