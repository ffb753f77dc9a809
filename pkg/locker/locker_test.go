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

package locker_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/segue-live/segue/pkg/locker"
)

func TestLocker(t *testing.T) {
	t.Run("serializes critical sections per name", func(t *testing.T) {
		locks := locker.New()

		counter := 0
		var wg sync.WaitGroup
		for i := 0; i < 100; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				locks.Lock("room-a")
				defer func() {
					assert.NoError(t, locks.Unlock("room-a"))
				}()
				counter++
			}()
		}
		wg.Wait()
		assert.Equal(t, 100, counter)
	})

	t.Run("different names do not block each other", func(t *testing.T) {
		locks := locker.New()

		locks.Lock("room-a")
		done := make(chan struct{})
		go func() {
			locks.Lock("room-b")
			assert.NoError(t, locks.Unlock("room-b"))
			close(done)
		}()
		<-done
		assert.NoError(t, locks.Unlock("room-a"))
	})

	t.Run("unlocking an unknown name fails", func(t *testing.T) {
		locks := locker.New()
		assert.ErrorIs(t, locks.Unlock("missing"), locker.ErrNoSuchLock)
	})
}
