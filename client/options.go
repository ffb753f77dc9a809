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
	"time"

	"go.uber.org/zap"
)

// Option configures Options.
type Option func(*Options)

// Options configures how we set up the client.
type Options struct {
	// UserName is the display name announced to other sessions. A random
	// name is generated when empty.
	UserName string

	// Color is the cursor color announced to other sessions. A random
	// color is generated when empty.
	Color string

	// Seed is the document payload used to populate the room if this
	// client is the first to join it.
	Seed string

	// Debounce is the quiet period before a text edit is shared.
	Debounce time.Duration

	// Logger is the Logger of the client.
	Logger *zap.Logger
}

// WithUserName configures the display name of the client.
func WithUserName(userName string) Option {
	return func(o *Options) { o.UserName = userName }
}

// WithColor configures the cursor color of the client.
func WithColor(color string) Option {
	return func(o *Options) { o.Color = color }
}

// WithSeed configures the seed payload for the room.
func WithSeed(seed string) Option {
	return func(o *Options) { o.Seed = seed }
}

// WithDebounce configures the quiet period before a text edit is shared.
func WithDebounce(d time.Duration) Option {
	return func(o *Options) { o.Debounce = d }
}

// WithLogger configures the Logger of the client.
func WithLogger(logger *zap.Logger) Option {
	return func(o *Options) { o.Logger = logger }
}
