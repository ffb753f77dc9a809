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

// Package rpc provides the network-facing relay of the server. Each client
// holds one WebSocket connection per room; mutations and presence updates
// arrive as JSON frames and broadcasts leave the same way.
package rpc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/xid"

	"github.com/segue-live/segue/server/backend"
	"github.com/segue-live/segue/server/logging"
)

const shutdownTimeout = 5 * time.Second

// Server is the synchronization service: it accepts room connections,
// applies incoming mutations in arrival order and broadcasts the results.
type Server struct {
	conf       *Config
	backend    *backend.Backend
	router     *mux.Router
	httpServer *http.Server
	upgrader   websocket.Upgrader
	logger     logging.Logger
}

// NewServer creates a new instance of Server.
func NewServer(conf *Config, be *backend.Backend) *Server {
	s := &Server{
		conf:    conf,
		backend: be,
		router:  mux.NewRouter(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Room access is controlled purely by knowledge of the room
			// token, so cross-origin browsers may connect.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger: logging.New("rpc"),
	}

	s.router.Methods(http.MethodGet).Path("/rooms/{room}/sync").HandlerFunc(s.handleSync)
	s.router.Methods(http.MethodGet).Path("/healthz").HandlerFunc(s.handleHealth)

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", conf.Port),
		Handler: s.router,
	}
	return s
}

// Handler returns the HTTP handler of this server. It exists so tests can
// mount the server on httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the server.
func (s *Server) Start() error {
	go func() {
		s.logger.Infof("serving rpc on %d", s.conf.Port)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Errorf("serve rpc: %v", err)
		}
	}()
	return nil
}

// Shutdown shuts down the server.
func (s *Server) Shutdown(graceful bool) {
	if graceful {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Errorf("shutdown rpc: %v", err)
		}
		return
	}

	if err := s.httpServer.Close(); err != nil {
		s.logger.Errorf("close rpc: %v", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleSync joins one client to one room: the room is created and seeded
// on first join, the connection is upgraded and the connection loop runs
// until the client disconnects.
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["room"]
	if roomID == "" {
		http.Error(w, "room id is required", http.StatusBadRequest)
		return
	}

	sessionID := xid.New().String()
	logger := s.logger.With("room", roomID, "session", sessionID)
	ctx := logging.With(r.Context(), logger)

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warnf("upgrade: %v", err)
		return
	}

	// The room is created only for an established connection; a plain GET
	// that fails the handshake must not seed anything.
	_, created := s.backend.Rooms.GetOrCreate(ctx, roomID, r.URL.Query().Get("data"))
	if created {
		s.backend.Metrics.RoomCreated()
	}

	conn := newConnection(sessionID, roomID, ws, s.backend, logger)
	conn.run(ctx)
}
