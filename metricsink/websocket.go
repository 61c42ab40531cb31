// Copyright (C) 2024 right-sizer contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package metricsink

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"autoscalerd/logger"
)

// WebsocketSink streams every Sample to connected dashboard clients
// over a single "/scalars" endpoint, with one connection type instead
// of a filterable event bus.
type WebsocketSink struct {
	upgrader websocket.Upgrader

	mu    sync.RWMutex
	conns map[*websocket.Conn]chan Sample
}

// NewWebsocketSink builds a sink; mount Handler on an http.ServeMux
// served at --dashboard-addr.
func NewWebsocketSink() *WebsocketSink {
	return &WebsocketSink{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		conns: make(map[*websocket.Conn]chan Sample),
	}
}

// Handler upgrades the connection and registers it for scalar
// delivery until the client disconnects.
func (w *WebsocketSink) Handler(rw http.ResponseWriter, r *http.Request) {
	conn, err := w.upgrader.Upgrade(rw, r, nil)
	if err != nil {
		logger.Warn("metricsink: websocket upgrade failed: %v", err)
		return
	}

	send := make(chan Sample, 256)
	w.mu.Lock()
	w.conns[conn] = send
	w.mu.Unlock()

	go w.writeLoop(conn, send)
}

func (w *WebsocketSink) writeLoop(conn *websocket.Conn, send chan Sample) {
	defer func() {
		w.mu.Lock()
		delete(w.conns, conn)
		w.mu.Unlock()
		conn.Close()
	}()

	for sample := range send {
		data, err := json.Marshal(sample)
		if err != nil {
			continue
		}
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
}

// Emit fans sample out to every connected client, dropping it for any
// client whose send buffer is full rather than blocking the control
// loop.
func (w *WebsocketSink) Emit(sample Sample) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	for _, send := range w.conns {
		select {
		case send <- sample:
		default:
			logger.Warn("metricsink: websocket client buffer full, dropping sample %s", sample.Name)
		}
	}
}

func (w *WebsocketSink) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for conn, send := range w.conns {
		close(send)
		conn.Close()
		delete(w.conns, conn)
	}
	return nil
}
