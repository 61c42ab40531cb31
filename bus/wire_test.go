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

package bus

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWireConn_StreamDecodesPublishedEvents(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()

	pub := NewPublisher(server)
	go func() {
		require.NoError(t, pub.Publish("framesqueued", 1000, "pod-a", 42))
	}()

	conn := &wireConn{conn: client}
	received := make(chan RawEvent, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		conn.Stream(ctx, func(ev RawEvent) { received <- ev })
	}()

	select {
	case ev := <-received:
		assert.Equal(t, "framesqueued", string(ev.SensorName))
		assert.Equal(t, "pod-a", ev.Scope)
		assert.Equal(t, 42.0, ev.Value)
	case <-time.After(2 * time.Second):
		t.Fatal("did not receive event")
	}
}

func TestWireConn_StreamStopsOnContextCancel(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()

	conn := &wireConn{conn: client}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		conn.Stream(ctx, func(RawEvent) {})
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stream did not return after cancel")
	}
}
