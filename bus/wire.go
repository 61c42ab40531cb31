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
	"bufio"
	"context"
	"encoding/json"
	"net"
)

// wireEvent is the newline-delimited JSON frame exchanged between
// cmd/simulate and this daemon over the NRM bus endpoint. The real
// NRM wire protocol is an external collaborator out of scope for this
// repo; this is the minimal transport this codebase owns so the
// daemon and the bundled simulator can talk to each other without
// depending on an unavailable third-party client library.
type wireEvent struct {
	Sensor string  `json:"sensor"`
	TNanos int64   `json:"t_nanos"`
	Scope  string  `json:"scope"`
	Value  float64 `json:"value"`
}

// wireConn adapts a net.Conn into a LowLevelClient, reading one JSON
// object per line.
type wireConn struct {
	conn net.Conn
}

// DialTCP is a Dialer that opens a plain TCP connection to endpoint
// and decodes newline-delimited JSON events from it.
func DialTCP(ctx context.Context, endpoint string) (LowLevelClient, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", endpoint)
	if err != nil {
		return nil, err
	}
	return &wireConn{conn: conn}, nil
}

func (w *wireConn) Stream(ctx context.Context, onEvent Handler) error {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			w.conn.Close()
		case <-done:
		}
	}()
	defer close(done)

	scanner := bufio.NewScanner(w.conn)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	for scanner.Scan() {
		var ev wireEvent
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			continue
		}
		onEvent(RawEvent{
			SensorName: []byte(ev.Sensor),
			TimeNanos:  ev.TNanos,
			Scope:      ev.Scope,
			Value:      ev.Value,
		})
	}
	return scanner.Err()
}

func (w *wireConn) Close() error { return w.conn.Close() }

// Publisher writes wireEvent frames to a single connection, the
// server-side half of the same protocol; cmd/simulate uses this to
// feed a connected autoscalerd.
type Publisher struct {
	enc *json.Encoder
}

// NewPublisher wraps conn for writing newline-delimited JSON events.
func NewPublisher(conn net.Conn) *Publisher {
	return &Publisher{enc: json.NewEncoder(conn)}
}

// Publish writes one event as a line of JSON.
func (p *Publisher) Publish(sensor string, tNanos int64, scope string, value float64) error {
	return p.enc.Encode(wireEvent{Sensor: sensor, TNanos: tNanos, Scope: scope, Value: value})
}
