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
	"time"

	"autoscalerd/logger"
	"autoscalerd/retry"
)

// LowLevelClient is the pluggable, out-of-scope wire client this
// adapter dials against. Its concrete implementation (talking to NATS,
// NRM, or whatever topic the frame-source simulator publishes to) is
// an external collaborator; only its shape is part of this contract.
type LowLevelClient interface {
	// Stream blocks, delivering events to onEvent, until ctx is
	// canceled or the underlying connection drops (returning an
	// error in the latter case).
	Stream(ctx context.Context, onEvent Handler) error
	Close() error
}

// Dialer opens a LowLevelClient against endpoint.
type Dialer func(ctx context.Context, endpoint string) (LowLevelClient, error)

// NRM adapts a Dialer into a Bus with exponential-backoff reconnect
// for disconnects after a successful start: 100ms initial delay,
// doubling, capped at 10s.
type NRM struct {
	endpoint string
	dial     Dialer
	backoff  retry.Config

	cancel context.CancelFunc
	client LowLevelClient
}

// NewNRM builds a reconnecting Bus for endpoint using dial to open
// each connection attempt. Timeout stays zero: a reconnect round is
// bounded by attempts and context cancellation, not wall clock.
func NewNRM(endpoint string, dial Dialer) *NRM {
	return &NRM{
		endpoint: endpoint,
		dial:     dial,
		backoff: retry.Config{
			MaxRetries:    6,
			InitialDelay:  100 * time.Millisecond,
			MaxDelay:      10 * time.Second,
			BackoffFactor: 2.0,
		},
	}
}

// Subscribe dials the bus once, synchronously, and returns whatever
// error that dial produces: a bus unreachable at startup must be
// reported to the caller so it can exit non-zero rather than come up
// silently idle. Once the first connection succeeds, Subscribe returns
// nil and hands streaming off to a background loop that reconnects
// with backoff whenever the stream later drops. A disconnect after a
// successful start does not affect the caller: the control loop will
// simply observe zero processing rate until reconnection succeeds.
func (n *NRM) Subscribe(ctx context.Context, onEvent Handler) error {
	client, err := n.dial(ctx, n.endpoint)
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	n.cancel = cancel
	n.client = client

	go n.run(runCtx, client, onEvent)
	return nil
}

func (n *NRM) run(ctx context.Context, client LowLevelClient, onEvent Handler) {
	retryer := retry.New(n.backoff, nil)

	for {
		streamErr := client.Stream(ctx, onEvent)
		client.Close()

		if ctx.Err() != nil {
			return
		}
		if streamErr != nil {
			logger.Warn("bus: stream to %s disconnected: %v", n.endpoint, streamErr)
		}

		// Each round backs off from the initial delay up to the cap;
		// exhausted rounds simply start over until the context ends.
		for {
			err := retryer.DoWithContext(ctx, "bus_reconnect", func(ctx context.Context) error {
				reconnected, dialErr := n.dial(ctx, n.endpoint)
				if dialErr != nil {
					return dialErr
				}
				client = reconnected
				n.client = reconnected
				return nil
			})
			if err == nil {
				break
			}
			if ctx.Err() != nil {
				return
			}
			logger.Warn("bus: still unable to reconnect to %s: %v", n.endpoint, err)
		}
	}
}

// Close stops the reconnect loop and releases the current connection.
func (n *NRM) Close() error {
	if n.cancel != nil {
		n.cancel()
	}
	if n.client != nil {
		return n.client.Close()
	}
	return nil
}
