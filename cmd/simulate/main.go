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

// Command simulate is a synthetic frame-source: it listens for bus
// connections and publishes framesqueued/frameprocessingrate events
// for a configurable number of pod scopes, standing in for the
// pvapy-backed frame producer and detector pods this daemon was
// built to autoscale.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"autoscalerd/bus"
	"autoscalerd/logger"
)

func main() {
	addr := flag.String("addr", ":9999", "address to listen on for bus subscribers")
	pods := flag.Int("pods", 3, "number of synthetic pod scopes to simulate")
	frameRate := flag.Float64("frame-rate", 100, "synthetic incoming frame rate per pod")
	processingRate := flag.Float64("processing-rate", 90, "synthetic per-pod processing rate")
	period := flag.Duration("period", time.Second, "interval between published samples")
	flag.Parse()

	logger.Init("info")

	ln, err := net.Listen("tcp", *addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "simulate: listen: %v\n", err)
		os.Exit(1)
	}
	defer ln.Close()
	logger.Info("simulate: listening on %s, %d synthetic pods", *addr, *pods)

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn("simulate: accept: %v", err)
			continue
		}
		go serve(ctx, conn, *pods, *frameRate, *processingRate, *period)
	}
}

func serve(ctx context.Context, conn net.Conn, pods int, frameRate, processingRate float64, period time.Duration) {
	defer conn.Close()
	pub := bus.NewPublisher(conn)

	// Each synthetic pod gets a UUID scope, matching the opaque
	// string-UUID scopes real consumer pods stamp on their telemetry.
	scopes := make([]string, pods)
	for i := range scopes {
		scopes[i] = uuid.NewString()
	}

	queued := make([]float64, pods)
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			for i := 0; i < pods; i++ {
				scope := scopes[i]
				jitter := 1 + (rand.Float64()-0.5)*0.1
				queued[i] += frameRate * jitter * period.Seconds()
				processed := processingRate * jitter * period.Seconds()
				if processed > queued[i] {
					processed = queued[i]
				}
				queued[i] -= processed

				if err := pub.Publish("framesqueued", now.UnixNano(), scope, queued[i]); err != nil {
					return
				}
				if err := pub.Publish("frameprocessingrate", now.UnixNano(), scope, processingRate*jitter); err != nil {
					return
				}
			}
		}
	}
}
