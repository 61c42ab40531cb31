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

// Package aggregate turns the sliding sensor store into the two
// scalars the PD law consumes: total queued frames and total
// processing rate, summed across every pod within the window.
package aggregate

import (
	"time"

	"autoscalerd/sensors"
)

// Aggregator computes backlog and throughput scalars on demand from a
// sensors.Store. It holds no state of its own.
type Aggregator struct {
	store *sensors.Store
}

// New builds an Aggregator reading from store.
func New(store *sensors.Store) *Aggregator {
	return &Aggregator{store: store}
}

// TotalQueued sums the value of every framesqueued sample within the
// window as of now. excludeScopes, when non-nil, skips samples whose
// scope is present in the set; the terminating-pod set is supplied by
// the caller, since correlating scope with pod phase lives outside
// this package.
func (a *Aggregator) TotalQueued(now time.Time, excludeScopes map[string]struct{}) float64 {
	return a.sum(sensors.CategoryFramesQueued, now, excludeScopes)
}

// TotalProcessingRate sums the value of every frameprocessingrate
// sample within the window as of now. framesprocessed is deliberately
// left out: it is a cumulative count, not a rate, and folding it in
// would keep the control loop actuating for pods whose rate sensor
// has gone silent.
func (a *Aggregator) TotalProcessingRate(now time.Time, excludeScopes map[string]struct{}) float64 {
	return a.sum(sensors.CategoryProcessingRate, now, excludeScopes)
}

func (a *Aggregator) sum(category string, now time.Time, excludeScopes map[string]struct{}) float64 {
	entries := a.store.Query(category, now)
	var total float64
	for _, e := range entries {
		if excludeScopes != nil {
			if _, excluded := excludeScopes[e.Key.Scope]; excluded {
				continue
			}
		}
		total += e.Sample.Value
	}
	return total
}
