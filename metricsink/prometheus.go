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
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusSink exposes every emitted scalar as a gauge, plus the
// ingress drop/decode counters exposed separately as the Dropped and
// DecodeError fields. Each distinct Sample.Name gets its own gauge,
// registered lazily on first Emit.
type PrometheusSink struct {
	registerer prometheus.Registerer

	mu     sync.Mutex
	gauges map[string]prometheus.Gauge

	Dropped     prometheus.Counter
	DecodeError prometheus.Counter
}

// NewPrometheusSink registers the ingress counters against registerer
// and returns a sink ready to lazily register a gauge per scalar name.
func NewPrometheusSink(registerer prometheus.Registerer) *PrometheusSink {
	dropped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "autoscalerd_ingress_dropped_total",
		Help: "Events dropped from the ingress channel due to overflow.",
	})
	decodeErr := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "autoscalerd_ingress_decode_errors_total",
		Help: "Events rejected by ingress before enqueueing due to decode failure.",
	})
	registerer.MustRegister(dropped, decodeErr)

	return &PrometheusSink{
		registerer:  registerer,
		gauges:      make(map[string]prometheus.Gauge),
		Dropped:     dropped,
		DecodeError: decodeErr,
	}
}

func (p *PrometheusSink) Emit(s Sample) {
	p.mu.Lock()
	g, ok := p.gauges[s.Name]
	if !ok {
		g = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "autoscalerd_" + s.Name,
			Help: "Control-loop scalar: " + s.Name,
		})
		p.registerer.MustRegister(g)
		p.gauges[s.Name] = g
	}
	p.mu.Unlock()

	g.Set(s.Value)
}

func (p *PrometheusSink) Close() error { return nil }
