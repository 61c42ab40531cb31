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

// Package health tracks liveness of the daemon's three long-running
// components (bus subscription, ingress worker, control loop) and
// exposes them as controller-runtime healthz.Checker funcs for the
// --metrics-addr HTTP server's /healthz and /readyz endpoints.
package health

import (
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"sigs.k8s.io/controller-runtime/pkg/healthz"

	"autoscalerd/logger"
)

// ComponentStatus is the last-known state of one tracked component.
type ComponentStatus struct {
	Healthy     bool
	LastChecked time.Time
	Message     string
}

// Checker tracks component health and answers liveness/readiness
// probes. Liveness only requires the control loop to still be
// ticking; readiness additionally requires the bus connection and
// ingress worker to be up.
type Checker struct {
	mu         sync.RWMutex
	components map[string]*ComponentStatus
	// staleAfter marks a component unhealthy if it hasn't reported in
	// this long, catching a wedged goroutine that stopped updating
	// without exiting.
	staleAfter time.Duration
}

// NewChecker builds a Checker with control-loop, ingress, and bus all
// starting unhealthy until the first report comes in from each.
func NewChecker(staleAfter time.Duration) *Checker {
	now := time.Now()
	return &Checker{
		staleAfter: staleAfter,
		components: map[string]*ComponentStatus{
			"control-loop": {Healthy: false, LastChecked: now, Message: "not yet ticked"},
			"ingress":      {Healthy: false, LastChecked: now, Message: "not started"},
			"bus":          {Healthy: false, LastChecked: now, Message: "not connected"},
		},
	}
}

// Report records the current status of component, overwriting
// whatever was previously known.
func (c *Checker) Report(component string, healthy bool, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.components[component] = &ComponentStatus{Healthy: healthy, LastChecked: time.Now(), Message: message}
	logger.Debug("health: %s healthy=%v message=%s", component, healthy, message)
}

// Status returns a copy of component's last report.
func (c *Checker) Status(component string) (ComponentStatus, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.components[component]
	if !ok {
		return ComponentStatus{}, false
	}
	return *s, true
}

func (c *Checker) unhealthy(names ...string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var bad []string
	for _, name := range names {
		s, ok := c.components[name]
		if !ok || !s.Healthy || time.Since(s.LastChecked) > c.staleAfter {
			bad = append(bad, name)
		}
	}
	return bad
}

// LivenessCheck satisfies healthz.Checker: only the control loop must
// be ticking, since a disconnected bus can recover on its own via
// reconnect backoff without the process needing a restart.
func (c *Checker) LivenessCheck(_ *http.Request) error {
	if bad := c.unhealthy("control-loop"); len(bad) > 0 {
		return errors.New("control loop not healthy")
	}
	return nil
}

// ReadinessCheck satisfies healthz.Checker: every component must be
// reporting healthy and recently.
func (c *Checker) ReadinessCheck(_ *http.Request) error {
	if bad := c.unhealthy("control-loop", "ingress", "bus"); len(bad) > 0 {
		return errors.New("components not ready: " + strings.Join(bad, ","))
	}
	return nil
}

var _ healthz.Checker = (&Checker{}).LivenessCheck
