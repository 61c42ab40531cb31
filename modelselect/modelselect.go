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

// Package modelselect tracks the active inference model variant and
// decides when to downgrade from full to reduced precision under
// sustained backlog. The downgrade is one-shot: once swapped, this
// selector never re-promotes back to full precision.
package modelselect

import "time"

// Model variant identifiers, ordered high-precision to low.
const (
	ModelFullPrecision    = "M1"
	ModelReducedPrecision = "M0"
)

// Selector is the ModelSelector state machine. Zero value is not
// usable; construct with New.
type Selector struct {
	backlogHighWater float64
	swapInterval     time.Duration

	active       string
	lastSwapTime time.Time
	swapped      bool
}

// New builds a Selector starting at M1 (full precision). startedAt
// seeds the swap-interval cooldown before any swap has happened, so a
// transient backlog spike right after startup does not trigger an
// immediate downgrade. A backlogHighWater of 0 or less disables the
// swap entirely.
func New(backlogHighWater float64, swapInterval time.Duration, startedAt time.Time) *Selector {
	return &Selector{
		backlogHighWater: backlogHighWater,
		swapInterval:     swapInterval,
		active:           ModelFullPrecision,
		lastSwapTime:     startedAt,
	}
}

// Enabled reports whether the swap mechanism is active at all.
func (s *Selector) Enabled() bool { return s.backlogHighWater > 0 }

// Active returns the currently active model variant.
func (s *Selector) Active() string { return s.active }

// ShouldSwap reports whether a downgrade should occur on this tick:
// totalQueued exceeds the high-water mark, at least swapInterval has
// elapsed since the last swap (or since startedAt, before any), this is
// still M1, and the one-shot downgrade has not already occurred.
func (s *Selector) ShouldSwap(totalQueued float64, now time.Time) bool {
	if !s.Enabled() || s.swapped || s.active != ModelFullPrecision {
		return false
	}
	if totalQueued <= s.backlogHighWater {
		return false
	}
	if now.Sub(s.lastSwapTime) < s.swapInterval {
		return false
	}
	return true
}

// Swap performs the one-shot M1 -> M0 downgrade, recording the swap
// time and marking the downgrade done so ShouldSwap never offers
// another transition.
func (s *Selector) Swap(now time.Time) {
	s.active = ModelReducedPrecision
	s.lastSwapTime = now
	s.swapped = true
}
