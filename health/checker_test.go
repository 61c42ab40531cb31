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

package health_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autoscalerd/health"
)

func TestNewChecker_StartsUnhealthy(t *testing.T) {
	c := health.NewChecker(time.Minute)

	assert.Error(t, c.LivenessCheck(nil))
	assert.Error(t, c.ReadinessCheck(nil))
}

func TestReport_MarksComponentHealthy(t *testing.T) {
	c := health.NewChecker(time.Minute)
	c.Report("control-loop", true, "ticking")

	assert.NoError(t, c.LivenessCheck(nil))

	status, ok := c.Status("control-loop")
	require.True(t, ok)
	assert.True(t, status.Healthy)
	assert.Equal(t, "ticking", status.Message)
}

func TestReadinessCheck_RequiresAllComponents(t *testing.T) {
	c := health.NewChecker(time.Minute)
	c.Report("control-loop", true, "ticking")
	c.Report("ingress", true, "draining")

	assert.Error(t, c.ReadinessCheck(nil))

	c.Report("bus", true, "subscribed")
	assert.NoError(t, c.ReadinessCheck(nil))
}

func TestLivenessCheck_StaleReportFailsAgain(t *testing.T) {
	c := health.NewChecker(10 * time.Millisecond)
	c.Report("control-loop", true, "ticking")
	assert.NoError(t, c.LivenessCheck(nil))

	time.Sleep(20 * time.Millisecond)
	assert.Error(t, c.LivenessCheck(nil))
}

func TestStatus_UnknownComponent(t *testing.T) {
	c := health.NewChecker(time.Minute)
	_, ok := c.Status("nonexistent")
	assert.False(t, ok)
}
