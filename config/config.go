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

// Package config parses the daemon's command-line flags into a
// validated Config. Binding to the standard library's flag.FlagSet
// mirrors the operator's own preference for an explicit,
// dependency-free flag layer.
package config

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"
)

// Config holds every tunable for one run of the autoscaler daemon.
type Config struct {
	Namespace      string
	DeploymentName string
	LogDir         string
	Name           string

	TargetFPS         float64
	KP                float64
	KD                float64
	ContainerCapacity float64

	ControlPeriod     time.Duration
	Window            time.Duration
	BacklogHighWater  float64
	ModelSwapInterval time.Duration

	MetricsAddr        string
	DashboardAddr      string
	ExcludeTerminating bool
	IngressCapacity    int
	BusEndpoint        string
}

// Defaults returns a Config with every flag at its documented
// default. The run name is stamped with the current UTC time so each
// run gets its own scalar CSV under the log directory; the bus
// endpoint falls back to the NRM_URI environment variable.
func Defaults() *Config {
	return &Config{
		Namespace:         "workload",
		DeploymentName:    "consumer",
		LogDir:            "logs",
		Name:              "run_" + time.Now().UTC().Format("20060102_150405"),
		TargetFPS:         600,
		KP:                1.0,
		KD:                3.0,
		ContainerCapacity: 200,
		ControlPeriod:     2 * time.Second,
		Window:            2 * time.Second,
		BacklogHighWater:  6000,
		ModelSwapInterval: 120 * time.Second,
		MetricsAddr:       ":9090",
		IngressCapacity:   4096,
		BusEndpoint:       os.Getenv("NRM_URI"),
	}
}

// Parse binds every flag onto a fresh FlagSet over args (typically
// os.Args[1:]) and returns the resulting Config.
func Parse(args []string) (*Config, error) {
	cfg := Defaults()
	fs := flag.NewFlagSet("autoscalerd", flag.ContinueOnError)

	fs.StringVar(&cfg.Namespace, "namespace", cfg.Namespace, "namespace the target deployment lives in")
	fs.StringVar(&cfg.DeploymentName, "deployment-name", cfg.DeploymentName, "name of the deployment to scale")
	fs.StringVar(&cfg.LogDir, "log-dir", cfg.LogDir, "directory for the file metric sink's CSV output")
	fs.StringVar(&cfg.Name, "name", cfg.Name, "run name; the file metric sink writes <log-dir>/<name>.csv")

	fs.Float64Var(&cfg.TargetFPS, "target-fps", cfg.TargetFPS, "target aggregate processing rate")
	fs.Float64Var(&cfg.KP, "kp", cfg.KP, "proportional gain")
	fs.Float64Var(&cfg.KD, "kd", cfg.KD, "derivative gain")
	fs.Float64Var(&cfg.ContainerCapacity, "container-capacity", cfg.ContainerCapacity, "per-replica processing capacity used to convert the control signal into a replica count")

	fs.DurationVar(&cfg.ControlPeriod, "control-period", cfg.ControlPeriod, "interval between control-loop ticks")
	fs.DurationVar(&cfg.Window, "window", cfg.Window, "sliding window for sensor samples to be considered fresh")
	fs.Float64Var(&cfg.BacklogHighWater, "backlog-high-water", cfg.BacklogHighWater, "total queued frames above which the model swaps to reduced precision; 0 disables the swap")
	fs.DurationVar(&cfg.ModelSwapInterval, "model-swap-interval", cfg.ModelSwapInterval, "minimum time between the controller starting and a model swap, and cooldown thereafter")

	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "address to serve /metrics, /healthz and /readyz on")
	fs.StringVar(&cfg.DashboardAddr, "dashboard-addr", cfg.DashboardAddr, "address to serve the websocket scalar stream on; empty disables it")
	fs.BoolVar(&cfg.ExcludeTerminating, "exclude-terminating", cfg.ExcludeTerminating, "accepted for terminating-pod exclusion from backlog aggregation; pod phase is not correlated with telemetry scope, so no samples are excluded")
	fs.IntVar(&cfg.IngressCapacity, "ingress-capacity", cfg.IngressCapacity, "bounded channel capacity for the telemetry ingress worker")
	fs.StringVar(&cfg.BusEndpoint, "bus-endpoint", cfg.BusEndpoint, "address of the NRM telemetry bus to subscribe to; defaults to $NRM_URI")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every configuration error found, joined into a
// single error, mirroring the accumulate-then-join style used
// throughout this codebase's validation paths.
func (c *Config) Validate() error {
	var errs []string

	if c.DeploymentName == "" {
		errs = append(errs, "deployment-name is required")
	}
	if c.Namespace == "" {
		errs = append(errs, "namespace must not be empty")
	}
	if c.ContainerCapacity <= 0 {
		errs = append(errs, "container-capacity must be positive")
	}
	if c.ControlPeriod <= 0 {
		errs = append(errs, "control-period must be positive")
	}
	if c.Window <= 0 {
		errs = append(errs, "window must be positive")
	}
	if c.BacklogHighWater < 0 {
		errs = append(errs, "backlog-high-water cannot be negative")
	}
	if c.ModelSwapInterval < 0 {
		errs = append(errs, "model-swap-interval cannot be negative")
	}
	if c.IngressCapacity <= 0 {
		errs = append(errs, "ingress-capacity must be positive")
	}
	if c.BusEndpoint == "" {
		errs = append(errs, "bus-endpoint (or NRM_URI) is required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation errors: %s", strings.Join(errs, "; "))
	}
	return nil
}
