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

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"k8s.io/client-go/kubernetes"
	"k8s.io/klog/v2"
	metricsclientset "k8s.io/metrics/pkg/client/clientset/versioned"
	ctrl "sigs.k8s.io/controller-runtime"
	ctrlhealthz "sigs.k8s.io/controller-runtime/pkg/healthz"
	ctrllog "sigs.k8s.io/controller-runtime/pkg/log"

	"autoscalerd/actuate"
	"autoscalerd/bus"
	"autoscalerd/config"
	"autoscalerd/control"
	cerrors "autoscalerd/errors"
	"autoscalerd/health"
	"autoscalerd/ingress"
	"autoscalerd/logger"
	"autoscalerd/metricsink"
	"autoscalerd/orchestrator"
	"autoscalerd/sensors"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		return cerrors.StartupError("parsing configuration", err)
	}

	logger.Init("info")
	ctrllog.SetLogger(logger.Global.Logr())
	klog.SetLogger(logger.Global.Logr())

	logger.Info("autoscalerd starting: deployment=%s namespace=%s", cfg.DeploymentName, cfg.Namespace)

	kubeConfig, err := ctrl.GetConfig()
	if err != nil {
		return cerrors.StartupError("loading kubeconfig", err)
	}

	clientset, err := kubernetes.NewForConfig(kubeConfig)
	if err != nil {
		return cerrors.StartupError("building kubernetes clientset", err)
	}

	var metricsClient metricsclientset.Interface
	if mc, err := metricsclientset.NewForConfig(kubeConfig); err == nil {
		metricsClient = mc
	} else {
		logger.Warn("autoscalerd: metrics-server client unavailable: %v", err)
	}

	orchestratorClient := orchestrator.NewK8s(clientset, metricsClient)
	actuator := actuate.New(orchestratorClient, cfg.Namespace, cfg.DeploymentName, nil)

	store := sensors.NewStore(cfg.Window)

	registry := prometheus.NewRegistry()
	promSink := metricsink.NewPrometheusSink(registry)
	fileSink, err := metricsink.NewFileSink(cfg.LogDir, cfg.Name)
	if err != nil {
		return cerrors.StartupError("opening scalar log file", err)
	}
	sinks := []metricsink.Sink{promSink, fileSink, metricsink.LogSink{}}

	var wsSink *metricsink.WebsocketSink
	if cfg.DashboardAddr != "" {
		wsSink = metricsink.NewWebsocketSink()
		sinks = append(sinks, wsSink)
	}
	sink := metricsink.NewMulti(sinks...)

	checker := health.NewChecker(cfg.ControlPeriod * 5)

	ti := ingress.New(store, cfg.IngressCapacity)
	ti.Start()
	checker.Report("ingress", true, "started")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go reportIngressCounters(ctx, ti, promSink)

	b := bus.NewNRM(cfg.BusEndpoint, bus.DialTCP)
	if err := b.Subscribe(ctx, func(ev bus.RawEvent) {
		checker.Report("bus", true, "receiving events")
		ti.OnEvent(ev)
	}); err != nil {
		return cerrors.StartupError("subscribing to telemetry bus", err)
	}

	startedAt := time.Now()
	loop := control.New(control.Config{
		KP:                 cfg.KP,
		KD:                 cfg.KD,
		ContainerCapacity:  cfg.ContainerCapacity,
		TargetFPS:          cfg.TargetFPS,
		BacklogHighWater:   cfg.BacklogHighWater,
		ControlPeriod:      cfg.ControlPeriod,
		SlidingWindow:      cfg.Window,
		ModelSwapInterval:  cfg.ModelSwapInterval,
		Namespace:          cfg.Namespace,
		Deployment:         cfg.DeploymentName,
		ExcludeTerminating: cfg.ExcludeTerminating,
	}, store, actuator, sink, startedAt)

	loop.OnTick = func(now time.Time) {
		checker.Report("control-loop", true, "ticked")
	}
	checker.Report("control-loop", true, "starting")

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.Handle("/healthz", &ctrlhealthz.CheckHandler{Checker: ctrlhealthz.Checker(checker.LivenessCheck)})
	mux.Handle("/readyz", &ctrlhealthz.CheckHandler{Checker: ctrlhealthz.Checker(checker.ReadinessCheck)})
	httpServer := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("autoscalerd: metrics server error: %v", err)
		}
	}()

	var dashboardServer *http.Server
	if wsSink != nil {
		dashboardMux := http.NewServeMux()
		dashboardMux.HandleFunc("/scalars", wsSink.Handler)
		dashboardServer = &http.Server{Addr: cfg.DashboardAddr, Handler: dashboardMux}
		go func() {
			if err := dashboardServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("autoscalerd: dashboard server error: %v", err)
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		loop.Run(ctx)
	}()

	<-sigCh
	logger.Info("autoscalerd: shutdown signal received")
	cancel()
	b.Close()
	ti.Stop()
	<-loopDone

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
	if dashboardServer != nil {
		dashboardServer.Shutdown(shutdownCtx)
	}

	return nil
}

// reportIngressCounters mirrors the ingress worker's drop/decode-error
// counters into the Prometheus counters on a short interval, since
// TelemetryIngress tracks them as plain totals rather than pushing to
// a sink directly.
func reportIngressCounters(ctx context.Context, ti *ingress.TelemetryIngress, sink *metricsink.PrometheusSink) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	var lastDropped, lastDecodeErrs int64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if d := ti.Dropped(); d > lastDropped {
				sink.Dropped.Add(float64(d - lastDropped))
				lastDropped = d
			}
			if d := ti.DecodeErrors(); d > lastDecodeErrs {
				sink.DecodeError.Add(float64(d - lastDecodeErrs))
				lastDecodeErrs = d
			}
		}
	}
}
