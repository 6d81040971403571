package sentrywin

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/windowkeep/sentrywin/internal/adapters/advancer"
	"github.com/windowkeep/sentrywin/internal/adapters/bus"
	"github.com/windowkeep/sentrywin/internal/adapters/clock"
	"github.com/windowkeep/sentrywin/internal/adapters/eventlog"
	"github.com/windowkeep/sentrywin/internal/adapters/listener"
	"github.com/windowkeep/sentrywin/internal/adapters/matcher"
	"github.com/windowkeep/sentrywin/internal/adapters/observability"
	"github.com/windowkeep/sentrywin/internal/adapters/opcuasignal"
	"github.com/windowkeep/sentrywin/internal/adapters/resultsink"
	"github.com/windowkeep/sentrywin/internal/adapters/scheduler"
	"github.com/windowkeep/sentrywin/internal/engine"
)

// RuntimeOption customizes the dependencies NewRuntime wires in by
// default.
type RuntimeOption func(*runtimeOverrides)

type runtimeOverrides struct {
	advancer      Advancer
	matcher       Matcher
	bus           SignalBus
	observability Observability
	listener      WindowEventListener
}

func WithAdvancer(a Advancer) RuntimeOption {
	return func(o *runtimeOverrides) { o.advancer = a }
}

func WithMatcher(m Matcher) RuntimeOption {
	return func(o *runtimeOverrides) { o.matcher = m }
}

func WithBus(b SignalBus) RuntimeOption {
	return func(o *runtimeOverrides) { o.bus = b }
}

func WithObservability(obs Observability) RuntimeOption {
	return func(o *runtimeOverrides) { o.observability = obs }
}

// WithListener registers an additional WindowEventListener alongside the
// eventlog/resultsink ones NewRuntime wires from Config, and whatever
// replyTo the caller passes to Start.
func WithListener(l WindowEventListener) RuntimeOption {
	return func(o *runtimeOverrides) { o.listener = l }
}

// Runtime bundles a Handle with the optional ambient adapters: an OPC UA
// collector, a NATS bus, a file event log, a Timescale match sink, and a
// Prometheus metrics server.
type Runtime struct {
	cfg        *Config
	handle     *Handle
	obs        Observability
	collector  *opcuasignal.Collector
	eventLog   *eventlog.FileEventLog
	db         *sql.DB
	metricsSrv *http.Server
	signalCh   chan HealthSignal
	stopCh     chan struct{}

	startListener func(replyTo WindowEventListener) WindowEventListener
}

// NewRuntime wires the default adapters from cfg: a system clock, a
// tumbling Advancer, a threshold Matcher, zap+Prometheus observability,
// and (when enabled in cfg) a NATS bus, an OPC UA collector, a file
// event log, and a Timescale match sink. Any RuntimeOption overrides the
// corresponding default.
func NewRuntime(cfg *Config, opts ...RuntimeOption) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("sentrywin: config is required")
	}

	var overrides runtimeOverrides
	for _, opt := range opts {
		if opt != nil {
			opt(&overrides)
		}
	}

	sysClock := clock.System{}

	obs := overrides.observability
	if obs == nil {
		logger, err := zap.NewProduction()
		if err != nil {
			return nil, fmt.Errorf("sentrywin: build logger: %w", err)
		}
		obs = observability.NewZapObs(logger, prometheus.DefaultRegisterer)
	}

	adv := overrides.advancer
	if adv == nil {
		adv = advancer.NewTumblingPolicy(sysClock, cfg.Engine.Frequency, cfg.Advancer.MaxSignals)
	}

	mtc := overrides.matcher
	if mtc == nil {
		mtc = matcher.NewThresholdMatcher(sysClock, cfg.Matcher.Threshold, cfg.Matcher.AlertName)
	}

	sb := overrides.bus
	var natsBus *bus.NATS
	if sb == nil && cfg.Bus.Enabled {
		var err error
		natsBus, err = bus.Connect(cfg.Bus.URL, cfg.Bus.Subject)
		if err != nil {
			return nil, err
		}
		sb = natsBus
	}

	sched := &scheduler.Real{}
	deps := Deps{
		Clock:    sysClock,
		Advancer: adv,
		Matcher:  mtc,
		Bus:      sb,
		Obs:      obs,
	}
	handle := engine.NewHandle(deps, HandleConfig{
		Frequency:              cfg.Engine.Frequency,
		InitialProcessingDelay: cfg.Engine.InitialProcessingDelay,
		ResumeProcessingDelay:  cfg.Engine.ResumeProcessingDelay,
		TickInterval:           cfg.Engine.TickInterval,
		AskTimeout:             cfg.Engine.AskTimeout,
		Backoff:                cfg.Backoff,
	}, sched)

	rt := &Runtime{cfg: cfg, handle: handle, obs: obs}

	if cfg.EventLog.Enabled {
		fl, err := eventlog.NewFileEventLog(cfg.EventLog.Dir)
		if err != nil {
			return nil, err
		}
		rt.eventLog = fl
	}

	var snk *resultsink.TimescaleMatchSink
	if cfg.ResultSink.Enabled {
		db, err := sql.Open("postgres", cfg.ResultSink.ConnString)
		if err != nil {
			return nil, err
		}
		rt.db = db
		snk = resultsink.NewTimescaleMatchSink(db, cfg.ResultSink.Table, mtc)
	}

	extra := overrides.listener
	rt.startListener = func(replyTo WindowEventListener) WindowEventListener {
		fanout := listener.Multi{replyTo}
		if rt.eventLog != nil {
			fanout = append(fanout, rt.eventLog)
		}
		if snk != nil {
			fanout = append(fanout, snk)
		}
		if extra != nil {
			fanout = append(fanout, extra)
		}
		return fanout
	}

	if cfg.OPCUA.Enabled {
		col, err := opcuasignal.NewCollector(cfg.OPCUA.Config)
		if err != nil {
			return nil, err
		}
		rt.collector = col
	}

	return rt, nil
}

// Start begins the runtime: arms the Handle (with a fanned-out listener
// wrapping replyTo), starts the OPC UA collector if enabled, and brings
// up the metrics server.
func (rt *Runtime) Start(replyTo WindowEventListener) error {
	rt.handle.Start(rt.startListener(replyTo))

	if rt.collector != nil {
		rt.signalCh = make(chan HealthSignal, 256)
		rt.stopCh = make(chan struct{})
		if err := rt.collector.Start(rt.signalCh); err != nil {
			return err
		}
		go rt.pumpSignals()
	}

	rt.startMetrics()
	return nil
}

func (rt *Runtime) pumpSignals() {
	for {
		select {
		case <-rt.stopCh:
			return
		case s := <-rt.signalCh:
			rt.handle.ProcessSignal(s)
		}
	}
}

// Run starts the runtime and blocks until ctx is cancelled, then shuts
// down gracefully.
func (rt *Runtime) Run(ctx context.Context, replyTo WindowEventListener) error {
	if err := rt.Start(replyTo); err != nil {
		return err
	}
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return rt.Shutdown(shutdownCtx)
}

// Shutdown stops the Handle, the collector, the metrics server, and
// closes the result-sink database connection.
func (rt *Runtime) Shutdown(ctx context.Context) error {
	var errs []error

	rt.handle.Stop()

	if rt.stopCh != nil {
		close(rt.stopCh)
	}
	if rt.collector != nil {
		if err := rt.collector.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	if rt.eventLog != nil {
		if err := rt.eventLog.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if rt.metricsSrv != nil {
		if err := rt.metricsSrv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs = append(errs, err)
		}
	}
	if rt.db != nil {
		if err := rt.db.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// snapshotView is the JSON shape served from /snapshot, describing the
// currently open window rather than raw Prometheus samples.
type snapshotView struct {
	SignalCount int       `json:"signal_count"`
	LastSignal  string    `json:"last_signal,omitempty"`
	AsOf        time.Time `json:"as_of"`
}

func (rt *Runtime) serveSnapshot(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), rt.cfg.Engine.AskTimeout)
	defer cancel()

	snap, err := rt.handle.Snapshot(ctx)
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	view := snapshotView{AsOf: time.Now()}
	if snap != nil {
		view.SignalCount = len(snap.Data)
		if n := len(snap.Data); n > 0 {
			view.LastSignal = snap.Data[n-1].Name
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(view)
}

func (rt *Runtime) startMetrics() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/snapshot", rt.serveSnapshot)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	rt.metricsSrv = &http.Server{
		Addr:    rt.cfg.Metrics.Addr,
		Handler: mux,
	}
	go func() {
		if err := rt.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			rt.obs.LogError("metrics_server_exited", err)
		}
	}()
}

// Handle exposes the underlying engine Handle for direct use
// (processSignal/tick/flush/pause/closeWindow/snapshot).
func (rt *Runtime) Handle() *Handle { return rt.handle }
