// Package observability adapts the engine's narrow ports.Observability
// port to zap for structured logging and client_golang for metrics.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/windowkeep/sentrywin/internal/ports"
)

// ZapObs is the production ports.Observability adapter: structured logs
// via zap, counters/gauges via client_golang, registered once at
// construction and looked up by name on each call.
type ZapObs struct {
	log     *zap.SugaredLogger
	counter *prometheus.CounterVec
	gauge   *prometheus.GaugeVec
	latency *prometheus.HistogramVec
}

// NewZapObs builds a ZapObs and registers its metrics against reg. Pass
// prometheus.DefaultRegisterer for the process-wide registry.
func NewZapObs(logger *zap.Logger, reg prometheus.Registerer) *ZapObs {
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sentrywin_events_total",
		Help: "Count of named engine events (log calls, matcher/bus failures, restarts).",
	}, []string{"event"})
	gauge := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sentrywin_gauge",
		Help: "Named instantaneous values reported by the engine.",
	}, []string{"name"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sentrywin_latency_seconds",
		Help:    "Named latency observations reported by the engine.",
		Buckets: prometheus.DefBuckets,
	}, []string{"name"})

	reg.MustRegister(counter, gauge, latency)

	return &ZapObs{
		log:     logger.Sugar(),
		counter: counter,
		gauge:   gauge,
		latency: latency,
	}
}

func (z *ZapObs) LogInfo(msg string, fields ...ports.Field) {
	z.log.Infow(msg, toZapArgs(fields)...)
}

func (z *ZapObs) LogError(msg string, err error, fields ...ports.Field) {
	args := append(toZapArgs(fields), "error", err)
	z.log.Errorw(msg, args...)
	z.counter.WithLabelValues(msg).Inc()
}

func (z *ZapObs) LogCritical(msg string, err error, fields ...ports.Field) {
	args := append(toZapArgs(fields), "error", err)
	z.log.Errorw("CRITICAL: "+msg, args...)
	z.counter.WithLabelValues(msg).Inc()
}

func (z *ZapObs) IncCounter(name string, v float64) {
	z.counter.WithLabelValues(name).Add(v)
}

func (z *ZapObs) ObserveLatency(name string, seconds float64) {
	z.latency.WithLabelValues(name).Observe(seconds)
}

func (z *ZapObs) SetGauge(name string, v float64) {
	z.gauge.WithLabelValues(name).Set(v)
}

func toZapArgs(fields []ports.Field) []any {
	args := make([]any, 0, len(fields)*2)
	for _, f := range fields {
		args = append(args, f.Key, f.Value)
	}
	return args
}
