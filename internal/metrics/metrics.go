// Package metrics exposes Prometheus counters and histograms for the
// matching core: fills, evictions, queue-full rejections, and
// end-to-end match latency per market.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module wires the registry, the matcher metrics collectors, and the
// /metrics HTTP endpoint into the fx graph.
var Module = fx.Options(
	fx.Provide(NewRegistry),
	fx.Provide(NewMatcherMetrics),
	fx.Invoke(RegisterHandler),
)

// NewRegistry creates the Prometheus registry the rest of the process
// registers collectors against.
func NewRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

// MatcherMetrics collects the counters and histograms a matching call
// and the consume-events collaborator emit.
type MatcherMetrics struct {
	fills         *prometheus.CounterVec
	outs          *prometheus.CounterVec
	evictions     *prometheus.CounterVec
	queueFull     *prometheus.CounterVec
	selfTrades    *prometheus.CounterVec
	matchLatency  *prometheus.HistogramVec
	consumeReward *prometheus.CounterVec
}

// NewMatcherMetrics registers and returns the matcher's collectors.
func NewMatcherMetrics(registry *prometheus.Registry) *MatcherMetrics {
	m := &MatcherMetrics{
		fills: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clob_fills_total",
			Help: "Number of Fill events emitted by the matcher.",
		}, []string{"market"}),
		outs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clob_outs_total",
			Help: "Number of Out events emitted by the matcher.",
		}, []string{"market", "reason"}),
		evictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clob_evictions_total",
			Help: "Number of resting orders evicted for arena space.",
		}, []string{"market", "side"}),
		queueFull: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clob_event_queue_full_total",
			Help: "Number of new_order calls that failed with EventQueueFull.",
		}, []string{"market"}),
		selfTrades: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clob_self_trades_total",
			Help: "Number of self-trade resolutions by policy.",
		}, []string{"market", "policy"}),
		matchLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "clob_match_latency_seconds",
			Help:    "Wall-clock latency of a single new_order call.",
			Buckets: prometheus.DefBuckets,
		}, []string{"market"}),
		consumeReward: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clob_consume_reward_total",
			Help: "Cumulative reward paid out by consume-events.",
		}, []string{"market"}),
	}

	registry.MustRegister(m.fills, m.outs, m.evictions, m.queueFull, m.selfTrades, m.matchLatency, m.consumeReward)
	return m
}

// ObserveMatch records the latency of one new_order call.
func (m *MatcherMetrics) ObserveMatch(market string, d time.Duration) {
	m.matchLatency.WithLabelValues(market).Observe(d.Seconds())
}

// RecordFill increments the fill counter for market.
func (m *MatcherMetrics) RecordFill(market string) {
	m.fills.WithLabelValues(market).Inc()
}

// RecordOut increments the out counter for market, tagged with why the
// leaf left the book ("self_trade" or "eviction").
func (m *MatcherMetrics) RecordOut(market, reason string) {
	m.outs.WithLabelValues(market, reason).Inc()
}

// RecordEviction increments the eviction counter for market/side.
func (m *MatcherMetrics) RecordEviction(market, side string) {
	m.evictions.WithLabelValues(market, side).Inc()
}

// RecordQueueFull increments the queue-full counter for market.
func (m *MatcherMetrics) RecordQueueFull(market string) {
	m.queueFull.WithLabelValues(market).Inc()
}

// RecordSelfTrade increments the self-trade counter for market/policy.
func (m *MatcherMetrics) RecordSelfTrade(market, policy string) {
	m.selfTrades.WithLabelValues(market, policy).Inc()
}

// RecordConsumeReward adds reward to market's cumulative payout total.
func (m *MatcherMetrics) RecordConsumeReward(market string, reward float64) {
	m.consumeReward.WithLabelValues(market).Add(reward)
}

// Addr is the listen address for the /metrics endpoint, wrapped in its
// own type so fx can resolve it distinctly from any other string the
// graph provides. An empty Addr disables the metrics server.
type Addr string

// RegisterHandler mounts the /metrics endpoint and wires its lifecycle
// to the fx app. A blank addr skips starting the server entirely.
func RegisterHandler(lifecycle fx.Lifecycle, registry *prometheus.Registry, logger *zap.Logger, addr Addr) {
	if addr == "" {
		return
	}
	server := &http.Server{
		Addr:    string(addr),
		Handler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	}

	lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			logger.Info("starting metrics server", zap.String("addr", server.Addr))
			go func() {
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Error("metrics server error", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("stopping metrics server")
			return server.Shutdown(ctx)
		},
	})
}
