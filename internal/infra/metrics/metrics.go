// Package metrics 汇总 transport 与 cache 的 prometheus 指标。
//
// 每个 Metrics 持有独立的 Registry，不污染全局 DefaultRegisterer（测试可并行创建）。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "moviegraph"

// 缓存事件名。
const (
	CacheHit        = "hit"
	CacheMiss       = "miss"
	CacheCoalesced  = "coalesced"
	CacheRetry      = "retry"
	CacheInvalidate = "invalidate"
)

type Metrics struct {
	Registry *prometheus.Registry

	Requests *prometheus.CounterVec
	Duration *prometheus.HistogramVec
	Cache    *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "graphql",
			Name:      "requests_total",
			Help:      "GraphQL 请求数，按 operation 与结果分类。",
		}, []string{"operation", "outcome"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "graphql",
			Name:      "request_duration_seconds",
			Help:      "GraphQL 请求耗时。",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		Cache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "events_total",
			Help:      "查询缓存事件（hit/miss/coalesced/retry/invalidate）。",
		}, []string{"operation", "event"}),
	}
	m.Registry.MustRegister(m.Requests, m.Duration, m.Cache)
	return m
}

// ObserveRequest 记录一次 transport 调用。m 为 nil 时什么都不做。
func (m *Metrics) ObserveRequest(op, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(op, outcome).Inc()
	m.Duration.WithLabelValues(op).Observe(d.Seconds())
}

// CacheEvent 记录一次缓存事件。m 为 nil 时什么都不做。
func (m *Metrics) CacheEvent(op, event string) {
	if m == nil {
		return
	}
	m.Cache.WithLabelValues(op, event).Inc()
}

// Handler 暴露 /metrics。
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
