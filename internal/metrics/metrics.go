// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ミドルウェア・集約層・ワーカーから利用する。
type MetricsCollector interface {
	RecordHTTPRequest(method, path string, statusCode int)
	RecordHTTPLatency(duration time.Duration)
	RecordUpstreamQuery(query string, success bool)
	RecordUpstreamLatency(query string, duration time.Duration)
	RecordSession(result string)
	RecordTokenRefresh(success bool)
}

// セッション確立結果のラベル値。
const (
	SessionResultToken       = "token"
	SessionResultCredentials = "credentials"
	SessionResultFailed      = "failed"
)

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpRequests    *prometheus.CounterVec
	httpLatency     prometheus.Histogram
	upstreamQueries *prometheus.CounterVec
	upstreamLatency *prometheus.HistogramVec
	sessions        *prometheus.CounterVec
	tokenRefresh    *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "garmetry_http_requests_total",
			Help: "HTTPリクエストの合計数",
		}, []string{"method", "path", "status_code"}),
		httpLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "garmetry_http_request_duration_seconds",
			Help:    "HTTPリクエスト処理のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		upstreamQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "garmetry_upstream_queries_total",
			Help: "上流クエリの結果別合計数",
		}, []string{"query", "result"}),
		upstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "garmetry_upstream_query_duration_seconds",
			Help:    "上流クエリのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"query"}),
		sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "garmetry_sessions_total",
			Help: "上流セッション確立の結果別合計数",
		}, []string{"result"}),
		tokenRefresh: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "garmetry_token_refresh_total",
			Help: "トークンリフレッシュの結果別合計数",
		}, []string{"result"}),
	}

	reg.MustRegister(
		c.httpRequests,
		c.httpLatency,
		c.upstreamQueries,
		c.upstreamLatency,
		c.sessions,
		c.tokenRefresh,
	)

	return c
}

// RecordHTTPRequest はHTTPリクエストの完了を記録する。
func (c *Collector) RecordHTTPRequest(method, path string, statusCode int) {
	c.httpRequests.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
}

// RecordHTTPLatency はHTTPリクエスト処理のレイテンシを記録する。
func (c *Collector) RecordHTTPLatency(duration time.Duration) {
	c.httpLatency.Observe(duration.Seconds())
}

// RecordUpstreamQuery は上流クエリの成否を記録する。
func (c *Collector) RecordUpstreamQuery(query string, success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	c.upstreamQueries.WithLabelValues(query, result).Inc()
}

// RecordUpstreamLatency は上流クエリのレイテンシを記録する。
func (c *Collector) RecordUpstreamLatency(query string, duration time.Duration) {
	c.upstreamLatency.WithLabelValues(query).Observe(duration.Seconds())
}

// RecordSession はセッション確立の結果を記録する。
func (c *Collector) RecordSession(result string) {
	c.sessions.WithLabelValues(result).Inc()
}

// RecordTokenRefresh はトークンリフレッシュの成否を記録する。
func (c *Collector) RecordTokenRefresh(success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	c.tokenRefresh.WithLabelValues(result).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)
