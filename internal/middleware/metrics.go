package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/garmetry/internal/metrics"
)

// NewMetricsMiddleware はHTTPリクエストの件数とレイテンシを記録する
// ミドルウェアを返す。パスラベルにはカーディナリティを抑えるため
// chiのルートパターン(例: /activity/{activityID}/steps)を使う。
func NewMetricsMiddleware(collector metrics.MetricsCollector) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rec := &statusRecorder{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(rec, r)

			path := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					path = pattern
				}
			}

			collector.RecordHTTPRequest(r.Method, path, rec.statusCode)
			collector.RecordHTTPLatency(time.Since(start))
		})
	}
}
