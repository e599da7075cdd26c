package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/garmetry/internal/metrics"
	"github.com/hitoshi/garmetry/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger      *slog.Logger
	Collector   metrics.MetricsCollector
	RateLimiter *middleware.RateLimiter
	APIKey      string

	// メトリクス集約
	MetricService MetricServiceInterface

	// 運用エンドポイント
	MetricsHandler http.Handler // GET /metrics（Prometheusスクレイプ）
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → Logging → Metrics → Recovery →（保護ルートのみ）APIKey → RateLimit
//
// /health と /metrics はAPIキー検証の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	// 全ルート共通のミドルウェア
	r.Use(middleware.NewRequestIDMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	r.Use(middleware.NewMetricsMiddleware(deps.Collector))
	r.Use(middleware.NewRecoveryMiddleware())

	healthHandler := NewHealthHandler()
	metricHandler := NewMetricHandler(deps.MetricService)

	// --- 認証不要のルート ---

	r.Get("/health", healthHandler.Health)

	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// --- APIキーが必要なルート ---
	// ミドルウェアスタック: APIKey → RateLimit
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAPIKeyMiddleware(deps.APIKey, deps.Logger))
		r.Use(deps.RateLimiter.Middleware())

		r.Get("/params", metricHandler.Params)
		r.Get("/activities", metricHandler.Activities)
		r.Get("/activity/{activityID}/steps", metricHandler.ActivitySteps)
		r.Get("/daily", metricHandler.Daily)
	})

	return r
}
