package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/hitoshi/garmetry/internal/config"
	"github.com/hitoshi/garmetry/internal/garmin"
	"github.com/hitoshi/garmetry/internal/handler"
	"github.com/hitoshi/garmetry/internal/logger"
	"github.com/hitoshi/garmetry/internal/metrics"
	"github.com/hitoshi/garmetry/internal/middleware"
	"github.com/hitoshi/garmetry/internal/session"
	"github.com/hitoshi/garmetry/internal/token"
	"github.com/hitoshi/garmetry/internal/worker/refresh"
)

// Init はアプリケーションの初期化を行う。
// .envファイル（存在する場合）と環境変数からConfigを読み込み、
// JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// .envは任意。存在しない場合は環境変数のみを使う。
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.SetupDefault(w, logger.ParseLevel(cfg.LogLevel))

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8000"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("アプリケーションを起動します",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
	)

	switch cmd {
	case CommandWorker:
		return runWorker(cfg)
	case CommandBootstrap:
		return runBootstrap(cfg)
	default:
		return runServe(cfg)
	}
}

// inlineMaterial は環境変数経由で供給されたトークン材料を組み立てる。
func inlineMaterial(cfg *config.Config) token.InlineMaterial {
	return token.InlineMaterial{
		OAuth1JSON: cfg.OAuth1TokenJSON,
		OAuth2JSON: cfg.OAuth2TokenJSON,
		BlobJSON:   cfg.TokensBlobJSON,
	}
}

// newBootstrapper はトークン保管場所を解決し、セッション確立に必要な
// Bootstrapperを組み立てる。
func newBootstrapper(cfg *config.Config, collector metrics.MetricsCollector) *session.Bootstrapper {
	store := token.Resolve(cfg.TokenStorePath)

	clientCfg := garmin.Config{
		SSOURL:     cfg.GarminSSOURL,
		APIURL:     cfg.GarminAPIURL,
		HTTPClient: &http.Client{Timeout: cfg.UpstreamTimeout},
	}

	return session.NewBootstrapper(
		store, clientCfg, cfg.GarminEmail, cfg.GarminPassword,
		slog.Default(), collector,
	)
}

// runServe はAPIサーバーモードで起動する。
// 全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. メトリクスコレクター
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 2. セッションブートストラッパー
	bootstrapper := newBootstrapper(cfg, collector)

	// 環境変数由来のトークン材料があれば保管場所へ書き込む（冪等）。
	// 失敗してもサーバーは起動する。認証情報フォールバックが残るため。
	_, _ = bootstrapper.EnsureTokens(inlineMaterial(cfg))

	// 3. ハンドラーアダプタの構築
	metricService := handler.NewMetricServiceAdapter(bootstrapper, slog.Default(), collector)

	// 4. ルーターの構築
	rateLimiterCfg := middleware.DefaultRateLimiterConfig()
	rateLimiterCfg.Rate = rate.Limit(cfg.RateLimitRPS)
	rateLimiterCfg.Burst = cfg.RateLimitBurst

	rateLimiter := middleware.NewRateLimiter(rateLimiterCfg)
	defer rateLimiter.Stop()

	deps := &handler.RouterDeps{
		Logger:         slog.Default(),
		Collector:      collector,
		RateLimiter:    rateLimiter,
		APIKey:         cfg.APIKey,
		MetricService:  metricService,
		MetricsHandler: metrics.Handler(registry),
	}

	router := handler.NewRouter(deps)

	if cfg.APIKey == "" {
		slog.Warn("API_KEYが未設定のため、認証なしのオープンモードで起動します")
	}

	// 5. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// cronスケジュールに従ってトークン材料をリフレッシュする。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	// ワーカーはHTTPを公開しないため、レジストリは計測の受け皿としてのみ使う
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	bootstrapper := newBootstrapper(cfg, collector)

	// 環境変数由来のトークン材料があれば保管場所へ書き込む（冪等）
	_, _ = bootstrapper.EnsureTokens(inlineMaterial(cfg))

	worker := refresh.NewWorker(bootstrapper, cfg.TokenRefreshSchedule, slog.Default())

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting",
		slog.String("schedule", cfg.TokenRefreshSchedule),
	)

	// リフレッシュワーカーをメインgoroutineで実行（ブロッキング）
	if err := worker.Start(ctx); err != nil {
		return fmt.Errorf("refresh worker failed: %w", err)
	}

	slog.Info("worker stopped gracefully")
	return nil
}

// runBootstrap はトークン材料の初回ブートストラップを1回実行して終了する。
// 既に材料が存在する場合は何もしない（冪等）。材料が無い場合は
// 環境変数由来のインライン材料を書き込み、それも無ければ認証情報で
// ログインして再発行された材料を永続化する。どの手段も無い場合は
// スキップして正常終了する。
func runBootstrap(cfg *config.Config) error {
	store := token.Resolve(cfg.TokenStorePath)

	if store.HasMaterial() {
		slog.Info("トークン材料は既に存在するためブートストラップをスキップします",
			slog.String("path", store.Path()),
		)
		return nil
	}

	wrote, err := store.Bootstrap(inlineMaterial(cfg))
	if err != nil {
		return fmt.Errorf("token bootstrap failed: %w", err)
	}
	if wrote {
		slog.Info("環境変数由来のトークン材料を書き込みました",
			slog.String("path", store.Path()),
			slog.String("layout", string(store.Layout())),
		)
		return nil
	}

	if cfg.GarminEmail != "" && cfg.GarminPassword != "" {
		registry := prometheus.NewRegistry()
		bootstrapper := newBootstrapper(cfg, metrics.NewCollector(registry))

		if err := bootstrapper.Refresh(context.Background()); err != nil {
			return fmt.Errorf("credential bootstrap failed: %w", err)
		}
		slog.Info("認証情報でログインし、トークン材料を書き込みました",
			slog.String("path", store.Path()),
		)
		return nil
	}

	slog.Info("トークン材料も認証情報も供給されていないため、ブートストラップをスキップします",
		slog.String("path", store.Path()),
	)
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}
