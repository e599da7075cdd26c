// Package refresh はGarminトークン材料の定期リフレッシュを提供する。
// cronスケジュールに従って認証情報で再ログインし、
// 保管場所のトークンの陳腐化を抑える。
package refresh

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/hitoshi/garmetry/internal/session"
)

// TokenRefresher はトークン再発行の実行インターフェース。
type TokenRefresher interface {
	// Refresh は認証情報でログインし直し、トークン材料を再発行する。
	Refresh(ctx context.Context) error
}

// Worker はトークンリフレッシュのスケジューリングを行う。
type Worker struct {
	refresher TokenRefresher
	schedule  string
	logger    *slog.Logger
}

// NewWorker はWorkerの新しいインスタンスを生成する。
// scheduleは標準の5フィールドcron式。
func NewWorker(refresher TokenRefresher, schedule string, logger *slog.Logger) *Worker {
	return &Worker{
		refresher: refresher,
		schedule:  schedule,
		logger:    logger,
	}
}

// Start は起動直後に1回リフレッシュを実行し、以後はcronスケジュールで
// 繰り返す。コンテキストがキャンセルされるまで実行を継続し、
// 実行中のジョブの完了を待ってから戻る。
func (w *Worker) Start(ctx context.Context) error {
	c := cron.New()
	if _, err := c.AddFunc(w.schedule, func() {
		if err := w.RunOnce(ctx); err != nil {
			w.logger.Error("トークンリフレッシュに失敗しました",
				slog.String("error", err.Error()),
			)
		}
	}); err != nil {
		return fmt.Errorf("invalid refresh schedule %q: %w", w.schedule, err)
	}

	w.logger.Info("トークンリフレッシュワーカーを開始しました",
		slog.String("schedule", w.schedule),
	)

	// 起動直後に1回実行
	if err := w.RunOnce(ctx); err != nil {
		w.logger.Error("トークンリフレッシュに失敗しました",
			slog.String("error", err.Error()),
		)
	}

	c.Start()

	<-ctx.Done()
	stopped := c.Stop()
	<-stopped.Done()
	w.logger.Info("トークンリフレッシュワーカーを停止しました")
	return nil
}

// RunOnce はトークンリフレッシュを1回実行する。
// 認証情報が未設定の場合はスキップし、エラーにしない。
func (w *Worker) RunOnce(ctx context.Context) error {
	start := time.Now()

	err := w.refresher.Refresh(ctx)
	if errors.Is(err, session.ErrNoCredentials) {
		w.logger.Info("認証情報が未設定のためトークンリフレッシュをスキップしました")
		return nil
	}
	if err != nil {
		return err
	}

	w.logger.Info("トークンリフレッシュが完了しました",
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return nil
}

// compile-time interface check
var _ TokenRefresher = (*session.Bootstrapper)(nil)
