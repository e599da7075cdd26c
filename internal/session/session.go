// Package session は Garmin Connect セッションの確立と解放を担う。
// トークンログインを優先し、失敗時は認証情報による再ログインへ
// フォールバックする。リクエスト単位でセッションを確立し、
// 処理完了後は必ず解放する。
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hitoshi/garmetry/internal/garmin"
	"github.com/hitoshi/garmetry/internal/metrics"
	"github.com/hitoshi/garmetry/internal/model"
	"github.com/hitoshi/garmetry/internal/token"
)

// ErrNoCredentials は認証情報が未設定でトークンを再発行できないことを表す。
var ErrNoCredentials = errors.New("credentials not configured")

// Bootstrapper はトークン保管場所と認証情報からセッションを確立する。
type Bootstrapper struct {
	store     *token.Store
	clientCfg garmin.Config
	email     string
	password  string
	logger    *slog.Logger
	collector metrics.MetricsCollector
}

// NewBootstrapper は新しい Bootstrapper を作成する。
// email と password が空の場合、フォールバックログインは行われない。
func NewBootstrapper(store *token.Store, clientCfg garmin.Config, email, password string, logger *slog.Logger, collector metrics.MetricsCollector) *Bootstrapper {
	return &Bootstrapper{
		store:     store,
		clientCfg: clientCfg,
		email:     email,
		password:  password,
		logger:    logger,
		collector: collector,
	}
}

// EnsureTokens は起動時に環境変数由来のトークン材料を保管場所へ書き込む。
// 既存の材料は決して上書きしない。書き込んだ場合は true を返す。
func (b *Bootstrapper) EnsureTokens(material token.InlineMaterial) (bool, error) {
	wrote, err := b.store.Bootstrap(material)
	if err != nil {
		b.logger.Warn("トークンブートストラップに失敗した",
			slog.String("path", b.store.Path()),
			slog.String("error", err.Error()))
		return false, err
	}
	if wrote {
		b.logger.Info("トークン材料を書き込んだ",
			slog.String("path", b.store.Path()),
			slog.String("layout", string(b.store.Layout())))
	} else {
		b.logger.Info("トークン材料は既に存在するか、供給されていない",
			slog.String("path", b.store.Path()))
	}
	return wrote, nil
}

// Establish は Garmin Connect セッションを確立する。
// まず保管済みトークンでログインし、失敗した場合は認証情報で
// 再ログインして再発行されたトークンを永続化する。
// どちらの経路でもログインできない場合のみエラーを返す。
func (b *Bootstrapper) Establish(ctx context.Context) (*Session, error) {
	client := garmin.NewClient(b.clientCfg, b.store, b.logger)

	tokenErr := client.LoginWithTokens(ctx)
	if tokenErr == nil {
		b.collector.RecordSession(metrics.SessionResultToken)
		return &Session{client: client, logger: b.logger}, nil
	}

	if b.email == "" || b.password == "" {
		b.collector.RecordSession(metrics.SessionResultFailed)
		b.logger.Error("トークンログインに失敗し、認証情報も未設定のため復旧できない",
			slog.String("error", tokenErr.Error()))
		return nil, model.NewTokenConfigError()
	}

	b.logger.Warn("トークンログインに失敗したため認証情報で再ログインする",
		slog.String("error", tokenErr.Error()))

	if err := client.LoginWithCredentials(ctx, b.email, b.password); err != nil {
		b.collector.RecordSession(metrics.SessionResultFailed)
		b.logger.Error("認証情報による再ログインに失敗した",
			slog.String("error", err.Error()))
		return nil, model.NewUpstreamLoginError(err.Error())
	}

	b.collector.RecordSession(metrics.SessionResultCredentials)
	b.logger.Info("認証情報で再ログインし、トークンを再発行した")
	return &Session{client: client, logger: b.logger}, nil
}

// Refresh は保管済みトークンの状態に関わらず認証情報でログインし直し、
// 再発行されたトークン材料を永続化する。トークンの陳腐化を抑える
// 定期実行向けで、認証情報が未設定の場合は ErrNoCredentials を返す。
func (b *Bootstrapper) Refresh(ctx context.Context) error {
	if b.email == "" || b.password == "" {
		return ErrNoCredentials
	}

	client := garmin.NewClient(b.clientCfg, b.store, b.logger)
	if err := client.LoginWithCredentials(ctx, b.email, b.password); err != nil {
		b.collector.RecordTokenRefresh(false)
		return fmt.Errorf("failed to refresh token material: %w", err)
	}
	b.collector.RecordTokenRefresh(true)

	sess := &Session{client: client, logger: b.logger}
	sess.Close(ctx)

	b.logger.Info("トークン材料を再発行した",
		slog.String("path", b.store.Path()))
	return nil
}

// Session は確立済みの Garmin Connect セッション。
type Session struct {
	client *garmin.Client
	logger *slog.Logger
}

// Client はこのセッションに紐づく上流クライアントを返す。
func (s *Session) Client() *garmin.Client {
	return s.client
}

// Close はセッションを解放する。ログアウトの失敗は警告ログに留め、
// 呼び出し元の処理を失敗させない。
func (s *Session) Close(ctx context.Context) {
	if err := s.client.Logout(ctx); err != nil {
		s.logger.Warn("ログアウトに失敗したが処理は継続する",
			slog.String("error", err.Error()))
	}
}
