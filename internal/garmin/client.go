// Package garmin はGarmin Connect APIのクライアントを提供する。
// トークン材料によるセッション確立、認証情報によるトークン再発行と永続化、
// および各種メトリクス取得APIの呼び出しを担う。
// トークンドキュメントの中身を解釈するのはこの層だけで、
// 保管場所(internal/token)では不透明なバイト列として扱われる。
package garmin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hitoshi/garmetry/internal/token"
)

const (
	defaultSSOURL = "https://sso.garmin.com"
	defaultAPIURL = "https://connectapi.garmin.com"

	userAgent = "Garmetry/1.0 Garmin Metrics Facade"

	// 認証関連のエンドポイントパス
	ssoSignInPath = "/sso/signin"
	logoutPath    = "/auth/logout"
	profilePath   = "/userprofile-service/userprofile"
)

// Config はGarmin Connectクライアントの設定。
type Config struct {
	// テスト用にオーバーライド可能なURL
	SSOURL string
	APIURL string

	// 未指定の場合はタイムアウト付きの既定クライアントを使う
	HTTPClient *http.Client
}

// Client はGarmin Connect APIのクライアント。
// ログイン後はアクセストークンを保持する。1リクエスト=1セッションの
// 使い捨てを前提とし、複数ゴルーチンからの共有は想定しない。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	store      *token.Store
	ssoURL     string
	apiURL     string

	accessToken string
}

// NewClient はClientの新しいインスタンスを生成する。
func NewClient(cfg Config, store *token.Store, logger *slog.Logger) *Client {
	if cfg.SSOURL == "" {
		cfg.SSOURL = defaultSSOURL
	}
	if cfg.APIURL == "" {
		cfg.APIURL = defaultAPIURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		store:      store,
		ssoURL:     cfg.SSOURL,
		apiURL:     cfg.APIURL,
	}
}

// oauth2Token はOAuth2トークンドキュメントのうちクライアントが利用する部分。
type oauth2Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresAt   int64  `json:"expires_at"`
}

// ssoTokenResponse はSSOログインエンドポイントのレスポンス。
// 保管場所の結合ドキュメントと同じキーで2つのトークンドキュメントを含む。
type ssoTokenResponse struct {
	OAuth1 json.RawMessage `json:"oauth1"`
	OAuth2 json.RawMessage `json:"oauth2"`
}

// LoginWithTokens は保管場所のトークン材料からセッションを確立する。
// 材料が無い・ドキュメントが不正・期限切れ・上流に拒否された場合はエラーを返す。
func (c *Client) LoginWithTokens(ctx context.Context) error {
	mat, err := c.store.Read()
	if err != nil {
		return fmt.Errorf("failed to load token material: %w", err)
	}

	var tok oauth2Token
	if err := json.Unmarshal(mat.OAuth2, &tok); err != nil {
		return fmt.Errorf("invalid oauth2 token document: %w", err)
	}
	if tok.AccessToken == "" {
		return fmt.Errorf("oauth2 token document has no access token")
	}
	if tok.ExpiresAt > 0 && time.Now().Unix() >= tok.ExpiresAt {
		return fmt.Errorf("oauth2 token expired")
	}

	c.accessToken = tok.AccessToken

	// 軽いプロフィール取得でトークンが上流に受理されるか検証する
	if _, err := c.GetUserProfile(ctx); err != nil {
		c.accessToken = ""
		return fmt.Errorf("token rejected by upstream: %w", err)
	}

	c.logger.Debug("トークンによるセッションを確立しました",
		slog.String("token_store", c.store.Path()),
	)
	return nil
}

// LoginWithCredentials は認証情報でSSOログインし、
// 再発行されたトークン材料を保管場所へ永続化してからセッションを有効化する。
func (c *Client) LoginWithCredentials(ctx context.Context, email, password string) error {
	data := url.Values{
		"username": {email},
		"password": {password},
		"embed":    {"false"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.ssoURL+ssoSignInPath, strings.NewReader(data.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("login request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read login response: %w", err)
	}

	// 認証情報が応答に反映される可能性があるためボディはエラーに含めない
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("login failed with status %d", resp.StatusCode)
	}

	var tokens ssoTokenResponse
	if err := json.Unmarshal(body, &tokens); err != nil {
		return fmt.Errorf("failed to parse login response: %w", err)
	}
	if len(tokens.OAuth1) == 0 || len(tokens.OAuth2) == 0 {
		return fmt.Errorf("login response missing token documents")
	}

	var tok oauth2Token
	if err := json.Unmarshal(tokens.OAuth2, &tok); err != nil {
		return fmt.Errorf("invalid oauth2 token document in login response: %w", err)
	}
	if tok.AccessToken == "" {
		return fmt.Errorf("empty access token in login response")
	}

	// 再発行された材料で保管場所を更新してからセッションを有効化する
	if err := c.store.Save(tokens.OAuth1, tokens.OAuth2); err != nil {
		return fmt.Errorf("failed to persist refreshed token material: %w", err)
	}
	c.accessToken = tok.AccessToken

	c.logger.Debug("認証情報によるセッションを確立し、トークン材料を更新しました",
		slog.String("token_store", c.store.Path()),
	)
	return nil
}

// Logout は上流セッションを破棄する。
// 呼び出し後はこのクライアントで再度ログインしない限りクエリは発行できない。
func (c *Client) Logout(ctx context.Context) error {
	if c.accessToken == "" {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+logoutPath, nil)
	if err != nil {
		return fmt.Errorf("failed to create logout request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("User-Agent", userAgent)

	c.accessToken = ""

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("logout request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("logout failed with status %d", resp.StatusCode)
	}
	return nil
}

// getJSON は認証付きGETを発行してJSONレスポンスをoutへデコードする。
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	reqURL := c.apiURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("upstream returned status %d for %s", resp.StatusCode, path)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response for %s: %w", path, err)
	}
	return nil
}
