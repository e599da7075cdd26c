// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// 呼び出し元に返す原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, config, upstream, system
	Action   string // 呼び出し元向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidAPIKey       = "INVALID_API_KEY"
	ErrCodeInvalidDate         = "INVALID_DATE"
	ErrCodeInvalidActivityID   = "INVALID_ACTIVITY_ID"
	ErrCodeMissingParameter    = "MISSING_PARAMETER"
	ErrCodeTokenConfigMissing  = "TOKEN_CONFIG_MISSING"
	ErrCodeUpstreamLoginFailed = "UPSTREAM_LOGIN_FAILED"
	ErrCodeRateLimited         = "RATE_LIMITED"
	ErrCodeInternal            = "INTERNAL_ERROR"
)

// NewInvalidAPIKeyError はAPIキー不一致エラーを生成する。
func NewInvalidAPIKeyError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidAPIKey,
		Message:  "APIキーが無効です。",
		Category: "auth",
		Action:   "X-API-Keyヘッダーに正しいAPIキーを設定してください。",
	}
}

// NewInvalidDateError は日付形式エラーを生成する。
func NewInvalidDateError(param, value string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidDate,
		Message:  fmt.Sprintf("無効な日付形式です: %s=%q", param, value),
		Category: "validation",
		Action:   "日付はYYYY-MM-DD形式で指定してください。",
	}
}

// NewMissingParameterError は必須クエリパラメータ欠落エラーを生成する。
func NewMissingParameterError(param string) *APIError {
	return &APIError{
		Code:     ErrCodeMissingParameter,
		Message:  fmt.Sprintf("必須パラメータが指定されていません: %s", param),
		Category: "validation",
		Action:   fmt.Sprintf("クエリパラメータ %s を指定してください。", param),
	}
}

// NewInvalidActivityIDError はアクティビティID形式エラーを生成する。
func NewInvalidActivityIDError(raw string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidActivityID,
		Message:  fmt.Sprintf("無効なアクティビティIDです: %q", raw),
		Category: "validation",
		Action:   "アクティビティIDは整数で指定してください。",
	}
}

// NewTokenConfigError はトークン・認証情報とも利用できない場合の設定エラーを生成する。
// 2つの是正手段（トークン設定か一時的な認証情報設定）を対処方法として明示する。
func NewTokenConfigError() *APIError {
	return &APIError{
		Code:     ErrCodeTokenConfigMissing,
		Message:  "Garminトークンが存在しないか無効で、認証情報も設定されていません。",
		Category: "config",
		Action:   "OAUTH1_TOKEN_JSONとOAUTH2_TOKEN_JSONを環境変数で渡すか（推奨）、一時ブートストラップ用にGARMIN_EMAILとGARMIN_PASSWORDを設定してください。",
	}
}

// NewUpstreamLoginError は認証情報によるログイン再試行も失敗した場合のエラーを生成する。
func NewUpstreamLoginError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeUpstreamLoginFailed,
		Message:  fmt.Sprintf("Garminへのログインに失敗しました: %s", reason),
		Category: "upstream",
		Action:   "認証情報が正しいか確認し、しばらく待ってから再度お試しください。",
	}
}

// NewRateLimitedError はレート制限超過エラーを生成する。
func NewRateLimitedError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimited,
		Message:  "リクエストが多すぎます。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewInternalError は内部エラーを生成する。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
