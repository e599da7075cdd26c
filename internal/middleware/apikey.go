package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/hitoshi/garmetry/internal/model"
)

// APIKeyHeader は共有シークレットを運ぶHTTPヘッダー名。
const APIKeyHeader = "X-API-Key"

// NewAPIKeyMiddleware は静的APIキーによる認証ミドルウェアを返す。
// apiKey が空文字列の場合は認証を完全にバイパスするオープンモードになる。
// キー不一致のリクエストは上流へ一切触れずに 401 で拒否される。
func NewAPIKeyMiddleware(apiKey string, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if apiKey == "" {
				next.ServeHTTP(w, r)
				return
			}

			provided := r.Header.Get(APIKeyHeader)
			if subtle.ConstantTimeCompare([]byte(provided), []byte(apiKey)) != 1 {
				logger.Warn("APIキーが一致しないためリクエストを拒否した",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path))
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewInvalidAPIKeyError())
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
