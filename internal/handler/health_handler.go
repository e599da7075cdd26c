package handler

import (
	"net/http"
	"time"
)

// healthResponse は稼働確認のAPIレスポンス。
type healthResponse struct {
	OK   bool   `json:"ok"`
	Time string `json:"time"`
}

// HealthHandler は稼働確認のHTTPハンドラー。
// 認証を要求せず、上流にも一切アクセスしない。
type HealthHandler struct{}

// NewHealthHandler はHealthHandlerを生成する。
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// Health は稼働確認リクエストを処理する。
// GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, healthResponse{
		OK:   true,
		Time: time.Now().UTC().Format(time.RFC3339),
	})
}
