package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

// TestAPIKeyMiddleware_OpenMode はキー未設定時に認証がバイパスされることを検証する。
func TestAPIKeyMiddleware_OpenMode(t *testing.T) {
	var buf bytes.Buffer
	handlerCalled := false
	handler := NewAPIKeyMiddleware("", newTestLogger(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
		w.WriteHeader(http.StatusOK)
	}))

	// ヘッダーなしでも通る
	req := httptest.NewRequest(http.MethodGet, "/params", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
	if !handlerCalled {
		t.Error("オープンモードではハンドラーが呼ばれるべき")
	}
}

// TestAPIKeyMiddleware_ValidKey は正しいキーで認証が通ることを検証する。
func TestAPIKeyMiddleware_ValidKey(t *testing.T) {
	var buf bytes.Buffer
	handler := NewAPIKeyMiddleware("secret-key", newTestLogger(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/params", nil)
	req.Header.Set(APIKeyHeader, "secret-key")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
}

// TestAPIKeyMiddleware_RejectsInvalidKey はキー不一致時に401が返り、
// ハンドラーが一切呼ばれないことを検証する。
func TestAPIKeyMiddleware_RejectsInvalidKey(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong key", "wrong-key"},
		{"empty value", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			handler := NewAPIKeyMiddleware("secret-key", newTestLogger(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatal("認証失敗時にハンドラーが呼ばれるべきではない")
			}))

			req := httptest.NewRequest(http.MethodGet, "/params", nil)
			if tt.header != "" {
				req.Header.Set(APIKeyHeader, tt.header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			resp := w.Result()
			if resp.StatusCode != http.StatusUnauthorized {
				t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
			}

			var body ErrorResponseBody
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode: %v", err)
			}
			if body.Code != "INVALID_API_KEY" {
				t.Errorf("code = %q, want INVALID_API_KEY", body.Code)
			}
			if body.Category != "auth" {
				t.Errorf("category = %q, want auth", body.Category)
			}
		})
	}
}

// TestAPIKeyMiddleware_LogsRejection は拒否時に警告ログが出ることを検証する。
func TestAPIKeyMiddleware_LogsRejection(t *testing.T) {
	var buf bytes.Buffer
	handler := NewAPIKeyMiddleware("secret-key", newTestLogger(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/params", nil)
	req.Header.Set(APIKeyHeader, "wrong")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if !bytes.Contains(buf.Bytes(), []byte("WARN")) {
		t.Error("拒否時は警告ログが出力されるべき")
	}
}
