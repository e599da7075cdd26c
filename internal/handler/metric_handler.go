package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/garmetry/internal/model"
)

// dateLayout はクエリパラメータの日付形式。
const dateLayout = "2006-01-02"

// MetricServiceInterface はメトリクスハンドラーが必要とするサービスインターフェース。
// 各呼び出しは独立した上流セッションの中で実行され、
// エラーを返すのはセッション確立に失敗した場合のみ。
type MetricServiceInterface interface {
	// CurrentParameters は現在の生理学的パラメータを取得する。
	CurrentParameters(ctx context.Context) (*model.ParamsRecord, error)
	// DailyKpis は指定日のKPIファミリを取得する。
	DailyKpis(ctx context.Context, date string) (*model.DailyRecord, error)
	// ActivitiesInRange は日付範囲内のアクティビティ一覧を取得する。
	ActivitiesInRange(ctx context.Context, startDate, endDate string) ([]model.ActivityRecord, error)
	// ActivitySteps はアクティビティのラップ一覧を取得する。
	ActivitySteps(ctx context.Context, activityID int64) ([]model.StepRecord, error)
}

// MetricHandler はメトリクス取得のHTTPハンドラー。
type MetricHandler struct {
	service MetricServiceInterface
}

// NewMetricHandler はMetricHandlerを生成する。
func NewMetricHandler(service MetricServiceInterface) *MetricHandler {
	return &MetricHandler{service: service}
}

// activitiesResponse はアクティビティ一覧のAPIレスポンス。
type activitiesResponse struct {
	Items []model.ActivityRecord `json:"items"`
}

// stepsResponse はアクティビティのラップ一覧のAPIレスポンス。
type stepsResponse struct {
	ActivityID int64              `json:"activity_id"`
	Steps      []model.StepRecord `json:"steps"`
}

// apiErrorResponse は統一エラーフォーマットのレスポンス。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// Params は現在の生理学的パラメータを返す。
// GET /params
func (h *MetricHandler) Params(w http.ResponseWriter, r *http.Request) {
	record, err := h.service.CurrentParameters(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, record)
}

// Activities は日付範囲内のアクティビティ一覧を返す。
// GET /activities?start=YYYY-MM-DD&end=YYYY-MM-DD
func (h *MetricHandler) Activities(w http.ResponseWriter, r *http.Request) {
	start, apiErr := dateQueryParam(r, "start")
	if apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}
	end, apiErr := dateQueryParam(r, "end")
	if apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	items, err := h.service.ActivitiesInRange(r.Context(), start, end)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, activitiesResponse{Items: items})
}

// ActivitySteps はアクティビティのラップ一覧を返す。
// GET /activity/{activityID}/steps
func (h *MetricHandler) ActivitySteps(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "activityID")
	activityID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidActivityIDError(raw))
		return
	}

	steps, err := h.service.ActivitySteps(r.Context(), activityID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, stepsResponse{ActivityID: activityID, Steps: steps})
}

// Daily は指定日のKPIファミリを返す。
// GET /daily?date_str=YYYY-MM-DD
func (h *MetricHandler) Daily(w http.ResponseWriter, r *http.Request) {
	date, apiErr := dateQueryParam(r, "date_str")
	if apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	record, err := h.service.DailyKpis(r.Context(), date)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, record)
}

// --- ヘルパー関数 ---

// dateQueryParam は必須の日付クエリパラメータを検証して返す。
// 欠落または形式不正の場合はAPIErrorを返し、上流呼び出しには進ませない。
func dateQueryParam(r *http.Request, name string) (string, *model.APIError) {
	value := r.URL.Query().Get(name)
	if value == "" {
		return "", model.NewMissingParameterError(name)
	}
	if _, err := time.Parse(dateLayout, value); err != nil {
		return "", model.NewInvalidDateError(name, value)
	}
	return value, nil
}

// writeJSONResponse はJSONレスポンスを書き込む。
func writeJSONResponse(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	writeJSONResponse(w, statusCode, apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, model.NewInternalError())
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeInvalidAPIKey:
		return http.StatusUnauthorized
	case model.ErrCodeInvalidDate, model.ErrCodeInvalidActivityID, model.ErrCodeMissingParameter:
		return http.StatusBadRequest
	case model.ErrCodeTokenConfigMissing:
		return http.StatusInternalServerError
	case model.ErrCodeUpstreamLoginFailed:
		return http.StatusBadGateway
	case model.ErrCodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
