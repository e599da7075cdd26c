package model

// ActivityRecord は1件のアクティビティを正規化したレコードを表す。
// 上流ドキュメントに存在しないフィールドはnullになる。
type ActivityRecord struct {
	ActivityID      int64    `json:"activity_id"`
	Name            *string  `json:"name"`
	Type            *string  `json:"type"`
	StartTimeLocal  *string  `json:"start_time_local"`
	StartTimeGMT    *string  `json:"start_time_gmt"`
	DurationS       *float64 `json:"duration_s"`
	MovingDurationS *float64 `json:"moving_duration_s"`
	DistanceM       *float64 `json:"distance_m"`
	AvgHR           *float64 `json:"avg_hr"`
	MaxHR           *float64 `json:"max_hr"`
	AvgPowerW       *float64 `json:"avg_power_w"`
	AvgSpeedMPerS   *float64 `json:"avg_speed_m_per_s"`
	AvgPaceSPerKm   *float64 `json:"avg_pace_s_per_km"`
	AvgCadence      *float64 `json:"avg_cadence"`
	Calories        *float64 `json:"calories"`
	ElevationGainM  *float64 `json:"elevation_gain_m"`
	ElevationLossM  *float64 `json:"elevation_loss_m"`
}

// StepRecord はアクティビティ内の1ラップ(スプリット)を正規化したレコードを表す。
type StepRecord struct {
	Index            int      `json:"index"`
	Type             *string  `json:"type"`
	StartTimeGMT     *string  `json:"start_time_gmt"`
	DurationS        *float64 `json:"duration_s"`
	MovingDurationS  *float64 `json:"moving_duration_s"`
	ElapsedDurationS *float64 `json:"elapsed_duration_s"`
	DistanceM        *float64 `json:"distance_m"`
	AvgHR            *float64 `json:"avg_hr"`
	MaxHR            *float64 `json:"max_hr"`
	AvgPowerW        *float64 `json:"avg_power_w"`
	MaxPowerW        *float64 `json:"max_power_w"`
	AvgCadence       *float64 `json:"avg_cadence"`
	ElevationGainM   *float64 `json:"elevation_gain_m"`
	ElevationLossM   *float64 `json:"elevation_loss_m"`
}

// アクティビティ種別のtypeKey値。正規化後のTypeフィールドが取り得る代表値。
const (
	ActivityTypeRunning = "running"
	ActivityTypeCycling = "cycling"
)
