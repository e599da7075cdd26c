package model

// ParamsRecord は現在の生理学的パラメータの正規化レコードを表す。
// 宣言された全フィールドが常にJSONキーとして出力され、
// 取得に失敗したフィールドは値がnullになる。キー自体が欠けることはない。
type ParamsRecord struct {
	HRMax          *float64 `json:"HRmax"`
	HRRest         *float64 `json:"HRrest"`
	LTHRRun        *float64 `json:"LTHR_run"`
	LTHRCycle      *float64 `json:"LTHR_cycle"`
	FTPBikeW       *float64 `json:"FTP_bike_W"`
	RThresholdPace *float64 `json:"rThreshold_pace_s_per_km"`
	VO2Max         *float64 `json:"VO2max"`
	WeightKg       *float64 `json:"weight_kg"`
	UpdatedAt      string   `json:"updated_at"`
	Source         string   `json:"source"`
}

// SourceGarminConnect は/paramsレスポンスのsourceフィールド固定値。
const SourceGarminConnect = "GarminConnect"
