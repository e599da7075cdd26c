package model

// DailyRecord は1日分のKPIファミリ(サマリ・HRV・睡眠・ストレス)をまとめたレコードを表す。
// 取得に失敗したファミリは空オブジェクトになり、キー自体は常に存在する。
type DailyRecord struct {
	Summary map[string]any `json:"summary"`
	HRV     map[string]any `json:"hrv"`
	Sleep   map[string]any `json:"sleep"`
	Stress  map[string]any `json:"stress"`
	Date    string         `json:"date"`
}

// NewDailyRecord は全ファミリを空オブジェクトで初期化したDailyRecordを返す。
// nilマップはJSONでnullになるため、必ず空マップで初期化する。
func NewDailyRecord(date string) *DailyRecord {
	return &DailyRecord{
		Summary: map[string]any{},
		HRV:     map[string]any{},
		Sleep:   map[string]any{},
		Stress:  map[string]any{},
		Date:    date,
	}
}
