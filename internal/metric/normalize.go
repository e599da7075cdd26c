package metric

import (
	"github.com/hitoshi/garmetry/internal/model"
)

// 上流ドキュメントから値を安全に取り出すヘルパー群。
// キーの欠落や型の不一致は一律「値なし(nil)」として扱い、原因を区別しない。

// numField は最初に見つかった数値キーの値を返す。優先順はkeysの並び順。
func numField(doc map[string]any, keys ...string) *float64 {
	for _, key := range keys {
		if f, ok := doc[key].(float64); ok {
			return &f
		}
	}
	return nil
}

// strField は最初に見つかった文字列キーの値を返す。
func strField(doc map[string]any, keys ...string) *string {
	for _, key := range keys {
		if s, ok := doc[key].(string); ok {
			return &s
		}
	}
	return nil
}

// activityTypeKey はアクティビティ種別を取り出す。
// typeKey の置き場所は上流のエンドポイントによって2通りあるため、
// activityType を優先し、次に activityTypeDTO を見る。
func activityTypeKey(doc map[string]any) *string {
	for _, key := range []string{"activityType", "activityTypeDTO"} {
		if sub, ok := doc[key].(map[string]any); ok {
			if s, ok := sub["typeKey"].(string); ok {
				return &s
			}
		}
	}
	return nil
}

// derivePace は平均ペース(秒/km)を導出する。
// 平均速度が正であれば 1000/speed、なければ移動時間と距離から
// movingDuration/(distance/1000)、どちらも使えなければ nil。
// 丸めは行わない。
func derivePace(speed, movingDuration, distance *float64) *float64 {
	if speed != nil && *speed > 0 {
		pace := 1000 / *speed
		return &pace
	}
	if movingDuration != nil && distance != nil && *distance > 0 {
		pace := *movingDuration / (*distance / 1000)
		return &pace
	}
	return nil
}

// normalizeActivity は上流のアクティビティドキュメント1件を正規化する。
// ケイデンスはランニング用キーを優先し、なければサイクリング用キーを見る。
func normalizeActivity(doc map[string]any) model.ActivityRecord {
	rec := model.ActivityRecord{
		Name:            strField(doc, "activityName"),
		Type:            activityTypeKey(doc),
		StartTimeLocal:  strField(doc, "startTimeLocal"),
		StartTimeGMT:    strField(doc, "startTimeGMT"),
		DurationS:       numField(doc, "duration"),
		MovingDurationS: numField(doc, "movingDuration"),
		DistanceM:       numField(doc, "distance"),
		AvgHR:           numField(doc, "averageHR"),
		MaxHR:           numField(doc, "maxHR"),
		AvgPowerW:       numField(doc, "avgPower"),
		AvgSpeedMPerS:   numField(doc, "averageSpeed"),
		AvgCadence:      numField(doc, "averageRunningCadenceInStepsPerMinute", "averageBikingCadenceInRevPerMinute"),
		Calories:        numField(doc, "calories"),
		ElevationGainM:  numField(doc, "elevationGain"),
		ElevationLossM:  numField(doc, "elevationLoss"),
	}
	if id := numField(doc, "activityId"); id != nil {
		rec.ActivityID = int64(*id)
	}
	rec.AvgPaceSPerKm = derivePace(rec.AvgSpeedMPerS, rec.MovingDurationS, rec.DistanceM)
	return rec
}

// normalizeStep はスプリット(ラップ)ドキュメント1件を正規化する。
// lapIndex が無い場合は配列上の位置 fallbackIndex を採用する。
func normalizeStep(doc map[string]any, fallbackIndex int) model.StepRecord {
	rec := model.StepRecord{
		Index:            fallbackIndex,
		Type:             strField(doc, "intensityType"),
		StartTimeGMT:     strField(doc, "startTimeGMT"),
		DurationS:        numField(doc, "duration"),
		MovingDurationS:  numField(doc, "movingDuration"),
		ElapsedDurationS: numField(doc, "elapsedDuration"),
		DistanceM:        numField(doc, "distance"),
		AvgHR:            numField(doc, "averageHR"),
		MaxHR:            numField(doc, "maxHR"),
		AvgPowerW:        numField(doc, "averagePower"),
		MaxPowerW:        numField(doc, "maxPower"),
		AvgCadence:       numField(doc, "averageRunCadence", "averageBikeCadence"),
		ElevationGainM:   numField(doc, "elevationGain"),
		ElevationLossM:   numField(doc, "elevationLoss"),
	}
	if idx := numField(doc, "lapIndex"); idx != nil {
		rec.Index = int(*idx)
	}
	return rec
}

// extractHRMax はユーザープロフィールから最大心拍数を取り出す。
func extractHRMax(profile map[string]any) *float64 {
	if sub, ok := profile["userMetricsProfile"].(map[string]any); ok {
		return numField(sub, "maxHeartRate")
	}
	return nil
}

// extractFTP はFTPレコードから値を取り出す。上流はオブジェクトを返す
// こともリストを返すこともあるため両対応する。キーは currentFTP 優先。
func extractFTP(doc any) *float64 {
	switch v := doc.(type) {
	case map[string]any:
		return numField(v, "currentFTP", "ftp")
	case []any:
		if len(v) > 0 {
			if first, ok := v[0].(map[string]any); ok {
				return numField(first, "currentFTP", "ftp")
			}
		}
	}
	return nil
}

// bestRunningPace は正規化済みアクティビティ群から推定閾値ペースを求める。
// 対象は距離10km以上かつ所要時間が正のランニングのみで、
// duration/(distance/1000) の最小値(=最速ペース)を返す。対象なしなら nil。
func bestRunningPace(records []model.ActivityRecord) *float64 {
	var best *float64
	for _, rec := range records {
		if rec.Type == nil || *rec.Type != model.ActivityTypeRunning {
			continue
		}
		if rec.DistanceM == nil || rec.DurationS == nil {
			continue
		}
		if *rec.DistanceM < thresholdPaceMinDistanceM || *rec.DurationS <= 0 {
			continue
		}
		pace := *rec.DurationS / (*rec.DistanceM / 1000)
		if best == nil || pace < *best {
			best = &pace
		}
	}
	return best
}
