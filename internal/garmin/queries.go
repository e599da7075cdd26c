package garmin

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// メトリクス取得APIのエンドポイントパス。
const (
	heartRatesPath      = "/wellness-service/wellness/dailyHeartRate"
	maxMetricsPath      = "/metrics-service/metrics/maxmet/latest"
	runningZonesPath    = "/biometric-service/heartRateZones/running"
	cyclingZonesPath    = "/biometric-service/heartRateZones/cycling"
	ftpPath             = "/biometric-service/ftp/latest"
	bodyCompositionPath = "/weight-service/weight/latest"
	activitiesPath      = "/activitylist-service/activities/search/activities"
	activitySplitsPath  = "/activity-service/activity/%d/splits"
	userSummaryPath     = "/usersummary-service/usersummary/daily"
	hrvPath             = "/hrv-service/hrv/%s"
	sleepPath           = "/wellness-service/wellness/dailySleepData"
	stressPath          = "/wellness-service/wellness/dailyStress/%s"
)

// GetUserProfile はユーザープロフィール(userMetricsProfile.maxHeartRate等)を取得する。
func (c *Client) GetUserProfile(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	if err := c.getJSON(ctx, profilePath, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetHeartRates は指定日の心拍データ(restingHeartRate等)を取得する。
func (c *Client) GetHeartRates(ctx context.Context, date string) (map[string]any, error) {
	var out map[string]any
	if err := c.getJSON(ctx, heartRatesPath, url.Values{"date": {date}}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetMaxMetrics は最新のVO2max値(vo2MaxValue)を取得する。
func (c *Client) GetMaxMetrics(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	if err := c.getJSON(ctx, maxMetricsPath, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetRunningHeartRateZones はランニングの心拍ゾーン(lactateThresholdHeartRate等)を取得する。
func (c *Client) GetRunningHeartRateZones(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	if err := c.getJSON(ctx, runningZonesPath, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetCyclingHeartRateZones はサイクリングの心拍ゾーンを取得する。
func (c *Client) GetCyclingHeartRateZones(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	if err := c.getJSON(ctx, cyclingZonesPath, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetFTP は最新のFTP記録を取得する。
// 上流はオブジェクトを返す場合と配列を返す場合があるため、型を決めずに返す。
func (c *Client) GetFTP(ctx context.Context) (any, error) {
	var out any
	if err := c.getJSON(ctx, ftpPath, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetBodyComposition は指定日の体組成データ(weight等)を取得する。
func (c *Client) GetBodyComposition(ctx context.Context, date string) (map[string]any, error) {
	var out map[string]any
	if err := c.getJSON(ctx, bodyCompositionPath, url.Values{"date": {date}}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetActivitiesByDate は日付範囲内のアクティビティを1ページ分取得する。
// offsetは上流のstartパラメータに対応する。
func (c *Client) GetActivitiesByDate(ctx context.Context, startDate, endDate string, limit, offset int) ([]map[string]any, error) {
	query := url.Values{
		"startDate": {startDate},
		"endDate":   {endDate},
		"limit":     {strconv.Itoa(limit)},
		"start":     {strconv.Itoa(offset)},
	}
	var out []map[string]any
	if err := c.getJSON(ctx, activitiesPath, query, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetActivitySplits はアクティビティのスプリット(lapDTOs)を取得する。
func (c *Client) GetActivitySplits(ctx context.Context, activityID int64) (map[string]any, error) {
	var out map[string]any
	if err := c.getJSON(ctx, fmt.Sprintf(activitySplitsPath, activityID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetUserSummary は指定日のデイリーサマリを取得する。
func (c *Client) GetUserSummary(ctx context.Context, date string) (map[string]any, error) {
	var out map[string]any
	if err := c.getJSON(ctx, userSummaryPath, url.Values{"calendarDate": {date}}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetHRVData は指定日のHRVデータを取得する。
func (c *Client) GetHRVData(ctx context.Context, date string) (map[string]any, error) {
	var out map[string]any
	if err := c.getJSON(ctx, fmt.Sprintf(hrvPath, url.PathEscape(date)), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetSleepData は指定日の睡眠データを取得する。
func (c *Client) GetSleepData(ctx context.Context, date string) (map[string]any, error) {
	var out map[string]any
	if err := c.getJSON(ctx, sleepPath, url.Values{"date": {date}}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetStressData は指定日のストレスデータを取得する。
func (c *Client) GetStressData(ctx context.Context, date string) (map[string]any, error) {
	var out map[string]any
	if err := c.getJSON(ctx, fmt.Sprintf(stressPath, url.PathEscape(date)), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
