// Package metric は確立済みセッションに対して固定の上流クエリ群を発行し、
// 正規化済みレコードへ集約する。各クエリは個別に失敗を許容し、
// 1つのクエリの失敗が他のクエリや操作全体を中断させることはない。
package metric

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/hitoshi/garmetry/internal/garmin"
	"github.com/hitoshi/garmetry/internal/metrics"
	"github.com/hitoshi/garmetry/internal/model"
)

const (
	dateLayout = "2006-01-02"

	// アクティビティ一覧の1ページあたりの取得件数。
	pageSize = 100

	// 閾値ペース推定の対象期間と最小距離。
	thresholdPaceWindowDays   = 90
	thresholdPaceMinDistanceM = 10000.0
)

// Upstream は集約に必要な上流クエリの集合。
type Upstream interface {
	GetUserProfile(ctx context.Context) (map[string]any, error)
	GetHeartRates(ctx context.Context, date string) (map[string]any, error)
	GetMaxMetrics(ctx context.Context) (map[string]any, error)
	GetRunningHeartRateZones(ctx context.Context) (map[string]any, error)
	GetCyclingHeartRateZones(ctx context.Context) (map[string]any, error)
	GetFTP(ctx context.Context) (any, error)
	GetBodyComposition(ctx context.Context, date string) (map[string]any, error)
	GetActivitiesByDate(ctx context.Context, startDate, endDate string, limit, offset int) ([]map[string]any, error)
	GetActivitySplits(ctx context.Context, activityID int64) (map[string]any, error)
	GetUserSummary(ctx context.Context, date string) (map[string]any, error)
	GetHRVData(ctx context.Context, date string) (map[string]any, error)
	GetSleepData(ctx context.Context, date string) (map[string]any, error)
	GetStressData(ctx context.Context, date string) (map[string]any, error)
}

var _ Upstream = (*garmin.Client)(nil)

// Aggregator は1つのセッションに紐づく集約器。
type Aggregator struct {
	upstream  Upstream
	logger    *slog.Logger
	collector metrics.MetricsCollector
}

// NewAggregator は新しい Aggregator を作成する。
func NewAggregator(upstream Upstream, logger *slog.Logger, collector metrics.MetricsCollector) *Aggregator {
	return &Aggregator{
		upstream:  upstream,
		logger:    logger,
		collector: collector,
	}
}

// observe は上流クエリ1回を計測付きで実行する。隔離そのものは呼び出し側が
// エラーを握って行い、ここでは成否とレイテンシの記録のみを担う。
func observe[T any](a *Aggregator, query string, fn func() (T, error)) (T, error) {
	start := time.Now()
	value, err := fn()
	a.collector.RecordUpstreamLatency(query, time.Since(start))
	a.collector.RecordUpstreamQuery(query, err == nil)
	return value, err
}

// CurrentParameters は現時点の生理学的パラメータ一式を集約する。
// 宣言された8フィールドは常に出力に含まれ、失敗したクエリに対応する
// フィールドだけが null になる。この操作自体は決して失敗しない。
func (a *Aggregator) CurrentParameters(ctx context.Context) *model.ParamsRecord {
	now := time.Now().UTC()
	today := now.Format(dateLayout)
	rec := &model.ParamsRecord{
		UpdatedAt: today,
		Source:    model.SourceGarminConnect,
	}
	var errs *multierror.Error

	if hr, err := observe(a, "heart_rates", func() (map[string]any, error) {
		return a.upstream.GetHeartRates(ctx, today)
	}); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("heart_rates: %w", err))
	} else {
		rec.HRRest = numField(hr, "restingHeartRate")
	}

	if profile, err := observe(a, "user_profile", func() (map[string]any, error) {
		return a.upstream.GetUserProfile(ctx)
	}); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("user_profile: %w", err))
	} else {
		rec.HRMax = extractHRMax(profile)
	}

	if vo2, err := observe(a, "max_metrics", func() (map[string]any, error) {
		return a.upstream.GetMaxMetrics(ctx)
	}); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("max_metrics: %w", err))
	} else {
		rec.VO2Max = numField(vo2, "vo2MaxValue")
	}

	if zones, err := observe(a, "running_zones", func() (map[string]any, error) {
		return a.upstream.GetRunningHeartRateZones(ctx)
	}); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("running_zones: %w", err))
	} else {
		rec.LTHRRun = numField(zones, "lactateThresholdHeartRate")
	}

	if zones, err := observe(a, "cycling_zones", func() (map[string]any, error) {
		return a.upstream.GetCyclingHeartRateZones(ctx)
	}); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("cycling_zones: %w", err))
	} else {
		rec.LTHRCycle = numField(zones, "lactateThresholdHeartRate")
	}

	if ftp, err := observe(a, "ftp", func() (any, error) {
		return a.upstream.GetFTP(ctx)
	}); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("ftp: %w", err))
	} else {
		rec.FTPBikeW = extractFTP(ftp)
	}

	if body, err := observe(a, "body_composition", func() (map[string]any, error) {
		return a.upstream.GetBodyComposition(ctx, today)
	}); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("body_composition: %w", err))
	} else {
		rec.WeightKg = numField(body, "weight")
	}

	// 閾値ペースは直近90日のアクティビティから導出する。
	// 一覧取得はそれ自体が部分取得を許容するため、ここで失敗は発生しない。
	windowStart := now.AddDate(0, 0, -thresholdPaceWindowDays).Format(dateLayout)
	rec.RThresholdPace = bestRunningPace(a.ActivitiesInRange(ctx, windowStart, today))

	if err := errs.ErrorOrNil(); err != nil {
		a.logger.Warn("一部の上流クエリが失敗したため該当フィールドはnullになる",
			slog.String("error", err.Error()))
	}
	return rec
}

// DailyKpis は指定日のKPIをファミリ(summary/hrv/sleep/stress)ごとに集約する。
// 失敗したファミリは空オブジェクトのまま残り、キー自体は常に出力される。
func (a *Aggregator) DailyKpis(ctx context.Context, date string) *model.DailyRecord {
	rec := model.NewDailyRecord(date)
	var errs *multierror.Error

	if summary, err := observe(a, "user_summary", func() (map[string]any, error) {
		return a.upstream.GetUserSummary(ctx, date)
	}); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("user_summary: %w", err))
	} else {
		rec.Summary = summary
	}

	if hrv, err := observe(a, "hrv", func() (map[string]any, error) {
		return a.upstream.GetHRVData(ctx, date)
	}); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("hrv: %w", err))
	} else {
		rec.HRV = hrv
	}

	if sleep, err := observe(a, "sleep", func() (map[string]any, error) {
		return a.upstream.GetSleepData(ctx, date)
	}); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("sleep: %w", err))
	} else {
		rec.Sleep = sleep
	}

	if stress, err := observe(a, "stress", func() (map[string]any, error) {
		return a.upstream.GetStressData(ctx, date)
	}); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("stress: %w", err))
	} else {
		rec.Stress = stress
	}

	if err := errs.ErrorOrNil(); err != nil {
		a.logger.Warn("一部のKPIクエリが失敗したため該当ファミリは空になる",
			slog.String("date", date),
			slog.String("error", err.Error()))
	}
	return rec
}

// ActivitiesInRange は日付範囲内のアクティビティをページ単位で取得し、
// 正規化して返す。要求件数未満のページで打ち切り、取得に失敗した場合は
// その時点までの蓄積分(空の場合もある)を返す。
func (a *Aggregator) ActivitiesInRange(ctx context.Context, startDate, endDate string) []model.ActivityRecord {
	records := make([]model.ActivityRecord, 0)
	for page := 0; ; page++ {
		offset := page * pageSize
		batch, err := observe(a, "activities", func() ([]map[string]any, error) {
			return a.upstream.GetActivitiesByDate(ctx, startDate, endDate, pageSize, offset)
		})
		if err != nil {
			a.logger.Warn("アクティビティ一覧の取得に失敗したため取得済み分のみを返す",
				slog.Int("page", page),
				slog.Int("accumulated", len(records)),
				slog.String("error", err.Error()))
			return records
		}
		for _, doc := range batch {
			records = append(records, normalizeActivity(doc))
		}
		if len(batch) < pageSize {
			return records
		}
	}
}

// ActivitySteps は指定アクティビティのスプリットを正規化して返す。
// 取得に失敗した場合は空のシーケンスを返し、リクエストを失敗させない。
func (a *Aggregator) ActivitySteps(ctx context.Context, activityID int64) []model.StepRecord {
	splits, err := observe(a, "activity_splits", func() (map[string]any, error) {
		return a.upstream.GetActivitySplits(ctx, activityID)
	})
	if err != nil {
		a.logger.Warn("スプリットの取得に失敗したため空のシーケンスを返す",
			slog.Int64("activity_id", activityID),
			slog.String("error", err.Error()))
		return []model.StepRecord{}
	}

	laps, _ := splits["lapDTOs"].([]any)
	steps := make([]model.StepRecord, 0, len(laps))
	for i, lap := range laps {
		doc, ok := lap.(map[string]any)
		if !ok {
			continue
		}
		steps = append(steps, normalizeStep(doc, i))
	}
	return steps
}
