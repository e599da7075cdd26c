package handler

import (
	"context"
	"log/slog"

	"github.com/hitoshi/garmetry/internal/metric"
	"github.com/hitoshi/garmetry/internal/metrics"
	"github.com/hitoshi/garmetry/internal/model"
	"github.com/hitoshi/garmetry/internal/session"
)

// MetricServiceAdapter は session.Bootstrapper と metric.Aggregator を
// MetricServiceInterface に適合させるアダプタ。
// 呼び出しごとに上流セッションを確立し、完了後に必ず解放する。
type MetricServiceAdapter struct {
	bootstrapper *session.Bootstrapper
	logger       *slog.Logger
	collector    metrics.MetricsCollector
}

// NewMetricServiceAdapter はMetricServiceAdapterを生成する。
func NewMetricServiceAdapter(bootstrapper *session.Bootstrapper, logger *slog.Logger, collector metrics.MetricsCollector) *MetricServiceAdapter {
	return &MetricServiceAdapter{
		bootstrapper: bootstrapper,
		logger:       logger,
		collector:    collector,
	}
}

// CurrentParameters はセッションを確立して現在の生理学的パラメータを取得する。
func (a *MetricServiceAdapter) CurrentParameters(ctx context.Context) (*model.ParamsRecord, error) {
	sess, err := a.bootstrapper.Establish(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Close(ctx)

	return a.newAggregator(sess).CurrentParameters(ctx), nil
}

// DailyKpis はセッションを確立して指定日のKPIファミリを取得する。
func (a *MetricServiceAdapter) DailyKpis(ctx context.Context, date string) (*model.DailyRecord, error) {
	sess, err := a.bootstrapper.Establish(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Close(ctx)

	return a.newAggregator(sess).DailyKpis(ctx, date), nil
}

// ActivitiesInRange はセッションを確立して日付範囲内のアクティビティ一覧を取得する。
func (a *MetricServiceAdapter) ActivitiesInRange(ctx context.Context, startDate, endDate string) ([]model.ActivityRecord, error) {
	sess, err := a.bootstrapper.Establish(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Close(ctx)

	return a.newAggregator(sess).ActivitiesInRange(ctx, startDate, endDate), nil
}

// ActivitySteps はセッションを確立してアクティビティのラップ一覧を取得する。
func (a *MetricServiceAdapter) ActivitySteps(ctx context.Context, activityID int64) ([]model.StepRecord, error) {
	sess, err := a.bootstrapper.Establish(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Close(ctx)

	return a.newAggregator(sess).ActivitySteps(ctx, activityID), nil
}

// newAggregator はセッションに紐づくクライアントを包むAggregatorを生成する。
func (a *MetricServiceAdapter) newAggregator(sess *session.Session) *metric.Aggregator {
	return metric.NewAggregator(sess.Client(), a.logger, a.collector)
}

// compile-time interface check
var _ MetricServiceInterface = (*MetricServiceAdapter)(nil)
