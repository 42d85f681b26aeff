package registry

import (
	"context"

	"github.com/ceyewan/pushgate/clog"
	"github.com/ceyewan/pushgate/metrics"
	"github.com/ceyewan/pushgate/xerrors"
)

const (
	MetricUpdatesTotal = "pushgate_updates_total"
	MetricBatchesTotal = "pushgate_batches_total"
)

// Engine 把一批更新逐条应用到 Store
type Engine struct {
	store   *Store
	logger  clog.Logger
	updates metrics.Counter
	batches metrics.Counter
}

// NewEngine 创建 Engine
func NewEngine(store *Store, opts ...Option) (*Engine, error) {
	if store == nil {
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, "store is nil")
	}
	o := newOptions(opts)

	updates, err := o.meter.Counter(MetricUpdatesTotal, "Metric updates processed, by outcome and rejection reason.")
	if err != nil {
		return nil, xerrors.Wrap(err, "create updates counter")
	}
	batches, err := o.meter.Counter(MetricBatchesTotal, "Metric batches processed, by outcome.")
	if err != nil {
		return nil, xerrors.Wrap(err, "create batches counter")
	}

	return &Engine{
		store:   store,
		logger:  o.logger.WithNamespace("engine"),
		updates: updates,
		batches: batches,
	}, nil
}

// Store 返回底层 Store
func (e *Engine) Store() *Store {
	return e.store
}

// ApplyBatch 独立应用每条更新：一条失败不会回滚或阻塞其它更新。
// 批内重复的更新按顺序应用，不做去重。ctx 只用于日志与指标。
func (e *Engine) ApplyBatch(ctx context.Context, source string, updates []Update) *BatchResult {
	result := &BatchResult{
		Source:  source,
		Results: make([]ItemResult, len(updates)),
	}

	for i, u := range updates {
		err := e.apply(u)
		reason := ReasonOf(err)
		result.Results[i] = ItemResult{Index: i, Name: u.Name, Reason: reason, Err: err}

		if err != nil {
			result.Failed++
			e.updates.Inc(ctx, metrics.L(metrics.LabelOutcome, "rejected"), metrics.L(metrics.LabelReason, string(reason)))
			e.logger.DebugContext(ctx, "metric update rejected",
				clog.String("source", source),
				clog.String("metric", u.Name),
				clog.Int("index", i),
				clog.ErrorWithCode(err, string(reason)))
			continue
		}
		result.Processed++
		e.updates.Inc(ctx, metrics.L(metrics.LabelOutcome, "applied"))
	}

	e.batches.Inc(ctx, metrics.L(metrics.LabelOutcome, result.Status()))
	if result.Failed > 0 {
		e.logger.WarnContext(ctx, "batch applied with rejected updates",
			clog.String("source", source),
			clog.Int("processed", result.Processed),
			clog.Int("failed", result.Failed))
	}
	return result
}

func (e *Engine) apply(u Update) error {
	// 只有取值非法的更新不能留下空 family
	if err := validateLabelValues(u.Labels); err != nil {
		return err
	}
	family, err := e.store.GetOrCreateFamily(u.descriptor())
	if err != nil {
		return err
	}
	series, err := family.GetOrCreateSeries(u.Labels)
	if err != nil {
		return err
	}

	switch family.Kind() {
	case KindCounter:
		if u.Mode == ModeDelta {
			return series.AddCounter(u.Value)
		}
		return series.SetCounter(u.Value)
	case KindGauge:
		if u.Mode == ModeDelta {
			series.AddGauge(u.Value)
		} else {
			series.SetGauge(u.Value)
		}
		return nil
	case KindHistogram:
		series.Observe(u.Value)
		return nil
	default:
		return xerrors.Wrapf(ErrInvalidKind, "metric %q", u.Name)
	}
}
