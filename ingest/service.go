// Package ingest 是指标批次的接入层：解码 JSON/msgpack 批次，按 source 限流，
// 转换为 registry.Update 后交给 registry.Engine 应用。
//
// HTTP、NATS、Kafka 三种传输共用同一个 Service：
//
//	svc, err := ingest.NewService(engine, &cfg.Ingest,
//	    ingest.WithLimiter(limiter),
//	    ingest.WithLogger(logger),
//	    ingest.WithMeter(meter))
//
//	batch, err := ingest.Decode(contentType, body)
//	result, err := svc.IngestBatch(ctx, ingest.TransportHTTP, batch)
//
// 请求级错误（解码失败、source 为空、批次为空或过大、未知类型、被限流）整批拒绝；
// 单条更新的错误记录在 Result.Results 中，不影响同批其它更新。
package ingest

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/maypok86/otter/v2"

	"github.com/ceyewan/pushgate/clog"
	"github.com/ceyewan/pushgate/metrics"
	"github.com/ceyewan/pushgate/ratelimit"
	"github.com/ceyewan/pushgate/registry"
	"github.com/ceyewan/pushgate/xerrors"
)

const (
	TransportHTTP  = "http"
	TransportNATS  = "nats"
	TransportKafka = "kafka"
)

const MetricBatchesTotal = "pushgate_ingest_batches_total"

// Result 一个已受理批次的结果
type Result struct {
	BatchID string
	*registry.BatchResult
}

// Service 接入服务，并发安全
type Service struct {
	engine  *registry.Engine
	limiter ratelimit.Limiter
	limit   ratelimit.Limit
	maxSize int
	// maxPayload 消息体字节上限，0 表示不限制
	maxPayload int64

	sources *otter.Cache[string, time.Time]

	logger  clog.Logger
	batches metrics.Counter
	now     func() time.Time
}

// NewService 创建接入服务，cfg 为 nil 时使用 DefaultConfig
func NewService(engine *registry.Engine, cfg *Config, opts ...Option) (*Service, error) {
	if engine == nil {
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, "engine is nil")
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	o := newOptions(opts)

	sources, err := otter.New(&otter.Options[string, time.Time]{
		MaximumSize:      cfg.MaxSources,
		ExpiryCalculator: otter.ExpiryAccessing[string, time.Time](cfg.SourceTTL),
	})
	if err != nil {
		return nil, xerrors.Wrap(err, "failed to build source tracker")
	}

	batches, err := o.meter.Counter(MetricBatchesTotal, "Metric batches received, by transport and outcome.")
	if err != nil {
		return nil, xerrors.Wrap(err, "create batches counter")
	}

	if o.limiter == nil && cfg.RateLimit.Enabled() {
		o.logger.Warn("rate limit configured but no limiter provided, rate limiting disabled")
	}

	return &Service{
		engine:     engine,
		limiter:    o.limiter,
		limit:      cfg.RateLimit.Limit,
		maxSize:    cfg.MaxBatchSize,
		maxPayload: o.maxPayload,
		sources:    sources,
		logger:     o.logger,
		batches:    batches,
		now:        time.Now,
	}, nil
}

// IngestBatch 校验并应用一个批次
//
// 返回 error 时整批被拒绝，store 未被修改；否则返回逐条结果。
func (s *Service) IngestBatch(ctx context.Context, transport string, b *Batch) (*Result, error) {
	updates, err := s.prepare(ctx, b)
	if err != nil {
		s.batches.Inc(ctx,
			metrics.L(metrics.LabelTransport, transport),
			metrics.L(metrics.LabelOutcome, "rejected"),
			metrics.L(metrics.LabelReason, ErrorCode(err)))
		s.logger.InfoContext(ctx, "batch rejected",
			clog.String("transport", transport),
			clog.ErrorWithCode(err, ErrorCode(err)))
		return nil, err
	}

	source := strings.TrimSpace(b.Source)
	s.sources.Set(source, s.now())

	res := &Result{
		BatchID:     uuid.NewString(),
		BatchResult: s.engine.ApplyBatch(ctx, source, updates),
	}
	s.batches.Inc(ctx,
		metrics.L(metrics.LabelTransport, transport),
		metrics.L(metrics.LabelOutcome, res.Status()))
	s.logger.DebugContext(ctx, "batch ingested",
		clog.String("transport", transport),
		clog.String("batch_id", res.BatchID),
		clog.String("source", source),
		clog.Int("processed", res.Processed),
		clog.Int("failed", res.Failed))
	return res, nil
}

func (s *Service) prepare(ctx context.Context, b *Batch) ([]registry.Update, error) {
	if b == nil {
		return nil, xerrors.Wrap(ErrMalformedBatch, "batch is nil")
	}
	source := strings.TrimSpace(b.Source)
	if source == "" {
		return nil, ErrEmptySource
	}
	if len(b.Metrics) == 0 {
		return nil, ErrEmptyBatch
	}
	if len(b.Metrics) > s.maxSize {
		return nil, xerrors.Wrapf(ErrBatchTooLarge, "%d metrics, limit %d", len(b.Metrics), s.maxSize)
	}

	updates, err := toUpdates(b.Metrics)
	if err != nil {
		return nil, err
	}

	if s.limiter != nil && s.limit.Enabled() {
		allowed, err := s.limiter.AllowN(ctx, source, s.limit, len(updates))
		if err != nil {
			return nil, xerrors.Wrap(err, "rate limiter")
		}
		if !allowed {
			return nil, xerrors.Wrapf(ErrRateLimited, "source %q", source)
		}
	}
	return updates, nil
}

// toUpdates 把线上格式转换为 registry.Update，缺失 value、未知类型或 mode 整批拒绝
func toUpdates(items []Metric) ([]registry.Update, error) {
	updates := make([]registry.Update, len(items))
	for i, m := range items {
		if m.Value == nil {
			return nil, xerrors.Wrapf(ErrMalformedBatch, "metrics[%d] %q: value is required", i, m.Name)
		}
		kind, err := registry.ParseKind(m.MetricType)
		if err != nil {
			return nil, xerrors.Wrapf(ErrUnknownType, "metrics[%d] %q: %q", i, m.Name, m.MetricType)
		}
		mode, err := registry.ParseMode(m.Value.Mode)
		if err != nil {
			return nil, xerrors.Wrapf(ErrMalformedBatch, "metrics[%d] %q: %v", i, m.Name, err)
		}
		updates[i] = registry.Update{
			Name:      m.Name,
			Kind:      kind,
			Help:      m.Help,
			Labels:    m.Labels,
			Buckets:   m.Buckets,
			Value:     m.Value.Value,
			Mode:      mode,
			Timestamp: m.Value.Time(),
		}
	}
	return updates, nil
}

// checkPayload 消息体超过字节上限时返回 ErrBatchTooLarge
func (s *Service) checkPayload(n int) error {
	if s.maxPayload > 0 && int64(n) > s.maxPayload {
		return xerrors.Wrapf(ErrBatchTooLarge, "payload %d bytes, limit %d", n, s.maxPayload)
	}
	return nil
}

// Sources 近 SourceTTL 内出现过的 source 数量（近似值）
func (s *Service) Sources() int {
	return s.sources.EstimatedSize()
}

// LastSeen 返回 source 最近一次被受理的时间
func (s *Service) LastSeen(source string) (time.Time, bool) {
	return s.sources.GetIfPresent(source)
}

// Engine 返回底层 Engine
func (s *Service) Engine() *registry.Engine {
	return s.engine
}
