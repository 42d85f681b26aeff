package ingest

import (
	"github.com/ceyewan/pushgate/clog"
	"github.com/ceyewan/pushgate/metrics"
	"github.com/ceyewan/pushgate/ratelimit"
)

// Option Service 与消费者共用的选项
type Option func(*options)

type options struct {
	logger  clog.Logger
	meter   metrics.Meter
	limiter ratelimit.Limiter
	// maxPayload 消息体字节上限，0 表示不限制
	maxPayload int64
}

func newOptions(opts []Option) *options {
	o := &options{logger: clog.Discard(), meter: metrics.Discard()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLogger 设置日志记录器，自动添加 "ingest" 命名空间
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger.WithNamespace("ingest")
		}
	}
}

// WithMeter 设置自监控 Meter
func WithMeter(meter metrics.Meter) Option {
	return func(o *options) {
		if meter != nil {
			o.meter = meter
		}
	}
}

// WithLimiter 设置按 source 的限流器，限流器由调用方创建和关闭
func WithLimiter(limiter ratelimit.Limiter) Option {
	return func(o *options) {
		o.limiter = limiter
	}
}

// WithMaxPayloadBytes 设置 NATS/Kafka 消息体的字节上限，与 HTTP 的 max_body_bytes 取同一个值
func WithMaxPayloadBytes(n int64) Option {
	return func(o *options) {
		if n > 0 {
			o.maxPayload = n
		}
	}
}
