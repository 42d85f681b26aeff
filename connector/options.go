package connector

import (
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/ceyewan/pushgate/clog"
	"github.com/ceyewan/pushgate/metrics"
)

type options struct {
	logger    clog.Logger
	meter     metrics.Meter
	kafkaOpts []kgo.Opt
}

func newOptions(opts []Option) *options {
	o := &options{logger: clog.Discard(), meter: metrics.Discard()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Option 连接器选项
type Option func(*options)

// WithLogger 设置日志记录器
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger.WithNamespace("connector")
		}
	}
}

// WithMeter 设置指标收集器
func WithMeter(meter metrics.Meter) Option {
	return func(o *options) {
		if meter != nil {
			o.meter = meter
		}
	}
}

// WithKafkaClientOpts 追加 franz-go 客户端选项，如 kgo.ConsumerGroup、kgo.ConsumeTopics
func WithKafkaClientOpts(opts ...kgo.Opt) Option {
	return func(o *options) {
		o.kafkaOpts = append(o.kafkaOpts, opts...)
	}
}
