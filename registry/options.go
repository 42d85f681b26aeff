package registry

import (
	"github.com/ceyewan/pushgate/clog"
	"github.com/ceyewan/pushgate/metrics"
)

// Option Store 与 Engine 共用的选项
type Option func(*options)

type options struct {
	logger clog.Logger
	meter  metrics.Meter
}

func newOptions(opts []Option) *options {
	o := &options{logger: clog.Discard(), meter: metrics.Discard()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLogger 设置日志记录器，自动添加 "registry" 命名空间
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger.WithNamespace("registry")
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
