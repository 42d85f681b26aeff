package ratelimit

import (
	"github.com/ceyewan/pushgate/clog"
	"github.com/ceyewan/pushgate/metrics"
)

// Option 限流器选项
type Option func(*options)

type options struct {
	logger clog.Logger
	meter  metrics.Meter
}

func (o options) meterOrDiscard() metrics.Meter {
	if o.meter == nil {
		return metrics.Discard()
	}
	return o.meter
}

// WithLogger 设置 Logger
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMeter 设置 Meter，用于记录限流决策
func WithMeter(meter metrics.Meter) Option {
	return func(o *options) {
		o.meter = meter
	}
}
