package server

import (
	"github.com/ceyewan/pushgate/clog"
	"github.com/ceyewan/pushgate/metrics"
)

// Option 服务选项
type Option func(*options)

type options struct {
	logger        clog.Logger
	meter         metrics.Meter
	metricsPath   string
	telemetryPath string
	serviceName   string
	version       string
	tracing       bool
}

func newOptions(opts []Option) *options {
	o := &options{
		logger:        clog.Discard(),
		meter:         metrics.Discard(),
		metricsPath:   "/metrics",
		telemetryPath: "/internal/metrics",
		serviceName:   "pushgate",
		version:       "dev",
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLogger 设置日志记录器
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger.WithNamespace("server")
		}
	}
}

// WithMeter 设置自监控 Meter，同时在 telemetry 路径暴露
func WithMeter(meter metrics.Meter) Option {
	return func(o *options) {
		if meter != nil {
			o.meter = meter
		}
	}
}

// WithMetricsPath 设置抓取路径，默认 /metrics
func WithMetricsPath(path string) Option {
	return func(o *options) {
		if path != "" {
			o.metricsPath = path
		}
	}
}

// WithTelemetryPath 设置自监控指标路径，默认 /internal/metrics
func WithTelemetryPath(path string) Option {
	return func(o *options) {
		if path != "" {
			o.telemetryPath = path
		}
	}
}

// WithVersion 设置服务名与版本，出现在 health/status 响应中
func WithVersion(serviceName, version string) Option {
	return func(o *options) {
		if serviceName != "" {
			o.serviceName = serviceName
		}
		if version != "" {
			o.version = version
		}
	}
}

// WithTracing 为每个请求创建服务端 Span
func WithTracing() Option {
	return func(o *options) {
		o.tracing = true
	}
}
