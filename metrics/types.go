// Package metrics 提供 pushgate 自身的运行指标（自监控）。
//
// 基于 OpenTelemetry Metric SDK，通过 Prometheus Exporter 注册到一个独立的
// prometheus.Registry 上，再由 Handler 以 Prometheus 文本格式暴露。这些指标与用户
// 推送、由 exposition 渲染的业务指标互不干扰。
//
// 快速开始：
//
//	meter, err := metrics.New(&metrics.Config{Enabled: true, ServiceName: "pushgate"})
//	if err != nil {
//	    return err
//	}
//	defer meter.Shutdown(ctx)
//
//	updates, _ := meter.Counter("pushgate_updates_total", "Metric updates processed.")
//	updates.Inc(ctx, metrics.L("outcome", "applied"))
//
//	router.GET("/internal/metrics", gin.WrapH(meter.Handler()))
package metrics

import (
	"context"
	"net/http"
)

// Counter 只增不减的累计值
type Counter interface {
	// Inc 增加 1
	Inc(ctx context.Context, labels ...Label)

	// Add 增加给定值，负数会被 SDK 丢弃
	Add(ctx context.Context, val float64, labels ...Label)
}

// Gauge 可任意增减的瞬时值
type Gauge interface {
	Set(ctx context.Context, val float64, labels ...Label)
	Inc(ctx context.Context, labels ...Label)
	Dec(ctx context.Context, labels ...Label)
}

// Histogram 记录值的分布
type Histogram interface {
	Record(ctx context.Context, val float64, labels ...Label)
}

// Meter 指标创建工厂，创建的指标可在多个 goroutine 中并发使用
type Meter interface {
	Counter(name string, desc string, opts ...MetricOption) (Counter, error)
	Gauge(name string, desc string, opts ...MetricOption) (Gauge, error)
	Histogram(name string, desc string, opts ...MetricOption) (Histogram, error)

	// Handler 返回暴露自身指标的 HTTP Handler
	Handler() http.Handler

	// Shutdown 停止采集并释放 MeterProvider
	Shutdown(ctx context.Context) error
}

// MetricOption 指标配置选项
type MetricOption func(*MetricOptions)

// MetricOptions 指标选项
type MetricOptions struct {
	// Unit 单位，使用 UCUM 代码，如 "s"、"By"
	Unit string
	// Buckets 直方图显式桶边界，为空时使用 SDK 默认值
	Buckets []float64
}

// WithUnit 设置指标单位
func WithUnit(unit string) MetricOption {
	return func(o *MetricOptions) {
		o.Unit = unit
	}
}

// WithBuckets 设置直方图桶边界
func WithBuckets(buckets []float64) MetricOption {
	return func(o *MetricOptions) {
		o.Buckets = append([]float64(nil), buckets...)
	}
}
