package metrics

// Config 自监控指标配置，对应配置文件中的 telemetry 段
//
//	telemetry:
//	  enabled: true
//	  service_name: "pushgate"
//	  version: "v0.3.0"
//	  path: "/internal/metrics"
type Config struct {
	// Enabled 为 false 时 New 返回 noop Meter
	Enabled bool `mapstructure:"enabled"`

	// ServiceName 作为 OpenTelemetry Resource 的 service.name
	ServiceName string `mapstructure:"service_name"`

	// Version 作为 OpenTelemetry Resource 的 service.version
	Version string `mapstructure:"version"`

	// Path 自监控指标的 HTTP 路径，由 server 包挂载
	Path string `mapstructure:"path"`

	// Runtime 是否采集 Go 运行时指标（GC、goroutine、内存）
	Runtime bool `mapstructure:"runtime"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Enabled:     true,
		ServiceName: "pushgate",
		Path:        "/internal/metrics",
		Runtime:     true,
	}
}
