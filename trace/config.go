package trace

// Config 链路追踪配置，对应配置文件中的 trace 段
type Config struct {
	// Enabled 为 false 时使用不导出的 Provider，只生成 TraceID 供日志关联
	Enabled     bool    `mapstructure:"enabled"`
	ServiceName string  `mapstructure:"service_name"`
	Endpoint    string  `mapstructure:"endpoint"` // OTLP gRPC 地址
	Sampler     float64 `mapstructure:"sampler"`  // 0~1 采样率
	Batcher     string  `mapstructure:"batcher"`  // batch | simple
	Insecure    bool    `mapstructure:"insecure"`
}

// DefaultConfig 返回默认配置
func DefaultConfig(serviceName string) *Config {
	return &Config{
		ServiceName: serviceName,
		Endpoint:    "localhost:4317",
		Sampler:     1.0,
		Batcher:     "batch",
		Insecure:    true,
	}
}
