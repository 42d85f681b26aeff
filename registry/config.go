package registry

import "github.com/prometheus/client_golang/prometheus"

// Config 注册表配置
//
// Namespace、Prefix 来自配置文件的 metrics 段，其余来自 registry 段：
//
//	metrics:
//	  namespace: "metrics_server"
//	  prefix: "app"
//	registry:
//	  default_buckets: [0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10]
//	  cardinality_warn_threshold: 10000
type Config struct {
	Namespace string `mapstructure:"namespace"`
	Prefix    string `mapstructure:"prefix"`

	// DefaultBuckets 上报方未给出桶边界时使用，为空时取 prometheus.DefBuckets
	DefaultBuckets []float64 `mapstructure:"default_buckets"`

	// CardinalityWarnThreshold 单个 family 的 series 数达到该值时告警一次，0 表示不告警
	CardinalityWarnThreshold int `mapstructure:"cardinality_warn_threshold"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Namespace:                "metrics_server",
		Prefix:                   "app",
		DefaultBuckets:           append([]float64(nil), prometheus.DefBuckets...),
		CardinalityWarnThreshold: 10000,
	}
}
