package app

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ceyewan/pushgate/clog"
	"github.com/ceyewan/pushgate/config"
	"github.com/ceyewan/pushgate/ingest"
	"github.com/ceyewan/pushgate/metrics"
	"github.com/ceyewan/pushgate/registry"
	"github.com/ceyewan/pushgate/server"
	"github.com/ceyewan/pushgate/trace"
	"github.com/ceyewan/pushgate/xerrors"
)

// Config 进程全部配置
type Config struct {
	Server    server.Config  `mapstructure:"server"`
	Metrics   MetricsConfig  `mapstructure:"metrics"`
	Registry  RegistryConfig `mapstructure:"registry"`
	Ingest    ingest.Config  `mapstructure:"ingest"`
	Log       clog.Config    `mapstructure:"log"`
	Telemetry metrics.Config `mapstructure:"telemetry"`
	Trace     trace.Config   `mapstructure:"trace"`
}

// MetricsConfig 上报指标的命名与抓取路径
//
// 完整名称为 namespace、prefix、name 中非空部分以 "_" 连接，在创建 family 时
// 只拼接一次：metrics_server + app + requests → metrics_server_app_requests。
type MetricsConfig struct {
	Namespace string `mapstructure:"namespace"`
	Prefix    string `mapstructure:"prefix"`
	Path      string `mapstructure:"path"`
}

// RegistryConfig registry 段
type RegistryConfig struct {
	DefaultBuckets           []float64 `mapstructure:"default_buckets"`
	CardinalityWarnThreshold int       `mapstructure:"cardinality_warn_threshold"`
}

// StoreConfig 合并 metrics 与 registry 段
func (c *Config) StoreConfig() *registry.Config {
	return &registry.Config{
		Namespace:                c.Metrics.Namespace,
		Prefix:                   c.Metrics.Prefix,
		DefaultBuckets:           c.Registry.DefaultBuckets,
		CardinalityWarnThreshold: c.Registry.CardinalityWarnThreshold,
	}
}

// Defaults 全部配置项的默认值
//
// 只有在这里或配置文件中出现过的 key 才能被 PUSHGATE_* 环境变量覆盖。
func Defaults() map[string]any {
	return map[string]any{
		"server.host":                "127.0.0.1",
		"server.port":                8080,
		"server.mode":                "release",
		"server.read_header_timeout": "5s",
		"server.shutdown_timeout":    "10s",
		"server.max_body_bytes":      8 << 20,

		"metrics.namespace": "metrics_server",
		"metrics.prefix":    "app",
		"metrics.path":      "/metrics",

		"registry.default_buckets":            prometheus.DefBuckets,
		"registry.cardinality_warn_threshold": 10000,

		"ingest.max_batch_size":              10000,
		"ingest.source_ttl":                  "1h",
		"ingest.max_sources":                 100000,
		"ingest.rate_limit.rate":             0,
		"ingest.rate_limit.burst":            0,
		"ingest.rate_limit.cleanup_interval": "1m",
		"ingest.rate_limit.idle_timeout":     "5m",

		"ingest.nats.enabled":        false,
		"ingest.nats.url":            "nats://127.0.0.1:4222",
		"ingest.nats.subject":        "metrics.push",
		"ingest.nats.queue":          "pushgate",
		"ingest.nats.name":           "ingest",
		"ingest.nats.username":       "",
		"ingest.nats.password":       "",
		"ingest.nats.token":          "",
		"ingest.nats.timeout":        "5s",
		"ingest.nats.max_reconnects": 60,
		"ingest.nats.reconnect_wait": "2s",

		"ingest.kafka.enabled":         false,
		"ingest.kafka.seed":            []string{"127.0.0.1:9092"},
		"ingest.kafka.topics":          []string{"metrics"},
		"ingest.kafka.group":           "pushgate",
		"ingest.kafka.name":            "ingest",
		"ingest.kafka.user":            "",
		"ingest.kafka.password":        "",
		"ingest.kafka.client_id":       "pushgate",
		"ingest.kafka.connect_timeout": "10s",
		"ingest.kafka.request_timeout": "10s",

		"log.level":      "info",
		"log.format":     "json",
		"log.output":     "stdout",
		"log.add_source": false,

		"telemetry.enabled":      true,
		"telemetry.service_name": "pushgate",
		"telemetry.version":      Version,
		"telemetry.path":         "/internal/metrics",
		"telemetry.runtime":      true,

		"trace.enabled":      false,
		"trace.service_name": "pushgate",
		"trace.endpoint":     "localhost:4317",
		"trace.sampler":      1.0,
		"trace.batcher":      "batch",
		"trace.insecure":     true,
	}
}

var sections = []string{"server", "metrics", "registry", "ingest", "log", "telemetry", "trace"}

// LoadConfig 从 pushgate.yaml、.env 与 PUSHGATE_* 环境变量加载配置
func LoadConfig(ctx context.Context, opts ...config.Option) (*Config, config.Loader, error) {
	opts = append([]config.Option{
		config.WithConfigName("pushgate"),
		config.WithEnvPrefix("PUSHGATE"),
		config.WithDefaults(Defaults()),
	}, opts...)

	loader, err := config.New(opts...)
	if err != nil {
		return nil, nil, err
	}
	if err := loader.Load(ctx); err != nil {
		return nil, nil, err
	}

	cfg := &Config{}
	targets := map[string]any{
		"server":    &cfg.Server,
		"metrics":   &cfg.Metrics,
		"registry":  &cfg.Registry,
		"ingest":    &cfg.Ingest,
		"log":       &cfg.Log,
		"telemetry": &cfg.Telemetry,
		"trace":     &cfg.Trace,
	}
	for _, key := range sections {
		if err := loader.UnmarshalKey(key, targets[key]); err != nil {
			return nil, nil, xerrors.Wrapf(err, "unmarshal %s", key)
		}
	}
	return cfg, loader, nil
}
