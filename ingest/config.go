package ingest

import (
	"time"

	"github.com/ceyewan/pushgate/connector"
	"github.com/ceyewan/pushgate/ratelimit"
	"github.com/ceyewan/pushgate/xerrors"
)

// Config 接入层配置，对应配置文件的 ingest 段
//
//	ingest:
//	  max_batch_size: 10000
//	  source_ttl: 1h
//	  rate_limit:
//	    rate: 1000
//	    burst: 10000
//	  nats:
//	    enabled: true
//	    url: nats://127.0.0.1:4222
//	    subject: metrics.push
//	    queue: pushgate
//	  kafka:
//	    enabled: false
//	    seed: ["127.0.0.1:9092"]
//	    topics: ["metrics"]
//	    group: pushgate
type Config struct {
	// MaxBatchSize 单批最多的指标条数
	MaxBatchSize int `mapstructure:"max_batch_size"`

	// SourceTTL 上报方多久未出现后不再计入活跃 source
	SourceTTL time.Duration `mapstructure:"source_ttl"`

	// MaxSources 活跃 source 跟踪的容量上限
	MaxSources int `mapstructure:"max_sources"`

	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
}

// RateLimitConfig 按 source 的限流配置，Rate 或 Burst 为 0 时不限流
type RateLimitConfig struct {
	ratelimit.Limit            `mapstructure:",squash"`
	ratelimit.StandaloneConfig `mapstructure:",squash"`
}

// NATSConfig NATS 接入配置
type NATSConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Subject string `mapstructure:"subject"`
	// Queue 队列组，多实例部署时每条消息只被一个实例处理
	Queue string `mapstructure:"queue"`

	connector.NATSConfig `mapstructure:",squash"`
}

// KafkaConfig Kafka 接入配置
type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Topics  []string `mapstructure:"topics"`
	Group   string   `mapstructure:"group"`

	connector.KafkaConfig `mapstructure:",squash"`
}

// DefaultConfig 返回默认配置，两种消息接入默认关闭
func DefaultConfig() *Config {
	return &Config{
		MaxBatchSize: 10000,
		SourceTTL:    time.Hour,
		MaxSources:   100000,
		NATS:         NATSConfig{Subject: "metrics.push", Queue: "pushgate"},
		Kafka:        KafkaConfig{Topics: []string{"metrics"}, Group: "pushgate"},
	}
}

func (c *Config) setDefaults() {
	d := DefaultConfig()
	if c.MaxBatchSize <= 0 {
		c.MaxBatchSize = d.MaxBatchSize
	}
	if c.SourceTTL <= 0 {
		c.SourceTTL = d.SourceTTL
	}
	if c.MaxSources <= 0 {
		c.MaxSources = d.MaxSources
	}
}

func (c *Config) validate() error {
	c.setDefaults()
	if c.RateLimit.Enabled() && c.RateLimit.Burst < c.MaxBatchSize {
		// 一批按条数消耗令牌，burst 小于单批上限时大批次永远无法通过
		return xerrors.Wrapf(xerrors.ErrInvalidInput,
			"rate_limit.burst (%d) must be >= max_batch_size (%d)", c.RateLimit.Burst, c.MaxBatchSize)
	}
	return nil
}
