package connector

import (
	"time"

	"github.com/ceyewan/pushgate/xerrors"
)

// NATSConfig NATS 连接配置
type NATSConfig struct {
	Name string `mapstructure:"name"` // 连接器名称 (默认: "default")

	URL      string `mapstructure:"url"`      // [必填] 如 "nats://127.0.0.1:4222"
	Username string `mapstructure:"username"` // [可选]
	Password string `mapstructure:"password"` // [可选]
	Token    string `mapstructure:"token"`    // [可选]

	Timeout       time.Duration `mapstructure:"timeout"`        // 连接超时 (默认: 5s)
	MaxReconnects int           `mapstructure:"max_reconnects"` // 最大重连次数 (默认: 60)
	ReconnectWait time.Duration `mapstructure:"reconnect_wait"` // 重连等待 (默认: 2s)
	PingInterval  time.Duration `mapstructure:"ping_interval"`  // ping 间隔 (默认: 2m)
	MaxPingsOut   int           `mapstructure:"max_pings_out"`  // 最大未响应 ping 数 (默认: 2)
}

func (c *NATSConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "default"
	}
	if c.Timeout == 0 {
		c.Timeout = 5 * time.Second
	}
	if c.MaxReconnects == 0 {
		c.MaxReconnects = 60
	}
	if c.ReconnectWait == 0 {
		c.ReconnectWait = 2 * time.Second
	}
	if c.PingInterval == 0 {
		c.PingInterval = 2 * time.Minute
	}
	if c.MaxPingsOut == 0 {
		c.MaxPingsOut = 2
	}
}

func (c *NATSConfig) validate() error {
	if c == nil {
		return xerrors.Wrap(ErrConfig, "nats config is nil")
	}
	c.setDefaults()
	if c.URL == "" {
		return xerrors.Wrap(ErrConfig, "NATS URL不能为空")
	}
	return nil
}

// KafkaConfig Kafka 连接配置
type KafkaConfig struct {
	Name string   `mapstructure:"name"` // 连接器名称 (默认: "default")
	Seed []string `mapstructure:"seed"` // [必填] 初始 broker 列表

	// SASL/PLAIN 认证，两者都非空时启用
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`

	ClientID       string        `mapstructure:"client_id"`       // (默认: "pushgate")
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"` // Ping 超时 (默认: 10s)
	RequestTimeout time.Duration `mapstructure:"request_timeout"` // 请求超时 (默认: 10s)
}

func (c *KafkaConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "default"
	}
	if c.ClientID == "" {
		c.ClientID = "pushgate"
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = 10 * time.Second
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 10 * time.Second
	}
}

func (c *KafkaConfig) validate() error {
	if c == nil {
		return xerrors.Wrap(ErrConfig, "kafka config is nil")
	}
	c.setDefaults()
	if len(c.Seed) == 0 {
		return xerrors.Wrap(ErrConfig, "Kafka seed brokers不能为空")
	}
	return nil
}
