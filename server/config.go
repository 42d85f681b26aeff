package server

import (
	"net"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ceyewan/pushgate/xerrors"
)

// Config HTTP 服务配置，对应配置文件的 server 段
type Config struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	// Mode gin 运行模式：debug/release/test
	Mode              string        `mapstructure:"mode"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
	// MaxBodyBytes 请求体上限，超出返回 413
	MaxBodyBytes int64 `mapstructure:"max_body_bytes"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Host:              "127.0.0.1",
		Port:              8080,
		Mode:              gin.ReleaseMode,
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   10 * time.Second,
		MaxBodyBytes:      8 << 20,
	}
}

// Addr 监听地址
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c *Config) setDefaults() {
	d := DefaultConfig()
	if c.Mode == "" {
		c.Mode = d.Mode
	}
	if c.ReadHeaderTimeout <= 0 {
		c.ReadHeaderTimeout = d.ReadHeaderTimeout
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = d.ShutdownTimeout
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = d.MaxBodyBytes
	}
}

func (c *Config) validate() error {
	c.setDefaults()
	if c.Port < 0 || c.Port > 65535 {
		return xerrors.Wrapf(xerrors.ErrInvalidInput, "server.port %d out of range", c.Port)
	}
	switch c.Mode {
	case gin.DebugMode, gin.ReleaseMode, gin.TestMode:
	default:
		return xerrors.Wrapf(xerrors.ErrInvalidInput, "server.mode %q", c.Mode)
	}
	return nil
}
