// Package ratelimit 提供基于令牌桶的单机限流器，pushgate 用它按 source 限制
// 指标更新的写入速率。
//
// 每个 key 拥有独立的 golang.org/x/time/rate 令牌桶，长时间未访问的桶会被后台
// goroutine 回收。一次批量写入按更新条数消耗令牌：
//
//	limiter, _ := ratelimit.NewStandalone(&ratelimit.StandaloneConfig{
//	    CleanupInterval: time.Minute,
//	    IdleTimeout:     5 * time.Minute,
//	}, ratelimit.WithLogger(logger), ratelimit.WithMeter(meter))
//	defer limiter.Close()
//
//	allowed, err := limiter.AllowN(ctx, source, ratelimit.Limit{Rate: 1000, Burst: 5000}, len(updates))
package ratelimit

import (
	"context"
	"time"

	"github.com/ceyewan/pushgate/clog"
)

// Limit 令牌桶规则
type Limit struct {
	Rate  float64 `mapstructure:"rate"`  // 每秒生成的令牌数
	Burst int     `mapstructure:"burst"` // 桶容量，即单次最多可消耗的令牌数
}

// Enabled Rate 与 Burst 都为正时限流才生效
func (l Limit) Enabled() bool {
	return l.Rate > 0 && l.Burst > 0
}

// Limiter 限流器
type Limiter interface {
	// Allow 尝试获取 1 个令牌（非阻塞）
	Allow(ctx context.Context, key string, limit Limit) (bool, error)

	// AllowN 尝试获取 n 个令牌（非阻塞），n 大于 Burst 时总是失败
	AllowN(ctx context.Context, key string, limit Limit, n int) (bool, error)

	// Wait 阻塞直到获取 1 个令牌或 ctx 结束
	Wait(ctx context.Context, key string, limit Limit) error

	// Close 停止后台清理
	Close() error
}

// StandaloneConfig 单机限流配置
type StandaloneConfig struct {
	// CleanupInterval 清理空闲桶的间隔（默认 1 分钟）
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`

	// IdleTimeout 桶空闲多久后被回收（默认 5 分钟）
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
}

func (c *StandaloneConfig) setDefaults() {
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = time.Minute
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = 5 * time.Minute
	}
}

// NewStandalone 创建单机限流器，cfg 为 nil 时使用默认值
func NewStandalone(cfg *StandaloneConfig, opts ...Option) (Limiter, error) {
	if cfg == nil {
		cfg = &StandaloneConfig{}
	}

	opt := options{logger: clog.Discard()}
	for _, o := range opts {
		o(&opt)
	}

	return newStandalone(cfg, opt.logger.WithNamespace("ratelimit"), opt.meterOrDiscard())
}
