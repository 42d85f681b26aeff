package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/ceyewan/pushgate/clog"
	"github.com/ceyewan/pushgate/metrics"
	"github.com/ceyewan/pushgate/xerrors"
)

// bucket 令牌桶及其最后访问时间
type bucket struct {
	limiter  *rate.Limiter
	mu       sync.Mutex
	lastSeen time.Time
}

func (b *bucket) touch(now time.Time) {
	b.mu.Lock()
	b.lastSeen = now
	b.mu.Unlock()
}

func (b *bucket) idleSince(now time.Time) time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return now.Sub(b.lastSeen)
}

type standaloneLimiter struct {
	cfg       *StandaloneConfig
	logger    clog.Logger
	decisions metrics.Counter
	active    metrics.Gauge
	buckets   sync.Map // map[string]*bucket
	stopCh    chan struct{}
	closeOnce sync.Once
}

func newStandalone(cfg *StandaloneConfig, logger clog.Logger, meter metrics.Meter) (*standaloneLimiter, error) {
	cfg.setDefaults()

	decisions, err := meter.Counter(MetricDecisions, "Rate limit decisions by outcome.")
	if err != nil {
		return nil, xerrors.Wrap(err, "create ratelimit decision counter")
	}
	active, err := meter.Gauge(MetricActiveBuckets, "Number of live token buckets.")
	if err != nil {
		return nil, xerrors.Wrap(err, "create ratelimit bucket gauge")
	}

	l := &standaloneLimiter{
		cfg:       cfg,
		logger:    logger,
		decisions: decisions,
		active:    active,
		stopCh:    make(chan struct{}),
	}
	go l.cleanup(cfg.CleanupInterval, cfg.IdleTimeout)

	logger.Info("standalone rate limiter created",
		clog.Duration("cleanup_interval", cfg.CleanupInterval),
		clog.Duration("idle_timeout", cfg.IdleTimeout))
	return l, nil
}

func (l *standaloneLimiter) Allow(ctx context.Context, key string, limit Limit) (bool, error) {
	return l.AllowN(ctx, key, limit, 1)
}

func (l *standaloneLimiter) AllowN(ctx context.Context, key string, limit Limit, n int) (bool, error) {
	if key == "" {
		return false, ErrKeyEmpty
	}
	if !limit.Enabled() {
		return false, ErrInvalidLimit
	}
	if n <= 0 {
		return false, xerrors.Wrapf(xerrors.ErrInvalidInput, "ratelimit: n must be positive, got %d", n)
	}

	now := time.Now()
	b := l.getBucket(ctx, key, limit)
	allowed := b.limiter.AllowN(now, n)
	b.touch(now)

	decision := "allowed"
	if !allowed {
		decision = "denied"
		l.logger.Debug("rate limit exceeded",
			clog.String("key", key),
			clog.Float64("rate", limit.Rate),
			clog.Int("burst", limit.Burst),
			clog.Int("requested", n))
	}
	l.decisions.Inc(ctx, metrics.L(LabelDecision, decision))
	return allowed, nil
}

func (l *standaloneLimiter) Wait(ctx context.Context, key string, limit Limit) error {
	if key == "" {
		return ErrKeyEmpty
	}
	if !limit.Enabled() {
		return ErrInvalidLimit
	}

	b := l.getBucket(ctx, key, limit)
	err := b.limiter.Wait(ctx)
	b.touch(time.Now())
	return err
}

// getBucket 获取或创建桶，规则变化时视为新桶
func (l *standaloneLimiter) getBucket(ctx context.Context, key string, limit Limit) *bucket {
	cacheKey := fmt.Sprintf("%s:%v:%d", key, limit.Rate, limit.Burst)
	if v, ok := l.buckets.Load(cacheKey); ok {
		return v.(*bucket)
	}

	b := &bucket{
		limiter:  rate.NewLimiter(rate.Limit(limit.Rate), limit.Burst),
		lastSeen: time.Now(),
	}
	actual, loaded := l.buckets.LoadOrStore(cacheKey, b)
	if !loaded {
		l.active.Inc(ctx)
	}
	return actual.(*bucket)
}

func (l *standaloneLimiter) cleanup(interval, idleTimeout time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.evictIdle(time.Now(), idleTimeout)
		case <-l.stopCh:
			return
		}
	}
}

// evictIdle 回收空闲超过 idleTimeout 的桶，返回回收数量
func (l *standaloneLimiter) evictIdle(now time.Time, idleTimeout time.Duration) int {
	count := 0
	l.buckets.Range(func(key, value any) bool {
		if value.(*bucket).idleSince(now) > idleTimeout {
			l.buckets.Delete(key)
			l.active.Dec(context.Background())
			count++
		}
		return true
	})
	if count > 0 {
		l.logger.Debug("evicted idle buckets", clog.Int("count", count))
	}
	return count
}

func (l *standaloneLimiter) Close() error {
	l.closeOnce.Do(func() { close(l.stopCh) })
	return nil
}
