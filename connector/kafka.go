package connector

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/pkg/sasl/plain"

	"github.com/ceyewan/pushgate/clog"
	"github.com/ceyewan/pushgate/xerrors"
)

type kafkaConnector struct {
	cfg       *KafkaConfig
	client    *kgo.Client
	extraOpts []kgo.Opt
	logger    clog.Logger
	metrics   *connMetrics
	healthy   atomic.Bool
	mu        sync.RWMutex
}

// NewKafka 创建 Kafka 连接器，不会立即连接
//
// 消费者组等客户端级参数需要在创建 kgo.Client 时给出，通过 WithKafkaClientOpts 传入。
func NewKafka(cfg *KafkaConfig, opts ...Option) (KafkaConnector, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	opt := newOptions(opts)
	m, err := newConnMetrics(opt.meter, "kafka", cfg.Name)
	if err != nil {
		return nil, err
	}

	return &kafkaConnector{
		cfg:       cfg,
		extraOpts: opt.kafkaOpts,
		logger:    opt.logger.With(clog.String("connector", "kafka"), clog.String("name", cfg.Name)),
		metrics:   m,
	}, nil
}

func (c *kafkaConnector) clientOptions() []kgo.Opt {
	opts := []kgo.Opt{
		kgo.SeedBrokers(c.cfg.Seed...),
		kgo.ClientID(c.cfg.ClientID),
		kgo.RequestTimeoutOverhead(c.cfg.RequestTimeout),
		kgo.WithLogger(&kgoLogger{logger: c.logger}),
	}
	if c.cfg.User != "" && c.cfg.Password != "" {
		opts = append(opts, kgo.SASL(plain.Auth{User: c.cfg.User, Pass: c.cfg.Password}.AsMechanism()))
	}
	return append(opts, c.extraOpts...)
}

func (c *kafkaConnector) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil {
		return nil
	}

	c.logger.Info("attempting to connect to kafka", clog.Any("seeds", c.cfg.Seed))

	client, err := kgo.NewClient(c.clientOptions()...)
	if err != nil {
		c.metrics.attempt(ctx, err)
		c.logger.Error("failed to create kafka client", clog.Error(err))
		return xerrors.Wrapf(ErrConfig, "kafka[%s]: %v", c.cfg.Name, err)
	}

	// franz-go 的连接是惰性的，用 Ping 验证 broker 可达
	pingCtx, cancel := context.WithTimeout(ctx, c.cfg.ConnectTimeout)
	defer cancel()
	err = client.Ping(pingCtx)
	c.metrics.attempt(ctx, err)
	if err != nil {
		client.Close()
		c.logger.Error("failed to reach kafka seeds", clog.Error(err))
		return xerrors.Wrapf(ErrConnection, "kafka[%s]: %v", c.cfg.Name, err)
	}

	c.client = client
	c.healthy.Store(true)
	c.metrics.setUp(ctx, true)
	c.logger.Info("connected to kafka")
	return nil
}

func (c *kafkaConnector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.healthy.Store(false)
	if c.client != nil {
		c.client.Close()
		c.client = nil
		c.metrics.setUp(context.Background(), false)
		c.logger.Info("kafka connection closed")
	}
	return nil
}

func (c *kafkaConnector) HealthCheck(ctx context.Context) error {
	c.mu.RLock()
	client := c.client
	c.mu.RUnlock()

	if client == nil {
		c.healthy.Store(false)
		return xerrors.Wrapf(ErrNotConnected, "kafka[%s]", c.cfg.Name)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.ConnectTimeout)
	defer cancel()
	if err := client.Ping(ctx); err != nil {
		c.healthy.Store(false)
		return xerrors.Wrapf(ErrHealthCheck, "kafka[%s]: %v", c.cfg.Name, err)
	}
	c.healthy.Store(true)
	return nil
}

func (c *kafkaConnector) IsHealthy() bool {
	return c.healthy.Load()
}

func (c *kafkaConnector) Name() string {
	return c.cfg.Name
}

func (c *kafkaConnector) GetClient() *kgo.Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.client
}

// kgoLogger 将 franz-go 日志转到 clog
type kgoLogger struct {
	logger clog.Logger
}

func (l *kgoLogger) Level() kgo.LogLevel {
	return kgo.LogLevelInfo
}

func (l *kgoLogger) Log(level kgo.LogLevel, msg string, keyvals ...any) {
	fields := make([]clog.Field, 0, len(keyvals)/2)
	for i := 0; i+1 < len(keyvals); i += 2 {
		if key, ok := keyvals[i].(string); ok {
			fields = append(fields, clog.Any(key, keyvals[i+1]))
		}
	}

	switch level {
	case kgo.LogLevelError:
		l.logger.Error(msg, fields...)
	case kgo.LogLevelWarn:
		l.logger.Warn(msg, fields...)
	case kgo.LogLevelInfo:
		l.logger.Info(msg, fields...)
	case kgo.LogLevelDebug:
		l.logger.Debug(msg, fields...)
	}
}
