// Package app 组装 pushgate 进程：日志、自监控、链路追踪、注册表、接入层、
// HTTP 服务与可选的 NATS/Kafka 消费者，并负责按相反顺序释放。
package app

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/ceyewan/pushgate/clog"
	"github.com/ceyewan/pushgate/connector"
	"github.com/ceyewan/pushgate/exposition"
	"github.com/ceyewan/pushgate/ingest"
	"github.com/ceyewan/pushgate/metrics"
	"github.com/ceyewan/pushgate/ratelimit"
	"github.com/ceyewan/pushgate/registry"
	"github.com/ceyewan/pushgate/server"
	"github.com/ceyewan/pushgate/trace"
	"github.com/ceyewan/pushgate/xerrors"
)

// Version 构建时通过 -ldflags "-X github.com/ceyewan/pushgate/internal/app.Version=..." 注入
var Version = "dev"

// App 一个完整的 pushgate 实例
type App struct {
	cfg    *Config
	logger clog.Logger

	meter         metrics.Meter
	traceShutdown func(context.Context) error
	limiter       ratelimit.Limiter

	store    *registry.Store
	svc      *ingest.Service
	server   *server.Server
	natsConn connector.NATSConnector
	nats     *ingest.NATSConsumer
	kafkaCon connector.KafkaConnector
	kafka    *ingest.KafkaConsumer

	closers []func(context.Context) error
}

// New 按配置创建全部组件，不建立外部连接。失败时已创建的组件会被释放。
func New(cfg *Config, logger clog.Logger) (_ *App, err error) {
	if cfg == nil {
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, "config is nil")
	}
	if logger == nil {
		logger = clog.Discard()
	}
	a := &App{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			_ = a.Close(context.Background())
		}
	}()

	if cfg.Trace.ServiceName == "" {
		cfg.Trace.ServiceName = cfg.Telemetry.ServiceName
	}
	a.traceShutdown, err = trace.Init(&cfg.Trace)
	if err != nil {
		return nil, xerrors.Wrap(err, "init trace")
	}
	a.closers = append(a.closers, a.traceShutdown)

	a.meter, err = metrics.New(&cfg.Telemetry, metrics.WithLogger(logger))
	if err != nil {
		return nil, xerrors.Wrap(err, "init metrics")
	}
	a.closers = append(a.closers, a.meter.Shutdown)

	a.store, err = registry.NewStore(cfg.StoreConfig(), registry.WithLogger(logger), registry.WithMeter(a.meter))
	if err != nil {
		return nil, xerrors.Wrap(err, "init registry")
	}
	engine, err := registry.NewEngine(a.store, registry.WithLogger(logger), registry.WithMeter(a.meter))
	if err != nil {
		return nil, xerrors.Wrap(err, "init engine")
	}
	renderer, err := exposition.NewRenderer(a.store, exposition.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	if cfg.Ingest.RateLimit.Enabled() {
		a.limiter, err = ratelimit.NewStandalone(&cfg.Ingest.RateLimit.StandaloneConfig,
			ratelimit.WithLogger(logger), ratelimit.WithMeter(a.meter))
		if err != nil {
			return nil, xerrors.Wrap(err, "init rate limiter")
		}
		a.closers = append(a.closers, func(context.Context) error { return a.limiter.Close() })
	}

	ingestOpts := []ingest.Option{
		ingest.WithLogger(logger),
		ingest.WithMeter(a.meter),
		ingest.WithLimiter(a.limiter),
		ingest.WithMaxPayloadBytes(cfg.Server.MaxBodyBytes),
	}
	a.svc, err = ingest.NewService(engine, &cfg.Ingest, ingestOpts...)
	if err != nil {
		return nil, xerrors.Wrap(err, "init ingest")
	}

	a.server, err = server.New(&cfg.Server, a.svc, renderer,
		server.WithLogger(logger),
		server.WithMeter(a.meter),
		server.WithMetricsPath(cfg.Metrics.Path),
		server.WithTelemetryPath(cfg.Telemetry.Path),
		server.WithVersion(cfg.Telemetry.ServiceName, Version),
		server.WithTracing(),
	)
	if err != nil {
		return nil, xerrors.Wrap(err, "init server")
	}

	if err := a.initNATS(ingestOpts); err != nil {
		return nil, err
	}
	if err := a.initKafka(ingestOpts); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *App) initNATS(opts []ingest.Option) error {
	cfg := a.cfg.Ingest.NATS
	if !cfg.Enabled {
		return nil
	}
	conn, err := connector.NewNATS(&cfg.NATSConfig, connector.WithLogger(a.logger), connector.WithMeter(a.meter))
	if err != nil {
		return xerrors.Wrap(err, "init nats connector")
	}
	a.natsConn = conn
	a.closers = append(a.closers, func(context.Context) error { return conn.Close() })

	a.nats, err = ingest.NewNATSConsumer(conn, a.svc, cfg, opts...)
	return err
}

func (a *App) initKafka(opts []ingest.Option) error {
	cfg := a.cfg.Ingest.Kafka
	if !cfg.Enabled {
		return nil
	}
	conn, err := connector.NewKafka(&cfg.KafkaConfig,
		connector.WithLogger(a.logger),
		connector.WithMeter(a.meter),
		connector.WithKafkaClientOpts(ingest.KafkaClientOpts(cfg)...))
	if err != nil {
		return xerrors.Wrap(err, "init kafka connector")
	}
	a.kafkaCon = conn
	a.closers = append(a.closers, func(context.Context) error { return conn.Close() })

	a.kafka, err = ingest.NewKafkaConsumer(conn, a.svc, cfg, opts...)
	return err
}

// Store 返回注册表
func (a *App) Store() *registry.Store {
	return a.store
}

// Run 建立外部连接并开始服务，直到 ctx 结束或任一组件失败
func (a *App) Run(ctx context.Context) error {
	if a.natsConn != nil {
		if err := a.natsConn.Connect(ctx); err != nil {
			return err
		}
		if err := a.nats.Start(ctx); err != nil {
			return err
		}
		defer func() { _ = a.nats.Stop() }()
	}
	if a.kafkaCon != nil {
		if err := a.kafkaCon.Connect(ctx); err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.server.Run(gctx) })
	if a.kafka != nil {
		g.Go(func() error { return a.kafka.Run(gctx) })
	}

	a.logger.Info("pushgate started",
		clog.String("version", Version),
		clog.String("addr", a.cfg.Server.Addr()),
		clog.Bool("nats", a.nats != nil),
		clog.Bool("kafka", a.kafka != nil))
	return g.Wait()
}

// Close 按创建的相反顺序释放资源
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i](ctx))
	}
	a.closers = nil
	return xerrors.Combine(errs...)
}
