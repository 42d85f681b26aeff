// Package server 提供 pushgate 的 HTTP 接口：
//
//	POST /api/metrics        上报指标批次（JSON 或 msgpack）
//	GET  /metrics            Prometheus 抓取（路径可配置）
//	GET  /api/health         存活检查
//	GET  /api/status         运行状态
//	GET  /internal/metrics   pushgate 自身指标（路径可配置）
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ceyewan/pushgate/clog"
	"github.com/ceyewan/pushgate/exposition"
	"github.com/ceyewan/pushgate/ingest"
	"github.com/ceyewan/pushgate/metrics"
	"github.com/ceyewan/pushgate/trace"
	"github.com/ceyewan/pushgate/xerrors"
)

// Server HTTP 服务
type Server struct {
	cfg      *Config
	opts     *options
	svc      *ingest.Service
	renderer *exposition.Renderer
	router   *gin.Engine
	logger   clog.Logger
	started  time.Time
}

// New 创建服务并注册路由，不会开始监听
func New(cfg *Config, svc *ingest.Service, renderer *exposition.Renderer, opts ...Option) (*Server, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if svc == nil || renderer == nil {
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, "server requires ingest service and renderer")
	}
	o := newOptions(opts)

	httpMetrics, err := metrics.NewHTTPServerMetrics(o.meter, o.serviceName)
	if err != nil {
		return nil, xerrors.Wrap(err, "create http metrics")
	}

	gin.SetMode(cfg.Mode)
	router := gin.New()
	router.Use(gin.Recovery())
	if o.tracing {
		router.Use(trace.GinMiddleware(o.serviceName))
	}
	router.Use(metrics.GinHTTPMiddleware(httpMetrics))

	s := &Server{
		cfg:      cfg,
		opts:     o,
		svc:      svc,
		renderer: renderer,
		router:   router,
		logger:   o.logger,
		started:  time.Now(),
	}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	api := s.router.Group("/api")
	api.POST("/metrics", s.handleIngest)
	api.GET("/health", s.handleHealth)
	api.GET("/status", s.handleStatus)

	s.router.GET(s.opts.metricsPath, s.handleScrape)
	s.router.GET(s.opts.telemetryPath, gin.WrapH(s.opts.meter.Handler()))
}

// Handler 返回路由，便于测试或嵌入其它服务
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run 监听并服务，ctx 结束后在 ShutdownTimeout 内优雅关闭
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return xerrors.Wrapf(err, "listen %s", s.cfg.Addr())
	}
	return s.Serve(ctx, ln)
}

// Serve 在给定 listener 上服务
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", clog.String("addr", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return xerrors.Wrap(err, "http server")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ShutdownTimeout)
	defer cancel()
	s.logger.Info("http server shutting down", clog.Duration("timeout", s.cfg.ShutdownTimeout))
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return xerrors.Wrap(err, "http server shutdown")
	}
	return nil
}
