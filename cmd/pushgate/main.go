// pushgate 接收推送的指标批次，并以 Prometheus 格式供抓取。
//
// 配置来自 ./pushgate.yaml 或 ./config/pushgate.yaml（可选）、.env 与
// PUSHGATE_* 环境变量，如 PUSHGATE_SERVER_PORT=9091。
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ceyewan/pushgate/clog"
	"github.com/ceyewan/pushgate/config"
	"github.com/ceyewan/pushgate/internal/app"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "pushgate: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, loader, err := app.LoadConfig(ctx)
	if err != nil {
		return err
	}

	logger, err := clog.New(&cfg.Log, clog.WithNamespace("pushgate"), clog.WithTraceContext())
	if err != nil {
		return err
	}

	go watchLogLevel(ctx, loader, logger)

	a, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize", clog.Error(err))
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.Close(closeCtx); err != nil {
			logger.Warn("shutdown finished with errors", clog.Error(err))
		}
	}()

	if err := a.Run(ctx); err != nil {
		logger.Error("pushgate stopped", clog.Error(err))
		return err
	}
	logger.Info("pushgate stopped")
	return nil
}

// watchLogLevel 配置文件中 log.level 变化时热更新日志级别
func watchLogLevel(ctx context.Context, loader config.Loader, logger clog.Logger) {
	ch, err := loader.Watch(ctx, "log.level")
	if err != nil {
		logger.Warn("log level watch unavailable", clog.Error(err))
		return
	}
	for ev := range ch {
		level, err := clog.ParseLevel(fmt.Sprint(ev.Value))
		if err != nil {
			logger.Warn("ignoring invalid log level", clog.Any("value", ev.Value), clog.Error(err))
			continue
		}
		if err := logger.SetLevel(level); err != nil {
			logger.Warn("failed to set log level", clog.Error(err))
			continue
		}
		logger.Info("log level changed", clog.String("level", level.String()))
	}
}
