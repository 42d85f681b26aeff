// Package clog 为 pushgate 提供基于 slog 的结构化日志组件。
// 支持 Context 字段提取、OpenTelemetry TraceID 提取和命名空间管理。
//
// 基本使用：
//
//	logger, _ := clog.New(&clog.Config{
//	    Level:  "info",
//	    Format: "json",
//	    Output: "stdout",
//	})
//	logger.Info("batch applied", clog.String("source", "billing"))
//
// 组件通过 WithNamespace 派生子 Logger：
//
//	engineLogger := logger.WithNamespace("registry")
package clog

import "context"

// Logger 日志接口，提供结构化日志记录功能
//
// 每个级别都有带 Context 和不带 Context 的版本。
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Fatal(msg string, fields ...Field)

	// 带 Context 的版本会提取配置的 Context 字段与 TraceID
	DebugContext(ctx context.Context, msg string, fields ...Field)
	InfoContext(ctx context.Context, msg string, fields ...Field)
	WarnContext(ctx context.Context, msg string, fields ...Field)
	ErrorContext(ctx context.Context, msg string, fields ...Field)
	FatalContext(ctx context.Context, msg string, fields ...Field)

	// With 创建一个带有预设字段的子 Logger
	With(fields ...Field) Logger

	// WithNamespace 创建一个扩展命名空间的子 Logger
	//
	//   logger := clog.WithNamespace("pushgate")
	//   logger.WithNamespace("ingest") // 命名空间为 "pushgate.ingest"
	WithNamespace(parts ...string) Logger

	// SetLevel 动态调整日志级别，对同一 New 派生出的所有 Logger 生效
	SetLevel(level Level) error
}
