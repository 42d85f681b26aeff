// Package connector 管理 pushgate 到消息系统（NATS、Kafka）的连接。
//
// 连接器只负责连接的生命周期与健康检查，订阅与消费逻辑由 ingest 包实现：
//
//	conn, err := connector.NewNATS(&cfg.NATS, connector.WithLogger(logger))
//	if err != nil {
//		return err
//	}
//	defer conn.Close()
//
//	if err := conn.Connect(ctx); err != nil {
//		return err
//	}
//	sub, err := conn.GetClient().QueueSubscribe(subject, queue, handler)
//
// NewXXX 只校验配置，Connect 才真正建立连接，且可安全重复调用。
// 资源遵循"谁创建，谁释放"：消费者借用连接器，不调用 Close。
package connector

import (
	"context"

	"github.com/nats-io/nats.go"
	"github.com/twmb/franz-go/pkg/kgo"
)

// Connector 所有连接器的通用行为，方法均并发安全
type Connector interface {
	// Connect 建立连接，幂等
	Connect(ctx context.Context) error

	// Close 关闭连接并释放资源，幂等
	Close() error

	// HealthCheck 主动检查连接状态并刷新 IsHealthy 缓存
	HealthCheck(ctx context.Context) error

	// IsHealthy 返回最近一次检查的结果，不阻塞
	IsHealthy() bool

	// Name 连接器实例名，用于日志与指标
	Name() string
}

// TypedConnector 提供类型安全的客户端访问
type TypedConnector[T any] interface {
	Connector

	// GetClient 返回底层客户端，Connect 之前或 Close 之后为零值
	GetClient() T
}

// NATSConnector NATS 连接器，内置自动重连
type NATSConnector interface {
	TypedConnector[*nats.Conn]
}

// KafkaConnector 基于 franz-go 的 Kafka 连接器
type KafkaConnector interface {
	TypedConnector[*kgo.Client]
}
