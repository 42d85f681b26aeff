// Package config 为 pushgate 提供统一的配置管理能力，基于 Viper 实现。
//
// 特性：
//   - 多源配置加载：YAML/JSON 文件（可选）、.env 文件、环境变量
//   - 配置优先级：环境变量 > .env > 环境特定配置 > 基础配置 > 默认值
//   - 热更新支持：监听配置文件变化，通过 Watch 通知应用
//
// 基本使用：
//
//	loader, err := config.New(
//		config.WithConfigName("pushgate"),
//		config.WithEnvPrefix("PUSHGATE"),
//		config.WithDefaults(map[string]any{"server.port": 8080}),
//	)
//	if err != nil {
//		return err
//	}
//	if err := loader.Load(ctx); err != nil {
//		return err
//	}
//
//	var srv server.Config
//	if err := loader.UnmarshalKey("server", &srv); err != nil {
//		return err
//	}
//
// 环境变量名由前缀与 key 组成，"." 替换为 "_"：server.port → PUSHGATE_SERVER_PORT。
// 只有在默认值或配置文件中出现过的 key 才会被 Unmarshal 从环境变量中读取。
package config

import (
	"context"
	"time"
)

// Loader 定义配置加载器的核心行为
type Loader interface {
	// Load 加载配置并初始化内部状态
	Load(ctx context.Context) error

	// Get 获取原始配置值
	Get(key string) any

	// Unmarshal 将整个配置反序列化到结构体
	Unmarshal(v any) error

	// UnmarshalKey 将指定 Key 的配置反序列化到结构体
	UnmarshalKey(key string, v any) error

	// Watch 监听配置变化，通过 context 取消监听
	Watch(ctx context.Context, key string) (<-chan Event, error)

	// Validate 验证当前配置的有效性
	Validate() error
}

// Event 配置变更事件
type Event struct {
	Key       string // 配置 key
	Value     any    // 新值
	OldValue  any    // 旧值
	Source    string // "file"
	Timestamp time.Time
}
