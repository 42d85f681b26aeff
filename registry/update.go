package registry

import (
	"strings"
	"time"

	"github.com/ceyewan/pushgate/xerrors"
)

// Mode 数值的解释方式
type Mode uint8

const (
	// ModeAbsolute counter/gauge 设为给定值（默认）
	ModeAbsolute Mode = iota
	// ModeDelta counter/gauge 在当前值上累加
	ModeDelta
)

func (m Mode) String() string {
	if m == ModeDelta {
		return "delta"
	}
	return "absolute"
}

// ParseMode 解析线上的 mode 字段，空串为 ModeAbsolute
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "absolute", "set":
		return ModeAbsolute, nil
	case "delta", "add":
		return ModeDelta, nil
	default:
		return ModeAbsolute, xerrors.Wrapf(xerrors.ErrInvalidInput, "unknown value mode %q", s)
	}
}

// Update 一条已解码的指标更新
type Update struct {
	Name    string
	Kind    Kind
	Help    string
	Labels  map[string]string
	Buckets []float64 // 仅在创建 histogram family 时生效

	// Value histogram 为一次观测值，counter/gauge 按 Mode 解释
	Value float64
	Mode  Mode

	// Timestamp 上报方给出的时间，接受但不参与排序或渲染
	Timestamp *time.Time
}

func (u Update) descriptor() Descriptor {
	names := make([]string, 0, len(u.Labels))
	for k := range u.Labels {
		names = append(names, k)
	}
	return Descriptor{Name: u.Name, Kind: u.Kind, Help: u.Help, LabelNames: names, Buckets: u.Buckets}
}

// ItemResult 单条更新的结果，Err 为 nil 表示成功
type ItemResult struct {
	Index  int
	Name   string
	Reason Reason
	Err    error
}

// OK 是否成功
func (r ItemResult) OK() bool { return r.Err == nil }

// BatchResult 一个批次的结果，Results 与输入一一对应
type BatchResult struct {
	Source    string
	Results   []ItemResult
	Processed int
	Failed    int
}

// AllFailed 批次非空且全部失败
func (r *BatchResult) AllFailed() bool {
	return len(r.Results) > 0 && r.Processed == 0
}

// Status success / partial_success / failed
func (r *BatchResult) Status() string {
	switch {
	case r.Failed == 0:
		return "success"
	case r.Processed == 0:
		return "failed"
	default:
		return "partial_success"
	}
}
