package registry

import (
	"strings"

	"github.com/ceyewan/pushgate/xerrors"
)

// Kind 指标类型，创建后不可更改
type Kind uint8

const (
	KindUnknown Kind = iota
	KindCounter
	KindGauge
	KindHistogram
)

func (k Kind) String() string {
	switch k {
	case KindCounter:
		return "counter"
	case KindGauge:
		return "gauge"
	case KindHistogram:
		return "histogram"
	default:
		return "unknown"
	}
}

// ParseKind 解析线上的 metric_type，大小写不敏感；summary 按 histogram 处理
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "counter":
		return KindCounter, nil
	case "gauge":
		return KindGauge, nil
	case "histogram", "summary":
		return KindHistogram, nil
	default:
		return KindUnknown, xerrors.Wrapf(xerrors.ErrInvalidInput, "unknown metric type %q", s)
	}
}

// Descriptor 一个指标族的定义
type Descriptor struct {
	Name       string // 原始名称，不含 namespace/prefix
	Kind       Kind
	Help       string
	LabelNames []string
	Buckets    []float64 // 仅 histogram 使用，为空时取 Store 的默认桶
}
