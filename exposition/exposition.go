// Package exposition 把 registry.Store 的快照渲染为 Prometheus 抓取格式。
//
// 渲染只读，不修改 Store。family 按名称排序，series 按标签取值排序，
// 状态不变时两次渲染的输出逐字节相同。
package exposition

import (
	"bytes"
	"io"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"

	"github.com/ceyewan/pushgate/clog"
	"github.com/ceyewan/pushgate/registry"
	"github.com/ceyewan/pushgate/xerrors"
)

// TextFormat 默认的文本格式 text/plain; version=0.0.4
var TextFormat = expfmt.NewFormat(expfmt.TypeTextPlain)

// Renderer 渲染器
type Renderer struct {
	store  *registry.Store
	logger clog.Logger
}

// Option 渲染器选项
type Option func(*Renderer)

// WithLogger 设置日志记录器
func WithLogger(logger clog.Logger) Option {
	return func(r *Renderer) {
		if logger != nil {
			r.logger = logger.WithNamespace("exposition")
		}
	}
}

// NewRenderer 创建渲染器
func NewRenderer(store *registry.Store, opts ...Option) (*Renderer, error) {
	if store == nil {
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, "store is nil")
	}
	r := &Renderer{store: store, logger: clog.Discard()}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Gather 返回当前快照对应的 MetricFamily 列表，没有 series 的 family 会被跳过
func (r *Renderer) Gather() []*dto.MetricFamily {
	snap := r.store.Snapshot()
	out := make([]*dto.MetricFamily, 0, len(snap))
	for _, f := range snap {
		if len(f.Series) == 0 {
			continue
		}
		out = append(out, toFamily(f))
	}
	return out
}

// Render 以 format 编码当前快照写入 w
func (r *Renderer) Render(w io.Writer, format expfmt.Format) error {
	enc := expfmt.NewEncoder(w, format)
	for _, mf := range r.Gather() {
		if err := enc.Encode(mf); err != nil {
			r.logger.Error("encode metric family failed",
				clog.String("family", mf.GetName()),
				clog.String("format", string(format)),
				clog.Error(err))
			return xerrors.Wrapf(err, "encode %s", mf.GetName())
		}
	}
	if closer, ok := enc.(expfmt.Closer); ok {
		if err := closer.Close(); err != nil {
			return xerrors.Wrap(err, "close encoder")
		}
	}
	return nil
}

// RenderText 以文本格式渲染整个 Store
func (r *Renderer) RenderText() ([]byte, error) {
	var buf bytes.Buffer
	if err := r.Render(&buf, TextFormat); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func toFamily(f registry.FamilySnapshot) *dto.MetricFamily {
	mf := &dto.MetricFamily{
		Name:   proto.String(f.Name),
		Help:   proto.String(f.Help),
		Type:   metricType(f.Kind),
		Metric: make([]*dto.Metric, 0, len(f.Series)),
	}
	for _, s := range f.Series {
		m := &dto.Metric{Label: labelPairs(f.LabelNames, s.LabelValues)}
		switch f.Kind {
		case registry.KindCounter:
			m.Counter = &dto.Counter{Value: proto.Float64(s.Value)}
		case registry.KindGauge:
			m.Gauge = &dto.Gauge{Value: proto.Float64(s.Value)}
		case registry.KindHistogram:
			m.Histogram = histogram(f.Buckets, s)
		}
		mf.Metric = append(mf.Metric, m)
	}
	return mf
}

func metricType(k registry.Kind) *dto.MetricType {
	switch k {
	case registry.KindCounter:
		return dto.MetricType_COUNTER.Enum()
	case registry.KindHistogram:
		return dto.MetricType_HISTOGRAM.Enum()
	default:
		return dto.MetricType_GAUGE.Enum()
	}
}

// labelPairs 标签名已排序，输出顺序与之一致
func labelPairs(names, values []string) []*dto.LabelPair {
	if len(names) == 0 {
		return nil
	}
	pairs := make([]*dto.LabelPair, len(names))
	for i, n := range names {
		pairs[i] = &dto.LabelPair{Name: proto.String(n), Value: proto.String(values[i])}
	}
	return pairs
}

// histogram 只写有限边界，+Inf 桶由编码器按 SampleCount 补齐
func histogram(bounds []float64, s registry.SeriesSnapshot) *dto.Histogram {
	h := &dto.Histogram{
		SampleCount: proto.Uint64(s.Count),
		SampleSum:   proto.Float64(s.Sum),
		Bucket:      make([]*dto.Bucket, len(bounds)),
	}
	for i, ub := range bounds {
		h.Bucket[i] = &dto.Bucket{
			UpperBound:      proto.Float64(ub),
			CumulativeCount: proto.Uint64(s.BucketCounts[i]),
		}
	}
	return h
}
