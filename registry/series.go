package registry

import (
	"math"
	"sort"
	"sync"

	"github.com/ceyewan/pushgate/xerrors"
)

// Series 一个具体标签组合下的时间序列，所有读写都在 mu 下进行
type Series struct {
	labelValues []string // 与 family.labelNames 一一对应
	kind        Kind
	bounds      []float64 // 与 family 共享，只读

	mu     sync.Mutex
	value  float64  // counter / gauge
	counts []uint64 // histogram 累积桶计数，不含 +Inf
	sum    float64
	count  uint64
}

// SeriesSnapshot 一次原子读取得到的 series 状态
type SeriesSnapshot struct {
	LabelValues  []string
	Value        float64
	BucketCounts []uint64 // 累积计数，与 FamilySnapshot.Buckets 对应；+Inf 桶等于 Count
	Sum          float64
	Count        uint64
}

func newSeries(kind Kind, labelValues []string, bounds []float64) *Series {
	s := &Series{labelValues: labelValues, kind: kind, bounds: bounds}
	if kind == KindHistogram {
		s.counts = make([]uint64, len(bounds))
	}
	return s
}

// LabelValues 返回标签取值副本，顺序与 Family.LabelNames 一致
func (s *Series) LabelValues() []string {
	return append([]string(nil), s.labelValues...)
}

// SetCounter 以绝对值更新 counter，v 小于当前值（或为 NaN）时拒绝且不修改状态
func (s *Series) SetCounter(v float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !(v >= s.value) {
		return xerrors.Wrapf(ErrCounterDecrease, "current %v, got %v", s.value, v)
	}
	s.value = v
	return nil
}

// AddCounter 以增量更新 counter，delta 必须 >= 0
func (s *Series) AddCounter(delta float64) error {
	if !(delta >= 0) {
		return xerrors.Wrapf(ErrCounterDecrease, "negative delta %v", delta)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value += delta
	return nil
}

// SetGauge 设置 gauge，任意值都接受，并发时后持锁者生效
func (s *Series) SetGauge(v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value = v
}

// AddGauge 在 gauge 当前值上累加
func (s *Series) AddGauge(delta float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value += delta
}

// Observe 记录一次直方图观测：边界 >= v 的桶全部加一，count 加一，sum 加 v。
// NaN 不落入任何有限桶，但仍计入 count（即 +Inf 桶）和 sum。
func (s *Series) Observe(v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := len(s.bounds)
	if !math.IsNaN(v) {
		idx = sort.SearchFloat64s(s.bounds, v)
	}
	for i := idx; i < len(s.counts); i++ {
		s.counts[i]++
	}
	s.count++
	s.sum += v
}

// Snapshot 在一次加锁内复制全部状态
func (s *Series) Snapshot() SeriesSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := SeriesSnapshot{
		LabelValues: s.labelValues,
		Value:       s.value,
		Sum:         s.sum,
		Count:       s.count,
	}
	if s.kind == KindHistogram {
		snap.BucketCounts = append([]uint64(nil), s.counts...)
	}
	return snap
}
