package registry

import (
	"sort"
	"sync"
	"unicode/utf8"

	"github.com/ceyewan/pushgate/clog"
	"github.com/ceyewan/pushgate/xerrors"
)

// Family 同名、同类型、同标签集的一组时间序列
//
// name、kind、help、labelNames、bounds 在创建后不再修改，可以无锁读取。
type Family struct {
	name       string
	kind       Kind
	help       string
	labelNames []string  // 已排序
	bounds     []float64 // 仅 histogram

	warnAt int
	logger clog.Logger

	mu     sync.RWMutex
	series map[string]*Series
	warned bool
}

// FamilySnapshot 渲染用的 family 快照，series 按规范键排序
type FamilySnapshot struct {
	Name       string
	Kind       Kind
	Help       string
	LabelNames []string
	Buckets    []float64
	Series     []SeriesSnapshot
}

func (f *Family) Name() string { return f.name }
func (f *Family) Kind() Kind   { return f.kind }
func (f *Family) Help() string { return f.help }

// LabelNames 返回排序后的标签名副本
func (f *Family) LabelNames() []string {
	return append([]string(nil), f.labelNames...)
}

// Buckets 返回直方图桶边界副本（不含 +Inf）
func (f *Family) Buckets() []float64 {
	return append([]float64(nil), f.bounds...)
}

// Len 当前 series 数量
func (f *Family) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.series)
}

// GetOrCreateSeries 返回 labels 对应的 series，首次访问时创建零值 series。
// labels 的键集合必须与 family 的标签集完全一致，取值必须是合法 UTF-8。
func (f *Family) GetOrCreateSeries(labels map[string]string) (*Series, error) {
	if len(labels) != len(f.labelNames) {
		return nil, xerrors.Wrapf(ErrLabelSchemaConflict, "%s expects labels %v, got %d labels", f.name, f.labelNames, len(labels))
	}
	values := make([]string, len(f.labelNames))
	for i, ln := range f.labelNames {
		v, ok := labels[ln]
		if !ok {
			return nil, xerrors.Wrapf(ErrLabelSchemaConflict, "%s expects labels %v, missing %q", f.name, f.labelNames, ln)
		}
		if !utf8.ValidString(v) {
			return nil, xerrors.Wrapf(ErrInvalidLabel, "value of %q is not valid UTF-8", ln)
		}
		values[i] = v
	}
	key := canonicalKey(values)

	f.mu.RLock()
	s, ok := f.series[key]
	f.mu.RUnlock()
	if ok {
		return s, nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.series[key]; ok {
		return s, nil
	}
	s = newSeries(f.kind, values, f.bounds)
	f.series[key] = s

	if f.warnAt > 0 && !f.warned && len(f.series) >= f.warnAt {
		f.warned = true
		f.logger.Warn("metric family cardinality reached warning threshold",
			clog.String("family", f.name),
			clog.Int("series", len(f.series)),
			clog.Int("threshold", f.warnAt))
	}
	return s, nil
}

// snapshot 先在读锁内复制 series 指针，再逐个加锁读取，不在持有 family 锁时读 series
func (f *Family) snapshot() FamilySnapshot {
	f.mu.RLock()
	keys := make([]string, 0, len(f.series))
	refs := make(map[string]*Series, len(f.series))
	for k, s := range f.series {
		keys = append(keys, k)
		refs[k] = s
	}
	f.mu.RUnlock()

	sort.Strings(keys)
	snap := FamilySnapshot{
		Name:       f.name,
		Kind:       f.kind,
		Help:       f.help,
		LabelNames: f.labelNames,
		Buckets:    f.bounds,
		Series:     make([]SeriesSnapshot, 0, len(keys)),
	}
	for _, k := range keys {
		snap.Series = append(snap.Series, refs[k].Snapshot())
	}
	return snap
}
