package registry

import (
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ceyewan/pushgate/clog"
	"github.com/ceyewan/pushgate/xerrors"
)

// Store 进程内唯一的指标存储，由调用方显式创建并传递，不使用全局单例
type Store struct {
	namespace      string
	prefix         string
	defaultBuckets []float64
	warnAt         int
	logger         clog.Logger

	mu       sync.RWMutex
	families map[string]*Family
}

// Stats 存储规模
type Stats struct {
	Families int
	Series   int
}

// NewStore 创建 Store，cfg 为 nil 时使用 DefaultConfig
func NewStore(cfg *Config, opts ...Option) (*Store, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := validateNamePart("namespace", cfg.Namespace); err != nil {
		return nil, err
	}
	if err := validateNamePart("prefix", cfg.Prefix); err != nil {
		return nil, err
	}

	buckets := cfg.DefaultBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}
	if err := validateBuckets(buckets); err != nil {
		return nil, xerrors.Wrap(err, "default_buckets")
	}
	if cfg.CardinalityWarnThreshold < 0 {
		return nil, xerrors.Wrapf(xerrors.ErrInvalidInput, "cardinality_warn_threshold must not be negative, got %d", cfg.CardinalityWarnThreshold)
	}

	o := newOptions(opts)
	return &Store{
		namespace:      cfg.Namespace,
		prefix:         cfg.Prefix,
		defaultBuckets: append([]float64(nil), buckets...),
		warnAt:         cfg.CardinalityWarnThreshold,
		logger:         o.logger,
		families:       make(map[string]*Family),
	}, nil
}

// FullName 返回 name 加上本 Store 的 namespace/prefix 后的名称
func (s *Store) FullName(name string) string {
	return FullName(s.namespace, s.prefix, name)
}

// GetOrCreateFamily 校验 d 并返回对应的 family，不存在时创建
//
// 已存在的 family 类型不同返回 ErrKindConflict，标签集不同返回
// ErrLabelSchemaConflict，冲突时不修改任何状态。help 与桶边界以首次创建为准。
func (s *Store) GetOrCreateFamily(d Descriptor) (*Family, error) {
	if err := Validate(d); err != nil {
		return nil, err
	}
	full := s.FullName(d.Name)

	s.mu.RLock()
	f, ok := s.families[full]
	s.mu.RUnlock()
	if ok {
		return f, checkCompatible(f, d)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if f, ok := s.families[full]; ok {
		return f, checkCompatible(f, d)
	}

	f = &Family{
		name:       full,
		kind:       d.Kind,
		help:       d.Help,
		labelNames: sortedLabelNames(d.LabelNames),
		warnAt:     s.warnAt,
		logger:     s.logger,
		series:     make(map[string]*Series),
	}
	if d.Kind == KindHistogram {
		f.bounds = s.defaultBuckets
		if len(d.Buckets) > 0 {
			f.bounds = append([]float64(nil), d.Buckets...)
		}
	}
	s.families[full] = f

	s.logger.Debug("metric family created",
		clog.String("family", full),
		clog.String("kind", d.Kind.String()),
		clog.Any("labels", f.labelNames))
	return f, nil
}

func checkCompatible(f *Family, d Descriptor) error {
	if f.kind != d.Kind {
		return xerrors.Wrapf(ErrKindConflict, "%s is %s, got %s", f.name, f.kind, d.Kind)
	}
	if !sameLabelNames(f.labelNames, d.LabelNames) {
		return xerrors.Wrapf(ErrLabelSchemaConflict, "%s has labels %v, got %v", f.name, f.labelNames, d.LabelNames)
	}
	return nil
}

// Family 按完整名称查找 family
func (s *Store) Family(fullName string) (*Family, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.families[fullName]
	return f, ok
}

// Snapshot 返回按名称排序的全部 family 快照
//
// 不同 family 之间不保证是同一时刻的状态，但每个 series 的值来自一次原子读取。
func (s *Store) Snapshot() []FamilySnapshot {
	families := s.sortedFamilies()
	out := make([]FamilySnapshot, 0, len(families))
	for _, f := range families {
		out = append(out, f.snapshot())
	}
	return out
}

// Stats 返回 family 与 series 数量
func (s *Store) Stats() Stats {
	families := s.sortedFamilies()
	st := Stats{Families: len(families)}
	for _, f := range families {
		st.Series += f.Len()
	}
	return st
}

func (s *Store) sortedFamilies() []*Family {
	s.mu.RLock()
	families := make([]*Family, 0, len(s.families))
	for _, f := range s.families {
		families = append(families, f)
	}
	s.mu.RUnlock()

	sort.Slice(families, func(i, j int) bool { return families[i].name < families[j].name })
	return families
}
