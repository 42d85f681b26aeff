// Package registry 是 pushgate 的动态指标注册表：在运行时接收事先未知的指标定义，
// 把更新合并进按标签区分的时间序列，并为渲染提供一致的快照。
//
// 结构分三层：
//
//	Store  ──RWMutex──▶ map[fullName]*Family
//	Family ──RWMutex──▶ map[canonicalKey]*Series
//	Series ──Mutex────▶ 当前值（counter/gauge）或直方图桶、sum、count
//
// 写入路径只在创建新 family 或新 series 时短暂持有写锁，更新本身只锁单个 series，
// 因此抓取（Snapshot）不会把写入串行化。
//
// 命名规则固定为 join_nonempty("_", namespace, prefix, name)，只在
// GetOrCreateFamily 中应用一次；调用方始终传入原始名称。
//
// 基数（每个 family 的 series 数）不设上限，这是已知的运维风险：达到
// CardinalityWarnThreshold 时会记录一次告警日志，但不会拒绝写入。
// family 与 series 在进程生命周期内一直存在，没有过期回收。
package registry
