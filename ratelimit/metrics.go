package ratelimit

const (
	// MetricDecisions 限流决策次数 (Counter)，按 decision 区分 allowed/denied
	MetricDecisions = "pushgate_ratelimit_decisions_total"

	// MetricActiveBuckets 当前令牌桶数量 (Gauge)
	MetricActiveBuckets = "pushgate_ratelimit_buckets"

	// LabelDecision 决策标签
	LabelDecision = "decision"
)
