package metrics

// Label 指标标签
//
// 自监控指标的标签值应当是有限集合（outcome、reason、route 模板等），
// 不要把 source 或原始 URL 放进标签。
type Label struct {
	Key   string
	Value string
}

// L 创建一个 Label
func L(key, value string) Label {
	return Label{Key: key, Value: value}
}
