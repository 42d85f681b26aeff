package registry

import (
	"sort"
	"strings"

	"github.com/prometheus/common/model"
)

// sortedLabelNames 返回排序后的副本，family 的标签顺序由此固定
func sortedLabelNames(names []string) []string {
	out := append([]string(nil), names...)
	sort.Strings(out)
	return out
}

func sameLabelNames(sorted, other []string) bool {
	if len(sorted) != len(other) {
		return false
	}
	for i, n := range sortedLabelNames(other) {
		if n != sorted[i] {
			return false
		}
	}
	return true
}

// canonicalKey 把按标签名排序的取值拼成 series 的唯一键。
// model.SeparatorByte (0xff) 不会出现在合法 UTF-8 中，因此不会产生歧义。
func canonicalKey(values []string) string {
	switch len(values) {
	case 0:
		return ""
	case 1:
		return values[0]
	}
	var b strings.Builder
	for i, v := range values {
		if i > 0 {
			b.WriteByte(model.SeparatorByte)
		}
		b.WriteString(v)
	}
	return b.String()
}
