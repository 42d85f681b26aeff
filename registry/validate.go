package registry

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/prometheus/common/model"

	"github.com/ceyewan/pushgate/xerrors"
)

// Validate 校验一个指标定义，纯函数
//
//   - name 需满足 [a-zA-Z_:][a-zA-Z0-9_:]*
//   - label 名需满足 [a-zA-Z_][a-zA-Z0-9_]*，不能是 le/quantile，不能以 __ 开头，不能重复
//   - help 不做校验，换行在渲染时转义
//   - histogram 的桶边界（若给出）必须有限且严格递增，+Inf 桶是隐含的
func Validate(d Descriptor) error {
	if !isValidMetricName(d.Name) {
		return xerrors.Wrapf(ErrInvalidName, "%q", d.Name)
	}
	if d.Kind == KindUnknown || d.Kind > KindHistogram {
		return xerrors.Wrapf(ErrInvalidKind, "metric %q", d.Name)
	}

	seen := make(map[string]struct{}, len(d.LabelNames))
	for _, ln := range d.LabelNames {
		if err := validateLabelName(ln); err != nil {
			return err
		}
		if _, dup := seen[ln]; dup {
			return xerrors.Wrapf(ErrInvalidLabel, "duplicate label %q", ln)
		}
		seen[ln] = struct{}{}
	}

	if d.Kind == KindHistogram && len(d.Buckets) > 0 {
		return validateBuckets(d.Buckets)
	}
	return nil
}

// validateLabelValues 标签取值必须是合法 UTF-8，在创建 family 之前检查
func validateLabelValues(labels map[string]string) error {
	for ln, v := range labels {
		if !utf8.ValidString(v) {
			return xerrors.Wrapf(ErrInvalidLabel, "value of %q is not valid UTF-8", ln)
		}
	}
	return nil
}

func validateLabelName(ln string) error {
	if !isValidLabelName(ln) {
		return xerrors.Wrapf(ErrInvalidLabel, "%q", ln)
	}
	if ln == model.BucketLabel || ln == model.QuantileLabel || strings.HasPrefix(ln, model.ReservedLabelPrefix) {
		return xerrors.Wrapf(ErrInvalidLabel, "%q is reserved", ln)
	}
	return nil
}

func validateBuckets(buckets []float64) error {
	for i, b := range buckets {
		if math.IsNaN(b) || math.IsInf(b, 0) {
			return xerrors.Wrapf(ErrInvalidBuckets, "bound %v is not finite", b)
		}
		if i > 0 && !(b > buckets[i-1]) {
			return xerrors.Wrapf(ErrInvalidBuckets, "bounds must be strictly increasing, %v after %v", b, buckets[i-1])
		}
	}
	return nil
}

func isValidMetricName(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(isAlpha(c) || c == '_' || c == ':' || (i > 0 && isDigit(c))) {
			return false
		}
	}
	return true
}

func isValidLabelName(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(isAlpha(c) || c == '_' || (i > 0 && isDigit(c))) {
			return false
		}
	}
	return true
}

func isAlpha(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }
func isDigit(c byte) bool { return c >= '0' && c <= '9' }
