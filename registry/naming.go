package registry

import (
	"strings"

	"github.com/ceyewan/pushgate/xerrors"
)

// FullName 按 join_nonempty("_", namespace, prefix, name) 生成完整名称：
//
//	("metrics_server", "app", "requests") → "metrics_server_app_requests"
//	("", "app", "requests")               → "app_requests"
//	("", "", "requests")                  → "requests"
func FullName(namespace, prefix, name string) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{namespace, prefix, name} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "_")
}

// validateNamePart 校验 namespace/prefix，空串合法
func validateNamePart(kind, part string) error {
	if part == "" || isValidMetricName(part) {
		return nil
	}
	return xerrors.Wrapf(ErrInvalidName, "%s %q", kind, part)
}
