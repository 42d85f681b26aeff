package config

import "github.com/ceyewan/pushgate/xerrors"

// ErrValidationFailed 验证失败
var ErrValidationFailed = xerrors.New("configuration validation failed")

// IsValidationError 检查错误是否为配置验证失败
func IsValidationError(err error) bool {
	return xerrors.Is(err, ErrValidationFailed)
}

// WrapValidationError 包装验证错误
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return xerrors.Wrapf(ErrValidationFailed, "%v", err)
}

// WrapLoadError 包装加载错误
func WrapLoadError(err error, message string) error {
	if err == nil {
		return nil
	}
	return xerrors.Wrapf(err, "failed to load config: %s", message)
}
