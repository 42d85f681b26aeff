// Package xerrors 为 pushgate 提供标准化的错误处理工具。
// 这是一个基础包，不依赖于 pushgate 的其他组件。
package xerrors

import (
	"errors"
	"fmt"
)

// ============================================================================
// 哨兵错误 - 各组件通用的错误类别
// ============================================================================

var (
	// ErrInvalidInput 表示输入参数无效。
	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict 表示与当前状态冲突。
	ErrConflict = errors.New("conflict")

	// ErrResourceExhausted 表示配额或容量耗尽（如限流）。
	ErrResourceExhausted = errors.New("resource exhausted")

	// ErrUnavailable 表示服务或资源不可用。
	ErrUnavailable = errors.New("unavailable")
)

// ============================================================================
// 错误包装 - 保留带上下文的错误链
// ============================================================================

// Wrap 用上下文信息包装错误，保留错误链。
// 如果 err 为 nil，则返回 nil。
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf 用格式化的上下文信息包装错误。
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// ============================================================================
// 错误码
// ============================================================================

// WithCode 用错误码包装错误。
func WithCode(err error, code string) error {
	if err == nil {
		return nil
	}
	return &CodedError{Code: code, Cause: err}
}

// CodedError 带有机器可读错误码的错误。
type CodedError struct {
	Code  string
	Cause error
}

func (e *CodedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %v", e.Code, e.Cause)
	}
	return fmt.Sprintf("[%s]", e.Code)
}

func (e *CodedError) Unwrap() error {
	return e.Cause
}

// GetCode 从错误链中提取错误码，取最外层的 CodedError。
func GetCode(err error) string {
	var coded *CodedError
	if errors.As(err, &coded) {
		return coded.Code
	}
	return ""
}

// ============================================================================
// 多错误
// ============================================================================

// MultiError 合并多个错误。
type MultiError struct {
	Errors []error
}

func (m *MultiError) Error() string {
	if len(m.Errors) == 0 {
		return "no errors"
	}
	if len(m.Errors) == 1 {
		return m.Errors[0].Error()
	}
	return fmt.Sprintf("%v (and %d more errors)", m.Errors[0], len(m.Errors)-1)
}

func (m *MultiError) Unwrap() []error {
	return m.Errors
}

// Combine 将多个错误合并为一个，忽略 nil。
func Combine(errs ...error) error {
	var nonNil []error
	for _, err := range errs {
		if err != nil {
			nonNil = append(nonNil, err)
		}
	}
	switch len(nonNil) {
	case 0:
		return nil
	case 1:
		return nonNil[0]
	default:
		return &MultiError{Errors: nonNil}
	}
}

// 标准库函数再导出
var (
	New = errors.New
	Is  = errors.Is
	As  = errors.As
)
