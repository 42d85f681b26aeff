package registry

import "github.com/ceyewan/pushgate/xerrors"

// Reason 单条更新失败的原因，会原样返回给上报方
type Reason string

const (
	ReasonNone                Reason = ""
	ReasonInvalidName         Reason = "InvalidName"
	ReasonInvalidLabel        Reason = "InvalidLabel"
	ReasonInvalidKind         Reason = "InvalidKind"
	ReasonInvalidBuckets      Reason = "InvalidBuckets"
	ReasonKindConflict        Reason = "KindConflict"
	ReasonLabelSchemaConflict Reason = "LabelSchemaConflict"
	ReasonCounterDecrease     Reason = "CounterDecrease"
	// ReasonInternal 未携带错误码的意外错误
	ReasonInternal Reason = "Internal"
)

// 所有错误都可恢复，只影响单条更新。每个哨兵都带有 Reason 错误码，
// 用 xerrors.Wrapf 追加上下文后依然可以通过 ReasonOf 和 errors.Is 识别。
var (
	ErrInvalidName         = coded(xerrors.ErrInvalidInput, "invalid metric name", ReasonInvalidName)
	ErrInvalidLabel        = coded(xerrors.ErrInvalidInput, "invalid label name", ReasonInvalidLabel)
	ErrInvalidKind         = coded(xerrors.ErrInvalidInput, "invalid metric kind", ReasonInvalidKind)
	ErrInvalidBuckets      = coded(xerrors.ErrInvalidInput, "invalid histogram buckets", ReasonInvalidBuckets)
	ErrKindConflict        = coded(xerrors.ErrConflict, "metric kind conflict", ReasonKindConflict)
	ErrLabelSchemaConflict = coded(xerrors.ErrConflict, "label schema conflict", ReasonLabelSchemaConflict)
	ErrCounterDecrease     = coded(xerrors.ErrConflict, "counter decrease", ReasonCounterDecrease)
)

func coded(category error, msg string, reason Reason) error {
	return xerrors.WithCode(xerrors.Wrap(category, msg), string(reason))
}

// ReasonOf 返回 err 对应的失败原因，nil 返回 ReasonNone
func ReasonOf(err error) Reason {
	if err == nil {
		return ReasonNone
	}
	if code := xerrors.GetCode(err); code != "" {
		return Reason(code)
	}
	return ReasonInternal
}
