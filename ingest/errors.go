package ingest

import "github.com/ceyewan/pushgate/xerrors"

// 请求级错误：整批拒绝，不会进入 registry
var (
	ErrMalformedBatch = xerrors.Wrap(xerrors.ErrInvalidInput, "malformed batch")
	ErrEmptySource    = xerrors.Wrap(xerrors.ErrInvalidInput, "source is empty")
	ErrEmptyBatch     = xerrors.Wrap(xerrors.ErrInvalidInput, "batch has no metrics")
	ErrBatchTooLarge  = xerrors.Wrap(xerrors.ErrInvalidInput, "batch too large")
	ErrUnknownType    = xerrors.Wrap(xerrors.ErrInvalidInput, "unknown metric type")
	ErrRateLimited    = xerrors.Wrap(xerrors.ErrResourceExhausted, "source rate limited")
)
