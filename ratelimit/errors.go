package ratelimit

import "github.com/ceyewan/pushgate/xerrors"

var (
	// ErrKeyEmpty 限流键为空
	ErrKeyEmpty = xerrors.Wrap(xerrors.ErrInvalidInput, "ratelimit: key is empty")

	// ErrInvalidLimit 限流规则无效
	ErrInvalidLimit = xerrors.Wrap(xerrors.ErrInvalidInput, "ratelimit: invalid limit")
)
