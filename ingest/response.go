package ingest

import (
	"github.com/ceyewan/pushgate/registry"
	"github.com/ceyewan/pushgate/xerrors"
)

// Response 批次处理结果，HTTP 响应与 NATS 回复共用
type Response struct {
	BatchID   string         `json:"batch_id"`
	Source    string         `json:"source"`
	Status    string         `json:"status"`
	Processed int            `json:"processed"`
	Failed    int            `json:"failed"`
	Results   []ItemResponse `json:"results"`
}

// ItemResponse 单条更新的结果
type ItemResponse struct {
	Index  int    `json:"index"`
	Name   string `json:"name"`
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
	Error  string `json:"error,omitempty"`
}

// ErrorResponse 整批被拒绝时的响应
type ErrorResponse struct {
	Status string `json:"status"`
	Code   string `json:"code"`
	Error  string `json:"error"`
}

// NewResponse 把 Result 转换为线上格式
func NewResponse(r *Result) *Response {
	resp := &Response{
		BatchID:   r.BatchID,
		Source:    r.Source,
		Status:    r.Status(),
		Processed: r.Processed,
		Failed:    r.Failed,
		Results:   make([]ItemResponse, len(r.Results)),
	}
	for i, item := range r.Results {
		ir := ItemResponse{Index: item.Index, Name: item.Name, Status: "ok"}
		if !item.OK() {
			ir.Status = "rejected"
			ir.Reason = string(item.Reason)
			ir.Error = item.Err.Error()
		}
		resp.Results[i] = ir
	}
	return resp
}

// NewErrorResponse 构造请求级错误响应
func NewErrorResponse(err error) *ErrorResponse {
	return &ErrorResponse{Status: "error", Code: ErrorCode(err), Error: err.Error()}
}

// ErrorCode 请求级错误的机器可读代码
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case xerrors.Is(err, ErrMalformedBatch):
		return "MalformedBatch"
	case xerrors.Is(err, ErrEmptySource):
		return "EmptySource"
	case xerrors.Is(err, ErrEmptyBatch):
		return "EmptyBatch"
	case xerrors.Is(err, ErrBatchTooLarge):
		return "BatchTooLarge"
	case xerrors.Is(err, ErrUnknownType):
		return "UnknownType"
	case xerrors.Is(err, ErrRateLimited):
		return "RateLimited"
	default:
		return string(registry.ReasonInternal)
	}
}
