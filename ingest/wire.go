package ingest

import (
	"bytes"
	"encoding/json"
	"math"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/ceyewan/pushgate/xerrors"
)

// Batch 上报方提交的一个批次
//
//	{
//	  "source": "billing",
//	  "metrics": [
//	    {"name": "request_count", "metric_type": "counter", "help": "...",
//	     "labels": {"service": "api"}, "value": {"value": 42, "timestamp": 1700000000000}}
//	  ]
//	}
type Batch struct {
	Source  string   `json:"source" msgpack:"source"`
	Metrics []Metric `json:"metrics" msgpack:"metrics"`
}

// Metric 一条指标更新，Value 必填
type Metric struct {
	Name       string            `json:"name" msgpack:"name"`
	MetricType string            `json:"metric_type" msgpack:"metric_type"`
	Help       string            `json:"help" msgpack:"help"`
	Labels     map[string]string `json:"labels,omitempty" msgpack:"labels,omitempty"`
	Value      *Value            `json:"value" msgpack:"value"`
	Buckets    []float64         `json:"buckets,omitempty" msgpack:"buckets,omitempty"`
}

// requireValues 解码器只在 key 存在时调用 Value 的反序列化，缺失的 value 在这里拦截
func (b *Batch) requireValues() error {
	for i, m := range b.Metrics {
		if m.Value == nil {
			return xerrors.Wrapf(ErrMalformedBatch, "metrics[%d] %q: value is required", i, m.Name)
		}
	}
	return nil
}

// Value 数值载荷，线上可以是裸数字，也可以是 {value, timestamp?, mode?}
type Value struct {
	Value float64 `json:"value" msgpack:"value"`
	// Timestamp Unix 毫秒时间戳，接受但不使用
	Timestamp *int64 `json:"timestamp,omitempty" msgpack:"timestamp,omitempty"`
	// Mode counter/gauge 的解释方式：absolute（默认）或 delta
	Mode string `json:"mode,omitempty" msgpack:"mode,omitempty"`
}

// Time 返回上报时间，未给出时为 nil
func (v Value) Time() *time.Time {
	if v.Timestamp == nil {
		return nil
	}
	t := time.UnixMilli(*v.Timestamp)
	return &t
}

// valueObject 避免 UnmarshalJSON 递归
type valueObject struct {
	Value     *float64 `json:"value"`
	Timestamp *int64   `json:"timestamp"`
	Mode      string   `json:"mode"`
}

// UnmarshalJSON 支持裸数字与对象两种形式
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return xerrors.Wrap(ErrMalformedBatch, "value is required")
	}
	if data[0] != '{' {
		var f float64
		if err := json.Unmarshal(data, &f); err != nil {
			return xerrors.Wrapf(ErrMalformedBatch, "value must be a number: %v", err)
		}
		*v = Value{Value: f}
		return nil
	}

	var obj valueObject
	if err := json.Unmarshal(data, &obj); err != nil {
		return xerrors.Wrapf(ErrMalformedBatch, "value object: %v", err)
	}
	if obj.Value == nil {
		return xerrors.Wrap(ErrMalformedBatch, "value.value is required")
	}
	*v = Value{Value: *obj.Value, Timestamp: obj.Timestamp, Mode: obj.Mode}
	return nil
}

// DecodeMsgpack 支持裸数字与 map 两种形式
func (v *Value) DecodeMsgpack(dec *msgpack.Decoder) error {
	raw, err := dec.DecodeInterface()
	if err != nil {
		return xerrors.Wrapf(ErrMalformedBatch, "value: %v", err)
	}

	if f, ok := toFloat(raw); ok {
		*v = Value{Value: f}
		return nil
	}

	obj, ok := raw.(map[string]any)
	if !ok {
		return xerrors.Wrapf(ErrMalformedBatch, "value must be a number or map, got %T", raw)
	}
	f, ok := toFloat(obj["value"])
	if !ok {
		return xerrors.Wrap(ErrMalformedBatch, "value.value must be a number")
	}
	out := Value{Value: f}
	if ts, ok := obj["timestamp"]; ok && ts != nil {
		switch t := ts.(type) {
		case time.Time:
			ms := t.UnixMilli()
			out.Timestamp = &ms
		default:
			tf, ok := toFloat(ts)
			if !ok {
				return xerrors.Wrap(ErrMalformedBatch, "value.timestamp must be an integer")
			}
			ms := int64(tf)
			out.Timestamp = &ms
		}
	}
	if m, ok := obj["mode"]; ok && m != nil {
		s, ok := m.(string)
		if !ok {
			return xerrors.Wrap(ErrMalformedBatch, "value.mode must be a string")
		}
		out.Mode = s
	}
	*v = out
	return nil
}

func toFloat(raw any) (float64, bool) {
	switch n := raw.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case uint:
		return float64(n), true
	default:
		return math.NaN(), false
	}
}
