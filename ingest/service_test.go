package ingest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/pushgate/ratelimit"
	"github.com/ceyewan/pushgate/registry"
	"github.com/ceyewan/pushgate/xerrors"
)

func newTestService(t *testing.T, cfg *Config, opts ...Option) *Service {
	t.Helper()
	store, err := registry.NewStore(&registry.Config{Namespace: "metrics_server", Prefix: "app"})
	require.NoError(t, err)
	engine, err := registry.NewEngine(store)
	require.NoError(t, err)
	svc, err := NewService(engine, cfg, opts...)
	require.NoError(t, err)
	return svc
}

func gauge(name string, v float64) Metric {
	return Metric{Name: name, MetricType: "gauge", Value: &Value{Value: v}}
}

func TestNewServiceValidation(t *testing.T) {
	_, err := NewService(nil, nil)
	assert.ErrorIs(t, err, xerrors.ErrInvalidInput)

	store, err := registry.NewStore(nil)
	require.NoError(t, err)
	engine, err := registry.NewEngine(store)
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.RateLimit.Limit = ratelimit.Limit{Rate: 10, Burst: 5}
	_, err = NewService(engine, cfg)
	assert.ErrorIs(t, err, xerrors.ErrInvalidInput, "burst 小于单批上限")
}

func TestIngestBatch(t *testing.T) {
	svc := newTestService(t, nil)

	res, err := svc.IngestBatch(context.Background(), TransportHTTP, &Batch{
		Source: " billing ",
		Metrics: []Metric{
			{Name: "request_count", MetricType: "counter", Labels: map[string]string{"service": "api"}, Value: &Value{Value: 42}},
			{Name: "bad-name", MetricType: "gauge", Value: &Value{Value: 1}},
			{Name: "latency", MetricType: "summary", Value: &Value{Value: 0.3}},
		},
	})
	require.NoError(t, err)

	_, err = uuid.Parse(res.BatchID)
	assert.NoError(t, err)
	assert.Equal(t, "billing", res.Source)
	assert.Equal(t, 2, res.Processed)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, "partial_success", res.Status())
	assert.Equal(t, registry.ReasonInvalidName, res.Results[1].Reason)

	f, ok := svc.Engine().Store().Family("metrics_server_app_latency")
	require.True(t, ok)
	assert.Equal(t, registry.KindHistogram, f.Kind())

	seen, ok := svc.LastSeen("billing")
	assert.True(t, ok)
	assert.WithinDuration(t, time.Now(), seen, time.Minute)
}

func TestIngestBatchRequestErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxBatchSize = 2
	svc := newTestService(t, cfg)

	cases := []struct {
		name  string
		batch *Batch
		want  error
		code  string
	}{
		{name: "nil", batch: nil, want: ErrMalformedBatch, code: "MalformedBatch"},
		{name: "empty source", batch: &Batch{Source: "  ", Metrics: []Metric{gauge("a", 1)}}, want: ErrEmptySource, code: "EmptySource"},
		{name: "empty batch", batch: &Batch{Source: "s"}, want: ErrEmptyBatch, code: "EmptyBatch"},
		{name: "too large", batch: &Batch{Source: "s", Metrics: []Metric{gauge("a", 1), gauge("b", 1), gauge("c", 1)}}, want: ErrBatchTooLarge, code: "BatchTooLarge"},
		{name: "unknown type", batch: &Batch{Source: "s", Metrics: []Metric{gauge("a", 1), {Name: "b", MetricType: "timer", Value: &Value{Value: 1}}}}, want: ErrUnknownType, code: "UnknownType"},
		{name: "value missing", batch: &Batch{Source: "s", Metrics: []Metric{gauge("a", 1), {Name: "b", MetricType: "gauge"}}}, want: ErrMalformedBatch, code: "MalformedBatch"},
		{name: "unknown mode", batch: &Batch{Source: "s", Metrics: []Metric{{Name: "a", MetricType: "gauge", Value: &Value{Mode: "mul"}}}}, want: ErrMalformedBatch, code: "MalformedBatch"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.IngestBatch(context.Background(), TransportHTTP, tc.batch)
			assert.ErrorIs(t, err, tc.want)
			assert.ErrorIs(t, err, xerrors.ErrInvalidInput)
			assert.Equal(t, tc.code, ErrorCode(err))
		})
	}

	// 整批拒绝不修改 store
	assert.Equal(t, 0, svc.Engine().Store().Stats().Families)
	assert.Equal(t, 0, svc.Sources())
}

func TestIngestBatchRateLimited(t *testing.T) {
	limiter, err := ratelimit.NewStandalone(nil)
	require.NoError(t, err)
	defer limiter.Close()

	cfg := DefaultConfig()
	cfg.MaxBatchSize = 2
	cfg.RateLimit.Limit = ratelimit.Limit{Rate: 0.001, Burst: 2}
	svc := newTestService(t, cfg, WithLimiter(limiter))

	batch := &Batch{Source: "noisy", Metrics: []Metric{gauge("a", 1), gauge("b", 2)}}
	_, err = svc.IngestBatch(context.Background(), TransportHTTP, batch)
	require.NoError(t, err)

	_, err = svc.IngestBatch(context.Background(), TransportHTTP, batch)
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.ErrorIs(t, err, xerrors.ErrResourceExhausted)
	assert.Equal(t, "RateLimited", ErrorCode(err))

	// 每个 source 独立计数
	_, err = svc.IngestBatch(context.Background(), TransportHTTP, &Batch{Source: "quiet", Metrics: []Metric{gauge("a", 3)}})
	assert.NoError(t, err)
}

func TestSourcesTracked(t *testing.T) {
	svc := newTestService(t, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 2; j++ {
			_, err := svc.IngestBatch(context.Background(), TransportHTTP, &Batch{
				Source:  fmt.Sprintf("src-%d", i),
				Metrics: []Metric{gauge("up", 1)},
			})
			require.NoError(t, err)
		}
	}
	assert.Equal(t, 3, svc.Sources())
	_, ok := svc.LastSeen("src-9")
	assert.False(t, ok)
}

func TestNewResponse(t *testing.T) {
	svc := newTestService(t, nil)
	res, err := svc.IngestBatch(context.Background(), TransportHTTP, &Batch{
		Source: "s",
		Metrics: []Metric{
			{Name: "c", MetricType: "counter", Value: &Value{Value: 5}},
			{Name: "c", MetricType: "counter", Value: &Value{Value: 1}},
		},
	})
	require.NoError(t, err)

	resp := NewResponse(res)
	assert.Equal(t, res.BatchID, resp.BatchID)
	assert.Equal(t, "partial_success", resp.Status)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, ItemResponse{Index: 0, Name: "c", Status: "ok"}, resp.Results[0])
	assert.Equal(t, "rejected", resp.Results[1].Status)
	assert.Equal(t, "CounterDecrease", resp.Results[1].Reason)
	assert.NotEmpty(t, resp.Results[1].Error)

	er := NewErrorResponse(ErrEmptyBatch)
	assert.Equal(t, "error", er.Status)
	assert.Equal(t, "EmptyBatch", er.Code)
}
