package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/pushgate/clog"
)

func scrape(t *testing.T, m Meter) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/internal/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *Config
		opts    []Option
		wantErr bool
	}{
		{name: "nil config", cfg: nil, wantErr: true},
		{name: "disabled", cfg: &Config{Enabled: false}},
		{name: "enabled", cfg: &Config{Enabled: true, ServiceName: "pushgate", Version: "test"}},
		{
			name: "with logger",
			cfg:  &Config{Enabled: true, ServiceName: "pushgate"},
			opts: []Option{WithLogger(clog.Discard())},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meter, err := New(tt.cfg, tt.opts...)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, meter)

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			assert.NoError(t, meter.Shutdown(ctx))
		})
	}
}

func TestMeterExposesInstruments(t *testing.T) {
	meter, err := New(&Config{Enabled: true, ServiceName: "pushgate"})
	require.NoError(t, err)
	defer meter.Shutdown(context.Background())

	ctx := context.Background()
	counter, err := meter.Counter("pushgate_test_updates_total", "updates")
	require.NoError(t, err)
	counter.Inc(ctx, L(LabelOutcome, "applied"))
	counter.Add(ctx, 2, L(LabelOutcome, "applied"))

	gauge, err := meter.Gauge("pushgate_test_inflight", "inflight")
	require.NoError(t, err)
	gauge.Set(ctx, 5)
	gauge.Inc(ctx)
	gauge.Dec(ctx)
	gauge.Dec(ctx)

	hist, err := meter.Histogram("pushgate_test_batch_size", "batch size", WithBuckets([]float64{1, 10, 100}))
	require.NoError(t, err)
	hist.Record(ctx, 7)

	body := scrape(t, meter)
	assert.Contains(t, body, `pushgate_test_updates_total{`)
	assert.Contains(t, body, `outcome="applied"`)
	assert.Contains(t, body, "pushgate_test_inflight")
	assert.Contains(t, body, "pushgate_test_batch_size_bucket")
	assert.Contains(t, body, `le="10"`)
}

func TestGaugeTracksLocalValue(t *testing.T) {
	meter, err := New(&Config{Enabled: true})
	require.NoError(t, err)
	defer meter.Shutdown(context.Background())

	created, err := meter.Gauge("pushgate_test_gauge", "g")
	require.NoError(t, err)
	g := created.(*gaugeImpl)

	ctx := context.Background()
	g.Set(ctx, 3, L("k", "v"))
	g.Inc(ctx, L("k", "v"))
	g.Dec(ctx, L("k", "other"))

	assert.Equal(t, 4.0, g.values[labelKey([]Label{L("k", "v")})])
	assert.Equal(t, -1.0, g.values[labelKey([]Label{L("k", "other")})])
}

func TestDiscard(t *testing.T) {
	m := Discard()
	ctx := context.Background()

	c, err := m.Counter("x", "x")
	require.NoError(t, err)
	c.Inc(ctx)
	h, err := m.Histogram("y", "y")
	require.NoError(t, err)
	h.Record(ctx, 1)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NoError(t, m.Shutdown(ctx))
}

func TestHTTPStatusClass(t *testing.T) {
	tests := map[int]string{99: "unknown", 200: "2xx", 404: "4xx", 503: "5xx", 600: "unknown"}
	for status, want := range tests {
		assert.Equal(t, want, HTTPStatusClass(status), "status %d", status)
	}
	assert.Equal(t, OutcomeSuccess, HTTPOutcome(204))
	assert.Equal(t, OutcomeError, HTTPOutcome(429))
}
