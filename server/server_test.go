package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/ceyewan/pushgate/exposition"
	"github.com/ceyewan/pushgate/ingest"
	"github.com/ceyewan/pushgate/metrics"
	"github.com/ceyewan/pushgate/ratelimit"
	"github.com/ceyewan/pushgate/registry"
)

func newTestServer(t *testing.T, cfg *Config, ingestCfg *ingest.Config, opts ...ingest.Option) *Server {
	t.Helper()
	store, err := registry.NewStore(&registry.Config{Namespace: "metrics_server", Prefix: "app"})
	require.NoError(t, err)
	engine, err := registry.NewEngine(store)
	require.NoError(t, err)
	svc, err := ingest.NewService(engine, ingestCfg, opts...)
	require.NoError(t, err)
	renderer, err := exposition.NewRenderer(store)
	require.NoError(t, err)

	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg.Mode = gin.TestMode
	meter, err := metrics.New(&metrics.Config{Enabled: true, ServiceName: "pushgate-test"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = meter.Shutdown(context.Background()) })

	srv, err := New(cfg, svc, renderer, WithMeter(meter), WithVersion("pushgate", "1.2.3"))
	require.NoError(t, err)
	return srv
}

func do(t *testing.T, srv *Server, method, path, contentType string, body []byte, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func TestIngestAndScrape(t *testing.T) {
	srv := newTestServer(t, nil, nil)

	body := `{"source":"billing","metrics":[
		{"name":"request_count","metric_type":"counter","help":"Requests.","labels":{"service":"api"},"value":42},
		{"name":"request_count","metric_type":"counter","help":"Requests.","labels":{"service":"api"},"value":{"value":10}}
	]}`
	w := do(t, srv, http.MethodPost, "/api/metrics", "application/json", []byte(body))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp ingest.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.BatchID)
	assert.Equal(t, "partial_success", resp.Status)
	assert.Equal(t, 1, resp.Processed)
	assert.Equal(t, "CounterDecrease", resp.Results[1].Reason)

	w = do(t, srv, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	ct := w.Header().Get("Content-Type")
	assert.Contains(t, ct, "text/plain")
	assert.Contains(t, ct, "version=0.0.4")
	assert.Contains(t, w.Body.String(), "# TYPE metrics_server_app_request_count counter")
	assert.Contains(t, w.Body.String(), `metrics_server_app_request_count{service="api"} 42`)
}

func TestIngestMsgpack(t *testing.T) {
	srv := newTestServer(t, nil, nil)
	body, err := msgpack.Marshal(map[string]any{
		"source":  "edge",
		"metrics": []any{map[string]any{"name": "load", "metric_type": "gauge", "help": "", "value": 0.5}},
	})
	require.NoError(t, err)

	w := do(t, srv, http.MethodPost, "/api/metrics", "application/x-msgpack", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, do(t, srv, http.MethodGet, "/metrics", "", nil).Body.String(), "metrics_server_app_load 0.5")
}

func TestIngestStatusCodes(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxBodyBytes = 512
	srv := newTestServer(t, cfg, nil)

	cases := []struct {
		name string
		body string
		code int
		err  string
	}{
		{name: "malformed", body: "{", code: http.StatusBadRequest, err: "MalformedBatch"},
		{name: "empty source", body: `{"source":"","metrics":[{"name":"a","metric_type":"gauge","help":"","value":1}]}`, code: http.StatusBadRequest, err: "EmptySource"},
		{name: "empty batch", body: `{"source":"s","metrics":[]}`, code: http.StatusBadRequest, err: "EmptyBatch"},
		{name: "unknown type", body: `{"source":"s","metrics":[{"name":"a","metric_type":"timer","help":"","value":1}]}`, code: http.StatusBadRequest, err: "UnknownType"},
		{name: "too large", body: `{"source":"s","help":"` + strings.Repeat("x", 1024) + `"}`, code: http.StatusRequestEntityTooLarge, err: "BatchTooLarge"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(t, srv, http.MethodPost, "/api/metrics", "application/json", []byte(tc.body))
			assert.Equal(t, tc.code, w.Code)
			var er ingest.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &er))
			assert.Equal(t, tc.err, er.Code)
		})
	}

	// 全部失败返回 422，响应体结构不变
	w := do(t, srv, http.MethodPost, "/api/metrics", "application/json",
		[]byte(`{"source":"s","metrics":[{"name":"bad-name","metric_type":"gauge","help":"","value":1}]}`))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var resp ingest.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "failed", resp.Status)
	assert.Equal(t, "InvalidName", resp.Results[0].Reason)
}

func TestIngestRateLimited(t *testing.T) {
	limiter, err := ratelimit.NewStandalone(nil)
	require.NoError(t, err)
	defer limiter.Close()

	ic := ingest.DefaultConfig()
	ic.MaxBatchSize = 1
	ic.RateLimit.Limit = ratelimit.Limit{Rate: 0.001, Burst: 1}
	srv := newTestServer(t, nil, ic, ingest.WithLimiter(limiter))

	body := []byte(`{"source":"noisy","metrics":[{"name":"a","metric_type":"gauge","help":"","value":1}]}`)
	assert.Equal(t, http.StatusOK, do(t, srv, http.MethodPost, "/api/metrics", "application/json", body).Code)
	assert.Equal(t, http.StatusTooManyRequests, do(t, srv, http.MethodPost, "/api/metrics", "application/json", body).Code)
}

func TestHealthAndStatus(t *testing.T) {
	srv := newTestServer(t, nil, nil)
	do(t, srv, http.MethodPost, "/api/metrics", "application/json",
		[]byte(`{"source":"a","metrics":[{"name":"g","metric_type":"gauge","help":"","labels":{"k":"1"},"value":1},{"name":"g","metric_type":"gauge","help":"","labels":{"k":"2"},"value":1}]}`))

	w := do(t, srv, http.MethodGet, "/api/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var health HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "1.2.3", health.Version)
	_, err := time.Parse(time.RFC3339, health.Timestamp)
	assert.NoError(t, err)

	w = do(t, srv, http.MethodGet, "/api/status", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var status StatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, "running", status.Status)
	assert.Equal(t, 1, status.Families)
	assert.Equal(t, 2, status.Series)
	assert.Equal(t, 1, status.Sources)
}

func TestTelemetryEndpoint(t *testing.T) {
	srv := newTestServer(t, nil, nil)
	do(t, srv, http.MethodGet, "/api/health", "", nil)

	w := do(t, srv, http.MethodGet, "/internal/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), metrics.MetricHTTPRequestsTotal)
}

func TestScrapeProtobufNegotiation(t *testing.T) {
	srv := newTestServer(t, nil, nil)
	do(t, srv, http.MethodPost, "/api/metrics", "application/json",
		[]byte(`{"source":"a","metrics":[{"name":"up","metric_type":"gauge","help":"","value":1}]}`))

	w := do(t, srv, http.MethodGet, "/metrics", "", nil,
		"Accept", "application/vnd.google.protobuf;proto=io.prometheus.client.MetricFamily;encoding=delimited")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/vnd.google.protobuf")
	assert.NotEmpty(t, w.Body.Bytes())
}

func TestNewValidation(t *testing.T) {
	_, err := New(&Config{Mode: "fast"}, nil, nil)
	assert.Error(t, err)
	_, err = New(nil, nil, nil)
	assert.Error(t, err)
}

func TestServeGracefulShutdown(t *testing.T) {
	srv := newTestServer(t, nil, nil)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/api/health")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
