package ingest

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/ceyewan/pushgate/connector"
)

func TestHandlePayload(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	out, err := handlePayload(ctx, svc, TransportNATS, "", []byte(`{"source":"a","metrics":[{"name":"up","metric_type":"gauge","help":"","value":1}]}`))
	require.NoError(t, err)
	resp, ok := out.(*Response)
	require.True(t, ok)
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, 1, resp.Processed)

	body, err := msgpack.Marshal(map[string]any{"source": "b", "metrics": []any{}})
	require.NoError(t, err)
	out, err = handlePayload(ctx, svc, TransportNATS, ContentTypeMsgpack, body)
	assert.ErrorIs(t, err, ErrEmptyBatch)
	er, ok := out.(*ErrorResponse)
	require.True(t, ok)
	assert.Equal(t, "EmptyBatch", er.Code)

	out, err = handlePayload(ctx, svc, TransportKafka, "", []byte("{"))
	assert.ErrorIs(t, err, ErrMalformedBatch)
	assert.IsType(t, &ErrorResponse{}, out)
}

func TestHandlePayloadByteLimit(t *testing.T) {
	small := `{"source":"a","metrics":[{"name":"up","metric_type":"gauge","help":"","value":1}]}`
	svc := newTestService(t, nil, WithMaxPayloadBytes(int64(len(small))))
	ctx := context.Background()

	_, err := handlePayload(ctx, svc, TransportNATS, "", []byte(small))
	require.NoError(t, err, "恰好等于上限时放行")

	big := `{"source":"a","metrics":[{"name":"up","metric_type":"gauge","help":"","value":2}]}  `
	for _, transport := range []string{TransportNATS, TransportKafka} {
		out, err := handlePayload(ctx, svc, transport, "", []byte(big))
		assert.ErrorIs(t, err, ErrBatchTooLarge, transport)
		er, ok := out.(*ErrorResponse)
		require.True(t, ok)
		assert.Equal(t, "BatchTooLarge", er.Code)
	}

	// 超限的消息不会被应用
	snap := svc.Engine().Store().Snapshot()
	require.Len(t, snap, 1)
	require.Len(t, snap[0].Series, 1)
	assert.Equal(t, 1.0, snap[0].Series[0].Value)
}

func TestNATSConsumerHandleReply(t *testing.T) {
	svc := newTestService(t, nil)
	conn, err := connector.NewNATS(&connector.NATSConfig{URL: "nats://127.0.0.1:4222"})
	require.NoError(t, err)

	c, err := NewNATSConsumer(conn, svc, NATSConfig{Subject: "metrics.push", Queue: "pushgate"})
	require.NoError(t, err)

	msg := nats.NewMsg("metrics.push")
	msg.Header.Set("Content-Type", ContentTypeJSON)
	msg.Data = []byte(`{"source":"edge","metrics":[{"name":"up","metric_type":"gauge","help":"","value":1},{"name":"up","metric_type":"counter","help":"","value":1}]}`)

	var resp Response
	require.NoError(t, json.Unmarshal(c.handle(context.Background(), msg), &resp))
	assert.Equal(t, "edge", resp.Source)
	assert.Equal(t, "partial_success", resp.Status)
	assert.Equal(t, "KindConflict", resp.Results[1].Reason)

	msg.Data = []byte("not json")
	var er ErrorResponse
	require.NoError(t, json.Unmarshal(c.handle(context.Background(), msg), &er))
	assert.Equal(t, "MalformedBatch", er.Code)
}

func TestNATSConsumerRequiresConnection(t *testing.T) {
	svc := newTestService(t, nil)
	conn, err := connector.NewNATS(&connector.NATSConfig{URL: "nats://127.0.0.1:4222"})
	require.NoError(t, err)

	_, err = NewNATSConsumer(conn, svc, NATSConfig{})
	assert.Error(t, err, "subject 不能为空")
	_, err = NewNATSConsumer(nil, svc, NATSConfig{Subject: "x"})
	assert.Error(t, err)

	c, err := NewNATSConsumer(conn, svc, NATSConfig{Subject: "x"})
	require.NoError(t, err)
	assert.ErrorIs(t, c.Start(context.Background()), connector.ErrNotConnected)
	assert.NoError(t, c.Stop())
}

func TestKafkaConsumerRequiresConnection(t *testing.T) {
	svc := newTestService(t, nil)
	cfg := KafkaConfig{Topics: []string{"metrics"}, Group: "pushgate"}
	conn, err := connector.NewKafka(&connector.KafkaConfig{Seed: []string{"127.0.0.1:9092"}},
		connector.WithKafkaClientOpts(KafkaClientOpts(cfg)...))
	require.NoError(t, err)

	_, err = NewKafkaConsumer(conn, svc, KafkaConfig{})
	assert.Error(t, err)

	c, err := NewKafkaConsumer(conn, svc, cfg)
	require.NoError(t, err)
	assert.ErrorIs(t, c.Run(context.Background()), connector.ErrNotConnected)
}

func TestKafkaClientOpts(t *testing.T) {
	assert.Len(t, KafkaClientOpts(KafkaConfig{Topics: []string{"a"}}), 1)
	assert.Len(t, KafkaClientOpts(KafkaConfig{Topics: []string{"a"}, Group: "g"}), 3)
}

func TestKafkaConsumerHandle(t *testing.T) {
	svc := newTestService(t, nil)
	c := &KafkaConsumer{svc: svc, cfg: KafkaConfig{Topics: []string{"metrics"}}, logger: newOptions(nil).logger}

	body, err := msgpack.Marshal(map[string]any{
		"source":  "edge",
		"metrics": []any{map[string]any{"name": "hits", "metric_type": "counter", "help": "", "value": 7}},
	})
	require.NoError(t, err)

	c.handle(context.Background(), &kgo.Record{
		Topic:   "metrics",
		Value:   body,
		Headers: []kgo.RecordHeader{{Key: "Content-Type", Value: []byte(ContentTypeMsgpack)}},
	})

	f, ok := svc.Engine().Store().Family("metrics_server_app_hits")
	require.True(t, ok)
	assert.Equal(t, 1, f.Len())
	seen, ok := svc.LastSeen("edge")
	assert.True(t, ok)
	assert.False(t, seen.IsZero())
}

func TestHeaderMaps(t *testing.T) {
	assert.Nil(t, natsHeaders(nil))
	assert.Equal(t, map[string]string{"traceparent": "x"}, natsHeaders(nats.Header{"Traceparent": {"x"}}))
	assert.Nil(t, recordHeaders(&kgo.Record{}))
	assert.Equal(t, map[string]string{"content-type": "a"}, recordHeaders(&kgo.Record{Headers: []kgo.RecordHeader{{Key: "Content-Type", Value: []byte("a")}}}))
}
