package connector

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/ceyewan/pushgate/clog"
	"github.com/ceyewan/pushgate/metrics"
	"github.com/ceyewan/pushgate/xerrors"
)

func TestNATSConfigValidation(t *testing.T) {
	tests := []struct {
		name        string
		cfg         *NATSConfig
		wantErr     bool
		errContains string
	}{
		{name: "valid", cfg: &NATSConfig{URL: "nats://localhost:4222"}},
		{name: "with auth", cfg: &NATSConfig{URL: "nats://localhost:4222", Username: "u", Password: "p"}},
		{name: "empty url", cfg: &NATSConfig{}, wantErr: true, errContains: "URL不能为空"},
		{name: "nil", cfg: nil, wantErr: true, errContains: "nil"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				assert.ErrorIs(t, err, ErrConfig)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "default", tt.cfg.Name)
			assert.Equal(t, 5*time.Second, tt.cfg.Timeout)
			assert.Equal(t, 60, tt.cfg.MaxReconnects)
		})
	}
}

func TestKafkaConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *KafkaConfig
		wantErr bool
	}{
		{name: "valid", cfg: &KafkaConfig{Seed: []string{"localhost:9092"}}},
		{name: "sasl", cfg: &KafkaConfig{Seed: []string{"localhost:9092"}, User: "u", Password: "p"}},
		{name: "empty seed", cfg: &KafkaConfig{Seed: []string{}}, wantErr: true},
		{name: "nil", cfg: nil, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, xerrors.ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "pushgate", tt.cfg.ClientID)
		})
	}
}

func TestConnectorsBeforeConnect(t *testing.T) {
	ctx := context.Background()

	natsConn, err := NewNATS(&NATSConfig{Name: "ingest", URL: "nats://127.0.0.1:4222"},
		WithLogger(clog.Discard()), WithMeter(metrics.Discard()))
	require.NoError(t, err)

	kafkaConn, err := NewKafka(&KafkaConfig{Name: "ingest", Seed: []string{"127.0.0.1:9092"}},
		WithKafkaClientOpts(kgo.ConsumeTopics("metrics")))
	require.NoError(t, err)

	for _, conn := range []Connector{natsConn, kafkaConn} {
		assert.Equal(t, "ingest", conn.Name())
		assert.False(t, conn.IsHealthy())

		err := conn.HealthCheck(ctx)
		assert.ErrorIs(t, err, ErrNotConnected)
		assert.ErrorIs(t, err, xerrors.ErrUnavailable)

		assert.NoError(t, conn.Close())
		assert.NoError(t, conn.Close(), "Close 应当幂等")
	}
	assert.Nil(t, natsConn.GetClient())
	assert.Nil(t, kafkaConn.GetClient())
}

func TestNATSConnectUnreachable(t *testing.T) {
	conn, err := NewNATS(&NATSConfig{URL: "nats://127.0.0.1:1", Timeout: 200 * time.Millisecond})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = conn.Connect(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConnection)
	assert.False(t, conn.IsHealthy())
	assert.Nil(t, conn.GetClient())
}

func TestKafkaConnectUnreachable(t *testing.T) {
	conn, err := NewKafka(&KafkaConfig{Seed: []string{"127.0.0.1:1"}, ConnectTimeout: 300 * time.Millisecond})
	require.NoError(t, err)

	err = conn.Connect(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConnection)
	assert.Nil(t, conn.GetClient())
}

func TestKafkaClientOptions(t *testing.T) {
	conn, err := NewKafka(&KafkaConfig{Seed: []string{"a:9092"}, User: "u", Password: "p"},
		WithKafkaClientOpts(kgo.ConsumerGroup("pushgate"), kgo.ConsumeTopics("metrics")))
	require.NoError(t, err)

	kc := conn.(*kafkaConnector)
	// seed + client id + timeout + logger + sasl + 2 个额外选项
	assert.Len(t, kc.clientOptions(), 7)
}

func TestKgoLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, err := clog.New(&clog.Config{Level: "debug", Format: "json"}, clog.WithWriter(buf))
	require.NoError(t, err)

	l := &kgoLogger{logger: logger}
	assert.Equal(t, kgo.LogLevelInfo, l.Level())

	l.Log(kgo.LogLevelWarn, "broker gone", "broker", "b1", "dangling")
	out := buf.String()
	assert.Contains(t, out, `"msg":"broker gone"`)
	assert.Contains(t, out, `"broker":"b1"`)
	assert.Contains(t, out, `"level":"WARN"`)
}
