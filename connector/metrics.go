package connector

import (
	"context"

	"github.com/ceyewan/pushgate/metrics"
	"github.com/ceyewan/pushgate/xerrors"
)

const (
	MetricConnectAttempts = "pushgate_connector_connect_attempts_total"
	MetricUp              = "pushgate_connector_up"
)

// connMetrics 连接器共用的连接指标
type connMetrics struct {
	kind     string
	name     string
	attempts metrics.Counter
	up       metrics.Gauge
}

func newConnMetrics(meter metrics.Meter, kind, name string) (*connMetrics, error) {
	attempts, err := meter.Counter(MetricConnectAttempts, "Connection attempts by connector and outcome.")
	if err != nil {
		return nil, xerrors.Wrap(err, "create connect attempts counter")
	}
	up, err := meter.Gauge(MetricUp, "Whether the connector is connected (1) or not (0).")
	if err != nil {
		return nil, xerrors.Wrap(err, "create connector up gauge")
	}
	return &connMetrics{kind: kind, name: name, attempts: attempts, up: up}, nil
}

func (m *connMetrics) attempt(ctx context.Context, err error) {
	outcome := metrics.OutcomeSuccess
	if err != nil {
		outcome = metrics.OutcomeError
	}
	m.attempts.Inc(ctx, metrics.L("connector", m.kind), metrics.L("name", m.name), metrics.L(metrics.LabelOutcome, outcome))
}

func (m *connMetrics) setUp(ctx context.Context, up bool) {
	v := 0.0
	if up {
		v = 1
	}
	m.up.Set(ctx, v, metrics.L("connector", m.kind), metrics.L("name", m.name))
}
