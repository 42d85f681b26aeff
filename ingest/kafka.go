package ingest

import (
	"context"
	"strings"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"go.opentelemetry.io/otel/attribute"

	"github.com/ceyewan/pushgate/clog"
	"github.com/ceyewan/pushgate/connector"
	"github.com/ceyewan/pushgate/trace"
	"github.com/ceyewan/pushgate/xerrors"
)

// KafkaClientOpts 返回消费者需要的 franz-go 客户端选项，创建连接器时通过
// connector.WithKafkaClientOpts 传入
func KafkaClientOpts(cfg KafkaConfig) []kgo.Opt {
	opts := []kgo.Opt{kgo.ConsumeTopics(cfg.Topics...)}
	if cfg.Group != "" {
		opts = append(opts, kgo.ConsumerGroup(cfg.Group), kgo.DisableAutoCommit())
	}
	return opts
}

// KafkaConsumer 消费 Kafka topic，每条记录是一个批次
//
// 使用消费者组时按记录手动提交 offset。被整批拒绝的记录同样提交，
// 重放一个格式错误的批次不会得到不同的结果。
type KafkaConsumer struct {
	conn   connector.KafkaConnector
	svc    *Service
	cfg    KafkaConfig
	logger clog.Logger
}

// NewKafkaConsumer 创建 Kafka 消费者，conn 需要用 KafkaClientOpts 创建
func NewKafkaConsumer(conn connector.KafkaConnector, svc *Service, cfg KafkaConfig, opts ...Option) (*KafkaConsumer, error) {
	if conn == nil || svc == nil {
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, "kafka consumer requires connector and service")
	}
	if len(cfg.Topics) == 0 {
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, "kafka topics are empty")
	}
	o := newOptions(opts)
	return &KafkaConsumer{
		conn:   conn,
		svc:    svc,
		cfg:    cfg,
		logger: o.logger.With(clog.String("transport", TransportKafka), clog.Any("topics", cfg.Topics)),
	}, nil
}

// Run 拉取并处理记录，直到 ctx 结束或客户端关闭
func (c *KafkaConsumer) Run(ctx context.Context) error {
	client := c.conn.GetClient()
	if client == nil {
		return xerrors.Wrap(connector.ErrNotConnected, "kafka")
	}
	c.logger.Info("kafka consumer started", clog.String("group", c.cfg.Group))

	for {
		fetches := client.PollFetches(ctx)
		if fetches.IsClientClosed() || ctx.Err() != nil {
			c.logger.Info("kafka consumer stopped")
			return nil
		}
		if errs := fetches.Errors(); len(errs) > 0 {
			for _, fe := range errs {
				c.logger.Error("kafka poll error",
					clog.String("topic", fe.Topic),
					clog.Int("partition", int(fe.Partition)),
					clog.Error(fe.Err))
			}
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}

		var done []*kgo.Record
		fetches.EachRecord(func(rec *kgo.Record) {
			c.handle(ctx, rec)
			done = append(done, rec)
		})

		if c.cfg.Group != "" && len(done) > 0 {
			if err := client.CommitRecords(ctx, done...); err != nil {
				c.logger.Warn("failed to commit offsets", clog.Int("records", len(done)), clog.Error(err))
			}
		}
	}
}

func (c *KafkaConsumer) handle(ctx context.Context, rec *kgo.Record) {
	headers := recordHeaders(rec)
	ctx, span := trace.StartConsumerSpanFromHeaders(ctx, nil, trace.SpanNameIngest(rec.Topic), headers,
		trace.MessagingMeta{
			System:        trace.MessagingSystemKafka,
			Destination:   rec.Topic,
			Operation:     trace.MessagingOperationProcess,
			ConsumerGroup: c.cfg.Group,
		},
		attribute.Int("messaging.kafka.partition", int(rec.Partition)),
		attribute.Int64("messaging.kafka.offset", rec.Offset))
	defer span.End()

	if _, err := handlePayload(ctx, c.svc, TransportKafka, headers["content-type"], rec.Value); err != nil {
		trace.MarkSpanError(span, err)
		c.logger.WarnContext(ctx, "kafka batch rejected",
			clog.Int("partition", int(rec.Partition)),
			clog.Int64("offset", rec.Offset),
			clog.Error(err))
	}
}

// recordHeaders 键统一转为小写
func recordHeaders(rec *kgo.Record) map[string]string {
	if len(rec.Headers) == 0 {
		return nil
	}
	out := make(map[string]string, len(rec.Headers))
	for _, h := range rec.Headers {
		out[strings.ToLower(h.Key)] = string(h.Value)
	}
	return out
}
