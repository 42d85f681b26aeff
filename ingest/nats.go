package ingest

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel/attribute"

	"github.com/ceyewan/pushgate/clog"
	"github.com/ceyewan/pushgate/connector"
	"github.com/ceyewan/pushgate/trace"
	"github.com/ceyewan/pushgate/xerrors"
)

// NATSConsumer 订阅 NATS subject，每条消息是一个批次
//
// 消息带 reply subject 时把 Response（或 ErrorResponse）以 JSON 回复给发送方。
// 连接由 connector 管理，消费者只借用。
type NATSConsumer struct {
	conn   connector.NATSConnector
	svc    *Service
	cfg    NATSConfig
	logger clog.Logger

	mu  sync.Mutex
	sub *nats.Subscription
}

// NewNATSConsumer 创建 NATS 消费者
func NewNATSConsumer(conn connector.NATSConnector, svc *Service, cfg NATSConfig, opts ...Option) (*NATSConsumer, error) {
	if conn == nil || svc == nil {
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, "nats consumer requires connector and service")
	}
	if cfg.Subject == "" {
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, "nats subject is empty")
	}
	o := newOptions(opts)
	return &NATSConsumer{
		conn:   conn,
		svc:    svc,
		cfg:    cfg,
		logger: o.logger.With(clog.String("transport", TransportNATS), clog.String("subject", cfg.Subject)),
	}, nil
}

// Start 订阅 subject，回调在 nats.go 的分发 goroutine 中执行
func (c *NATSConsumer) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sub != nil {
		return nil
	}

	client := c.conn.GetClient()
	if client == nil {
		return xerrors.Wrap(connector.ErrNotConnected, "nats")
	}

	baseCtx := context.WithoutCancel(ctx)
	cb := func(msg *nats.Msg) {
		reply := c.handle(baseCtx, msg)
		if msg.Reply == "" || reply == nil {
			return
		}
		if err := msg.Respond(reply); err != nil {
			c.logger.Warn("failed to reply", clog.String("reply", msg.Reply), clog.Error(err))
		}
	}

	var err error
	if c.cfg.Queue != "" {
		c.sub, err = client.QueueSubscribe(c.cfg.Subject, c.cfg.Queue, cb)
	} else {
		c.sub, err = client.Subscribe(c.cfg.Subject, cb)
	}
	if err != nil {
		c.sub = nil
		return xerrors.Wrapf(err, "subscribe %s", c.cfg.Subject)
	}
	c.logger.Info("nats consumer started", clog.String("queue", c.cfg.Queue))
	return nil
}

// Stop 排空订阅，已收到的消息处理完后返回
func (c *NATSConsumer) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sub == nil {
		return nil
	}
	err := c.sub.Drain()
	c.sub = nil
	c.logger.Info("nats consumer stopped")
	return err
}

// handle 处理一条消息，返回需要回复的 JSON
func (c *NATSConsumer) handle(ctx context.Context, msg *nats.Msg) []byte {
	headers := natsHeaders(msg.Header)
	ctx, span := trace.StartConsumerSpanFromHeaders(ctx, nil, trace.SpanNameIngest(msg.Subject), headers,
		trace.MessagingMeta{
			System:        trace.MessagingSystemNATS,
			Destination:   msg.Subject,
			Operation:     trace.MessagingOperationProcess,
			ConsumerGroup: c.cfg.Queue,
		},
		attribute.Int("messaging.message.body.size", len(msg.Data)))
	defer span.End()

	resp, err := handlePayload(ctx, c.svc, TransportNATS, headers["content-type"], msg.Data)
	if err != nil {
		trace.MarkSpanError(span, err)
		c.logger.WarnContext(ctx, "nats batch rejected", clog.Error(err))
	}

	out, mErr := json.Marshal(resp)
	if mErr != nil {
		c.logger.ErrorContext(ctx, "failed to encode reply", clog.Error(mErr))
		return nil
	}
	return out
}

// handlePayload 解码并处理一个消息体，返回值总是可直接编码为回复
func handlePayload(ctx context.Context, svc *Service, transport, contentType string, data []byte) (any, error) {
	if err := svc.checkPayload(len(data)); err != nil {
		return NewErrorResponse(err), err
	}
	batch, err := Decode(contentType, data)
	if err != nil {
		return NewErrorResponse(err), err
	}
	res, err := svc.IngestBatch(ctx, transport, batch)
	if err != nil {
		return NewErrorResponse(err), err
	}
	return NewResponse(res), nil
}

// natsHeaders 键统一转为小写
func natsHeaders(h nats.Header) map[string]string {
	if len(h) == 0 {
		return nil
	}
	out := make(map[string]string, len(h))
	for k, v := range h {
		if len(v) > 0 {
			out[strings.ToLower(k)] = v[0]
		}
	}
	return out
}
