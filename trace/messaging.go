package trace

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	oteltrace "go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/ceyewan/pushgate/trace"

// MessagingMeta 消息 Span 的标准属性
type MessagingMeta struct {
	System        string
	Destination   string
	Operation     string
	ConsumerGroup string
	TraceRelation MessagingTraceRelation // 默认 link
}

// Inject 将 ctx 中的链路上下文写入 headers
func Inject(ctx context.Context, headers map[string]string) {
	otel.GetTextMapPropagator().Inject(ctx, propagation.MapCarrier(headers))
}

// Extract 从 headers 恢复链路上下文
func Extract(ctx context.Context, headers map[string]string) context.Context {
	return otel.GetTextMapPropagator().Extract(ctx, propagation.MapCarrier(headers))
}

func messagingAttributes(meta MessagingMeta, attrs ...attribute.KeyValue) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(attrs)+4)
	if meta.System != "" {
		out = append(out, attribute.String(AttrMessagingSystem, meta.System))
	}
	if meta.Destination != "" {
		out = append(out, attribute.String(AttrMessagingDestination, meta.Destination))
	}
	if meta.Operation != "" {
		out = append(out, attribute.String(AttrMessagingOperation, meta.Operation))
	}
	if meta.ConsumerGroup != "" {
		out = append(out, attribute.String(AttrMessagingConsumerGroup, meta.ConsumerGroup))
	}
	return append(out, attrs...)
}

// StartConsumerSpanFromHeaders 根据消息头启动消费者 Span
//
// tracer 为 nil 时使用全局 Provider。上游上下文有效时按 meta.TraceRelation
// 建立 link 或 parent 关系。
func StartConsumerSpanFromHeaders(
	ctx context.Context,
	tracer oteltrace.Tracer,
	spanName string,
	headers map[string]string,
	meta MessagingMeta,
	attrs ...attribute.KeyValue,
) (context.Context, oteltrace.Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}

	startCtx := ctx
	startOpts := []oteltrace.SpanStartOption{oteltrace.WithSpanKind(oteltrace.SpanKindConsumer)}

	if len(headers) > 0 {
		extracted := Extract(ctx, headers)
		if remote := oteltrace.SpanContextFromContext(extracted); remote.IsValid() {
			if meta.TraceRelation == MessagingTraceRelationChildOf {
				startCtx = extracted
			} else {
				startOpts = append(startOpts, oteltrace.WithLinks(oteltrace.Link{SpanContext: remote}))
			}
		}
	}

	spanCtx, span := tracer.Start(startCtx, spanName, startOpts...)
	span.SetAttributes(messagingAttributes(meta, attrs...)...)
	return spanCtx, span
}

// MarkSpanError err 非 nil 时记录错误并标记 Span 状态
func MarkSpanError(span oteltrace.Span, err error) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
