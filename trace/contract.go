package trace

// Messaging 语义属性键
const (
	AttrMessagingSystem        = "messaging.system"
	AttrMessagingDestination   = "messaging.destination"
	AttrMessagingOperation     = "messaging.operation"
	AttrMessagingConsumerGroup = "messaging.consumer.group"
)

const (
	MessagingSystemNATS  = "nats"
	MessagingSystemKafka = "kafka"
)

const (
	MessagingOperationConsume = "consume"
	MessagingOperationProcess = "process"
)

// MessagingTraceRelation 消费者 Span 与上游 Span 的关系
type MessagingTraceRelation string

const (
	// MessagingTraceRelationLink 使用 Span Link 关联上游（默认）
	MessagingTraceRelationLink MessagingTraceRelation = "link"
	// MessagingTraceRelationChildOf 作为上游 Span 的子 Span
	MessagingTraceRelationChildOf MessagingTraceRelation = "child_of"
)

// SpanNameIngest 返回消息接入的 Span 名，如 "ingest.consume metrics.push"
func SpanNameIngest(destination string) string {
	if destination == "" {
		return "ingest.consume"
	}
	return "ingest.consume " + destination
}
