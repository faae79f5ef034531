package queue

import (
	"context"

	"github.com/DerwenAI/dylifo/pkg/logger"
	"github.com/DerwenAI/dylifo/pkg/pipeline"

	"github.com/rabbitmq/amqp091-go"
)

// MaxDeliveries bounds how often a transiently failing message is retried.
const MaxDeliveries = 3

// HandleProcessingError sends msg to the retry queue when err is transient
// and retries remain, and to the dead letter queue otherwise. The original
// delivery is acked once the copy is published.
func HandleProcessingError(ctx context.Context, ch Publisher, msg amqp091.Delivery, queueName string, processingErr error) {
	retries := 0
	if val, ok := msg.Headers["x-retries"]; ok {
		switch v := val.(type) {
		case int32:
			retries = int(v)
		case int64:
			retries = int(v)
		case int:
			retries = v
		}
	}

	if !pipeline.Retryable(processingErr) || retries >= MaxDeliveries {
		dlqName := queueName + "_dlq"
		logger.Info("[Queue] Sending message to DLQ", "dlq", dlqName, "class", pipeline.Classify(processingErr))
		headers := amqp091.Table{}
		for k, v := range msg.Headers {
			headers[k] = v
		}
		headers["x-error"] = processingErr.Error()

		if err := PublishFIFO(ctx, ch, dlqName, FailureResult(msg.Body, processingErr), headers); err != nil {
			logger.Error("[Queue] Failed to publish to DLQ", "dlq", dlqName, "err", err)
			msg.Nack(false, true)
			return
		}
		msg.Ack(false)
		return
	}

	retryName := queueName + "_retry"
	headers := msg.Headers
	if headers == nil {
		headers = amqp091.Table{}
	}
	headers["x-retries"] = int32(retries + 1)

	if err := PublishFIFO(ctx, ch, retryName, msg.Body, headers); err != nil {
		logger.Error("[Queue] Failed to publish to retry queue", "retry_queue", retryName, "err", err)
		msg.Nack(false, true)
		return
	}
	msg.Ack(false)
}
