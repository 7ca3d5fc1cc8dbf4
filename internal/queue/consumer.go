package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/urbanair/aqkg/pkg/common"
	"github.com/urbanair/aqkg/pkg/graph"
	"github.com/urbanair/aqkg/pkg/logger"

	"github.com/rabbitmq/amqp091-go"
)

// HandlerFunc processes one message body.
type HandlerFunc func(ctx context.Context, body []byte) (graph.MergeStats, error)

// Consume delivers messages of queueName to handle one at a time until ctx
// is cancelled or the delivery channel closes. Failed messages are retried
// through the retry queue and dead-lettered after MaxRetries attempts.
// Messages that can never succeed are dead-lettered right away.
func Consume(ctx context.Context, conn *amqp091.Connection, queueName string, handle HandlerFunc) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	if err := SetupQueues(ch, []string{queueName}); err != nil {
		return err
	}
	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	msgs, err := ch.Consume(
		queueName,
		queueName+"_consumer",
		false, // autoAck
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to start consuming %s: %w", queueName, err)
	}

	logger.Info("[Queue] Listening for messages", "queue", queueName)
	for {
		select {
		case <-ctx.Done():
			logger.Info("[Queue] Stopping consumer", "queue", queueName)
			return nil
		case msg, ok := <-msgs:
			if !ok {
				logger.Info("[Queue] Message channel closed", "queue", queueName)
				return nil
			}
			processMessage(ctx, ch, msg, queueName, handle)
		}
	}
}

func processMessage(ctx context.Context, ch Publisher, msg amqp091.Delivery, queueName string, handle HandlerFunc) {
	start := time.Now()
	logger.Info("[Queue] Received message", "queue", queueName)

	if _, err := handle(ctx, msg.Body); err != nil {
		logger.Error("[Queue] Error processing message", "queue", queueName, "err", err)
		handleProcessingError(ctx, ch, msg, queueName, isPermanent(err))
		return
	}
	if err := msg.Ack(false); err != nil {
		logger.Error("[Queue] Failed to ack message", "err", err)
	}
	logger.Info("[Queue] Message processed successfully",
		"queue", queueName,
		"duration", time.Since(start).Round(time.Millisecond),
	)
}

// handleProcessingError republishes msg to the retry queue with an
// incremented x-retries header, or to the dead-letter queue once the
// retries are used up or the failure is permanent. The original delivery
// is requeued if publishing fails.
func handleProcessingError(ctx context.Context, ch Publisher, msg amqp091.Delivery, queueName string, permanent bool) {
	retries := retryCount(msg.Headers)
	deadLetter := permanent || retries >= MaxRetries

	target := queueName + "_retry"
	if deadLetter {
		target = queueName + "_dlq"
		logger.Warn("[Queue] Sending message to DLQ", "dlq", target, "retries", retries, "permanent", permanent)
	}

	headers := amqp091.Table{}
	for k, v := range msg.Headers {
		headers[k] = v
	}
	if !deadLetter {
		headers["x-retries"] = int32(retries + 1)
	}

	err := ch.PublishWithContext(ctx, "", target, false, false, amqp091.Publishing{
		ContentType:  msg.ContentType,
		Body:         msg.Body,
		Headers:      headers,
		DeliveryMode: amqp091.Persistent,
	})
	if err != nil {
		logger.Error("[Queue] Failed to republish message", "queue", target, "err", err)
		_ = msg.Nack(false, true)
		return
	}
	_ = msg.Ack(false)
}

// isPermanent reports whether retrying err cannot help: the message itself
// or the fragment it carries is invalid.
func isPermanent(err error) bool {
	return errors.Is(err, ErrInvalidMessage) ||
		errors.Is(err, common.ErrMalformedRelation) ||
		errors.Is(err, common.ErrMissingKey)
}

func retryCount(headers amqp091.Table) int {
	switch v := headers["x-retries"].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	}
	return 0
}
