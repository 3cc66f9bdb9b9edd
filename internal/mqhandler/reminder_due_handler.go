package mqhandler

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	mqcontracts "habitreminder/contracts/mq"
	"habitreminder/internal/model"
	"habitreminder/pkg/logger"
	"habitreminder/pkg/metrics"
	"habitreminder/pkg/mq"
	"habitreminder/pkg/util"
)

const handlerName = "reminder"

type ReminderDispatcher interface {
	Dispatch(ctx context.Context, p model.ReminderPayload) error
}

type Deduper interface {
	AcquireOnce(ctx context.Context, handler, id string) bool
	Release(ctx context.Context, handler, id string)
}

type RetryCounter interface {
	IncrementAndGet(ctx context.Context, key string) (int64, error)
	Reset(ctx context.Context, key string) error
}

type DeadLetterPublisher interface {
	PublishToDLQ(ctx context.Context, routingKey string, payload []byte, originalError, failedAt string) error
}

// ReminderDueHandler delivers fired reminders. Retryable delivery failures are requeued until
// retryMax is exceeded, then the message goes to the dead letter queue.
type ReminderDueHandler struct {
	dispatcher   ReminderDispatcher
	deduper      Deduper
	retryCounter RetryCounter
	dlq          DeadLetterPublisher
	retryMax     int64
	logger       *zap.Logger
}

func NewReminderDueHandler(
	dispatcher ReminderDispatcher,
	deduper Deduper,
	retryCounter RetryCounter,
	dlq DeadLetterPublisher,
	retryMax int64,
	logger *zap.Logger,
) *ReminderDueHandler {
	return &ReminderDueHandler{
		dispatcher:   dispatcher,
		deduper:      deduper,
		retryCounter: retryCounter,
		dlq:          dlq,
		retryMax:     retryMax,
		logger:       logger,
	}
}

// Handle returns nil to ack and an error to nack with requeue.
func (h *ReminderDueHandler) Handle(ctx context.Context, raw json.RawMessage) error {
	log := logger.WithTrace(ctx, h.logger)

	var p mqcontracts.ReminderDuePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		// JSON decode 错误 - 不可重试
		log.Error("Failed to unmarshal reminder payload (non-retryable)", zap.Error(err))
		h.deadLetter(ctx, raw, err)
		return nil
	}
	if p.DeliveryID == "" || p.ChatID == 0 || p.Action == "" {
		err := errors.New("reminder payload missing delivery_id, chat_id or action")
		log.Error("Invalid reminder payload", zap.String("job", p.JobName), zap.Error(err))
		h.deadLetter(ctx, raw, err)
		return nil
	}

	log = log.With(
		zap.String("delivery_id", p.DeliveryID),
		zap.String("job", p.JobName),
		zap.Int64("chat_id", p.ChatID),
	)

	// Redis 去重
	if !h.deduper.AcquireOnce(ctx, handlerName, p.DeliveryID) {
		metrics.IncrementReminderDelivery("duplicate")
		return nil
	}

	retryKey := util.FormatRetryKey(handlerName, p.DeliveryID)
	err := h.dispatcher.Dispatch(ctx, model.ReminderPayload{
		Action: p.Action,
		ChatID: p.ChatID,
		Reward: p.Reward,
	})
	if err == nil {
		_ = h.retryCounter.Reset(ctx, retryKey)
		metrics.IncrementReminderDelivery("sent")
		return nil
	}

	isRetryable, errType := util.IsRetryableError(err)
	if !isRetryable {
		metrics.IncrementReminderDelivery("failed")
		log.Error("Reminder delivery failed (non-retryable)", zap.String("error_type", errType), zap.Error(err))
		h.deadLetter(ctx, raw, err)
		return nil
	}

	retryCount, cerr := h.retryCounter.IncrementAndGet(ctx, retryKey)
	if cerr != nil {
		// 无法计数就无法限制重试次数，直接进入死信队列
		metrics.IncrementReminderDelivery("dropped")
		log.Error("Retry counter unavailable, dead-lettering",
			zap.String("error_type", errType),
			zap.NamedError("counter_error", cerr),
			zap.Error(err),
		)
		h.deadLetter(ctx, raw, errors.Join(err, cerr))
		return nil
	}

	if util.ShouldRetry(retryCount, h.retryMax, isRetryable) {
		// 释放去重锁，让重新投递的消息可以再次处理
		h.deduper.Release(ctx, handlerName, p.DeliveryID)
		metrics.IncrementReminderDelivery("retried")
		log.Warn("Reminder delivery failed, will retry",
			zap.String("error_type", errType),
			zap.Int64("retry", retryCount),
			zap.Int64("retry_max", h.retryMax),
			zap.Error(err),
		)
		return err
	}

	metrics.IncrementReminderDelivery("dropped")
	log.Error("Reminder delivery retries exhausted",
		zap.String("error_type", errType),
		zap.Int64("retry", retryCount),
		zap.Error(err),
	)
	_ = h.retryCounter.Reset(ctx, retryKey)
	h.deadLetter(ctx, raw, err)
	return nil
}

func (h *ReminderDueHandler) deadLetter(ctx context.Context, raw []byte, cause error) {
	if h.dlq == nil {
		return
	}
	if err := h.dlq.PublishToDLQ(ctx, mq.RoutingKeyReminderDue, raw, cause.Error(), "worker"); err != nil {
		logger.WithTrace(ctx, h.logger).Error("Failed to publish to DLQ", zap.Error(err))
	}
}
