package notification

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"habitreminder/internal/model"
	"habitreminder/pkg/logger"
)

// Sender delivers a text message to a chat.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// Dispatcher renders reminder payloads and sends them.
type Dispatcher struct {
	sender Sender
	logger *zap.Logger
}

func NewDispatcher(sender Sender, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{sender: sender, logger: logger}
}

// Render builds the reminder text for p.
func Render(p model.ReminderPayload) string {
	if p.Reward != "" {
		return fmt.Sprintf("Reminder to perform %s. Completing it may earn you %s!", p.Action, p.Reward)
	}
	return fmt.Sprintf("Reminder to perform %s.", p.Action)
}

// Dispatch renders p and sends it to p.ChatID. The sender's error is returned unchanged.
func (d *Dispatcher) Dispatch(ctx context.Context, p model.ReminderPayload) error {
	text := Render(p)
	if err := d.sender.SendMessage(ctx, p.ChatID, text); err != nil {
		return err
	}
	logger.WithTrace(ctx, d.logger).Info("Reminder sent",
		zap.Int64("chat_id", p.ChatID),
		zap.String("action", p.Action),
	)
	return nil
}
