package scheduler

import (
	"context"

	mqcontracts "habitreminder/contracts/mq"
	"habitreminder/pkg/mq"
)

// PublisherTrigger publishes fired reminders on the reminder.due routing key.
type PublisherTrigger struct {
	pub *mq.Publisher
}

func NewPublisherTrigger(pub *mq.Publisher) *PublisherTrigger {
	return &PublisherTrigger{pub: pub}
}

func (t *PublisherTrigger) Trigger(ctx context.Context, event mqcontracts.ReminderDuePayload) error {
	return t.pub.PublishWithContext(ctx, mq.RoutingKeyReminderDue, event)
}
