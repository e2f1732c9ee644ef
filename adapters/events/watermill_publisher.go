package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/layer-3/gatekeeper/core"
	"github.com/layer-3/gatekeeper/ports"
)

// DefaultEmailTopic carries email delivery requests
const DefaultEmailTopic = "gatekeeper.email"

// EmailPublisher implements the Mailer interface by queueing emails on a
// Watermill topic; a mailer worker delivers them.
type EmailPublisher struct {
	publisher message.Publisher
	topic     string
}

var _ ports.Mailer = (*EmailPublisher)(nil)

// NewEmailPublisher creates a publisher; an empty topic selects
// DefaultEmailTopic.
func NewEmailPublisher(publisher message.Publisher, topic string) *EmailPublisher {
	if topic == "" {
		topic = DefaultEmailTopic
	}
	return &EmailPublisher{
		publisher: publisher,
		topic:     topic,
	}
}

// Send publishes the email request
func (p *EmailPublisher) Send(ctx context.Context, email core.Email) error {
	payload, err := json.Marshal(email)
	if err != nil {
		return fmt.Errorf("failed to marshal email: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	msg.Metadata.Set("template", string(email.Template))

	if err := p.publisher.Publish(p.topic, msg); err != nil {
		return fmt.Errorf("failed to publish email: %w", err)
	}

	return nil
}
