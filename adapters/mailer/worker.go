package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-logr/logr"
	"github.com/layer-3/gatekeeper/core"
)

// Worker consumes email requests from a topic and delivers them. Every
// message is acked; failed deliveries are logged and dropped.
type Worker struct {
	subscriber message.Subscriber
	topic      string
	renderer   *Renderer
	sender     Sender
	timeout    time.Duration
	logger     logr.Logger
}

// WorkerConfig configures a Worker
type WorkerConfig struct {
	Topic       string
	SendTimeout time.Duration
	Logger      logr.Logger
}

func NewWorker(subscriber message.Subscriber, sender Sender, cfg WorkerConfig) (*Worker, error) {
	renderer, err := NewRenderer()
	if err != nil {
		return nil, err
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 30 * time.Second
	}
	logger := cfg.Logger
	if logger.GetSink() == nil {
		logger = logr.Discard()
	}
	return &Worker{
		subscriber: subscriber,
		topic:      cfg.Topic,
		renderer:   renderer,
		sender:     sender,
		timeout:    cfg.SendTimeout,
		logger:     logger.WithValues("topic", cfg.Topic),
	}, nil
}

// Run blocks until ctx is done or the subscription closes.
func (w *Worker) Run(ctx context.Context) error {
	messages, err := w.subscriber.Subscribe(ctx, w.topic)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", w.topic, err)
	}

	w.logger.Info("mailer worker started")
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			w.handle(ctx, msg)
		}
	}
}

func (w *Worker) handle(ctx context.Context, msg *message.Message) {
	defer msg.Ack()

	email, err := decodeEmail(msg.Payload)
	if err != nil {
		w.logger.Error(err, "dropping malformed email request", "message", msg.UUID)
		return
	}

	subject, body, err := w.renderer.Render(email)
	if err != nil {
		w.logger.Error(err, "failed to render email", "message", msg.UUID, "template", email.Template)
		return
	}

	sendCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()
	if err := w.sender.Send(sendCtx, email.Recipient, subject, body); err != nil {
		w.logger.Error(err, "failed to deliver email", "message", msg.UUID, "template", email.Template)
		return
	}
	w.logger.V(1).Info("email delivered", "message", msg.UUID, "template", email.Template)
}

func decodeEmail(payload []byte) (core.Email, error) {
	var email core.Email
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&email); err != nil {
		return core.Email{}, fmt.Errorf("failed to decode email: %w", err)
	}
	if email.Template == "" || email.Recipient == "" {
		return core.Email{}, errors.New("email request misses template or recipient")
	}
	return email, nil
}
