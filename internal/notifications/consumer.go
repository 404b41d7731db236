package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/supplyhub/marketplace-backend/pkg/enums"
	"github.com/supplyhub/marketplace-backend/pkg/logger"
	"github.com/supplyhub/marketplace-backend/pkg/outbox"
	"github.com/supplyhub/marketplace-backend/pkg/outbox/idempotency"
	"github.com/supplyhub/marketplace-backend/pkg/outbox/registry"
)

const notificationConsumer = "notifications"

type subscriber interface {
	Receive(ctx context.Context, f func(context.Context, *pubsub.Message)) error
}

// ConsumerParams bundles the consumer's collaborators.
type ConsumerParams struct {
	Repo         Repository
	Managers     managerLookup
	Subscription subscriber
	Idempotency  *idempotency.Manager
	Events       eventDecoder
	Logger       *logger.Logger
}

type eventDecoder interface {
	Decode(eventType enums.OutboxEventType, version int, data json.RawMessage) (any, error)
}

// Consumer turns published domain events into per-user notification rows.
type Consumer struct {
	repo         Repository
	managers     managerLookup
	subscription subscriber
	idempotency  *idempotency.Manager
	events       eventDecoder
	logg         *logger.Logger
}

// NewConsumer builds the notifications consumer.
func NewConsumer(params ConsumerParams) (*Consumer, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if params.Managers == nil {
		return nil, fmt.Errorf("shop manager lookup required")
	}
	if params.Subscription == nil {
		return nil, fmt.Errorf("notification subscription required")
	}
	if params.Idempotency == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	events := params.Events
	if events == nil {
		reg, err := registry.New(registry.Routes("")...)
		if err != nil {
			return nil, err
		}
		events = reg
	}
	return &Consumer{
		repo:         params.Repo,
		managers:     params.Managers,
		subscription: params.Subscription,
		idempotency:  params.Idempotency,
		events:       events,
		logg:         params.Logger,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack     bool
	nack    bool
	created int
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	rawType := msg.Attributes["event_type"]
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": rawType,
	})

	eventType, err := enums.ParseOutboxEventType(rawType)
	if err != nil {
		c.logg.Info(logCtx, "skipping unknown event")
		return processResult{ack: true}
	}

	envelope, err := outbox.OpenEnvelope(msg.Data)
	if err != nil {
		c.logg.Error(logCtx, "dropping malformed envelope", err)
		return processResult{ack: true}
	}
	logCtx = c.logg.WithField(logCtx, "event_id", envelope.EventID)

	outcome, err := c.idempotency.Claim(ctx, notificationConsumer, envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	switch outcome {
	case idempotency.Duplicate:
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	case idempotency.InFlight:
		c.logg.Info(logCtx, "event is being processed by another delivery")
		return processResult{nack: true}
	}

	payload, err := c.events.Decode(eventType, envelope.Version, envelope.Data)
	if err != nil {
		c.logg.Error(logCtx, "failed to decode payload", err)
		c.complete(logCtx, envelope.EventID)
		return processResult{ack: true}
	}

	rows, err := build(ctx, c.managers, payload)
	if errors.Is(err, errInvalidPayload) {
		c.logg.Error(logCtx, "event carries no deliverable notification", err)
		c.complete(logCtx, envelope.EventID)
		return processResult{ack: true}
	}
	if err == nil {
		err = c.repo.CreateBatch(ctx, rows)
	}
	if err != nil {
		c.logg.Error(logCtx, "notification handling failed", err)
		if releaseErr := c.idempotency.Release(ctx, notificationConsumer, envelope.EventID); releaseErr != nil {
			c.logg.Error(logCtx, "failed to release idempotency claim", releaseErr)
		}
		return processResult{nack: true}
	}

	c.complete(logCtx, envelope.EventID)
	c.logg.Info(c.logg.WithField(logCtx, "notifications", len(rows)), "notifications recorded")
	return processResult{ack: true, created: len(rows)}
}

// complete upgrades the processing lease to a done marker. A failure here
// only risks a duplicate delivery once the lease lapses, so it is logged.
func (c *Consumer) complete(ctx context.Context, eventID string) {
	if err := c.idempotency.Complete(ctx, notificationConsumer, eventID); err != nil {
		c.logg.Error(ctx, "failed to mark event processed", err)
	}
}
