package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/supplyhub/marketplace-backend/pkg/config"
	"github.com/supplyhub/marketplace-backend/pkg/db/models"
	"github.com/supplyhub/marketplace-backend/pkg/enums"
	"github.com/supplyhub/marketplace-backend/pkg/logger"
	"github.com/supplyhub/marketplace-backend/pkg/metrics"
	"github.com/supplyhub/marketplace-backend/pkg/outbox/registry"
)

const (
	defaultBatchSize   = 50
	defaultMaxAttempts = 10
	publishTimeout     = 15 * time.Second
	maxIdleBackoff     = 10 * time.Second
)

type txRunner interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type eventStore interface {
	ClaimPending(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublished(tx *gorm.DB, id uuid.UUID, at time.Time) error
	RecordFailure(tx *gorm.DB, id uuid.UUID, cause error) error
	Bury(tx *gorm.DB, id uuid.UUID, cause error, ceiling int) error
}

type deadLetterStore interface {
	Record(tx *gorm.DB, entry models.OutboxDLQ) error
}

type eventResolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

// topicPublisher sends one message and waits for the server ID.
type topicPublisher interface {
	Publish(ctx context.Context, msg *gcppubsub.Message) (string, error)
}

type pinger interface {
	Ping(context.Context) error
}

// outcome is what happened to a single outbox row in a drain pass.
type outcome int

const (
	outcomePublished outcome = iota
	outcomeRetry
	outcomeDeadLettered
)

type RelayParams struct {
	Outbox      config.OutboxConfig
	Logger      *logger.Logger
	DB          txRunner
	Broker      pinger
	Events      eventStore
	DeadLetters deadLetterStore
	Resolver    eventResolver
	Topics      func(topic string) topicPublisher
	Metrics     *metrics.OutboxMetrics
}

// Relay moves committed outbox rows (order placed, catalog imported, user
// registered) onto Pub/Sub. Rows are claimed with SKIP LOCKED inside one
// transaction per batch, so several relays can run side by side.
type Relay struct {
	logg        *logger.Logger
	db          txRunner
	broker      pinger
	events      eventStore
	deadLetters deadLetterStore
	resolver    eventResolver
	topics      func(topic string) topicPublisher
	metrics     *metrics.OutboxMetrics
	batchSize   int
	maxAttempts int
	pace        *pacer
}

func NewRelay(p RelayParams) (*Relay, error) {
	switch {
	case p.Logger == nil:
		return nil, errors.New("logger is required")
	case p.DB == nil:
		return nil, errors.New("database client is required")
	case p.Broker == nil:
		return nil, errors.New("pubsub client is required")
	case p.Events == nil:
		return nil, errors.New("outbox repository is required")
	case p.DeadLetters == nil:
		return nil, errors.New("dlq repository is required")
	case p.Resolver == nil:
		return nil, errors.New("event registry is required")
	case p.Topics == nil:
		return nil, errors.New("topic publisher factory is required")
	}

	batch := p.Outbox.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	attempts := p.Outbox.MaxAttempts
	if attempts <= 0 {
		attempts = defaultMaxAttempts
	}

	return &Relay{
		logg:        p.Logger,
		db:          p.DB,
		broker:      p.Broker,
		events:      p.Events,
		deadLetters: p.DeadLetters,
		resolver:    p.Resolver,
		topics:      p.Topics,
		metrics:     p.Metrics,
		batchSize:   batch,
		maxAttempts: attempts,
		pace:        newPacer(p.Outbox.PollInterval(), maxIdleBackoff),
	}, nil
}

// Run drains the outbox until ctx is canceled. Full batches loop straight
// back; empty batches wait one poll interval; errors back off exponentially.
func (r *Relay) Run(ctx context.Context) error {
	for _, dep := range []struct {
		name string
		p    pinger
	}{{"database", r.db}, {"pubsub", r.broker}} {
		if err := dep.p.Ping(ctx); err != nil {
			r.logg.Error(ctx, dep.name+" ping failed", err)
			return fmt.Errorf("%s ping failed: %w", dep.name, err)
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			r.logg.Info(ctx, "outbox relay stopping")
			return err
		}

		handled, err := r.drain(ctx)
		var wait time.Duration
		switch {
		case err != nil:
			r.logg.Error(ctx, "outbox relay batch failed", err)
			wait = r.pace.failure()
		case handled > 0:
			r.pace.reset()
			continue
		default:
			wait = r.pace.idle()
		}

		if err := sleepCtx(ctx, wait); err != nil {
			return err
		}
	}
}

// drain claims one batch and settles every row in it. It returns how many
// rows were claimed.
func (r *Relay) drain(ctx context.Context) (int, error) {
	handled := 0
	err := r.db.WithTx(ctx, func(tx *gorm.DB) error {
		batch, err := r.events.ClaimPending(tx, r.batchSize, r.maxAttempts)
		if err != nil {
			return err
		}
		handled = len(batch)
		for _, event := range batch {
			if _, err := r.settle(ctx, tx, event); err != nil {
				return err
			}
		}
		return nil
	})
	return handled, err
}

// settle publishes one row and records the result. The returned error is
// only set when bookkeeping fails, which aborts the batch transaction.
func (r *Relay) settle(ctx context.Context, tx *gorm.DB, event models.OutboxEvent) (outcome, error) {
	ctx = r.logg.WithFields(ctx, map[string]any{
		"outbox_id":      event.ID.String(),
		"event_type":     event.EventType,
		"aggregate_type": event.AggregateType,
		"aggregate_id":   event.AggregateID,
		"attempt_count":  event.AttemptCount,
	})

	resolved, err := r.resolver.Resolve(event)
	if err != nil {
		return outcomeDeadLettered, r.deadLetter(ctx, tx, event, enums.DeadLetterUnresolvable, err)
	}
	ctx = r.logg.WithFields(ctx, map[string]any{
		"event_id": resolved.Envelope.EventID,
		"topic":    resolved.Route.Topic,
	})

	serverID, err := r.publish(ctx, event, resolved)
	if err == nil {
		if markErr := r.events.MarkPublished(tx, event.ID, time.Now()); markErr != nil {
			return outcomePublished, fmt.Errorf("mark published %s: %w", event.ID, markErr)
		}
		r.metrics.IncPublished(string(event.EventType))
		r.logg.Info(r.logg.WithField(ctx, "message_id", serverID), "outbox event published")
		return outcomePublished, nil
	}

	if registry.IsPermanent(err) {
		return outcomeDeadLettered, r.deadLetter(ctx, tx, event, enums.DeadLetterNonRetryable, err)
	}
	if event.AttemptCount+1 >= r.maxAttempts {
		exhausted := fmt.Errorf("max publish attempts reached: %w", err)
		return outcomeDeadLettered, r.deadLetter(ctx, tx, event, enums.DeadLetterMaxAttempts, exhausted)
	}

	r.logg.Warn(r.logg.WithField(ctx, "error", err.Error()), "outbox publish failed, will retry")
	r.metrics.IncFailed(string(event.EventType))
	if markErr := r.events.RecordFailure(tx, event.ID, err); markErr != nil {
		return outcomeRetry, fmt.Errorf("mark failure %s: %w", event.ID, markErr)
	}
	return outcomeRetry, nil
}

func (r *Relay) publish(ctx context.Context, event models.OutboxEvent, resolved *registry.ResolvedEvent) (string, error) {
	topic := resolved.Route.Topic
	pub := r.topics(topic)
	if pub == nil {
		return "", registry.Permanent(fmt.Errorf("publisher not configured for topic %s", topic))
	}

	publishCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	return pub.Publish(publishCtx, buildMessage(event, resolved))
}

// buildMessage keys messages by aggregate so consumers see events for one
// order or shop in the order they were written.
func buildMessage(event models.OutboxEvent, resolved *registry.ResolvedEvent) *gcppubsub.Message {
	return &gcppubsub.Message{
		Data:        event.Payload,
		OrderingKey: string(event.AggregateType) + ":" + event.AggregateID,
		Attributes: map[string]string{
			"event_id":       resolved.Envelope.EventID,
			"event_type":     string(event.EventType),
			"event_version":  strconv.Itoa(resolved.Envelope.Version),
			"aggregate_type": string(event.AggregateType),
			"aggregate_id":   event.AggregateID,
			"created_at":     event.CreatedAt.UTC().Format(time.RFC3339Nano),
		},
	}
}

func (r *Relay) deadLetter(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, reason enums.DeadLetterReason, cause error) error {
	r.logg.Warn(r.logg.WithFields(ctx, map[string]any{
		"error_reason": reason,
		"error":        cause.Error(),
	}), "outbox event moved to dead letters")

	msg := cause.Error()
	entry := models.OutboxDLQ{
		EventID:       event.ID,
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       event.Payload,
		ErrorReason:   reason,
		ErrorMessage:  &msg,
		AttemptCount:  event.AttemptCount,
		FailedAt:      time.Now().UTC(),
	}
	if err := r.deadLetters.Record(tx, entry); err != nil {
		return fmt.Errorf("insert dlq %s: %w", event.ID, err)
	}
	if err := r.events.Bury(tx, event.ID, cause, r.maxAttempts); err != nil {
		return fmt.Errorf("mark terminal %s: %w", event.ID, err)
	}
	r.metrics.IncDeadLettered(string(event.EventType), string(reason))
	return nil
}
