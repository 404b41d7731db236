package outbox

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/supplyhub/marketplace-backend/pkg/db/models"
	"github.com/supplyhub/marketplace-backend/pkg/enums"
	"github.com/supplyhub/marketplace-backend/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrNoTransaction = errors.New("outbox emit requires a transaction")
	ErrNoAggregateID = errors.New("outbox event requires an aggregate id")
)

// DomainEvent is what business services hand to Emit.
type DomainEvent struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	AggregateID   string
	Actor         *ActorRef
	Data          any
	Version       int
	OccurredAt    time.Time
}

func (e *DomainEvent) normalize(now time.Time) error {
	e.AggregateID = strings.TrimSpace(e.AggregateID)
	switch {
	case e.AggregateID == "":
		return ErrNoAggregateID
	case !e.EventType.IsValid():
		return fmt.Errorf("unknown event type %q", e.EventType)
	case !e.AggregateType.IsValid():
		return fmt.Errorf("unknown aggregate type %q", e.AggregateType)
	}
	if e.Version == 0 {
		e.Version = CurrentVersion
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = now
	}
	e.OccurredAt = e.OccurredAt.UTC()
	return nil
}

type appender interface {
	Append(tx *gorm.DB, event models.OutboxEvent) error
}

// Service queues events in the same transaction as the change they describe.
// The relay in cmd/outbox-publisher ships them afterwards.
type Service struct {
	repo appender
	logg *logger.Logger
	now  func() time.Time
}

func NewService(repo *Repository, logg *logger.Logger) *Service {
	return &Service{repo: repo, logg: logg, now: time.Now}
}

// Emit stores event through tx. A rollback of tx discards the event too.
func (s *Service) Emit(ctx context.Context, tx *gorm.DB, event DomainEvent) error {
	if tx == nil {
		return ErrNoTransaction
	}
	if err := event.normalize(s.now()); err != nil {
		return err
	}

	eventID := uuid.NewString()
	payload, err := seal(event, eventID)
	if err != nil {
		return err
	}
	if err := s.repo.Append(tx, models.OutboxEvent{
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       payload,
	}); err != nil {
		return fmt.Errorf("queue %s: %w", event.EventType, err)
	}

	if s.logg != nil {
		s.logg.Debug(s.logg.WithFields(ctx, map[string]any{
			"event_id":       eventID,
			"event_type":     event.EventType,
			"aggregate_type": event.AggregateType,
			"aggregate_id":   event.AggregateID,
		}), "outbox event queued")
	}
	return nil
}
