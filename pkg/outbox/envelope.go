package outbox

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/supplyhub/marketplace-backend/pkg/enums"
)

// CurrentVersion is stamped on envelopes whose event does not pick a version.
const CurrentVersion = 1

var (
	ErrEnvelopeVersion = errors.New("envelope version must be positive")
	ErrEnvelopeEventID = errors.New("envelope event id missing")
)

// ActorRef identifies who produced the event.
type ActorRef struct {
	UserID   uuid.UUID      `json:"userId"`
	UserType enums.UserType `json:"userType,omitempty"`
}

// PayloadEnvelope is the JSON document stored in outbox_events.payload and
// published verbatim as the message body. EventID doubles as the consumer
// dedupe key.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

func seal(event DomainEvent, eventID string) ([]byte, error) {
	data, err := json.Marshal(event.Data)
	if err != nil {
		return nil, fmt.Errorf("encode %s data: %w", event.EventType, err)
	}
	return json.Marshal(PayloadEnvelope{
		Version:    event.Version,
		EventID:    eventID,
		OccurredAt: event.OccurredAt,
		Actor:      event.Actor,
		Data:       data,
	})
}

// OpenEnvelope parses a stored or delivered envelope and checks the fields
// every reader relies on.
func OpenEnvelope(raw []byte) (PayloadEnvelope, error) {
	var env PayloadEnvelope
	if err := json.Unmarshal(bytes.TrimSpace(raw), &env); err != nil {
		return PayloadEnvelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Version <= 0 {
		return env, ErrEnvelopeVersion
	}
	if env.EventID == "" {
		return env, ErrEnvelopeEventID
	}
	return env, nil
}
