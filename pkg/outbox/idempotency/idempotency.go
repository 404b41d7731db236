package idempotency

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/supplyhub/marketplace-backend/pkg/redis"
)

const (
	defaultLease = 5 * time.Minute

	markerProcessing = "processing"
	markerDone       = "done"
)

// Outcome is the result of trying to claim an event.
type Outcome int

const (
	// Claimed: the caller owns the event until Complete or Release.
	Claimed Outcome = iota
	// Duplicate: the event was already handled and should be acknowledged.
	Duplicate
	// InFlight: another delivery holds the lease; retry later.
	InFlight
)

func (o Outcome) String() string {
	switch o {
	case Claimed:
		return "claimed"
	case Duplicate:
		return "duplicate"
	case InFlight:
		return "in_flight"
	}
	return "unknown"
}

// Store is the redis surface the manager needs.
type Store interface {
	redis.IdempotencyStore
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

// Manager dedupes event deliveries per consumer. A claim starts as a short
// processing lease so a crashed worker cannot block redelivery for the full
// retention window; Complete turns it into a long-lived done marker.
// Keys look like `mkt:idempotency:evt:<consumer>:<event_id>`.
type Manager struct {
	store Store
	ttl   time.Duration
	lease time.Duration
}

type Option func(*Manager)

// WithLease sets how long an unfinished claim blocks other deliveries.
func WithLease(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.lease = d
		}
	}
}

func NewManager(store Store, ttl time.Duration, opts ...Option) (*Manager, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	m := &Manager{store: store, ttl: ttl, lease: defaultLease}
	for _, opt := range opts {
		opt(m)
	}
	if ttl > 0 && m.lease > ttl {
		m.lease = ttl
	}
	return m, nil
}

// Claim tries to take the processing lease for eventID.
func (m *Manager) Claim(ctx context.Context, consumer, eventID string) (Outcome, error) {
	key, err := m.key(consumer, eventID)
	if err != nil {
		return InFlight, err
	}
	won, err := m.store.SetNX(ctx, key, markerProcessing, m.lease)
	if err != nil {
		return InFlight, err
	}
	if won {
		return Claimed, nil
	}

	marker, err := m.store.Get(ctx, key)
	switch {
	case redis.IsMiss(err):
		// Lease expired between the two calls; let the broker redeliver.
		return InFlight, nil
	case err != nil:
		return InFlight, err
	case marker == markerDone:
		return Duplicate, nil
	}
	return InFlight, nil
}

// Complete records eventID as handled for the full retention window.
func (m *Manager) Complete(ctx context.Context, consumer, eventID string) error {
	key, err := m.key(consumer, eventID)
	if err != nil {
		return err
	}
	return m.store.Set(ctx, key, markerDone, m.ttl)
}

// Release drops a claim so a failed delivery can be retried.
func (m *Manager) Release(ctx context.Context, consumer, eventID string) error {
	key, err := m.key(consumer, eventID)
	if err != nil {
		return err
	}
	return m.store.Del(ctx, key)
}

func (m *Manager) key(consumer, eventID string) (string, error) {
	consumer = strings.TrimSpace(consumer)
	eventID = strings.TrimSpace(eventID)
	if consumer == "" {
		return "", errors.New("consumer name is required")
	}
	if eventID == "" {
		return "", errors.New("event id is required")
	}
	return m.store.IdempotencyKey("evt:"+consumer, eventID), nil
}
