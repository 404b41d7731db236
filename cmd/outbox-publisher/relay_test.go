package main

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"gorm.io/gorm"

	"github.com/supplyhub/marketplace-backend/pkg/config"
	"github.com/supplyhub/marketplace-backend/pkg/db/models"
	"github.com/supplyhub/marketplace-backend/pkg/enums"
	"github.com/supplyhub/marketplace-backend/pkg/logger"
	"github.com/supplyhub/marketplace-backend/pkg/metrics"
	"github.com/supplyhub/marketplace-backend/pkg/outbox"
	"github.com/supplyhub/marketplace-backend/pkg/outbox/registry"
)

func TestDrainKeepsGoingAfterTransientFailure(t *testing.T) {
	first := orderPlacedRow(t, "7", 0)
	second := orderPlacedRow(t, "8", 0)
	store := &memoryEvents{rows: []models.OutboxEvent{first, second}}
	topic := &scriptedTopic{errs: []error{errors.New("unavailable"), nil}}
	relay := newTestRelay(t, store, topic, &memoryDeadLetters{}, config.OutboxConfig{}, nil)

	handled, err := relay.drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, handled)
	assert.Equal(t, []uuid.UUID{first.ID}, store.failed)
	assert.Equal(t, []uuid.UUID{second.ID}, store.published)
}

func TestDrainDeadLettersUnresolvableRows(t *testing.T) {
	row := orderPlacedRow(t, "42", 0)
	row.EventType = "refund_issued"
	store := &memoryEvents{rows: []models.OutboxEvent{row}}
	dlq := &memoryDeadLetters{}
	topic := &scriptedTopic{}
	relay := newTestRelay(t, store, topic, dlq, config.OutboxConfig{}, nil)

	_, err := relay.drain(context.Background())
	require.NoError(t, err)
	require.Len(t, dlq.entries, 1)
	assert.Equal(t, row.ID, dlq.entries[0].EventID)
	assert.Equal(t, enums.DeadLetterUnresolvable, dlq.entries[0].ErrorReason)
	assert.JSONEq(t, string(row.Payload), string(dlq.entries[0].Payload))
	assert.Equal(t, []uuid.UUID{row.ID}, store.terminal)
	assert.Empty(t, topic.sent, "unresolvable rows are never published")
}

func TestDrainDeadLettersAfterLastAttempt(t *testing.T) {
	row := orderPlacedRow(t, "42", 1)
	store := &memoryEvents{rows: []models.OutboxEvent{row}}
	dlq := &memoryDeadLetters{}
	topic := &scriptedTopic{errs: []error{errors.New("deadline exceeded")}}
	relay := newTestRelay(t, store, topic, dlq, config.OutboxConfig{MaxAttempts: 2}, nil)

	_, err := relay.drain(context.Background())
	require.NoError(t, err)
	require.Len(t, dlq.entries, 1)
	assert.Equal(t, enums.DeadLetterMaxAttempts, dlq.entries[0].ErrorReason)
	require.NotNil(t, dlq.entries[0].ErrorMessage)
	assert.Contains(t, *dlq.entries[0].ErrorMessage, "deadline exceeded")
	assert.Empty(t, store.failed)
}

func TestDrainMissingTopicIsTerminal(t *testing.T) {
	row := orderPlacedRow(t, "3", 0)
	store := &memoryEvents{rows: []models.OutboxEvent{row}}
	dlq := &memoryDeadLetters{}
	relay := newTestRelay(t, store, nil, dlq, config.OutboxConfig{}, nil)

	_, err := relay.drain(context.Background())
	require.NoError(t, err)
	require.Len(t, dlq.entries, 1)
	assert.Equal(t, enums.DeadLetterNonRetryable, dlq.entries[0].ErrorReason)
}

func TestDrainDeadLettersRejectedMessages(t *testing.T) {
	row := orderPlacedRow(t, "5", 0)
	store := &memoryEvents{rows: []models.OutboxEvent{row}}
	dlq := &memoryDeadLetters{}
	rejected := classifyPublishError(status.Error(codes.InvalidArgument, "message too large"))
	relay := newTestRelay(t, store, &scriptedTopic{errs: []error{rejected}}, dlq, config.OutboxConfig{}, nil)

	_, err := relay.drain(context.Background())
	require.NoError(t, err)
	require.Len(t, dlq.entries, 1)
	assert.Equal(t, enums.DeadLetterNonRetryable, dlq.entries[0].ErrorReason)
	assert.Empty(t, store.failed)
}

func TestClassifyPublishError(t *testing.T) {
	assert.True(t, registry.IsPermanent(classifyPublishError(status.Error(codes.InvalidArgument, "too large"))))
	assert.False(t, registry.IsPermanent(classifyPublishError(status.Error(codes.Unavailable, "try later"))))
	assert.False(t, registry.IsPermanent(classifyPublishError(errors.New("plain"))))
}

func TestDrainAbortsWhenBookkeepingFails(t *testing.T) {
	store := &memoryEvents{
		rows:       []models.OutboxEvent{orderPlacedRow(t, "1", 0)},
		publishErr: errors.New("connection reset"),
	}
	relay := newTestRelay(t, store, &scriptedTopic{}, &memoryDeadLetters{}, config.OutboxConfig{}, nil)

	_, err := relay.drain(context.Background())
	require.ErrorContains(t, err, "mark published")
}

func TestPublishedMessagesAreOrderedByAggregate(t *testing.T) {
	row := orderPlacedRow(t, "99", 0)
	topic := &scriptedTopic{}
	relay := newTestRelay(t, &memoryEvents{rows: []models.OutboxEvent{row}}, topic, &memoryDeadLetters{}, config.OutboxConfig{}, nil)

	_, err := relay.drain(context.Background())
	require.NoError(t, err)
	require.Len(t, topic.sent, 1)
	msg := topic.sent[0]
	assert.Equal(t, "order:99", msg.OrderingKey)
	assert.Equal(t, "order_placed", msg.Attributes["event_type"])
	assert.Equal(t, "1", msg.Attributes["event_version"])
	assert.Equal(t, row.ID.String(), msg.Attributes["event_id"])
}

func TestDrainRecordsMetrics(t *testing.T) {
	imported := orderPlacedRow(t, "2", 0)
	imported.EventType = enums.EventCatalogImported
	imported.AggregateType = enums.AggregateShop
	imported.Payload = envelope(t, imported.ID, map[string]any{"shop_id": 2, "shop_name": "Gadget Hub", "items_imported": 3})

	store := &memoryEvents{rows: []models.OutboxEvent{orderPlacedRow(t, "1", 0), imported}}
	topic := &scriptedTopic{errs: []error{nil, errors.New("unavailable")}}
	reg := prometheus.NewRegistry()
	relay := newTestRelay(t, store, topic, &memoryDeadLetters{}, config.OutboxConfig{}, metrics.NewOutboxMetrics(reg))

	_, err := relay.drain(context.Background())
	require.NoError(t, err)

	published, err := testutil.GatherAndCount(reg, "outbox_events_published_total")
	require.NoError(t, err)
	assert.Equal(t, 1, published)
	failed, err := testutil.GatherAndCount(reg, "outbox_events_failed_total")
	require.NoError(t, err)
	assert.Equal(t, 1, failed)
}

func TestRunStopsOnCancel(t *testing.T) {
	relay := newTestRelay(t, &memoryEvents{}, &scriptedTopic{}, &memoryDeadLetters{}, config.OutboxConfig{PollIntervalMS: 10}, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := relay.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRunFailsWhenBrokerIsDown(t *testing.T) {
	relay := newTestRelay(t, &memoryEvents{}, &scriptedTopic{}, &memoryDeadLetters{}, config.OutboxConfig{}, nil)
	relay.broker = fakePinger{err: errors.New("no route")}

	err := relay.Run(context.Background())
	require.ErrorContains(t, err, "pubsub ping failed")
}

func TestPacerBacksOffAndResets(t *testing.T) {
	p := newPacer(100*time.Millisecond, 350*time.Millisecond)
	p.jitter = func(d time.Duration) time.Duration { return d }

	assert.Equal(t, 200*time.Millisecond, p.failure())
	assert.Equal(t, 350*time.Millisecond, p.failure())
	assert.Equal(t, 350*time.Millisecond, p.failure())
	assert.Equal(t, 100*time.Millisecond, p.idle())
	assert.Equal(t, 200*time.Millisecond, p.failure())
}

func TestNewRelayRequiresDependencies(t *testing.T) {
	_, err := NewRelay(RelayParams{Logger: logger.Nop()})
	require.Error(t, err)
}

func newTestRelay(t *testing.T, events eventStore, topic *scriptedTopic, dlq deadLetterStore, cfg config.OutboxConfig, m *metrics.OutboxMetrics) *Relay {
	t.Helper()
	resolver, err := registry.NewEventRegistry(config.PubSubConfig{NotificationTopic: "notification-topic"})
	require.NoError(t, err)

	relay, err := NewRelay(RelayParams{
		Outbox:      cfg,
		Logger:      logger.Nop(),
		DB:          fakeDB{},
		Broker:      fakePinger{},
		Events:      events,
		DeadLetters: dlq,
		Resolver:    resolver,
		Topics: func(string) topicPublisher {
			if topic == nil {
				return nil
			}
			return topic
		},
		Metrics: m,
	})
	require.NoError(t, err)
	return relay
}

func orderPlacedRow(t *testing.T, orderID string, attempts int) models.OutboxEvent {
	t.Helper()
	id := uuid.New()
	return models.OutboxEvent{
		ID:            id,
		EventType:     enums.EventOrderPlaced,
		AggregateType: enums.AggregateOrder,
		AggregateID:   orderID,
		Payload:       envelope(t, id, map[string]any{"order_id": 1, "user_id": uuid.NewString(), "total_sum": 120}),
		AttemptCount:  attempts,
		CreatedAt:     time.Now(),
	}
}

func envelope(t *testing.T, id uuid.UUID, data any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	payload, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    id.String(),
		OccurredAt: time.Now(),
		Data:       raw,
	})
	require.NoError(t, err)
	return payload
}

type memoryEvents struct {
	rows       []models.OutboxEvent
	published  []uuid.UUID
	failed     []uuid.UUID
	terminal   []uuid.UUID
	publishErr error
}

func (m *memoryEvents) ClaimPending(_ *gorm.DB, limit, _ int) ([]models.OutboxEvent, error) {
	if len(m.rows) > limit {
		return m.rows[:limit], nil
	}
	return m.rows, nil
}

func (m *memoryEvents) MarkPublished(_ *gorm.DB, id uuid.UUID, _ time.Time) error {
	if m.publishErr != nil {
		return m.publishErr
	}
	m.published = append(m.published, id)
	return nil
}

func (m *memoryEvents) RecordFailure(_ *gorm.DB, id uuid.UUID, _ error) error {
	m.failed = append(m.failed, id)
	return nil
}

func (m *memoryEvents) Bury(_ *gorm.DB, id uuid.UUID, _ error, _ int) error {
	m.terminal = append(m.terminal, id)
	return nil
}

type memoryDeadLetters struct {
	entries []models.OutboxDLQ
}

func (m *memoryDeadLetters) Record(_ *gorm.DB, entry models.OutboxDLQ) error {
	m.entries = append(m.entries, entry)
	return nil
}

type scriptedTopic struct {
	errs []error
	sent []*gcppubsub.Message
}

func (s *scriptedTopic) Publish(_ context.Context, msg *gcppubsub.Message) (string, error) {
	var err error
	if len(s.errs) > 0 {
		err, s.errs = s.errs[0], s.errs[1:]
	}
	if err != nil {
		return "", err
	}
	s.sent = append(s.sent, msg)
	return "msg-" + msg.Attributes["aggregate_id"], nil
}

type fakeDB struct{}

func (fakeDB) Ping(context.Context) error { return nil }

func (fakeDB) WithTx(_ context.Context, fn func(*gorm.DB) error) error { return fn(nil) }

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }
