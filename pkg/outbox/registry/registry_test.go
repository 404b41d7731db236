package registry

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supplyhub/marketplace-backend/pkg/config"
	"github.com/supplyhub/marketplace-backend/pkg/db/models"
	"github.com/supplyhub/marketplace-backend/pkg/enums"
	"github.com/supplyhub/marketplace-backend/pkg/outbox"
	"github.com/supplyhub/marketplace-backend/pkg/outbox/payloads"
)

func TestResolveDecodesStoredRow(t *testing.T) {
	reg := newTestRegistry(t)
	userID := uuid.New()

	resolved, err := reg.Resolve(models.OutboxEvent{
		EventType:     enums.EventOrderPlaced,
		AggregateType: enums.AggregateOrder,
		AggregateID:   "17",
		Payload: envelope(t, 1, payloads.OrderPlacedEvent{
			OrderID:  17,
			UserID:   userID,
			Status:   enums.OrderStatusNew,
			ShopIDs:  []int64{3},
			TotalSum: 250,
		}),
	})
	require.NoError(t, err)
	assert.Equal(t, "notification-topic", resolved.Route.Topic)
	assert.NotEmpty(t, resolved.Envelope.EventID)
	assert.False(t, resolved.Envelope.OccurredAt.IsZero())

	placed, ok := resolved.Payload.(*payloads.OrderPlacedEvent)
	require.True(t, ok, "payload type %T", resolved.Payload)
	assert.Equal(t, userID, placed.UserID)
	assert.EqualValues(t, 250, placed.TotalSum)
}

func TestResolveRejectsBadRowsPermanently(t *testing.T) {
	reg := newTestRegistry(t)

	cases := map[string]models.OutboxEvent{
		"unknown event": {
			EventType: "order_shipped", AggregateType: enums.AggregateOrder, AggregateID: "1",
			Payload: envelope(t, 1, map[string]any{}),
		},
		"unknown version": {
			EventType: enums.EventOrderPlaced, AggregateType: enums.AggregateOrder, AggregateID: "1",
			Payload: envelope(t, 2, map[string]any{"order_id": 1}),
		},
		"aggregate mismatch": {
			EventType: enums.EventOrderPlaced, AggregateType: enums.AggregateUser, AggregateID: "1",
			Payload: envelope(t, 1, map[string]any{"order_id": 1}),
		},
		"missing aggregate id": {
			EventType: enums.EventUserRegistered, AggregateType: enums.AggregateUser,
			Payload: envelope(t, 1, map[string]any{}),
		},
		"null payload": {
			EventType: enums.EventCatalogImported, AggregateType: enums.AggregateShop, AggregateID: "5",
			Payload: envelope(t, 1, nil),
		},
		"broken envelope": {
			EventType: enums.EventCatalogImported, AggregateType: enums.AggregateShop, AggregateID: "5",
			Payload: json.RawMessage(`{`),
		},
	}
	for name, event := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := reg.Resolve(event)
			require.Error(t, err)
			assert.True(t, IsPermanent(err), "expected permanent error, got %v", err)
		})
	}
}

func TestDecodeByVersion(t *testing.T) {
	reg := newTestRegistry(t)

	out, err := reg.Decode(enums.EventOrderPlaced, 1, json.RawMessage(`{"order_id":42,"total_sum":250}`))
	require.NoError(t, err)
	placed, ok := out.(*payloads.OrderPlacedEvent)
	require.True(t, ok)
	assert.EqualValues(t, 42, placed.OrderID)

	_, err = reg.Decode(enums.EventOrderPlaced, 2, json.RawMessage(`{}`))
	assert.ErrorContains(t, err, "no decoder")

	_, err = reg.Decode(enums.EventOrderPlaced, 1, json.RawMessage(` null `))
	assert.ErrorContains(t, err, "payload missing")
}

func TestNewRejectsBadRoutes(t *testing.T) {
	_, err := New(Route{EventType: enums.EventOrderPlaced, Version: 1})
	assert.ErrorContains(t, err, "decoder required")

	_, err = New(Route{EventType: enums.EventOrderPlaced, Decode: JSON[payloads.OrderPlacedEvent]()})
	assert.ErrorContains(t, err, "positive version")

	dup := Route{EventType: enums.EventOrderPlaced, Version: 1, Decode: JSON[payloads.OrderPlacedEvent]()}
	_, err = New(dup, dup)
	assert.ErrorContains(t, err, "registered twice")

	_, err = NewEventRegistry(config.PubSubConfig{NotificationTopic: "  "})
	assert.Error(t, err)
}

func TestPermanent(t *testing.T) {
	assert.Nil(t, Permanent(nil))

	base := errors.New("message too large")
	err := Permanent(base)
	assert.True(t, IsPermanent(err))
	assert.ErrorIs(t, err, base)
	assert.Equal(t, err, Permanent(err), "wrapping twice is a no-op")
	assert.False(t, IsPermanent(base))
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	reg, err := NewEventRegistry(config.PubSubConfig{NotificationTopic: "notification-topic"})
	require.NoError(t, err)
	return reg
}

func envelope(t *testing.T, version int, data any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	out, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    version,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       raw,
	})
	require.NoError(t, err)
	return out
}
