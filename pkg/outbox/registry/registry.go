// Package registry is the table of outbox events: which aggregate owns each
// event type, which topic carries it and how its payload decodes. The relay
// resolves stored rows against it and the consumers decode deliveries with it.
package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/supplyhub/marketplace-backend/pkg/config"
	"github.com/supplyhub/marketplace-backend/pkg/db/models"
	"github.com/supplyhub/marketplace-backend/pkg/enums"
	"github.com/supplyhub/marketplace-backend/pkg/outbox"
	"github.com/supplyhub/marketplace-backend/pkg/outbox/payloads"
)

// ErrPermanent marks failures that retrying cannot fix.
var ErrPermanent = errors.New("permanent failure")

func Permanent(err error) error {
	if err == nil || errors.Is(err, ErrPermanent) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrPermanent, err)
}

func IsPermanent(err error) bool { return errors.Is(err, ErrPermanent) }

// DecodeFunc turns an envelope's data into a typed payload pointer.
type DecodeFunc func(data json.RawMessage) (any, error)

// JSON decodes into a fresh *T and refuses empty or null data.
func JSON[T any]() DecodeFunc {
	return func(data json.RawMessage) (any, error) {
		trimmed := bytes.TrimSpace(data)
		if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
			return nil, errors.New("payload missing")
		}
		out := new(T)
		if err := json.Unmarshal(trimmed, out); err != nil {
			return nil, err
		}
		return out, nil
	}
}

// Route binds one version of an event type to its aggregate, topic and decoder.
type Route struct {
	EventType enums.OutboxEventType
	Aggregate enums.OutboxAggregateType
	Version   int
	Topic     string
	Decode    DecodeFunc
}

// Routes lists every event the marketplace emits, all carried on topic.
func Routes(topic string) []Route {
	return []Route{
		{EventType: enums.EventOrderPlaced, Aggregate: enums.AggregateOrder, Version: 1, Topic: topic, Decode: JSON[payloads.OrderPlacedEvent]()},
		{EventType: enums.EventUserRegistered, Aggregate: enums.AggregateUser, Version: 1, Topic: topic, Decode: JSON[payloads.UserRegisteredEvent]()},
		{EventType: enums.EventCatalogImported, Aggregate: enums.AggregateShop, Version: 1, Topic: topic, Decode: JSON[payloads.CatalogImportedEvent]()},
	}
}

type routeKey struct {
	eventType enums.OutboxEventType
	version   int
}

// Registry is immutable once built and safe for concurrent use.
type Registry struct {
	routes map[routeKey]Route
}

// ResolvedEvent is a stored outbox row matched to its route and decoded.
type ResolvedEvent struct {
	Route    Route
	Envelope outbox.PayloadEnvelope
	Payload  any
}

func New(routes ...Route) (*Registry, error) {
	reg := &Registry{routes: make(map[routeKey]Route, len(routes))}
	for _, route := range routes {
		key := routeKey{eventType: route.EventType, version: route.Version}
		switch {
		case route.EventType == "" || route.Version < 1:
			return nil, fmt.Errorf("route %q@v%d: event type and positive version required", route.EventType, route.Version)
		case route.Decode == nil:
			return nil, fmt.Errorf("route %s@v%d: decoder required", route.EventType, route.Version)
		}
		if _, dup := reg.routes[key]; dup {
			return nil, fmt.Errorf("route %s@v%d registered twice", route.EventType, route.Version)
		}
		reg.routes[key] = route
	}
	return reg, nil
}

// NewEventRegistry builds the relay's registry with the configured topic.
func NewEventRegistry(cfg config.PubSubConfig) (*Registry, error) {
	topic := strings.TrimSpace(cfg.NotificationTopic)
	if topic == "" {
		return nil, errors.New("notification topic is required")
	}
	return New(Routes(topic)...)
}

// Decode parses data for a delivered event.
func (r *Registry) Decode(eventType enums.OutboxEventType, version int, data json.RawMessage) (any, error) {
	route, ok := r.routes[routeKey{eventType: eventType, version: version}]
	if !ok {
		return nil, fmt.Errorf("no decoder for %s@v%d", eventType, version)
	}
	payload, err := route.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s@v%d: %w", eventType, version, err)
	}
	return payload, nil
}

// Resolve checks a stored row against its route. Every failure is permanent:
// the row will not change between attempts.
func (r *Registry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	if strings.TrimSpace(event.AggregateID) == "" {
		return nil, Permanent(errors.New("missing aggregate_id"))
	}
	envelope, err := outbox.OpenEnvelope(event.Payload)
	if err != nil {
		return nil, Permanent(err)
	}

	route, ok := r.routes[routeKey{eventType: event.EventType, version: envelope.Version}]
	if !ok {
		return nil, Permanent(fmt.Errorf("unsupported event %s@v%d", event.EventType, envelope.Version))
	}
	if route.Aggregate != event.AggregateType {
		return nil, Permanent(fmt.Errorf("aggregate mismatch: %s belongs to %s, row says %s", event.EventType, route.Aggregate, event.AggregateType))
	}
	payload, err := route.Decode(envelope.Data)
	if err != nil {
		return nil, Permanent(fmt.Errorf("decode %s payload: %w", event.EventType, err))
	}
	return &ResolvedEvent{Route: route, Envelope: envelope, Payload: payload}, nil
}
