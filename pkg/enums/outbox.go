package enums

import "slices"

// OutboxAggregateType names the entity an outbox row is about. Together with
// the aggregate id it forms the Pub/Sub ordering key.
type OutboxAggregateType string

const (
	AggregateOrder OutboxAggregateType = "order"
	AggregateUser  OutboxAggregateType = "user"
	AggregateShop  OutboxAggregateType = "shop"
)

var aggregateTypes = []OutboxAggregateType{AggregateOrder, AggregateUser, AggregateShop}

func (a OutboxAggregateType) IsValid() bool {
	return slices.Contains(aggregateTypes, a)
}

func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	return parse("aggregate type", aggregateTypes, value)
}

// OutboxEventType is the event_type column and the event_type message
// attribute consumers route on.
type OutboxEventType string

const (
	EventOrderPlaced     OutboxEventType = "order_placed"
	EventUserRegistered  OutboxEventType = "user_registered"
	EventCatalogImported OutboxEventType = "catalog_imported"
)

var eventTypes = []OutboxEventType{EventOrderPlaced, EventUserRegistered, EventCatalogImported}

func (e OutboxEventType) IsValid() bool {
	return slices.Contains(eventTypes, e)
}

func ParseOutboxEventType(value string) (OutboxEventType, error) {
	return parse("event type", eventTypes, value)
}
