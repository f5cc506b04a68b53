package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateOrder        OutboxAggregateType = "order"
	AggregateAgent        OutboxAggregateType = "agent"
	AggregateItem         OutboxAggregateType = "item"
	AggregateNotification OutboxAggregateType = "notification"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregateAgent,
	AggregateItem,
	AggregateNotification,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventOrderCreated          OutboxEventType = "order_created"
	EventPaymentConfirmed      OutboxEventType = "payment_confirmed"
	EventOrderDelivered        OutboxEventType = "order_delivered"
	EventOrderSettled          OutboxEventType = "order_settled"
	EventOrderDisputed         OutboxEventType = "order_disputed"
	EventOrderRefunded         OutboxEventType = "order_refunded"
	EventOrderExpired          OutboxEventType = "order_expired"
	EventAgentRegistered       OutboxEventType = "agent_registered"
	EventItemListed            OutboxEventType = "item_listed"
	EventReviewSubmitted       OutboxEventType = "review_submitted"
	EventNotificationRequested OutboxEventType = "notification_requested"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderCreated,
	EventPaymentConfirmed,
	EventOrderDelivered,
	EventOrderSettled,
	EventOrderDisputed,
	EventOrderRefunded,
	EventOrderExpired,
	EventAgentRegistered,
	EventItemListed,
	EventReviewSubmitted,
	EventNotificationRequested,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
