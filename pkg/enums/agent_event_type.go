package enums

import "fmt"

// AgentEventType labels entries in the per-wallet pull feed.
type AgentEventType string

const (
	AgentEventOrderCreated     AgentEventType = "order_created"
	AgentEventPaymentConfirmed AgentEventType = "payment_confirmed"
	AgentEventOrderDelivered   AgentEventType = "order_delivered"
	AgentEventOrderCompleted   AgentEventType = "order_completed"
	AgentEventOrderDisputed    AgentEventType = "order_disputed"
	AgentEventOrderRefunded    AgentEventType = "order_refunded"
	AgentEventOrderExpired     AgentEventType = "order_expired"
	AgentEventMessageReceived  AgentEventType = "message_received"
	AgentEventReviewReceived   AgentEventType = "review_received"
)

var validAgentEventTypes = []AgentEventType{
	AgentEventOrderCreated,
	AgentEventPaymentConfirmed,
	AgentEventOrderDelivered,
	AgentEventOrderCompleted,
	AgentEventOrderDisputed,
	AgentEventOrderRefunded,
	AgentEventOrderExpired,
	AgentEventMessageReceived,
	AgentEventReviewReceived,
}

// String implements fmt.Stringer.
func (a AgentEventType) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AgentEventType.
func (a AgentEventType) IsValid() bool {
	for _, candidate := range validAgentEventTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAgentEventType converts raw input into an AgentEventType.
func ParseAgentEventType(value string) (AgentEventType, error) {
	for _, candidate := range validAgentEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid agent event type %q", value)
}
