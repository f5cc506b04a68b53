package payloads

import (
	"time"

	"github.com/google/uuid"
)

// OrderCreatedEvent signals a buyer initiated a purchase and received
// payment instructions.
type OrderCreatedEvent struct {
	OrderID      uuid.UUID `json:"order_id"`
	ItemID       uuid.UUID `json:"item_id"`
	BuyerWallet  string    `json:"buyer_wallet"`
	SellerWallet string    `json:"seller_wallet"`
	Amount       string    `json:"amount"`
	OrderKey     string    `json:"order_key"`
}

// PaymentConfirmedEvent is emitted once a deposit proof verified and the
// order moved to paid.
type PaymentConfirmedEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	TxHash      string    `json:"tx_hash"`
	AmountUnits uint64    `json:"amount_units"`
	BlockNumber uint64    `json:"block_number"`
}

// OrderDeliveredEvent reports a completed delivery, whether the seller
// endpoint answered synchronously or the seller delivered manually.
type OrderDeliveredEvent struct {
	OrderID      uuid.UUID `json:"order_id"`
	SellerWallet string    `json:"seller_wallet"`
	Mode         string    `json:"mode"`
	DeliveredAt  time.Time `json:"delivered_at"`
}

// OrderSettledEvent mirrors an on-chain release into the order projection.
type OrderSettledEvent struct {
	OrderID   uuid.UUID `json:"order_id"`
	OrderKey  string    `json:"order_key"`
	SettledAt time.Time `json:"settled_at"`
}

// OrderDisputedEvent mirrors an on-chain dispute.
type OrderDisputedEvent struct {
	OrderID    uuid.UUID `json:"order_id"`
	OrderKey   string    `json:"order_key"`
	DisputedAt time.Time `json:"disputed_at"`
}

// OrderRefundedEvent mirrors an on-chain refund.
type OrderRefundedEvent struct {
	OrderID    uuid.UUID `json:"order_id"`
	OrderKey   string    `json:"order_key"`
	RefundedAt time.Time `json:"refunded_at"`
}

// OrderExpiredEvent describes the payload when unpaid orders age out.
type OrderExpiredEvent struct {
	OrderID   uuid.UUID `json:"order_id"`
	ExpiredAt time.Time `json:"expired_at"`
	TTLHours  *int      `json:"ttl_hours,omitempty"`
}

// AgentRegisteredEvent is emitted when a wallet completes registration.
type AgentRegisteredEvent struct {
	Wallet  string `json:"wallet"`
	TokenID uint64 `json:"token_id"`
	Seller  bool   `json:"seller"`
}

// ItemListedEvent is emitted when a seller publishes a new item.
type ItemListedEvent struct {
	ItemID       uuid.UUID `json:"item_id"`
	SellerWallet string    `json:"seller_wallet"`
	Name         string    `json:"name"`
	Price        string    `json:"price"`
}

// ReviewSubmittedEvent records a post-settlement review.
type ReviewSubmittedEvent struct {
	OrderID        uuid.UUID `json:"order_id"`
	ReviewerWallet string    `json:"reviewer_wallet"`
	TokenID        uint64    `json:"token_id"`
	Rating         uint8     `json:"rating"`
}

// NotificationRequestedEvent tells downstream systems to alert an agent.
type NotificationRequestedEvent struct {
	Wallet  string     `json:"wallet"`
	OrderID *uuid.UUID `json:"order_id,omitempty"`
	Type    string     `json:"type"`
}
