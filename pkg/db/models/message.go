package models

import (
	"time"

	"github.com/google/uuid"
)

// Message is an order-scoped relay between the buyer and seller agents.
type Message struct {
	ID              uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID         uuid.UUID `gorm:"column:order_id;type:uuid;not null;index"`
	SenderWallet    string    `gorm:"column:sender_wallet;type:char(42);not null"`
	RecipientWallet string    `gorm:"column:recipient_wallet;type:char(42);not null"`
	Body            string    `gorm:"column:body;type:text;not null"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
}
