package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pactum-labs/pactum-gateway/pkg/enums"
	"github.com/pactum-labs/pactum-gateway/pkg/types"
)

// Order is one purchase attempt. Rows are never deleted: terminal orders
// stay as the audit trail for their escrow record.
type Order struct {
	ID              uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ItemID          uuid.UUID              `gorm:"column:item_id;type:uuid;not null;index"`
	BuyerWallet     string                 `gorm:"column:buyer_wallet;type:char(42);not null;index"`
	SellerWallet    string                 `gorm:"column:seller_wallet;type:char(42);not null;index"`
	Amount          decimal.Decimal        `gorm:"column:amount;type:numeric(18,6);not null"`
	OrderKey        string                 `gorm:"column:order_key;type:char(66);not null;uniqueIndex"`
	BuyerQuery      *string                `gorm:"column:buyer_query"`
	ShippingAddress *types.ShippingAddress `gorm:"column:shipping_address;type:jsonb"`
	Result          types.JSONMap          `gorm:"column:result;type:jsonb"`
	TxHash          *string                `gorm:"column:tx_hash;type:char(66);uniqueIndex"`
	Status          enums.OrderStatus      `gorm:"column:status;type:order_status;not null;default:'created'"`
	PaidAt          *time.Time             `gorm:"column:paid_at"`
	DeliveredAt     *time.Time             `gorm:"column:delivered_at"`
	SettledAt       *time.Time             `gorm:"column:settled_at"`
	Item            *Item                  `gorm:"foreignKey:ItemID"`
	CreatedAt       time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

// AmountUnits converts the order amount into 6-decimal token base units,
// the denomination expected by the escrow contract.
func (o Order) AmountUnits() uint64 {
	return uint64(o.Amount.Shift(6).IntPart())
}
