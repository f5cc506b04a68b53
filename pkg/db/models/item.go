package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pactum-labs/pactum-gateway/pkg/enums"
)

// Item is a purchasable listing owned by a seller agent.
type Item struct {
	ID               uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SellerWallet     string          `gorm:"column:seller_wallet;type:char(42);not null;index"`
	Name             string          `gorm:"column:name;type:text;not null"`
	Description      string          `gorm:"column:description;type:text;not null;default:''"`
	Price            decimal.Decimal `gorm:"column:price;type:numeric(18,6);not null"`
	Currency         enums.Currency  `gorm:"column:currency;type:text;not null;default:'USDC'"`
	Type             enums.ItemType  `gorm:"column:type;type:item_type;not null;default:'digital'"`
	Endpoint         *string         `gorm:"column:endpoint"`
	RequiresShipping bool            `gorm:"column:requires_shipping;not null;default:false"`
	Status           enums.ItemStatus `gorm:"column:status;type:item_status;not null;default:'active'"`
	CreatedAt        time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// PriceUnits converts the price into 6-decimal token base units.
func (i Item) PriceUnits() uint64 {
	return uint64(i.Price.Shift(6).IntPart())
}
