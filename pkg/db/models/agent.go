package models

import (
	"time"

	"github.com/pactum-labs/pactum-gateway/pkg/types"
)

// Agent represents a registered marketplace participant keyed by wallet.
type Agent struct {
	Wallet          string                 `gorm:"column:wallet;type:char(42);primaryKey"`
	Description     string                 `gorm:"column:description;type:text;not null;default:''"`
	CardHash        string                 `gorm:"column:card_hash;type:char(66);not null"`
	Endpoint        *string                `gorm:"column:endpoint"`
	Email           *string                `gorm:"column:email"`
	AvgRatingBps    int                    `gorm:"column:avg_rating_bps;not null;default:0"`
	TotalReviews    int                    `gorm:"column:total_reviews;not null;default:0"`
	ShippingAddress *types.ShippingAddress `gorm:"column:shipping_address;type:jsonb"`
	TelegramGroupID *string                `gorm:"column:telegram_group_id"`
	RegisteredAt    time.Time              `gorm:"column:registered_at;not null"`
	CreatedAt       time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

// IsSeller reports whether the agent has published a delivery endpoint.
func (a Agent) IsSeller() bool {
	return a.Endpoint != nil && *a.Endpoint != ""
}
