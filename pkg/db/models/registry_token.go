package models

import "time"

// RegistryToken is one minted agent identity: a wallet bound to its card
// hash, plus the running reputation aggregate. Token ids come from the
// sequence and are never reused.
type RegistryToken struct {
	TokenID     uint64    `gorm:"column:token_id;primaryKey;autoIncrement"`
	Wallet      string    `gorm:"column:wallet;type:char(42);not null;uniqueIndex:ux_registry_tokens_wallet"`
	CardHash    string    `gorm:"column:card_hash;type:char(66);not null"`
	TotalRating uint64    `gorm:"column:total_rating;not null;default:0"`
	ReviewCount uint64    `gorm:"column:review_count;not null;default:0"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName implements the schema.Tabler interface.
func (RegistryToken) TableName() string {
	return "registry_tokens"
}

// RegistryReview records that a reviewer rated an order, enforcing the
// one-review-per-reviewer-per-order rule through its primary key.
type RegistryReview struct {
	Reviewer  string    `gorm:"column:reviewer;type:char(42);primaryKey"`
	OrderKey  string    `gorm:"column:order_key;type:char(66);primaryKey"`
	TokenID   uint64    `gorm:"column:token_id;not null"`
	Rating    uint8     `gorm:"column:rating;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName implements the schema.Tabler interface.
func (RegistryReview) TableName() string {
	return "registry_reviews"
}
