package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/pactum-labs/pactum-gateway/pkg/enums"
	"github.com/pactum-labs/pactum-gateway/pkg/types"
)

// AgentEvent is one entry in a wallet's pull-based notification feed.
type AgentEvent struct {
	ID        uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Wallet    string               `gorm:"column:wallet;type:char(42);not null;index"`
	EventType enums.AgentEventType `gorm:"column:event_type;type:agent_event_type;not null"`
	Payload   types.JSONMap        `gorm:"column:payload;type:jsonb"`
	Delivered bool                 `gorm:"column:delivered;not null;default:false"`
	CreatedAt time.Time            `gorm:"column:created_at;autoCreateTime"`
}
