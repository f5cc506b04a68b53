package market

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pactum-labs/pactum-gateway/pkg/db/models"
	"github.com/pactum-labs/pactum-gateway/pkg/enums"
	"github.com/pactum-labs/pactum-gateway/pkg/types"
)

// AgentView is the agent profile payload returned to clients. The
// shipping address never travels with the profile; it has its own
// authenticated endpoint.
type AgentView struct {
	Wallet          string    `json:"wallet"`
	Description     string    `json:"description"`
	Endpoint        *string   `json:"endpoint,omitempty"`
	Email           *string   `json:"email,omitempty"`
	TelegramGroupID *string   `json:"telegram_group_id,omitempty"`
	IsSeller        bool      `json:"is_seller"`
	AvgRatingBps    int       `json:"avg_rating_bps"`
	TotalReviews    int       `json:"total_reviews"`
	RegisteredAt    time.Time `json:"registered_at"`
}

func NewAgentView(agent *models.Agent) *AgentView {
	return &AgentView{
		Wallet:          agent.Wallet,
		Description:     agent.Description,
		Endpoint:        agent.Endpoint,
		Email:           agent.Email,
		TelegramGroupID: agent.TelegramGroupID,
		IsSeller:        agent.IsSeller(),
		AvgRatingBps:    agent.AvgRatingBps,
		TotalReviews:    agent.TotalReviews,
		RegisteredAt:    agent.RegisteredAt,
	}
}

// ItemView is the catalog listing payload. The seller's delivery
// endpoint stays private; buyers never call it directly.
type ItemView struct {
	ID               uuid.UUID        `json:"id"`
	SellerWallet     string           `json:"seller_wallet"`
	Name             string           `json:"name"`
	Description      string           `json:"description"`
	Price            decimal.Decimal  `json:"price"`
	Currency         enums.Currency   `json:"currency"`
	Type             enums.ItemType   `json:"type"`
	RequiresShipping bool             `json:"requires_shipping"`
	Status           enums.ItemStatus `json:"status"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

func NewItemView(item *models.Item) *ItemView {
	return &ItemView{
		ID:               item.ID,
		SellerWallet:     item.SellerWallet,
		Name:             item.Name,
		Description:      item.Description,
		Price:            item.Price,
		Currency:         item.Currency,
		Type:             item.Type,
		RequiresShipping: item.RequiresShipping,
		Status:           item.Status,
		CreatedAt:        item.CreatedAt,
		UpdatedAt:        item.UpdatedAt,
	}
}

func NewItemViews(items []models.Item) []ItemView {
	views := make([]ItemView, 0, len(items))
	for i := range items {
		views = append(views, *NewItemView(&items[i]))
	}
	return views
}

// OrderView is the order payload shown to its buyer and seller.
type OrderView struct {
	ID              uuid.UUID              `json:"id"`
	ItemID          uuid.UUID              `json:"item_id"`
	BuyerWallet     string                 `json:"buyer_wallet"`
	SellerWallet    string                 `json:"seller_wallet"`
	Amount          decimal.Decimal        `json:"amount"`
	AmountUnits     uint64                 `json:"amount_units"`
	OrderKey        string                 `json:"order_key"`
	BuyerQuery      *string                `json:"buyer_query,omitempty"`
	ShippingAddress *types.ShippingAddress `json:"shipping_address,omitempty"`
	Result          types.JSONMap          `json:"result,omitempty"`
	TxHash          *string                `json:"tx_hash,omitempty"`
	Status          enums.OrderStatus      `json:"status"`
	PaidAt          *time.Time             `json:"paid_at,omitempty"`
	DeliveredAt     *time.Time             `json:"delivered_at,omitempty"`
	SettledAt       *time.Time             `json:"settled_at,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
}

func NewOrderView(order *models.Order) *OrderView {
	return &OrderView{
		ID:              order.ID,
		ItemID:          order.ItemID,
		BuyerWallet:     order.BuyerWallet,
		SellerWallet:    order.SellerWallet,
		Amount:          order.Amount,
		AmountUnits:     order.AmountUnits(),
		OrderKey:        order.OrderKey,
		BuyerQuery:      order.BuyerQuery,
		ShippingAddress: order.ShippingAddress,
		Result:          order.Result,
		TxHash:          order.TxHash,
		Status:          order.Status,
		PaidAt:          order.PaidAt,
		DeliveredAt:     order.DeliveredAt,
		SettledAt:       order.SettledAt,
		CreatedAt:       order.CreatedAt,
		UpdatedAt:       order.UpdatedAt,
	}
}

func NewOrderViews(orders []models.Order) []OrderView {
	views := make([]OrderView, 0, len(orders))
	for i := range orders {
		views = append(views, *NewOrderView(&orders[i]))
	}
	return views
}

// MessageView is one relayed message inside an order conversation.
type MessageView struct {
	ID              uuid.UUID `json:"id"`
	OrderID         uuid.UUID `json:"order_id"`
	SenderWallet    string    `json:"sender_wallet"`
	RecipientWallet string    `json:"recipient_wallet"`
	Body            string    `json:"body"`
	CreatedAt       time.Time `json:"created_at"`
}

func NewMessageView(message *models.Message) *MessageView {
	return &MessageView{
		ID:              message.ID,
		OrderID:         message.OrderID,
		SenderWallet:    message.SenderWallet,
		RecipientWallet: message.RecipientWallet,
		Body:            message.Body,
		CreatedAt:       message.CreatedAt,
	}
}

func NewMessageViews(messages []models.Message) []MessageView {
	views := make([]MessageView, 0, len(messages))
	for i := range messages {
		views = append(views, *NewMessageView(&messages[i]))
	}
	return views
}

// AgentEventView is one entry of the wallet's pull feed. The wallet
// itself is implicit: the feed is always scoped to the caller.
type AgentEventView struct {
	ID        uuid.UUID            `json:"id"`
	EventType enums.AgentEventType `json:"event_type"`
	Payload   types.JSONMap        `json:"payload,omitempty"`
	CreatedAt time.Time            `json:"created_at"`
}

func NewAgentEventViews(events []models.AgentEvent) []AgentEventView {
	views := make([]AgentEventView, 0, len(events))
	for _, event := range events {
		views = append(views, AgentEventView{
			ID:        event.ID,
			EventType: event.EventType,
			Payload:   event.Payload,
			CreatedAt: event.CreatedAt,
		})
	}
	return views
}
