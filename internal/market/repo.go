package market

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/pactum-labs/pactum-gateway/pkg/db/models"
	"github.com/pactum-labs/pactum-gateway/pkg/enums"
	"github.com/pactum-labs/pactum-gateway/pkg/pagination"
)

// SearchItemsQuery filters the public item search.
type SearchItemsQuery struct {
	Query    string
	MaxPrice *decimal.Decimal
	Type     *enums.ItemType
	Limit    int
}

// Repository manages persistence for agents, items, orders, messages, and
// the per-wallet event feed.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	UpsertAgent(ctx context.Context, agent *models.Agent) error
	FindAgent(ctx context.Context, wallet string) (*models.Agent, error)
	UpdateAgent(ctx context.Context, wallet string, updates map[string]any) error
	ListAgents(ctx context.Context, limit int) ([]models.Agent, error)

	CreateItem(ctx context.Context, item *models.Item) error
	FindItem(ctx context.Context, id uuid.UUID) (*models.Item, error)
	UpdateItem(ctx context.Context, id uuid.UUID, updates map[string]any) error
	ListItemsBySeller(ctx context.Context, wallet string) ([]models.Item, error)
	SearchItems(ctx context.Context, q SearchItemsQuery) ([]models.Item, error)

	CreateOrder(ctx context.Context, order *models.Order) error
	FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindOrderByKey(ctx context.Context, orderKey string) (*models.Order, error)
	ListOrdersByWallet(ctx context.Context, wallet string, limit int) ([]models.Order, error)
	ListRecentOrders(ctx context.Context, limit int) ([]models.Order, error)
	ListStaleCreatedOrders(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
	UpdateOrder(ctx context.Context, id uuid.UUID, updates map[string]any) error
	UpdateOrderStatusIf(ctx context.Context, id uuid.UUID, from []enums.OrderStatus, to enums.OrderStatus, updates map[string]any) (bool, error)
	CountOrdersByWallet(ctx context.Context, wallet string) (bought int64, sold int64, err error)

	CreateMessage(ctx context.Context, message *models.Message) error
	ListMessagesByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Message, error)

	CreateAgentEvent(ctx context.Context, event *models.AgentEvent) error
	ListAgentEvents(ctx context.Context, wallet string, undeliveredOnly bool, limit int) ([]models.AgentEvent, error)
	MarkAgentEventsDelivered(ctx context.Context, ids []uuid.UUID) error
	DeleteDeliveredAgentEventsBefore(ctx context.Context, cutoff time.Time) (int64, error)

	CountActiveItems(ctx context.Context, wallet string) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a market repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) UpsertAgent(ctx context.Context, agent *models.Agent) error {
	return r.db.WithContext(ctx).Save(agent).Error
}

func (r *repository) FindAgent(ctx context.Context, wallet string) (*models.Agent, error) {
	var agent models.Agent
	if err := r.db.WithContext(ctx).Where("wallet = ?", wallet).First(&agent).Error; err != nil {
		return nil, err
	}
	return &agent, nil
}

func (r *repository) UpdateAgent(ctx context.Context, wallet string, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Agent{}).
		Where("wallet = ?", wallet).
		Updates(updates).Error
}

func (r *repository) ListAgents(ctx context.Context, limit int) ([]models.Agent, error) {
	var agents []models.Agent
	err := r.db.WithContext(ctx).
		Order("registered_at DESC").
		Limit(pagination.NormalizeLimit(limit)).
		Find(&agents).Error
	if err != nil {
		return nil, err
	}
	return agents, nil
}

func (r *repository) CreateItem(ctx context.Context, item *models.Item) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *repository) FindItem(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	var item models.Item
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) UpdateItem(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Item{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) ListItemsBySeller(ctx context.Context, wallet string) ([]models.Item, error) {
	var items []models.Item
	err := r.db.WithContext(ctx).
		Where("seller_wallet = ? AND status <> ?", wallet, enums.ItemStatusDeleted).
		Order("created_at DESC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) SearchItems(ctx context.Context, q SearchItemsQuery) ([]models.Item, error) {
	query := r.db.WithContext(ctx).
		Where("status = ?", enums.ItemStatusActive)
	if q.Query != "" {
		pattern := "%" + q.Query + "%"
		query = query.Where("name LIKE ? OR description LIKE ?", pattern, pattern)
	}
	if q.MaxPrice != nil {
		query = query.Where("price <= ?", q.MaxPrice)
	}
	if q.Type != nil {
		query = query.Where("type = ?", *q.Type)
	}

	var items []models.Item
	err := query.
		Order("created_at DESC").
		Limit(pagination.NormalizeLimit(q.Limit)).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Item").
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindOrderByKey(ctx context.Context, orderKey string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Item").
		Where("order_key = ?", orderKey).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) ListOrdersByWallet(ctx context.Context, wallet string, limit int) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Preload("Item").
		Where("buyer_wallet = ? OR seller_wallet = ?", wallet, wallet).
		Order("created_at DESC").
		Limit(pagination.NormalizeLimit(limit)).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repository) ListRecentOrders(ctx context.Context, limit int) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Preload("Item").
		Order("created_at DESC").
		Limit(pagination.NormalizeLimit(limit)).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repository) ListStaleCreatedOrders(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", enums.OrderStatusCreated, cutoff).
		Order("created_at ASC").
		Limit(pagination.NormalizeLimit(limit)).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repository) UpdateOrder(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// UpdateOrderStatusIf performs the compare-and-swap that serializes order
// transitions: the write lands only if the current status is still one of
// the expected source states. Returns false when another transition won.
func (r *repository) UpdateOrderStatusIf(ctx context.Context, id uuid.UUID, from []enums.OrderStatus, to enums.OrderStatus, updates map[string]any) (bool, error) {
	if updates == nil {
		updates = map[string]any{}
	}
	updates["status"] = to

	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) CountOrdersByWallet(ctx context.Context, wallet string) (int64, int64, error) {
	var bought, sold int64
	if err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("buyer_wallet = ?", wallet).
		Count(&bought).Error; err != nil {
		return 0, 0, err
	}
	if err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("seller_wallet = ?", wallet).
		Count(&sold).Error; err != nil {
		return 0, 0, err
	}
	return bought, sold, nil
}

func (r *repository) CreateMessage(ctx context.Context, message *models.Message) error {
	return r.db.WithContext(ctx).Create(message).Error
}

func (r *repository) ListMessagesByOrder(ctx context.Context, orderID uuid.UUID) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *repository) CreateAgentEvent(ctx context.Context, event *models.AgentEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *repository) ListAgentEvents(ctx context.Context, wallet string, undeliveredOnly bool, limit int) ([]models.AgentEvent, error) {
	query := r.db.WithContext(ctx).Where("wallet = ?", wallet)
	if undeliveredOnly {
		query = query.Where("delivered = ?", false)
	}

	var events []models.AgentEvent
	err := query.
		Order("created_at ASC").
		Limit(pagination.NormalizeLimit(limit)).
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (r *repository) MarkAgentEventsDelivered(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.AgentEvent{}).
		Where("id IN ?", ids).
		Update("delivered", true).Error
}

func (r *repository) DeleteDeliveredAgentEventsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("delivered = ? AND created_at < ?", true, cutoff).
		Delete(&models.AgentEvent{})
	return res.RowsAffected, res.Error
}

func (r *repository) CountActiveItems(ctx context.Context, wallet string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Item{}).
		Where("seller_wallet = ? AND status = ?", wallet, enums.ItemStatusActive).
		Count(&count).Error
	return count, err
}
