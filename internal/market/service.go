package market

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/pactum-labs/pactum-gateway/internal/delivery"
	"github.com/pactum-labs/pactum-gateway/internal/payments"
	"github.com/pactum-labs/pactum-gateway/internal/registry"
	"github.com/pactum-labs/pactum-gateway/pkg/chain"
	"github.com/pactum-labs/pactum-gateway/pkg/db/models"
	"github.com/pactum-labs/pactum-gateway/pkg/enums"
	pkgerrors "github.com/pactum-labs/pactum-gateway/pkg/errors"
	"github.com/pactum-labs/pactum-gateway/pkg/logger"
	"github.com/pactum-labs/pactum-gateway/pkg/outbox"
	"github.com/pactum-labs/pactum-gateway/pkg/outbox/payloads"
	"github.com/pactum-labs/pactum-gateway/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type depositVerifier interface {
	VerifyDeposit(ctx context.Context, txHash chain.Hash, expect payments.Expectation) (*payments.Proof, error)
}

type deliveryDispatcher interface {
	Dispatch(ctx context.Context, endpoint string, req delivery.Request) delivery.Outcome
}

// AddressChecker validates a shipping address against an external source.
// The service falls back to structural validation when none is wired.
type AddressChecker interface {
	Check(ctx context.Context, address types.ShippingAddress) error
}

// Config carries the chain-facing constants the orchestrator hands to
// buyers in payment-required envelopes.
type Config struct {
	EscrowContract chain.Address
	TokenContract  chain.Address
	PaymentExpiry  time.Duration
}

// Deps wires the orchestrator's collaborators.
type Deps struct {
	Repo       Repository
	Tx         txRunner
	Outbox     outboxPublisher
	Verifier   depositVerifier
	Dispatcher deliveryDispatcher
	Registry   registry.Client
	Addresses  AddressChecker
	Config     Config
	Logger     *logger.Logger
}

// Service is the order orchestrator: it owns the off-chain order state
// machine and keeps it an eventually-consistent projection of the escrow
// ledger. Money movement is never decided here.
type Service struct {
	repo       Repository
	tx         txRunner
	outbox     outboxPublisher
	verifier   depositVerifier
	dispatcher deliveryDispatcher
	registry   registry.Client
	addresses  AddressChecker
	cfg        Config
	logg       *logger.Logger
	locks      *orderLocks
	now        func() time.Time
}

// NewService builds the market service.
func NewService(deps Deps) (*Service, error) {
	if deps.Repo == nil {
		return nil, fmt.Errorf("market repository required")
	}
	if deps.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if deps.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if deps.Verifier == nil {
		return nil, fmt.Errorf("payment verifier required")
	}
	if deps.Dispatcher == nil {
		return nil, fmt.Errorf("delivery dispatcher required")
	}
	if deps.Registry == nil {
		return nil, fmt.Errorf("registry client required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if deps.Config.EscrowContract.IsZero() {
		return nil, fmt.Errorf("escrow contract address required")
	}
	if deps.Config.TokenContract.IsZero() {
		return nil, fmt.Errorf("token contract address required")
	}
	if deps.Config.PaymentExpiry <= 0 {
		deps.Config.PaymentExpiry = 5 * time.Minute
	}
	return &Service{
		repo:       deps.Repo,
		tx:         deps.Tx,
		outbox:     deps.Outbox,
		verifier:   deps.Verifier,
		dispatcher: deps.Dispatcher,
		registry:   deps.Registry,
		addresses:  deps.Addresses,
		cfg:        deps.Config,
		logg:       deps.Logger,
		locks:      newOrderLocks(),
		now:        time.Now,
	}, nil
}

// RegisterAgent ensures the wallet is bound in the on-chain registry and
// upserts the gateway-side agent profile.
func (s *Service) RegisterAgent(ctx context.Context, input RegisterAgentInput) (*AgentView, error) {
	agent, err := s.register(ctx, input.Wallet, input.Card, input.Description, input.Email, input.TelegramGroupID, nil)
	if err != nil {
		return nil, err
	}
	return NewAgentView(agent), nil
}

// RegisterSeller registers the wallet and publishes its delivery endpoint,
// making the agent eligible to list items.
func (s *Service) RegisterSeller(ctx context.Context, input RegisterSellerInput) (*AgentView, error) {
	endpoint := strings.TrimSpace(input.Endpoint)
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller endpoint must be an http(s) URL")
	}
	agent, err := s.register(ctx, input.Wallet, input.Card, input.Description, input.Email, nil, &endpoint)
	if err != nil {
		return nil, err
	}
	return NewAgentView(agent), nil
}

func (s *Service) register(ctx context.Context, rawWallet, card, description string, email, telegram, endpoint *string) (*models.Agent, error) {
	wallet, err := chain.ParseAddress(rawWallet)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid wallet")
	}
	ctx = s.logg.WithWallet(ctx, wallet.String())

	registered, err := s.registry.IsRegistered(ctx, wallet)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check registry")
	}

	var cardHash chain.Hash
	if card != "" {
		cardHash = chain.Keccak256Hash([]byte(card))
	}

	var tokenID uint64
	if registered {
		tokenID, err = s.registry.WalletToToken(ctx, wallet)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve agent token")
		}
	} else {
		if cardHash == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "agent card required for first registration")
		}
		tokenID, err = s.registry.RegisterAgent(ctx, wallet, cardHash)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "register agent on chain")
		}
	}

	stats, err := s.registry.GetAgentStats(ctx, tokenID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load agent stats")
	}

	var agent *models.Agent
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		_, err := repo.FindAgent(ctx, wallet.String())
		switch {
		case err == nil:
			updates := map[string]any{
				"description":    description,
				"avg_rating_bps": int(stats.AvgRatingBps),
				"total_reviews":  int(stats.ReviewCount),
			}
			if cardHash != "" {
				updates["card_hash"] = cardHash.String()
			}
			if email != nil {
				updates["email"] = *email
			}
			if telegram != nil {
				updates["telegram_group_id"] = *telegram
			}
			if endpoint != nil {
				updates["endpoint"] = *endpoint
			}
			if err := repo.UpdateAgent(ctx, wallet.String(), updates); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update agent")
			}
			agent, err = repo.FindAgent(ctx, wallet.String())
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload agent")
			}
			return nil
		case errors.Is(err, gorm.ErrRecordNotFound):
			agent = &models.Agent{
				Wallet:          wallet.String(),
				Description:     description,
				CardHash:        cardHash.String(),
				Endpoint:        endpoint,
				Email:           email,
				TelegramGroupID: telegram,
				AvgRatingBps:    int(stats.AvgRatingBps),
				TotalReviews:    int(stats.ReviewCount),
				RegisteredAt:    s.now(),
			}
			if err := repo.UpsertAgent(ctx, agent); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create agent")
			}
			return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventAgentRegistered,
				AggregateType: enums.AggregateAgent,
				AggregateID:   uuid.NewSHA1(uuid.NameSpaceOID, []byte(wallet.String())),
				Version:       1,
				Actor:         actorRef(wallet.String(), "agent"),
				Data: payloads.AgentRegisteredEvent{
					Wallet:  wallet.String(),
					TokenID: tokenID,
					Seller:  endpoint != nil,
				},
			})
		default:
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load agent")
		}
	})
	if err != nil {
		return nil, err
	}
	return agent, nil
}

// GetAgent returns a registered agent's public profile.
func (s *Service) GetAgent(ctx context.Context, rawWallet string) (*AgentView, error) {
	wallet, err := chain.ParseAddress(rawWallet)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid wallet")
	}
	agent, err := s.repo.FindAgent(ctx, wallet.String())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "agent not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load agent")
	}
	return NewAgentView(agent), nil
}

// ListAgents returns the most recently registered agents.
func (s *Service) ListAgents(ctx context.Context, limit int) ([]AgentView, error) {
	agents, err := s.repo.ListAgents(ctx, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list agents")
	}
	views := make([]AgentView, 0, len(agents))
	for i := range agents {
		views = append(views, *NewAgentView(&agents[i]))
	}
	return views, nil
}

// CreateItem publishes a new listing for a registered seller.
func (s *Service) CreateItem(ctx context.Context, input CreateItemInput) (*ItemView, error) {
	wallet, err := chain.ParseAddress(input.SellerWallet)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid wallet")
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item name required")
	}
	if !input.Price.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item price must be positive")
	}
	itemType := input.Type
	if itemType == "" {
		itemType = enums.ItemTypeDigital
	}
	if !itemType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid item type")
	}

	agent, err := s.repo.FindAgent(ctx, wallet.String())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "seller is not registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load seller")
	}
	if !agent.IsSeller() && input.Endpoint == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller has no delivery endpoint; provide one on the item or register as seller")
	}

	item := &models.Item{
		ID:               uuid.New(),
		SellerWallet:     wallet.String(),
		Name:             input.Name,
		Description:      input.Description,
		Price:            input.Price,
		Currency:         enums.CurrencyUSDC,
		Type:             itemType,
		Endpoint:         input.Endpoint,
		RequiresShipping: input.RequiresShipping,
		Status:           enums.ItemStatusActive,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.CreateItem(ctx, item); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create item")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventItemListed,
			AggregateType: enums.AggregateItem,
			AggregateID:   item.ID,
			Version:       1,
			Actor:         actorRef(wallet.String(), "seller"),
			Data: payloads.ItemListedEvent{
				ItemID:       item.ID,
				SellerWallet: item.SellerWallet,
				Name:         item.Name,
				Price:        item.Price.String(),
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return NewItemView(item), nil
}

// UpdateItem mutates a listing. Only the owning seller may update, and
// deleted items are immutable.
func (s *Service) UpdateItem(ctx context.Context, input UpdateItemInput) (*ItemView, error) {
	wallet, err := chain.ParseAddress(input.SellerWallet)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid wallet")
	}

	item, err := s.repo.FindItem(ctx, input.ItemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load item")
	}
	if item.SellerWallet != wallet.String() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "item does not belong to seller")
	}
	if item.Status == enums.ItemStatusDeleted {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "deleted items cannot be updated")
	}

	updates := map[string]any{}
	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item name required")
		}
		updates["name"] = *input.Name
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.Price != nil {
		if !input.Price.IsPositive() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item price must be positive")
		}
		updates["price"] = *input.Price
	}
	if input.Endpoint != nil {
		updates["endpoint"] = *input.Endpoint
	}
	if input.Status != nil {
		switch *input.Status {
		case enums.ItemStatusActive, enums.ItemStatusPaused:
			updates["status"] = *input.Status
		default:
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item status must be active or paused")
		}
	}
	if len(updates) == 0 {
		return NewItemView(item), nil
	}

	if err := s.repo.UpdateItem(ctx, item.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update item")
	}
	item, err = s.repo.FindItem(ctx, item.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload item")
	}
	return NewItemView(item), nil
}

// DeleteItem soft-deletes a listing. Existing orders keep their snapshot.
func (s *Service) DeleteItem(ctx context.Context, sellerWallet string, itemID uuid.UUID) error {
	wallet, err := chain.ParseAddress(sellerWallet)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid wallet")
	}
	item, err := s.repo.FindItem(ctx, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load item")
	}
	if item.SellerWallet != wallet.String() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "item does not belong to seller")
	}
	if err := s.repo.UpdateItem(ctx, itemID, map[string]any{"status": enums.ItemStatusDeleted}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete item")
	}
	return nil
}

// GetItem returns one listing.
func (s *Service) GetItem(ctx context.Context, itemID uuid.UUID) (*ItemView, error) {
	item, err := s.repo.FindItem(ctx, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load item")
	}
	return NewItemView(item), nil
}

// MyItems lists the seller's own listings, deleted ones excluded.
func (s *Service) MyItems(ctx context.Context, sellerWallet string) ([]ItemView, error) {
	wallet, err := chain.ParseAddress(sellerWallet)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid wallet")
	}
	items, err := s.repo.ListItemsBySeller(ctx, wallet.String())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list items")
	}
	return NewItemViews(items), nil
}

// SearchItems finds active listings by text and price ceiling.
func (s *Service) SearchItems(ctx context.Context, q SearchItemsQuery) ([]ItemView, error) {
	if q.MaxPrice != nil && q.MaxPrice.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "max price must not be negative")
	}
	items, err := s.repo.SearchItems(ctx, q)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "search items")
	}
	return NewItemViews(items), nil
}

// PutAddress validates and stores the wallet's shipping address.
func (s *Service) PutAddress(ctx context.Context, input PutAddressInput) error {
	wallet, err := chain.ParseAddress(input.Wallet)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid wallet")
	}
	if s.addresses != nil {
		err = s.addresses.Check(ctx, input.Address)
	} else {
		err = input.Address.Validate()
	}
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid shipping address")
	}

	addr := input.Address
	if err := s.repo.UpdateAgent(ctx, wallet.String(), map[string]any{"shipping_address": &addr}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store address")
	}
	return nil
}

// GetAddress returns the wallet's stored shipping address.
func (s *Service) GetAddress(ctx context.Context, rawWallet string) (*types.ShippingAddress, error) {
	wallet, err := chain.ParseAddress(rawWallet)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid wallet")
	}
	agent, err := s.repo.FindAgent(ctx, wallet.String())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "agent not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load agent")
	}
	if agent.ShippingAddress == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no shipping address on file")
	}
	return agent.ShippingAddress, nil
}

// InitiatePurchase creates an order in `created` and returns the
// payment-required envelope the buyer's wallet needs to fund escrow.
func (s *Service) InitiatePurchase(ctx context.Context, input PurchaseInput) (*PaymentRequired, error) {
	buyer, err := chain.ParseAddress(input.BuyerWallet)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid wallet")
	}
	ctx = s.logg.WithWallet(ctx, buyer.String())

	if _, err := s.repo.FindAgent(ctx, buyer.String()); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "buyer is not a registered agent")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load buyer")
	}

	item, err := s.repo.FindItem(ctx, input.ItemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load item")
	}
	if !item.Status.IsPurchasable() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item is not purchasable")
	}
	if item.SellerWallet == buyer.String() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot purchase own item")
	}

	var snapshot *types.ShippingAddress
	if item.RequiresShipping {
		agent, err := s.repo.FindAgent(ctx, buyer.String())
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load buyer")
		}
		if agent.ShippingAddress == nil || agent.ShippingAddress.IsZero() {
			return nil, pkgerrors.New(pkgerrors.CodeShippingNeeded, "item requires shipping; store an address first")
		}
		copied := *agent.ShippingAddress
		snapshot = &copied
	}

	orderID := uuid.New()
	orderKey := chain.OrderKey(orderID.String())
	query := input.Query
	order := &models.Order{
		ID:              orderID,
		ItemID:          item.ID,
		BuyerWallet:     buyer.String(),
		SellerWallet:    item.SellerWallet,
		Amount:          item.Price,
		OrderKey:        orderKey.String(),
		BuyerQuery:      &query,
		ShippingAddress: snapshot,
		Status:          enums.OrderStatusCreated,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.CreateOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		if err := repo.CreateAgentEvent(ctx, &models.AgentEvent{
			ID:        uuid.New(),
			Wallet:    item.SellerWallet,
			EventType: enums.AgentEventOrderCreated,
			Payload:   orderEventPayload(order),
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create agent event")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         actorRef(buyer.String(), "buyer"),
			Data: payloads.OrderCreatedEvent{
				OrderID:      order.ID,
				ItemID:       item.ID,
				BuyerWallet:  order.BuyerWallet,
				SellerWallet: order.SellerWallet,
				Amount:       order.Amount.String(),
				OrderKey:     order.OrderKey,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	return &PaymentRequired{
		OrderID:        order.ID,
		OrderKey:       orderKey,
		AmountUnits:    order.AmountUnits(),
		Amount:         order.Amount.String(),
		Currency:       enums.CurrencyUSDC.String(),
		EscrowContract: s.cfg.EscrowContract,
		TokenContract:  s.cfg.TokenContract,
		SellerWallet:   order.SellerWallet,
		ExpiresAt:      s.now().Add(s.cfg.PaymentExpiry),
	}, nil
}

// ConfirmPayment verifies the deposit transaction against the order and,
// on success, moves it to paid and immediately attempts delivery. A failed
// verification mutates nothing; the buyer may retry with a corrected
// reference.
func (s *Service) ConfirmPayment(ctx context.Context, input ConfirmPaymentInput) (*OrderView, error) {
	buyer, err := chain.ParseAddress(input.BuyerWallet)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid wallet")
	}
	txHash, err := chain.ParseHash(input.TxHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid transaction hash")
	}
	ctx = s.logg.WithOrderID(s.logg.WithWallet(ctx, buyer.String()), input.OrderID.String())

	order, err := s.repo.FindOrder(ctx, input.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.BuyerWallet != buyer.String() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to wallet")
	}
	if order.Status != enums.OrderStatusCreated {
		if order.TxHash != nil && *order.TxHash == txHash.String() {
			// Idempotent replay of an already-confirmed payment.
			return NewOrderView(order), nil
		}
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("payment confirmation not allowed from status %s", order.Status))
	}

	seller, err := chain.ParseAddress(order.SellerWallet)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "stored seller wallet invalid")
	}

	proof, err := s.verifier.VerifyDeposit(ctx, txHash, payments.Expectation{
		OrderID:     order.ID.String(),
		Buyer:       buyer,
		Seller:      seller,
		AmountUnits: order.AmountUnits(),
	})
	if err != nil {
		if isVerificationMismatch(err) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeVerification, err, "deposit proof rejected")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "verify deposit")
	}

	paidAt := s.now()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		applied, err := repo.UpdateOrderStatusIf(ctx, order.ID,
			[]enums.OrderStatus{enums.OrderStatusCreated},
			enums.OrderStatusPaid,
			map[string]any{"tx_hash": txHash.String(), "paid_at": paidAt})
		if err != nil {
			if isUniqueViolation(err) {
				return pkgerrors.New(pkgerrors.CodeConflict, "transaction reference already consumed by another order")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order paid")
		}
		if !applied {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order was transitioned concurrently")
		}
		if err := repo.CreateAgentEvent(ctx, &models.AgentEvent{
			ID:        uuid.New(),
			Wallet:    order.SellerWallet,
			EventType: enums.AgentEventPaymentConfirmed,
			Payload:   orderEventPayload(order),
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create agent event")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentConfirmed,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         actorRef(buyer.String(), "buyer"),
			Data: payloads.PaymentConfirmedEvent{
				OrderID:     order.ID,
				TxHash:      txHash.String(),
				AmountUnits: proof.AmountUnits,
				BlockNumber: proof.BlockNumber,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	delivered, err := s.attemptDelivery(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	return NewOrderView(delivered), nil
}

// AttemptDelivery dispatches a paid order to the seller's endpoint and
// applies the resulting transition. The dispatch runs outside any lock or
// transaction; the transition lands by compare-and-swap, so even if two
// callers race, at most one transition applies and at most one dispatch is
// in flight per order.
func (s *Service) AttemptDelivery(ctx context.Context, orderID uuid.UUID) (*OrderView, error) {
	order, err := s.attemptDelivery(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return NewOrderView(order), nil
}

func (s *Service) attemptDelivery(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.Status != enums.OrderStatusPaid {
		return order, nil
	}

	endpoint := s.deliveryEndpoint(ctx, order)
	if endpoint == "" {
		// No endpoint configured: the order stays paid and waits for a
		// manual deliver call.
		return order, nil
	}

	if !s.locks.tryAcquire(order.ID) {
		return order, nil
	}
	defer s.locks.release(order.ID)

	var query string
	if order.BuyerQuery != nil {
		query = *order.BuyerQuery
	}
	outcome := s.dispatcher.Dispatch(ctx, endpoint, delivery.Request{
		OrderID:    order.ID,
		BuyerQuery: query,
	})

	switch outcome.Kind {
	case delivery.OutcomeCompleted:
		err = s.completeSyncDelivery(ctx, order, outcome.Result)
	default:
		// Accepted and Unresponsive both degrade to processing: the seller
		// either committed to async delivery or could not be reached, and
		// escrowed funds must never strand the order in a failed state.
		_, casErr := s.repo.UpdateOrderStatusIf(ctx, order.ID,
			[]enums.OrderStatus{enums.OrderStatusPaid},
			enums.OrderStatusProcessing, nil)
		err = casErr
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "apply delivery outcome")
	}

	order, err = s.repo.FindOrder(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
	}
	return order, nil
}

func (s *Service) completeSyncDelivery(ctx context.Context, order *models.Order, result string) error {
	deliveredAt := s.now()
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		applied, err := repo.UpdateOrderStatusIf(ctx, order.ID,
			[]enums.OrderStatus{enums.OrderStatusPaid},
			enums.OrderStatusCompleted,
			map[string]any{
				"result":       types.JSONMap{"type": "text", "content": result},
				"delivered_at": deliveredAt,
			})
		if err != nil {
			return err
		}
		if !applied {
			return nil
		}
		if err := repo.CreateAgentEvent(ctx, &models.AgentEvent{
			ID:        uuid.New(),
			Wallet:    order.BuyerWallet,
			EventType: enums.AgentEventOrderDelivered,
			Payload:   orderEventPayload(order),
		}); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderDelivered,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         actorRef(order.SellerWallet, "seller"),
			Data: payloads.OrderDeliveredEvent{
				OrderID:      order.ID,
				SellerWallet: order.SellerWallet,
				Mode:         "sync",
				DeliveredAt:  deliveredAt,
			},
		})
	})
}

// Deliver is the seller's manual delivery with text content or a file
// reference. Legal only from paid or processing.
func (s *Service) Deliver(ctx context.Context, input DeliverInput) (*OrderView, error) {
	seller, err := chain.ParseAddress(input.SellerWallet)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid wallet")
	}
	if input.Content == "" && input.FileURL == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery requires content or a file reference")
	}

	order, err := s.repo.FindOrder(ctx, input.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.SellerWallet != seller.String() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to seller")
	}
	switch order.Status {
	case enums.OrderStatusPaid, enums.OrderStatusProcessing:
	default:
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("delivery not allowed from status %s", order.Status))
	}

	result := types.JSONMap{"type": "text", "content": input.Content}
	if input.FileURL != nil {
		result = types.JSONMap{"type": "file", "file_url": *input.FileURL}
		if input.Message != nil {
			result["message"] = *input.Message
		}
	}

	deliveredAt := s.now()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		applied, err := repo.UpdateOrderStatusIf(ctx, order.ID,
			[]enums.OrderStatus{enums.OrderStatusPaid, enums.OrderStatusProcessing},
			enums.OrderStatusDelivered,
			map[string]any{"result": result, "delivered_at": deliveredAt})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order delivered")
		}
		if !applied {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order was transitioned concurrently")
		}
		if err := repo.CreateAgentEvent(ctx, &models.AgentEvent{
			ID:        uuid.New(),
			Wallet:    order.BuyerWallet,
			EventType: enums.AgentEventOrderDelivered,
			Payload:   orderEventPayload(order),
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create agent event")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderDelivered,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         actorRef(order.SellerWallet, "seller"),
			Data: payloads.OrderDeliveredEvent{
				OrderID:      order.ID,
				SellerWallet: order.SellerWallet,
				Mode:         "manual",
				DeliveredAt:  deliveredAt,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	order, err = s.repo.FindOrder(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
	}
	return NewOrderView(order), nil
}

// ApplySettlement mirrors a terminal (or dispute) ledger transition into
// the order projection. Idempotent: replaying an already-applied event is
// a no-op, which is what makes watcher replays safe.
func (s *Service) ApplySettlement(ctx context.Context, settlement Settlement) error {
	order, err := s.repo.FindOrderByKey(ctx, settlement.OrderKey.String())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Deposits can exist on chain for orders this gateway never
			// issued; they are not ours to project.
			s.logg.Warn(ctx, "settlement for unknown order key")
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order by key")
	}
	ctx = s.logg.WithOrderID(ctx, order.ID.String())

	occurredAt := settlement.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = s.now()
	}

	var (
		target    enums.OrderStatus
		from      []enums.OrderStatus
		updates   map[string]any
		eventType enums.OutboxEventType
		agentType enums.AgentEventType
		data      any
	)
	switch settlement.Kind {
	case SettlementReleased:
		target = enums.OrderStatusCompleted
		from = []enums.OrderStatus{enums.OrderStatusCreated, enums.OrderStatusPaid, enums.OrderStatusProcessing, enums.OrderStatusDelivered, enums.OrderStatusDisputed}
		updates = map[string]any{"settled_at": occurredAt}
		eventType = enums.EventOrderSettled
		agentType = enums.AgentEventOrderCompleted
		data = payloads.OrderSettledEvent{OrderID: order.ID, OrderKey: order.OrderKey, SettledAt: occurredAt}
	case SettlementRefunded:
		target = enums.OrderStatusRefunded
		from = []enums.OrderStatus{enums.OrderStatusCreated, enums.OrderStatusPaid, enums.OrderStatusProcessing, enums.OrderStatusDelivered, enums.OrderStatusDisputed}
		updates = map[string]any{"settled_at": occurredAt}
		eventType = enums.EventOrderRefunded
		agentType = enums.AgentEventOrderRefunded
		data = payloads.OrderRefundedEvent{OrderID: order.ID, OrderKey: order.OrderKey, RefundedAt: occurredAt}
	case SettlementDisputed:
		target = enums.OrderStatusDisputed
		from = []enums.OrderStatus{enums.OrderStatusCreated, enums.OrderStatusPaid, enums.OrderStatusProcessing, enums.OrderStatusDelivered}
		eventType = enums.EventOrderDisputed
		agentType = enums.AgentEventOrderDisputed
		data = payloads.OrderDisputedEvent{OrderID: order.ID, OrderKey: order.OrderKey, DisputedAt: occurredAt}
	default:
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown settlement kind")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		applied, err := repo.UpdateOrderStatusIf(ctx, order.ID, from, target, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "apply settlement")
		}
		if !applied {
			return nil
		}
		for _, wallet := range []string{order.BuyerWallet, order.SellerWallet} {
			if err := repo.CreateAgentEvent(ctx, &models.AgentEvent{
				ID:        uuid.New(),
				Wallet:    wallet,
				EventType: agentType,
				Payload:   orderEventPayload(order),
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create agent event")
			}
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     eventType,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Data:          data,
		})
	})
}

// GetOrder returns an order visible to the given wallet.
func (s *Service) GetOrder(ctx context.Context, rawWallet string, orderID uuid.UUID) (*OrderView, error) {
	wallet, err := chain.ParseAddress(rawWallet)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid wallet")
	}
	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.BuyerWallet != wallet.String() && order.SellerWallet != wallet.String() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to wallet")
	}
	return NewOrderView(order), nil
}

// ListOrders returns the wallet's orders as buyer or seller.
func (s *Service) ListOrders(ctx context.Context, rawWallet string, limit int) ([]OrderView, error) {
	wallet, err := chain.ParseAddress(rawWallet)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid wallet")
	}
	orders, err := s.repo.ListOrdersByWallet(ctx, wallet.String(), limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return NewOrderViews(orders), nil
}

// RecentActivity returns the public trade ticker: the latest orders
// across the whole market with abbreviated wallets.
func (s *Service) RecentActivity(ctx context.Context, limit int) ([]ActivityEntry, error) {
	orders, err := s.repo.ListRecentOrders(ctx, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list recent orders")
	}

	entries := make([]ActivityEntry, 0, len(orders))
	for _, order := range orders {
		entry := ActivityEntry{
			OrderID:   order.ID.String()[:8],
			Buyer:     abbreviateWallet(order.BuyerWallet),
			Seller:    abbreviateWallet(order.SellerWallet),
			Amount:    order.Amount,
			Status:    order.Status.String(),
			CreatedAt: order.CreatedAt,
			UpdatedAt: order.UpdatedAt,
		}
		if order.Item != nil {
			entry.ItemName = order.Item.Name
			entry.ItemType = order.Item.Type
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func abbreviateWallet(wallet string) string {
	if len(wallet) <= 10 {
		return wallet
	}
	return wallet[:6] + "..." + wallet[len(wallet)-4:]
}

// SendMessage relays one message between the order's counterparties and
// queues a notification for the recipient.
func (s *Service) SendMessage(ctx context.Context, input MessageInput) (*MessageView, error) {
	sender, err := chain.ParseAddress(input.SenderWallet)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid wallet")
	}
	if strings.TrimSpace(input.Body) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "message body required")
	}

	order, err := s.repo.FindOrder(ctx, input.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}

	var recipient string
	switch sender.String() {
	case order.BuyerWallet:
		recipient = order.SellerWallet
	case order.SellerWallet:
		recipient = order.BuyerWallet
	default:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "wallet is not a party to this order")
	}

	message := &models.Message{
		ID:              uuid.New(),
		OrderID:         order.ID,
		SenderWallet:    sender.String(),
		RecipientWallet: recipient,
		Body:            input.Body,
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.CreateMessage(ctx, message); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create message")
		}
		if err := repo.CreateAgentEvent(ctx, &models.AgentEvent{
			ID:        uuid.New(),
			Wallet:    recipient,
			EventType: enums.AgentEventMessageReceived,
			Payload:   types.JSONMap{"order_id": order.ID.String(), "from": sender.String()},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create agent event")
		}
		orderID := order.ID
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventNotificationRequested,
			AggregateType: enums.AggregateNotification,
			AggregateID:   uuid.New(),
			Version:       1,
			Actor:         actorRef(sender.String(), "agent"),
			Data: payloads.NotificationRequestedEvent{
				Wallet:  recipient,
				OrderID: &orderID,
				Type:    "message",
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return NewMessageView(message), nil
}

// ListMessages returns the order conversation for one of its parties.
func (s *Service) ListMessages(ctx context.Context, rawWallet string, orderID uuid.UUID) ([]MessageView, error) {
	if _, err := s.GetOrder(ctx, rawWallet, orderID); err != nil {
		return nil, err
	}
	messages, err := s.repo.ListMessagesByOrder(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list messages")
	}
	return NewMessageViews(messages), nil
}

// ListEvents returns the wallet's pull feed, optionally marking the
// returned entries delivered.
func (s *Service) ListEvents(ctx context.Context, rawWallet string, undeliveredOnly, markDelivered bool, limit int) ([]AgentEventView, error) {
	wallet, err := chain.ParseAddress(rawWallet)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid wallet")
	}
	events, err := s.repo.ListAgentEvents(ctx, wallet.String(), undeliveredOnly, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list events")
	}
	if markDelivered && len(events) > 0 {
		ids := make([]uuid.UUID, 0, len(events))
		for _, event := range events {
			ids = append(ids, event.ID)
		}
		if err := s.repo.MarkAgentEventsDelivered(ctx, ids); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark events delivered")
		}
	}
	return NewAgentEventViews(events), nil
}

// SubmitReview records a post-settlement review on chain and refreshes the
// seller's cached reputation.
func (s *Service) SubmitReview(ctx context.Context, input ReviewInput) error {
	reviewer, err := chain.ParseAddress(input.ReviewerWallet)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid wallet")
	}

	order, err := s.repo.FindOrder(ctx, input.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.BuyerWallet != reviewer.String() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only the buyer may review an order")
	}
	if order.Status != enums.OrderStatusCompleted {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "reviews require a completed order")
	}

	seller, err := chain.ParseAddress(order.SellerWallet)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "stored seller wallet invalid")
	}
	tokenID, err := s.registry.WalletToToken(ctx, seller)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve seller token")
	}

	err = s.registry.SubmitReview(ctx, reviewer, chain.Hash(order.OrderKey), tokenID, input.Rating)
	switch {
	case err == nil:
	case errors.Is(err, registry.ErrInvalidRating):
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid rating")
	case errors.Is(err, registry.ErrDuplicateReview):
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "order already reviewed")
	default:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "submit review")
	}

	stats, err := s.registry.GetAgentStats(ctx, tokenID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload agent stats")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.UpdateAgent(ctx, order.SellerWallet, map[string]any{
			"avg_rating_bps": int(stats.AvgRatingBps),
			"total_reviews":  int(stats.ReviewCount),
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refresh seller stats")
		}
		if err := repo.CreateAgentEvent(ctx, &models.AgentEvent{
			ID:        uuid.New(),
			Wallet:    order.SellerWallet,
			EventType: enums.AgentEventReviewReceived,
			Payload:   types.JSONMap{"order_id": order.ID.String(), "rating": float64(input.Rating)},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create agent event")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventReviewSubmitted,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         actorRef(reviewer.String(), "buyer"),
			Data: payloads.ReviewSubmittedEvent{
				OrderID:        order.ID,
				ReviewerWallet: reviewer.String(),
				TokenID:        tokenID,
				Rating:         input.Rating,
			},
		})
	})
}

// Stats aggregates a wallet's marketplace activity and on-chain reputation.
func (s *Service) Stats(ctx context.Context, rawWallet string) (*AgentStatsView, error) {
	wallet, err := chain.ParseAddress(rawWallet)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid wallet")
	}

	bought, sold, err := s.repo.CountOrdersByWallet(ctx, wallet.String())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count orders")
	}
	items, err := s.repo.CountActiveItems(ctx, wallet.String())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count items")
	}

	view := &AgentStatsView{
		Wallet:       wallet.String(),
		OrdersBought: bought,
		OrdersSold:   sold,
		ActiveItems:  items,
	}
	if tokenID, err := s.registry.WalletToToken(ctx, wallet); err == nil {
		if stats, err := s.registry.GetAgentStats(ctx, tokenID); err == nil {
			view.AvgRatingBps = stats.AvgRatingBps
			view.ReviewCount = stats.ReviewCount
		}
	}
	return view, nil
}

// ExpireStaleOrders fails orders that sat in `created` past the TTL.
// Buyer abandonment before deposit has no contract-level consequence, so
// the order simply ages out. Returns the number expired.
func (s *Service) ExpireStaleOrders(ctx context.Context, ttl time.Duration, batchSize int) (int, error) {
	if ttl <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "stale order ttl must be positive")
	}
	cutoff := s.now().Add(-ttl)
	stale, err := s.repo.ListStaleCreatedOrders(ctx, cutoff, batchSize)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list stale orders")
	}

	expired := 0
	var errs []error
	for i := range stale {
		order := stale[i]
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			applied, err := repo.UpdateOrderStatusIf(ctx, order.ID,
				[]enums.OrderStatus{enums.OrderStatusCreated},
				enums.OrderStatusFailed, nil)
			if err != nil {
				return err
			}
			if !applied {
				return nil
			}
			expired++
			if err := repo.CreateAgentEvent(ctx, &models.AgentEvent{
				ID:        uuid.New(),
				Wallet:    order.BuyerWallet,
				EventType: enums.AgentEventOrderExpired,
				Payload:   orderEventPayload(&order),
			}); err != nil {
				return err
			}
			return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventOrderExpired,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Version:       1,
				Data: payloads.OrderExpiredEvent{
					OrderID:   order.ID,
					ExpiredAt: s.now(),
				},
			})
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("order %s: %w", order.ID, err))
		}
	}
	if combined := multierr.Combine(errs...); combined != nil {
		return expired, pkgerrors.Wrap(pkgerrors.CodeDependency, combined, "expire stale orders")
	}
	return expired, nil
}

func (s *Service) deliveryEndpoint(ctx context.Context, order *models.Order) string {
	if order.Item != nil && order.Item.Endpoint != nil && *order.Item.Endpoint != "" {
		return *order.Item.Endpoint
	}
	agent, err := s.repo.FindAgent(ctx, order.SellerWallet)
	if err != nil {
		return ""
	}
	if agent.Endpoint != nil {
		return *agent.Endpoint
	}
	return ""
}

func actorRef(wallet, role string) *outbox.ActorRef {
	return &outbox.ActorRef{Wallet: wallet, Role: role}
}

func orderEventPayload(order *models.Order) types.JSONMap {
	return types.JSONMap{
		"order_id": order.ID.String(),
		"item_id":  order.ItemID.String(),
		"status":   order.Status.String(),
	}
}

func isVerificationMismatch(err error) bool {
	for _, candidate := range []error{
		payments.ErrTxNotFound,
		payments.ErrTxFailed,
		payments.ErrNoDepositEvent,
		payments.ErrOrderMismatch,
		payments.ErrBuyerMismatch,
		payments.ErrSellerMismatch,
		payments.ErrAmountMismatch,
	} {
		if errors.Is(err, candidate) {
			return true
		}
	}
	return false
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}
