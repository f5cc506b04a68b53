package market

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pactum-labs/pactum-gateway/pkg/chain"
	"github.com/pactum-labs/pactum-gateway/pkg/enums"
	"github.com/pactum-labs/pactum-gateway/pkg/types"
)

// RegisterAgentInput registers (or refreshes) a buyer-side agent. Card is
// the agent's self-describing JSON document; its keccak hash is what the
// on-chain registry binds to the wallet.
type RegisterAgentInput struct {
	Wallet          string  `json:"wallet"`
	Card            string  `json:"card"`
	Description     string  `json:"description"`
	Email           *string `json:"email,omitempty"`
	TelegramGroupID *string `json:"telegram_group_id,omitempty"`
}

// RegisterSellerInput upgrades an agent to a seller by publishing a
// delivery endpoint.
type RegisterSellerInput struct {
	Wallet      string  `json:"wallet"`
	Card        string  `json:"card"`
	Endpoint    string  `json:"endpoint"`
	Description string  `json:"description"`
	Email       *string `json:"email,omitempty"`
}

// CreateItemInput publishes a new listing.
type CreateItemInput struct {
	SellerWallet     string          `json:"-"`
	Name             string          `json:"name"`
	Description      string          `json:"description"`
	Price            decimal.Decimal `json:"price"`
	Type             enums.ItemType  `json:"type"`
	Endpoint         *string         `json:"endpoint,omitempty"`
	RequiresShipping bool            `json:"requires_shipping"`
}

// UpdateItemInput mutates an existing listing. Nil fields are unchanged.
type UpdateItemInput struct {
	SellerWallet string            `json:"-"`
	ItemID       uuid.UUID         `json:"-"`
	Name         *string           `json:"name,omitempty"`
	Description  *string           `json:"description,omitempty"`
	Price        *decimal.Decimal  `json:"price,omitempty"`
	Endpoint     *string           `json:"endpoint,omitempty"`
	Status       *enums.ItemStatus `json:"status,omitempty"`
}

// PurchaseInput starts the buy flow for an item.
type PurchaseInput struct {
	BuyerWallet string `json:"-"`
	ItemID      uuid.UUID
	Query       string `json:"query"`
}

// PaymentRequired is the 402 envelope handed to the buyer's wallet
// collaborator: everything needed to build the approve+deposit sequence.
type PaymentRequired struct {
	OrderID        uuid.UUID     `json:"order_id"`
	OrderKey       chain.Hash    `json:"order_key"`
	AmountUnits    uint64        `json:"amount_units"`
	Amount         string        `json:"amount"`
	Currency       string        `json:"currency"`
	EscrowContract chain.Address `json:"escrow_contract"`
	TokenContract  chain.Address `json:"token_contract"`
	SellerWallet   string        `json:"seller_wallet"`
	ExpiresAt      time.Time     `json:"expires_at"`
}

// ConfirmPaymentInput consumes a deposit transaction reference.
type ConfirmPaymentInput struct {
	BuyerWallet string `json:"-"`
	OrderID     uuid.UUID
	TxHash      string `json:"tx_hash"`
}

// DeliverInput is the seller's manual delivery, either free text or a
// file reference with an optional message.
type DeliverInput struct {
	SellerWallet string  `json:"-"`
	OrderID      uuid.UUID
	Content      string  `json:"content"`
	FileURL      *string `json:"file_url,omitempty"`
	Message      *string `json:"message,omitempty"`
}

// MessageInput relays one message inside an order conversation.
type MessageInput struct {
	SenderWallet string `json:"-"`
	OrderID      uuid.UUID
	Body         string `json:"body"`
}

// ReviewInput records a post-settlement review against the seller.
type ReviewInput struct {
	ReviewerWallet string `json:"-"`
	OrderID        uuid.UUID
	Rating         uint8 `json:"rating"`
}

// SettlementKind tags the terminal ledger transitions the watcher mirrors.
type SettlementKind string

const (
	SettlementReleased SettlementKind = "released"
	SettlementRefunded SettlementKind = "refunded"
	SettlementDisputed SettlementKind = "disputed"
)

// Settlement is one ledger event to mirror into the order projection.
type Settlement struct {
	OrderKey    chain.Hash
	Kind        SettlementKind
	TxHash      chain.Hash
	BlockNumber uint64
	OccurredAt  time.Time
}

// AgentStatsView aggregates a wallet's off-chain activity with its
// on-chain reputation.
type AgentStatsView struct {
	Wallet       string `json:"wallet"`
	OrdersBought int64  `json:"orders_bought"`
	OrdersSold   int64  `json:"orders_sold"`
	ActiveItems  int64  `json:"active_items"`
	AvgRatingBps uint64 `json:"avg_rating_bps"`
	ReviewCount  uint64 `json:"review_count"`
}

// ActivityEntry is one row of the public recent-trades feed. Wallets are
// abbreviated so the feed leaks no more than a block explorer would.
type ActivityEntry struct {
	OrderID   string          `json:"order_id"`
	Buyer     string          `json:"buyer"`
	Seller    string          `json:"seller"`
	ItemName  string          `json:"item_name"`
	ItemType  enums.ItemType  `json:"item_type"`
	Amount    decimal.Decimal `json:"amount"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// PutAddressInput stores the wallet's shipping address.
type PutAddressInput struct {
	Wallet  string                `json:"-"`
	Address types.ShippingAddress `json:"address"`
}
