package registry

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/pactum-labs/pactum-gateway/pkg/chain"
	"github.com/pactum-labs/pactum-gateway/pkg/db/models"
)

// Store is the durable registry backing. Token ids, review dedupe, and
// rating aggregates live in the database, so restarts keep every minted
// identity and every recorded review. It mirrors the Engine's revert
// reasons exactly.
type Store struct {
	db *gorm.DB
}

// NewStore builds a registry store bound to the provided DB.
func NewStore(db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, errors.New("registry store requires a database")
	}
	return &Store{db: db}, nil
}

// IsRegistered implements Client.
func (s *Store) IsRegistered(ctx context.Context, wallet chain.Address) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.RegistryToken{}).
		Where("wallet = ?", string(wallet)).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// WalletToToken implements Client.
func (s *Store) WalletToToken(ctx context.Context, wallet chain.Address) (uint64, error) {
	var token models.RegistryToken
	err := s.db.WithContext(ctx).
		Where("wallet = ?", string(wallet)).
		First(&token).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, ErrNotRegistered
	}
	if err != nil {
		return 0, err
	}
	return token.TokenID, nil
}

// GetAgentStats implements Client.
func (s *Store) GetAgentStats(ctx context.Context, tokenID uint64) (AgentStats, error) {
	token, err := s.findToken(ctx, s.db, tokenID)
	if err != nil {
		return AgentStats{}, err
	}
	stats := AgentStats{ReviewCount: token.ReviewCount}
	if token.ReviewCount > 0 {
		stats.AvgRatingBps = token.TotalRating * 10000 / token.ReviewCount
	}
	return stats, nil
}

// RegisterAgent implements Client.
func (s *Store) RegisterAgent(ctx context.Context, wallet chain.Address, cardHash chain.Hash) (uint64, error) {
	if wallet.IsZero() {
		return 0, ErrZeroWallet
	}
	if cardHash == "" {
		return 0, ErrEmptyCard
	}

	token := models.RegistryToken{
		Wallet:   string(wallet),
		CardHash: string(cardHash),
	}
	err := s.db.WithContext(ctx).Create(&token).Error
	if isDuplicateKey(err) {
		return 0, ErrAlreadyRegistered
	}
	if err != nil {
		return 0, err
	}
	return token.TokenID, nil
}

// SubmitReview implements Client.
func (s *Store) SubmitReview(ctx context.Context, reviewer chain.Address, orderID chain.Hash, tokenID uint64, rating uint8) error {
	if rating < 1 || rating > 5 {
		return ErrInvalidRating
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.findToken(ctx, tx, tokenID); err != nil {
			return err
		}

		review := models.RegistryReview{
			Reviewer: string(reviewer),
			OrderKey: string(orderID),
			TokenID:  tokenID,
			Rating:   rating,
		}
		if err := tx.Create(&review).Error; err != nil {
			if isDuplicateKey(err) {
				return ErrDuplicateReview
			}
			return err
		}

		return tx.Model(&models.RegistryToken{}).
			Where("token_id = ?", tokenID).
			Updates(map[string]any{
				"total_rating": gorm.Expr("total_rating + ?", uint64(rating)),
				"review_count": gorm.Expr("review_count + 1"),
			}).Error
	})
}

// CardHash returns the registered agent card hash for a token.
func (s *Store) CardHash(ctx context.Context, tokenID uint64) (chain.Hash, error) {
	token, err := s.findToken(ctx, s.db, tokenID)
	if err != nil {
		return "", err
	}
	return chain.Hash(token.CardHash), nil
}

func (s *Store) findToken(ctx context.Context, tx *gorm.DB, tokenID uint64) (*models.RegistryToken, error) {
	var token models.RegistryToken
	err := tx.WithContext(ctx).
		Where("token_id = ?", tokenID).
		First(&token).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUnknownToken
	}
	if err != nil {
		return nil, err
	}
	return &token, nil
}

func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}
