// Package borrowers is the borrower directory: who holds a library card and
// how many books they currently have out.
package borrowers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/mrlokans/librarydesk/internal/entities"
)

// cardPrefix is the prefix of generated card ids, followed by six digits.
const cardPrefix = "ID"

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a copy of the repository bound to tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Create inserts a borrower. When CardID is empty the next free card id is
// assigned in the same transaction.
func (r *Repository) Create(ctx context.Context, borrower *entities.Borrower) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if borrower.CardID == "" {
			next, err := nextCardID(tx)
			if err != nil {
				return err
			}
			borrower.CardID = next
		}
		return tx.Create(borrower).Error
	})
}

func nextCardID(tx *gorm.DB) (string, error) {
	var last entities.Borrower
	err := tx.Where("card_id LIKE ?", cardPrefix+"%").Order("card_id DESC").First(&last).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return formatCardID(1), nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to find last card id: %w", err)
	}

	n, err := strconv.Atoi(strings.TrimPrefix(last.CardID, cardPrefix))
	if err != nil {
		return "", fmt.Errorf("unexpected card id format %q: %w", last.CardID, err)
	}
	return formatCardID(n + 1), nil
}

func formatCardID(n int) string {
	return fmt.Sprintf("%s%06d", cardPrefix, n)
}

func (r *Repository) Get(ctx context.Context, cardID string) (*entities.Borrower, error) {
	var borrower entities.Borrower
	err := r.db.WithContext(ctx).Where("card_id = ?", cardID).First(&borrower).Error
	if err != nil {
		return nil, err
	}
	return &borrower, nil
}

// Exists reports whether a borrower holds the given card.
func (r *Repository) Exists(ctx context.Context, cardID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entities.Borrower{}).Where("card_id = ?", cardID).Count(&count).Error
	return count > 0, err
}

// ActiveLoanCount returns the number of loans on the card that have not been
// returned.
func (r *Repository) ActiveLoanCount(ctx context.Context, cardID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entities.Loan{}).
		Where("card_id = ? AND date_in IS NULL", cardID).
		Count(&count).Error
	return count, err
}

func (r *Repository) List(ctx context.Context, limit, offset int) ([]entities.Borrower, int64, error) {
	var borrowers []entities.Borrower
	var total int64

	query := r.db.WithContext(ctx).Model(&entities.Borrower{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	err := query.Order("card_id ASC").Limit(limit).Offset(offset).Find(&borrowers).Error
	return borrowers, total, err
}
