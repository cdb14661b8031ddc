package repository

import (
	"context"
	"time"

	"familytree/internal/domain"

	"gorm.io/gorm"
)

// RefreshTokenRepository provides DB access for refresh tokens.
type RefreshTokenRepository struct {
	db *gorm.DB
}

func NewRefreshTokenRepository(db *gorm.DB) *RefreshTokenRepository {
	return &RefreshTokenRepository{db: db}
}

func (r *RefreshTokenRepository) FindByUserID(ctx context.Context, userID int64) (*domain.RefreshToken, error) {
	var t domain.RefreshToken
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// FindExpired lists rows whose expiry is behind now; candidates for the
// cleanup sweep.
func (r *RefreshTokenRepository) FindExpired(ctx context.Context, now time.Time) ([]domain.RefreshToken, error) {
	var tokens []domain.RefreshToken
	err := r.db.WithContext(ctx).Where("expires_at < ?", now).Find(&tokens).Error
	if err != nil {
		return nil, err
	}
	return tokens, nil
}

// Save persists t. A fresh token (no id) replaces whatever row the user had:
// delete-then-insert inside one transaction, so concurrent refreshes cannot
// leave two live rows and the unique index on user_id stays the source of
// truth.
func (r *RefreshTokenRepository) Save(ctx context.Context, t *domain.RefreshToken) error {
	if t.ID != 0 {
		return r.db.WithContext(ctx).Save(t).Error
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", t.UserID).Delete(&domain.RefreshToken{}).Error; err != nil {
			return err
		}
		return tx.Create(t).Error
	})
}

// DeleteByUserID removes the user's refresh token. Absence of a row is not
// an error.
func (r *RefreshTokenRepository) DeleteByUserID(ctx context.Context, userID int64) error {
	return r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&domain.RefreshToken{}).Error
}

// DeleteExpired bulk-deletes rows past their expiry and reports how many
// went away.
func (r *RefreshTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("expires_at < ?", now).
		Delete(&domain.RefreshToken{})
	return res.RowsAffected, res.Error
}
