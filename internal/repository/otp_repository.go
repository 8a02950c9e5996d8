package repository

import (
	"context"
	"time"

	"github.com/yukikurage/task-tracker/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormOTPRepository is a GORM implementation of OTPRepository
type GormOTPRepository struct {
	db *gorm.DB
}

// NewOTPRepository creates a new OTPRepository
func NewOTPRepository(db *gorm.DB) OTPRepository {
	return &GormOTPRepository{db: db}
}

// Replace upserts the code on the unique email index, so a concurrent
// issuance for the same email can never leave two rows behind.
func (r *GormOTPRepository) Replace(ctx context.Context, otp *models.OTPCode) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "email"}},
			DoUpdates: clause.AssignmentColumns([]string{"code_hash", "expires_at", "created_at"}),
		}).
		Create(otp).Error
}

// FindByEmail finds the code issued to an email
func (r *GormOTPRepository) FindByEmail(ctx context.Context, email string) (*models.OTPCode, error) {
	var otp models.OTPCode
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&otp).Error; err != nil {
		return nil, err
	}
	return &otp, nil
}

// Delete deletes a code by ID
func (r *GormOTPRepository) Delete(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Delete(&models.OTPCode{}, id).Error
}

// DeleteExpired removes codes whose expiry is before now
func (r *GormOTPRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("expires_at < ?", now).Delete(&models.OTPCode{})
	return result.RowsAffected, result.Error
}
