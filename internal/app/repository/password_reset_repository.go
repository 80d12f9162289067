package repository

import (
	"time"

	"github.com/primeapparel/marketplace-backend/internal/app/model"
	"github.com/primeapparel/marketplace-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PasswordResetRepository stores OTP reset requests. The *ForUpdate finders
// take a row lock and are meant to be called on a repository bound to a
// transaction (see NewPasswordResetRepository(tx)).
type PasswordResetRepository interface {
	LockUser(userID uint) error
	Create(req *model.PasswordResetRequest) error
	Delete(id uint) error
	DeleteUnusedForUser(userID uint) (int64, error)
	DeleteOthersForUser(userID, keepID uint) (int64, error)
	FindLatestActiveForUpdate(userID uint) (*model.PasswordResetRequest, error)
	FindActiveByTokenForUpdate(userID uint, token string) (*model.PasswordResetRequest, error)
	IncrementAttempts(id uint) (int, error)
	MarkUsed(id uint, at time.Time) error
	MarkVerified(id uint, at time.Time) error
	CountUnusedForUser(userID uint) (int64, error)
	DeleteStale(now, cutoff time.Time) (int64, error)
}

type passwordResetRepository struct {
	db *gorm.DB
}

func NewPasswordResetRepository(db *gorm.DB) PasswordResetRepository {
	return &passwordResetRepository{db: db}
}

// LockUser takes a row lock on the owning user so concurrent issues for the
// same account run one after the other.
func (r *passwordResetRepository) LockUser(userID uint) error {
	var user model.User
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		First(&user, userID).Error
	if err != nil {
		logger.Error("Failed to lock user for password reset", err, map[string]interface{}{
			"user_id": userID,
		})
		return err
	}
	return nil
}

func (r *passwordResetRepository) Create(req *model.PasswordResetRequest) error {
	logger.Debug("Creating password reset request in database", map[string]interface{}{
		"user_id": req.UserID,
	})

	if err := r.db.Create(req).Error; err != nil {
		logger.Error("Failed to create password reset request in database", err, map[string]interface{}{
			"user_id": req.UserID,
		})
		return err
	}

	logger.Debug("Password reset request created in database", map[string]interface{}{
		"id":         req.ID,
		"user_id":    req.UserID,
		"expires_at": req.ExpiresAt,
	})
	return nil
}

func (r *passwordResetRepository) Delete(id uint) error {
	if err := r.db.Delete(&model.PasswordResetRequest{}, id).Error; err != nil {
		logger.Error("Failed to delete password reset request", err, map[string]interface{}{
			"id": id,
		})
		return err
	}
	return nil
}

func (r *passwordResetRepository) DeleteUnusedForUser(userID uint) (int64, error) {
	result := r.db.Where("user_id = ? AND used_at IS NULL", userID).Delete(&model.PasswordResetRequest{})
	if result.Error != nil {
		logger.Error("Failed to delete unused password reset requests", result.Error, map[string]interface{}{
			"user_id": userID,
		})
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *passwordResetRepository) DeleteOthersForUser(userID, keepID uint) (int64, error) {
	result := r.db.Where("user_id = ? AND id <> ?", userID, keepID).Delete(&model.PasswordResetRequest{})
	if result.Error != nil {
		logger.Error("Failed to purge sibling password reset requests", result.Error, map[string]interface{}{
			"user_id": userID,
			"keep_id": keepID,
		})
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// FindLatestActiveForUpdate locks and returns the newest unused request.
func (r *passwordResetRepository) FindLatestActiveForUpdate(userID uint) (*model.PasswordResetRequest, error) {
	var req model.PasswordResetRequest
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND used_at IS NULL", userID).
		Order("created_at DESC").
		Order("id DESC").
		First(&req).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *passwordResetRepository) FindActiveByTokenForUpdate(userID uint, token string) (*model.PasswordResetRequest, error) {
	var req model.PasswordResetRequest
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND token = ? AND used_at IS NULL", userID, token).
		First(&req).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// IncrementAttempts bumps attempt_count in SQL and returns the stored value.
func (r *passwordResetRepository) IncrementAttempts(id uint) (int, error) {
	result := r.db.Model(&model.PasswordResetRequest{}).
		Where("id = ? AND used_at IS NULL", id).
		UpdateColumn("attempt_count", gorm.Expr("attempt_count + ?", 1))
	if result.Error != nil {
		logger.Error("Failed to increment password reset attempts", result.Error, map[string]interface{}{
			"id": id,
		})
		return 0, result.Error
	}
	if result.RowsAffected == 0 {
		return 0, gorm.ErrRecordNotFound
	}

	var count int
	if err := r.db.Model(&model.PasswordResetRequest{}).
		Select("attempt_count").
		Where("id = ?", id).
		Row().
		Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *passwordResetRepository) MarkUsed(id uint, at time.Time) error {
	result := r.db.Model(&model.PasswordResetRequest{}).
		Where("id = ? AND used_at IS NULL", id).
		UpdateColumn("used_at", at)
	if result.Error != nil {
		logger.Error("Failed to mark password reset request used", result.Error, map[string]interface{}{
			"id": id,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *passwordResetRepository) MarkVerified(id uint, at time.Time) error {
	result := r.db.Model(&model.PasswordResetRequest{}).
		Where("id = ? AND used_at IS NULL", id).
		UpdateColumns(map[string]interface{}{
			"verified_at":   at,
			"attempt_count": 0,
		})
	if result.Error != nil {
		logger.Error("Failed to mark password reset request verified", result.Error, map[string]interface{}{
			"id": id,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *passwordResetRepository) CountUnusedForUser(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&model.PasswordResetRequest{}).
		Where("user_id = ? AND used_at IS NULL", userID).
		Count(&count).Error
	return count, err
}

// DeleteStale removes requests that can no longer be used: consumed before
// cutoff, or expired before cutoff. Live requests (unused and unexpired at
// now) are never matched.
func (r *passwordResetRepository) DeleteStale(now, cutoff time.Time) (int64, error) {
	if cutoff.After(now) {
		cutoff = now
	}
	logger.Debug("Deleting stale password reset requests", map[string]interface{}{
		"cutoff": cutoff,
	})

	result := r.db.
		Where("(used_at IS NOT NULL AND used_at < ?) OR expires_at < ?", cutoff, cutoff).
		Delete(&model.PasswordResetRequest{})
	if result.Error != nil {
		logger.Error("Failed to delete stale password reset requests", result.Error)
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
