package db

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/primeapparel/marketplace-backend/internal/app/model"
	"github.com/primeapparel/marketplace-backend/pkg/logger"
	"github.com/primeapparel/marketplace-backend/pkg/util"
	"gorm.io/gorm"
)

// Models lists every table owned by the service, in dependency order.
func Models() []interface{} {
	return []interface{}{
		&model.User{},
		&model.PasswordResetRequest{},
		&model.Product{},
		&model.Lead{},
	}
}

// Migrate runs database migrations
func Migrate(db *gorm.DB) error {
	logger.Info("Running database migrations...")

	models := Models()
	if err := db.AutoMigrate(models...); err != nil {
		logger.Error("Failed to run migrations", err)
		return err
	}

	logger.Info("Database migrations completed successfully", map[string]interface{}{
		"models_count": len(models),
	})
	return nil
}

// EnsureAdmin creates the bootstrap admin account when email is set and no
// user with that address exists yet. Existing accounts are left untouched.
func EnsureAdmin(db *gorm.DB, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil
	}
	if password == "" {
		return errors.New("ADMIN_PASSWORD must be set together with ADMIN_EMAIL")
	}

	var existing model.User
	err := db.Where("LOWER(email) = ?", email).First(&existing).Error
	if err == nil {
		logger.Info("Bootstrap admin already exists, skipping...", map[string]interface{}{
			"user_id": existing.ID,
		})
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to look up bootstrap admin: %w", err)
	}

	hash, err := util.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash bootstrap admin password: %w", err)
	}

	now := time.Now()
	admin := &model.User{
		Email:          email,
		PasswordHash:   hash,
		FirstName:      "Admin",
		Role:           model.RoleAdmin,
		ApprovalStatus: model.ApprovalApproved,
		IsActive:       true,
		ApprovedAt:     &now,
	}
	if err := db.Create(admin).Error; err != nil {
		return fmt.Errorf("failed to create bootstrap admin: %w", err)
	}

	logger.Info("Bootstrap admin created", map[string]interface{}{
		"user_id": admin.ID,
		"email":   admin.Email,
	})
	return nil
}
