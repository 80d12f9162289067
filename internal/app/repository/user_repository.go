package repository

import (
	"strings"

	"github.com/primeapparel/marketplace-backend/internal/app/model"
	"github.com/primeapparel/marketplace-backend/pkg/logger"
	"gorm.io/gorm"
)

// ManagedUserFilter narrows the admin user list. Zero values are ignored.
type ManagedUserFilter struct {
	Search string
	Role   model.Role
	Status model.ApprovalStatus
}

type UserRepository interface {
	Create(user *model.User) error
	FindByID(id uint) (*model.User, error)
	FindByEmail(email string) (*model.User, error)
	EmailExists(email string) (bool, error)
	Update(user *model.User) error
	UpdatePassword(id uint, passwordHash string) error
	Delete(id uint) error
	FindManagedByID(id uint) (*model.User, error)
	ListManaged(filter ManagedUserFilter) ([]model.User, error)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(user *model.User) error {
	logger.Debug("Creating user in database", map[string]interface{}{
		"email": user.Email,
		"role":  user.Role,
	})

	if err := r.db.Create(user).Error; err != nil {
		logger.Error("Failed to create user in database", err, map[string]interface{}{
			"email": user.Email,
		})
		return err
	}

	logger.Debug("User created in database", map[string]interface{}{
		"user_id": user.ID,
		"email":   user.Email,
	})
	return nil
}

func (r *userRepository) FindByID(id uint) (*model.User, error) {
	logger.Debug("Finding user by ID in database", map[string]interface{}{
		"user_id": id,
	})

	var user model.User
	if err := r.db.First(&user, id).Error; err != nil {
		logger.Error("Failed to find user by ID in database", err, map[string]interface{}{
			"user_id": id,
		})
		return nil, err
	}
	return &user, nil
}

// FindByEmail matches case-insensitively.
func (r *userRepository) FindByEmail(email string) (*model.User, error) {
	email = normalizeEmail(email)
	logger.Debug("Finding user by email in database", map[string]interface{}{
		"email": email,
	})

	var user model.User
	if err := r.db.Where("LOWER(email) = ?", email).First(&user).Error; err != nil {
		logger.Error("Failed to find user by email in database", err, map[string]interface{}{
			"email": email,
		})
		return nil, err
	}

	logger.Debug("User found by email in database", map[string]interface{}{
		"user_id": user.ID,
		"email":   user.Email,
	})
	return &user, nil
}

func (r *userRepository) EmailExists(email string) (bool, error) {
	var count int64
	err := r.db.Model(&model.User{}).
		Where("LOWER(email) = ?", normalizeEmail(email)).
		Count(&count).Error
	if err != nil {
		logger.Error("Failed to check user email in database", err, map[string]interface{}{
			"email": email,
		})
		return false, err
	}
	return count > 0, nil
}

func (r *userRepository) Update(user *model.User) error {
	logger.Debug("Updating user in database", map[string]interface{}{
		"user_id": user.ID,
	})

	if err := r.db.Save(user).Error; err != nil {
		logger.Error("Failed to update user in database", err, map[string]interface{}{
			"user_id": user.ID,
		})
		return err
	}
	return nil
}

func (r *userRepository) UpdatePassword(id uint, passwordHash string) error {
	logger.Debug("Updating user password in database", map[string]interface{}{
		"user_id": id,
	})

	result := r.db.Model(&model.User{}).Where("id = ?", id).Update("password_hash", passwordHash)
	if result.Error != nil {
		logger.Error("Failed to update user password in database", result.Error, map[string]interface{}{
			"user_id": id,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes the user together with their reset requests. Leads,
// products and approvals pointing at the user are detached.
func (r *userRepository) Delete(id uint) error {
	logger.Debug("Deleting user from database", map[string]interface{}{
		"user_id": id,
	})

	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&model.PasswordResetRequest{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.Lead{}).Where("user_id = ?", id).Update("user_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.Lead{}).Where("assigned_to_id = ?", id).Update("assigned_to_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Model(&model.Product{}).Where("owner_id = ?", id).Update("owner_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.User{}).Where("approved_by_id = ?", id).Update("approved_by_id", nil).Error; err != nil {
			return err
		}
		result := tx.Delete(&model.User{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		logger.Error("Failed to delete user from database", err, map[string]interface{}{
			"user_id": id,
		})
		return err
	}

	logger.Debug("User deleted from database", map[string]interface{}{
		"user_id": id,
	})
	return nil
}

// FindManagedByID returns a non-admin user. Admin accounts are reported as
// not found so the management endpoints never expose them.
func (r *userRepository) FindManagedByID(id uint) (*model.User, error) {
	var user model.User
	err := r.db.Where("role <> ?", model.RoleAdmin).First(&user, id).Error
	if err != nil {
		logger.Error("Failed to find managed user in database", err, map[string]interface{}{
			"user_id": id,
		})
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) ListManaged(filter ManagedUserFilter) ([]model.User, error) {
	logger.Debug("Listing managed users", map[string]interface{}{
		"search": filter.Search,
		"role":   filter.Role,
		"status": filter.Status,
	})

	query := r.db.Model(&model.User{}).Where("role <> ?", model.RoleAdmin)

	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where(
			"LOWER(email) LIKE ? OR LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(company) LIKE ?",
			like, like, like, like,
		)
	}
	if filter.Role != "" {
		query = query.Where("role = ?", filter.Role)
	}
	if filter.Status != "" {
		query = query.Where("approval_status = ?", filter.Status)
	}

	var users []model.User
	if err := query.Order("created_at DESC").Order("id DESC").Find(&users).Error; err != nil {
		logger.Error("Failed to list managed users", err)
		return nil, err
	}

	logger.Debug("Managed users listed", map[string]interface{}{
		"count": len(users),
	})
	return users, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
