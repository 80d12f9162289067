package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/primeapparel/marketplace-backend/internal/app/model"
	"github.com/primeapparel/marketplace-backend/internal/app/repository"
	"github.com/primeapparel/marketplace-backend/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrSelfEdit           = errors.New("you cannot edit your own admin account here")
	ErrSelfDelete         = errors.New("you cannot delete your own account while logged in")
	ErrRoleNotAssignable  = errors.New("role must be SELLER or BUYER")
	ErrNotificationFailed = errors.New("failed to send notification")
)

// ManagedUserUpdate is a partial update; nil fields are left untouched.
type ManagedUserUpdate struct {
	FirstName      *string
	LastName       *string
	Phone          *string
	Company        *string
	Role           *model.Role
	IsActive       *bool
	ApprovalStatus *model.ApprovalStatus
	ApprovalNotes  *string
}

// UserAdminService is the admin console over non-admin accounts.
type UserAdminService interface {
	List(filter repository.ManagedUserFilter) ([]model.User, error)
	Get(id uint) (*model.User, error)
	Update(ctx context.Context, adminID, targetID uint, patch ManagedUserUpdate) (*model.User, error)
	ResendNotification(ctx context.Context, adminID, targetID uint) error
	Delete(adminID, targetID uint) error
}

type userAdminService struct {
	userRepo      repository.UserRepository
	notifications NotificationService
	now           func() time.Time
}

func NewUserAdminService(userRepo repository.UserRepository, notifications NotificationService) UserAdminService {
	return &userAdminService{
		userRepo:      userRepo,
		notifications: notifications,
		now:           time.Now,
	}
}

func (s *userAdminService) List(filter repository.ManagedUserFilter) ([]model.User, error) {
	return s.userRepo.ListManaged(filter)
}

func (s *userAdminService) Get(id uint) (*model.User, error) {
	user, err := s.userRepo.FindManagedByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *userAdminService) Update(ctx context.Context, adminID, targetID uint, patch ManagedUserUpdate) (*model.User, error) {
	if adminID == targetID {
		return nil, ErrSelfEdit
	}
	if patch.Role != nil && *patch.Role != model.RoleSeller && *patch.Role != model.RoleBuyer {
		return nil, ErrRoleNotAssignable
	}

	user, err := s.Get(targetID)
	if err != nil {
		return nil, err
	}
	previous := user.ApprovalStatus

	if patch.FirstName != nil {
		user.FirstName = *patch.FirstName
	}
	if patch.LastName != nil {
		user.LastName = *patch.LastName
	}
	if patch.Phone != nil {
		user.Phone = *patch.Phone
	}
	if patch.Company != nil {
		user.Company = *patch.Company
	}
	if patch.Role != nil {
		user.Role = *patch.Role
	}
	if patch.ApprovalNotes != nil {
		user.ApprovalNotes = *patch.ApprovalNotes
	}
	if patch.IsActive != nil {
		user.IsActive = *patch.IsActive
	}

	changed := patch.ApprovalStatus != nil && *patch.ApprovalStatus != previous
	if changed {
		user.TransitionApproval(*patch.ApprovalStatus, adminID, s.now())
	} else if user.ReconcileApproval() {
		logger.Warn("Corrected is_active to match approval status", map[string]interface{}{
			"user_id":         user.ID,
			"approval_status": user.ApprovalStatus,
			"is_active":       user.IsActive,
		})
	}

	if err := s.userRepo.Update(user); err != nil {
		return nil, err
	}

	logger.Info("Managed user updated", map[string]interface{}{
		"admin_id":        adminID,
		"user_id":         user.ID,
		"approval_status": user.ApprovalStatus,
		"status_changed":  changed,
	})

	// the row is committed; notification problems are reported but never
	// undo the update
	if changed && user.ApprovalStatus != model.ApprovalPending {
		if err := s.notifications.NotifyApprovalDecision(ctx, user); err != nil {
			logger.Error("Failed to send approval notification", err, map[string]interface{}{
				"user_id": user.ID,
			})
		}
	}

	return user, nil
}

func (s *userAdminService) ResendNotification(ctx context.Context, adminID, targetID uint) error {
	if adminID == targetID {
		return ErrSelfEdit
	}
	user, err := s.Get(targetID)
	if err != nil {
		return err
	}
	if user.ApprovalStatus == model.ApprovalPending {
		return ErrNothingToNotify
	}
	if err := s.notifications.NotifyApprovalDecision(ctx, user); err != nil {
		if errors.Is(err, ErrNothingToNotify) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrNotificationFailed, err)
	}
	return nil
}

func (s *userAdminService) Delete(adminID, targetID uint) error {
	if adminID == targetID {
		return ErrSelfDelete
	}
	if _, err := s.Get(targetID); err != nil {
		return err
	}
	if err := s.userRepo.Delete(targetID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	logger.Info("Managed user deleted", map[string]interface{}{
		"admin_id": adminID,
		"user_id":  targetID,
	})
	return nil
}
