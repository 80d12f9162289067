package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/primeapparel/marketplace-backend/internal/app/model"
	"github.com/primeapparel/marketplace-backend/internal/app/repository"
	"github.com/primeapparel/marketplace-backend/pkg/logger"
	"github.com/primeapparel/marketplace-backend/pkg/util"
	"gorm.io/gorm"
)

var (
	ErrEmailAlreadyExists  = errors.New("email already exists")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrUserNotFound        = errors.New("user not found")
	ErrAccountPending      = errors.New("account is pending admin approval")
	ErrAccountRejected     = errors.New("account was not approved")
	ErrAccountInactive     = errors.New("account is inactive")
	ErrRoleNotAllowed      = errors.New("role is not allowed for self registration")
	ErrWrongPassword       = errors.New("old password is incorrect")
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")
)

// RejectedError carries the admin's notes for a rejected account.
type RejectedError struct {
	Notes string
}

func (e *RejectedError) Error() string { return ErrAccountRejected.Error() }

func (e *RejectedError) Unwrap() error { return ErrAccountRejected }

// TokenRevoker blacklists access tokens; *redis.TokenBlacklist satisfies it.
type TokenRevoker interface {
	Revoke(ctx context.Context, token string, ttl time.Duration) error
	IsRevoked(ctx context.Context, token string) (bool, error)
}

type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     string
	Company   string
	Role      model.Role
}

// ProfileUpdate is a partial self-service update.
type ProfileUpdate struct {
	FirstName *string
	LastName  *string
	Phone     *string
	Company   *string
	AvatarURL *string
}

type AuthService interface {
	Register(input RegisterInput) (*model.User, error)
	Login(email, password string) (*model.User, *util.TokenPair, error)
	Refresh(refreshToken string) (*util.TokenPair, error)
	Logout(ctx context.Context, accessToken string) error
	GetUserByID(id uint) (*model.User, error)
	UpdateProfile(userID uint, update ProfileUpdate) (*model.User, error)
	ChangePassword(userID uint, oldPassword, newPassword string) error
}

type authService struct {
	userRepo      repository.UserRepository
	hasher        util.Hasher
	notifications NotificationService
	revoker       TokenRevoker
	jwtSecret     string
	accessExpiry  time.Duration
	refreshExpiry time.Duration
}

// NewAuthService accepts a nil revoker when redis is disabled; logout then
// only discards tokens client side.
func NewAuthService(
	userRepo repository.UserRepository,
	hasher util.Hasher,
	notifications NotificationService,
	revoker TokenRevoker,
	jwtSecret string,
	accessExpiry, refreshExpiry time.Duration,
) AuthService {
	return &authService{
		userRepo:      userRepo,
		hasher:        hasher,
		notifications: notifications,
		revoker:       revoker,
		jwtSecret:     jwtSecret,
		accessExpiry:  accessExpiry,
		refreshExpiry: refreshExpiry,
	}
}

func (s *authService) Register(input RegisterInput) (*model.User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	logger.Info("Attempting user registration", map[string]interface{}{
		"email": email,
		"role":  input.Role,
	})

	role := input.Role
	if role == "" {
		role = model.RoleBuyer
	}
	if role != model.RoleSeller && role != model.RoleBuyer {
		return nil, ErrRoleNotAllowed
	}

	exists, err := s.userRepo.EmailExists(email)
	if err != nil {
		return nil, err
	}
	if exists {
		logger.Warn("Registration failed: email already exists", map[string]interface{}{
			"email": email,
		})
		return nil, ErrEmailAlreadyExists
	}

	hashedPassword, err := s.hasher.Hash(input.Password)
	if err != nil {
		logger.Error("Failed to hash password", err)
		return nil, err
	}

	user := &model.User{
		Email:        email,
		PasswordHash: hashedPassword,
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		Phone:        strings.TrimSpace(input.Phone),
		Company:      strings.TrimSpace(input.Company),
		Role:         role,
	}
	if role.RequiresApproval() {
		user.ApprovalStatus = model.ApprovalPending
		user.IsActive = false
	} else {
		user.ApprovalStatus = model.ApprovalApproved
		user.IsActive = true
	}

	if err := s.userRepo.Create(user); err != nil {
		return nil, err
	}

	if user.ApprovalStatus == model.ApprovalPending {
		s.notifications.NotifyRegistrationPending(user)
	}

	logger.Info("User registered successfully", map[string]interface{}{
		"user_id":         user.ID,
		"role":            user.Role,
		"approval_status": user.ApprovalStatus,
	})
	return user, nil
}

// checkAccess applies the approval gate shared by login and refresh.
func checkAccess(user *model.User) error {
	switch user.ApprovalStatus {
	case model.ApprovalPending:
		return ErrAccountPending
	case model.ApprovalRejected:
		return &RejectedError{Notes: user.ApprovalNotes}
	}
	if !user.IsActive {
		return ErrAccountInactive
	}
	return nil
}

func (s *authService) issueTokens(user *model.User) (*util.TokenPair, error) {
	tokens, err := util.GenerateTokenPair(
		user.ID,
		user.Email,
		string(user.Role),
		s.jwtSecret,
		s.accessExpiry,
		s.refreshExpiry,
	)
	if err != nil {
		logger.Error("Failed to generate tokens", err, map[string]interface{}{
			"user_id": user.ID,
		})
		return nil, err
	}
	return tokens, nil
}

func (s *authService) Login(email, password string) (*model.User, *util.TokenPair, error) {
	logger.Info("Login attempt", map[string]interface{}{
		"email": email,
	})

	user, err := s.userRepo.FindByEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}

	if !s.hasher.Verify(user.PasswordHash, password) {
		logger.Warn("Login failed: invalid password", map[string]interface{}{
			"user_id": user.ID,
		})
		return nil, nil, ErrInvalidCredentials
	}

	if err := checkAccess(user); err != nil {
		logger.Warn("Login blocked", map[string]interface{}{
			"user_id": user.ID,
			"reason":  err.Error(),
		})
		return nil, nil, err
	}

	tokens, err := s.issueTokens(user)
	if err != nil {
		return nil, nil, err
	}

	logger.Info("User logged in successfully", map[string]interface{}{
		"user_id": user.ID,
		"role":    user.Role,
	})
	return user, tokens, nil
}

func (s *authService) Refresh(refreshToken string) (*util.TokenPair, error) {
	claims, err := util.ValidateToken(refreshToken, s.jwtSecret)
	if err != nil || claims.TokenType != util.TokenTypeRefresh {
		return nil, ErrInvalidRefreshToken
	}

	user, err := s.GetUserByID(claims.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}
	if err := checkAccess(user); err != nil {
		return nil, err
	}
	return s.issueTokens(user)
}

func (s *authService) Logout(ctx context.Context, accessToken string) error {
	if s.revoker == nil {
		return nil
	}
	claims, err := util.ValidateToken(accessToken, s.jwtSecret)
	if err != nil {
		// already unusable
		return nil
	}
	if claims.ExpiresAt == nil {
		return nil
	}
	if err := s.revoker.Revoke(ctx, accessToken, time.Until(claims.ExpiresAt.Time)); err != nil {
		return err
	}
	logger.Info("User logged out", map[string]interface{}{
		"user_id": claims.UserID,
	})
	return nil
}

func (s *authService) GetUserByID(id uint) (*model.User, error) {
	user, err := s.userRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *authService) UpdateProfile(userID uint, update ProfileUpdate) (*model.User, error) {
	user, err := s.GetUserByID(userID)
	if err != nil {
		return nil, err
	}

	if update.FirstName != nil {
		user.FirstName = strings.TrimSpace(*update.FirstName)
	}
	if update.LastName != nil {
		user.LastName = strings.TrimSpace(*update.LastName)
	}
	if update.Phone != nil {
		user.Phone = strings.TrimSpace(*update.Phone)
	}
	if update.Company != nil {
		user.Company = strings.TrimSpace(*update.Company)
	}
	if update.AvatarURL != nil {
		user.AvatarURL = *update.AvatarURL
	}

	if err := s.userRepo.Update(user); err != nil {
		return nil, err
	}

	logger.Info("Profile updated", map[string]interface{}{
		"user_id": user.ID,
	})
	return user, nil
}

func (s *authService) ChangePassword(userID uint, oldPassword, newPassword string) error {
	user, err := s.GetUserByID(userID)
	if err != nil {
		return err
	}
	if !s.hasher.Verify(user.PasswordHash, oldPassword) {
		return ErrWrongPassword
	}
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := s.userRepo.UpdatePassword(user.ID, hash); err != nil {
		return err
	}
	logger.Info("Password changed", map[string]interface{}{
		"user_id": user.ID,
	})
	return nil
}
