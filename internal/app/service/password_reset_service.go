package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/primeapparel/marketplace-backend/config"
	"github.com/primeapparel/marketplace-backend/internal/app/model"
	"github.com/primeapparel/marketplace-backend/internal/app/repository"
	"github.com/primeapparel/marketplace-backend/pkg/logger"
	"github.com/primeapparel/marketplace-backend/pkg/mailer"
	"github.com/primeapparel/marketplace-backend/pkg/util"
	"gorm.io/gorm"
)

var (
	ErrAccountNotFound     = errors.New("no account found with that email address")
	ErrDeliveryFailed      = errors.New("unable to send OTP email")
	ErrInvalidOTP          = errors.New("invalid or expired OTP")
	ErrNoActiveOTP         = errors.New("no active OTP found")
	ErrOTPExpired          = errors.New("OTP has expired")
	ErrOTPMismatch         = errors.New("invalid OTP")
	ErrTooManyAttempts     = errors.New("too many invalid attempts")
	ErrInvalidResetRequest = errors.New("invalid password reset request")
	ErrInvalidResetToken   = errors.New("invalid or expired reset token")
	ErrResetTokenExpired   = errors.New("reset token has expired")
	ErrOTPNotVerified      = errors.New("OTP has not been verified yet")
)

// PasswordResetService drives the OTP flow: Issue mails a code, Verify
// trades the code for a reset token, Confirm trades the token for a new
// password.
type PasswordResetService interface {
	Issue(ctx context.Context, email string) error
	Verify(ctx context.Context, email, code string) (string, error)
	Confirm(ctx context.Context, email, token, newPassword string) error
	PurgeStale(ctx context.Context) (int64, error)
}

type passwordResetService struct {
	db       *gorm.DB
	userRepo repository.UserRepository
	notifier mailer.Notifier
	hasher   util.Hasher
	cfg      config.PasswordResetConfig
	now      func() time.Time
}

func NewPasswordResetService(
	db *gorm.DB,
	notifier mailer.Notifier,
	hasher util.Hasher,
	cfg config.PasswordResetConfig,
) PasswordResetService {
	return &passwordResetService{
		db:       db,
		userRepo: repository.NewUserRepository(db),
		notifier: notifier,
		hasher:   hasher,
		cfg:      cfg,
		now:      time.Now,
	}
}

func (s *passwordResetService) lookup(email string) (*model.User, error) {
	user, err := s.userRepo.FindByEmail(strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return user, err
}

func (s *passwordResetService) Issue(ctx context.Context, email string) error {
	user, err := s.lookup(email)
	if err != nil {
		logger.Error("Failed to look up user for password reset", err)
		return err
	}
	if user == nil {
		logger.Warn("Password reset requested for unknown email", map[string]interface{}{
			"email": email,
		})
		if s.cfg.ConcealUnknownEmail {
			return nil
		}
		return ErrAccountNotFound
	}

	code, err := util.GenerateOTP()
	if err != nil {
		logger.Error("Failed to generate OTP", err)
		return err
	}
	codeHash, err := s.hasher.Hash(code)
	if err != nil {
		logger.Error("Failed to hash OTP", err)
		return err
	}

	req := &model.PasswordResetRequest{
		UserID:    user.ID,
		CodeHash:  codeHash,
		Token:     uuid.New().String(),
		ExpiresAt: s.now().Add(time.Duration(s.cfg.OTPExpiryMinutes) * time.Minute),
	}
	// at most one unused request per user
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		resets := repository.NewPasswordResetRepository(tx)
		if err := resets.LockUser(user.ID); err != nil {
			return err
		}
		if _, err := resets.DeleteUnusedForUser(user.ID); err != nil {
			return err
		}
		return resets.Create(req)
	})
	if err != nil {
		logger.Error("Failed to store password reset request", err, map[string]interface{}{
			"user_id": user.ID,
		})
		return err
	}

	body := passwordResetEmail(user, code, s.cfg.OTPExpiryMinutes)
	if err := s.notifier.Send(ctx, user.Email, SubjectPasswordReset, body); err != nil {
		logger.Error("Failed to send password reset email", err, map[string]interface{}{
			"user_id": user.ID,
		})
		// the code never reached the user, so the row must not stay usable
		if delErr := repository.NewPasswordResetRepository(s.db).Delete(req.ID); delErr != nil {
			logger.Error("Failed to remove undelivered password reset request", delErr, map[string]interface{}{
				"id": req.ID,
			})
		}
		return ErrDeliveryFailed
	}

	logger.Info("Password reset OTP issued", map[string]interface{}{
		"user_id":    user.ID,
		"expires_at": req.ExpiresAt,
	})
	return nil
}

func (s *passwordResetService) Verify(ctx context.Context, email, code string) (string, error) {
	user, err := s.lookup(email)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", ErrInvalidOTP
	}

	var (
		token   string
		outcome error
	)
	// outcome errors are returned after commit so counters and used_at
	// writes persist
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		resets := repository.NewPasswordResetRepository(tx)

		req, err := resets.FindLatestActiveForUpdate(user.ID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			outcome = ErrNoActiveOTP
			return nil
		}
		if err != nil {
			return err
		}

		now := s.now()
		if req.IsExpired(now) {
			outcome = ErrOTPExpired
			return resets.MarkUsed(req.ID, now)
		}

		if !s.hasher.Verify(req.CodeHash, code) {
			count, err := resets.IncrementAttempts(req.ID)
			if err != nil {
				return err
			}
			logger.Warn("Password reset OTP mismatch", map[string]interface{}{
				"user_id":  user.ID,
				"attempts": count,
			})
			if count >= s.cfg.MaxAttempts {
				outcome = ErrTooManyAttempts
				return resets.MarkUsed(req.ID, now)
			}
			outcome = ErrOTPMismatch
			return nil
		}

		if err := resets.MarkVerified(req.ID, now); err != nil {
			return err
		}
		token = req.Token
		return nil
	})
	if err != nil {
		logger.Error("Failed to verify password reset OTP", err, map[string]interface{}{
			"user_id": user.ID,
		})
		return "", err
	}
	if outcome != nil {
		return "", outcome
	}

	logger.Info("Password reset OTP verified", map[string]interface{}{
		"user_id": user.ID,
	})
	return token, nil
}

func (s *passwordResetService) Confirm(ctx context.Context, email, token, newPassword string) error {
	user, err := s.lookup(email)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrInvalidResetRequest
	}

	var outcome error
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		resets := repository.NewPasswordResetRepository(tx)

		req, err := resets.FindActiveByTokenForUpdate(user.ID, token)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			outcome = ErrInvalidResetToken
			return nil
		}
		if err != nil {
			return err
		}

		now := s.now()
		if req.IsExpired(now) {
			outcome = ErrResetTokenExpired
			return resets.MarkUsed(req.ID, now)
		}
		if !req.IsVerified() {
			outcome = ErrOTPNotVerified
			return nil
		}

		// hashed only once a verified, unexpired request is held
		passwordHash, err := s.hasher.Hash(newPassword)
		if err != nil {
			logger.Error("Failed to hash new password", err)
			return err
		}
		if err := repository.NewUserRepository(tx).UpdatePassword(user.ID, passwordHash); err != nil {
			return err
		}
		if err := resets.MarkUsed(req.ID, now); err != nil {
			return err
		}
		_, err = resets.DeleteOthersForUser(user.ID, req.ID)
		return err
	})
	if err != nil {
		logger.Error("Failed to confirm password reset", err, map[string]interface{}{
			"user_id": user.ID,
		})
		return err
	}
	if outcome != nil {
		return outcome
	}

	logger.Info("Password reset completed", map[string]interface{}{
		"user_id": user.ID,
	})
	return nil
}

// PurgeStale deletes consumed or expired requests older than the
// retention window.
func (s *passwordResetService) PurgeStale(ctx context.Context) (int64, error) {
	now := s.now()
	n, err := repository.NewPasswordResetRepository(s.db.WithContext(ctx)).DeleteStale(now, now.Add(-s.cfg.Retention))
	if err != nil {
		return 0, err
	}
	logger.Info("Purged stale password reset requests", map[string]interface{}{
		"deleted": n,
	})
	return n, nil
}
