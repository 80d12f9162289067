package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/primeapparel/marketplace-backend/internal/app/model"
	"github.com/primeapparel/marketplace-backend/internal/websocket"
	"github.com/primeapparel/marketplace-backend/pkg/logger"
	"github.com/primeapparel/marketplace-backend/pkg/mailer"
)

var ErrNothingToNotify = errors.New("no notification to send for pending accounts")

const (
	SubjectPasswordReset    = "Your Prime Apparel password reset code"
	SubjectAccountApproved  = "Your Prime Apparel account has been approved"
	SubjectAccountRejected  = "Update on your Prime Apparel account"
	defaultRejectionMessage = "Unfortunately, we could not approve your account at this time."
)

// EventPusher is the realtime side of notifications; *websocket.Hub
// satisfies it.
type EventPusher interface {
	SendToUser(userID uint, event websocket.Event) error
	SendToRole(role model.Role, event websocket.Event) error
}

// NotificationService composes account emails and realtime events.
type NotificationService interface {
	// NotifyApprovalDecision emails the user about their current status and
	// pushes an approval_status event. It returns the email error.
	NotifyApprovalDecision(ctx context.Context, user *model.User) error
	// NotifyRegistrationPending tells connected admins a seller is waiting.
	NotifyRegistrationPending(user *model.User)
}

type notificationService struct {
	notifier mailer.Notifier
	pusher   EventPusher
}

// NewNotificationService accepts a nil pusher when realtime is disabled.
func NewNotificationService(notifier mailer.Notifier, pusher EventPusher) NotificationService {
	return &notificationService{notifier: notifier, pusher: pusher}
}

type approvalEventPayload struct {
	UserID         uint                 `json:"user_id"`
	ApprovalStatus model.ApprovalStatus `json:"approval_status"`
	ApprovalNotes  string               `json:"approval_notes,omitempty"`
}

type pendingEventPayload struct {
	UserID  uint   `json:"user_id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Company string `json:"company"`
}

func (s *notificationService) NotifyApprovalDecision(ctx context.Context, user *model.User) error {
	subject, body, err := approvalEmail(user)
	if err != nil {
		return err
	}

	if s.pusher != nil {
		event := websocket.NewEvent(websocket.EventApprovalStatus, approvalEventPayload{
			UserID:         user.ID,
			ApprovalStatus: user.ApprovalStatus,
			ApprovalNotes:  user.ApprovalNotes,
		})
		if err := s.pusher.SendToUser(user.ID, event); err != nil {
			logger.Warn("Failed to push approval event", map[string]interface{}{
				"user_id": user.ID,
				"error":   err.Error(),
			})
		}
	}

	if user.Email == "" {
		logger.Warn("Skipping approval email, user has no email address", map[string]interface{}{
			"user_id": user.ID,
		})
		return nil
	}

	if err := s.notifier.Send(ctx, user.Email, subject, body); err != nil {
		return fmt.Errorf("failed to send approval email: %w", err)
	}

	logger.Info("Approval notification sent", map[string]interface{}{
		"user_id":         user.ID,
		"approval_status": user.ApprovalStatus,
	})
	return nil
}

func (s *notificationService) NotifyRegistrationPending(user *model.User) {
	if s.pusher == nil {
		return
	}
	event := websocket.NewEvent(websocket.EventRegistrationPending, pendingEventPayload{
		UserID:  user.ID,
		Email:   user.Email,
		Name:    user.FullName(),
		Company: user.Company,
	})
	if err := s.pusher.SendToRole(model.RoleAdmin, event); err != nil {
		logger.Warn("Failed to push registration event", map[string]interface{}{
			"user_id": user.ID,
			"error":   err.Error(),
		})
	}
}

func approvalEmail(user *model.User) (string, string, error) {
	switch user.ApprovalStatus {
	case model.ApprovalApproved:
		body := fmt.Sprintf(
			"Hello %s,\n\nYour %s account on Prime Apparel has been approved. You can now log in and start using the platform.\n\nThe Prime Apparel Team",
			user.DisplayName(), strings.ToLower(string(user.Role)),
		)
		return SubjectAccountApproved, body, nil
	case model.ApprovalRejected:
		reason := strings.TrimSpace(user.ApprovalNotes)
		if reason == "" {
			reason = defaultRejectionMessage
		}
		body := fmt.Sprintf(
			"Hello %s,\n\nThank you for your interest in Prime Apparel. After review, your account registration was not approved.\n\nReason: %s\n\nIf you have questions, reply to this email.\n\nThe Prime Apparel Team",
			user.DisplayName(), reason,
		)
		return SubjectAccountRejected, body, nil
	case model.ApprovalPending:
		return "", "", ErrNothingToNotify
	default:
		return "", "", fmt.Errorf("unknown approval status %q", user.ApprovalStatus)
	}
}

func passwordResetEmail(user *model.User, code string, expiryMinutes int) string {
	return fmt.Sprintf(
		"Hello %s,\n\nYour Prime Apparel password reset code is: %s\n\nThis code expires in %d minutes. If you did not request a password reset, you can ignore this email.\n\nThe Prime Apparel Team",
		user.DisplayName(), code, expiryMinutes,
	)
}
