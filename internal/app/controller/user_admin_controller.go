package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/primeapparel/marketplace-backend/internal/app/model"
	"github.com/primeapparel/marketplace-backend/internal/app/repository"
	"github.com/primeapparel/marketplace-backend/internal/app/service"
	apperrors "github.com/primeapparel/marketplace-backend/internal/errors"
	"github.com/primeapparel/marketplace-backend/internal/middleware"
)

// UserAdminController serves /users/manage. Every route is admin-only and
// never exposes admin accounts.
type UserAdminController struct {
	userAdminService service.UserAdminService
}

func NewUserAdminController(userAdminService service.UserAdminService) *UserAdminController {
	return &UserAdminController{userAdminService: userAdminService}
}

type UpdateManagedUserRequest struct {
	FirstName      *string `json:"first_name" binding:"omitempty,max=150"`
	LastName       *string `json:"last_name" binding:"omitempty,max=150"`
	Phone          *string `json:"phone" binding:"omitempty,max=32"`
	Company        *string `json:"company" binding:"omitempty,max=255"`
	Role           *string `json:"role" binding:"omitempty,role"`
	IsActive       *bool   `json:"is_active"`
	ApprovalStatus *string `json:"approval_status" binding:"omitempty,approval_status"`
	ApprovalNotes  *string `json:"approval_notes"`
}

func (r UpdateManagedUserRequest) patch() service.ManagedUserUpdate {
	p := service.ManagedUserUpdate{
		FirstName:     r.FirstName,
		LastName:      r.LastName,
		Phone:         r.Phone,
		Company:       r.Company,
		IsActive:      r.IsActive,
		ApprovalNotes: r.ApprovalNotes,
	}
	if r.Role != nil {
		role, _ := model.ParseRole(*r.Role)
		p.Role = &role
	}
	if r.ApprovalStatus != nil {
		status, _ := model.ParseApprovalStatus(*r.ApprovalStatus)
		p.ApprovalStatus = &status
	}
	return p
}

// ListUsers lists non-admin accounts
// GET /api/v1/users/manage?search=&role=&status=
func (ctrl *UserAdminController) ListUsers(c *gin.Context) {
	filter := repository.ManagedUserFilter{Search: c.Query("search")}
	if v := c.Query("role"); v != "" {
		role, err := model.ParseRole(v)
		if err != nil {
			apperrors.RespondWithValidationError(c, map[string]string{"role": "Unknown role."})
			return
		}
		filter.Role = role
	}
	if v := c.Query("status"); v != "" {
		status, err := model.ParseApprovalStatus(v)
		if err != nil {
			apperrors.RespondWithValidationError(c, map[string]string{"status": "Unknown approval status."})
			return
		}
		filter.Status = status
	}

	users, err := ctrl.userAdminService.List(filter)
	if err != nil {
		middleware.GetLoggerFromContext(c).Error("Failed to list users", err)
		apperrors.InternalError(c, "")
		return
	}
	c.JSON(http.StatusOK, users)
}

// GetUser returns one managed account
// GET /api/v1/users/manage/:id
func (ctrl *UserAdminController) GetUser(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	user, err := ctrl.userAdminService.Get(id)
	if err != nil {
		ctrl.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdateUser applies an admin patch, including approval decisions
// PATCH /api/v1/users/manage/:id
func (ctrl *UserAdminController) UpdateUser(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	adminID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, "")
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	// The self guard wins over payload validation.
	if id == adminID {
		apperrors.BadRequest(c, apperrors.AccountSelfEdit, "You cannot edit your own admin account here.")
		return
	}

	var req UpdateManagedUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid user update request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.RespondWithBindingError(c, err)
		return
	}

	user, err := ctrl.userAdminService.Update(c.Request.Context(), adminID, id, req.patch())
	if err != nil {
		ctrl.respondError(c, err)
		return
	}

	log.Info("Managed user updated", map[string]interface{}{
		"admin_id":        adminID,
		"user_id":         user.ID,
		"approval_status": user.ApprovalStatus,
	})
	c.JSON(http.StatusOK, user)
}

// DeleteUser removes a managed account
// DELETE /api/v1/users/manage/:id
func (ctrl *UserAdminController) DeleteUser(c *gin.Context) {
	adminID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, "")
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := ctrl.userAdminService.Delete(adminID, id); err != nil {
		ctrl.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ResendNotification re-sends the approval or rejection email
// POST /api/v1/users/manage/:id/notify
func (ctrl *UserAdminController) ResendNotification(c *gin.Context) {
	adminID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, "")
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := ctrl.userAdminService.ResendNotification(c.Request.Context(), adminID, id); err != nil {
		ctrl.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Notification sent."})
}

func (ctrl *UserAdminController) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		apperrors.NotFound(c, apperrors.UserNotFound, "User not found.")
	case errors.Is(err, service.ErrSelfEdit):
		apperrors.BadRequest(c, apperrors.AccountSelfEdit, "You cannot edit your own admin account here.")
	case errors.Is(err, service.ErrSelfDelete):
		apperrors.BadRequest(c, apperrors.AccountSelfDelete, "You cannot delete your own account while logged in.")
	case errors.Is(err, service.ErrRoleNotAssignable):
		apperrors.RespondWithValidationError(c, map[string]string{"role": "Role must be SELLER or BUYER."})
	case errors.Is(err, service.ErrNothingToNotify):
		apperrors.BadRequest(c, apperrors.AccountNothingToNotify, "No notification to send for pending accounts.")
	case errors.Is(err, service.ErrNotificationFailed):
		middleware.GetLoggerFromContext(c).Error("Notification delivery failed", err)
		apperrors.RespondWithError(c, http.StatusInternalServerError, apperrors.InternalDelivery, "Failed to send notification.")
	default:
		middleware.GetLoggerFromContext(c).Error("User management request failed", err)
		apperrors.InternalError(c, "")
	}
}
