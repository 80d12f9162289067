package controller

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/primeapparel/marketplace-backend/internal/app/model"
	"github.com/primeapparel/marketplace-backend/internal/app/service"
	apperrors "github.com/primeapparel/marketplace-backend/internal/errors"
	"github.com/primeapparel/marketplace-backend/internal/middleware"
	"github.com/primeapparel/marketplace-backend/internal/storage"
)

type AuthController struct {
	authService          service.AuthService
	passwordResetService service.PasswordResetService
	mediaService         service.MediaService
	publicBaseURL        string
}

func NewAuthController(
	authService service.AuthService,
	passwordResetService service.PasswordResetService,
	mediaService service.MediaService,
	publicBaseURL string,
) *AuthController {
	return &AuthController{
		authService:          authService,
		passwordResetService: passwordResetService,
		mediaService:         mediaService,
		publicBaseURL:        publicBaseURL,
	}
}

type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email,max=254"`
	Password  string `json:"password" binding:"required,min=8"`
	FirstName string `json:"first_name" binding:"max=150"`
	LastName  string `json:"last_name" binding:"max=150"`
	Phone     string `json:"phone" binding:"max=32"`
	Company   string `json:"company" binding:"max=255"`
	Role      string `json:"role" binding:"omitempty,signup_role"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RefreshTokenRequest struct {
	Refresh string `json:"refresh" binding:"required"`
}

type UpdateProfileRequest struct {
	FirstName *string `json:"first_name" form:"first_name" binding:"omitempty,max=150"`
	LastName  *string `json:"last_name" form:"last_name" binding:"omitempty,max=150"`
	Phone     *string `json:"phone" form:"phone" binding:"omitempty,max=32"`
	Company   *string `json:"company" form:"company" binding:"omitempty,max=255"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8"`
}

type PasswordResetRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type VerifyOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
	OTP   string `json:"otp" binding:"required,len=6,numeric"`
}

type ConfirmPasswordResetRequest struct {
	Email       string `json:"email" binding:"required,email"`
	ResetToken  string `json:"reset_token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8"`
}

// Register handles user registration
// POST /api/v1/auth/register
func (ctrl *AuthController) Register(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid registration request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.RespondWithBindingError(c, err)
		return
	}

	role := model.RoleBuyer
	if req.Role != "" {
		role, _ = model.ParseRole(req.Role)
	}

	user, err := ctrl.authService.Register(service.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		Company:   req.Company,
		Role:      role,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmailAlreadyExists):
			apperrors.Conflict(c, apperrors.AuthEmailAlreadyExists, "A user with this email already exists.")
		case errors.Is(err, service.ErrRoleNotAllowed):
			apperrors.RespondWithValidationError(c, map[string]string{
				"role": "Only SELLER or BUYER accounts can be registered.",
			})
		default:
			log.Error("Registration failed", err, map[string]interface{}{
				"email": req.Email,
			})
			apperrors.InternalError(c, "Failed to register user.")
		}
		return
	}

	message := "Registration successful."
	if user.ApprovalStatus == model.ApprovalPending {
		message = "Registration successful. Your account is pending admin approval."
	}

	log.Info("User registered", map[string]interface{}{
		"user_id": user.ID,
		"role":    user.Role,
	})
	c.JSON(http.StatusCreated, gin.H{
		"message": message,
		"user":    user,
	})
}

// Login handles user login
// POST /api/v1/auth/login
func (ctrl *AuthController) Login(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.RespondWithBindingError(c, err)
		return
	}

	user, tokens, err := ctrl.authService.Login(req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			apperrors.RespondWithError(c, http.StatusUnauthorized, apperrors.AuthInvalidCredentials, "Invalid email or password.")
			return
		}
		if !respondAccessError(c, err) {
			log.Error("Login failed", err)
			apperrors.InternalError(c, "")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access":  tokens.AccessToken,
		"refresh": tokens.RefreshToken,
		"user":    user,
	})
}

// respondAccessError writes the 403 for accounts blocked by the approval
// gate and reports whether err was one of those.
func respondAccessError(c *gin.Context, err error) bool {
	var rejected *service.RejectedError
	switch {
	case errors.Is(err, service.ErrAccountPending):
		apperrors.RespondWithError(c, http.StatusForbidden, apperrors.AuthAccountPending, "Your account is pending admin approval.")
	case errors.As(err, &rejected):
		c.JSON(http.StatusForbidden, gin.H{
			"error":          "Your account was not approved.",
			"code":           apperrors.AuthAccountRejected,
			"approval_notes": rejected.Notes,
		})
	case errors.Is(err, service.ErrAccountInactive):
		apperrors.RespondWithError(c, http.StatusForbidden, apperrors.AuthAccountInactive, "This account is inactive.")
	default:
		return false
	}
	return true
}

// RefreshToken exchanges a refresh token for a new pair
// POST /api/v1/auth/token/refresh
func (ctrl *AuthController) RefreshToken(c *gin.Context) {
	var req RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.RespondWithBindingError(c, err)
		return
	}

	tokens, err := ctrl.authService.Refresh(req.Refresh)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRefreshToken) {
			apperrors.RespondWithError(c, http.StatusUnauthorized, apperrors.AuthTokenInvalid, "Token is invalid or expired.")
			return
		}
		if respondAccessError(c, err) {
			return
		}
		middleware.GetLoggerFromContext(c).Error("Token refresh failed", err)
		apperrors.InternalError(c, "")
		return
	}

	c.JSON(http.StatusOK, tokens)
}

// Logout revokes the bearer token
// POST /api/v1/auth/logout
func (ctrl *AuthController) Logout(c *gin.Context) {
	token, _ := middleware.GetAccessToken(c)
	if err := ctrl.authService.Logout(c.Request.Context(), token); err != nil {
		middleware.GetLoggerFromContext(c).Error("Logout failed", err)
		apperrors.InternalError(c, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out."})
}

// GetMe returns the current user
// GET /api/v1/auth/me
func (ctrl *AuthController) GetMe(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, "")
		return
	}

	user, err := ctrl.authService.GetUserByID(userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			apperrors.NotFound(c, apperrors.UserNotFound, "User not found.")
			return
		}
		middleware.GetLoggerFromContext(c).Error("Failed to load current user", err)
		apperrors.InternalError(c, "")
		return
	}

	c.JSON(http.StatusOK, user)
}

// UpdateMe updates the current user's profile. A multipart body may carry
// an avatar file.
// PATCH /api/v1/auth/me
func (ctrl *AuthController) UpdateMe(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, "")
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBind(&req); err != nil {
		apperrors.RespondWithBindingError(c, err)
		return
	}

	update := service.ProfileUpdate{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		Company:   req.Company,
	}

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		if fh, err := c.FormFile("avatar"); err == nil {
			urls, err := ctrl.mediaService.SaveImages(c.Request.Context(), storage.FolderAvatars, toUploads([]*multipart.FileHeader{fh}))
			if err != nil {
				if errors.Is(err, service.ErrUnsupportedFile) {
					apperrors.RespondWithValidationError(c, map[string]string{"avatar": err.Error()})
					return
				}
				log.Error("Failed to store avatar", err, map[string]interface{}{
					"user_id": userID,
				})
				apperrors.RespondWithError(c, http.StatusInternalServerError, apperrors.InternalStorage, "Failed to save avatar.")
				return
			}
			avatar := absoluteURL(c, ctrl.publicBaseURL, urls[0])
			update.AvatarURL = &avatar
		}
	}

	user, err := ctrl.authService.UpdateProfile(userID, update)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			apperrors.NotFound(c, apperrors.UserNotFound, "User not found.")
			return
		}
		log.Error("Failed to update profile", err, map[string]interface{}{
			"user_id": userID,
		})
		apperrors.InternalError(c, "")
		return
	}

	c.JSON(http.StatusOK, user)
}

// ChangePassword updates the current user's password
// POST /api/v1/auth/change-password
func (ctrl *AuthController) ChangePassword(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, "")
		return
	}

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.RespondWithBindingError(c, err)
		return
	}

	if err := ctrl.authService.ChangePassword(userID, req.OldPassword, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, service.ErrWrongPassword):
			apperrors.RespondWithValidationError(c, map[string]string{
				"old_password": "Old password is incorrect.",
			})
		case errors.Is(err, service.ErrUserNotFound):
			apperrors.NotFound(c, apperrors.UserNotFound, "User not found.")
		default:
			middleware.GetLoggerFromContext(c).Error("Failed to change password", err)
			apperrors.InternalError(c, "")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password changed successfully."})
}

// RequestPasswordReset emails a one-time code
// POST /api/v1/auth/password-reset/request
func (ctrl *AuthController) RequestPasswordReset(c *gin.Context) {
	var req PasswordResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.RespondWithBindingError(c, err)
		return
	}

	if err := ctrl.passwordResetService.Issue(c.Request.Context(), req.Email); err != nil {
		switch {
		case errors.Is(err, service.ErrAccountNotFound):
			apperrors.NotFound(c, apperrors.ResetAccountNotFound, "No account found with that email address.")
		case errors.Is(err, service.ErrDeliveryFailed):
			apperrors.RespondWithError(c, http.StatusInternalServerError, apperrors.InternalDelivery,
				"Unable to send OTP email right now. Please try again later.")
		default:
			middleware.GetLoggerFromContext(c).Error("Failed to issue password reset", err)
			apperrors.InternalError(c, "")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "If an account exists for this email, an OTP has been sent.",
	})
}

// resetErrors maps verify/confirm failures to their client codes and messages.
var resetErrors = []struct {
	err     error
	code    string
	message string
}{
	{service.ErrInvalidOTP, apperrors.ResetInvalidOTP, "Invalid or expired OTP. Please request a new code."},
	{service.ErrNoActiveOTP, apperrors.ResetNoActiveOTP, "No active OTP found. Please request a new code."},
	{service.ErrOTPExpired, apperrors.ResetOTPExpired, "This OTP has expired. Please request a new one."},
	{service.ErrTooManyAttempts, apperrors.ResetTooManyAttempts, "Too many invalid attempts. Please request a new OTP."},
	{service.ErrOTPMismatch, apperrors.ResetOTPMismatch, "Invalid OTP. Please try again."},
	{service.ErrInvalidResetRequest, apperrors.ResetInvalidRequest, "Invalid password reset request."},
	{service.ErrInvalidResetToken, apperrors.ResetInvalidToken, "Invalid or expired reset token."},
	{service.ErrResetTokenExpired, apperrors.ResetTokenExpired, "Reset token has expired. Please request a new OTP."},
	{service.ErrOTPNotVerified, apperrors.ResetOTPNotVerified, "OTP has not been verified yet."},
}

func respondResetError(c *gin.Context, err error) {
	for _, e := range resetErrors {
		if errors.Is(err, e.err) {
			apperrors.BadRequest(c, e.code, e.message)
			return
		}
	}
	middleware.GetLoggerFromContext(c).Error("Password reset failed", err)
	apperrors.InternalError(c, "")
}

// VerifyPasswordReset checks the emailed code and returns a reset token
// POST /api/v1/auth/password-reset/verify
func (ctrl *AuthController) VerifyPasswordReset(c *gin.Context) {
	var req VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.RespondWithBindingError(c, err)
		return
	}

	token, err := ctrl.passwordResetService.Verify(c.Request.Context(), req.Email, req.OTP)
	if err != nil {
		respondResetError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":     "OTP verified successfully.",
		"reset_token": token,
	})
}

// ConfirmPasswordReset sets the new password
// POST /api/v1/auth/password-reset/confirm
func (ctrl *AuthController) ConfirmPasswordReset(c *gin.Context) {
	var req ConfirmPasswordResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.RespondWithBindingError(c, err)
		return
	}

	if err := ctrl.passwordResetService.Confirm(c.Request.Context(), req.Email, req.ResetToken, req.NewPassword); err != nil {
		respondResetError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password reset successfully."})
}
