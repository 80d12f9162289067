package errors

// Machine-readable error codes returned in the "code" field of every
// failure body. Format: CATEGORY_SPECIFIC_DETAIL.

const (
	// ==================== Authentication (AUTH_) ====================
	AuthUnauthorized       = "AUTH_UNAUTHORIZED"
	AuthInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	AuthTokenExpired       = "AUTH_TOKEN_EXPIRED"
	AuthTokenInvalid       = "AUTH_TOKEN_INVALID"
	AuthTokenRevoked       = "AUTH_TOKEN_REVOKED"
	AuthEmailAlreadyExists = "AUTH_EMAIL_EXISTS"
	AuthAccountPending     = "AUTH_ACCOUNT_PENDING"
	AuthAccountRejected    = "AUTH_ACCOUNT_REJECTED"
	AuthAccountInactive    = "AUTH_ACCOUNT_INACTIVE"
	AuthWrongPassword      = "AUTH_WRONG_PASSWORD"

	// ==================== Password reset (RESET_) ====================
	ResetAccountNotFound = "RESET_ACCOUNT_NOT_FOUND"
	ResetInvalidOTP      = "RESET_INVALID_OTP"
	ResetNoActiveOTP     = "RESET_NO_ACTIVE_OTP"
	ResetOTPExpired      = "RESET_OTP_EXPIRED"
	ResetOTPMismatch     = "RESET_OTP_MISMATCH"
	ResetTooManyAttempts = "RESET_TOO_MANY_ATTEMPTS"
	ResetInvalidRequest  = "RESET_INVALID_REQUEST"
	ResetInvalidToken    = "RESET_INVALID_TOKEN"
	ResetTokenExpired    = "RESET_TOKEN_EXPIRED"
	ResetOTPNotVerified  = "RESET_OTP_NOT_VERIFIED"

	// ==================== Authorization (AUTHZ_) ====================
	AuthzForbidden    = "AUTHZ_FORBIDDEN"
	AuthzRoleNotFound = "AUTHZ_ROLE_NOT_FOUND"
	AuthzOwnerOnly    = "AUTHZ_OWNER_ONLY"

	// ==================== Account management (ACCOUNT_) ====================
	AccountSelfEdit        = "ACCOUNT_SELF_EDIT"
	AccountSelfDelete      = "ACCOUNT_SELF_DELETE"
	AccountNothingToNotify = "ACCOUNT_NOTHING_TO_NOTIFY"

	// ==================== Validation (VALIDATION_) ====================
	ValidationInvalidInput = "VALIDATION_INVALID_INPUT"
	ValidationInvalidID    = "VALIDATION_INVALID_ID"
	ValidationNoFiles      = "VALIDATION_NO_FILES"

	// ==================== Resources (RESOURCE_) ====================
	ResourceNotFound      = "RESOURCE_NOT_FOUND"
	ResourceAlreadyExists = "RESOURCE_ALREADY_EXISTS"
	ResourceConflict      = "RESOURCE_CONFLICT"

	UserNotFound    = "USER_NOT_FOUND"
	LeadNotFound    = "LEAD_NOT_FOUND"
	ProductNotFound = "PRODUCT_NOT_FOUND"

	// ==================== Server (INTERNAL_) ====================
	InternalServerError  = "INTERNAL_SERVER_ERROR"
	InternalDatabase     = "INTERNAL_DATABASE_ERROR"
	InternalExternalAPI  = "INTERNAL_EXTERNAL_API_ERROR"
	InternalDelivery     = "INTERNAL_DELIVERY_FAILED"
	InternalStorage      = "INTERNAL_STORAGE_ERROR"
	StorageNotConfigured = "STORAGE_NOT_CONFIGURED"
)
