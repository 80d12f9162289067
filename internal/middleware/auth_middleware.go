package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/primeapparel/marketplace-backend/internal/app/model"
	apperrors "github.com/primeapparel/marketplace-backend/internal/errors"
	"github.com/primeapparel/marketplace-backend/internal/policy"
	"github.com/primeapparel/marketplace-backend/pkg/util"
	"gorm.io/gorm"
)

// Context keys for user information
const (
	UserIDKey      = "user_id"
	UserEmailKey   = "user_email"
	UserRoleKey    = "user_role"
	AccessTokenKey = "access_token"
)

// RevocationChecker reports whether an access token was revoked on logout.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, token string) (bool, error)
}

// UserLookup loads the account behind a token on every request, so approval
// decisions, role changes and deletions apply to sessions already open.
type UserLookup interface {
	FindByID(id uint) (*model.User, error)
}

type AuthMiddleware struct {
	jwtSecret string
	users     UserLookup
	revoked   RevocationChecker
	policy    *policy.Policy
}

// NewAuthMiddleware accepts a nil checker when redis is disabled.
func NewAuthMiddleware(jwtSecret string, users UserLookup, revoked RevocationChecker, pol *policy.Policy) *AuthMiddleware {
	return &AuthMiddleware{
		jwtSecret: jwtSecret,
		users:     users,
		revoked:   revoked,
		policy:    pol,
	}
}

var errBadHeader = errors.New("invalid authorization header format")

// bearerToken reads "Authorization: Bearer <token>", falling back to the
// ?token= query parameter browsers use for websockets.
func bearerToken(c *gin.Context) (string, error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return c.Query("token"), nil
	}
	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errBadHeader
	}
	return parts[1], nil
}

type authFailure struct {
	status int
	code   string
	msg    string
}

func unauthorized(code, msg string) *authFailure {
	return &authFailure{status: http.StatusUnauthorized, code: code, msg: msg}
}

// authenticate validates token and loads the account it was issued for.
func (m *AuthMiddleware) authenticate(c *gin.Context, token string) (*model.User, *authFailure) {
	claims, err := util.ValidateToken(token, m.jwtSecret)
	if err != nil {
		if errors.Is(err, util.ErrExpiredToken) {
			return nil, unauthorized(apperrors.AuthTokenExpired, "Token has expired.")
		}
		return nil, unauthorized(apperrors.AuthTokenInvalid, "Given token not valid for any token type.")
	}
	if claims.TokenType != util.TokenTypeAccess {
		return nil, unauthorized(apperrors.AuthTokenInvalid, "Given token not valid for any token type.")
	}
	if m.revoked != nil {
		revoked, err := m.revoked.IsRevoked(c.Request.Context(), token)
		if err != nil {
			GetLoggerFromContext(c).Error("Failed to check token revocation", err)
		} else if revoked {
			return nil, unauthorized(apperrors.AuthTokenRevoked, "Token has been revoked.")
		}
	}

	user, err := m.users.FindByID(claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, unauthorized(apperrors.AuthTokenInvalid, "User not found.")
		}
		GetLoggerFromContext(c).Error("Failed to load token user", err, map[string]interface{}{
			"user_id": claims.UserID,
		})
		return nil, &authFailure{status: http.StatusInternalServerError, code: apperrors.InternalDatabase, msg: "Failed to authenticate user."}
	}
	if !user.IsActive {
		return nil, unauthorized(apperrors.AuthAccountInactive, "User is inactive.")
	}
	if _, err := model.ParseRole(string(user.Role)); err != nil {
		return nil, unauthorized(apperrors.AuthTokenInvalid, "Given token not valid for any token type.")
	}
	return user, nil
}

// setIdentity publishes the stored account, not the token claims.
func setIdentity(c *gin.Context, user *model.User, token string) {
	c.Set(UserIDKey, user.ID)
	c.Set(UserEmailKey, user.Email)
	c.Set(UserRoleKey, user.Role)
	c.Set(AccessTokenKey, token)
}

// Authenticate validates JWT token (required)
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		log := GetLoggerFromContext(c)

		token, err := bearerToken(c)
		if err != nil {
			log.Warn("Invalid authorization header format", map[string]interface{}{
				"path": c.Request.URL.Path,
			})
			apperrors.RespondWithError(c, http.StatusUnauthorized, apperrors.AuthTokenInvalid, "Invalid authorization header.")
			c.Abort()
			return
		}
		if token == "" {
			apperrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		user, fail := m.authenticate(c, token)
		if fail != nil {
			log.Warn("Token rejected", map[string]interface{}{
				"path": c.Request.URL.Path,
				"code": fail.code,
			})
			apperrors.RespondWithError(c, fail.status, fail.code, fail.msg)
			c.Abort()
			return
		}

		setIdentity(c, user, token)
		log.Debug("User authenticated successfully", map[string]interface{}{
			"user_id": user.ID,
			"role":    user.Role,
		})
		c.Next()
	}
}

// OptionalAuthenticate sets the identity when a valid token is present and
// otherwise continues as an anonymous caller.
func (m *AuthMiddleware) OptionalAuthenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := bearerToken(c)
		if err != nil || token == "" {
			c.Next()
			return
		}
		if user, fail := m.authenticate(c, token); fail == nil {
			setIdentity(c, user, token)
		}
		c.Next()
	}
}

// Authorize consults the access policy for the caller's role. Anonymous
// callers that are denied get 401, authenticated ones 403 with denyMessage
// (or the default).
func (m *AuthMiddleware) Authorize(resource policy.Resource, action policy.Action, denyMessage ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, authenticated := GetUserRole(c)
		if m.policy.Allowed(role, resource, action) {
			c.Next()
			return
		}

		if !authenticated {
			apperrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		userID, _ := GetUserID(c)
		GetLoggerFromContext(c).Warn("Insufficient permissions", map[string]interface{}{
			"user_id":  userID,
			"role":     role,
			"resource": resource,
			"action":   action,
		})
		msg := ""
		if len(denyMessage) > 0 {
			msg = denyMessage[0]
		}
		apperrors.Forbidden(c, msg)
		c.Abort()
	}
}

// GetUserID extracts user ID from context
func GetUserID(c *gin.Context) (uint, bool) {
	userID, exists := c.Get(UserIDKey)
	if !exists {
		return 0, false
	}
	id, ok := userID.(uint)
	return id, ok
}

// GetUserEmail extracts user email from context
func GetUserEmail(c *gin.Context) (string, bool) {
	return getString(c, UserEmailKey)
}

// GetUserRole extracts user role from context
func GetUserRole(c *gin.Context) (model.Role, bool) {
	role, exists := c.Get(UserRoleKey)
	if !exists {
		return "", false
	}
	r, ok := role.(model.Role)
	return r, ok
}

// GetAccessToken returns the raw bearer token of an authenticated request.
func GetAccessToken(c *gin.Context) (string, bool) {
	return getString(c, AccessTokenKey)
}

func getString(c *gin.Context, key string) (string, bool) {
	v, exists := c.Get(key)
	if !exists {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
