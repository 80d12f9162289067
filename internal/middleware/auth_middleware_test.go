package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/primeapparel/marketplace-backend/internal/app/model"
	apperrors "github.com/primeapparel/marketplace-backend/internal/errors"
	"github.com/primeapparel/marketplace-backend/internal/policy"
	"github.com/primeapparel/marketplace-backend/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testJWTSecret = "test-jwt-secret-for-middleware"

type revokedSet map[string]bool

func (r revokedSet) IsRevoked(_ context.Context, token string) (bool, error) {
	return r[token], nil
}

type userTable map[uint]*model.User

func (u userTable) FindByID(id uint) (*model.User, error) {
	if user, ok := u[id]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type failingLookup struct{}

func (failingLookup) FindByID(uint) (*model.User, error) {
	return nil, errors.New("connection refused")
}

func activeUser(id uint, email string, role model.Role) *model.User {
	user := &model.User{Email: email, Role: role, ApprovalStatus: model.ApprovalApproved, IsActive: true}
	user.ID = id
	return user
}

// testUsers holds one active account per role plus the fixtures the
// rejection cases need.
func testUsers() userTable {
	rejected := activeUser(5, "rejected@example.com", model.RoleSeller)
	rejected.ApprovalStatus = model.ApprovalRejected
	rejected.IsActive = false
	return userTable{
		1:  activeUser(1, "seller@example.com", model.RoleSeller),
		2:  activeUser(2, "gone@example.com", model.RoleBuyer),
		3:  activeUser(3, "old@example.com", model.RoleBuyer),
		4:  activeUser(4, "designer@example.com", model.Role("DESIGNER")),
		5:  rejected,
		10: activeUser(10, "admin@example.com", model.RoleAdmin),
		11: activeUser(11, "maker@example.com", model.RoleSeller),
		12: activeUser(12, "buyer@example.com", model.RoleBuyer),
	}
}

func setupMiddlewareTest(revoked revokedSet) (*gin.Engine, *AuthMiddleware) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(LoggingMiddleware())
	return router, NewAuthMiddleware(testJWTSecret, testUsers(), revoked, policy.MustNew())
}

func generateTestTokens(t *testing.T, userID uint, email, role string) *util.TokenPair {
	t.Helper()
	tokens, err := util.GenerateTokenPair(userID, email, role, testJWTSecret, 15*time.Minute, 7*24*time.Hour)
	require.NoError(t, err)
	return tokens
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) apperrors.ErrorResponse {
	t.Helper()
	var body apperrors.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestAuthMiddleware_Authenticate(t *testing.T) {
	valid := generateTestTokens(t, 1, "seller@example.com", "SELLER")
	revokedPair := generateTestTokens(t, 2, "gone@example.com", "BUYER")
	expired, err := util.GenerateTokenPair(3, "old@example.com", "BUYER", testJWTSecret, -time.Minute, time.Hour)
	require.NoError(t, err)
	badRole := generateTestTokens(t, 4, "designer@example.com", "BUYER")
	rejected := generateTestTokens(t, 5, "rejected@example.com", "SELLER")
	deleted := generateTestTokens(t, 99, "deleted@example.com", "SELLER")

	router, auth := setupMiddlewareTest(revokedSet{revokedPair.AccessToken: true})
	router.GET("/test", auth.Authenticate(), func(c *gin.Context) {
		userID, _ := GetUserID(c)
		role, _ := GetUserRole(c)
		token, _ := GetAccessToken(c)
		c.JSON(http.StatusOK, gin.H{"user_id": userID, "role": role, "has_token": token != ""})
	})

	tests := []struct {
		name     string
		header   string
		query    string
		wantCode int
		wantErr  string
	}{
		{"valid bearer", "Bearer " + valid.AccessToken, "", http.StatusOK, ""},
		{"lowercase scheme", "bearer " + valid.AccessToken, "", http.StatusOK, ""},
		{"query token", "", valid.AccessToken, http.StatusOK, ""},
		{"missing", "", "", http.StatusUnauthorized, apperrors.AuthUnauthorized},
		{"bad format", "Token " + valid.AccessToken, "", http.StatusUnauthorized, apperrors.AuthTokenInvalid},
		{"garbage", "Bearer not.a.jwt", "", http.StatusUnauthorized, apperrors.AuthTokenInvalid},
		{"refresh token", "Bearer " + valid.RefreshToken, "", http.StatusUnauthorized, apperrors.AuthTokenInvalid},
		{"expired", "Bearer " + expired.AccessToken, "", http.StatusUnauthorized, apperrors.AuthTokenExpired},
		{"revoked", "Bearer " + revokedPair.AccessToken, "", http.StatusUnauthorized, apperrors.AuthTokenRevoked},
		{"unknown stored role", "Bearer " + badRole.AccessToken, "", http.StatusUnauthorized, apperrors.AuthTokenInvalid},
		{"inactive account", "Bearer " + rejected.AccessToken, "", http.StatusUnauthorized, apperrors.AuthAccountInactive},
		{"deleted account", "Bearer " + deleted.AccessToken, "", http.StatusUnauthorized, apperrors.AuthTokenInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := "/test"
			if tt.query != "" {
				target += "?token=" + tt.query
			}
			req := httptest.NewRequest(http.MethodGet, target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantCode, w.Code)
			if tt.wantErr != "" {
				assert.Equal(t, tt.wantErr, decodeError(t, w).Code)
				return
			}
			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.EqualValues(t, 1, body["user_id"])
			assert.Equal(t, "SELLER", body["role"])
			assert.Equal(t, true, body["has_token"])
		})
	}
}

func TestAuthMiddleware_OptionalAuthenticate(t *testing.T) {
	router, auth := setupMiddlewareTest(nil)
	router.GET("/test", auth.OptionalAuthenticate(), func(c *gin.Context) {
		_, ok := GetUserID(c)
		c.JSON(http.StatusOK, gin.H{"authenticated": ok})
	})

	tokens := generateTestTokens(t, 1, "buyer@example.com", "BUYER")
	for header, want := range map[string]bool{
		"":                              false,
		"Bearer " + tokens.AccessToken:  true,
		"Bearer " + tokens.RefreshToken: false,
		"Bearer junk":                   false,
	} {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), map[bool]string{true: `"authenticated":true`, false: `"authenticated":false`}[want])
	}
}

func TestAuthMiddleware_Authorize(t *testing.T) {
	router, auth := setupMiddlewareTest(nil)
	ok := func(c *gin.Context) { c.Status(http.StatusNoContent) }

	router.DELETE("/leads", auth.Authenticate(), auth.Authorize(policy.ResourceLead, policy.ActionDelete), ok)
	router.GET("/products", auth.OptionalAuthenticate(), auth.Authorize(policy.ResourceProduct, policy.ActionList), ok)
	router.POST("/products", auth.OptionalAuthenticate(),
		auth.Authorize(policy.ResourceProduct, policy.ActionCreate, "Only seller or admin users can create products"), ok)

	tests := []struct {
		name     string
		method   string
		path     string
		role     model.Role
		wantCode int
		wantMsg  string
	}{
		{"admin deletes lead", http.MethodDelete, "/leads", model.RoleAdmin, http.StatusNoContent, ""},
		{"seller cannot delete lead", http.MethodDelete, "/leads", model.RoleSeller, http.StatusForbidden, "You do not have permission to perform this action."},
		{"anonymous lists products", http.MethodGet, "/products", "", http.StatusNoContent, ""},
		{"anonymous cannot create", http.MethodPost, "/products", "", http.StatusUnauthorized, ""},
		{"buyer cannot create", http.MethodPost, "/products", model.RoleBuyer, http.StatusForbidden, "Only seller or admin users can create products"},
		{"seller creates", http.MethodPost, "/products", model.RoleSeller, http.StatusNoContent, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.role != "" {
				ids := map[model.Role]uint{model.RoleAdmin: 10, model.RoleSeller: 11, model.RoleBuyer: 12}
				tokens := generateTestTokens(t, ids[tt.role], "x@example.com", string(tt.role))
				req.Header.Set("Authorization", "Bearer "+tokens.AccessToken)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantCode, w.Code)
			if tt.wantMsg != "" {
				body := decodeError(t, w)
				assert.Equal(t, tt.wantMsg, body.Error)
				assert.Equal(t, apperrors.AuthzForbidden, body.Code)
			}
		})
	}
}

func TestAuthMiddleware_StoredAccountWins(t *testing.T) {
	router, auth := setupMiddlewareTest(nil)
	router.POST("/products", auth.Authenticate(), auth.Authorize(policy.ResourceProduct, policy.ActionCreate), func(c *gin.Context) {
		email, _ := GetUserEmail(c)
		c.JSON(http.StatusCreated, gin.H{"email": email})
	})

	// issued while user 12 was a seller under another address
	stale := generateTestTokens(t, 12, "old-address@example.com", "SELLER")
	req := httptest.NewRequest(http.MethodPost, "/products", nil)
	req.Header.Set("Authorization", "Bearer "+stale.AccessToken)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)

	outdated := generateTestTokens(t, 11, "old-address@example.com", "BUYER")
	req = httptest.NewRequest(http.MethodPost, "/products", nil)
	req.Header.Set("Authorization", "Bearer "+outdated.AccessToken)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "maker@example.com")
}

func TestAuthMiddleware_LookupFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(LoggingMiddleware())
	auth := NewAuthMiddleware(testJWTSecret, failingLookup{}, nil, policy.MustNew())
	router.GET("/test", auth.Authenticate(), func(c *gin.Context) { c.Status(http.StatusOK) })

	tokens := generateTestTokens(t, 1, "seller@example.com", "SELLER")
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "Bearer "+tokens.AccessToken)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, apperrors.InternalDatabase, decodeError(t, w).Code)
}

func TestLoggingMiddleware_RequestID(t *testing.T) {
	router, _ := setupMiddlewareTest(nil)
	router.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("request_id")) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	generated := w.Header().Get(RequestIDHeader)
	assert.Len(t, generated, 36)
	assert.Equal(t, generated, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, "upstream-id")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "upstream-id", w.Header().Get(RequestIDHeader))
}
