package controller

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/primeapparel/marketplace-backend/internal/app/model"
	"github.com/primeapparel/marketplace-backend/internal/app/repository"
	"github.com/primeapparel/marketplace-backend/internal/db"
	"github.com/primeapparel/marketplace-backend/internal/middleware"
	"github.com/primeapparel/marketplace-backend/internal/policy"
	"github.com/primeapparel/marketplace-backend/pkg/mailer"
	"github.com/primeapparel/marketplace-backend/pkg/util"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const testSecret = "test-secret"

var testHasher = util.BcryptHasher{Cost: bcrypt.MinCost}

type testEnv struct {
	db     *gorm.DB
	mail   *mailer.Recorder
	auth   *middleware.AuthMiddleware
	router *gin.Engine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	RegisterValidators()

	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	router := gin.New()
	router.Use(middleware.LoggingMiddleware())

	return &testEnv{
		db:     testDB,
		mail:   &mailer.Recorder{},
		auth:   middleware.NewAuthMiddleware(testSecret, repository.NewUserRepository(testDB), nil, policy.MustNew()),
		router: router,
	}
}

// createUser inserts an approved, active account.
func (e *testEnv) createUser(t *testing.T, email string, role model.Role, password string) *model.User {
	t.Helper()
	hash, err := testHasher.Hash(password)
	require.NoError(t, err)
	user := &model.User{
		Email:          email,
		PasswordHash:   hash,
		FirstName:      "Test",
		LastName:       "User",
		Role:           role,
		ApprovalStatus: model.ApprovalApproved,
		IsActive:       true,
	}
	require.NoError(t, e.db.Create(user).Error)
	return user
}

func (e *testEnv) token(t *testing.T, user *model.User) string {
	t.Helper()
	pair, err := util.GenerateTokenPair(user.ID, user.Email, string(user.Role), testSecret, 15*time.Minute, time.Hour)
	require.NoError(t, err)
	return pair.AccessToken
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

type formFile struct {
	field       string
	filename    string
	contentType string
	data        []byte
}

func (e *testEnv) doMultipart(t *testing.T, method, path string, fields map[string]string, files []formFile, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+f.field+`"; filename="`+f.filename+`"`)
		h.Set("Content-Type", f.contentType)
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func pngFile(field, name string) formFile {
	return formFile{field: field, filename: name, contentType: "image/png", data: []byte("\x89PNG\r\n\x1a\nfake")}
}
