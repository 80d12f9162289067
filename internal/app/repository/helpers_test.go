package repository

import (
	"testing"

	"github.com/primeapparel/marketplace-backend/internal/app/model"
	"github.com/primeapparel/marketplace-backend/internal/db"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })
	return testDB
}

func createTestUser(t *testing.T, testDB *gorm.DB, email string, role model.Role) *model.User {
	t.Helper()
	user := &model.User{
		Email:          email,
		PasswordHash:   "hashedpassword",
		FirstName:      "Test",
		LastName:       "User",
		Role:           role,
		ApprovalStatus: model.ApprovalApproved,
		IsActive:       true,
	}
	require.NoError(t, testDB.Create(user).Error)
	return user
}
