package repository

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/primeapparel/marketplace-backend/internal/app/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newResetRequest(userID uint, createdAt, expiresAt time.Time) *model.PasswordResetRequest {
	return &model.PasswordResetRequest{
		UserID:    userID,
		CodeHash:  "hash",
		Token:     uuid.NewString(),
		ExpiresAt: expiresAt,
		CreatedAt: createdAt,
	}
}

func TestPasswordResetRepository_FindLatestActive(t *testing.T) {
	testDB := setupTestDB(t)
	repo := NewPasswordResetRepository(testDB)
	user := createTestUser(t, testDB, "user@example.com", model.RoleBuyer)
	now := time.Now()

	older := newResetRequest(user.ID, now.Add(-2*time.Minute), now.Add(time.Hour))
	newer := newResetRequest(user.ID, now.Add(-time.Minute), now.Add(time.Hour))
	used := newResetRequest(user.ID, now, now.Add(time.Hour))
	used.UsedAt = &now
	for _, r := range []*model.PasswordResetRequest{older, newer, used} {
		require.NoError(t, repo.Create(r))
	}

	found, err := repo.FindLatestActiveForUpdate(user.ID)
	require.NoError(t, err)
	assert.Equal(t, newer.ID, found.ID)

	_, err = repo.FindLatestActiveForUpdate(user.ID + 100)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestPasswordResetRepository_DeleteUnusedForUser(t *testing.T) {
	testDB := setupTestDB(t)
	repo := NewPasswordResetRepository(testDB)
	user := createTestUser(t, testDB, "user@example.com", model.RoleBuyer)
	other := createTestUser(t, testDB, "other@example.com", model.RoleBuyer)
	now := time.Now()

	require.NoError(t, repo.Create(newResetRequest(user.ID, now, now.Add(time.Hour))))
	used := newResetRequest(user.ID, now, now.Add(time.Hour))
	used.UsedAt = &now
	require.NoError(t, repo.Create(used))
	require.NoError(t, repo.Create(newResetRequest(other.ID, now, now.Add(time.Hour))))

	deleted, err := repo.DeleteUnusedForUser(user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	count, err := repo.CountUnusedForUser(user.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	count, err = repo.CountUnusedForUser(other.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestPasswordResetRepository_LockUser(t *testing.T) {
	testDB := setupTestDB(t)
	user := createTestUser(t, testDB, "user@example.com", model.RoleBuyer)

	err := testDB.Transaction(func(tx *gorm.DB) error {
		return NewPasswordResetRepository(tx).LockUser(user.ID)
	})
	assert.NoError(t, err)

	assert.ErrorIs(t, NewPasswordResetRepository(testDB).LockUser(user.ID+100), gorm.ErrRecordNotFound)
}

func TestPasswordResetRepository_IncrementAttempts(t *testing.T) {
	testDB := setupTestDB(t)
	repo := NewPasswordResetRepository(testDB)
	user := createTestUser(t, testDB, "user@example.com", model.RoleBuyer)
	now := time.Now()

	req := newResetRequest(user.ID, now, now.Add(time.Hour))
	require.NoError(t, repo.Create(req))

	for want := 1; want <= 3; want++ {
		got, err := repo.IncrementAttempts(req.ID)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	require.NoError(t, repo.MarkUsed(req.ID, now))
	_, err := repo.IncrementAttempts(req.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound, "consumed rows are frozen")
}

func TestPasswordResetRepository_IncrementAttempts_Concurrent(t *testing.T) {
	testDB := setupTestDB(t)
	repo := NewPasswordResetRepository(testDB)
	user := createTestUser(t, testDB, "user@example.com", model.RoleBuyer)
	now := time.Now()

	req := newResetRequest(user.ID, now, now.Add(time.Hour))
	require.NoError(t, repo.Create(req))

	const workers = 10
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.IncrementAttempts(req.ID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	var reloaded model.PasswordResetRequest
	require.NoError(t, testDB.First(&reloaded, req.ID).Error)
	assert.Equal(t, workers, reloaded.AttemptCount)
}

func TestPasswordResetRepository_MarkVerified(t *testing.T) {
	testDB := setupTestDB(t)
	repo := NewPasswordResetRepository(testDB)
	user := createTestUser(t, testDB, "user@example.com", model.RoleBuyer)
	now := time.Now()

	req := newResetRequest(user.ID, now, now.Add(time.Hour))
	require.NoError(t, repo.Create(req))
	_, err := repo.IncrementAttempts(req.ID)
	require.NoError(t, err)

	require.NoError(t, repo.MarkVerified(req.ID, now))

	found, err := repo.FindActiveByTokenForUpdate(user.ID, req.Token)
	require.NoError(t, err)
	assert.True(t, found.IsVerified())
	assert.Zero(t, found.AttemptCount)

	_, err = repo.FindActiveByTokenForUpdate(user.ID, "not-the-token")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestPasswordResetRepository_DeleteOthersForUser(t *testing.T) {
	testDB := setupTestDB(t)
	repo := NewPasswordResetRepository(testDB)
	user := createTestUser(t, testDB, "user@example.com", model.RoleBuyer)
	now := time.Now()

	keep := newResetRequest(user.ID, now, now.Add(time.Hour))
	require.NoError(t, repo.Create(keep))
	expired := newResetRequest(user.ID, now.Add(-time.Hour), now.Add(-time.Minute))
	expired.UsedAt = &now
	require.NoError(t, repo.Create(expired))

	deleted, err := repo.DeleteOthersForUser(user.ID, keep.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	var remaining []model.PasswordResetRequest
	require.NoError(t, testDB.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	assert.Equal(t, keep.ID, remaining[0].ID)
}

func TestPasswordResetRepository_DeleteStale(t *testing.T) {
	testDB := setupTestDB(t)
	repo := NewPasswordResetRepository(testDB)
	user := createTestUser(t, testDB, "user@example.com", model.RoleBuyer)
	now := time.Now()
	cutoff := now.Add(-24 * time.Hour)

	live := newResetRequest(user.ID, now, now.Add(10*time.Minute))
	longExpired := newResetRequest(user.ID, now.Add(-48*time.Hour), now.Add(-47*time.Hour))
	recentlyExpired := newResetRequest(user.ID, now.Add(-time.Hour), now.Add(-50*time.Minute))
	oldUsedAt := now.Add(-30 * time.Hour)
	longUsed := newResetRequest(user.ID, now.Add(-31*time.Hour), now.Add(time.Hour))
	longUsed.UsedAt = &oldUsedAt

	for _, r := range []*model.PasswordResetRequest{live, longExpired, recentlyExpired, longUsed} {
		require.NoError(t, repo.Create(r))
	}

	deleted, err := repo.DeleteStale(now, cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	var remaining []model.PasswordResetRequest
	require.NoError(t, testDB.Order("id").Find(&remaining).Error)
	require.Len(t, remaining, 2)
	assert.Equal(t, live.ID, remaining[0].ID)
	assert.Equal(t, recentlyExpired.ID, remaining[1].ID)
}
