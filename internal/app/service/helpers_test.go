package service

import (
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/primeapparel/marketplace-backend/internal/app/model"
	"github.com/primeapparel/marketplace-backend/internal/db"
	"github.com/primeapparel/marketplace-backend/internal/websocket"
	"github.com/primeapparel/marketplace-backend/pkg/util"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var testHasher = util.BcryptHasher{Cost: bcrypt.MinCost}

func setupServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })
	return testDB
}

func createUser(t *testing.T, testDB *gorm.DB, email string, role model.Role, password string) *model.User {
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
	require.NoError(t, testDB.Create(user).Error)
	return user
}

var otpPattern = regexp.MustCompile(`\b(\d{6})\b`)

func extractOTP(t *testing.T, body string) string {
	t.Helper()
	m := otpPattern.FindStringSubmatch(body)
	require.NotNil(t, m, "no code in %q", body)
	return m[1]
}

// fakeClock is a settable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Now()}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type pushedEvent struct {
	UserID uint
	Role   model.Role
	Event  websocket.Event
}

// recordingPusher captures realtime events instead of delivering them.
type recordingPusher struct {
	mu     sync.Mutex
	events []pushedEvent
}

func (p *recordingPusher) SendToUser(userID uint, event websocket.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, pushedEvent{UserID: userID, Event: event})
	return nil
}

func (p *recordingPusher) SendToRole(role model.Role, event websocket.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, pushedEvent{Role: role, Event: event})
	return nil
}

func (p *recordingPusher) Events() []pushedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]pushedEvent(nil), p.events...)
}
