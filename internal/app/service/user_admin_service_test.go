package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/primeapparel/marketplace-backend/internal/app/model"
	"github.com/primeapparel/marketplace-backend/internal/app/repository"
	"github.com/primeapparel/marketplace-backend/pkg/mailer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type adminFixture struct {
	db     *gorm.DB
	svc    UserAdminService
	mail   *mailer.Recorder
	pusher *recordingPusher
	admin  *model.User
}

func setupUserAdminTest(t *testing.T) *adminFixture {
	t.Helper()
	testDB := setupServiceDB(t)
	rec := &mailer.Recorder{}
	pusher := &recordingPusher{}
	svc := NewUserAdminService(repository.NewUserRepository(testDB), NewNotificationService(rec, pusher))
	return &adminFixture{
		db:     testDB,
		svc:    svc,
		mail:   rec,
		pusher: pusher,
		admin:  createUser(t, testDB, "admin@example.com", model.RoleAdmin, "password123"),
	}
}

func (f *adminFixture) pendingSeller(t *testing.T, email string) *model.User {
	t.Helper()
	u := createUser(t, f.db, email, model.RoleSeller, "password123")
	u.TransitionApproval(model.ApprovalPending, 0, time.Now())
	require.NoError(t, f.db.Save(u).Error)
	return u
}

func (f *adminFixture) reload(t *testing.T, id uint) model.User {
	t.Helper()
	var u model.User
	require.NoError(t, f.db.First(&u, id).Error)
	return u
}

func statusPtr(s model.ApprovalStatus) *model.ApprovalStatus { return &s }
func boolPtr(b bool) *bool                                   { return &b }
func strPtr(s string) *string                                { return &s }

func assertApprovalInvariant(t *testing.T, u model.User) {
	t.Helper()
	switch u.ApprovalStatus {
	case model.ApprovalApproved:
		assert.True(t, u.IsActive)
		assert.NotNil(t, u.ApprovedAt)
		assert.NotNil(t, u.ApprovedByID)
	default:
		assert.False(t, u.IsActive)
		assert.Nil(t, u.ApprovedAt)
		assert.Nil(t, u.ApprovedByID)
	}
}

func TestUserAdmin_ApproveSendsNotification(t *testing.T) {
	f := setupUserAdminTest(t)
	seller := f.pendingSeller(t, "seller@example.com")

	updated, err := f.svc.Update(context.Background(), f.admin.ID, seller.ID, ManagedUserUpdate{
		ApprovalStatus: statusPtr(model.ApprovalApproved),
	})
	require.NoError(t, err)
	assert.Equal(t, model.ApprovalApproved, updated.ApprovalStatus)

	stored := f.reload(t, seller.ID)
	assertApprovalInvariant(t, stored)
	assert.Equal(t, f.admin.ID, *stored.ApprovedByID)

	msg, ok := f.mail.Last()
	require.True(t, ok)
	assert.Equal(t, seller.Email, msg.To)
	assert.Equal(t, SubjectAccountApproved, msg.Subject)

	events := f.pusher.Events()
	require.Len(t, events, 1)
	assert.Equal(t, seller.ID, events[0].UserID)
	assert.Equal(t, "approval_status", events[0].Event.Type)
}

func TestUserAdmin_RejectUsesNotes(t *testing.T) {
	tests := []struct {
		name   string
		notes  *string
		reason string
	}{
		{"with notes", strPtr("Incomplete documents"), "Reason: Incomplete documents"},
		{"default reason", nil, "Reason: " + defaultRejectionMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupUserAdminTest(t)
			seller := f.pendingSeller(t, "seller@example.com")

			_, err := f.svc.Update(context.Background(), f.admin.ID, seller.ID, ManagedUserUpdate{
				ApprovalStatus: statusPtr(model.ApprovalRejected),
				ApprovalNotes:  tt.notes,
			})
			require.NoError(t, err)
			assertApprovalInvariant(t, f.reload(t, seller.ID))

			msg, ok := f.mail.Last()
			require.True(t, ok)
			assert.Equal(t, SubjectAccountRejected, msg.Subject)
			assert.Contains(t, msg.Body, tt.reason)
		})
	}
}

func TestUserAdmin_TransitionsKeepInvariant(t *testing.T) {
	f := setupUserAdminTest(t)
	seller := f.pendingSeller(t, "seller@example.com")
	ctx := context.Background()

	for _, st := range []model.ApprovalStatus{
		model.ApprovalApproved, model.ApprovalRejected, model.ApprovalApproved,
		model.ApprovalPending, model.ApprovalRejected, model.ApprovalPending,
	} {
		_, err := f.svc.Update(ctx, f.admin.ID, seller.ID, ManagedUserUpdate{ApprovalStatus: statusPtr(st)})
		require.NoError(t, err)
		stored := f.reload(t, seller.ID)
		assert.Equal(t, st, stored.ApprovalStatus)
		assertApprovalInvariant(t, stored)
	}
}

func TestUserAdmin_PendingAndUnchangedDoNotNotify(t *testing.T) {
	f := setupUserAdminTest(t)
	buyer := createUser(t, f.db, "buyer@example.com", model.RoleBuyer, "password123")
	ctx := context.Background()

	_, err := f.svc.Update(ctx, f.admin.ID, buyer.ID, ManagedUserUpdate{
		ApprovalStatus: statusPtr(model.ApprovalApproved),
		Company:        strPtr("New Co"),
	})
	require.NoError(t, err)
	assert.Empty(t, f.mail.Messages(), "status unchanged")

	_, err = f.svc.Update(ctx, f.admin.ID, buyer.ID, ManagedUserUpdate{ApprovalStatus: statusPtr(model.ApprovalPending)})
	require.NoError(t, err)
	assert.Empty(t, f.mail.Messages(), "pending is never announced")
}

func TestUserAdmin_ReconcileCorrectsContradictoryActiveFlag(t *testing.T) {
	f := setupUserAdminTest(t)
	buyer := createUser(t, f.db, "buyer@example.com", model.RoleBuyer, "password123")
	ctx := context.Background()

	updated, err := f.svc.Update(ctx, f.admin.ID, buyer.ID, ManagedUserUpdate{IsActive: boolPtr(false)})
	require.NoError(t, err)
	assert.True(t, updated.IsActive, "approved accounts stay active")

	require.NoError(t, f.db.Model(&model.User{}).Where("id = ?", buyer.ID).Update("is_active", false).Error)
	_, err = f.svc.Update(ctx, f.admin.ID, buyer.ID, ManagedUserUpdate{Phone: strPtr("555-0100")})
	require.NoError(t, err)
	assert.True(t, f.reload(t, buyer.ID).IsActive, "drift self-heals on the next save")
}

func TestUserAdmin_NotificationFailureKeepsUpdate(t *testing.T) {
	f := setupUserAdminTest(t)
	seller := f.pendingSeller(t, "seller@example.com")
	f.mail.SetErr(errors.New("smtp down"))

	_, err := f.svc.Update(context.Background(), f.admin.ID, seller.ID, ManagedUserUpdate{
		ApprovalStatus: statusPtr(model.ApprovalApproved),
	})
	require.NoError(t, err)
	assert.Equal(t, model.ApprovalApproved, f.reload(t, seller.ID).ApprovalStatus)

	err = f.svc.ResendNotification(context.Background(), f.admin.ID, seller.ID)
	assert.ErrorIs(t, err, ErrNotificationFailed)

	f.mail.SetErr(nil)
	require.NoError(t, f.svc.ResendNotification(context.Background(), f.admin.ID, seller.ID))
	msg, ok := f.mail.Last()
	require.True(t, ok)
	assert.Equal(t, SubjectAccountApproved, msg.Subject)
}

func TestUserAdmin_Guards(t *testing.T) {
	f := setupUserAdminTest(t)
	ctx := context.Background()
	otherAdmin := createUser(t, f.db, "admin2@example.com", model.RoleAdmin, "password123")
	seller := f.pendingSeller(t, "seller@example.com")
	adminRole := model.RoleAdmin

	_, err := f.svc.Update(ctx, f.admin.ID, f.admin.ID, ManagedUserUpdate{})
	assert.ErrorIs(t, err, ErrSelfEdit)

	_, err = f.svc.Update(ctx, f.admin.ID, otherAdmin.ID, ManagedUserUpdate{})
	assert.ErrorIs(t, err, ErrUserNotFound, "admins are not managed")

	_, err = f.svc.Update(ctx, f.admin.ID, seller.ID, ManagedUserUpdate{Role: &adminRole})
	assert.ErrorIs(t, err, ErrRoleNotAssignable)

	err = f.svc.ResendNotification(ctx, f.admin.ID, seller.ID)
	assert.ErrorIs(t, err, ErrNothingToNotify)

	assert.ErrorIs(t, f.svc.Delete(f.admin.ID, f.admin.ID), ErrSelfDelete)
	assert.ErrorIs(t, f.svc.Delete(f.admin.ID, otherAdmin.ID), ErrUserNotFound)
	assert.ErrorIs(t, f.svc.Delete(f.admin.ID, 9999), ErrUserNotFound)

	require.NoError(t, f.svc.Delete(f.admin.ID, seller.ID))
	_, err = f.svc.Get(seller.ID)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserAdmin_List(t *testing.T) {
	f := setupUserAdminTest(t)
	f.pendingSeller(t, "acme@example.com")
	createUser(t, f.db, "buyer@example.com", model.RoleBuyer, "password123")

	users, err := f.svc.List(repository.ManagedUserFilter{})
	require.NoError(t, err)
	assert.Len(t, users, 2, "admins are excluded")

	users, err = f.svc.List(repository.ManagedUserFilter{Status: model.ApprovalPending})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "acme@example.com", users[0].Email)

	users, err = f.svc.List(repository.ManagedUserFilter{Search: "BUYER"})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, model.RoleBuyer, users[0].Role)
}
