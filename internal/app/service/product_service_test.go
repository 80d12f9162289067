package service

import (
	"testing"

	"github.com/primeapparel/marketplace-backend/internal/app/model"
	"github.com/primeapparel/marketplace-backend/internal/app/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupProductServiceTest(t *testing.T) (ProductService, *gorm.DB) {
	t.Helper()
	testDB := setupServiceDB(t)
	return NewProductService(repository.NewProductRepository(testDB)), testDB
}

func TestPaginate(t *testing.T) {
	tests := []struct {
		page, size        int
		wantLimit, wantOf int
	}{
		{0, 0, DefaultPageSize, 0},
		{1, 10, 10, 0},
		{3, 10, 10, 20},
		{2, 1000, MaxPageSize, MaxPageSize},
		{-1, -5, DefaultPageSize, 0},
	}
	for _, tt := range tests {
		limit, offset := Paginate(tt.page, tt.size)
		assert.Equal(t, tt.wantLimit, limit)
		assert.Equal(t, tt.wantOf, offset)
	}
}

func TestProductService_CreatePermissions(t *testing.T) {
	svc, testDB := setupProductServiceTest(t)
	seller := createUser(t, testDB, "seller@example.com", model.RoleSeller, "password123")
	buyer := createUser(t, testDB, "buyer@example.com", model.RoleBuyer, "password123")

	product, err := svc.Create(actorFor(seller), ProductFields{
		Name:       strPtr("Heavyweight Hoodie"),
		Category:   strPtr("tops"),
		Colors:     &[]string{"black", "navy"},
		PriceTiers: &[]model.PriceTier{{MinQuantity: 100, Price: 12.5}},
	})
	require.NoError(t, err)
	assert.Equal(t, seller.ID, *product.OwnerID)
	assert.Equal(t, 1, product.MOQ)

	stored, err := svc.Get(product.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"black", "navy"}, stored.Colors)
	require.Len(t, stored.PriceTiers, 1)
	assert.Equal(t, 12.5, stored.PriceTiers[0].Price)

	_, err = svc.Create(actorFor(buyer), ProductFields{Name: strPtr("Nope")})
	assert.ErrorIs(t, err, ErrProductCreateForbidden)

	_, err = svc.Create(actorFor(seller), ProductFields{Name: strPtr("   ")})
	assert.ErrorIs(t, err, ErrProductNameRequired)
}

func TestProductService_Ownership(t *testing.T) {
	svc, testDB := setupProductServiceTest(t)
	admin := createUser(t, testDB, "admin@example.com", model.RoleAdmin, "password123")
	owner := createUser(t, testDB, "owner@example.com", model.RoleSeller, "password123")
	other := createUser(t, testDB, "other@example.com", model.RoleSeller, "password123")

	product, err := svc.Create(actorFor(owner), ProductFields{Name: strPtr("Tee")})
	require.NoError(t, err)

	_, err = svc.Update(actorFor(other), product.ID, ProductFields{Name: strPtr("Stolen")})
	assert.ErrorIs(t, err, ErrNotProductOwner)
	assert.ErrorIs(t, svc.Delete(actorFor(other), product.ID), ErrNotProductOwner)

	updated, err := svc.Update(actorFor(owner), product.ID, ProductFields{MOQ: intPtr(250)})
	require.NoError(t, err)
	assert.Equal(t, 250, updated.MOQ)
	assert.Equal(t, "Tee", updated.Name)

	updated, err = svc.Update(actorFor(admin), product.ID, ProductFields{Material: strPtr("Cotton")})
	require.NoError(t, err)
	assert.Equal(t, "Cotton", updated.Material)

	require.NoError(t, svc.Delete(actorFor(admin), product.ID))
	_, err = svc.Get(product.ID)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestProductService_ListFilters(t *testing.T) {
	svc, testDB := setupProductServiceTest(t)
	admin := createUser(t, testDB, "admin@example.com", model.RoleAdmin, "password123")
	sellerA := createUser(t, testDB, "a@example.com", model.RoleSeller, "password123")
	sellerB := createUser(t, testDB, "b@example.com", model.RoleSeller, "password123")

	for _, p := range []struct {
		owner    *model.User
		name     string
		category string
	}{
		{sellerA, "Organic Tee", "tops"},
		{sellerA, "Denim Jacket", "outerwear"},
		{sellerB, "Linen Shirt", "tops"},
	} {
		_, err := svc.Create(actorFor(p.owner), ProductFields{Name: strPtr(p.name), Category: strPtr(p.category)})
		require.NoError(t, err)
	}

	all, total, err := svc.List(nil, ProductQuery{})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, all, 3)

	tops, _, err := svc.List(nil, ProductQuery{Category: "tops", Ordering: "name"})
	require.NoError(t, err)
	require.Len(t, tops, 2)
	assert.Equal(t, "Linen Shirt", tops[0].Name)

	found, _, err := svc.List(nil, ProductQuery{Search: "denim"})
	require.NoError(t, err)
	require.Len(t, found, 1)

	sellerAActor := actorFor(sellerA)
	mine, _, err := svc.List(&sellerAActor, ProductQuery{Mine: true})
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	ignored, _, err := svc.List(&sellerAActor, ProductQuery{OwnerID: &sellerB.ID})
	require.NoError(t, err)
	assert.Len(t, ignored, 3, "owner filter is admin only")

	adminActor := actorFor(admin)
	byOwner, _, err := svc.List(&adminActor, ProductQuery{OwnerID: &sellerB.ID})
	require.NoError(t, err)
	assert.Len(t, byOwner, 1)

	anon, _, err := svc.List(nil, ProductQuery{Mine: true})
	require.NoError(t, err)
	assert.Len(t, anon, 3, "mine is ignored for anonymous callers")

	page, total, err := svc.List(nil, ProductQuery{Page: 2, PageSize: 2, Ordering: "bogus"})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, page, 1)

	own, _, err := svc.Mine(actorFor(sellerB), 1, 20)
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, "Linen Shirt", own[0].Name)
}

func intPtr(i int) *int { return &i }
