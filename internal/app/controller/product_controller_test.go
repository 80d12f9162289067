package controller

import (
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/primeapparel/marketplace-backend/internal/app/model"
	"github.com/primeapparel/marketplace-backend/internal/app/repository"
	"github.com/primeapparel/marketplace-backend/internal/app/service"
	apperrors "github.com/primeapparel/marketplace-backend/internal/errors"
	"github.com/primeapparel/marketplace-backend/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupProductControllerTest(t *testing.T) *testEnv {
	env := newTestEnv(t)

	store, err := storage.NewLocalStorage(t.TempDir(), "/media/")
	require.NoError(t, err)
	ctrl := NewProductController(
		service.NewProductService(repository.NewProductRepository(env.db)),
		service.NewMediaService(store),
		"https://api.primeapparel.test",
	)

	optional := env.auth.OptionalAuthenticate()
	authn := env.auth.Authenticate()
	env.router.GET("/products", optional, ctrl.GetAllProducts)
	env.router.GET("/products/my-products", authn, ctrl.GetMyProducts)
	env.router.GET("/products/:id", optional, ctrl.GetProductByID)
	env.router.POST("/products", authn, ctrl.CreateProduct)
	env.router.POST("/products/upload-image", authn, ctrl.UploadImages)
	env.router.PATCH("/products/:id", authn, ctrl.UpdateProduct)
	env.router.PUT("/products/:id", authn, ctrl.UpdateProduct)
	env.router.DELETE("/products/:id", authn, ctrl.DeleteProduct)
	return env
}

func (e *testEnv) createProduct(t *testing.T, owner *model.User, name, category string) *model.Product {
	t.Helper()
	p := &model.Product{Name: name, Category: category, MOQ: 50}
	if owner != nil {
		id := owner.ID
		p.OwnerID = &id
	}
	require.NoError(t, e.db.Create(p).Error)
	return p
}

func TestProductController_GetAllProducts(t *testing.T) {
	env := setupProductControllerTest(t)
	admin := env.createUser(t, "admin@example.com", model.RoleAdmin, "password123")
	alice := env.createUser(t, "alice@example.com", model.RoleSeller, "password123")
	bob := env.createUser(t, "bob@example.com", model.RoleSeller, "password123")

	env.createProduct(t, alice, "Heavyweight Hoodie", "apparel")
	env.createProduct(t, alice, "Canvas Tote", "accessories")
	env.createProduct(t, bob, "Crew Tee", "apparel")

	list := func(t *testing.T, query, token string) map[string]interface{} {
		w := env.do(t, http.MethodGet, "/products"+query, nil, token)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		return decodeBody(t, w)
	}

	body := list(t, "", "")
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(3), body["count"])
	assert.Equal(t, float64(1), body["page"])
	assert.Equal(t, float64(service.DefaultPageSize), body["page_size"])
	assert.Len(t, body["data"], 3)

	assert.Equal(t, float64(2), list(t, "?category=apparel", "")["count"])

	paged := list(t, "?page=2&page_size=2", "")
	assert.Equal(t, float64(3), paged["count"])
	assert.Equal(t, float64(2), paged["page"])
	assert.Len(t, paged["data"], 1)

	// mine is ignored for anonymous callers
	assert.Equal(t, float64(3), list(t, "?mine=true", "")["count"])
	assert.Equal(t, float64(2), list(t, "?mine=true", env.token(t, alice))["count"])

	owner := fmt.Sprintf("?owner=%d", bob.ID)
	assert.Equal(t, float64(1), list(t, owner, env.token(t, admin))["count"])
	assert.Equal(t, float64(3), list(t, owner, env.token(t, alice))["count"])
}

func TestProductController_GetMyProducts(t *testing.T) {
	env := setupProductControllerTest(t)
	alice := env.createUser(t, "alice@example.com", model.RoleSeller, "password123")
	bob := env.createUser(t, "bob@example.com", model.RoleSeller, "password123")
	env.createProduct(t, alice, "Heavyweight Hoodie", "apparel")
	env.createProduct(t, bob, "Crew Tee", "apparel")

	w := env.do(t, http.MethodGet, "/products/my-products", nil, env.token(t, bob))
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, float64(1), body["count"])
	data := body["data"].([]interface{})
	assert.Equal(t, "Crew Tee", data[0].(map[string]interface{})["name"])
}

func TestProductController_GetProductByID(t *testing.T) {
	env := setupProductControllerTest(t)
	p := env.createProduct(t, nil, "Orphan Polo", "apparel")

	w := env.do(t, http.MethodGet, fmt.Sprintf("/products/%d", p.ID), nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeBody(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "Orphan Polo", data["name"])
	assert.Nil(t, data["owner"])

	w = env.do(t, http.MethodGet, "/products/9999", nil, "")
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, apperrors.ProductNotFound, decodeBody(t, w)["code"])
}

func TestProductController_CreateProduct(t *testing.T) {
	env := setupProductControllerTest(t)
	seller := env.createUser(t, "seller@example.com", model.RoleSeller, "password123")
	buyer := env.createUser(t, "buyer@example.com", model.RoleBuyer, "password123")

	payload := map[string]interface{}{
		"name":        "  Fleece Joggers ",
		"category":    "apparel",
		"moq":         200,
		"colors":      []string{"black", "heather grey"},
		"price_tiers": []map[string]interface{}{{"min_quantity": 200, "price": 9.5}},
	}

	w := env.do(t, http.MethodPost, "/products", payload, env.token(t, seller))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	data := decodeBody(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "Fleece Joggers", data["name"])
	assert.EqualValues(t, seller.ID, data["owner"])
	assert.Len(t, data["colors"], 2)

	w = env.do(t, http.MethodPost, "/products", payload, env.token(t, buyer))
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Only seller or admin users can create products", decodeBody(t, w)["error"])

	w = env.do(t, http.MethodPost, "/products", map[string]interface{}{"category": "apparel"}, env.token(t, seller))
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeBody(t, w)["fields"], "name")

	w = env.do(t, http.MethodPost, "/products", map[string]interface{}{"name": "Zero", "moq": 0}, env.token(t, seller))
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeBody(t, w)["fields"], "moq")
}

func TestProductController_OwnershipRules(t *testing.T) {
	env := setupProductControllerTest(t)
	admin := env.createUser(t, "admin@example.com", model.RoleAdmin, "password123")
	alice := env.createUser(t, "alice@example.com", model.RoleSeller, "password123")
	bob := env.createUser(t, "bob@example.com", model.RoleSeller, "password123")
	p := env.createProduct(t, alice, "Heavyweight Hoodie", "apparel")
	path := fmt.Sprintf("/products/%d", p.ID)

	w := env.do(t, http.MethodPatch, path, map[string]interface{}{"moq": 10}, env.token(t, bob))
	require.Equal(t, http.StatusForbidden, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, apperrors.AuthzOwnerOnly, body["code"])
	assert.Equal(t, "You can only manage products your company created", body["error"])

	w = env.do(t, http.MethodPatch, path, map[string]interface{}{"moq": 10}, env.token(t, alice))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := decodeBody(t, w)["data"].(map[string]interface{})
	assert.Equal(t, float64(10), data["moq"])
	assert.Equal(t, "Heavyweight Hoodie", data["name"])

	w = env.do(t, http.MethodPut, path, map[string]interface{}{"material": "brushed fleece"}, env.token(t, admin))
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodPatch, path, map[string]interface{}{"name": "   "}, env.token(t, alice))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodDelete, path, nil, env.token(t, bob))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodDelete, path, nil, env.token(t, alice))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(t, http.MethodGet, path, nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProductController_UploadImages(t *testing.T) {
	env := setupProductControllerTest(t)
	seller := env.createUser(t, "seller@example.com", model.RoleSeller, "password123")
	token := env.token(t, seller)

	t.Run("no files", func(t *testing.T) {
		w := env.doMultipart(t, http.MethodPost, "/products/upload-image", map[string]string{"note": "x"}, nil, token)
		require.Equal(t, http.StatusBadRequest, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, false, body["success"])
		assert.Equal(t, "No files provided", body["error"])
		assert.Equal(t, apperrors.ValidationNoFiles, body["code"])
	})

	t.Run("stores every file", func(t *testing.T) {
		w := env.doMultipart(t, http.MethodPost, "/products/upload-image", nil,
			[]formFile{pngFile("images", "front.png"), pngFile("images", "back.PNG")},
			token,
		)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		body := decodeBody(t, w)
		assert.Equal(t, true, body["success"])
		urls := body["urls"].([]interface{})
		require.Len(t, urls, 2)
		for _, u := range urls {
			assert.True(t, strings.HasPrefix(u.(string), "https://api.primeapparel.test/media/products/"), u)
			assert.True(t, strings.HasSuffix(u.(string), ".png"), u)
		}
	})

	t.Run("one bad file rejects the batch", func(t *testing.T) {
		w := env.doMultipart(t, http.MethodPost, "/products/upload-image", nil,
			[]formFile{
				pngFile("images", "ok.png"),
				{field: "images", filename: "notes.txt", contentType: "text/plain", data: []byte("hello")},
			},
			token,
		)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, false, decodeBody(t, w)["success"])
	})
}
