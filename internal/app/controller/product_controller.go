package controller

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/primeapparel/marketplace-backend/internal/app/service"
	apperrors "github.com/primeapparel/marketplace-backend/internal/errors"
	"github.com/primeapparel/marketplace-backend/internal/middleware"
	"github.com/primeapparel/marketplace-backend/internal/storage"
)

type ProductController struct {
	productService service.ProductService
	mediaService   service.MediaService
	publicBaseURL  string
}

func NewProductController(
	productService service.ProductService,
	mediaService service.MediaService,
	publicBaseURL string,
) *ProductController {
	return &ProductController{
		productService: productService,
		mediaService:   mediaService,
		publicBaseURL:  publicBaseURL,
	}
}

// GetAllProducts handles the public catalog listing
// GET /api/v1/products?category=&sub_category=&search=&ordering=&mine=&owner=&page=&page_size=
func (ctrl *ProductController) GetAllProducts(c *gin.Context) {
	query := service.ProductQuery{
		Category:    c.Query("category"),
		SubCategory: c.Query("sub_category"),
		Search:      c.Query("search"),
		Ordering:    c.Query("ordering"),
		Mine:        queryBool(c, "mine"),
		Page:        queryInt(c, "page"),
		PageSize:    queryInt(c, "page_size"),
	}
	if v := c.Query("owner"); v != "" {
		if owner, err := strconv.ParseUint(v, 10, 32); err == nil {
			id := uint(owner)
			query.OwnerID = &id
		}
	}

	products, total, err := ctrl.productService.List(optionalActor(c), query)
	if err != nil {
		middleware.GetLoggerFromContext(c).Error("Failed to fetch products", err)
		apperrors.InternalError(c, "Failed to fetch products.")
		return
	}

	limit, offset := service.Paginate(query.Page, query.PageSize)
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"count":     total,
		"page":      offset/limit + 1,
		"page_size": limit,
		"data":      products,
	})
}

// GetMyProducts lists products the caller created
// GET /api/v1/products/my-products
func (ctrl *ProductController) GetMyProducts(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	page, pageSize := queryInt(c, "page"), queryInt(c, "page_size")
	products, total, err := ctrl.productService.Mine(actor, page, pageSize)
	if err != nil {
		middleware.GetLoggerFromContext(c).Error("Failed to fetch own products", err)
		apperrors.InternalError(c, "Failed to fetch products.")
		return
	}

	limit, offset := service.Paginate(page, pageSize)
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"count":     total,
		"page":      offset/limit + 1,
		"page_size": limit,
		"data":      products,
	})
}

// GetProductByID handles fetching a single product
// GET /api/v1/products/:id
func (ctrl *ProductController) GetProductByID(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	product, err := ctrl.productService.Get(id)
	if err != nil {
		ctrl.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": product})
}

// CreateProduct handles product creation
// POST /api/v1/products
func (ctrl *ProductController) CreateProduct(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var fields service.ProductFields
	if err := c.ShouldBindJSON(&fields); err != nil {
		middleware.GetLoggerFromContext(c).Warn("Invalid product request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.RespondWithBindingError(c, err)
		return
	}

	product, err := ctrl.productService.Create(actor, fields)
	if err != nil {
		ctrl.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": product})
}

// UpdateProduct handles partial and full updates
// PATCH|PUT /api/v1/products/:id
func (ctrl *ProductController) UpdateProduct(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var fields service.ProductFields
	if err := c.ShouldBindJSON(&fields); err != nil {
		apperrors.RespondWithBindingError(c, err)
		return
	}

	product, err := ctrl.productService.Update(actor, id, fields)
	if err != nil {
		ctrl.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": product})
}

// DeleteProduct handles product deletion
// DELETE /api/v1/products/:id
func (ctrl *ProductController) DeleteProduct(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := ctrl.productService.Delete(actor, id); err != nil {
		ctrl.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// UploadImages stores the multipart "images" files
// POST /api/v1/products/upload-image
func (ctrl *ProductController) UploadImages(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var uploads []service.Upload
	if form, err := c.MultipartForm(); err == nil {
		uploads = toUploads(form.File["images"])
	}
	if len(uploads) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "No files provided",
			"code":    apperrors.ValidationNoFiles,
		})
		return
	}

	urls, err := ctrl.mediaService.SaveImages(c.Request.Context(), storage.FolderProducts, uploads)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnsupportedFile):
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error":   err.Error(),
				"code":    apperrors.ValidationInvalidInput,
			})
		default:
			log.Error("Failed to store product images", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error":   "Failed to save file: " + strings.TrimPrefix(err.Error(), service.ErrFileSaveFailed.Error()+": "),
				"code":    apperrors.InternalStorage,
			})
		}
		return
	}

	for i, u := range urls {
		urls[i] = absoluteURL(c, ctrl.publicBaseURL, u)
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "urls": urls})
}

func (ctrl *ProductController) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrProductNotFound):
		apperrors.NotFound(c, apperrors.ProductNotFound, "Product not found.")
	case errors.Is(err, service.ErrProductCreateForbidden):
		apperrors.Forbidden(c, "Only seller or admin users can create products")
	case errors.Is(err, service.ErrNotProductOwner):
		apperrors.RespondWithError(c, http.StatusForbidden, apperrors.AuthzOwnerOnly, "You can only manage products your company created")
	case errors.Is(err, service.ErrProductNameRequired):
		apperrors.RespondWithValidationError(c, map[string]string{"name": "This field is required."})
	default:
		middleware.GetLoggerFromContext(c).Error("Product request failed", err)
		apperrors.InternalError(c, "")
	}
}
