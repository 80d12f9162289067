package repository

import (
	"strings"

	"github.com/primeapparel/marketplace-backend/internal/app/model"
	"github.com/primeapparel/marketplace-backend/pkg/logger"
	"gorm.io/gorm"
)

// productOrderings whitelists the ordering values clients may send.
var productOrderings = map[string]string{
	"created_at":  "products.created_at ASC",
	"-created_at": "products.created_at DESC",
	"name":        "products.name ASC",
	"-name":       "products.name DESC",
	"moq":         "products.moq ASC",
	"-moq":        "products.moq DESC",
}

const DefaultProductOrdering = "-created_at"

// ValidProductOrdering reports whether ordering is accepted by List.
func ValidProductOrdering(ordering string) bool {
	_, ok := productOrderings[ordering]
	return ok
}

type ProductFilter struct {
	Category    string
	SubCategory string
	Search      string
	OwnerID     *uint
	Ordering    string
	Limit       int
	Offset      int
}

type ProductRepository interface {
	Create(product *model.Product) error
	BulkCreate(products []model.Product, batchSize int) error
	FindByID(id uint) (*model.Product, error)
	List(filter ProductFilter) ([]model.Product, int64, error)
	Update(product *model.Product) error
	Delete(id uint) error
}

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) Create(product *model.Product) error {
	logger.Debug("Creating product in database", map[string]interface{}{
		"name":     product.Name,
		"category": product.Category,
		"owner_id": product.OwnerID,
	})

	if err := r.db.Create(product).Error; err != nil {
		logger.Error("Failed to create product in database", err, map[string]interface{}{
			"name":     product.Name,
			"owner_id": product.OwnerID,
		})
		return err
	}

	logger.Debug("Product created in database", map[string]interface{}{
		"product_id": product.ID,
	})
	return nil
}

// BulkCreate inserts products in batches inside one transaction.
func (r *productRepository) BulkCreate(products []model.Product, batchSize int) error {
	if len(products) == 0 {
		return nil
	}
	logger.Debug("Bulk creating products in database", map[string]interface{}{
		"count":      len(products),
		"batch_size": batchSize,
	})

	err := r.db.Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(products, batchSize).Error
	})
	if err != nil {
		logger.Error("Failed to bulk create products in database", err, map[string]interface{}{
			"count": len(products),
		})
		return err
	}
	return nil
}

func (r *productRepository) FindByID(id uint) (*model.Product, error) {
	var product model.Product
	if err := r.db.Preload("Owner").First(&product, id).Error; err != nil {
		logger.Error("Failed to find product by ID in database", err, map[string]interface{}{
			"product_id": id,
		})
		return nil, err
	}
	return &product, nil
}

// List returns one page of matching products and the total match count.
func (r *productRepository) List(filter ProductFilter) ([]model.Product, int64, error) {
	logger.Debug("Finding products with filter", map[string]interface{}{
		"category":     filter.Category,
		"sub_category": filter.SubCategory,
		"search":       filter.Search,
		"owner_id":     filter.OwnerID,
		"ordering":     filter.Ordering,
		"limit":        filter.Limit,
		"offset":       filter.Offset,
	})

	query := r.db.Model(&model.Product{})

	if filter.Category != "" {
		query = query.Where("products.category = ?", filter.Category)
	}
	if filter.SubCategory != "" {
		query = query.Where("products.sub_category = ?", filter.SubCategory)
	}
	if filter.OwnerID != nil {
		query = query.Where("products.owner_id = ?", *filter.OwnerID)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(products.name) LIKE ? OR LOWER(products.description) LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		logger.Error("Failed to count products", err)
		return nil, 0, err
	}

	order, ok := productOrderings[filter.Ordering]
	if !ok {
		order = productOrderings[DefaultProductOrdering]
	}
	query = query.Order(order).Order("products.id DESC")

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var products []model.Product
	if err := query.Preload("Owner").Find(&products).Error; err != nil {
		logger.Error("Failed to find products with filter", err)
		return nil, 0, err
	}

	logger.Debug("Products found", map[string]interface{}{
		"count": len(products),
		"total": total,
	})
	return products, total, nil
}

func (r *productRepository) Update(product *model.Product) error {
	logger.Debug("Updating product in database", map[string]interface{}{
		"product_id": product.ID,
	})

	if err := r.db.Omit("Owner").Save(product).Error; err != nil {
		logger.Error("Failed to update product in database", err, map[string]interface{}{
			"product_id": product.ID,
		})
		return err
	}
	return nil
}

func (r *productRepository) Delete(id uint) error {
	logger.Debug("Deleting product from database", map[string]interface{}{
		"product_id": id,
	})

	result := r.db.Delete(&model.Product{}, id)
	if result.Error != nil {
		logger.Error("Failed to delete product from database", result.Error, map[string]interface{}{
			"product_id": id,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
