package service

import (
	"errors"
	"strings"

	"github.com/primeapparel/marketplace-backend/internal/app/model"
	"github.com/primeapparel/marketplace-backend/internal/app/repository"
	"github.com/primeapparel/marketplace-backend/internal/policy"
	"github.com/primeapparel/marketplace-backend/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrProductNotFound        = errors.New("product not found")
	ErrProductCreateForbidden = errors.New("only seller or admin users can create products")
	ErrNotProductOwner        = errors.New("you can only manage products your company created")
	ErrProductNameRequired    = errors.New("product name is required")
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ProductQuery is the public catalogue filter. Mine and OwnerID only take
// effect for an authenticated actor (OwnerID for admins only).
type ProductQuery struct {
	Category    string
	SubCategory string
	Search      string
	Ordering    string
	Mine        bool
	OwnerID     *uint
	Page        int
	PageSize    int
}

// ProductFields is shared by create and partial update; nil means unset.
type ProductFields struct {
	Name           *string                 `json:"name" binding:"omitempty,max=255"`
	Description    *string                 `json:"description"`
	Category       *string                 `json:"category" binding:"omitempty,max=100"`
	SubCategory    *string                 `json:"sub_category" binding:"omitempty,max=100"`
	PriceTiers     *[]model.PriceTier      `json:"price_tiers"`
	Colors         *[]string               `json:"colors"`
	Sizes          *[]string               `json:"sizes"`
	Specifications *map[string]interface{} `json:"specifications"`
	Images         *[]string               `json:"images"`
	MOQ            *int                    `json:"moq" binding:"omitempty,gte=1"`
	LeadTime       *string                 `json:"lead_time" binding:"omitempty,max=100"`
	Material       *string                 `json:"material" binding:"omitempty,max=255"`
	Warranty       *string                 `json:"warranty" binding:"omitempty,max=255"`
	Certifications *string                 `json:"certifications"`
	ShippingTerms  *string                 `json:"shipping_terms"`
	PaymentTerms   *string                 `json:"payment_terms"`
	BulkPricing    *string                 `json:"bulk_pricing"`
}

func (f ProductFields) apply(p *model.Product) {
	if f.Name != nil {
		p.Name = strings.TrimSpace(*f.Name)
	}
	if f.Description != nil {
		p.Description = *f.Description
	}
	if f.Category != nil {
		p.Category = *f.Category
	}
	if f.SubCategory != nil {
		p.SubCategory = *f.SubCategory
	}
	if f.PriceTiers != nil {
		p.PriceTiers = *f.PriceTiers
	}
	if f.Colors != nil {
		p.Colors = *f.Colors
	}
	if f.Sizes != nil {
		p.Sizes = *f.Sizes
	}
	if f.Specifications != nil {
		p.Specifications = *f.Specifications
	}
	if f.Images != nil {
		p.Images = *f.Images
	}
	if f.MOQ != nil {
		p.MOQ = *f.MOQ
	}
	if f.LeadTime != nil {
		p.LeadTime = *f.LeadTime
	}
	if f.Material != nil {
		p.Material = *f.Material
	}
	if f.Warranty != nil {
		p.Warranty = *f.Warranty
	}
	if f.Certifications != nil {
		p.Certifications = *f.Certifications
	}
	if f.ShippingTerms != nil {
		p.ShippingTerms = *f.ShippingTerms
	}
	if f.PaymentTerms != nil {
		p.PaymentTerms = *f.PaymentTerms
	}
	if f.BulkPricing != nil {
		p.BulkPricing = *f.BulkPricing
	}
}

type ProductService interface {
	List(actor *Actor, query ProductQuery) ([]model.Product, int64, error)
	Get(id uint) (*model.Product, error)
	Create(actor Actor, fields ProductFields) (*model.Product, error)
	Update(actor Actor, id uint, fields ProductFields) (*model.Product, error)
	Delete(actor Actor, id uint) error
	Mine(actor Actor, page, pageSize int) ([]model.Product, int64, error)
}

type productService struct {
	productRepo repository.ProductRepository
}

func NewProductService(productRepo repository.ProductRepository) ProductService {
	return &productService{productRepo: productRepo}
}

// Paginate clamps page and page size and returns limit/offset.
func Paginate(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return pageSize, (page - 1) * pageSize
}

func (s *productService) List(actor *Actor, query ProductQuery) ([]model.Product, int64, error) {
	limit, offset := Paginate(query.Page, query.PageSize)
	filter := repository.ProductFilter{
		Category:    strings.TrimSpace(query.Category),
		SubCategory: strings.TrimSpace(query.SubCategory),
		Search:      query.Search,
		Ordering:    query.Ordering,
		Limit:       limit,
		Offset:      offset,
	}
	if !repository.ValidProductOrdering(filter.Ordering) {
		filter.Ordering = repository.DefaultProductOrdering
	}

	if actor != nil {
		switch {
		case query.Mine:
			self := actor.ID
			filter.OwnerID = &self
		case query.OwnerID != nil && policy.CanFilterByOwner(actor.Role):
			filter.OwnerID = query.OwnerID
		}
	}

	return s.productRepo.List(filter)
}

func (s *productService) Get(id uint) (*model.Product, error) {
	product, err := s.productRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return product, nil
}

func (s *productService) Create(actor Actor, fields ProductFields) (*model.Product, error) {
	if actor.Role != model.RoleSeller && actor.Role != model.RoleAdmin {
		return nil, ErrProductCreateForbidden
	}

	product := &model.Product{MOQ: 1}
	fields.apply(product)
	if product.Name == "" {
		return nil, ErrProductNameRequired
	}
	owner := actor.ID
	product.OwnerID = &owner

	if err := s.productRepo.Create(product); err != nil {
		return nil, err
	}

	logger.Info("Product created", map[string]interface{}{
		"product_id": product.ID,
		"owner_id":   owner,
	})
	return product, nil
}

func (s *productService) loadManaged(actor Actor, id uint) (*model.Product, error) {
	product, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if !policy.CanManageAnyProduct(actor.Role) && !product.OwnedBy(actor.ID) {
		logger.Warn("Product ownership check failed", map[string]interface{}{
			"product_id": id,
			"actor_id":   actor.ID,
		})
		return nil, ErrNotProductOwner
	}
	return product, nil
}

func (s *productService) Update(actor Actor, id uint, fields ProductFields) (*model.Product, error) {
	product, err := s.loadManaged(actor, id)
	if err != nil {
		return nil, err
	}

	fields.apply(product)
	if product.Name == "" {
		return nil, ErrProductNameRequired
	}
	if err := s.productRepo.Update(product); err != nil {
		return nil, err
	}

	logger.Info("Product updated", map[string]interface{}{
		"product_id": product.ID,
		"actor_id":   actor.ID,
	})
	return product, nil
}

func (s *productService) Delete(actor Actor, id uint) error {
	if _, err := s.loadManaged(actor, id); err != nil {
		return err
	}
	if err := s.productRepo.Delete(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProductNotFound
		}
		return err
	}
	logger.Info("Product deleted", map[string]interface{}{
		"product_id": id,
		"actor_id":   actor.ID,
	})
	return nil
}

func (s *productService) Mine(actor Actor, page, pageSize int) ([]model.Product, int64, error) {
	return s.List(&actor, ProductQuery{Mine: true, Page: page, PageSize: pageSize})
}
