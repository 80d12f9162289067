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
	ErrLeadNotFound        = errors.New("lead not found")
	ErrInvalidLeadProduct  = errors.New("product does not exist")
	ErrInvalidLeadAssignee = errors.New("leads can only be assigned to sellers or admins")
)

// LeadInput is the create payload. Status defaults to NEW.
type LeadInput struct {
	Name        string           `json:"name" binding:"required,max=255"`
	Email       string           `json:"email" binding:"required,email"`
	Phone       string           `json:"phone" binding:"max=32"`
	Company     string           `json:"company" binding:"max=255"`
	Country     string           `json:"country" binding:"max=100"`
	ProductType string           `json:"product_type" binding:"max=255"`
	Quantity    int              `json:"quantity" binding:"gte=0"`
	Message     string           `json:"message"`
	ProductID   *uint            `json:"product"`
	Status      model.LeadStatus `json:"status" binding:"omitempty,lead_status"`
}

// LeadUpdate is a partial update; nil fields are left alone.
type LeadUpdate struct {
	Name         *string           `json:"name" binding:"omitempty,max=255"`
	Email        *string           `json:"email" binding:"omitempty,email"`
	Phone        *string           `json:"phone" binding:"omitempty,max=32"`
	Company      *string           `json:"company" binding:"omitempty,max=255"`
	Country      *string           `json:"country" binding:"omitempty,max=100"`
	ProductType  *string           `json:"product_type" binding:"omitempty,max=255"`
	Quantity     *int              `json:"quantity" binding:"omitempty,gte=0"`
	Message      *string           `json:"message"`
	ProductID    *uint             `json:"product"`
	Status       *model.LeadStatus `json:"status" binding:"omitempty,lead_status"`
	AssignedToID *uint             `json:"assigned_to"`
}

type LeadService interface {
	List(actor Actor, status model.LeadStatus) ([]model.Lead, error)
	Get(actor Actor, id uint) (*model.Lead, error)
	Create(actor Actor, input LeadInput) (*model.Lead, error)
	Update(actor Actor, id uint, update LeadUpdate) (*model.Lead, error)
	Delete(actor Actor, id uint) error
}

type leadService struct {
	leadRepo    repository.LeadRepository
	productRepo repository.ProductRepository
	userRepo    repository.UserRepository
}

func NewLeadService(
	leadRepo repository.LeadRepository,
	productRepo repository.ProductRepository,
	userRepo repository.UserRepository,
) LeadService {
	return &leadService{
		leadRepo:    leadRepo,
		productRepo: productRepo,
		userRepo:    userRepo,
	}
}

func (s *leadService) List(actor Actor, status model.LeadStatus) ([]model.Lead, error) {
	filter := repository.LeadFilter{Status: status}
	switch policy.LeadVisibility(actor.Role) {
	case policy.LeadScopeAll:
	case policy.LeadScopeAssigned:
		id := actor.ID
		filter.AssignedToID = &id
	case policy.LeadScopeNone:
		return []model.Lead{}, nil
	}
	return s.leadRepo.List(filter)
}

func (s *leadService) Get(actor Actor, id uint) (*model.Lead, error) {
	var (
		lead *model.Lead
		err  error
	)
	switch policy.LeadVisibility(actor.Role) {
	case policy.LeadScopeAll:
		lead, err = s.leadRepo.FindByID(id)
	case policy.LeadScopeAssigned:
		self := actor.ID
		lead, err = s.leadRepo.FindOne(id, repository.LeadFilter{AssignedToID: &self})
	default:
		return nil, ErrLeadNotFound
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLeadNotFound
		}
		return nil, err
	}
	return lead, nil
}

func (s *leadService) checkProduct(id *uint) error {
	if id == nil {
		return nil
	}
	if _, err := s.productRepo.FindByID(*id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidLeadProduct
		}
		return err
	}
	return nil
}

func (s *leadService) Create(actor Actor, input LeadInput) (*model.Lead, error) {
	if err := s.checkProduct(input.ProductID); err != nil {
		return nil, err
	}

	lead := &model.Lead{
		Name:        strings.TrimSpace(input.Name),
		Email:       strings.TrimSpace(input.Email),
		Phone:       input.Phone,
		Company:     input.Company,
		Country:     input.Country,
		ProductType: input.ProductType,
		Quantity:    input.Quantity,
		Message:     input.Message,
		ProductID:   input.ProductID,
		Status:      input.Status,
	}
	if lead.Status == "" {
		lead.Status = model.LeadStatusNew
	}

	self := actor.ID
	switch policy.LeadCreatorAssignment(actor.Role) {
	case policy.AssignRequester:
		lead.UserID = &self
	case policy.AssignHandler:
		lead.AssignedToID = &self
	case policy.AssignNobody:
	}

	if err := s.leadRepo.Create(lead); err != nil {
		return nil, err
	}

	logger.Info("Lead created", map[string]interface{}{
		"lead_id":     lead.ID,
		"actor_id":    actor.ID,
		"actor_role":  actor.Role,
		"assigned_to": lead.AssignedToID,
	})
	return lead, nil
}

// Update loads by id without an assignment scope: any seller may edit any
// lead, matching the API sellers already rely on.
func (s *leadService) Update(actor Actor, id uint, update LeadUpdate) (*model.Lead, error) {
	lead, err := s.leadRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLeadNotFound
		}
		return nil, err
	}

	if err := s.checkProduct(update.ProductID); err != nil {
		return nil, err
	}
	if update.AssignedToID != nil {
		assignee, err := s.userRepo.FindByID(*update.AssignedToID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrInvalidLeadAssignee
			}
			return nil, err
		}
		if assignee.Role != model.RoleSeller && assignee.Role != model.RoleAdmin {
			return nil, ErrInvalidLeadAssignee
		}
		lead.AssignedToID = update.AssignedToID
	}

	if update.Name != nil {
		lead.Name = strings.TrimSpace(*update.Name)
	}
	if update.Email != nil {
		lead.Email = strings.TrimSpace(*update.Email)
	}
	if update.Phone != nil {
		lead.Phone = *update.Phone
	}
	if update.Company != nil {
		lead.Company = *update.Company
	}
	if update.Country != nil {
		lead.Country = *update.Country
	}
	if update.ProductType != nil {
		lead.ProductType = *update.ProductType
	}
	if update.Quantity != nil {
		lead.Quantity = *update.Quantity
	}
	if update.Message != nil {
		lead.Message = *update.Message
	}
	if update.ProductID != nil {
		lead.ProductID = update.ProductID
	}
	if update.Status != nil {
		lead.Status = *update.Status
	}

	if err := s.leadRepo.Update(lead); err != nil {
		return nil, err
	}

	logger.Info("Lead updated", map[string]interface{}{
		"lead_id":  lead.ID,
		"actor_id": actor.ID,
		"status":   lead.Status,
	})
	return lead, nil
}

func (s *leadService) Delete(actor Actor, id uint) error {
	if err := s.leadRepo.Delete(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrLeadNotFound
		}
		return err
	}
	logger.Info("Lead deleted", map[string]interface{}{
		"lead_id":  id,
		"actor_id": actor.ID,
	})
	return nil
}
