package repository

import (
	"github.com/primeapparel/marketplace-backend/internal/app/model"
	"github.com/primeapparel/marketplace-backend/pkg/logger"
	"gorm.io/gorm"
)

// LeadFilter scopes lead queries. A nil AssignedToID means every lead.
type LeadFilter struct {
	AssignedToID *uint
	Status       model.LeadStatus
}

type LeadRepository interface {
	Create(lead *model.Lead) error
	FindByID(id uint) (*model.Lead, error)
	FindOne(id uint, filter LeadFilter) (*model.Lead, error)
	List(filter LeadFilter) ([]model.Lead, error)
	Update(lead *model.Lead) error
	Delete(id uint) error
}

type leadRepository struct {
	db *gorm.DB
}

func NewLeadRepository(db *gorm.DB) LeadRepository {
	return &leadRepository{db: db}
}

func (r *leadRepository) Create(lead *model.Lead) error {
	logger.Debug("Creating lead in database", map[string]interface{}{
		"email":          lead.Email,
		"user_id":        lead.UserID,
		"assigned_to_id": lead.AssignedToID,
	})

	if err := r.db.Create(lead).Error; err != nil {
		logger.Error("Failed to create lead in database", err, map[string]interface{}{
			"email": lead.Email,
		})
		return err
	}

	logger.Debug("Lead created in database", map[string]interface{}{
		"lead_id": lead.ID,
	})
	return nil
}

func (r *leadRepository) FindByID(id uint) (*model.Lead, error) {
	return r.FindOne(id, LeadFilter{})
}

func (r *leadRepository) FindOne(id uint, filter LeadFilter) (*model.Lead, error) {
	var lead model.Lead
	if err := r.scoped(filter).First(&lead, id).Error; err != nil {
		logger.Error("Failed to find lead in database", err, map[string]interface{}{
			"lead_id": id,
		})
		return nil, err
	}
	return &lead, nil
}

func (r *leadRepository) List(filter LeadFilter) ([]model.Lead, error) {
	logger.Debug("Listing leads", map[string]interface{}{
		"assigned_to_id": filter.AssignedToID,
		"status":         filter.Status,
	})

	var leads []model.Lead
	if err := r.scoped(filter).Order("created_at DESC").Order("id DESC").Find(&leads).Error; err != nil {
		logger.Error("Failed to list leads", err)
		return nil, err
	}
	return leads, nil
}

func (r *leadRepository) scoped(filter LeadFilter) *gorm.DB {
	query := r.db.Model(&model.Lead{})
	if filter.AssignedToID != nil {
		query = query.Where("assigned_to_id = ?", *filter.AssignedToID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	return query
}

func (r *leadRepository) Update(lead *model.Lead) error {
	logger.Debug("Updating lead in database", map[string]interface{}{
		"lead_id": lead.ID,
		"status":  lead.Status,
	})

	if err := r.db.Save(lead).Error; err != nil {
		logger.Error("Failed to update lead in database", err, map[string]interface{}{
			"lead_id": lead.ID,
		})
		return err
	}
	return nil
}

func (r *leadRepository) Delete(id uint) error {
	result := r.db.Delete(&model.Lead{}, id)
	if result.Error != nil {
		logger.Error("Failed to delete lead from database", result.Error, map[string]interface{}{
			"lead_id": id,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
