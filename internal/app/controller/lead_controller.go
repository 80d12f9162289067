package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/primeapparel/marketplace-backend/internal/app/model"
	"github.com/primeapparel/marketplace-backend/internal/app/service"
	apperrors "github.com/primeapparel/marketplace-backend/internal/errors"
	"github.com/primeapparel/marketplace-backend/internal/middleware"
)

type LeadController struct {
	leadService service.LeadService
}

func NewLeadController(leadService service.LeadService) *LeadController {
	return &LeadController{leadService: leadService}
}

// ListLeads returns the leads visible to the caller
// GET /api/v1/leads?status=
func (ctrl *LeadController) ListLeads(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var status model.LeadStatus
	if v := c.Query("status"); v != "" {
		parsed, err := model.ParseLeadStatus(v)
		if err != nil {
			apperrors.RespondWithValidationError(c, map[string]string{"status": "Unknown lead status."})
			return
		}
		status = parsed
	}

	leads, err := ctrl.leadService.List(actor, status)
	if err != nil {
		middleware.GetLoggerFromContext(c).Error("Failed to list leads", err)
		apperrors.InternalError(c, "")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"count":   len(leads),
		"data":    leads,
	})
}

// MyLeads keeps the buyer history endpoint but never returns rows
// GET /api/v1/leads/my-leads
func (ctrl *LeadController) MyLeads(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"count":   0,
		"data":    []model.Lead{},
	})
}

// GetLead returns one lead within the caller's scope
// GET /api/v1/leads/:id
func (ctrl *LeadController) GetLead(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	lead, err := ctrl.leadService.Get(actor, id)
	if err != nil {
		ctrl.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": lead})
}

// CreateLead records a sourcing enquiry
// POST /api/v1/leads
func (ctrl *LeadController) CreateLead(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var input service.LeadInput
	if err := c.ShouldBindJSON(&input); err != nil {
		middleware.GetLoggerFromContext(c).Warn("Invalid lead request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.RespondWithBindingError(c, err)
		return
	}

	lead, err := ctrl.leadService.Create(actor, input)
	if err != nil {
		ctrl.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": lead})
}

// UpdateLead patches a lead
// PATCH /api/v1/leads/:id
func (ctrl *LeadController) UpdateLead(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var update service.LeadUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		apperrors.RespondWithBindingError(c, err)
		return
	}

	lead, err := ctrl.leadService.Update(actor, id, update)
	if err != nil {
		ctrl.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": lead})
}

// DeleteLead removes a lead
// DELETE /api/v1/leads/:id
func (ctrl *LeadController) DeleteLead(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := ctrl.leadService.Delete(actor, id); err != nil {
		ctrl.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (ctrl *LeadController) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrLeadNotFound):
		apperrors.NotFound(c, apperrors.LeadNotFound, "Lead not found.")
	case errors.Is(err, service.ErrInvalidLeadProduct):
		apperrors.RespondWithValidationError(c, map[string]string{"product": "Product does not exist."})
	case errors.Is(err, service.ErrInvalidLeadAssignee):
		apperrors.RespondWithValidationError(c, map[string]string{"assigned_to": "Leads can only be assigned to sellers or admins."})
	default:
		middleware.GetLoggerFromContext(c).Error("Lead request failed", err)
		apperrors.InternalError(c, "")
	}
}
