// internal/handlers/application.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/internlink/placement-service/internal/i18n"
	"github.com/internlink/placement-service/internal/models"
	"github.com/internlink/placement-service/internal/services"
	"github.com/internlink/placement-service/internal/utils"
)

type ApplicationHandler struct {
	applicationService *services.ApplicationService
}

func NewApplicationHandler(applicationService *services.ApplicationService) *ApplicationHandler {
	return &ApplicationHandler{
		applicationService: applicationService,
	}
}

// POST /applications
func (h *ApplicationHandler) Apply(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	var req services.ApplyRequest
	if !bindJSON(c, &req) {
		return
	}

	application, err := h.applicationService.Apply(c.Request.Context(), actor, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	lang := utils.GetLangFromContext(c)
	utils.CreatedResponse(c, gin.H{
		"message":     i18n.T(lang, i18n.KeyApplicationCreated),
		"application": application,
	})
}

// GET /applications/:id
func (h *ApplicationHandler) GetApplication(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	view, err := h.applicationService.Get(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, view)
}

// GET /applications/:id/history
func (h *ApplicationHandler) GetHistory(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	history, err := h.applicationService.History(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"history": history})
}

// GET /students/:id/applications
func (h *ApplicationHandler) ListByStudent(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	studentID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	filter := applicationFilter(c)
	views, total, err := h.applicationService.ListByStudent(c.Request.Context(), actor, studentID, filter)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(views, total, filter.PaginationParams))
}

// GET /companies/:id/applications
func (h *ApplicationHandler) ListByCompany(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	companyID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	filter := applicationFilter(c)
	views, total, err := h.applicationService.ListByCompany(c.Request.Context(), actor, companyID, filter)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(views, total, filter.PaginationParams))
}

func applicationFilter(c *gin.Context) services.ApplicationFilter {
	filter := services.ApplicationFilter{
		PaginationParams: utils.GetPaginationParams(c),
		IncludeAffinity:  c.Query("affinity") == "true",
	}

	if status := c.Query("status"); status != "" {
		appStatus := models.ApplicationStatus(status)
		filter.Status = &appStatus
	}

	if offerIDStr := c.Query("offer_id"); offerIDStr != "" {
		if offerID, err := uuid.Parse(offerIDStr); err == nil {
			filter.OfferID = &offerID
		}
	}

	return filter
}

// POST /applications/:id/withdraw
func (h *ApplicationHandler) Withdraw(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	application, err := h.applicationService.Withdraw(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}

	lang := utils.GetLangFromContext(c)
	utils.SuccessResponse(c, gin.H{
		"message":     i18n.T(lang, i18n.KeyApplicationWithdrawn),
		"application": application,
	})
}

// POST /applications/:id/transition
func (h *ApplicationHandler) Transition(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req services.TransitionRequest
	if !bindJSON(c, &req) {
		return
	}

	application, err := h.applicationService.Transition(c.Request.Context(), actor, id, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	lang := utils.GetLangFromContext(c)
	utils.SuccessResponse(c, gin.H{
		"message":     i18n.T(lang, i18n.KeyApplicationStatusUpdated),
		"application": application,
	})
}
