// internal/handlers/candidate.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/internlink/placement-service/internal/i18n"
	"github.com/internlink/placement-service/internal/services"
	"github.com/internlink/placement-service/internal/utils"
)

// CandidateHandler exposes the reveal gate to companies.
type CandidateHandler struct {
	revealService *services.RevealService
}

func NewCandidateHandler(revealService *services.RevealService) *CandidateHandler {
	return &CandidateHandler{
		revealService: revealService,
	}
}

// POST /candidates/:studentId/cv
func (h *CandidateHandler) ViewCV(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	studentID, ok := parseIDParam(c, "studentId")
	if !ok {
		return
	}

	// an empty body means a direct reveal
	var req services.ViewCVRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}

	profile, err := h.revealService.ViewCV(c.Request.Context(), actor, studentID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	lang := utils.GetLangFromContext(c)
	utils.SuccessResponse(c, gin.H{
		"message":   i18n.T(lang, i18n.KeyCandidateRevealed),
		"candidate": profile,
	})
}

// POST /candidates/:studentId/contact
func (h *CandidateHandler) Contact(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	studentID, ok := parseIDParam(c, "studentId")
	if !ok {
		return
	}

	var req services.ContactRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.revealService.Contact(c.Request.Context(), actor, studentID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	lang := utils.GetLangFromContext(c)
	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyCandidateContacted),
		"contact": result,
	})
}

// GET /candidates/:studentId/reveal
func (h *CandidateHandler) RevealStatus(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	studentID, ok := parseIDParam(c, "studentId")
	if !ok {
		return
	}

	status, err := h.revealService.RevealStatus(c.Request.Context(), actor, studentID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, status)
}
