// internal/handlers/interview.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/internlink/placement-service/internal/i18n"
	"github.com/internlink/placement-service/internal/models"
	"github.com/internlink/placement-service/internal/services"
	"github.com/internlink/placement-service/internal/utils"
)

type InterviewHandler struct {
	interviewService *services.InterviewService
}

func NewInterviewHandler(interviewService *services.InterviewService) *InterviewHandler {
	return &InterviewHandler{
		interviewService: interviewService,
	}
}

// POST /applications/:id/interview
func (h *InterviewHandler) RequestInterview(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var details models.InterviewDetails
	if !bindJSON(c, &details) {
		return
	}

	application, err := h.interviewService.RequestInterview(c.Request.Context(), actor, id, &details)
	if err != nil {
		respondError(c, err)
		return
	}

	lang := utils.GetLangFromContext(c)
	utils.SuccessResponse(c, gin.H{
		"message":     i18n.T(lang, i18n.KeyInterviewRequested),
		"application": application,
	})
}

// POST /applications/:id/interview/response
func (h *InterviewHandler) RespondToInterview(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req services.RespondInterviewRequest
	if !bindJSON(c, &req) {
		return
	}

	application, err := h.interviewService.RespondToInterview(c.Request.Context(), actor, id, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	lang := utils.GetLangFromContext(c)
	utils.SuccessResponse(c, gin.H{
		"message":     i18n.T(lang, i18n.KeyInterviewResponded),
		"application": application,
	})
}
