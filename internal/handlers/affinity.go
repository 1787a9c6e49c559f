// internal/handlers/affinity.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/internlink/placement-service/internal/services"
	"github.com/internlink/placement-service/internal/utils"
)

type AffinityHandler struct {
	affinityService *services.AffinityService
}

func NewAffinityHandler(affinityService *services.AffinityService) *AffinityHandler {
	return &AffinityHandler{
		affinityService: affinityService,
	}
}

// GET /affinity/students/:studentId/offers/:offerId
func (h *AffinityHandler) GetOfferAffinity(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	studentID, ok := parseIDParam(c, "studentId")
	if !ok {
		return
	}
	offerID, ok := parseIDParam(c, "offerId")
	if !ok {
		return
	}

	result, err := h.affinityService.ForOffer(c.Request.Context(), actor, studentID, offerID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, result)
}
