// internal/handlers/errors.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/internlink/placement-service/internal/i18n"
	"github.com/internlink/placement-service/internal/middleware"
	"github.com/internlink/placement-service/internal/services"
	"github.com/internlink/placement-service/internal/utils"
)

var errorStatus = map[services.ErrorCode]int{
	services.CodeInvalidTransition:          http.StatusConflict,
	services.CodeDuplicateActiveApplication: http.StatusConflict,
	services.CodeConcurrentModification:     http.StatusConflict,
	services.CodeOfferClosed:                http.StatusConflict,
	services.CodeInsufficientBalance:        http.StatusPaymentRequired,
	services.CodeForbidden:                  http.StatusForbidden,
	services.CodeInvalidActor:               http.StatusForbidden,
	services.CodeNotFound:                   http.StatusNotFound,
	services.CodeOfferNotFound:              http.StatusNotFound,
	services.CodeMissingRejectionReason:     http.StatusBadRequest,
	services.CodeValidation:                 http.StatusBadRequest,
}

var errorMessageKey = map[services.ErrorCode]string{
	services.CodeInvalidTransition:          i18n.KeyErrInvalidTransition,
	services.CodeDuplicateActiveApplication: i18n.KeyErrDuplicateActiveApplication,
	services.CodeConcurrentModification:     i18n.KeyErrConcurrentModification,
	services.CodeOfferClosed:                i18n.KeyErrOfferClosed,
	services.CodeInsufficientBalance:        i18n.KeyErrInsufficientBalance,
	services.CodeForbidden:                  i18n.KeyErrForbidden,
	services.CodeInvalidActor:               i18n.KeyErrInvalidActor,
	services.CodeNotFound:                   i18n.KeyErrNotFound,
	services.CodeOfferNotFound:              i18n.KeyErrOfferNotFound,
	services.CodeMissingRejectionReason:     i18n.KeyErrMissingRejectionReason,
	services.CodeInternal:                   i18n.KeyErrInternal,
}

// respondError writes the envelope for a service error. Validation errors
// keep the service message since it names the offending field.
func respondError(c *gin.Context, err error) {
	se := services.AsServiceError(err)
	lang := utils.GetLangFromContext(c)

	status, ok := errorStatus[se.Code]
	if !ok {
		status = http.StatusInternalServerError
	}

	message := se.Message
	if key, ok := errorMessageKey[se.Code]; ok {
		message = i18n.T(lang, key)
	}

	if status == http.StatusInternalServerError {
		logrus.WithError(err).WithField("path", c.FullPath()).Error("request failed")
		utils.ErrorResponse(c, status, string(services.CodeInternal), message, nil)
		return
	}

	var details interface{}
	if len(se.Details) > 0 {
		details = se.Details
	}
	utils.ErrorResponse(c, status, string(se.Code), message, details)
}

// actorFrom returns the authenticated actor or writes a 401.
func actorFrom(c *gin.Context) (services.Actor, bool) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
	}
	return actor, ok
}

func parseIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		message := i18n.T(utils.GetLangFromContext(c), i18n.KeyValidationInvalid, name)
		respondError(c, services.NewValidationError(message, []utils.ValidationError{
			{Field: name, Tag: "uuid", Message: name + " must be a valid UUID"},
		}))
		return uuid.Nil, false
	}
	return id, true
}

// bindJSON decodes and validates the body, writing a 400 on failure. Both
// failures use the same envelope as service-level validation errors.
func bindJSON(c *gin.Context, req interface{}) bool {
	message := i18n.T(utils.GetLangFromContext(c), i18n.KeyValidationInvalid, "input")
	if err := c.ShouldBindJSON(req); err != nil {
		respondError(c, services.NewValidationError(message, []utils.ValidationError{
			{Field: "body", Tag: "json", Message: err.Error()},
		}))
		return false
	}
	if err := utils.ValidateStruct(req); err != nil {
		respondError(c, services.NewValidationError(message, utils.GetValidationErrors(err)))
		return false
	}
	return true
}
