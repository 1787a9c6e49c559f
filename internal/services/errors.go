// internal/services/errors.go
package services

import (
	"errors"
	"fmt"

	"github.com/internlink/placement-service/internal/utils"
)

type ErrorCode string

const (
	CodeInvalidTransition          ErrorCode = "INVALID_TRANSITION"
	CodeForbidden                  ErrorCode = "FORBIDDEN"
	CodeInvalidActor               ErrorCode = "INVALID_ACTOR"
	CodeDuplicateActiveApplication ErrorCode = "DUPLICATE_ACTIVE_APPLICATION"
	CodeMissingRejectionReason     ErrorCode = "MISSING_REJECTION_REASON"
	CodeInsufficientBalance        ErrorCode = "INSUFFICIENT_BALANCE"
	CodeConcurrentModification     ErrorCode = "CONCURRENT_MODIFICATION"
	CodeOfferNotFound              ErrorCode = "OFFER_NOT_FOUND"
	CodeOfferClosed                ErrorCode = "OFFER_CLOSED"
	CodeNotFound                   ErrorCode = "NOT_FOUND"
	CodeValidation                 ErrorCode = "VALIDATION"
	CodeInternal                   ErrorCode = "INTERNAL"
)

// ServiceError is the recoverable error returned by every service operation.
// Details carries the structured data a caller needs to act on it.
type ServiceError struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Err     error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ServiceError) Unwrap() error { return e.Err }

// Is matches any ServiceError carrying the same code, so callers can write
// errors.Is(err, services.ErrInvalidTransition).
func (e *ServiceError) Is(target error) bool {
	var t *ServiceError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

func newError(code ErrorCode, message string, details map[string]interface{}) *ServiceError {
	return &ServiceError{Code: code, Message: message, Details: details}
}

func internalError(message string, err error) *ServiceError {
	return &ServiceError{Code: CodeInternal, Message: message, Err: err}
}

// Sentinels for errors.Is comparisons.
var (
	ErrInvalidTransition          = &ServiceError{Code: CodeInvalidTransition, Message: "invalid status transition"}
	ErrForbidden                  = &ServiceError{Code: CodeForbidden, Message: "forbidden"}
	ErrInvalidActor               = &ServiceError{Code: CodeInvalidActor, Message: "invalid actor"}
	ErrDuplicateActiveApplication = &ServiceError{Code: CodeDuplicateActiveApplication, Message: "an active application already exists for this offer"}
	ErrMissingRejectionReason     = &ServiceError{Code: CodeMissingRejectionReason, Message: "a valid rejection reason is required"}
	ErrInsufficientBalance        = &ServiceError{Code: CodeInsufficientBalance, Message: "insufficient token balance"}
	ErrConcurrentModification     = &ServiceError{Code: CodeConcurrentModification, Message: "application was modified concurrently, retry"}
	ErrOfferNotFound              = &ServiceError{Code: CodeOfferNotFound, Message: "offer not found"}
	ErrOfferClosed                = &ServiceError{Code: CodeOfferClosed, Message: "offer is closed"}
	ErrNotFound                   = &ServiceError{Code: CodeNotFound, Message: "not found"}
	ErrValidation                 = &ServiceError{Code: CodeValidation, Message: "validation failed"}
)

func invalidTransitionError(from, to interface{}) *ServiceError {
	return newError(CodeInvalidTransition,
		fmt.Sprintf("transition %v -> %v is not allowed", from, to),
		map[string]interface{}{"current": from, "requested": to})
}

func forbiddenError(message string) *ServiceError {
	return newError(CodeForbidden, message, nil)
}

func notFoundError(resource string) *ServiceError {
	return newError(CodeNotFound, resource+" not found", map[string]interface{}{"resource": resource})
}

// NewValidationError is the one shape every validation failure takes:
// details always carry a "fields" list, empty when no single field is at fault.
func NewValidationError(message string, fields []utils.ValidationError) *ServiceError {
	if fields == nil {
		fields = []utils.ValidationError{}
	}
	return newError(CodeValidation, message, map[string]interface{}{"fields": fields})
}

func validationError(message string, fields ...utils.ValidationError) *ServiceError {
	return NewValidationError(message, fields)
}

func fieldError(field, tag, message string) utils.ValidationError {
	return utils.ValidationError{Field: field, Tag: tag, Message: message}
}

func missingReasonError(allowed []string) *ServiceError {
	return newError(CodeMissingRejectionReason, "a valid rejection reason is required",
		map[string]interface{}{"allowed_reasons": allowed})
}

func insufficientBalanceError(required, balance int64) *ServiceError {
	return newError(CodeInsufficientBalance,
		fmt.Sprintf("revealing this candidate costs %d tokens", required),
		map[string]interface{}{"required": required, "balance": balance})
}

// AsServiceError converts any error into a ServiceError, treating unknown
// errors as internal failures.
func AsServiceError(err error) *ServiceError {
	var se *ServiceError
	if errors.As(err, &se) {
		return se
	}
	return internalError("internal error", err)
}
