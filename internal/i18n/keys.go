// internal/i18n/keys.go
package i18n

// Translation keys constants
const (
	// Common
	KeySuccess = "success"
	KeyError   = "error"

	// Authentication
	KeyAuthRequired                = "auth.required"
	KeyAuthInvalidToken            = "auth.invalid_token"
	KeyAuthTokenExpired            = "auth.token_expired"
	KeyAuthInsufficientPermissions = "auth.insufficient_permissions"

	// Applications
	KeyApplicationCreated       = "application.created"
	KeyApplicationWithdrawn     = "application.withdrawn"
	KeyApplicationStatusUpdated = "application.status_updated"
	KeyApplicationNotFound      = "application.not_found"

	// Interviews
	KeyInterviewRequested = "interview.requested"
	KeyInterviewResponded = "interview.responded"

	// Candidates
	KeyCandidateRevealed  = "candidate.revealed"
	KeyCandidateContacted = "candidate.contacted"

	// Wallet
	KeyWalletTopUpCreated = "wallet.top_up_created"
	KeyWalletToppedUp     = "wallet.topped_up"
	KeyWalletGranted      = "wallet.granted"

	// Notifications
	KeyNotificationRead = "notification.read"

	// Service error codes
	KeyErrInvalidTransition          = "error.invalid_transition"
	KeyErrForbidden                  = "error.forbidden"
	KeyErrInvalidActor               = "error.invalid_actor"
	KeyErrDuplicateActiveApplication = "error.duplicate_active_application"
	KeyErrMissingRejectionReason     = "error.missing_rejection_reason"
	KeyErrInsufficientBalance        = "error.insufficient_balance"
	KeyErrConcurrentModification     = "error.concurrent_modification"
	KeyErrOfferNotFound              = "error.offer_not_found"
	KeyErrOfferClosed                = "error.offer_closed"
	KeyErrNotFound                   = "error.not_found"
	KeyErrInternal                   = "error.internal"

	// Validation
	KeyValidationRequired = "validation.required"
	KeyValidationInvalid  = "validation.invalid"

	// Rate limiting
	KeyRateLimitExceeded = "rate_limit.exceeded"
)
