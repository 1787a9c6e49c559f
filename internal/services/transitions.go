// internal/services/transitions.go
//
// Application status graph:
//
//	pending ──► reviewed ──► interview_requested ──► interview_confirmed
//	   │           │                 │          └──► interview_rejected
//	   │           │                 │
//	   ├───────────┴─────────────────┴──(company)──► accepted | rejected
//	   └──(student)──► withdrawn
//
// interview_confirmed and interview_rejected may still be closed by the
// company with accepted or rejected. accepted, rejected and withdrawn are
// terminal.
package services

import (
	"fmt"

	"github.com/internlink/placement-service/internal/models"
)

type transitionRule struct {
	to models.ApplicationStatus
	by models.Role
}

var validTransitions = map[models.ApplicationStatus][]transitionRule{
	models.ApplicationStatusPending: {
		{models.ApplicationStatusReviewed, models.RoleCompany},
		{models.ApplicationStatusAccepted, models.RoleCompany},
		{models.ApplicationStatusRejected, models.RoleCompany},
		{models.ApplicationStatusInterviewRequested, models.RoleCompany},
		{models.ApplicationStatusWithdrawn, models.RoleStudent},
	},
	models.ApplicationStatusReviewed: {
		{models.ApplicationStatusAccepted, models.RoleCompany},
		{models.ApplicationStatusRejected, models.RoleCompany},
		{models.ApplicationStatusInterviewRequested, models.RoleCompany},
	},
	models.ApplicationStatusInterviewRequested: {
		{models.ApplicationStatusInterviewConfirmed, models.RoleStudent},
		{models.ApplicationStatusInterviewRejected, models.RoleStudent},
		{models.ApplicationStatusAccepted, models.RoleCompany},
		{models.ApplicationStatusRejected, models.RoleCompany},
	},
	models.ApplicationStatusInterviewConfirmed: {
		{models.ApplicationStatusAccepted, models.RoleCompany},
		{models.ApplicationStatusRejected, models.RoleCompany},
	},
	models.ApplicationStatusInterviewRejected: {
		{models.ApplicationStatusAccepted, models.RoleCompany},
		{models.ApplicationStatusRejected, models.RoleCompany},
	},
	// accepted, rejected and withdrawn are terminal
}

// cascadeRejectable are the sibling states closed when a student is accepted elsewhere.
var cascadeRejectable = []models.ApplicationStatus{
	models.ApplicationStatusPending,
	models.ApplicationStatusReviewed,
	models.ApplicationStatusInterviewRequested,
}

var allStatuses = []models.ApplicationStatus{
	models.ApplicationStatusPending,
	models.ApplicationStatusReviewed,
	models.ApplicationStatusAccepted,
	models.ApplicationStatusRejected,
	models.ApplicationStatusInterviewRequested,
	models.ApplicationStatusInterviewConfirmed,
	models.ApplicationStatusInterviewRejected,
	models.ApplicationStatusWithdrawn,
}

// ParseStatus converts a raw string to a status, rejecting unknown values.
func ParseStatus(s string) (models.ApplicationStatus, error) {
	for _, st := range allStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown application status %q", s)
}

// AllStatuses returns every status in pipeline order.
func AllStatuses() []models.ApplicationStatus {
	out := make([]models.ApplicationStatus, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// IsTransitionAllowed reports whether from -> to is an edge of the graph.
func IsTransitionAllowed(from, to models.ApplicationStatus) bool {
	_, ok := transitionRole(from, to)
	return ok
}

// transitionRole returns the role entitled to move from -> to.
func transitionRole(from, to models.ApplicationStatus) (models.Role, bool) {
	for _, rule := range validTransitions[from] {
		if rule.to == to {
			return rule.by, true
		}
	}
	return "", false
}

// AllowedTransitions lists the targets the given role may move an application to.
func AllowedTransitions(from models.ApplicationStatus, role models.Role) []models.ApplicationStatus {
	var out []models.ApplicationStatus
	for _, rule := range validTransitions[from] {
		if rule.by == role {
			out = append(out, rule.to)
		}
	}
	return out
}

func IsTerminal(s models.ApplicationStatus) bool {
	return len(validTransitions[s]) == 0
}

func isCascadeRejectable(s models.ApplicationStatus) bool {
	for _, st := range cascadeRejectable {
		if st == s {
			return true
		}
	}
	return false
}

// Rejection reason codes.
const (
	ReasonProfileMismatch        = "profile_mismatch"
	ReasonInsufficientExperience = "insufficient_experience"
	ReasonScheduleIncompatible   = "schedule_incompatible"
	ReasonPositionFilled         = "position_filled"
	ReasonNoResponse             = "no_response"
	ReasonOther                  = "other"

	ReasonScheduleConflict   = "schedule_conflict"
	ReasonAcceptedOtherOffer = "accepted_other_offer"
	ReasonNoLongerInterested = "no_longer_interested"

	// ReasonPlacedElsewhere is written by the cascade, never by a caller.
	ReasonPlacedElsewhere = "placed_elsewhere"
)

// CompanyRejectionReasons is the closed set a company may reject with.
var CompanyRejectionReasons = []string{
	ReasonProfileMismatch,
	ReasonInsufficientExperience,
	ReasonScheduleIncompatible,
	ReasonPositionFilled,
	ReasonNoResponse,
	ReasonOther,
}

// InterviewRejectionReasons is the closed set a student may decline an interview with.
var InterviewRejectionReasons = []string{
	ReasonScheduleConflict,
	ReasonAcceptedOtherOffer,
	ReasonNoLongerInterested,
	ReasonOther,
}

func containsReason(set []string, reason string) bool {
	for _, r := range set {
		if r == reason {
			return true
		}
	}
	return false
}
