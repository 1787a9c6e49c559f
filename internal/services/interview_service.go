// internal/services/interview_service.go
package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/internlink/placement-service/internal/database"
	"github.com/internlink/placement-service/internal/models"
	"github.com/internlink/placement-service/internal/utils"
)

type InterviewService struct {
	db       *gorm.DB
	meetings MeetingLinkProvisioner
	notifier NotificationDispatcher
}

type RespondInterviewRequest struct {
	Action models.InterviewAction `json:"action" validate:"required,oneof=confirm reject"`
	Reason string                 `json:"reason,omitempty"`
	Notes  string                 `json:"notes,omitempty" validate:"max=2000"`
}

func NewInterviewService(db *gorm.DB, meetings MeetingLinkProvisioner, notifier NotificationDispatcher) *InterviewService {
	return &InterviewService{
		db:       db,
		meetings: meetings,
		notifier: notifier,
	}
}

// RequestInterview moves a pending or reviewed application to
// interview_requested. Remote interviews without a link get one provisioned
// before the transaction starts.
func (s *InterviewService) RequestInterview(ctx context.Context, actor Actor, id uuid.UUID, details *models.InterviewDetails) (*models.Application, error) {
	if !actor.IsCompany() {
		return nil, forbiddenError("only the offering company can request an interview")
	}
	if details == nil {
		return nil, validationError("interview details are required",
			fieldError("interview", "required", "date, time, location and type are required"))
	}
	if err := utils.ValidateStruct(details); err != nil {
		return nil, validationError("invalid interview details", fieldErrors(err)...)
	}
	resolved := *details

	// Check before provisioning so a doomed request never creates a meeting.
	var current models.Application
	if err := s.db.WithContext(ctx).Where("id = ?", id).Take(&current).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("application")
		}
		return nil, internalError("failed to load application", err)
	}
	if err := authorizeTransition(actor, &current, models.ApplicationStatusInterviewRequested); err != nil {
		return nil, err
	}

	if resolved.Type == models.InterviewTypeRemote && resolved.Link == "" {
		link, err := s.meetings.Provision(ctx, MeetingRequest{
			ApplicationID: current.ID,
			CompanyID:     current.CompanyID,
			Date:          resolved.Date,
			Time:          resolved.Time,
		})
		if err != nil {
			return nil, internalError("failed to provision meeting link", err)
		}
		resolved.Link = link
	}

	fx := &effects{}
	var app *models.Application
	err := database.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		locked, err := loadForUpdate(tx, id)
		if err != nil {
			return err
		}
		if err := authorizeTransition(actor, locked, models.ApplicationStatusInterviewRequested); err != nil {
			return err
		}

		from := locked.Status
		now := time.Now()
		cols := []string{"status", "interview"}

		locked.Status = models.ApplicationStatusInterviewRequested
		locked.Interview = &models.Interview{
			RequestedAt: now,
			RequestedBy: actor.UserID,
			Details:     &resolved,
		}
		if locked.ReviewedAt == nil {
			locked.ReviewedAt = &now
			cols = append(cols, "reviewed_at")
		}

		if err := saveVersioned(tx, locked, cols...); err != nil {
			return err
		}
		if err := appendHistory(tx, locked.ID, actor, historyEntry{
			from:      &from,
			to:        locked.Status,
			notes:     resolved.Notes,
			interview: locked.Interview,
		}); err != nil {
			return err
		}

		payload := applicationPayload(locked)
		payload["interview"] = resolved
		fx.transition(from, locked.Status, false)
		fx.notify(EventInterviewRequested, locked.StudentID, payload)
		app = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	fx.flush(s.notifier)

	logrus.WithFields(logrus.Fields{
		"application_id": app.ID,
		"type":           resolved.Type,
		"date":           resolved.Date,
	}).Info("Interview requested")

	return app, nil
}

// RespondToInterview records the student's answer. An interview can be
// answered once; a second answer fails with InvalidTransition.
func (s *InterviewService) RespondToInterview(ctx context.Context, actor Actor, id uuid.UUID, req *RespondInterviewRequest) (*models.Application, error) {
	if !actor.IsStudent() {
		return nil, forbiddenError("only the applicant can answer an interview request")
	}
	if req == nil {
		return nil, validationError("interview response is required")
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, validationError("invalid interview response", fieldErrors(err)...)
	}

	to := models.ApplicationStatusInterviewConfirmed
	event := EventInterviewConfirmed
	if req.Action == models.InterviewActionReject {
		to = models.ApplicationStatusInterviewRejected
		event = EventInterviewRejected
	}

	fx := &effects{}
	var app *models.Application
	err := database.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		locked, err := loadForUpdate(tx, id)
		if err != nil {
			return err
		}
		if err := authorizeTransition(actor, locked, to); err != nil {
			return err
		}

		switch req.Action {
		case models.InterviewActionConfirm:
			if locked.Interview == nil || locked.Interview.Details == nil {
				return newError(CodeInvalidTransition, "the interview has no details to confirm yet",
					map[string]interface{}{
						"current":   locked.Status,
						"requested": to,
						"missing":   "interview.details",
					})
			}
		case models.InterviewActionReject:
			if !containsReason(InterviewRejectionReasons, req.Reason) {
				return missingReasonError(InterviewRejectionReasons)
			}
		}

		if locked.Interview == nil {
			locked.Interview = &models.Interview{}
		}
		locked.Interview.StudentResponse = &models.InterviewResponse{
			Action:      req.Action,
			Reason:      req.Reason,
			Notes:       req.Notes,
			RespondedAt: time.Now(),
		}

		from := locked.Status
		locked.Status = to
		if err := saveVersioned(tx, locked, "status", "interview"); err != nil {
			return err
		}
		if err := appendHistory(tx, locked.ID, actor, historyEntry{
			from:      &from,
			to:        to,
			reason:    req.Reason,
			notes:     req.Notes,
			interview: locked.Interview,
		}); err != nil {
			return err
		}

		payload := applicationPayload(locked)
		if req.Reason != "" {
			payload["reason"] = req.Reason
		}
		fx.transition(from, to, false)
		fx.notify(event, locked.CompanyID, payload)
		app = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	fx.flush(s.notifier)
	return app, nil
}
