// internal/services/application_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/internlink/placement-service/internal/database"
	"github.com/internlink/placement-service/internal/metrics"
	"github.com/internlink/placement-service/internal/models"
	"github.com/internlink/placement-service/internal/utils"
)

const placedElsewhereNote = "Closed automatically: the candidate has accepted another internship offer."

type ApplicationService struct {
	db         *gorm.DB
	interviews *InterviewService
	notifier   NotificationDispatcher
	affinity   AffinityScorer
}

type ApplyRequest struct {
	OfferID uuid.UUID `json:"offer_id" validate:"required"`
	Message string    `json:"message" validate:"max=2000"`
}

// TransitionRequest carries the payload of every status change. Only the
// fields relevant to the target status are read.
type TransitionRequest struct {
	Status          models.ApplicationStatus `json:"status" validate:"required"`
	RejectionReason string                   `json:"rejection_reason,omitempty"`
	CompanyNotes    string                   `json:"company_notes,omitempty" validate:"max=2000"`
	Notes           string                   `json:"notes,omitempty" validate:"max=2000"`
	Interview       *models.InterviewDetails `json:"interview,omitempty"`
}

type ApplicationFilter struct {
	utils.PaginationParams
	Status          *models.ApplicationStatus
	OfferID         *uuid.UUID
	IncludeAffinity bool
}

// CandidateView hides contact data from companies until the pair is revealed.
type CandidateView struct {
	models.StudentSummary
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Revealed bool   `json:"revealed"`
}

// ApplicationView is the read projection returned to clients.
type ApplicationView struct {
	models.Application
	Student            *CandidateView             `json:"student,omitempty"`
	AllowedTransitions []models.ApplicationStatus `json:"allowed_transitions"`
	Affinity           *AffinityResult            `json:"affinity,omitempty"`
}

func NewApplicationService(db *gorm.DB, interviews *InterviewService, notifier NotificationDispatcher, affinity AffinityScorer) *ApplicationService {
	return &ApplicationService{
		db:         db,
		interviews: interviews,
		notifier:   notifier,
		affinity:   affinity,
	}
}

func (s *ApplicationService) Apply(ctx context.Context, actor Actor, req *ApplyRequest) (*models.Application, error) {
	if !actor.IsStudent() {
		return nil, newError(CodeInvalidActor, "only students can apply to offers", map[string]interface{}{"role": actor.Role})
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, validationError("invalid application", fieldErrors(err)...)
	}

	var offer models.Offer
	if err := s.db.WithContext(ctx).First(&offer, "id = ?", req.OfferID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newError(CodeOfferNotFound, "offer not found", map[string]interface{}{"offer_id": req.OfferID})
		}
		return nil, internalError("failed to load offer", err)
	}
	if !offer.IsOpen() {
		return nil, newError(CodeOfferClosed, "offer is closed", map[string]interface{}{"offer_id": offer.ID})
	}

	var student models.Student
	if err := s.db.WithContext(ctx).First(&student, "id = ?", actor.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newError(CodeInvalidActor, "student profile not found", map[string]interface{}{"student_id": actor.UserID})
		}
		return nil, internalError("failed to load student", err)
	}

	app := &models.Application{
		StudentID: student.ID,
		OfferID:   offer.ID,
		CompanyID: offer.CompanyID,
		Status:    models.ApplicationStatusPending,
		AppliedAt: time.Now(),
		Message:   req.Message,
		Version:   1,
	}

	fx := &effects{}
	err := database.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		var existing models.Application
		err := tx.Select("id").
			Where("student_id = ? AND offer_id = ? AND status <> ?", student.ID, offer.ID, models.ApplicationStatusWithdrawn).
			Take(&existing).Error
		if err == nil {
			return duplicateApplicationError(offer.ID, existing.ID)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return internalError("failed to check existing applications", err)
		}

		if err := tx.Create(app).Error; err != nil {
			// lost the race against a concurrent apply for the same pair
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return duplicateApplicationError(offer.ID, uuid.Nil)
			}
			return internalError("failed to create application", err)
		}

		if err := appendHistory(tx, app.ID, actor, historyEntry{to: app.Status}); err != nil {
			return err
		}

		fx.notify(EventApplicationCreated, app.CompanyID, applicationPayload(app))
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordApplicationCreated()
	fx.flush(s.notifier)

	logrus.WithFields(logrus.Fields{
		"application_id": app.ID,
		"offer_id":       app.OfferID,
		"student_id":     app.StudentID,
	}).Info("Application created")

	return app, nil
}

func duplicateApplicationError(offerID, existingID uuid.UUID) *ServiceError {
	details := map[string]interface{}{"offer_id": offerID}
	if existingID != uuid.Nil {
		details["application_id"] = existingID
	}
	return newError(CodeDuplicateActiveApplication, "an active application already exists for this offer", details)
}

// Get returns the application projection. The first company-side read marks
// the application as reviewed.
func (s *ApplicationService) Get(ctx context.Context, actor Actor, id uuid.UUID) (*ApplicationView, error) {
	app, err := s.loadProjection(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.canRead(app) {
		return nil, forbiddenError("you cannot access this application")
	}

	if actor.IsCompany() && app.ReviewedAt == nil {
		err := database.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
			locked, err := loadForUpdate(tx, id)
			if err != nil {
				return err
			}
			if err := markReviewed(tx, locked); err != nil {
				return err
			}
			app.Status = locked.Status
			app.ReviewedAt = locked.ReviewedAt
			app.Version = locked.Version
			app.UpdatedAt = locked.UpdatedAt
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	views := s.buildViews(ctx, actor, []models.Application{*app}, false)
	return &views[0], nil
}

// Present builds the client projection for an application returned by a command.
func (s *ApplicationService) Present(ctx context.Context, actor Actor, app *models.Application) (*ApplicationView, error) {
	loaded, err := s.loadProjection(ctx, app.ID)
	if err != nil {
		return nil, err
	}
	views := s.buildViews(ctx, actor, []models.Application{*loaded}, false)
	return &views[0], nil
}

func (s *ApplicationService) History(ctx context.Context, actor Actor, id uuid.UUID) ([]models.ApplicationStatusHistory, error) {
	app, err := s.loadProjection(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.canRead(app) {
		return nil, forbiddenError("you cannot access this application")
	}

	var history []models.ApplicationStatusHistory
	if err := s.db.WithContext(ctx).
		Where("application_id = ?", id).
		Order("created_at ASC").
		Find(&history).Error; err != nil {
		return nil, internalError("failed to load status history", err)
	}
	return history, nil
}

func (s *ApplicationService) ListByStudent(ctx context.Context, actor Actor, studentID uuid.UUID, filter ApplicationFilter) ([]ApplicationView, int64, error) {
	switch actor.Role {
	case models.RoleStudent:
		if actor.UserID != studentID {
			return nil, 0, forbiddenError("students can only list their own applications")
		}
	case models.RoleAdmin:
	case models.RoleStudyCenter:
		var student models.Student
		if err := s.db.WithContext(ctx).First(&student, "id = ?", studentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, 0, notFoundError("student")
			}
			return nil, 0, internalError("failed to load student", err)
		}
		if actor.StudyCenterID == nil || student.StudyCenterID == nil || *student.StudyCenterID != *actor.StudyCenterID {
			return nil, 0, forbiddenError("student belongs to another study center")
		}
	default:
		return nil, 0, forbiddenError("you cannot list this student's applications")
	}

	query := s.db.WithContext(ctx).Model(&models.Application{}).Where("student_id = ?", studentID)
	return s.list(ctx, actor, query, filter)
}

func (s *ApplicationService) ListByCompany(ctx context.Context, actor Actor, companyID uuid.UUID, filter ApplicationFilter) ([]ApplicationView, int64, error) {
	if actor.Role != models.RoleAdmin && !actor.ActsFor(companyID) {
		return nil, 0, forbiddenError("you cannot list this company's applications")
	}

	query := s.db.WithContext(ctx).Model(&models.Application{}).Where("company_id = ?", companyID)
	return s.list(ctx, actor, query, filter)
}

func (s *ApplicationService) list(ctx context.Context, actor Actor, query *gorm.DB, filter ApplicationFilter) ([]ApplicationView, int64, error) {
	params := utils.NormalizePagination(filter.PaginationParams)

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.OfferID != nil {
		query = query.Where("offer_id = ?", *filter.OfferID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, internalError("failed to count applications", err)
	}

	allowedSortFields := []string{"applied_at", "created_at", "updated_at", "status"}
	query = utils.ApplySort(query, params, allowedSortFields, "applied_at")
	query = utils.ApplyPagination(query, params)

	var apps []models.Application
	if err := query.Preload("Offer").Preload("Company").Preload("Student").Find(&apps).Error; err != nil {
		return nil, 0, internalError("failed to fetch applications", err)
	}

	return s.buildViews(ctx, actor, apps, filter.IncludeAffinity), total, nil
}

func (s *ApplicationService) loadProjection(ctx context.Context, id uuid.UUID) (*models.Application, error) {
	var app models.Application
	err := s.db.WithContext(ctx).
		Preload("Offer").Preload("Company").Preload("Student").
		Where("id = ?", id).
		Take(&app).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("application")
		}
		return nil, internalError("failed to load application", err)
	}
	return &app, nil
}

func (s *ApplicationService) buildViews(ctx context.Context, actor Actor, apps []models.Application, includeAffinity bool) []ApplicationView {
	revealed := map[uuid.UUID]bool{}
	if actor.IsCompany() && len(apps) > 0 {
		studentIDs := make([]uuid.UUID, 0, len(apps))
		for _, app := range apps {
			studentIDs = append(studentIDs, app.StudentID)
		}
		var entries []models.RevealLedgerEntry
		if err := s.db.WithContext(ctx).
			Where("company_id = ? AND student_id IN ?", *actor.CompanyID, studentIDs).
			Find(&entries).Error; err != nil {
			logrus.WithError(err).Warn("Failed to load reveal ledger for projection")
		}
		for _, entry := range entries {
			revealed[entry.StudentID] = true
		}
	}

	views := make([]ApplicationView, 0, len(apps))
	for i := range apps {
		app := apps[i]
		view := ApplicationView{
			Application:        app,
			AllowedTransitions: allowedTransitionsFor(actor, &app),
		}
		if app.Student != nil {
			view.Student = candidateView(actor, app.Student, revealed[app.StudentID])
		}
		if includeAffinity && s.affinity != nil {
			target := AffinityTarget{OfferID: &app.OfferID}
			if app.Offer != nil {
				target.Skills = app.Offer.RequiredSkills
			}
			result := s.affinity.Score(ctx, app.StudentID, target)
			view.Affinity = &result
		}
		views = append(views, view)
	}
	return views
}

func candidateView(actor Actor, student *models.Student, revealed bool) *CandidateView {
	view := &CandidateView{StudentSummary: student.Summary()}
	if !actor.IsCompany() || revealed {
		view.Email = student.Email
		view.Phone = student.Phone
		view.Revealed = true
	}
	return view
}

// allowedTransitionsFor lists the targets the actor could request right now.
func allowedTransitionsFor(actor Actor, app *models.Application) []models.ApplicationStatus {
	out := []models.ApplicationStatus{}
	if !actor.ActsFor(app.CompanyID) && !actor.Owns(app) {
		return out
	}
	for _, to := range AllowedTransitions(app.Status, actor.Role) {
		if to == models.ApplicationStatusInterviewConfirmed && (app.Interview == nil || app.Interview.Details == nil) {
			continue
		}
		out = append(out, to)
	}
	return out
}

func (s *ApplicationService) Withdraw(ctx context.Context, actor Actor, id uuid.UUID) (*models.Application, error) {
	if !actor.IsStudent() {
		return nil, forbiddenError("only the applicant can withdraw an application")
	}

	fx := &effects{}
	var app *models.Application
	err := database.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		locked, err := loadForUpdate(tx, id)
		if err != nil {
			return err
		}
		if !actor.Owns(locked) {
			return forbiddenError("application belongs to another student")
		}
		if locked.Status != models.ApplicationStatusPending {
			return invalidTransitionError(locked.Status, models.ApplicationStatusWithdrawn)
		}

		from := locked.Status
		locked.Status = models.ApplicationStatusWithdrawn
		if err := saveVersioned(tx, locked, "status"); err != nil {
			return err
		}
		if err := appendHistory(tx, locked.ID, actor, historyEntry{from: &from, to: locked.Status}); err != nil {
			return err
		}

		fx.transition(from, locked.Status, false)
		fx.notify(EventApplicationWithdrawn, locked.CompanyID, applicationPayload(locked))
		app = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	fx.flush(s.notifier)
	return app, nil
}

// Transition is the single entry point for status changes. Interview and
// withdrawal targets are routed to their dedicated operations.
func (s *ApplicationService) Transition(ctx context.Context, actor Actor, id uuid.UUID, req *TransitionRequest) (*models.Application, error) {
	if req == nil {
		return nil, validationError("transition payload is required")
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, validationError("invalid transition request", fieldErrors(err)...)
	}
	to, err := ParseStatus(string(req.Status))
	if err != nil {
		return nil, validationError(err.Error(), fieldError("status", "oneof", fmt.Sprintf("status must be one of %v", AllStatuses())))
	}

	switch to {
	case models.ApplicationStatusInterviewRequested:
		return s.interviews.RequestInterview(ctx, actor, id, req.Interview)
	case models.ApplicationStatusInterviewConfirmed:
		return s.interviews.RespondToInterview(ctx, actor, id, &RespondInterviewRequest{
			Action: models.InterviewActionConfirm,
			Notes:  req.Notes,
		})
	case models.ApplicationStatusInterviewRejected:
		return s.interviews.RespondToInterview(ctx, actor, id, &RespondInterviewRequest{
			Action: models.InterviewActionReject,
			Reason: req.RejectionReason,
			Notes:  req.Notes,
		})
	case models.ApplicationStatusWithdrawn:
		return s.Withdraw(ctx, actor, id)
	}

	return s.applyTransition(ctx, actor, id, to, req)
}

// authorizeTransition checks ownership, that from -> to is an edge and that the
// actor's role is the one entitled to take it.
func authorizeTransition(actor Actor, app *models.Application, to models.ApplicationStatus) error {
	switch actor.Role {
	case models.RoleCompany:
		if !actor.ActsFor(app.CompanyID) {
			return forbiddenError("application belongs to another company")
		}
	case models.RoleStudent:
		if !actor.Owns(app) {
			return forbiddenError("application belongs to another student")
		}
	default:
		return forbiddenError(fmt.Sprintf("role %q cannot change application status", actor.Role))
	}

	role, ok := transitionRole(app.Status, to)
	if !ok {
		return invalidTransitionError(app.Status, to)
	}
	if role != actor.Role {
		return forbiddenError(fmt.Sprintf("only the %s can move an application to %s", role, to))
	}
	return nil
}

func (s *ApplicationService) applyTransition(ctx context.Context, actor Actor, id uuid.UUID, to models.ApplicationStatus, req *TransitionRequest) (*models.Application, error) {
	fx := &effects{}
	var app *models.Application

	err := database.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		var siblings []*models.Application

		if to == models.ApplicationStatusAccepted {
			// The cascade touches every application of the student: lock them
			// all up front, the accepted one included.
			var current models.Application
			if err := tx.Select("id", "student_id").Where("id = ?", id).Take(&current).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return notFoundError("application")
				}
				return internalError("failed to load application", err)
			}
			all, err := lockStudentApplications(tx, current.StudentID)
			if err != nil {
				return err
			}
			for i := range all {
				if all[i].ID == id {
					app = &all[i]
				} else {
					siblings = append(siblings, &all[i])
				}
			}
			if app == nil {
				return notFoundError("application")
			}
		} else {
			locked, err := loadForUpdate(tx, id)
			if err != nil {
				return err
			}
			app = locked
		}

		if err := authorizeTransition(actor, app, to); err != nil {
			return err
		}
		if to == models.ApplicationStatusRejected && !containsReason(CompanyRejectionReasons, req.RejectionReason) {
			return missingReasonError(CompanyRejectionReasons)
		}

		from := app.Status
		entry := historyEntry{from: &from, to: to}
		cols := []string{"status"}

		app.Status = to
		if app.ReviewedAt == nil {
			now := time.Now()
			app.ReviewedAt = &now
			cols = append(cols, "reviewed_at")
		}

		switch to {
		case models.ApplicationStatusRejected:
			reason := req.RejectionReason
			app.RejectionReason = &reason
			app.CompanyNotes = optionalString(req.CompanyNotes)
			entry.reason = reason
			entry.notes = req.CompanyNotes
			cols = append(cols, "rejection_reason", "company_notes")
		case models.ApplicationStatusAccepted:
			app.RejectionReason = nil
			app.CompanyNotes = optionalString(req.CompanyNotes)
			entry.notes = req.CompanyNotes
			cols = append(cols, "rejection_reason", "company_notes")
		}

		// The interview record lives on only in history once the
		// application leaves the interview states.
		if from.HasInterview() && !to.HasInterview() {
			entry.interview = app.Interview
			app.Interview = nil
			cols = append(cols, "interview")
		}

		if err := saveVersioned(tx, app, cols...); err != nil {
			return err
		}
		if err := appendHistory(tx, app.ID, actor, entry); err != nil {
			return err
		}

		fx.transition(from, to, false)
		fx.notify(eventForStatus(to), app.StudentID, applicationPayload(app))

		if to == models.ApplicationStatusAccepted {
			return s.cascadeReject(tx, siblings, actor, fx)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	fx.flush(s.notifier)

	logrus.WithFields(logrus.Fields{
		"application_id": app.ID,
		"status":         app.Status,
		"actor_id":       actor.UserID,
	}).Info("Application status changed")

	return app, nil
}

// cascadeReject closes the student's other open applications after an accept.
// Any failure aborts the surrounding transaction, the accept included.
func (s *ApplicationService) cascadeReject(tx *gorm.DB, siblings []*models.Application, actor Actor, fx *effects) error {
	for _, sibling := range siblings {
		if !isCascadeRejectable(sibling.Status) {
			continue
		}

		from := sibling.Status
		reason := ReasonPlacedElsewhere
		note := placedElsewhereNote
		entry := historyEntry{
			from:    &from,
			to:      models.ApplicationStatusRejected,
			reason:  reason,
			notes:   note,
			cascade: true,
		}
		cols := []string{"status", "rejection_reason", "company_notes"}

		sibling.Status = models.ApplicationStatusRejected
		sibling.RejectionReason = &reason
		sibling.CompanyNotes = &note
		if from.HasInterview() {
			entry.interview = sibling.Interview
			sibling.Interview = nil
			cols = append(cols, "interview")
		}
		if sibling.ReviewedAt == nil {
			now := time.Now()
			sibling.ReviewedAt = &now
			cols = append(cols, "reviewed_at")
		}

		if err := saveVersioned(tx, sibling, cols...); err != nil {
			return err
		}
		if err := appendHistory(tx, sibling.ID, actor, entry); err != nil {
			return err
		}

		payload := applicationPayload(sibling)
		payload["reason"] = reason
		fx.transition(from, sibling.Status, true)
		fx.notify(EventApplicationAutoClosed, sibling.StudentID, payload)
		fx.notify(EventApplicationAutoClosed, sibling.CompanyID, payload)
	}
	return nil
}

func eventForStatus(status models.ApplicationStatus) string {
	switch status {
	case models.ApplicationStatusAccepted:
		return EventApplicationAccepted
	case models.ApplicationStatusRejected:
		return EventApplicationRejected
	default:
		return EventApplicationReviewed
	}
}
