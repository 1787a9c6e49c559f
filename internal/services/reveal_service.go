// internal/services/reveal_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/internlink/placement-service/internal/config"
	"github.com/internlink/placement-service/internal/database"
	"github.com/internlink/placement-service/internal/metrics"
	"github.com/internlink/placement-service/internal/models"
	"github.com/internlink/placement-service/internal/utils"
)

// RevealService gates a company's access to a candidate's full profile.
// Access is free when the candidate applied to one of the company's offers or
// the pair was revealed before; otherwise the first access is paid once.
type RevealService struct {
	db       *gorm.DB
	wallet   TokenWallet
	cv       CVLocator
	notifier NotificationDispatcher
	cost     int64
}

type ViewCVRequest struct {
	FromApplication bool `json:"from_application"`
}

type ContactRequest struct {
	Subject         string `json:"subject" validate:"required,max=255"`
	Message         string `json:"message" validate:"required,max=5000"`
	FromApplication bool   `json:"from_application"`
}

type CandidateProfile struct {
	StudentID           uuid.UUID  `json:"student_id"`
	FullName            string     `json:"full_name"`
	Email               string     `json:"email"`
	Phone               string     `json:"phone,omitempty"`
	Cycle               string     `json:"cycle,omitempty"`
	CVURL               string     `json:"cv_url,omitempty"`
	Charged             bool       `json:"charged"`
	Cost                int64      `json:"cost"`
	RevealedAt          time.Time  `json:"revealed_at"`
	SourceApplicationID *uuid.UUID `json:"source_application_id,omitempty"`
}

type ContactResult struct {
	ContactID      uuid.UUID `json:"contact_id"`
	RecipientName  string    `json:"recipient_name"`
	RecipientEmail string    `json:"recipient_email"`
	Charged        bool      `json:"charged"`
	Cost           int64     `json:"cost"`
}

type RevealStatus struct {
	StudentID  uuid.UUID  `json:"student_id"`
	Revealed   bool       `json:"revealed"`
	RevealedAt *time.Time `json:"revealed_at,omitempty"`
	Applied    bool       `json:"applied"`
	Cost       int64      `json:"cost"`
	Balance    int64      `json:"balance"`
}

type accessGrant struct {
	entry       models.RevealLedgerEntry
	application *models.Application
	charged     bool
}

func (g *accessGrant) cost() int64 {
	if g.charged {
		return g.entry.Cost
	}
	return 0
}

func (g *accessGrant) outcome() string {
	if g.charged {
		return "charged"
	}
	return "free"
}

func NewRevealService(db *gorm.DB, cfg *config.Config, wallet TokenWallet, cv CVLocator, notifier NotificationDispatcher) *RevealService {
	return &RevealService{
		db:       db,
		wallet:   wallet,
		cv:       cv,
		notifier: notifier,
		cost:     cfg.Lifecycle.RevealCost,
	}
}

func (s *RevealService) ViewCV(ctx context.Context, actor Actor, studentID uuid.UUID, req *ViewCVRequest) (*CandidateProfile, error) {
	if !actor.IsCompany() {
		return nil, newError(CodeInvalidActor, "only company members can view candidate profiles", nil)
	}
	if req == nil {
		req = &ViewCVRequest{}
	}

	student, err := s.loadStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}

	var grant *accessGrant
	err = database.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		grant, err = s.grantAccess(tx, actor, student.ID, models.RevealTriggerViewCV, req.FromApplication)
		return err
	})
	if err != nil {
		s.recordDenied(models.RevealTriggerViewCV, err)
		return nil, err
	}

	metrics.RecordReveal(string(models.RevealTriggerViewCV), grant.outcome())

	cvURL, err := s.cv.CVURL(student.CVKey)
	if err != nil {
		logrus.WithError(err).WithField("student_id", student.ID).Warn("Failed to presign CV URL")
	}

	return &CandidateProfile{
		StudentID:           student.ID,
		FullName:            student.FullName,
		Email:               student.Email,
		Phone:               student.Phone,
		Cycle:               student.Cycle,
		CVURL:               cvURL,
		Charged:             grant.charged,
		Cost:                grant.cost(),
		RevealedAt:          grant.entry.RevealedAt,
		SourceApplicationID: grant.entry.SourceApplicationID,
	}, nil
}

// Contact authorizes and logs a contact attempt. Delivery is left to the caller.
func (s *RevealService) Contact(ctx context.Context, actor Actor, studentID uuid.UUID, req *ContactRequest) (*ContactResult, error) {
	if !actor.IsCompany() {
		return nil, newError(CodeInvalidActor, "only company members can contact candidates", nil)
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, validationError("invalid contact request", fieldErrors(err)...)
	}

	student, err := s.loadStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}

	fx := &effects{}
	var grant *accessGrant
	event := &models.ContactEvent{
		CompanyID: *actor.CompanyID,
		StudentID: student.ID,
		ActorID:   actor.UserID,
		Subject:   req.Subject,
		Message:   req.Message,
	}
	err = database.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		grant, err = s.grantAccess(tx, actor, student.ID, models.RevealTriggerContact, req.FromApplication)
		if err != nil {
			return err
		}
		event.Charged = grant.charged
		if err := tx.Create(event).Error; err != nil {
			return internalError("failed to log contact", err)
		}
		fx.notify(EventCandidateContacted, student.ID, map[string]interface{}{
			"company_id": *actor.CompanyID,
			"contact_id": event.ID,
			"subject":    req.Subject,
		})
		return nil
	})
	if err != nil {
		s.recordDenied(models.RevealTriggerContact, err)
		return nil, err
	}

	fx.flush(s.notifier)
	metrics.RecordReveal(string(models.RevealTriggerContact), grant.outcome())

	return &ContactResult{
		ContactID:      event.ID,
		RecipientName:  student.FullName,
		RecipientEmail: student.Email,
		Charged:        grant.charged,
		Cost:           grant.cost(),
	}, nil
}

// RevealStatus tells a company what the next access to a candidate would cost.
func (s *RevealService) RevealStatus(ctx context.Context, actor Actor, studentID uuid.UUID) (*RevealStatus, error) {
	if !actor.IsCompany() {
		return nil, newError(CodeInvalidActor, "only company members can reveal candidates", nil)
	}
	if _, err := s.loadStudent(ctx, studentID); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	status := &RevealStatus{StudentID: studentID}

	var entry models.RevealLedgerEntry
	err := db.Where("company_id = ? AND student_id = ?", *actor.CompanyID, studentID).Take(&entry).Error
	switch {
	case err == nil:
		status.Revealed = true
		status.RevealedAt = &entry.RevealedAt
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, internalError("failed to read reveal ledger", err)
	}

	link, err := applicationLink(db, *actor.CompanyID, studentID)
	if err != nil {
		return nil, err
	}
	status.Applied = link != nil

	if !status.Revealed && !status.Applied {
		status.Cost = s.cost
	}

	balance, err := s.wallet.Balance(ctx, *actor.CompanyID)
	if err != nil {
		return nil, internalError("failed to read wallet", err)
	}
	status.Balance = balance

	return status, nil
}

// grantAccess decides free or paid access inside the caller's transaction and
// writes the ledger entry. Only the request that inserts the entry pays.
func (s *RevealService) grantAccess(tx *gorm.DB, actor Actor, studentID uuid.UUID, trigger models.RevealTrigger, fromApplication bool) (*accessGrant, error) {
	companyID := *actor.CompanyID

	link, err := applicationLink(lockRows(tx), companyID, studentID)
	if err != nil {
		return nil, err
	}
	if link == nil && fromApplication {
		return nil, forbiddenError("the student has not applied to any of your offers")
	}

	grant := &accessGrant{application: link}
	err = tx.Where("company_id = ? AND student_id = ?", companyID, studentID).Take(&grant.entry).Error
	switch {
	case err == nil:
	case errors.Is(err, gorm.ErrRecordNotFound):
		entry := models.RevealLedgerEntry{
			CompanyID:  companyID,
			StudentID:  studentID,
			RevealedAt: time.Now(),
			RevealedBy: actor.UserID,
			Trigger:    trigger,
		}
		if link != nil {
			entry.SourceApplicationID = &link.ID
		} else {
			entry.Cost = s.cost
		}

		result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&entry)
		if result.Error != nil {
			return nil, internalError("failed to write reveal ledger", result.Error)
		}
		if result.RowsAffected == 0 {
			// a concurrent request revealed the pair first
			if err := tx.Where("company_id = ? AND student_id = ?", companyID, studentID).Take(&grant.entry).Error; err != nil {
				return nil, internalError("failed to read reveal ledger", err)
			}
			break
		}

		grant.entry = entry
		if link == nil {
			reference := fmt.Sprintf("reveal:%s", studentID)
			if err := s.wallet.Debit(tx, companyID, entry.Cost, reference, actor.UserID); err != nil {
				return nil, err
			}
			grant.charged = true
		}
	default:
		return nil, internalError("failed to read reveal ledger", err)
	}

	if link != nil && trigger == models.RevealTriggerViewCV {
		var extra []string
		if !link.CVViewed {
			now := time.Now()
			link.CVViewed = true
			link.CVViewedAt = &now
			extra = append(extra, "cv_viewed", "cv_viewed_at")
		}
		if err := markReviewed(tx, link, extra...); err != nil {
			return nil, err
		}
	}

	return grant, nil
}

// applicationLink finds the student's most recent live application to any of
// the company's offers.
func applicationLink(db *gorm.DB, companyID, studentID uuid.UUID) (*models.Application, error) {
	var apps []models.Application
	err := db.Where("company_id = ? AND student_id = ? AND status <> ?", companyID, studentID, models.ApplicationStatusWithdrawn).
		Order("applied_at DESC").
		Limit(1).
		Find(&apps).Error
	if err != nil {
		return nil, internalError("failed to look up applications", err)
	}
	if len(apps) == 0 {
		return nil, nil
	}
	return &apps[0], nil
}

func (s *RevealService) loadStudent(ctx context.Context, studentID uuid.UUID) (*models.Student, error) {
	var student models.Student
	if err := s.db.WithContext(ctx).First(&student, "id = ?", studentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("student")
		}
		return nil, internalError("failed to load student", err)
	}
	return &student, nil
}

func (s *RevealService) recordDenied(trigger models.RevealTrigger, err error) {
	if errors.Is(err, ErrInsufficientBalance) || errors.Is(err, ErrForbidden) {
		metrics.RecordReveal(string(trigger), "denied")
	}
}
