// internal/services/application_store.go
package services

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/internlink/placement-service/internal/metrics"
	"github.com/internlink/placement-service/internal/models"
	"github.com/internlink/placement-service/internal/utils"
)

// lockRows adds SELECT ... FOR UPDATE where the dialect supports it. Other
// dialects rely on the version check alone.
func lockRows(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

func loadForUpdate(tx *gorm.DB, id uuid.UUID) (*models.Application, error) {
	var app models.Application
	if err := lockRows(tx).Where("id = ?", id).Take(&app).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("application")
		}
		return nil, internalError("failed to load application", err)
	}
	return &app, nil
}

// lockStudentApplications locks every application of the student in id order,
// so two concurrent accepts for the same student serialize instead of deadlocking.
func lockStudentApplications(tx *gorm.DB, studentID uuid.UUID) ([]models.Application, error) {
	var apps []models.Application
	if err := lockRows(tx).Where("student_id = ?", studentID).Order("id").Find(&apps).Error; err != nil {
		return nil, internalError("failed to lock student applications", err)
	}
	return apps, nil
}

// saveVersioned writes the given columns only if the row still carries the
// version that was read. A lost race surfaces as ConcurrentModification.
func saveVersioned(tx *gorm.DB, app *models.Application, columns ...string) error {
	read := app.Version
	app.Version = read + 1
	app.UpdatedAt = time.Now()

	cols := append(append([]string{}, columns...), "version", "updated_at")
	result := tx.Model(app).Where("version = ?", read).Select(cols).Updates(app)
	if result.Error != nil {
		app.Version = read
		return internalError("failed to update application", result.Error)
	}
	if result.RowsAffected == 0 {
		app.Version = read
		return newError(CodeConcurrentModification, "application was modified concurrently, retry",
			map[string]interface{}{"application_id": app.ID, "version": read})
	}
	return nil
}

type historyEntry struct {
	from      *models.ApplicationStatus
	to        models.ApplicationStatus
	reason    string
	notes     string
	interview *models.Interview
	cascade   bool
}

func appendHistory(tx *gorm.DB, applicationID uuid.UUID, actor Actor, e historyEntry) error {
	row := &models.ApplicationStatusHistory{
		ApplicationID: applicationID,
		FromStatus:    e.from,
		ToStatus:      e.to,
		ActorRole:     actor.Role,
		Reason:        e.reason,
		Notes:         e.notes,
		Interview:     e.interview,
		Cascade:       e.cascade,
	}
	if actor.UserID != uuid.Nil {
		id := actor.UserID
		row.ActorID = &id
	}
	if err := tx.Create(row).Error; err != nil {
		return internalError("failed to append status history", err)
	}
	return nil
}

// markReviewed stamps reviewed_at the first time the company looks at an
// application. The status is left alone; only an explicit company transition
// moves it. Extra columns already set on app are written in the same update.
func markReviewed(tx *gorm.DB, app *models.Application, extra ...string) error {
	cols := append([]string{}, extra...)
	if app.ReviewedAt == nil {
		now := time.Now()
		app.ReviewedAt = &now
		cols = append(cols, "reviewed_at")
	}
	if len(cols) == 0 {
		return nil
	}
	return saveVersioned(tx, app, cols...)
}

func applicationPayload(app *models.Application) map[string]interface{} {
	return map[string]interface{}{
		"application_id": app.ID,
		"offer_id":       app.OfferID,
		"company_id":     app.CompanyID,
		"student_id":     app.StudentID,
		"status":         app.Status,
	}
}

type transitionRecord struct {
	from, to models.ApplicationStatus
	cascade  bool
}

// effects collects what must happen only after a transaction commits.
type effects struct {
	notices     []notice
	transitions []transitionRecord
}

func (fx *effects) notify(event string, recipient uuid.UUID, payload map[string]interface{}) {
	fx.notices = append(fx.notices, notice{event: event, recipient: recipient, payload: payload})
}

func (fx *effects) transition(from, to models.ApplicationStatus, cascade bool) {
	fx.transitions = append(fx.transitions, transitionRecord{from: from, to: to, cascade: cascade})
}

func (fx *effects) flush(notifier NotificationDispatcher) {
	for _, t := range fx.transitions {
		metrics.RecordTransition(string(t.from), string(t.to), t.cascade)
	}
	dispatch(notifier, fx.notices)
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func fieldErrors(err error) []utils.ValidationError {
	return utils.GetValidationErrors(err)
}
