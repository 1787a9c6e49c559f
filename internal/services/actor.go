// internal/services/actor.go
package services

import (
	"github.com/google/uuid"

	"github.com/internlink/placement-service/internal/models"
)

// Actor is the authenticated caller as supplied by the identity provider.
// Company members carry the company they act for; study-center staff carry
// their center.
type Actor struct {
	UserID        uuid.UUID
	Role          models.Role
	CompanyID     *uuid.UUID
	StudyCenterID *uuid.UUID
}

func StudentActor(id uuid.UUID) Actor {
	return Actor{UserID: id, Role: models.RoleStudent}
}

func CompanyActor(userID, companyID uuid.UUID) Actor {
	return Actor{UserID: userID, Role: models.RoleCompany, CompanyID: &companyID}
}

func StudyCenterActor(userID, centerID uuid.UUID) Actor {
	return Actor{UserID: userID, Role: models.RoleStudyCenter, StudyCenterID: &centerID}
}

func (a Actor) IsStudent() bool { return a.Role == models.RoleStudent }

func (a Actor) IsCompany() bool { return a.Role == models.RoleCompany && a.CompanyID != nil }

// ActsFor reports whether the actor is a member of the given company.
func (a Actor) ActsFor(companyID uuid.UUID) bool {
	return a.IsCompany() && *a.CompanyID == companyID
}

// Owns reports whether the actor is the student of the application.
func (a Actor) Owns(app *models.Application) bool {
	return a.IsStudent() && a.UserID == app.StudentID
}

// canRead covers the read side: the student, the company, the student's
// study center and administrators.
func (a Actor) canRead(app *models.Application) bool {
	switch a.Role {
	case models.RoleAdmin:
		return true
	case models.RoleStudent:
		return a.Owns(app)
	case models.RoleCompany:
		return a.ActsFor(app.CompanyID)
	case models.RoleStudyCenter:
		return a.StudyCenterID != nil && app.Student != nil &&
			app.Student.StudyCenterID != nil && *app.Student.StudyCenterID == *a.StudyCenterID
	}
	return false
}
