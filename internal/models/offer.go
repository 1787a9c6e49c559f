// internal/models/offer.go
package models

import (
	"github.com/google/uuid"
)

// Offer, Company and Student are maintained by the catalog and roster
// services; this service only reads them to build its projections.

type Company struct {
	BaseModel
	Name         string `json:"name" gorm:"size:255;not null"`
	ContactEmail string `json:"contact_email,omitempty" gorm:"size:255"`
}

type Offer struct {
	BaseModel
	CompanyID      uuid.UUID   `json:"company_id" gorm:"type:uuid;not null;index"`
	Title          string      `json:"title" gorm:"size:255;not null"`
	Location       string      `json:"location,omitempty" gorm:"size:255"`
	Positions      int         `json:"positions" gorm:"not null;default:1"`
	Status         OfferStatus `json:"status" gorm:"type:varchar(20);not null;default:'open';index"`
	RequiredSkills StringList  `json:"required_skills"`

	Company *Company `json:"company,omitempty" gorm:"foreignKey:CompanyID"`
}

func (o *Offer) IsOpen() bool {
	return o.Status == OfferStatusOpen
}

type Student struct {
	BaseModel
	FullName      string     `json:"full_name" gorm:"size:255;not null"`
	Email         string     `json:"email" gorm:"size:255;not null"`
	Phone         string     `json:"phone,omitempty" gorm:"size:50"`
	CVKey         string     `json:"-" gorm:"size:512"`
	StudyCenterID *uuid.UUID `json:"study_center_id,omitempty" gorm:"type:uuid;index"`
	Cycle         string     `json:"cycle,omitempty" gorm:"size:255"`
}

// StudentSummary is the part of a student profile visible before a reveal.
type StudentSummary struct {
	ID       uuid.UUID `json:"id"`
	FullName string    `json:"full_name"`
	Cycle    string    `json:"cycle,omitempty"`
}

func (s *Student) Summary() StudentSummary {
	return StudentSummary{ID: s.ID, FullName: s.FullName, Cycle: s.Cycle}
}
