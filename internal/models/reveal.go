// internal/models/reveal.go
package models

import (
	"time"

	"github.com/google/uuid"
)

type RevealTrigger string

const (
	RevealTriggerViewCV  RevealTrigger = "view_cv"
	RevealTriggerContact RevealTrigger = "contact"
)

// RevealLedgerEntry records that a company may see a student's full profile.
// There is at most one row per (company, student) pair.
type RevealLedgerEntry struct {
	CompanyID           uuid.UUID     `json:"company_id" gorm:"type:uuid;primaryKey"`
	StudentID           uuid.UUID     `json:"student_id" gorm:"type:uuid;primaryKey"`
	RevealedAt          time.Time     `json:"revealed_at" gorm:"not null"`
	RevealedBy          uuid.UUID     `json:"revealed_by" gorm:"type:uuid;not null"`
	SourceApplicationID *uuid.UUID    `json:"source_application_id" gorm:"type:uuid"`
	Trigger             RevealTrigger `json:"trigger" gorm:"type:varchar(20);not null"`
	Cost                int64         `json:"cost" gorm:"not null;default:0"`
}

func (RevealLedgerEntry) TableName() string {
	return "reveal_ledger"
}

type ContactEvent struct {
	BaseModel
	CompanyID uuid.UUID `json:"company_id" gorm:"type:uuid;not null;index"`
	StudentID uuid.UUID `json:"student_id" gorm:"type:uuid;not null;index"`
	ActorID   uuid.UUID `json:"actor_id" gorm:"type:uuid;not null"`
	Subject   string    `json:"subject" gorm:"size:255;not null"`
	Message   string    `json:"message" gorm:"type:text;not null"`
	Charged   bool      `json:"charged" gorm:"not null;default:false"`
}
