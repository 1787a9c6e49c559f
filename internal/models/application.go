// internal/models/application.go
package models

import (
	"time"

	"github.com/google/uuid"
)

type ApplicationStatus string

const (
	ApplicationStatusPending            ApplicationStatus = "pending"
	ApplicationStatusReviewed           ApplicationStatus = "reviewed"
	ApplicationStatusAccepted           ApplicationStatus = "accepted"
	ApplicationStatusRejected           ApplicationStatus = "rejected"
	ApplicationStatusInterviewRequested ApplicationStatus = "interview_requested"
	ApplicationStatusInterviewConfirmed ApplicationStatus = "interview_confirmed"
	ApplicationStatusInterviewRejected  ApplicationStatus = "interview_rejected"
	ApplicationStatusWithdrawn          ApplicationStatus = "withdrawn"
)

// InterviewStatuses are the states that carry an interview sub-record.
var InterviewStatuses = []ApplicationStatus{
	ApplicationStatusInterviewRequested,
	ApplicationStatusInterviewConfirmed,
	ApplicationStatusInterviewRejected,
}

func (s ApplicationStatus) HasInterview() bool {
	for _, st := range InterviewStatuses {
		if s == st {
			return true
		}
	}
	return false
}

type InterviewType string

const (
	InterviewTypePresencial InterviewType = "presencial"
	InterviewTypeRemote     InterviewType = "remote"
	InterviewTypeTelefonica InterviewType = "telefonica"
)

type InterviewAction string

const (
	InterviewActionConfirm InterviewAction = "confirm"
	InterviewActionReject  InterviewAction = "reject"
)

type InterviewDetails struct {
	Date     string        `json:"date" validate:"required,calendar_date"`
	Time     string        `json:"time" validate:"required,clock_time"`
	Location string        `json:"location" validate:"required"`
	Type     InterviewType `json:"type" validate:"required,oneof=presencial remote telefonica"`
	Link     string        `json:"link,omitempty" validate:"omitempty,url"`
	Notes    string        `json:"notes,omitempty"`
}

type InterviewResponse struct {
	Action      InterviewAction `json:"action"`
	Reason      string          `json:"reason,omitempty"`
	Notes       string          `json:"notes,omitempty"`
	RespondedAt time.Time       `json:"responded_at"`
}

type Interview struct {
	RequestedAt     time.Time          `json:"requested_at"`
	RequestedBy     uuid.UUID          `json:"requested_by"`
	Details         *InterviewDetails  `json:"details"`
	StudentResponse *InterviewResponse `json:"student_response,omitempty"`
}

type Application struct {
	BaseModel
	StudentID       uuid.UUID         `json:"student_id" gorm:"type:uuid;not null;index"`
	OfferID         uuid.UUID         `json:"offer_id" gorm:"type:uuid;not null;index"`
	CompanyID       uuid.UUID         `json:"company_id" gorm:"type:uuid;not null;index"`
	Status          ApplicationStatus `json:"status" gorm:"type:varchar(32);not null;default:'pending';index"`
	AppliedAt       time.Time         `json:"applied_at" gorm:"not null"`
	ReviewedAt      *time.Time        `json:"reviewed_at"`
	CVViewed        bool              `json:"cv_viewed" gorm:"not null;default:false"`
	CVViewedAt      *time.Time        `json:"cv_viewed_at"`
	Message         string            `json:"message" gorm:"type:text"`
	CompanyNotes    *string           `json:"company_notes" gorm:"type:text"`
	RejectionReason *string           `json:"rejection_reason" gorm:"type:varchar(64)"`
	Interview       *Interview        `json:"interview" gorm:"type:jsonb;serializer:json"`
	Version         int               `json:"version" gorm:"not null;default:1"`

	// Relationships
	Student *Student `json:"student,omitempty" gorm:"foreignKey:StudentID"`
	Offer   *Offer   `json:"offer,omitempty" gorm:"foreignKey:OfferID"`
	Company *Company `json:"company,omitempty" gorm:"foreignKey:CompanyID"`
}

// ApplicationStatusHistory is the append-only audit trail of every status change.
type ApplicationStatusHistory struct {
	BaseModel
	ApplicationID uuid.UUID          `json:"application_id" gorm:"type:uuid;not null;index"`
	FromStatus    *ApplicationStatus `json:"from_status" gorm:"type:varchar(32)"`
	ToStatus      ApplicationStatus  `json:"to_status" gorm:"type:varchar(32);not null"`
	ActorID       *uuid.UUID         `json:"actor_id" gorm:"type:uuid"`
	ActorRole     Role               `json:"actor_role" gorm:"type:varchar(20)"`
	Reason        string             `json:"reason,omitempty" gorm:"type:varchar(64)"`
	Notes         string             `json:"notes,omitempty" gorm:"type:text"`
	Interview     *Interview         `json:"interview,omitempty" gorm:"type:jsonb;serializer:json"`
	Cascade       bool               `json:"cascade" gorm:"not null;default:false"`
}

func (ApplicationStatusHistory) TableName() string {
	return "application_status_history"
}
