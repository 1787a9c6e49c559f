// internal/models/wallet.go
package models

import (
	"time"

	"github.com/google/uuid"
)

type CompanyWallet struct {
	CompanyID uuid.UUID `json:"company_id" gorm:"type:uuid;primaryKey"`
	Balance   int64     `json:"balance" gorm:"not null;default:0"`
	UpdatedAt time.Time `json:"updated_at"`
}

type TokenTransaction struct {
	BaseModel
	CompanyID        uuid.UUID         `json:"company_id" gorm:"type:uuid;not null;index"`
	TransactionType  TransactionType   `json:"transaction_type" gorm:"type:varchar(20);not null;index"`
	Amount           int64             `json:"amount" gorm:"not null"`
	Reference        string            `json:"reference" gorm:"size:255"`
	PaymentReference string            `json:"payment_reference,omitempty" gorm:"size:255;index"`
	AmountCents      int64             `json:"amount_cents,omitempty"`
	Currency         string            `json:"currency,omitempty" gorm:"size:3"`
	Status           TransactionStatus `json:"status" gorm:"type:varchar(20);default:'pending';index"`
	ProcessedAt      *time.Time        `json:"processed_at"`
	CreatedBy        *uuid.UUID        `json:"created_by" gorm:"type:uuid"`
}
