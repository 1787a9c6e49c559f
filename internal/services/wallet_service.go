// internal/services/wallet_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/internlink/placement-service/internal/config"
	"github.com/internlink/placement-service/internal/database"
	"github.com/internlink/placement-service/internal/metrics"
	"github.com/internlink/placement-service/internal/models"
	"github.com/internlink/placement-service/internal/utils"
)

// TokenWallet debits reveal costs. Debit runs on the caller's transaction so
// the charge commits or rolls back together with the ledger entry.
type TokenWallet interface {
	Balance(ctx context.Context, companyID uuid.UUID) (int64, error)
	Debit(tx *gorm.DB, companyID uuid.UUID, amount int64, reference string, actorID uuid.UUID) error
}

// PaymentGateway is the card processor behind wallet top-ups.
type PaymentGateway interface {
	CreateIntent(amountCents int64, currency string, metadata map[string]string) (*stripe.PaymentIntent, error)
	GetIntent(id string) (*stripe.PaymentIntent, error)
}

type stripeGateway struct{}

func NewStripeGateway(secretKey string) PaymentGateway {
	stripe.Key = secretKey
	return stripeGateway{}
}

func (stripeGateway) CreateIntent(amountCents int64, currency string, metadata map[string]string) (*stripe.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amountCents),
		Currency: stripe.String(currency),
	}
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}
	return paymentintent.New(params)
}

func (stripeGateway) GetIntent(id string) (*stripe.PaymentIntent, error) {
	return paymentintent.Get(id, nil)
}

type WalletService struct {
	db      *gorm.DB
	config  *config.Config
	gateway PaymentGateway
}

type TopUpRequest struct {
	Tokens int64 `json:"tokens" validate:"required,min=1,max=10000"`
}

type ConfirmTopUpRequest struct {
	PaymentIntentID string `json:"payment_intent_id" validate:"required"`
}

type TopUpIntent struct {
	ClientSecret    string    `json:"client_secret"`
	PaymentIntentID string    `json:"payment_intent_id"`
	TransactionID   uuid.UUID `json:"transaction_id"`
	Tokens          int64     `json:"tokens"`
	AmountCents     int64     `json:"amount_cents"`
	Currency        string    `json:"currency"`
}

type TopUpResult struct {
	Transaction *models.TokenTransaction `json:"transaction"`
	Balance     int64                    `json:"balance"`
}

type WalletSummary struct {
	CompanyID  uuid.UUID `json:"company_id"`
	Balance    int64     `json:"balance"`
	RevealCost int64     `json:"reveal_cost"`
}

func NewWalletService(db *gorm.DB, cfg *config.Config, gateway PaymentGateway) *WalletService {
	return &WalletService{
		db:      db,
		config:  cfg,
		gateway: gateway,
	}
}

func (s *WalletService) Balance(ctx context.Context, companyID uuid.UUID) (int64, error) {
	return walletBalance(s.db.WithContext(ctx), companyID)
}

func walletBalance(db *gorm.DB, companyID uuid.UUID) (int64, error) {
	var wallet models.CompanyWallet
	err := db.Where("company_id = ?", companyID).Take(&wallet).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read wallet balance: %w", err)
	}
	return wallet.Balance, nil
}

// Debit subtracts amount with a single conditional update, so the balance can
// never go negative even under concurrent debits.
func (s *WalletService) Debit(tx *gorm.DB, companyID uuid.UUID, amount int64, reference string, actorID uuid.UUID) error {
	if amount <= 0 {
		return validationError("debit amount must be positive", fieldError("amount", "min", "amount must be at least 1"))
	}

	result := tx.Model(&models.CompanyWallet{}).
		Where("company_id = ? AND balance >= ?", companyID, amount).
		Updates(map[string]interface{}{
			"balance":    gorm.Expr("balance - ?", amount),
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return internalError("failed to debit wallet", result.Error)
	}
	if result.RowsAffected == 0 {
		balance, err := walletBalance(tx, companyID)
		if err != nil {
			return internalError("failed to debit wallet", err)
		}
		return insufficientBalanceError(amount, balance)
	}

	now := time.Now()
	transaction := &models.TokenTransaction{
		CompanyID:       companyID,
		TransactionType: models.TransactionTypeRevealDebit,
		Amount:          amount,
		Reference:       reference,
		Status:          models.TransactionStatusCompleted,
		ProcessedAt:     &now,
		CreatedBy:       &actorID,
	}
	if err := tx.Create(transaction).Error; err != nil {
		return internalError("failed to record debit", err)
	}

	metrics.RecordDebit(amount)
	return nil
}

// Credit adds tokens to a wallet, creating it on first use.
func (s *WalletService) Credit(tx *gorm.DB, companyID uuid.UUID, amount int64) error {
	if amount <= 0 {
		return validationError("credit amount must be positive", fieldError("amount", "min", "amount must be at least 1"))
	}

	wallet := &models.CompanyWallet{CompanyID: companyID, Balance: amount, UpdatedAt: time.Now()}
	err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "company_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"balance":    gorm.Expr("company_wallets.balance + ?", amount),
			"updated_at": time.Now(),
		}),
	}).Create(wallet).Error
	if err != nil {
		return internalError("failed to credit wallet", err)
	}
	return nil
}

// Grant credits tokens outside of a card payment, e.g. promotional credit.
func (s *WalletService) Grant(ctx context.Context, actor Actor, companyID uuid.UUID, amount int64, reference string) (*models.TokenTransaction, error) {
	if actor.Role != models.RoleAdmin {
		return nil, forbiddenError("only administrators can grant tokens")
	}

	now := time.Now()
	transaction := &models.TokenTransaction{
		CompanyID:       companyID,
		TransactionType: models.TransactionTypeCredit,
		Amount:          amount,
		Reference:       reference,
		Status:          models.TransactionStatusCompleted,
		ProcessedAt:     &now,
		CreatedBy:       &actor.UserID,
	}

	err := database.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
		if err := s.Credit(tx, companyID, amount); err != nil {
			return err
		}
		if err := tx.Create(transaction).Error; err != nil {
			return internalError("failed to record credit", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return transaction, nil
}

func (s *WalletService) Summary(ctx context.Context, actor Actor) (*WalletSummary, error) {
	if !actor.IsCompany() {
		return nil, newError(CodeInvalidActor, "only company members have a token wallet", nil)
	}

	balance, err := s.Balance(ctx, *actor.CompanyID)
	if err != nil {
		return nil, internalError("failed to read wallet", err)
	}

	return &WalletSummary{
		CompanyID:  *actor.CompanyID,
		Balance:    balance,
		RevealCost: s.config.Lifecycle.RevealCost,
	}, nil
}

func (s *WalletService) CreateTopUpIntent(ctx context.Context, actor Actor, req *TopUpRequest) (*TopUpIntent, error) {
	if !actor.IsCompany() {
		return nil, newError(CodeInvalidActor, "only company members can buy tokens", nil)
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, validationError("invalid top-up request", fieldErrors(err)...)
	}

	companyID := *actor.CompanyID
	currency := s.config.Payment.Currency
	amountCents := req.Tokens * s.config.Payment.TokenPriceCents

	pi, err := s.gateway.CreateIntent(amountCents, currency, map[string]string{
		"company_id": companyID.String(),
		"user_id":    actor.UserID.String(),
		"tokens":     fmt.Sprintf("%d", req.Tokens),
	})
	if err != nil {
		return nil, internalError("failed to create payment intent", err)
	}

	transaction := &models.TokenTransaction{
		CompanyID:        companyID,
		TransactionType:  models.TransactionTypeTopUp,
		Amount:           req.Tokens,
		Reference:        "stripe top-up",
		PaymentReference: pi.ID,
		AmountCents:      amountCents,
		Currency:         currency,
		Status:           models.TransactionStatusPending,
		CreatedBy:        &actor.UserID,
	}
	if err := s.db.WithContext(ctx).Create(transaction).Error; err != nil {
		return nil, internalError("failed to record top-up", err)
	}

	return &TopUpIntent{
		ClientSecret:    pi.ClientSecret,
		PaymentIntentID: pi.ID,
		TransactionID:   transaction.ID,
		Tokens:          req.Tokens,
		AmountCents:     amountCents,
		Currency:        currency,
	}, nil
}

// ConfirmTopUp settles a pending top-up once the processor reports success.
// Confirming the same intent twice credits the wallet once.
func (s *WalletService) ConfirmTopUp(ctx context.Context, actor Actor, req *ConfirmTopUpRequest) (*TopUpResult, error) {
	if !actor.IsCompany() {
		return nil, newError(CodeInvalidActor, "only company members can buy tokens", nil)
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, validationError("invalid confirmation request", fieldErrors(err)...)
	}

	var transaction models.TokenTransaction
	err := s.db.WithContext(ctx).
		Where("payment_reference = ? AND transaction_type = ?", req.PaymentIntentID, models.TransactionTypeTopUp).
		First(&transaction).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("top-up")
		}
		return nil, internalError("failed to load top-up", err)
	}
	if !actor.ActsFor(transaction.CompanyID) {
		return nil, forbiddenError("this top-up belongs to another company")
	}

	if transaction.Status != models.TransactionStatusPending {
		return s.topUpResult(ctx, &transaction)
	}

	pi, err := s.gateway.GetIntent(req.PaymentIntentID)
	if err != nil {
		return nil, internalError("failed to get payment intent", err)
	}

	credited := false
	switch pi.Status {
	case stripe.PaymentIntentStatusSucceeded:
		err = database.WithTransaction(ctx, s.db, func(tx *gorm.DB) error {
			now := time.Now()
			result := tx.Model(&models.TokenTransaction{}).
				Where("id = ? AND status = ?", transaction.ID, models.TransactionStatusPending).
				Updates(map[string]interface{}{
					"status":       models.TransactionStatusCompleted,
					"processed_at": now,
				})
			if result.Error != nil {
				return internalError("failed to settle top-up", result.Error)
			}
			if result.RowsAffected == 0 {
				// settled by a concurrent confirmation
				return nil
			}
			credited = true
			transaction.Status = models.TransactionStatusCompleted
			transaction.ProcessedAt = &now
			return s.Credit(tx, transaction.CompanyID, transaction.Amount)
		})

	case stripe.PaymentIntentStatusRequiresAction, stripe.PaymentIntentStatusRequiresConfirmation,
		stripe.PaymentIntentStatusProcessing, stripe.PaymentIntentStatusRequiresPaymentMethod:
		// still in flight

	default:
		err = s.db.WithContext(ctx).Model(&models.TokenTransaction{}).
			Where("id = ? AND status = ?", transaction.ID, models.TransactionStatusPending).
			Update("status", models.TransactionStatusFailed).Error
		if err == nil {
			transaction.Status = models.TransactionStatusFailed
		}
	}
	if err != nil {
		return nil, AsServiceError(err)
	}

	if credited {
		logrus.WithFields(logrus.Fields{
			"company_id":        transaction.CompanyID,
			"tokens":            transaction.Amount,
			"payment_intent_id": req.PaymentIntentID,
		}).Info("Wallet topped up")
	}

	return s.topUpResult(ctx, &transaction)
}

func (s *WalletService) topUpResult(ctx context.Context, transaction *models.TokenTransaction) (*TopUpResult, error) {
	balance, err := s.Balance(ctx, transaction.CompanyID)
	if err != nil {
		return nil, internalError("failed to read wallet", err)
	}
	return &TopUpResult{Transaction: transaction, Balance: balance}, nil
}

func (s *WalletService) Transactions(ctx context.Context, actor Actor, params utils.PaginationParams) ([]models.TokenTransaction, int64, error) {
	if !actor.IsCompany() {
		return nil, 0, newError(CodeInvalidActor, "only company members have a token wallet", nil)
	}
	params = utils.NormalizePagination(params)

	query := s.db.WithContext(ctx).Model(&models.TokenTransaction{}).
		Where("company_id = ?", *actor.CompanyID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, internalError("failed to count transactions", err)
	}

	// Apply sorting and pagination
	allowedSortFields := []string{"created_at", "amount", "status"}
	query = utils.ApplySort(query, params, allowedSortFields, "created_at")
	query = utils.ApplyPagination(query, params)

	var transactions []models.TokenTransaction
	if err := query.Find(&transactions).Error; err != nil {
		return nil, 0, internalError("failed to fetch transactions", err)
	}

	return transactions, total, nil
}
