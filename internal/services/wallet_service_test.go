package services_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v74"
	"gorm.io/gorm"

	"github.com/internlink/placement-service/internal/models"
	"github.com/internlink/placement-service/internal/services"
	"github.com/internlink/placement-service/internal/utils"
)

func TestWalletDebitAndCredit(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	acme := e.newParty(t, "Acme")
	actorID := uuid.New()

	balance, err := e.wallet.Balance(ctx, acme.company.ID)
	require.NoError(t, err)
	assert.Zero(t, balance, "a missing wallet reads as empty")

	err = e.db.Transaction(func(tx *gorm.DB) error {
		return e.wallet.Debit(tx, acme.company.ID, 1, "reveal:x", actorID)
	})
	se := assertCode(t, err, services.CodeInsufficientBalance)
	assert.Equal(t, int64(0), se.Details["balance"])

	require.NoError(t, e.db.Transaction(func(tx *gorm.DB) error {
		return e.wallet.Credit(tx, acme.company.ID, 3)
	}))
	require.NoError(t, e.db.Transaction(func(tx *gorm.DB) error {
		return e.wallet.Credit(tx, acme.company.ID, 2)
	}))

	balance, err = e.wallet.Balance(ctx, acme.company.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), balance)

	require.NoError(t, e.db.Transaction(func(tx *gorm.DB) error {
		return e.wallet.Debit(tx, acme.company.ID, 5, "reveal:y", actorID)
	}))

	err = e.db.Transaction(func(tx *gorm.DB) error {
		return e.wallet.Debit(tx, acme.company.ID, 1, "reveal:z", actorID)
	})
	assertCode(t, err, services.CodeInsufficientBalance)

	balance, err = e.wallet.Balance(ctx, acme.company.ID)
	require.NoError(t, err)
	assert.Zero(t, balance)

	err = e.db.Transaction(func(tx *gorm.DB) error {
		return e.wallet.Debit(tx, acme.company.ID, 0, "reveal:zero", actorID)
	})
	se = assertCode(t, err, services.CodeValidation)
	fields, ok := se.Details["fields"].([]utils.ValidationError)
	require.True(t, ok)
	require.Len(t, fields, 1)
	assert.Equal(t, "amount", fields[0].Field)
}

func TestWalletGrant(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	acme := e.newParty(t, "Acme")
	admin := services.Actor{UserID: uuid.New(), Role: models.RoleAdmin}

	_, err := e.wallet.Grant(ctx, acme.actor, acme.company.ID, 10, "self-service")
	assertCode(t, err, services.CodeForbidden)

	_, err = e.wallet.Grant(ctx, admin, acme.company.ID, 0, "nothing")
	assertCode(t, err, services.CodeValidation)

	tx, err := e.wallet.Grant(ctx, admin, acme.company.ID, 10, "welcome pack")
	require.NoError(t, err)
	assert.Equal(t, models.TransactionTypeCredit, tx.TransactionType)
	assert.Equal(t, models.TransactionStatusCompleted, tx.Status)

	summary, err := e.wallet.Summary(ctx, acme.actor)
	require.NoError(t, err)
	assert.Equal(t, int64(10), summary.Balance)
	assert.Equal(t, int64(2), summary.RevealCost)

	_, err = e.wallet.Summary(ctx, admin)
	assertCode(t, err, services.CodeInvalidActor)
}

func TestWalletTopUpFlow(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	acme := e.newParty(t, "Acme")
	globex := e.newParty(t, "Globex")

	_, err := e.wallet.CreateTopUpIntent(ctx, acme.actor, &services.TopUpRequest{Tokens: 0})
	assertCode(t, err, services.CodeValidation)

	intent, err := e.wallet.CreateTopUpIntent(ctx, acme.actor, &services.TopUpRequest{Tokens: 20})
	require.NoError(t, err)
	assert.Equal(t, int64(20*150), intent.AmountCents)
	assert.Equal(t, "eur", intent.Currency)
	assert.NotEmpty(t, intent.ClientSecret)

	confirm := &services.ConfirmTopUpRequest{PaymentIntentID: intent.PaymentIntentID}

	// payment still in flight: nothing is credited
	result, err := e.wallet.ConfirmTopUp(ctx, acme.actor, confirm)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionStatusPending, result.Transaction.Status)
	assert.Zero(t, result.Balance)

	_, err = e.wallet.ConfirmTopUp(ctx, globex.actor, confirm)
	assertCode(t, err, services.CodeForbidden)

	e.gateway.setStatus(intent.PaymentIntentID, stripe.PaymentIntentStatusSucceeded)

	result, err = e.wallet.ConfirmTopUp(ctx, acme.actor, confirm)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionStatusCompleted, result.Transaction.Status)
	assert.Equal(t, int64(20), result.Balance)

	// confirming again does not credit twice
	result, err = e.wallet.ConfirmTopUp(ctx, acme.actor, confirm)
	require.NoError(t, err)
	assert.Equal(t, int64(20), result.Balance)

	_, err = e.wallet.ConfirmTopUp(ctx, acme.actor, &services.ConfirmTopUpRequest{PaymentIntentID: "pi_unknown"})
	assertCode(t, err, services.CodeNotFound)

	txs, total, err := e.wallet.Transactions(ctx, acme.actor, utils.PaginationParams{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, txs, 1)
	assert.Equal(t, models.TransactionTypeTopUp, txs[0].TransactionType)
	assert.Equal(t, intent.PaymentIntentID, txs[0].PaymentReference)
}

func TestWalletTopUpFailure(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	acme := e.newParty(t, "Acme")

	intent, err := e.wallet.CreateTopUpIntent(ctx, acme.actor, &services.TopUpRequest{Tokens: 5})
	require.NoError(t, err)

	e.gateway.setStatus(intent.PaymentIntentID, stripe.PaymentIntentStatusCanceled)

	result, err := e.wallet.ConfirmTopUp(ctx, acme.actor, &services.ConfirmTopUpRequest{PaymentIntentID: intent.PaymentIntentID})
	require.NoError(t, err)
	assert.Equal(t, models.TransactionStatusFailed, result.Transaction.Status)
	assert.Zero(t, result.Balance)

	// a later success report cannot resurrect a failed top-up
	e.gateway.setStatus(intent.PaymentIntentID, stripe.PaymentIntentStatusSucceeded)
	result, err = e.wallet.ConfirmTopUp(ctx, acme.actor, &services.ConfirmTopUpRequest{PaymentIntentID: intent.PaymentIntentID})
	require.NoError(t, err)
	assert.Equal(t, models.TransactionStatusFailed, result.Transaction.Status)
	assert.Zero(t, result.Balance)
}
