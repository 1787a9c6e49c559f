package services_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/internlink/placement-service/internal/models"
	"github.com/internlink/placement-service/internal/services"
)

type RevealServiceTestSuite struct {
	suite.Suite
	e   *engine
	ctx context.Context
}

func (suite *RevealServiceTestSuite) SetupTest() {
	suite.e = newEngine(suite.T())
	suite.ctx = context.Background()
}

func TestRevealServiceTestSuite(t *testing.T) {
	suite.Run(t, new(RevealServiceTestSuite))
}

func (suite *RevealServiceTestSuite) ledgerCount(companyID, studentID uuid.UUID) int64 {
	var n int64
	require.NoError(suite.T(), suite.e.db.Model(&models.RevealLedgerEntry{}).
		Where("company_id = ? AND student_id = ?", companyID, studentID).
		Count(&n).Error)
	return n
}

func (suite *RevealServiceTestSuite) debits(companyID uuid.UUID) []models.TokenTransaction {
	var rows []models.TokenTransaction
	require.NoError(suite.T(), suite.e.db.
		Where("company_id = ? AND transaction_type = ?", companyID, models.TransactionTypeRevealDebit).
		Find(&rows).Error)
	return rows
}

func (suite *RevealServiceTestSuite) balance(companyID uuid.UUID) int64 {
	b, err := suite.e.wallet.Balance(suite.ctx, companyID)
	require.NoError(suite.T(), err)
	return b
}

func (suite *RevealServiceTestSuite) TestPaidRevealChargesOnce() {
	t := suite.T()
	acme := suite.e.newParty(t, "Acme")
	student, _ := suite.e.newStudent(t, "Ana Garcia")
	suite.e.fx.Wallet(t, acme.company.ID, 5)

	first, err := suite.e.reveals.ViewCV(suite.ctx, acme.actor, student.ID, nil)
	require.NoError(t, err)
	assert.True(t, first.Charged)
	assert.Equal(t, int64(2), first.Cost)
	assert.Equal(t, student.Email, first.Email)
	assert.Equal(t, student.Phone, first.Phone)
	assert.Empty(t, first.CVURL, "storage is not configured in tests")
	assert.Nil(t, first.SourceApplicationID)

	second, err := suite.e.reveals.ViewCV(suite.ctx, acme.actor, student.ID, &services.ViewCVRequest{})
	require.NoError(t, err)
	assert.False(t, second.Charged)
	assert.Zero(t, second.Cost)
	assert.Equal(t, first.Email, second.Email)
	assert.False(t, second.RevealedAt.IsZero())

	// contacting an already revealed candidate is free as well
	contact, err := suite.e.reveals.Contact(suite.ctx, acme.actor, student.ID, &services.ContactRequest{
		Subject: "Internship at Acme",
		Message: "We'd like to talk about our backend internship.",
	})
	require.NoError(t, err)
	assert.False(t, contact.Charged)
	assert.Equal(t, student.Email, contact.RecipientEmail)

	assert.Equal(t, int64(3), suite.balance(acme.company.ID))
	assert.Equal(t, int64(1), suite.ledgerCount(acme.company.ID, student.ID))

	debits := suite.debits(acme.company.ID)
	require.Len(t, debits, 1)
	assert.Equal(t, int64(2), debits[0].Amount)
	assert.Equal(t, models.TransactionStatusCompleted, debits[0].Status)

	suite.e.notifier.waitFor(t, services.EventCandidateContacted, student.ID)
}

func (suite *RevealServiceTestSuite) TestInsufficientBalanceWritesNothing() {
	t := suite.T()
	acme := suite.e.newParty(t, "Acme")
	globex := suite.e.newParty(t, "Globex")
	student, _ := suite.e.newStudent(t, "Ana Garcia")
	suite.e.fx.Wallet(t, acme.company.ID, 1)

	for _, company := range []party{acme, globex} {
		_, err := suite.e.reveals.ViewCV(suite.ctx, company.actor, student.ID, nil)
		se := assertCode(t, err, services.CodeInsufficientBalance)
		assert.Equal(t, int64(2), se.Details["required"])
		assert.Zero(t, suite.ledgerCount(company.company.ID, student.ID))
		assert.Empty(t, suite.debits(company.company.ID))
	}
	assert.Equal(t, int64(1), suite.balance(acme.company.ID))

	_, err := suite.e.reveals.Contact(suite.ctx, globex.actor, student.ID, &services.ContactRequest{
		Subject: "Hello",
		Message: "Are you available?",
	})
	assertCode(t, err, services.CodeInsufficientBalance)

	var contacts int64
	require.NoError(t, suite.e.db.Model(&models.ContactEvent{}).Count(&contacts).Error)
	assert.Zero(t, contacts)
}

func (suite *RevealServiceTestSuite) TestPaidContactThenFreeView() {
	t := suite.T()
	acme := suite.e.newParty(t, "Acme")
	student, _ := suite.e.newStudent(t, "Ana Garcia")
	suite.e.fx.Wallet(t, acme.company.ID, 2)

	contact, err := suite.e.reveals.Contact(suite.ctx, acme.actor, student.ID, &services.ContactRequest{
		Subject: "Internship at Acme",
		Message: "Hi Ana",
	})
	require.NoError(t, err)
	assert.True(t, contact.Charged)
	assert.Equal(t, int64(2), contact.Cost)

	var event models.ContactEvent
	require.NoError(t, suite.e.db.First(&event, "id = ?", contact.ContactID).Error)
	assert.True(t, event.Charged)
	assert.Equal(t, acme.actor.UserID, event.ActorID)

	profile, err := suite.e.reveals.ViewCV(suite.ctx, acme.actor, student.ID, nil)
	require.NoError(t, err)
	assert.False(t, profile.Charged)
	assert.Zero(t, suite.balance(acme.company.ID))
}

func (suite *RevealServiceTestSuite) TestApplicantIsFreeAndStampsReviewedAt() {
	t := suite.T()
	acme := suite.e.newParty(t, "Acme")
	student, ana := suite.e.newStudent(t, "Ana Garcia")
	app := suite.e.apply(t, ana, acme.offer)

	profile, err := suite.e.reveals.ViewCV(suite.ctx, acme.actor, student.ID, &services.ViewCVRequest{FromApplication: true})
	require.NoError(t, err)
	assert.False(t, profile.Charged)
	assert.Zero(t, profile.Cost)
	require.NotNil(t, profile.SourceApplicationID)
	assert.Equal(t, app.ID, *profile.SourceApplicationID)

	stored := suite.e.reload(t, app.ID)
	assert.True(t, stored.CVViewed)
	assert.NotNil(t, stored.CVViewedAt)
	assert.NotNil(t, stored.ReviewedAt)
	assert.Equal(t, models.ApplicationStatusPending, stored.Status)
	assert.Len(t, suite.e.history(t, app.ID), 1)
	assert.Zero(t, suite.e.notifier.count(services.EventApplicationReviewed, student.ID))

	var entry models.RevealLedgerEntry
	require.NoError(t, suite.e.db.Where("company_id = ? AND student_id = ?", acme.company.ID, student.ID).Take(&entry).Error)
	assert.Zero(t, entry.Cost)
	assert.Empty(t, suite.debits(acme.company.ID))

	// access stays free after the application is closed
	_, err = suite.e.apps.Transition(suite.ctx, acme.actor, app.ID, &services.TransitionRequest{
		Status:          models.ApplicationStatusRejected,
		RejectionReason: services.ReasonPositionFilled,
	})
	require.NoError(t, err)

	again, err := suite.e.reveals.ViewCV(suite.ctx, acme.actor, student.ID, nil)
	require.NoError(t, err)
	assert.False(t, again.Charged)
}

func (suite *RevealServiceTestSuite) TestFromApplicationRequiresApplication() {
	t := suite.T()
	acme := suite.e.newParty(t, "Acme")
	globex := suite.e.newParty(t, "Globex")
	student, ana := suite.e.newStudent(t, "Ana Garcia")
	suite.e.fx.Wallet(t, acme.company.ID, 10)

	// an application to another company does not count
	suite.e.apply(t, ana, globex.offer)

	_, err := suite.e.reveals.ViewCV(suite.ctx, acme.actor, student.ID, &services.ViewCVRequest{FromApplication: true})
	assertCode(t, err, services.CodeForbidden)
	assert.Zero(t, suite.ledgerCount(acme.company.ID, student.ID))
	assert.Equal(t, int64(10), suite.balance(acme.company.ID))
}

func (suite *RevealServiceTestSuite) TestWithdrawnApplicationDoesNotGrantAccess() {
	t := suite.T()
	acme := suite.e.newParty(t, "Acme")
	student, ana := suite.e.newStudent(t, "Ana Garcia")
	app := suite.e.apply(t, ana, acme.offer)
	_, err := suite.e.apps.Withdraw(suite.ctx, ana, app.ID)
	require.NoError(t, err)

	_, err = suite.e.reveals.ViewCV(suite.ctx, acme.actor, student.ID, nil)
	assertCode(t, err, services.CodeInsufficientBalance)
}

func (suite *RevealServiceTestSuite) TestRevealStatus() {
	t := suite.T()
	acme := suite.e.newParty(t, "Acme")
	student, _ := suite.e.newStudent(t, "Ana Garcia")
	applicant, anaActor := suite.e.newStudent(t, "Luis Perez")
	suite.e.fx.Wallet(t, acme.company.ID, 4)
	suite.e.apply(t, anaActor, acme.offer)

	status, err := suite.e.reveals.RevealStatus(suite.ctx, acme.actor, student.ID)
	require.NoError(t, err)
	assert.False(t, status.Revealed)
	assert.False(t, status.Applied)
	assert.Equal(t, int64(2), status.Cost)
	assert.Equal(t, int64(4), status.Balance)

	_, err = suite.e.reveals.ViewCV(suite.ctx, acme.actor, student.ID, nil)
	require.NoError(t, err)

	status, err = suite.e.reveals.RevealStatus(suite.ctx, acme.actor, student.ID)
	require.NoError(t, err)
	assert.True(t, status.Revealed)
	assert.NotNil(t, status.RevealedAt)
	assert.Zero(t, status.Cost)
	assert.Equal(t, int64(2), status.Balance)

	status, err = suite.e.reveals.RevealStatus(suite.ctx, acme.actor, applicant.ID)
	require.NoError(t, err)
	assert.False(t, status.Revealed)
	assert.True(t, status.Applied)
	assert.Zero(t, status.Cost)
}

func (suite *RevealServiceTestSuite) TestOnlyCompaniesReveal() {
	t := suite.T()
	student, ana := suite.e.newStudent(t, "Ana Garcia")

	_, err := suite.e.reveals.ViewCV(suite.ctx, ana, student.ID, nil)
	assertCode(t, err, services.CodeInvalidActor)

	_, err = suite.e.reveals.Contact(suite.ctx, services.StudyCenterActor(uuid.New(), uuid.New()), student.ID, &services.ContactRequest{Subject: "x", Message: "y"})
	assertCode(t, err, services.CodeInvalidActor)

	_, err = suite.e.reveals.RevealStatus(suite.ctx, ana, student.ID)
	assertCode(t, err, services.CodeInvalidActor)

	acme := suite.e.newParty(t, "Acme")
	_, err = suite.e.reveals.ViewCV(suite.ctx, acme.actor, uuid.New(), nil)
	assertCode(t, err, services.CodeNotFound)

	_, err = suite.e.reveals.Contact(suite.ctx, acme.actor, student.ID, &services.ContactRequest{Message: "no subject"})
	assertCode(t, err, services.CodeValidation)
}
