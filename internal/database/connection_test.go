package database_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"

	"github.com/internlink/placement-service/internal/database"
	"github.com/internlink/placement-service/internal/models"
	"github.com/internlink/placement-service/internal/testutil"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	return db, mock
}

func TestWithTransactionCommits(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE company_wallets`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := database.WithTransaction(context.Background(), db, func(tx *gorm.DB) error {
		return tx.Exec("UPDATE company_wallets SET balance = balance - 1").Error
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTransactionRollsBackOnError(t *testing.T) {
	db, mock := newMockDB(t)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := database.WithTransaction(context.Background(), db, func(tx *gorm.DB) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTransactionRollsBackOnPanic(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	assert.Panics(t, func() {
		_ = database.WithTransaction(context.Background(), db, func(tx *gorm.DB) error {
			panic("unexpected")
		})
	})
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivePairIndexAllowsReapplyAfterWithdrawal(t *testing.T) {
	db := testutil.NewDB(t)
	fx := testutil.Fixtures{DB: db}

	company := fx.Company(t, "Acme")
	offer := fx.Offer(t, company, "Backend intern", models.OfferStatusOpen)
	student := fx.Student(t, "Ana Garcia", nil)

	newApp := func(status models.ApplicationStatus) *models.Application {
		return &models.Application{
			StudentID: student.ID,
			OfferID:   offer.ID,
			CompanyID: company.ID,
			Status:    status,
			AppliedAt: time.Now(),
			Version:   1,
		}
	}

	require.NoError(t, db.Create(newApp(models.ApplicationStatusWithdrawn)).Error)
	require.NoError(t, db.Create(newApp(models.ApplicationStatusPending)).Error)

	err := db.Create(newApp(models.ApplicationStatusReviewed)).Error
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestModelsAreMigrated(t *testing.T) {
	db := testutil.NewDB(t)
	for _, m := range database.Models() {
		assert.True(t, db.Migrator().HasTable(m), "missing table for %T", m)
	}

	var id = uuid.New()
	require.NoError(t, db.Create(&models.CompanyWallet{CompanyID: id, Balance: 3}).Error)
	var w models.CompanyWallet
	require.NoError(t, db.First(&w, "company_id = ?", id).Error)
	assert.Equal(t, int64(3), w.Balance)
}

func TestRequiredSkillsColumnRoundTrips(t *testing.T) {
	parsed, err := schema.Parse(&models.Offer{}, &sync.Map{}, schema.NamingStrategy{})
	require.NoError(t, err)
	field := parsed.LookUpField("RequiredSkills")
	require.NotNil(t, field)
	assert.Equal(t, schema.DataType("text"), field.DataType)

	db := testutil.NewDB(t)
	assert.True(t, db.Migrator().HasColumn(&models.Offer{}, "required_skills"))

	fx := testutil.Fixtures{DB: db}
	offer := fx.Offer(t, fx.Company(t, "Acme"), "Data intern", models.OfferStatusOpen)

	var loaded models.Offer
	require.NoError(t, db.First(&loaded, "id = ?", offer.ID).Error)
	assert.Equal(t, models.StringList{"go", "sql"}, loaded.RequiredSkills)
}
