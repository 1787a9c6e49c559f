// Package testutil provides in-memory databases and fixtures for package tests.
package testutil

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/internlink/placement-service/internal/database"
	"github.com/internlink/placement-service/internal/models"
)

var dbCounter int64

// NewDB opens a private in-memory SQLite database with the full schema applied.
// The pool is limited to one connection, so every statement is serialized.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, atomic.AddInt64(&dbCounter, 1))

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.RunMigrations(db))
	return db
}

type Fixtures struct {
	DB *gorm.DB
}

func (f Fixtures) Company(t testing.TB, name string) *models.Company {
	t.Helper()
	c := &models.Company{Name: name, ContactEmail: strings.ToLower(name) + "@example.com"}
	require.NoError(t, f.DB.Create(c).Error)
	return c
}

func (f Fixtures) Offer(t testing.TB, company *models.Company, title string, status models.OfferStatus) *models.Offer {
	t.Helper()
	o := &models.Offer{
		CompanyID:      company.ID,
		Title:          title,
		Positions:      1,
		Status:         status,
		RequiredSkills: models.StringList{"go", "sql"},
	}
	require.NoError(t, f.DB.Create(o).Error)
	return o
}

func (f Fixtures) Student(t testing.TB, name string, studyCenterID *uuid.UUID) *models.Student {
	t.Helper()
	s := &models.Student{
		FullName:      name,
		Email:         strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@students.example.com",
		Phone:         "+34 600 000 000",
		CVKey:         "cv/" + strings.ToLower(strings.ReplaceAll(name, " ", "-")) + ".pdf",
		StudyCenterID: studyCenterID,
		Cycle:         "DAW",
	}
	require.NoError(t, f.DB.Create(s).Error)
	return s
}

func (f Fixtures) Wallet(t testing.TB, companyID uuid.UUID, balance int64) {
	t.Helper()
	require.NoError(t, f.DB.Create(&models.CompanyWallet{CompanyID: companyID, Balance: balance}).Error)
}
