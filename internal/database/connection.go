// internal/database/connection.go
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/internlink/placement-service/internal/config"
	"github.com/internlink/placement-service/internal/models"
)

func Initialize(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger:         logger.Default.LogMode(gormLogLevel(cfg.LogLevel)),
		TranslateError: true,
	}

	// Connect to database
	db, err := gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying sql.DB
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pool
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.MaxLifetime) * time.Second)

	// Test connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logrus.Info("Database connection established successfully")
	return db, nil
}

func gormLogLevel(level string) logger.LogLevel {
	switch level {
	case "info":
		return logger.Info
	case "warn":
		return logger.Warn
	case "error":
		return logger.Error
	default:
		return logger.Silent
	}
}

func Close(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		logrus.WithError(err).Error("Error getting underlying sql.DB")
		return
	}

	if err := sqlDB.Close(); err != nil {
		logrus.WithError(err).Error("Error closing database connection")
	} else {
		logrus.Info("Database connection closed successfully")
	}
}

// Models lists every table owned or read by this service, in dependency order.
func Models() []interface{} {
	return []interface{}{
		&models.Company{},
		&models.Student{},
		&models.Offer{},
		&models.Application{},
		&models.ApplicationStatusHistory{},
		&models.RevealLedgerEntry{},
		&models.ContactEvent{},
		&models.CompanyWallet{},
		&models.TokenTransaction{},
		&models.Notification{},
		&models.AuditLog{},
	}
}

func RunMigrations(db *gorm.DB) error {
	logrus.Info("Running database migrations...")

	if db.Dialector.Name() == "postgres" {
		if err := db.Exec("CREATE EXTENSION IF NOT EXISTS \"uuid-ossp\"").Error; err != nil {
			return fmt.Errorf("failed to create UUID extension: %w", err)
		}
	}

	// Run auto-migrations
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Constraint indexes must exist; lookup indexes are best effort.
	for _, index := range constraintIndexes {
		if err := db.Exec(index).Error; err != nil {
			return fmt.Errorf("failed to create constraint index %q: %w", index, err)
		}
	}
	createIndexes(db)

	logrus.Info("Database migrations completed successfully")
	return nil
}

var constraintIndexes = []string{
	// At most one live application per student and offer; withdrawn rows do not count.
	"CREATE UNIQUE INDEX IF NOT EXISTS idx_applications_active_pair ON applications(student_id, offer_id) WHERE status <> 'withdrawn'",
	"CREATE UNIQUE INDEX IF NOT EXISTS idx_token_transactions_payment_ref ON token_transactions(payment_reference) WHERE payment_reference <> ''",
}

func createIndexes(db *gorm.DB) {
	indexes := []string{
		// Application indexes
		"CREATE INDEX IF NOT EXISTS idx_applications_student_status ON applications(student_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_applications_company_status ON applications(company_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_applications_applied_at ON applications(applied_at DESC)",

		// History indexes
		"CREATE INDEX IF NOT EXISTS idx_status_history_application_created ON application_status_history(application_id, created_at)",

		// Reveal / contact indexes
		"CREATE INDEX IF NOT EXISTS idx_reveal_ledger_student ON reveal_ledger(student_id)",
		"CREATE INDEX IF NOT EXISTS idx_contact_events_pair ON contact_events(company_id, student_id)",

		// Wallet indexes
		"CREATE INDEX IF NOT EXISTS idx_token_transactions_company_created ON token_transactions(company_id, created_at DESC)",

		// Notification indexes
		"CREATE INDEX IF NOT EXISTS idx_notifications_recipient_read ON notifications(recipient_id, read_at)",

		// Audit indexes
		"CREATE INDEX IF NOT EXISTS idx_audit_logs_user_action ON audit_logs(user_id, action)",
		"CREATE INDEX IF NOT EXISTS idx_audit_logs_resource ON audit_logs(resource_type, resource_id)",
	}

	for _, index := range indexes {
		if err := db.Exec(index).Error; err != nil {
			logrus.WithError(err).WithField("index", index).Warn("Failed to create index")
			// Continue with other indexes instead of failing completely
		}
	}
}

// Transaction helper
func WithTransaction(ctx context.Context, db *gorm.DB, fn func(*gorm.DB) error) error {
	tx := db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit().Error
}
