// Package repositories provides the data access layer: database connection,
// cache, and per-entity query helpers.
package repositories

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"kobapay/internal/config"
	"kobapay/internal/models"
)

// Connect opens the postgres connection, tunes the pool and migrates the
// schema.
func Connect(cfg config.Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return db, nil
}

// Migrate applies the schema. Shared with the test fixtures.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Permission{},
		&models.Role{},
		&models.Country{},
		&models.State{},
		&models.City{},
		&models.Media{},
		&models.UploadedMedia{},
		&models.IDType{},
		&models.User{},
		&models.Otp{},
		&models.KYCVerificationService{},
		&models.KYCVerificationData{},
		&models.Bank{},
		&models.BankAccount{},
		&models.Transaction{},
		&models.APIRequestLog{},
		&models.Activity{},
	)
}
