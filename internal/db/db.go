package db

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"hms/internal/config"
	"hms/internal/models"
	console "hms/internal/utils/logger"
)

var log = console.New("DB")

// Connect opens the main store (hospitals, roles, permissions, platform users,
// clinical records) and runs migrations. Tenant stores are opened separately
// through the Registry.
func Connect(cfg *config.Config) (*gorm.DB, error) {
	dsn := cfg.Database.DSN(cfg.Database.Name)

	log.Info("Connecting to main store...")
	maxRetries := 5
	var conn *gorm.DB
	var err error
	for i := 0; i < maxRetries; i++ {
		conn, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
			Logger:                                   gormlogger.Default.LogMode(gormlogger.Warn),
			DisableForeignKeyConstraintWhenMigrating: true,
			PrepareStmt:                              true,
		})
		if err == nil {
			break
		}
		log.Warn("Failed to connect to main store (attempt %d/%d): %v", i+1, maxRetries, err)
		time.Sleep(5 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to main store after %d attempts: %w", maxRetries, err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, log.Error("Failed to get underlying *sql.DB instance", err)
	}
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(30 * time.Minute)

	if err := runMigrations(conn); err != nil {
		return nil, log.Error("Failed to run migrations", err)
	}
	log.Success("Connected to main store, migrations completed")
	return conn, nil
}

func runMigrations(conn *gorm.DB) error {
	tx := conn.Begin()
	if tx.Error != nil {
		return tx.Error
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := tx.AutoMigrate(
		// catalog models first
		&models.Permission{},
		&models.Role{},
		&models.Hospital{},
		&models.User{},
		&models.DirectoryEntry{},

		// tenant-tagged clinical models
		&models.Patient{},
		&models.Prescription{},
		&models.Vital{},
		&models.MedicalRecord{},
		&models.Appointment{},
		&models.TenantSequence{},
	); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit().Error
}

// Close closes the main store connection.
func Close(conn *gorm.DB) error {
	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
