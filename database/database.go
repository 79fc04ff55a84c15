package database

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"mira-backend/models"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const defaultDSN = "host=localhost user=postgres password=postgres dbname=mira_ecommerce port=5432 sslmode=disable"

// Connect opens the PostgreSQL database behind dsn.
func Connect(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		dsn = defaultDSN
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	return db, nil
}

// Migrate creates or updates every table. The models avoid dialect-specific
// defaults so the same schema works on PostgreSQL and SQLite.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.Cart{},
		&models.CartItem{},
		&models.Review{},
		&models.ContactMessage{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// CreateDefaultAdmin inserts the admin account unless a user with that email exists.
func CreateDefaultAdmin(db *gorm.DB, email, password string) error {
	if email == "" {
		email = "admin@mira.local"
	}
	if password == "" {
		password = "admin123"
	}

	var existing models.User
	err := db.Where("email = ?", email).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("lookup admin: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin := models.User{
		Email:     email,
		Password:  string(hashed),
		Role:      models.RoleAdmin,
		FirstName: "Admin",
		LastName:  "User",
	}
	if err := db.Create(&admin).Error; err != nil {
		return fmt.Errorf("create admin: %w", err)
	}

	slog.Info("default admin created", "email", email)
	return nil
}

// SeedDemoCatalog inserts a few products when the catalog is empty. It is
// meant for local development.
func SeedDemoCatalog(db *gorm.DB) (int, error) {
	var count int64
	if err := db.Model(&models.Product{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	if count > 0 {
		return 0, nil
	}

	products := []models.Product{
		{Name: "Mechanical Keyboard", Category: "peripherals", Price: decimal.RequireFromString("89.90"), Stock: 25, IsActive: true},
		{Name: "Gaming Mouse", Category: "peripherals", Price: decimal.RequireFromString("49.90"), DiscountPrice: decimal.RequireFromString("39.90"), IsDiscount: true, Stock: 40, IsActive: true},
		{Name: "27in Monitor", Category: "displays", Price: decimal.RequireFromString("279.00"), Stock: 8, IsActive: true},
		{Name: "USB-C Dock", Category: "accessories", Price: decimal.RequireFromString("129.00"), Stock: 0, IsActive: false},
	}
	if err := db.Create(&products).Error; err != nil {
		return 0, fmt.Errorf("seed products: %w", err)
	}
	return len(products), nil
}
