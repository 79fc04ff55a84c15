package services

import (
	"fmt"
	"sync/atomic"
	"testing"

	"mira-backend/database"
	"mira-backend/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var dbSeq atomic.Int64

// newTestDB opens a private in-memory SQLite database with the full schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:services_%d?mode=memory&cache=shared", dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

func seedUser(t *testing.T, db *gorm.DB) uuid.UUID {
	t.Helper()
	u := models.User{Email: uuid.NewString() + "@test.local", Password: "x"}
	require.NoError(t, db.Create(&u).Error)
	return u.ID
}

type productOpt func(*models.Product)

func inactive() productOpt { return func(p *models.Product) { p.IsActive = false } }

func discounted(price string) productOpt {
	return func(p *models.Product) {
		p.IsDiscount = true
		p.DiscountPrice = decimal.RequireFromString(price)
	}
}

func seedProduct(t *testing.T, db *gorm.DB, name, price string, stock int, opts ...productOpt) models.Product {
	t.Helper()
	p := models.Product{
		Name:     name,
		Price:    decimal.RequireFromString(price),
		Stock:    stock,
		IsActive: true,
	}
	for _, opt := range opts {
		opt(&p)
	}
	require.NoError(t, db.Create(&p).Error)
	return p
}
