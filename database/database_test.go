package database

import (
	"testing"

	"mira-backend/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatal(err)
	}
	// Every pooled connection to ":memory:" would otherwise see its own empty database.
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)

	if err := Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestMigrateCreatesTables(t *testing.T) {
	db := setupTestDB(t)

	for _, table := range []string{"users", "products", "carts", "cart_items", "reviews", "contact_messages"} {
		if !db.Migrator().HasTable(table) {
			t.Errorf("expected table %s to exist", table)
		}
	}
	if !db.Migrator().HasIndex(&models.CartItem{}, "idx_cart_items_cart_product") {
		t.Error("expected unique (cart_id, product_id) index on cart_items")
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	if err := Migrate(db); err != nil {
		t.Fatalf("second migrate failed: %v", err)
	}
}

func TestCreateDefaultAdminNew(t *testing.T) {
	db := setupTestDB(t)

	if err := CreateDefaultAdmin(db, "boss@mira.test", "s3cret-pass"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	var admin models.User
	if err := db.Where("email = ?", "boss@mira.test").First(&admin).Error; err != nil {
		t.Fatalf("admin not created: %v", err)
	}
	if admin.Role != models.RoleAdmin {
		t.Errorf("expected role admin, got %s", admin.Role)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.Password), []byte("s3cret-pass")); err != nil {
		t.Error("stored password does not match")
	}
}

func TestCreateDefaultAdminAlreadyExists(t *testing.T) {
	db := setupTestDB(t)

	if err := CreateDefaultAdmin(db, "boss@mira.test", "first"); err != nil {
		t.Fatal(err)
	}
	if err := CreateDefaultAdmin(db, "boss@mira.test", "second"); err != nil {
		t.Fatalf("expected no error on second call, got %v", err)
	}

	var count int64
	db.Model(&models.User{}).Where("email = ?", "boss@mira.test").Count(&count)
	if count != 1 {
		t.Errorf("expected 1 admin, got %d", count)
	}
}

func TestSeedDemoCatalogOnlyWhenEmpty(t *testing.T) {
	db := setupTestDB(t)

	n, err := SeedDemoCatalog(db)
	if err != nil {
		t.Fatal(err)
	}
	if n == 0 {
		t.Fatal("expected products to be seeded")
	}

	n, err = SeedDemoCatalog(db)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("expected no products on second seed, got %d", n)
	}

	var p models.Product
	if err := db.Where("slug = ?", "gaming-mouse").First(&p).Error; err != nil {
		t.Fatalf("expected slug to be generated: %v", err)
	}
	if p.UnitPrice().String() != "39.9" {
		t.Errorf("expected discounted unit price 39.9, got %s", p.UnitPrice())
	}
}
