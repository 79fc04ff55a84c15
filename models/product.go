package models

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func init() {
	// Prices are JSON numbers for the storefront client.
	decimal.MarshalJSONWithoutQuotes = true
}

type Product struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	Name          string          `gorm:"not null;index" json:"name"`
	Slug          string          `gorm:"uniqueIndex;not null" json:"slug"`
	Description   string          `json:"description"`
	Category      string          `gorm:"index" json:"category"`
	Price         decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	DiscountPrice decimal.Decimal `gorm:"type:decimal(10,2)" json:"discount_price"`
	IsDiscount    bool            `gorm:"not null" json:"is_discount"`
	Stock         int             `gorm:"not null" json:"stock"`
	IsActive      bool            `gorm:"not null;index" json:"is_active"`
	ImageURL      string          `json:"image_url"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	DeletedAt     gorm.DeletedAt  `gorm:"index" json:"-"`
}

// UnitPrice is the price a customer pays right now: the discount price while
// the product is flagged as discounted, the list price otherwise.
func (p *Product) UnitPrice() decimal.Decimal {
	if p.IsDiscount {
		return p.DiscountPrice
	}
	return p.Price
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.Slug == "" {
		p.Slug = Slugify(p.Name)
	}
	return nil
}

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases s and collapses every run of non-alphanumerics into a dash.
func Slugify(s string) string {
	slug := nonSlugChars.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = "product"
	}
	return slug
}
