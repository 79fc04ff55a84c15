// Package cartsync holds the client-side cart and the routine that reconciles
// it with the server cart when a session is established.
package cartsync

import (
	"time"

	"github.com/shopspring/decimal"
)

// Line is one product in the client cart. The JSON names match what the
// storefront writes under the mira_cart key.
type Line struct {
	ProductID   uint            `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	UnitPrice   decimal.Decimal `json:"price"`
	ImageURL    string          `json:"image_url"`
	Quantity    int             `json:"quantity"`
}

// Subtotal is unit price × quantity rounded to cents.
func (l Line) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))).Round(2)
}

// ServerItem is a line of the server cart as returned by GET /api/cart.
type ServerItem struct {
	ItemID      uint            `json:"item_id"`
	ProductID   uint            `json:"product_id"`
	ProductName string          `json:"product_name"`
	Slug        string          `json:"slug"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	ImageURL    string          `json:"image_url"`
	Stock       int             `json:"stock"`
	IsDiscount  bool            `json:"is_discount"`
	AddedAt     time.Time       `json:"added_at"`
}

// ServerCart is the data of GET /api/cart.
type ServerCart struct {
	CartID     uint            `json:"cart_id"`
	Items      []ServerItem    `json:"items"`
	Total      decimal.Decimal `json:"total"`
	ItemsCount int             `json:"items_count"`
	Currency   string          `json:"currency"`
}

// AddResult is the data of POST /api/cart.
type AddResult struct {
	ItemID       uint   `json:"item_id"`
	ProductName  string `json:"product_name"`
	Quantity     int    `json:"quantity"`
	LineQuantity int    `json:"line_quantity"`
}

// FromServerItem converts a server line to a client line. The server does not
// send descriptions, so Description is left empty.
func FromServerItem(it ServerItem) Line {
	return Line{
		ProductID: it.ProductID,
		Name:      it.ProductName,
		UnitPrice: it.UnitPrice,
		ImageURL:  it.ImageURL,
		Quantity:  it.Quantity,
	}
}

// Product is the catalog data the client needs to put a product in the cart.
type Product struct {
	ID          uint
	Name        string
	Description string
	UnitPrice   decimal.Decimal
	ImageURL    string
}

// LineFromProduct builds a client line for qty units of p.
func LineFromProduct(p Product, qty int) Line {
	return Line{
		ProductID:   p.ID,
		Name:        p.Name,
		Description: p.Description,
		UnitPrice:   p.UnitPrice,
		ImageURL:    p.ImageURL,
		Quantity:    qty,
	}
}
