package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mira-backend/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const Currency = "EUR"

type CartItemView struct {
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

type CartView struct {
	CartID     uint            `json:"cart_id"`
	Items      []CartItemView  `json:"items"`
	Total      decimal.Decimal `json:"total"`
	ItemsCount int             `json:"items_count"`
	Currency   string          `json:"currency"`
}

type AddResult struct {
	ItemID      uint   `json:"item_id"`
	ProductName string `json:"product_name"`
	// Quantity is the amount added by this call; LineQuantity is the line's
	// quantity afterwards.
	Quantity     int  `json:"quantity"`
	LineQuantity int  `json:"line_quantity"`
	Created      bool `json:"-"`
}

type ItemResult struct {
	ItemID      uint   `json:"item_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity,omitempty"`
}

// CartService owns the server-side cart of every user. Each call is a single
// request/response; mutations are durable when the call returns.
type CartService struct {
	DB     *gorm.DB
	Locker Locker
	Now    func() time.Time
}

func NewCartService(db *gorm.DB, locker Locker) *CartService {
	if locker == nil {
		locker = NewMemoryLocker()
	}
	return &CartService{DB: db, Locker: locker, Now: time.Now}
}

func (s *CartService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// LineSubtotal is unit × qty rounded to cents.
func LineSubtotal(unit decimal.Decimal, qty int) decimal.Decimal {
	return unit.Mul(decimal.NewFromInt(int64(qty))).Round(2)
}

type cartRow struct {
	ItemID        uint
	Quantity      int
	AddedAt       time.Time
	ProductID     uint
	ProductName   string
	Slug          string
	Price         decimal.Decimal
	DiscountPrice decimal.Decimal
	IsDiscount    bool
	ImageURL      string
	Stock         int
}

// GetCart returns the user's cart priced against the live catalog. Lines whose
// product is inactive are hidden, not deleted.
func (s *CartService) GetCart(ctx context.Context, userID uuid.UUID) (*CartView, error) {
	cart, err := s.getOrCreateCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	var rows []cartRow
	err = s.DB.WithContext(ctx).
		Table("cart_items AS ci").
		Select(`ci.id AS item_id, ci.quantity, ci.added_at,
			p.id AS product_id, p.name AS product_name, p.slug, p.price,
			p.discount_price, p.is_discount, p.image_url, p.stock`).
		Joins("JOIN products p ON p.id = ci.product_id").
		Where("ci.cart_id = ? AND p.is_active = ? AND p.deleted_at IS NULL", cart.ID, true).
		Order("ci.added_at DESC, ci.id DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load cart items: %w", err)
	}

	view := &CartView{
		CartID:   cart.ID,
		Items:    make([]CartItemView, 0, len(rows)),
		Currency: Currency,
	}
	total := decimal.Zero
	for _, r := range rows {
		product := models.Product{Price: r.Price, DiscountPrice: r.DiscountPrice, IsDiscount: r.IsDiscount}
		unit := product.UnitPrice()
		subtotal := LineSubtotal(unit, r.Quantity)

		view.Items = append(view.Items, CartItemView{
			ItemID:      r.ItemID,
			ProductID:   r.ProductID,
			ProductName: r.ProductName,
			Slug:        r.Slug,
			Quantity:    r.Quantity,
			UnitPrice:   unit,
			Subtotal:    subtotal,
			ImageURL:    r.ImageURL,
			Stock:       r.Stock,
			IsDiscount:  r.IsDiscount,
			AddedAt:     r.AddedAt,
		})
		total = total.Add(subtotal)
		view.ItemsCount += r.Quantity
	}
	view.Total = total.Round(2)

	return view, nil
}

// AddItem puts qty units of the product in the cart, summing with an existing
// line. The stock check covers the line's resulting quantity.
func (s *CartService) AddItem(ctx context.Context, userID uuid.UUID, productID uint, qty int) (*AddResult, error) {
	if qty < 1 {
		return nil, ErrInvalidQuantity
	}
	db := s.DB.WithContext(ctx)

	var product models.Product
	if err := db.First(&product, productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("lookup product: %w", err)
	}
	if !product.IsActive {
		return nil, ErrProductUnavailable
	}
	if product.Stock < qty {
		return nil, &InsufficientStockError{Available: product.Stock, Requested: qty}
	}

	cart, err := s.getOrCreateCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	unlock, err := s.Locker.Lock(ctx, fmt.Sprintf("cart:%d:product:%d", cart.ID, product.ID))
	if err != nil {
		return nil, fmt.Errorf("lock cart line: %w", err)
	}
	defer unlock()

	now := s.now()
	var existing models.CartItem
	err = db.Where("cart_id = ? AND product_id = ?", cart.ID, product.ID).First(&existing).Error
	switch {
	case err == nil:
		newQty := existing.Quantity + qty
		if newQty > product.Stock {
			return nil, &InsufficientStockError{Available: product.Stock, Requested: qty, InCart: existing.Quantity}
		}
		if err := db.Model(&existing).Updates(map[string]any{"quantity": newQty, "added_at": now}).Error; err != nil {
			return nil, fmt.Errorf("update cart item: %w", err)
		}
		return &AddResult{ItemID: existing.ID, ProductName: product.Name, Quantity: qty, LineQuantity: newQty}, nil

	case errors.Is(err, gorm.ErrRecordNotFound):
		item := models.CartItem{CartID: cart.ID, ProductID: product.ID, Quantity: qty, AddedAt: now}
		if err := db.Create(&item).Error; err != nil {
			return nil, fmt.Errorf("insert cart item: %w", err)
		}
		return &AddResult{ItemID: item.ID, ProductName: product.Name, Quantity: qty, LineQuantity: qty, Created: true}, nil

	default:
		return nil, fmt.Errorf("lookup cart item: %w", err)
	}
}

// UpdateItem sets the quantity of one of the user's cart items.
func (s *CartService) UpdateItem(ctx context.Context, userID uuid.UUID, itemID uint, qty int) (*ItemResult, error) {
	if qty < 1 {
		return nil, ErrInvalidQuantity
	}

	item, err := s.findOwnedItem(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}
	if item.Product.DeletedAt.Valid {
		return nil, ErrItemNotFound
	}
	if qty > item.Product.Stock {
		return nil, &InsufficientStockError{Available: item.Product.Stock, Requested: qty}
	}

	if err := s.DB.WithContext(ctx).Model(item).Update("quantity", qty).Error; err != nil {
		return nil, fmt.Errorf("update cart item: %w", err)
	}
	return &ItemResult{ItemID: item.ID, ProductName: item.Product.Name, Quantity: qty}, nil
}

// RemoveItem deletes one of the user's cart items.
func (s *CartService) RemoveItem(ctx context.Context, userID uuid.UUID, itemID uint) (*ItemResult, error) {
	item, err := s.findOwnedItem(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}

	if err := s.DB.WithContext(ctx).Delete(&models.CartItem{}, item.ID).Error; err != nil {
		return nil, fmt.Errorf("delete cart item: %w", err)
	}
	return &ItemResult{ItemID: item.ID, ProductName: item.Product.Name}, nil
}

// ClearCart deletes every line of the user's cart and reports how many went.
// A user without a cart row has nothing to clear.
func (s *CartService) ClearCart(ctx context.Context, userID uuid.UUID) (int64, error) {
	db := s.DB.WithContext(ctx)

	var cart models.Cart
	if err := db.Where("user_id = ?", userID).First(&cart).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("lookup cart: %w", err)
	}

	res := db.Where("cart_id = ?", cart.ID).Delete(&models.CartItem{})
	if res.Error != nil {
		return 0, fmt.Errorf("clear cart: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// getOrCreateCart returns the user's cart, inserting it on first use. The
// unique index on user_id turns a concurrent insert into a no-op.
func (s *CartService) getOrCreateCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	db := s.DB.WithContext(ctx)

	var cart models.Cart
	err := db.Where("user_id = ?", userID).First(&cart).Error
	if err == nil {
		return &cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("lookup cart: %w", err)
	}

	cart = models.Cart{UserID: userID}
	err = db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(&cart).Error
	if err != nil {
		return nil, fmt.Errorf("create cart: %w", err)
	}
	if cart.ID != 0 {
		return &cart, nil
	}

	if err := db.Where("user_id = ?", userID).First(&cart).Error; err != nil {
		return nil, fmt.Errorf("reload cart: %w", err)
	}
	return &cart, nil
}

func (s *CartService) findOwnedItem(ctx context.Context, userID uuid.UUID, itemID uint) (*models.CartItem, error) {
	var item models.CartItem
	err := s.DB.WithContext(ctx).
		Joins("JOIN carts ON carts.id = cart_items.cart_id").
		Where("cart_items.id = ? AND carts.user_id = ?", itemID, userID).
		Preload("Product", func(tx *gorm.DB) *gorm.DB { return tx.Unscoped() }).
		First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("lookup cart item: %w", err)
	}
	if item.Product == nil {
		return nil, ErrItemNotFound
	}
	return &item, nil
}
