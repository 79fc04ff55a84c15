package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"mira-backend/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddItemCreatesLine(t *testing.T) {
	db := newTestDB(t)
	svc := NewCartService(db, nil)
	ctx := context.Background()
	user := seedUser(t, db)
	p := seedProduct(t, db, "Keyboard", "89.90", 10)

	res, err := svc.AddItem(ctx, user, p.ID, 2)
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Equal(t, "Keyboard", res.ProductName)
	assert.Equal(t, 2, res.Quantity)
	assert.NotZero(t, res.ItemID)

	cart, err := svc.GetCart(ctx, user)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, p.ID, cart.Items[0].ProductID)
	assert.Equal(t, 2, cart.Items[0].Quantity)
	assert.Equal(t, "179.8", cart.Total.String())
	assert.Equal(t, 2, cart.ItemsCount)
	assert.Equal(t, "EUR", cart.Currency)
}

func TestAddItemSumsQuantitiesAndRefreshesTimestamp(t *testing.T) {
	db := newTestDB(t)
	svc := NewCartService(db, nil)
	ctx := context.Background()
	user := seedUser(t, db)
	p := seedProduct(t, db, "Mouse", "49.90", 10)

	first := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	second := first.Add(time.Hour)

	svc.Now = func() time.Time { return first }
	_, err := svc.AddItem(ctx, user, p.ID, 2)
	require.NoError(t, err)

	svc.Now = func() time.Time { return second }
	res, err := svc.AddItem(ctx, user, p.ID, 3)
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.Equal(t, 3, res.Quantity)
	assert.Equal(t, 5, res.LineQuantity)

	var items []models.CartItem
	require.NoError(t, db.Find(&items).Error)
	require.Len(t, items, 1, "same product must never be duplicated")
	assert.Equal(t, 5, items[0].Quantity)
	assert.True(t, items[0].AddedAt.Equal(second), "added_at should be refreshed, got %v", items[0].AddedAt)
}

func TestAddItemRejectsQuantityAboveStock(t *testing.T) {
	db := newTestDB(t)
	svc := NewCartService(db, nil)
	ctx := context.Background()
	user := seedUser(t, db)
	p := seedProduct(t, db, "Monitor", "279.00", 3)

	_, err := svc.AddItem(ctx, user, p.ID, 4)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInsufficientStock)

	var stockErr *InsufficientStockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, 3, stockErr.Available)
	assert.Contains(t, err.Error(), "Available: 3")

	var count int64
	db.Model(&models.CartItem{}).Count(&count)
	assert.Zero(t, count)
}

func TestAddItemRejectsCumulativeQuantityAboveStock(t *testing.T) {
	db := newTestDB(t)
	svc := NewCartService(db, nil)
	ctx := context.Background()
	user := seedUser(t, db)
	p := seedProduct(t, db, "Headset", "59.00", 5)

	_, err := svc.AddItem(ctx, user, p.ID, 3)
	require.NoError(t, err)

	_, err = svc.AddItem(ctx, user, p.ID, 3)
	var stockErr *InsufficientStockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, 3, stockErr.InCart)
	assert.Contains(t, err.Error(), "total quantity")

	var item models.CartItem
	require.NoError(t, db.First(&item).Error)
	assert.Equal(t, 3, item.Quantity, "failed add must not modify the line")
}

func TestAddItemValidation(t *testing.T) {
	db := newTestDB(t)
	svc := NewCartService(db, nil)
	ctx := context.Background()
	user := seedUser(t, db)
	off := seedProduct(t, db, "Dock", "129.00", 10, inactive())

	_, err := svc.AddItem(ctx, user, 9999, 1)
	assert.ErrorIs(t, err, ErrProductNotFound)
	assert.True(t, IsNotFound(err))

	_, err = svc.AddItem(ctx, user, off.ID, 1)
	assert.ErrorIs(t, err, ErrProductUnavailable)

	_, err = svc.AddItem(ctx, user, off.ID, 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestAddItemConcurrentSameProduct(t *testing.T) {
	db := newTestDB(t)
	svc := NewCartService(db, nil)
	ctx := context.Background()
	user := seedUser(t, db)
	p := seedProduct(t, db, "Cable", "9.99", 100)

	// Create the cart up front so every goroutine targets the same row.
	_, err := svc.GetCart(ctx, user)
	require.NoError(t, err)

	const n = 10
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.AddItem(ctx, user, p.ID, 1); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("unexpected error: %v", err)
	}

	var items []models.CartItem
	require.NoError(t, db.Find(&items).Error)
	require.Len(t, items, 1)
	assert.Equal(t, n, items[0].Quantity)
}

func TestGetCartCreatesSingleCartRow(t *testing.T) {
	db := newTestDB(t)
	svc := NewCartService(db, nil)
	ctx := context.Background()
	user := seedUser(t, db)

	first, err := svc.GetCart(ctx, user)
	require.NoError(t, err)
	second, err := svc.GetCart(ctx, user)
	require.NoError(t, err)

	assert.Equal(t, first.CartID, second.CartID)
	assert.Empty(t, first.Items)
	assert.NotNil(t, first.Items, "items must encode as [] not null")
	assert.True(t, first.Total.IsZero())

	var count int64
	db.Model(&models.Cart{}).Where("user_id = ?", user).Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestGetCartPricesFromCurrentDiscountFlag(t *testing.T) {
	db := newTestDB(t)
	svc := NewCartService(db, nil)
	ctx := context.Background()
	user := seedUser(t, db)
	p := seedProduct(t, db, "Chair", "100.00", 10, discounted("80.00"))

	_, err := svc.AddItem(ctx, user, p.ID, 2)
	require.NoError(t, err)

	cart, err := svc.GetCart(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, "80", cart.Items[0].UnitPrice.String())
	assert.Equal(t, "160", cart.Total.String())
	assert.True(t, cart.Items[0].IsDiscount)

	// The discount ends after the line was added: the cart follows the catalog.
	require.NoError(t, db.Model(&p).Update("is_discount", false).Error)

	cart, err = svc.GetCart(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, "100", cart.Items[0].UnitPrice.String())
	assert.Equal(t, "200", cart.Total.String())
}

func TestGetCartTotalIsSumOfRoundedSubtotals(t *testing.T) {
	db := newTestDB(t)
	svc := NewCartService(db, nil)
	ctx := context.Background()
	user := seedUser(t, db)
	a := seedProduct(t, db, "Pen", "0.33", 100)
	b := seedProduct(t, db, "Pad", "1.17", 100)

	_, err := svc.AddItem(ctx, user, a.ID, 3)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, user, b.ID, 7)
	require.NoError(t, err)

	cart, err := svc.GetCart(ctx, user)
	require.NoError(t, err)

	var sum = cart.Items[0].Subtotal.Add(cart.Items[1].Subtotal)
	assert.True(t, sum.Round(2).Equal(cart.Total))
	assert.Equal(t, "9.18", cart.Total.StringFixed(2))
	assert.Equal(t, 10, cart.ItemsCount)
}

func TestGetCartHidesInactiveAndOrdersNewestFirst(t *testing.T) {
	db := newTestDB(t)
	svc := NewCartService(db, nil)
	ctx := context.Background()
	user := seedUser(t, db)
	older := seedProduct(t, db, "Older", "1.00", 10)
	newer := seedProduct(t, db, "Newer", "2.00", 10)
	hidden := seedProduct(t, db, "Hidden", "3.00", 10)

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for i, p := range []models.Product{older, hidden, newer} {
		at := base.Add(time.Duration(i) * time.Minute)
		svc.Now = func() time.Time { return at }
		_, err := svc.AddItem(ctx, user, p.ID, 1)
		require.NoError(t, err)
	}
	require.NoError(t, db.Model(&hidden).Update("is_active", false).Error)

	cart, err := svc.GetCart(ctx, user)
	require.NoError(t, err)
	require.Len(t, cart.Items, 2)
	assert.Equal(t, newer.ID, cart.Items[0].ProductID)
	assert.Equal(t, older.ID, cart.Items[1].ProductID)
	assert.Equal(t, "3", cart.Total.String())

	var lines int64
	db.Model(&models.CartItem{}).Count(&lines)
	assert.EqualValues(t, 3, lines, "inactive lines are hidden, not deleted")
}

func TestUpdateItem(t *testing.T) {
	db := newTestDB(t)
	svc := NewCartService(db, nil)
	ctx := context.Background()
	user := seedUser(t, db)
	other := seedUser(t, db)
	p := seedProduct(t, db, "Lamp", "20.00", 5)

	added, err := svc.AddItem(ctx, user, p.ID, 1)
	require.NoError(t, err)

	res, err := svc.UpdateItem(ctx, user, added.ItemID, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Quantity)
	assert.Equal(t, "Lamp", res.ProductName)

	_, err = svc.UpdateItem(ctx, user, added.ItemID, 6)
	assert.ErrorIs(t, err, ErrInsufficientStock)

	_, err = svc.UpdateItem(ctx, other, added.ItemID, 1)
	assert.ErrorIs(t, err, ErrItemNotFound)

	_, err = svc.UpdateItem(ctx, user, added.ItemID, 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	var item models.CartItem
	require.NoError(t, db.First(&item, added.ItemID).Error)
	assert.Equal(t, 4, item.Quantity)
}

func TestRemoveItemOtherUserIsNotFound(t *testing.T) {
	db := newTestDB(t)
	svc := NewCartService(db, nil)
	ctx := context.Background()
	owner := seedUser(t, db)
	intruder := seedUser(t, db)
	p := seedProduct(t, db, "Desk", "150.00", 5)

	added, err := svc.AddItem(ctx, owner, p.ID, 1)
	require.NoError(t, err)

	_, err = svc.RemoveItem(ctx, intruder, added.ItemID)
	assert.ErrorIs(t, err, ErrItemNotFound)

	cart, err := svc.GetCart(ctx, owner)
	require.NoError(t, err)
	assert.Len(t, cart.Items, 1, "owner's cart must be unaffected")

	res, err := svc.RemoveItem(ctx, owner, added.ItemID)
	require.NoError(t, err)
	assert.Equal(t, "Desk", res.ProductName)

	_, err = svc.RemoveItem(ctx, owner, added.ItemID)
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestClearCart(t *testing.T) {
	db := newTestDB(t)
	svc := NewCartService(db, nil)
	ctx := context.Background()
	user := seedUser(t, db)

	removed, err := svc.ClearCart(ctx, uuid.New())
	require.NoError(t, err)
	assert.Zero(t, removed)

	for _, name := range []string{"A", "B", "C"} {
		p := seedProduct(t, db, name, "1.00", 5)
		_, err := svc.AddItem(ctx, user, p.ID, 1)
		require.NoError(t, err)
	}

	removed, err = svc.ClearCart(ctx, user)
	require.NoError(t, err)
	assert.EqualValues(t, 3, removed)

	var carts int64
	db.Model(&models.Cart{}).Where("user_id = ?", user).Count(&carts)
	assert.EqualValues(t, 1, carts, "the cart row itself is kept")
}
