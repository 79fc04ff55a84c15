package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"mira-backend/models"
)

func syncCart(t *testing.T, router http.Handler, token string, items []map[string]interface{}) *httptest.ResponseRecorder {
	t.Helper()
	if items == nil {
		items = []map[string]interface{}{}
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("POST", "/api/cart/sync", map[string]interface{}{"items": items}, token))
	if w.Code != http.StatusOK {
		t.Fatalf("sync: expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	return w
}

func lineQuantity(t *testing.T, userEmail string, productID uint) int {
	t.Helper()
	var item models.CartItem
	err := testDB.Joins("JOIN carts ON carts.id = cart_items.cart_id").
		Joins("JOIN users ON users.id = carts.user_id").
		Where("users.email = ? AND cart_items.product_id = ?", userEmail, productID).
		First(&item).Error
	if err != nil {
		return 0
	}
	return item.Quantity
}

func TestSyncPushesClientCart(t *testing.T) {
	db := freshDB()
	router := setupCartRouter(db)
	_, token := seedTestUser(db, "push@test.com", models.RoleCustomer)
	prod := seedProduct(db, "Pushed", "4.00")

	w := syncCart(t, router, token, []map[string]interface{}{
		{"id": prod.ID, "name": "Pushed", "price": 4, "quantity": 2},
	})

	data := responseData(w)
	if data["direction"] != "pushed" {
		t.Errorf("expected direction pushed, got %v", data["direction"])
	}
	if q := lineQuantity(t, "push@test.com", prod.ID); q != 2 {
		t.Errorf("expected server line quantity 2, got %d", q)
	}

	items, _ := data["items"].([]interface{})
	if len(items) != 1 {
		t.Fatalf("expected client cart unchanged with 1 line, got %d", len(items))
	}
	line := items[0].(map[string]interface{})
	if line["id"] != float64(prod.ID) || line["quantity"] != float64(2) {
		t.Errorf("unexpected client line %v", line)
	}
}

func TestSyncSumsWithExistingServerLine(t *testing.T) {
	db := freshDB()
	router := setupCartRouter(db)
	_, token := seedTestUser(db, "merge@test.com", models.RoleCustomer)
	prod := seedProduct(db, "Merged", "4.00")
	addToCart(t, router, token, prod.ID, 3)

	w := syncCart(t, router, token, []map[string]interface{}{
		{"id": prod.ID, "name": "Merged", "price": 4, "quantity": 2},
	})

	if q := lineQuantity(t, "merge@test.com", prod.ID); q != 5 {
		t.Errorf("expected additive merge to 5, got %d", q)
	}
	// The client cart is not rewritten from the server in this branch.
	items, _ := responseData(w)["items"].([]interface{})
	if len(items) != 1 || items[0].(map[string]interface{})["quantity"] != float64(2) {
		t.Errorf("expected client cart left as-is, got %v", items)
	}
}

func TestSyncReportsLineFailures(t *testing.T) {
	db := freshDB()
	router := setupCartRouter(db)
	_, token := seedTestUser(db, "partial@test.com", models.RoleCustomer)
	fine := seedProduct(db, "Fine", "1.00")
	scarce := seedProduct(db, "Scarce Sync", "1.00", withStock(1))
	retired := seedProduct(db, "Retired Sync", "1.00", inactiveProduct())

	w := syncCart(t, router, token, []map[string]interface{}{
		{"id": scarce.ID, "quantity": 5},
		{"id": retired.ID, "quantity": 1},
		{"id": fine.ID, "quantity": 1},
	})

	results, _ := responseData(w)["results"].([]interface{})
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	wantOK := []bool{false, false, true}
	for i, r := range results {
		res := r.(map[string]interface{})
		if res["ok"] != wantOK[i] {
			t.Errorf("result %d: expected ok=%v, got %v", i, wantOK[i], res)
		}
		if reason, _ := res["error"].(string); !wantOK[i] && reason == "" {
			t.Errorf("result %d: expected a failure reason", i)
		}
	}
	if q := lineQuantity(t, "partial@test.com", fine.ID); q != 1 {
		t.Errorf("expected later lines to still be pushed, got quantity %d", q)
	}
}

func TestSyncPullsServerCart(t *testing.T) {
	db := freshDB()
	router := setupCartRouter(db)
	_, token := seedTestUser(db, "pull@test.com", models.RoleCustomer)
	prod := seedProduct(db, "Pulled", "7.00", withDiscount("5.00"))
	addToCart(t, router, token, prod.ID, 1)

	w := syncCart(t, router, token, nil)

	data := responseData(w)
	if data["direction"] != "pulled" {
		t.Errorf("expected direction pulled, got %v", data["direction"])
	}
	if data["pulled"] != float64(1) {
		t.Errorf("expected 1 pulled line, got %v", data["pulled"])
	}
	items, _ := data["items"].([]interface{})
	if len(items) != 1 {
		t.Fatalf("expected 1 client line, got %d", len(items))
	}
	line := items[0].(map[string]interface{})
	if line["id"] != float64(prod.ID) || line["quantity"] != float64(1) {
		t.Errorf("unexpected pulled line %v", line)
	}
	if line["price"] != float64(5) {
		t.Errorf("expected pulled price to be the current unit price 5, got %v", line["price"])
	}
	if q := lineQuantity(t, "pull@test.com", prod.ID); q != 1 {
		t.Errorf("expected server cart unchanged, got quantity %d", q)
	}
}

func TestSyncNothingToDo(t *testing.T) {
	db := freshDB()
	router := setupCartRouter(db)
	_, token := seedTestUser(db, "noop@test.com", models.RoleCustomer)

	w := syncCart(t, router, token, nil)
	data := responseData(w)
	if data["direction"] != "noop" {
		t.Errorf("expected direction noop, got %v", data["direction"])
	}
	if items, _ := data["items"].([]interface{}); len(items) != 0 {
		t.Errorf("expected empty client cart, got %v", items)
	}
}

func TestSyncRejectsOversizedCart(t *testing.T) {
	db := freshDB()
	router := setupCartRouter(db)
	_, token := seedTestUser(db, "big@test.com", models.RoleCustomer)

	items := make([]map[string]interface{}, maxSyncLines+1)
	for i := range items {
		items[i] = map[string]interface{}{"id": i + 1, "quantity": 1}
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("POST", "/api/cart/sync", map[string]interface{}{"items": items}, token))
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", w.Code)
	}
}
