package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"mira-backend/cartsync"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestLoginStoresToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/login", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "a@b.c", body["email"])

		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"message": "Login successful",
			"data": map[string]any{
				"token": "tok-123",
				"user":  map[string]any{"email": "a@b.c", "role": "customer"},
			},
		})
	}))
	defer srv.Close()

	c := New(srv.URL+"/", "")
	res, err := c.Login(context.Background(), "a@b.c", "secret")
	require.NoError(t, err)
	assert.Equal(t, "tok-123", res.Token)
	assert.Equal(t, "customer", res.User.Role)
	assert.Equal(t, "tok-123", c.Token)
}

func TestCartCallsSendBearerToken(t *testing.T) {
	var seen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		seen = append(seen, r.Method+" "+r.URL.RequestURI())

		switch {
		case r.Method == http.MethodGet:
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": map[string]any{
				"cart_id": 1,
				"items": []map[string]any{
					{"item_id": 4, "product_id": 2, "product_name": "Mouse", "quantity": 2, "unit_price": 39.9, "subtotal": 79.8},
				},
				"total":       79.8,
				"items_count": 2,
				"currency":    "EUR",
			}})
		case r.Method == http.MethodPost:
			writeJSON(w, http.StatusCreated, map[string]any{"success": true, "data": map[string]any{
				"item_id": 4, "product_name": "Mouse", "quantity": 1, "line_quantity": 3,
			}})
		case r.URL.Query().Get("clear") == "1":
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": map[string]any{"items_removed": 3}})
		default:
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": map[string]any{"item_id": 4}})
		}
	}))
	defer srv.Close()

	c := New(srv.URL, "tok")
	ctx := context.Background()

	cart, err := c.GetCart(ctx)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, uint(2), cart.Items[0].ProductID)
	assert.Equal(t, "79.8", cart.Total.String())

	added, err := c.AddItem(ctx, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, added.LineQuantity)

	require.NoError(t, c.UpdateItem(ctx, 4, 5))
	require.NoError(t, c.RemoveItem(ctx, 4))

	n, err := c.ClearCart(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	assert.Equal(t, []string{
		"GET /api/cart",
		"POST /api/cart",
		"PUT /api/cart/4",
		"DELETE /api/cart/4",
		"DELETE /api/cart?clear=1",
	}, seen)
}

func TestErrorEnvelopeBecomesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"message": "insufficient stock. Available: 2",
			"errors":  []string{"quantity"},
		})
	}))
	defer srv.Close()

	_, err := New(srv.URL, "tok").AddItem(context.Background(), 1, 5)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "insufficient stock. Available: 2", apiErr.Message)
	assert.Contains(t, err.Error(), "quantity")
	assert.False(t, errors.Is(err, cartsync.ErrUnauthorized))
}

func TestUnauthorizedMatchesCartsync(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{
			"success": false,
			"message": "Invalid or expired token",
		})
	}))
	defer srv.Close()

	_, err := New(srv.URL, "expired").AddItem(context.Background(), 1, 1)
	assert.ErrorIs(t, err, cartsync.ErrUnauthorized)
}

func TestNonJSONResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := New(srv.URL, "").GetCart(context.Background())
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
}

func TestProductUnitPrice(t *testing.T) {
	var p Product
	require.NoError(t, json.Unmarshal([]byte(`{"id":1,"name":"Chair","price":100,"discount_price":80,"is_discount":true}`), &p))
	assert.Equal(t, "80", p.UnitPrice().String())

	p.IsDiscount = false
	cp := p.CartProduct()
	assert.Equal(t, "100", cp.UnitPrice.String())
	assert.Equal(t, uint(1), cp.ID)
}
