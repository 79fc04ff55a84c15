// Package apiclient talks to the storefront HTTP API on behalf of the mira CLI.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"mira-backend/cartsync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// APIError is a non-2xx response or a response with success=false.
type APIError struct {
	Status  int
	Message string
	Errors  []string
}

func (e *APIError) Error() string {
	if len(e.Errors) > 0 {
		return fmt.Sprintf("%s (%d): %s", e.Message, e.Status, strings.Join(e.Errors, "; "))
	}
	return fmt.Sprintf("%s (%d)", e.Message, e.Status)
}

// Is makes a 401 match cartsync.ErrUnauthorized.
func (e *APIError) Is(target error) bool {
	return target == cartsync.ErrUnauthorized && e.Status == http.StatusUnauthorized
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Errors  []string        `json:"errors"`
}

type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

func New(baseURL, token string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTP:    &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	req.Header.Set("X-Request-ID", uuid.NewString())

	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return &APIError{Status: resp.StatusCode, Message: "invalid response from server"}
	}
	if resp.StatusCode >= 300 || !env.Success {
		msg := env.Message
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: msg, Errors: env.Errors}
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode %s %s: %w", method, path, err)
		}
	}
	return nil
}

type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Phone     string    `json:"phone"`
	Role      string    `json:"role"`
}

type AuthResult struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type RegisterRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
	Password  string `json:"password"`
}

// Login exchanges credentials for a token and keeps it on the client.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	var res AuthResult
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", body, &res); err != nil {
		return nil, err
	}
	c.Token = res.Token
	return &res, nil
}

func (c *Client) Register(ctx context.Context, in RegisterRequest) (*AuthResult, error) {
	var res AuthResult
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", in, &res); err != nil {
		return nil, err
	}
	c.Token = res.Token
	return &res, nil
}

type Product struct {
	ID            uint            `json:"id"`
	Name          string          `json:"name"`
	Slug          string          `json:"slug"`
	Description   string          `json:"description"`
	Category      string          `json:"category"`
	Price         decimal.Decimal `json:"price"`
	DiscountPrice decimal.Decimal `json:"discount_price"`
	IsDiscount    bool            `json:"is_discount"`
	Stock         int             `json:"stock"`
	ImageURL      string          `json:"image_url"`
}

func (p Product) UnitPrice() decimal.Decimal {
	if p.IsDiscount {
		return p.DiscountPrice
	}
	return p.Price
}

// CartProduct is the subset of p kept in a client cart line.
func (p Product) CartProduct() cartsync.Product {
	return cartsync.Product{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		UnitPrice:   p.UnitPrice(),
		ImageURL:    p.ImageURL,
	}
}

// GetProduct looks a product up by numeric id or slug.
func (c *Client) GetProduct(ctx context.Context, idOrSlug string) (*Product, error) {
	var p Product
	if err := c.do(ctx, http.MethodGet, "/api/products/"+url.PathEscape(idOrSlug), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) GetCart(ctx context.Context) (*cartsync.ServerCart, error) {
	var cart cartsync.ServerCart
	if err := c.do(ctx, http.MethodGet, "/api/cart", nil, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

func (c *Client) AddItem(ctx context.Context, productID uint, qty int) (*cartsync.AddResult, error) {
	var res cartsync.AddResult
	body := map[string]any{"product_id": productID, "quantity": qty}
	if err := c.do(ctx, http.MethodPost, "/api/cart", body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) UpdateItem(ctx context.Context, itemID uint, qty int) error {
	path := fmt.Sprintf("/api/cart/%d", itemID)
	return c.do(ctx, http.MethodPut, path, map[string]int{"quantity": qty}, nil)
}

func (c *Client) RemoveItem(ctx context.Context, itemID uint) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/cart/%d", itemID), nil, nil)
}

// ClearCart empties the server cart and returns the number of removed lines.
func (c *Client) ClearCart(ctx context.Context) (int64, error) {
	var res struct {
		ItemsRemoved int64 `json:"items_removed"`
	}
	if err := c.do(ctx, http.MethodDelete, "/api/cart?clear=1", nil, &res); err != nil {
		return 0, err
	}
	return res.ItemsRemoved, nil
}
