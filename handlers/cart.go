package handlers

import (
	"net/http"
	"strconv"

	"mira-backend/metrics"
	"mira-backend/middleware"
	"mira-backend/services"
	"mira-backend/utils"

	"github.com/gin-gonic/gin"
)

type CartHandler struct {
	Service *services.CartService
}

func NewCartHandler(svc *services.CartService) *CartHandler {
	return &CartHandler{Service: svc}
}

// itemIDParam reads the item id from the path or from ?id=.
func itemIDParam(c *gin.Context) (uint, bool) {
	raw := c.Param("id")
	if raw == "" {
		raw = c.Query("id")
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func (h *CartHandler) GetCart(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		utils.Error(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	cart, err := h.Service.GetCart(c.Request.Context(), userID)
	if err != nil {
		metrics.CartOperation("get_cart", respondCartError(c, "get_cart", err))
		return
	}
	metrics.CartOperation("get_cart", "ok")
	utils.OK(c, cart)
}

func (h *CartHandler) AddToCart(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		utils.Error(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req struct {
		ProductID uint `json:"product_id" binding:"required"`
		Quantity  *int `json:"quantity"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	qty := 1
	if req.Quantity != nil {
		qty = *req.Quantity
	}

	res, err := h.Service.AddItem(c.Request.Context(), userID, req.ProductID, qty)
	if err != nil {
		metrics.CartOperation("add_item", respondCartError(c, "add_item", err))
		return
	}
	metrics.CartOperation("add_item", "ok")

	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	utils.Success(c, status, "Product added to cart", res)
}

func (h *CartHandler) UpdateCartItem(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		utils.Error(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	itemID, ok := itemIDParam(c)
	if !ok {
		utils.Error(c, http.StatusBadRequest, "Item ID required")
		return
	}

	var req struct {
		Quantity *int `json:"quantity" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	res, err := h.Service.UpdateItem(c.Request.Context(), userID, itemID, *req.Quantity)
	if err != nil {
		metrics.CartOperation("update_item", respondCartError(c, "update_item", err))
		return
	}
	metrics.CartOperation("update_item", "ok")
	utils.Success(c, http.StatusOK, "Quantity updated", res)
}

// RemoveCartItem deletes one line, or the whole cart with ?clear=1.
func (h *CartHandler) RemoveCartItem(c *gin.Context) {
	if c.Query("clear") == "1" || c.Query("clear") == "true" {
		h.ClearCart(c)
		return
	}

	userID, ok := middleware.UserID(c)
	if !ok {
		utils.Error(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	itemID, ok := itemIDParam(c)
	if !ok {
		utils.Error(c, http.StatusBadRequest, "Item ID required")
		return
	}

	res, err := h.Service.RemoveItem(c.Request.Context(), userID, itemID)
	if err != nil {
		metrics.CartOperation("remove_item", respondCartError(c, "remove_item", err))
		return
	}
	metrics.CartOperation("remove_item", "ok")
	utils.Success(c, http.StatusOK, "Product removed from cart", res)
}

func (h *CartHandler) ClearCart(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		utils.Error(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	removed, err := h.Service.ClearCart(c.Request.Context(), userID)
	if err != nil {
		metrics.CartOperation("clear_cart", respondCartError(c, "clear_cart", err))
		return
	}
	metrics.CartOperation("clear_cart", "ok")
	utils.Success(c, http.StatusOK, "Cart cleared", gin.H{"items_removed": removed})
}
