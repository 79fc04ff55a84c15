package handlers

import (
	"context"
	"net/http"

	"mira-backend/cartsync"
	"mira-backend/logger"
	"mira-backend/metrics"
	"mira-backend/middleware"
	"mira-backend/services"
	"mira-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// maxSyncLines bounds the client cart accepted by one sync request.
const maxSyncLines = 100

// userCart exposes one user's server cart through the cartsync.CartAPI
// interface, so the server can run the same reconciler the CLI runs.
type userCart struct {
	svc    *services.CartService
	userID uuid.UUID
}

func (u userCart) GetCart(ctx context.Context) (*cartsync.ServerCart, error) {
	view, err := u.svc.GetCart(ctx, u.userID)
	if err != nil {
		return nil, err
	}
	return toServerCart(view), nil
}

func (u userCart) AddItem(ctx context.Context, productID uint, qty int) (*cartsync.AddResult, error) {
	res, err := u.svc.AddItem(ctx, u.userID, productID, qty)
	if err != nil {
		return nil, err
	}
	return &cartsync.AddResult{
		ItemID:       res.ItemID,
		ProductName:  res.ProductName,
		Quantity:     res.Quantity,
		LineQuantity: res.LineQuantity,
	}, nil
}

func toServerCart(v *services.CartView) *cartsync.ServerCart {
	out := &cartsync.ServerCart{
		CartID:     v.CartID,
		Items:      make([]cartsync.ServerItem, 0, len(v.Items)),
		Total:      v.Total,
		ItemsCount: v.ItemsCount,
		Currency:   v.Currency,
	}
	for _, it := range v.Items {
		out.Items = append(out.Items, cartsync.ServerItem{
			ItemID:      it.ItemID,
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Slug:        it.Slug,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Subtotal:    it.Subtotal,
			ImageURL:    it.ImageURL,
			Stock:       it.Stock,
			IsDiscount:  it.IsDiscount,
			AddedAt:     it.AddedAt,
		})
	}
	return out
}

type CartSyncHandler struct {
	Service *services.CartService
	// Concurrency is passed to the reconciler; 0 or 1 pushes lines in order.
	Concurrency int
}

// SyncCart reconciles the client cart in the body with the caller's server
// cart and returns the client cart the caller should keep.
func (h *CartSyncHandler) SyncCart(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		utils.Error(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req struct {
		Items []cartsync.Line `json:"items"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	if len(req.Items) > maxSyncLines {
		utils.Error(c, http.StatusBadRequest, "Too many cart lines")
		return
	}

	ctx := c.Request.Context()
	store := cartsync.NewMemoryStorage()
	if err := cartsync.SaveState(store, cartsync.State{Lines: req.Items}); err != nil {
		respondInternal(c, "Failed to read client cart", err)
		return
	}

	api := userCart{svc: h.Service, userID: userID}
	r := &cartsync.Reconciler{
		Store:       store,
		API:         api,
		Concurrency: h.Concurrency,
		OnResult:    func(res cartsync.LineResult) { metrics.SyncLine(res.OK) },
		Log:         logger.WithCtx(ctx),
	}
	report, err := r.Reconcile(ctx)
	if err != nil {
		metrics.CartOperation("sync", respondCartError(c, "sync", err))
		return
	}
	metrics.SyncRun(string(report.Direction))
	metrics.CartOperation("sync", "ok")

	client, err := cartsync.LoadState(store)
	if err != nil {
		respondInternal(c, "Failed to read client cart", err)
		return
	}
	server, err := api.GetCart(ctx)
	if err != nil {
		metrics.CartOperation("get_cart", respondCartError(c, "get_cart", err))
		return
	}

	utils.Success(c, http.StatusOK, "Cart synchronized", gin.H{
		"direction": report.Direction,
		"results":   report.Results,
		"pulled":    report.Pulled,
		"items":     client.Lines,
		"cart":      server,
	})
}
