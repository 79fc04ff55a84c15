package cartsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"mira-backend/logger"

	"golang.org/x/sync/errgroup"
)

// CartAPI is the part of the server cart the reconciler talks to.
type CartAPI interface {
	GetCart(ctx context.Context) (*ServerCart, error)
	AddItem(ctx context.Context, productID uint, qty int) (*AddResult, error)
}

// ErrUnauthorized is matched by CartAPI errors that mean the session is no
// longer valid. It stops a push: every remaining line would fail the same way.
var ErrUnauthorized = errors.New("cartsync: session not authorized")

type Direction string

const (
	DirectionPushed Direction = "pushed"
	DirectionPulled Direction = "pulled"
	DirectionNoop   Direction = "noop"
)

// LineResult is the outcome of pushing one client line.
type LineResult struct {
	ProductID uint   `json:"product_id"`
	Quantity  int    `json:"quantity"`
	OK        bool   `json:"ok"`
	ItemID    uint   `json:"item_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

type Report struct {
	Direction Direction    `json:"direction"`
	Results   []LineResult `json:"results"`
	// Pulled is the number of server lines copied into the client cart.
	Pulled int `json:"pulled"`
}

// Failed counts the lines the server rejected.
func (r *Report) Failed() int {
	n := 0
	for _, res := range r.Results {
		if !res.OK {
			n++
		}
	}
	return n
}

// Reconciler merges the client cart with the server cart once per session.
//
// A non-empty client cart is pushed line by line with AddItem, so a product
// present on both sides ends up with the sum of both quantities. The client
// cart is not modified. An empty client cart is replaced by the server cart.
type Reconciler struct {
	Store Storage
	API   CartAPI

	// Concurrency > 1 pushes that many lines at once. Duplicate products are
	// merged first so concurrent calls never target the same product.
	Concurrency int

	// OnResult, when set, is called once per pushed line, possibly from
	// several goroutines.
	OnResult func(LineResult)

	Log *slog.Logger
}

func (r *Reconciler) log(ctx context.Context) *slog.Logger {
	if r.Log != nil {
		return r.Log
	}
	return logger.WithCtx(ctx)
}

// Reconcile runs the merge. Per-line failures are reported, not returned;
// the error is reserved for the client store, the GetCart call and an
// AddItem failure matching ErrUnauthorized.
func (r *Reconciler) Reconcile(ctx context.Context) (*Report, error) {
	state, err := LoadState(r.Store)
	if err != nil {
		return nil, err
	}

	if !state.IsEmpty() {
		results, err := r.push(ctx, state)
		if err != nil {
			return nil, fmt.Errorf("push cart: %w", err)
		}
		report := &Report{Direction: DirectionPushed, Results: results}
		r.log(ctx).Info("cart pushed to server", "lines", len(results), "failed", report.Failed())
		return report, nil
	}

	server, err := r.API.GetCart(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch server cart: %w", err)
	}
	if server == nil || len(server.Items) == 0 {
		return &Report{Direction: DirectionNoop, Results: []LineResult{}}, nil
	}

	pulled := State{Lines: make([]Line, 0, len(server.Items))}
	for _, it := range server.Items {
		pulled.Lines = append(pulled.Lines, FromServerItem(it))
	}
	if err := SaveState(r.Store, pulled); err != nil {
		return nil, err
	}
	r.log(ctx).Info("cart pulled from server", "lines", len(pulled.Lines))
	return &Report{Direction: DirectionPulled, Results: []LineResult{}, Pulled: len(pulled.Lines)}, nil
}

func (r *Reconciler) push(ctx context.Context, state State) ([]LineResult, error) {
	lines := state.Lines
	if r.Concurrency <= 1 {
		results := make([]LineResult, 0, len(lines))
		for _, l := range lines {
			res, err := r.pushLine(ctx, l)
			if err != nil {
				return nil, err
			}
			results = append(results, res)
		}
		return results, nil
	}

	lines = state.Normalize().Lines
	results := make([]LineResult, len(lines))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.Concurrency)
	for i, l := range lines {
		g.Go(func() error {
			res, err := r.pushLine(gctx, l)
			results[i] = res
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// pushLine adds one line to the server cart. Only an unauthorized session is
// returned as an error; anything else is recorded in the result.
func (r *Reconciler) pushLine(ctx context.Context, l Line) (LineResult, error) {
	res := LineResult{ProductID: l.ProductID, Quantity: l.Quantity}
	added, err := r.API.AddItem(ctx, l.ProductID, l.Quantity)
	if errors.Is(err, ErrUnauthorized) {
		return res, err
	}
	if err != nil {
		res.Error = err.Error()
		r.log(ctx).Warn("cart line sync failed", "product_id", l.ProductID, "quantity", l.Quantity, "error", err)
	} else {
		res.OK = true
		if added != nil {
			res.ItemID = added.ItemID
		}
	}
	if r.OnResult != nil {
		r.OnResult(res)
	}
	return res, nil
}
