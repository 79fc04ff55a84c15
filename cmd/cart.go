package cmd

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"mira-backend/cartsync"
	"mira-backend/logger"

	"github.com/spf13/cobra"
)

// mira cart ...
var cartCmd = &cobra.Command{
	Use:   "cart",
	Short: "Show and edit the local cart",
	Long: `Show and edit the local cart.

The cart is kept in the local store. While logged in, every change is also
sent to the server cart; a failed server call is reported but the local
change stands.`,
}

var cartShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the cart",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		if u, err := s.user(); err == nil && u != nil {
			fmt.Fprintf(out(cmd), "Signed in as %s.\n", u.Email)
		}
		if server, _ := cmd.Flags().GetBool("server"); server {
			if !s.loggedIn() {
				return fmt.Errorf("not logged in")
			}
			cart, err := s.api.GetCart(cmd.Context())
			if err != nil {
				return err
			}
			renderServerCart(out(cmd), cart)
			return nil
		}

		state, err := cartsync.LoadState(s.store)
		if err != nil {
			return err
		}
		renderCart(out(cmd), state)
		return nil
	},
}

var cartAddCmd = &cobra.Command{
	Use:   "add <product-id|slug> [quantity]",
	Short: "Add a product to the cart",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		qty := 1
		if len(args) == 2 {
			n, err := strconv.Atoi(args[1])
			if err != nil || n < 1 {
				return fmt.Errorf("quantity must be a positive number")
			}
			qty = n
		}

		s, err := openSession()
		if err != nil {
			return err
		}
		product, err := s.api.GetProduct(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		state, err := cartsync.LoadState(s.store)
		if err != nil {
			return err
		}
		state = state.Add(cartsync.LineFromProduct(product.CartProduct(), qty))
		if err := cartsync.SaveState(s.store, state); err != nil {
			return err
		}
		fmt.Fprintf(out(cmd), "Added %d x %s.\n", qty, product.Name)

		if s.loggedIn() {
			if _, err := s.api.AddItem(cmd.Context(), product.ID, qty); err != nil {
				serverWarning(cmd, "add", err)
			}
		}
		renderCart(out(cmd), state)
		return nil
	},
}

var cartUpdateCmd = &cobra.Command{
	Use:   "update <product-id> <quantity>",
	Short: "Set the quantity of a cart line; 0 removes it",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		productID, err := parseProductID(args[0])
		if err != nil {
			return err
		}
		qty, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("quantity must be a number")
		}

		s, err := openSession()
		if err != nil {
			return err
		}
		state, err := cartsync.LoadState(s.store)
		if err != nil {
			return err
		}
		if _, ok := state.Find(productID); !ok {
			return fmt.Errorf("product %d is not in the cart", productID)
		}
		state = state.Update(productID, qty)
		if err := cartsync.SaveState(s.store, state); err != nil {
			return err
		}

		if s.loggedIn() {
			if err := setServerQuantity(cmd.Context(), s, productID, qty); err != nil {
				serverWarning(cmd, "update", err)
			}
		}
		renderCart(out(cmd), state)
		return nil
	},
}

var cartRemoveCmd = &cobra.Command{
	Use:   "remove <product-id>",
	Short: "Remove a product from the cart",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		productID, err := parseProductID(args[0])
		if err != nil {
			return err
		}

		s, err := openSession()
		if err != nil {
			return err
		}
		state, err := cartsync.LoadState(s.store)
		if err != nil {
			return err
		}
		state = state.Remove(productID)
		if err := cartsync.SaveState(s.store, state); err != nil {
			return err
		}

		if s.loggedIn() {
			if err := setServerQuantity(cmd.Context(), s, productID, 0); err != nil {
				serverWarning(cmd, "remove", err)
			}
		}
		renderCart(out(cmd), state)
		return nil
	},
}

var cartClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Empty the local cart",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		if err := cartsync.SaveState(s.store, cartsync.State{}.Clear()); err != nil {
			return err
		}
		fmt.Fprintln(out(cmd), "Cart emptied.")

		if server, _ := cmd.Flags().GetBool("server"); server && s.loggedIn() {
			n, err := s.api.ClearCart(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "Removed %d line(s) from the server cart.\n", n)
		}
		return nil
	},
}

func init() {
	cartShowCmd.Flags().Bool("server", false, "show the server cart instead of the local one")
	cartClearCmd.Flags().Bool("server", false, "also empty the server cart")

	cartCmd.AddCommand(cartShowCmd, cartAddCmd, cartUpdateCmd, cartRemoveCmd, cartClearCmd)
}

func parseProductID(s string) (uint, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid product id %q", s)
	}
	return uint(id), nil
}

// setServerQuantity finds the server line of productID and sets its quantity,
// removing it when qty < 1. A product missing from the server cart is added.
func setServerQuantity(ctx context.Context, s *session, productID uint, qty int) error {
	cart, err := s.api.GetCart(ctx)
	if err != nil {
		return err
	}
	for _, it := range cart.Items {
		if it.ProductID != productID {
			continue
		}
		if qty < 1 {
			return s.api.RemoveItem(ctx, it.ItemID)
		}
		return s.api.UpdateItem(ctx, it.ItemID, qty)
	}
	if qty < 1 {
		return nil
	}
	_, err = s.api.AddItem(ctx, productID, qty)
	return err
}

func serverWarning(cmd *cobra.Command, op string, err error) {
	logger.WithCtx(cmd.Context()).Debug("server cart call failed", "operation", op, "error", err)
	fmt.Fprintf(cmd.ErrOrStderr(), "warning: server cart not updated: %v\n", err)
}

func renderCart(w io.Writer, state cartsync.State) {
	if state.IsEmpty() {
		fmt.Fprintln(w, "Your cart is empty.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPRODUCT\tQTY\tPRICE\tSUBTOTAL")
	for _, l := range state.Lines {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\n", l.ProductID, l.Name, l.Quantity, l.UnitPrice.StringFixed(2), l.Subtotal().StringFixed(2))
	}
	fmt.Fprintf(tw, "\t\t%d\t\t%s EUR\n", state.Count(), state.Total().StringFixed(2))
	tw.Flush()
}

func renderServerCart(w io.Writer, cart *cartsync.ServerCart) {
	if len(cart.Items) == 0 {
		fmt.Fprintln(w, "Your server cart is empty.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ITEM\tID\tPRODUCT\tQTY\tPRICE\tSUBTOTAL")
	for _, it := range cart.Items {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%d\t%s\t%s\n", it.ItemID, it.ProductID, it.ProductName, it.Quantity, it.UnitPrice.StringFixed(2), it.Subtotal.StringFixed(2))
	}
	fmt.Fprintf(tw, "\t\t\t%d\t\t%s %s\n", cart.ItemsCount, cart.Total.StringFixed(2), cart.Currency)
	tw.Flush()
}
