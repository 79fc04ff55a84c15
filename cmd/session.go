package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"mira-backend/apiclient"
	"mira-backend/cartsync"

	"github.com/spf13/cobra"
)

// session is the client side state of one mira user: the local store and an
// API client carrying the stored token, if any.
type session struct {
	store cartsync.Storage
	api   *apiclient.Client
}

func openSession() (*session, error) {
	store := cartsync.NewFileStorage(storePath)
	token, _, err := store.Get(cartsync.TokenKey)
	if err != nil {
		return nil, err
	}
	return &session{store: store, api: apiclient.New(apiURL, token)}, nil
}

func (s *session) loggedIn() bool {
	return s.api.Token != ""
}

func (s *session) user() (*apiclient.User, error) {
	raw, ok, err := s.store.Get(cartsync.UserKey)
	if err != nil || !ok {
		return nil, err
	}
	var u apiclient.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return nil, fmt.Errorf("decode stored user: %w", err)
	}
	return &u, nil
}

func (s *session) saveAuth(res *apiclient.AuthResult) error {
	user, err := json.Marshal(res.User)
	if err != nil {
		return err
	}
	if err := s.store.Set(cartsync.TokenKey, res.Token); err != nil {
		return err
	}
	s.api.Token = res.Token
	return s.store.Set(cartsync.UserKey, string(user))
}

// forget drops the token, the user and the local cart.
func (s *session) forget() error {
	if err := s.store.Delete(cartsync.CartKey); err != nil {
		return err
	}
	return s.expire()
}

// expire drops the token and the user but keeps the local cart, so it is
// pushed again after the next login.
func (s *session) expire() error {
	for _, key := range []string{cartsync.TokenKey, cartsync.UserKey} {
		if err := s.store.Delete(key); err != nil {
			return err
		}
	}
	s.api.Token = ""
	return nil
}

// reconcile merges the local cart with the server cart and prints what
// happened. An expired token ends the session, whether it shows up while
// pushing lines or while fetching the server cart.
func (s *session) reconcile(ctx context.Context, w io.Writer) (*cartsync.Report, error) {
	r := &cartsync.Reconciler{Store: s.store, API: s.api}
	report, err := r.Reconcile(ctx)
	if err != nil {
		if errors.Is(err, cartsync.ErrUnauthorized) {
			_ = s.expire()
			return nil, errors.New("session expired, please log in again")
		}
		return nil, err
	}

	switch report.Direction {
	case cartsync.DirectionPushed:
		fmt.Fprintf(w, "Cart synced: %d line(s) sent to the server", len(report.Results))
		if failed := report.Failed(); failed > 0 {
			fmt.Fprintf(w, ", %d rejected", failed)
		}
		fmt.Fprintln(w)
		for _, res := range report.Results {
			if !res.OK {
				fmt.Fprintf(w, "  product %d x%d: %s\n", res.ProductID, res.Quantity, res.Error)
			}
		}
	case cartsync.DirectionPulled:
		fmt.Fprintf(w, "Cart restored from the server: %d line(s)\n", report.Pulled)
	}
	return report, nil
}

func prompt(cmd *cobra.Command, r *bufio.Reader, label string) (string, error) {
	fmt.Fprint(out(cmd), label)
	line, err := r.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// flagOrPrompt returns the flag value, asking on stdin when it is empty.
func flagOrPrompt(cmd *cobra.Command, r *bufio.Reader, flag, label string) (string, error) {
	v, _ := cmd.Flags().GetString(flag)
	if v != "" {
		return v, nil
	}
	return prompt(cmd, r, label)
}

// mira login
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and sync the local cart with your account",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		in := bufio.NewReader(cmd.InOrStdin())
		email, err := flagOrPrompt(cmd, in, "email", "Email: ")
		if err != nil {
			return err
		}
		password, err := flagOrPrompt(cmd, in, "password", "Password: ")
		if err != nil {
			return err
		}

		res, err := s.api.Login(cmd.Context(), email, password)
		if err != nil {
			return err
		}
		if err := s.saveAuth(res); err != nil {
			return err
		}
		fmt.Fprintf(out(cmd), "Welcome back, %s!\n", res.User.FirstName)

		_, err = s.reconcile(cmd.Context(), out(cmd))
		return err
	},
}

// mira register
var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account and sync the local cart with it",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		in := bufio.NewReader(cmd.InOrStdin())

		var req apiclient.RegisterRequest
		fields := []struct {
			flag, label string
			dst         *string
		}{
			{"first-name", "First name: ", &req.FirstName},
			{"last-name", "Last name: ", &req.LastName},
			{"email", "Email: ", &req.Email},
			{"password", "Password (min 6 characters): ", &req.Password},
		}
		for _, f := range fields {
			if *f.dst, err = flagOrPrompt(cmd, in, f.flag, f.label); err != nil {
				return err
			}
		}
		req.Phone, _ = cmd.Flags().GetString("phone")

		res, err := s.api.Register(cmd.Context(), req)
		if err != nil {
			return err
		}
		if err := s.saveAuth(res); err != nil {
			return err
		}
		fmt.Fprintf(out(cmd), "Account created for %s.\n", res.User.Email)

		_, err = s.reconcile(cmd.Context(), out(cmd))
		return err
	},
}

// mira logout
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the session and empty the local cart",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		if err := s.forget(); err != nil {
			return err
		}
		fmt.Fprintln(out(cmd), "Logged out.")
		return nil
	},
}

// mira sync
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile the local cart with the server cart",
	Long: `Reconcile the local cart with the server cart.

A non-empty local cart is added line by line to the server cart, so products
present on both sides end up with the sum of both quantities. An empty local
cart is replaced by the server cart.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		if !s.loggedIn() {
			return errors.New("not logged in")
		}
		report, err := s.reconcile(cmd.Context(), out(cmd))
		if err != nil {
			return err
		}
		if report.Direction == cartsync.DirectionNoop {
			fmt.Fprintln(out(cmd), "Nothing to sync.")
		}
		return nil
	},
}

func init() {
	loginCmd.Flags().String("email", "", "account email")
	loginCmd.Flags().String("password", "", "account password")

	registerCmd.Flags().String("first-name", "", "first name")
	registerCmd.Flags().String("last-name", "", "last name")
	registerCmd.Flags().String("email", "", "account email")
	registerCmd.Flags().String("phone", "", "phone number")
	registerCmd.Flags().String("password", "", "account password")
}
