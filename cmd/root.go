// Package cmd implements the mira command line: the API server, database
// maintenance, and a terminal storefront client whose cart lives in a local
// file and is reconciled with the server cart on login.
package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"mira-backend/cartsync"
	"mira-backend/config"
	"mira-backend/logger"

	"github.com/spf13/cobra"
)

var (
	apiURL    string
	storePath string
	verbose   bool
)

var rootCmd = &cobra.Command{
	Use:           "mira",
	Short:         "Mira storefront: API server and cart client",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		logger.L = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	},
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}

func init() {
	_ = config.LoadEnv()

	rootCmd.PersistentFlags().StringVar(&apiURL, "api", config.GetEnv("MIRA_API_URL", "http://localhost:8080"), "base URL of the storefront API")
	rootCmd.PersistentFlags().StringVar(&storePath, "store", config.GetEnv("MIRA_STORE", cartsync.DefaultPath()), "file holding the local cart and session")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug output to stderr")

	// Server
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)

	// Session
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(syncCmd)

	// Cart
	rootCmd.AddCommand(cartCmd)
}

// out is where commands print their results.
func out(cmd *cobra.Command) io.Writer {
	return cmd.OutOrStdout()
}
