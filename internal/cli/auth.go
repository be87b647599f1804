package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/casescope/casescope/internal/model"
)

// newLoginCmd stores a token obtained out of band. Real authentication
// lives on the backend; the client only persists and presents the
// bearer token.
func newLoginCmd(appOf func() *App) *cobra.Command {
	var (
		token    string
		username string
	)
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store an API token for subsequent commands",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appOf()
			if token == "" {
				return fmt.Errorf("--token is required")
			}
			var user *model.User
			if username != "" {
				user = &model.User{Username: username}
			}
			if err := app.Session.Save(token, user); err != nil {
				return fmt.Errorf("save session: %w", err)
			}
			if claims, err := app.Session.Claims(); err == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "logged in as %s (token expires %s)\n",
					claims.Subject, claims.Expiry.Format(time.RFC3339))
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), "logged in")
			return nil
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "bearer token")
	cmd.Flags().StringVar(&username, "username", "", "display name to store with the session")
	return cmd
}

func newLogoutCmd(appOf func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := appOf().Session.Clear(); err != nil {
				return fmt.Errorf("clear session: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "logged out")
			return nil
		},
	}
}

func newWhoamiCmd(appOf func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := appOf()
			if !app.Session.Authenticated() {
				fmt.Fprintln(cmd.OutOrStdout(), "not logged in")
				return nil
			}
			if user := app.Session.User(); user != nil && user.Username != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "user: %s\n", user.Username)
			}
			claims, err := app.Session.Claims()
			if err != nil {
				fmt.Fprintln(cmd.OutOrStdout(), "token: opaque")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "subject: %s\nexpires: %s\n", claims.Subject, claims.Expiry.Format(time.RFC3339))
			if app.Session.ExpiringWithin(10 * time.Minute) {
				fmt.Fprintln(cmd.OutOrStdout(), "warning: token expires soon")
			}
			return nil
		},
	}
}
