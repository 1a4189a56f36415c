package cmd

import (
	"context"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/vibast-solutions/ms-go-favorpay/app/types"
)

var loginInput types.LoginRequest

var loginCmd = &cobra.Command{
	Use:          "login",
	Short:        "Sign in and store the session tokens",
	SilenceUsage: true,
	RunE: func(_ *cobra.Command, _ []string) error {
		a, cleanup := mustCreateApp(nil)
		defer cleanup()

		if a.cfg.MySQL.DSN == "" {
			logrus.Warn("MYSQL_DSN not set, the session ends with this command")
		}

		req := loginInput
		req.Email = strings.ToLower(strings.TrimSpace(req.Email))
		if req.Password == "" {
			req.Password = os.Getenv("FAVORPAY_PASSWORD")
		}

		user, err := a.authService.Login(context.Background(), &req)
		if err != nil {
			return displayError(err)
		}
		return printJSON(&types.SessionResponse{User: user})
	},
}

var logoutCmd = &cobra.Command{
	Use:          "logout",
	Short:        "Sign out and clear the stored session",
	SilenceUsage: true,
	RunE: func(_ *cobra.Command, _ []string) error {
		a, cleanup := mustCreateApp(nil)
		defer cleanup()

		if err := a.authService.Logout(context.Background()); err != nil {
			return displayError(err)
		}
		return printJSON(&types.MessageResponse{Message: "Logged out"})
	},
}

func init() {
	rootCmd.AddCommand(loginCmd, logoutCmd)

	loginCmd.Flags().StringVar(&loginInput.Email, "email", "", "Account email")
	loginCmd.Flags().StringVar(&loginInput.Password, "password", "", "Account password (defaults to FAVORPAY_PASSWORD)")
	loginCmd.Flags().BoolVar(&loginInput.Remember, "remember", false, "Remember the email for the next sign in")
	_ = loginCmd.MarkFlagRequired("email")
}
