package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BloggingApp/megablog/internal/model"
	"github.com/BloggingApp/megablog/internal/service"
	"github.com/spf13/cobra"
)

var errNotLoggedIn = errors.New("not logged in, run blogctl login first")

// userError turns auth failures into the message shown to users.
func userError(err error) error {
	if err == nil {
		return nil
	}
	return errors.New(service.AuthMessage(err))
}

func describe(user *model.User) string {
	if user == nil {
		return "signed out"
	}
	if user.DisplayName == "" {
		return "signed in as " + user.Email
	}
	return fmt.Sprintf("signed in as %s <%s>", user.DisplayName, user.Email)
}

func newSignUpCmd(c *cli) *cobra.Command {
	var email, password, name string
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and log in",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.context(cmd)
			defer cancel()

			user, err := c.app.Services.CreateAccount(ctx, c.sess, email, password, name)
			if err != nil {
				return userError(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), describe(user))
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email (required)")
	cmd.Flags().StringVar(&password, "password", "", "Account password (required)")
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newLoginCmd(c *cli) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.context(cmd)
			defer cancel()

			user, err := c.app.Services.Login(ctx, c.sess, email, password)
			if err != nil {
				return userError(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), describe(user))
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email (required)")
	cmd.Flags().StringVar(&password, "password", "", "Account password (required)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newLogoutCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.context(cmd)
			defer cancel()

			if !c.app.Services.Logout(ctx, c.sess) {
				return errors.New("failed to log out")
			}
			fmt.Fprintln(cmd.OutOrStdout(), describe(nil))
			return nil
		},
	}
}

func newWhoAmICmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the user behind the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.context(cmd)
			defer cancel()

			fmt.Fprintln(cmd.OutOrStdout(), describe(c.app.Services.CurrentUser(ctx, c.sess)))
			return nil
		},
	}
}

func newWatchCmd(c *cli) *cobra.Command {
	var duration time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print auth state changes until interrupted",
		Long: `Prints the current auth state and every change after it. Backends that push
auth state also report sign-outs made from other clients.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			unsubscribe := c.app.Services.OnAuthStateChange(ctx, c.sess, func(user *model.User) {
				fmt.Fprintln(out, describe(user))
			})
			defer unsubscribe()

			if duration > 0 {
				select {
				case <-ctx.Done():
				case <-time.After(duration):
				}
				return nil
			}
			<-ctx.Done()
			return nil
		},
	}
	cmd.Flags().DurationVar(&duration, "for", 0, "Stop after this long (default: until interrupted)")
	return cmd
}

func newPasswordCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "password",
		Short: "Reset a forgotten password",
	}

	var email string
	forgotCmd := &cobra.Command{
		Use:   "forgot",
		Short: "Email a password reset link",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.context(cmd)
			defer cancel()

			if _, err := c.app.Services.SendPasswordResetEmail(ctx, email); err != nil {
				return userError(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "password reset email sent to", email)
			return nil
		},
	}
	forgotCmd.Flags().StringVar(&email, "email", "", "Account email (required)")
	_ = forgotCmd.MarkFlagRequired("email")

	var code, password string
	resetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Set a new password with the code from the reset link",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.context(cmd)
			defer cancel()

			if _, err := c.app.Services.ConfirmPasswordReset(ctx, code, password); err != nil {
				return userError(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "password has been reset, log in again")
			return nil
		},
	}
	resetCmd.Flags().StringVar(&code, "code", "", "oobCode from the reset link (required)")
	resetCmd.Flags().StringVar(&password, "password", "", "New password (required)")
	_ = resetCmd.MarkFlagRequired("code")
	_ = resetCmd.MarkFlagRequired("password")

	cmd.AddCommand(forgotCmd, resetCmd)
	return cmd
}
