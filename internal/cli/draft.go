package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/fintrack/fintrack/internal/app"
	"github.com/fintrack/fintrack/pkg/onboarding"
	"github.com/fintrack/fintrack/pkg/user"
	"github.com/spf13/cobra"
)

var errUserRequired = errors.New("user id required (--user)")

func draftCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "draft",
		Short: "Inspect and manage onboarding drafts",
	}
	cmd.AddCommand(draftResetCmd())
	return cmd
}

func draftResetCmd() *cobra.Command {
	var userId string
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Discard a user's onboarding draft, progress and submission ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userId == "" {
				return errUserRequired
			}
			store, closeFn, err := app.OpenDraftStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeFn()

			ctx := user.WithUser(cmd.Context(), user.User{Id: userId})
			service := onboarding.NewService(store, nil, nil, nil)
			if err := service.Reset(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Onboarding of user %s reset.\n", userId)
			return nil
		},
	}
	cmd.Flags().StringVarP(&userId, "user", "u", "", "user id")
	return cmd
}

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Development helpers for bearer tokens",
	}
	cmd.AddCommand(tokenIssueCmd())
	return cmd
}

func tokenIssueCmd() *cobra.Command {
	var userId, email string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Sign a bearer token with the configured auth secret",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userId == "" {
				return errUserRequired
			}
			token, err := user.NewTokenValidator(cfg.Auth.JwtSecret).Issue(user.User{Id: userId, Email: email}, time.Now(), ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVarP(&userId, "user", "u", "", "user id (token subject)")
	cmd.Flags().StringVar(&email, "email", "", "email claim")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
