package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/yeremiapane/table-reservation/config"
	"github.com/yeremiapane/table-reservation/utils"
)

func newTokenCmd() *cobra.Command {
	var (
		userID string
		role   string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for local testing",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			switch role {
			case "customer", "staff", "admin":
			default:
				return fmt.Errorf("unknown role %q", role)
			}
			utils.SetJWTSecret(cfg.JWTSecret)

			token, err := utils.GenerateToken(userID, role, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user id placed in the token")
	cmd.Flags().StringVar(&role, "role", "staff", "customer, staff or admin")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
