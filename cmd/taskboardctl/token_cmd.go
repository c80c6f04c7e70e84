package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"taskboard/internal/auth"
)

func newTokenCmd() *cobra.Command {
	var (
		userID string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign a bearer token for a principal, for local testing",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" {
				userID = uuid.NewString()
			} else if _, err := uuid.Parse(userID); err != nil {
				return fmt.Errorf("invalid --user: %w", err)
			}

			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}

			token, err := auth.GenerateToken(userID, cfg.JWTSecret, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "principal uuid (random when empty)")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
