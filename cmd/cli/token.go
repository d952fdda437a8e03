package main

import (
	"time"

	"github.com/amirasaad/mileage/pkg/middleware"
	"github.com/spf13/cobra"
)

func newTokenCmd(opts *rootOptions) *cobra.Command {
	var (
		userID int64
		role   string
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a signed access token for the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := middleware.ParseRole(role)
			if err != nil {
				return err
			}
			p, err := opts.printer(cmd)
			if err != nil {
				return err
			}
			cfg, err := opts.config()
			if err != nil {
				return err
			}
			tok, err := middleware.IssueToken(cfg.Auth.Jwt, userID, r, ttl)
			if err != nil {
				return err
			}
			return p.token(tok)
		},
	}
	cmd.Flags().Int64Var(&userID, "user", 0, "user id carried in the token")
	cmd.Flags().StringVar(&role, "role", string(middleware.RoleStudent), "student|staff|admin")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default AUTH_JWT_EXPIRY)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
