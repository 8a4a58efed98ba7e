package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/hszk-dev/streamgate/internal/auth"
)

func newSessionCmd() *cobra.Command {
	var (
		userID string
		sid    string
		plan   string
		issuer string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "session",
		Short: "Sign a session credential for local testing",
		Long: `Sign a bearer credential the gateway accepts.

Sessions are normally issued by the auth service. Use this against a local
gateway that does not check the session store, or with a --sid that exists
in the sessions table.

Examples:
  streamctl session --user alice
  streamctl session --user alice --sid 6ba7b810-9dad-11d1-80b4-00c04fd430c8 --ttl 10m`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, err := cmd.Flags().GetString("jwt-secret")
			if err != nil {
				return err
			}
			if secret == "" {
				return fmt.Errorf("--jwt-secret or AUTH_JWT_SECRET is required")
			}

			sessionID := uuid.New()
			if sid != "" {
				if sessionID, err = uuid.Parse(sid); err != nil {
					return fmt.Errorf("invalid --sid: %w", err)
				}
			}

			signed, _, err := auth.NewTokenManager(secret, issuer, ttl).Issue(userID, sessionID, plan)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), signed)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user id (subject)")
	cmd.Flags().StringVar(&sid, "sid", "", "session id (default: random)")
	cmd.Flags().StringVar(&plan, "plan", "", "plan tier claim")
	cmd.Flags().StringVar(&issuer, "issuer", "streamgate", "issuer claim")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "credential lifetime")
	envString(cmd.Flags(), "jwt-secret", "AUTH_JWT_SECRET", "session signing secret")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
