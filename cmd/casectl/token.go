package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"casework/internal/platform/actor"
)

func newTokenCmd() *cobra.Command {
	var (
		id       actor.Identity
		ttl      time.Duration
		key      string
		issuer   string
		audience string
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for a supervisor or HR account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if key == "" {
				key = os.Getenv("CASEWORK_JWT_SIGNING_KEY")
			}
			if key == "" {
				return fmt.Errorf("--signing-key or CASEWORK_JWT_SIGNING_KEY is required")
			}
			token, err := actor.NewTokenService(key, issuer, audience).Issue(id, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&id.ID, "id", "", "actor id (required)")
	f.StringVar(&id.Name, "name", "", "display name")
	f.StringVar(&id.Email, "email", "", "email address")
	f.StringVar(&id.Role, "role", "supervisor", "role claim")
	f.DurationVar(&ttl, "ttl", 8*time.Hour, "token lifetime")
	f.StringVar(&key, "signing-key", "", "HS256 signing key")
	f.StringVar(&issuer, "issuer", "casework", "issuer claim")
	f.StringVar(&audience, "audience", "casework-api", "audience claim")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}
