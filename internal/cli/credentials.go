package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	jwttoken "docverify/internal/jwt_token"
	"docverify/internal/platform/config"
)

// NewTokenCmd issues a client access token signed with the service key.
// Issuer, audience and key default to the service environment.
func NewTokenCmd() *cobra.Command {
	var (
		clientID   string
		ttl        time.Duration
		signingKey string
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a JWT access token for an API client",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("signing-key") {
				cfg.Auth.JWTSigningKey = signingKey
			}
			if cfg.Auth.JWTSigningKey == "" {
				return errors.New("token: no signing key; set JWT_SIGNING_KEY or --signing-key")
			}
			if ttl <= 0 {
				return fmt.Errorf("token: --ttl must be positive, got %s", ttl)
			}

			svc := jwttoken.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.JWTIssuer, cfg.Auth.JWTAudience)
			token, err := svc.GenerateAccessToken(clientID, ttl)
			if err != nil {
				return fmt.Errorf("token: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}

	cmd.Flags().StringVar(&clientID, "client-id", "", "Client identifier carried in the token (required)")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "Token lifetime")
	cmd.Flags().StringVar(&signingKey, "signing-key", "", "HMAC signing key; overrides JWT_SIGNING_KEY")
	_ = cmd.MarkFlagRequired("client-id")
	return cmd
}

// NewHashKeyCmd prints the bcrypt hash to configure as DOCVERIFY_API_KEY_HASH.
// The key is read from the argument or, when absent, from the first line of
// stdin so it stays out of shell history.
func NewHashKeyCmd() *cobra.Command {
	var cost int

	cmd := &cobra.Command{
		Use:   "hash-key [key]",
		Short: "Hash an API key for DOCVERIFY_API_KEY_HASH",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var key string
			if len(args) == 1 {
				key = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return errors.New("hash-key: no key given")
				}
				key = strings.TrimRight(line, "\r\n")
			}
			if key == "" {
				return errors.New("hash-key: key must not be empty")
			}

			hash, err := bcrypt.GenerateFromPassword([]byte(key), cost)
			if err != nil {
				return fmt.Errorf("hash-key: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(hash))
			return err
		},
	}

	cmd.Flags().IntVar(&cost, "cost", bcrypt.DefaultCost, "bcrypt cost factor")
	return cmd
}
