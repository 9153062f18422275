package token

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/repolens/gatekeeper/internal/application/auth"
	infraauth "github.com/repolens/gatekeeper/internal/infrastructure/auth"
	"github.com/repolens/gatekeeper/internal/infrastructure/database"
	"github.com/repolens/gatekeeper/internal/infrastructure/repository"
	infratoken "github.com/repolens/gatekeeper/internal/infrastructure/token"
	"github.com/repolens/gatekeeper/internal/interfaces/cli/bootstrap"
	"github.com/repolens/gatekeeper/internal/shared/logger"
)

var env string

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Access token administration",
	}

	cmd.PersistentFlags().StringVarP(&env, "env", "e", "development", "Environment (development, test, production)")
	cmd.AddCommand(newRevokeCommand())

	return cmd
}

func newRevokeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <subject>",
		Short: "Revoke every access token of a subject",
		Long:  `Revoke all live access tokens of a subject. The plugin signs in again on its next request.`,
		Args:  cobra.ExactArgs(1),
		RunE:  runRevoke,
	}
}

func runRevoke(cmd *cobra.Command, args []string) error {
	cfg, err := bootstrap.Load(bootstrap.Environment(env))
	if err != nil {
		return err
	}
	if err := bootstrap.OpenDatabase(cfg); err != nil {
		return err
	}
	defer database.Close()

	log := logger.NewComponentLogger("token")
	store := auth.NewTokenStore(
		infraauth.NewJWTService(cfg.Auth.JWT.Secret, cfg.Auth.JWT.Issuer, cfg.Auth.JWT.TokenTTL),
		infratoken.NewHasher(),
		repository.NewAccessTokenRepository(database.Get(), log),
		log,
	)

	n, err := store.RevokeAll(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	fmt.Printf("Revoked %d token(s) for %s\n", n, args[0])
	return nil
}
