package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/repolens/gatekeeper/internal/interfaces/cli/migrate"
	"github.com/repolens/gatekeeper/internal/interfaces/cli/reconcile"
	"github.com/repolens/gatekeeper/internal/interfaces/cli/seed"
	"github.com/repolens/gatekeeper/internal/interfaces/cli/server"
	"github.com/repolens/gatekeeper/internal/interfaces/cli/token"
	"github.com/repolens/gatekeeper/internal/shared/version"
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "gatekeeper",
		Short:   "Gatekeeper - subscription-aware API gateway",
		Long:    `Gatekeeper authenticates plugin users, enforces plan usage limits and keeps subscriptions in step with Stripe.`,
		Version: version.Build,
	}

	rootCmd.AddCommand(
		server.NewCommand(),
		migrate.NewCommand(),
		seed.NewCommand(),
		token.NewCommand(),
		reconcile.NewCommand(),
	)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
