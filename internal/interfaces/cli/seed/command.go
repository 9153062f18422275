package seed

import (
	"fmt"

	"github.com/spf13/cobra"

	subservices "github.com/repolens/gatekeeper/internal/application/subscription/services"
	"github.com/repolens/gatekeeper/internal/infrastructure/database"
	"github.com/repolens/gatekeeper/internal/infrastructure/persistence/seeds"
	"github.com/repolens/gatekeeper/internal/infrastructure/repository"
	"github.com/repolens/gatekeeper/internal/interfaces/cli/bootstrap"
	"github.com/repolens/gatekeeper/internal/shared/logger"
)

var (
	env  string
	file string
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the plan catalogue",
		Long:  `Create or overwrite plans from a YAML catalogue. Running it twice leaves the same rows.`,
		RunE:  run,
	}

	cmd.Flags().StringVarP(&env, "env", "e", "development", "Environment (development, test, production)")
	cmd.Flags().StringVarP(&file, "file", "f", "configs/plans.yaml", "Plan catalogue file")

	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	planFile, err := seeds.LoadPlanFile(file)
	if err != nil {
		return err
	}

	cfg, err := bootstrap.Load(bootstrap.Environment(env))
	if err != nil {
		return err
	}
	if err := bootstrap.OpenDatabase(cfg); err != nil {
		return err
	}
	defer database.Close()

	log := logger.NewComponentLogger("seed")
	registry := subservices.NewPlanRegistry(repository.NewPlanRepository(database.Get(), log), log)

	result, err := seeds.SeedPlans(cmd.Context(), planFile, registry, log)
	if err != nil {
		return err
	}
	fmt.Printf("Plans seeded: %d created, %d updated\n", result.Created, result.Updated)
	return nil
}
