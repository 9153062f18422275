package migrate

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/repolens/gatekeeper/internal/infrastructure/database"
	"github.com/repolens/gatekeeper/internal/infrastructure/migration"
	"github.com/repolens/gatekeeper/internal/interfaces/cli/bootstrap"
	"github.com/repolens/gatekeeper/internal/shared/logger"
)

var (
	env   string
	name  string
	steps int
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration tools",
		Long:  `Manage database migrations including running migrations, checking status, and creating new migration files.`,
	}

	cmd.PersistentFlags().StringVarP(&env, "env", "e", "development", "Environment (development, test, production)")

	cmd.AddCommand(
		newUpCommand(),
		newDownCommand(),
		newStatusCommand(),
		newCreateCommand(),
	)

	return cmd
}

func newUpCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Run all pending migrations",
		Long:  `Apply all pending database migrations to bring the database schema up to date.`,
		RunE:  runUp,
	}
}

func newDownCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "down",
		Short: "Rollback migrations",
		Long:  `Rollback a specified number of database migrations.`,
		RunE:  runDown,
	}

	cmd.Flags().IntVarP(&steps, "steps", "n", 1, "Number of migrations to rollback")

	return cmd
}

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		Long:  `Display the current migration version and status of the database.`,
		RunE:  runStatus,
	}
}

func newCreateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new migration",
		Long:  `Create a new goose migration file with the specified name.`,
		RunE:  runCreate,
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "Migration name (required)")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func setup() (*migration.Manager, error) {
	cfg, err := bootstrap.Load(bootstrap.Environment(env))
	if err != nil {
		return nil, err
	}
	if err := bootstrap.OpenDatabase(cfg); err != nil {
		return nil, err
	}
	return migration.NewManager(&cfg.Database, logger.NewComponentLogger("migration")), nil
}

func runUp(cmd *cobra.Command, args []string) error {
	manager, err := setup()
	if err != nil {
		return err
	}
	defer database.Close()

	if err := manager.Migrate(cmd.Context(), database.Get()); err != nil {
		return err
	}
	fmt.Println("Migrations applied successfully")
	return nil
}

func runDown(cmd *cobra.Command, args []string) error {
	if steps < 1 {
		return fmt.Errorf("steps must be at least 1")
	}

	manager, err := setup()
	if err != nil {
		return err
	}
	defer database.Close()

	versioned, err := manager.Versioned()
	if err != nil {
		return err
	}
	if err := versioned.MigrateDown(cmd.Context(), database.Get(), steps); err != nil {
		return err
	}
	fmt.Printf("Rolled back %d migration(s)\n", steps)
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	manager, err := setup()
	if err != nil {
		return err
	}
	defer database.Close()

	ctx := cmd.Context()

	if goose, ok := manager.Strategy().(*migration.GooseStrategy); ok {
		statuses, err := goose.Status(ctx, database.Get())
		if err != nil {
			return err
		}
		for _, st := range statuses {
			state := "pending"
			if st.Applied {
				state = "applied " + st.AppliedAt.Format("2006-01-02 15:04:05")
			}
			fmt.Printf("%5d  %-40s %s\n", st.Version, st.File, state)
		}
		return nil
	}

	versioned, err := manager.Versioned()
	if err != nil {
		fmt.Printf("Strategy %s keeps no version history\n", manager.Strategy().Name())
		return nil
	}
	v, err := versioned.Version(ctx, database.Get())
	if err != nil {
		return err
	}
	fmt.Printf("Current version: %d (%s)\n", v, versioned.Name())
	return nil
}

func runCreate(cmd *cobra.Command, args []string) error {
	if err := migration.Create(migration.ScriptsDir, name); err != nil {
		return err
	}
	fmt.Printf("Created migration %q in %s\n", name, migration.ScriptsDir)
	return nil
}
