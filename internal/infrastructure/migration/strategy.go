package migration

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/pressly/goose/v3"
	"gorm.io/gorm"

	"github.com/repolens/gatekeeper/internal/infrastructure/persistence/models"
	"github.com/repolens/gatekeeper/internal/shared/logger"
)

//go:embed scripts/mysql/*.sql scripts/postgres/*.sql
var embedded embed.FS

// ScriptsDir is where `migrate create` writes new goose files.
const ScriptsDir = "internal/infrastructure/migration/scripts/mysql"

// Strategy brings the schema up to date.
type Strategy interface {
	Migrate(ctx context.Context, db *gorm.DB) error
	Name() string
}

// Versioned is a strategy backed by numbered scripts that can be rolled back.
type Versioned interface {
	Strategy
	MigrateDown(ctx context.Context, db *gorm.DB, steps int) error
	Version(ctx context.Context, db *gorm.DB) (int64, error)
}

// AutoMigrateStrategy derives the schema from the gorm models. Used for
// sqlite and wherever database.auto_migrate is set.
type AutoMigrateStrategy struct {
	logger logger.Interface
}

func NewAutoMigrateStrategy(logger logger.Interface) *AutoMigrateStrategy {
	return &AutoMigrateStrategy{logger: logger}
}

func (s *AutoMigrateStrategy) Migrate(ctx context.Context, db *gorm.DB) error {
	all := models.All()
	s.logger.Infow("running gorm automigrate", "models", len(all))
	if err := db.WithContext(ctx).AutoMigrate(all...); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	return nil
}

func (s *AutoMigrateStrategy) Name() string {
	return "gorm_auto_migrate"
}

// GooseStrategy applies the embedded MySQL scripts.
type GooseStrategy struct {
	logger logger.Interface
}

func NewGooseStrategy(logger logger.Interface) *GooseStrategy {
	return &GooseStrategy{logger: logger}
}

func (s *GooseStrategy) Name() string {
	return "goose"
}

func (s *GooseStrategy) provider(db *gorm.DB) (*goose.Provider, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	scripts, err := fs.Sub(embedded, "scripts/mysql")
	if err != nil {
		return nil, err
	}
	return goose.NewProvider(goose.DialectMySQL, sqlDB, scripts)
}

func (s *GooseStrategy) Migrate(ctx context.Context, db *gorm.DB) error {
	p, err := s.provider(db)
	if err != nil {
		return err
	}
	from, err := p.GetDBVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current version: %w", err)
	}

	results, err := p.Up(ctx)
	if err != nil {
		s.logger.Errorw("migration failed", "error", err)
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	to, _ := p.GetDBVersion(ctx)
	s.logger.Infow("migration completed", "from_version", from, "to_version", to, "applied", len(results))
	return nil
}

// MigrateDown rolls back steps migrations, newest first.
func (s *GooseStrategy) MigrateDown(ctx context.Context, db *gorm.DB, steps int) error {
	p, err := s.provider(db)
	if err != nil {
		return err
	}
	for range steps {
		res, err := p.Down(ctx)
		if err != nil {
			return fmt.Errorf("failed to roll back: %w", err)
		}
		s.logger.Infow("rolled back migration", "version", res.Source.Version)
	}
	return nil
}

func (s *GooseStrategy) Version(ctx context.Context, db *gorm.DB) (int64, error) {
	p, err := s.provider(db)
	if err != nil {
		return 0, err
	}
	return p.GetDBVersion(ctx)
}

// MigrationStatus is one line of `migrate status`.
type MigrationStatus struct {
	Version   int64
	File      string
	Applied   bool
	AppliedAt time.Time
}

func (s *GooseStrategy) Status(ctx context.Context, db *gorm.DB) ([]MigrationStatus, error) {
	p, err := s.provider(db)
	if err != nil {
		return nil, err
	}
	statuses, err := p.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get status: %w", err)
	}
	out := make([]MigrationStatus, 0, len(statuses))
	for _, st := range statuses {
		out = append(out, MigrationStatus{
			Version:   st.Source.Version,
			File:      filepath.Base(st.Source.Path),
			Applied:   st.State == goose.StateApplied,
			AppliedAt: st.AppliedAt,
		})
	}
	return out, nil
}

// GolangMigrateStrategy applies the embedded Postgres scripts.
type GolangMigrateStrategy struct {
	logger logger.Interface
}

func NewGolangMigrateStrategy(logger logger.Interface) *GolangMigrateStrategy {
	return &GolangMigrateStrategy{logger: logger}
}

func (s *GolangMigrateStrategy) Name() string {
	return "golang_migrate"
}

func (s *GolangMigrateStrategy) instance(db *gorm.DB) (*migrate.Migrate, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	driver, err := postgres.WithInstance(sqlDB, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres driver: %w", err)
	}
	src, err := iofs.New(embedded, "scripts/postgres")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded scripts: %w", err)
	}
	return migrate.NewWithInstance("iofs", src, "postgres", driver)
}

func (s *GolangMigrateStrategy) Migrate(ctx context.Context, db *gorm.DB) error {
	m, err := s.instance(db)
	if err != nil {
		return err
	}

	from, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to get current version: %w", err)
	}
	if dirty {
		return fmt.Errorf("database is in dirty state at version %d", from)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		s.logger.Errorw("migration failed", "error", err)
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	to, _, _ := m.Version()
	s.logger.Infow("migration completed", "from_version", from, "to_version", to)
	return nil
}

func (s *GolangMigrateStrategy) MigrateDown(ctx context.Context, db *gorm.DB, steps int) error {
	m, err := s.instance(db)
	if err != nil {
		return err
	}
	if err := m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to roll back: %w", err)
	}
	return nil
}

func (s *GolangMigrateStrategy) Version(ctx context.Context, db *gorm.DB) (int64, error) {
	m, err := s.instance(db)
	if err != nil {
		return 0, err
	}
	v, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if dirty {
		return int64(v), fmt.Errorf("database is in dirty state at version %d", v)
	}
	return int64(v), nil
}

// Create writes an empty timestamped goose migration into dir. The binary
// must be rebuilt for it to be embedded.
func Create(dir, name string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create scripts directory: %w", err)
	}
	if err := goose.Create(nil, dir, name, "sql"); err != nil {
		return fmt.Errorf("failed to create migration: %w", err)
	}
	return nil
}
