// Package migration owns schema management: embedded goose scripts for
// MySQL, embedded golang-migrate scripts for Postgres and gorm AutoMigrate
// for sqlite.
package migration

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/repolens/gatekeeper/internal/shared/config"
	"github.com/repolens/gatekeeper/internal/shared/logger"
)

type Manager struct {
	strategy Strategy
	logger   logger.Interface
}

// NewManager picks the strategy for cfg.Driver. cfg.AutoMigrate forces
// AutoMigrate for every driver.
func NewManager(cfg *config.DatabaseConfig, log logger.Interface) *Manager {
	var strategy Strategy
	switch {
	case cfg.AutoMigrate, cfg.Driver == "sqlite":
		strategy = NewAutoMigrateStrategy(log)
	case cfg.Driver == "postgres":
		strategy = NewGolangMigrateStrategy(log)
	default:
		strategy = NewGooseStrategy(log)
	}
	return &Manager{strategy: strategy, logger: log}
}

func NewManagerWithStrategy(strategy Strategy, log logger.Interface) *Manager {
	return &Manager{strategy: strategy, logger: log}
}

func (m *Manager) Strategy() Strategy {
	return m.strategy
}

func (m *Manager) Migrate(ctx context.Context, db *gorm.DB) error {
	m.logger.Infow("starting database migration", "strategy", m.strategy.Name())
	if err := m.strategy.Migrate(ctx, db); err != nil {
		return fmt.Errorf("migration failed with strategy %s: %w", m.strategy.Name(), err)
	}
	m.logger.Infow("database migration completed", "strategy", m.strategy.Name())
	return nil
}

// Versioned returns the strategy when it supports rollback and version
// queries.
func (m *Manager) Versioned() (Versioned, error) {
	v, ok := m.strategy.(Versioned)
	if !ok {
		return nil, fmt.Errorf("%s does not support versioned migrations", m.strategy.Name())
	}
	return v, nil
}
