package migration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/repolens/gatekeeper/internal/shared/config"
	"github.com/repolens/gatekeeper/internal/shared/constants"
	"github.com/repolens/gatekeeper/internal/shared/logger"
)

func TestNewManager_StrategyByDriver(t *testing.T) {
	log := logger.NewNop()

	tests := []struct {
		cfg  config.DatabaseConfig
		want string
	}{
		{config.DatabaseConfig{Driver: "mysql"}, "goose"},
		{config.DatabaseConfig{Driver: "postgres"}, "golang_migrate"},
		{config.DatabaseConfig{Driver: "sqlite"}, "gorm_auto_migrate"},
		{config.DatabaseConfig{Driver: "mysql", AutoMigrate: true}, "gorm_auto_migrate"},
	}
	for _, tt := range tests {
		t.Run(tt.cfg.Driver, func(t *testing.T) {
			assert.Equal(t, tt.want, NewManager(&tt.cfg, log).Strategy().Name())
		})
	}

	_, err := NewManager(&config.DatabaseConfig{Driver: "sqlite"}, log).Versioned()
	assert.Error(t, err)
	_, err = NewManager(&config.DatabaseConfig{Driver: "mysql"}, log).Versioned()
	assert.NoError(t, err)
}

func TestAutoMigrate_CreatesAllTables(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	m := NewManager(&config.DatabaseConfig{Driver: "sqlite"}, logger.NewNop())
	require.NoError(t, m.Migrate(context.Background(), db))

	for _, table := range []string{
		constants.TableUsers,
		constants.TableAccessTokens,
		constants.TablePlans,
		constants.TableSubscriptions,
		constants.TableUsageCounters,
		constants.TableUsageEvents,
	} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
}

func TestEmbeddedScripts(t *testing.T) {
	mysql, err := embedded.ReadDir("scripts/mysql")
	require.NoError(t, err)
	require.NotEmpty(t, mysql)
	assert.Equal(t, "00001_init.sql", mysql[0].Name())

	pg, err := embedded.ReadDir("scripts/postgres")
	require.NoError(t, err)
	assert.Len(t, pg, 2)
}
