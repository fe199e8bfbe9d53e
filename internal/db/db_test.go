package database

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/FACorreiaa/hansikdang-api/internal/pkg/config"
)

func TestNewDatabaseConfig(t *testing.T) {
	cfg := &config.Config{
		Repositories: config.RepositoriesConfig{
			Postgres: config.PostgresConfig{
				Host:     "db.internal",
				Port:     "5432",
				DB:       "hansikdang",
				Username: "app",
				Password: "p@ss word",
				SSLMode:  "require",
				MaxConns: 10,
			},
		},
	}

	dbCfg, err := NewDatabaseConfig(cfg, zap.NewNop())
	require.NoError(t, err)

	u, err := url.Parse(dbCfg.ConnectionURL)
	require.NoError(t, err)
	assert.Equal(t, "postgresql", u.Scheme)
	assert.Equal(t, "db.internal:5432", u.Host)
	assert.Equal(t, "/hansikdang", u.Path)
	password, _ := u.User.Password()
	assert.Equal(t, "p@ss word", password)
	assert.Equal(t, "require", u.Query().Get("sslmode"))
	assert.Equal(t, int32(10), dbCfg.MaxConns)

	_, err = NewDatabaseConfig(&config.Config{}, zap.NewNop())
	assert.Error(t, err)
}

func TestEmbeddedMigrations(t *testing.T) {
	entries, err := migrationFS.ReadDir("migrations")
	require.NoError(t, err)

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Contains(t, names, "000001_create_restaurants.up.sql")
	assert.Contains(t, names, "000001_create_restaurants.down.sql")
}

func TestRunMigrations_RejectsForeignScheme(t *testing.T) {
	err := RunMigrations("mysql://localhost/hansikdang", zap.NewNop())
	assert.ErrorContains(t, err, "postgresql://")
}
