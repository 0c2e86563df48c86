package database

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectionString(t *testing.T) {
	config := &PostgresConfig{Host: "db", Port: 5433, User: "erp", Password: "p@ss word", Database: "nfe", SSLMode: "require"}

	u, err := url.Parse(config.ConnectionString())
	require.NoError(t, err)
	assert.Equal(t, "db:5433", u.Host)
	pwd, _ := u.User.Password()
	assert.Equal(t, "p@ss word", pwd)
	assert.Equal(t, "require", u.Query().Get("sslmode"))

	config.URL = "postgres://outro/banco"
	assert.Equal(t, "postgres://outro/banco", config.ConnectionString())
}

func TestTenantURL(t *testing.T) {
	got, err := tenantURL("postgres://erp:x@db:5432/nfe?sslmode=disable", "tenant_loja1")
	require.NoError(t, err)

	u, err := url.Parse(got)
	require.NoError(t, err)
	assert.Equal(t, "tenant_loja1", u.Query().Get("search_path"))
	assert.Equal(t, "disable", u.Query().Get("sslmode"))
	assert.Equal(t, "schema_migrations", u.Query().Get("x-migrations-table"))
}

func TestNewPostgresConfigFromEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_HOST", "pg")
	t.Setenv("DB_PORT", "6543")

	config := NewPostgresConfigFromEnv()
	assert.Equal(t, "pg", config.Host)
	assert.Equal(t, 6543, config.Port)
	assert.Equal(t, "postgres", config.User)
}
